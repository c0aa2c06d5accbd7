// Package programerr defines the error taxonomy surfaced by the token sale program.
// Every error is registered with a stable numeric code so that callers outside the
// process (CLI, logs, metrics) can identify the failure without parsing messages.
package programerr

import (
	"errors"

	errorsmod "cosmossdk.io/errors"
)

// Codespace groups all token sale error codes.
const Codespace = "tokensale"

var (
	ErrUnknownInstruction    = errorsmod.Register(Codespace, 1100, "unknown instruction")
	ErrDeserializationFailed = errorsmod.Register(Codespace, 1101, "failed to unpack data")
	ErrSignatureRequired     = errorsmod.Register(Codespace, 1102, "participant signature required")
	ErrInvalidOwner          = errorsmod.Register(Codespace, 1103, "invalid account owner")
	ErrInvalidAccount        = errorsmod.Register(Codespace, 1104, "invalid account")
	ErrSizeMismatch          = errorsmod.Register(Codespace, 1105, "account size mismatch")
	ErrNotRentExempt         = errorsmod.Register(Codespace, 1106, "lamport balance below rent-exempt threshold")
	ErrAccountInitialized    = errorsmod.Register(Codespace, 1107, "account is already initialized")
	ErrSellNotStarted        = errorsmod.Register(Codespace, 1108, "sale has not started yet")
	ErrSellEnded             = errorsmod.Register(Codespace, 1109, "sale is already finished")
	ErrInvalidEndTimestamp   = errorsmod.Register(Codespace, 1110, "invalid end timestamp")
	ErrWrongMint             = errorsmod.Register(Codespace, 1111, "token account mint mismatch")
	ErrNoTokensInVault       = errorsmod.Register(Codespace, 1112, "not enough tokens in vault")
	ErrMinimalDeposit        = errorsmod.Register(Codespace, 1113, "initial deposit is below the minimum")
	ErrNothingToClaim        = errorsmod.Register(Codespace, 1114, "no tokens to claim")
	ErrOverflow              = errorsmod.Register(Codespace, 1115, "integer overflow")
	ErrTokenTransferFailed   = errorsmod.Register(Codespace, 1116, "token transfer failed")

	ErrNotEnoughAccountKeys = errorsmod.Register(Codespace, 1117, "not enough account keys")
	ErrTGEUnsetForbidden    = errorsmod.Register(Codespace, 1118, "tge cannot be unset")
	ErrInvalidArgument      = errorsmod.Register(Codespace, 1119, "invalid instruction argument")
	ErrCapacityExceeded     = errorsmod.Register(Codespace, 1120, "sale capacity exceeded")
)

// All lists every registered error in code order.
var All = []*errorsmod.Error{
	ErrUnknownInstruction,
	ErrDeserializationFailed,
	ErrSignatureRequired,
	ErrInvalidOwner,
	ErrInvalidAccount,
	ErrSizeMismatch,
	ErrNotRentExempt,
	ErrAccountInitialized,
	ErrSellNotStarted,
	ErrSellEnded,
	ErrInvalidEndTimestamp,
	ErrWrongMint,
	ErrNoTokensInVault,
	ErrMinimalDeposit,
	ErrNothingToClaim,
	ErrOverflow,
	ErrTokenTransferFailed,
	ErrNotEnoughAccountKeys,
	ErrTGEUnsetForbidden,
	ErrInvalidArgument,
	ErrCapacityExceeded,
}

// Code returns the registered code carried by err, or 0 if err is nil or not
// part of the taxonomy.
func Code(err error) uint32 {
	var e *errorsmod.Error
	if errors.As(err, &e) && e.Codespace() == Codespace {
		return e.ABCICode()
	}
	return 0
}

// Name returns a short identifier for err's code, suitable for metric labels.
func Name(err error) string {
	switch Code(err) {
	case 0:
		if err == nil {
			return "ok"
		}
		return "internal"
	case 1100:
		return "unknown_instruction"
	case 1101:
		return "deserialization_failed"
	case 1102:
		return "signature_required"
	case 1103:
		return "invalid_owner"
	case 1104:
		return "invalid_account"
	case 1105:
		return "size_mismatch"
	case 1106:
		return "not_rent_exempt"
	case 1107:
		return "account_initialized"
	case 1108:
		return "sell_not_started"
	case 1109:
		return "sell_ended"
	case 1110:
		return "invalid_end_timestamp"
	case 1111:
		return "wrong_mint"
	case 1112:
		return "no_tokens_in_vault"
	case 1113:
		return "minimal_deposit"
	case 1114:
		return "nothing_to_claim"
	case 1115:
		return "overflow"
	case 1116:
		return "token_transfer_failed"
	case 1117:
		return "not_enough_account_keys"
	case 1118:
		return "tge_unset_forbidden"
	case 1119:
		return "invalid_argument"
	case 1120:
		return "capacity_exceeded"
	default:
		return "unknown"
	}
}
