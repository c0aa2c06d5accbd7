package ledger

import "errors"

// Host-level failures raised by the built-in token and system programs. The
// sale processor wraps them into its own taxonomy.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrMintMismatch      = errors.New("token accounts have different mints")
	ErrOwnerMismatch     = errors.New("authority does not own the source account")
	ErrMissingSignature  = errors.New("missing required signature")
	ErrNotWritable       = errors.New("account is not writable")
	ErrAccountInUse      = errors.New("account already in use")
	ErrAddressMismatch   = errors.New("address does not match seeds")
	ErrNotTokenAccount   = errors.New("account is not a token account")
)
