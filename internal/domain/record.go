// Package domain holds the persisted records of the token sale program: the
// sale configuration with its lifecycle phase, and one participant ledger per
// (sale, investor) pair.
package domain

import (
	errorsmod "cosmossdk.io/errors"

	"solana-token-sale/internal/programerr"
)

// RecordKind is the leading tag byte of every persisted record.
type RecordKind uint8

const (
	KindUninitialized RecordKind = 0 // zero value of freshly allocated storage
	KindParticipant   RecordKind = 1
	KindSale          RecordKind = 2
)

// String returns the kind name.
func (k RecordKind) String() string {
	switch k {
	case KindUninitialized:
		return "uninitialized"
	case KindParticipant:
		return "participant"
	case KindSale:
		return "sale"
	default:
		return "unknown"
	}
}

// Persisted record sizes.
const (
	// ParticipantSize: tag(1) + owner(32) + sale(32) + purchased(8) + claimed(8).
	ParticipantSize = 1 + 32 + 32 + 8 + 8

	// SaleSize is the sale layout with every optional field present:
	// tag(1) + admin(32) + paymentMint(32) + saleMint(1+32) + saleVault(1+32) +
	// paymentDestination(32) + exchangeRate(8) + saleStart(8) + saleEnd(8) +
	// tge(1+8) + upfrontPercent(8) + vestingMonths(8) + minDeposit(8) +
	// totalAllocated(8) + totalRemaining(8).
	SaleSize = 1 + 32 + 32 + 33 + 33 + 32 + 8 + 8 + 8 + 9 + 8 + 8 + 8 + 8 + 8
)

// PeekKind returns the tag of a record of the given layout size. Storage
// shorter than size is a SizeMismatch.
func PeekKind(data []byte, size int) (RecordKind, error) {
	if len(data) < size {
		return 0, errorsmod.Wrapf(programerr.ErrSizeMismatch, "have %d bytes, need %d", len(data), size)
	}
	return RecordKind(data[0]), nil
}

// IsEmpty reports whether storage has never been written: no bytes or only zeros.
func IsEmpty(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}
