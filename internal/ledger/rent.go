package ledger

// Default rent parameters of a Solana cluster.
const (
	AccountStorageOverhead     = 128
	DefaultLamportsPerByteYear = 3480
	DefaultExemptionYears      = 2
)

// Rent decides rent exemption the way the cluster does: an account is exempt
// when it holds two years of rent for its data plus a fixed overhead.
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionYears      uint64
}

// DefaultRent returns the cluster's default schedule.
func DefaultRent() Rent {
	return Rent{LamportsPerByteYear: DefaultLamportsPerByteYear, ExemptionYears: DefaultExemptionYears}
}

// MinimumBalance returns the lamports that keep size bytes alive forever.
func (r Rent) MinimumBalance(size int) uint64 {
	return (AccountStorageOverhead + uint64(size)) * r.LamportsPerByteYear * r.ExemptionYears
}

// IsExempt reports whether lamports cover MinimumBalance(size).
func (r Rent) IsExempt(lamports uint64, size int) bool {
	return lamports >= r.MinimumBalance(size)
}
