package instruction

import "solana-token-sale/internal/solana"

// Number of account references each operation reads, in order.
const (
	DepositAccountCount        = 10
	InitializeSaleAccountCount = 8
	ClaimAccountCount          = 9
	SetTGEAccountCount         = 4
)

// AccountMeta is one account reference of a request.
type AccountMeta struct {
	Key        solana.PublicKey
	IsSigner   bool
	IsWritable bool
}

// AccountCount returns how many account references op requires.
func AccountCount(op Opcode) int {
	switch op {
	case OpDeposit:
		return DepositAccountCount
	case OpInitializeSale:
		return InitializeSaleAccountCount
	case OpClaim:
		return ClaimAccountCount
	case OpSetTGE:
		return SetTGEAccountCount
	default:
		return 0
	}
}

// DepositKeys are the caller-chosen accounts of a Deposit.
type DepositKeys struct {
	Payer              solana.PublicKey
	PaymentSource      solana.PublicKey
	Sale               solana.PublicKey
	PaymentDestination solana.PublicKey
	TransferAuthority  solana.PublicKey
	Participant        solana.PublicKey
}

// Metas returns the ordered account list for Deposit.
func (k DepositKeys) Metas() []AccountMeta {
	return []AccountMeta{
		{Key: k.Payer, IsSigner: true, IsWritable: true},
		{Key: k.PaymentSource, IsWritable: true},
		{Key: k.Sale, IsWritable: true},
		{Key: k.PaymentDestination, IsWritable: true},
		{Key: k.TransferAuthority, IsSigner: true},
		{Key: solana.TokenProgramID},
		{Key: k.Participant, IsWritable: true},
		{Key: solana.SysvarRentID},
		{Key: solana.SysvarClockID},
		{Key: solana.SystemProgramID},
	}
}

// InitializeSaleKeys are the caller-chosen accounts of an InitializeSale.
type InitializeSaleKeys struct {
	Payer              solana.PublicKey
	Sale               solana.PublicKey
	SaleVault          solana.PublicKey
	SaleMint           solana.PublicKey
	PaymentMint        solana.PublicKey
	PaymentDestination solana.PublicKey
}

// Metas returns the ordered account list for InitializeSale.
func (k InitializeSaleKeys) Metas() []AccountMeta {
	return []AccountMeta{
		{Key: k.Payer, IsSigner: true, IsWritable: true},
		{Key: k.Sale, IsWritable: true},
		{Key: k.SaleVault},
		{Key: k.SaleMint},
		{Key: k.PaymentMint},
		{Key: k.PaymentDestination},
		{Key: solana.SysvarRentID},
		{Key: solana.SysvarClockID},
	}
}

// ClaimKeys are the caller-chosen accounts of a Claim.
type ClaimKeys struct {
	Payer         solana.PublicKey
	Sale          solana.PublicKey
	SaleMint      solana.PublicKey
	SaleAuthority solana.PublicKey
	SaleVault     solana.PublicKey
	Participant   solana.PublicKey
	Destination   solana.PublicKey
}

// Metas returns the ordered account list for Claim.
func (k ClaimKeys) Metas() []AccountMeta {
	return []AccountMeta{
		{Key: k.Payer, IsSigner: true, IsWritable: true},
		{Key: k.Sale},
		{Key: k.SaleMint},
		{Key: k.SaleAuthority},
		{Key: k.SaleVault, IsWritable: true},
		{Key: solana.TokenProgramID},
		{Key: k.Participant, IsWritable: true},
		{Key: k.Destination, IsWritable: true},
		{Key: solana.SysvarClockID},
	}
}

// SetTGEKeys are the caller-chosen accounts of a SetTGE.
type SetTGEKeys struct {
	Admin     solana.PublicKey
	Sale      solana.PublicKey
	SaleMint  solana.PublicKey
	SaleVault solana.PublicKey
}

// Metas returns the ordered account list for SetTGE.
func (k SetTGEKeys) Metas() []AccountMeta {
	return []AccountMeta{
		{Key: k.Admin, IsSigner: true},
		{Key: k.Sale, IsWritable: true},
		{Key: k.SaleMint},
		{Key: k.SaleVault},
	}
}
