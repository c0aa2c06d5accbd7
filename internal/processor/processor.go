// Package processor executes token sale requests: it decodes the instruction,
// validates the supplied accounts and authority, updates the sale and
// participant records, and asks the token program to move funds.
//
// The processor holds no state between requests. Atomicity is the host's job:
// if Process returns an error, none of the account handles may be persisted.
package processor

import (
	"context"
	"log"

	errorsmod "cosmossdk.io/errors"

	"solana-token-sale/internal/instruction"
	"solana-token-sale/internal/programerr"
	"solana-token-sale/internal/solana"
	"solana-token-sale/internal/vesting"
)

// Request is one inbound call: instruction data plus ordered account handles.
type Request struct {
	ProgramID solana.PublicKey
	Accounts  []*AccountInfo
	Data      []byte
}

// Options configures policy decisions and ambient hooks.
type Options struct {
	// AllowTGEUnset lets the admin clear a previously set TGE, re-locking the sale.
	AllowTGEUnset bool
	// UncappedDeposits accepts deposits past TotalAllocated and leaves
	// TotalRemaining at its initial value.
	UncappedDeposits bool
	// Formula selects the vesting formula used by Claim.
	Formula vesting.Formula
	// Logger defaults to log.Default().
	Logger *log.Logger
	// Observer is notified after every request. Optional.
	Observer Observer
}

// Processor dispatches requests to the four operations.
type Processor struct {
	token  TokenProgram
	system SystemProgram
	clock  Clock
	rent   Rent
	opts   Options
	logger *log.Logger
}

// New creates a Processor over the given collaborators.
func New(token TokenProgram, system SystemProgram, clock Clock, rent Rent, opts Options) *Processor {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Processor{
		token:  token,
		system: system,
		clock:  clock,
		rent:   rent,
		opts:   opts,
		logger: logger,
	}
}

// Process decodes and executes one request.
func (p *Processor) Process(ctx context.Context, req Request) error {
	ix, err := instruction.Decode(req.Data)
	if err != nil {
		p.logger.Printf("[processor] decode: %v", err)
		p.observe("unknown", err, 0)
		return err
	}

	op := ix.Opcode()
	if need := instruction.AccountCount(op); len(req.Accounts) < need {
		err := errorsmod.Wrapf(programerr.ErrNotEnoughAccountKeys, "%s needs %d accounts, got %d", op, need, len(req.Accounts))
		p.observe(op.String(), err, 0)
		return err
	}

	p.logger.Printf("[processor] Instruction: %s", op)

	var units uint64
	switch ix := ix.(type) {
	case instruction.InitializeSale:
		err = p.initializeSale(ctx, req, ix)
	case instruction.Deposit:
		units, err = p.deposit(ctx, req, ix)
	case instruction.SetTGE:
		err = p.setTGE(ctx, req, ix)
	case instruction.Claim:
		units, err = p.claim(ctx, req)
	default:
		err = errorsmod.Wrapf(programerr.ErrUnknownInstruction, "%T", ix)
	}

	if err != nil {
		p.logger.Printf("[processor] %s failed: %v", op, err)
	}
	p.observe(op.String(), err, units)
	return err
}

func (p *Processor) observe(op string, err error, units uint64) {
	if p.opts.Observer != nil {
		p.opts.Observer.Observe(op, err, units)
	}
}

func (p *Processor) now(ctx context.Context) (int64, error) {
	now, err := p.clock.Now(ctx)
	if err != nil {
		return 0, errorsmod.Wrapf(programerr.ErrInvalidAccount, "clock: %v", err)
	}
	return now, nil
}
