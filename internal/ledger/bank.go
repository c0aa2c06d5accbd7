// Package ledger hosts the sale processor: it keeps account state in a
// storage.AccountStore, provides the token program, system program, rent
// schedule and clock that the processor consumes, and applies each request
// atomically.
package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	errorsmod "cosmossdk.io/errors"

	"solana-token-sale/internal/domain"
	"solana-token-sale/internal/idhash"
	"solana-token-sale/internal/instruction"
	"solana-token-sale/internal/processor"
	"solana-token-sale/internal/programerr"
	"solana-token-sale/internal/solana"
	"solana-token-sale/internal/storage"
	"solana-token-sale/internal/vesting"
)

// Options configures a Bank.
type Options struct {
	ProgramID solana.PublicKey
	// Activities receives one row per successful request. Optional.
	Activities storage.ActivityStore
	// Clock defaults to SystemClock.
	Clock Clock
	// Rent defaults to DefaultRent.
	Rent *Rent
	// RunID is stamped on every activity row.
	RunID string

	AllowTGEUnset    bool
	UncappedDeposits bool
	Formula          vesting.Formula
	Observer         processor.Observer

	// Logger defaults to log.Default().
	Logger *log.Logger
}

// Transaction is one request: an instruction and its ordered accounts.
type Transaction struct {
	Instruction instruction.Instruction
	Accounts    []instruction.AccountMeta
}

// Receipt describes a committed request.
type Receipt struct {
	Sequence   uint64
	Op         instruction.Opcode
	Units      uint64 // sale-token units purchased or claimed
	Payment    uint64 // payment units transferred by a deposit
	Timestamp  int64
	ActivityID string
}

// Bank executes transactions one at a time against an account store.
type Bank struct {
	mu         sync.Mutex
	programID  solana.PublicKey
	accounts   storage.AccountStore
	activities storage.ActivityStore
	clock      Clock
	rent       Rent
	runID      string
	proc       *processor.Processor
	units      *unitsObserver
	logger     *log.Logger

	seq uint64
}

// unitsObserver remembers the units of the request in flight and forwards
// every outcome to next.
type unitsObserver struct {
	last uint64
	next processor.Observer
}

func (o *unitsObserver) Observe(op string, err error, units uint64) {
	o.last = units
	if o.next != nil {
		o.next.Observe(op, err, units)
	}
}

// NewBank creates a Bank over accounts.
func NewBank(accounts storage.AccountStore, opts Options) *Bank {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	rent := DefaultRent()
	if opts.Rent != nil {
		rent = *opts.Rent
	}

	b := &Bank{
		programID:  opts.ProgramID,
		accounts:   accounts,
		activities: opts.Activities,
		clock:      clock,
		rent:       rent,
		runID:      opts.RunID,
		units:      &unitsObserver{next: opts.Observer},
		logger:     logger,
	}
	b.proc = processor.New(
		&tokenProgram{caller: opts.ProgramID},
		&systemProgram{rent: rent},
		clock,
		rent,
		processor.Options{
			AllowTGEUnset:    opts.AllowTGEUnset,
			UncappedDeposits: opts.UncappedDeposits,
			Formula:          opts.Formula,
			Logger:           logger,
			Observer:         b.units,
		},
	)
	return b
}

// ProgramID returns the sale program address.
func (b *Bank) ProgramID() solana.PublicKey { return b.programID }

// Clock returns the bank's clock.
func (b *Bank) Clock() Clock { return b.clock }

// Rent returns the bank's rent schedule.
func (b *Bank) Rent() Rent { return b.rent }

// Execute runs tx. On error no account is modified.
func (b *Bank) Execute(ctx context.Context, tx Transaction) (*Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := instruction.Encode(tx.Instruction)
	if err != nil {
		return nil, fmt.Errorf("encode instruction: %w", err)
	}

	handles, order, err := b.load(ctx, tx.Accounts)
	if err != nil {
		return nil, err
	}
	before := snapshot(handles)

	b.units.last = 0
	err = b.proc.Process(ctx, processor.Request{
		ProgramID: b.programID,
		Accounts:  order,
		Data:      data,
	})
	if err != nil {
		return nil, err
	}

	changed, err := b.verify(handles, before)
	if err != nil {
		return nil, err
	}
	if err := b.accounts.PutBulk(ctx, changed); err != nil {
		return nil, fmt.Errorf("commit accounts: %w", err)
	}

	b.seq++
	return b.record(ctx, tx, b.units.last)
}

// load resolves every meta to a handle. Repeated keys share one handle with
// merged signer and writable flags. Unknown keys become empty system accounts.
func (b *Bank) load(ctx context.Context, metas []instruction.AccountMeta) (map[solana.PublicKey]*processor.AccountInfo, []*processor.AccountInfo, error) {
	handles := make(map[solana.PublicKey]*processor.AccountInfo, len(metas))
	order := make([]*processor.AccountInfo, len(metas))
	for i, m := range metas {
		h, ok := handles[m.Key]
		if !ok {
			acc, err := b.accounts.Get(ctx, m.Key)
			switch {
			case errors.Is(err, storage.ErrNotFound):
				acc = &solana.AccountInfo{Owner: solana.SystemProgramID}
			case err != nil:
				return nil, nil, fmt.Errorf("load account %s: %w", m.Key, err)
			}
			h = &processor.AccountInfo{
				Key:      m.Key,
				Owner:    acc.Owner,
				Lamports: acc.Lamports,
				Data:     acc.Data,
			}
			handles[m.Key] = h
		}
		h.IsSigner = h.IsSigner || m.IsSigner
		h.IsWritable = h.IsWritable || m.IsWritable
		order[i] = h
	}
	return handles, order, nil
}

type accountState struct {
	owner    solana.PublicKey
	lamports uint64
	data     []byte
}

func snapshot(handles map[solana.PublicKey]*processor.AccountInfo) map[solana.PublicKey]accountState {
	out := make(map[solana.PublicKey]accountState, len(handles))
	for k, h := range handles {
		out[k] = accountState{owner: h.Owner, lamports: h.Lamports, data: append([]byte(nil), h.Data...)}
	}
	return out
}

// verify enforces host rules on the post-request state and returns the
// accounts to persist.
func (b *Bank) verify(handles map[solana.PublicKey]*processor.AccountInfo, before map[solana.PublicKey]accountState) ([]solana.KeyedAccount, error) {
	var (
		changed             []solana.KeyedAccount
		sumBefore, sumAfter uint64
	)
	for k, h := range handles {
		prev := before[k]
		sumBefore += prev.lamports
		sumAfter += h.Lamports

		modified := prev.owner != h.Owner || prev.lamports != h.Lamports || !bytes.Equal(prev.data, h.Data)
		if !modified {
			continue
		}
		if !h.IsWritable {
			return nil, errorsmod.Wrapf(programerr.ErrInvalidAccount, "read-only account %s modified", k)
		}
		changed = append(changed, solana.KeyedAccount{
			Pubkey:  k,
			Account: solana.AccountInfo{Owner: h.Owner, Lamports: h.Lamports, Data: h.Data},
		})
	}
	if sumBefore != sumAfter {
		return nil, errorsmod.Wrapf(programerr.ErrInvalidAccount, "lamports not conserved: %d before, %d after", sumBefore, sumAfter)
	}
	return changed, nil
}

// record appends the activity row for a committed request.
func (b *Bank) record(ctx context.Context, tx Transaction, units uint64) (*Receipt, error) {
	now, err := b.clock.Now(ctx)
	if err != nil {
		return nil, fmt.Errorf("read clock: %w", err)
	}

	op := tx.Instruction.Opcode()
	receipt := &Receipt{Sequence: b.seq, Op: op, Timestamp: now}
	switch ix := tx.Instruction.(type) {
	case instruction.Deposit:
		receipt.Units = ix.Amount
		receipt.Payment = units
	case instruction.Claim:
		receipt.Units = units
	}

	saleIdx := 1
	if op == instruction.OpDeposit {
		saleIdx = 2
	}
	a := &domain.Activity{
		RunID:     b.runID,
		Sale:      tx.Accounts[saleIdx].Key,
		Investor:  tx.Accounts[0].Key,
		Kind:      domain.ActivityKind(op.String()),
		Sequence:  b.seq,
		Units:     receipt.Units,
		Payment:   receipt.Payment,
		Timestamp: now,
	}
	a.ActivityID = idhash.ComputeActivityID(a.Sale, a.Investor, a.Kind, a.Sequence, a.Timestamp)
	receipt.ActivityID = a.ActivityID

	if b.activities != nil {
		if err := b.activities.Insert(ctx, a); err != nil {
			// Account state is already committed; the caller decides whether to stop.
			return receipt, fmt.Errorf("record activity %s: %w", a.ActivityID, err)
		}
	}
	b.logger.Printf("[ledger] #%d %s sale=%s signer=%s units=%d payment=%d", b.seq, op, a.Sale, a.Investor, receipt.Units, receipt.Payment)
	return receipt, nil
}
