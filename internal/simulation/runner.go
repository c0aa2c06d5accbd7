package simulation

import (
	"context"
	"fmt"
	"log"
	"time"

	"solana-token-sale/internal/authority"
	"solana-token-sale/internal/domain"
	"solana-token-sale/internal/instruction"
	"solana-token-sale/internal/ledger"
	"solana-token-sale/internal/processor"
	"solana-token-sale/internal/programerr"
	"solana-token-sale/internal/solana"
	"solana-token-sale/internal/storage"
	"solana-token-sale/internal/verification"
	"solana-token-sale/internal/vesting"
)

// walletLamports funds every simulated wallet.
const walletLamports = 10_000_000_000

// ExecuteRecorder receives the latency of every executed request.
type ExecuteRecorder interface {
	RecordExecute(d time.Duration, seq uint64)
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Accounts   storage.AccountStore
	Activities storage.ActivityStore // optional
	RunID      string
	// KeySeed namespaces scenario addresses; empty keeps them stable across runs.
	KeySeed  string
	Observer processor.Observer // optional
	Recorder ExecuteRecorder    // optional
	// Logger defaults to log.Default().
	Logger *log.Logger
}

// Runner executes scenarios.
type Runner struct {
	opts   RunnerOptions
	logger *log.Logger
}

// NewRunner creates a simulation runner.
func NewRunner(opts RunnerOptions) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{opts: opts, logger: logger}
}

// StepResult is the outcome of one step.
type StepResult struct {
	Index    int // 0 is the implicit InitializeSale
	Action   string
	Investor string
	Time     int64
	Receipt  *ledger.Receipt // nil for clock steps and rejected requests
	Err      error
	// Unexpected is set when the outcome differs from the step's expectation.
	Unexpected bool
	Detail     string
}

// ErrName is the program error name of the step, "ok" on success.
func (s StepResult) ErrName() string {
	return programerr.Name(s.Err)
}

// InvestorBalance is an investor's final position.
type InvestorBalance struct {
	Name        string
	Participant solana.PublicKey
	Purchased   uint64
	Claimed     uint64
	Tokens      uint64 // sale-token balance of the destination account
	Payment     uint64 // remaining payment-token balance
}

// Result is the outcome of a run.
type Result struct {
	RunID        string
	Program      solana.PublicKey
	Sale         solana.PublicKey
	Steps        []StepResult
	Investors    []InvestorBalance
	Raised       uint64 // payment units collected by the sale
	VaultBalance uint64
	Verification *verification.Report
}

// Unexpected counts steps whose outcome differed from their expectation.
func (r *Result) Unexpected() int {
	n := 0
	for _, s := range r.Steps {
		if s.Unexpected {
			n++
		}
	}
	return n
}

// run holds the addresses and bank of one scenario execution.
type run struct {
	sc    *Scenario
	seed  string
	bank  *ledger.Bank
	clock *ledger.ManualClock

	program, admin, sale                solana.PublicKey
	saleMint, paymentMint, saleVault    solana.PublicKey
	paymentDest                         solana.PublicKey
	saleAuth                            authority.Derived
	wallets, payAccounts, tokenAccounts map[string]solana.PublicKey
	participants                        map[string]authority.Derived
}

// Run executes sc. Program rejections are step outcomes; only infrastructure
// failures return an error.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Result, error) {
	formula, err := vesting.ParseFormula(sc.Formula)
	if err != nil {
		return nil, err
	}

	seed := r.opts.KeySeed
	x := &run{
		sc:            sc,
		seed:          seed,
		clock:         ledger.NewManualClock(sc.StartTime),
		program:       Key(seed, "program"),
		admin:         Key(seed, adminName),
		sale:          Key(seed, "sale"),
		saleMint:      Key(seed, "sale-mint"),
		paymentMint:   Key(seed, "payment-mint"),
		saleVault:     Key(seed, "sale-vault"),
		paymentDest:   Key(seed, "payment-destination"),
		wallets:       map[string]solana.PublicKey{adminName: Key(seed, adminName)},
		payAccounts:   make(map[string]solana.PublicKey),
		tokenAccounts: make(map[string]solana.PublicKey),
		participants:  make(map[string]authority.Derived),
	}
	x.bank = ledger.NewBank(r.opts.Accounts, ledger.Options{
		ProgramID:     x.program,
		Activities:    r.opts.Activities,
		Clock:         x.clock,
		RunID:         r.opts.RunID,
		AllowTGEUnset:    sc.AllowTGEUnset,
		UncappedDeposits: sc.UncappedDeposits,
		Formula:          formula,
		Observer:         r.opts.Observer,
		Logger:           r.logger,
	})

	r.logger.Printf("[simulation] Run %s: scenario %q, %d investors, %d steps", r.opts.RunID, sc.Name, len(sc.Investors), len(sc.Steps))
	if err := x.genesis(ctx); err != nil {
		return nil, fmt.Errorf("genesis: %w", err)
	}

	res := &Result{RunID: r.opts.RunID, Program: x.program, Sale: x.sale}

	first, err := r.execute(ctx, x, 0, Step{Action: instruction.OpInitializeSale.String()}, x.initialize)
	if err != nil {
		return nil, err
	}
	res.Steps = append(res.Steps, first)

	for i, st := range sc.Steps {
		sr, err := r.step(ctx, x, i+1, st)
		if err != nil {
			return nil, err
		}
		res.Steps = append(res.Steps, sr)
	}

	if err := r.summarize(ctx, x, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *Runner) step(ctx context.Context, x *run, index int, st Step) (StepResult, error) {
	switch st.Action {
	case ActionAdvance:
		now := x.clock.Advance(st.Seconds + st.Months*vesting.MonthSeconds)
		return StepResult{Index: index, Action: st.Action, Time: now}, nil
	case ActionSetTime:
		x.clock.Set(st.Time)
		return StepResult{Index: index, Action: st.Action, Time: st.Time}, nil
	case ActionDeposit:
		return r.execute(ctx, x, index, st, func(ctx context.Context) (*ledger.Receipt, error) {
			return x.deposit(ctx, st.Investor, st.Amount)
		})
	case ActionClaim:
		return r.execute(ctx, x, index, st, func(ctx context.Context) (*ledger.Receipt, error) {
			return x.claim(ctx, st.Investor)
		})
	case ActionSetTGE, ActionUnsetTGE:
		var at *int64
		if st.Action == ActionSetTGE {
			tge := st.TGE
			at = &tge
		}
		return r.execute(ctx, x, index, st, func(ctx context.Context) (*ledger.Receipt, error) {
			return x.setTGE(ctx, st.Signer, at)
		})
	default:
		return StepResult{}, fmt.Errorf("step %d: unknown action %q", index, st.Action)
	}
}

// execute runs one request and checks it against the step's expectation.
func (r *Runner) execute(ctx context.Context, x *run, index int, st Step, do func(context.Context) (*ledger.Receipt, error)) (StepResult, error) {
	now, _ := x.clock.Now(ctx)
	sr := StepResult{Index: index, Action: st.Action, Investor: st.Investor, Time: now}

	start := time.Now()
	receipt, err := do(ctx)
	if r.opts.Recorder != nil {
		var seq uint64
		if receipt != nil {
			seq = receipt.Sequence
		}
		r.opts.Recorder.RecordExecute(time.Since(start), seq)
	}
	if err != nil && programerr.Code(err) == 0 {
		return sr, fmt.Errorf("step %d (%s): %w", index, st.Action, err)
	}
	sr.Receipt = receipt
	sr.Err = err

	switch {
	case st.ExpectError != "" && sr.ErrName() != st.ExpectError:
		sr.Unexpected = true
		sr.Detail = fmt.Sprintf("expected %s, got %s", st.ExpectError, sr.ErrName())
	case st.ExpectError == "" && err != nil:
		sr.Unexpected = true
		sr.Detail = err.Error()
	case st.ExpectUnits != nil && (receipt == nil || receipt.Units != *st.ExpectUnits):
		var got uint64
		if receipt != nil {
			got = receipt.Units
		}
		sr.Unexpected = true
		sr.Detail = fmt.Sprintf("expected %d units, got %d", *st.ExpectUnits, got)
	case err != nil:
		sr.Detail = err.Error()
	}

	if sr.Unexpected {
		r.logger.Printf("[simulation] Step %d %s %s: UNEXPECTED %s", index, st.Action, st.Investor, sr.Detail)
	}
	return sr, nil
}

func (r *Runner) summarize(ctx context.Context, x *run, res *Result) error {
	var err error
	if res.Raised, err = x.bank.TokenBalance(ctx, x.paymentDest); err != nil {
		return err
	}
	if res.VaultBalance, err = x.bank.TokenBalance(ctx, x.saleVault); err != nil {
		return err
	}

	for _, inv := range x.sc.Investors {
		b := InvestorBalance{Name: inv.Name, Participant: x.participants[inv.Name].Address}
		if b.Tokens, err = x.bank.TokenBalance(ctx, x.tokenAccounts[inv.Name]); err != nil {
			return err
		}
		if b.Payment, err = x.bank.TokenBalance(ctx, x.payAccounts[inv.Name]); err != nil {
			return err
		}
		if part, err := x.bank.Participant(ctx, b.Participant); err == nil {
			b.Purchased, b.Claimed = part.Purchased, part.Claimed
		}
		res.Investors = append(res.Investors, b)
	}

	if _, err := x.bank.Sale(ctx, x.sale); err != nil {
		// The sale never initialized; there is nothing to verify.
		return nil
	}
	v := verification.NewVerifier(x.program, r.opts.Accounts, r.opts.Activities)
	if x.sc.UncappedDeposits {
		v = v.WithUncappedDeposits()
	}
	if res.Verification, err = v.VerifySale(ctx, x.sale); err != nil {
		return fmt.Errorf("verify sale: %w", err)
	}
	return nil
}

// genesis creates wallets, mints, token accounts and sale storage.
func (x *run) genesis(ctx context.Context) error {
	var err error
	if x.saleAuth, err = authority.SaleAuthority(x.program, x.sale); err != nil {
		return err
	}

	vault := x.sc.Sale.VaultAmount
	if vault == 0 {
		vault = x.sc.Sale.TotalAmount
	}
	setup := []func() error{
		func() error { return x.bank.Fund(ctx, x.admin, walletLamports) },
		func() error { return x.bank.CreateMint(ctx, x.saleMint, x.sc.Sale.SaleDecimals, x.admin) },
		func() error { return x.bank.CreateMint(ctx, x.paymentMint, x.sc.Sale.PaymentDecimals, x.admin) },
		func() error {
			return x.bank.CreateTokenAccount(ctx, x.saleVault, x.saleMint, x.saleAuth.Address, vault)
		},
		func() error { return x.bank.CreateTokenAccount(ctx, x.paymentDest, x.paymentMint, x.admin, 0) },
		func() error { return x.bank.CreateProgramAccount(ctx, x.sale, domain.SaleSize) },
	}
	for _, f := range setup {
		if err := f(); err != nil {
			return err
		}
	}

	for _, inv := range x.sc.Investors {
		wallet := Key(x.seed, inv.Name)
		pay := Key(x.seed, inv.Name+"/payment")
		tokens := Key(x.seed, inv.Name+"/tokens")
		part, err := authority.ParticipantAddress(x.program, x.sale, wallet)
		if err != nil {
			return err
		}
		x.wallets[inv.Name] = wallet
		x.payAccounts[inv.Name] = pay
		x.tokenAccounts[inv.Name] = tokens
		x.participants[inv.Name] = part

		if err := x.bank.Fund(ctx, wallet, walletLamports); err != nil {
			return err
		}
		if err := x.bank.CreateTokenAccount(ctx, pay, x.paymentMint, wallet, inv.Payment); err != nil {
			return err
		}
		if err := x.bank.CreateTokenAccount(ctx, tokens, x.saleMint, wallet, 0); err != nil {
			return err
		}
	}
	return nil
}

func (x *run) exec(ctx context.Context, ix instruction.Instruction, metas []instruction.AccountMeta) (*ledger.Receipt, error) {
	return x.bank.Execute(ctx, ledger.Transaction{Instruction: ix, Accounts: metas})
}

func (x *run) initialize(ctx context.Context) (*ledger.Receipt, error) {
	s := x.sc.Sale
	return x.exec(ctx, instruction.InitializeSale{
		ExchangeRate:   s.ExchangeRate,
		SaleStart:      s.SaleStart,
		SaleEnd:        s.SaleEnd,
		UpfrontPercent: s.UpfrontPercent,
		VestingMonths:  s.VestingMonths,
		MinDeposit:     s.MinDeposit,
		TotalAmount:    s.TotalAmount,
	}, instruction.InitializeSaleKeys{
		Payer:              x.admin,
		Sale:               x.sale,
		SaleVault:          x.saleVault,
		SaleMint:           x.saleMint,
		PaymentMint:        x.paymentMint,
		PaymentDestination: x.paymentDest,
	}.Metas())
}

func (x *run) deposit(ctx context.Context, name string, amount uint64) (*ledger.Receipt, error) {
	wallet := x.wallets[name]
	return x.exec(ctx, instruction.Deposit{Amount: amount}, instruction.DepositKeys{
		Payer:              wallet,
		PaymentSource:      x.payAccounts[name],
		Sale:               x.sale,
		PaymentDestination: x.paymentDest,
		TransferAuthority:  wallet,
		Participant:        x.participants[name].Address,
	}.Metas())
}

func (x *run) claim(ctx context.Context, name string) (*ledger.Receipt, error) {
	return x.exec(ctx, instruction.Claim{}, instruction.ClaimKeys{
		Payer:         x.wallets[name],
		Sale:          x.sale,
		SaleMint:      x.saleMint,
		SaleAuthority: x.saleAuth.Address,
		SaleVault:     x.saleVault,
		Participant:   x.participants[name].Address,
		Destination:   x.tokenAccounts[name],
	}.Metas())
}

func (x *run) setTGE(ctx context.Context, signer string, at *int64) (*ledger.Receipt, error) {
	if signer == "" {
		signer = adminName
	}
	return x.exec(ctx, instruction.SetTGE{TGE: at}, instruction.SetTGEKeys{
		Admin:     x.wallets[signer],
		Sale:      x.sale,
		SaleMint:  x.saleMint,
		SaleVault: x.saleVault,
	}.Metas())
}
