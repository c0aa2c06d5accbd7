// Package simulation runs scripted token sales against an in-process ledger.
// A scenario describes the sale, its investors and a timeline of steps; the
// runner executes every step as a real request and reports each outcome.
package simulation

import (
	"crypto/sha256"
	"fmt"

	"github.com/BurntSushi/toml"

	"solana-token-sale/internal/solana"
	"solana-token-sale/internal/vesting"
)

// Step actions.
const (
	ActionDeposit  = "deposit"
	ActionClaim    = "claim"
	ActionSetTGE   = "set_tge"
	ActionUnsetTGE = "unset_tge"
	ActionAdvance  = "advance"
	ActionSetTime  = "set_time"
)

// Scenario is a scripted sale.
type Scenario struct {
	Name             string `toml:"name"`
	StartTime        int64  `toml:"start_time"`
	Formula          string `toml:"formula"`
	AllowTGEUnset    bool   `toml:"allow_tge_unset"`
	UncappedDeposits bool   `toml:"uncapped_deposits"`

	Sale      SaleSpec       `toml:"sale"`
	Investors []InvestorSpec `toml:"investors"`
	Steps     []Step         `toml:"steps"`
}

// SaleSpec holds the InitializeSale arguments and the token setup.
type SaleSpec struct {
	ExchangeRate    uint64 `toml:"exchange_rate"`
	SaleStart       int64  `toml:"sale_start"`
	SaleEnd         int64  `toml:"sale_end"`
	UpfrontPercent  uint64 `toml:"upfront_percent"`
	VestingMonths   uint64 `toml:"vesting_months"`
	MinDeposit      uint64 `toml:"min_deposit"`
	TotalAmount     uint64 `toml:"total_amount"`
	VaultAmount     uint64 `toml:"vault_amount"` // defaults to TotalAmount
	SaleDecimals    uint8  `toml:"sale_decimals"`
	PaymentDecimals uint8  `toml:"payment_decimals"`
}

// InvestorSpec names an investor and their starting payment-token balance.
type InvestorSpec struct {
	Name    string `toml:"name"`
	Payment uint64 `toml:"payment"`
}

// Step is one timeline entry.
type Step struct {
	Action   string `toml:"action"`
	Investor string `toml:"investor"`
	Amount   uint64 `toml:"amount"`
	TGE      int64  `toml:"tge"`
	Seconds  int64  `toml:"seconds"`
	Months   int64  `toml:"months"`
	Time     int64  `toml:"time"`
	// Signer overrides the set_tge signer, which defaults to the admin.
	Signer string `toml:"signer"`

	// ExpectError is the error name the step must fail with, e.g. "sell_ended".
	ExpectError string `toml:"expect_error"`
	// ExpectUnits, when set, is the number of sale-token units the step must move.
	ExpectUnits *uint64 `toml:"expect_units"`
}

// LoadScenario reads a TOML scenario file.
func LoadScenario(path string) (*Scenario, error) {
	var s Scenario
	if _, err := toml.DecodeFile(path, &s); err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	return &s, s.Validate()
}

// ParseScenario decodes a TOML scenario document.
func ParseScenario(doc string) (*Scenario, error) {
	var s Scenario
	if _, err := toml.Decode(doc, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	return &s, s.Validate()
}

// Validate checks the scenario is runnable. Sale parameters are left to the
// program so that scenarios can script rejected configurations.
func (s *Scenario) Validate() error {
	if _, err := vesting.ParseFormula(s.Formula); err != nil {
		return err
	}
	investors := make(map[string]bool, len(s.Investors))
	for _, inv := range s.Investors {
		if inv.Name == "" {
			return fmt.Errorf("investor without name")
		}
		if inv.Name == adminName || investors[inv.Name] {
			return fmt.Errorf("duplicate investor %q", inv.Name)
		}
		investors[inv.Name] = true
	}

	for i, st := range s.Steps {
		switch st.Action {
		case ActionDeposit, ActionClaim:
			if !investors[st.Investor] {
				return fmt.Errorf("step %d: unknown investor %q", i+1, st.Investor)
			}
		case ActionSetTGE, ActionUnsetTGE:
			if st.Signer != "" && st.Signer != adminName && !investors[st.Signer] {
				return fmt.Errorf("step %d: unknown signer %q", i+1, st.Signer)
			}
		case ActionAdvance:
			if st.Seconds < 0 || st.Months < 0 {
				return fmt.Errorf("step %d: advance must move forward", i+1)
			}
		case ActionSetTime:
		default:
			return fmt.Errorf("step %d: unknown action %q", i+1, st.Action)
		}
	}
	return nil
}

const adminName = "admin"

// Key derives the address used for a named scenario entity. seed keeps runs
// that share one account store apart.
func Key(seed, name string) solana.PublicKey {
	return solana.PublicKey(sha256.Sum256([]byte("tokensale/simulation/" + seed + "/" + name)))
}
