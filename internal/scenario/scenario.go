// Package scenario replays YAML-described pool sessions against an executor.
//
// A scenario declares mints, funded users, pools and an ordered list of steps.
// Each step names the outcome it expects: ok, or the kind of error the program
// should reject it with. Running a scenario produces a Report with the result
// of every step and the final balances, reserves and share supply.
package scenario

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lugondev/go-cpamm/internal/pool"
)

// Step operations.
const (
	OpInitialize = "initialize"
	OpDeposit    = "deposit"
	OpWithdraw   = "withdraw"
	OpSwap       = "swap"
	OpClock      = "clock"
	OpSetState   = "set_state"
)

// Expected outcomes. Everything but ExpectOK names an error kind.
const (
	ExpectOK         = "ok"
	ExpectStructural = "structural"
	ExpectLifecycle  = "lifecycle"
	ExpectArithmetic = "arithmetic"
	ExpectSlippage   = "slippage"
	ExpectRuntime    = "runtime"
)

// Scenario is a complete replayable session.
type Scenario struct {
	Name  string `yaml:"name"`
	Mints []Mint `yaml:"mints"`
	Users []User `yaml:"users"`
	Pools []Pool `yaml:"pools"`
	Steps []Step `yaml:"steps"`
}

// Mint declares a token.
type Mint struct {
	Name     string `yaml:"name"`
	Decimals uint8  `yaml:"decimals"`
}

// User declares a participant and the balances it starts with, keyed by mint name.
type User struct {
	Name     string            `yaml:"name"`
	Balances map[string]uint64 `yaml:"balances"`
}

// Pool declares a pool. It exists on the ledger once an initialize step runs.
type Pool struct {
	Name   string `yaml:"name"`
	Seed   uint64 `yaml:"seed"`
	MintX  string `yaml:"mint_x"`
	MintY  string `yaml:"mint_y"`
	FeeBps uint16 `yaml:"fee_bps"`
}

// Step is one operation. Bounds are maxima for a deposit and minima for a withdrawal.
type Step struct {
	Op     string `yaml:"op"`
	Pool   string `yaml:"pool"`
	User   string `yaml:"user"`
	Amount uint64 `yaml:"amount"`
	BoundX uint64 `yaml:"bound_x"`
	BoundY uint64 `yaml:"bound_y"`
	// Side is the input asset of a swap, x or y.
	Side       string `yaml:"side"`
	MinOut     uint64 `yaml:"min_out"`
	Expiration int64  `yaml:"expiration"`

	// Slot and UnixTimestamp set the ledger clock in a clock step.
	Slot          uint64 `yaml:"slot"`
	UnixTimestamp int64  `yaml:"unix_timestamp"`

	// State is the lifecycle state applied by a set_state step.
	State string `yaml:"state"`

	Expect string `yaml:"expect"`
	Want   *Want  `yaml:"want"`
}

// Want lists amounts a successful step must have moved. Unset fields are not checked.
type Want struct {
	AmountX   *uint64 `yaml:"amount_x"`
	AmountY   *uint64 `yaml:"amount_y"`
	Shares    *uint64 `yaml:"shares"`
	AmountIn  *uint64 `yaml:"amount_in"`
	AmountOut *uint64 `yaml:"amount_out"`
}

// Load reads and validates the scenario file at path.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a scenario document. Unknown fields are rejected.
func Parse(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Scenario
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks that every reference resolves and every step is well formed.
func (s *Scenario) Validate() error {
	mints := make(map[string]bool, len(s.Mints))
	for _, m := range s.Mints {
		if m.Name == "" || mints[m.Name] {
			return fmt.Errorf("mint name %q is empty or duplicated", m.Name)
		}
		mints[m.Name] = true
	}

	users := make(map[string]bool, len(s.Users))
	for _, u := range s.Users {
		if u.Name == "" || users[u.Name] {
			return fmt.Errorf("user name %q is empty or duplicated", u.Name)
		}
		for mint := range u.Balances {
			if !mints[mint] {
				return fmt.Errorf("user %s holds unknown mint %q", u.Name, mint)
			}
		}
		users[u.Name] = true
	}

	pools := make(map[string]bool, len(s.Pools))
	for _, p := range s.Pools {
		if p.Name == "" || pools[p.Name] {
			return fmt.Errorf("pool name %q is empty or duplicated", p.Name)
		}
		if !mints[p.MintX] || !mints[p.MintY] {
			return fmt.Errorf("pool %s references unknown mints %q/%q", p.Name, p.MintX, p.MintY)
		}
		pools[p.Name] = true
	}

	for i := range s.Steps {
		step := &s.Steps[i]
		if err := step.validate(pools, users); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
		}
	}
	return nil
}

func (st *Step) validate(pools, users map[string]bool) error {
	switch st.Expect {
	case "":
		st.Expect = ExpectOK
	case ExpectOK, ExpectStructural, ExpectLifecycle, ExpectArithmetic, ExpectSlippage, ExpectRuntime:
	default:
		return fmt.Errorf("unknown expectation %q", st.Expect)
	}

	switch st.Op {
	case OpClock:
		return nil
	case OpInitialize:
	case OpSetState:
		if _, err := pool.ParseState(st.State); err != nil {
			return err
		}
	case OpDeposit, OpWithdraw:
		if !users[st.User] {
			return fmt.Errorf("unknown user %q", st.User)
		}
	case OpSwap:
		if !users[st.User] {
			return fmt.Errorf("unknown user %q", st.User)
		}
		if st.Side != "x" && st.Side != "y" {
			return fmt.Errorf("swap side must be x or y, got %q", st.Side)
		}
	default:
		return fmt.Errorf("unknown operation %q", st.Op)
	}

	if !pools[st.Pool] {
		return fmt.Errorf("unknown pool %q", st.Pool)
	}
	return nil
}
