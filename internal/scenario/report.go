package scenario

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/lugondev/go-cpamm/internal/processor"
	"github.com/lugondev/go-cpamm/internal/program"
)

// Report is the result of one scenario run.
type Report struct {
	Name  string       `json:"name" yaml:"name"`
	Steps []StepResult `json:"steps" yaml:"steps"`
	Pools []PoolReport `json:"pools" yaml:"pools"`
	Users []UserReport `json:"users" yaml:"users"`
}

// StepResult is the outcome of one step.
type StepResult struct {
	Index   int               `json:"index" yaml:"index"`
	Op      string            `json:"op" yaml:"op"`
	Pool    string            `json:"pool,omitempty" yaml:"pool,omitempty"`
	User    string            `json:"user,omitempty" yaml:"user,omitempty"`
	Expect  string            `json:"expect" yaml:"expect"`
	Outcome string            `json:"outcome" yaml:"outcome"`
	Passed  bool              `json:"passed" yaml:"passed"`
	Amounts processor.Outcome `json:"amounts" yaml:"-"`
	Error   string            `json:"error,omitempty" yaml:"error,omitempty"`
}

// PoolReport is the final state of an initialized pool.
type PoolReport struct {
	Name     string `json:"name" yaml:"name"`
	Config   string `json:"config" yaml:"config"`
	State    string `json:"state" yaml:"state"`
	FeeBps   uint16 `json:"fee_bps" yaml:"fee_bps"`
	ReserveX uint64 `json:"reserve_x" yaml:"reserve_x"`
	ReserveY uint64 `json:"reserve_y" yaml:"reserve_y"`
	Supply   uint64 `json:"supply" yaml:"supply"`
}

// UserReport lists a user's final balances keyed by mint or pool share name.
type UserReport struct {
	Name     string            `json:"name" yaml:"name"`
	Balances map[string]uint64 `json:"balances" yaml:"balances"`
}

// Passed reports whether every step met its expectation.
func (r *Report) Passed() bool {
	for _, s := range r.Steps {
		if !s.Passed {
			return false
		}
	}
	return true
}

// Failures returns the steps that did not meet their expectation.
func (r *Report) Failures() []StepResult {
	var failed []StepResult
	for _, s := range r.Steps {
		if !s.Passed {
			failed = append(failed, s)
		}
	}
	return failed
}

// Pool returns the report of the named pool.
func (r *Report) Pool(name string) (PoolReport, bool) {
	for _, p := range r.Pools {
		if p.Name == name {
			return p, true
		}
	}
	return PoolReport{}, false
}

// Balance returns a user's final balance of asset, a mint name or "<pool>.shares".
func (r *Report) Balance(user, asset string) uint64 {
	for _, u := range r.Users {
		if u.Name == user {
			return u.Balances[asset]
		}
	}
	return 0
}

// WriteText renders the report as aligned tables.
func (r *Report) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Scenario: %s\n\n", r.Name)
	fmt.Fprintln(tw, "#\tOP\tPOOL\tUSER\tEXPECT\tOUTCOME\tRESULT\tDETAIL")
	for _, s := range r.Steps {
		status := "PASS"
		if !s.Passed {
			status = "FAIL"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			s.Index, s.Op, s.Pool, s.User, s.Expect, s.Outcome, status, stepDetail(s))
	}

	fmt.Fprintln(tw, "\nPOOL\tSTATE\tFEE\tRESERVE X\tRESERVE Y\tSUPPLY")
	for _, p := range r.Pools {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\n", p.Name, p.State, p.FeeBps, p.ReserveX, p.ReserveY, p.Supply)
	}

	fmt.Fprintln(tw, "\nUSER\tASSET\tBALANCE")
	for _, u := range r.Users {
		assets := make([]string, 0, len(u.Balances))
		for asset := range u.Balances {
			assets = append(assets, asset)
		}
		sort.Strings(assets)
		for _, asset := range assets {
			fmt.Fprintf(tw, "%s\t%s\t%d\n", u.Name, asset, u.Balances[asset])
		}
	}
	return tw.Flush()
}

func stepDetail(s StepResult) string {
	if s.Error != "" {
		return s.Error
	}
	a := s.Amounts
	switch s.Op {
	case OpDeposit, OpWithdraw:
		return fmt.Sprintf("x=%d y=%d shares=%d", a.AmountX, a.AmountY, a.Shares)
	case OpSwap:
		return fmt.Sprintf("in=%d out=%d", a.AmountIn, a.AmountOut)
	}
	return ""
}

// snapshot fills the pool and user sections of report from the ledger.
func (r *Runner) snapshot(sess *session, s *Scenario, report *Report) error {
	l := r.exec.Ledger()

	for _, def := range s.Pools {
		h := sess.pools[def.Name]
		if _, ok := l.Account(h.addrs.Config); !ok {
			continue
		}
		state, err := program.LoadPoolState(l, r.exec.ProgramID(), h.addrs.Config)
		if err != nil {
			return fmt.Errorf("pool %s: %w", def.Name, err)
		}
		report.Pools = append(report.Pools, PoolReport{
			Name:     def.Name,
			Config:   h.addrs.Config.String(),
			State:    state.Record.State.String(),
			FeeBps:   state.Record.FeeBps,
			ReserveX: state.ReserveX,
			ReserveY: state.ReserveY,
			Supply:   state.Supply,
		})
	}

	names := make(map[string]string, len(sess.mints)+len(sess.pools))
	for name, mint := range sess.mints {
		names[mint.String()] = name
	}
	for name, h := range sess.pools {
		names[h.addrs.ShareMint.String()] = name + ".shares"
	}

	for _, u := range s.Users {
		p := sess.users[u.Name]
		ur := UserReport{Name: u.Name, Balances: make(map[string]uint64, len(p.accounts))}
		for mint, account := range p.accounts {
			balance, err := program.TokenBalance(l, account)
			if err != nil {
				return fmt.Errorf("user %s: %w", u.Name, err)
			}
			ur.Balances[names[mint.String()]] = balance
		}
		report.Users = append(report.Users, ur)
	}
	return nil
}
