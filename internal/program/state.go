package program

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-cpamm/internal/instruction"
	"github.com/lugondev/go-cpamm/internal/pool"
	"github.com/lugondev/go-cpamm/pkg/types"
	"github.com/lugondev/go-cpamm/pkg/view"
)

// PoolState is a read-only snapshot of one pool.
type PoolState struct {
	Addresses *instruction.PoolAddresses `json:"addresses"`
	Record    *pool.Record               `json:"record"`
	ReserveX  uint64                     `json:"reserve_x"`
	ReserveY  uint64                     `json:"reserve_y"`
	Supply    uint64                     `json:"supply"`
}

// AccountSource looks up accounts by address. *ledger.Ledger satisfies it, as
// does an RPC snapshot.
type AccountSource interface {
	Account(key solana.PublicKey) (*types.Account, bool)
}

// LoadPoolState reads the pool whose config record lives at config.
func LoadPoolState(l AccountSource, programID, config solana.PublicKey) (*PoolState, error) {
	acct, ok := l.Account(config)
	if !ok {
		return nil, fmt.Errorf("pool %s not found", config)
	}
	if !acct.Owner.Equals(programID) {
		return nil, fmt.Errorf("account %s is not owned by %s", config, programID)
	}
	record, err := pool.UnmarshalRecord(acct.Data)
	if err != nil {
		return nil, err
	}

	addrs, err := instruction.DerivePool(programID, record.Seed, record.MintX, record.MintY)
	if err != nil {
		return nil, err
	}
	if !addrs.Config.Equals(config) {
		return nil, fmt.Errorf("pool %s does not match its derived address %s", config, addrs.Config)
	}

	state := &PoolState{Addresses: addrs, Record: record}
	if state.ReserveX, err = TokenBalance(l, addrs.VaultX); err != nil {
		return nil, err
	}
	if state.ReserveY, err = TokenBalance(l, addrs.VaultY); err != nil {
		return nil, err
	}
	mint, ok := l.Account(addrs.ShareMint)
	if !ok {
		return nil, fmt.Errorf("share mint %s not found", addrs.ShareMint)
	}
	if state.Supply, err = view.MintSupply(mint.Data); err != nil {
		return nil, err
	}
	return state, nil
}

// TokenBalance returns the amount held by the token account at key.
func TokenBalance(l AccountSource, key solana.PublicKey) (uint64, error) {
	acct, ok := l.Account(key)
	if !ok {
		return 0, fmt.Errorf("token account %s not found", key)
	}
	return view.TokenAccountAmount(acct.Data)
}
