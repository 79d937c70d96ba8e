// Package solana reads pool state from a Solana RPC endpoint and manages
// keypair files.
package solana

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/lugondev/go-cpamm/internal/instruction"
	"github.com/lugondev/go-cpamm/internal/pool"
	"github.com/lugondev/go-cpamm/internal/program"
	"github.com/lugondev/go-cpamm/pkg/types"
)

// RPC is the subset of the RPC client the Client uses.
type RPC interface {
	GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error)
	GetMultipleAccountsWithOpts(ctx context.Context, accounts []solana.PublicKey, opts *rpc.GetMultipleAccountsOpts) (*rpc.GetMultipleAccountsResult, error)
}

// Client wraps the Solana RPC client
type Client struct {
	rpc        RPC
	commitment rpc.CommitmentType
}

// NewClient creates a new Solana client
func NewClient(endpoint string) *Client {
	return NewClientWithRPC(rpc.New(endpoint))
}

// NewClientWithRPC creates a client over an existing RPC implementation.
func NewClientWithRPC(r RPC) *Client {
	return &Client{
		rpc:        r,
		commitment: rpc.CommitmentConfirmed,
	}
}

// GetBalance returns the balance of an account in lamports
func (c *Client) GetBalance(ctx context.Context, pubkey solana.PublicKey) (uint64, error) {
	result, err := c.rpc.GetBalance(ctx, pubkey, c.commitment)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return result.Value, nil
}

// GetBalanceSOL returns the balance in SOL (not lamports)
func (c *Client) GetBalanceSOL(ctx context.Context, pubkey solana.PublicKey) (float64, error) {
	lamports, err := c.GetBalance(ctx, pubkey)
	if err != nil {
		return 0, err
	}
	return types.LamportsToSOL(lamports), nil
}

// GetAccounts fetches keys in one call. Missing accounts are absent from the
// returned snapshot.
func (c *Client) GetAccounts(ctx context.Context, keys ...solana.PublicKey) (Snapshot, error) {
	result, err := c.rpc.GetMultipleAccountsWithOpts(ctx, keys, &rpc.GetMultipleAccountsOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: c.commitment,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get accounts: %w", err)
	}
	if result == nil || len(result.Value) != len(keys) {
		return nil, fmt.Errorf("failed to get accounts: expected %d results", len(keys))
	}

	snapshot := make(Snapshot, len(keys))
	for i, acc := range result.Value {
		if acc == nil {
			continue
		}
		snapshot[keys[i]] = convertAccount(acc)
	}
	return snapshot, nil
}

// GetAccount fetches a single account.
func (c *Client) GetAccount(ctx context.Context, key solana.PublicKey) (*types.Account, error) {
	snapshot, err := c.GetAccounts(ctx, key)
	if err != nil {
		return nil, err
	}
	acc, ok := snapshot.Account(key)
	if !ok {
		return nil, fmt.Errorf("account %s not found", key)
	}
	return acc, nil
}

// FetchPool reads the pool at config together with its vaults and share mint.
func (c *Client) FetchPool(ctx context.Context, programID, config solana.PublicKey) (*program.PoolState, error) {
	acc, err := c.GetAccount(ctx, config)
	if err != nil {
		return nil, err
	}
	record, err := pool.UnmarshalRecord(acc.Data)
	if err != nil {
		return nil, err
	}
	addrs, err := instruction.DerivePool(programID, record.Seed, record.MintX, record.MintY)
	if err != nil {
		return nil, err
	}

	snapshot, err := c.GetAccounts(ctx, addrs.VaultX, addrs.VaultY, addrs.ShareMint)
	if err != nil {
		return nil, err
	}
	snapshot[config] = acc
	return program.LoadPoolState(snapshot, programID, config)
}

// Snapshot is a set of accounts fetched at one point in time.
type Snapshot map[solana.PublicKey]*types.Account

// Account implements program.AccountSource.
func (s Snapshot) Account(key solana.PublicKey) (*types.Account, bool) {
	acc, ok := s[key]
	return acc, ok
}

func convertAccount(acc *rpc.Account) *types.Account {
	var rentEpoch uint64
	if acc.RentEpoch != nil {
		rentEpoch = acc.RentEpoch.Uint64()
	}

	var data []byte
	if acc.Data != nil {
		data = acc.Data.GetBinary()
	}

	return &types.Account{
		Lamports:   acc.Lamports,
		Data:       data,
		Owner:      acc.Owner,
		Executable: acc.Executable,
		RentEpoch:  rentEpoch,
	}
}
