package storage

import (
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-cpamm/pkg/types"
)

type AccountModel struct {
	ID         string    `json:"id" bson:"_id,omitempty" db:"id"`
	Pubkey     string    `json:"pubkey" bson:"pubkey" db:"pubkey"`
	Lamports   uint64    `json:"lamports" bson:"lamports" db:"lamports"`
	Data       []byte    `json:"data" bson:"data" db:"data"`
	Owner      string    `json:"owner" bson:"owner" db:"owner"`
	Executable bool      `json:"executable" bson:"executable" db:"executable"`
	RentEpoch  uint64    `json:"rent_epoch" bson:"rent_epoch" db:"rent_epoch"`
	Slot       uint64    `json:"slot" bson:"slot" db:"slot"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updated_at" db:"updated_at"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at" db:"created_at"`
}

// OperationModel is one journal entry: a pool call and what it moved.
type OperationModel struct {
	ID            string    `json:"id" bson:"_id,omitempty" db:"id"`
	ProgramID     string    `json:"program_id" bson:"program_id" db:"program_id"`
	Tag           string    `json:"tag" bson:"tag" db:"tag"`
	Pool          string    `json:"pool" bson:"pool" db:"pool"`
	User          string    `json:"user" bson:"user" db:"user_key"`
	Success       bool      `json:"success" bson:"success" db:"success"`
	ErrorCode     string    `json:"error_code,omitempty" bson:"error_code,omitempty" db:"error_code"`
	ErrorMessage  string    `json:"error_message,omitempty" bson:"error_message,omitempty" db:"error_message"`
	AmountX       uint64    `json:"amount_x" bson:"amount_x" db:"amount_x"`
	AmountY       uint64    `json:"amount_y" bson:"amount_y" db:"amount_y"`
	Shares        uint64    `json:"shares" bson:"shares" db:"shares"`
	AmountIn      uint64    `json:"amount_in" bson:"amount_in" db:"amount_in"`
	AmountOut     uint64    `json:"amount_out" bson:"amount_out" db:"amount_out"`
	Slot          uint64    `json:"slot" bson:"slot" db:"slot"`
	UnixTimestamp int64     `json:"unix_timestamp" bson:"unix_timestamp" db:"unix_timestamp"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at" db:"created_at"`
}

func AccountToModel(pubkey types.Pubkey, account *types.Account, slot uint64) *AccountModel {
	now := time.Now()
	return &AccountModel{
		ID:         pubkey.String(),
		Pubkey:     pubkey.String(),
		Lamports:   account.Lamports,
		Data:       account.Data,
		Owner:      account.Owner.String(),
		Executable: account.Executable,
		RentEpoch:  account.RentEpoch,
		Slot:       slot,
		UpdatedAt:  now,
		CreatedAt:  now,
	}
}

// ToAccount converts the snapshot back into a ledger account.
func (m *AccountModel) ToAccount() (types.Pubkey, *types.Account, error) {
	pubkey, err := solana.PublicKeyFromBase58(m.Pubkey)
	if err != nil {
		return types.Pubkey{}, nil, fmt.Errorf("account %q: %w", m.Pubkey, err)
	}
	owner, err := solana.PublicKeyFromBase58(m.Owner)
	if err != nil {
		return types.Pubkey{}, nil, fmt.Errorf("owner of %s: %w", m.Pubkey, err)
	}
	return pubkey, &types.Account{
		Lamports:   m.Lamports,
		Data:       append([]byte(nil), m.Data...),
		Owner:      owner,
		Executable: m.Executable,
		RentEpoch:  m.RentEpoch,
	}, nil
}
