package account

import (
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-cpamm/internal/pool"
	"github.com/lugondev/go-cpamm/internal/token"
	"github.com/lugondev/go-cpamm/pkg/types"
	"github.com/lugondev/go-cpamm/pkg/view"
)

func TestNewDecoder(t *testing.T) {
	programID := solana.NewWallet().PublicKey()
	authority := solana.NewWallet().PublicKey()

	record := &pool.Record{
		State:  pool.StateInitialized,
		Seed:   3,
		MintX:  solana.NewWallet().PublicKey(),
		MintY:  solana.NewWallet().PublicKey(),
		FeeBps: 30,
	}
	recordData, err := record.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary() error: %v", err)
	}
	mintData, err := (&view.Mint{MintAuthority: &authority, Supply: 42, Decimals: 6, IsInitialized: true}).Encode()
	if err != nil {
		t.Fatalf("Mint.Encode() error: %v", err)
	}
	accountData, err := (&view.TokenAccount{Mint: record.MintX, Owner: authority, Amount: 7, State: view.AccountStateInitialized}).Encode()
	if err != nil {
		t.Fatalf("TokenAccount.Encode() error: %v", err)
	}

	tests := []struct {
		name    string
		account *types.Account
		want    Kind
	}{
		{"pool", &types.Account{Owner: programID, Data: recordData, Lamports: 5}, KindPool},
		{"mint", &types.Account{Owner: token.ProgramID, Data: mintData}, KindMint},
		{"token account", &types.Account{Owner: token.ProgramID, Data: accountData}, KindTokenAccount},
		{"foreign owner", &types.Account{Owner: solana.NewWallet().PublicKey(), Data: recordData}, ""},
		{"bad length", &types.Account{Owner: token.ProgramID, Data: make([]byte, 10)}, ""},
		{"nil", nil, ""},
	}

	d := NewDecoder(programID)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.DecodeAccount(tt.account)
			if tt.want == "" {
				if got != nil {
					t.Fatalf("DecodeAccount() = %+v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatal("DecodeAccount() = nil")
			}
			if got.Kind != tt.want {
				t.Errorf("Kind = %s, want %s", got.Kind, tt.want)
			}
			if got.Lamports != tt.account.Lamports {
				t.Errorf("Lamports = %d", got.Lamports)
			}
		})
	}
}

func TestPoolDecoder(t *testing.T) {
	programID := solana.NewWallet().PublicKey()
	record := &pool.Record{State: pool.StateInitialized, Seed: 9, FeeBps: 25}
	data, err := record.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary() error: %v", err)
	}

	got := NewPoolDecoder(programID).DecodeAccount(&types.Account{Owner: programID, Data: data})
	if got == nil {
		t.Fatal("DecodeAccount() = nil")
	}
	if got.Data.Seed != 9 || got.Data.FeeBps != 25 {
		t.Errorf("record = %+v", got.Data)
	}
}

func TestCompositeAccountDecoderOrder(t *testing.T) {
	first := AccountDecoderFunc[string](func(*types.Account) *DecodedAccount[string] {
		return &DecodedAccount[string]{Data: "first"}
	})
	second := AccountDecoderFunc[string](func(*types.Account) *DecodedAccount[string] {
		return &DecodedAccount[string]{Data: "second"}
	})

	c := NewCompositeAccountDecoder[string]()
	if got := c.DecodeAccount(&types.Account{}); got != nil {
		t.Errorf("empty composite decoded %+v", got)
	}
	c.AddDecoder(first)
	c.AddDecoder(second)
	if got := c.DecodeAccount(&types.Account{}); got == nil || got.Data != "first" {
		t.Errorf("DecodeAccount() = %+v, want first", got)
	}
}
