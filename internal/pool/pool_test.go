package pool

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"

	cpammerrors "github.com/lugondev/go-cpamm/internal/errors"
	"github.com/lugondev/go-cpamm/internal/ledger"
)

var testProgramID = solana.PublicKeyFromBytes([]byte{
	0x0f, 0x1e, 0x6b, 0x14, 0x21, 0xc0, 0x4a, 0x07, 0x04, 0x31, 0x26, 0x5c, 0x19, 0xc5, 0xbb, 0xee,
	0x19, 0x92, 0xba, 0xe8, 0xaf, 0xd1, 0xcd, 0x07, 0x8e, 0xf8, 0xaf, 0x70, 0x47, 0xdc, 0x11, 0xf7,
})

func testRecord() *Record {
	return &Record{
		State:       StateInitialized,
		Seed:        0x0102030405060708,
		Authority:   solana.NewWallet().PublicKey(),
		MintX:       solana.NewWallet().PublicKey(),
		MintY:       solana.NewWallet().PublicKey(),
		FeeBps:      30,
		CustodyBump: 254,
	}
}

func TestRecordLayout(t *testing.T) {
	r := testRecord()
	data, err := r.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary() error: %v", err)
	}
	if len(data) != RecordLen {
		t.Fatalf("record is %d bytes, want %d", len(data), RecordLen)
	}

	if data[0] != byte(StateInitialized) {
		t.Errorf("state byte = %d", data[0])
	}
	if data[1] != 0x08 || data[8] != 0x01 {
		t.Errorf("seed is not little-endian: % x", data[1:9])
	}
	if !solana.PublicKeyFromBytes(data[9:41]).Equals(r.Authority) {
		t.Error("authority not at offset 9")
	}
	if !solana.PublicKeyFromBytes(data[41:73]).Equals(r.MintX) {
		t.Error("mint x not at offset 41")
	}
	if !solana.PublicKeyFromBytes(data[73:105]).Equals(r.MintY) {
		t.Error("mint y not at offset 73")
	}
	if data[105] != 30 || data[106] != 0 {
		t.Errorf("fee bytes = % x", data[105:107])
	}
	if data[107] != 254 {
		t.Errorf("bump byte = %d", data[107])
	}

	got, err := UnmarshalRecord(data)
	if err != nil {
		t.Fatalf("UnmarshalRecord() error: %v", err)
	}
	if *got != *r {
		t.Errorf("UnmarshalRecord() = %+v, want %+v", got, r)
	}
}

func TestUnmarshalRecordRejects(t *testing.T) {
	good, err := testRecord().MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary() error: %v", err)
	}

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"short", func(b []byte) []byte { return b[:RecordLen-1] }},
		{"long", func(b []byte) []byte { return append(b, 0) }},
		{"state out of range", func(b []byte) []byte { b[0] = 4; return b }},
		{"fee at bound", func(b []byte) []byte { b[105], b[106] = 0x10, 0x27; return b }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.mutate(append([]byte(nil), good...))
			if _, err := UnmarshalRecord(data); !errors.Is(err, cpammerrors.ErrInvalidAccountData) {
				t.Errorf("UnmarshalRecord() error = %v, want invalid account data", err)
			}
		})
	}
}

func TestRecordSetters(t *testing.T) {
	r := testRecord()
	if err := r.SetFee(MaxFeeBps); err == nil {
		t.Error("SetFee(10000) should fail")
	}
	if err := r.SetFee(9_999); err != nil || r.FeeBps != 9_999 {
		t.Errorf("SetFee(9999) = %v, fee %d", err, r.FeeBps)
	}
	if err := r.SetState(State(9)); err == nil {
		t.Error("SetState(9) should fail")
	}
	if err := r.SetState(StateWithdrawOnly); err != nil || r.State != StateWithdrawOnly {
		t.Errorf("SetState(WithdrawOnly) = %v, state %s", err, r.State)
	}

	r.Authority = solana.PublicKey{}
	if r.HasAuthority() {
		t.Error("zero authority should mean no authority")
	}
}

func TestStateGates(t *testing.T) {
	tests := []struct {
		state                   State
		deposit, swap, withdraw bool
	}{
		{StateUninitialized, false, false, true},
		{StateInitialized, true, true, true},
		{StateDisabled, false, false, false},
		{StateWithdrawOnly, false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			if tt.state.AllowsDeposit() != tt.deposit {
				t.Errorf("AllowsDeposit() = %v", !tt.deposit)
			}
			if tt.state.AllowsSwap() != tt.swap {
				t.Errorf("AllowsSwap() = %v", !tt.swap)
			}
			if tt.state.AllowsWithdraw() != tt.withdraw {
				t.Errorf("AllowsWithdraw() = %v", !tt.withdraw)
			}
		})
	}
}

func TestCustodyAuthority(t *testing.T) {
	r := testRecord()
	addr, bump, err := FindConfigAddress(testProgramID, r.Seed, r.MintX, r.MintY)
	if err != nil {
		t.Fatalf("FindConfigAddress() error: %v", err)
	}
	r.CustodyBump = bump

	custody, err := r.Custody(testProgramID)
	if err != nil {
		t.Fatalf("Custody() error: %v", err)
	}
	if !custody.Key().Equals(addr) {
		t.Fatalf("custody key %s, want %s", custody.Key(), addr)
	}

	l := ledger.New()
	ctx := context.Background()

	err = l.Execute(ctx, testProgramID, func(tx *ledger.Tx) error {
		return custody.Authorize(tx)
	})
	if err != nil {
		t.Errorf("Authorize() under owning program: %v", err)
	}

	err = l.Execute(ctx, testProgramID, func(tx *ledger.Tx) error {
		return tx.Invoke(solana.TokenProgramID, func() error {
			return custody.Authorize(tx)
		})
	})
	if err != nil {
		t.Errorf("Authorize() inside invocation: %v", err)
	}

	other := solana.NewWallet().PublicKey()
	err = l.Execute(ctx, other, func(tx *ledger.Tx) error {
		return custody.Authorize(tx)
	})
	if !errors.Is(err, cpammerrors.ErrMissingRequiredSignature) {
		t.Errorf("Authorize() under foreign program error = %v", err)
	}
}

func TestShareMintDerivation(t *testing.T) {
	config := solana.NewWallet().PublicKey()
	a, err := ShareMint(testProgramID, config)
	if err != nil {
		t.Fatalf("ShareMint() error: %v", err)
	}
	b, bump, err := FindShareMintAddress(testProgramID, config)
	if err != nil {
		t.Fatalf("FindShareMintAddress() error: %v", err)
	}
	if !a.Equals(b) {
		t.Errorf("ShareMint() = %s, want %s", a, b)
	}

	authority, err := NewCustodyAuthority(testProgramID, ShareMintSeeds(config), bump)
	if err != nil {
		t.Fatalf("NewCustodyAuthority() error: %v", err)
	}
	if !authority.Key().Equals(a) {
		t.Errorf("share mint signer %s, want %s", authority.Key(), a)
	}
}

func TestParseState(t *testing.T) {
	for s := StateUninitialized; s.Valid(); s++ {
		got, err := ParseState(s.String())
		if err != nil || got != s {
			t.Errorf("ParseState(%q) = %v, %v", s.String(), got, err)
		}
	}
	if _, err := ParseState("paused"); err == nil {
		t.Error("ParseState() should reject unknown names")
	}
}
