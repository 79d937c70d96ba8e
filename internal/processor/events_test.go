package processor

import (
	"testing"

	"github.com/gagliardetto/solana-go"

	programlog "github.com/lugondev/go-cpamm/pkg/log"
)

func TestEventRoundTrip(t *testing.T) {
	pool := solana.NewWallet().PublicKey()
	user := solana.NewWallet().PublicKey()
	events := []any{
		&InitializeEvent{Pool: pool, MintX: user, MintY: pool, FeeBps: 30},
		&LiquidityEvent{Pool: pool, User: user, Deposit: true, AmountX: 1, AmountY: 2, Shares: 3},
		&SwapEvent{Pool: pool, User: user, IsX: true, AmountIn: 100, AmountOut: 90},
	}
	for _, ev := range events {
		data, err := EncodeEvent(ev)
		if err != nil {
			t.Fatalf("EncodeEvent(%T) error: %v", ev, err)
		}
		got, err := DecodeEvent(data)
		if err != nil {
			t.Fatalf("DecodeEvent(%T) error: %v", ev, err)
		}
		switch want := ev.(type) {
		case *InitializeEvent:
			if g, ok := got.(*InitializeEvent); !ok || *g != *want {
				t.Errorf("decoded %+v, want %+v", got, want)
			}
		case *LiquidityEvent:
			if g, ok := got.(*LiquidityEvent); !ok || *g != *want {
				t.Errorf("decoded %+v, want %+v", got, want)
			}
		case *SwapEvent:
			if g, ok := got.(*SwapEvent); !ok || *g != *want {
				t.Errorf("decoded %+v, want %+v", got, want)
			}
		}
	}

	if _, err := EncodeEvent(struct{}{}); err == nil {
		t.Error("EncodeEvent() should reject unknown types")
	}
	if _, err := DecodeEvent([]byte{1, 2}); err == nil {
		t.Error("DecodeEvent() should reject short payloads")
	}
	if _, err := DecodeEvent(make([]byte, 16)); err == nil {
		t.Error("DecodeEvent() should reject unknown discriminators")
	}
}

func TestSwapTranscript(t *testing.T) {
	h := newHarness(t, 30)
	if _, err := h.deposit(h.alice, 2_000_000, 1_000_000, 2_000_000); err != nil {
		t.Fatalf("deposit error: %v", err)
	}
	if _, err := h.swap(h.alice, true, 100_000, 1); err != nil {
		t.Fatalf("swap error: %v", err)
	}

	parser := programlog.NewParser()
	top := parser.FilterByInstructionPath(h.logs, programlog.InstructionPath{0})
	if len(top) != 2 || parser.Parse(top[0]).Message != "Instruction: Swap" {
		t.Fatalf("top-level lines = %v", top)
	}
	data := parser.ExtractProgramData(h.logs)
	if len(data) != 1 {
		t.Fatalf("events = %d", len(data))
	}
	ev, err := DecodeEvent(data[0])
	if err != nil {
		t.Fatalf("DecodeEvent() error: %v", err)
	}
	swap, ok := ev.(*SwapEvent)
	if !ok || swap.AmountOut != 181_322 || !swap.IsX || swap.User != h.alice.key {
		t.Errorf("event = %+v", ev)
	}

	transfers := parser.FilterByInstructionPath(h.logs, programlog.InstructionPath{0, 1})
	if len(transfers) != 1 || parser.Parse(transfers[0]).Message != "Instruction: Transfer" {
		t.Errorf("second transfer lines = %v", transfers)
	}
}

func TestFailedSwapTranscript(t *testing.T) {
	h := newHarness(t, 30)
	if _, err := h.deposit(h.alice, 2_000_000, 1_000_000, 2_000_000); err != nil {
		t.Fatalf("deposit error: %v", err)
	}
	if _, err := h.swap(h.alice, true, 100_000, 181_323); err == nil {
		t.Fatal("swap should fail")
	}
	parser := programlog.NewParser()
	last := parser.Parse(h.logs[len(h.logs)-1])
	if last.Type != programlog.LogTypeFailed || last.ProgramID != testProgramID.String() {
		t.Errorf("last line = %+v", last)
	}
	if len(parser.ExtractProgramData(h.logs)) != 0 {
		t.Error("failed swap should emit no event")
	}
}
