package curve

import (
	"errors"
	"math"
	"testing"
)

func TestSwapOutput(t *testing.T) {
	tests := []struct {
		name       string
		reserveIn  uint64
		reserveOut uint64
		amountIn   uint64
		fee        uint16
		want       uint64
		wantErr    error
	}{
		{"fee 30bps", 1_000_000, 2_000_000, 100_000, 30, 181_322, nil},
		{"no fee", 1_000_000, 2_000_000, 100_000, 0, 181_818, nil},
		{"tiny input rounds to zero", 1_000_000, 1_000_000, 1, 30, 0, nil},
		{"empty input reserve", 0, 2_000_000, 100, 30, 0, ErrZeroBalance},
		{"empty output reserve", 1_000_000, 0, 100, 30, 0, ErrZeroBalance},
		{"fee at denominator", 1_000_000, 2_000_000, 100, 10_000, 0, ErrOverflow},
		{"max reserves", math.MaxUint64, math.MaxUint64, math.MaxUint64, 0, math.MaxUint64 / 2, nil},
		{"never drains output", 1, 1, math.MaxUint64, 0, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SwapOutput(tt.reserveIn, tt.reserveOut, tt.amountIn, tt.fee)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("SwapOutput() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("SwapOutput() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("SwapOutput() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSwapOutputFeeReducesOutput(t *testing.T) {
	withFee, err := SwapOutput(1_000_000, 2_000_000, 100_000, 30)
	if err != nil {
		t.Fatalf("SwapOutput() error: %v", err)
	}
	noFee, err := SwapOutput(1_000_000, 2_000_000, 100_000, 0)
	if err != nil {
		t.Fatalf("SwapOutput() error: %v", err)
	}
	if withFee == 0 || withFee >= 2_000_000 {
		t.Errorf("output %d outside (0, reserveOut)", withFee)
	}
	if withFee >= noFee {
		t.Errorf("output with fee %d should be below fee-free output %d", withFee, noFee)
	}
}

func TestSwapOutputMonotone(t *testing.T) {
	const x, y = 5_000_000, 7_000_000
	var prev uint64
	for in := uint64(1); in <= 2_000_000; in += 9_973 {
		out, err := SwapOutput(x, y, in, 25)
		if err != nil {
			t.Fatalf("SwapOutput(%d) error: %v", in, err)
		}
		if out < prev {
			t.Fatalf("output decreased: in=%d out=%d prev=%d", in, out, prev)
		}
		if out >= y {
			t.Fatalf("output %d drained reserve %d", out, y)
		}
		prev = out
	}
}

func TestSwapRoundTripNeverGains(t *testing.T) {
	reserves := [][2]uint64{{1_000, 1_000}, {1_000_000, 2_000_000}, {7, 9_999_999}, {123_456_789, 987_654}}
	amounts := []uint64{1, 10, 999, 50_000, 1_000_000}
	fees := []uint16{0, 1, 30, 100, 9_999}

	for _, r := range reserves {
		for _, in := range amounts {
			for _, fee := range fees {
				x, y := r[0], r[1]
				out, err := SwapOutput(x, y, in, fee)
				if err != nil {
					t.Fatalf("x->y error: %v", err)
				}
				if out == 0 {
					continue
				}
				back, err := SwapOutputYToX(x+in, y-out, out, fee)
				if err != nil {
					t.Fatalf("y->x error: %v", err)
				}
				if back > in {
					t.Errorf("round trip gained: reserves=%v in=%d fee=%d back=%d", r, in, fee, back)
				}
			}
		}
	}
}

func TestPure(t *testing.T) {
	tests := []struct {
		name string
		call func() (uint64, uint64, error)
	}{
		{"SwapOutput", func() (uint64, uint64, error) {
			out, err := SwapOutput(3_333, 4_444, 555, 17)
			return out, 0, err
		}},
		{"DepositAmounts", func() (uint64, uint64, error) { return DepositAmounts(3_333, 4_444, 1_234, 77) }},
		{"WithdrawAmounts", func() (uint64, uint64, error) { return WithdrawAmounts(3_333, 4_444, 1_234, 77) }},
		{"InitialShares", func() (uint64, uint64, error) {
			shares, err := InitialShares(3_333, 4_444)
			return shares, 0, err
		}},
		{"InitialShares zero", func() (uint64, uint64, error) {
			shares, err := InitialShares(0, 4_444)
			return shares, 0, err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a1, a2, errA := tt.call()
			for i := 0; i < 3; i++ {
				b1, b2, errB := tt.call()
				if a1 != b1 || a2 != b2 || errA != errB {
					t.Fatalf("call %d = (%d, %d, %v), first call = (%d, %d, %v)", i, b1, b2, errB, a1, a2, errA)
				}
			}
		})
	}
}

func TestRoundingFavoursPool(t *testing.T) {
	// The post-trade output reserve rounds up, so the trader receives 181322
	// rather than the 181323 a floored division would give.
	if out, err := SwapOutput(1_000_000, 2_000_000, 100_000, 30); err != nil || out != 181_322 {
		t.Errorf("SwapOutput() = %d, %v, want 181322", out, err)
	}

	// ratio = ceil(3007e6/3000) = 1002334; legs round up to 3 and 5.
	dx, dy, err := DepositAmounts(1000, 2000, 3000, 7)
	if err != nil {
		t.Fatalf("DepositAmounts() error: %v", err)
	}
	if dx != 3 || dy != 5 {
		t.Errorf("DepositAmounts() = (%d, %d), want (3, 5)", dx, dy)
	}

	// ratio = ceil(2993e6/3000) = 997667; the kept reserves round up.
	wx, wy, err := WithdrawAmounts(1000, 2000, 3000, 7)
	if err != nil {
		t.Fatalf("WithdrawAmounts() error: %v", err)
	}
	if wx != 2 || wy != 4 {
		t.Errorf("WithdrawAmounts() = (%d, %d), want (2, 4)", wx, wy)
	}
	if wx >= dx || wy >= dy {
		t.Errorf("deposit (%d, %d) then withdraw (%d, %d) of 7 shares gained", dx, dy, wx, wy)
	}
}

func TestDepositAmounts(t *testing.T) {
	dx, dy, err := DepositAmounts(1000, 2000, 5000, 500)
	if err != nil {
		t.Fatalf("DepositAmounts() error: %v", err)
	}
	if dx != 100 || dy != 200 {
		t.Errorf("DepositAmounts() = (%d, %d), want (100, 200)", dx, dy)
	}

	if _, _, err := DepositAmounts(1000, 2000, 0, 500); !errors.Is(err, ErrZeroBalance) {
		t.Errorf("zero supply error = %v, want %v", err, ErrZeroBalance)
	}

	if _, _, err := DepositAmounts(math.MaxUint64, math.MaxUint64, 1, math.MaxUint64); !errors.Is(err, ErrOverflow) {
		t.Errorf("huge deposit error = %v, want %v", err, ErrOverflow)
	}
}

func TestWithdrawAmounts(t *testing.T) {
	tests := []struct {
		name          string
		x, y, l, burn uint64
		wantX, wantY  uint64
		wantErr       error
	}{
		{"tenth of supply", 1000, 2000, 5000, 500, 100, 200, nil},
		{"whole supply", 1000, 2000, 5000, 5000, 1000, 2000, nil},
		{"nothing burned", 1000, 2000, 5000, 0, 0, 0, nil},
		{"burn exceeds supply", 1000, 2000, 5000, 5001, 0, 0, ErrZeroBalance},
		{"empty supply", 1000, 2000, 0, 0, 0, 0, ErrZeroBalance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wx, wy, err := WithdrawAmounts(tt.x, tt.y, tt.l, tt.burn)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("WithdrawAmounts() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("WithdrawAmounts() unexpected error: %v", err)
			}
			if wx != tt.wantX || wy != tt.wantY {
				t.Errorf("WithdrawAmounts() = (%d, %d), want (%d, %d)", wx, wy, tt.wantX, tt.wantY)
			}
		})
	}
}

func TestDepositThenWithdrawNeverGains(t *testing.T) {
	pools := [][3]uint64{{1000, 2000, 5000}, {1_000_000, 3, 1_000_000}, {999_999, 1_000_001, 77}}
	shares := []uint64{1, 3, 77, 5000, 123_456}

	for _, p := range pools {
		for _, s := range shares {
			x, y, l := p[0], p[1], p[2]
			dx, dy, err := DepositAmounts(x, y, l, s)
			if err != nil {
				t.Fatalf("DepositAmounts(%v, %d) error: %v", p, s, err)
			}
			wx, wy, err := WithdrawAmounts(x+dx, y+dy, l+s, s)
			if err != nil {
				t.Fatalf("WithdrawAmounts(%v, %d) error: %v", p, s, err)
			}
			if wx > dx || wy > dy {
				t.Errorf("pool %v shares %d: deposited (%d, %d) withdrew (%d, %d)", p, s, dx, dy, wx, wy)
			}
		}
	}
}

func TestInitialShares(t *testing.T) {
	got, err := InitialShares(1_000_000, 2_000_000)
	if err != nil {
		t.Fatalf("InitialShares() error: %v", err)
	}
	if got != 2_000_000 {
		t.Errorf("InitialShares() = %d, want 2000000", got)
	}
	if _, err := InitialShares(0, 5); !errors.Is(err, ErrZeroBalance) {
		t.Errorf("InitialShares(0, 5) error = %v, want %v", err, ErrZeroBalance)
	}
	if _, err := InitialShares(5, 0); !errors.Is(err, ErrZeroBalance) {
		t.Errorf("InitialShares(5, 0) error = %v, want %v", err, ErrZeroBalance)
	}
}

func TestSpotPrice(t *testing.T) {
	got, err := SpotPrice(1_000_000, 2_000_000)
	if err != nil {
		t.Fatalf("SpotPrice() error: %v", err)
	}
	if got != 2*Precision {
		t.Errorf("SpotPrice() = %d, want %d", got, 2*Precision)
	}
	if _, err := SpotPrice(0, 1); !errors.Is(err, ErrZeroBalance) {
		t.Errorf("SpotPrice(0, 1) error = %v, want %v", err, ErrZeroBalance)
	}
}
