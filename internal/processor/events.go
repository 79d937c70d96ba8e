package processor

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-cpamm/internal/ledger"
)

// Events are emitted as "Program data:" lines: an 8-byte discriminator
// followed by the borsh-encoded body.

type InitializeEvent struct {
	Pool   solana.PublicKey `json:"pool"`
	MintX  solana.PublicKey `json:"mint_x"`
	MintY  solana.PublicKey `json:"mint_y"`
	FeeBps uint16           `json:"fee_bps"`
}

type LiquidityEvent struct {
	Pool    solana.PublicKey `json:"pool"`
	User    solana.PublicKey `json:"user"`
	Deposit bool             `json:"deposit"`
	AmountX uint64           `json:"amount_x"`
	AmountY uint64           `json:"amount_y"`
	Shares  uint64           `json:"shares"`
}

type SwapEvent struct {
	Pool      solana.PublicKey `json:"pool"`
	User      solana.PublicKey `json:"user"`
	IsX       bool             `json:"is_x"`
	AmountIn  uint64           `json:"amount_in"`
	AmountOut uint64           `json:"amount_out"`
}

var (
	initializeDiscriminator = eventDiscriminator("InitializeEvent")
	liquidityDiscriminator  = eventDiscriminator("LiquidityEvent")
	swapDiscriminator       = eventDiscriminator("SwapEvent")
)

func eventDiscriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("event:" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

// EncodeEvent serializes one of the event types.
func EncodeEvent(event any) ([]byte, error) {
	var disc [8]byte
	switch event.(type) {
	case *InitializeEvent:
		disc = initializeDiscriminator
	case *LiquidityEvent:
		disc = liquidityDiscriminator
	case *SwapEvent:
		disc = swapDiscriminator
	default:
		return nil, fmt.Errorf("unknown event type %T", event)
	}
	body, err := bin.MarshalBorsh(event)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", event, err)
	}
	return append(disc[:], body...), nil
}

// DecodeEvent parses a payload produced by EncodeEvent.
func DecodeEvent(data []byte) (any, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("event too short: %d bytes", len(data))
	}
	var event any
	switch disc := data[:8]; {
	case bytes.Equal(disc, initializeDiscriminator[:]):
		event = new(InitializeEvent)
	case bytes.Equal(disc, liquidityDiscriminator[:]):
		event = new(LiquidityEvent)
	case bytes.Equal(disc, swapDiscriminator[:]):
		event = new(SwapEvent)
	default:
		return nil, fmt.Errorf("unknown event discriminator %x", disc)
	}
	if err := bin.UnmarshalBorsh(event, data[8:]); err != nil {
		return nil, fmt.Errorf("decode %T: %w", event, err)
	}
	return event, nil
}

// emit logs event on tx. Encoding cannot fail for the fixed event types.
func emit(tx *ledger.Tx, event any) {
	if data, err := EncodeEvent(event); err == nil {
		tx.EmitData(data)
	}
}
