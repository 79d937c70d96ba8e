package ledger

import (
	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-cpamm/internal/errors"
)

// DerivedSigner authorises for a program-derived address by proving its seeds.
type DerivedSigner struct {
	address solana.PublicKey
	seeds   [][]byte
	bump    uint8
}

var _ Signer = (*DerivedSigner)(nil)

// NewDerivedSigner derives the address for seeds and bump under programID.
func NewDerivedSigner(programID solana.PublicKey, seeds [][]byte, bump uint8) (*DerivedSigner, error) {
	address, err := solana.CreateProgramAddress(withBump(seeds, bump), programID)
	if err != nil {
		return nil, errors.ErrInvalidSeeds.Wrap(err)
	}
	return &DerivedSigner{address: address, seeds: seeds, bump: bump}, nil
}

// Key implements Signer.
func (d *DerivedSigner) Key() solana.PublicKey {
	return d.address
}

// Bump returns the derivation bump.
func (d *DerivedSigner) Bump() uint8 {
	return d.bump
}

// Authorize implements Signer. The address must re-derive from the seeds under
// the program that issued the current invocation.
func (d *DerivedSigner) Authorize(tx *Tx) error {
	address, err := solana.CreateProgramAddress(withBump(d.seeds, d.bump), tx.Invoker())
	if err != nil || !address.Equals(d.address) {
		return errors.ErrMissingRequiredSignature.Withf("%s cannot be signed for by %s", d.address, tx.Invoker())
	}
	return nil
}

func withBump(seeds [][]byte, bump uint8) [][]byte {
	out := make([][]byte, 0, len(seeds)+1)
	out = append(out, seeds...)
	return append(out, []byte{bump})
}
