package pool

import (
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-cpamm/internal/errors"
	"github.com/lugondev/go-cpamm/internal/ledger"
)

// Derivation seed prefixes.
const (
	ConfigSeedPrefix    = "config"
	ShareMintSeedPrefix = "mint_lp"
)

// ConfigSeeds returns the seeds of the pool config address without the bump.
func ConfigSeeds(seed uint64, mintX, mintY solana.PublicKey) [][]byte {
	le := make([]byte, 8)
	bin.LE.PutUint64(le, seed)
	return [][]byte{[]byte(ConfigSeedPrefix), le, mintX[:], mintY[:]}
}

// ShareMintSeeds returns the seeds of the share mint address without the bump.
func ShareMintSeeds(config solana.PublicKey) [][]byte {
	return [][]byte{[]byte(ShareMintSeedPrefix), config[:]}
}

// FindConfigAddress derives the pool config address and its bump.
func FindConfigAddress(programID solana.PublicKey, seed uint64, mintX, mintY solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(ConfigSeeds(seed, mintX, mintY), programID)
}

// FindShareMintAddress derives the share mint address of a pool and its bump.
func FindShareMintAddress(programID, config solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(ShareMintSeeds(config), programID)
}

// CustodyAuthority is the capability to act as a pool's program-derived
// identity. It is passed explicitly to every transfer, mint or account creation
// the program signs, and authorises only under the program that derived it.
type CustodyAuthority struct {
	*ledger.DerivedSigner
}

var _ ledger.Signer = (*CustodyAuthority)(nil)

// NewCustodyAuthority derives the address for seeds and bump under programID.
func NewCustodyAuthority(programID solana.PublicKey, seeds [][]byte, bump uint8) (*CustodyAuthority, error) {
	signer, err := ledger.NewDerivedSigner(programID, seeds, bump)
	if err != nil {
		return nil, err
	}
	return &CustodyAuthority{DerivedSigner: signer}, nil
}

// Custody returns the config custody identity recorded in r.
func (r *Record) Custody(programID solana.PublicKey) (*CustodyAuthority, error) {
	return NewCustodyAuthority(programID, ConfigSeeds(r.Seed, r.MintX, r.MintY), r.CustodyBump)
}

// ShareMint returns the derived share mint address of the pool at config.
func ShareMint(programID, config solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := FindShareMintAddress(programID, config)
	if err != nil {
		return solana.PublicKey{}, errors.ErrInvalidSeeds.Wrap(err)
	}
	return addr, nil
}
