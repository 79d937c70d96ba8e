package instruction

import (
	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-cpamm/internal/pool"
	"github.com/lugondev/go-cpamm/internal/token"
	"github.com/lugondev/go-cpamm/pkg/types"
)

// PoolAddresses are the derived addresses of one pool.
type PoolAddresses struct {
	Config      solana.PublicKey `json:"config"`
	ShareMint   solana.PublicKey `json:"share_mint"`
	VaultX      solana.PublicKey `json:"vault_x"`
	VaultY      solana.PublicKey `json:"vault_y"`
	CustodyBump uint8            `json:"custody_bump"`
	ShareBump   uint8            `json:"share_bump"`
}

// DerivePool derives the addresses of the pool identified by seed and its assets.
// Vaults are the associated token accounts of the config custody identity.
func DerivePool(programID solana.PublicKey, seed uint64, mintX, mintY solana.PublicKey) (*PoolAddresses, error) {
	config, custodyBump, err := pool.FindConfigAddress(programID, seed, mintX, mintY)
	if err != nil {
		return nil, err
	}
	shareMint, shareBump, err := pool.FindShareMintAddress(programID, config)
	if err != nil {
		return nil, err
	}
	vaultX, err := token.AssociatedAddress(config, mintX)
	if err != nil {
		return nil, err
	}
	vaultY, err := token.AssociatedAddress(config, mintY)
	if err != nil {
		return nil, err
	}
	return &PoolAddresses{
		Config:      config,
		ShareMint:   shareMint,
		VaultX:      vaultX,
		VaultY:      vaultY,
		CustodyBump: custodyBump,
		ShareBump:   shareBump,
	}, nil
}

// NewInitializeInstruction builds an Initialize call creating the pool for
// seed, mintX and mintY. A zero authority is omitted from the payload.
func NewInitializeInstruction(
	programID, initializer solana.PublicKey,
	seed uint64,
	feeBps uint16,
	mintX, mintY, authority solana.PublicKey,
) (types.Instruction, *PoolAddresses, error) {
	addrs, err := DerivePool(programID, seed, mintX, mintY)
	if err != nil {
		return types.Instruction{}, nil, err
	}
	args := InitializeArgs{
		Seed:        seed,
		FeeBps:      feeBps,
		MintX:       mintX,
		MintY:       mintY,
		CustodyBump: addrs.CustodyBump,
		ShareBump:   addrs.ShareBump,
		Authority:   authority,
	}
	data, err := args.MarshalBinary()
	if err != nil {
		return types.Instruction{}, nil, err
	}
	ix := Instruction(programID, data,
		types.NewAccountMeta(initializer, true, true),
		types.NewAccountMeta(addrs.ShareMint, true, false),
		types.NewAccountMeta(addrs.Config, true, false),
		types.NewAccountMeta(solana.SystemProgramID, false, false),
		types.NewAccountMeta(token.ProgramID, false, false),
	)
	return ix, addrs, nil
}

// NewDepositInstruction builds a Deposit call minting args.Amount shares.
func NewDepositInstruction(programID, user solana.PublicKey, addrs *PoolAddresses, userX, userY, userShares solana.PublicKey, args LiquidityArgs) (types.Instruction, error) {
	return newLiquidityInstruction(TagDeposit, programID, user, addrs, userX, userY, userShares, args)
}

// NewWithdrawInstruction builds a Withdraw call burning args.Amount shares.
func NewWithdrawInstruction(programID, user solana.PublicKey, addrs *PoolAddresses, userX, userY, userShares solana.PublicKey, args LiquidityArgs) (types.Instruction, error) {
	return newLiquidityInstruction(TagWithdraw, programID, user, addrs, userX, userY, userShares, args)
}

func newLiquidityInstruction(tag Tag, programID, user solana.PublicKey, addrs *PoolAddresses, userX, userY, userShares solana.PublicKey, args LiquidityArgs) (types.Instruction, error) {
	data, err := args.MarshalBinary(tag)
	if err != nil {
		return types.Instruction{}, err
	}
	return Instruction(programID, data,
		types.NewAccountMeta(user, true, true),
		types.NewAccountMeta(addrs.ShareMint, true, false),
		types.NewAccountMeta(addrs.VaultX, true, false),
		types.NewAccountMeta(addrs.VaultY, true, false),
		types.NewAccountMeta(userX, true, false),
		types.NewAccountMeta(userY, true, false),
		types.NewAccountMeta(userShares, true, false),
		types.NewAccountMeta(addrs.Config, false, false),
		types.NewAccountMeta(token.ProgramID, false, false),
	), nil
}

// NewSwapInstruction builds a Swap call.
func NewSwapInstruction(programID, user solana.PublicKey, addrs *PoolAddresses, userX, userY solana.PublicKey, args SwapArgs) (types.Instruction, error) {
	data, err := args.MarshalBinary()
	if err != nil {
		return types.Instruction{}, err
	}
	return Instruction(programID, data,
		types.NewAccountMeta(user, true, true),
		types.NewAccountMeta(userX, true, false),
		types.NewAccountMeta(userY, true, false),
		types.NewAccountMeta(addrs.VaultX, true, false),
		types.NewAccountMeta(addrs.VaultY, true, false),
		types.NewAccountMeta(addrs.Config, false, false),
		types.NewAccountMeta(token.ProgramID, false, false),
	), nil
}
