package instruction

import (
	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-cpamm/internal/errors"
	"github.com/lugondev/go-cpamm/internal/ledger"
	"github.com/lugondev/go-cpamm/internal/pool"
	"github.com/lugondev/go-cpamm/internal/token"
	"github.com/lugondev/go-cpamm/pkg/view"
)

// Account list arities.
const (
	InitializeAccounts = 5
	LiquidityAccounts  = 9
	SwapAccounts       = 7
)

// ConfigIndex returns the position of the pool config account in the account
// list of tag.
func ConfigIndex(tag Tag) (int, bool) {
	switch tag {
	case TagInitialize:
		return 2, true
	case TagDeposit, TagWithdraw:
		return 7, true
	case TagSwap:
		return 5, true
	default:
		return 0, false
	}
}

// InitializeRequest is a checked Initialize call.
type InitializeRequest struct {
	Args InitializeArgs

	Initializer   *ledger.AccountInfo
	ShareMint     *ledger.AccountInfo
	Config        *ledger.AccountInfo
	SystemProgram *ledger.AccountInfo
	TokenProgram  *ledger.AccountInfo

	// Custody signs for the config account and becomes the share mint authority.
	Custody *pool.CustodyAuthority
	// ShareMintSigner signs for the share mint address at creation.
	ShareMintSigner *pool.CustodyAuthority
}

// LiquidityRequest is a checked Deposit or Withdraw call.
type LiquidityRequest struct {
	Tag  Tag
	Args LiquidityArgs

	User         *ledger.AccountInfo
	ShareMint    *ledger.AccountInfo
	VaultX       *ledger.AccountInfo
	VaultY       *ledger.AccountInfo
	UserX        *ledger.AccountInfo
	UserY        *ledger.AccountInfo
	UserShares   *ledger.AccountInfo
	Config       *ledger.AccountInfo
	TokenProgram *ledger.AccountInfo

	Record  *pool.Record
	Custody *pool.CustodyAuthority
}

// SwapRequest is a checked Swap call.
type SwapRequest struct {
	Args SwapArgs

	User         *ledger.AccountInfo
	UserX        *ledger.AccountInfo
	UserY        *ledger.AccountInfo
	VaultX       *ledger.AccountInfo
	VaultY       *ledger.AccountInfo
	Config       *ledger.AccountInfo
	TokenProgram *ledger.AccountInfo

	Record  *pool.Record
	Custody *pool.CustodyAuthority
}

// Decoder turns raw calls into checked requests.
type Decoder struct {
	// ProgramID is the pool program the accounts are checked against.
	ProgramID solana.PublicKey

	// EnforceExpiration rejects requests whose non-zero expiration precedes the ledger clock.
	EnforceExpiration bool
}

// NewDecoder creates a Decoder for programID.
func NewDecoder(programID solana.PublicKey, enforceExpiration bool) *Decoder {
	return &Decoder{ProgramID: programID, EnforceExpiration: enforceExpiration}
}

// DecodeInitialize validates an Initialize call.
func (d *Decoder) DecodeInitialize(accounts []*ledger.AccountInfo, payload []byte) (*InitializeRequest, error) {
	if err := checkAccounts(accounts, InitializeAccounts); err != nil {
		return nil, err
	}
	args, err := DecodeInitializeArgs(payload)
	if err != nil {
		return nil, err
	}

	req := &InitializeRequest{
		Args:          *args,
		Initializer:   accounts[0],
		ShareMint:     accounts[1],
		Config:        accounts[2],
		SystemProgram: accounts[3],
		TokenProgram:  accounts[4],
	}
	if err := checkProgram(req.SystemProgram, solana.SystemProgramID); err != nil {
		return nil, err
	}
	if err := checkProgram(req.TokenProgram, token.ProgramID); err != nil {
		return nil, err
	}

	configAddr, configBump, err := pool.FindConfigAddress(d.ProgramID, args.Seed, args.MintX, args.MintY)
	if err != nil {
		return nil, errors.ErrInvalidSeeds.Wrap(err)
	}
	if !configAddr.Equals(req.Config.Pubkey) || configBump != args.CustodyBump {
		return nil, errors.ErrInvalidSeeds.Withf("config %s/%d does not match derived %s/%d",
			req.Config.Pubkey, args.CustodyBump, configAddr, configBump)
	}
	if req.Custody, err = pool.NewCustodyAuthority(d.ProgramID, pool.ConfigSeeds(args.Seed, args.MintX, args.MintY), args.CustodyBump); err != nil {
		return nil, err
	}

	mintAddr, mintBump, err := pool.FindShareMintAddress(d.ProgramID, configAddr)
	if err != nil {
		return nil, errors.ErrInvalidSeeds.Wrap(err)
	}
	if !mintAddr.Equals(req.ShareMint.Pubkey) || mintBump != args.ShareBump {
		return nil, errors.ErrInvalidSeeds.Withf("share mint %s/%d does not match derived %s/%d",
			req.ShareMint.Pubkey, args.ShareBump, mintAddr, mintBump)
	}
	if req.ShareMintSigner, err = pool.NewCustodyAuthority(d.ProgramID, pool.ShareMintSeeds(configAddr), args.ShareBump); err != nil {
		return nil, err
	}
	return req, nil
}

// DecodeLiquidity validates a Deposit or Withdraw call.
func (d *Decoder) DecodeLiquidity(tx *ledger.Tx, tag Tag, accounts []*ledger.AccountInfo, payload []byte) (*LiquidityRequest, error) {
	if tag != TagDeposit && tag != TagWithdraw {
		return nil, errors.ErrInvalidInstructionData.Withf("tag %s is not a liquidity operation", tag)
	}
	if err := checkAccounts(accounts, LiquidityAccounts); err != nil {
		return nil, err
	}
	args, err := DecodeLiquidityArgs(payload)
	if err != nil {
		return nil, err
	}

	req := &LiquidityRequest{
		Tag:          tag,
		Args:         *args,
		User:         accounts[0],
		ShareMint:    accounts[1],
		VaultX:       accounts[2],
		VaultY:       accounts[3],
		UserX:        accounts[4],
		UserY:        accounts[5],
		UserShares:   accounts[6],
		Config:       accounts[7],
		TokenProgram: accounts[8],
	}
	if err := checkProgram(req.TokenProgram, token.ProgramID); err != nil {
		return nil, err
	}
	if req.Record, req.Custody, err = d.loadPool(req.Config); err != nil {
		return nil, err
	}

	shareMint, err := pool.ShareMint(d.ProgramID, req.Config.Pubkey)
	if err != nil {
		return nil, err
	}
	if !shareMint.Equals(req.ShareMint.Pubkey) {
		return nil, errors.ErrInvalidSeeds.Withf("share mint %s, want %s", req.ShareMint.Pubkey, shareMint)
	}
	if err := checkMint(req.ShareMint); err != nil {
		return nil, err
	}
	if err := checkVaults(req.VaultX, req.VaultY, req.Record, req.Config.Pubkey); err != nil {
		return nil, err
	}
	if err := checkTokenAccount(req.UserX, req.Record.MintX, nil); err != nil {
		return nil, err
	}
	if err := checkTokenAccount(req.UserY, req.Record.MintY, nil); err != nil {
		return nil, err
	}
	if err := checkTokenAccount(req.UserShares, shareMint, nil); err != nil {
		return nil, err
	}

	allowed := req.Record.State.AllowsDeposit()
	if tag == TagWithdraw {
		allowed = req.Record.State.AllowsWithdraw()
	}
	if !allowed {
		return nil, errors.ErrInvalidPoolState.Withf("%s not allowed while pool is %s", tag, req.Record.State)
	}
	if err := d.checkExpiration(tx, args.Expiration); err != nil {
		return nil, err
	}
	return req, nil
}

// DecodeSwap validates a Swap call.
func (d *Decoder) DecodeSwap(tx *ledger.Tx, accounts []*ledger.AccountInfo, payload []byte) (*SwapRequest, error) {
	if err := checkAccounts(accounts, SwapAccounts); err != nil {
		return nil, err
	}
	args, err := DecodeSwapArgs(payload)
	if err != nil {
		return nil, err
	}

	req := &SwapRequest{
		Args:         *args,
		User:         accounts[0],
		UserX:        accounts[1],
		UserY:        accounts[2],
		VaultX:       accounts[3],
		VaultY:       accounts[4],
		Config:       accounts[5],
		TokenProgram: accounts[6],
	}
	if err := checkProgram(req.TokenProgram, token.ProgramID); err != nil {
		return nil, err
	}
	if req.Record, req.Custody, err = d.loadPool(req.Config); err != nil {
		return nil, err
	}
	if err := checkVaults(req.VaultX, req.VaultY, req.Record, req.Config.Pubkey); err != nil {
		return nil, err
	}
	if err := checkTokenAccount(req.UserX, req.Record.MintX, nil); err != nil {
		return nil, err
	}
	if err := checkTokenAccount(req.UserY, req.Record.MintY, nil); err != nil {
		return nil, err
	}

	if !req.Record.State.AllowsSwap() {
		return nil, errors.ErrInvalidPoolState.Withf("swap not allowed while pool is %s", req.Record.State)
	}
	if err := d.checkExpiration(tx, args.Expiration); err != nil {
		return nil, err
	}
	return req, nil
}

// loadPool decodes the record held by config and proves config is its custody address.
func (d *Decoder) loadPool(config *ledger.AccountInfo) (*pool.Record, *pool.CustodyAuthority, error) {
	if !config.Owner().Equals(d.ProgramID) {
		return nil, nil, errors.ErrInvalidAccountOwner.Withf("config %s is not owned by %s", config.Pubkey, d.ProgramID)
	}
	record, err := pool.UnmarshalRecord(config.Data())
	if err != nil {
		return nil, nil, err
	}
	custody, err := record.Custody(d.ProgramID)
	if err != nil {
		return nil, nil, err
	}
	if !custody.Key().Equals(config.Pubkey) {
		return nil, nil, errors.ErrInvalidSeeds.Withf("config %s does not derive from its record", config.Pubkey)
	}
	return record, custody, nil
}

func (d *Decoder) checkExpiration(tx *ledger.Tx, expiration int64) error {
	if !d.EnforceExpiration || expiration == 0 {
		return nil
	}
	if now := tx.Clock().UnixTimestamp; expiration < now {
		return errors.ErrExpired.Withf("expired at %d, now %d", expiration, now)
	}
	return nil
}

func checkAccounts(accounts []*ledger.AccountInfo, want int) error {
	if len(accounts) != want {
		return errors.ErrNotEnoughAccountKeys.Withf("got %d accounts, want %d", len(accounts), want)
	}
	if !accounts[0].IsSigner {
		return errors.ErrMissingRequiredSignature.Withf("%s must sign", accounts[0].Pubkey)
	}
	return nil
}

func checkProgram(info *ledger.AccountInfo, want solana.PublicKey) error {
	if !info.Pubkey.Equals(want) {
		return errors.ErrIncorrectProgramID.Withf("got %s, want %s", info.Pubkey, want)
	}
	return nil
}

func checkMint(info *ledger.AccountInfo) error {
	if !info.Owner().Equals(token.ProgramID) {
		return errors.ErrInvalidAccountOwner.Withf("mint %s is not a token program account", info.Pubkey)
	}
	m, err := view.DecodeMint(info.Data())
	if err != nil {
		return errors.ErrInvalidAccountData.Wrap(err)
	}
	if !m.IsInitialized {
		return errors.ErrInvalidAccountData.Withf("mint %s is not initialized", info.Pubkey)
	}
	return nil
}

// checkTokenAccount verifies info is an initialized token account of mint and,
// when owner is set, that owner controls it.
func checkTokenAccount(info *ledger.AccountInfo, mint solana.PublicKey, owner *solana.PublicKey) error {
	if !info.Owner().Equals(token.ProgramID) {
		return errors.ErrInvalidAccountOwner.Withf("%s is not a token program account", info.Pubkey)
	}
	a, err := view.DecodeTokenAccount(info.Data())
	if err != nil {
		return errors.ErrInvalidAccountData.Wrap(err)
	}
	if !a.IsInitialized() {
		return errors.ErrInvalidAccountData.Withf("token account %s is not initialized", info.Pubkey)
	}
	if !a.Mint.Equals(mint) {
		return errors.ErrInvalidAccountData.Withf("token account %s holds %s, want %s", info.Pubkey, a.Mint, mint)
	}
	if owner != nil && !a.Owner.Equals(*owner) {
		return errors.ErrInvalidAccountOwner.Withf("token account %s is owned by %s, want %s", info.Pubkey, a.Owner, *owner)
	}
	return nil
}

func checkVaults(vaultX, vaultY *ledger.AccountInfo, record *pool.Record, config solana.PublicKey) error {
	if vaultX.Pubkey.Equals(vaultY.Pubkey) {
		return errors.ErrInvalidAccountData.Withf("vaults must be distinct")
	}
	if err := checkTokenAccount(vaultX, record.MintX, &config); err != nil {
		return err
	}
	return checkTokenAccount(vaultY, record.MintY, &config)
}
