package contracts

import (
	"context"
	"fmt"
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/mosaicdao/go-mosaic"
)

// CoGateway drives the EIP20CoGateway deployed on the utility (auxiliary)
// chain: the outbox of redeem intents and the inbox of stake confirmations.
type CoGateway struct {
	*bound

	registry mosaic.ContractRegistry

	// caches
	bounty             atomic.Value // *big.Int
	utilityToken       atomic.Value // common.Address
	valueToken         atomic.Value // common.Address
	stateRootProvider  atomic.Value // common.Address
	utilityTokenHandle atomic.Value // *EIP20Token
}

func NewCoGateway(client mosaic.ChainClient, address common.Address, registry mosaic.ContractRegistry) (*CoGateway, error) {
	b, err := bind(client, address, EIP20CoGatewayContract, registry)
	if err != nil {
		return nil, err
	}
	return &CoGateway{bound: b, registry: registry}, nil
}

// Bounty returns the facilitator deposit the cogateway demands per redeem.
// Unlike the gateway's bounty it is paid in the auxiliary chain's base coin,
// attached as transaction value on redeem.
func (cg *CoGateway) Bounty(ctx context.Context) (*big.Int, error) {
	return cg.cachedBigInt(ctx, &cg.bounty, "bounty")
}

// UtilityToken returns the minted token address on the auxiliary chain.
func (cg *CoGateway) UtilityToken(ctx context.Context) (common.Address, error) {
	return cg.cachedAddress(ctx, &cg.utilityToken, "utilityToken")
}

// ValueToken returns the origin-chain token this cogateway represents.
func (cg *CoGateway) ValueToken(ctx context.Context) (common.Address, error) {
	return cg.cachedAddress(ctx, &cg.valueToken, "valueToken")
}

// StateRootProvider returns the anchor this cogateway trusts for origin
// state roots.
func (cg *CoGateway) StateRootProvider(ctx context.Context) (common.Address, error) {
	return cg.cachedAddress(ctx, &cg.stateRootProvider, "stateRootProvider")
}

// UtilityTokenContract returns a handle on the minted token, built once per
// cogateway instance.
func (cg *CoGateway) UtilityTokenContract(ctx context.Context) (*EIP20Token, error) {
	if v := cg.utilityTokenHandle.Load(); v != nil {
		return v.(*EIP20Token), nil
	}
	address, err := cg.UtilityToken(ctx)
	if err != nil {
		return nil, err
	}
	token, err := NewEIP20Token(cg.client, address, cg.registry)
	if err != nil {
		return nil, err
	}
	cg.utilityTokenHandle.Store(token)
	return token, nil
}

// IsRedeemAmountApproved reports whether redeemer has approved at least
// amount of utility token for this cogateway.
func (cg *CoGateway) IsRedeemAmountApproved(ctx context.Context, redeemer common.Address, amount *big.Int) (bool, error) {
	if err := requireAddress("redeemer address", redeemer); err != nil {
		return false, err
	}
	if err := requireAmount("redeem amount", amount); err != nil {
		return false, err
	}
	token, err := cg.UtilityTokenContract(ctx)
	if err != nil {
		return false, err
	}
	allowance, err := token.Allowance(ctx, redeemer, cg.address)
	if err != nil {
		return false, err
	}
	return allowance.Cmp(amount) >= 0, nil
}

// ApproveRedeemAmount approves amount of utility token for this cogateway.
func (cg *CoGateway) ApproveRedeemAmount(ctx context.Context, amount *big.Int, opts *mosaic.TxOptions) (*types.Receipt, error) {
	if err := requireAmount("redeem amount", amount); err != nil {
		return nil, err
	}
	token, err := cg.UtilityTokenContract(ctx)
	if err != nil {
		return nil, err
	}
	return token.Approve(ctx, cg.address, amount, opts)
}

// ConfirmStakeIntent confirms a stake declared on the origin chain, carrying
// the storage proof of the gateway outbox anchored at blockHeight.
func (cg *CoGateway) ConfirmStakeIntent(ctx context.Context, staker common.Address, stakerNonce *big.Int, beneficiary common.Address, amount, gasPrice, gasLimit *big.Int, hashLock common.Hash, blockHeight *big.Int, rlpParentNodes []byte, opts *mosaic.TxOptions) (*types.Receipt, error) {
	if err := requireAddress("staker address", staker); err != nil {
		return nil, err
	}
	if stakerNonce == nil {
		return nil, mosaic.InvalidArgumentf("staker nonce", stakerNonce)
	}
	if err := requireAddress("beneficiary address", beneficiary); err != nil {
		return nil, err
	}
	if err := requireAmount("stake amount", amount); err != nil {
		return nil, err
	}
	if err := requireHash("hash lock", hashLock); err != nil {
		return nil, err
	}
	if blockHeight == nil {
		return nil, mosaic.InvalidArgumentf("block height", blockHeight)
	}
	if len(rlpParentNodes) == 0 {
		return nil, mosaic.InvalidArgumentf("storage proof", rlpParentNodes)
	}
	return cg.send(ctx, "confirmStakeIntent", opts,
		staker, stakerNonce, beneficiary, amount, reward(gasPrice), reward(gasLimit), hashLock, blockHeight, rlpParentNodes)
}

// ProgressMint reveals the unlock secret on the auxiliary inbox, minting
// utility tokens to the beneficiary.
func (cg *CoGateway) ProgressMint(ctx context.Context, messageHash, unlockSecret common.Hash, opts *mosaic.TxOptions) (*types.Receipt, error) {
	return cg.progress(ctx, "progressMint", messageHash, unlockSecret, opts)
}

// RedeemRawTx packs the redeem calldata after validating every parameter.
func (cg *CoGateway) RedeemRawTx(amount *big.Int, beneficiary common.Address, gasPrice, gasLimit, nonce *big.Int, hashLock common.Hash) ([]byte, error) {
	if err := requireAmount("redeem amount", amount); err != nil {
		return nil, err
	}
	if err := requireAddress("beneficiary address", beneficiary); err != nil {
		return nil, err
	}
	if nonce == nil {
		return nil, mosaic.InvalidArgumentf("nonce", nonce)
	}
	if err := requireHash("hash lock", hashLock); err != nil {
		return nil, err
	}
	return cg.rawTx("redeem", amount, beneficiary, reward(gasPrice), reward(gasLimit), nonce, hashLock)
}

// Redeem declares a redeem intent. The bounty is not an EIP-20 approval here:
// the auxiliary base coin is native, so the bounty rides as transaction value
// and opts.Value must cover it.
func (cg *CoGateway) Redeem(ctx context.Context, amount *big.Int, beneficiary common.Address, gasPrice, gasLimit, nonce *big.Int, hashLock common.Hash, opts *mosaic.TxOptions) (*types.Receipt, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	// All argument validation happens before the bounty read so that a
	// malformed redeem never touches the chain at all.
	calldata, err := cg.RedeemRawTx(amount, beneficiary, gasPrice, gasLimit, nonce, hashLock)
	if err != nil {
		return nil, err
	}
	bounty, err := cg.Bounty(ctx)
	if err != nil {
		return nil, err
	}
	if bounty.Sign() > 0 && (opts.Value == nil || opts.Value.Cmp(bounty) < 0) {
		return nil, fmt.Errorf("%w: transaction value %v does not cover the bounty %v", mosaic.ErrInvalidArgument, opts.Value, bounty)
	}
	return cg.submit(ctx, "redeem", calldata, opts)
}

// ProgressRedeemRawTx packs the progressRedeem calldata.
func (cg *CoGateway) ProgressRedeemRawTx(messageHash, unlockSecret common.Hash) ([]byte, error) {
	if err := requireHash("message hash", messageHash); err != nil {
		return nil, err
	}
	if err := requireHash("unlock secret", unlockSecret); err != nil {
		return nil, err
	}
	return cg.rawTx("progressRedeem", messageHash, unlockSecret)
}

// ProgressRedeem reveals the unlock secret on the auxiliary outbox, burning
// the redeemed utility tokens and returning the bounty.
func (cg *CoGateway) ProgressRedeem(ctx context.Context, messageHash, unlockSecret common.Hash, opts *mosaic.TxOptions) (*types.Receipt, error) {
	return cg.progress(ctx, "progressRedeem", messageHash, unlockSecret, opts)
}

// ProveGateway submits an account proof of the remote gateway at blockHeight.
func (cg *CoGateway) ProveGateway(ctx context.Context, blockHeight *big.Int, rlpAccount, rlpParentNodes []byte, opts *mosaic.TxOptions) (*types.Receipt, error) {
	return cg.proveGateway(ctx, blockHeight, rlpAccount, rlpParentNodes, opts)
}

// ProgressOutbox and ProgressInbox satisfy facilitator.MessageEndpoint.
func (cg *CoGateway) ProgressOutbox(ctx context.Context, messageHash, unlockSecret common.Hash, opts *mosaic.TxOptions) (*types.Receipt, error) {
	return cg.ProgressRedeem(ctx, messageHash, unlockSecret, opts)
}

func (cg *CoGateway) ProgressInbox(ctx context.Context, messageHash, unlockSecret common.Hash, opts *mosaic.TxOptions) (*types.Receipt, error) {
	return cg.ProgressMint(ctx, messageHash, unlockSecret, opts)
}
