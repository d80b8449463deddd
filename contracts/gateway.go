package contracts

import (
	"context"
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/mosaicdao/go-mosaic"
)

// Gateway drives the EIP20Gateway deployed on the value (origin) chain: the
// outbox of stake intents and the inbox of redeem intents. The handle is a
// stateless proxy apart from write-once caches of contract-level constants,
// which never change after deployment.
type Gateway struct {
	*bound

	registry mosaic.ContractRegistry

	// caches
	bounty            atomic.Value // *big.Int
	baseToken         atomic.Value // common.Address
	valueToken        atomic.Value // common.Address
	stateRootProvider atomic.Value // common.Address
	baseTokenHandle   atomic.Value // *EIP20Token
	valueTokenHandle  atomic.Value // *EIP20Token
}

func NewGateway(client mosaic.ChainClient, address common.Address, registry mosaic.ContractRegistry) (*Gateway, error) {
	b, err := bind(client, address, EIP20GatewayContract, registry)
	if err != nil {
		return nil, err
	}
	return &Gateway{bound: b, registry: registry}, nil
}

// Bounty returns the facilitator deposit the gateway demands per stake.
func (g *Gateway) Bounty(ctx context.Context) (*big.Int, error) {
	return g.cachedBigInt(ctx, &g.bounty, "bounty")
}

// BaseToken returns the token address in which the bounty is paid.
func (g *Gateway) BaseToken(ctx context.Context) (common.Address, error) {
	return g.cachedAddress(ctx, &g.baseToken, "baseToken")
}

// ValueToken returns the token address being staked.
func (g *Gateway) ValueToken(ctx context.Context) (common.Address, error) {
	return g.cachedAddress(ctx, &g.valueToken, "valueToken")
}

// StateRootProvider returns the anchor this gateway trusts for auxiliary
// state roots.
func (g *Gateway) StateRootProvider(ctx context.Context) (common.Address, error) {
	return g.cachedAddress(ctx, &g.stateRootProvider, "stateRootProvider")
}

// BaseTokenContract returns a handle on the bounty token, built once per
// gateway instance.
func (g *Gateway) BaseTokenContract(ctx context.Context) (*EIP20Token, error) {
	return g.tokenHandle(ctx, &g.baseTokenHandle, g.BaseToken)
}

// ValueTokenContract returns a handle on the staked token.
func (g *Gateway) ValueTokenContract(ctx context.Context) (*EIP20Token, error) {
	return g.tokenHandle(ctx, &g.valueTokenHandle, g.ValueToken)
}

func (g *Gateway) tokenHandle(ctx context.Context, cell *atomic.Value, resolve func(context.Context) (common.Address, error)) (*EIP20Token, error) {
	if v := cell.Load(); v != nil {
		return v.(*EIP20Token), nil
	}
	address, err := resolve(ctx)
	if err != nil {
		return nil, err
	}
	token, err := NewEIP20Token(g.client, address, g.registry)
	if err != nil {
		return nil, err
	}
	cell.Store(token)
	return token, nil
}

// IsBountyAmountApproved reports whether facilitator has approved at least
// the bounty amount of base token for this gateway.
func (g *Gateway) IsBountyAmountApproved(ctx context.Context, facilitator common.Address) (bool, error) {
	if err := requireAddress("facilitator address", facilitator); err != nil {
		return false, err
	}
	bounty, err := g.Bounty(ctx)
	if err != nil {
		return false, err
	}
	token, err := g.BaseTokenContract(ctx)
	if err != nil {
		return false, err
	}
	allowance, err := token.Allowance(ctx, facilitator, g.address)
	if err != nil {
		return false, err
	}
	return allowance.Cmp(bounty) >= 0, nil
}

// IsStakeAmountApproved reports whether staker has approved at least amount
// of value token for this gateway.
func (g *Gateway) IsStakeAmountApproved(ctx context.Context, staker common.Address, amount *big.Int) (bool, error) {
	if err := requireAddress("staker address", staker); err != nil {
		return false, err
	}
	if err := requireAmount("stake amount", amount); err != nil {
		return false, err
	}
	token, err := g.ValueTokenContract(ctx)
	if err != nil {
		return false, err
	}
	allowance, err := token.Allowance(ctx, staker, g.address)
	if err != nil {
		return false, err
	}
	return allowance.Cmp(amount) >= 0, nil
}

// ApproveBountyAmount approves exactly the bounty amount of base token. The
// library never approves without an explicit call.
func (g *Gateway) ApproveBountyAmount(ctx context.Context, opts *mosaic.TxOptions) (*types.Receipt, error) {
	bounty, err := g.Bounty(ctx)
	if err != nil {
		return nil, err
	}
	token, err := g.BaseTokenContract(ctx)
	if err != nil {
		return nil, err
	}
	return token.Approve(ctx, g.address, bounty, opts)
}

// ApproveStakeAmount approves amount of value token for this gateway.
func (g *Gateway) ApproveStakeAmount(ctx context.Context, amount *big.Int, opts *mosaic.TxOptions) (*types.Receipt, error) {
	if err := requireAmount("stake amount", amount); err != nil {
		return nil, err
	}
	token, err := g.ValueTokenContract(ctx)
	if err != nil {
		return nil, err
	}
	return token.Approve(ctx, g.address, amount, opts)
}

// StakeRawTx packs the stake calldata after validating every parameter. No
// network call is made.
func (g *Gateway) StakeRawTx(amount *big.Int, beneficiary common.Address, gasPrice, gasLimit, nonce *big.Int, hashLock common.Hash) ([]byte, error) {
	if err := requireAmount("stake amount", amount); err != nil {
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
	return g.rawTx("stake", amount, beneficiary, reward(gasPrice), reward(gasLimit), nonce, hashLock)
}

// Stake declares a stake intent. The nonce must equal the staker's current
// on-chain nonce; a stale nonce reverts at the contract.
func (g *Gateway) Stake(ctx context.Context, amount *big.Int, beneficiary common.Address, gasPrice, gasLimit, nonce *big.Int, hashLock common.Hash, opts *mosaic.TxOptions) (*types.Receipt, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	calldata, err := g.StakeRawTx(amount, beneficiary, gasPrice, gasLimit, nonce, hashLock)
	if err != nil {
		return nil, err
	}
	return g.submit(ctx, "stake", calldata, opts)
}

// ProgressStakeRawTx packs the progressStake calldata.
func (g *Gateway) ProgressStakeRawTx(messageHash, unlockSecret common.Hash) ([]byte, error) {
	if err := requireHash("message hash", messageHash); err != nil {
		return nil, err
	}
	if err := requireHash("unlock secret", unlockSecret); err != nil {
		return nil, err
	}
	return g.rawTx("progressStake", messageHash, unlockSecret)
}

// ProgressStake reveals the unlock secret on the origin outbox, releasing the
// staked amount to the gateway and the bounty back to the facilitator.
func (g *Gateway) ProgressStake(ctx context.Context, messageHash, unlockSecret common.Hash, opts *mosaic.TxOptions) (*types.Receipt, error) {
	return g.progress(ctx, "progressStake", messageHash, unlockSecret, opts)
}

// ConfirmRedeemIntent confirms a redeem declared on the auxiliary chain,
// carrying the storage proof of the cogateway outbox anchored at blockHeight.
func (g *Gateway) ConfirmRedeemIntent(ctx context.Context, redeemer common.Address, redeemerNonce *big.Int, beneficiary common.Address, amount, gasPrice, gasLimit, blockHeight *big.Int, hashLock common.Hash, rlpParentNodes []byte, opts *mosaic.TxOptions) (*types.Receipt, error) {
	if err := requireAddress("redeemer address", redeemer); err != nil {
		return nil, err
	}
	if redeemerNonce == nil {
		return nil, mosaic.InvalidArgumentf("redeemer nonce", redeemerNonce)
	}
	if err := requireAddress("beneficiary address", beneficiary); err != nil {
		return nil, err
	}
	if err := requireAmount("redeem amount", amount); err != nil {
		return nil, err
	}
	if blockHeight == nil {
		return nil, mosaic.InvalidArgumentf("block height", blockHeight)
	}
	if err := requireHash("hash lock", hashLock); err != nil {
		return nil, err
	}
	if len(rlpParentNodes) == 0 {
		return nil, mosaic.InvalidArgumentf("storage proof", rlpParentNodes)
	}
	return g.send(ctx, "confirmRedeemIntent", opts,
		redeemer, redeemerNonce, beneficiary, amount, reward(gasPrice), reward(gasLimit), blockHeight, hashLock, rlpParentNodes)
}

// ProgressUnstake reveals the unlock secret on the origin inbox, releasing
// the unstaked amount to the beneficiary.
func (g *Gateway) ProgressUnstake(ctx context.Context, messageHash, unlockSecret common.Hash, opts *mosaic.TxOptions) (*types.Receipt, error) {
	return g.progress(ctx, "progressUnstake", messageHash, unlockSecret, opts)
}

// ProveGateway submits an account proof of the remote cogateway at
// blockHeight, enabling subsequent intent confirmations against that height.
func (g *Gateway) ProveGateway(ctx context.Context, blockHeight *big.Int, rlpAccount, rlpParentNodes []byte, opts *mosaic.TxOptions) (*types.Receipt, error) {
	return g.proveGateway(ctx, blockHeight, rlpAccount, rlpParentNodes, opts)
}

// ProgressInbox and ProgressOutbox satisfy facilitator.MessageEndpoint.
func (g *Gateway) ProgressOutbox(ctx context.Context, messageHash, unlockSecret common.Hash, opts *mosaic.TxOptions) (*types.Receipt, error) {
	return g.ProgressStake(ctx, messageHash, unlockSecret, opts)
}

func (g *Gateway) ProgressInbox(ctx context.Context, messageHash, unlockSecret common.Hash, opts *mosaic.TxOptions) (*types.Receipt, error) {
	return g.ProgressUnstake(ctx, messageHash, unlockSecret, opts)
}
