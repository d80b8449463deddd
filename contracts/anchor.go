package contracts

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/mosaicdao/go-mosaic"
)

// AnchorInfo is the latest state root of the remote chain as committed into
// the local anchor contract.
type AnchorInfo struct {
	StateRoot   common.Hash
	BlockHeight *big.Int
}

// Anchor drives an anchor contract: reads committed remote state roots and
// submits new commitments. Committed heights are strictly monotonic; nothing
// here is cached, the latest commitment moves with the remote chain.
type Anchor struct {
	*bound
}

func NewAnchor(client mosaic.ChainClient, address common.Address, registry mosaic.ContractRegistry) (*Anchor, error) {
	b, err := bind(client, address, AnchorContract, registry)
	if err != nil {
		return nil, err
	}
	return &Anchor{bound: b}, nil
}

// LatestBlockHeight returns the highest remote block height with a committed
// state root.
func (a *Anchor) LatestBlockHeight(ctx context.Context) (*big.Int, error) {
	return a.callBigInt(ctx, "getLatestStateRootBlockHeight")
}

// StateRoot returns the state root committed for blockHeight, or the zero
// hash if none was committed at that height.
func (a *Anchor) StateRoot(ctx context.Context, blockHeight *big.Int) (common.Hash, error) {
	if blockHeight == nil {
		return common.Hash{}, mosaic.InvalidArgumentf("block height", blockHeight)
	}
	out, err := a.call(ctx, "getStateRoot", blockHeight)
	if err != nil {
		return common.Hash{}, err
	}
	return out[0].([32]byte), nil
}

// LatestStateRoot returns the most recent commitment as one read pair.
func (a *Anchor) LatestStateRoot(ctx context.Context) (*AnchorInfo, error) {
	height, err := a.LatestBlockHeight(ctx)
	if err != nil {
		return nil, err
	}
	root, err := a.StateRoot(ctx, height)
	if err != nil {
		return nil, err
	}
	return &AnchorInfo{StateRoot: root, BlockHeight: height}, nil
}

// CommitStateRoot submits a new state-root commitment. The contract rejects
// non-monotonic heights; the same check runs here first so a doomed
// transaction is never paid for.
func (a *Anchor) CommitStateRoot(ctx context.Context, blockHeight *big.Int, stateRoot common.Hash, opts *mosaic.TxOptions) (*types.Receipt, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if blockHeight == nil {
		return nil, mosaic.InvalidArgumentf("block height", blockHeight)
	}
	if err := requireHash("state root", stateRoot); err != nil {
		return nil, err
	}
	latest, err := a.LatestBlockHeight(ctx)
	if err != nil {
		return nil, err
	}
	if blockHeight.Cmp(latest) <= 0 {
		return nil, fmt.Errorf("%w: height %v is not above the anchored height %v", mosaic.ErrStaleCommitment, blockHeight, latest)
	}
	return a.send(ctx, "anchorStateRoot", opts, blockHeight, stateRoot)
}

// WaitForCommitAtLeast polls the anchor until the committed height reaches
// target. This gates all cross-chain confirmations: a proof anchored at
// height B is only checkable once a root for height >= B is committed.
//
// The loop is bounded: it gives up with ErrAnchorWaitTimeout once timeout
// elapses and returns early when ctx is cancelled. Zero or negative interval
// and timeout are rejected, there is no infinite wait.
func (a *Anchor) WaitForCommitAtLeast(ctx context.Context, target *big.Int, interval, timeout time.Duration) error {
	if target == nil {
		return mosaic.InvalidArgumentf("target block height", target)
	}
	if interval <= 0 {
		return mosaic.InvalidArgumentf("poll interval", interval)
	}
	if timeout <= 0 {
		return mosaic.InvalidArgumentf("wait timeout", timeout)
	}

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		latest, err := a.LatestBlockHeight(ctx)
		if err != nil {
			return err
		}
		if latest.Cmp(target) >= 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: target height %v, anchored height %v after %v", mosaic.ErrAnchorWaitTimeout, target, latest, timeout)
		}
		a.log.Debug("Anchor commitment pending", "target", target, "latest", latest)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
