package contracts

import (
	"context"
	"fmt"
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"github.com/mosaicdao/go-mosaic"
	"github.com/mosaicdao/go-mosaic/core"
)

// bound is one deployed contract instance reachable through a chain client.
// All handles in this package embed it for packing, calling and sending.
type bound struct {
	name    string
	address common.Address
	abi     abi.ABI
	client  mosaic.ChainClient
	log     log.Logger
}

func bind(client mosaic.ChainClient, address common.Address, name string, registry mosaic.ContractRegistry) (*bound, error) {
	if client == nil {
		return nil, mosaic.InvalidArgumentf("chain client", nil)
	}
	if err := requireAddress("contract address", address); err != nil {
		return nil, err
	}
	if registry == nil {
		registry = NewRegistry()
	}
	def, err := registry.Definition(name)
	if err != nil {
		return nil, err
	}
	return &bound{
		name:    name,
		address: address,
		abi:     def.ABI,
		client:  client,
		log:     log.New("module", "contracts", "contract", name, "address", address),
	}, nil
}

// Address returns the bound contract address.
func (b *bound) Address() common.Address {
	return b.address
}

// rawTx packs a method invocation into calldata without submitting it.
func (b *bound) rawTx(method string, args ...interface{}) ([]byte, error) {
	calldata, err := b.abi.Pack(method, args...)
	if err != nil {
		return nil, mosaic.InvalidArgumentf(fmt.Sprintf("arguments to %s.%s", b.name, method), err)
	}
	return calldata, nil
}

// call performs a read-only invocation and returns the unpacked outputs.
func (b *bound) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	calldata, err := b.rawTx(method, args...)
	if err != nil {
		return nil, err
	}
	raw, err := b.client.Call(ctx, b.address, calldata)
	if err != nil {
		return nil, err
	}
	return b.abi.Unpack(method, raw)
}

// send validates opts, submits a state-changing invocation and waits for the
// receipt. A mined-but-failed receipt surfaces as ErrTransactionReverted.
func (b *bound) send(ctx context.Context, method string, opts *mosaic.TxOptions, args ...interface{}) (*types.Receipt, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	calldata, err := b.rawTx(method, args...)
	if err != nil {
		return nil, err
	}
	return b.submit(ctx, method, calldata, opts)
}

// submit sends pre-packed calldata. opts must already be validated.
func (b *bound) submit(ctx context.Context, method string, calldata []byte, opts *mosaic.TxOptions) (*types.Receipt, error) {
	receipt, err := b.client.Send(ctx, b.address, calldata, opts)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, fmt.Errorf("%w: %s.%s: no receipt", mosaic.ErrTransactionReverted, b.name, method)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		b.log.Warn("Transaction reverted", "method", method, "tx", receipt.TxHash)
		return nil, fmt.Errorf("%w: %s.%s, tx %s", mosaic.ErrTransactionReverted, b.name, method, receipt.TxHash)
	}
	return receipt, nil
}

// progress is the shared shape of the four progress* writes: reveal the
// unlock secret for a message on one side of the transfer.
func (b *bound) progress(ctx context.Context, method string, messageHash, unlockSecret common.Hash, opts *mosaic.TxOptions) (*types.Receipt, error) {
	if err := requireHash("message hash", messageHash); err != nil {
		return nil, err
	}
	if err := requireHash("unlock secret", unlockSecret); err != nil {
		return nil, err
	}
	return b.send(ctx, method, opts, messageHash, unlockSecret)
}

// proveGateway is the shared shape of Gateway.ProveGateway and
// CoGateway.ProveGateway.
func (b *bound) proveGateway(ctx context.Context, blockHeight *big.Int, rlpAccount, rlpParentNodes []byte, opts *mosaic.TxOptions) (*types.Receipt, error) {
	if blockHeight == nil {
		return nil, mosaic.InvalidArgumentf("block height", blockHeight)
	}
	if len(rlpAccount) == 0 {
		return nil, mosaic.InvalidArgumentf("account proof", rlpAccount)
	}
	if len(rlpParentNodes) == 0 {
		return nil, mosaic.InvalidArgumentf("account proof parent nodes", rlpParentNodes)
	}
	return b.send(ctx, "proveGateway", opts, blockHeight, rlpAccount, rlpParentNodes)
}

// reward normalizes an optional reward parameter: gas price and gas limit of
// a message may legitimately be zero.
func reward(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return x
}

// callAddress reads a single address-typed output.
func (b *bound) callAddress(ctx context.Context, method string) (common.Address, error) {
	out, err := b.call(ctx, method)
	if err != nil {
		return common.Address{}, err
	}
	return out[0].(common.Address), nil
}

// callBigInt reads a single uint256-typed output.
func (b *bound) callBigInt(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	out, err := b.call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// Nonce returns the sender's current message nonce on this contract.
func (b *bound) Nonce(ctx context.Context, account common.Address) (*big.Int, error) {
	if err := requireAddress("account address", account); err != nil {
		return nil, err
	}
	return b.callBigInt(ctx, "getNonce", account)
}

// OutboxMessageStatus reads the outbox lifecycle state of a message.
// Statuses change over time and are never cached.
func (b *bound) OutboxMessageStatus(ctx context.Context, messageHash common.Hash) (core.MessageStatus, error) {
	return b.messageStatus(ctx, "getOutboxMessageStatus", messageHash)
}

// InboxMessageStatus reads the inbox lifecycle state of a message.
func (b *bound) InboxMessageStatus(ctx context.Context, messageHash common.Hash) (core.MessageStatus, error) {
	return b.messageStatus(ctx, "getInboxMessageStatus", messageHash)
}

func (b *bound) messageStatus(ctx context.Context, method string, messageHash common.Hash) (core.MessageStatus, error) {
	if err := requireHash("message hash", messageHash); err != nil {
		return core.MessageUndeclared, err
	}
	out, err := b.call(ctx, method, messageHash)
	if err != nil {
		return core.MessageUndeclared, err
	}
	return core.MessageStatus(out[0].(uint8)), nil
}

// cachedAddress reads an immutable address-typed constant through a
// write-once cell. Concurrent first reads may both hit the chain; they store
// the same value, so the race is benign and no invalidation exists.
func (b *bound) cachedAddress(ctx context.Context, cell *atomic.Value, method string) (common.Address, error) {
	if v := cell.Load(); v != nil {
		return v.(common.Address), nil
	}
	addr, err := b.callAddress(ctx, method)
	if err != nil {
		return common.Address{}, err
	}
	cell.Store(addr)
	return addr, nil
}

// cachedBigInt is cachedAddress for uint256-typed constants.
func (b *bound) cachedBigInt(ctx context.Context, cell *atomic.Value, method string) (*big.Int, error) {
	if v := cell.Load(); v != nil {
		return new(big.Int).Set(v.(*big.Int)), nil
	}
	value, err := b.callBigInt(ctx, method)
	if err != nil {
		return nil, err
	}
	cell.Store(value)
	return new(big.Int).Set(value), nil
}

func requireAddress(field string, address common.Address) error {
	if address == (common.Address{}) {
		return mosaic.InvalidArgumentf(field, address.Hex())
	}
	return nil
}

func requireHash(field string, hash common.Hash) error {
	if hash == (common.Hash{}) {
		return mosaic.InvalidArgumentf(field, hash.Hex())
	}
	return nil
}

func requireAmount(field string, amount *big.Int) error {
	if !core.ValidAmount(amount) {
		return mosaic.InvalidAmountf(field, amount)
	}
	return nil
}
