package mosaic

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// BlockInfo carries the subset of a block header the facilitation protocol
// depends on: its number and the state root that anchors proofs of it.
type BlockInfo struct {
	Number    *big.Int
	StateRoot common.Hash
}

// Proof is a serialized Merkle-Patricia proof of a gateway account and one of
// its storage slots, anchored at BlockNumber. How it is generated is not this
// library's concern; see ProofProvider.
type Proof struct {
	BlockNumber    *big.Int
	EncodedAccount []byte
	AccountProof   []byte
	StorageProof   []byte
}

// ChainClient is the transport this library drives a chain through. It packs
// no ABI knowledge of its own: callers hand it ready calldata. Send returns
// once the transaction is mined; transient RPC retry policy belongs to the
// implementation, not to this library.
type ChainClient interface {
	// Call executes a read-only contract call against the latest state.
	Call(ctx context.Context, contract common.Address, calldata []byte) ([]byte, error)

	// Send submits a state-changing transaction and blocks until it is
	// mined, returning the receipt. Signing is the implementation's concern.
	Send(ctx context.Context, contract common.Address, calldata []byte, opts *TxOptions) (*types.Receipt, error)

	// BlockByTag resolves a block tag ("latest", a decimal height) to the
	// block's number and state root.
	BlockByTag(ctx context.Context, tag string) (*BlockInfo, error)
}

// ContractDefinition pairs a contract name with its parsed ABI.
type ContractDefinition struct {
	Name string
	ABI  abi.ABI
}

// ContractRegistry resolves a contract name to its definition. Unknown names
// fail with ErrContractNotFound.
type ContractRegistry interface {
	Definition(name string) (*ContractDefinition, error)
}

// ProofProvider produces storage proofs of a contract account at a given
// block. Implementations typically wrap the eth_getProof RPC; proof assembly
// internals are outside this library.
type ProofProvider interface {
	StorageProof(ctx context.Context, account common.Address, keys []common.Hash, blockNumber *big.Int) (*Proof, error)
}

// TxOptions carries the per-transaction parameters every write operation
// requires. From is mandatory. Gas of zero lets the chain client estimate.
// Value is only consulted by bounty-bearing calls.
type TxOptions struct {
	From     common.Address
	Gas      uint64
	GasPrice *big.Int
	Value    *big.Int
}

// Validate rejects options unusable for submission. It runs before any
// network call.
func (opts *TxOptions) Validate() error {
	if opts == nil {
		return InvalidArgumentf("transaction options", nil)
	}
	if opts.From == (common.Address{}) {
		return InvalidArgumentf("sender address", opts.From.Hex())
	}
	return nil
}
