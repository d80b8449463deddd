package contracts

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/mosaicdao/go-mosaic"
)

// EIP20Token drives a deployed EIP-20 token contract. The gateway handles use
// it for the allowance checks that gate stake and bounty transfers.
type EIP20Token struct {
	*bound
}

func NewEIP20Token(client mosaic.ChainClient, address common.Address, registry mosaic.ContractRegistry) (*EIP20Token, error) {
	b, err := bind(client, address, EIP20TokenContract, registry)
	if err != nil {
		return nil, err
	}
	return &EIP20Token{bound: b}, nil
}

func (t *EIP20Token) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	if err := requireAddress("owner address", owner); err != nil {
		return nil, err
	}
	return t.callBigInt(ctx, "balanceOf", owner)
}

func (t *EIP20Token) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	if err := requireAddress("owner address", owner); err != nil {
		return nil, err
	}
	if err := requireAddress("spender address", spender); err != nil {
		return nil, err
	}
	return t.callBigInt(ctx, "allowance", owner, spender)
}

// Approve authorizes spender for amount. This is the only place the library
// touches a token-spend authorization, and only when the caller asks.
func (t *EIP20Token) Approve(ctx context.Context, spender common.Address, amount *big.Int, opts *mosaic.TxOptions) (*types.Receipt, error) {
	if err := requireAddress("spender address", spender); err != nil {
		return nil, err
	}
	if err := requireAmount("approval amount", amount); err != nil {
		return nil, err
	}
	return t.send(ctx, "approve", opts, spender, amount)
}

func (t *EIP20Token) Transfer(ctx context.Context, to common.Address, amount *big.Int, opts *mosaic.TxOptions) (*types.Receipt, error) {
	if err := requireAddress("recipient address", to); err != nil {
		return nil, err
	}
	if err := requireAmount("transfer amount", amount); err != nil {
		return nil, err
	}
	return t.send(ctx, "transfer", opts, to, amount)
}
