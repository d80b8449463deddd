package contracts

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"github.com/mosaicdao/go-mosaic"
)

func newTestGateway(t *testing.T) (*Gateway, *fakeClient) {
	t.Helper()
	client := newFakeClient()
	gateway, err := NewGateway(client, gatewayAddr, nil)
	assert.NoError(t, err)
	return gateway, client
}

func TestNewGatewayRejectsZeroAddress(t *testing.T) {
	_, err := NewGateway(newFakeClient(), common.Address{}, nil)
	assert.ErrorIs(t, err, mosaic.ErrInvalidArgument)

	_, err = NewGateway(nil, gatewayAddr, nil)
	assert.ErrorIs(t, err, mosaic.ErrInvalidArgument)
}

func TestGatewayBountyCachedAcrossCalls(t *testing.T) {
	gateway, client := newTestGateway(t)
	client.stub(t, EIP20GatewayContract, "bounty", big.NewInt(1000))

	first, err := gateway.Bounty(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, big.NewInt(1000), first)

	second, err := gateway.Bounty(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, first, second)

	// The bounty is immutable post-deployment: one chain query, ever.
	assert.Equal(t, 1, client.callCount(methodSelector(t, EIP20GatewayContract, "bounty")))
}

func TestGatewayIsBountyAmountApproved(t *testing.T) {
	gateway, client := newTestGateway(t)
	client.stub(t, EIP20GatewayContract, "bounty", big.NewInt(1000))
	client.stub(t, EIP20GatewayContract, "baseToken", tokenAddr)
	client.stub(t, EIP20TokenContract, "allowance", big.NewInt(1000))

	approved, err := gateway.IsBountyAmountApproved(context.Background(), callerAddr)
	assert.NoError(t, err)
	assert.True(t, approved)

	// Repeat with a lower allowance; bounty and token address come from the
	// caches this time.
	client.stub(t, EIP20TokenContract, "allowance", big.NewInt(999))
	approved, err = gateway.IsBountyAmountApproved(context.Background(), callerAddr)
	assert.NoError(t, err)
	assert.False(t, approved)

	assert.Equal(t, 1, client.callCount(methodSelector(t, EIP20GatewayContract, "bounty")))
	assert.Equal(t, 1, client.callCount(methodSelector(t, EIP20GatewayContract, "baseToken")))

	_, err = gateway.IsBountyAmountApproved(context.Background(), common.Address{})
	assert.ErrorIs(t, err, mosaic.ErrInvalidArgument)
}

func TestGatewayIsStakeAmountApproved(t *testing.T) {
	gateway, client := newTestGateway(t)
	client.stub(t, EIP20GatewayContract, "valueToken", tokenAddr)
	client.stub(t, EIP20TokenContract, "allowance", big.NewInt(500))

	approved, err := gateway.IsStakeAmountApproved(context.Background(), callerAddr, big.NewInt(500))
	assert.NoError(t, err)
	assert.True(t, approved)

	_, err = gateway.IsStakeAmountApproved(context.Background(), callerAddr, big.NewInt(0))
	assert.ErrorIs(t, err, mosaic.ErrInvalidAmount)
}

func TestGatewayStakeValidation(t *testing.T) {
	gateway, client := newTestGateway(t)
	opts := &mosaic.TxOptions{From: callerAddr}
	hashLock := common.HexToHash("0x0b2aa4c82a3b0187a087e030a26b71fc1a49e74d3776ae8e03876ea9153abbca")
	beneficiary := common.HexToAddress("0x0000000000000000000000000000000000000009")

	// Zero amount fails before any network traffic.
	_, err := gateway.Stake(context.Background(), big.NewInt(0), beneficiary, nil, nil, big.NewInt(1), hashLock, opts)
	assert.ErrorIs(t, err, mosaic.ErrInvalidAmount)
	assert.Equal(t, 0, client.sentCount())

	_, err = gateway.Stake(context.Background(), big.NewInt(100), common.Address{}, nil, nil, big.NewInt(1), hashLock, opts)
	assert.ErrorIs(t, err, mosaic.ErrInvalidArgument)

	_, err = gateway.Stake(context.Background(), big.NewInt(100), beneficiary, nil, nil, nil, hashLock, opts)
	assert.ErrorIs(t, err, mosaic.ErrInvalidArgument)

	_, err = gateway.Stake(context.Background(), big.NewInt(100), beneficiary, nil, nil, big.NewInt(1), common.Hash{}, opts)
	assert.ErrorIs(t, err, mosaic.ErrInvalidArgument)

	_, err = gateway.Stake(context.Background(), big.NewInt(100), beneficiary, nil, nil, big.NewInt(1), hashLock, &mosaic.TxOptions{})
	assert.ErrorIs(t, err, mosaic.ErrInvalidArgument)
	assert.Equal(t, 0, client.sentCount())

	receipt, err := gateway.Stake(context.Background(), big.NewInt(100), beneficiary, big.NewInt(1), big.NewInt(100), big.NewInt(1), hashLock, opts)
	assert.NoError(t, err)
	assert.NotNil(t, receipt)
	assert.Equal(t, 1, client.sentCount())
}

func TestGatewayProgressStakeRawTx(t *testing.T) {
	gateway, client := newTestGateway(t)
	unlockSecret := common.HexToHash("0x02")

	_, err := gateway.ProgressStakeRawTx(common.Hash{}, unlockSecret)
	assert.ErrorIs(t, err, mosaic.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "invalid message hash")
	assert.Equal(t, 0, client.sentCount())

	_, err = gateway.ProgressStakeRawTx(common.HexToHash("0x01"), common.Hash{})
	assert.ErrorIs(t, err, mosaic.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "invalid unlock secret")

	calldata, err := gateway.ProgressStakeRawTx(common.HexToHash("0x01"), unlockSecret)
	assert.NoError(t, err)
	assert.NotEmpty(t, calldata)
	assert.Equal(t, 0, client.sentCount())
}

func TestGatewayRevertedTransaction(t *testing.T) {
	gateway, client := newTestGateway(t)
	client.receipt.Status = 0

	_, err := gateway.ProgressStake(context.Background(), common.HexToHash("0x01"), common.HexToHash("0x02"), &mosaic.TxOptions{From: callerAddr})
	assert.ErrorIs(t, err, mosaic.ErrTransactionReverted)
}

func TestGatewayNonce(t *testing.T) {
	gateway, client := newTestGateway(t)
	client.stub(t, EIP20GatewayContract, "getNonce", big.NewInt(42))

	nonce, err := gateway.Nonce(context.Background(), callerAddr)
	assert.NoError(t, err)
	assert.Equal(t, big.NewInt(42), nonce)

	_, err = gateway.Nonce(context.Background(), common.Address{})
	assert.ErrorIs(t, err, mosaic.ErrInvalidArgument)
}

func TestGatewayMessageStatus(t *testing.T) {
	gateway, client := newTestGateway(t)
	client.stubSeq(t, EIP20GatewayContract, "getOutboxMessageStatus", uint8(1))
	client.stubSeq(t, EIP20GatewayContract, "getOutboxMessageStatus", uint8(2))

	messageHash := common.HexToHash("0x01")
	status, err := gateway.OutboxMessageStatus(context.Background(), messageHash)
	assert.NoError(t, err)
	assert.Equal(t, "declared", status.String())

	// Statuses are never cached: the second read hits the chain and sees
	// the new state.
	status, err = gateway.OutboxMessageStatus(context.Background(), messageHash)
	assert.NoError(t, err)
	assert.Equal(t, "progressed", status.String())
	assert.Equal(t, 2, client.callCount(methodSelector(t, EIP20GatewayContract, "getOutboxMessageStatus")))

	_, err = gateway.OutboxMessageStatus(context.Background(), common.Hash{})
	assert.ErrorIs(t, err, mosaic.ErrInvalidArgument)
}
