package contracts

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"github.com/mosaicdao/go-mosaic"
)

func newTestCoGateway(t *testing.T) (*CoGateway, *fakeClient) {
	t.Helper()
	client := newFakeClient()
	cogateway, err := NewCoGateway(client, cogatewayAddr, nil)
	assert.NoError(t, err)
	return cogateway, client
}

func TestCoGatewayRedeemRequiresBountyValue(t *testing.T) {
	cogateway, client := newTestCoGateway(t)
	client.stub(t, EIP20CoGatewayContract, "bounty", big.NewInt(100))

	beneficiary := common.HexToAddress("0x0000000000000000000000000000000000000009")
	hashLock := common.HexToHash("0x0b2aa4c82a3b0187a087e030a26b71fc1a49e74d3776ae8e03876ea9153abbca")

	// The auxiliary bounty rides as native transaction value, not as an
	// EIP-20 approval. Too little value is rejected client-side.
	_, err := cogateway.Redeem(context.Background(), big.NewInt(500), beneficiary, nil, nil, big.NewInt(3), hashLock,
		&mosaic.TxOptions{From: callerAddr, Value: big.NewInt(99)})
	assert.ErrorIs(t, err, mosaic.ErrInvalidArgument)
	assert.Equal(t, 0, client.sentCount())

	_, err = cogateway.Redeem(context.Background(), big.NewInt(500), beneficiary, nil, nil, big.NewInt(3), hashLock,
		&mosaic.TxOptions{From: callerAddr})
	assert.ErrorIs(t, err, mosaic.ErrInvalidArgument)

	receipt, err := cogateway.Redeem(context.Background(), big.NewInt(500), beneficiary, nil, nil, big.NewInt(3), hashLock,
		&mosaic.TxOptions{From: callerAddr, Value: big.NewInt(100)})
	assert.NoError(t, err)
	assert.NotNil(t, receipt)
	assert.Equal(t, 1, client.sentCount())
}

func TestCoGatewayRedeemZeroAmount(t *testing.T) {
	cogateway, client := newTestCoGateway(t)
	client.stub(t, EIP20CoGatewayContract, "bounty", big.NewInt(0))

	_, err := cogateway.Redeem(context.Background(), big.NewInt(0),
		common.HexToAddress("0x0000000000000000000000000000000000000009"), nil, nil, big.NewInt(0),
		common.HexToHash("0x01"), &mosaic.TxOptions{From: callerAddr})
	assert.ErrorIs(t, err, mosaic.ErrInvalidAmount)
	// A malformed redeem is rejected before any network traffic, reads
	// included: the bounty is never fetched for it.
	assert.Equal(t, 0, client.sentCount())
	assert.Equal(t, 0, len(client.calls))
}

func TestCoGatewayProgressRedeemRawTx(t *testing.T) {
	cogateway, client := newTestCoGateway(t)
	unlockSecret := common.HexToHash("0x02")

	// A missing message hash must fail before the contract method is ever
	// involved.
	_, err := cogateway.ProgressRedeemRawTx(common.Hash{}, unlockSecret)
	assert.ErrorIs(t, err, mosaic.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "invalid message hash")
	assert.Equal(t, 0, client.sentCount())
	assert.Equal(t, 0, len(client.calls))

	calldata, err := cogateway.ProgressRedeemRawTx(common.HexToHash("0x01"), unlockSecret)
	assert.NoError(t, err)
	assert.NotEmpty(t, calldata)
}

func TestCoGatewayIsRedeemAmountApproved(t *testing.T) {
	cogateway, client := newTestCoGateway(t)
	client.stub(t, EIP20CoGatewayContract, "utilityToken", tokenAddr)
	client.stub(t, EIP20TokenContract, "allowance", big.NewInt(400))

	approved, err := cogateway.IsRedeemAmountApproved(context.Background(), callerAddr, big.NewInt(500))
	assert.NoError(t, err)
	assert.False(t, approved)

	client.stub(t, EIP20TokenContract, "allowance", big.NewInt(500))
	approved, err = cogateway.IsRedeemAmountApproved(context.Background(), callerAddr, big.NewInt(500))
	assert.NoError(t, err)
	assert.True(t, approved)

	assert.Equal(t, 1, client.callCount(methodSelector(t, EIP20CoGatewayContract, "utilityToken")))
}
