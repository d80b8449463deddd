package contracts

import (
	"context"
	"encoding/hex"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/mosaicdao/go-mosaic"
)

var (
	gatewayAddr   = common.HexToAddress("0x0000000000000000000000000000000000000002")
	cogatewayAddr = common.HexToAddress("0x0000000000000000000000000000000000000003")
	anchorAddr    = common.HexToAddress("0x0000000000000000000000000000000000000004")
	tokenAddr     = common.HexToAddress("0x0000000000000000000000000000000000000007")
	callerAddr    = common.HexToAddress("0x0000000000000000000000000000000000000005")
)

type sentTx struct {
	contract common.Address
	calldata []byte
	opts     *mosaic.TxOptions
}

// fakeClient serves canned ABI-encoded responses keyed by method selector and
// records every transaction it is asked to send.
type fakeClient struct {
	lock    sync.Mutex
	returns map[string][][]byte
	calls   map[string]int
	sent    []sentTx
	receipt *types.Receipt
	sendErr error
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		returns: make(map[string][][]byte),
		calls:   make(map[string]int),
		receipt: &types.Receipt{
			Status:      types.ReceiptStatusSuccessful,
			TxHash:      common.HexToHash("0xaa"),
			BlockNumber: big.NewInt(100),
		},
	}
}

func methodSelector(t *testing.T, contract, method string) string {
	t.Helper()
	def, err := NewRegistry().Definition(contract)
	if err != nil {
		t.Fatal(err)
	}
	m, ok := def.ABI.Methods[method]
	if !ok {
		t.Fatalf("no method %s on %s", method, contract)
	}
	return hex.EncodeToString(m.ID)
}

func (c *fakeClient) encode(t *testing.T, contract, method string, outputs ...interface{}) (string, []byte) {
	t.Helper()
	def, err := NewRegistry().Definition(contract)
	if err != nil {
		t.Fatal(err)
	}
	m := def.ABI.Methods[method]
	encoded, err := m.Outputs.Pack(outputs...)
	if err != nil {
		t.Fatal(err)
	}
	return hex.EncodeToString(m.ID), encoded
}

// stub sets the response for a method, replacing any earlier one.
func (c *fakeClient) stub(t *testing.T, contract, method string, outputs ...interface{}) {
	sel, encoded := c.encode(t, contract, method, outputs...)
	c.lock.Lock()
	defer c.lock.Unlock()
	c.returns[sel] = [][]byte{encoded}
}

// stubSeq appends a response; queued responses are served in order and the
// last one replays once the queue drains.
func (c *fakeClient) stubSeq(t *testing.T, contract, method string, outputs ...interface{}) {
	sel, encoded := c.encode(t, contract, method, outputs...)
	c.lock.Lock()
	defer c.lock.Unlock()
	c.returns[sel] = append(c.returns[sel], encoded)
}

func (c *fakeClient) Call(_ context.Context, _ common.Address, calldata []byte) ([]byte, error) {
	sel := hex.EncodeToString(calldata[:4])
	c.lock.Lock()
	defer c.lock.Unlock()
	c.calls[sel]++
	queue := c.returns[sel]
	if len(queue) == 0 {
		return nil, mosaic.ErrContractNotFound
	}
	out := queue[0]
	if len(queue) > 1 {
		c.returns[sel] = queue[1:]
	}
	return out, nil
}

func (c *fakeClient) Send(_ context.Context, contract common.Address, calldata []byte, opts *mosaic.TxOptions) (*types.Receipt, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.sendErr != nil {
		return nil, c.sendErr
	}
	c.sent = append(c.sent, sentTx{contract: contract, calldata: calldata, opts: opts})
	return c.receipt, nil
}

func (c *fakeClient) BlockByTag(_ context.Context, _ string) (*mosaic.BlockInfo, error) {
	return &mosaic.BlockInfo{Number: big.NewInt(100)}, nil
}

func (c *fakeClient) callCount(sel string) int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.calls[sel]
}

func (c *fakeClient) sentCount() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return len(c.sent)
}
