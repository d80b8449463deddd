package journal

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"github.com/mosaicdao/go-mosaic/core"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(t.TempDir())
	assert.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func testRecord(hash common.Hash, direction core.Direction, status core.MessageStatus) *Record {
	return &Record{
		MessageHash: hash,
		Direction:   direction,
		Status:      status,
		Sender:      common.HexToAddress("0x0000000000000000000000000000000000000005"),
		Beneficiary: common.HexToAddress("0x0000000000000000000000000000000000000009"),
		Nonce:       big.NewInt(3),
		Amount:      big.NewInt(1000),
		GasPrice:    big.NewInt(1),
		GasLimit:    big.NewInt(100),
		HashLock:    common.HexToHash("0x0b2aa4c82a3b0187a087e030a26b71fc1a49e74d3776ae8e03876ea9153abbca"),
	}
}

func TestJournalRoundTrip(t *testing.T) {
	j := openTestJournal(t)
	hash := common.HexToHash("0x01")

	assert.NoError(t, j.Insert(testRecord(hash, core.DirectionStake, core.MessageDeclared)))

	got, err := j.Get(core.DirectionStake, hash)
	assert.NoError(t, err)
	assert.NotNil(t, got)
	assert.Equal(t, hash, got.MessageHash)
	assert.Equal(t, core.MessageDeclared, got.Status)
	assert.Equal(t, big.NewInt(1000), got.Amount)
	assert.NotZero(t, got.UpdatedAt)

	// Directions are separate keyspaces.
	missing, err := j.Get(core.DirectionRedeem, hash)
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestJournalGetAbsent(t *testing.T) {
	j := openTestJournal(t)
	got, err := j.Get(core.DirectionStake, common.HexToHash("0xff"))
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestJournalPendingSkipsTerminal(t *testing.T) {
	j := openTestJournal(t)

	assert.NoError(t, j.Insert(testRecord(common.HexToHash("0x01"), core.DirectionStake, core.MessageDeclared)))
	assert.NoError(t, j.Insert(testRecord(common.HexToHash("0x02"), core.DirectionStake, core.MessageProgressed)))
	assert.NoError(t, j.Insert(testRecord(common.HexToHash("0x03"), core.DirectionStake, core.MessageRevoked)))
	assert.NoError(t, j.Insert(testRecord(common.HexToHash("0x04"), core.DirectionRedeem, core.MessageDeclared)))

	pending, err := j.Pending(core.DirectionStake)
	assert.NoError(t, err)
	assert.Len(t, pending, 1)
	assert.Equal(t, common.HexToHash("0x01"), pending[0].MessageHash)

	pending, err = j.Pending(core.DirectionRedeem)
	assert.NoError(t, err)
	assert.Len(t, pending, 1)
	assert.Equal(t, common.HexToHash("0x04"), pending[0].MessageHash)
}

func TestJournalRemove(t *testing.T) {
	j := openTestJournal(t)
	hash := common.HexToHash("0x01")

	assert.NoError(t, j.Insert(testRecord(hash, core.DirectionStake, core.MessageDeclared)))
	assert.NoError(t, j.Remove(core.DirectionStake, hash))

	got, err := j.Get(core.DirectionStake, hash)
	assert.NoError(t, err)
	assert.Nil(t, got)

	// Removing an absent record is not an error.
	assert.NoError(t, j.Remove(core.DirectionStake, hash))
}

func TestJournalOverwrite(t *testing.T) {
	j := openTestJournal(t)
	hash := common.HexToHash("0x01")

	assert.NoError(t, j.Insert(testRecord(hash, core.DirectionStake, core.MessageDeclared)))

	record := testRecord(hash, core.DirectionStake, core.MessageProgressed)
	record.UnlockSecret = common.HexToHash("0x0c")
	assert.NoError(t, j.Insert(record))

	got, err := j.Get(core.DirectionStake, hash)
	assert.NoError(t, err)
	assert.Equal(t, core.MessageProgressed, got.Status)
	assert.Equal(t, common.HexToHash("0x0c"), got.UnlockSecret)
}
