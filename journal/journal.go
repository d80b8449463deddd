// Package journal persists in-flight facilitations so a restarted
// facilitator can pick up declared messages and drive them to progression
// instead of abandoning the bounty.
package journal

import (
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/mosaicdao/go-mosaic/core"
)

var (
	stakePrefix  = []byte("_stake_")
	redeemPrefix = []byte("_redeem_")
)

// Record is the durable form of one facilitation. The unlock secret is
// stored so progression can be resumed; the journal file carries the same
// trust as the facilitator key material and lives on the same host.
type Record struct {
	MessageHash  common.Hash
	Direction    core.Direction
	Status       core.MessageStatus
	Sender       common.Address
	Beneficiary  common.Address
	Nonce        *big.Int
	Amount       *big.Int
	GasPrice     *big.Int
	GasLimit     *big.Int
	HashLock     common.Hash
	UnlockSecret common.Hash
	UpdatedAt    uint64
}

// Journal is a leveldb-backed store of facilitation records keyed by
// direction and message hash.
type Journal struct {
	db   *leveldb.DB
	lock sync.Mutex
	log  log.Logger
}

func Open(path string) (*Journal, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &Journal{
		db:  db,
		log: log.New("module", "journal", "path", path),
	}, nil
}

func key(direction core.Direction, messageHash common.Hash) []byte {
	prefix := stakePrefix
	if direction == core.DirectionRedeem {
		prefix = redeemPrefix
	}
	return append(append([]byte{}, prefix...), messageHash.Bytes()...)
}

// Insert writes or overwrites the record for its message hash.
func (j *Journal) Insert(record *Record) error {
	record.UpdatedAt = uint64(time.Now().Unix())
	blob, err := rlp.EncodeToBytes(record)
	if err != nil {
		return err
	}
	j.lock.Lock()
	defer j.lock.Unlock()
	return j.db.Put(key(record.Direction, record.MessageHash), blob, nil)
}

// Get returns the record for a message, or nil if the journal has none.
func (j *Journal) Get(direction core.Direction, messageHash common.Hash) (*Record, error) {
	j.lock.Lock()
	defer j.lock.Unlock()

	blob, err := j.db.Get(key(direction, messageHash), nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var record Record
	if err := rlp.DecodeBytes(blob, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Pending lists all journaled messages of one direction that have not
// reached a terminal status. Corrupt entries are logged and skipped; one bad
// record must not strand the rest.
func (j *Journal) Pending(direction core.Direction) ([]*Record, error) {
	prefix := stakePrefix
	if direction == core.DirectionRedeem {
		prefix = redeemPrefix
	}

	j.lock.Lock()
	defer j.lock.Unlock()

	var pending []*Record
	it := j.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer it.Release()
	for it.Next() {
		var record Record
		if err := rlp.DecodeBytes(it.Value(), &record); err != nil {
			j.log.Warn("Skipping corrupt journal record", "key", common.Bytes2Hex(it.Key()), "err", err)
			continue
		}
		switch record.Status {
		case core.MessageProgressed, core.MessageRevoked:
			continue
		}
		pending = append(pending, &record)
	}
	return pending, it.Error()
}

// Remove drops the record for a message. Removing an absent record is not an
// error.
func (j *Journal) Remove(direction core.Direction, messageHash common.Hash) error {
	j.lock.Lock()
	defer j.lock.Unlock()
	return j.db.Delete(key(direction, messageHash), nil)
}

func (j *Journal) Close() error {
	return j.db.Close()
}
