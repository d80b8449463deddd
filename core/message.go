package core

import (
	"bytes"
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/mosaicdao/go-mosaic"
)

// MessageStatus is the lifecycle state of a cross-chain message as observed
// on one side (inbox or outbox) of the transfer. The two sides evolve
// independently but are correlated by the message hash.
type MessageStatus uint8

/**
  origin outbox                          auxiliary inbox

  Undeclared                             Undeclared
      | stake/redeem                         | confirm*Intent
  Declared ------- anchored proof ------> Declared
      | progress* (reveal unlock secret)     | progress*
  Progressed                             Progressed

  either Declared side may instead take the revocation branch:
  Declared -> DeclaredRevocation -> Revoked
*/
const (
	// MessageUndeclared is the status of a message hash the contract has
	// never seen.
	MessageUndeclared MessageStatus = iota
	// MessageDeclared is the status of a message whose intent transaction
	// has been mined.
	MessageDeclared
	// MessageProgressed is the terminal success status.
	MessageProgressed
	// MessageDeclaredRevocation is the status of a message whose sender has
	// begun revoking it.
	MessageDeclaredRevocation
	// MessageRevoked is the terminal revocation status.
	MessageRevoked
)

var messageStatusToString = map[MessageStatus]string{
	MessageUndeclared:         "undeclared",
	MessageDeclared:           "declared",
	MessageProgressed:         "progressed",
	MessageDeclaredRevocation: "declared_revocation",
	MessageRevoked:            "revoked",
}

func (s MessageStatus) String() string {
	str, ok := messageStatusToString[s]
	if !ok {
		return "unknown"
	}
	return str
}

func (s MessageStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *MessageStatus) UnmarshalText(input []byte) error {
	for k, v := range messageStatusToString {
		if v == string(input) {
			*s = k
			return nil
		}
	}
	return mosaic.InvalidArgumentf("message status", string(input))
}

// Progressable reports whether a message in this status may still be
// progressed. Only a declared message qualifies; revocation, once declared,
// wins.
func (s MessageStatus) Progressable() bool {
	return s == MessageDeclared
}

// Direction tells which chain a message's outbox lives on.
type Direction uint8

const (
	// DirectionStake moves value origin -> auxiliary (stake-and-mint).
	DirectionStake Direction = iota
	// DirectionRedeem moves value auxiliary -> origin (redeem-and-unstake).
	DirectionRedeem
)

func (d Direction) String() string {
	switch d {
	case DirectionStake:
		return "stake"
	case DirectionRedeem:
		return "redeem"
	default:
		return "unknown"
	}
}

// Message is one directional value-transfer intent between the two chains.
type Message struct {
	Sender      common.Address
	Nonce       *big.Int
	Amount      *big.Int
	Beneficiary common.Address
	GasPrice    *big.Int
	GasLimit    *big.Int
	HashLock    common.Hash

	// UnlockSecret stays empty until progression time; revealing it early
	// lets anyone progress the message.
	UnlockSecret common.Hash

	// caches
	hash atomic.Value
}

type messageDigest struct {
	Sender      common.Address
	Nonce       *big.Int
	Amount      *big.Int
	Beneficiary common.Address
	GasPrice    *big.Int
	GasLimit    *big.Int
	HashLock    common.Hash
}

// Hash derives the message identity from the declared intent parameters. The
// unlock secret is excluded: it is unknown to the destination side until
// progression.
func (m *Message) Hash() common.Hash {
	if hash := m.hash.Load(); hash != nil {
		return hash.(common.Hash)
	}
	var buf bytes.Buffer
	// Encoding a fixed shape struct of non-nil big ints cannot fail.
	rlp.Encode(&buf, &messageDigest{
		Sender:      m.Sender,
		Nonce:       bigOrZero(m.Nonce),
		Amount:      bigOrZero(m.Amount),
		Beneficiary: m.Beneficiary,
		GasPrice:    bigOrZero(m.GasPrice),
		GasLimit:    bigOrZero(m.GasLimit),
		HashLock:    m.HashLock,
	})
	h := crypto.Keccak256Hash(buf.Bytes())
	m.hash.Store(h)
	return h
}

func bigOrZero(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return x
}

// ValidAmount reports whether amount is a usable token amount: non-nil and
// strictly positive. Amounts are arbitrary precision; this library never
// touches floating point for token values.
func ValidAmount(amount *big.Int) bool {
	return amount != nil && amount.Sign() > 0
}
