package core

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// EventKind labels the facilitation step a FacilitationEvent reports.
type EventKind uint8

const (
	// EventDeclared fires once the intent transaction is mined on the
	// outbox chain.
	EventDeclared EventKind = iota
	// EventConfirmed fires once the intent is confirmed on the inbox chain
	// with an anchored storage proof.
	EventConfirmed
	// EventProgressed fires after the unlock secret has been revealed; the
	// Origin/Auxiliary flags tell which sides reached finality.
	EventProgressed
	// EventRevoked fires when a revocation is observed instead of
	// progression.
	EventRevoked
)

var eventKindToString = map[EventKind]string{
	EventDeclared:   "declared",
	EventConfirmed:  "confirmed",
	EventProgressed: "progressed",
	EventRevoked:    "revoked",
}

func (k EventKind) String() string {
	str, ok := eventKindToString[k]
	if !ok {
		return "unknown"
	}
	return str
}

// FacilitationEvent is the single concrete type published on the
// facilitator's event feed, one value per protocol step. Fields beyond Kind,
// Direction and MessageHash are populated per step: declaration carries the
// actor and intent parameters, confirmation the receipt, progression the
// revealed secret and the per-side finality flags.
type FacilitationEvent struct {
	Kind        EventKind
	Direction   Direction
	MessageHash common.Hash

	// Actor is the staker or redeemer, per Direction.
	Actor       common.Address
	Amount      *big.Int
	Nonce       *big.Int
	BlockNumber *big.Int

	Receipt *types.Receipt

	UnlockSecret common.Hash
	// Origin and Auxiliary report which sides were finalized. Asymmetric
	// finality is valid: one true flag is an incomplete but legal outcome.
	Origin    bool
	Auxiliary bool
}
