package contracts

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mosaicdao/go-mosaic/core"
)

// MessageTracker is the message read model both Gateway and CoGateway
// expose: nonce resolution and the independent inbox/outbox status of a
// message on one chain. Stake and redeem flows are mirror images of each
// other; code that only reads message state should take this interface
// instead of a concrete handle.
type MessageTracker interface {
	Nonce(ctx context.Context, account common.Address) (*big.Int, error)
	OutboxMessageStatus(ctx context.Context, messageHash common.Hash) (core.MessageStatus, error)
	InboxMessageStatus(ctx context.Context, messageHash common.Hash) (core.MessageStatus, error)
}

var (
	_ MessageTracker = (*Gateway)(nil)
	_ MessageTracker = (*CoGateway)(nil)
)
