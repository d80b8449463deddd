// Package facilitator composes the gateway, cogateway and anchor handles
// into the single-call operations a facilitator runs: declare a transfer,
// wait for the counter-chain anchor, confirm with a proof, then reveal the
// unlock secret on both sides.
package facilitator

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/errgroup"

	"github.com/mosaicdao/go-mosaic"
	"github.com/mosaicdao/go-mosaic/contracts"
	"github.com/mosaicdao/go-mosaic/core"
	"github.com/mosaicdao/go-mosaic/journal"
)

// MessageEndpoint is one side's full message surface: the shared read model
// plus the two progression writes. Gateway progresses stake (outbox) and
// unstake (inbox); CoGateway progresses redeem (outbox) and mint (inbox).
type MessageEndpoint interface {
	contracts.MessageTracker
	ProgressOutbox(ctx context.Context, messageHash, unlockSecret common.Hash, opts *mosaic.TxOptions) (*types.Receipt, error)
	ProgressInbox(ctx context.Context, messageHash, unlockSecret common.Hash, opts *mosaic.TxOptions) (*types.Receipt, error)
}

// GatewayEndpoint is what the facilitator needs from the origin-chain
// gateway.
type GatewayEndpoint interface {
	MessageEndpoint
	Address() common.Address
	IsBountyAmountApproved(ctx context.Context, facilitator common.Address) (bool, error)
	IsStakeAmountApproved(ctx context.Context, staker common.Address, amount *big.Int) (bool, error)
	Stake(ctx context.Context, amount *big.Int, beneficiary common.Address, gasPrice, gasLimit, nonce *big.Int, hashLock common.Hash, opts *mosaic.TxOptions) (*types.Receipt, error)
	ConfirmRedeemIntent(ctx context.Context, redeemer common.Address, redeemerNonce *big.Int, beneficiary common.Address, amount, gasPrice, gasLimit, blockHeight *big.Int, hashLock common.Hash, rlpParentNodes []byte, opts *mosaic.TxOptions) (*types.Receipt, error)
	ProveGateway(ctx context.Context, blockHeight *big.Int, rlpAccount, rlpParentNodes []byte, opts *mosaic.TxOptions) (*types.Receipt, error)
}

// CoGatewayEndpoint is what the facilitator needs from the auxiliary-chain
// cogateway.
type CoGatewayEndpoint interface {
	MessageEndpoint
	Address() common.Address
	IsRedeemAmountApproved(ctx context.Context, redeemer common.Address, amount *big.Int) (bool, error)
	Redeem(ctx context.Context, amount *big.Int, beneficiary common.Address, gasPrice, gasLimit, nonce *big.Int, hashLock common.Hash, opts *mosaic.TxOptions) (*types.Receipt, error)
	ConfirmStakeIntent(ctx context.Context, staker common.Address, stakerNonce *big.Int, beneficiary common.Address, amount, gasPrice, gasLimit *big.Int, hashLock common.Hash, blockHeight *big.Int, rlpParentNodes []byte, opts *mosaic.TxOptions) (*types.Receipt, error)
	ProveGateway(ctx context.Context, blockHeight *big.Int, rlpAccount, rlpParentNodes []byte, opts *mosaic.TxOptions) (*types.Receipt, error)
}

// AnchorEndpoint is the liveness gate between the two chains.
type AnchorEndpoint interface {
	WaitForCommitAtLeast(ctx context.Context, target *big.Int, interval, timeout time.Duration) error
}

var (
	_ GatewayEndpoint   = (*contracts.Gateway)(nil)
	_ CoGatewayEndpoint = (*contracts.CoGateway)(nil)
	_ AnchorEndpoint    = (*contracts.Anchor)(nil)
)

// StakeRequest declares the parameters of one stake-and-mint transfer. The
// transaction sender (opts.From) acts as staker and facilitator in one.
type StakeRequest struct {
	Amount      *big.Int
	Beneficiary common.Address
	GasPrice    *big.Int
	GasLimit    *big.Int
}

// RedeemRequest mirrors StakeRequest for redeem-and-unstake.
type RedeemRequest struct {
	Amount      *big.Int
	Beneficiary common.Address
	GasPrice    *big.Int
	GasLimit    *big.Int
}

// Result carries the artifacts of a completed facilitation. HashLock retains
// the secret; callers persisting it must treat it like key material until
// both sides progress.
type Result struct {
	MessageHash common.Hash
	HashLock    *core.HashLock

	DeclareReceipt  *types.Receipt
	ConfirmReceipt  *types.Receipt
	ProgressReceipt *types.Receipt

	// OutboxProgressed and InboxProgressed report per-side finality.
	// One-sided finality is incomplete but legal.
	OutboxProgressed bool
	InboxProgressed  bool
}

// Facilitator is bound at construction to one gateway/cogateway pair and the
// two anchors between their chains. It holds no signing material; every
// write goes through the chain clients with the caller's TxOptions.
type Facilitator struct {
	gateway   GatewayEndpoint
	cogateway CoGatewayEndpoint

	// originAnchor lives on the origin chain and commits auxiliary state
	// roots; auxiliaryAnchor is the reverse.
	originAnchor    AnchorEndpoint
	auxiliaryAnchor AnchorEndpoint

	originProofs    mosaic.ProofProvider
	auxiliaryProofs mosaic.ProofProvider

	originCfg    mosaic.ChainConfig
	auxiliaryCfg mosaic.ChainConfig

	journal *journal.Journal // nil disables persistence
	monitor *Monitor

	feed  event.Feed
	scope event.SubscriptionScope
	log   log.Logger
}

func New(m *Mosaic, j *journal.Journal) *Facilitator {
	return &Facilitator{
		gateway:         m.Gateway,
		cogateway:       m.CoGateway,
		originAnchor:    m.OriginAnchor,
		auxiliaryAnchor: m.AuxiliaryAnchor,
		originProofs:    m.Origin.Proofs,
		auxiliaryProofs: m.Auxiliary.Proofs,
		originCfg:       m.Config.Origin,
		auxiliaryCfg:    m.Config.Auxiliary,
		journal:         j,
		monitor:         NewMonitor(),
		log:             log.New("module", "facilitator", "gateway", m.Gateway.Address()),
	}
}

// Monitor exposes the in-memory view of recently facilitated messages.
func (f *Facilitator) Monitor() *Monitor {
	return f.monitor
}

// SubscribeEvents delivers facilitation step events until the subscription
// is closed.
func (f *Facilitator) SubscribeEvents(ch chan<- core.FacilitationEvent) event.Subscription {
	return f.scope.Track(f.feed.Subscribe(ch))
}

// Close tears down event subscriptions. The journal, owned by the caller, is
// left open.
func (f *Facilitator) Close() {
	f.scope.Close()
}

// PerformStake drives a full stake-and-mint: approval checks, nonce
// resolution, hash-lock generation, declaration on the gateway, anchor wait
// on the auxiliary side, intent confirmation with the storage proof, then
// progression of both sides. It returns once the origin-side progression is
// mined; a failed auxiliary progression is reported in the result, not as an
// error.
func (f *Facilitator) PerformStake(ctx context.Context, req *StakeRequest, opts *mosaic.TxOptions) (*Result, error) {
	if req == nil {
		return nil, mosaic.InvalidArgumentf("stake request", nil)
	}
	if !core.ValidAmount(req.Amount) {
		return nil, mosaic.InvalidAmountf("stake amount", req.Amount)
	}
	if req.Beneficiary == (common.Address{}) {
		return nil, mosaic.InvalidArgumentf("beneficiary address", req.Beneficiary.Hex())
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	// The two approval preconditions are independent reads; check them
	// concurrently and fail on the first violation.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		approved, err := f.gateway.IsBountyAmountApproved(gctx, opts.From)
		if err != nil {
			return err
		}
		if !approved {
			return fmt.Errorf("%w: bounty amount for %s, call ApproveBountyAmount first", mosaic.ErrNotApproved, opts.From.Hex())
		}
		return nil
	})
	g.Go(func() error {
		approved, err := f.gateway.IsStakeAmountApproved(gctx, opts.From, req.Amount)
		if err != nil {
			return err
		}
		if !approved {
			return fmt.Errorf("%w: stake amount %v for %s, call ApproveStakeAmount first", mosaic.ErrNotApproved, req.Amount, opts.From.Hex())
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	nonce, err := f.gateway.Nonce(ctx, opts.From)
	if err != nil {
		return nil, err
	}
	hashLock, err := core.NewHashLock()
	if err != nil {
		return nil, err
	}

	message := &core.Message{
		Sender:      opts.From,
		Nonce:       nonce,
		Amount:      req.Amount,
		Beneficiary: req.Beneficiary,
		GasPrice:    req.GasPrice,
		GasLimit:    req.GasLimit,
		HashLock:    hashLock.Lock,
	}
	result := &Result{MessageHash: message.Hash(), HashLock: hashLock}

	declareReceipt, err := f.gateway.Stake(ctx, req.Amount, req.Beneficiary, req.GasPrice, req.GasLimit, nonce, hashLock.Lock, opts)
	if err != nil {
		return nil, err
	}
	result.DeclareReceipt = declareReceipt
	f.transition(core.DirectionStake, message, core.MessageDeclared)
	f.feed.Send(core.FacilitationEvent{
		Kind:        core.EventDeclared,
		Direction:   core.DirectionStake,
		MessageHash: result.MessageHash,
		Actor:       opts.From,
		Amount:      req.Amount,
		Nonce:       nonce,
		BlockNumber: declareReceipt.BlockNumber,
	})
	f.log.Info("Stake declared", "messageHash", result.MessageHash, "amount", req.Amount, "nonce", nonce)

	// Confirmation on the auxiliary side is gated on its anchor having
	// committed an origin state root at or above the declaration block.
	if err := f.auxiliaryAnchor.WaitForCommitAtLeast(ctx, declareReceipt.BlockNumber, f.auxiliaryCfg.PollInterval, f.auxiliaryCfg.WaitTimeout); err != nil {
		return result, err
	}

	proof, err := f.originProofs.StorageProof(ctx, f.gateway.Address(), []common.Hash{result.MessageHash}, declareReceipt.BlockNumber)
	if err != nil {
		return result, err
	}
	// The cogateway checks the storage proof against the proven gateway
	// account, so the account proof must land first.
	if _, err := f.cogateway.ProveGateway(ctx, proof.BlockNumber, proof.EncodedAccount, proof.AccountProof, opts); err != nil {
		return result, err
	}
	confirmReceipt, err := f.cogateway.ConfirmStakeIntent(ctx, opts.From, nonce, req.Beneficiary, req.Amount, req.GasPrice, req.GasLimit, hashLock.Lock, proof.BlockNumber, proof.StorageProof, opts)
	if err != nil {
		return result, err
	}
	result.ConfirmReceipt = confirmReceipt
	f.feed.Send(core.FacilitationEvent{
		Kind:        core.EventConfirmed,
		Direction:   core.DirectionStake,
		MessageHash: result.MessageHash,
		BlockNumber: proof.BlockNumber,
		Receipt:     confirmReceipt,
	})
	f.log.Info("Stake intent confirmed", "messageHash", result.MessageHash, "blockHeight", proof.BlockNumber)

	message.UnlockSecret = hashLock.UnlockSecret
	progressReceipt, inboxProgressed, err := f.progressBoth(ctx, f.gateway, f.cogateway, result.MessageHash, hashLock.UnlockSecret, opts)
	if err != nil {
		return result, err
	}
	result.ProgressReceipt = progressReceipt
	result.OutboxProgressed = true
	result.InboxProgressed = inboxProgressed
	f.transition(core.DirectionStake, message, core.MessageProgressed)
	f.feed.Send(core.FacilitationEvent{
		Kind:         core.EventProgressed,
		Direction:    core.DirectionStake,
		MessageHash:  result.MessageHash,
		UnlockSecret: hashLock.UnlockSecret,
		Origin:       true,
		Auxiliary:    inboxProgressed,
	})
	f.log.Info("Stake progressed", "messageHash", result.MessageHash, "auxiliary", inboxProgressed)
	return result, nil
}

// PerformRedeem drives a full redeem-and-unstake. The mirror of
// PerformStake, with the cogateway as outbox, the origin anchor as the wait
// gate, and the bounty attached as transaction value instead of an EIP-20
// approval.
func (f *Facilitator) PerformRedeem(ctx context.Context, req *RedeemRequest, opts *mosaic.TxOptions) (*Result, error) {
	if req == nil {
		return nil, mosaic.InvalidArgumentf("redeem request", nil)
	}
	if !core.ValidAmount(req.Amount) {
		return nil, mosaic.InvalidAmountf("redeem amount", req.Amount)
	}
	if req.Beneficiary == (common.Address{}) {
		return nil, mosaic.InvalidArgumentf("beneficiary address", req.Beneficiary.Hex())
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	approved, err := f.cogateway.IsRedeemAmountApproved(ctx, opts.From, req.Amount)
	if err != nil {
		return nil, err
	}
	if !approved {
		return nil, fmt.Errorf("%w: redeem amount %v for %s, call ApproveRedeemAmount first", mosaic.ErrNotApproved, req.Amount, opts.From.Hex())
	}

	nonce, err := f.cogateway.Nonce(ctx, opts.From)
	if err != nil {
		return nil, err
	}
	hashLock, err := core.NewHashLock()
	if err != nil {
		return nil, err
	}

	message := &core.Message{
		Sender:      opts.From,
		Nonce:       nonce,
		Amount:      req.Amount,
		Beneficiary: req.Beneficiary,
		GasPrice:    req.GasPrice,
		GasLimit:    req.GasLimit,
		HashLock:    hashLock.Lock,
	}
	result := &Result{MessageHash: message.Hash(), HashLock: hashLock}

	declareReceipt, err := f.cogateway.Redeem(ctx, req.Amount, req.Beneficiary, req.GasPrice, req.GasLimit, nonce, hashLock.Lock, opts)
	if err != nil {
		return nil, err
	}
	result.DeclareReceipt = declareReceipt
	f.transition(core.DirectionRedeem, message, core.MessageDeclared)
	f.feed.Send(core.FacilitationEvent{
		Kind:        core.EventDeclared,
		Direction:   core.DirectionRedeem,
		MessageHash: result.MessageHash,
		Actor:       opts.From,
		Amount:      req.Amount,
		Nonce:       nonce,
		BlockNumber: declareReceipt.BlockNumber,
	})
	f.log.Info("Redeem declared", "messageHash", result.MessageHash, "amount", req.Amount, "nonce", nonce)

	if err := f.originAnchor.WaitForCommitAtLeast(ctx, declareReceipt.BlockNumber, f.originCfg.PollInterval, f.originCfg.WaitTimeout); err != nil {
		return result, err
	}

	proof, err := f.auxiliaryProofs.StorageProof(ctx, f.cogateway.Address(), []common.Hash{result.MessageHash}, declareReceipt.BlockNumber)
	if err != nil {
		return result, err
	}
	if _, err := f.gateway.ProveGateway(ctx, proof.BlockNumber, proof.EncodedAccount, proof.AccountProof, opts); err != nil {
		return result, err
	}
	confirmReceipt, err := f.gateway.ConfirmRedeemIntent(ctx, opts.From, nonce, req.Beneficiary, req.Amount, req.GasPrice, req.GasLimit, proof.BlockNumber, hashLock.Lock, proof.StorageProof, opts)
	if err != nil {
		return result, err
	}
	result.ConfirmReceipt = confirmReceipt
	f.feed.Send(core.FacilitationEvent{
		Kind:        core.EventConfirmed,
		Direction:   core.DirectionRedeem,
		MessageHash: result.MessageHash,
		BlockNumber: proof.BlockNumber,
		Receipt:     confirmReceipt,
	})
	f.log.Info("Redeem intent confirmed", "messageHash", result.MessageHash, "blockHeight", proof.BlockNumber)

	message.UnlockSecret = hashLock.UnlockSecret
	progressReceipt, inboxProgressed, err := f.progressBoth(ctx, f.cogateway, f.gateway, result.MessageHash, hashLock.UnlockSecret, opts)
	if err != nil {
		return result, err
	}
	result.ProgressReceipt = progressReceipt
	result.OutboxProgressed = true
	result.InboxProgressed = inboxProgressed
	f.transition(core.DirectionRedeem, message, core.MessageProgressed)
	f.feed.Send(core.FacilitationEvent{
		Kind:         core.EventProgressed,
		Direction:    core.DirectionRedeem,
		MessageHash:  result.MessageHash,
		UnlockSecret: hashLock.UnlockSecret,
		Origin:       inboxProgressed,
		Auxiliary:    true,
	})
	f.log.Info("Redeem progressed", "messageHash", result.MessageHash, "origin", inboxProgressed)
	return result, nil
}

// PerformProgressStake progresses a previously declared and confirmed stake:
// the gateway outbox is progressed exactly once after the status policy
// check, then the cogateway inbox if it is progressable.
func (f *Facilitator) PerformProgressStake(ctx context.Context, messageHash, unlockSecret common.Hash, opts *mosaic.TxOptions) (bool, error) {
	_, _, err := f.performProgress(ctx, core.DirectionStake, f.gateway, f.cogateway, messageHash, unlockSecret, opts)
	return err == nil, err
}

// PerformProgressRedeem progresses a previously declared and confirmed
// redeem: the cogateway outbox first, then the gateway inbox.
func (f *Facilitator) PerformProgressRedeem(ctx context.Context, messageHash, unlockSecret common.Hash, opts *mosaic.TxOptions) (bool, error) {
	_, _, err := f.performProgress(ctx, core.DirectionRedeem, f.cogateway, f.gateway, messageHash, unlockSecret, opts)
	return err == nil, err
}

func (f *Facilitator) performProgress(ctx context.Context, direction core.Direction, outbox, inbox MessageEndpoint, messageHash, unlockSecret common.Hash, opts *mosaic.TxOptions) (*types.Receipt, bool, error) {
	if messageHash == (common.Hash{}) {
		return nil, false, mosaic.InvalidArgumentf("message hash", messageHash.Hex())
	}
	if unlockSecret == (common.Hash{}) {
		return nil, false, mosaic.InvalidArgumentf("unlock secret", unlockSecret.Hex())
	}
	if err := opts.Validate(); err != nil {
		return nil, false, err
	}

	receipt, inboxProgressed, err := f.progressBoth(ctx, outbox, inbox, messageHash, unlockSecret, opts)
	if err != nil {
		return nil, false, err
	}
	if f.journal != nil {
		if record, jerr := f.journal.Get(direction, messageHash); jerr == nil && record != nil {
			record.Status = core.MessageProgressed
			record.UnlockSecret = unlockSecret
			if jerr := f.journal.Insert(record); jerr != nil {
				f.log.Warn("Journal update failed", "messageHash", messageHash, "err", jerr)
			}
		}
	}
	f.monitor.Track(messageHash, core.MessageProgressed)
	return receipt, inboxProgressed, nil
}

// progressBoth checks the outbox status policy, progresses the outbox, and
// then attempts the inbox. The outbox must be progressable; submitting
// against any other status would only buy a guaranteed revert. A failed or
// not-yet-confirmed inbox is tolerated: one-sided finality is legal, the
// remaining side can be progressed later by anyone holding the secret.
func (f *Facilitator) progressBoth(ctx context.Context, outbox, inbox MessageEndpoint, messageHash, unlockSecret common.Hash, opts *mosaic.TxOptions) (*types.Receipt, bool, error) {
	status, err := outbox.OutboxMessageStatus(ctx, messageHash)
	if err != nil {
		return nil, false, err
	}
	if !status.Progressable() {
		return nil, false, fmt.Errorf("%w: message %s outbox status is %s", mosaic.ErrMessageNotProgressable, messageHash.Hex(), status)
	}

	receipt, err := outbox.ProgressOutbox(ctx, messageHash, unlockSecret, opts)
	if err != nil {
		return nil, false, err
	}

	inboxStatus, err := inbox.InboxMessageStatus(ctx, messageHash)
	if err != nil {
		f.log.Warn("Inbox status read failed, leaving inbox unprogressed", "messageHash", messageHash, "err", err)
		return receipt, false, nil
	}
	switch {
	case inboxStatus == core.MessageProgressed:
		return receipt, true, nil
	case !inboxStatus.Progressable():
		f.log.Warn("Inbox not progressable", "messageHash", messageHash, "status", inboxStatus)
		return receipt, false, nil
	}
	if _, err := inbox.ProgressInbox(ctx, messageHash, unlockSecret, opts); err != nil {
		f.log.Warn("Inbox progression failed", "messageHash", messageHash, "err", err)
		return receipt, false, nil
	}
	return receipt, true, nil
}

// transition records a message state change in the monitor and, when
// configured, the journal.
func (f *Facilitator) transition(direction core.Direction, message *core.Message, status core.MessageStatus) {
	hash := message.Hash()
	f.monitor.Track(hash, status)
	if f.journal == nil {
		return
	}
	err := f.journal.Insert(&journal.Record{
		MessageHash:  hash,
		Direction:    direction,
		Status:       status,
		Sender:       message.Sender,
		Beneficiary:  message.Beneficiary,
		Nonce:        message.Nonce,
		Amount:       message.Amount,
		GasPrice:     message.GasPrice,
		GasLimit:     message.GasLimit,
		HashLock:     message.HashLock,
		UnlockSecret: message.UnlockSecret,
	})
	if err != nil {
		f.log.Warn("Journal write failed", "messageHash", hash, "err", err)
	}
}

// Resume re-drives journaled facilitations that never reached a terminal
// status, progressing whatever the chains will accept. Messages whose
// counterpart has revoked are recorded as such and dropped from the pending
// set.
func (f *Facilitator) Resume(ctx context.Context, opts *mosaic.TxOptions) error {
	if f.journal == nil {
		return nil
	}
	if err := opts.Validate(); err != nil {
		return err
	}
	for _, direction := range []core.Direction{core.DirectionStake, core.DirectionRedeem} {
		pending, err := f.journal.Pending(direction)
		if err != nil {
			return err
		}
		outbox, inbox := f.endpoints(direction)
		for _, record := range pending {
			if record.UnlockSecret == (common.Hash{}) {
				// Declared but never confirmed before shutdown; without a
				// fresh anchor wait and proof the flow cannot be resumed
				// blindly. Left journaled for the operator.
				f.log.Warn("Pending facilitation has no revealed secret", "messageHash", record.MessageHash, "direction", direction)
				continue
			}
			if _, _, err := f.progressBoth(ctx, outbox, inbox, record.MessageHash, record.UnlockSecret, opts); err != nil {
				f.log.Warn("Resume progression failed", "messageHash", record.MessageHash, "err", err)
				continue
			}
			record.Status = core.MessageProgressed
			if err := f.journal.Insert(record); err != nil {
				f.log.Warn("Journal update failed", "messageHash", record.MessageHash, "err", err)
			}
			f.monitor.Track(record.MessageHash, core.MessageProgressed)
		}
	}
	return nil
}

func (f *Facilitator) endpoints(direction core.Direction) (outbox, inbox MessageEndpoint) {
	if direction == core.DirectionRedeem {
		return f.cogateway, f.gateway
	}
	return f.gateway, f.cogateway
}
