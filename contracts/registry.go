package contracts

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	lru "github.com/hashicorp/golang-lru"

	"github.com/mosaicdao/go-mosaic"
)

// Contract names resolvable by the default registry.
const (
	EIP20GatewayContract   = "EIP20Gateway"
	EIP20CoGatewayContract = "EIP20CoGateway"
	AnchorContract         = "Anchor"
	EIP20TokenContract     = "EIP20Token"
)

const parsedABICacheSize = 16

// Registry is the default mosaic.ContractRegistry. It ships the ABI
// fragments of the mosaic contracts this library drives and parses each at
// most once, keeping the parsed form in an ARC cache.
type Registry struct {
	parsed *lru.ARCCache
}

func NewRegistry() *Registry {
	cache, _ := lru.NewARC(parsedABICacheSize)
	return &Registry{parsed: cache}
}

func (r *Registry) Definition(name string) (*mosaic.ContractDefinition, error) {
	if cached, ok := r.parsed.Get(name); ok {
		return cached.(*mosaic.ContractDefinition), nil
	}
	raw, ok := contractABIs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", mosaic.ErrContractNotFound, name)
	}
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", mosaic.ErrContractNotFound, name, err)
	}
	def := &mosaic.ContractDefinition{Name: name, ABI: parsed}
	r.parsed.Add(name, def)
	return def, nil
}

// ABI fragments limited to the methods this library invokes. Events and
// setup-time methods of the deployed contracts are intentionally absent.
var contractABIs = map[string]string{
	EIP20GatewayContract: `[
		{"type":"function","name":"bounty","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
		{"type":"function","name":"baseToken","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
		{"type":"function","name":"valueToken","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
		{"type":"function","name":"stateRootProvider","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
		{"type":"function","name":"getNonce","stateMutability":"view","inputs":[{"name":"_account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
		{"type":"function","name":"getOutboxMessageStatus","stateMutability":"view","inputs":[{"name":"_messageHash","type":"bytes32"}],"outputs":[{"name":"","type":"uint8"}]},
		{"type":"function","name":"getInboxMessageStatus","stateMutability":"view","inputs":[{"name":"_messageHash","type":"bytes32"}],"outputs":[{"name":"","type":"uint8"}]},
		{"type":"function","name":"stake","stateMutability":"nonpayable","inputs":[{"name":"_amount","type":"uint256"},{"name":"_beneficiary","type":"address"},{"name":"_gasPrice","type":"uint256"},{"name":"_gasLimit","type":"uint256"},{"name":"_nonce","type":"uint256"},{"name":"_hashLock","type":"bytes32"}],"outputs":[{"name":"messageHash_","type":"bytes32"}]},
		{"type":"function","name":"progressStake","stateMutability":"nonpayable","inputs":[{"name":"_messageHash","type":"bytes32"},{"name":"_unlockSecret","type":"bytes32"}],"outputs":[{"name":"staker_","type":"address"},{"name":"stakeAmount_","type":"uint256"}]},
		{"type":"function","name":"confirmRedeemIntent","stateMutability":"nonpayable","inputs":[{"name":"_redeemer","type":"address"},{"name":"_redeemerNonce","type":"uint256"},{"name":"_beneficiary","type":"address"},{"name":"_amount","type":"uint256"},{"name":"_gasPrice","type":"uint256"},{"name":"_gasLimit","type":"uint256"},{"name":"_blockHeight","type":"uint256"},{"name":"_hashLock","type":"bytes32"},{"name":"_rlpParentNodes","type":"bytes"}],"outputs":[{"name":"messageHash_","type":"bytes32"}]},
		{"type":"function","name":"progressUnstake","stateMutability":"nonpayable","inputs":[{"name":"_messageHash","type":"bytes32"},{"name":"_unlockSecret","type":"bytes32"}],"outputs":[{"name":"redeemAmount_","type":"uint256"},{"name":"unstakeAmount_","type":"uint256"},{"name":"rewardAmount_","type":"uint256"}]},
		{"type":"function","name":"proveGateway","stateMutability":"nonpayable","inputs":[{"name":"_blockHeight","type":"uint256"},{"name":"_rlpAccount","type":"bytes"},{"name":"_rlpParentNodes","type":"bytes"}],"outputs":[{"name":"","type":"bool"}]}
	]`,
	EIP20CoGatewayContract: `[
		{"type":"function","name":"bounty","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
		{"type":"function","name":"utilityToken","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
		{"type":"function","name":"valueToken","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
		{"type":"function","name":"stateRootProvider","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
		{"type":"function","name":"getNonce","stateMutability":"view","inputs":[{"name":"_account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
		{"type":"function","name":"getOutboxMessageStatus","stateMutability":"view","inputs":[{"name":"_messageHash","type":"bytes32"}],"outputs":[{"name":"","type":"uint8"}]},
		{"type":"function","name":"getInboxMessageStatus","stateMutability":"view","inputs":[{"name":"_messageHash","type":"bytes32"}],"outputs":[{"name":"","type":"uint8"}]},
		{"type":"function","name":"confirmStakeIntent","stateMutability":"nonpayable","inputs":[{"name":"_staker","type":"address"},{"name":"_stakerNonce","type":"uint256"},{"name":"_beneficiary","type":"address"},{"name":"_amount","type":"uint256"},{"name":"_gasPrice","type":"uint256"},{"name":"_gasLimit","type":"uint256"},{"name":"_hashLock","type":"bytes32"},{"name":"_blockHeight","type":"uint256"},{"name":"_rlpParentNodes","type":"bytes"}],"outputs":[{"name":"messageHash_","type":"bytes32"}]},
		{"type":"function","name":"progressMint","stateMutability":"nonpayable","inputs":[{"name":"_messageHash","type":"bytes32"},{"name":"_unlockSecret","type":"bytes32"}],"outputs":[{"name":"beneficiary_","type":"address"},{"name":"stakeAmount_","type":"uint256"},{"name":"mintedAmount_","type":"uint256"},{"name":"rewardAmount_","type":"uint256"}]},
		{"type":"function","name":"redeem","stateMutability":"payable","inputs":[{"name":"_amount","type":"uint256"},{"name":"_beneficiary","type":"address"},{"name":"_gasPrice","type":"uint256"},{"name":"_gasLimit","type":"uint256"},{"name":"_nonce","type":"uint256"},{"name":"_hashLock","type":"bytes32"}],"outputs":[{"name":"messageHash_","type":"bytes32"}]},
		{"type":"function","name":"progressRedeem","stateMutability":"nonpayable","inputs":[{"name":"_messageHash","type":"bytes32"},{"name":"_unlockSecret","type":"bytes32"}],"outputs":[{"name":"redeemer_","type":"address"},{"name":"redeemAmount_","type":"uint256"}]},
		{"type":"function","name":"proveGateway","stateMutability":"nonpayable","inputs":[{"name":"_blockHeight","type":"uint256"},{"name":"_rlpAccount","type":"bytes"},{"name":"_rlpParentNodes","type":"bytes"}],"outputs":[{"name":"","type":"bool"}]}
	]`,
	AnchorContract: `[
		{"type":"function","name":"getLatestStateRootBlockHeight","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
		{"type":"function","name":"getStateRoot","stateMutability":"view","inputs":[{"name":"_blockHeight","type":"uint256"}],"outputs":[{"name":"","type":"bytes32"}]},
		{"type":"function","name":"anchorStateRoot","stateMutability":"nonpayable","inputs":[{"name":"_blockHeight","type":"uint256"},{"name":"_stateRoot","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]}
	]`,
	EIP20TokenContract: `[
		{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"_owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
		{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"_owner","type":"address"},{"name":"_spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
		{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"_spender","type":"address"},{"name":"_value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
		{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"_to","type":"address"},{"name":"_value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
	]`,
}
