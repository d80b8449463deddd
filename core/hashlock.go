package core

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/mosaicdao/go-mosaic"
)

const secretLength = 16

// HashLock is the commit-reveal pair gating progression of a message.
// Lock is recorded on-chain at declaration; UnlockSecret is revealed when the
// facilitator progresses the message. A secret is used for exactly one
// message: any observer of a revealed secret can progress a message locked
// with it.
type HashLock struct {
	Secret       string
	UnlockSecret common.Hash
	Lock         common.Hash
}

// NewHashLock draws a fresh 16 byte secret from the OS entropy source and
// derives the commitment pair: UnlockSecret = keccak256(secret),
// Lock = keccak256(UnlockSecret).
func NewHashLock() (*HashLock, error) {
	return newHashLock(rand.Reader)
}

// newHashLock exists so tests can inject a deterministic or failing source.
func newHashLock(entropy io.Reader) (*HashLock, error) {
	secret := make([]byte, secretLength)
	if _, err := io.ReadFull(entropy, secret); err != nil {
		return nil, fmt.Errorf("%w: %v", mosaic.ErrEntropyUnavailable, err)
	}
	return HashLockFromSecret(hexutil.Encode(secret))
}

// HashLockFromSecret deterministically reconstructs the commitment pair from
// a known secret, for tests and recovery flows.
func HashLockFromSecret(secret string) (*HashLock, error) {
	if secret == "" {
		return nil, mosaic.InvalidArgumentf("secret", secret)
	}
	unlockSecret := crypto.Keccak256Hash([]byte(secret))
	return &HashLock{
		Secret:       secret,
		UnlockSecret: unlockSecret,
		Lock:         crypto.Keccak256Hash(unlockSecret.Bytes()),
	}, nil
}

// VerifyUnlockSecret reports whether unlockSecret opens lock.
func VerifyUnlockSecret(lock, unlockSecret common.Hash) bool {
	return crypto.Keccak256Hash(unlockSecret.Bytes()) == lock
}
