package mosaic

import (
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/naoina/toml"
)

// Polling defaults applied by Sanitize when a chain config leaves them unset.
// There is no infinite anchor wait: a zero timeout is replaced, never kept.
const (
	DefaultPollInterval = 10 * time.Second
	DefaultWaitTimeout  = 10 * time.Minute
)

// ChainConfig locates the deployed contracts on one chain and bounds the
// anchor polling performed against it.
type ChainConfig struct {
	// Endpoint is the RPC endpoint of the chain, recorded for the caller
	// constructing the chain client; this library never dials it directly.
	Endpoint string

	Gateway   common.Address
	CoGateway common.Address
	Anchor    common.Address

	PollInterval time.Duration
	WaitTimeout  time.Duration
}

// Config binds the two chains of one mosaic: the value (origin) chain and
// the utility (auxiliary) chain.
type Config struct {
	Origin    ChainConfig
	Auxiliary ChainConfig
}

// LoadConfig reads a TOML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Sanitize returns a copy with polling defaults filled in.
func (cfg *Config) Sanitize() Config {
	out := *cfg
	out.Origin = cfg.Origin.sanitize()
	out.Auxiliary = cfg.Auxiliary.sanitize()
	return out
}

func (c ChainConfig) sanitize() ChainConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.WaitTimeout <= 0 {
		c.WaitTimeout = DefaultWaitTimeout
	}
	return c
}

// Validate rejects a config whose contract addresses are unset on the side
// that needs them: the gateway lives on origin, the cogateway on auxiliary,
// and each side anchors the other chain's state roots.
func (cfg *Config) Validate() error {
	if cfg.Origin.Gateway == (common.Address{}) {
		return InvalidArgumentf("origin gateway address", cfg.Origin.Gateway.Hex())
	}
	if cfg.Auxiliary.CoGateway == (common.Address{}) {
		return InvalidArgumentf("auxiliary cogateway address", cfg.Auxiliary.CoGateway.Hex())
	}
	if cfg.Origin.Anchor == (common.Address{}) {
		return InvalidArgumentf("origin anchor address", cfg.Origin.Anchor.Hex())
	}
	if cfg.Auxiliary.Anchor == (common.Address{}) {
		return InvalidArgumentf("auxiliary anchor address", cfg.Auxiliary.Anchor.Hex())
	}
	return nil
}
