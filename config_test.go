package mosaic

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mosaic.toml")
	blob := `
[Origin]
Endpoint = "http://127.0.0.1:8545"
Gateway = "0x0000000000000000000000000000000000000002"
Anchor = "0x0000000000000000000000000000000000000004"

[Auxiliary]
Endpoint = "http://127.0.0.1:8546"
CoGateway = "0x0000000000000000000000000000000000000003"
Anchor = "0x0000000000000000000000000000000000000006"
`
	assert.NoError(t, os.WriteFile(path, []byte(blob), 0o644))

	cfg, err := LoadConfig(path)
	assert.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8545", cfg.Origin.Endpoint)
	assert.Equal(t, common.HexToAddress("0x02"), cfg.Origin.Gateway)
	assert.Equal(t, common.HexToAddress("0x03"), cfg.Auxiliary.CoGateway)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestConfigSanitizeDefaults(t *testing.T) {
	var cfg Config
	out := cfg.Sanitize()
	assert.Equal(t, DefaultPollInterval, out.Origin.PollInterval)
	assert.Equal(t, DefaultWaitTimeout, out.Origin.WaitTimeout)
	assert.Equal(t, DefaultPollInterval, out.Auxiliary.PollInterval)

	cfg.Origin.PollInterval = time.Second
	out = cfg.Sanitize()
	assert.Equal(t, time.Second, out.Origin.PollInterval)
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{
		Origin: ChainConfig{
			Gateway: common.HexToAddress("0x02"),
			Anchor:  common.HexToAddress("0x04"),
		},
		Auxiliary: ChainConfig{
			CoGateway: common.HexToAddress("0x03"),
			Anchor:    common.HexToAddress("0x06"),
		},
	}
	assert.NoError(t, cfg.Validate())

	broken := cfg
	broken.Origin.Gateway = common.Address{}
	assert.ErrorIs(t, broken.Validate(), ErrInvalidArgument)

	broken = cfg
	broken.Auxiliary.Anchor = common.Address{}
	assert.ErrorIs(t, broken.Validate(), ErrInvalidArgument)
}
