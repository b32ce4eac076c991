package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all client configuration loaded from environment variables.
// Every field is optional: a missing RPC URL falls back to the public
// endpoint list, and a missing stable-asset address disables that asset.
type Config struct {
	RPCURL          string `envconfig:"PRESALE_RPC_URL"`
	ContractAddress string `envconfig:"PRESALE_CONTRACT_ADDRESS"`
	USDTAddress     string `envconfig:"PRESALE_USDT_ADDRESS"`
	USDCAddress     string `envconfig:"PRESALE_USDC_ADDRESS"`
	APIURL          string `envconfig:"PRESALE_API_URL" default:"http://localhost:3004"`
}

// Load reads configuration from a .env file (if present) then from the
// environment. Real environment variables take precedence over .env values
// because godotenv never overrides already-set variables.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		godotenv.Load(".env") //nolint:errcheck — a broken .env is not fatal, env vars still apply
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("processing env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that every configured address parses as a hex address.
func (c *Config) Validate() error {
	for name, addr := range map[string]string{
		"PRESALE_CONTRACT_ADDRESS": c.ContractAddress,
		"PRESALE_USDT_ADDRESS":     c.USDTAddress,
		"PRESALE_USDC_ADDRESS":     c.USDCAddress,
	} {
		if addr != "" && !common.IsHexAddress(addr) {
			return fmt.Errorf("%s: %q is not a valid address", name, addr)
		}
	}
	return nil
}

// Endpoints returns the RPC endpoints to use, in priority order: the
// configured URL first (when set), then the public fallbacks.
func (c *Config) Endpoints() []string {
	if c.RPCURL == "" {
		return FallbackRPCURLs
	}
	urls := []string{c.RPCURL}
	for _, u := range FallbackRPCURLs {
		if !strings.EqualFold(u, c.RPCURL) {
			urls = append(urls, u)
		}
	}
	return urls
}
