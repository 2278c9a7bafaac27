package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"hemdealer/pkg/chains"
)

// ChainConfig holds the per-chain endpoint and contract addresses.
type ChainConfig struct {
	RPCURL      string
	Marketplace string // HemDealer contract address
	Bridge      string // HemDealerCrossChain contract address
}

// Config holds the application configuration
type Config struct {
	PrivateKey    string
	QuoteBaseURL  string
	StoragePath   string
	TimeoutWindow time.Duration
	SweepInterval time.Duration
	Chains        map[uint64]ChainConfig
}

var globalConfig *Config

// Load reads configuration from environment variables and config file
func Load() (*Config, error) {
	viper.SetConfigName(".hemdealer")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(".")

	// Set default values
	viper.SetDefault("quote_base_url", "https://across.to")
	viper.SetDefault("timeout_window", "900s")
	viper.SetDefault("sweep_interval", "30s")

	// Read from environment variables
	viper.SetEnvPrefix("HEMDEALER")
	viper.AutomaticEnv()

	// Read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		PrivateKey:    viper.GetString("private_key"),
		QuoteBaseURL:  viper.GetString("quote_base_url"),
		StoragePath:   viper.GetString("storage_path"),
		TimeoutWindow: viper.GetDuration("timeout_window"),
		SweepInterval: viper.GetDuration("sweep_interval"),
		Chains:        make(map[uint64]ChainConfig),
	}

	// Per-chain settings start from the registry defaults; the config file
	// overrides RPC URLs and supplies contract addresses.
	for _, chain := range chains.All {
		key := fmt.Sprintf("chains.%d", chain.ID)
		cc := ChainConfig{
			RPCURL:      chain.RPCURL,
			Marketplace: viper.GetString(key + ".marketplace"),
			Bridge:      viper.GetString(key + ".bridge"),
		}
		if rpc := viper.GetString(key + ".rpc_url"); rpc != "" {
			cc.RPCURL = rpc
		}
		cfg.Chains[chain.ID] = cc
	}

	// Validate signer key
	if cfg.PrivateKey == "" {
		return nil, fmt.Errorf("private key not found. Please set HEMDEALER_PRIVATE_KEY environment variable or create a .hemdealer.yaml config file")
	}

	globalConfig = cfg
	return cfg, nil
}

// Get returns the global configuration
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		return cfg
	}
	return globalConfig
}

// Set updates the global configuration
func Set(cfg *Config) {
	globalConfig = cfg
}
