// Package config loads and validates the auction client configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/viper"
)

// Config holds everything the client needs to talk to one cluster and
// one deployment of the auction program. All identifiers flow through
// here; there are no mutable globals.
type Config struct {
	RPCURL            string `mapstructure:"rpc_url"`
	Cluster           string `mapstructure:"cluster"`
	ProgramID         string `mapstructure:"program_id"`
	MetadataProgramID string `mapstructure:"metadata_program_id"`
	WsolMint          string `mapstructure:"wsol_mint"`
	PrivateKey        string `mapstructure:"private_key"`
	KeypairPath       string `mapstructure:"keypair_path"`
	SubmitAttempts    int    `mapstructure:"submit_attempts"`
	ComputeUnitLimit  uint32 `mapstructure:"compute_unit_limit"`
	DebugLogging      bool   `mapstructure:"debug_logging"`

	programID         solana.PublicKey
	metadataProgramID solana.PublicKey
	wsolMint          solana.PublicKey
}

const (
	DefaultProgramID         = "4JfrrwUKvDRaM5DZFsuKE1uMD591KhSGGq3wq75JGwP5"
	DefaultMetadataProgramID = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"
	DefaultWsolMint          = "So11111111111111111111111111111111111111112"
	DefaultCluster           = "devnet"
	DefaultSubmitAttempts    = 3
	DefaultComputeUnitLimit  = 2_000_000
)

// Load reads the config file at path, applies VRGDA_* environment
// overrides, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	}

	defaults := map[string]interface{}{
		"cluster":             DefaultCluster,
		"program_id":          DefaultProgramID,
		"metadata_program_id": DefaultMetadataProgramID,
		"wsol_mint":           DefaultWsolMint,
		"submit_attempts":     DefaultSubmitAttempts,
		"compute_unit_limit":  DefaultComputeUnitLimit,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix("VRGDA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.RPCURL == "" {
		return errors.New("missing rpc_url in configuration")
	}
	parsed, err := url.Parse(c.RPCURL)
	if err != nil || !strings.HasPrefix(parsed.Scheme, "http") {
		return errors.New("rpc_url must be an http(s) URL")
	}

	if c.programID, err = solana.PublicKeyFromBase58(c.ProgramID); err != nil {
		return fmt.Errorf("invalid program_id: %w", err)
	}
	if c.metadataProgramID, err = solana.PublicKeyFromBase58(c.MetadataProgramID); err != nil {
		return fmt.Errorf("invalid metadata_program_id: %w", err)
	}
	if c.wsolMint, err = solana.PublicKeyFromBase58(c.WsolMint); err != nil {
		return fmt.Errorf("invalid wsol_mint: %w", err)
	}

	if c.SubmitAttempts <= 0 {
		return errors.New("submit_attempts must be positive")
	}
	if c.ComputeUnitLimit == 0 {
		return errors.New("compute_unit_limit must be positive")
	}

	switch c.Cluster {
	case "mainnet-beta", "devnet", "testnet", "localnet":
	default:
		return fmt.Errorf("unknown cluster %q", c.Cluster)
	}
	return nil
}

// Program returns the parsed auction program id.
func (c *Config) Program() solana.PublicKey { return c.programID }

// MetadataProgram returns the parsed Metaplex token-metadata program id.
func (c *Config) MetadataProgram() solana.PublicKey { return c.metadataProgramID }

// Wsol returns the parsed wrapped-SOL mint.
func (c *Config) Wsol() solana.PublicKey { return c.wsolMint }

// ExplorerTxURL builds the Solana explorer link for a signature on the
// configured cluster.
func (c *Config) ExplorerTxURL(signature string) string {
	base := "https://explorer.solana.com/tx/" + signature
	switch c.Cluster {
	case "mainnet-beta":
		return base
	case "localnet":
		return base + "?cluster=custom&customUrl=" + url.QueryEscape(c.RPCURL)
	default:
		return base + "?cluster=" + c.Cluster
	}
}
