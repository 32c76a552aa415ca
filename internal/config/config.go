package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// IDBase is the forced identifier-base override. Auto runs the on-chain
// heuristic; Zero/One pin the base without probing.
type IDBase int

const (
	IDBaseAuto IDBase = iota - 1
	IDBaseZero
	IDBaseOne
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL      string
	WSURL       string
	DialTimeout time.Duration

	RegistryAddr string
	RouterAddr   string
	SecurityAddr string

	ForcedIDBase IDBase
	StartBlock   uint64

	PollInterval time.Duration
	ChunkSize    int
	MaxRetries   int
	RetryBackoff time.Duration

	PGDSN      string
	ListenAddr string

	PrivateKey string

	LogLevel string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FUNDSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("dial-timeout", 5*time.Second)
	v.SetDefault("id-base", "auto")
	v.SetDefault("poll-interval", 12*time.Second)
	v.SetDefault("chunk-size", 10)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("listen", ":8080")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	base, err := parseIDBase(v.GetString("id-base"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		RPCURL:       v.GetString("rpc"),
		WSURL:        v.GetString("ws"),
		DialTimeout:  v.GetDuration("dial-timeout"),
		RegistryAddr: v.GetString("registry"),
		RouterAddr:   v.GetString("router"),
		SecurityAddr: v.GetString("security"),
		ForcedIDBase: base,
		StartBlock:   v.GetUint64("start-block"),
		PollInterval: v.GetDuration("poll-interval"),
		ChunkSize:    v.GetInt("chunk-size"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		PGDSN:        v.GetString("pg-dsn"),
		ListenAddr:   v.GetString("listen"),
		PrivateKey:   v.GetString("private-key"),
		LogLevel:     v.GetString("log-level"),
	}

	return cfg, nil
}

func parseIDBase(input string) (IDBase, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "", "auto":
		return IDBaseAuto, nil
	case "0", "zero":
		return IDBaseZero, nil
	case "1", "one":
		return IDBaseOne, nil
	default:
		return IDBaseAuto, fmt.Errorf("invalid id-base: %s", input)
	}
}
