// Package config loads nodetel settings from config.toml, NODETEL_*
// environment variables and built-in defaults, in that order of precedence
// (environment wins).
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/nodetel/internal/adapters/netaddr"
	"github.com/bnema/nodetel/internal/application"
	"github.com/bnema/nodetel/internal/logging"
	"github.com/bnema/nodetel/internal/xdg"
	"github.com/spf13/viper"
)

const (
	configName = "config"
	configType = "toml"
	envPrefix  = "NODETEL"

	defaultLookupTimeout = 2 * time.Second
)

const (
	KeyStoreBackend        = "store.backend"
	KeyStorePath           = "store.path"
	KeySenderAddress       = "sender.address"
	KeyLookupURL           = "network.lookup_url"
	KeyLookupTimeout       = "network.lookup_timeout"
	KeySnapshotFile        = "hardware.snapshot_file"
	KeyCollectTimeout      = "hardware.collect_timeout"
	KeyLivenessMaxGap      = "liveness.max_gap"
	KeySkewTolerance       = "validator.skew_tolerance"
	KeyRoundTolerance      = "validator.round_tolerance"
	KeyAllowPlainSentinels = "validator.allow_plain_sentinels"
	KeyLogLevel            = "log.level"
	KeyLogFile             = "log.file"
)

type StoreBackend string

const (
	BackendFile   StoreBackend = "file"
	BackendSQLite StoreBackend = "sqlite"
	BackendChain  StoreBackend = "chain"
)

func (b StoreBackend) Valid() bool {
	switch b {
	case BackendFile, BackendSQLite, BackendChain:
		return true
	default:
		return false
	}
}

type Config struct {
	Store     StoreConfig
	Sender    string
	Network   NetworkConfig
	Hardware  HardwareConfig
	Liveness  LivenessConfig
	Validator ValidatorConfig
	Log       LogConfig
	// File is the config file that was read, empty when none was found.
	File string
}

type StoreConfig struct {
	Backend StoreBackend
	Path    string
}

// SQLitePath and FileRoot lay both backends out under Path so the chain
// backend can fall back from one to the other.
func (s StoreConfig) SQLitePath() string {
	return filepath.Join(s.Path, "nodetel.db")
}

func (s StoreConfig) FileRoot() string {
	return filepath.Join(s.Path, "kv")
}

type NetworkConfig struct {
	LookupURL     string
	LookupTimeout time.Duration
}

type HardwareConfig struct {
	SnapshotFile   string
	CollectTimeout time.Duration
}

type LivenessConfig struct {
	MaxGap time.Duration
}

type ValidatorConfig struct {
	SkewTolerance       time.Duration
	RoundTolerance      uint64
	AllowPlainSentinels bool
}

func (v ValidatorConfig) Options() application.ValidatorOptions {
	return application.ValidatorOptions{
		SkewTolerance:       v.SkewTolerance,
		RoundTolerance:      v.RoundTolerance,
		AllowPlainSentinels: v.AllowPlainSentinels,
	}
}

type LogConfig struct {
	Level string
	File  string
}

// SetDefaults registers every key so environment overrides resolve even when
// no config file exists.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyStoreBackend, string(BackendChain))
	v.SetDefault(KeyStorePath, xdg.DataDir())
	v.SetDefault(KeySenderAddress, "")
	v.SetDefault(KeyLookupURL, netaddr.DefaultLookupURL)
	v.SetDefault(KeyLookupTimeout, defaultLookupTimeout)
	v.SetDefault(KeySnapshotFile, "")
	v.SetDefault(KeyCollectTimeout, application.DefaultCollectTimeout)
	v.SetDefault(KeyLivenessMaxGap, application.DefaultLivenessMaxGap)
	v.SetDefault(KeySkewTolerance, application.DefaultSkewTolerance)
	v.SetDefault(KeyRoundTolerance, application.DefaultRoundTolerance)
	v.SetDefault(KeyAllowPlainSentinels, true)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFile, "")
}

// Load reads configFile when given, otherwise config.toml from the XDG config
// directory. A missing default config file is not an error.
func Load(v *viper.Viper, configFile string) (Config, error) {
	if v == nil {
		v = viper.New()
	}

	SetDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		v.AddConfigPath(xdg.ConfigDir())
	}

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) || configFile != "" {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{
		Store: StoreConfig{
			Backend: StoreBackend(strings.ToLower(strings.TrimSpace(v.GetString(KeyStoreBackend)))),
			Path:    strings.TrimSpace(v.GetString(KeyStorePath)),
		},
		Sender: strings.TrimSpace(v.GetString(KeySenderAddress)),
		Network: NetworkConfig{
			LookupURL:     strings.TrimSpace(v.GetString(KeyLookupURL)),
			LookupTimeout: v.GetDuration(KeyLookupTimeout),
		},
		Hardware: HardwareConfig{
			SnapshotFile:   strings.TrimSpace(v.GetString(KeySnapshotFile)),
			CollectTimeout: v.GetDuration(KeyCollectTimeout),
		},
		Liveness: LivenessConfig{MaxGap: v.GetDuration(KeyLivenessMaxGap)},
		Validator: ValidatorConfig{
			SkewTolerance:       v.GetDuration(KeySkewTolerance),
			RoundTolerance:      v.GetUint64(KeyRoundTolerance),
			AllowPlainSentinels: v.GetBool(KeyAllowPlainSentinels),
		},
		Log: LogConfig{
			Level: v.GetString(KeyLogLevel),
			File:  strings.TrimSpace(v.GetString(KeyLogFile)),
		},
		File: v.ConfigFileUsed(),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	if !c.Store.Backend.Valid() {
		errs = append(errs, fmt.Errorf("%s: unknown backend %q (want file, sqlite or chain)", KeyStoreBackend, c.Store.Backend))
	}
	if c.Store.Path == "" {
		errs = append(errs, fmt.Errorf("%s is empty", KeyStorePath))
	}

	durations := []struct {
		key   string
		value time.Duration
	}{
		{KeyLookupTimeout, c.Network.LookupTimeout},
		{KeyCollectTimeout, c.Hardware.CollectTimeout},
		{KeyLivenessMaxGap, c.Liveness.MaxGap},
		{KeySkewTolerance, c.Validator.SkewTolerance},
	}
	for _, d := range durations {
		if d.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", d.key, d.value))
		}
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", KeyLogLevel, err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}

	return nil
}
