package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type simConfig struct {
	Backend     string `mapstructure:"backend"`
	RedisAddr   string `mapstructure:"redis-addr"`
	SQLiteDSN   string `mapstructure:"sqlite-dsn"`
	KeyPrefix   string `mapstructure:"prefix"`
	LogLevel    string `mapstructure:"log-level"`
	Audit       bool   `mapstructure:"audit"`
	Keys        int    `mapstructure:"keys"`
	Concurrency int    `mapstructure:"concurrency"`
	Ops         int    `mapstructure:"ops"`
	Validity    int64  `mapstructure:"validity"`
}

var defaults = map[string]any{
	"backend":     "memory",
	"redis-addr":  "",
	"sqlite-dsn":  ":memory:",
	"prefix":      "aa",
	"log-level":   "warn",
	"audit":       false,
	"keys":        1000,
	"concurrency": 64,
	"ops":         20000,
	"validity":    3600,
}

// loadConfig merges defaults, an optional config file, GOACCOUNT_* env vars
// and flags, in increasing precedence.
func loadConfig(cmd *cobra.Command) (simConfig, error) {
	var c simConfig
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return c, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("goaccount")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return c, err
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, c.validate()
}

func (c simConfig) validate() error {
	switch c.Backend {
	case "memory", "redis", "sqlite":
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.Keys <= 0 || c.Concurrency <= 0 || c.Ops <= 0 {
		return errors.New("keys, concurrency, and ops must be > 0")
	}
	if c.Validity <= 0 {
		return errors.New("validity must be > 0")
	}
	return nil
}
