package cli

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/theplant/criteria"
)

const (
	BackendDoc = "doc"
	BackendSQL = "sql"
)

// Config is read from flags, CRITQ_* environment variables and the config file,
// in that order of precedence.
type Config struct {
	Backend      string   `mapstructure:"backend"`
	Table        string   `mapstructure:"table"`
	MaxDepth     int      `mapstructure:"max_depth"`
	Sortable     []string `mapstructure:"sortable"`
	PrimaryKey   string   `mapstructure:"primary_key"`
	DefaultLimit int      `mapstructure:"default_limit"`
	MaxLimit     int      `mapstructure:"max_limit"`
}

var defaults = map[string]any{
	"backend":       BackendDoc,
	"table":         "records",
	"max_depth":     criteria.DefaultMaxDepth,
	"sortable":      []string{},
	"primary_key":   "id",
	"default_limit": 20,
	"max_limit":     100,
}

// flag name -> config key
var configFlags = map[string]string{
	"backend":       "backend",
	"table":         "table",
	"max-depth":     "max_depth",
	"sortable":      "sortable",
	"primary-key":   "primary_key",
	"default-limit": "default_limit",
	"max-limit":     "max_limit",
}

func addConfigFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("backend", BackendDoc, "query backend (doc|sql)")
	flags.String("table", "records", "table name for the sql backend")
	flags.Int("max-depth", criteria.DefaultMaxDepth, "maximum nesting depth of a request")
	flags.StringSlice("sortable", nil, "fields allowed in sort orders")
	flags.String("primary-key", "id", "tie-breaker sort field appended to every query, empty to disable")
	flags.Int("default-limit", 20, "limit used when the request sets none")
	flags.Int("max-limit", 100, "upper bound for the request limit")
}

// LoadConfig reads the configuration. An explicit path must exist; otherwise
// critq.yaml in the working directory is read when present.
func LoadConfig(path string, cmd *cobra.Command) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix("CRITQ")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	} else {
		v.SetConfigName("critq")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Wrap(err, "read config")
			}
		}
	}

	if cmd != nil {
		for name, key := range configFlags {
			if flag := cmd.Flags().Lookup(name); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return nil, errors.Wrapf(err, "bind flag %s", name)
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Backend {
	case BackendDoc, BackendSQL:
	default:
		return errors.Errorf("invalid backend %q: must be %s or %s", c.Backend, BackendDoc, BackendSQL)
	}
	if c.MaxDepth <= 0 {
		return errors.Errorf("max_depth must be positive, got %d", c.MaxDepth)
	}
	if c.DefaultLimit <= 0 {
		return errors.Errorf("default_limit must be positive, got %d", c.DefaultLimit)
	}
	if c.MaxLimit < c.DefaultLimit {
		return errors.Errorf("max_limit %d is lower than default_limit %d", c.MaxLimit, c.DefaultLimit)
	}
	if c.Backend == BackendSQL && c.Table == "" {
		return errors.New("table is required for the sql backend")
	}
	return nil
}
