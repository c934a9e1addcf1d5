package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"marketlogger/internal/record"
)

// InstrumentConfig identifies one security to poll. Code is the instrument
// identifier the remote API expects; Name labels the rows written for it.
type InstrumentConfig struct {
	Code string `mapstructure:"code"`
	Name string `mapstructure:"name"`
}

// FieldsConfig selects the fields to fetch per category. A category with no
// selected fields is not fetched at all.
type FieldsConfig struct {
	Closing  []string `mapstructure:"closing"`
	Fund     []string `mapstructure:"fund"`
	Overview []string `mapstructure:"overview"`
}

// Config holds all configuration for the market logger. It is built once at
// startup and passed by value into the components that need it; nothing
// reads configuration through package state.
type Config struct {
	// Instruments to poll; list order is significant.
	Instruments []InstrumentConfig `mapstructure:"instruments"`

	// Interval between polling cycles.
	Interval time.Duration `mapstructure:"interval"`
	// Timeout applied to every outbound request.
	Timeout time.Duration `mapstructure:"timeout"`
	// Concurrent fans per-instrument fetches out in parallel.
	Concurrent bool `mapstructure:"concurrent"`

	// Output is the workbook path rows are appended to.
	Output string `mapstructure:"output"`
	// BaseURL of the remote market-data API.
	BaseURL string `mapstructure:"base_url"`

	// Fields selected per category.
	Fields FieldsConfig `mapstructure:"fields"`
	// NonZeroFields must not resolve to the integer zero.
	NonZeroFields []string `mapstructure:"nonzero_fields"`
	// IDColumn is the header name of the batch identifier column.
	IDColumn string `mapstructure:"id_column"`
}

// Load reads configuration from an optional config file and environment
// variables. Environment variables use the MARKETLOGGER_ prefix and take
// precedence over file values.
//
// Expected file locations: ./config.yaml or $HOME/.marketlogger/config.yaml.
func Load() (*Config, error) {
	v := viper.New()

	// Set up environment variable support
	v.SetEnvPrefix("marketlogger")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("timeout", 10*time.Second)
	v.SetDefault("concurrent", true)
	v.SetDefault("base_url", "https://cdn.tsetmc.com/api")
	v.SetDefault("id_column", record.KeySharedID)

	// Optionally read from config file if it exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.marketlogger")

	// Read config file (ignore if not found)
	_ = v.ReadInConfig()

	// Bind environment variables for scalar settings
	v.BindEnv("interval", "MARKETLOGGER_INTERVAL")
	v.BindEnv("timeout", "MARKETLOGGER_TIMEOUT")
	v.BindEnv("output", "MARKETLOGGER_OUTPUT")
	v.BindEnv("base_url", "MARKETLOGGER_BASE_URL")
	v.BindEnv("concurrent", "MARKETLOGGER_CONCURRENT")
	v.BindEnv("id_column", "MARKETLOGGER_ID_COLUMN")

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// validate rejects configurations the scheduler must never start with.
func (c *Config) validate() error {
	var problems []string
	if len(c.Instruments) == 0 {
		problems = append(problems, "instruments list is empty")
	}
	for i, inst := range c.Instruments {
		if inst.Code == "" || inst.Name == "" {
			problems = append(problems, fmt.Sprintf("instrument %d is missing code or name", i))
			break
		}
	}
	if c.Interval <= 0 {
		problems = append(problems, "interval must be positive")
	}
	if c.Timeout <= 0 {
		problems = append(problems, "timeout must be positive")
	}
	if c.Output == "" {
		problems = append(problems, "output workbook path is required")
	}
	if len(c.Fields.Closing) == 0 && len(c.Fields.Fund) == 0 && len(c.Fields.Overview) == 0 {
		problems = append(problems, "no fields selected in any category")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
