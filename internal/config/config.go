// Package config loads fixrun settings.
//
// Sources, highest precedence first: bound command line flags, FIXRUN_*
// environment variables (a .env file in the working directory is loaded
// into the environment first), the config file, and defaults. The config
// file is fixrun.yaml in the working directory or ./.config unless a path is
// given.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. FIXRUN_JOBS.
const EnvPrefix = "FIXRUN"

// DefaultPatterns select the fixtures every built-in checker understands.
var DefaultPatterns = []string{
	"**/*.{spec,test}.{scss,yaml,yml,cue}",
	"**/__tests__/**/*.{scss,yaml,yml,cue}",
}

// Reporter names accepted in Config.Reporters.
const (
	ReporterText    = "text"
	ReporterJSON    = "json"
	ReporterJUnit   = "junit"
	ReporterStore   = "store"
	ReporterMetrics = "metrics"
)

type Config struct {
	RootDir   string        `mapstructure:"root_dir"  validate:"required"`
	Patterns  []string      `mapstructure:"patterns"  validate:"required,min=1,dive,required"`
	Jobs      int           `mapstructure:"jobs"      validate:"gte=1,lte=64"`
	Bail      bool          `mapstructure:"bail"`
	Reporters []string      `mapstructure:"reporters" validate:"dive,oneof=text json junit store metrics"`
	JUnit     JUnitConfig   `mapstructure:"junit"`
	Store     StoreConfig   `mapstructure:"store"`
	Metrics   MetricsConfig `mapstructure:"metrics"`
	Sass      SassConfig    `mapstructure:"sass"`
	LogLevel  string        `mapstructure:"log_level" validate:"oneof=trace debug info warn warning error fatal panic"`

	// ConfigFile is the file that was read, empty when none was found.
	ConfigFile string `mapstructure:"-"`
}

type JUnitConfig struct {
	Output string `mapstructure:"output" validate:"required"`
}

type StoreConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

type MetricsConfig struct {
	Textfile string `mapstructure:"textfile" validate:"required"`
}

type SassConfig struct {
	Binary    string   `mapstructure:"binary"     validate:"required"`
	LoadPaths []string `mapstructure:"load_paths"`
}

// HasReporter reports whether name is among the configured reporters.
func (c *Config) HasReporter(name string) bool {
	for _, r := range c.Reporters {
		if r == name {
			return true
		}
	}
	return false
}

// Load reads the configuration. flags maps config keys to command line
// flags that override them when set.
func Load(path string, flags map[string]*pflag.Flag) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	vip := viper.New()
	if path != "" {
		vip.SetConfigFile(path)
	} else {
		vip.SetConfigName("fixrun")
		vip.AddConfigPath(".")
		vip.AddConfigPath("./.config")
	}

	vip.SetConfigType("yaml")
	vip.SetEnvPrefix(EnvPrefix)
	vip.AutomaticEnv()
	vip.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(vip)

	for key, flag := range flags {
		if flag == nil {
			continue
		}
		if err := vip.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", flag.Name, err)
		}
	}

	if err := vip.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		stringToListHook(),
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if err := vip.Unmarshal(&cfg, hooks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.ConfigFile = vip.ConfigFileUsed()

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// stringToListHook decodes a string such as FIXRUN_PATTERNS into a list,
// splitting on commas outside brace groups so "*.{a,b}" stays one item.
func stringToListHook() mapstructure.DecodeHookFuncType {
	return func(from, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to.Kind() != reflect.Slice || to.Elem().Kind() != reflect.String {
			return data, nil
		}
		return SplitList(reflect.ValueOf(data).String()), nil
	}
}

// SplitList splits s on commas that are not inside {...}. Items are
// trimmed and empty items dropped.
func SplitList(s string) []string {
	items := []string{}
	depth, start := 0, 0
	add := func(item string) {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	for i, r := range s {
		switch r {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				add(s[start:i])
				start = i + 1
			}
		}
	}
	add(s[start:])
	return items
}

func setDefaults(vip *viper.Viper) {
	vip.SetDefault("root_dir", ".")
	vip.SetDefault("patterns", DefaultPatterns)
	vip.SetDefault("jobs", 1)
	vip.SetDefault("bail", false)
	vip.SetDefault("reporters", []string{ReporterText})
	vip.SetDefault("junit.output", "fixrun-junit.xml")
	vip.SetDefault("store.path", ".fixrun/history.db")
	vip.SetDefault("metrics.textfile", "fixrun.prom")
	vip.SetDefault("sass.binary", "sass")
	vip.SetDefault("sass.load_paths", []string{"node_modules"})
	vip.SetDefault("log_level", "warn")
}
