package prism

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/putto11262002/prism/core"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Mode string

const (
	DevMode  Mode = "dev"
	ProdMode Mode = "prod"
)

const (
	MemoryStore = "memory"
	SQLiteStore = "sqlite"
)

type Config struct {
	// Mode is either dev or prod. The default is dev.
	Mode Mode `validate:"oneof=dev prod"`
	// Port is the Port number to listen on. The default is 8080.
	Port int `validate:"required,port"`
	// Hostname is the Hostname to listen on. The default is 127.0.0.1.
	Hostname string `validate:"required"`
	// AllowedOrigins is a list of origins that are allowed to connect to the server.
	// The default is ["*"].
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// LogLevel is one of debug, info, warn or error. The default is info.
	LogLevel string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	Store    struct {
		// Driver selects where the display name and theme are kept: memory or sqlite.
		Driver string `validate:"oneof=memory sqlite"`
		// File is the path to the SQLite database file.
		File string `validate:"required_if=Driver sqlite"`
	}
	Simulation struct {
		// Latency is the simulated round trip of create, join and settings operations.
		Latency time.Duration `validate:"min=0"`
		// ReplyDelay is how long a simulated participant takes to answer.
		ReplyDelay time.Duration `mapstructure:"reply_delay" validate:"min=0"`
		// JoinFailureRate is the probability that joining a room finds nothing.
		JoinFailureRate float64 `mapstructure:"join_failure_rate" validate:"min=0,max=1"`
	}
	valid bool
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() *Config {
	c := &Config{
		Mode:           DevMode,
		Port:           8080,
		Hostname:       "127.0.0.1",
		AllowedOrigins: []string{"*"},
		LogLevel:       "info",
	}
	c.Store.Driver = SQLiteStore
	c.Store.File = "./prism.db"
	c.Simulation.Latency = core.DefaultLatency
	c.Simulation.ReplyDelay = core.DefaultReplyDelay
	c.Simulation.JoinFailureRate = core.DefaultJoinFailureRate
	return c
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("mode", string(d.Mode))
	v.SetDefault("port", d.Port)
	v.SetDefault("hostname", d.Hostname)
	v.SetDefault("allowed_origins", d.AllowedOrigins)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.file", d.Store.File)
	v.SetDefault("simulation.latency", d.Simulation.Latency)
	v.SetDefault("simulation.reply_delay", d.Simulation.ReplyDelay)
	v.SetDefault("simulation.join_failure_rate", d.Simulation.JoinFailureRate)
}

// LoadConfig loads the configuration from, in increasing precedence, the defaults,
// the config file, PRISM_ prefixed environment variables and the command line flags.
// When path is empty config.yaml is looked up in the working directory and may be absent.
func LoadConfig(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("prism")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config,
		viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(",")),
		),
	); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return config, nil
}

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"port":      "port",
	"hostname":  "hostname",
	"mode":      "mode",
	"log-level": "log_level",
	"store":     "store.driver",
	"db":        "store.file",
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

func (c *Config) Validate() error {
	if c.valid {
		return nil
	}
	err := validate.Struct(c)
	if err != nil {
		return err
	}
	c.valid = true
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Hostname, c.Port)
}

func FormatValidationErrors(err error) string {

	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	trans, _ := uniTrans.GetTranslator("en")

	var sb strings.Builder
	for _, fe := range errs {
		sb.WriteString(fe.Namespace())
		sb.WriteString(": ")
		sb.WriteString(fe.Translate(trans))
		sb.WriteString("\n")
	}
	return sb.String()
}
