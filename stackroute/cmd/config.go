package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

// Environment variables that provide the flag defaults.
const (
	envQueueSize   = "STACKROUTE_QUEUE_SIZE"
	envDefaultCost = "STACKROUTE_DEFAULT_COST"
	envQuiescence  = "STACKROUTE_QUIESCENCE"
	envMaxStack    = "STACKROUTE_MAX_STACK"
	envLogLevel    = "STACKROUTE_LOG_LEVEL"
)

// config holds the network parameters shared by every command.
type config struct {
	QueueSize   int
	DefaultCost int
	MaxStack    int
	Quiescence  time.Duration
	LogLevel    string
}

func defaultConfig() config {
	return config{LogLevel: "info"}
}

// loadEnvFile loads a .env file into the environment. Variables already set
// win. A missing file is not an error.
func loadEnvFile(filename string) error {
	if filename == "" {
		return nil
	}

	err := godotenv.Load(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return err
}

// applyEnv overrides c with the STACKROUTE_* variables that are set.
func (c *config) applyEnv() error {
	var err error

	if c.QueueSize, err = envInt(envQueueSize, c.QueueSize); err != nil {
		return err
	}

	if c.DefaultCost, err = envInt(envDefaultCost, c.DefaultCost); err != nil {
		return err
	}

	if c.MaxStack, err = envInt(envMaxStack, c.MaxStack); err != nil {
		return err
	}

	if v, ok := os.LookupEnv(envQuiescence); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", envQuiescence, err)
		}

		c.Quiescence = d
	}

	if v, ok := os.LookupEnv(envLogLevel); ok && v != "" {
		c.LogLevel = v
	}

	return nil
}

func envInt(name string, fallback int) (int, error) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return fallback, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}

	if n < 0 {
		return 0, fmt.Errorf("%s: must not be negative, got %d", name, n)
	}

	return n, nil
}

func addConfigFlags(flags *pflag.FlagSet) {
	flags.Int("queue-size", 0, "Capacity of every link. Env: "+envQueueSize)
	flags.Int("default-cost", 0,
		"Cost of functions without a specific link cost. Env: "+envDefaultCost)
	flags.Int("max-stack", 0,
		"Highest protocol stack a message may carry. Env: "+envMaxStack)
	flags.Duration("quiescence", 0,
		"Idle time after which discovery is considered converged. Env: "+
			envQuiescence)
	flags.String("log-level", "",
		"Log level (trace, debug, info, warn, error). Env: "+envLogLevel)
	flags.String("env-file", ".env", "File with STACKROUTE_* variables")
}

// resolveConfig builds the configuration: defaults, then the env file and
// the environment, then the flags that were given explicitly.
func resolveConfig(flags *pflag.FlagSet) (config, error) {
	c := defaultConfig()

	envFile, _ := flags.GetString("env-file")
	if err := loadEnvFile(envFile); err != nil {
		return c, fmt.Errorf("loading %s: %w", envFile, err)
	}

	if err := c.applyEnv(); err != nil {
		return c, err
	}

	if flags.Changed("queue-size") {
		c.QueueSize, _ = flags.GetInt("queue-size")
	}

	if flags.Changed("default-cost") {
		c.DefaultCost, _ = flags.GetInt("default-cost")
	}

	if flags.Changed("max-stack") {
		c.MaxStack, _ = flags.GetInt("max-stack")
	}

	if flags.Changed("quiescence") {
		c.Quiescence, _ = flags.GetDuration("quiescence")
	}

	if flags.Changed("log-level") {
		c.LogLevel, _ = flags.GetString("log-level")
	}

	return c, nil
}

func (c config) logger(out io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}

	log := logrus.New()
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if out != nil {
		log.SetOutput(out)
	}

	return log, nil
}
