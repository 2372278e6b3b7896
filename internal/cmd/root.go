package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/willfong/card-spend/internal/config"
	"github.com/willfong/card-spend/internal/logging"
	"github.com/willfong/card-spend/internal/ui"
)

var (
	cfgFile string
	verbose bool
	noColor bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "spendgen",
	Short: "Synthetic credit-card spending generator and analytics",
	Long: `A generator for realistic synthetic credit-card spending data.

The monthly stage produces a market-wide series of active cards, average
spend and total spending with seasonality and growth. The detailed stage
allocates every month across category, city, age group, gender and card
type. The report command analyses a generated dataset and the import
command bulk-loads it into MySQL/MariaDB.

Settings come from flags, SPENDGEN_* environment variables (output.dir is
SPENDGEN_OUTPUT_DIR) and an optional --config file, in that order.
Compile-time defaults are in internal/config/defaults.go.

Example usage:
  spendgen generate --seed 42 --compress
  spendgen report --input ./output --sections summary,kpis
  spendgen import --db "user:pass@tcp(localhost:3306)/spending"`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (YAML, TOML or JSON)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable verbose output (debug logging)")
	flags.BoolVar(&noColor, "no-color", false, "disable colors and animations")
	flags.String("log-level", config.LogLevel, "log level: trace, debug, info, warn, error, disabled")
	flags.String("log-format", config.LogFormat, "log format: console or json")
	flags.String("log-output", config.LogOutput, "log destination: stderr, stdout or a file path")

	mustBind(flags, map[string]string{
		"log.level":  "log-level",
		"log.format": "log-format",
		"log.output": "log-output",
	})

	// Silence usage on error - we'll print our own messages
	rootCmd.SilenceUsage = true

	// Set version template
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

// initConfig wires defaults, environment and the optional config file into
// the global viper instance.
func initConfig() {
	config.SetDefaults(viper.GetViper())
	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(config.EnvKeyReplacer())
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
			os.Exit(1)
		}
	}
}

// mustBind binds config keys to flags. Commands call it from PreRun so that
// keys shared between commands (output.dir) follow the running command.
func mustBind(flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind %s to --%s: %v", key, name, err))
		}
	}
}

// setup loads and validates the configuration and builds the UI and logger
// shared by every command. It exits on invalid settings.
func setup() (*config.Config, *ui.UI, zerolog.Logger) {
	u := ui.New()
	if noColor {
		u.SetNoColor(true)
	}

	cfg, err := config.Load()
	if err != nil {
		fail(u, err)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		fail(u, err)
	}

	log, err := logging.New(logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		NoColor: noColor || !u.IsTTY,
	})
	if err != nil {
		fail(u, err)
	}
	if f := viper.ConfigFileUsed(); f != "" {
		log.Debug().Str("path", f).Msg("using config file")
	}
	return cfg, u, log
}

// fail prints err and exits with status 1.
func fail(u *ui.UI, err error) {
	fmt.Fprintln(os.Stderr, u.Error(err.Error()))
	os.Exit(1)
}
