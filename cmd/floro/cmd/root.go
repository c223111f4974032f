package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cyber-run/floro/internal/config"
	"github.com/cyber-run/floro/internal/logging"
	"github.com/cyber-run/floro/internal/version"
)

var (
	// Global configuration loader.
	configLoader *config.Loader
	// Global configuration.
	globalConfig *config.Config
	// Configuration file path.
	cfgFile string
	// Logger built from the log section, replaced before every command runs.
	logger = zerolog.Nop()
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "floro",
	Short: "Watershed segmentation and intensity measurement of fluorescent wells",
	Long: `floro finds the wells of a fluorescence plate image with a marker-based
watershed and reports the centre, contour area and mean intensity of each one.

This tool provides:
- Otsu or manual thresholding with morphological cleanup
- Separation of touching wells through distance-transform markers
- Per-drug regions of interest stored in a project file
- Parallel batch processing with text, JSON and CSV output
- An HTTP and WebSocket server mode

Examples:
  floro segment plate.png
  floro segment plate.png --roi 40,10,180,55 --format json
  floro project init ./plates
  floro batch --project floro-project.yaml --format csv
  floro serve --port 8080`,
	Version:      version.String(),
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := initConfig(); err != nil {
			return err
		}
		logger = logging.Setup(cmd.ErrOrStderr(), globalConfig.Log.Level, globalConfig.Log.Format, globalConfig.Log.Verbose)
		return nil
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for testing purposes.
// This allows tests to execute commands without calling os.Exit().
func GetRootCommand() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is search in ., $HOME/.config/floro, /etc/floro)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", logging.FormatConsole, "log format (console, json)")
	bindRootFlags()
}

// bindRootFlags ties the persistent log flags to their viper keys.
func bindRootFlags() {
	_ = viper.BindPFlag("log.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig reads the config file and FLORO_* environment variables. The
// result is validated per command once flag overrides are applied.
func initConfig() error {
	configLoader = config.NewLoader()
	cfg, err := configLoader.LoadWithFileWithoutValidation(cfgFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	globalConfig = cfg
	return nil
}

// GetConfig returns a copy of the loaded configuration that the caller may
// override with its own flags.
func GetConfig() *config.Config {
	if globalConfig == nil {
		if err := initConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			def := config.DefaultConfig()
			return &def
		}
	}
	cfg := *globalConfig
	cfg.Batch.Include = append([]string(nil), globalConfig.Batch.Include...)
	cfg.Batch.Exclude = append([]string(nil), globalConfig.Batch.Exclude...)
	return &cfg
}

// GetConfigLoader returns the global configuration loader.
func GetConfigLoader() *config.Loader {
	if configLoader == nil {
		configLoader = config.NewLoader()
	}
	return configLoader
}
