package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/maloquacious/semver"
	"github.com/maloquacious/thoughtdb/internal/config"
	"github.com/maloquacious/thoughtdb/internal/initializer"
	"github.com/maloquacious/thoughtdb/internal/logger"
	"github.com/spf13/cobra"
)

var (
	version   = semver.Version{Minor: 1, PreRelease: "alpha", Build: semver.Commit()}
	buildDate = ""
)

var (
	cfgFile        string
	dbPath         string
	visualizerDir  string
	connectionFile string
	logLevel       string

	cfg *config.Config
	log logger.Logger
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Flags bind to package variables, so
// each call resets them to their defaults.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "thoughtdb",
		Short: "Initialize the thoughts SQLite database",
		Long: `Creates the thoughts, app_info and users tables and their indexes if they
are missing, seeds app_info, and writes the connection-info and visualizer env
files. Safe to run any number of times.`,
		Args:              cobra.NoArgs,
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig,
		RunE:              runInit,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultConfigFile, "path to TOML configuration file (Env: THOUGHTDB_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database file (Env: THOUGHTDB_DB_PATH)")
	rootCmd.PersistentFlags().StringVar(&visualizerDir, "visualizer-dir", "", "directory for the visualizer env file (Env: THOUGHTDB_VISUALIZER_DIR)")
	rootCmd.PersistentFlags().StringVar(&connectionFile, "connection-file", "", "connection info output file (Env: THOUGHTDB_CONNECTION_FILE)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "logging level (debug, info, warn, error) (Env: THOUGHTDB_LOG_LEVEL)")

	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify schema, metadata and side files without modifying them",
		Args:  cobra.NoArgs,
		RunE:  runVerify,
	}
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "thoughtdb %s", version.String())
			if buildDate != "" {
				fmt.Fprintf(cmd.OutOrStdout(), " (%s)", buildDate)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}

	rootCmd.AddCommand(verifyCmd, versionCmd)
	return rootCmd
}

// loadConfig reads .env, the TOML file, THOUGHTDB_* variables and flags, in
// increasing order of precedence.
func loadConfig(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	if envPath := os.Getenv("THOUGHTDB_CONFIG"); envPath != "" && !cmd.Flags().Changed("config") {
		cfgFile = envPath
	}

	var err error
	cfg, err = config.LoadConfig(cfgFile)
	if err != nil {
		return err
	}
	cfg.ApplyEnv(os.Getenv)

	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if visualizerDir != "" {
		cfg.Visualizer.Dir = visualizerDir
	}
	if connectionFile != "" {
		cfg.Output.ConnectionFile = connectionFile
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	log = logger.New(cfg.Logging.Level, cmd.ErrOrStderr())
	log.Debug("configuration loaded from %s", cfgFile)
	return nil
}

// runInit performs one idempotent initialization pass.
func runInit(cmd *cobra.Command, args []string) error {
	opts := initializer.FromConfig(cfg, cmd.OutOrStdout(), log)
	if _, err := initializer.Run(cmd.Context(), opts); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	return nil
}
