// Package cmd provides the command-line interface for linkscout.
// It handles command parsing, configuration loading and scan execution.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/masahif/linkscout/internal/config"
	"github.com/masahif/linkscout/internal/logging"
)

const envPrefix = "LS"

var (
	version   string
	buildTime string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCmd()

// Execute runs the root command until it finishes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// SetVersionInfo sets version information for the CLI
func SetVersionInfo(v, bt string) {
	version = v
	buildTime = bt
	rootCmd.Version = fmt.Sprintf("%s (built %s)", version, buildTime)
}

// app carries the state shared by one command tree.
type app struct {
	v         *viper.Viper
	cfgFile   string
	cfg       *config.ScanConfig
	logCloser io.Closer
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "linkscout",
		Short: "Find the external links of a website",
		Long: `linkscout crawls a single site depth-first within a budget and reports,
for every page visited, the links that leave the site.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.prepare,
		RunE:              a.runRoot,
	}

	cmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ./linkscout.yml, then $XDG_CONFIG_HOME/linkscout/linkscout.yml)")
	cmd.PersistentFlags().Bool("show-config", false, "Display current configuration in YAML format and exit")

	d := config.DefaultConfig()
	cmd.PersistentFlags().String("log-level", d.Log.Level, "Log level: debug, info, warn or error")
	cmd.PersistentFlags().String("log-format", d.Log.Format, "Log format: console, text or json")
	cmd.PersistentFlags().String("log-file", d.Log.File, "Also write logs to this file")

	a.bindFlags(cmd.PersistentFlags(), []flagBinding{
		{"log.level", "log-level"},
		{"log.format", "log-format"},
		{"log.file", "log-file"},
	})

	cmd.AddCommand(newScanCmd(a), newMailsCmd(a))
	return cmd
}

type flagBinding struct {
	viperKey string
	flagName string
}

func (a *app) bindFlags(flags *pflag.FlagSet, binds []flagBinding) {
	for _, bind := range binds {
		if err := a.v.BindPFlag(bind.viperKey, flags.Lookup(bind.flagName)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to bind flag %s: %v\n", bind.flagName, err)
		}
	}
}

// initConfig reads in config file and ENV variables if set.
func (a *app) initConfig() error {
	setDefaults(a.v, config.DefaultConfig())

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		for _, dir := range config.SearchPaths() {
			a.v.AddConfigPath(dir)
		}
		a.v.SetConfigType("yaml")
		a.v.SetConfigName(config.AppName)
	}

	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

// setDefaults registers every key so environment variables are seen even
// when no flag or config file mentions them.
func setDefaults(v *viper.Viper, d *config.ScanConfig) {
	v.SetDefault("budget", d.Budget)
	v.SetDefault("budget_policy", d.BudgetPolicy)
	v.SetDefault("ignored_extensions", d.IgnoredExtensions)
	v.SetDefault("extractor", d.Extractor)
	v.SetDefault("request_timeout", d.RequestTimeout)
	v.SetDefault("request_delay", d.RequestDelay)
	v.SetDefault("user_agent", d.UserAgent)
	v.SetDefault("max_body_size", d.MaxBodySize)
	v.SetDefault("host_delays", []string{})
	v.SetDefault("output", d.Output)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size", d.Log.MaxSize)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
}

// prepare loads the configuration and installs the logger before any command runs.
func (a *app) prepare(cmd *cobra.Command, _ []string) error {
	if err := a.initConfig(); err != nil {
		return err
	}

	cfg := config.DefaultConfig()
	if err := a.v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if !cmd.Flags().Changed("user-agent") && cfg.UserAgent == config.DefaultConfig().UserAgent {
		cfg.UserAgent = generateUserAgent()
	}
	a.cfg = cfg

	if show, _ := cmd.Flags().GetBool("show-config"); show {
		return nil
	}

	closer, err := logging.SetDefault(logging.Config{
		Level:      logging.ParseLevel(cfg.Log.Level),
		Format:     cfg.Log.Format,
		FilePath:   cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		Console:    true,
		Output:     cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	a.logCloser = closer

	if used := a.v.ConfigFileUsed(); used != "" {
		slog.Debug("Using config file", "path", used)
	}
	return nil
}

func (a *app) closeLog() {
	if a.logCloser != nil {
		_ = a.logCloser.Close()
		a.logCloser = nil
	}
}

// showConfigIfRequested prints the configuration and reports true when
// --show-config was given.
func (a *app) showConfigIfRequested(cmd *cobra.Command) (bool, error) {
	show, _ := cmd.Flags().GetBool("show-config")
	if !show {
		return false, nil
	}
	return true, showCurrentConfig(cmd.OutOrStdout(), cmd.ErrOrStderr(), a.cfg)
}

func (a *app) runRoot(cmd *cobra.Command, _ []string) error {
	defer a.closeLog()

	if shown, err := a.showConfigIfRequested(cmd); shown {
		return err
	}
	return cmd.Help()
}

func generateUserAgent() string {
	if version != "" && version != "dev" {
		return fmt.Sprintf("linkscout/%s", version)
	}
	return "linkscout/dev"
}

func showCurrentConfig(out, errOut io.Writer, cfg *config.ScanConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(errOut, "Warning: Configuration validation failed: %v\n", err)
		fmt.Fprintf(errOut, "Displaying configuration anyway...\n\n")
	}

	yamlData, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration to YAML: %w", err)
	}

	fmt.Fprintf(out, "# Current linkscout configuration\n")
	fmt.Fprintf(out, "# Generated at: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(out, "# Configuration file search paths: %s\n", strings.Join(config.SearchPaths(), ", "))
	fmt.Fprintf(out, "# Environment variables prefix: %s_\n\n", envPrefix)

	fmt.Fprint(out, string(yamlData))

	fmt.Fprintf(out, "\n# Configuration source priority:\n")
	fmt.Fprintf(out, "# 1. Command-line arguments (highest priority)\n")
	fmt.Fprintf(out, "# 2. Environment variables (%s_ prefix)\n", envPrefix)
	fmt.Fprintf(out, "# 3. Configuration file (%s.yml)\n", config.AppName)
	fmt.Fprintf(out, "# 4. Default values (lowest priority)\n")

	return nil
}
