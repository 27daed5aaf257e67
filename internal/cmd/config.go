package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xdg/cmdgate/internal/config"
	"github.com/xdg/cmdgate/internal/pathutil"
	"github.com/xdg/cmdgate/internal/term"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
	Long: `Manage the cmdgate configuration file.

The file is stored at ~/.config/cmdgate/config.yaml (or
$XDG_CONFIG_HOME/cmdgate/config.yaml if XDG_CONFIG_HOME is set) unless
--config names another path. A missing file means built-in defaults.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective config",
	Long: `Print the effective configuration as YAML, after environment overrides.

API keys, the token secret and database passwords are masked.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print config file path",
	Args:  cobra.NoArgs,
	Run:   runConfigPath,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default config file",
	Long: `Create a fully-commented configuration file with all default values.
If the file already exists, this command does nothing.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

func init() {
	configCmd.AddCommand(configShowCmd, configPathCmd, configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func effectiveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.Path()
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	data, err := config.Marshal(config.Redacted(cfg))
	if err != nil {
		return fmt.Errorf("serialize config: %w", err)
	}
	term.Print(string(data))
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) {
	term.Println(effectiveConfigPath())
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := effectiveConfigPath()
	created, err := config.WriteDefaultConfig(path)
	if err != nil {
		return err
	}
	if !created {
		term.Printf("Config already exists at %s\n", pathutil.ShortenHome(path))
		return nil
	}
	term.Printf("Created default config at %s\n", pathutil.ShortenHome(path))
	return nil
}
