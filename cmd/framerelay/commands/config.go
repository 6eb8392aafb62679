package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bryanchriswhite/framerelay/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage FrameRelay configuration",
	Long:  `View and manage FrameRelay configuration settings.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current FrameRelay configuration.`,
	Example: `  # Show configuration as YAML (default)
  framerelay config show

  # Show configuration as JSON
  framerelay config show --format json`,
	RunE: runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a configuration value",
	Long:  `Set a specific configuration value.`,
	Example: `  # Set server port
  framerelay config set server_port 9090

  # Disable camera output
  framerelay config set transport.camera_out_enabled false`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

var formatFlag string

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)

	configShowCmd.Flags().StringVarP(&formatFlag, "format", "f", "yaml", "output format (yaml or json)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cfg := configMgr.Get()

	switch formatFlag {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(cfg)
	case "yaml":
		encoder := yaml.NewEncoder(os.Stdout)
		encoder.SetIndent(2)
		return encoder.Encode(cfg)
	default:
		return fmt.Errorf("unsupported format: %s (use 'yaml' or 'json')", formatFlag)
	}
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := applyConfigKey(configMgr, key, value); err != nil {
		return err
	}

	if err := configMgr.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("Configuration updated: %s = %s\n", key, value)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println(configMgr.GetConfigPath())
	return nil
}

func applyConfigKey(configMgr *config.Manager, key, value string) error {
	intFields := map[string]func(*config.Config, int){
		"server_port":                      func(c *config.Config, v int) { c.ServerPort = v },
		"transport.audio_out_sample_rate":  func(c *config.Config, v int) { c.Transport.AudioOutSampleRate = v },
		"transport.audio_out_channels":     func(c *config.Config, v int) { c.Transport.AudioOutChannels = v },
		"transport.camera_out_width":       func(c *config.Config, v int) { c.Transport.CameraOutWidth = v },
		"transport.camera_out_height":      func(c *config.Config, v int) { c.Transport.CameraOutHeight = v },
		"transport.camera_out_framerate":   func(c *config.Config, v int) { c.Transport.CameraOutFramerate = v },
	}
	boolFields := map[string]func(*config.Config, bool){
		"transport.audio_out_enabled":  func(c *config.Config, v bool) { c.Transport.AudioOutEnabled = v },
		"transport.camera_out_enabled": func(c *config.Config, v bool) { c.Transport.CameraOutEnabled = v },
		"transport.camera_out_is_live": func(c *config.Config, v bool) { c.Transport.CameraOutIsLive = v },
		"transport.allow_interruptions": func(c *config.Config, v bool) {
			c.Transport.AllowInterruptions = v
		},
	}

	if set, ok := intFields[key]; ok {
		num, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid number: %s", value)
		}
		configMgr.Update(func(c *config.Config) { set(c, num) })
		return nil
	}
	if set, ok := boolFields[key]; ok {
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %s (use: true or false)", value)
		}
		configMgr.Update(func(c *config.Config) { set(c, enabled) })
		return nil
	}
	if key == "log_level" {
		validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
		if !validLevels[value] {
			return fmt.Errorf("invalid log level: %s (use: debug, info, warn, error)", value)
		}
		configMgr.Update(func(c *config.Config) { c.LogLevel = value })
		return nil
	}

	return fmt.Errorf("unknown configuration key: %s", key)
}
