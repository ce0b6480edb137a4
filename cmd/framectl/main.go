package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/danmuck/framewire/internal/config"
	"github.com/danmuck/framewire/internal/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	ConfigPath string
	LogLevel   string
}

func main() {
	logging.ConfigureRuntime()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("framectl failed")
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "framectl",
		Short: "Send and receive framewire video frame streams",
		Long: `Send and receive framewire video frame streams.

Examples:
  # Write a starter config
  framectl config init --path framectl.toml

  # Print the config after defaults and overrides
  framectl config show --config framectl.toml

  # Receive frames and expose metrics
  framectl recv --config framectl.toml

  # Stream 60 synthetic 1080p YUV frames
  framectl send --format yuv --width 1920 --height 1080 --count 60

  # Print the encoded size of a 4K RGBA frame message
  framectl size --format rgb --width 3840 --height 2160
`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to framectl TOML config")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override log level (trace, debug, info, warn, error, off)")

	cmd.AddCommand(newSendCommand(opts))
	cmd.AddCommand(newRecvCommand(opts))
	cmd.AddCommand(newSizeCommand())
	cmd.AddCommand(newConfigCommand(opts))
	return cmd
}

// load resolves the config file (or defaults) and applies the log level.
func (o *rootOptions) load() (config.Config, error) {
	cfg := config.Default()
	if path := strings.TrimSpace(o.ConfigPath); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
		log.Info().Str("path", path).Msg("loaded framectl config")
	}
	level := cfg.LogLevel
	if strings.TrimSpace(o.LogLevel) != "" {
		level = o.LogLevel
	}
	if !logging.SetLevel(level) {
		return config.Config{}, fmt.Errorf("unknown log level %q", level)
	}
	return cfg, nil
}

func newConfigCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage framectl configuration files",
	}
	var path string
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteTemplate(path, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().StringVar(&path, "path", "framectl.toml", "where to write the template")
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			out, err := config.Render(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.AddCommand(initCmd, showCmd)
	return cmd
}
