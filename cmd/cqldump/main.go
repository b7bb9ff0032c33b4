// cqldump decodes captured CQL native-protocol bytes: frame envelopes,
// v5 checksummed segments, message payloads and row values.
package main

import (
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var (
	configFlag      string
	versionFlag     int
	compressionFlag string
	colorFlag       string
	verboseFlag     bool

	cfg Config
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "cqldump",
		Short:         "Inspect CQL native-protocol byte captures",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = loadConfig(configFlag)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("protocol") {
				cfg.Version = versionFlag
			}
			if cmd.Flags().Changed("compression") {
				cfg.Compression = compressionFlag
			}
			if cmd.Flags().Changed("color") {
				cfg.Color = colorFlag
			}
			if verboseFlag {
				cfg.Verbose = true
			}
			if err := cfg.validate(); err != nil {
				return err
			}

			level := slog.LevelInfo
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file (default: user config dir)")
	rootCmd.PersistentFlags().IntVar(&versionFlag, "protocol", 4, "Protocol version of the capture (3, 4 or 5)")
	rootCmd.PersistentFlags().StringVar(&compressionFlag, "compression", "", "Connection compression: lz4 or snappy")
	rootCmd.PersistentFlags().StringVar(&colorFlag, "color", "auto", "Colorize output: auto, always, never")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Debug logging")

	rootCmd.AddCommand(
		decodeCmd(),
		segmentsCmd(),
		crcCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func colorEnabled() bool {
	switch cfg.Color {
	case "always":
		return true
	case "never":
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

const (
	ansiReset  = "\x1b[0m"
	ansiBold   = "\x1b[1m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiRed    = "\x1b[31m"
)

func paint(color, s string) string {
	if !colorEnabled() {
		return s
	}
	return color + s + ansiReset
}
