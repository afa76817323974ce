package main

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/willibrandon/scripttrace/pkg/config"
	"github.com/willibrandon/scripttrace/pkg/version"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "scripttrace",
		Short:        "Inspect script execution traces",
		Long:         `scripttrace reads autosaved trace logs and reports where the tracer keeps its files.`,
		Version:      version.Version,
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "settings file (.yaml, .yml or .toml)")
	root.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")

	root.AddCommand(newViewCmd())
	root.AddCommand(newCrashPathCmd())
	root.AddCommand(newSettingsCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// loadSettings reads the --config file and the environment.
func loadSettings(cmd *cobra.Command) (config.Settings, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Settings{}, err
	}
	return config.Load(path)
}

// useColor resolves the --color flag for w.
func useColor(cmd *cobra.Command, w io.Writer) bool {
	mode, _ := cmd.Flags().GetString("color")
	switch mode {
	case "on":
		return true
	case "off":
		return false
	}
	if color.NoColor {
		return false
	}
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
