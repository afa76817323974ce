package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/willibrandon/scripttrace/pkg/version"
)

func newVersionCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch strings.ToLower(format) {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(version.Get())
			case "pretty":
				name := color.New(color.FgCyan, color.Bold)
				if !useColor(cmd, out) {
					name.DisableColor()
				}
				info := version.Get()
				fmt.Fprintf(out, "%s v%s\n", name.Sprint(info.Tool), info.Version)
				fmt.Fprintf(out, "built: %s\n", info.BuildTime)
				fmt.Fprintf(out, "platform: %s\n", info.Platform)
				return nil
			default:
				return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
			}
		},
	}

	cmd.Flags().StringVar(&format, "format", "pretty", "output format (pretty|json)")
	return cmd
}
