package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/willibrandon/scripttrace/pkg/recorder"
	"github.com/willibrandon/scripttrace/pkg/replay"
)

func newViewCmd() *cobra.Command {
	var (
		level       string
		source      string
		compression string
		until       string
	)

	cmd := &cobra.Command{
		Use:   "view <file>",
		Short: "Print an autosaved trace log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			minLevel, err := recorder.ParseLevel(level)
			if err != nil {
				return err
			}

			ct, err := resolveCompression(args[0], compression)
			if err != nil {
				return err
			}

			entries, err := recorder.ReadEntries(args[0], ct)
			if err != nil {
				return err
			}

			r := replay.NewBasicReplayer(replay.Filter{MinLevel: minLevel, Source: source})
			if err := r.Load(entries); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			paint := newPainter(useColor(cmd, out))
			emit := func(e recorder.Entry) {
				fmt.Fprintln(out, paint(e))
			}

			if until == "" {
				return r.ReplayForward(emit)
			}
			return r.ReplayUntil(func(e recorder.Entry) bool {
				return strings.Contains(e.Message, until)
			}, emit)
		},
	}

	cmd.Flags().StringVar(&level, "level", "trace", "minimum level (trace|debug|info|warning|error)")
	cmd.Flags().StringVar(&source, "source", "", "only show entries from this source")
	cmd.Flags().StringVar(&compression, "compression", "auto", "log compression (auto|none|zstd)")
	cmd.Flags().StringVar(&until, "until", "", "stop before the first message containing this text")
	return cmd
}

// resolveCompression maps "auto" to zstd for .zst files and none otherwise.
func resolveCompression(path, flag string) (recorder.CompressionType, error) {
	if flag == "" || strings.EqualFold(flag, "auto") {
		if strings.HasSuffix(strings.ToLower(path), ".zst") {
			return recorder.ZstdCompression, nil
		}
		return recorder.NoCompression, nil
	}
	return recorder.ParseCompression(flag)
}

func newPainter(enabled bool) func(recorder.Entry) string {
	colors := map[recorder.Level]*color.Color{
		recorder.LevelTrace:   color.New(color.Faint),
		recorder.LevelDebug:   color.New(color.FgCyan),
		recorder.LevelInfo:    color.New(color.FgGreen),
		recorder.LevelWarning: color.New(color.FgYellow),
		recorder.LevelError:   color.New(color.FgRed, color.Bold),
	}
	for _, c := range colors {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return func(e recorder.Entry) string {
		if c, ok := colors[e.Level]; ok {
			return c.Sprint(e.String())
		}
		return e.String()
	}
}
