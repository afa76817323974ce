package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/willibrandon/scripttrace/pkg/crash"
)

func newCrashPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crash-path",
		Short: "Show where fatal faults are logged",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			path := crash.Path(settings.CrashOptions())
			status := "missing (fault capture stays disabled)"
			if info, err := os.Stat(filepath.Dir(path)); err == nil && info.IsDir() {
				status = "exists"
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, path)
			fmt.Fprintf(out, "directory: %s\n", status)
			return nil
		},
	}
}
