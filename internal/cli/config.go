package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/devharness/relaunch/internal/config"
)

func newConfigCmd(ctx *context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Validate the manifest and print the resolved serve plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := ctx.loadManifest()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Project %s loaded from %s\n", manifest.Project.Name, *ctx.manifestFile)

			plan, err := manifest.ServePlan()
			if err != nil {
				if errors.Is(err, config.ErrScriptMissing) {
					fmt.Fprintf(out, "Serve: disabled (%v)\n", err)
					return nil
				}
				return err
			}
			if plan == nil {
				fmt.Fprintf(out, "Serve: disabled (script %q not present, ignored per manifest)\n", manifest.Serve.Script)
				return nil
			}

			fmt.Fprintf(out, "Serve script:       %s\n", plan.Script)
			fmt.Fprintf(out, "Command:            %s\n", strings.Join(plan.Command, " "))
			fmt.Fprintf(out, "Workdir:            %s\n", plan.Dir)
			fmt.Fprintf(out, "Wait before restart: %s\n", plan.WaitBeforeRestart)
			fmt.Fprintf(out, "Wait for terminate:  %s\n", plan.WaitForTerminate)
			fmt.Fprintf(out, "Wait for kill:       %s\n", plan.WaitForKill)
			if len(plan.WatchPaths) > 0 {
				fmt.Fprintln(out, "Watch paths:")
				for _, path := range plan.WatchPaths {
					fmt.Fprintf(out, "  - %s (debounce %s)\n", path, plan.WatchDebounce)
				}
			} else {
				fmt.Fprintln(out, "Watch paths:        none")
			}
			return nil
		},
	}
	return cmd
}
