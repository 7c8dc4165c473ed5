package cli

import (
	stdcontext "context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/devharness/relaunch/internal/config"
)

func NewRootCmd() *cobra.Command {
	var manifestFile string
	var metricsAddr string

	root := &cobra.Command{
		Use:   "relaunch",
		Short: "Supervise a development service across rebuild cycles",
	}

	root.PersistentFlags().
		StringVarP(&manifestFile, "file", "f", "relaunch.yaml", "Path to project manifest")
	root.PersistentFlags().
		StringVar(&metricsAddr, "metrics-addr", "", "Address to serve Prometheus metrics on (disabled when empty)")

	ctx := &context{manifestFile: &manifestFile, metricsAddr: &metricsAddr}
	root.AddCommand(newRunCmd(ctx))
	root.AddCommand(newConfigCmd(ctx))

	root.SilenceUsage = true
	root.SilenceErrors = true

	return root
}

// Execute runs the CLI entrypoint.
func Execute() {
	ctx, stop := signal.NotifyContext(stdcontext.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	root.SetContext(ctx)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type context struct {
	manifestFile *string
	metricsAddr  *string
}

func (c *context) loadManifest() (*config.Manifest, error) {
	return config.Load(*c.manifestFile)
}
