package cli

import (
	stdcontext "context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/devharness/relaunch/internal/cliutil"
	"github.com/devharness/relaunch/internal/config"
	"github.com/devharness/relaunch/internal/engine"
	busevents "github.com/devharness/relaunch/internal/events"
	"github.com/devharness/relaunch/internal/metrics"
	"github.com/devharness/relaunch/internal/runtime/process"
	"github.com/devharness/relaunch/internal/watch"
)

// shutdownGrace pads the stop deadline beyond the full escalation sequence.
const shutdownGrace = 2 * time.Second

func newRunCmd(ctx *context) *cobra.Command {
	var jsonLogs bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the serve script and relaunch it after each rebuild",
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := ctx.loadManifest()
			if err != nil {
				return err
			}
			plan, err := manifest.ServePlan()
			if err != nil {
				if errors.Is(err, config.ErrScriptMissing) {
					return fmt.Errorf("serve disabled: %w", err)
				}
				return err
			}
			if plan == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "serve script not present in manifest; nothing to supervise")
				return nil
			}

			evtCh := make(chan engine.Event, 256)
			renderDone := make(chan struct{})
			writeEvent := eventWriter(cmd, jsonLogs)
			go func() {
				defer close(renderDone)
				for evt := range evtCh {
					metrics.Observe(evt)
					writeEvent(evt)
				}
			}()

			sup := engine.New(engine.Options{
				Name:              plan.Name,
				Command:           plan.Command,
				Dir:               plan.Dir,
				Env:               plan.Env,
				WaitBeforeRestart: plan.WaitBeforeRestart,
				WaitForTerminate:  plan.WaitForTerminate,
				WaitForKill:       plan.WaitForKill,
				Runtime:           process.New(),
				Events:            evtCh,
			})

			bus := busevents.New()
			unsubscribe := bus.SubscribeRebuild(func(busevents.RebuildEvent) {
				metrics.IncrementRebuild()
				sup.OnRebuildCompleted()
			})
			defer unsubscribe()

			if len(plan.WatchPaths) > 0 {
				watcher := watch.New(bus, plan.WatchPaths,
					watch.WithDebounce(plan.WatchDebounce),
					watch.WithErrorHandler(func(err error) {
						fmt.Fprintf(cmd.ErrOrStderr(), "watch error: %v\n", err)
					}),
				)
				if err := watcher.Start(); err != nil {
					return fmt.Errorf("start watcher: %w", err)
				}
				defer watcher.Stop()
			} else {
				fmt.Fprintln(cmd.ErrOrStderr(), "no watch paths configured; restarts require an external trigger")
			}

			if addr := *ctx.metricsAddr; addr != "" {
				srv := &http.Server{Addr: addr, Handler: metrics.Handler()}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						fmt.Fprintf(cmd.ErrOrStderr(), "metrics server: %v\n", err)
					}
				}()
				defer srv.Close()
			}

			sup.Start(cmd.Context())
			<-cmd.Context().Done()

			stopTimeout := plan.WaitForTerminate + plan.WaitForKill + shutdownGrace
			stopCtx, cancel := stdcontext.WithTimeout(stdcontext.Background(), stopTimeout)
			defer cancel()
			stopErr := sup.Stop(stopCtx)

			close(evtCh)
			<-renderDone
			return stopErr
		},
	}

	cmd.Flags().BoolVar(&jsonLogs, "json", false, "Force JSON log output")
	return cmd
}

func eventWriter(cmd *cobra.Command, jsonLogs bool) func(engine.Event) {
	if !jsonLogs && cliutil.StdoutIsTerminal() {
		out := cmd.OutOrStdout()
		return func(evt engine.Event) {
			cliutil.WriteHumanEvent(out, evt)
		}
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	stderr := cmd.ErrOrStderr()
	return func(evt engine.Event) {
		cliutil.EncodeLogEvent(enc, stderr, evt)
	}
}
