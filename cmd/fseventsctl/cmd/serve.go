package cmd

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsbroker/fsbroker/admin"
	"github.com/fsbroker/fsbroker/broker"
	"github.com/fsbroker/fsbroker/broker/eventlog"
	"github.com/fsbroker/fsbroker/broker/internstr"
	"github.com/fsbroker/fsbroker/fsadapter"
	"github.com/spf13/cobra"
)

// NewServeCommand starts a broker, an optional fsnotify producer over
// one or more directories, and the admin HTTP server.
func NewServeCommand() *cobra.Command {
	var (
		configPath string
		addr       string
		watchDirs  []string
		device     uint64
		diagCron   string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run an fsbroker server with an admin HTTP surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := broker.Load(configPath)
			if err != nil {
				return err
			}
			cfg.Logger = slog.Default()

			b := broker.New(cfg, broker.Deps{Interner: internstr.New(0)})
			defer b.Close()

			log, err := eventlog.New(4096)
			if err != nil {
				return fmt.Errorf("fseventsctl: building debug event log: %w", err)
			}
			b.AttachDebugLog(log)

			diag, err := broker.NewDiagnosticsReporter(b, diagCron)
			if err != nil {
				return err
			}
			diag.Start()
			defer diag.Stop()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			for _, dir := range watchDirs {
				adapter, err := fsadapter.New(b, device, slog.Default())
				if err != nil {
					return fmt.Errorf("fseventsctl: building fsadapter: %w", err)
				}
				if err := adapter.Add(dir); err != nil {
					return fmt.Errorf("fseventsctl: watching %s: %w", dir, err)
				}
				go func(dir string) {
					if err := adapter.Run(ctx); err != nil && ctx.Err() == nil {
						slog.Error("fseventsctl: fsadapter stopped", "dir", dir, "error", err)
					}
				}(dir)
			}

			srv := &http.Server{Addr: addr, Handler: admin.New(b, log)}
			go func() {
				<-ctx.Done()
				_ = srv.Close()
			}()

			slog.Info("fseventsctl: serving", "addr", addr, "watch_dirs", watchDirs)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to a TOML or YAML broker config file")
	cmd.Flags().StringVar(&addr, "addr", ":9470", "admin HTTP listen address")
	cmd.Flags().StringSliceVar(&watchDirs, "watch-dir", nil, "directory tree to watch via fsnotify (repeatable)")
	cmd.Flags().Uint64Var(&device, "device", 1, "synthetic device id reported on published events")
	cmd.Flags().StringVar(&diagCron, "diagnostics-schedule", "@every 30s", "cron schedule for periodic diagnostics logging")

	return cmd
}
