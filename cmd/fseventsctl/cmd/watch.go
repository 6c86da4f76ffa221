package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsbroker/fsbroker/broker"
	"github.com/fsbroker/fsbroker/broker/internstr"
	"github.com/fsbroker/fsbroker/broker/wire"
	"github.com/fsbroker/fsbroker/fsadapter"
	"github.com/spf13/cobra"
)

type allowAllCaps struct{}

func (allowAllCaps) TaskHas(ctx context.Context, cap broker.Capability) bool { return true }

// NewWatchCommand runs a standalone broker against one directory tree
// and prints each decoded event to stdout, a local demo of the §6
// clone-then-read consumer path without a separate server process.
func NewWatchCommand() *cobra.Command {
	var (
		dir      string
		device   uint64
		compact  bool
	)

	cmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "Watch a directory tree and print decoded fsbroker events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir = args[0]

			cfg := broker.DefaultConfig()
			cfg.Logger = slog.Default()
			b := broker.New(cfg, broker.Deps{Interner: internstr.New(0)})
			defer b.Close()

			dev, err := broker.OpenDevice(cmd.Context(), b, allowAllCaps{})
			if err != nil {
				return err
			}
			handle, err := dev.Clone(cmd.Context(), broker.CloneRequest{
				Interest: map[broker.Kind]bool{
					broker.CreateFile:       true,
					broker.Delete:           true,
					broker.ContentModified:  true,
					broker.StatChanged:      true,
					broker.Rename:           true,
				},
				QueueDepth: 1024,
				Name:       "fseventsctl-watch",
				PID:        int32(os.Getpid()),
				Owner:      allowAllCaps{},
			})
			if err != nil {
				return err
			}
			if compact {
				handle.WantCompact()
			}
			defer handle.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			adapter, err := fsadapter.New(b, device, slog.Default())
			if err != nil {
				return err
			}
			if err := adapter.Add(dir); err != nil {
				return err
			}
			go func() {
				if err := adapter.Run(ctx); err != nil && ctx.Err() == nil {
					slog.Error("fseventsctl: fsadapter stopped", "error", err)
				}
			}()

			buf := make([]byte, 64*1024)
			for ctx.Err() == nil {
				n, err := handle.Read(ctx, buf)
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					return err
				}
				records, trailing := wire.DecodeAll(buf[:n])
				if trailing > 0 {
					slog.Warn("fseventsctl: trailing undecoded bytes", "bytes", trailing)
				}
				for _, rec := range records {
					fmt.Println(formatRecord(rec))
				}
			}
			return nil
		},
	}

	cmd.Flags().Uint64Var(&device, "device", 1, "synthetic device id reported on published events")
	cmd.Flags().BoolVar(&compact, "compact", false, "request compact FINFO wire encoding")

	return cmd
}

func formatRecord(rec wire.Record) string {
	return fmt.Sprintf("kind=%d pid=%d fields=%d", rec.Kind, rec.ProducerPID, len(rec.Fields))
}
