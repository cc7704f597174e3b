package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"firestige.xyz/ttlmangle/internal/config"
	"firestige.xyz/ttlmangle/internal/core"
	"firestige.xyz/ttlmangle/internal/core/decoder"
	"firestige.xyz/ttlmangle/internal/log"
	"firestige.xyz/ttlmangle/internal/metrics"
	"firestige.xyz/ttlmangle/internal/pipeline"
	"firestige.xyz/ttlmangle/internal/source"
)

// openHandle is replaced in tests.
var openHandle = source.Open

func newRunCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Capture, rewrite and re-inject traffic until interrupted",
		Long: `Run the mangler in the foreground.

It will:
  1. Load configuration and initialise logging
  2. Open the capture handle on the interface (also used for transmit)
  3. Start the metrics server (if enabled)
  4. Relay frames through the rewrite pipeline until SIGINT/SIGTERM or the
     capture stream ends, then log the final statistics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd.Flags())
			if err != nil {
				return fmt.Errorf("%w: %w", core.ErrSetup, err)
			}
			return runMangle(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}
	addOverrideFlags(cmd.Flags())
	return cmd
}

func runMangle(ctx context.Context, cfg *config.Config, out io.Writer) error {
	if err := log.Init(cfg.Log); err != nil {
		return fmt.Errorf("%w: init logging: %w", core.ErrSetup, err)
	}
	defer log.Close()

	logger := log.GetLogger().WithField("run_id", uuid.NewString())

	h, err := openHandle(cfg.Capture, logger)
	if err != nil {
		return err
	}
	defer h.Close()
	logger = logger.WithField("interface", h.Interface())

	framing, err := source.ResolveFraming(cfg.Capture.LinkType, h.LinkType())
	if err != nil {
		return err
	}

	p, err := pipeline.NewBuilder().
		WithHandle(h).
		WithFraming(framing).
		WithBufferSize(cfg.Relay.BufferSize).
		WithLogger(logger).
		Build()
	if err != nil {
		return err
	}

	if cfg.Metrics.Enabled {
		ms := metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path, logger)
		if err := ms.Start(); err != nil {
			return fmt.Errorf("%w: %w", core.ErrSetup, err)
		}
		defer func() {
			if err := ms.Stop(context.Background()); err != nil {
				logger.WithError(err).Warn("metrics server stop failed")
			}
		}()
	}

	printSummary(out, cfg, h.Interface(), framing)

	// Closing the handle is the only stop path: it ends the producer, which
	// closes the queue, which lets the transformer drain and return.
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-sigCtx.Done():
			logger.Info("shutdown requested, closing capture handle")
			_ = h.Close()
		case <-finished:
		}
	}()

	reportCtx, cancelReport := context.WithCancel(ctx)
	defer cancelReport()
	go p.Report(reportCtx, cfg.Stats.Interval, h)

	runErr := p.Run()

	fields := p.Stats().Fields()
	egress := p.SinkStats()
	fields["bytes_sent"] = egress.Bytes
	if cs, err := h.Stats(); err == nil {
		fields["kernel_received"] = cs.Received
		fields["kernel_dropped"] = cs.Dropped
	}
	if runErr != nil && !errors.Is(runErr, core.ErrSetup) {
		// A capture stream that dies at runtime still ends the run normally.
		logger.WithFields(fields).WithError(runErr).Error("capture ended with error")
		return nil
	}
	logger.WithFields(fields).Info("final statistics")

	return runErr
}

func printSummary(out io.Writer, cfg *config.Config, iface string, framing decoder.Framing) {
	metricsAddr := "disabled"
	if cfg.Metrics.Enabled {
		metricsAddr = cfg.Metrics.Listen + cfg.Metrics.Path
	}
	list, _ := pterm.DefaultBulletList.WithItems([]pterm.BulletListItem{
		{Level: 0, Text: "INTERFACE : " + iface},
		{Level: 0, Text: "ENGINE    : " + cfg.Capture.Engine},
		{Level: 0, Text: "FILTER    : " + cfg.Capture.Filter},
		{Level: 0, Text: "FRAMING   : " + framing.String()},
		{Level: 0, Text: "BUFFER    : " + fmt.Sprint(cfg.Relay.BufferSize)},
		{Level: 0, Text: "TTL       : " + fmt.Sprint(core.SentinelTTL)},
		{Level: 0, Text: "METRICS   : " + metricsAddr},
	}).Srender()
	fmt.Fprint(out, list)
	fmt.Fprintln(out, "Press 'CTRL + c' to quit")
}
