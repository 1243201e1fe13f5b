package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/elvisdt/HT-MONITOR-BLE/internal/beacon"
	"github.com/elvisdt/HT-MONITOR-BLE/internal/ble"
	"github.com/elvisdt/HT-MONITOR-BLE/internal/config"
	"github.com/elvisdt/HT-MONITOR-BLE/internal/httpapi"
	"github.com/elvisdt/HT-MONITOR-BLE/internal/mqtt"
)

const banner = "Scanning BLE... Ctrl+C to exit"

// Scanner delivers advertisements until ctx is canceled. *ble.Listener is the
// production implementation.
type Scanner interface {
	Run(ctx context.Context, onAdv func(beacon.Advertisement)) error
}

func Run(ctx context.Context, cfg config.Config) error {
	slog.Info("initializing monitor",
		"adapter", cfg.BLEAdapter,
		"company_id", fmt.Sprintf("0x%04X", cfg.CompanyID),
		"variant", cfg.DecodeVariant.String(),
		"mqtt_enabled", cfg.MQTTEnabled,
		"http_addr", cfg.HTTPAddr,
	)

	listener := ble.NewListener(ble.Options{Adapter: cfg.BLEAdapter})
	return run(ctx, cfg, listener, os.Stdout, slog.Default())
}

func run(ctx context.Context, cfg config.Config, scanner Scanner, out io.Writer, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var sinks []beacon.Sink
	var conn httpapi.ConnChecker
	if cfg.MQTTEnabled {
		client, err := mqtt.NewClient(cfg, logger)
		if err != nil {
			return err
		}
		defer client.Disconnect()

		go func() {
			if err := client.Connect(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("mqtt connect failed", "error", err)
			}
		}()
		sinks = append(sinks, client)
		conn = client
	}

	pipeline := beacon.NewPipeline(cfg.PipelineOptions(), out, logger, sinks...)

	if _, err := fmt.Fprintln(out, banner); err != nil {
		return fmt.Errorf("write banner: %w", err)
	}

	events := make(chan beacon.Advertisement, cfg.ScanBuffer)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(events)
		return scanner.Run(gctx, func(adv beacon.Advertisement) {
			enqueue(events, pipeline, adv)
		})
	})

	g.Go(func() error {
		// Once the scanner is gone there is nothing left to serve.
		defer cancel()
		for adv := range events {
			if err := pipeline.Handle(adv); err != nil {
				return err
			}
		}
		return nil
	})

	if cfg.HTTPAddr != "" {
		srv := httpapi.NewServer(cfg.HTTPAddr, httpapi.NewMux(pipeline, conn))
		g.Go(func() error {
			logger.Info("http listening", "addr", cfg.HTTPAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			logger.Info("http shutting down")
			return srv.Shutdown(shutdownCtx)
		})
	}

	err := g.Wait()

	s := pipeline.Stats()
	logger.Info("monitor stopped",
		"received", s.Received,
		"accepted", s.Accepted,
		"rejected", s.Rejected,
		"duplicates", s.Duplicates,
		"overflow", s.Overflow,
	)
	return err
}

// enqueue hands an event to the processor without blocking the scanner.
func enqueue(events chan<- beacon.Advertisement, p *beacon.Pipeline, adv beacon.Advertisement) {
	select {
	case events <- adv:
	default:
		p.RecordOverflow()
	}
}
