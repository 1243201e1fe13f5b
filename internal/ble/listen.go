package ble

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/elvisdt/HT-MONITOR-BLE/internal/beacon"
)

type Options struct {
	Adapter string // "hci0" by default
}

// Listener wraps BlueZ scanning with context cancellation.
type Listener struct {
	adapter *bluetooth.Adapter
	opts    Options
}

func NewListener(opts Options) *Listener {
	if opts.Adapter == "" {
		opts.Adapter = "hci0"
	}

	return &Listener{
		adapter: bluetooth.NewAdapter(opts.Adapter),
		opts:    opts,
	}
}

// Run enables the adapter and reports every advertisement to onAdv until ctx
// is canceled. onAdv runs on the scanner's callback goroutine and must not
// block.
func (l *Listener) Run(ctx context.Context, onAdv func(beacon.Advertisement)) error {
	slog.Info("ble: enabling adapter", "adapter", l.opts.Adapter)
	if err := l.adapter.Enable(); err != nil {
		return fmt.Errorf("ble enable (%s): %w", l.opts.Adapter, err)
	}
	slog.Info("ble: adapter enabled", "adapter", l.opts.Adapter)

	go func() {
		<-ctx.Done()
		_ = l.adapter.StopScan()
	}()

	slog.Info("ble: scanning started", "adapter", l.opts.Adapter)

	// adapter.Scan blocks until StopScan() or error.
	err := l.adapter.Scan(func(_ *bluetooth.Adapter, r bluetooth.ScanResult) {
		if onAdv == nil {
			return
		}
		onAdv(toAdvertisement(r.Address.String(), r.RSSI, r.LocalName(), r.ManufacturerData(), time.Now()))
	})

	if ctx.Err() != nil {
		slog.Info("ble: scanning stopped (context canceled)")
		return nil
	}

	if err != nil {
		return fmt.Errorf("ble scan: %w", err)
	}

	slog.Info("ble: scanning stopped")
	return nil
}

// toAdvertisement copies a scan result into an event the pipeline can keep.
// BlueZ reports 0 when it has no RSSI reading.
func toAdvertisement(addr string, rssi int16, name string, mfg []bluetooth.ManufacturerDataElement, seenAt time.Time) beacon.Advertisement {
	adv := beacon.Advertisement{
		Address:   addr,
		LocalName: name,
		SeenAt:    seenAt,
	}
	if rssi != 0 {
		v := rssi
		adv.RSSI = &v
	}
	if len(mfg) > 0 {
		adv.ManufacturerData = make(map[uint16][]byte, len(mfg))
		for _, md := range mfg {
			// Never nil: an empty payload is still a payload.
			data := make([]byte, len(md.Data))
			copy(data, md.Data)
			adv.ManufacturerData[md.CompanyID] = data
		}
	}
	return adv
}
