package ble

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/elvisdt/HT-MONITOR-BLE/internal/beacon"
)

type AdvertiserOptions struct {
	Adapter   string
	LocalName string
	CompanyID uint16
	Variant   beacon.Variant
	Magic     uint16
	Interval  time.Duration
}

// Advertiser broadcasts tablet battery frames the way the tablet app does,
// so the monitor can be exercised without hardware tablets.
type Advertiser struct {
	adapter *bluetooth.Adapter
	opts    AdvertiserOptions
	seq     uint8
}

func NewAdvertiser(opts AdvertiserOptions) *Advertiser {
	if opts.Adapter == "" {
		opts.Adapter = "hci0"
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	return &Advertiser{
		adapter: bluetooth.NewAdapter(opts.Adapter),
		opts:    opts,
	}
}

// Run advertises one frame per interval, asking next for the current reading.
// The sequence number is owned by the advertiser and wraps at 255.
func (a *Advertiser) Run(ctx context.Context, next func() beacon.Record) error {
	if err := a.adapter.Enable(); err != nil {
		return fmt.Errorf("ble enable (%s): %w", a.opts.Adapter, err)
	}
	adv := a.adapter.DefaultAdvertisement()

	ticker := time.NewTicker(a.opts.Interval)
	defer ticker.Stop()

	for {
		rec := next()
		rec.Seq = a.seq
		a.seq++

		payload := beacon.Encode(rec, a.opts.Variant, a.opts.Magic)
		if err := adv.Configure(bluetooth.AdvertisementOptions{
			AdvertisementType: bluetooth.AdvertisingTypeNonConnInd,
			LocalName:         a.opts.LocalName,
			Interval:          bluetooth.NewDuration(100 * time.Millisecond),
			ManufacturerData: []bluetooth.ManufacturerDataElement{
				{CompanyID: a.opts.CompanyID, Data: payload},
			},
		}); err != nil {
			slog.Warn("ble: advertisement configure failed", "error", err)
		} else if err := adv.Start(); err != nil {
			slog.Warn("ble: advertisement start failed", "error", err)
		} else {
			slog.Debug("ble: advertising", "tablet_id", rec.TabletID, "seq", rec.Seq, "payload", fmt.Sprintf("% X", payload))
		}

		select {
		case <-ctx.Done():
			_ = adv.Stop()
			return nil
		case <-ticker.C:
			_ = adv.Stop()
		}
	}
}
