// Command advertiser impersonates a tablet: it broadcasts battery frames with
// an incrementing sequence number so the monitor can be tried without one.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/elvisdt/HT-MONITOR-BLE/internal/beacon"
	"github.com/elvisdt/HT-MONITOR-BLE/internal/ble"
	"github.com/elvisdt/HT-MONITOR-BLE/internal/config"
	"github.com/elvisdt/HT-MONITOR-BLE/internal/logging"
)

var version = "dev"
var appName = "ht-advertiser"

func main() {
	sim, err := config.LoadSimulatorFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(config.Config{AppEnv: sim.AppEnv, LogLevel: sim.LogLevel}, version, appName)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	adv := ble.NewAdvertiser(ble.AdvertiserOptions{
		Adapter:   sim.BLEAdapter,
		LocalName: sim.LocalName(),
		CompanyID: sim.CompanyID,
		Variant:   sim.Variant,
		Magic:     sim.Magic,
		Interval:  sim.Interval,
	})

	slog.Info("advertising", "name", sim.LocalName(), "tablet_id", sim.TabletID, "interval", sim.Interval.String())

	battery := uint8(100)
	err = adv.Run(ctx, func() beacon.Record {
		rec := beacon.Record{
			TabletID:       sim.TabletID,
			BatteryPercent: battery,
			TempC:          28.5,
			VoltageMV:      3300 + uint16(battery)*9,
		}
		if battery <= 20 {
			rec.Flags = beacon.FlagCharging | beacon.FlagPlugged
		}
		if battery > 0 {
			battery--
		} else {
			battery = 100
		}
		return rec
	})
	if err != nil {
		slog.Error("advertiser failed", "err", err)
		os.Exit(1)
	}
}
