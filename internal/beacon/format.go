package beacon

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/elvisdt/HT-MONITOR-BLE/internal/utils"
)

const clockLayout = "15:04:05"

// FormatOptions selects how observations are rendered.
type FormatOptions struct {
	ShowRaw   bool
	Multiline bool
}

// Observation is the device-side context of a decoded or rejected payload.
type Observation struct {
	Name    string
	Address string
	RSSI    *int16
	Payload []byte
	SeenAt  time.Time
}

type Formatter struct {
	opts FormatOptions
}

func NewFormatter(opts FormatOptions) Formatter {
	return Formatter{opts: opts}
}

// FormatAccepted renders an accepted record. The result has no trailing
// newline; in multi-line mode it starts with an empty line.
func (f Formatter) FormatAccepted(obs Observation, rec Record) string {
	if f.opts.Multiline {
		return fmt.Sprintf("\n%s | %s | RSSI %s\nManufacturer Data (hex): %s\n%s",
			obs.Name, obs.Address, RSSIText(obs.RSSI),
			utils.BytesToHex(obs.Payload),
			rec,
		)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s | %s | %s | RSSI %s | id=%d seq=%d batt=%d%% temp=%.1fC volt=%dmV flags=%s",
		obs.SeenAt.Format(clockLayout), obs.Name, obs.Address, RSSIText(obs.RSSI),
		rec.TabletID, rec.Seq, rec.BatteryPercent, rec.TempC, rec.VoltageMV, rec.Flags,
	)
	if f.opts.ShowRaw {
		sb.WriteString(" | raw=")
		sb.WriteString(utils.BytesToHex(obs.Payload))
	}
	return sb.String()
}

// FormatRejected renders a diagnostic line for a payload Decode refused.
// The raw payload is always included since it is the only evidence left.
func (f Formatter) FormatRejected(obs Observation, err error) string {
	reason := "rejected"
	var rej *RejectError
	if errors.As(err, &rej) {
		reason = rej.Reason.String()
	}
	return fmt.Sprintf("%s | %s | %s | RSSI %s | raw=%s | len=%d | ERROR=%s: %v",
		obs.SeenAt.Format(clockLayout), obs.Name, obs.Address, RSSIText(obs.RSSI),
		utils.BytesToHex(obs.Payload), len(obs.Payload),
		reason, err,
	)
}
