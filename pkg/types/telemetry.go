package types

import "time"

// BatteryTelemetry is the MQTT message published for every accepted tablet
// advertisement.
type BatteryTelemetry struct {
	TabletID       uint16    `json:"tablet_id"`
	Address        string    `json:"address"`
	Name           string    `json:"name,omitempty"`
	RSSI           *int16    `json:"rssi,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	BatteryPercent uint8     `json:"battery_pct"`
	Charging       bool      `json:"charging"`
	Full           bool      `json:"full"`
	Plugged        bool      `json:"plugged"`
	Temperature    float64   `json:"temperature_c"`
	Voltage        uint16    `json:"voltage_mv"`
	Sequence       uint8     `json:"sequence"`
}
