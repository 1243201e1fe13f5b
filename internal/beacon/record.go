package beacon

import "fmt"

// Flags is the charge-state bitfield carried by every payload.
// Bits above FlagPlugged are reserved and ignored.
type Flags uint8

const (
	FlagCharging Flags = 1 << iota
	FlagFull
	FlagPlugged
)

func (f Flags) Charging() bool { return f&FlagCharging != 0 }
func (f Flags) Full() bool     { return f&FlagFull != 0 }
func (f Flags) Plugged() bool  { return f&FlagPlugged != 0 }

// String renders the raw byte plus the C/F/P breakdown, e.g. "0x05 (C=1 F=0 P=1)".
func (f Flags) String() string {
	return fmt.Sprintf("0x%02X (C=%d F=%d P=%d)", uint8(f), bit(f.Charging()), bit(f.Full()), bit(f.Plugged()))
}

func bit(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Record is a decoded tablet battery advertisement.
// Values only exist after Decode accepted the payload.
type Record struct {
	// Magic is zero for the loose 9-byte layout.
	Magic          uint16
	TabletID       uint16
	BatteryPercent uint8
	Flags          Flags
	TempC          float64
	VoltageMV      uint16
	Seq            uint8
}

// String is the structured rendering used by the multi-line output mode.
func (r Record) String() string {
	return fmt.Sprintf(
		"tablet_id=%d battery_percent=%d flags=0x%02X charging=%t full=%t plugged=%t temp_c=%.1f voltage_mv=%d seq=%d",
		r.TabletID, r.BatteryPercent, uint8(r.Flags),
		r.Flags.Charging(), r.Flags.Full(), r.Flags.Plugged(),
		r.TempC, r.VoltageMV, r.Seq,
	)
}
