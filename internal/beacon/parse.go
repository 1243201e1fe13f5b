package beacon

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Payload layouts (little-endian):
//
//	loose  (9 bytes):  tablet_id u16, battery u8, flags u8, temp_x10 i16, voltage_mv u16, seq u8
//	strict (11 bytes): magic u16 followed by the loose layout
const (
	LoosePayloadLen  = 9
	StrictPayloadLen = 11

	DefaultCompanyID uint16 = 0xFFFF
	// DefaultMagic is what the transmitter writes, i.e. bytes BB AA on the wire.
	DefaultMagic uint16 = 0xAABB
)

// Variant selects the wire layout.
type Variant int

const (
	VariantStrict Variant = iota
	VariantLoose
)

func (v Variant) String() string {
	switch v {
	case VariantStrict:
		return "strict"
	case VariantLoose:
		return "loose"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

// ParseVariant accepts "strict" or "loose".
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict":
		return VariantStrict, nil
	case "loose":
		return VariantLoose, nil
	default:
		return VariantStrict, fmt.Errorf("invalid decode variant %q (allowed: strict, loose)", s)
	}
}

// DecodeConfig holds everything Decode needs. Magic, length and range
// settings only apply to VariantStrict.
type DecodeConfig struct {
	Variant      Variant
	Magic        uint16
	StrictLength bool
	ExpectedLen  int

	BatteryMin   uint8
	BatteryMax   uint8
	TempMinC     float64
	TempMaxC     float64
	VoltageMinMV uint16
	VoltageMaxMV uint16

	// TabletID, when set, is the only tablet accepted.
	TabletID *uint16
}

// DefaultDecodeConfig is the strict 11-byte protocol with the transmitter's magic.
func DefaultDecodeConfig() DecodeConfig {
	return DecodeConfig{
		Variant:      VariantStrict,
		Magic:        DefaultMagic,
		StrictLength: true,
		ExpectedLen:  StrictPayloadLen,
		BatteryMin:   0,
		BatteryMax:   100,
		TempMinC:     -20.0,
		TempMaxC:     80.0,
		VoltageMinMV: 2500,
		VoltageMaxMV: 5000,
	}
}

// Decode parses manufacturer data into a Record.
// It never panics; every refusal is a *RejectError.
func Decode(payload []byte, cfg DecodeConfig) (Record, error) {
	if cfg.Variant == VariantLoose {
		return decodeLoose(payload)
	}
	return decodeStrict(payload, cfg)
}

func decodeLoose(data []byte) (Record, error) {
	if len(data) < LoosePayloadLen {
		return Record{}, &RejectError{Reason: ReasonTooShort, Len: len(data), Want: LoosePayloadLen}
	}
	return readBody(data[:LoosePayloadLen]), nil
}

func decodeStrict(data []byte, cfg DecodeConfig) (Record, error) {
	want := cfg.ExpectedLen
	if want < StrictPayloadLen {
		want = StrictPayloadLen
	}
	if cfg.StrictLength && len(data) != want {
		return Record{}, &RejectError{Reason: ReasonLengthMismatch, Len: len(data), Want: want}
	}
	if len(data) < want {
		return Record{}, &RejectError{Reason: ReasonTooShort, Len: len(data), Want: want}
	}

	magic := binary.LittleEndian.Uint16(data[0:2])
	if magic != cfg.Magic {
		return Record{}, &RejectError{Reason: ReasonBadMagic, Magic: magic, WantMagic: cfg.Magic}
	}

	rec := readBody(data[2:StrictPayloadLen])
	rec.Magic = magic

	if rec.BatteryPercent < cfg.BatteryMin || rec.BatteryPercent > cfg.BatteryMax {
		return Record{}, outOfRange(FieldBattery, float64(rec.BatteryPercent))
	}
	if rec.TempC < cfg.TempMinC || rec.TempC > cfg.TempMaxC {
		return Record{}, outOfRange(FieldTemp, rec.TempC)
	}
	if rec.VoltageMV < cfg.VoltageMinMV || rec.VoltageMV > cfg.VoltageMaxMV {
		return Record{}, outOfRange(FieldVoltage, float64(rec.VoltageMV))
	}
	if cfg.TabletID != nil && rec.TabletID != *cfg.TabletID {
		return Record{}, &RejectError{Reason: ReasonFilteredOut, TabletID: rec.TabletID}
	}
	return rec, nil
}

// readBody reads the 9-byte layout shared by both variants.
func readBody(b []byte) Record {
	return Record{
		TabletID:       binary.LittleEndian.Uint16(b[0:2]),
		BatteryPercent: b[2],
		Flags:          Flags(b[3]),
		TempC:          float64(int16(binary.LittleEndian.Uint16(b[4:6]))) / 10.0,
		VoltageMV:      binary.LittleEndian.Uint16(b[6:8]),
		Seq:            b[8],
	}
}

func outOfRange(f Field, v float64) *RejectError {
	return &RejectError{Reason: ReasonOutOfRange, Field: f, Value: v}
}
