package beacon

import (
	"encoding/binary"
	"math"
)

// Encode builds a manufacturer data payload the way the tablet app does:
// battery is clamped to 0..100 and the temperature is stored as tenths of a
// degree, saturated to the int16 range. magic is ignored for VariantLoose.
func Encode(rec Record, v Variant, magic uint16) []byte {
	var b []byte
	if v == VariantLoose {
		b = make([]byte, LoosePayloadLen)
	} else {
		b = make([]byte, StrictPayloadLen)
		binary.LittleEndian.PutUint16(b[0:2], magic)
	}
	body := b[len(b)-LoosePayloadLen:]

	battery := rec.BatteryPercent
	if battery > 100 {
		battery = 100
	}
	binary.LittleEndian.PutUint16(body[0:2], rec.TabletID)
	body[2] = battery
	body[3] = byte(rec.Flags)
	binary.LittleEndian.PutUint16(body[4:6], uint16(tempTenths(rec.TempC)))
	binary.LittleEndian.PutUint16(body[6:8], rec.VoltageMV)
	body[8] = rec.Seq
	return b
}

func tempTenths(c float64) int16 {
	t := math.Round(c * 10)
	switch {
	case t > math.MaxInt16:
		return math.MaxInt16
	case t < math.MinInt16:
		return math.MinInt16
	}
	return int16(t)
}
