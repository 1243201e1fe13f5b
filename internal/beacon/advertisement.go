package beacon

import (
	"strconv"
	"time"
)

// RSSIUnavailable is shown when the scanner reports no signal strength.
const RSSIUnavailable = "N/A"

// Advertisement is one scanner event. The scanner owns it; the pipeline only
// reads it.
type Advertisement struct {
	Address    string
	LocalName  string
	CachedName string
	RSSI       *int16

	// ManufacturerData maps company identifier to raw payload.
	ManufacturerData map[uint16][]byte

	SeenAt time.Time
}

// DisplayName prefers the advertised name, then the cached device name.
func (a Advertisement) DisplayName() string {
	if a.LocalName != "" {
		return a.LocalName
	}
	if a.CachedName != "" {
		return a.CachedName
	}
	return NoNamePlaceholder
}

// Validate checks the event shape the scanner promises to deliver.
func (a Advertisement) Validate() error {
	if a.Address == "" {
		return &ContractError{Field: "address", Msg: "empty device address"}
	}
	for id, data := range a.ManufacturerData {
		if data == nil {
			return &ContractError{Field: "manufacturer_data", Msg: "nil payload for company " + strconv.Itoa(int(id))}
		}
	}
	return nil
}

// RSSIText renders rssi or the unavailable placeholder.
func RSSIText(rssi *int16) string {
	if rssi == nil {
		return RSSIUnavailable
	}
	return strconv.Itoa(int(*rssi))
}
