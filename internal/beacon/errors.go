package beacon

import (
	"errors"
	"fmt"
)

// Error classes. A *RejectError unwraps to exactly one of them.
var (
	ErrMalformedPayload = errors.New("malformed payload")
	ErrProtocolMismatch = errors.New("protocol mismatch")
	ErrOutOfRange       = errors.New("out of range")
	ErrFiltered         = errors.New("filtered")
)

// Reason tags why Decode refused a payload.
type Reason int

const (
	ReasonTooShort Reason = iota + 1
	ReasonLengthMismatch
	ReasonBadMagic
	ReasonOutOfRange
	ReasonFilteredOut
)

func (r Reason) String() string {
	switch r {
	case ReasonTooShort:
		return "too_short"
	case ReasonLengthMismatch:
		return "length_mismatch"
	case ReasonBadMagic:
		return "bad_magic"
	case ReasonOutOfRange:
		return "out_of_range"
	case ReasonFilteredOut:
		return "filtered_out"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// Class returns the error class sentinel for r.
func (r Reason) Class() error {
	switch r {
	case ReasonTooShort, ReasonLengthMismatch:
		return ErrMalformedPayload
	case ReasonBadMagic:
		return ErrProtocolMismatch
	case ReasonOutOfRange:
		return ErrOutOfRange
	case ReasonFilteredOut:
		return ErrFiltered
	default:
		return nil
	}
}

// Field names a range-validated record field.
type Field string

const (
	FieldBattery Field = "battery"
	FieldTemp    Field = "temp"
	FieldVoltage Field = "voltage"
)

// RejectError is the typed result of a refused payload.
// Only the members relevant to Reason are set.
type RejectError struct {
	Reason Reason

	// Len is the payload length, Want the length the layout requires.
	Len  int
	Want int

	Magic     uint16
	WantMagic uint16

	Field Field
	Value float64

	TabletID uint16
}

func (e *RejectError) Error() string {
	switch e.Reason {
	case ReasonTooShort:
		return fmt.Sprintf("payload too short: %d bytes, want at least %d", e.Len, e.Want)
	case ReasonLengthMismatch:
		return fmt.Sprintf("payload length mismatch: %d bytes, want %d", e.Len, e.Want)
	case ReasonBadMagic:
		return fmt.Sprintf("bad magic: 0x%04X, want 0x%04X", e.Magic, e.WantMagic)
	case ReasonOutOfRange:
		return fmt.Sprintf("%s out of range: %g", e.Field, e.Value)
	case ReasonFilteredOut:
		return fmt.Sprintf("tablet id %d filtered out", e.TabletID)
	default:
		return "payload rejected: " + e.Reason.String()
	}
}

func (e *RejectError) Unwrap() error { return e.Reason.Class() }

// ContractError reports an advertisement that breaks the scanner's documented
// event shape. It is a programming error, not a data-quality rejection.
type ContractError struct {
	Field string
	Msg   string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("advertisement contract violation: %s: %s", e.Field, e.Msg)
}
