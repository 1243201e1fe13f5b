package beacon

import (
	"errors"
	"testing"
)

// Payload from a tablet with id 1: 85 %, charging+full, 28.1 C, 3594 mV, seq 7.
var samplePayload = []byte{0xAA, 0xBB, 0x01, 0x00, 0x55, 0x03, 0x19, 0x01, 0x0A, 0x0E, 0x07}

func sampleConfig() DecodeConfig {
	cfg := DefaultDecodeConfig()
	cfg.Magic = 0xBBAA
	return cfg
}

func strictPayload(t *testing.T, rec Record) []byte {
	t.Helper()
	return Encode(rec, VariantStrict, 0xBBAA)
}

func validRecord() Record {
	return Record{TabletID: 1, BatteryPercent: 85, Flags: 0x03, TempC: 28.1, VoltageMV: 3594, Seq: 7}
}

func wantReject(t *testing.T, err error, reason Reason, class error) *RejectError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s rejection, got nil", reason)
	}
	var rej *RejectError
	if !errors.As(err, &rej) {
		t.Fatalf("error %v (%T) is not a *RejectError", err, err)
	}
	if rej.Reason != reason {
		t.Fatalf("reason = %s; want %s (err=%v)", rej.Reason, reason, err)
	}
	if !errors.Is(err, class) {
		t.Fatalf("errors.Is(%v, %v) = false", err, class)
	}
	return rej
}

func TestDecode_StrictSamplePayload(t *testing.T) {
	rec, err := Decode(samplePayload, sampleConfig())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := Record{Magic: 0xBBAA, TabletID: 1, BatteryPercent: 85, Flags: 0x03, TempC: 28.1, VoltageMV: 3594, Seq: 7}
	if rec != want {
		t.Fatalf("Decode = %+v; want %+v", rec, want)
	}
	if !rec.Flags.Charging() || !rec.Flags.Full() || rec.Flags.Plugged() {
		t.Errorf("flags = %s; want charging, full, not plugged", rec.Flags)
	}
}

func TestDecode_StrictLengthTruncated(t *testing.T) {
	_, err := Decode(samplePayload[:8], sampleConfig())
	rej := wantReject(t, err, ReasonLengthMismatch, ErrMalformedPayload)
	if rej.Len != 8 || rej.Want != StrictPayloadLen {
		t.Errorf("len/want = %d/%d; want 8/%d", rej.Len, rej.Want, StrictPayloadLen)
	}
}

func TestDecode_StrictLengthRejectsTrailingBytes(t *testing.T) {
	payload := append(append([]byte(nil), samplePayload...), 0xFF)
	_, err := Decode(payload, sampleConfig())
	wantReject(t, err, ReasonLengthMismatch, ErrMalformedPayload)
}

func TestDecode_MinimumLengthIgnoresTrailingBytes(t *testing.T) {
	cfg := sampleConfig()
	cfg.StrictLength = false
	payload := append(append([]byte(nil), samplePayload...), 0xFF)

	rec, err := Decode(payload, cfg)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if rec.TabletID != 1 || rec.Seq != 7 || rec.VoltageMV != 3594 {
		t.Errorf("Decode = %+v; want tablet 1 seq 7 3594 mV", rec)
	}
}

func TestDecode_ShortBuffersAreMalformed(t *testing.T) {
	strictLen := sampleConfig()
	minLen := sampleConfig()
	minLen.StrictLength = false
	loose := DecodeConfig{Variant: VariantLoose}

	cases := []struct {
		name   string
		cfg    DecodeConfig
		max    int
		reason Reason
	}{
		{"strict exact length", strictLen, StrictPayloadLen, ReasonLengthMismatch},
		{"strict minimum length", minLen, StrictPayloadLen, ReasonTooShort},
		{"loose", loose, LoosePayloadLen, ReasonTooShort},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for n := 0; n < tc.max; n++ {
				rec, err := Decode(samplePayload[:n], tc.cfg)
				if rec != (Record{}) {
					t.Fatalf("len %d: got record %+v alongside error", n, rec)
				}
				wantReject(t, err, tc.reason, ErrMalformedPayload)
			}
		})
	}
}

func TestDecode_NilPayload(t *testing.T) {
	_, err := Decode(nil, sampleConfig())
	wantReject(t, err, ReasonLengthMismatch, ErrMalformedPayload)
}

func TestDecode_ExpectedLenLongerThanLayout(t *testing.T) {
	cfg := sampleConfig()
	cfg.ExpectedLen = 12
	if _, err := Decode(samplePayload, cfg); err == nil {
		t.Fatal("11-byte payload accepted with expected_len 12")
	}
	payload := append(append([]byte(nil), samplePayload...), 0x00)
	if _, err := Decode(payload, cfg); err != nil {
		t.Fatalf("Decode 12-byte payload: %v", err)
	}
}

func TestDecode_BadMagic(t *testing.T) {
	for _, magic := range []uint16{0x0000, 0xAABB, 0xBBAB, 0xFFFF} {
		payload := Encode(validRecord(), VariantStrict, magic)
		_, err := Decode(payload, sampleConfig())
		rej := wantReject(t, err, ReasonBadMagic, ErrProtocolMismatch)
		if rej.Magic != magic || rej.WantMagic != 0xBBAA {
			t.Errorf("magic = 0x%04X want 0x%04X; got %+v", magic, 0xBBAA, rej)
		}
	}
}

func TestDecode_DefaultMagicMatchesTransmitter(t *testing.T) {
	payload := Encode(validRecord(), VariantStrict, DefaultMagic)
	if payload[0] != 0xBB || payload[1] != 0xAA {
		t.Fatalf("magic bytes = % X; want BB AA", payload[:2])
	}
	if _, err := Decode(payload, DefaultDecodeConfig()); err != nil {
		t.Fatalf("Decode: %v", err)
	}
}

func TestDecode_BoundsAreInclusive(t *testing.T) {
	cfg := sampleConfig()
	cfg.BatteryMin = 10

	cases := []struct {
		name   string
		mutate func(*Record)
		field  Field
	}{
		{"battery at max", func(r *Record) { r.BatteryPercent = 100 }, ""},
		{"battery at min", func(r *Record) { r.BatteryPercent = 10 }, ""},
		{"battery below min", func(r *Record) { r.BatteryPercent = 9 }, FieldBattery},
		{"temp at min", func(r *Record) { r.TempC = -20.0 }, ""},
		{"temp below min", func(r *Record) { r.TempC = -20.1 }, FieldTemp},
		{"temp at max", func(r *Record) { r.TempC = 80.0 }, ""},
		{"temp above max", func(r *Record) { r.TempC = 80.1 }, FieldTemp},
		{"voltage at min", func(r *Record) { r.VoltageMV = 2500 }, ""},
		{"voltage below min", func(r *Record) { r.VoltageMV = 2499 }, FieldVoltage},
		{"voltage at max", func(r *Record) { r.VoltageMV = 5000 }, ""},
		{"voltage above max", func(r *Record) { r.VoltageMV = 5001 }, FieldVoltage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := validRecord()
			tc.mutate(&rec)
			_, err := Decode(strictPayload(t, rec), cfg)
			if tc.field == "" {
				if err != nil {
					t.Fatalf("Decode: %v", err)
				}
				return
			}
			rej := wantReject(t, err, ReasonOutOfRange, ErrOutOfRange)
			if rej.Field != tc.field {
				t.Errorf("field = %s; want %s", rej.Field, tc.field)
			}
		})
	}
}

func TestDecode_BatteryAbove100(t *testing.T) {
	// Encode clamps battery, so patch the byte directly.
	for _, b := range []byte{101, 150, 255} {
		payload := strictPayload(t, validRecord())
		payload[4] = b
		_, err := Decode(payload, sampleConfig())
		rej := wantReject(t, err, ReasonOutOfRange, ErrOutOfRange)
		if rej.Field != FieldBattery || rej.Value != float64(b) {
			t.Errorf("battery %d: got field=%s value=%g", b, rej.Field, rej.Value)
		}
	}
}

func TestDecode_TabletIDFilter(t *testing.T) {
	cfg := sampleConfig()
	allowed := uint16(2)
	cfg.TabletID = &allowed

	_, err := Decode(samplePayload, cfg)
	rej := wantReject(t, err, ReasonFilteredOut, ErrFiltered)
	if rej.TabletID != 1 {
		t.Errorf("TabletID = %d; want 1", rej.TabletID)
	}

	allowed = 1
	if _, err := Decode(samplePayload, cfg); err != nil {
		t.Fatalf("Decode with matching tablet filter: %v", err)
	}
}

func TestDecode_LooseIgnoresRangesAndMagic(t *testing.T) {
	cfg := DecodeConfig{Variant: VariantLoose}
	// battery 200, temp -50.0, voltage 0: nonsense but accepted.
	payload := []byte{0x2A, 0x00, 0xC8, 0x04, 0x0C, 0xFE, 0x00, 0x00, 0xFF}

	rec, err := Decode(payload, cfg)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := Record{TabletID: 42, BatteryPercent: 200, Flags: FlagPlugged, TempC: -50.0, VoltageMV: 0, Seq: 255}
	if rec != want {
		t.Fatalf("Decode = %+v; want %+v", rec, want)
	}
}

func TestDecode_LooseExtraBytes(t *testing.T) {
	payload := append(Encode(validRecord(), VariantLoose, 0), 0x01, 0x02)
	rec, err := Decode(payload, DecodeConfig{Variant: VariantLoose})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if rec.Seq != 7 || rec.Magic != 0 {
		t.Errorf("Decode = %+v; want seq 7 and no magic", rec)
	}
}

func TestDecode_IsPure(t *testing.T) {
	cfg := sampleConfig()
	inputs := [][]byte{samplePayload, samplePayload[:5], {0x00, 0x00, 0x01, 0x00, 0x55, 0x03, 0x19, 0x01, 0x0A, 0x0E, 0x07}}
	for _, in := range inputs {
		snapshot := append([]byte(nil), in...)
		r1, e1 := Decode(in, cfg)
		r2, e2 := Decode(in, cfg)
		if r1 != r2 {
			t.Errorf("records differ: %+v vs %+v", r1, r2)
		}
		if (e1 == nil) != (e2 == nil) || (e1 != nil && e1.Error() != e2.Error()) {
			t.Errorf("errors differ: %v vs %v", e1, e2)
		}
		if string(snapshot) != string(in) {
			t.Errorf("Decode modified its input")
		}
	}
}

func TestParseVariant(t *testing.T) {
	for in, want := range map[string]Variant{"strict": VariantStrict, " LOOSE ": VariantLoose} {
		got, err := ParseVariant(in)
		if err != nil || got != want {
			t.Errorf("ParseVariant(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseVariant("v2"); err == nil {
		t.Error("ParseVariant(v2): expected error")
	}
}

func TestRejectError_Messages(t *testing.T) {
	cases := []struct {
		err  *RejectError
		want string
	}{
		{&RejectError{Reason: ReasonTooShort, Len: 3, Want: 9}, "payload too short: 3 bytes, want at least 9"},
		{&RejectError{Reason: ReasonLengthMismatch, Len: 12, Want: 11}, "payload length mismatch: 12 bytes, want 11"},
		{&RejectError{Reason: ReasonBadMagic, Magic: 0x1234, WantMagic: 0xAABB}, "bad magic: 0x1234, want 0xAABB"},
		{&RejectError{Reason: ReasonOutOfRange, Field: FieldTemp, Value: 80.5}, "temp out of range: 80.5"},
		{&RejectError{Reason: ReasonFilteredOut, TabletID: 9}, "tablet id 9 filtered out"},
	}
	for _, tc := range cases {
		if got := tc.err.Error(); got != tc.want {
			t.Errorf("Error() = %q; want %q", got, tc.want)
		}
	}
}
