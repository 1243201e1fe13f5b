package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/elvisdt/HT-MONITOR-BLE/internal/beacon"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level

	BLEAdapter string
	ScanBuffer int

	CompanyID      uint16
	DecodeVariant  beacon.Variant
	PayloadMagic   uint16
	StrictLength   bool
	ExpectedLen    int
	BatteryMin     uint8
	BatteryMax     uint8
	TempMinC       float64
	TempMaxC       float64
	VoltageMinMV   uint16
	VoltageMaxMV   uint16
	TabletIDFilter *uint16

	NameFilterEnabled bool
	TargetName        string
	NameMatchMode     beacon.MatchMode

	ShowRawHex      bool
	MultilineMode   bool
	DedupOnSequence bool
	EmitRejections  bool

	MQTTEnabled     bool
	MQTTBroker      string
	MQTTPort        int
	MQTTClientID    string
	MQTTTopicPrefix string

	// HTTPAddr enables the status endpoint when non-empty.
	HTTPAddr string
}

func LoadFromEnv() (Config, error) {
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(envOr("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}

	scanBuffer, err := envInt("SCAN_BUFFER", 64)
	if err != nil {
		return Config{}, err
	}
	if scanBuffer <= 0 {
		return Config{}, fmt.Errorf("SCAN_BUFFER must be positive, got %d", scanBuffer)
	}

	companyID, err := envUint16("COMPANY_ID", "0xFFFF")
	if err != nil {
		return Config{}, err
	}

	variantStr := envOr("DECODE_VARIANT", "strict")
	variant, err := beacon.ParseVariant(variantStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DECODE_VARIANT %q: %w", variantStr, err)
	}

	magic, err := envUint16("PAYLOAD_MAGIC", "0xAABB")
	if err != nil {
		return Config{}, err
	}
	strictLength, err := envBool("STRICT_LENGTH", true)
	if err != nil {
		return Config{}, err
	}
	expectedLen, err := envInt("EXPECTED_LEN", beacon.StrictPayloadLen)
	if err != nil {
		return Config{}, err
	}
	if expectedLen < beacon.StrictPayloadLen {
		return Config{}, fmt.Errorf("EXPECTED_LEN must be at least %d, got %d", beacon.StrictPayloadLen, expectedLen)
	}

	batteryMin, err := envUint8("BATTERY_MIN", "0")
	if err != nil {
		return Config{}, err
	}
	batteryMax, err := envUint8("BATTERY_MAX", "100")
	if err != nil {
		return Config{}, err
	}
	if batteryMin > batteryMax {
		return Config{}, fmt.Errorf("BATTERY_MIN %d exceeds BATTERY_MAX %d", batteryMin, batteryMax)
	}

	tempMin, err := envFloat("TEMP_MIN_C", "-20")
	if err != nil {
		return Config{}, err
	}
	tempMax, err := envFloat("TEMP_MAX_C", "80")
	if err != nil {
		return Config{}, err
	}
	if tempMin > tempMax {
		return Config{}, fmt.Errorf("TEMP_MIN_C %g exceeds TEMP_MAX_C %g", tempMin, tempMax)
	}

	voltageMin, err := envUint16("VOLTAGE_MIN_MV", "2500")
	if err != nil {
		return Config{}, err
	}
	voltageMax, err := envUint16("VOLTAGE_MAX_MV", "5000")
	if err != nil {
		return Config{}, err
	}
	if voltageMin > voltageMax {
		return Config{}, fmt.Errorf("VOLTAGE_MIN_MV %d exceeds VOLTAGE_MAX_MV %d", voltageMin, voltageMax)
	}

	var tabletFilter *uint16
	if s := strings.TrimSpace(os.Getenv("TABLET_ID_FILTER")); s != "" {
		id, err := strconv.ParseUint(s, 0, 16)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TABLET_ID_FILTER %q: %w", s, err)
		}
		v := uint16(id)
		tabletFilter = &v
	}

	nameFilterEnabled, err := envBool("NAME_FILTER_ENABLED", false)
	if err != nil {
		return Config{}, err
	}
	targetName := envOr("TARGET_NAME", beacon.DefaultTargetName)
	modeStr := envOr("NAME_MATCH_MODE", "prefix")
	mode, err := beacon.ParseMatchMode(modeStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid NAME_MATCH_MODE %q: %w", modeStr, err)
	}

	showRaw, err := envBool("SHOW_RAW_HEX", true)
	if err != nil {
		return Config{}, err
	}
	multiline, err := envBool("MULTILINE_MODE", false)
	if err != nil {
		return Config{}, err
	}
	dedup, err := envBool("DEDUP_ON_SEQUENCE", true)
	if err != nil {
		return Config{}, err
	}
	// The strict protocol reports every refusal, the loose one stays quiet.
	emitRejections, err := envBool("EMIT_REJECTIONS", variant == beacon.VariantStrict)
	if err != nil {
		return Config{}, err
	}

	mqttEnabled, err := envBool("MQTT_ENABLED", false)
	if err != nil {
		return Config{}, err
	}
	mqttPort, err := envInt("MQTT_PORT", 1883)
	if err != nil {
		return Config{}, err
	}

	return Config{
		AppEnv:            appEnv,
		LogLevel:          level,
		BLEAdapter:        envOr("BLE_ADAPTER", "hci0"),
		ScanBuffer:        scanBuffer,
		CompanyID:         companyID,
		DecodeVariant:     variant,
		PayloadMagic:      magic,
		StrictLength:      strictLength,
		ExpectedLen:       expectedLen,
		BatteryMin:        batteryMin,
		BatteryMax:        batteryMax,
		TempMinC:          tempMin,
		TempMaxC:          tempMax,
		VoltageMinMV:      voltageMin,
		VoltageMaxMV:      voltageMax,
		TabletIDFilter:    tabletFilter,
		NameFilterEnabled: nameFilterEnabled,
		TargetName:        targetName,
		NameMatchMode:     mode,
		ShowRawHex:        showRaw,
		MultilineMode:     multiline,
		DedupOnSequence:   dedup,
		EmitRejections:    emitRejections,
		MQTTEnabled:       mqttEnabled,
		MQTTBroker:        envOr("MQTT_BROKER", "localhost"),
		MQTTPort:          mqttPort,
		// Empty means generated per process, see mqtt.NewClient.
		MQTTClientID:    strings.TrimSpace(os.Getenv("MQTT_CLIENT_ID")),
		MQTTTopicPrefix: strings.Trim(envOr("MQTT_TOPIC_PREFIX", "tablets"), "/"),
		HTTPAddr:        strings.TrimSpace(os.Getenv("HTTP_ADDR")),
	}, nil
}

// PipelineOptions projects the flat config onto the beacon pipeline options.
func (c Config) PipelineOptions() beacon.Options {
	return beacon.Options{
		CompanyID: c.CompanyID,
		Decode: beacon.DecodeConfig{
			Variant:      c.DecodeVariant,
			Magic:        c.PayloadMagic,
			StrictLength: c.StrictLength,
			ExpectedLen:  c.ExpectedLen,
			BatteryMin:   c.BatteryMin,
			BatteryMax:   c.BatteryMax,
			TempMinC:     c.TempMinC,
			TempMaxC:     c.TempMaxC,
			VoltageMinMV: c.VoltageMinMV,
			VoltageMaxMV: c.VoltageMaxMV,
			TabletID:     c.TabletIDFilter,
		},
		Names: beacon.NameFilter{
			Enabled: c.NameFilterEnabled,
			Target:  c.TargetName,
			Mode:    c.NameMatchMode,
		},
		Format: beacon.FormatOptions{
			ShowRaw:   c.ShowRawHex,
			Multiline: c.MultilineMode,
		},
		DedupOnSequence: c.DedupOnSequence,
		EmitRejections:  c.EmitRejections,
	}
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt(key string, def int) (int, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return v, nil
}

func envUint8(key, def string) (uint8, error) {
	s := envOr(key, def)
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return uint8(v), nil
}

// envUint16 accepts decimal or 0x-prefixed hex.
func envUint16(key, def string) (uint16, error) {
	s := envOr(key, def)
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return uint16(v), nil
}

func envFloat(key, def string) (float64, error) {
	s := envOr(key, def)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return v, nil
}

func envBool(key string, def bool) (bool, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return v, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

// Simulator configures cmd/advertiser.
type Simulator struct {
	AppEnv     string
	LogLevel   slog.Level
	BLEAdapter string
	CompanyID  uint16
	Variant    beacon.Variant
	Magic      uint16
	TabletID   uint16
	Interval   time.Duration
}

// LocalName is the name the simulated tablet advertises.
func (s Simulator) LocalName() string {
	return fmt.Sprintf("%s-%02d", beacon.DefaultTargetName, s.TabletID)
}

func LoadSimulatorFromEnv() (Simulator, error) {
	level, err := parseLogLevel(envOr("LOG_LEVEL", "info"))
	if err != nil {
		return Simulator{}, err
	}
	companyID, err := envUint16("COMPANY_ID", "0xFFFF")
	if err != nil {
		return Simulator{}, err
	}
	variantStr := envOr("DECODE_VARIANT", "strict")
	variant, err := beacon.ParseVariant(variantStr)
	if err != nil {
		return Simulator{}, fmt.Errorf("invalid DECODE_VARIANT %q: %w", variantStr, err)
	}
	magic, err := envUint16("PAYLOAD_MAGIC", "0xAABB")
	if err != nil {
		return Simulator{}, err
	}
	tabletID, err := envUint16("SIM_TABLET_ID", "1")
	if err != nil {
		return Simulator{}, err
	}
	intervalStr := envOr("SIM_INTERVAL", "1s")
	interval, err := time.ParseDuration(intervalStr)
	if err != nil || interval <= 0 {
		return Simulator{}, fmt.Errorf("invalid SIM_INTERVAL %q", intervalStr)
	}

	return Simulator{
		AppEnv:     envOr("APP_ENV", "dev"),
		LogLevel:   level,
		BLEAdapter: envOr("BLE_ADAPTER", "hci0"),
		CompanyID:  companyID,
		Variant:    variant,
		Magic:      magic,
		TabletID:   tabletID,
		Interval:   interval,
	}, nil
}
