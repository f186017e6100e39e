package telemetry

import (
	"encoding/json"
	"math"

	"github.com/pkg/errors"
	"github.com/tiiuae/groundcontrol/internal/types"
)

const (
	mavAutopilotInvalid    = 8
	mavModeFlagSafetyArmed = 128
)

// fields gives tolerant access to packet values; missing or malformed numbers read as 0
type fields map[string]json.RawMessage

func (f fields) float(key string) float64 {
	raw, ok := f[key]
	if !ok {
		return 0
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func (f fields) int(key string) int {
	return int(f.float(key))
}

func (f fields) int32(key string) int32 {
	v := math.Round(f.float(key))
	if v > math.MaxInt32 || v < math.MinInt32 {
		return 0
	}
	return int32(v)
}

func (f fields) int16(key string) int16 {
	v := math.Round(f.float(key))
	if v > math.MaxInt16 || v < math.MinInt16 {
		return 0
	}
	return int16(v)
}

func (f fields) uint16(key string) uint16 {
	v := math.Round(f.float(key))
	if v > math.MaxUint16 || v < 0 {
		return 0
	}
	return uint16(v)
}

func (f fields) uint32(key string) uint32 {
	v := math.Round(f.float(key))
	if v > math.MaxUint32 || v < 0 {
		return 0
	}
	return uint32(v)
}

// Decode turns a raw incoming_msg packet into its typed payload.
// ok is false for packet types that are not displayed and for heartbeats of
// components without an autopilot.
func Decode(packetType string, raw json.RawMessage, aircraftType int) (payload interface{}, ok bool, err error) {
	var f fields
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, false, errors.WithMessagef(err, "decode %s", packetType)
	}

	switch packetType {
	case "GLOBAL_POSITION_INT":
		return types.GlobalPositionInt{
			TimeBootMs:  f.uint32("time_boot_ms"),
			Lat:         f.int32("lat"),
			Lon:         f.int32("lon"),
			Alt:         f.int32("alt"),
			RelativeAlt: f.int32("relative_alt"),
			Vx:          f.int16("vx"),
			Vy:          f.int16("vy"),
			Vz:          f.int16("vz"),
			Hdg:         f.uint16("hdg"),
		}, true, nil
	case "NAV_CONTROLLER_OUTPUT":
		return types.NavControllerOutput{
			NavRoll:       f.float("nav_roll"),
			NavPitch:      f.float("nav_pitch"),
			NavBearing:    f.int("nav_bearing"),
			TargetBearing: f.int("target_bearing"),
			WpDist:        f.int("wp_dist"),
			AltError:      f.float("alt_error"),
			AspdError:     f.float("aspd_error"),
			XtrackError:   f.float("xtrack_error"),
		}, true, nil
	case "HEARTBEAT":
		if f.int("autopilot") == mavAutopilotInvalid {
			return nil, false, nil
		}
		baseMode := f.int("base_mode")
		customMode := f.int("custom_mode")
		return types.Heartbeat{
			Type:           f.int("type"),
			Autopilot:      f.int("autopilot"),
			BaseMode:       baseMode,
			CustomMode:     customMode,
			SystemStatus:   f.int("system_status"),
			MavlinkVersion: f.int("mavlink_version"),
			FlightMode:     FlightMode(aircraftType, customMode),
			Armed:          baseMode&mavModeFlagSafetyArmed != 0,
		}, true, nil
	case "VFR_HUD":
		return types.VfrHud{
			Airspeed:    f.float("airspeed"),
			Groundspeed: f.float("groundspeed"),
			Heading:     f.int("heading"),
			Throttle:    f.int("throttle"),
			Alt:         f.float("alt"),
			Climb:       f.float("climb"),
		}, true, nil
	case "ATTITUDE":
		return types.Attitude{
			TimeBootMs: f.uint32("time_boot_ms"),
			Roll:       f.float("roll"),
			Pitch:      f.float("pitch"),
			Yaw:        f.float("yaw"),
			Rollspeed:  f.float("rollspeed"),
			Pitchspeed: f.float("pitchspeed"),
			Yawspeed:   f.float("yawspeed"),
		}, true, nil
	case "SYS_STATUS":
		return types.SysStatus{
			VoltageBattery:   f.int("voltage_battery"),
			CurrentBattery:   f.int("current_battery"),
			BatteryRemaining: f.int("battery_remaining"),
			DropRateComm:     f.int("drop_rate_comm"),
			ErrorsComm:       f.int("errors_comm"),
			Load:             f.int("load"),
		}, true, nil
	}
	return nil, false, nil
}
