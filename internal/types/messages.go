package types

import (
	"encoding/json"

	"github.com/tiiuae/groundcontrol/internal/contextmenu"
	"github.com/tiiuae/groundcontrol/internal/coordinates"
	"github.com/tiiuae/groundcontrol/internal/mission"
)

// Outbound payloads are written to the backend socket under their event name
type Outbound interface {
	EventName() string
}

type ConnectToDrone struct {
	Port           string `json:"port"`
	Baud           int    `json:"baud"`
	Wireless       bool   `json:"wireless"`
	ConnectionType string `json:"connectionType"`
}

type DisconnectFromDrone struct{}

type GetComPorts struct{}

type QueryDroneConnection struct{}

type SetState struct {
	State string `json:"state"`
}

type GetHomePosition struct{}

type GetCurrentMission struct {
	Type mission.Kind `json:"type"`
}

type UploadMission struct {
	Type        mission.Kind       `json:"type"`
	MissionData []mission.WireItem `json:"mission_data"`
}

func (ConnectToDrone) EventName() string       { return "connect_to_drone" }
func (DisconnectFromDrone) EventName() string  { return "disconnect_from_drone" }
func (GetComPorts) EventName() string          { return "get_com_ports" }
func (QueryDroneConnection) EventName() string { return "is_connected_to_drone" }
func (SetState) EventName() string             { return "set_state" }
func (GetHomePosition) EventName() string      { return "get_home_position" }
func (GetCurrentMission) EventName() string    { return "get_current_mission" }
func (UploadMission) EventName() string        { return "upload_mission" }

// Inbound backend events

type SocketConnected struct{}

type SocketDisconnected struct {
	Reason string
}

type DroneConnectionState struct {
	Connected bool
}

type ComPortList struct {
	Ports []string
}

type ConnectedToDrone struct {
	AircraftType int `json:"aircraft_type"`
}

type DisconnectedFromDrone struct{}

type ConnectionError struct {
	Message string `json:"message"`
}

type DroneConnectStatus struct {
	Message string `json:"message"`
}

// IncomingMsg is a raw telemetry packet, decoded by the telemetry handler
type IncomingMsg struct {
	PacketType string
	Raw        json.RawMessage
}

// HomePosition holds fixed-point lat/lon like mission items
type HomePosition struct {
	Lat int32   `json:"lat"`
	Lon int32   `json:"lon"`
	Alt float64 `json:"alt"`
}

func (h HomePosition) Position() coordinates.LatLng {
	return coordinates.LatLng{Lat: coordinates.ToDegrees(h.Lat), Lng: coordinates.ToDegrees(h.Lon)}
}

type HomePositionResult struct {
	Success bool          `json:"success"`
	Data    *HomePosition `json:"data"`
	Message string        `json:"message"`
}

type CurrentMission struct {
	Success     bool
	MissionType string
	Items       []mission.Item
	Message     string
}

type UploadMissionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// User actions

type SelectTab struct {
	Kind mission.Kind
}

// ReadCollection and WriteCollection act on the active tab when Kind is empty
type ReadCollection struct {
	Kind mission.Kind
}

type WriteCollection struct {
	Kind mission.Kind
}

type ListCollection struct {
	Kind mission.Kind
}

type InsertCommand struct {
	Command mission.Command
	At      coordinates.LatLng
}

type DeleteNearest struct {
	At coordinates.LatLng
}

type MoveItem struct {
	Kind mission.Kind
	ID   string
	To   coordinates.LatLng
}

type SaveMission struct {
	Name string
}

type ImportMission struct {
	Name string
}

type ExportMission struct {
	Path string
}

type ListSnapshots struct{}

type ConnectRequest struct {
	ConnectionType string
}

type DisconnectRequest struct{}

type RefreshComPorts struct{}

type SelectComPort struct {
	Port string
}

// SetConnectionPreferences changes the non-empty fields only
type SetConnectionPreferences struct {
	Baud        string
	Wireless    *bool
	NetworkType string
	IP          string
	Port        string
}

type ShowStatus struct{}

// Map pointer events

type ViewportResized struct {
	Size contextmenu.Size
}

type RightClick struct {
	Point  contextmenu.Point
	At     coordinates.LatLng
	Target *contextmenu.Element
}

type MenuRendered struct {
	Size contextmenu.Size
}

type SubmenuRendered struct {
	Size contextmenu.Size
}

type KeyDown struct {
	Key string
}

type PointerDown struct {
	Point contextmenu.Point
}

type ToggleSubmenu struct{}

type MenuAction struct {
	Action  contextmenu.Action
	Command mission.Command
}

type DragStart struct {
	Kind mission.Kind
	ID   string
}

type DragEnd struct {
	Kind mission.Kind
	ID   string
	To   coordinates.LatLng
}

// Derived

type NotificationLevel string

const (
	LevelInfo    NotificationLevel = "info"
	LevelSuccess NotificationLevel = "success"
	LevelWarning NotificationLevel = "warning"
	LevelError   NotificationLevel = "error"
)

type Notification struct {
	Level NotificationLevel `json:"level"`
	Text  string            `json:"text"`
}

type CollectionChanged struct {
	Kind  mission.Kind   `json:"kind"`
	Items []mission.Item `json:"items"`
}

// SnapshotList names the saved missions, most recent first
type SnapshotList struct {
	Names []string `json:"names"`
}

type UploadOutcome string

const (
	UploadSucceeded UploadOutcome = "success"
	UploadFailed    UploadOutcome = "failure"
	UploadTimeout   UploadOutcome = "timeout"
)

type UploadFinished struct {
	Kind    mission.Kind  `json:"kind"`
	Outcome UploadOutcome `json:"outcome"`
	Late    bool          `json:"late"`
}

type UploadStarted struct {
	Kind  mission.Kind `json:"kind"`
	Count int          `json:"count"`
}

// UploadTimedOut is posted by the upload timer of the given session
type UploadTimedOut struct {
	Session int
}

type HomePositionChanged struct {
	Home HomePosition `json:"home"`
}

type DroneConnectionChanged struct {
	Connected    bool `json:"connected"`
	AircraftType int  `json:"aircraft_type"`
}

// Telemetry, decoded from incoming_msg

type GlobalPositionInt struct {
	TimeBootMs  uint32 `json:"time_boot_ms"`
	Lat         int32  `json:"lat"`
	Lon         int32  `json:"lon"`
	Alt         int32  `json:"alt"`
	RelativeAlt int32  `json:"relative_alt"`
	Vx          int16  `json:"vx"`
	Vy          int16  `json:"vy"`
	Vz          int16  `json:"vz"`
	Hdg         uint16 `json:"hdg"`
}

type NavControllerOutput struct {
	NavRoll       float64 `json:"nav_roll"`
	NavPitch      float64 `json:"nav_pitch"`
	NavBearing    int     `json:"nav_bearing"`
	TargetBearing int     `json:"target_bearing"`
	WpDist        int     `json:"wp_dist"`
	AltError      float64 `json:"alt_error"`
	AspdError     float64 `json:"aspd_error"`
	XtrackError   float64 `json:"xtrack_error"`
}

type Heartbeat struct {
	Type           int    `json:"type"`
	Autopilot      int    `json:"autopilot"`
	BaseMode       int    `json:"base_mode"`
	CustomMode     int    `json:"custom_mode"`
	SystemStatus   int    `json:"system_status"`
	MavlinkVersion int    `json:"mavlink_version"`
	FlightMode     string `json:"flight_mode"`
	Armed          bool   `json:"armed"`
}

type VfrHud struct {
	Airspeed    float64 `json:"airspeed"`
	Groundspeed float64 `json:"groundspeed"`
	Heading     int     `json:"heading"`
	Throttle    int     `json:"throttle"`
	Alt         float64 `json:"alt"`
	Climb       float64 `json:"climb"`
}

type Attitude struct {
	TimeBootMs uint32  `json:"time_boot_ms"`
	Roll       float64 `json:"roll"`
	Pitch      float64 `json:"pitch"`
	Yaw        float64 `json:"yaw"`
	Rollspeed  float64 `json:"rollspeed"`
	Pitchspeed float64 `json:"pitchspeed"`
	Yawspeed   float64 `json:"yawspeed"`
}

type SysStatus struct {
	VoltageBattery   int `json:"voltage_battery"`
	CurrentBattery   int `json:"current_battery"`
	BatteryRemaining int `json:"battery_remaining"`
	DropRateComm     int `json:"drop_rate_comm"`
	ErrorsComm       int `json:"errors_comm"`
	Load             int `json:"load"`
}

// MenuChanged describes the context menu after each map interaction
type MenuChanged struct {
	State    string             `json:"state"`
	Visible  bool               `json:"visible"`
	Position contextmenu.Point  `json:"position"`
	At       coordinates.LatLng `json:"at"`
	Target   string             `json:"target,omitempty"`
}

type VehiclePositionChanged struct {
	At      coordinates.LatLng `json:"at"`
	Heading float64            `json:"heading"`
}
