package session

import (
	"strconv"
	"sync"

	"github.com/tiiuae/groundcontrol/internal/mission"
)

const (
	ConnectionSerial  = "serial"
	ConnectionNetwork = "network"
)

// Preferences survive restarts
type Preferences struct {
	Baud           string
	Wireless       bool
	ConnectionType string
	NetworkType    string
	IP             string
	Port           string
	ComPort        string
}

func DefaultPreferences() Preferences {
	return Preferences{
		Baud:           "9600",
		Wireless:       true,
		ConnectionType: ConnectionSerial,
		NetworkType:    "tcp",
		IP:             "127.0.0.1",
		Port:           "5760",
	}
}

// Map flattens the preferences to store keys
func (p Preferences) Map() map[string]string {
	return map[string]string{
		"baudrate":           p.Baud,
		"wirelessConnection": strconv.FormatBool(p.Wireless),
		"connectionType":     p.ConnectionType,
		"networkType":        p.NetworkType,
		"ip":                 p.IP,
		"port":               p.Port,
		"selectedComPort":    p.ComPort,
	}
}

// Merge overrides the fields present in m
func (p Preferences) Merge(m map[string]string) Preferences {
	if v, ok := m["baudrate"]; ok {
		p.Baud = v
	}
	if v, ok := m["wirelessConnection"]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			p.Wireless = b
		}
	}
	if v, ok := m["connectionType"]; ok && v != "" {
		p.ConnectionType = v
	}
	if v, ok := m["networkType"]; ok && v != "" {
		p.NetworkType = v
	}
	if v, ok := m["ip"]; ok {
		p.IP = v
	}
	if v, ok := m["port"]; ok {
		p.Port = v
	}
	if v, ok := m["selectedComPort"]; ok {
		p.ComPort = v
	}
	return p
}

// Session is the state shared by the handlers of one process run
type Session struct {
	mu sync.RWMutex

	socketConnected bool
	droneConnected  bool
	connecting      bool
	aircraftType    int
	statusMessage   string
	activeTab       mission.Kind
	comPorts        []string
	preferences     Preferences
}

func New(prefs Preferences) *Session {
	return &Session{activeTab: mission.KindMission, preferences: prefs}
}

func (s *Session) SocketConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.socketConnected
}

func (s *Session) SetSocketConnected(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.socketConnected = v
}

func (s *Session) DroneConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.droneConnected
}

func (s *Session) SetDroneConnected(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.droneConnected = v
}

func (s *Session) Connecting() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connecting
}

func (s *Session) SetConnecting(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connecting = v
}

func (s *Session) AircraftType() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.aircraftType
}

func (s *Session) SetAircraftType(v int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aircraftType = v
}

func (s *Session) StatusMessage() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statusMessage
}

func (s *Session) SetStatusMessage(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusMessage = v
}

func (s *Session) ActiveTab() mission.Kind {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeTab
}

func (s *Session) SetActiveTab(k mission.Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeTab = k
}

func (s *Session) ComPorts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.comPorts))
	copy(out, s.comPorts)
	return out
}

func (s *Session) SetComPorts(ports []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comPorts = append([]string(nil), ports...)
}

func (s *Session) Preferences() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.preferences
}

// UpdatePreferences applies fn to a copy of the preferences and stores the result
func (s *Session) UpdatePreferences(fn func(*Preferences)) Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.preferences
	fn(&p)
	s.preferences = p
	return p
}

// Teardown clears everything tied to the current drone link. Preferences and the
// socket flag are kept.
func (s *Session) Teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.droneConnected = false
	s.connecting = false
	s.aircraftType = 0
	s.statusMessage = ""
	s.comPorts = nil
}

// Snapshot is a consistent copy of the session for display
type Snapshot struct {
	SocketConnected bool
	DroneConnected  bool
	Connecting      bool
	AircraftType    int
	StatusMessage   string
	ActiveTab       mission.Kind
	ComPorts        []string
	Preferences     Preferences
}

func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		SocketConnected: s.socketConnected,
		DroneConnected:  s.droneConnected,
		Connecting:      s.connecting,
		AircraftType:    s.aircraftType,
		StatusMessage:   s.statusMessage,
		ActiveTab:       s.activeTab,
		ComPorts:        append([]string(nil), s.comPorts...),
		Preferences:     s.preferences,
	}
}
