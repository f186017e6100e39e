package telemetry

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/tiiuae/groundcontrol/internal/coordinates"
	"github.com/tiiuae/groundcontrol/internal/types"
)

// AircraftTypeSource reports the type of the connected aircraft
type AircraftTypeSource interface {
	AircraftType() int
}

// Report is the aggregated vehicle state sent at a fixed rate
type Report struct {
	Timestamp int64 `json:"timestamp"`

	LocationUpdated bool    `json:"location_updated"`
	Lat             float64 `json:"lat"`
	Lon             float64 `json:"lon"`
	RelativeAlt     float64 `json:"relative_alt"`
	Heading         float64 `json:"heading"`

	HudUpdated  bool    `json:"hud_updated"`
	Airspeed    float64 `json:"airspeed"`
	Groundspeed float64 `json:"groundspeed"`
	Climb       float64 `json:"climb"`

	StateUpdated bool   `json:"state_updated"`
	FlightMode   string `json:"flight_mode"`
	Armed        bool   `json:"armed"`

	BatteryUpdated   bool    `json:"battery_updated"`
	BatteryVoltageV  float64 `json:"battery_voltage_v"`
	BatteryRemaining int     `json:"battery_remaining"`

	WpDist int `json:"wp_dist"`
}

type telemetry struct {
	deviceID string
	inbox    chan types.Message
	aircraft AircraftTypeSource
	interval time.Duration

	mu      sync.Mutex
	current Report
	sent    bool
}

// New creates the handler that fans incoming_msg packets out as typed messages and
// publishes an aggregated Report every interval when something changed.
func New(deviceID string, aircraft AircraftTypeSource, interval time.Duration) types.MessageHandler {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &telemetry{deviceID: deviceID, inbox: make(chan types.Message, 100), aircraft: aircraft, interval: interval, sent: true}
}

func (t *telemetry) Run(ctx context.Context, wg *sync.WaitGroup, post types.PostFn) {
	wg.Add(1)
	defer wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Telemetry shutting down")
			return
		case msg := <-t.inbox:
			for _, x := range t.handleMessage(msg) {
				post(x)
			}
		case <-ticker.C:
			if r, ok := t.report(); ok {
				post(types.CreateMessage("telemetry-report", t.deviceID, "*", r))
			}
		}
	}
}

func (t *telemetry) Receive(message types.Message) {
	if _, ok := message.Message.(types.IncomingMsg); !ok {
		return
	}
	select {
	case t.inbox <- message:
	default:
		log.Printf("Telemetry: inbox full, dropping packet")
	}
}

func (t *telemetry) handleMessage(msg types.Message) []types.Message {
	m, ok := msg.Message.(types.IncomingMsg)
	if !ok {
		return nil
	}
	payload, ok, err := Decode(m.PacketType, m.Raw, t.aircraft.AircraftType())
	if err != nil {
		log.Printf("Telemetry: %v", err)
		return nil
	}
	if !ok {
		return nil
	}
	t.update(payload)
	return []types.Message{types.CreateMessage(types.TypeName(payload), t.deviceID, "*", payload)}
}

func (t *telemetry) update(payload interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch p := payload.(type) {
	case types.GlobalPositionInt:
		// (0, 0) means no fix yet
		if p.Lat == 0 || p.Lon == 0 {
			return
		}
		t.current.LocationUpdated = true
		t.current.Lat = coordinates.ToDegrees(p.Lat)
		t.current.Lon = coordinates.ToDegrees(p.Lon)
		t.current.RelativeAlt = float64(p.RelativeAlt) / 1000
		t.current.Heading = float64(p.Hdg) / 100
	case types.VfrHud:
		t.current.HudUpdated = true
		t.current.Airspeed = p.Airspeed
		t.current.Groundspeed = p.Groundspeed
		t.current.Climb = p.Climb
	case types.Heartbeat:
		t.current.StateUpdated = true
		t.current.FlightMode = p.FlightMode
		t.current.Armed = p.Armed
	case types.SysStatus:
		t.current.BatteryUpdated = true
		t.current.BatteryVoltageV = float64(p.VoltageBattery) / 1000
		t.current.BatteryRemaining = p.BatteryRemaining
	case types.NavControllerOutput:
		t.current.WpDist = p.WpDist
	default:
		return
	}
	t.sent = false
}

// report returns the pending aggregate and clears the update flags
func (t *telemetry) report() (Report, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sent {
		return Report{}, false
	}
	r := t.current
	r.Timestamp = time.Now().UnixNano() / 1000
	t.sent = true
	t.current.LocationUpdated = false
	t.current.HudUpdated = false
	t.current.StateUpdated = false
	t.current.BatteryUpdated = false
	return r, true
}
