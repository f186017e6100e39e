package connection

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tiiuae/groundcontrol/internal/session"
	"github.com/tiiuae/groundcontrol/internal/types"
)

const networkBaud = 115200

// Aircraft types reported by connected_to_drone
const (
	AircraftPlane      = 1
	AircraftQuadcopter = 2
)

type PreferenceStore interface {
	SavePreferences(ctx context.Context, prefs map[string]string) error
}

type connection struct {
	me      string
	inbox   chan types.Message
	done    chan struct{}
	once    sync.Once
	session *session.Session
	store   PreferenceStore
}

// New creates the drone connection handler. store may be nil, in which case
// preferences only live for the process run.
func New(deviceID string, s *session.Session, store PreferenceStore) types.MessageHandler {
	return &connection{
		me:      deviceID,
		inbox:   make(chan types.Message, 50),
		done:    make(chan struct{}),
		session: s,
		store:   store,
	}
}

func (c *connection) Run(ctx context.Context, wg *sync.WaitGroup, post types.PostFn) {
	wg.Add(1)
	defer wg.Done()
	defer c.once.Do(func() { close(c.done) })

	for {
		select {
		case <-ctx.Done():
			log.Println("Connection shutting down")
			return
		case msg := <-c.inbox:
			for _, x := range c.handleMessage(msg) {
				post(x)
			}
		}
	}
}

func (c *connection) Receive(message types.Message) {
	select {
	case c.inbox <- message:
	case <-c.done:
	}
}

func (c *connection) handleMessage(msg types.Message) []types.Message {
	switch m := msg.Message.(type) {
	case types.SocketConnected:
		c.session.SetSocketConnected(true)
		return []types.Message{c.out(types.QueryDroneConnection{})}
	case types.SocketDisconnected:
		wasConnected := c.session.DroneConnected()
		c.session.SetSocketConnected(false)
		c.session.Teardown()
		if wasConnected {
			return []types.Message{c.changed(false)}
		}
	case types.DroneConnectionState:
		return c.handleDroneConnectionState(m)
	case types.ComPortList:
		return c.handleComPortList(m)
	case types.ConnectedToDrone:
		return c.handleConnectedToDrone(m)
	case types.DisconnectedFromDrone:
		log.Printf("Connection: disconnected from drone")
		wasConnected := c.session.DroneConnected()
		c.session.Teardown()
		if wasConnected {
			return []types.Message{c.changed(false)}
		}
	case types.ConnectionError:
		log.Printf("Connection: %s", m.Message)
		wasConnected := c.session.DroneConnected()
		c.session.SetConnecting(false)
		c.session.SetDroneConnected(false)
		out := []types.Message{types.Notify(c.me, types.LevelError, m.Message)}
		if wasConnected {
			out = append(out, c.changed(false))
		}
		return out
	case types.DroneConnectStatus:
		c.session.SetStatusMessage(m.Message)
	case types.ConnectRequest:
		return c.connect(m.ConnectionType)
	case types.DisconnectRequest:
		return []types.Message{c.out(types.DisconnectFromDrone{})}
	case types.RefreshComPorts:
		return c.refreshComPorts()
	case types.SelectComPort:
		c.savePreferences(c.session.UpdatePreferences(func(p *session.Preferences) { p.ComPort = m.Port }))
	case types.SetConnectionPreferences:
		c.savePreferences(c.session.UpdatePreferences(func(p *session.Preferences) {
			if m.Baud != "" {
				p.Baud = m.Baud
			}
			if m.Wireless != nil {
				p.Wireless = *m.Wireless
			}
			if m.NetworkType != "" {
				p.NetworkType = m.NetworkType
			}
			if m.IP != "" {
				p.IP = m.IP
			}
			if m.Port != "" {
				p.Port = m.Port
			}
		}))
	}
	return nil
}

func (c *connection) handleDroneConnectionState(m types.DroneConnectionState) []types.Message {
	wasConnected := c.session.DroneConnected()
	if m.Connected {
		c.session.SetDroneConnected(true)
		if !wasConnected {
			return []types.Message{c.changed(true)}
		}
		return nil
	}

	c.session.SetDroneConnected(false)
	c.session.SetConnecting(false)
	out := c.refreshComPorts()
	if wasConnected {
		out = append(out, c.changed(false))
	}
	return out
}

func (c *connection) handleComPortList(m types.ComPortList) []types.Message {
	c.session.SetComPorts(m.Ports)

	selected := c.session.Preferences().ComPort
	if selected != "" && contains(m.Ports, selected) {
		return nil
	}
	if port, ok := pickComPort(m.Ports); ok {
		c.savePreferences(c.session.UpdatePreferences(func(p *session.Preferences) { p.ComPort = port }))
	}
	return nil
}

func (c *connection) handleConnectedToDrone(m types.ConnectedToDrone) []types.Message {
	c.session.SetAircraftType(m.AircraftType)
	out := make([]types.Message, 0, 2)
	if m.AircraftType != AircraftPlane && m.AircraftType != AircraftQuadcopter {
		out = append(out, types.Notify(c.me, types.LevelError, "Aircraft not of type quadcopter or plane"))
	}
	c.session.SetConnecting(false)
	c.session.SetDroneConnected(true)
	return append(out, c.changed(true))
}

func (c *connection) connect(connectionType string) []types.Message {
	prefs := c.session.Preferences()
	if connectionType == "" {
		connectionType = prefs.ConnectionType
	}

	var req types.ConnectToDrone
	switch connectionType {
	case session.ConnectionSerial:
		if prefs.ComPort == "" {
			return []types.Message{types.Notify(c.me, types.LevelError, "No COM port selected")}
		}
		baud, err := strconv.Atoi(strings.TrimSpace(prefs.Baud))
		if err != nil {
			return []types.Message{types.Notify(c.me, types.LevelError, fmt.Sprintf("Invalid baud rate %q", prefs.Baud))}
		}
		req = types.ConnectToDrone{
			Port:           prefs.ComPort,
			Baud:           baud,
			Wireless:       prefs.Wireless,
			ConnectionType: connectionType,
		}
	case session.ConnectionNetwork:
		if prefs.IP == "" || prefs.Port == "" {
			return []types.Message{types.Notify(c.me, types.LevelError, "IP Address and Port cannot be empty")}
		}
		req = types.ConnectToDrone{
			Port:           NetworkAddress(prefs.NetworkType, prefs.IP, prefs.Port),
			Baud:           networkBaud,
			Wireless:       true,
			ConnectionType: connectionType,
		}
	default:
		log.Printf("Connection: unknown connection type %q", connectionType)
		return nil
	}

	c.session.SetConnecting(true)
	c.savePreferences(c.session.UpdatePreferences(func(p *session.Preferences) { p.ConnectionType = connectionType }))
	return []types.Message{c.out(req)}
}

func (c *connection) refreshComPorts() []types.Message {
	if !c.session.SocketConnected() {
		return nil
	}
	return []types.Message{c.out(types.GetComPorts{})}
}

func (c *connection) savePreferences(p session.Preferences) {
	if c.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.store.SavePreferences(ctx, p.Map()); err != nil {
		log.Printf("Connection: saving preferences failed: %v", err)
	}
}

func (c *connection) out(payload types.Outbound) types.Message {
	return types.CreateMessage(types.TypeName(payload), c.me, "backend", payload)
}

func (c *connection) changed(connected bool) types.Message {
	return types.Wrap(c.me, types.DroneConnectionChanged{Connected: connected, AircraftType: c.session.AircraftType()})
}

// NetworkAddress builds the "<tcp|udp>:<ip>:<port>" string sent as the port of a network connection
func NetworkAddress(networkType, ip, port string) string {
	return fmt.Sprintf("%s:%s:%s", networkType, ip, port)
}

// pickComPort prefers ports that look like an autopilot link
func pickComPort(ports []string) (string, bool) {
	for _, p := range ports {
		l := strings.ToLower(p)
		if strings.Contains(l, "mavlink") || strings.Contains(l, "ardupilot") {
			return p, true
		}
	}
	if len(ports) > 0 {
		return ports[0], true
	}
	return "", false
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
