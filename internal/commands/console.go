package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/tiiuae/groundcontrol/internal/mission"
	"github.com/tiiuae/groundcontrol/internal/session"
	"github.com/tiiuae/groundcontrol/internal/types"
)

// console reads operator commands line by line and prints the results that
// concern the operator
type console struct {
	me      string
	session *session.Session
	in      io.Reader
	out     io.Writer
	inbox   chan types.Message
}

func New(deviceID string, s *session.Session, in io.Reader, out io.Writer) types.MessageHandler {
	return &console{
		me:      deviceID,
		session: s,
		in:      in,
		out:     out,
		inbox:   make(chan types.Message, 100),
	}
}

func (c *console) Run(ctx context.Context, wg *sync.WaitGroup, post types.PostFn) {
	wg.Add(1)
	defer wg.Done()

	// the reader may stay blocked on stdin after shutdown, so it is not tracked by wg
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			log.Printf("Console: read failed: %v", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			log.Println("Console shutting down")
			return
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			for _, msg := range c.handleLine(line) {
				post(msg)
			}
		case msg := <-c.inbox:
			c.print(msg)
		}
	}
}

func (c *console) Receive(message types.Message) {
	switch message.Message.(type) {
	case types.Notification, types.CollectionChanged, types.MenuChanged, types.SnapshotList,
		types.DroneConnectionChanged, types.UploadFinished, types.HomePositionChanged:
	default:
		return
	}
	select {
	case c.inbox <- message:
	default:
		log.Printf("Console: inbox full, dropping %s", message.MessageType)
	}
}

func (c *console) handleLine(line string) []types.Message {
	payloads, err := Parse(line)
	if err != nil {
		fmt.Fprintf(c.out, "error: %v\n", err)
		return nil
	}
	var out []types.Message
	for _, p := range payloads {
		if _, ok := p.(types.ShowStatus); ok {
			fmt.Fprint(c.out, FormatStatus(c.session.Snapshot()))
			continue
		}
		out = append(out, types.Wrap(c.me, p))
	}
	return out
}

func (c *console) print(msg types.Message) {
	switch m := msg.Message.(type) {
	case types.Notification:
		fmt.Fprintf(c.out, "[%s] %s\n", m.Level, m.Text)
	case types.CollectionChanged:
		fmt.Fprint(c.out, FormatCollection(m))
	case types.MenuChanged:
		if m.Visible {
			fmt.Fprintf(c.out, "menu %s at %d,%d (%s)\n", m.State, m.Position.X, m.Position.Y, m.At.Format())
		} else {
			fmt.Fprintf(c.out, "menu %s\n", m.State)
		}
	case types.DroneConnectionChanged:
		if m.Connected {
			fmt.Fprintf(c.out, "drone connected (aircraft type %d)\n", m.AircraftType)
		} else {
			fmt.Fprintln(c.out, "drone disconnected")
		}
	case types.UploadFinished:
		late := ""
		if m.Late {
			late = " (late)"
		}
		fmt.Fprintf(c.out, "%s upload: %s%s\n", m.Kind, m.Outcome, late)
	case types.SnapshotList:
		if len(m.Names) == 0 {
			fmt.Fprintln(c.out, "no saved missions")
			return
		}
		fmt.Fprintf(c.out, "saved missions: %s\n", strings.Join(m.Names, ", "))
	case types.HomePositionChanged:
		fmt.Fprintf(c.out, "home %s alt %.1f\n", m.Home.Position().Format(), m.Home.Alt)
	}
}

func FormatCollection(m types.CollectionChanged) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d items, %d local\n", m.Kind, len(m.Items), mission.CountLocal(m.Items))
	for _, it := range m.Items {
		fmt.Fprintf(&b, "  %3d %-18s %s alt %.1f %s %s\n",
			it.Seq, it.Command.Label(), it.Position().Format(), it.Z, it.Origin, it.ID)
	}
	return b.String()
}

func FormatStatus(s session.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "socket:     %s\n", onOff(s.SocketConnected))
	drone := onOff(s.DroneConnected)
	if s.Connecting {
		drone = "connecting"
	}
	fmt.Fprintf(&b, "drone:      %s\n", drone)
	if s.StatusMessage != "" {
		fmt.Fprintf(&b, "status:     %s\n", s.StatusMessage)
	}
	fmt.Fprintf(&b, "tab:        %s\n", s.ActiveTab)
	p := s.Preferences
	fmt.Fprintf(&b, "connection: %s\n", p.ConnectionType)
	fmt.Fprintf(&b, "serial:     port=%q baud=%s wireless=%t\n", p.ComPort, p.Baud, p.Wireless)
	fmt.Fprintf(&b, "network:    %s %s:%s\n", p.NetworkType, p.IP, p.Port)
	if len(s.ComPorts) > 0 {
		fmt.Fprintf(&b, "ports:      %s\n", strings.Join(s.ComPorts, ", "))
	}
	return b.String()
}

func onOff(v bool) string {
	if v {
		return "connected"
	}
	return "disconnected"
}
