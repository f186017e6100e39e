package commands

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/tiiuae/groundcontrol/internal/contextmenu"
	"github.com/tiiuae/groundcontrol/internal/coordinates"
	"github.com/tiiuae/groundcontrol/internal/mission"
	"github.com/tiiuae/groundcontrol/internal/session"
	"github.com/tiiuae/groundcontrol/internal/types"
)

var ErrUnknownCommand = errors.New("unknown command")

type command struct {
	usage string
	args  int // minimum argument count
	parse func(args []string) ([]interface{}, error)
}

var table map[string]command

func init() {
	table = map[string]command{
		"connect": {"connect serial|network", 1, func(a []string) ([]interface{}, error) {
			switch a[0] {
			case session.ConnectionSerial, session.ConnectionNetwork:
				return one(types.ConnectRequest{ConnectionType: a[0]})
			}
			return nil, errors.Errorf("connection type must be serial or network, got %q", a[0])
		}},
		"disconnect": {"disconnect", 0, constant(types.DisconnectRequest{})},
		"ports":      {"ports", 0, constant(types.RefreshComPorts{})},
		"port": {"port <name>", 1, func(a []string) ([]interface{}, error) {
			return one(types.SelectComPort{Port: a[0]})
		}},
		"baud": {"baud <n>", 1, func(a []string) ([]interface{}, error) {
			if _, err := strconv.Atoi(a[0]); err != nil {
				return nil, errors.Errorf("baud must be a number, got %q", a[0])
			}
			return one(types.SetConnectionPreferences{Baud: a[0]})
		}},
		"wireless": {"wireless on|off", 1, func(a []string) ([]interface{}, error) {
			var on bool
			switch a[0] {
			case "on":
				on = true
			case "off":
			default:
				return nil, errors.Errorf("wireless must be on or off, got %q", a[0])
			}
			return one(types.SetConnectionPreferences{Wireless: &on})
		}},
		"network": {"network tcp|udp <ip> <port>", 3, func(a []string) ([]interface{}, error) {
			if a[0] != "tcp" && a[0] != "udp" {
				return nil, errors.Errorf("network type must be tcp or udp, got %q", a[0])
			}
			if _, err := strconv.Atoi(a[2]); err != nil {
				return nil, errors.Errorf("port must be a number, got %q", a[2])
			}
			return one(types.SetConnectionPreferences{NetworkType: a[0], IP: a[1], Port: a[2]})
		}},
		"tab": {"tab mission|fence|rally", 1, func(a []string) ([]interface{}, error) {
			k, err := mission.ParseKind(a[0])
			if err != nil {
				return nil, err
			}
			return one(types.SelectTab{Kind: k})
		}},
		"read": {"read [kind]", 0, func(a []string) ([]interface{}, error) {
			k, err := optionalKind(a)
			return maybe(types.ReadCollection{Kind: k}, err)
		}},
		"write": {"write [kind]", 0, func(a []string) ([]interface{}, error) {
			k, err := optionalKind(a)
			return maybe(types.WriteCollection{Kind: k}, err)
		}},
		"list": {"list [kind]", 0, func(a []string) ([]interface{}, error) {
			k, err := optionalKind(a)
			return maybe(types.ListCollection{Kind: k}, err)
		}},
		"viewport": {"viewport <w> <h>", 2, func(a []string) ([]interface{}, error) {
			size, err := parseSize(a)
			return maybe(types.ViewportResized{Size: size}, err)
		}},
		"rightclick": {"rightclick <x> <y> <lat> <lng> [waypoint-id]", 4, func(a []string) ([]interface{}, error) {
			p, err := parsePoint(a)
			if err != nil {
				return nil, err
			}
			at, err := parseLatLng(a[2:])
			if err != nil {
				return nil, err
			}
			click := types.RightClick{Point: p, At: at}
			if len(a) > 4 {
				click.Target = &contextmenu.Element{Attrs: map[string]string{contextmenu.AttrWaypointID: a[4]}}
			}
			return one(click)
		}},
		"menusize": {"menusize <w> <h>", 2, func(a []string) ([]interface{}, error) {
			size, err := parseSize(a)
			return maybe(types.MenuRendered{Size: size}, err)
		}},
		"submenusize": {"submenusize <w> <h>", 2, func(a []string) ([]interface{}, error) {
			size, err := parseSize(a)
			return maybe(types.SubmenuRendered{Size: size}, err)
		}},
		"submenu": {"submenu", 0, constant(types.ToggleSubmenu{})},
		"escape":  {"escape", 0, constant(types.KeyDown{Key: "Escape"})},
		"click": {"click <x> <y>", 2, func(a []string) ([]interface{}, error) {
			p, err := parsePoint(a)
			return maybe(types.PointerDown{Point: p}, err)
		}},
		"copy": {"copy", 0, constant(types.MenuAction{Action: contextmenu.ActionCopy})},
		"insert": {"insert <command>", 1, func(a []string) ([]interface{}, error) {
			cmd, err := mission.ParseCommand(strings.Join(a, " "))
			if err != nil {
				return nil, err
			}
			return one(types.MenuAction{Action: contextmenu.ActionInsert, Command: cmd})
		}},
		"delete": {"delete", 0, constant(types.MenuAction{Action: contextmenu.ActionDelete})},
		"drag": {"drag <kind> <id> <lat> <lng>", 4, func(a []string) ([]interface{}, error) {
			k, err := mission.ParseKind(a[0])
			if err != nil {
				return nil, err
			}
			to, err := parseLatLng(a[2:])
			if err != nil {
				return nil, err
			}
			return []interface{}{
				types.DragStart{Kind: k, ID: a[1]},
				types.DragEnd{Kind: k, ID: a[1], To: to},
			}, nil
		}},
		"save": {"save <name>", 1, func(a []string) ([]interface{}, error) {
			return one(types.SaveMission{Name: strings.Join(a, " ")})
		}},
		"import": {"import <name>", 1, func(a []string) ([]interface{}, error) {
			return one(types.ImportMission{Name: strings.Join(a, " ")})
		}},
		"saves": {"saves", 0, constant(types.ListSnapshots{})},
		"export": {"export <path>", 1, func(a []string) ([]interface{}, error) {
			return one(types.ExportMission{Path: a[0]})
		}},
		"status": {"status", 0, constant(types.ShowStatus{})},
	}
}

// Parse turns one console line into the action payloads it stands for.
// A blank line yields nothing.
func Parse(line string) ([]interface{}, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, nil
	}
	name := strings.ToLower(fields[0])
	cmd, ok := table[name]
	if !ok {
		return nil, errors.WithMessagef(ErrUnknownCommand, "%q", fields[0])
	}
	args := fields[1:]
	if len(args) < cmd.args {
		return nil, errors.Errorf("usage: %s", cmd.usage)
	}
	payloads, err := cmd.parse(args)
	if err != nil {
		return nil, errors.WithMessage(err, name)
	}
	return payloads, nil
}

func one(p interface{}) ([]interface{}, error) {
	return []interface{}{p}, nil
}

func maybe(p interface{}, err error) ([]interface{}, error) {
	if err != nil {
		return nil, err
	}
	return one(p)
}

func constant(p interface{}) func([]string) ([]interface{}, error) {
	return func([]string) ([]interface{}, error) { return one(p) }
}

func optionalKind(a []string) (mission.Kind, error) {
	if len(a) == 0 {
		return "", nil
	}
	return mission.ParseKind(a[0])
}

func parseInts(a []string, n int) ([]int, error) {
	out := make([]int, n)
	for i := 0; i < n; i++ {
		v, err := strconv.Atoi(a[i])
		if err != nil {
			return nil, errors.Errorf("%q is not an integer", a[i])
		}
		out[i] = v
	}
	return out, nil
}

func parsePoint(a []string) (contextmenu.Point, error) {
	v, err := parseInts(a, 2)
	if err != nil {
		return contextmenu.Point{}, err
	}
	return contextmenu.Point{X: v[0], Y: v[1]}, nil
}

func parseSize(a []string) (contextmenu.Size, error) {
	v, err := parseInts(a, 2)
	if err != nil {
		return contextmenu.Size{}, err
	}
	if v[0] < 0 || v[1] < 0 {
		return contextmenu.Size{}, errors.New("size must not be negative")
	}
	return contextmenu.Size{Width: v[0], Height: v[1]}, nil
}

func parseLatLng(a []string) (coordinates.LatLng, error) {
	lat, err := strconv.ParseFloat(strings.TrimSuffix(a[0], ","), 64)
	if err != nil {
		return coordinates.LatLng{}, errors.Errorf("%q is not a latitude", a[0])
	}
	lng, err := strconv.ParseFloat(a[1], 64)
	if err != nil {
		return coordinates.LatLng{}, errors.Errorf("%q is not a longitude", a[1])
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return coordinates.LatLng{}, errors.Errorf("%v, %v is out of range", lat, lng)
	}
	return coordinates.LatLng{Lat: lat, Lng: lng}, nil
}
