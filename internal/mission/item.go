package mission

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/tiiuae/groundcontrol/internal/coordinates"
)

// Kind selects one of the three item collections held by the vehicle
type Kind string

const (
	KindMission Kind = "mission"
	KindFence   Kind = "fence"
	KindRally   Kind = "rally"
)

// Kinds lists the collections in display order
var Kinds = []Kind{KindMission, KindFence, KindRally}

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindMission, KindFence, KindRally:
		return k, nil
	}
	return "", errors.Errorf("unknown collection %q", s)
}

// Origin tells whether an item came from the backend or was created locally and not uploaded yet
type Origin uint8

const (
	Remote Origin = iota
	Local
)

func (o Origin) String() string {
	if o == Local {
		return "local"
	}
	return "remote"
}

func (o Origin) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *Origin) UnmarshalText(b []byte) error {
	switch string(b) {
	case "local":
		*o = Local
	case "remote", "":
		*o = Remote
	default:
		return errors.Errorf("unknown origin %q", string(b))
	}
	return nil
}

// Command is a MAV_CMD value
type Command int

const (
	CmdWaypoint         Command = 16
	CmdLoiterUnlimited  Command = 17
	CmdLoiterTurns      Command = 18
	CmdLoiterTime       Command = 19
	CmdReturnToLaunch   Command = 20
	CmdLand             Command = 21
	CmdTakeoff          Command = 22
	CmdSplineWaypoint   Command = 82
	CmdConditionDelay   Command = 112
	CmdConditionAlt     Command = 113
	CmdConditionDist    Command = 114
	CmdConditionYaw     Command = 115
	CmdDoJump           Command = 177
	CmdDoChangeSpeed    Command = 178
	CmdDoSetRelay       Command = 181
	CmdDoRepeatRelay    Command = 182
	CmdDoSetServo       Command = 183
	CmdDoRepeatServo    Command = 184
	CmdJumpTag          Command = 600
	CmdDoJumpTag        Command = 601
)

// FrameGlobalRelativeAlt is MAV_FRAME_GLOBAL_RELATIVE_ALT, the frame used for new and uploaded items
const FrameGlobalRelativeAlt = 3

// Insertable are the commands offered by the map's insert submenu, in menu order
var Insertable = []Command{
	CmdWaypoint,
	CmdSplineWaypoint,
	CmdTakeoff,
	CmdLand,
	CmdReturnToLaunch,
	CmdLoiterUnlimited,
	CmdLoiterTurns,
	CmdLoiterTime,
}

var commandLabels = map[Command]string{
	CmdWaypoint:        "Waypoint",
	CmdSplineWaypoint:  "Spline Waypoint",
	CmdTakeoff:         "Takeoff",
	CmdLand:            "Land",
	CmdReturnToLaunch:  "Return To Launch",
	CmdLoiterUnlimited: "Loiter (Unlim)",
	CmdLoiterTurns:     "Loiter (Turns)",
	CmdLoiterTime:      "Loiter (Time)",
	CmdConditionDelay:  "Condition Delay",
	CmdConditionAlt:    "Condition Change Alt",
	CmdConditionDist:   "Condition Distance",
	CmdConditionYaw:    "Condition Yaw",
	CmdDoJump:          "Do Jump",
	CmdDoChangeSpeed:   "Do Change Speed",
	CmdDoSetRelay:      "Do Set Relay",
	CmdDoRepeatRelay:   "Do Repeat Relay",
	CmdDoSetServo:      "Do Set Servo",
	CmdDoRepeatServo:   "Do Repeat Servo",
	CmdJumpTag:         "Jump Tag",
	CmdDoJumpTag:       "Do Jump Tag",
}

func (c Command) Label() string {
	if l, ok := commandLabels[c]; ok {
		return l
	}
	return "Unknown"
}

// ParseCommand accepts a numeric command id or the label of an insertable command
// ("waypoint", "land", "return to launch", ...)
func ParseCommand(s string) (Command, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return Command(n), nil
	}
	want := normalizeLabel(s)
	for _, c := range Insertable {
		if normalizeLabel(c.Label()) == want {
			return c, nil
		}
	}
	return 0, errors.Errorf("unknown command %q", s)
}

func normalizeLabel(s string) string {
	r := strings.NewReplacer(" ", "", "-", "", "_", "", "(", "", ")", "")
	return strings.ToLower(r.Replace(s))
}

// Item is one entry of a mission, fence or rally collection.
// X and Y are always held in fixed-point form (degrees * 1e7).
type Item struct {
	ID           string  `json:"id"`
	Origin       Origin  `json:"origin"`
	Seq          int     `json:"seq"`
	Command      Command `json:"command"`
	Frame        int     `json:"frame"`
	Current      int     `json:"current"`
	Autocontinue int     `json:"autocontinue"`
	Param1       float64 `json:"param1"`
	Param2       float64 `json:"param2"`
	Param3       float64 `json:"param3"`
	Param4       float64 `json:"param4"`
	X            int32   `json:"x"`
	Y            int32   `json:"y"`
	Z            float64 `json:"z"`
}

// Position returns the item location in degrees
func (i Item) Position() coordinates.LatLng {
	return coordinates.LatLng{Lat: coordinates.ToDegrees(i.X), Lng: coordinates.ToDegrees(i.Y)}
}

// SetPosition stores a location given in degrees
func (i *Item) SetPosition(p coordinates.LatLng) {
	i.X = coordinates.ToFixedPoint(p.Lat)
	i.Y = coordinates.ToFixedPoint(p.Lng)
}

const localIDPrefix = "local-"

// NewLocalID generates an identifier for an item created on this station
func NewLocalID() string {
	return localIDPrefix + uuid.NewString()
}

// NewRemoteID generates an identifier for a backend item that arrived without one
func NewRemoteID() string {
	return uuid.NewString()
}

func clone(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

func maxSeq(items []Item) int {
	m := 0
	for _, it := range items {
		if it.Seq > m {
			m = it.Seq
		}
	}
	return m
}
