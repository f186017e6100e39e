package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/tiiuae/groundcontrol/internal/mission"
	"github.com/tiiuae/groundcontrol/internal/types"
)

func TestReceive(t *testing.T) {
	m := New("")

	m.Receive(types.Wrap("socket", types.SocketConnected{}))
	m.Receive(types.Wrap("screen", types.UploadStarted{Kind: mission.KindMission, Count: 3}))
	m.Receive(types.Wrap("screen", types.UploadFinished{Kind: mission.KindMission, Outcome: types.UploadTimeout}))
	m.Receive(types.Wrap("screen", types.UploadFinished{Kind: mission.KindMission, Outcome: types.UploadSucceeded, Late: true}))
	m.Receive(types.Notify("screen", types.LevelError, "Upload timed out"))
	m.Receive(types.Notify("screen", types.LevelError, "Not connected to drone"))
	m.Receive(types.Wrap("connection", types.DroneConnectionChanged{Connected: true, AircraftType: 2}))

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"socket", testutil.ToFloat64(m.socketUp), 1},
		{"drone", testutil.ToFloat64(m.droneUp), 1},
		{"started", testutil.ToFloat64(m.uploadsStarted.WithLabelValues("mission")), 1},
		{"timeout", testutil.ToFloat64(m.uploadOutcomes.WithLabelValues("mission", "timeout")), 1},
		{"success", testutil.ToFloat64(m.uploadOutcomes.WithLabelValues("mission", "success")), 1},
		{"errors", testutil.ToFloat64(m.notifications.WithLabelValues("error")), 2},
		{"notification messages", testutil.ToFloat64(m.busMessages.WithLabelValues("notification")), 2},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}

	m.Receive(types.Wrap("socket", types.SocketDisconnected{Reason: "EOF"}))
	if testutil.ToFloat64(m.socketUp) != 0 || testutil.ToFloat64(m.droneUp) != 0 {
		t.Errorf("gauges not reset on disconnect")
	}
}

func TestHandler(t *testing.T) {
	m := New("")
	m.Receive(types.Wrap("screen", types.UploadStarted{Kind: mission.KindFence}))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, `groundcontrol_uploads_started_total{kind="fence"} 1`) {
		t.Errorf("exposition missing upload counter:\n%s", body)
	}
	if n := testutil.CollectAndCount(m.busMessages); n != 1 {
		t.Errorf("bus series = %d", n)
	}
}
