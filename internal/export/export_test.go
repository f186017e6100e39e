package export

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/pkg/errors"
	"github.com/tiiuae/groundcontrol/internal/mission"
	"github.com/xuri/excelize/v2"
)

func TestExportCollections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mission.xlsx")
	collections := map[mission.Kind][]mission.Item{
		mission.KindMission: {
			{Seq: 1, Command: mission.CmdTakeoff, Frame: 3, X: 525000000, Y: -70000000, Z: 20},
			{Seq: 2, Command: mission.CmdLoiterTime, Frame: 3, Param1: 30, X: 525100000, Y: -70100000, Z: 25.5},
		},
		mission.KindFence: {},
		mission.KindRally: {{Seq: 0, Command: 5100, Frame: 3, X: 10, Y: 20, Z: 15}},
	}
	if err := ExportCollections(path, collections); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if got := f.GetSheetList(); !reflect.DeepEqual(got, []string{"Mission", "Rally"}) {
		t.Fatalf("sheets = %v", got)
	}

	rows, err := f.GetRows("Mission")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("mission rows = %d", len(rows))
	}
	wantHeader := []string{"Seq", "Command", "Lat", "Lon", "Alt", "Frame", "Param1", "Param2", "Param3", "Param4"}
	if !reflect.DeepEqual(rows[0], wantHeader) {
		t.Errorf("header = %v", rows[0])
	}
	want := []string{"2", "19", "52.51", "-7.01", "25.5", "3", "30", "0", "0", "0"}
	if !reflect.DeepEqual(rows[2], want) {
		t.Errorf("row = %v, want %v", rows[2], want)
	}

	rows, err = f.GetRows("Rally")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[1][1] != "5100" {
		t.Errorf("rally rows = %v", rows)
	}
}

func TestExportNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	err := ExportCollections(path, map[mission.Kind][]mission.Item{mission.KindMission: {}})
	if !errors.Is(err, ErrNothingToExport) {
		t.Errorf("err = %v", err)
	}
}
