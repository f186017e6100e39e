// Package export writes collections to an xlsx workbook for review outside the GCS.
package export

import (
	"github.com/pkg/errors"
	"github.com/tiiuae/groundcontrol/internal/mission"
	"github.com/xuri/excelize/v2"
)

var ErrNothingToExport = errors.New("all collections are empty")

var header = []interface{}{"Seq", "Command", "Lat", "Lon", "Alt", "Frame", "Param1", "Param2", "Param3", "Param4"}

var sheetNames = map[mission.Kind]string{
	mission.KindMission: "Mission",
	mission.KindFence:   "Fence",
	mission.KindRally:   "Rally",
}

// ExportCollections writes one sheet per non-empty collection, in display order
func ExportCollections(path string, collections map[mission.Kind][]mission.Item) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = errors.WithMessage(cerr, "close workbook")
		}
	}()

	// the new workbook starts with "Sheet1", which becomes the first exported sheet
	first := true
	for _, kind := range mission.Kinds {
		items := collections[kind]
		if len(items) == 0 {
			continue
		}
		name := sheetNames[kind]
		if first {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				return errors.WithMessagef(err, "sheet %s", name)
			}
			first = false
		} else if _, err := f.NewSheet(name); err != nil {
			return errors.WithMessagef(err, "sheet %s", name)
		}
		if err := writeSheet(f, name, items); err != nil {
			return errors.WithMessagef(err, "sheet %s", name)
		}
	}
	if first {
		return ErrNothingToExport
	}

	f.SetActiveSheet(0)
	if err := f.SaveAs(path); err != nil {
		return errors.WithMessagef(err, "save %s", path)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, items []mission.Item) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, it := range items {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		pos := it.Position()
		row := []interface{}{
			it.Seq, int(it.Command), pos.Lat, pos.Lng, it.Z, it.Frame,
			it.Param1, it.Param2, it.Param3, it.Param4,
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
