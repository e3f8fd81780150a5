package hospital

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Reports builds occupancy figures from the beds table.
type Reports struct {
	db     *Database
	beds   *BedRegistry
	logger *zap.Logger
}

func NewReports(db *Database, beds *BedRegistry) *Reports {
	return &Reports{db: db, beds: beds, logger: db.logger}
}

// Occupancy returns total and occupied beds per ward, ordered by ward name.
func (r *Reports) Occupancy() ([]WardOccupancy, error) {
	rows, err := r.db.store().queryAll(`
        SELECT ward_type, COUNT(*), COALESCE(SUM(CASE WHEN status=? THEN 1 ELSE 0 END),0)
        FROM beds GROUP BY ward_type ORDER BY ward_type`, string(BedOccupied))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WardOccupancy
	for rows.Next() {
		var (
			w    WardOccupancy
			ward string
		)
		if err := rows.Scan(&ward, &w.Total, &w.Occupied); err != nil {
			return nil, err
		}
		w.Ward = WardType(ward)
		out = append(out, w)
	}
	return out, rows.Err()
}

// FreeBeds lists every available bed.
func (r *Reports) FreeBeds() ([]*Bed, error) {
	return r.beds.ListAvailable("")
}

// Summary is a one-line census of the record store.
type Summary struct {
	Beds           int
	Patients       int
	Admissions     int
	OpenAdmissions int
}

func (r *Reports) Summary() (Summary, error) {
	var s Summary
	var err error
	if s.Beds, err = r.db.countRows("beds"); err != nil {
		return s, err
	}
	if s.Patients, err = r.db.countRows("patients"); err != nil {
		return s, err
	}
	if s.Admissions, err = r.db.countRows("admissions"); err != nil {
		return s, err
	}
	err = r.db.store().queryOne(`SELECT COUNT(*) FROM admissions WHERE date_out IS NULL`).Scan(&s.OpenAdmissions)
	return s, err
}

var (
	occupancyHeader = []string{"Ward", "Total", "Occupied", "Free"}
	freeBedsHeader  = []string{"Bed ID", "Ward", "Equipment"}
)

// WriteXLSX writes the occupancy and free-bed reports as a two-sheet workbook.
func (r *Reports) WriteXLSX(w io.Writer) error {
	occ, err := r.Occupancy()
	if err != nil {
		return err
	}
	free, err := r.FreeBeds()
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	occRows := make([][]any, 0, len(occ))
	for _, o := range occ {
		occRows = append(occRows, []any{string(o.Ward), o.Total, o.Occupied, o.Free()})
	}
	if err := writeSheet(f, "Occupancy", occupancyHeader, occRows, headerStyle); err != nil {
		return err
	}

	freeRows := make([][]any, 0, len(free))
	for _, b := range free {
		freeRows = append(freeRows, []any{b.ID, string(b.Ward), strings.Join(b.Equipment, ", ")})
	}
	if err := writeSheet(f, "Free Beds", freeBedsHeader, freeRows, headerStyle); err != nil {
		return err
	}

	f.DeleteSheet("Sheet1")
	if idx, err := f.GetSheetIndex("Occupancy"); err == nil {
		f.SetActiveSheet(idx)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	r.logger.Info("occupancy workbook written", zap.Int("wards", len(occ)), zap.Int("free_beds", len(free)))
	return nil
}

func writeSheet(f *excelize.File, name string, header []string, rows [][]any, headerStyle int) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", name, err)
	}
	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(name, cell, h); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(name, "A1", last, headerStyle); err != nil {
		return err
	}
	for r, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
