package hospital

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// BedImportHeader is the expected first row of a bed inventory sheet.
var BedImportHeader = []string{"Ward", "Equipment"}

// ImportIssue describes a row that was skipped.
type ImportIssue struct {
	Row    int
	Reason string
}

// ImportResult summarises an inventory import.
type ImportResult struct {
	Added   []int64
	Skipped []ImportIssue
}

// ImportBeds reads the first sheet of an .xlsx workbook and adds one bed per row.
// Equipment is a comma or semicolon separated list. Rows with an unknown ward are skipped.
func ImportBeds(r io.Reader, beds *BedRegistry, logger *zap.Logger) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets: %w", ErrValidation)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 || !strings.EqualFold(strings.TrimSpace(cellAt(rows[0], 0)), BedImportHeader[0]) {
		return nil, fmt.Errorf("first row must be a header starting with %q: %w", BedImportHeader[0], ErrValidation)
	}

	res := &ImportResult{}
	for i, row := range rows[1:] {
		rowNum := i + 2
		wardCell := strings.TrimSpace(cellAt(row, 0))
		if wardCell == "" {
			continue
		}
		ward, err := ParseWard(wardCell)
		if err != nil {
			res.Skipped = append(res.Skipped, ImportIssue{Row: rowNum, Reason: err.Error()})
			continue
		}
		eq := strings.FieldsFunc(cellAt(row, 1), func(r rune) bool { return r == ',' || r == ';' })
		id, err := beds.Add(ward, eq)
		if err != nil {
			return res, fmt.Errorf("row %d: %w", rowNum, err)
		}
		res.Added = append(res.Added, id)
	}
	logger.Info("bed inventory imported", zap.Int("added", len(res.Added)), zap.Int("skipped", len(res.Skipped)))
	return res, nil
}

func cellAt(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
