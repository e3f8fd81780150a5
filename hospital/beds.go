package hospital

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const bedColumns = `bed_id, ward_type, status, equipment`

// BedRegistry stores bed records and their available/occupied transitions.
// Assign and Free are meant to be driven by the Ledger only.
type BedRegistry struct {
	store   recordStore
	addStmt *sql.Stmt
	logger  *zap.Logger
}

// NewBedRegistry returns a registry backed by db.
func NewBedRegistry(db *Database) *BedRegistry {
	return &BedRegistry{store: db.store(), addStmt: db.addBedStmt, logger: db.logger}
}

// in returns a copy of the registry that runs its statements on q (usually a transaction).
func (r *BedRegistry) in(q querier) *BedRegistry {
	return &BedRegistry{store: recordStore{q: q}, logger: r.logger}
}

// BedFilter narrows Search. Zero-valued fields are ignored. Equipment matches
// as a literal substring.
type BedFilter struct {
	Ward          WardType
	Equipment     string
	AvailableOnly bool
}

// Add creates an available bed. The ward is stored as given.
func (r *BedRegistry) Add(ward WardType, equipment []string) (int64, error) {
	eq := strings.Join(normalizeEquipment(equipment), ",")
	var (
		id  int64
		err error
	)
	if r.addStmt != nil {
		var res sql.Result
		if res, err = r.addStmt.Exec(string(ward), string(BedAvailable), eq); err == nil {
			id, err = res.LastInsertId()
		}
	} else {
		id, err = r.store.insert(`INSERT INTO beds(ward_type,status,equipment) VALUES(?,?,?)`,
			string(ward), string(BedAvailable), eq)
	}
	if err != nil {
		return 0, fmt.Errorf("add bed: %w", err)
	}
	r.logger.Info("bed added", zap.Int64("bed_id", id), zap.String("ward", string(ward)))
	return id, nil
}

// Get returns the bed with the given id.
func (r *BedRegistry) Get(id int64) (*Bed, error) {
	b, err := scanBed(r.store.queryOne(`SELECT `+bedColumns+` FROM beds WHERE bed_id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("bed %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ListAll returns every bed ordered by id.
func (r *BedRegistry) ListAll() ([]*Bed, error) {
	return r.Search(BedFilter{})
}

// ListAvailable returns available beds, restricted to ward when it is non-empty.
func (r *BedRegistry) ListAvailable(ward WardType) ([]*Bed, error) {
	return r.Search(BedFilter{Ward: ward, AvailableOnly: true})
}

// Search returns beds matching every supplied filter.
func (r *BedRegistry) Search(f BedFilter) ([]*Bed, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + bedColumns + ` FROM beds WHERE 1=1`)
	var args []any
	if f.Ward != "" {
		sb.WriteString(` AND ward_type=?`)
		args = append(args, string(f.Ward))
	}
	if f.Equipment != "" {
		sb.WriteString(` AND instr(equipment, ?) > 0`)
		args = append(args, f.Equipment)
	}
	if f.AvailableOnly {
		sb.WriteString(` AND status=?`)
		args = append(args, string(BedAvailable))
	}
	sb.WriteString(` ORDER BY bed_id`)

	rows, err := r.store.queryAll(sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var beds []*Bed
	for rows.Next() {
		b, err := scanBed(rows)
		if err != nil {
			return nil, err
		}
		beds = append(beds, b)
	}
	return beds, rows.Err()
}

// Assign marks an available bed occupied.
func (r *BedRegistry) Assign(id int64) error {
	b, err := r.Get(id)
	if err != nil {
		return err
	}
	if !b.Available() {
		return fmt.Errorf("bed %d already occupied: %w", id, ErrConflict)
	}
	if _, err := r.store.update(`UPDATE beds SET status=? WHERE bed_id=?`, string(BedOccupied), id); err != nil {
		return fmt.Errorf("assign bed %d: %w", id, err)
	}
	r.logger.Debug("bed assigned", zap.Int64("bed_id", id))
	return nil
}

// Free marks a bed available. Freeing an available bed is a no-op.
func (r *BedRegistry) Free(id int64) error {
	if _, err := r.Get(id); err != nil {
		return err
	}
	if _, err := r.store.update(`UPDATE beds SET status=? WHERE bed_id=?`, string(BedAvailable), id); err != nil {
		return fmt.Errorf("free bed %d: %w", id, err)
	}
	r.logger.Debug("bed freed", zap.Int64("bed_id", id))
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBed(s rowScanner) (*Bed, error) {
	var (
		b          Bed
		ward, stat string
		eq         sql.NullString
	)
	if err := s.Scan(&b.ID, &ward, &stat, &eq); err != nil {
		return nil, err
	}
	b.Ward = WardType(ward)
	b.Status = BedStatus(stat)
	b.Equipment = splitEquipment(eq.String)
	return &b, nil
}

// normalizeEquipment trims items and drops blanks and duplicates, keeping first-seen order.
func normalizeEquipment(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" || seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}

func splitEquipment(s string) []string {
	if s == "" {
		return []string{}
	}
	return normalizeEquipment(strings.Split(s, ","))
}
