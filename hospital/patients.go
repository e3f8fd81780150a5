package hospital

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"go.uber.org/zap"
)

const patientColumns = `patient_id, name, age, diagnosis`

// PatientRegistry stores patient records. Patients are never updated.
type PatientRegistry struct {
	store   recordStore
	addStmt *sql.Stmt
	logger  *zap.Logger
}

func NewPatientRegistry(db *Database) *PatientRegistry {
	return &PatientRegistry{store: db.store(), addStmt: db.addPatientStmt, logger: db.logger}
}

func (r *PatientRegistry) in(q querier) *PatientRegistry {
	return &PatientRegistry{store: recordStore{q: q}, logger: r.logger}
}

// Add inserts a patient and returns its id.
func (r *PatientRegistry) Add(name string, age int, diagnosis string) (int64, error) {
	if age < 0 {
		return 0, fmt.Errorf("age %d: %w", age, ErrValidation)
	}
	var (
		id  int64
		err error
	)
	if r.addStmt != nil {
		var res sql.Result
		if res, err = r.addStmt.Exec(name, age, diagnosis); err == nil {
			id, err = res.LastInsertId()
		}
	} else {
		id, err = r.store.insert(`INSERT INTO patients(name,age,diagnosis) VALUES(?,?,?)`, name, age, diagnosis)
	}
	if err != nil {
		return 0, fmt.Errorf("add patient: %w", err)
	}
	r.logger.Info("patient added", zap.Int64("patient_id", id))
	return id, nil
}

// Get fetches a single patient.
func (r *PatientRegistry) Get(id int64) (*Patient, error) {
	p, err := scanPatient(r.store.queryOne(`SELECT `+patientColumns+` FROM patients WHERE patient_id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("patient %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListAll returns all patients ordered by id.
func (r *PatientRegistry) ListAll() ([]*Patient, error) {
	return r.query(`SELECT ` + patientColumns + ` FROM patients ORDER BY patient_id`)
}

// FindByNamePattern returns patients whose name contains a match for pattern.
func (r *PatientRegistry) FindByNamePattern(pattern string) ([]*Patient, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("name pattern %q: %v: %w", pattern, err, ErrValidation)
	}
	all, err := r.query(`SELECT ` + patientColumns + ` FROM patients`)
	if err != nil {
		return nil, err
	}
	var out []*Patient
	for _, p := range all {
		if re.MatchString(p.Name) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *PatientRegistry) query(q string, args ...any) ([]*Patient, error) {
	rows, err := r.store.queryAll(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patients []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	return patients, rows.Err()
}

func scanPatient(s rowScanner) (*Patient, error) {
	var p Patient
	if err := s.Scan(&p.ID, &p.Name, &p.Age, &p.Diagnosis); err != nil {
		return nil, err
	}
	return &p, nil
}
