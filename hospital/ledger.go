package hospital

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DateLayout is the on-disk format of admission dates.
const DateLayout = "2006-01-02"

const admissionColumns = `admission_id, patient_id, bed_id, date_in, date_out`

// Ledger performs admissions, discharges and transfers. Each operation writes to
// both the admissions and beds tables inside one transaction, so a bed is occupied
// exactly when one open admission references it.
type Ledger struct {
	db       *Database
	beds     *BedRegistry
	patients *PatientRegistry
	logger   *zap.Logger
	now      func() time.Time
}

func NewLedger(db *Database, beds *BedRegistry, patients *PatientRegistry) *Ledger {
	return &Ledger{db: db, beds: beds, patients: patients, logger: db.logger, now: time.Now}
}

func (l *Ledger) today() string { return l.now().Format(DateLayout) }

// Admit opens an admission for patientID on bedID. An empty dateIn means today.
func (l *Ledger) Admit(patientID, bedID int64, dateIn string) (*Admission, error) {
	if dateIn == "" {
		dateIn = l.today()
	}

	var adm *Admission
	err := l.db.withTx(func(tx *sql.Tx) error {
		store := recordStore{q: tx}
		beds := l.beds.in(tx)

		if _, err := l.patients.in(tx).Get(patientID); err != nil {
			return err
		}
		bed, err := beds.Get(bedID)
		if err != nil {
			return err
		}
		if !bed.Available() {
			return fmt.Errorf("bed %d is occupied: %w", bedID, ErrConflict)
		}

		id, err := store.insert(`INSERT INTO admissions(patient_id,bed_id,date_in) VALUES(?,?,?)`,
			patientID, bedID, dateIn)
		if err != nil {
			return fmt.Errorf("insert admission: %w", err)
		}
		if err := beds.Assign(bedID); err != nil {
			return err
		}
		adm, err = getAdmission(store, id)
		return err
	})
	if err != nil {
		l.logger.Warn("admit failed", zap.Int64("patient_id", patientID), zap.Int64("bed_id", bedID), zap.Error(err))
		return nil, err
	}
	l.logger.Info("patient admitted",
		zap.Int64("admission_id", adm.ID), zap.Int64("patient_id", patientID), zap.Int64("bed_id", bedID))
	return adm, nil
}

// Discharge closes an open admission and frees its bed. An empty dateOut means today.
func (l *Ledger) Discharge(admissionID int64, dateOut string) (*Admission, error) {
	if dateOut == "" {
		dateOut = l.today()
	}

	var adm *Admission
	err := l.db.withTx(func(tx *sql.Tx) error {
		store := recordStore{q: tx}

		cur, err := getAdmission(store, admissionID)
		if err != nil {
			return err
		}
		if !cur.Open() {
			return fmt.Errorf("admission %d already discharged: %w", admissionID, ErrConflict)
		}
		if dateOut < cur.DateIn {
			return fmt.Errorf("discharge date %s before admission date %s: %w", dateOut, cur.DateIn, ErrValidation)
		}

		if _, err := store.update(`UPDATE admissions SET date_out=? WHERE admission_id=?`, dateOut, admissionID); err != nil {
			return fmt.Errorf("close admission: %w", err)
		}
		if err := l.beds.in(tx).Free(cur.BedID); err != nil {
			return err
		}
		adm, err = getAdmission(store, admissionID)
		return err
	})
	if err != nil {
		l.logger.Warn("discharge failed", zap.Int64("admission_id", admissionID), zap.Error(err))
		return nil, err
	}
	l.logger.Info("patient discharged", zap.Int64("admission_id", admissionID), zap.Int64("bed_id", adm.BedID))
	return adm, nil
}

// Transfer moves an open admission to newBedID. The new bed is claimed before the
// old one is released, and both happen in the same transaction.
func (l *Ledger) Transfer(admissionID, newBedID int64) (*Admission, error) {
	var (
		adm    *Admission
		oldBed int64
	)
	err := l.db.withTx(func(tx *sql.Tx) error {
		store := recordStore{q: tx}
		beds := l.beds.in(tx)

		cur, err := getAdmission(store, admissionID)
		if err != nil {
			return err
		}
		if !cur.Open() {
			return fmt.Errorf("cannot transfer discharged patient (admission %d): %w", admissionID, ErrConflict)
		}
		oldBed = cur.BedID

		target, err := beds.Get(newBedID)
		if err != nil {
			return err
		}
		if !target.Available() {
			return fmt.Errorf("target bed %d is occupied: %w", newBedID, ErrConflict)
		}

		if err := beds.Assign(newBedID); err != nil {
			return err
		}
		if err := beds.Free(oldBed); err != nil {
			return err
		}
		if _, err := store.update(`UPDATE admissions SET bed_id=? WHERE admission_id=?`, newBedID, admissionID); err != nil {
			return fmt.Errorf("move admission: %w", err)
		}
		adm, err = getAdmission(store, admissionID)
		return err
	})
	if err != nil {
		l.logger.Warn("transfer failed", zap.Int64("admission_id", admissionID), zap.Int64("bed_id", newBedID), zap.Error(err))
		return nil, err
	}
	l.logger.Info("patient transferred",
		zap.Int64("admission_id", admissionID), zap.Int64("from_bed", oldBed), zap.Int64("to_bed", newBedID))
	return adm, nil
}

// Reinstate reopens a discharged admission on bedID.
func (l *Ledger) Reinstate(admissionID, bedID int64) (*Admission, error) {
	var adm *Admission
	err := l.db.withTx(func(tx *sql.Tx) error {
		store := recordStore{q: tx}

		cur, err := getAdmission(store, admissionID)
		if err != nil {
			return err
		}
		if cur.Open() {
			return fmt.Errorf("admission %d is not discharged: %w", admissionID, ErrConflict)
		}
		if err := l.beds.in(tx).Assign(bedID); err != nil {
			return err
		}
		if _, err := store.update(`UPDATE admissions SET date_out=NULL, bed_id=? WHERE admission_id=?`, bedID, admissionID); err != nil {
			return fmt.Errorf("reopen admission: %w", err)
		}
		adm, err = getAdmission(store, admissionID)
		return err
	})
	if err != nil {
		l.logger.Warn("reinstate failed", zap.Int64("admission_id", admissionID), zap.Error(err))
		return nil, err
	}
	l.logger.Info("admission reinstated", zap.Int64("admission_id", admissionID), zap.Int64("bed_id", bedID))
	return adm, nil
}

// Get returns a single admission.
func (l *Ledger) Get(admissionID int64) (*Admission, error) {
	return getAdmission(l.db.store(), admissionID)
}

// List returns admissions ordered by id, only open ones when openOnly is set.
func (l *Ledger) List(openOnly bool) ([]*Admission, error) {
	q := `SELECT ` + admissionColumns + ` FROM admissions`
	if openOnly {
		q += ` WHERE date_out IS NULL`
	}
	q += ` ORDER BY admission_id`

	rows, err := l.db.store().queryAll(q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Admission
	for rows.Next() {
		a, err := scanAdmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func getAdmission(s recordStore, id int64) (*Admission, error) {
	a, err := scanAdmission(s.queryOne(`SELECT `+admissionColumns+` FROM admissions WHERE admission_id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("admission %d: %w", id, ErrNotFound)
	}
	return a, err
}

func scanAdmission(s rowScanner) (*Admission, error) {
	var (
		a   Admission
		out sql.NullString
	)
	if err := s.Scan(&a.ID, &a.PatientID, &a.BedID, &a.DateIn, &out); err != nil {
		return nil, err
	}
	if out.Valid {
		a.DateOut = &out.String
	}
	return &a, nil
}
