package hospital

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func tempDB(t *testing.T) *Database {
	t.Helper()
	dir := t.TempDir()
	db, err := NewDatabase(filepath.Join(dir, "test.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

var fixedNow = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

// fixture bundles the core components over a fresh database with a fixed clock.
type fixture struct {
	db       *Database
	beds     *BedRegistry
	patients *PatientRegistry
	ledger   *Ledger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := tempDB(t)
	beds := NewBedRegistry(db)
	patients := NewPatientRegistry(db)
	ledger := NewLedger(db, beds, patients)
	ledger.now = func() time.Time { return fixedNow }
	return &fixture{db: db, beds: beds, patients: patients, ledger: ledger}
}

func (f *fixture) bed(t *testing.T, ward WardType, equipment ...string) int64 {
	t.Helper()
	id, err := f.beds.Add(ward, equipment)
	require.NoError(t, err)
	return id
}

func (f *fixture) patient(t *testing.T, name string) int64 {
	t.Helper()
	id, err := f.patients.Add(name, 40, "observation")
	require.NoError(t, err)
	return id
}

func (f *fixture) status(t *testing.T, bedID int64) BedStatus {
	t.Helper()
	b, err := f.beds.Get(bedID)
	require.NoError(t, err)
	return b.Status
}

// assertConsistent checks that a bed is occupied exactly when one open admission references it.
func assertConsistent(t *testing.T, db *Database) {
	t.Helper()
	rows, err := db.db.Query(`
        SELECT b.bed_id, b.status,
               (SELECT COUNT(*) FROM admissions a WHERE a.bed_id = b.bed_id AND a.date_out IS NULL)
        FROM beds b`)
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var (
			id, open int64
			status   string
		)
		require.NoError(t, rows.Scan(&id, &status, &open))
		if status == string(BedOccupied) {
			assert.Equal(t, int64(1), open, "occupied bed %d must have exactly one open admission", id)
		} else {
			assert.Equal(t, int64(0), open, "available bed %d must have no open admission", id)
		}
	}
	require.NoError(t, rows.Err())
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")

	db, err := NewDatabase(path, nil)
	require.NoError(t, err)
	_, err = NewBedRegistry(db).Add(WardICU, nil)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = NewDatabase(path, nil)
	require.NoError(t, err)
	defer db.Close()

	n, err := db.countRows("beds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var version int
	require.NoError(t, db.db.QueryRow(`SELECT value FROM meta WHERE key='schema_version'`).Scan(&version))
	assert.Equal(t, schemaVersion, version)
}

func TestOpenAdmissionIndexRejectsSecondOpenAdmission(t *testing.T) {
	f := newFixture(t)
	bed := f.bed(t, WardGeneral)
	p1 := f.patient(t, "Ann")
	p2 := f.patient(t, "Bob")

	_, err := f.db.db.Exec(`INSERT INTO admissions(patient_id,bed_id,date_in) VALUES(?,?,?)`, p1, bed, "2024-01-01")
	require.NoError(t, err)
	_, err = f.db.db.Exec(`INSERT INTO admissions(patient_id,bed_id,date_in) VALUES(?,?,?)`, p2, bed, "2024-01-01")
	require.Error(t, err, "store must refuse two open admissions on one bed")
}

func TestDumpTable(t *testing.T) {
	f := newFixture(t)
	f.bed(t, WardICU, "ventilator", "monitor")

	rows, err := f.db.dumpTable("beds")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ICU", rows[0]["ward_type"])
	assert.Equal(t, "available", rows[0]["status"])
	assert.Equal(t, "ventilator,monitor", rows[0]["equipment"])

	_, err = f.db.dumpTable("sqlite_master")
	assert.ErrorIs(t, err, ErrValidation)
}
