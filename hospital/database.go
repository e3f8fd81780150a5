package hospital

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Database owns the SQLite connection shared by every registry.
type Database struct {
	db     *sql.DB
	logger *zap.Logger

	addBedStmt     *sql.Stmt
	addPatientStmt *sql.Stmt
}

// NewDatabase opens (or creates) the SQLite database at dbPath, applies schema
// migrations, and prepares common statements.
func NewDatabase(dbPath string, logger *zap.Logger) (*Database, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := applyMigrations(db, logger); err != nil {
		db.Close()
		return nil, err
	}

	database, err := newDatabase(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return database, nil
}

// newDatabase wraps an already migrated handle.
func newDatabase(db *sql.DB, logger *zap.Logger) (*Database, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	database := &Database{db: db, logger: logger}
	if err := database.prepareStatements(); err != nil {
		return nil, err
	}
	return database, nil
}

// Close releases prepared statements and closes the DB.
func (d *Database) Close() error {
	if d.addBedStmt != nil {
		d.addBedStmt.Close()
	}
	if d.addPatientStmt != nil {
		d.addPatientStmt.Close()
	}
	return d.db.Close()
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sql.DB, logger *zap.Logger) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS beds (
            bed_id INTEGER PRIMARY KEY AUTOINCREMENT,
            ward_type TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'available' CHECK (status IN ('available','occupied')),
            equipment TEXT NOT NULL DEFAULT ''
        );`,
		`CREATE TABLE IF NOT EXISTS patients (
            patient_id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            age INTEGER NOT NULL CHECK (age >= 0),
            diagnosis TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS admissions (
            admission_id INTEGER PRIMARY KEY AUTOINCREMENT,
            patient_id INTEGER NOT NULL REFERENCES patients(patient_id),
            bed_id INTEGER NOT NULL REFERENCES beds(bed_id),
            date_in TEXT NOT NULL,
            date_out TEXT
        );`,
		// At most one open admission per bed.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_admissions_open_bed
            ON admissions(bed_id) WHERE date_out IS NULL;`,
		`CREATE TABLE IF NOT EXISTS users (
            user_id INTEGER PRIMARY KEY AUTOINCREMENT,
            username TEXT UNIQUE NOT NULL,
            password_hash TEXT NOT NULL,
            role TEXT NOT NULL CHECK (role IN ('admin','clerk'))
        );`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	logger.Info("schema migrated", zap.Int("from", current), zap.Int("to", schemaVersion))
	return nil
}

// ---------------------------------------------------------------------------
// Prepared statements
// ---------------------------------------------------------------------------

func (d *Database) prepareStatements() error {
	var err error
	if d.addBedStmt, err = d.db.Prepare(`INSERT INTO beds(ward_type,status,equipment) VALUES(?,?,?)`); err != nil {
		return err
	}
	if d.addPatientStmt, err = d.db.Prepare(`INSERT INTO patients(name,age,diagnosis) VALUES(?,?,?)`); err != nil {
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// Record store primitives
// ---------------------------------------------------------------------------

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// recordStore is the narrow insert/update/query surface the registries are written against.
type recordStore struct {
	q querier
}

func (s recordStore) insert(query string, args ...any) (int64, error) {
	res, err := s.q.Exec(query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// update returns the number of affected rows.
func (s recordStore) update(query string, args ...any) (int64, error) {
	res, err := s.q.Exec(query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s recordStore) queryOne(query string, args ...any) *sql.Row {
	return s.q.QueryRow(query, args...)
}

func (s recordStore) queryAll(query string, args ...any) (*sql.Rows, error) {
	return s.q.Query(query, args...)
}

func (d *Database) store() recordStore { return recordStore{q: d.db} }

// withTx runs fn inside a transaction. Any error from fn rolls back every write it made.
func (d *Database) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Tables lists the tables that make up the record store, in backup order.
var Tables = []string{"beds", "patients", "admissions", "users"}

// dumpTable returns every row of table as column -> value maps.
func (d *Database) dumpTable(table string) ([]map[string]any, error) {
	known := false
	for _, t := range Tables {
		if t == table {
			known = true
			break
		}
	}
	if !known {
		return nil, fmt.Errorf("unknown table %q: %w", table, ErrValidation)
	}

	rows, err := d.db.Query(fmt.Sprintf(`SELECT * FROM %s ORDER BY rowid`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := []map[string]any{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[c] = string(b)
			} else {
				row[c] = vals[i]
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// countRows returns the number of rows in one of the record store tables.
func (d *Database) countRows(table string) (int, error) {
	var n int
	for _, t := range Tables {
		if t == table {
			err := d.db.QueryRow(fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)).Scan(&n)
			return n, err
		}
	}
	return 0, fmt.Errorf("unknown table %q: %w", table, ErrValidation)
}
