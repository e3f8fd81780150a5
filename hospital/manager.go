package hospital

import (
	"io"

	"go.uber.org/zap"
)

// Options configures a HospitalManager.
type Options struct {
	DBPath     string
	BackupDir  string
	BackupKeep int
	Notifier   Notifier
	AdminPhone string
	Logger     *zap.Logger
}

// HospitalManager is a thin façade over the registries, ledger and peripherals,
// keeping CLI code simple. Successful ledger operations record their
// compensation on the undo log.
type HospitalManager struct {
	db       *Database
	beds     *BedRegistry
	patients *PatientRegistry
	ledger   *Ledger
	undo     *UndoLog
	auth     *Auth
	backup   *Backup
	alerts   *Alerts
	reports  *Reports
	logger   *zap.Logger
}

// NewHospitalManager opens (or creates) the SQLite database and wires every component to it.
func NewHospitalManager(opts Options) (*HospitalManager, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := NewDatabase(opts.DBPath, logger)
	if err != nil {
		return nil, err
	}

	notifier := opts.Notifier
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}
	backupDir := opts.BackupDir
	if backupDir == "" {
		backupDir = "backups"
	}

	beds := NewBedRegistry(db)
	patients := NewPatientRegistry(db)
	ledger := NewLedger(db, beds, patients)
	return &HospitalManager{
		db:       db,
		beds:     beds,
		patients: patients,
		ledger:   ledger,
		undo:     NewUndoLog(ledger),
		auth:     NewAuth(db),
		backup:   NewBackup(db, backupDir, opts.BackupKeep),
		alerts:   NewAlerts(db, notifier, opts.AdminPhone),
		reports:  NewReports(db, beds),
		logger:   logger,
	}, nil
}

// Close closes the underlying database.
func (hm *HospitalManager) Close() error { return hm.db.Close() }

// ------------------ Beds ------------------

func (hm *HospitalManager) AddBed(ward WardType, equipment []string) (int64, error) {
	return hm.beds.Add(ward, equipment)
}

func (hm *HospitalManager) GetBed(id int64) (*Bed, error) {
	return hm.beds.Get(id)
}

func (hm *HospitalManager) ListBeds() ([]*Bed, error) {
	return hm.beds.ListAll()
}

func (hm *HospitalManager) SearchBeds(f BedFilter) ([]*Bed, error) {
	return hm.beds.Search(f)
}

func (hm *HospitalManager) AvailableBeds(ward WardType) ([]*Bed, error) {
	return hm.beds.ListAvailable(ward)
}

// ImportBeds adds the beds listed in an .xlsx inventory sheet.
func (hm *HospitalManager) ImportBeds(r io.Reader) (*ImportResult, error) {
	return ImportBeds(r, hm.beds, hm.logger)
}

// ------------------ Patients ------------------

func (hm *HospitalManager) AddPatient(name string, age int, diagnosis string) (int64, error) {
	return hm.patients.Add(name, age, diagnosis)
}

func (hm *HospitalManager) GetPatient(id int64) (*Patient, error) {
	return hm.patients.Get(id)
}

func (hm *HospitalManager) ListPatients() ([]*Patient, error) {
	return hm.patients.ListAll()
}

func (hm *HospitalManager) FindPatients(pattern string) ([]*Patient, error) {
	return hm.patients.FindByNamePattern(pattern)
}

// ------------------ Admissions ------------------

// Admit admits a patient and records a discharge as its undo.
func (hm *HospitalManager) Admit(patientID, bedID int64, dateIn string) (*Admission, error) {
	adm, err := hm.ledger.Admit(patientID, bedID, dateIn)
	if err != nil {
		return nil, err
	}
	hm.undo.Push(ReverseAdmit(adm.ID))
	return adm, nil
}

// Discharge discharges a patient and records a readmission to the same bed as its undo.
func (hm *HospitalManager) Discharge(admissionID int64, dateOut string) (*Admission, error) {
	adm, err := hm.ledger.Discharge(admissionID, dateOut)
	if err != nil {
		return nil, err
	}
	hm.undo.Push(ReverseDischarge(adm.ID, adm.BedID))
	return adm, nil
}

// Transfer moves a patient and records a transfer back to the previous bed as its undo.
func (hm *HospitalManager) Transfer(admissionID, newBedID int64) (*Admission, error) {
	before, err := hm.ledger.Get(admissionID)
	if err != nil {
		return nil, err
	}
	adm, err := hm.ledger.Transfer(admissionID, newBedID)
	if err != nil {
		return nil, err
	}
	hm.undo.Push(ReverseTransfer(adm.ID, before.BedID))
	return adm, nil
}

func (hm *HospitalManager) GetAdmission(id int64) (*Admission, error) {
	return hm.ledger.Get(id)
}

func (hm *HospitalManager) ListAdmissions(openOnly bool) ([]*Admission, error) {
	return hm.ledger.List(openOnly)
}

// Undo reverses the most recent admit, transfer or discharge. ok is false when
// there is nothing to undo.
func (hm *HospitalManager) Undo() (res UndoResult, ok bool) {
	res, ok = hm.undo.Undo()
	if ok {
		hm.logger.Info("undo", zap.String("action", res.Action.String()), zap.Bool("ok", res.Err == nil))
	}
	return res, ok
}

func (hm *HospitalManager) PendingUndo() int { return hm.undo.Len() }

// ------------------ Users ------------------

func (hm *HospitalManager) CreateUser(username, password string, role Role) (int64, error) {
	return hm.auth.CreateUser(username, password, role)
}

func (hm *HospitalManager) Authenticate(username, password string) (*User, error) {
	return hm.auth.Authenticate(username, password)
}

func (hm *HospitalManager) EnsureAdminExists(defaultPassword string) (bool, error) {
	return hm.auth.EnsureAdminExists(defaultPassword)
}

// ------------------ Peripherals ------------------

func (hm *HospitalManager) CreateBackup() (string, error) {
	return hm.backup.Create()
}

func (hm *HospitalManager) ListBackups() ([]string, error) {
	return hm.backup.List()
}

func (hm *HospitalManager) CheckCapacity() ([]CapacityAlert, error) {
	return hm.alerts.CheckCritical()
}

func (hm *HospitalManager) Occupancy() ([]WardOccupancy, error) {
	return hm.reports.Occupancy()
}

func (hm *HospitalManager) FreeBeds() ([]*Bed, error) {
	return hm.reports.FreeBeds()
}

func (hm *HospitalManager) Summary() (Summary, error) {
	return hm.reports.Summary()
}

// WriteReport writes the occupancy workbook to w.
func (hm *HospitalManager) WriteReport(w io.Writer) error { return hm.reports.WriteXLSX(w) }
