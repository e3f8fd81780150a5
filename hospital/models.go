package hospital

// WardType is the category of a bed.
type WardType string

const (
	WardICU       WardType = "ICU"
	WardHDU       WardType = "HDU"
	WardMaternity WardType = "Maternity"
	WardGeneral   WardType = "General"
)

// Wards lists every ward type in display order.
var Wards = []WardType{WardICU, WardHDU, WardMaternity, WardGeneral}

// CriticalWards are checked by the capacity alert.
var CriticalWards = []WardType{WardICU, WardHDU}

// BedStatus is either available or occupied.
type BedStatus string

const (
	BedAvailable BedStatus = "available"
	BedOccupied  BedStatus = "occupied"
)

// Bed is a single bed in the inventory. Status is only changed by the admission ledger.
type Bed struct {
	ID        int64     `json:"bed_id"`
	Ward      WardType  `json:"ward_type"`
	Status    BedStatus `json:"status"`
	Equipment []string  `json:"equipment"`
}

// Available reports whether the bed can take a new admission.
func (b *Bed) Available() bool { return b.Status == BedAvailable }

// Patient is immutable once created.
type Patient struct {
	ID        int64  `json:"patient_id"`
	Name      string `json:"name"`
	Age       int    `json:"age"`
	Diagnosis string `json:"diagnosis"`
}

// Admission links a patient to a bed. A nil DateOut means the patient is still admitted.
type Admission struct {
	ID        int64   `json:"admission_id"`
	PatientID int64   `json:"patient_id"`
	BedID     int64   `json:"bed_id"`
	DateIn    string  `json:"date_in"`
	DateOut   *string `json:"date_out"`
}

// Open reports whether the admission has not been discharged yet.
func (a *Admission) Open() bool { return a.DateOut == nil }

// Role of a system user.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleClerk Role = "clerk"
)

// User is an operator of the console.
type User struct {
	ID           int64  `json:"user_id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"` // Don't serialize password hash
	Role         Role   `json:"role"`
}

// WardOccupancy is one row of the occupancy report.
type WardOccupancy struct {
	Ward     WardType `json:"ward_type"`
	Total    int      `json:"total"`
	Occupied int      `json:"occupied"`
}

// Free returns the number of unoccupied beds in the ward.
func (w WardOccupancy) Free() int { return w.Total - w.Occupied }
