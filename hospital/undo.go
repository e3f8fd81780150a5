package hospital

import "fmt"

// CompensationKind identifies which ledger operation a Compensation reverses.
type CompensationKind int

const (
	ReverseAdmitKind CompensationKind = iota + 1
	ReverseTransferKind
	ReverseDischargeKind
)

func (k CompensationKind) String() string {
	switch k {
	case ReverseAdmitKind:
		return "reverse-admit"
	case ReverseTransferKind:
		return "reverse-transfer"
	case ReverseDischargeKind:
		return "reverse-discharge"
	default:
		return fmt.Sprintf("compensation(%d)", int(k))
	}
}

// Compensation is an inspectable action that approximately reverses one ledger
// operation. BedID is the prior bed for a transfer and the bed to re-occupy for a
// discharge; it is unused for an admit.
type Compensation struct {
	Kind        CompensationKind
	AdmissionID int64
	BedID       int64
}

// ReverseAdmit discharges the admission that was just opened.
func ReverseAdmit(admissionID int64) Compensation {
	return Compensation{Kind: ReverseAdmitKind, AdmissionID: admissionID}
}

// ReverseTransfer moves the admission back to priorBedID.
func ReverseTransfer(admissionID, priorBedID int64) Compensation {
	return Compensation{Kind: ReverseTransferKind, AdmissionID: admissionID, BedID: priorBedID}
}

// ReverseDischarge reopens the admission on bedID.
func ReverseDischarge(admissionID, bedID int64) Compensation {
	return Compensation{Kind: ReverseDischargeKind, AdmissionID: admissionID, BedID: bedID}
}

func (c Compensation) String() string {
	switch c.Kind {
	case ReverseAdmitKind:
		return fmt.Sprintf("discharge admission %d", c.AdmissionID)
	case ReverseTransferKind:
		return fmt.Sprintf("transfer admission %d back to bed %d", c.AdmissionID, c.BedID)
	case ReverseDischargeKind:
		return fmt.Sprintf("readmit admission %d to bed %d", c.AdmissionID, c.BedID)
	default:
		return c.Kind.String()
	}
}

// Apply runs a compensation through the regular ledger operations, so it is
// validated like any other call.
func (l *Ledger) Apply(c Compensation) (*Admission, error) {
	switch c.Kind {
	case ReverseAdmitKind:
		adm, err := l.Get(c.AdmissionID)
		if err != nil {
			return nil, err
		}
		// An admission dated ahead of the clock is closed on its own date-in.
		dateOut := l.today()
		if adm.DateIn > dateOut {
			dateOut = adm.DateIn
		}
		return l.Discharge(c.AdmissionID, dateOut)
	case ReverseTransferKind:
		return l.Transfer(c.AdmissionID, c.BedID)
	case ReverseDischargeKind:
		return l.Reinstate(c.AdmissionID, c.BedID)
	default:
		return nil, fmt.Errorf("unknown compensation %v: %w", c.Kind, ErrValidation)
	}
}

// Applier executes compensations. *Ledger implements it.
type Applier interface {
	Apply(c Compensation) (*Admission, error)
}

// UndoResult reports what an undo did. Err holds the failure of the compensation, if any.
type UndoResult struct {
	Action    Compensation
	Admission *Admission
	Err       error
}

func (r UndoResult) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%s failed: %v", r.Action, r.Err)
	}
	return fmt.Sprintf("%s: ok", r.Action)
}

// UndoLog is a stack of compensations for the most recent ledger operations.
type UndoLog struct {
	applier Applier
	stack   []Compensation
}

func NewUndoLog(applier Applier) *UndoLog {
	return &UndoLog{applier: applier}
}

// Push records the compensation for an operation that just succeeded.
func (u *UndoLog) Push(c Compensation) {
	u.stack = append(u.stack, c)
}

// Len returns the number of pending compensations.
func (u *UndoLog) Len() int { return len(u.stack) }

// Peek returns the compensation Undo would run next.
func (u *UndoLog) Peek() (Compensation, bool) {
	if len(u.stack) == 0 {
		return Compensation{}, false
	}
	return u.stack[len(u.stack)-1], true
}

// Undo pops and applies the latest compensation. It returns false when there is
// nothing to undo. The compensation is consumed whether or not it succeeds.
func (u *UndoLog) Undo() (UndoResult, bool) {
	c, ok := u.Peek()
	if !ok {
		return UndoResult{}, false
	}
	u.stack = u.stack[:len(u.stack)-1]

	adm, err := u.applier.Apply(c)
	return UndoResult{Action: c, Admission: adm, Err: err}, true
}
