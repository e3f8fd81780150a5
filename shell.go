package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"hospital-beds/hospital"
)

var errInputClosed = errors.New("input closed")

// shell is the numbered-menu console. Every core error is printed and the session continues.
type shell struct {
	sc           *bufio.Scanner
	out          io.Writer
	mgr          *hospital.HospitalManager
	user         *hospital.User
	readPassword func(prompt string) (string, error)
}

func newShell(sc *bufio.Scanner, out io.Writer, mgr *hospital.HospitalManager, readPassword func(string) (string, error)) *shell {
	return &shell{sc: sc, out: out, mgr: mgr, readPassword: readPassword}
}

func (s *shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

// prompt prints label and returns the trimmed next line. ok is false at end of input.
func (s *shell) prompt(label string) (string, bool) {
	s.printf("%s", label)
	if !s.sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(s.sc.Text()), true
}

func (s *shell) promptID(label string) (int64, bool) {
	raw, ok := s.prompt(label)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.printf("Invalid id: %s\n", raw)
		return 0, false
	}
	return id, true
}

// promptDate returns "" for an empty answer, meaning today.
func (s *shell) promptDate(label string) (string, bool) {
	raw, ok := s.prompt(label)
	if !ok || raw == "" {
		return "", ok
	}
	if err := hospital.ValidateDate(raw); err != nil {
		s.printf("Error: %v\n", err)
		return "", false
	}
	return raw, true
}

// login loops until a user authenticates or input ends.
func (s *shell) login() error {
	for s.user == nil {
		s.printf("=== Login ===\n")
		username, ok := s.prompt("Username: ")
		if !ok {
			return errInputClosed
		}
		password, err := s.readPassword("Password: ")
		if err != nil {
			return err
		}
		user, err := s.mgr.Authenticate(username, password)
		if err != nil {
			s.printf("Invalid credentials, try again.\n\n")
			continue
		}
		s.user = user
	}
	s.printf("Welcome %s (%s)\n", s.user.Username, s.user.Role)
	return nil
}

// session logs in and runs the menu. Input ending before login is a normal exit.
func (s *shell) session() error {
	if err := s.login(); err != nil {
		if errors.Is(err, errInputClosed) {
			return nil
		}
		return fmt.Errorf("login: %w", err)
	}
	return s.run()
}

type menuItem struct {
	key    string
	label  string
	action hospital.Action
	run    func()
}

func (s *shell) menu() []menuItem {
	return []menuItem{
		{"1", "View beds", hospital.ActionViewBeds, s.handleViewBeds},
		{"2", "Add bed", hospital.ActionAddBed, s.handleAddBed},
		{"3", "Admit patient", hospital.ActionAdmit, s.handleAdmit},
		{"4", "Transfer patient", hospital.ActionTransfer, s.handleTransfer},
		{"5", "Discharge patient", hospital.ActionDischarge, s.handleDischarge},
		{"6", "Search patients", hospital.ActionSearchPatients, s.handleSearchPatients},
		{"7", "Generate reports", hospital.ActionReports, s.handleReports},
		{"8", "Send alerts (check capacity)", hospital.ActionAlerts, s.handleAlerts},
		{"9", "Run backup", hospital.ActionBackup, s.handleBackup},
		{"10", "Undo last action", hospital.ActionUndo, s.handleUndo},
		{"11", "Create user", hospital.ActionCreateUser, s.handleCreateUser},
	}
}

// run is the command loop. It returns when the user picks 0 or input ends.
func (s *shell) run() error {
	items := s.menu()
	for {
		s.printf("\n--- Menu ---\n")
		for _, it := range items {
			if it.action == hospital.ActionCreateUser && !s.user.Can(it.action) {
				continue
			}
			s.printf("%s. %s\n", it.key, it.label)
		}
		s.printf("0. Exit\n")

		choice, ok := s.prompt("> ")
		if !ok {
			return nil
		}
		if choice == "0" {
			s.printf("Goodbye\n")
			return nil
		}

		var picked *menuItem
		for i := range items {
			if items[i].key == choice {
				picked = &items[i]
				break
			}
		}
		switch {
		case picked == nil:
			s.printf("Invalid option\n")
		case !s.user.Can(picked.action):
			s.printf("Only admins can %s\n", strings.ToLower(picked.label))
		default:
			picked.run()
		}
	}
}

func (s *shell) printErr(err error) {
	s.printf("Error: %v\n", err)
}

func (s *shell) printBeds(beds []*hospital.Bed) {
	if len(beds) == 0 {
		s.printf("<no beds>\n")
		return
	}
	s.printf("%-6s %-10s %-10s %s\n", "ID", "Ward", "Status", "Equipment")
	s.printf("%s\n", strings.Repeat("-", 60))
	for _, b := range beds {
		s.printf("%-6d %-10s %-10s %s\n", b.ID, b.Ward, b.Status, truncateString(strings.Join(b.Equipment, ", "), 40))
	}
}

func (s *shell) printAdmissions(adms []*hospital.Admission) {
	if len(adms) == 0 {
		s.printf("<no admissions>\n")
		return
	}
	s.printf("%-6s %-8s %-6s %-11s %-11s\n", "ID", "Patient", "Bed", "Date in", "Date out")
	s.printf("%s\n", strings.Repeat("-", 46))
	for _, a := range adms {
		out := "-"
		if a.DateOut != nil {
			out = *a.DateOut
		}
		s.printf("%-6d %-8d %-6d %-11s %-11s\n", a.ID, a.PatientID, a.BedID, a.DateIn, out)
	}
}

// handleViewBeds lists every bed. Filters left empty are ignored.
func (s *shell) handleViewBeds() {
	raw, ok := s.prompt("Ward (ICU/HDU/Maternity/General, Enter for all): ")
	if !ok {
		return
	}
	var f hospital.BedFilter
	if raw != "" {
		w, err := hospital.ParseWard(raw)
		if err != nil {
			s.printErr(err)
			return
		}
		f.Ward = w
	}
	if f.Equipment, ok = s.prompt("Equipment contains (Enter for any): "); !ok {
		return
	}
	avail, ok := s.prompt("Only available beds? (y/N): ")
	if !ok {
		return
	}
	f.AvailableOnly = strings.EqualFold(avail, "y")

	beds, err := s.mgr.SearchBeds(f)
	if err != nil {
		s.printErr(err)
		return
	}
	s.printBeds(beds)
}

func (s *shell) handleAddBed() {
	raw, ok := s.prompt("Ward (ICU/HDU/Maternity/General): ")
	if !ok {
		return
	}
	ward, err := hospital.ParseWard(raw)
	if err != nil {
		s.printf("Invalid ward\n")
		return
	}
	eqRaw, ok := s.prompt("Comma-separated equipment (or empty): ")
	if !ok {
		return
	}
	id, err := s.mgr.AddBed(ward, strings.Split(eqRaw, ","))
	if err != nil {
		s.printErr(err)
		return
	}
	s.printf("Bed added. Bed id: %d\n", id)
}

func (s *shell) handleAdmit() {
	free, err := s.mgr.AvailableBeds("")
	if err != nil {
		s.printErr(err)
		return
	}
	if len(free) == 0 {
		s.printf("No free beds\n")
		return
	}

	patientID, ok := s.choosePatient()
	if !ok {
		return
	}

	s.printf("Free beds:\n")
	s.printBeds(free)
	bedID, ok := s.promptID("Enter bed_id to assign: ")
	if !ok {
		return
	}
	dateIn, ok := s.promptDate("Date in (YYYY-MM-DD, Enter for today): ")
	if !ok {
		return
	}

	adm, err := s.mgr.Admit(patientID, bedID, dateIn)
	if err != nil {
		s.printErr(err)
		return
	}
	s.printf("Patient admitted. Admission id: %d\n", adm.ID)
}

// choosePatient selects an existing patient by id or registers a new one.
func (s *shell) choosePatient() (int64, bool) {
	raw, ok := s.prompt("Existing patient id (Enter to register a new patient): ")
	if !ok {
		return 0, false
	}
	if raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.printf("Invalid id: %s\n", raw)
			return 0, false
		}
		p, err := s.mgr.GetPatient(id)
		if err != nil {
			s.printErr(err)
			return 0, false
		}
		s.printf("Patient: %s, %d y, %s\n", p.Name, p.Age, p.Diagnosis)
		return p.ID, true
	}

	name, ok := s.prompt("Patient name: ")
	if !ok {
		return 0, false
	}
	if err := hospital.ValidateName(name); err != nil {
		s.printf("Invalid name\n")
		return 0, false
	}
	ageRaw, ok := s.prompt("Age: ")
	if !ok {
		return 0, false
	}
	age, err := hospital.ParseAge(ageRaw)
	if err != nil {
		s.printf("Invalid age\n")
		return 0, false
	}
	diag, ok := s.prompt("Diagnosis: ")
	if !ok {
		return 0, false
	}
	id, err := s.mgr.AddPatient(name, age, diag)
	if err != nil {
		s.printErr(err)
		return 0, false
	}
	s.printf("Patient registered. Patient id: %d\n", id)
	return id, true
}

func (s *shell) showOpenAdmissions() {
	open, err := s.mgr.ListAdmissions(true)
	if err != nil {
		s.printErr(err)
		return
	}
	s.printf("Current admissions:\n")
	s.printAdmissions(open)
}

func (s *shell) handleTransfer() {
	s.showOpenAdmissions()
	admID, ok := s.promptID("Admission id: ")
	if !ok {
		return
	}
	bedID, ok := s.promptID("New bed id: ")
	if !ok {
		return
	}
	adm, err := s.mgr.Transfer(admID, bedID)
	if err != nil {
		s.printErr(err)
		return
	}
	s.printf("Transferred admission %d to bed %d\n", adm.ID, adm.BedID)
}

func (s *shell) handleDischarge() {
	s.showOpenAdmissions()
	admID, ok := s.promptID("Admission id to discharge: ")
	if !ok {
		return
	}
	dateOut, ok := s.promptDate("Date out (YYYY-MM-DD, Enter for today): ")
	if !ok {
		return
	}
	adm, err := s.mgr.Discharge(admID, dateOut)
	if err != nil {
		s.printErr(err)
		return
	}
	s.printf("Discharged admission %d on %s, bed %d is free\n", adm.ID, *adm.DateOut, adm.BedID)
}

func (s *shell) handleSearchPatients() {
	rx, ok := s.prompt("Regex for patient name: ")
	if !ok {
		return
	}
	res, err := s.mgr.FindPatients(rx)
	if err != nil {
		s.printErr(err)
		return
	}
	if len(res) == 0 {
		s.printf("<no patients>\n")
		return
	}
	s.printf("%-6s %-30s %-5s %s\n", "ID", "Name", "Age", "Diagnosis")
	s.printf("%s\n", strings.Repeat("-", 70))
	for _, p := range res {
		s.printf("%-6d %-30s %-5d %s\n", p.ID, truncateString(p.Name, 30), p.Age, truncateString(p.Diagnosis, 30))
	}
}

func (s *shell) handleReports() {
	occ, err := s.mgr.Occupancy()
	if err != nil {
		s.printErr(err)
		return
	}
	s.printf("Occupancy by ward:\n")
	s.printf("%-10s %-6s %-9s %s\n", "Ward", "Total", "Occupied", "Free")
	for _, o := range occ {
		s.printf("%-10s %-6d %-9d %d\n", o.Ward, o.Total, o.Occupied, o.Free())
	}
	free, err := s.mgr.FreeBeds()
	if err != nil {
		s.printErr(err)
		return
	}
	s.printf("Free beds count: %d\n", len(free))

	sum, err := s.mgr.Summary()
	if err != nil {
		s.printErr(err)
		return
	}
	s.printf("Beds: %d | Patients: %d | Admissions: %d (open: %d)\n",
		sum.Beds, sum.Patients, sum.Admissions, sum.OpenAdmissions)
}

func (s *shell) handleAlerts() {
	alerts, err := s.mgr.CheckCapacity()
	if err != nil {
		s.printErr(err)
		return
	}
	if len(alerts) == 0 {
		s.printf("ICU and HDU have free beds\n")
		return
	}
	for _, a := range alerts {
		switch {
		case a.Err != nil:
			s.printf("%s (delivery failed: %v)\n", a.Message, a.Err)
		case a.Sent:
			s.printf("%s (sent)\n", a.Message)
		default:
			s.printf("%s (not sent)\n", a.Message)
		}
	}
}

func (s *shell) handleBackup() {
	path, err := s.mgr.CreateBackup()
	if err != nil {
		s.printErr(err)
		return
	}
	s.printf("Backup created at %s\n", path)
}

func (s *shell) handleUndo() {
	res, ok := s.mgr.Undo()
	if !ok {
		s.printf("Nothing to undo\n")
		return
	}
	s.printf("Undo result: %s\n", res)
}

func (s *shell) handleCreateUser() {
	uname, ok := s.prompt("New username: ")
	if !ok {
		return
	}
	pw, err := s.readPassword("Password: ")
	if err != nil {
		s.printErr(err)
		return
	}
	roleRaw, ok := s.prompt("Role (admin/clerk): ")
	if !ok {
		return
	}
	role, err := hospital.ParseRole(roleRaw)
	if err != nil {
		s.printErr(err)
		return
	}
	if _, err := s.mgr.CreateUser(uname, pw, role); err != nil {
		s.printErr(err)
		return
	}
	s.printf("User created\n")
}

func truncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength-3] + "..."
}
