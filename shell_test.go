package main

import (
	"bufio"
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"hospital-beds/hospital"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testManager(t *testing.T) *hospital.HospitalManager {
	t.Helper()
	dir := t.TempDir()
	mgr, err := hospital.NewHospitalManager(hospital.Options{
		DBPath:    filepath.Join(dir, "hospital.db"),
		BackupDir: filepath.Join(dir, "backups"),
		Logger:    zap.NewNop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })
	return mgr
}

// passwords returns a readPassword stub that hands out the given answers in order.
func passwords(answers ...string) func(string) (string, error) {
	return func(string) (string, error) {
		if len(answers) == 0 {
			return "", errInputClosed
		}
		pw := answers[0]
		answers = answers[1:]
		return pw, nil
	}
}

func runScript(t *testing.T, mgr *hospital.HospitalManager, pw func(string) (string, error), lines ...string) string {
	t.Helper()
	var out bytes.Buffer
	sc := bufio.NewScanner(strings.NewReader(strings.Join(lines, "\n") + "\n"))
	sh := newShell(sc, &out, mgr, pw)
	require.NoError(t, sh.login())
	require.NoError(t, sh.run())
	return out.String()
}

func TestShell_AdminSession(t *testing.T) {
	mgr := testManager(t)
	_, err := mgr.EnsureAdminExists("pw")
	require.NoError(t, err)

	out := runScript(t, mgr, passwords("pw"),
		"admin",
		"2", "ICU", "ventilator, monitor",
		"3", "", "Ann Lee", "40", "flu", "1", "2024-03-15",
		"3",
		"5", "1", "2024-03-16",
		"10",
		"7",
		"99",
		"0",
	)

	assert.Contains(t, out, "Welcome admin (admin)")
	assert.Contains(t, out, "11. Create user")
	assert.Contains(t, out, "Bed added. Bed id: 1")
	assert.Contains(t, out, "Patient registered. Patient id: 1")
	assert.Contains(t, out, "Patient admitted. Admission id: 1")
	assert.Contains(t, out, "No free beds")
	assert.Contains(t, out, "Discharged admission 1 on 2024-03-16, bed 1 is free")
	assert.Contains(t, out, "Undo result: readmit admission 1 to bed 1: ok")
	assert.Contains(t, out, "Free beds count: 0")
	assert.Contains(t, out, "Invalid option")
	assert.True(t, strings.HasSuffix(out, "Goodbye\n"))

	adm, err := mgr.GetAdmission(1)
	require.NoError(t, err)
	assert.True(t, adm.Open())
}

func TestShell_ClerkIsRestricted(t *testing.T) {
	mgr := testManager(t)
	_, err := mgr.CreateUser("clerk1", "right", hospital.RoleClerk)
	require.NoError(t, err)

	out := runScript(t, mgr, passwords("wrong", "right"),
		"clerk1",
		"clerk1",
		"2",
		"9",
		"10",
	)

	assert.Contains(t, out, "Invalid credentials, try again.")
	assert.Contains(t, out, "Welcome clerk1 (clerk)")
	assert.NotContains(t, out, "11. Create user")
	assert.Contains(t, out, "Only admins can add bed")
	assert.Contains(t, out, "Only admins can run backup")
	assert.Contains(t, out, "Nothing to undo")

	beds, err := mgr.ListBeds()
	require.NoError(t, err)
	assert.Empty(t, beds)
}

func TestShell_ErrorsDoNotEndSession(t *testing.T) {
	mgr := testManager(t)
	_, err := mgr.EnsureAdminExists("pw")
	require.NoError(t, err)
	_, err = mgr.AddBed(hospital.WardHDU, nil)
	require.NoError(t, err)

	out := runScript(t, mgr, passwords("pw"),
		"admin",
		"1", "Surgery",
		"4", "42", "1",
		"5", "abc",
		"6", "(",
		"8",
		"0",
	)

	assert.Contains(t, out, `ward "Surgery"`)
	assert.Contains(t, out, "Error: admission 42: not found")
	assert.Contains(t, out, "Invalid id: abc")
	assert.Contains(t, out, "invalid input")
	assert.Contains(t, out, "ICU and HDU have free beds")
	assert.Contains(t, out, "Goodbye")
}

func TestShell_LoginInputClosed(t *testing.T) {
	mgr := testManager(t)
	sh := newShell(bufio.NewScanner(strings.NewReader("")), &bytes.Buffer{}, mgr, passwords())
	assert.ErrorIs(t, sh.login(), errInputClosed)
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "abcdefg...", truncateString("abcdefghijklmnop", 10))
}

func TestShell_SessionReportsPasswordReadFailure(t *testing.T) {
	mgr := testManager(t)
	ttyErr := errors.New("inappropriate ioctl for device")
	failing := func(string) (string, error) { return "", ttyErr }

	sh := newShell(bufio.NewScanner(strings.NewReader("admin\n")), &bytes.Buffer{}, mgr, failing)
	err := sh.session()
	require.Error(t, err)
	assert.ErrorIs(t, err, ttyErr)
}

func TestShell_SessionEndsQuietlyOnClosedInput(t *testing.T) {
	mgr := testManager(t)
	sh := newShell(bufio.NewScanner(strings.NewReader("")), &bytes.Buffer{}, mgr, passwords())
	assert.NoError(t, sh.session())
}

func TestShell_ViewBeds(t *testing.T) {
	mgr := testManager(t)
	_, err := mgr.EnsureAdminExists("pw")
	require.NoError(t, err)
	icu, err := mgr.AddBed(hospital.WardICU, []string{"ventilator"})
	require.NoError(t, err)
	_, err = mgr.AddBed(hospital.WardGeneral, nil)
	require.NoError(t, err)
	p, err := mgr.AddPatient("Ann", 30, "asthma")
	require.NoError(t, err)
	_, err = mgr.Admit(p, icu, "")
	require.NoError(t, err)

	all := runScript(t, mgr, passwords("pw"), "admin", "1", "", "", "", "0")
	assert.Contains(t, all, "ICU        occupied")
	assert.Contains(t, all, "General    available")

	free := runScript(t, mgr, passwords("pw"), "admin", "1", "", "", "y", "0")
	assert.NotContains(t, free, "ICU        occupied")
	assert.Contains(t, free, "General    available")

	vent := runScript(t, mgr, passwords("pw"), "admin", "1", "ICU", "ventilator", "n", "0")
	assert.Contains(t, vent, "ICU        occupied   ventilator")
	assert.NotContains(t, vent, "General    available")
}
