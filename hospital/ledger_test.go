package hospital

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdmitOccupiesBed(t *testing.T) {
	f := newFixture(t)
	bed := f.bed(t, WardICU)
	p := f.patient(t, "Ann")

	adm, err := f.ledger.Admit(p, bed, "")
	require.NoError(t, err)
	assert.NotZero(t, adm.ID)
	assert.Equal(t, p, adm.PatientID)
	assert.Equal(t, bed, adm.BedID)
	assert.Equal(t, "2024-03-15", adm.DateIn)
	assert.Nil(t, adm.DateOut)
	assert.True(t, adm.Open())
	assert.Equal(t, BedOccupied, f.status(t, bed))
	assertConsistent(t, f.db)
}

func TestAdmitUsesSuppliedDate(t *testing.T) {
	f := newFixture(t)
	adm, err := f.ledger.Admit(f.patient(t, "Ann"), f.bed(t, WardGeneral), "2024-01-02")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02", adm.DateIn)
}

func TestAdmitOnOccupiedBedLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t)
	bed := f.bed(t, WardICU)
	_, err := f.ledger.Admit(f.patient(t, "Ann"), bed, "")
	require.NoError(t, err)
	other := f.patient(t, "Bob")

	before, err := f.db.countRows("admissions")
	require.NoError(t, err)

	_, err = f.ledger.Admit(other, bed, "")
	require.ErrorIs(t, err, ErrConflict)

	after, err := f.db.countRows("admissions")
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, BedOccupied, f.status(t, bed))
	assertConsistent(t, f.db)
}

func TestAdmitNotFound(t *testing.T) {
	f := newFixture(t)
	bed := f.bed(t, WardICU)
	p := f.patient(t, "Ann")

	_, err := f.ledger.Admit(p, 999, "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.ledger.Admit(999, bed, "")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, BedAvailable, f.status(t, bed))

	n, err := f.db.countRows("admissions")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAdmitDischargeRoundTrip(t *testing.T) {
	f := newFixture(t)
	bed := f.bed(t, WardHDU)
	adm, err := f.ledger.Admit(f.patient(t, "Ann"), bed, "2024-03-01")
	require.NoError(t, err)

	out, err := f.ledger.Discharge(adm.ID, "")
	require.NoError(t, err)
	require.NotNil(t, out.DateOut)
	assert.Equal(t, "2024-03-15", *out.DateOut)
	assert.Equal(t, "2024-03-01", out.DateIn)
	assert.False(t, out.Open())
	assert.Equal(t, BedAvailable, f.status(t, bed))
	assertConsistent(t, f.db)
}

func TestDischargeIsNotIdempotent(t *testing.T) {
	f := newFixture(t)
	bed := f.bed(t, WardGeneral)
	adm, err := f.ledger.Admit(f.patient(t, "Ann"), bed, "")
	require.NoError(t, err)
	_, err = f.ledger.Discharge(adm.ID, "")
	require.NoError(t, err)

	// Someone else takes the bed; a second discharge must not free it.
	_, err = f.ledger.Admit(f.patient(t, "Bob"), bed, "")
	require.NoError(t, err)

	_, err = f.ledger.Discharge(adm.ID, "")
	require.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), "already discharged")
	assert.Equal(t, BedOccupied, f.status(t, bed))
	assertConsistent(t, f.db)
}

func TestDischargeNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.Discharge(42, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDischargeBeforeAdmissionDate(t *testing.T) {
	f := newFixture(t)
	bed := f.bed(t, WardGeneral)
	adm, err := f.ledger.Admit(f.patient(t, "Ann"), bed, "2024-03-10")
	require.NoError(t, err)

	_, err = f.ledger.Discharge(adm.ID, "2024-03-09")
	require.ErrorIs(t, err, ErrValidation)

	got, err := f.ledger.Get(adm.ID)
	require.NoError(t, err)
	assert.True(t, got.Open())
	assert.Equal(t, BedOccupied, f.status(t, bed))
}

func TestTransferMovesAdmission(t *testing.T) {
	f := newFixture(t)
	b1 := f.bed(t, WardICU)
	b2 := f.bed(t, WardHDU)
	adm, err := f.ledger.Admit(f.patient(t, "Ann"), b1, "")
	require.NoError(t, err)

	moved, err := f.ledger.Transfer(adm.ID, b2)
	require.NoError(t, err)
	assert.Equal(t, b2, moved.BedID)
	assert.Equal(t, adm.DateIn, moved.DateIn)
	assert.Equal(t, BedAvailable, f.status(t, b1))
	assert.Equal(t, BedOccupied, f.status(t, b2))
	assertConsistent(t, f.db)
}

func TestTransferDischargedFails(t *testing.T) {
	f := newFixture(t)
	b1 := f.bed(t, WardICU)
	b2 := f.bed(t, WardICU)
	adm, err := f.ledger.Admit(f.patient(t, "Ann"), b1, "")
	require.NoError(t, err)
	_, err = f.ledger.Discharge(adm.ID, "")
	require.NoError(t, err)

	_, err = f.ledger.Transfer(adm.ID, b2)
	require.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), "cannot transfer discharged patient")
	assert.Equal(t, BedAvailable, f.status(t, b1))
	assert.Equal(t, BedAvailable, f.status(t, b2))
}

func TestTransferToOccupiedOrMissingBed(t *testing.T) {
	f := newFixture(t)
	b1 := f.bed(t, WardICU)
	b2 := f.bed(t, WardICU)
	a1, err := f.ledger.Admit(f.patient(t, "Ann"), b1, "")
	require.NoError(t, err)
	_, err = f.ledger.Admit(f.patient(t, "Bob"), b2, "")
	require.NoError(t, err)

	_, err = f.ledger.Transfer(a1.ID, b2)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = f.ledger.Transfer(a1.ID, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.ledger.Transfer(999, b2)
	assert.ErrorIs(t, err, ErrNotFound)

	// Transferring onto its own bed is a conflict too: the bed is occupied.
	_, err = f.ledger.Transfer(a1.ID, b1)
	assert.ErrorIs(t, err, ErrConflict)

	got, err := f.ledger.Get(a1.ID)
	require.NoError(t, err)
	assert.Equal(t, b1, got.BedID)
	assert.Equal(t, BedOccupied, f.status(t, b1))
	assert.Equal(t, BedOccupied, f.status(t, b2))
	assertConsistent(t, f.db)
}

func TestReinstate(t *testing.T) {
	f := newFixture(t)
	bed := f.bed(t, WardMaternity)
	adm, err := f.ledger.Admit(f.patient(t, "Ann"), bed, "")
	require.NoError(t, err)

	_, err = f.ledger.Reinstate(adm.ID, bed)
	require.ErrorIs(t, err, ErrConflict, "open admission cannot be reinstated")

	_, err = f.ledger.Discharge(adm.ID, "")
	require.NoError(t, err)

	back, err := f.ledger.Reinstate(adm.ID, bed)
	require.NoError(t, err)
	assert.True(t, back.Open())
	assert.Equal(t, BedOccupied, f.status(t, bed))
	assertConsistent(t, f.db)

	_, err = f.ledger.Reinstate(999, bed)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListAdmissions(t *testing.T) {
	f := newFixture(t)
	a1, err := f.ledger.Admit(f.patient(t, "Ann"), f.bed(t, WardICU), "")
	require.NoError(t, err)
	a2, err := f.ledger.Admit(f.patient(t, "Bob"), f.bed(t, WardICU), "")
	require.NoError(t, err)
	_, err = f.ledger.Discharge(a1.ID, "")
	require.NoError(t, err)

	all, err := f.ledger.List(false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, a1.ID, all[0].ID)

	open, err := f.ledger.List(true)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, a2.ID, open[0].ID)
}

// TestICUScenario walks one patient through admit, transfer and discharge.
func TestICUScenario(t *testing.T) {
	f := newFixture(t)
	bed1 := f.bed(t, WardICU, "ventilator")
	bed2 := f.bed(t, WardICU)
	for i := 0; i < 6; i++ {
		f.patient(t, "Filler")
	}
	p7 := f.patient(t, "Grace")
	require.Equal(t, int64(7), p7)
	require.Equal(t, int64(1), bed1)

	adm, err := f.ledger.Admit(p7, bed1, "")
	require.NoError(t, err)
	assert.Nil(t, adm.DateOut)
	assert.Equal(t, BedOccupied, f.status(t, bed1))

	adm, err = f.ledger.Transfer(adm.ID, bed2)
	require.NoError(t, err)
	assert.Equal(t, bed2, adm.BedID)
	assert.Equal(t, BedAvailable, f.status(t, bed1))
	assert.Equal(t, BedOccupied, f.status(t, bed2))

	adm, err = f.ledger.Discharge(adm.ID, "")
	require.NoError(t, err)
	assert.Equal(t, BedAvailable, f.status(t, bed2))
	require.NotNil(t, adm.DateOut)
	assert.Equal(t, fixedNow.Format(DateLayout), *adm.DateOut)
	assertConsistent(t, f.db)
}

// TestInvariantHoldsAcrossMixedOperations runs a sequence including failures and undos.
func TestInvariantHoldsAcrossMixedOperations(t *testing.T) {
	f := newFixture(t)
	undo := NewUndoLog(f.ledger)
	beds := []int64{f.bed(t, WardICU), f.bed(t, WardICU), f.bed(t, WardHDU), f.bed(t, WardGeneral)}
	pats := []int64{f.patient(t, "Ann"), f.patient(t, "Bob"), f.patient(t, "Cid")}

	a, err := f.ledger.Admit(pats[0], beds[0], "")
	require.NoError(t, err)
	undo.Push(ReverseAdmit(a.ID))
	b, err := f.ledger.Admit(pats[1], beds[1], "")
	require.NoError(t, err)
	undo.Push(ReverseAdmit(b.ID))

	_, err = f.ledger.Admit(pats[2], beds[0], "")
	require.ErrorIs(t, err, ErrConflict)
	assertConsistent(t, f.db)

	_, err = f.ledger.Transfer(a.ID, beds[2])
	require.NoError(t, err)
	undo.Push(ReverseTransfer(a.ID, beds[0]))
	assertConsistent(t, f.db)

	_, err = f.ledger.Discharge(b.ID, "")
	require.NoError(t, err)
	undo.Push(ReverseDischarge(b.ID, beds[1]))
	assertConsistent(t, f.db)

	for undo.Len() > 0 {
		res, ok := undo.Undo()
		require.True(t, ok)
		require.NoError(t, res.Err, res.Action.String())
		assertConsistent(t, f.db)
	}

	// Undo of both admits leaves every bed free.
	for _, id := range beds {
		assert.Equal(t, BedAvailable, f.status(t, id))
	}
}
