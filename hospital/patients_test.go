package hospital

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatientRegistry_AddGetList(t *testing.T) {
	f := newFixture(t)
	id, err := f.patients.Add("Ann Lee", 34, "pneumonia")
	require.NoError(t, err)

	p, err := f.patients.Get(id)
	require.NoError(t, err)
	assert.Equal(t, &Patient{ID: id, Name: "Ann Lee", Age: 34, Diagnosis: "pneumonia"}, p)

	_, err = f.patients.Get(id + 1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.patients.Add("Bad Age", -1, "x")
	assert.ErrorIs(t, err, ErrValidation)

	all, err := f.patients.ListAll()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestPatientRegistry_FindByNamePattern(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"John Smith", "Jane Doe", "Johnny Cash", "Mary Jones"} {
		f.patient(t, name)
	}

	names := func(ps []*Patient) []string {
		out := []string{}
		for _, p := range ps {
			out = append(out, p.Name)
		}
		return out
	}

	got, err := f.patients.FindByNamePattern("^John")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"John Smith", "Johnny Cash"}, names(got))

	got, err = f.patients.FindByNamePattern("Jo")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"John Smith", "Johnny Cash", "Mary Jones"}, names(got))

	got, err = f.patients.FindByNamePattern("^Zed")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = f.patients.FindByNamePattern("(")
	assert.ErrorIs(t, err, ErrValidation)
}
