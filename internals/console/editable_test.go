package console

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	settingsModel "tutorhub_backend/internals/features/payments/settings/model"
)

func TestEditableDiffResetCommit(t *testing.T) {
	e := NewEditable(settingsModel.DefaultSettings().PaymentMethods)
	assert.False(t, e.HasChanges())

	edited := e.Edit(func(p settingsModel.PaymentMethodSettings) settingsModel.PaymentMethodSettings {
		p.Methods[2].Enabled = false
		return p
	})
	assert.False(t, e.HasChanges(), "Edit returns a new value")
	assert.True(t, e.Draft().Methods[2].Enabled)

	diff := edited.Diff()
	require.Len(t, diff, 1)
	assert.Equal(t, "methods", diff[0].Field)

	// mutating a returned draft does not leak into the editable
	d := edited.Draft()
	d.Methods[0].ProcessingFeeFormula = "5000"
	assert.Equal(t, "4000", edited.Draft().Methods[0].ProcessingFeeFormula)

	reset := edited.Reset()
	assert.False(t, reset.HasChanges())
	assert.True(t, reset.Draft().Methods[2].Enabled)

	committed := edited.Commit(edited.Draft())
	assert.False(t, committed.HasChanges())
	assert.False(t, committed.Committed().Methods[2].Enabled)
}

func TestEditableDiffOrder(t *testing.T) {
	e := NewEditable(settingsModel.DefaultSettings().General).Edit(func(g settingsModel.GeneralSettings) settingsModel.GeneralSettings {
		g.OverdueAfterDays = 14
		g.Currency = "USD"
		return g
	})
	diff := e.Diff()
	require.Len(t, diff, 2)
	assert.Equal(t, "currency", diff[0].Field)
	assert.Equal(t, "IDR", diff[0].From)
	assert.Equal(t, "USD", diff[0].To)
	assert.Equal(t, "overdueAfterDays", diff[1].Field)
	assert.Equal(t, float64(14), diff[1].To)
}
