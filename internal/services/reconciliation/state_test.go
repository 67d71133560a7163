package reconciliation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exchange-reconciliation-backend/internal/models"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from string
		to   string
		ok   bool
	}{
		{models.StatusSubmitted, models.StatusExtracted, true},
		{models.StatusExtracted, models.StatusMatched, true},
		{models.StatusExtracted, models.StatusPendingAdmin, true},
		{models.StatusMatched, models.StatusPendingAdmin, true},
		{models.StatusPendingAdmin, models.StatusConfirmed, true},
		{models.StatusPendingAdmin, models.StatusRejected, true},
		{models.StatusPendingAdmin, models.StatusInsufficientFunds, true},

		{models.StatusSubmitted, models.StatusConfirmed, false},
		{models.StatusSubmitted, models.StatusMatched, false},
		{models.StatusExtracted, models.StatusConfirmed, false},
		{models.StatusMatched, models.StatusExtracted, false},
		{models.StatusConfirmed, models.StatusRejected, false},
		{models.StatusRejected, models.StatusPendingAdmin, false},
		{"bogus", models.StatusExtracted, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ok, canTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestAdvanceStampsFinalizedAt(t *testing.T) {
	tx := &models.ExchangeTransaction{Status: models.StatusPendingAdmin}

	require.NoError(t, advance(tx, models.StatusConfirmed))
	assert.Equal(t, models.StatusConfirmed, tx.Status)
	require.NotNil(t, tx.FinalizedAt)
	assert.True(t, tx.IsTerminal())
}

func TestAdvanceNonTerminalHasNoFinalizedAt(t *testing.T) {
	tx := &models.ExchangeTransaction{Status: models.StatusSubmitted}

	require.NoError(t, advance(tx, models.StatusExtracted))
	assert.Equal(t, models.StatusExtracted, tx.Status)
	assert.Nil(t, tx.FinalizedAt)
}

func TestAdvanceFromTerminal(t *testing.T) {
	for _, terminal := range []string{
		models.StatusConfirmed,
		models.StatusRejected,
		models.StatusInsufficientFunds,
	} {
		tx := &models.ExchangeTransaction{Status: terminal}
		err := advance(tx, models.StatusPendingAdmin)
		assert.ErrorIs(t, err, ErrAlreadyFinalized, "from %s", terminal)
		assert.Equal(t, terminal, tx.Status)
		assert.Nil(t, tx.FinalizedAt)
	}
}

func TestAdvanceInvalidTransition(t *testing.T) {
	tx := &models.ExchangeTransaction{Status: models.StatusSubmitted}

	err := advance(tx, models.StatusConfirmed)
	var invErr *InvalidTransitionError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, models.StatusSubmitted, invErr.From)
	assert.Equal(t, models.StatusConfirmed, invErr.To)
	assert.Equal(t, models.StatusSubmitted, tx.Status)
}
