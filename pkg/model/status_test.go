package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"PENDING", "MATCHED", "MISMATCHED", "RECONCILIATION_TIMEOUT", "ERROR"} {
		got, err := ParseStatus(s)
		require.NoError(t, err)
		assert.Equal(t, Status(s), got)
	}
}

func TestParseStatus_CaseInsensitive(t *testing.T) {
	got, err := ParseStatus("  matched ")
	require.NoError(t, err)
	assert.Equal(t, StatusMatched, got)
}

func TestParseStatus_Unknown(t *testing.T) {
	_, err := ParseStatus("PARTIALLY_MATCHED")
	assert.Error(t, err)
}

func TestStatusDescription(t *testing.T) {
	assert.Equal(t, "Pending Reconciliation", StatusPending.Description())
	assert.Equal(t, "Reconciliation Timeout", StatusTimeout.Description())
}

func TestParseSourceSystem(t *testing.T) {
	a, err := ParseSourceSystem("A")
	require.NoError(t, err)
	assert.Equal(t, SourceSystemA, a)
	assert.Equal(t, "System A", a.Name())
	assert.Equal(t, SourceSystemB, a.Other())

	_, err = ParseSourceSystem("C")
	assert.Error(t, err)
}
