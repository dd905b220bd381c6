package models

import (
	"testing"

	"github.com/dmitrijs2005/loansync/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSyncRecordID(t *testing.T) {
	tests := []struct {
		id       string
		wantType EntityType
		wantID   string
		wantErr  bool
	}{
		{"user_u1", EntityUser, "u1", false},
		{"client_c_with_underscore", EntityClient, "c_with_underscore", false},
		{"monthly_payment_42", EntityMonthlyPayment, "42", false},
		{"payment_p1", EntityPayment, "p1", false},
		{"loan_", "", "", true},
		{"invoice_1", "", "", true},
		{"", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			typ, id, err := ParseSyncRecordID(tt.id)
			if tt.wantErr {
				require.ErrorIs(t, err, common.ErrUnknownEntityType)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, typ)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestSyncRecordID_RoundTrip(t *testing.T) {
	for _, et := range EntityTypes {
		typ, id, err := ParseSyncRecordID(SyncRecordID(et, "abc-1"))
		require.NoError(t, err)
		assert.Equal(t, et, typ)
		assert.Equal(t, "abc-1", id)
	}
}

func TestParseEntityType(t *testing.T) {
	got, err := ParseEntityType("monthly_payment")
	require.NoError(t, err)
	assert.Equal(t, EntityMonthlyPayment, got)

	_, err = ParseEntityType("invoice")
	require.ErrorIs(t, err, common.ErrUnknownEntityType)
}

func TestSyncStatus_Valid(t *testing.T) {
	assert.True(t, SyncStatusSynced.Valid())
	assert.True(t, SyncStatusPending.Valid())
	assert.True(t, SyncStatusConflict.Valid())
	assert.False(t, SyncStatus("deleted").Valid())
	assert.False(t, SyncStatus("").Valid())
}
