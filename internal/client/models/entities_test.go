package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayment_JSONKeys(t *testing.T) {
	p := Payment{
		ID: "p1", LoanID: "l1", Date: time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC),
		InterestAmount: 50, TotalAmount: 50, PaymentType: PaymentTypeJuros,
	}

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "JUROS", got["paymentType"])
	assert.NotContains(t, got, "type")

	var back Payment
	require.NoError(t, json.Unmarshal([]byte(`{"id":"p2","paymentType":"JUROS_PRINCIPAL"}`), &back))
	assert.Equal(t, PaymentTypeJurosPrincipal, back.PaymentType)
}
