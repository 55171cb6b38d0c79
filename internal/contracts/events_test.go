package contracts

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Producers may add fields before consumers learn about them, and older
// payloads may lack fields newer consumers expect. Both directions must
// decode without error.
func TestOrderCreatedDecodesPartialPayload(t *testing.T) {
	raw := []byte(`{
		"order_id": "o1",
		"items": [{"product_id": "p1", "quantity": 2}],
		"total_amount": "19.98",
		"some_future_field": {"nested": true}
	}`)

	var ev OrderCreated
	require.NoError(t, json.Unmarshal(raw, &ev))
	assert.Equal(t, "o1", ev.OrderID)
	assert.Empty(t, ev.CustomerEmail)
	assert.True(t, ev.CreatedAt.IsZero())
	require.Len(t, ev.Items, 1)
	assert.Equal(t, 2, ev.Items[0].Quantity)
	assert.True(t, ev.Items[0].UnitPrice.IsZero())
	assert.True(t, ev.TotalAmount.Equal(decimal.RequireFromString("19.98")))
}

func TestDecimalFieldsAcceptStringAndNumber(t *testing.T) {
	var a, b PaymentProcessed
	require.NoError(t, json.Unmarshal([]byte(`{"order_id":"o1","amount":"42.50"}`), &a))
	require.NoError(t, json.Unmarshal([]byte(`{"order_id":"o1","amount":42.50}`), &b))
	assert.True(t, a.Amount.Equal(b.Amount))
}

func TestProductReservationFailedOmitsEmptyName(t *testing.T) {
	payload, err := json.Marshal(ProductReservationFailed{OrderID: "o1", ProductID: "p1", Reason: "gone"})
	require.NoError(t, err)
	assert.NotContains(t, string(payload), "product_name")
}

func TestPartitionKeyIsOrderID(t *testing.T) {
	assert.Equal(t, []byte("o-123"), PartitionKey("o-123"))
}
