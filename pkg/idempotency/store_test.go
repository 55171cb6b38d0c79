package idempotency

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// The key layout is part of the deployed state in redis; changing it
// silently would forget every marker across a rolling upgrade.
func TestKeyLayout(t *testing.T) {
	s := NewStore(nil, 0)
	assert.Equal(t, "idem:order-service:payments.events:3:12345", s.Key("order-service", "payments.events", 3, 12345))
}
