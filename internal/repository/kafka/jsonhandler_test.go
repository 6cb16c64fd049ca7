package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigilo/vigilo/internal/domain/alert"
)

func TestJSONHandlerDecodesPayload(t *testing.T) {
	var got alert.Event
	h := JSONHandler[alert.Event](func(_ context.Context, key []byte, ev alert.Event) error {
		got = ev
		assert.Equal(t, "org-1", string(key))
		return nil
	})

	payload := []byte(`{"org_id":"org-1","target_id":"ep-1","kind":"endpoint","title":"Endpoint Down","message":"Endpoint https://x is not responding.","fired_at":"2026-08-29T12:00:00Z"}`)
	require.NoError(t, h(context.Background(), []byte("org-1"), payload))

	assert.Equal(t, "org-1", got.OrgID)
	assert.Equal(t, "Endpoint Down", got.Title)
	assert.Equal(t, time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC), got.FiredAt)
}

func TestJSONHandlerRejectsMalformedPayload(t *testing.T) {
	h := JSONHandler[alert.Event](func(context.Context, []byte, alert.Event) error {
		t.Fatal("handler must not run for malformed payloads")
		return nil
	})
	err := h(context.Background(), nil, []byte("{not json"))
	assert.Error(t, err)
}
