package context

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowdesk/internal/core/id"
)

func TestOwnerRoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, GetOwner(ctx))
	assert.True(t, id.IsNil(GetOwnerID(ctx)))

	ownerID := id.New()
	ctx = WithOwner(ctx, &OwnerContext{OwnerID: ownerID, Subject: "staff-1"})

	owner := GetOwner(ctx)
	require.NotNil(t, owner)
	assert.Equal(t, ownerID, GetOwnerID(ctx))
	assert.Equal(t, "staff-1", owner.Subject)
}

func TestNewJobTrace(t *testing.T) {
	tc := NewJobTrace("overdue")
	assert.NotEmpty(t, tc.TraceID)
	assert.Equal(t, "overdue", tc.Job)
	assert.NotEqual(t, tc.TraceID, NewJobTrace("overdue").TraceID)

	ctx := WithTrace(context.Background(), tc)
	assert.Equal(t, tc.RequestID, GetRequestID(ctx))
}

func TestSanitizeTraceID(t *testing.T) {
	assert.Equal(t, "req-42", SanitizeTraceID("req-42"))

	for name, raw := range map[string]string{
		"empty":    "",
		"too long": strings.Repeat("a", maxTraceIDLen+1),
		"newline":  "abc\ninjected=1",
		"space":    "a b",
	} {
		t.Run(name, func(t *testing.T) {
			got := SanitizeTraceID(raw)
			assert.NotEqual(t, raw, got)
			assert.NotEmpty(t, got)
		})
	}
}

func TestRequireOwnerID(t *testing.T) {
	_, err := RequireOwnerID(context.Background())
	require.Error(t, err)

	ownerID := id.New()
	got, err := RequireOwnerID(WithOwner(context.Background(), &OwnerContext{OwnerID: ownerID}))
	require.NoError(t, err)
	assert.Equal(t, ownerID, got)
}
