package postgres

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditService_CompressLargeChanges(t *testing.T) {
	svc, err := NewAuditService(nil)
	require.NoError(t, err)

	large, err := json.Marshal(map[string]string{
		"notes": string(bytes.Repeat([]byte("a"), defaultCompressThreshold+1)),
	})
	require.NoError(t, err)

	entry := AuditEntry{Changes: large}
	svc.compress(&entry)

	assert.Equal(t, CompressionZstd, entry.CompressionAlgo)
	assert.Nil(t, entry.Changes)
	assert.Less(t, len(entry.ChangesCompressed), len(large))

	require.NoError(t, svc.decompress(&entry))
	assert.JSONEq(t, string(large), string(entry.Changes))
	assert.Nil(t, entry.ChangesCompressed)
}

func TestAuditService_SmallChangesStayPlain(t *testing.T) {
	svc, err := NewAuditService(nil)
	require.NoError(t, err)

	entry := AuditEntry{Changes: json.RawMessage(`{"total":"100"}`)}
	svc.compress(&entry)

	assert.Equal(t, CompressionNone, entry.CompressionAlgo)
	assert.Empty(t, entry.ChangesCompressed)
	require.NoError(t, svc.decompress(&entry))
	assert.JSONEq(t, `{"total":"100"}`, string(entry.Changes))
}
