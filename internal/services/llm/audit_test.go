package llm

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLog_RingOrder(t *testing.T) {
	log := NewAuditLog(3)
	for _, m := range []string{"a", "b", "c", "d"} {
		log.Record(AuditEntry{Model: m})
	}

	entries := log.Entries(0)
	require.Len(t, entries, 3)
	assert.Equal(t, "d", entries[0].Model)
	assert.Equal(t, "b", entries[2].Model)

	assert.Len(t, log.Entries(2), 2)
}

func TestAuditLog_Export(t *testing.T) {
	log := NewAuditLog(5)
	log.Record(AuditEntry{Stage: StageShortlist, Success: true})

	var buf bytes.Buffer
	require.NoError(t, log.ExportToJSON(&buf))

	var out []AuditEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, StageShortlist, out[0].Stage)
}

func TestAuditLog_NilSafe(t *testing.T) {
	var log *AuditLog
	log.Record(AuditEntry{})
	assert.Nil(t, log.Entries(0))
}
