package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "ysvs/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be well-formed UUIDs at trust boundaries".
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseEventID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseRegistrationID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		raw := uuid.New()
		id, err := ParseCertificateID(raw.String())
		require.NoError(t, err)
		assert.Equal(t, raw.String(), id.String())
	})

	t.Run("nil UUID parses but reports IsNil", func(t *testing.T) {
		id, err := ParseUserID(uuid.Nil.String())
		require.NoError(t, err)
		assert.True(t, id.IsNil())
	})
}

func TestIDJSONRoundTrip(t *testing.T) {
	raw := uuid.New()
	payload, err := json.Marshal(struct {
		ID RegistrationID `json:"id"`
	}{ID: RegistrationID(raw)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"`+raw.String()+`"}`, string(payload))

	var decoded struct {
		ID RegistrationID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, raw.String(), decoded.ID.String())
}

func TestIDTypesAreDistinct(t *testing.T) {
	// Compile-time property really, but keep a runtime smoke check on String().
	raw := uuid.New()
	assert.Equal(t, raw.String(), EventID(raw).String())
	assert.Equal(t, raw.String(), TicketTypeID(raw).String())
	assert.Equal(t, raw.String(), TemplateID(raw).String())
}
