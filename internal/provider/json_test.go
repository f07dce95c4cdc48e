package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON(t *testing.T) {
	var out struct {
		ID int `json:"id"`
	}

	require.NoError(t, DecodeJSON(`{"id": 7}`, &out))
	assert.Equal(t, 7, out.ID)

	require.NoError(t, DecodeJSON("```json\n{\"id\": 12}\n```", &out))
	assert.Equal(t, 12, out.ID)

	require.NoError(t, DecodeJSON(`{"id": 3,}`, &out))
	assert.Equal(t, 3, out.ID)

	out.ID = 9
	require.NoError(t, DecodeJSON("", &out))
	assert.Equal(t, 9, out.ID)

	assert.Error(t, DecodeJSON(`{"id": "seven"}`, &out))
}
