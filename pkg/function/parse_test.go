package function

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFields(t *testing.T) {
	fields, err := Fields(" 10.0.0.1 GET /index.html HTTP/1.1 ", " ", []string{"client_ip", "method", "rest"})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"client_ip": "10.0.0.1",
		"method":    "GET",
		"rest":      "/index.html HTTP/1.1",
	}, fields)

	_, err = Fields("10.0.0.1", " ", []string{"client_ip", "method"})
	assert.ErrorIs(t, err, ErrFieldCount)

	fields, err = Fields("anything", " ", nil)
	require.NoError(t, err)
	assert.Empty(t, fields)
}

func TestKeyValues(t *testing.T) {
	assert.Equal(t, map[string]interface{}{"level": "warn", "code": "500", "empty": ""},
		KeyValues("level=warn code=500 broken empty= =x", " ", "="))
	assert.Empty(t, KeyValues("", " ", "="))
}
