package echo

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"vesta/lib/context"
	"vesta/lib/log"
	"vesta/lib/properties"
	"vesta/vesta"
)

func TestEcho(t *testing.T) {
	buffer := &bytes.Buffer{}
	log.Setup(log.DefaultOptions().WithOutputEncoder(log.ConsoleOutputEncoder).WithWriter(zapcore.AddSync(buffer)))

	ps, err := properties.NewFromString("yaml", "sink:\n  out:\n    batch: 2\n    echo: warn\n")
	require.NoError(t, err)
	s := New()
	ctx := context.New(nil, ps).Named("sink").Named("out")
	_, err = properties.InitAndRender(ctx.Properties(), s.PropertiesDef())
	require.NoError(t, err)
	require.NoError(t, s.Open(ctx))

	require.NoError(t, s.Invoke(&vesta.Event{Message: "first"}))
	assert.Empty(t, buffer.String())
	require.NoError(t, s.Invoke(&vesta.Event{Message: "second"}))
	require.NoError(t, s.Invoke(&vesta.Event{Message: "third"}))
	assert.Equal(t, 2, strings.Count(buffer.String(), "WARN"))
	assert.Contains(t, buffer.String(), "sink.out")

	require.NoError(t, s.Close())
	assert.Equal(t, 3, strings.Count(buffer.String(), "WARN"))
	assert.Contains(t, buffer.String(), "third")
}
