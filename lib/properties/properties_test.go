package properties

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"vesta/vesta"
)

const config = `
global:
  parallelism: 2
source:
  gen:
    type: mock
    interval: 10ms
`

var (
	intervalProperty    = NewProperty[time.Duration]("interval", "emit interval", 100*time.Millisecond)
	typeProperty        = NewRequiredProperty[string]("type", "component type")
	parallelismProperty = NewProperty[int]("parallelism", "default parallelism", 1)
	batchProperty       = NewProperty[int]("batch", "batch size", 10)
)

func TestNewFromString(t *testing.T) {
	ps, err := NewFromString("yaml", config)
	require.NoError(t, err)

	assert.Equal(t, 2, ps.Global().GetInt(parallelismProperty))
	assert.ElementsMatch(t, []string{"gen"}, ps.PrefixKeys("source"))

	gen := ps.Sub("source").Sub("gen")
	require.NotNil(t, gen)
	assert.Equal(t, "mock", gen.GetString(typeProperty))
	assert.Equal(t, 10*time.Millisecond, gen.GetDuration(intervalProperty))
	assert.Nil(t, ps.Sub("sink"))
}

func TestInitAndRender(t *testing.T) {
	ps, err := NewFromString("yaml", config)
	require.NoError(t, err)
	gen := ps.Sub("source").Sub("gen")

	t.Run("defaults are applied", func(t *testing.T) {
		rendered, err := InitAndRender(gen, vesta.PropertiesDef{typeProperty, batchProperty})
		require.NoError(t, err)
		assert.Contains(t, rendered, "batch")
		assert.Equal(t, 10, gen.GetInt(batchProperty))
	})

	t.Run("defaults stay visible through later subs", func(t *testing.T) {
		_, err := InitAndRender(ps.Sub("source.gen"), vesta.PropertiesDef{batchProperty})
		require.NoError(t, err)
		assert.Same(t, ps.Sub("source.gen"), ps.Sub("source.gen"))
		assert.Equal(t, 10, ps.Sub("source.gen").GetInt(batchProperty))
	})

	t.Run("required property missing", func(t *testing.T) {
		_, err := InitAndRender(gen, vesta.PropertiesDef{NewRequiredProperty[string]("path", "file path")})
		assert.ErrorIs(t, err, ErrPropertyNoSet)
	})
}

func TestRenderDef(t *testing.T) {
	rendered := RenderDef(vesta.PropertiesDef{typeProperty, intervalProperty})
	assert.Contains(t, rendered, "component type")
	assert.Contains(t, rendered, "time.Duration")
}

func TestValidatedProperty(t *testing.T) {
	positive := NewValidatedProperty[int]("parallelism", "default parallelism", 1, func(v int) error {
		if v < 1 {
			return fmt.Errorf("must be positive, got %d", v)
		}
		return nil
	})

	ps, err := NewFromString("yaml", "global:\n  parallelism: 0\n")
	require.NoError(t, err)
	_, err = InitAndRender(ps.Global(), vesta.PropertiesDef{positive})
	assert.ErrorIs(t, err, ErrPropertyInvalid)

	ps, err = NewFromString("yaml", "global:\n  parallelism: \"3\"\n")
	require.NoError(t, err)
	_, err = InitAndRender(ps.Global(), vesta.PropertiesDef{positive})
	assert.NoError(t, err)
}
