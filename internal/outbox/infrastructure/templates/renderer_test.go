package templates

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSubstitutesContext(t *testing.T) {
	r := NewRenderer()

	out, err := r.Render(context.Background(), "Hello {{.name}}, order {{.order_id}} shipped", map[string]any{
		"name":     "Alice",
		"order_id": "SO-42",
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello Alice, order SO-42 shipped", out)
}

func TestRenderFailsOnMissingKey(t *testing.T) {
	r := NewRenderer()

	_, err := r.Render(context.Background(), "Hello {{.missing}}", map[string]any{})
	assert.Error(t, err)
}

func TestRenderFailsOnBadTemplate(t *testing.T) {
	r := NewRenderer()

	_, err := r.Render(context.Background(), "Hello {{.name", nil)
	assert.Error(t, err)
}
