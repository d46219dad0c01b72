package registry

import (
	"testing"

	"github.com/knjigovodja/backend/internal/domain/shared"
	"github.com/knjigovodja/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	reg := NewConfigClientRegistry([]config.ClientConfig{
		{ID: "obrt-horvat", Name: "Obrt Horvat", ERPTarget: "synesis", ExportFormat: "json"},
		{ID: "doo-kovac", Name: "Kovač d.o.o.", ERPTarget: "pantheon", ExportFormat: "xml"},
	})

	client, err := reg.Resolve("obrt-horvat")
	require.NoError(t, err)
	assert.Equal(t, "synesis", client.ERPTarget)
	assert.Equal(t, "json", client.ExportFormat)

	_, err = reg.Resolve("unknown")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	assert.Len(t, reg.All(), 2)
}
