package registry

import (
	"github.com/knjigovodja/backend/internal/domain/registry"
	"github.com/knjigovodja/backend/internal/domain/shared"
	"github.com/knjigovodja/backend/internal/infrastructure/config"
)

// ConfigClientRegistry resolves clients from the static configuration file.
// The client list changes rarely enough that a restart on change is
// acceptable.
type ConfigClientRegistry struct {
	clients map[string]registry.Client
}

// NewConfigClientRegistry creates a registry from the configured client list
func NewConfigClientRegistry(entries []config.ClientConfig) *ConfigClientRegistry {
	clients := make(map[string]registry.Client, len(entries))
	for _, e := range entries {
		clients[e.ID] = registry.Client{
			ID:           e.ID,
			Name:         e.Name,
			ERPTarget:    e.ERPTarget,
			ExportFormat: e.ExportFormat,
		}
	}
	return &ConfigClientRegistry{clients: clients}
}

// Resolve looks up a client by id
func (r *ConfigClientRegistry) Resolve(clientID string) (*registry.Client, error) {
	client, ok := r.clients[clientID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &client, nil
}

// All returns every registered client
func (r *ConfigClientRegistry) All() []registry.Client {
	clients := make([]registry.Client, 0, len(r.clients))
	for _, c := range r.clients {
		clients = append(clients, c)
	}
	return clients
}

var _ registry.ClientRegistry = (*ConfigClientRegistry)(nil)
