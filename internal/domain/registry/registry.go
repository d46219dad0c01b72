package registry

// Client is a registry entry resolving a client to its export target
type Client struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ERPTarget    string `json:"erp_target"`
	ExportFormat string `json:"export_format"`
}

// ClientRegistry resolves client IDs to export targets. The pipeline only
// reads it to stamp erp_target on a proposal; it never gates approval.
type ClientRegistry interface {
	// Resolve returns the registry entry for a client.
	// Returns shared.ErrNotFound for unknown clients.
	Resolve(clientID string) (*Client, error)
}
