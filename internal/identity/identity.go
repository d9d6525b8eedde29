// Package identity yields the stable anonymous id a device carries before
// any room operation. No accounts, no credentials; the id is minted once
// and persisted next to the app's data.
package identity

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const fileName = "device_id"

type Provider struct {
	dir string
}

// NewProvider stores the device id under dir (the app's data directory).
func NewProvider(dir string) *Provider {
	return &Provider{dir: dir}
}

// DeviceID returns the persisted id, minting and saving a new one on first
// use. A device that cannot persist still gets a valid id for the process
// lifetime.
func (p *Provider) DeviceID() (string, error) {
	path := filepath.Join(p.dir, fileName)
	if b, err := os.ReadFile(path); err == nil {
		if id := strings.TrimSpace(string(b)); id != "" {
			return id, nil
		}
	}
	id := uuid.NewString()
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return id, err
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return id, err
	}
	return id, nil
}
