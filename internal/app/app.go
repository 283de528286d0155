// Package app wires settings into a ready engine for the CLI, the HTTP
// server and tests.
package app

import (
	"fmt"
	"path/filepath"

	"crewcal/internal/audit"
	"crewcal/internal/config"
	"crewcal/internal/engine"
	"crewcal/internal/engine/auth"
	"crewcal/internal/store"
)

// Build opens the document store and audit log under workspace and returns
// the engine. Close releases the audit database.
func Build(workspace string, settings *config.Settings) (*engine.Engine, func() error, error) {
	loc, err := settings.Location()
	if err != nil {
		return nil, nil, err
	}
	dataDir := settings.DataDir
	if !filepath.IsAbs(dataDir) {
		dataDir = filepath.Join(workspace, dataDir)
	}
	st, err := store.Open(dataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	aud, err := audit.Open(workspace)
	if err != nil {
		return nil, nil, fmt.Errorf("open audit log: %w", err)
	}
	eng := engine.New(st, aud, auth.NewPolicy(settings.ManagerRoles), loc)
	return eng, aud.Close, nil
}
