package game

import "github.com/loot-sort/loot/internal/metadata"

// LoadOrderHandler is the external load-order collaborator (spec §6
// "Load-order handler"): the low-level per-game file format reader/
// writer that Game never implements itself, only calls through this
// narrow interface.
type LoadOrderHandler interface {
	// Init prepares the handler for a specific game installation.
	Init(gameType, gamePath, localPath string) error
	// IsPluginActive reports whether name is active in the current load
	// order.
	IsPluginActive(name string) (bool, error)
	// GetLoadOrder returns the plugin names in their current on-disk
	// load order.
	GetLoadOrder() ([]string, error)
	// SetLoadOrder persists order as the new on-disk load order.
	SetLoadOrder(order []string) error
}

// MasterlistUpdater is re-exported from internal/metadata so callers
// constructing a Game only need to import this package (spec §6
// "Masterlist updater").
type MasterlistUpdater = metadata.MasterlistUpdater
