package config

import (
	"context"
)

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads every file of its format found under the given paths
	// (files or directories) and translates them into the format-agnostic
	// model. Paths that do not exist are ignored.
	Load(ctx context.Context, paths ...string) (*Model, error)
}
