package store

import "context"

// StoreState represents the initialization state of the datastore.
type StoreState int

const (
	StateMissing         StoreState = iota // File doesn't exist
	StateUninitialized                     // File exists but required objects are missing
	StateVersionMismatch                   // Schema exists but app_info version differs
	StateReady                             // Initialized and correct version
)

func (s StoreState) String() string {
	switch s {
	case StateMissing:
		return "missing"
	case StateUninitialized:
		return "uninitialized"
	case StateVersionMismatch:
		return "version mismatch"
	case StateReady:
		return "ready"
	}
	return "unknown"
}

// Keys of the fixed app_info rows.
const (
	KeyProjectName = "project_name"
	KeyVersion     = "version"
	KeyAuthor      = "author"
	KeyDescription = "description"
)

// AppInfoEntry is one row of the app_info metadata table.
type AppInfoEntry struct {
	ID    int64
	Key   string
	Value string
}

// Catalog lists the required schema objects found in sqlite_master.
type Catalog struct {
	Tables  []string
	Indexes []string
}

// Has reports whether a table or index with the given name was found.
func (c Catalog) Has(name string) bool {
	for _, t := range c.Tables {
		if t == name {
			return true
		}
	}
	for _, i := range c.Indexes {
		if i == name {
			return true
		}
	}
	return false
}

// Store defines the thoughts datastore contract.
// Implementations are used from a single goroutine.
type Store interface {
	// Open opens the datastore connection
	Open(ctx context.Context) error

	// Close closes the datastore connection
	Close() error

	// Probe runs a read against the catalog to confirm the file is usable
	Probe(ctx context.Context) error

	// EnsureSchema creates tables and indexes if absent and upserts seed rows
	// into app_info, all in one transaction
	EnsureSchema(ctx context.Context, seed []AppInfoEntry) error

	// Verify returns the required tables and indexes present in the catalog
	Verify(ctx context.Context) (Catalog, error)

	// TableCount returns the number of non-system tables
	TableCount(ctx context.Context) (int, error)

	// AppInfoCount returns the number of rows in app_info
	AppInfoCount(ctx context.Context) (int, error)

	// AppInfo returns the app_info rows ordered by id
	AppInfo(ctx context.Context) ([]AppInfoEntry, error)

	// CheckState returns the current state of the datastore
	CheckState(ctx context.Context) (StoreState, error)
}
