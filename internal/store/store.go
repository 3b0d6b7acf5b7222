package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	DefaultDBFile            = "myapp.db"
	DefaultConnectionFile    = "db_connection.txt"
	DefaultVisualizerDir     = "db_visualizer"
	DefaultVisualizerEnvFile = "sqlite.env"
	DefaultVisualizerEnvVar  = "SQLITE_DB"
)

var (
	ErrNotOpen     = errors.New("database not opened")
	ErrIsDirectory = errors.New("datastore path is a directory, expected file")
)

// CheckExists verifies if the database file exists at the given path.
// Returns true if the file exists, false otherwise.
func CheckExists(dbPath string) (bool, error) {
	info, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check store existence: %w", err)
	}
	if info.IsDir() {
		return false, fmt.Errorf("%w: %s", ErrIsDirectory, dbPath)
	}
	return true, nil
}

// Paths holds every file location the initializer touches in one run.
type Paths struct {
	DB             string // as configured, used in report lines
	DBAbs          string
	ConnectionFile string
	VisualizerDir  string
	VisualizerEnv  string
}

// ResolvePaths derives the absolute database path and the side file
// locations. Side file paths are left relative when configured that way.
func ResolvePaths(dbPath, connectionFile, visualizerDir, envFile string) (Paths, error) {
	abs, err := filepath.Abs(dbPath)
	if err != nil {
		return Paths{}, fmt.Errorf("failed to resolve database path: %w", err)
	}
	return Paths{
		DB:             dbPath,
		DBAbs:          abs,
		ConnectionFile: connectionFile,
		VisualizerDir:  visualizerDir,
		VisualizerEnv:  filepath.Join(visualizerDir, envFile),
	}, nil
}
