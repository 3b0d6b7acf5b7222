// Package sidefile writes the derived, disposable artifacts that point other
// tools at the database: a connection-info text file and a shell env file for
// the companion visualizer. Both are recomputed from the absolute database
// path on every run.
package sidefile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// ConnectionString returns the URL form of an absolute database path.
func ConnectionString(dbAbs string) string {
	return "sqlite:///" + dbAbs
}

// OpenSnippet returns a Go statement that opens the database by path.
func OpenSnippet(dbAbs string) string {
	return fmt.Sprintf("sql.Open(\"sqlite\", %q)", dbAbs)
}

// ConnectionInfo renders the four comment lines of the connection-info file.
func ConnectionInfo(dbAbs string) string {
	var sb strings.Builder
	sb.WriteString("# SQLite connection methods:\n")
	fmt.Fprintf(&sb, "# Go: %s\n", OpenSnippet(dbAbs))
	fmt.Fprintf(&sb, "# Connection string: %s\n", ConnectionString(dbAbs))
	fmt.Fprintf(&sb, "# File path: %s\n", dbAbs)
	return sb.String()
}

// WriteConnectionInfo writes the connection-info file, replacing any prior one.
func WriteConnectionInfo(path, dbAbs string) error {
	if err := os.WriteFile(path, []byte(ConnectionInfo(dbAbs)), 0644); err != nil {
		return fmt.Errorf("failed to write connection info: %w", err)
	}
	return nil
}

// WriteVisualizerEnv writes `export <envVar>="<dbAbs>"` to dir/envFile,
// creating dir first when needed. created reports whether dir was made.
func WriteVisualizerEnv(dir, envFile, envVar, dbAbs string) (created bool, err error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return false, fmt.Errorf("failed to create visualizer directory: %w", err)
		}
		created = true
	}

	line := fmt.Sprintf("export %s=\"%s\"\n", envVar, dbAbs)
	if err := os.WriteFile(filepath.Join(dir, envFile), []byte(line), 0644); err != nil {
		return created, fmt.Errorf("failed to write visualizer env: %w", err)
	}
	return created, nil
}

// ReadVisualizerEnv parses an env file written by WriteVisualizerEnv and
// returns the value assigned to envVar.
func ReadVisualizerEnv(path, envVar string) (string, error) {
	env, err := godotenv.Read(path)
	if err != nil {
		return "", fmt.Errorf("failed to read visualizer env: %w", err)
	}
	v, ok := env[envVar]
	if !ok {
		return "", fmt.Errorf("%s not set in %s", envVar, path)
	}
	return v, nil
}
