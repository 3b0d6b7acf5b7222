package initializer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/maloquacious/thoughtdb/internal/config"
	"github.com/maloquacious/thoughtdb/internal/logger"
	"github.com/maloquacious/thoughtdb/internal/sidefile"
	"github.com/maloquacious/thoughtdb/internal/store"
	"github.com/maloquacious/thoughtdb/internal/store/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errNoCLI = errors.New("sqlite3 not found")

func testOptions(t *testing.T, dir string) (Options, *bytes.Buffer) {
	t.Helper()
	cfg := config.Default()
	cfg.Database.Path = filepath.Join(dir, store.DefaultDBFile)
	cfg.Output.ConnectionFile = filepath.Join(dir, store.DefaultConnectionFile)
	cfg.Visualizer.Dir = filepath.Join(dir, store.DefaultVisualizerDir)

	var out bytes.Buffer
	opts := FromConfig(cfg, &out, logger.Discard())
	opts.LookPath = func(string) (string, error) { return "", errNoCLI }
	return opts, &out
}

func readAppInfo(t *testing.T, dbPath string) []store.AppInfoEntry {
	t.Helper()
	s := sqlite.New(dbPath, "", logger.Discard())
	require.NoError(t, s.Open(context.Background()))
	defer s.Close()
	entries, err := s.AppInfo(context.Background())
	require.NoError(t, err)
	return entries
}

func TestRunFreshDatabase(t *testing.T) {
	dir := t.TempDir()
	opts, out := testOptions(t, dir)

	r, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Empty(t, r.Warnings)

	assert.False(t, r.Existed)
	assert.FileExists(t, opts.DBPath)
	for _, name := range append(append([]string{}, sqlite.RequiredTables...), sqlite.RequiredIndexes...) {
		assert.True(t, r.Catalog.Has(name), "missing %s", name)
	}
	assert.True(t, r.ThoughtsPresent)
	assert.Equal(t, 3, r.TableCount)
	assert.Equal(t, 4, r.AppInfoCount)

	abs, err := filepath.Abs(opts.DBPath)
	require.NoError(t, err)
	assert.Equal(t, abs, r.Paths.DBAbs)

	data, err := os.ReadFile(opts.ConnectionFile)
	require.NoError(t, err)
	assert.Equal(t, sidefile.ConnectionInfo(abs), string(data))

	env, err := sidefile.ReadVisualizerEnv(r.Paths.VisualizerEnv, store.DefaultVisualizerEnvVar)
	require.NoError(t, err)
	assert.Equal(t, abs, env)
	assert.True(t, r.VisualizerDirCreated)

	text := out.String()
	assert.Contains(t, text, "Starting SQLite setup...\nCreating new SQLite database...\n")
	assert.Contains(t, text, "Verified: 'thoughts' table is present.")
	assert.Contains(t, text, "Index ready: idx_thoughts_created_at on datetime(created_at)")
	assert.Contains(t, text, "Index ready: idx_thoughts_user_created on (username, datetime(created_at))")
	assert.Contains(t, text, "  Tables: 3\n  App info records: 4\n")
	assert.Contains(t, text, "2. Connection string: sqlite:///"+abs)
	assert.NotContains(t, text, "SQLite CLI is available")
	assert.Contains(t, text, "\nScript completed successfully.\n")
}

func TestRunIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	opts, _ := testOptions(t, dir)

	first, err := Run(context.Background(), opts)
	require.NoError(t, err)
	firstRows := readAppInfo(t, opts.DBPath)

	opts2, out := testOptions(t, dir)
	second, err := Run(context.Background(), opts2)
	require.NoError(t, err)
	secondRows := readAppInfo(t, opts.DBPath)

	assert.True(t, second.Existed)
	assert.False(t, second.VisualizerDirCreated)
	assert.Equal(t, first.Catalog, second.Catalog)
	assert.Equal(t, first.TableCount, second.TableCount)
	assert.Equal(t, firstRows, secondRows)
	require.Len(t, secondRows, 4)
	assert.Equal(t, "project_name", secondRows[0].Key)
	assert.Equal(t, "description", secondRows[3].Key)

	text := out.String()
	assert.Contains(t, text, "SQLite database already exists at "+opts.DBPath)
	assert.Contains(t, text, "Database is accessible and working.")
	assert.NotContains(t, text, "Created ")
}

func TestRunPreexistingEmptyFile(t *testing.T) {
	dir := t.TempDir()
	opts, _ := testOptions(t, dir)
	require.NoError(t, os.WriteFile(opts.DBPath, nil, 0644))

	r, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.True(t, r.Existed)
	assert.True(t, r.ThoughtsPresent)
	assert.Equal(t, 4, r.AppInfoCount)
}

func TestRunUnwritableDirectoryIsFatal(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	dir := t.TempDir()
	opts, out := testOptions(t, dir)
	require.NoError(t, os.Chmod(dir, 0555))
	t.Cleanup(func() { os.Chmod(dir, 0755) })

	_, err := Run(context.Background(), opts)
	require.Error(t, err)

	var fatal *FatalError
	require.True(t, errors.As(err, &fatal))
	assert.Equal(t, StepConnect, fatal.Step)

	assert.NoFileExists(t, opts.ConnectionFile)
	assert.NoDirExists(t, opts.VisualizerDir)
	assert.NotContains(t, out.String(), "Script completed successfully.")
}

func TestRunSideFileFailureIsWarning(t *testing.T) {
	dir := t.TempDir()
	opts, out := testOptions(t, dir)
	require.NoError(t, os.Mkdir(opts.ConnectionFile, 0755))

	r, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.True(t, r.HasWarning(StepConnectionInfo))
	assert.False(t, r.ConnectionFileWritten)
	assert.True(t, r.VisualizerEnvWritten)
	assert.Contains(t, out.String(), "Warning: Could not save connection info:")
	assert.Contains(t, out.String(), "Script completed successfully.")
}

func TestRunMentionsCLI(t *testing.T) {
	dir := t.TempDir()
	opts, out := testOptions(t, dir)
	opts.LookPath = func(file string) (string, error) { return "/usr/bin/" + file, nil }

	r, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/sqlite3", r.CLIPath)
	assert.Contains(t, out.String(), "SQLite CLI is available. You can also use:\n  sqlite3 "+r.Paths.DBAbs+"\n")
}

// degradedStore fails the read-only steps that a run tolerates.
type degradedStore struct {
	*sqlite.SQLiteStore
	schemaErr error
}

func (d *degradedStore) EnsureSchema(ctx context.Context, seed []store.AppInfoEntry) error {
	if d.schemaErr != nil {
		return d.schemaErr
	}
	return d.SQLiteStore.EnsureSchema(ctx, seed)
}

func (d *degradedStore) Verify(context.Context) (store.Catalog, error) {
	return store.Catalog{}, errors.New("catalog unavailable")
}

func (d *degradedStore) TableCount(context.Context) (int, error) {
	return 7, errors.New("count unavailable")
}

func TestRunDegradesVerifyAndStats(t *testing.T) {
	dir := t.TempDir()
	opts, out := testOptions(t, dir)
	opts.OpenStore = func(dbPath, version string, log logger.Logger) store.Store {
		return &degradedStore{SQLiteStore: sqlite.New(dbPath, version, log)}
	}

	r, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.True(t, r.HasWarning(StepVerify))
	assert.True(t, r.HasWarning(StepTableCount))
	assert.False(t, r.HasWarning(StepAppInfoCount))
	assert.Equal(t, 0, r.TableCount)
	assert.Equal(t, 4, r.AppInfoCount)
	assert.False(t, r.ThoughtsPresent)

	text := out.String()
	assert.Contains(t, text, "Error: 'thoughts' table verification failed.")
	assert.Contains(t, text, "Note: Skipped index verification (non-fatal).")
	assert.Contains(t, text, "  Tables: 0\n")
	assert.Contains(t, text, "Script completed successfully.")
}

func TestRunSchemaFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	opts, _ := testOptions(t, dir)
	schemaErr := errors.New("disk full")
	opts.OpenStore = func(dbPath, version string, log logger.Logger) store.Store {
		return &degradedStore{SQLiteStore: sqlite.New(dbPath, version, log), schemaErr: schemaErr}
	}

	_, err := Run(context.Background(), opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, schemaErr)

	var fatal *FatalError
	require.True(t, errors.As(err, &fatal))
	assert.Equal(t, StepSchema, fatal.Step)
	assert.NoFileExists(t, opts.ConnectionFile)
}
