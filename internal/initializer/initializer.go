// Package initializer brings a thoughts database to its expected state:
// tables, indexes and app_info metadata, plus the side files other tools read.
//
// A run is idempotent. Only failing to open the database or to apply the
// schema is fatal; verification, counting and side-file writes degrade to a
// default value and are recorded as warnings on the Report.
package initializer

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/maloquacious/thoughtdb/internal/config"
	"github.com/maloquacious/thoughtdb/internal/logger"
	"github.com/maloquacious/thoughtdb/internal/sidefile"
	"github.com/maloquacious/thoughtdb/internal/store"
	"github.com/maloquacious/thoughtdb/internal/store/sqlite"
)

// Options configures a run. Use FromConfig for the standard values.
type Options struct {
	DBPath            string
	ConnectionFile    string
	VisualizerDir     string
	VisualizerEnvFile string
	VisualizerEnvVar  string

	Seed []store.AppInfoEntry

	Out      io.Writer
	Log      logger.Logger
	LookPath func(file string) (string, error)

	// OpenStore overrides the store constructor in tests.
	OpenStore func(dbPath, version string, log logger.Logger) store.Store
}

// FromConfig builds Options from a loaded configuration.
func FromConfig(cfg *config.Config, out io.Writer, log logger.Logger) Options {
	return Options{
		DBPath:            cfg.Database.Path,
		ConnectionFile:    cfg.Output.ConnectionFile,
		VisualizerDir:     cfg.Visualizer.Dir,
		VisualizerEnvFile: cfg.Visualizer.EnvFile,
		VisualizerEnvVar:  cfg.Visualizer.EnvVar,
		Seed:              cfg.AppInfo.Entries(),
		Out:               out,
		Log:               log,
	}
}

func (o *Options) defaults() {
	if o.Out == nil {
		o.Out = os.Stdout
	}
	if o.Log == nil {
		o.Log = logger.Default
	}
	if o.LookPath == nil {
		o.LookPath = exec.LookPath
	}
	if o.OpenStore == nil {
		o.OpenStore = func(dbPath, version string, log logger.Logger) store.Store {
			return sqlite.New(dbPath, version, log)
		}
	}
}

// seedVersion is the value of the version row, used as the expected version.
func (o *Options) seedVersion() string {
	for _, e := range o.Seed {
		if e.Key == store.KeyVersion {
			return e.Value
		}
	}
	return ""
}

// Run performs one initialization pass and prints the setup report to
// opts.Out. The returned error is always a *FatalError.
func Run(ctx context.Context, opts Options) (*Report, error) {
	opts.defaults()
	out, log := opts.Out, opts.Log
	r := &Report{}

	fmt.Fprintln(out, "Starting SQLite setup...")

	paths, err := store.ResolvePaths(opts.DBPath, opts.ConnectionFile, opts.VisualizerDir, opts.VisualizerEnvFile)
	if err != nil {
		return r, &FatalError{Step: StepResolve, Err: err}
	}
	r.Paths = paths
	log.Debug("database %s resolved to %s", paths.DB, paths.DBAbs)

	r.Existed, err = store.CheckExists(paths.DB)
	if err != nil {
		return r, &FatalError{Step: StepResolve, Err: err}
	}
	if r.Existed {
		fmt.Fprintf(out, "SQLite database already exists at %s\n", paths.DB)
		if err := probe(ctx, opts); err != nil {
			r.warn(StepProbe, err)
			fmt.Fprintf(out, "Warning: Database exists but may be corrupted: %v\n", err)
		} else {
			fmt.Fprintln(out, "Database is accessible and working.")
		}
	} else {
		fmt.Fprintln(out, "Creating new SQLite database...")
	}

	st := opts.OpenStore(paths.DB, opts.seedVersion(), log)
	if err := st.Open(ctx); err != nil {
		log.Error("cannot open %s: %v", paths.DBAbs, err)
		return r, &FatalError{Step: StepConnect, Err: err}
	}

	if err := initialize(ctx, st, opts, r); err != nil {
		st.Close()
		log.Error("schema initialization failed: %v", err)
		return r, &FatalError{Step: StepSchema, Err: err}
	}

	if err := st.Close(); err != nil {
		r.warn(StepClose, err)
		log.Warn("close: %v", err)
	}

	writeSideFiles(opts, r)
	printSummary(opts, r)

	for _, w := range r.Warnings {
		log.Warn("degraded step %s", w)
	}
	return r, nil
}

// probe opens the existing file on its own connection and reads the catalog.
func probe(ctx context.Context, opts Options) error {
	p := opts.OpenStore(opts.DBPath, opts.seedVersion(), opts.Log)
	if err := p.Open(ctx); err != nil {
		return err
	}
	defer p.Close()
	return p.Probe(ctx)
}

// initialize applies the schema, then verifies and counts. Only the schema
// error is returned.
func initialize(ctx context.Context, st store.Store, opts Options, r *Report) error {
	out := opts.Out

	if err := st.EnsureSchema(ctx, opts.Seed); err != nil {
		return err
	}

	catalog, err := st.Verify(ctx)
	if err != nil {
		r.warn(StepVerify, err)
		catalog = store.Catalog{}
	}
	r.Catalog = catalog
	r.ThoughtsPresent = catalog.Has(sqlite.TableThoughts)

	if r.ThoughtsPresent {
		fmt.Fprintln(out, "Verified: 'thoughts' table is present.")
	} else {
		fmt.Fprintln(out, "Error: 'thoughts' table verification failed.")
	}
	if err != nil {
		fmt.Fprintln(out, "Note: Skipped index verification (non-fatal).")
	} else {
		if catalog.Has(sqlite.IndexThoughtsCreatedAt) {
			fmt.Fprintln(out, "Index ready: idx_thoughts_created_at on datetime(created_at)")
		}
		if catalog.Has(sqlite.IndexThoughtsUserCreated) {
			fmt.Fprintln(out, "Index ready: idx_thoughts_user_created on (username, datetime(created_at))")
		}
	}

	if r.TableCount, err = st.TableCount(ctx); err != nil {
		r.warn(StepTableCount, err)
		r.TableCount = 0
		fmt.Fprintf(out, "Warning: Could not count tables: %v\n", err)
	}
	if r.AppInfoCount, err = st.AppInfoCount(ctx); err != nil {
		r.warn(StepAppInfoCount, err)
		r.AppInfoCount = 0
		fmt.Fprintf(out, "Warning: Could not count app info records: %v\n", err)
	}
	return nil
}

func writeSideFiles(opts Options, r *Report) {
	out, p := opts.Out, r.Paths

	if err := sidefile.WriteConnectionInfo(p.ConnectionFile, p.DBAbs); err != nil {
		r.warn(StepConnectionInfo, err)
		fmt.Fprintf(out, "Warning: Could not save connection info: %v\n", err)
	} else {
		r.ConnectionFileWritten = true
		fmt.Fprintf(out, "Connection information saved to %s\n", p.ConnectionFile)
	}

	created, err := sidefile.WriteVisualizerEnv(p.VisualizerDir, opts.VisualizerEnvFile, opts.VisualizerEnvVar, p.DBAbs)
	r.VisualizerDirCreated = created
	if created {
		fmt.Fprintf(out, "Created %s directory\n", p.VisualizerDir)
	}
	if err != nil {
		r.warn(StepVisualizerEnv, err)
		fmt.Fprintf(out, "Warning: Could not save environment variables: %v\n", err)
	} else {
		r.VisualizerEnvWritten = true
		fmt.Fprintf(out, "Environment variables saved to %s\n", p.VisualizerEnv)
	}
}

func printSummary(opts Options, r *Report) {
	out, p := opts.Out, r.Paths

	fmt.Fprintln(out, "\nSQLite setup complete!")
	fmt.Fprintf(out, "Database: %s\n", p.DB)
	fmt.Fprintf(out, "Location: %s\n\n", p.DBAbs)

	fmt.Fprintf(out, "To use with Node.js viewer, run: source %s\n", p.VisualizerEnv)

	fmt.Fprintln(out, "\nTo connect to the database, use one of the following methods:")
	fmt.Fprintf(out, "1. Go: %s\n", sidefile.OpenSnippet(p.DBAbs))
	fmt.Fprintf(out, "2. Connection string: %s\n", sidefile.ConnectionString(p.DBAbs))
	fmt.Fprintf(out, "3. Direct file access: %s\n", p.DBAbs)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Database statistics:")
	fmt.Fprintf(out, "  Tables: %d\n", r.TableCount)
	fmt.Fprintf(out, "  App info records: %d\n", r.AppInfoCount)

	if path, err := opts.LookPath("sqlite3"); err == nil {
		r.CLIPath = path
		fmt.Fprintln(out)
		fmt.Fprintln(out, "SQLite CLI is available. You can also use:")
		fmt.Fprintf(out, "  sqlite3 %s\n", p.DBAbs)
	}

	fmt.Fprintln(out, "\nScript completed successfully.")
}
