package main

import (
	"fmt"

	"github.com/maloquacious/thoughtdb/internal/sidefile"
	"github.com/maloquacious/thoughtdb/internal/store"
	"github.com/maloquacious/thoughtdb/internal/store/sqlite"
	"github.com/spf13/cobra"
)

// runVerify reports the datastore state without writing to it.
func runVerify(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	paths, err := store.ResolvePaths(cfg.Database.Path, cfg.Output.ConnectionFile, cfg.Visualizer.Dir, cfg.Visualizer.EnvFile)
	if err != nil {
		return err
	}

	exists, err := store.CheckExists(paths.DB)
	if err != nil {
		return err
	}
	if !exists {
		fmt.Fprintf(out, "State: %s\n", store.StateMissing)
		return fmt.Errorf("database not found at %s", paths.DBAbs)
	}

	st := sqlite.New(paths.DB, cfg.AppInfo.Version, log)
	if err := st.Open(ctx); err != nil {
		return err
	}
	defer st.Close()

	state, err := st.CheckState(ctx)
	if err != nil {
		return fmt.Errorf("failed to check state: %w", err)
	}
	fmt.Fprintf(out, "State: %s\n", state)

	catalog, err := st.Verify(ctx)
	if err != nil {
		return err
	}
	for _, name := range sqlite.RequiredTables {
		fmt.Fprintf(out, "  table %-28s %s\n", name, presence(catalog.Has(name)))
	}
	for _, name := range sqlite.RequiredIndexes {
		fmt.Fprintf(out, "  index %-28s %s\n", name, presence(catalog.Has(name)))
	}

	entries, err := st.AppInfo(ctx)
	if err != nil {
		log.Warn("cannot read app_info: %v", err)
	}
	for _, e := range entries {
		fmt.Fprintf(out, "  app_info %d %s = %q\n", e.ID, e.Key, e.Value)
	}

	env, err := sidefile.ReadVisualizerEnv(paths.VisualizerEnv, cfg.Visualizer.EnvVar)
	switch {
	case err != nil:
		fmt.Fprintf(out, "Visualizer env: %v\n", err)
	case env != paths.DBAbs:
		fmt.Fprintf(out, "Visualizer env: %s points at %s, expected %s\n", cfg.Visualizer.EnvVar, env, paths.DBAbs)
	default:
		fmt.Fprintf(out, "Visualizer env: ok (%s)\n", paths.VisualizerEnv)
	}

	if state != store.StateReady {
		return fmt.Errorf("datastore is %s; run thoughtdb to initialize", state)
	}
	return nil
}

func presence(ok bool) string {
	if ok {
		return "present"
	}
	return "missing"
}
