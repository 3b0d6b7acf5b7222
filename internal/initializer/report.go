package initializer

import (
	"fmt"

	"github.com/maloquacious/thoughtdb/internal/store"
)

// Step names one stage of an initializer run.
type Step string

const (
	StepResolve        Step = "resolve"
	StepProbe          Step = "probe"
	StepConnect        Step = "connect"
	StepSchema         Step = "schema"
	StepVerify         Step = "verify"
	StepTableCount     Step = "table_count"
	StepAppInfoCount   Step = "app_info_count"
	StepClose          Step = "close"
	StepConnectionInfo Step = "connection_info"
	StepVisualizerEnv  Step = "visualizer_env"
)

// FatalError aborts a run. Nothing after the failing step is attempted.
type FatalError struct {
	Step Step
	Err  error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Warning is a recoverable failure. The step's result was replaced by its
// default (empty catalog, zero count, skipped file) and the run continued.
type Warning struct {
	Step Step
	Err  error
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %v", w.Step, w.Err)
}

// Report is what a run observed. It is returned even on fatal errors,
// filled in up to the failing step.
type Report struct {
	Paths   store.Paths
	Existed bool

	Catalog         store.Catalog
	ThoughtsPresent bool

	TableCount   int
	AppInfoCount int

	ConnectionFileWritten bool
	VisualizerDirCreated  bool
	VisualizerEnvWritten  bool

	// CLIPath is the sqlite3 binary found on PATH, if any.
	CLIPath string

	Warnings []Warning
}

func (r *Report) warn(step Step, err error) {
	r.Warnings = append(r.Warnings, Warning{Step: step, Err: err})
}

// HasWarning reports whether the given step degraded during the run.
func (r *Report) HasWarning(step Step) bool {
	for _, w := range r.Warnings {
		if w.Step == step {
			return true
		}
	}
	return false
}
