package commands

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
)

// TestRunner describes a detected test-running capability: the kind of
// runner and the command line to invoke it.
type TestRunner struct {
	Kind   string
	RunCmd []string
}

// testRunnerCandidates is the filesystem-probe table behind
// DetectTestRunner; additional runners slot in without touching
// callers. Checked in order; first match wins.
var testRunnerCandidates = []struct {
	file string
	kind string
	cmd  []string
}{
	{"jest.config.js", "jest", []string{"npx", "jest"}},
	{"jest.config.ts", "jest", []string{"npx", "jest"}},
	{"jest.config.mjs", "jest", []string{"npx", "jest"}},
	{"vitest.config.ts", "vitest", []string{"npx", "vitest", "run"}},
	{"pytest.ini", "pytest", []string{"pytest"}},
	{"pyproject.toml", "pytest", []string{"pytest"}},
	{"go.mod", "go", []string{"go", "test", "./..."}},
	{"Makefile", "make", []string{"make", "test"}},
}

// DetectTestRunner probes repoRoot for a recognized test runner.
func DetectTestRunner(repoRoot string) (TestRunner, bool) {
	for _, c := range testRunnerCandidates {
		if _, err := os.Stat(filepath.Join(repoRoot, c.file)); err == nil {
			return TestRunner{Kind: c.kind, RunCmd: c.cmd}, true
		}
	}
	return TestRunner{}, false
}

// Run spawns the runner's command in repoRoot, streaming its output to
// the terminal. A non-nil error means the suite failed or could not be
// started; cancelling ctx kills the child process.
func (r TestRunner) Run(ctx context.Context, repoRoot string) error {
	cmd := exec.CommandContext(ctx, r.RunCmd[0], r.RunCmd[1:]...) //nolint:gosec // RunCmd comes from the fixed candidate table
	cmd.Dir = repoRoot
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
