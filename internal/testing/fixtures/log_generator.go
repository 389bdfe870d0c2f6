package fixtures

import (
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
)

// LogEntry is one build or run record in the JSONL log format
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Kind      string `json:"kind"`
	ExitCode  int    `json:"exit_code"`
	Command   string `json:"command"`
	Stdout    string `json:"stdout,omitempty"`
	Stderr    string `json:"stderr,omitempty"`
}

// TestDataGenerator writes build and run log files
type TestDataGenerator struct {
	baseDir string
}

// NewTestDataGenerator creates a new test data generator
func NewTestDataGenerator(baseDir string) *TestDataGenerator {
	return &TestDataGenerator{
		baseDir: baseDir,
	}
}

// GenerateWorkSession writes a build log and a run log for a student who
// builds every 20 minutes and runs after each successful build. Every third
// build fails, and runs after an odd build exit non-zero.
func (g *TestDataGenerator) GenerateWorkSession(project string, start time.Time, builds int) error {
	var buildEntries, runEntries []LogEntry
	for i := 0; i < builds; i++ {
		at := start.Add(time.Duration(i*20) * time.Minute)
		exit := 0
		stderr := ""
		if i%3 == 2 {
			exit = 1
			stderr = "main.go:12:2: undefined: helper"
		}
		buildEntries = append(buildEntries, LogEntry{
			Timestamp: at.UTC().Format(time.RFC3339),
			Kind:      "build",
			ExitCode:  exit,
			Command:   "go build ./...",
			Stderr:    stderr,
		})
		if exit != 0 {
			continue
		}

		runExit := 0
		runStderr := ""
		if i%2 == 1 {
			runExit = 2
			runStderr = "panic: runtime error: index out of range"
		}
		runEntries = append(runEntries, LogEntry{
			Timestamp: at.Add(2 * time.Minute).UTC().Format(time.RFC3339),
			Kind:      "run",
			ExitCode:  runExit,
			Command:   "go run .",
			Stdout:    "ok",
			Stderr:    runStderr,
		})
	}

	dir := filepath.Join(g.baseDir, project)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	if err := g.WriteJSONL(filepath.Join(dir, "builds.jsonl"), buildEntries); err != nil {
		return err
	}
	return g.WriteJSONL(filepath.Join(dir, "runs.jsonl"), runEntries)
}

// WriteJSONL writes entries to filename, one JSON object per line
func (g *TestDataGenerator) WriteJSONL(filename string, entries []LogEntry) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := sonic.ConfigDefault.NewEncoder(file)
	for _, entry := range entries {
		if err := encoder.Encode(entry); err != nil {
			return err
		}
	}
	return nil
}

// CreateEmptyProject creates a project directory with no log files
func (g *TestDataGenerator) CreateEmptyProject(project string) error {
	return os.MkdirAll(filepath.Join(g.baseDir, project), 0755)
}

// GetBaseDir returns the base directory
func (g *TestDataGenerator) GetBaseDir() string {
	return g.baseDir
}
