package support

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"time"

	"github.com/MeKo-Tech/barscan/internal/server"
)

// TestContext holds the state of one scenario.
type TestContext struct {
	// BinPath is the barscan binary under test.
	BinPath string

	// Command execution state
	LastCommand  string
	LastOutput   string
	LastStderr   string
	LastError    error
	LastExitCode int
	LastDuration time.Duration

	// Test environment. Commands run inside TempDir, so fixtures are
	// addressed by relative path.
	TempDir string
	EnvVars []string

	// Server state
	Server     *server.Server
	HTTPServer *httptest.Server

	// HTTP response state
	LastHTTPStatus  int
	LastHTTPBody    []byte
	LastHTTPHeaders http.Header

	// Websocket state
	LastWSResponses []map[string]any
}

// NewTestContext creates a scenario context with a fresh temp directory.
func NewTestContext(binPath string) (*TestContext, error) {
	tempDir, err := os.MkdirTemp("", "barscan-cli-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	return &TestContext{
		BinPath: binPath,
		TempDir: tempDir,
	}, nil
}

// Cleanup stops the server and removes the temp directory.
func (testCtx *TestContext) Cleanup() error {
	testCtx.stopServer()
	if err := os.RemoveAll(testCtx.TempDir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove temp directory %s: %w", testCtx.TempDir, err)
	}
	return nil
}

// AddEnvVar adds an environment variable for command execution.
func (testCtx *TestContext) AddEnvVar(name, value string) {
	testCtx.EnvVars = append(testCtx.EnvVars, fmt.Sprintf("%s=%s", name, value))
}

// path resolves a scenario-relative path inside the temp directory.
func (testCtx *TestContext) path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(testCtx.TempDir, name)
}

// writeFile writes data to a scenario-relative path, creating parent
// directories.
func (testCtx *TestContext) writeFile(name string, data []byte) error {
	p := testCtx.path(name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", name, err)
	}
	if err := os.WriteFile(p, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
