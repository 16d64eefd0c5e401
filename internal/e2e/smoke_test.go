package e2e

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmokeFlow(t *testing.T) {
	dir := t.TempDir()
	binaryPath := buildBinary(t)
	require.NoError(t, writeSnapshotFixture(dir))

	payload, stderr, err := runNodetel(t, binaryPath, dir, "", "round", "--round", "12", "--payload-only")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, payload, `"v":2`)

	stdout, stderr, err := runNodetel(t, binaryPath, dir, payload, "validate", "--round", "12", "-")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "ACCEPTED")

	stdout, stderr, err = runNodetel(t, binaryPath, dir, "", "cache", "show")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "AMD EPYC 7763")

	_, _, err = runNodetel(t, binaryPath, dir, "", "validate", "--round", "12", "{nope")
	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.ExitCode())
}

func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "nodetel-e2e")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/nodetel")
	cmd.Dir = repoRoot(t)

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build nodetel binary: %s", string(output))
	return binaryPath
}

func runNodetel(t *testing.T, binaryPath, dir, stdin string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(),
		"XDG_CONFIG_HOME="+filepath.Join(dir, "config"),
		"XDG_DATA_HOME="+filepath.Join(dir, "data"),
		"NODETEL_HARDWARE_SNAPSHOT_FILE="+filepath.Join(dir, "snapshot.toml"),
		"NODETEL_NETWORK_LOOKUP_URL=off",
		"NODETEL_LOG_LEVEL=warn",
	)
	cmd.Stdin = strings.NewReader(stdin)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func repoRoot(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}

func writeSnapshotFixture(dir string) error {
	snapshot := `arch = "amd64"
hostname = "worker-17"

[cpu]
model = "AMD EPYC 7763"
physical_cores = 64
logical_cores = 128

[memory]
total_gb = 256

[storage]
total_gb = 3840
devices = 2

[gpu]
present = false

[os]
platform = "linux"
virtualized = false
`

	return os.WriteFile(filepath.Join(dir, "snapshot.toml"), []byte(snapshot), 0o644)
}
