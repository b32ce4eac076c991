package e2e_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var binaryPath string

func TestMain(m *testing.M) {
	// Build the binary before all E2E tests.
	tmp, err := os.MkdirTemp("", "presale-e2e-test")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(tmp)

	binaryPath = filepath.Join(tmp, "presale")
	// Build from the module root (two levels up from test/e2e/).
	moduleRoot, err := filepath.Abs(filepath.Join("..", ".."))
	if err != nil {
		panic(err)
	}
	cmd := exec.Command("go", "build", "-o", binaryPath, ".")
	cmd.Dir = moduleRoot
	if out, err := cmd.CombinedOutput(); err != nil {
		panic("build failed: " + string(out))
	}

	os.Exit(m.Run())
}

func runCLI(t *testing.T, configDir string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(),
		"PRESALE_CONFIG_DIR="+configDir,
		// Keep e2e runs off the real network and backend.
		"PRESALE_CONTRACT_ADDRESS=0x1111111111111111111111111111111111111111",
		"PRESALE_API_URL=http://127.0.0.1:1",
	)
	cmd.Dir = configDir
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func TestVersionFlag(t *testing.T) {
	dir := t.TempDir()
	out, err := runCLI(t, dir, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "presale")
	assert.Contains(t, out, "1.0.0")
}

func TestHelpListsCommands(t *testing.T) {
	dir := t.TempDir()
	out, err := runCLI(t, dir, "--help")
	require.NoError(t, err)
	lower := strings.ToLower(out)
	for _, cmd := range []string{"status", "quote", "balance", "buy", "widget", "wallet", "rpc", "progress"} {
		assert.Contains(t, lower, cmd)
	}
	assert.Contains(t, out, "--rpc")
}

func TestWalletLifecycle(t *testing.T) {
	dir := t.TempDir()

	out, err := runCLI(t, dir, "wallet", "add", "watcher", "0x742d35Cc6634C0532925a3b844Bc454e4438f44e")
	require.NoError(t, err, out)
	assert.Contains(t, out, "watcher")

	out, err = runCLI(t, dir, "wallet", "list")
	require.NoError(t, err, out)
	assert.Contains(t, out, "watcher")
	assert.Contains(t, out, "watch-only")

	out, err = runCLI(t, dir, "wallet", "use", "watcher")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Default wallet")
}

func TestWalletImportRequiresKey(t *testing.T) {
	dir := t.TempDir()
	out, _ := runCLI(t, dir, "wallet", "import", "trading")
	assert.Contains(t, out, "--key is required")
}

func TestBuyRejectsBadAmount(t *testing.T) {
	dir := t.TempDir()
	out, err := runCLI(t, dir, "buy", "abc", "--yes")
	require.Error(t, err)
	assert.Contains(t, out, "invalid amount")
}

func TestQuoteRejectsBadAsset(t *testing.T) {
	dir := t.TempDir()
	out, err := runCLI(t, dir, "quote", "1", "--asset", "DOGE")
	require.Error(t, err)
	assert.Contains(t, out, "unknown asset")
}
