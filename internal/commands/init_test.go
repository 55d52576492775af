package commands_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feeledger-dev/feeledger/internal/config"
	"github.com/feeledger-dev/feeledger/internal/ledger"
)

var binaryPath string

func TestMain(m *testing.M) {
	// Build the binary once for all tests.
	tmpDir, err := os.MkdirTemp("", "feeledger-test-*")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(tmpDir)

	binaryPath = filepath.Join(tmpDir, "feeledger")
	cmd := exec.Command("go", "build", "-o", binaryPath, "../../cmd/feeledger")
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		panic("failed to build binary: " + err.Error())
	}

	os.Exit(m.Run())
}

func runFeeledger(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(), "USER=tester")
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func TestInit_CreatesStructure(t *testing.T) {
	dir := t.TempDir()
	_, err := runFeeledger(t, "init", dir, "--name", "Green Valley School", "--git=false")
	require.NoError(t, err)

	expectedDirs := []string{
		"roster",
		"fees",
		"migration",
		"logs",
		"import",
		filepath.Join("import", "processed"),
	}
	for _, d := range expectedDirs {
		info, err := os.Stat(filepath.Join(dir, d))
		require.NoError(t, err, "directory %s should exist", d)
		assert.True(t, info.IsDir(), "%s should be a directory", d)
	}

	data, err := os.ReadFile(filepath.Join(dir, "roster", "students.csv"))
	require.NoError(t, err)
	assert.Equal(t, "student_id,class,section,roll,status,name\n", string(data))

	fees, err := ledger.LoadStructure(dir)
	require.NoError(t, err)
	assert.Empty(t, fees.Rows())
}

func TestInit_Config(t *testing.T) {
	dir := t.TempDir()
	_, err := runFeeledger(t, "init", dir, "--name", "Green Valley School", "--store", "sqlite", "--git=false")
	require.NoError(t, err)

	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	require.NoError(t, err)
	assert.Equal(t, "Green Valley School", cfg.Institution.Name)
	assert.Equal(t, "sqlite", cfg.Migration.Store)
	assert.Equal(t, 4, cfg.Print.PerPage)
	assert.False(t, cfg.Git.AutoCommit)
}

func TestInit_GitRepo(t *testing.T) {
	dir := t.TempDir()
	_, err := runFeeledger(t, "init", dir, "--name", "Green Valley School")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, ".git"))
	require.NoError(t, err, ".git should exist")

	log := exec.Command("git", "log", "--format=%s", "-1")
	log.Dir = dir
	out, err := log.Output()
	require.NoError(t, err)
	assert.Contains(t, string(out), "init:")

	authorLog := exec.Command("git", "log", "--format=%an <%ae>", "-1")
	authorLog.Dir = dir
	out, err = authorLog.Output()
	require.NoError(t, err)
	assert.Contains(t, string(out), "Fee Ledger <ledger@feeledger.dev>")

	data, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "migration/.report-*")
}

func TestInit_RequiresName(t *testing.T) {
	dir := t.TempDir()
	_, err := runFeeledger(t, "init", dir)
	require.Error(t, err, "init without --name should fail")
}

func TestInit_RefusesExistingLedger(t *testing.T) {
	dir := t.TempDir()
	_, err := runFeeledger(t, "init", dir, "--name", "A", "--git=false")
	require.NoError(t, err)

	out, err := runFeeledger(t, "init", dir, "--name", "B", "--git=false")
	require.Error(t, err)
	assert.Contains(t, out, "already exists")
}

func TestInit_BadStore(t *testing.T) {
	out, err := runFeeledger(t, "init", t.TempDir(), "--name", "A", "--store", "postgres", "--git=false")
	require.Error(t, err)
	assert.True(t, strings.Contains(out, "migration.store (oneof)"), out)
}
