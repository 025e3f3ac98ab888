package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concordhq/concord/internal/store"
)

func TestImportCommand(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	csvPath := filepath.Join(dir, "pool.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(
		"p001,Acme,a,b\np002,Globex,a,b\ntoo,short\n"), 0o644))

	out, err := executeCommand(t, "", "import", "--db", dbPath, csvPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 items (1 skipped).")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()
	count, err := st.CountItems(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestImportCommand_Reset(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	csvPath := filepath.Join(dir, "pool.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("p001,Acme,a,b\n"), 0o644))

	_, err := executeCommand(t, "", "import", "--db", dbPath, csvPath)
	require.NoError(t, err)

	// Re-import the same file: without --reset the duplicate id is skipped,
	// with --reset the pool is replaced.
	out, err := executeCommand(t, "", "import", "--db", dbPath, csvPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 0 items (1 skipped).")

	out, err = executeCommand(t, "", "import", "--db", dbPath, "--reset", csvPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 1 items (0 skipped).")
}

func TestImportCommand_MissingPath(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	_, err := executeCommand(t, "", "import", "--db", dbPath, "/nonexistent/pool.csv")

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
