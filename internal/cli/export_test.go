package cli

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concordhq/concord/internal/survey"
)

func readArtifact(t *testing.T, path string) [][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	bom := []byte{0xEF, 0xBB, 0xBF}
	require.True(t, bytes.HasPrefix(data, bom))
	rows, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, bom))).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestExportCommand_FromServer(t *testing.T) {
	st, serverURL := startTestServer(t)
	_, err := st.InsertJudgment(context.Background(), survey.Judgment{
		RaterName: "alice", TextA: "a", TextB: "b", ItemID: "i1", Score: 4,
		Timestamp: "2026-08-30T12:00:00Z",
	})
	require.NoError(t, err)

	outPath := filepath.Join(t.TempDir(), "judgments.csv")
	out, err := executeCommand(t, "", "export",
		"--server", serverURL, "--out", outPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+outPath)

	rows := readArtifact(t, outPath)
	require.Len(t, rows, 2)
	assert.Equal(t, "i1", rows[1][0])
	assert.Equal(t, "alice", rows[1][1])
}

func TestExportCommand_FallsBackToLocalQueue(t *testing.T) {
	dir := t.TempDir()
	queuePath := filepath.Join(dir, "pending.json")
	seedQueue(t, queuePath, survey.Judgment{
		RaterName: "alice", TextA: "a", TextB: "b", ItemID: "i1", Score: 2,
		Timestamp: "2026-08-30T12:00:00Z",
	})

	outPath := filepath.Join(dir, "judgments.csv")
	out, err := executeCommand(t, "", "export",
		"--server", "http://127.0.0.1:1", "--queue", queuePath, "--out", outPath)
	require.NoError(t, err, "unreachable server degrades, not fails")
	assert.Contains(t, out, "Server unreachable")

	rows := readArtifact(t, outPath)
	require.Len(t, rows, 2)
	assert.Equal(t, "i1", rows[1][0])
	assert.Equal(t, "", rows[1][6], "pending judgments carry no server timestamp")
}
