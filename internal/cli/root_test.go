package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concordhq/concord/internal/httpapi"
	"github.com/concordhq/concord/internal/store"
	"github.com/concordhq/concord/internal/survey"
)

// executeCommand runs the root command with args and scripted stdin.
func executeCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// startTestServer brings up a live API server over a temp store.
func startTestServer(t *testing.T) (*store.Store, string) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	srv := httptest.NewServer(httpapi.NewServer(st, survey.DefaultSessionLimit).Handler())
	t.Cleanup(srv.Close)
	return st, srv.URL
}

func seedServerItem(t *testing.T, st *store.Store, id, group string) {
	t.Helper()
	require.NoError(t, st.InsertItem(context.Background(), survey.Item{
		ID: id, GroupKey: group, TextA: "strategy " + id, TextB: "sustainability " + id,
	}))
}

func TestRootCommand_RegistersSubcommands(t *testing.T) {
	cmd := NewRootCommand()

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}

	for _, want := range []string{"serve", "import", "annotate", "retry", "export", "stats"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCommand_RejectsInvalidFormat(t *testing.T) {
	_, err := executeCommand(t, "", "--format", "xml", "stats")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestRootCommand_AcceptsValidFormats(t *testing.T) {
	for _, format := range ValidFormats {
		assert.True(t, isValidFormat(format), format)
	}
	assert.False(t, isValidFormat("yaml"))
}
