package commands

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpCmd(t *testing.T) {
	cmd := UpCmd()
	assert.Equal(t, "up", cmd.Use)
	assert.Equal(t, "Apply all pending migrations", cmd.Short)
	assert.NotNil(t, cmd.Flags().Lookup("dry-run"))
}

func TestDownCmd(t *testing.T) {
	cmd := DownCmd()
	assert.Equal(t, "down", cmd.Use)
	assert.Equal(t, "Revert the last migration", cmd.Short)
}

func TestStatusCmd(t *testing.T) {
	cmd := StatusCmd()
	assert.Equal(t, "status", cmd.Use)
	assert.Equal(t, "Show status of all migrations", cmd.Short)
}

func TestHistoryCmd(t *testing.T) {
	cmd := HistoryCmd()
	assert.Equal(t, "history", cmd.Use)
	assert.Equal(t, "Show migration history", cmd.Short)
}

func TestAssignCmd(t *testing.T) {
	cmd := AssignCmd()
	assert.Equal(t, "assign [lot-id]", cmd.Use)
	for _, name := range []string{"client", "type", "terms", "terms-file", "actor", "json"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
}

func TestServeCmd(t *testing.T) {
	cmd := ServeCmd()
	assert.Equal(t, "serve", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup("addr"))
}

func TestRootCmd(t *testing.T) {
	root := RootCmd()
	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"migrate", "lot", "client", "assign", "complete-sale", "amend", "contract", "expire", "serve"} {
		assert.Contains(t, names, want)
	}
}

// run executes lotctl with args against the database configured in the
// environment and returns its output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := RootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// createdID pulls the identifier out of "Created <kind> <id> (...)".
func createdID(t *testing.T, out string) string {
	t.Helper()
	fields := strings.Fields(out)
	require.GreaterOrEqual(t, len(fields), 3, out)
	return fields[2]
}

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "lotctl.db"))
	t.Setenv("DB_LOG_LEVEL", "silent")
	t.Setenv("ACTOR_ROLES", "alice:owner")
	t.Setenv("LOTCTL_ACTOR", "")
}

func TestMigrateCommands(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "migrate", "up", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Pending migrations:")

	out, err = run(t, "migrate", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No migrations have been applied yet.")

	out, err = run(t, "migrate", "up")
	require.NoError(t, err)
	assert.Contains(t, out, "Successfully applied migration: create_lots_and_clients")

	out, err = run(t, "migrate", "status")
	require.NoError(t, err)
	assert.NotContains(t, out, "Pending")

	out, err = run(t, "migrate", "verify")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema matches the models.")

	out, err = run(t, "migrate", "down")
	require.NoError(t, err)
	assert.Contains(t, out, "Successfully reverted migration")

	out, err = run(t, "migrate", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Pending")
}

func TestAssignFlow(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "migrate", "up")
	require.NoError(t, err)

	out, err := run(t, "lot", "create", "--building", "b-1", "--rent", "150000")
	require.NoError(t, err)
	lotID := createdID(t, out)

	out, err = run(t, "client", "create", "--name", "Awa", "--type", "tenant")
	require.NoError(t, err)
	clientID := createdID(t, out)

	start := time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02")
	terms := fmt.Sprintf(`{"startDate":%q,"monthlyRent":"150000","durationMonths":6}`, start)

	_, err = run(t, "assign", lotID, "--client", clientID, "--type", "lease", "--terms", terms, "--actor", "bob")
	require.Error(t, err, "bob holds no role")

	out, err = run(t, "assign", lotID, "--client", clientID, "--type", "lease", "--terms", terms, "--actor", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "status=active")
	assert.Contains(t, out, "Total:")

	out, err = run(t, "lot", "show", lotID)
	require.NoError(t, err)
	assert.Contains(t, out, "status=loue")
	assert.Contains(t, out, "lease")

	_, err = run(t, "assign", lotID, "--client", clientID, "--type", "lease", "--terms", terms, "--actor", "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lot not available")

	out, err = run(t, "expire")
	require.NoError(t, err)
	assert.Contains(t, out, "Expired 0 reservations")
}

func TestAssign_ValidationOutput(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "migrate", "up")
	require.NoError(t, err)

	out, err := run(t, "lot", "create", "--building", "b-1")
	require.NoError(t, err)
	lotID := createdID(t, out)
	out, err = run(t, "client", "create", "--name", "Kofi", "--type", "buyer")
	require.NoError(t, err)
	clientID := createdID(t, out)

	_, err = run(t, "assign", lotID, "--client", clientID, "--type", "sale",
		"--terms", `{"startDate":"2000-01-01","paymentMode":"cash"}`, "--actor", "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "salePrice")
	assert.Contains(t, err.Error(), "startDate")
}

func TestReadTerms_NeedsOneSource(t *testing.T) {
	cmd := AssignCmd()
	_, err := readTerms(cmd)
	assert.Error(t, err)

	require.NoError(t, cmd.Flags().Set("terms", `{"startDate":"2026-01-01"}`))
	require.NoError(t, cmd.Flags().Set("terms-file", "x.json"))
	_, err = readTerms(cmd)
	assert.Error(t, err)
}
