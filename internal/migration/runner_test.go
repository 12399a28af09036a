package migration

import (
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ayash-Bera/mathgate/backend/internal/database"
	"github.com/Ayash-Bera/mathgate/backend/migrations"
	"github.com/Ayash-Bera/mathgate/backend/pkg/utils"
)

func TestSplitStatements(t *testing.T) {
	sql := `-- header
CREATE INDEX a ON t (x);

-- second
CREATE INDEX b ON t (y);
`
	assert.Equal(t, []string{"CREATE INDEX a ON t (x)", "CREATE INDEX b ON t (y)"}, SplitStatements(sql))
	assert.Empty(t, SplitStatements("-- only a comment\n"))
}

func TestSplitStatements_DollarQuoted(t *testing.T) {
	sql := "-- fn\nCREATE FUNCTION f() RETURNS int AS $$ BEGIN RETURN 1; END; $$ LANGUAGE plpgsql;"
	got := SplitStatements(sql)
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "RETURN 1; END;")
	assert.NotContains(t, got[0], "-- fn")
}

func TestPendingFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"002_b.sql":   {Data: []byte("SELECT 2;")},
		"001_a.sql":   {Data: []byte("SELECT 1;")},
		"README.md":   {Data: []byte("docs")},
		"sub/003.sql": {Data: []byte("SELECT 3;")},
	}
	files, err := PendingFiles(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_a.sql", "002_b.sql"}, files)
}

func TestEmbeddedMigrations(t *testing.T) {
	files, err := PendingFiles(migrations.Files)
	require.NoError(t, err)
	require.NotEmpty(t, files)
	assert.Equal(t, "001_feedback_indexes.sql", files[0])
	assert.Contains(t, files, "004_feedback_record_id_nonunique.sql")

	content, err := fs.ReadFile(migrations.Files, "004_feedback_record_id_nonunique.sql")
	require.NoError(t, err)
	stmts := SplitStatements(string(content))
	require.Len(t, stmts, 2)
	assert.True(t, strings.HasPrefix(stmts[0], "DROP INDEX IF EXISTS idx_feedback_record_id"))
	assert.NotContains(t, strings.ToUpper(stmts[1]), "UNIQUE")
}

func TestRunMigrations_RequiresDatabase(t *testing.T) {
	mgr, err := database.NewManager(&database.Config{}, utils.NopLogger())
	require.NoError(t, err)

	err = NewRunner(mgr, utils.NopLogger()).RunMigrations(migrations.Files)
	assert.ErrorIs(t, err, database.ErrNotConfigured)
}
