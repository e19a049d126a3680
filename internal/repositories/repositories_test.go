package repositories

import (
	"context"
	"fmt"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"chat-server/internal/db"
)

// testDB opens a throwaway in-memory database. The shared-cache DSN plus a
// single pool connection keeps every query on the same memory instance.
func testDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	database, err := db.Open("sqlite3", dsn)
	require.NoError(t, err)
	database.SetMaxOpenConns(1)
	t.Cleanup(func() { database.Close() })

	require.NoError(t, db.Migrate(database))
	return database
}

func seedUser(t *testing.T, database *sqlx.DB, username string) int {
	t.Helper()
	user, err := NewUserRepo(database).CreateUser(context.Background(), username, nil, "hash")
	require.NoError(t, err)
	return user.ID
}
