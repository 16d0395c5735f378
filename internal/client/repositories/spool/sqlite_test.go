package spool

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/medscribe/internal/client/migrations"
	"github.com/dmitrijs2005/medscribe/internal/common"
	"github.com/dmitrijs2005/medscribe/internal/dbx"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, dbx.Migrate(context.Background(), db, goose.DialectSQLite3, migrations.FS))
	return db
}

func TestPutGetDelete(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	in := Blob{RecordID: "optimistic-1", ContentType: "audio/webm", FileName: "recording.webm",
		Nonce: []byte{1, 2}, Ciphertext: []byte{3, 4, 5}}
	require.NoError(t, r.Put(ctx, in))

	got, err := r.Get(ctx, "optimistic-1")
	require.NoError(t, err)
	assert.Equal(t, in.ContentType, got.ContentType)
	assert.Equal(t, in.FileName, got.FileName)
	assert.Equal(t, in.Nonce, got.Nonce)
	assert.Equal(t, in.Ciphertext, got.Ciphertext)

	require.NoError(t, r.Delete(ctx, "optimistic-1"))
	_, err = r.Get(ctx, "optimistic-1")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestPut_Replaces(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, Blob{RecordID: "a", ContentType: "x", FileName: "f", Nonce: []byte{1}, Ciphertext: []byte{1}}))
	require.NoError(t, r.Put(ctx, Blob{RecordID: "a", ContentType: "y", FileName: "f", Nonce: []byte{2}, Ciphertext: []byte{2}}))

	got, err := r.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "y", got.ContentType)

	ids, err := r.IDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids)
}

func TestDelete_MissingIsNoop(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	require.NoError(t, r.Delete(context.Background(), "nope"))
}
