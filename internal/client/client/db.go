package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/medscribe/internal/client/migrations"
	"github.com/dmitrijs2005/medscribe/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/medscribe/internal/client/repositories/snapshots"
	"github.com/dmitrijs2005/medscribe/internal/client/repositories/spool"
	"github.com/dmitrijs2005/medscribe/internal/dbx"
	"github.com/dmitrijs2005/medscribe/internal/filex"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

type Repositories struct {
	Metadata  metadata.Repository
	Snapshots snapshots.Repository
	Spool     spool.Repository
}

func NewRepositories(db dbx.DBTX) *Repositories {
	return &Repositories{
		Metadata:  metadata.NewSQLiteRepository(db),
		Snapshots: snapshots.NewSQLiteRepository(db),
		Spool:     spool.NewSQLiteRepository(db),
	}
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	return dbx.Migrate(ctx, db, goose.DialectSQLite3, migrations.FS)
}

// InitDatabase opens (creating if needed) the SQLite file at path and applies
// the embedded migrations. Writes are serialised on one connection.
func InitDatabase(ctx context.Context, path string) (*sql.DB, error) {
	abs, err := filex.EnsureParentDir(path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", "file:"+abs+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate %s: %w", abs, err)
	}
	return db, nil
}
