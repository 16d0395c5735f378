// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"
	"io/fs"

	"github.com/dmitrijs2005/medscribe/internal/dbx"
	"github.com/dmitrijs2005/medscribe/internal/server/migrations"
	"github.com/dmitrijs2005/medscribe/internal/server/repositories/conversations"
	"github.com/dmitrijs2005/medscribe/internal/server/repositories/doctors"
	"github.com/dmitrijs2005/medscribe/internal/server/repositories/patients"
	"github.com/dmitrijs2005/medscribe/internal/server/repositories/qa"
	"github.com/dmitrijs2005/medscribe/internal/server/repositories/refreshtokens"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

func (m *PostgresRepositoryManager) Doctors(db dbx.DBTX) doctors.Repository {
	return doctors.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return refreshtokens.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Patients(db dbx.DBTX) patients.Repository {
	return patients.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Conversations(db dbx.DBTX) conversations.Repository {
	return conversations.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) QA(db dbx.DBTX) qa.Repository {
	return qa.NewPostgresRepository(db)
}

// migrate is a seam for tests.
var migrate = func(ctx context.Context, db *sql.DB, dialect goose.Dialect, fsys fs.FS) error {
	return dbx.Migrate(ctx, db, dialect, fsys)
}

// RunMigrations applies the embedded schema migrations.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrate(ctx, db, goose.DialectPostgres, migrations.FS)
}

func NewPostgresRepositoryManager() RepositoryManager {
	return &PostgresRepositoryManager{}
}
