package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/medscribe/internal/dbx"
	"github.com/dmitrijs2005/medscribe/internal/server/repositories/conversations"
	"github.com/dmitrijs2005/medscribe/internal/server/repositories/doctors"
	"github.com/dmitrijs2005/medscribe/internal/server/repositories/patients"
	"github.com/dmitrijs2005/medscribe/internal/server/repositories/qa"
	"github.com/dmitrijs2005/medscribe/internal/server/repositories/refreshtokens"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Doctors(db dbx.DBTX) doctors.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Patients(db dbx.DBTX) patients.Repository
	Conversations(db dbx.DBTX) conversations.Repository
	QA(db dbx.DBTX) qa.Repository
}
