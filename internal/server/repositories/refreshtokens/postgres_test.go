package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/medscribe/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewPostgresRepository(db), mock
}

const (
	insertQ = `(?s)^INSERT\s+INTO\s+refresh_tokens\b.*VALUES\s*\(\$1,\s*\$2,\s*\$3\)\s*$`
	findQ   = `(?s)^SELECT\s+id,\s*doctor_id,\s*expires_at\s+FROM\s+refresh_tokens\s+WHERE\s+token\s*=\s*\$1\s*$`
	deleteQ = `(?s)^DELETE\s+FROM\s+refresh_tokens\s+WHERE\s+token\s*=\s*\$1\s*$`
)

func TestCreate(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	exp := time.Now().Add(time.Hour)

	mock.ExpectExec(insertQ).WithArgs("d1", "tok123", exp).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Create(context.Background(), "d1", "tok123", exp))

	mock.ExpectExec(insertQ).WithArgs("d1", "tok123", exp).WillReturnError(errors.New("db down"))
	err := repo.Create(context.Background(), "d1", "tok123", exp)
	require.Error(t, err)
	assert.Regexp(t, regexp.MustCompile(`error performing sql request: .*db down`), err.Error())
}

func TestFind(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	expires := time.Now().Add(10 * time.Minute)

	mock.ExpectQuery(findQ).WithArgs("tok123").
		WillReturnRows(sqlmock.NewRows([]string{"id", "doctor_id", "expires_at"}).AddRow("rt-1", "d1", expires))
	got, err := repo.Find(context.Background(), "tok123")
	require.NoError(t, err)
	assert.Equal(t, "d1", got.DoctorID)
	assert.Equal(t, "tok123", got.Token)
	assert.True(t, got.Expires.Equal(expires))

	mock.ExpectQuery(findQ).WithArgs("missing").WillReturnError(sql.ErrNoRows)
	_, err = repo.Find(context.Background(), "missing")
	require.ErrorIs(t, err, common.ErrNotFound)

	mock.ExpectQuery(findQ).WithArgs("tok123").WillReturnError(errors.New("db err"))
	_, err = repo.Find(context.Background(), "tok123")
	require.Error(t, err)
	assert.Regexp(t, regexp.MustCompile(`db error: .*db err`), err.Error())
}

func TestDelete(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(deleteQ).WithArgs("tok123").WillReturnResult(sqlmock.NewResult(0, 1))
	ok, err := repo.Delete(context.Background(), "tok123")
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectExec(deleteQ).WithArgs("gone").WillReturnResult(sqlmock.NewResult(0, 0))
	ok, err = repo.Delete(context.Background(), "gone")
	require.NoError(t, err)
	assert.False(t, ok, "already rotated")

	mock.ExpectExec(deleteQ).WithArgs("tok123").WillReturnError(errors.New("db err"))
	_, err = repo.Delete(context.Background(), "tok123")
	require.Error(t, err)
}
