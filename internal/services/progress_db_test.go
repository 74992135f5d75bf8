package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func progressRow(attempts int) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "user_id", "tutorial_id", "current_step", "completed_steps", "time_per_step",
		"attempts", "completed", "score", "started_at", "completed_at", "last_accessed",
	}).AddRow("p1", "u1", "t1", 1, []byte("[]"), []byte("{}"), attempts, false, 0.0, now, nil, now)
}

func TestStartProgressCreatesOnFirstCall(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT EXISTS").WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec("INSERT INTO progress").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT id, user_id, tutorial_id").WithArgs("u1", "t1").
		WillReturnRows(progressRow(1))

	row, created, err := StartProgress(db, "u1", "t1")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "p1", row.ID)
	assert.Equal(t, 1, row.Attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStartProgressIsIdempotent(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT EXISTS").WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	// conflict on (user_id, tutorial_id): zero rows inserted
	mock.ExpectExec("INSERT INTO progress").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT id, user_id, tutorial_id").WithArgs("u1", "t1").
		WillReturnRows(progressRow(1))

	row, created, err := StartProgress(db, "u1", "t1")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "p1", row.ID)
	// a repeated start does not bump attempts
	assert.Equal(t, 1, row.Attempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStartProgressUnknownTutorial(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT EXISTS").WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, _, err := StartProgress(db, "u1", "missing")
	require.Error(t, err)
	serr, ok := err.(ServiceError)
	require.True(t, ok)
	assert.Equal(t, 404, serr.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
