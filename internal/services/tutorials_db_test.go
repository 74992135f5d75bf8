package services

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })
	return sqlx.NewDb(mockDB, "sqlmock"), mock
}

func TestCreateTutorialCommitsWholeTree(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO tutorials").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO steps").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO annotations").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	text := "click here"
	id, err := CreateTutorial(db, "u1", TutorialInput{
		Title: "Install",
		Steps: []StepInput{{
			Order: 1, Title: "Open settings",
			Annotations: []AnnotationInput{{Type: "highlight", Text: &text}},
		}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTutorialRollsBackOnStepFailure(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO tutorials").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO steps").WillReturnError(errors.New("constraint blew up"))
	mock.ExpectRollback()

	_, err := CreateTutorial(db, "u1", TutorialInput{
		Title: "Install",
		Steps: []StepInput{{Order: 1, Title: "Open settings"}},
	})
	require.Error(t, err)
	// no commit: the tutorial row must not survive the failed step
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTutorialRollsBackOnAnnotationFailure(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO tutorials").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO steps").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO annotations").WillReturnError(errors.New("bad blob"))
	mock.ExpectRollback()

	_, err := CreateTutorial(db, "u1", TutorialInput{
		Title: "Install",
		Steps: []StepInput{{
			Order: 1, Title: "Open settings",
			Annotations: []AnnotationInput{{Type: "highlight"}},
		}},
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceTutorialEmptyStepsDeletesAll(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE tutorials SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM steps").WithArgs("t1").WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectCommit()

	empty := []StepInput{}
	err := ReplaceTutorial(db, "t1", TutorialUpdate{Steps: &empty})
	require.NoError(t, err)
	// an empty list is "delete everything", not "leave alone" — and no
	// inserts follow the delete
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceTutorialNilStepsLeavesStepsAlone(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE tutorials SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	title := "Renamed"
	err := ReplaceTutorial(db, "t1", TutorialUpdate{Title: &title})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceTutorialRollsBackOnReinsertFailure(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE tutorials SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM steps").WithArgs("t1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO steps").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	steps := []StepInput{{Order: 1, Title: "New step"}}
	err := ReplaceTutorial(db, "t1", TutorialUpdate{Steps: &steps})
	require.Error(t, err)
	// rollback restores the old steps: the delete must not stick alone
	assert.NoError(t, mock.ExpectationsWereMet())
}
