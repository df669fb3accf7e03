package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classdesk/classdesk-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func classRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "subject", "grade_level", "academic_year", "schedule", "room", "capacity", "active", "teacher_id", "created_at", "updated_at"})
}

func TestClassRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	rows := classRows().
		AddRow("c1", "Algebra I", "Math", "9", "2025-2026", nil, nil, nil, true, "t1", time.Now(), time.Now())
	mock.ExpectQuery("SELECT id, name, subject, .+ FROM classes WHERE teacher_id = \\$1 AND active = true ORDER BY name ASC LIMIT 20 OFFSET 0").
		WithArgs("t1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM classes WHERE teacher_id = $1 AND active = true")).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	classes, total, err := repo.List(context.Background(), "t1", models.ClassFilter{})
	require.NoError(t, err)
	assert.Len(t, classes, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryFindByIDScopedToOwner(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectQuery("SELECT id, name, subject, .+ FROM classes WHERE id = \\$1 AND teacher_id = \\$2").
		WithArgs("c1", "other-teacher").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "c1", "other-teacher")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryCreateAssignsIDAndTimestamps(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectExec("INSERT INTO classes").
		WillReturnResult(sqlmock.NewResult(1, 1))

	class := &models.Class{Name: "Algebra I", Subject: "Math", GradeLevel: "9", AcademicYear: "2025-2026", Active: true, TeacherID: "t1"}
	require.NoError(t, repo.Create(context.Background(), class))
	assert.NotEmpty(t, class.ID)
	assert.False(t, class.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryUpdateMissingRowReportsNoRows(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectExec("UPDATE classes SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Class{ID: "missing", TeacherID: "t1"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryDeleteCascadesInOneTransaction(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM grades WHERE assignment_id IN").
		WithArgs("c1", "t1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM assignments WHERE class_id").
		WithArgs("c1", "t1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM enrollments WHERE class_id").
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec("DELETE FROM materials WHERE class_id").
		WithArgs("c1", "t1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM lesson_plans WHERE class_id").
		WithArgs("c1", "t1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE calendar_events SET class_id = NULL").
		WithArgs("c1", "t1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM classes WHERE id").
		WithArgs("c1", "t1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "c1", "t1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryDeleteMissingRowRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM grades WHERE assignment_id IN").
		WithArgs("missing", "t1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM assignments WHERE class_id").
		WithArgs("missing", "t1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM enrollments WHERE class_id").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM materials WHERE class_id").
		WithArgs("missing", "t1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM lesson_plans WHERE class_id").
		WithArgs("missing", "t1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE calendar_events SET class_id = NULL").
		WithArgs("missing", "t1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM classes WHERE id").
		WithArgs("missing", "t1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "missing", "t1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
