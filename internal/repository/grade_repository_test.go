package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classdesk/classdesk-api/internal/models"
)

func TestGradeRepositoryListFiltersByClass(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	rows := sqlmock.NewRows([]string{
		"id", "assignment_id", "student_id", "score", "max_score", "feedback", "teacher_id", "created_at", "updated_at",
		"assignment_title", "student_first_name", "student_last_name",
	}).AddRow("g1", "a1", "s1", 45.0, 90.0, nil, "t1", time.Now(), time.Now(), "Quiz 1", "Ada", "Lovelace")
	mock.ExpectQuery(`SELECT g\.id, .+ FROM grades g\s+JOIN assignments a ON a\.id = g\.assignment_id\s+JOIN students s ON s\.id = g\.student_id\s+WHERE g\.teacher_id = \$1 AND a\.class_id = \$2 ORDER BY g\.created_at DESC`).
		WithArgs("t1", "c1").
		WillReturnRows(rows)

	grades, err := repo.List(context.Background(), "t1", models.GradeFilter{ClassID: "c1"})
	require.NoError(t, err)
	require.Len(t, grades, 1)
	assert.Equal(t, "Quiz 1", grades[0].AssignmentTitle)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryExists(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM grades WHERE assignment_id = $1 AND student_id = $2 LIMIT 1")).
		WithArgs("a1", "s1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.Exists(context.Background(), "a1", "s1")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryExistsMissingPair(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM grades WHERE assignment_id = $1 AND student_id = $2 LIMIT 1")).
		WithArgs("a1", "s2").
		WillReturnError(sql.ErrNoRows)

	exists, err := repo.Exists(context.Background(), "a1", "s2")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryUpdateScopedToOwner(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectExec(`UPDATE grades SET score = .+ WHERE id = .+ AND teacher_id = .+`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Grade{ID: "g1", TeacherID: "other-teacher", Score: 10, MaxScore: 20})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectExec("INSERT INTO grades").
		WillReturnResult(sqlmock.NewResult(1, 1))

	grade := &models.Grade{AssignmentID: "a1", StudentID: "s1", Score: 45, MaxScore: 90, TeacherID: "t1"}
	require.NoError(t, repo.Create(context.Background(), grade))
	assert.NotEmpty(t, grade.ID)
	assert.False(t, grade.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}
