package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyticsRepositoryClassGradesJoinsThroughAssignments(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAnalyticsRepository(db)

	rows := sqlmock.NewRows([]string{"score", "max_score"}).
		AddRow(45.0, 90.0).
		AddRow(80.0, 100.0)
	mock.ExpectQuery(`SELECT g\.score, g\.max_score\s+FROM grades g\s+JOIN assignments a ON a\.id = g\.assignment_id\s+WHERE a\.class_id = \$1 AND g\.teacher_id = \$2`).
		WithArgs("c1", "t1").
		WillReturnRows(rows)

	ratios, err := repo.ClassGrades(context.Background(), "c1", "t1")
	require.NoError(t, err)
	require.Len(t, ratios, 2)
	assert.Equal(t, 45.0, ratios[0].Score)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyticsRepositoryRosterCountsDistinct(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAnalyticsRepository(db)

	rows := sqlmock.NewRows([]string{"class_id", "class_name", "student_count", "assignment_count"}).
		AddRow("c1", "Algebra I", 24, 7).
		AddRow("c2", "Biology", 0, 0)
	mock.ExpectQuery(`SELECT c\.id AS class_id, c\.name AS class_name,\s+COUNT\(DISTINCT e\.student_id\) AS student_count`).
		WithArgs("t1").
		WillReturnRows(rows)

	counts, err := repo.RosterCounts(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, 24, counts[0].StudentCount)
	assert.Equal(t, 0, counts[1].AssignmentCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}
