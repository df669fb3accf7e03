package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classdesk/classdesk-api/internal/models"
)

func calendarRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "title", "type", "start_at", "end_at", "description", "location",
		"class_id", "assignment_id", "lesson_plan_id", "teacher_id", "created_at", "updated_at",
		"class_name", "assignment_title", "lesson_plan_title",
	})
}

func TestCalendarRepositoryListUsesIntervalOverlap(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCalendarRepository(db)

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC)

	className := "Algebra I"
	rows := calendarRows().
		AddRow("e1", "Midterm", "exam", start.Add(24*time.Hour), start.Add(26*time.Hour), nil, nil,
			"c1", nil, nil, "t1", time.Now(), time.Now(), &className, nil, nil)

	// An event intersects the range when it starts before the range ends
	// and ends after the range starts.
	mock.ExpectQuery(`SELECT ev\.id, .+ WHERE ev\.teacher_id = \$1 AND ev\.start_at <= \$2 AND ev\.end_at >= \$3 ORDER BY ev\.start_at ASC`).
		WithArgs("t1", end, start).
		WillReturnRows(rows)

	events, err := repo.List(context.Background(), "t1", models.CalendarFilter{StartDate: &start, EndDate: &end})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Midterm", events[0].Title)
	require.NotNil(t, events[0].ClassName)
	assert.Equal(t, "Algebra I", *events[0].ClassName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCalendarRepositoryListByClassScopedToOwner(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCalendarRepository(db)

	mock.ExpectQuery(`SELECT ev\.id, .+ WHERE ev\.class_id = \$1 AND ev\.teacher_id = \$2 ORDER BY ev\.start_at ASC`).
		WithArgs("c1", "other-teacher").
		WillReturnRows(calendarRows())

	events, err := repo.ListByClass(context.Background(), "c1", "other-teacher")
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCalendarRepositoryDeleteMissingRowReportsNoRows(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCalendarRepository(db)

	mock.ExpectExec("DELETE FROM calendar_events WHERE id").
		WithArgs("missing", "t1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "missing", "t1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
