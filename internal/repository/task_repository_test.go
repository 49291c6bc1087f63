package repository_test

import (
	"context"
	"testing"
	"time"

	"taskmanager/internal/analytics"
	"taskmanager/internal/model"
	"taskmanager/internal/ordering"
	"taskmanager/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var taskColumns = []string{
	"id", "owner_id", "title", "description", "completed", "due_date",
	"tags", "priority", "sort_order", "created_at", "updated_at",
}

func TestTaskRepository_MaxOrder_NoTasks(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	repo := repository.NewTaskRepository(gormDB)
	ownerID := uuid.New()

	mock.ExpectQuery(`SELECT MAX\(sort_order\) AS max FROM "tasks" WHERE owner_id = \$1`).
		WithArgs(ownerID).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))

	// Act
	max, found, err := repo.MaxOrder(context.Background(), ownerID)

	// Assert
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 0, max)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_MaxOrder(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewTaskRepository(gormDB)
	ownerID := uuid.New()

	mock.ExpectQuery(`SELECT MAX\(sort_order\) AS max FROM "tasks" WHERE owner_id = \$1`).
		WithArgs(ownerID).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(int64(4)))

	max, found, err := repo.MaxOrder(context.Background(), ownerID)

	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 4, max)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_SetOrders_OwnerScoped(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	repo := repository.NewTaskRepository(gormDB)
	ownerID := uuid.New()
	own, foreign := uuid.New(), uuid.New()

	// Both updates carry the owner filter; the foreign id matches no row
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "tasks" SET "sort_order"=\$1,"updated_at"=\$2 WHERE .*id = \$3 AND owner_id = \$4`).
		WithArgs(5, sqlmock.AnyArg(), own, ownerID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "tasks" SET "sort_order"=\$1,"updated_at"=\$2 WHERE .*id = \$3 AND owner_id = \$4`).
		WithArgs(1, sqlmock.AnyArg(), foreign, ownerID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	// Act
	matched, err := repo.SetOrders(context.Background(), ownerID, []ordering.Placement{
		{TaskID: own, Order: 5},
		{TaskID: foreign, Order: 1},
	})

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, int64(1), matched)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_SetOrders_RollsBackOnError(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewTaskRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "tasks" SET`).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := repo.SetOrders(context.Background(), uuid.New(), []ordering.Placement{{TaskID: uuid.New(), Order: 2}})

	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_GetByID_NotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewTaskRepository(gormDB)

	mock.ExpectQuery(`SELECT \* FROM "tasks" WHERE .*id = .* AND owner_id = .* LIMIT`).
		WillReturnRows(sqlmock.NewRows(taskColumns))

	task, err := repo.GetByID(context.Background(), uuid.New(), uuid.New())

	assert.Nil(t, task)
	assert.ErrorIs(t, err, repository.ErrTaskNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_Delete_NotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewTaskRepository(gormDB)
	ownerID, taskID := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "tasks" WHERE id = \$1 AND owner_id = \$2`).
		WithArgs(taskID, ownerID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.Delete(context.Background(), ownerID, taskID)

	assert.ErrorIs(t, err, repository.ErrTaskNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_Update_NotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewTaskRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "tasks" SET .* WHERE .*id = .* AND owner_id = .*`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.Update(context.Background(), &model.Task{ID: uuid.New(), OwnerID: uuid.New(), Title: "x"})

	assert.ErrorIs(t, err, repository.ErrTaskNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_List_FiltersAndSort(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	repo := repository.NewTaskRepository(gormDB)
	ownerID := uuid.New()
	created := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT \* FROM "tasks" WHERE owner_id = \$1 AND completed = \$2 AND \$3 = ANY\(tags\) ORDER BY sort_order ASC,\s?created_at DESC`).
		WithArgs(ownerID, true, "work").
		WillReturnRows(sqlmock.NewRows(taskColumns).
			AddRow(uuid.New().String(), ownerID.String(), "Write report", "", true, nil,
				"{work,urgent}", "high", 0, created, created))

	// Act
	tasks, err := repo.List(context.Background(), ownerID, model.TaskQuery{
		Status: model.StatusCompleted,
		Tag:    "work",
		SortBy: model.SortByOrder,
	})

	// Assert
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Write report", tasks[0].Title)
	assert.Equal(t, []string{"work", "urgent"}, []string(tasks[0].Tags))
	assert.Equal(t, model.PriorityHigh, tasks[0].Priority)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_List_AllStatusesByDueDate(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewTaskRepository(gormDB)
	ownerID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "tasks" WHERE owner_id = \$1 ORDER BY due_date ASC NULLS FIRST,\s?created_at DESC`).
		WithArgs(ownerID).
		WillReturnRows(sqlmock.NewRows(taskColumns))

	tasks, err := repo.List(context.Background(), ownerID, model.TaskQuery{Status: model.StatusAll, SortBy: model.SortByDueDate})

	assert.NoError(t, err)
	assert.Empty(t, tasks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_CountTasks(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewTaskRepository(gormDB)
	ownerID := uuid.New()
	done := true

	mock.ExpectQuery(`SELECT count\(\*\) FROM "tasks" WHERE owner_id = \$1 AND completed = \$2`).
		WithArgs(ownerID, true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountTasks(context.Background(), ownerID, &done)

	assert.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_CountCreatedPerDay(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewTaskRepository(gormDB)
	ownerID := uuid.New()
	since := time.Date(2026, 10, 13, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT to_char\(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD'\) AS date, COUNT\(\*\) AS count FROM "tasks" WHERE owner_id = \$1 AND created_at >= \$2 GROUP BY .*date.* ORDER BY date`).
		WithArgs(ownerID, since).
		WillReturnRows(sqlmock.NewRows([]string{"date", "count"}).
			AddRow("2026-10-14", int64(2)).
			AddRow("2026-10-19", int64(1)))

	days, err := repo.CountCreatedPerDay(context.Background(), ownerID, since)

	assert.NoError(t, err)
	assert.Equal(t, []analytics.DayCount{
		{Date: "2026-10-14", Count: 2},
		{Date: "2026-10-19", Count: 1},
	}, days)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_ListTagSets(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewTaskRepository(gormDB)
	ownerID := uuid.New()

	mock.ExpectQuery(`SELECT "?tags"? FROM "tasks" WHERE owner_id = \$1 ORDER BY sort_order ASC,\s?created_at DESC`).
		WithArgs(ownerID).
		WillReturnRows(sqlmock.NewRows([]string{"tags"}).
			AddRow("{a,a,b}").
			AddRow("{}"))

	sets, err := repo.ListTagSets(context.Background(), ownerID)

	require.NoError(t, err)
	require.Len(t, sets, 2)
	assert.Equal(t, []string{"a", "a", "b"}, sets[0])
	assert.Empty(t, sets[1])
	assert.NoError(t, mock.ExpectationsWereMet())
}
