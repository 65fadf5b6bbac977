package Controllers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"Clinia/Models"
)

func setupAdherenceDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&Models.User{},
		&Models.Protocol{},
		&Models.ProtocolDay{},
		&Models.ProtocolTask{},
		&Models.ProtocolAssignment{},
		&Models.ProtocolTaskProgress{},
	))
	return db
}

func seedAssignment(t *testing.T, db *gorm.DB, startDaysAgo int, tasksPerDay int, days int) *Models.ProtocolAssignment {
	t.Helper()

	protocol := Models.Protocol{ClinicID: 1, DoctorID: 1, Name: "Recovery Plan", Duration: days}
	require.NoError(t, db.Create(&protocol).Error)

	for d := 1; d <= days; d++ {
		day := Models.ProtocolDay{ProtocolID: protocol.ID, DayNumber: d}
		require.NoError(t, db.Create(&day).Error)
		for i := 0; i < tasksPerDay; i++ {
			task := Models.ProtocolTask{ProtocolDayID: day.ID, Title: "task"}
			require.NoError(t, db.Create(&task).Error)
		}
	}

	start := time.Now().UTC().AddDate(0, 0, -startDaysAgo)
	assignment := Models.ProtocolAssignment{
		ProtocolID: protocol.ID,
		UserID:     7,
		StartDate:  start,
		Status:     Models.AssignmentActive,
		Protocol:   protocol,
	}
	require.NoError(t, db.Create(&assignment).Error)
	return &assignment
}

func completeTask(t *testing.T, db *gorm.DB, taskID, userID uint, date time.Time) {
	t.Helper()
	day := time.Date(date.UTC().Year(), date.UTC().Month(), date.UTC().Day(), 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&Models.ProtocolTaskProgress{
		ProtocolTaskID: taskID,
		UserID:         userID,
		Date:           day,
		IsCompleted:    true,
	}).Error)
}

func TestBuildAdherenceSummaryCountsElapsedDaysOnly(t *testing.T) {
	db := setupAdherenceDB(t)
	// Started 2 days ago, so days 1-3 of a 5-day protocol have elapsed.
	assignment := seedAssignment(t, db, 2, 2, 5)

	summary, err := BuildAdherenceSummary(db, assignment)
	require.NoError(t, err)

	assert.Len(t, summary.Days, 3)
	assert.Equal(t, 6, summary.TotalTasks)
	assert.Equal(t, 0, summary.CompletedTasks)
}

func TestBuildAdherenceSummaryCountsCompletions(t *testing.T) {
	db := setupAdherenceDB(t)
	assignment := seedAssignment(t, db, 1, 2, 3)

	var tasks []Models.ProtocolTask
	require.NoError(t, db.Order("id").Find(&tasks).Error)

	// Complete both tasks of day 1 and one task of day 2.
	start := assignment.StartDate
	completeTask(t, db, tasks[0].ID, assignment.UserID, start)
	completeTask(t, db, tasks[1].ID, assignment.UserID, start)
	completeTask(t, db, tasks[2].ID, assignment.UserID, start.AddDate(0, 0, 1))

	summary, err := BuildAdherenceSummary(db, assignment)
	require.NoError(t, err)

	require.Len(t, summary.Days, 2)
	assert.Equal(t, 2, summary.Days[0].CompletedTasks)
	assert.Equal(t, 1, summary.Days[1].CompletedTasks)
	assert.Equal(t, 3, summary.CompletedTasks)
	assert.Equal(t, 4, summary.TotalTasks)
}

func TestBuildAdherenceSummaryCapsAtProtocolDuration(t *testing.T) {
	db := setupAdherenceDB(t)
	// Started 10 days ago but the protocol only lasts 3 days.
	assignment := seedAssignment(t, db, 10, 1, 3)

	summary, err := BuildAdherenceSummary(db, assignment)
	require.NoError(t, err)
	assert.Len(t, summary.Days, 3)
}

func TestIncompleteTasksForToday(t *testing.T) {
	db := setupAdherenceDB(t)
	assignment := seedAssignment(t, db, 0, 3, 2)

	var tasks []Models.ProtocolTask
	require.NoError(t, db.Order("id").Find(&tasks).Error)

	completeTask(t, db, tasks[0].ID, assignment.UserID, assignment.StartDate)

	remaining, err := IncompleteTasksForToday(db, assignment, time.Now())
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
}

func TestIncompleteTasksForTodayAfterProtocolEnds(t *testing.T) {
	db := setupAdherenceDB(t)
	assignment := seedAssignment(t, db, 30, 2, 3)

	// Day 31 has no protocol day row.
	remaining, err := IncompleteTasksForToday(db, assignment, time.Now())
	require.NoError(t, err)
	assert.Nil(t, remaining)
}
