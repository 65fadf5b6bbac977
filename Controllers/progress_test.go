package Controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"Clinia/Models"
)

func setupProgressApp(t *testing.T) (*fiber.App, *gorm.DB, Models.User, Models.ProtocolTask) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&Models.User{},
		&Models.Clinic{},
		&Models.Protocol{},
		&Models.ProtocolDay{},
		&Models.ProtocolTask{},
		&Models.ProtocolTaskProgress{},
	))

	patient := Models.User{Name: "Pat", Email: "pat@example.com", Permission: Models.PermissionPatient}
	require.NoError(t, db.Create(&patient).Error)

	protocol := Models.Protocol{ClinicID: 1, DoctorID: 2, Name: "Morning Routine", Duration: 7}
	require.NoError(t, db.Create(&protocol).Error)

	day := Models.ProtocolDay{ProtocolID: protocol.ID, DayNumber: 1}
	require.NoError(t, db.Create(&day).Error)

	task := Models.ProtocolTask{ProtocolDayID: day.ID, Title: "Drink water"}
	require.NoError(t, db.Create(&task).Error)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user", patient)
		return c.Next()
	})

	ctl := NewProgressController(db)
	app.Get("/api/protocols/progress", ctl.GetProgress)
	app.Post("/api/protocols/progress", ctl.ToggleProgress)

	return app, db, patient, task
}

func toggleRequest(taskID uint, date string) *http.Request {
	body, _ := json.Marshal(fiber.Map{
		"protocolTaskId": fmt.Sprintf("%d", taskID),
		"date":           date,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/protocols/progress", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

type toggleResponseBody struct {
	Success  bool `json:"success"`
	Progress struct {
		ID           uint   `json:"id"`
		Date         string `json:"date"`
		IsCompleted  bool   `json:"isCompleted"`
		UserID       uint   `json:"userId"`
		ProtocolTask struct {
			ID uint `json:"id"`
		} `json:"protocolTask"`
	} `json:"progress"`
}

func TestToggleProgressCreatesCompletedRow(t *testing.T) {
	app, db, patient, task := setupProgressApp(t)

	resp, err := app.Test(toggleRequest(task.ID, "2024-06-10"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body toggleResponseBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	assert.True(t, body.Success)
	assert.True(t, body.Progress.IsCompleted)
	assert.Equal(t, task.ID, body.Progress.ProtocolTask.ID)
	assert.Equal(t, patient.ID, body.Progress.UserID)
	// Full ISO timestamp out, midnight UTC of the requested day.
	assert.Equal(t, "2024-06-10T00:00:00.000Z", body.Progress.Date)

	var count int64
	db.Model(&Models.ProtocolTaskProgress{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestToggleProgressFlipsExistingRow(t *testing.T) {
	app, db, _, task := setupProgressApp(t)

	for _, wantCompleted := range []bool{true, false, true} {
		resp, err := app.Test(toggleRequest(task.ID, "2024-06-10"))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body toggleResponseBody
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, wantCompleted, body.Progress.IsCompleted)
	}

	// Still exactly one row for the (task, user, day) triple.
	var count int64
	db.Model(&Models.ProtocolTaskProgress{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestToggleProgressSeparateDaysAreIndependent(t *testing.T) {
	app, db, _, task := setupProgressApp(t)

	for _, date := range []string{"2024-06-10", "2024-06-11"} {
		resp, err := app.Test(toggleRequest(task.ID, date))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	var count int64
	db.Model(&Models.ProtocolTaskProgress{}).Where("is_completed = ?", true).Count(&count)
	assert.EqualValues(t, 2, count)
}

func TestToggleProgressRejectsMalformedDate(t *testing.T) {
	app, _, _, task := setupProgressApp(t)

	resp, err := app.Test(toggleRequest(task.ID, "June 10th"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, false, body["success"])
}

func TestToggleProgressUnknownTask(t *testing.T) {
	app, _, _, _ := setupProgressApp(t)

	resp, err := app.Test(toggleRequest(9999, "2024-06-10"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetProgressReturnsWireShape(t *testing.T) {
	app, _, _, task := setupProgressApp(t)

	resp, err := app.Test(toggleRequest(task.ID, "2024-06-10"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Task belongs to day 1 of protocol 1.
	req := httptest.NewRequest(http.MethodGet, "/api/protocols/progress?protocolId=1", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var records []struct {
		Date         string `json:"date"`
		IsCompleted  bool   `json:"isCompleted"`
		ProtocolTask struct {
			ID uint `json:"id"`
		} `json:"protocolTask"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&records))
	require.Len(t, records, 1)
	assert.True(t, records[0].IsCompleted)
	assert.Equal(t, task.ID, records[0].ProtocolTask.ID)
	assert.Equal(t, "2024-06-10T00:00:00.000Z", records[0].Date)
}
