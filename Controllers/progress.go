package Controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"Clinia/Models"
	"Clinia/ProgressSync"
)

// ProgressController serves the checklist client: fetch the patient's
// completion records and toggle one task/day.
type ProgressController struct {
	DB *gorm.DB
}

func NewProgressController(db *gorm.DB) *ProgressController {
	return &ProgressController{DB: db}
}

// GetProgress returns every completion record of the calling patient for one
// protocol, in the wire shape the checklist client keys on.
func (ctl *ProgressController) GetProgress(c *fiber.Ctx) error {
	user := currentUser(c)
	protocolID, err := strconv.Atoi(c.Query("protocolId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid protocolId"})
	}

	var records []Models.ProtocolTaskProgress
	err = ctl.DB.
		Joins("JOIN protocol_tasks ON protocol_tasks.id = protocol_task_progresses.protocol_task_id").
		Joins("JOIN protocol_days ON protocol_days.id = protocol_tasks.protocol_day_id").
		Where("protocol_days.protocol_id = ? AND protocol_task_progresses.user_id = ?", protocolID, user.ID).
		Find(&records).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve progress"})
	}

	response := make([]fiber.Map, 0, len(records))
	for i := range records {
		response = append(response, records[i].Serialize())
	}
	return c.JSON(response)
}

// ToggleProgress flips the persisted completion state for (task, patient,
// day). The call carries toggle semantics: there is no "set to value" on the
// wire, the server negates whatever it currently holds, creating the row on
// first toggle. Exactly one row exists per (task, patient, day).
func (ctl *ProgressController) ToggleProgress(c *fiber.Ctx) error {
	user := currentUser(c)

	var req Models.ToggleProgressRequest
	if !parseAndValidate(c, &req) {
		return nil
	}

	taskID, err := strconv.Atoi(req.ProtocolTaskID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid protocolTaskId",
		})
	}
	day, err := ProgressSync.ParseWireDate(req.Date)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid date",
		})
	}

	var task Models.ProtocolTask
	if err := ctl.DB.First(&task, taskID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "Task not found",
		})
	}

	var progress Models.ProtocolTaskProgress
	err = ctl.DB.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("protocol_task_id = ? AND user_id = ? AND date = ?", task.ID, user.ID, day).
			First(&progress)
		if result.Error == gorm.ErrRecordNotFound {
			progress = Models.ProtocolTaskProgress{
				ProtocolTaskID: task.ID,
				UserID:         user.ID,
				Date:           day,
				IsCompleted:    true,
			}
			return tx.Create(&progress).Error
		}
		if result.Error != nil {
			return result.Error
		}
		progress.IsCompleted = !progress.IsCompleted
		return tx.Save(&progress).Error
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to update progress",
		})
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"progress": progress.Serialize(),
	})
}

// GetAdherence summarizes one assignment: per elapsed day, how many of the
// day's tasks the patient completed.
func (ctl *ProgressController) GetAdherence(c *fiber.Ctx) error {
	assignmentID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid assignment ID"})
	}

	var assignment Models.ProtocolAssignment
	if err := ctl.DB.Preload("Protocol").First(&assignment, assignmentID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Assignment not found"})
	}

	summary, err := BuildAdherenceSummary(ctl.DB, &assignment)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to compute adherence"})
	}
	return c.JSON(summary)
}
