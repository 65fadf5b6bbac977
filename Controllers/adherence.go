package Controllers

import (
	"time"

	"gorm.io/gorm"

	"Clinia/Models"
)

// DayAdherence is one elapsed protocol day in a summary.
type DayAdherence struct {
	DayNumber      int       `json:"day_number"`
	Date           time.Time `json:"date"`
	TotalTasks     int       `json:"total_tasks"`
	CompletedTasks int       `json:"completed_tasks"`
}

// AdherenceSummary reports how faithfully a patient is working through an
// assigned protocol.
type AdherenceSummary struct {
	AssignmentID   uint           `json:"assignment_id"`
	PatientID      uint           `json:"patient_id"`
	ProtocolID     uint           `json:"protocol_id"`
	ProtocolName   string         `json:"protocol_name"`
	Days           []DayAdherence `json:"days"`
	TotalTasks     int            `json:"total_tasks"`
	CompletedTasks int            `json:"completed_tasks"`
}

// BuildAdherenceSummary walks the elapsed days of an assignment and counts
// completed tasks per day. Only days up to today (and within the protocol
// duration) are included.
func BuildAdherenceSummary(db *gorm.DB, assignment *Models.ProtocolAssignment) (*AdherenceSummary, error) {
	protocol := assignment.Protocol
	if protocol.ID == 0 {
		if err := db.First(&protocol, assignment.ProtocolID).Error; err != nil {
			return nil, err
		}
	}

	var days []Models.ProtocolDay
	err := db.Preload("Tasks").
		Where("protocol_id = ?", protocol.ID).
		Order("day_number").
		Find(&days).Error
	if err != nil {
		return nil, err
	}

	summary := &AdherenceSummary{
		AssignmentID: assignment.ID,
		PatientID:    assignment.UserID,
		ProtocolID:   protocol.ID,
		ProtocolName: protocol.Name,
	}

	elapsed := assignment.CurrentDay(time.Now())
	if elapsed > protocol.Duration {
		elapsed = protocol.Duration
	}

	for _, day := range days {
		if day.DayNumber > elapsed {
			continue
		}
		date := dayDate(assignment.StartDate, day.DayNumber)

		taskIDs := make([]uint, 0, len(day.Tasks))
		for _, task := range day.Tasks {
			taskIDs = append(taskIDs, task.ID)
		}

		var completed int64
		if len(taskIDs) > 0 {
			err := db.Model(&Models.ProtocolTaskProgress{}).
				Where("protocol_task_id IN ? AND user_id = ? AND date = ? AND is_completed = ?",
					taskIDs, assignment.UserID, date, true).
				Count(&completed).Error
			if err != nil {
				return nil, err
			}
		}

		summary.Days = append(summary.Days, DayAdherence{
			DayNumber:      day.DayNumber,
			Date:           date,
			TotalTasks:     len(taskIDs),
			CompletedTasks: int(completed),
		})
		summary.TotalTasks += len(taskIDs)
		summary.CompletedTasks += int(completed)
	}
	return summary, nil
}

// IncompleteTasksForToday returns the tasks of the assignment's current day
// that the patient has not checked off yet. Used by the reminder job.
func IncompleteTasksForToday(db *gorm.DB, assignment *Models.ProtocolAssignment, now time.Time) ([]Models.ProtocolTask, error) {
	dayNumber := assignment.CurrentDay(now)

	var day Models.ProtocolDay
	err := db.Preload("Tasks").
		Where("protocol_id = ? AND day_number = ?", assignment.ProtocolID, dayNumber).
		First(&day).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	date := dayDate(assignment.StartDate, dayNumber)
	var remaining []Models.ProtocolTask
	for _, task := range day.Tasks {
		var count int64
		err := db.Model(&Models.ProtocolTaskProgress{}).
			Where("protocol_task_id = ? AND user_id = ? AND date = ? AND is_completed = ?",
				task.ID, assignment.UserID, date, true).
			Count(&count).Error
		if err != nil {
			return nil, err
		}
		if count == 0 {
			remaining = append(remaining, task)
		}
	}
	return remaining, nil
}

// dayDate maps a protocol day number onto a calendar day (UTC midnight).
func dayDate(start time.Time, dayNumber int) time.Time {
	s := start.UTC()
	base := time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, dayNumber-1)
}
