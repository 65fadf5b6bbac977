package Models

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ProtocolTaskProgress holds one patient's completion state for one task on
// one calendar day. Dates are normalized to midnight UTC; at most one row
// exists per (task, user, day).
type ProtocolTaskProgress struct {
	gorm.Model
	ProtocolTaskID uint      `json:"protocol_task_id" gorm:"not null;uniqueIndex:idx_task_user_day"`
	UserID         uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_task_user_day"`
	Date           time.Time `json:"date" gorm:"not null;uniqueIndex:idx_task_user_day"`
	IsCompleted    bool      `json:"is_completed" gorm:"not null;default:false"`

	ProtocolTask ProtocolTask `json:"protocol_task,omitempty" gorm:"foreignKey:ProtocolTaskID"`
}

// Serialize renders the wire shape the checklist client expects: full ISO
// timestamp out, nested protocolTask id.
func (p *ProtocolTaskProgress) Serialize() fiber.Map {
	return fiber.Map{
		"id":          p.ID,
		"date":        p.Date.UTC().Format("2006-01-02T15:04:05.000Z"),
		"isCompleted": p.IsCompleted,
		"userId":      p.UserID,
		"protocolTask": fiber.Map{
			"id": p.ProtocolTaskID,
		},
	}
}

type ToggleProgressRequest struct {
	// The web client sends the task id as a string.
	ProtocolTaskID string `json:"protocolTaskId" validate:"required"`
	Date           string `json:"date" validate:"required"`
}
