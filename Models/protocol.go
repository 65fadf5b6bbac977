package Models

import (
	"time"

	"gorm.io/gorm"
)

// Protocol is a doctor-authored, multi-day checklist template assigned to
// patients. The day/session/task tree is edited as a whole from the builder.
type Protocol struct {
	gorm.Model
	ClinicID    uint   `json:"clinic_id" gorm:"not null;index"`
	DoctorID    uint   `json:"doctor_id" gorm:"not null;index"`
	Name        string `json:"name" gorm:"size:255;not null"`
	Description string `json:"description" gorm:"type:text"`
	Duration    int    `json:"duration" gorm:"not null;default:1"` // days
	CoverImage  string `json:"cover_image"`
	ShowDoctor  bool   `json:"show_doctor_info" gorm:"default:true"`

	// Optional modal shown before the patient starts the protocol.
	ModalTitle       string `json:"modal_title"`
	ModalVideoUrl    string `json:"modal_video_url"`
	ModalDescription string `json:"modal_description" gorm:"type:text"`
	ModalButtonText  string `json:"modal_button_text"`
	ModalButtonUrl   string `json:"modal_button_url"`

	Days     []ProtocolDay     `json:"days,omitempty" gorm:"foreignKey:ProtocolID;constraint:OnDelete:CASCADE"`
	Products []ProtocolProduct `json:"products,omitempty" gorm:"foreignKey:ProtocolID;constraint:OnDelete:CASCADE"`
}

type ProtocolDay struct {
	gorm.Model
	ProtocolID uint   `json:"protocol_id" gorm:"not null;index"`
	DayNumber  int    `json:"day_number" gorm:"not null"`
	Title      string `json:"title"`

	Sessions []ProtocolSession `json:"sessions,omitempty" gorm:"foreignKey:ProtocolDayID;constraint:OnDelete:CASCADE"`
	// Tasks directly under the day, outside any session.
	Tasks []ProtocolTask `json:"tasks,omitempty" gorm:"foreignKey:ProtocolDayID;constraint:OnDelete:CASCADE"`
}

type ProtocolSession struct {
	gorm.Model
	ProtocolDayID uint   `json:"protocol_day_id" gorm:"not null;index"`
	Name          string `json:"name" gorm:"size:255"`
	SessionOrder  int    `json:"order" gorm:"not null;default:0"`

	Tasks []ProtocolTask `json:"tasks,omitempty" gorm:"foreignKey:ProtocolSessionID;constraint:OnDelete:CASCADE"`
}

type ProtocolTask struct {
	gorm.Model
	ProtocolDayID     uint   `json:"protocol_day_id" gorm:"index"`
	ProtocolSessionID *uint  `json:"protocol_session_id" gorm:"index"` // nil for day-level tasks
	Title             string `json:"title" gorm:"size:500;not null"`
	TaskOrder         int    `json:"order" gorm:"not null;default:0"`

	// Optional "more info" modal content per task.
	HasMoreInfo     bool   `json:"has_more_info" gorm:"default:false"`
	VideoUrl        string `json:"video_url"`
	FullExplanation string `json:"full_explanation" gorm:"type:text"`
	ModalTitle      string `json:"modal_title"`
	ModalButtonText string `json:"modal_button_text"`
	ModalButtonUrl  string `json:"modal_button_url"`
}

// Product is a recommended item a doctor can attach to a protocol.
type Product struct {
	gorm.Model
	ClinicID      uint    `json:"clinic_id" gorm:"index"`
	Name          string  `json:"name" gorm:"size:255;not null"`
	Description   string  `json:"description" gorm:"type:text"`
	ImageUrl      string  `json:"image_url"`
	OriginalPrice float64 `json:"original_price"`
	DiscountPrice float64 `json:"discount_price"`
	PurchaseUrl   string  `json:"purchase_url"`
}

type ProtocolProduct struct {
	gorm.Model
	ProtocolID   uint `json:"protocol_id" gorm:"not null;index"`
	ProductID    uint `json:"product_id" gorm:"not null;index"`
	ProductOrder int  `json:"order" gorm:"not null;default:0"`

	Product Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

// Assignment statuses.
const (
	AssignmentActive      = "ACTIVE"
	AssignmentInactive    = "INACTIVE"
	AssignmentUnavailable = "UNAVAILABLE"
)

// ProtocolAssignment links a protocol to a patient from a start date.
type ProtocolAssignment struct {
	gorm.Model
	ProtocolID uint      `json:"protocol_id" gorm:"not null;index"`
	UserID     uint      `json:"user_id" gorm:"not null;index"`
	StartDate  time.Time `json:"start_date" gorm:"not null"`
	Status     string    `json:"status" gorm:"size:20;not null;default:ACTIVE"`

	Protocol Protocol `json:"protocol,omitempty" gorm:"foreignKey:ProtocolID"`
	User     User     `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// CurrentDay returns which protocol day the assignment is on for the given
// date, starting at 1. Values above the protocol duration mean the protocol
// has run out.
func (a *ProtocolAssignment) CurrentDay(now time.Time) int {
	start := time.Date(a.StartDate.UTC().Year(), a.StartDate.UTC().Month(), a.StartDate.UTC().Day(), 0, 0, 0, 0, time.UTC)
	today := time.Date(now.UTC().Year(), now.UTC().Month(), now.UTC().Day(), 0, 0, 0, 0, time.UTC)
	return int(today.Sub(start).Hours()/24) + 1
}
