package Models

import "gorm.io/gorm"

// Pipeline stages for the sales intelligence dashboard.
const (
	LeadNew       = "NEW"
	LeadContacted = "CONTACTED"
	LeadQualified = "QUALIFIED"
	LeadWon       = "WON"
	LeadLost      = "LOST"
)

// Lead is a prospective clinic customer captured from landing pages, referral
// conversions or manual entry.
type Lead struct {
	gorm.Model
	ClinicID uint    `json:"clinic_id" gorm:"not null;index"`
	Name     string  `json:"name" gorm:"size:255;not null"`
	Email    string  `json:"email" gorm:"size:255"`
	Phone    string  `json:"phone" gorm:"size:50"`
	Source   string  `json:"source" gorm:"size:100"` // landing-page, referral, manual...
	Status   string  `json:"status" gorm:"size:20;not null;default:NEW;index"`
	Value    float64 `json:"value"` // estimated deal value
	Notes    string  `json:"notes" gorm:"type:text"`
}

type CreateLeadRequest struct {
	Name   string  `json:"name" validate:"required"`
	Email  string  `json:"email" validate:"omitempty,email"`
	Phone  string  `json:"phone"`
	Source string  `json:"source"`
	Value  float64 `json:"value"`
	Notes  string  `json:"notes"`
}
