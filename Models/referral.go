package Models

import (
	"crypto/rand"
	"encoding/hex"
	"gorm.io/gorm"
)

// Referral statuses.
const (
	ReferralPending   = "PENDING"
	ReferralContacted = "CONTACTED"
	ReferralConverted = "CONVERTED"
	ReferralRejected  = "REJECTED"
)

// Referral is a prospective patient referred by an existing one. Converting a
// referral credits reward months to the referrer.
type Referral struct {
	gorm.Model
	ClinicID   uint   `json:"clinic_id" gorm:"not null;index"`
	DoctorID   uint   `json:"doctor_id" gorm:"not null;index"`
	ReferrerID *uint  `json:"referrer_id" gorm:"index"` // patient who referred, nil for organic
	Code       string `json:"code" gorm:"size:32;uniqueIndex"`
	Name       string `json:"name" gorm:"size:255;not null"`
	Email      string `json:"email" gorm:"size:255"`
	Phone      string `json:"phone" gorm:"size:50"`
	Status     string `json:"status" gorm:"size:20;not null;default:PENDING"`
	Notes      string `json:"notes" gorm:"type:text"`

	Referrer *User `json:"referrer,omitempty" gorm:"foreignKey:ReferrerID"`
}

// BeforeCreate assigns the public referral code used by the landing page.
func (r *Referral) BeforeCreate(tx *gorm.DB) error {
	if r.Code == "" {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			return err
		}
		r.Code = hex.EncodeToString(buf)
	}
	return nil
}

// ReferralReward tracks months credited to a referrer on conversion.
type ReferralReward struct {
	gorm.Model
	ReferralID uint `json:"referral_id" gorm:"not null;index"`
	UserID     uint `json:"user_id" gorm:"not null;index"`
	Months     int  `json:"months" gorm:"not null;default:1"`
}

type CreateReferralRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone"`
	Notes string `json:"notes"`
}
