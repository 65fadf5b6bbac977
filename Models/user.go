package Models

import (
	"gorm.io/gorm"
)

// Permission levels. Patients only see their own assigned protocols; doctors
// manage everything inside their clinic; admins manage users and clinics.
const (
	PermissionPatient = 1
	PermissionDoctor  = 3
	PermissionAdmin   = 4
)

type User struct {
	gorm.Model
	Name       string `json:"name" gorm:"size:255;not null"`
	Email      string `json:"email" gorm:"size:255;not null;uniqueIndex"`
	Password   []byte `json:"-"`
	Permission int    `json:"permission" gorm:"not null;default:1"`
	ClinicID   uint   `json:"clinic_id" gorm:"index"`
	// DoctorID links a patient to the doctor that manages them.
	DoctorID *uint  `json:"doctor_id" gorm:"index"`
	Phone    string `json:"phone" gorm:"size:50"`
	Image    string `json:"image"`
	IsActive bool   `json:"is_active" gorm:"default:true"`

	Clinic Clinic `json:"clinic,omitempty" gorm:"foreignKey:ClinicID"`
}

func (u *User) IsDoctor() bool {
	return u.Permission >= PermissionDoctor
}

type RegisterUserRequest struct {
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=6"`
	Permission int    `json:"permission" validate:"required,oneof=1 3 4"`
	ClinicID   uint   `json:"clinic_id"`
	DoctorID   *uint  `json:"doctor_id"`
	Phone      string `json:"phone"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
