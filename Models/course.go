package Models

import (
	"time"

	"gorm.io/gorm"
)

// Course is doctor-authored educational content patients can work through
// alongside their protocols.
type Course struct {
	gorm.Model
	ClinicID    uint   `json:"clinic_id" gorm:"not null;index"`
	DoctorID    uint   `json:"doctor_id" gorm:"not null;index"`
	Name        string `json:"name" gorm:"size:255;not null"`
	Description string `json:"description" gorm:"type:text"`
	CoverImage  string `json:"cover_image"`

	Modules []CourseModule `json:"modules,omitempty" gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE"`
}

type CourseModule struct {
	gorm.Model
	CourseID    uint   `json:"course_id" gorm:"not null;index"`
	Name        string `json:"name" gorm:"size:255;not null"`
	ModuleOrder int    `json:"order" gorm:"not null;default:0"`

	Lessons []Lesson `json:"lessons,omitempty" gorm:"foreignKey:ModuleID;constraint:OnDelete:CASCADE"`
}

type Lesson struct {
	gorm.Model
	ModuleID    uint   `json:"module_id" gorm:"not null;index"`
	Title       string `json:"title" gorm:"size:500;not null"`
	VideoUrl    string `json:"video_url"`
	Content     string `json:"content" gorm:"type:text"`
	Duration    int    `json:"duration"` // minutes
	LessonOrder int    `json:"order" gorm:"not null;default:0"`
}

// LessonCompletion marks a lesson as watched by a patient.
type LessonCompletion struct {
	gorm.Model
	LessonID    uint      `json:"lesson_id" gorm:"not null;uniqueIndex:idx_lesson_user"`
	UserID      uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_lesson_user"`
	CompletedAt time.Time `json:"completed_at" gorm:"not null"`
}
