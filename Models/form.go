package Models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Question types supported by the onboarding form builder.
const (
	QuestionText     = "text"
	QuestionLongText = "textarea"
	QuestionSelect   = "select"
	QuestionCheckbox = "checkbox"
	QuestionDate     = "date"
	QuestionNumber   = "number"
)

// OnboardingForm is a doctor-built intake questionnaire filled in by
// prospective patients before their first visit.
type OnboardingForm struct {
	gorm.Model
	ClinicID    uint   `json:"clinic_id" gorm:"not null;index"`
	DoctorID    uint   `json:"doctor_id" gorm:"not null;index"`
	Name        string `json:"name" gorm:"size:255;not null"`
	Description string `json:"description" gorm:"type:text"`
	IsActive    bool   `json:"is_active" gorm:"default:true"`

	Questions []FormQuestion `json:"questions,omitempty" gorm:"foreignKey:FormID;constraint:OnDelete:CASCADE"`
}

type FormQuestion struct {
	gorm.Model
	FormID   uint   `json:"form_id" gorm:"not null;index"`
	Type     string `json:"type" gorm:"size:20;not null"`
	Label    string `json:"label" gorm:"size:500;not null"`
	Required bool   `json:"required" gorm:"default:false"`
	// Options holds the choice list for select/checkbox questions.
	Options       datatypes.JSON `json:"options,omitempty"`
	QuestionOrder int            `json:"order" gorm:"not null;default:0"`
}

type FormResponse struct {
	gorm.Model
	FormID       uint   `json:"form_id" gorm:"not null;index"`
	PatientName  string `json:"patient_name" gorm:"size:255;not null"`
	PatientEmail string `json:"patient_email" gorm:"size:255"`
	PatientPhone string `json:"patient_phone" gorm:"size:50"`

	Answers []FormAnswer `json:"answers,omitempty" gorm:"foreignKey:ResponseID;constraint:OnDelete:CASCADE"`
}

type FormAnswer struct {
	gorm.Model
	ResponseID uint   `json:"response_id" gorm:"not null;index"`
	QuestionID uint   `json:"question_id" gorm:"not null;index"`
	Value      string `json:"value" gorm:"type:text"`
}

type SubmitFormRequest struct {
	PatientName  string              `json:"patient_name" validate:"required"`
	PatientEmail string              `json:"patient_email" validate:"omitempty,email"`
	PatientPhone string              `json:"patient_phone"`
	Answers      []SubmitFormAnswer  `json:"answers" validate:"required,dive"`
}

type SubmitFormAnswer struct {
	QuestionID uint   `json:"question_id" validate:"required"`
	Value      string `json:"value"`
}
