package Controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"Clinia/Models"
)

// FormController handles the onboarding-form builder and public submissions.
type FormController struct {
	DB *gorm.DB
}

func NewFormController(db *gorm.DB) *FormController {
	return &FormController{DB: db}
}

type formPayload struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
	Questions   []struct {
		Type     string         `json:"type" validate:"required,oneof=text textarea select checkbox date number"`
		Label    string         `json:"label" validate:"required"`
		Required bool           `json:"required"`
		Options  datatypes.JSON `json:"options"`
		Order    int            `json:"order"`
	} `json:"questions" validate:"dive"`
}

// GetForms lists the clinic's onboarding forms.
func (ctl *FormController) GetForms(c *fiber.Ctx) error {
	user := currentUser(c)
	var forms []Models.OnboardingForm
	if err := ctl.DB.Where("clinic_id = ?", user.ClinicID).Find(&forms).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve forms"})
	}
	return c.JSON(forms)
}

// GetForm returns one form with its ordered questions. Public: prospective
// patients load it before submitting, so only active forms are served without
// a session.
func (ctl *FormController) GetForm(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid form ID"})
	}

	var form Models.OnboardingForm
	err = ctl.DB.
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("question_order") }).
		First(&form, id).Error
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Form not found"})
	}

	if _, ok := c.Locals("user").(Models.User); !ok && !form.IsActive {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Form not found"})
	}
	return c.JSON(form)
}

// CreateForm saves a new form with its question list.
func (ctl *FormController) CreateForm(c *fiber.Ctx) error {
	user := currentUser(c)
	var input formPayload
	if !parseAndValidate(c, &input) {
		return nil
	}

	form := Models.OnboardingForm{
		ClinicID:    user.ClinicID,
		DoctorID:    user.ID,
		Name:        input.Name,
		Description: input.Description,
		IsActive:    input.IsActive == nil || *input.IsActive,
	}
	err := ctl.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&form).Error; err != nil {
			return err
		}
		return ctl.saveQuestions(tx, form.ID, input)
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create form"})
	}
	return c.Status(fiber.StatusCreated).JSON(form)
}

// UpdateForm replaces a form's metadata and question list.
func (ctl *FormController) UpdateForm(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid form ID"})
	}

	var form Models.OnboardingForm
	if err := ctl.DB.First(&form, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Form not found"})
	}
	if form.ClinicID != currentUser(c).ClinicID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Form belongs to another clinic"})
	}

	var input formPayload
	if !parseAndValidate(c, &input) {
		return nil
	}

	err = ctl.DB.Transaction(func(tx *gorm.DB) error {
		form.Name = input.Name
		form.Description = input.Description
		if input.IsActive != nil {
			form.IsActive = *input.IsActive
		}
		if err := tx.Save(&form).Error; err != nil {
			return err
		}
		if err := tx.Where("form_id = ?", form.ID).Delete(&Models.FormQuestion{}).Error; err != nil {
			return err
		}
		return ctl.saveQuestions(tx, form.ID, input)
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update form"})
	}
	return c.JSON(form)
}

func (ctl *FormController) saveQuestions(tx *gorm.DB, formID uint, input formPayload) error {
	for _, questionInput := range input.Questions {
		question := Models.FormQuestion{
			FormID:        formID,
			Type:          questionInput.Type,
			Label:         questionInput.Label,
			Required:      questionInput.Required,
			Options:       questionInput.Options,
			QuestionOrder: questionInput.Order,
		}
		if err := tx.Create(&question).Error; err != nil {
			return err
		}
	}
	return nil
}

// DeleteForm soft deletes a form.
func (ctl *FormController) DeleteForm(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid form ID"})
	}

	var form Models.OnboardingForm
	if err := ctl.DB.First(&form, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Form not found"})
	}
	if form.ClinicID != currentUser(c).ClinicID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Form belongs to another clinic"})
	}
	ctl.DB.Delete(&form)
	return c.JSON(fiber.Map{"message": "Form deleted successfully"})
}

// SubmitForm stores a public response. Required questions must be answered.
func (ctl *FormController) SubmitForm(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid form ID"})
	}

	var form Models.OnboardingForm
	err = ctl.DB.Preload("Questions").First(&form, id).Error
	if err != nil || !form.IsActive {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Form not found"})
	}

	var req Models.SubmitFormRequest
	if !parseAndValidate(c, &req) {
		return nil
	}

	answered := make(map[uint]string, len(req.Answers))
	for _, answer := range req.Answers {
		answered[answer.QuestionID] = answer.Value
	}
	for _, question := range form.Questions {
		if question.Required && answered[question.ID] == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Missing answer for required question: " + question.Label,
			})
		}
	}

	response := Models.FormResponse{
		FormID:       form.ID,
		PatientName:  req.PatientName,
		PatientEmail: req.PatientEmail,
		PatientPhone: req.PatientPhone,
	}
	err = ctl.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&response).Error; err != nil {
			return err
		}
		for _, answer := range req.Answers {
			record := Models.FormAnswer{
				ResponseID: response.ID,
				QuestionID: answer.QuestionID,
				Value:      answer.Value,
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to submit response"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Response submitted successfully"})
}

// GetFormResponses lists submissions for one form (doctor view).
func (ctl *FormController) GetFormResponses(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid form ID"})
	}

	var form Models.OnboardingForm
	if err := ctl.DB.First(&form, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Form not found"})
	}
	if form.ClinicID != currentUser(c).ClinicID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Form belongs to another clinic"})
	}

	var responses []Models.FormResponse
	if err := ctl.DB.Preload("Answers").Where("form_id = ?", id).Order("created_at DESC").Find(&responses).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve responses"})
	}
	return c.JSON(responses)
}
