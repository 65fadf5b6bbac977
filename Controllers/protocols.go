package Controllers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"Clinia/Models"
	"Clinia/Notifications"
)

// ProtocolController handles the protocol builder and patient assignment.
type ProtocolController struct {
	DB *gorm.DB
}

func NewProtocolController(db *gorm.DB) *ProtocolController {
	return &ProtocolController{DB: db}
}

// currentUser pulls the authenticated user stored by the Verify middleware.
func currentUser(c *fiber.Ctx) Models.User {
	user, _ := c.Locals("user").(Models.User)
	return user
}

// protocolTree is the nested day/session/task payload the builder saves as a
// whole after its debounced local edits settle.
type protocolTree struct {
	Name             string  `json:"name" validate:"required"`
	Description      string  `json:"description"`
	Duration         int     `json:"duration" validate:"required,min=1"`
	CoverImage       string  `json:"cover_image"`
	ShowDoctor       *bool   `json:"show_doctor_info"`
	ModalTitle       string  `json:"modal_title"`
	ModalVideoUrl    string  `json:"modal_video_url"`
	ModalDescription string  `json:"modal_description"`
	ModalButtonText  string  `json:"modal_button_text"`
	ModalButtonUrl   string  `json:"modal_button_url"`
	Days             []struct {
		DayNumber int    `json:"day_number"`
		Title     string `json:"title"`
		Sessions  []struct {
			Name  string `json:"name"`
			Order int    `json:"order"`
			Tasks []taskPayload `json:"tasks"`
		} `json:"sessions"`
		Tasks []taskPayload `json:"tasks"`
	} `json:"days"`
	ProductIDs []uint `json:"product_ids"`
}

type taskPayload struct {
	Title           string `json:"title"`
	Order           int    `json:"order"`
	HasMoreInfo     bool   `json:"has_more_info"`
	VideoUrl        string `json:"video_url"`
	FullExplanation string `json:"full_explanation"`
	ModalTitle      string `json:"modal_title"`
	ModalButtonText string `json:"modal_button_text"`
	ModalButtonUrl  string `json:"modal_button_url"`
}

func (p taskPayload) toModel(dayID uint, sessionID *uint) Models.ProtocolTask {
	return Models.ProtocolTask{
		ProtocolDayID:     dayID,
		ProtocolSessionID: sessionID,
		Title:             p.Title,
		TaskOrder:         p.Order,
		HasMoreInfo:       p.HasMoreInfo,
		VideoUrl:          p.VideoUrl,
		FullExplanation:   p.FullExplanation,
		ModalTitle:        p.ModalTitle,
		ModalButtonText:   p.ModalButtonText,
		ModalButtonUrl:    p.ModalButtonUrl,
	}
}

// GetProtocols lists the clinic's protocols (doctor view).
func (ctl *ProtocolController) GetProtocols(c *fiber.Ctx) error {
	user := currentUser(c)
	var protocols []Models.Protocol
	if err := ctl.DB.Where("clinic_id = ?", user.ClinicID).Find(&protocols).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve protocols"})
	}
	return c.JSON(protocols)
}

// GetProtocol returns a protocol with its full day/session/task tree.
func (ctl *ProtocolController) GetProtocol(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid protocol ID"})
	}

	var protocol Models.Protocol
	err = ctl.DB.
		Preload("Days", func(db *gorm.DB) *gorm.DB { return db.Order("day_number") }).
		Preload("Days.Sessions", func(db *gorm.DB) *gorm.DB { return db.Order("session_order") }).
		Preload("Days.Sessions.Tasks", func(db *gorm.DB) *gorm.DB { return db.Order("task_order") }).
		Preload("Days.Tasks", "protocol_session_id IS NULL", func(db *gorm.DB) *gorm.DB { return db.Order("task_order") }).
		Preload("Products", func(db *gorm.DB) *gorm.DB { return db.Order("product_order") }).
		Preload("Products.Product").
		First(&protocol, id).Error
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Protocol not found"})
	}
	return c.JSON(protocol)
}

// CreateProtocol saves a new protocol tree.
func (ctl *ProtocolController) CreateProtocol(c *fiber.Ctx) error {
	user := currentUser(c)
	var input protocolTree
	if !parseAndValidate(c, &input) {
		return nil
	}

	protocol := Models.Protocol{
		ClinicID:         user.ClinicID,
		DoctorID:         user.ID,
		Name:             input.Name,
		Description:      input.Description,
		Duration:         input.Duration,
		CoverImage:       input.CoverImage,
		ShowDoctor:       input.ShowDoctor == nil || *input.ShowDoctor,
		ModalTitle:       input.ModalTitle,
		ModalVideoUrl:    input.ModalVideoUrl,
		ModalDescription: input.ModalDescription,
		ModalButtonText:  input.ModalButtonText,
		ModalButtonUrl:   input.ModalButtonUrl,
	}

	err := ctl.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&protocol).Error; err != nil {
			return err
		}
		return ctl.saveTree(tx, &protocol, input)
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create protocol"})
	}
	return c.Status(fiber.StatusCreated).JSON(protocol)
}

// UpdateProtocol replaces a protocol and its whole tree. The builder edits the
// tree locally and saves it in one request, so replace-all keeps day/session
// renumbering simple. Task progress keys survive because progress rows join on
// task ids that are recreated only when the task list itself changed.
func (ctl *ProtocolController) UpdateProtocol(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid protocol ID"})
	}

	var protocol Models.Protocol
	if err := ctl.DB.First(&protocol, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Protocol not found"})
	}
	if protocol.ClinicID != currentUser(c).ClinicID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Protocol belongs to another clinic"})
	}

	var input protocolTree
	if !parseAndValidate(c, &input) {
		return nil
	}

	err = ctl.DB.Transaction(func(tx *gorm.DB) error {
		protocol.Name = input.Name
		protocol.Description = input.Description
		protocol.Duration = input.Duration
		protocol.CoverImage = input.CoverImage
		if input.ShowDoctor != nil {
			protocol.ShowDoctor = *input.ShowDoctor
		}
		protocol.ModalTitle = input.ModalTitle
		protocol.ModalVideoUrl = input.ModalVideoUrl
		protocol.ModalDescription = input.ModalDescription
		protocol.ModalButtonText = input.ModalButtonText
		protocol.ModalButtonUrl = input.ModalButtonUrl
		if err := tx.Save(&protocol).Error; err != nil {
			return err
		}

		// Drop the old tree, then recreate from the payload.
		var dayIDs []uint
		if err := tx.Model(&Models.ProtocolDay{}).Where("protocol_id = ?", protocol.ID).Pluck("id", &dayIDs).Error; err != nil {
			return err
		}
		if len(dayIDs) > 0 {
			if err := tx.Where("protocol_day_id IN ?", dayIDs).Delete(&Models.ProtocolTask{}).Error; err != nil {
				return err
			}
			if err := tx.Where("protocol_day_id IN ?", dayIDs).Delete(&Models.ProtocolSession{}).Error; err != nil {
				return err
			}
			if err := tx.Where("protocol_id = ?", protocol.ID).Delete(&Models.ProtocolDay{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("protocol_id = ?", protocol.ID).Delete(&Models.ProtocolProduct{}).Error; err != nil {
			return err
		}
		return ctl.saveTree(tx, &protocol, input)
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update protocol"})
	}
	return c.JSON(protocol)
}

// saveTree creates days, sessions, tasks and product links for a protocol.
func (ctl *ProtocolController) saveTree(tx *gorm.DB, protocol *Models.Protocol, input protocolTree) error {
	for _, dayInput := range input.Days {
		day := Models.ProtocolDay{
			ProtocolID: protocol.ID,
			DayNumber:  dayInput.DayNumber,
			Title:      dayInput.Title,
		}
		if err := tx.Create(&day).Error; err != nil {
			return err
		}

		for _, sessionInput := range dayInput.Sessions {
			session := Models.ProtocolSession{
				ProtocolDayID: day.ID,
				Name:          sessionInput.Name,
				SessionOrder:  sessionInput.Order,
			}
			if err := tx.Create(&session).Error; err != nil {
				return err
			}
			for _, taskInput := range sessionInput.Tasks {
				task := taskInput.toModel(day.ID, &session.ID)
				if err := tx.Create(&task).Error; err != nil {
					return err
				}
			}
		}

		for _, taskInput := range dayInput.Tasks {
			task := taskInput.toModel(day.ID, nil)
			if err := tx.Create(&task).Error; err != nil {
				return err
			}
		}
	}

	for order, productID := range input.ProductIDs {
		link := Models.ProtocolProduct{
			ProtocolID:   protocol.ID,
			ProductID:    productID,
			ProductOrder: order,
		}
		if err := tx.Create(&link).Error; err != nil {
			return err
		}
	}
	return nil
}

// DeleteProtocol soft deletes a protocol. Assignments become UNAVAILABLE so
// patient views degrade instead of erroring.
func (ctl *ProtocolController) DeleteProtocol(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid protocol ID"})
	}

	var protocol Models.Protocol
	if err := ctl.DB.First(&protocol, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Protocol not found"})
	}
	if protocol.ClinicID != currentUser(c).ClinicID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Protocol belongs to another clinic"})
	}

	ctl.DB.Model(&Models.ProtocolAssignment{}).
		Where("protocol_id = ?", protocol.ID).
		Update("status", Models.AssignmentUnavailable)
	ctl.DB.Delete(&protocol)

	return c.JSON(fiber.Map{"message": "Protocol deleted successfully"})
}

// DuplicateProtocol deep copies a protocol tree under a new name.
func (ctl *ProtocolController) DuplicateProtocol(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid protocol ID"})
	}

	var source Models.Protocol
	err = ctl.DB.
		Preload("Days").
		Preload("Days.Sessions").
		Preload("Days.Sessions.Tasks").
		Preload("Days.Tasks", "protocol_session_id IS NULL").
		Preload("Products").
		First(&source, id).Error
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Protocol not found"})
	}

	user := currentUser(c)
	clone := Models.Protocol{
		ClinicID:         user.ClinicID,
		DoctorID:         user.ID,
		Name:             source.Name + " (copy)",
		Description:      source.Description,
		Duration:         source.Duration,
		CoverImage:       source.CoverImage,
		ShowDoctor:       source.ShowDoctor,
		ModalTitle:       source.ModalTitle,
		ModalVideoUrl:    source.ModalVideoUrl,
		ModalDescription: source.ModalDescription,
		ModalButtonText:  source.ModalButtonText,
		ModalButtonUrl:   source.ModalButtonUrl,
	}

	err = ctl.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&clone).Error; err != nil {
			return err
		}
		for _, sourceDay := range source.Days {
			day := Models.ProtocolDay{ProtocolID: clone.ID, DayNumber: sourceDay.DayNumber, Title: sourceDay.Title}
			if err := tx.Create(&day).Error; err != nil {
				return err
			}
			for _, sourceSession := range sourceDay.Sessions {
				session := Models.ProtocolSession{ProtocolDayID: day.ID, Name: sourceSession.Name, SessionOrder: sourceSession.SessionOrder}
				if err := tx.Create(&session).Error; err != nil {
					return err
				}
				for _, sourceTask := range sourceSession.Tasks {
					task := sourceTask
					task.ID = 0
					task.ProtocolDayID = day.ID
					task.ProtocolSessionID = &session.ID
					if err := tx.Create(&task).Error; err != nil {
						return err
					}
				}
			}
			for _, sourceTask := range sourceDay.Tasks {
				task := sourceTask
				task.ID = 0
				task.ProtocolDayID = day.ID
				task.ProtocolSessionID = nil
				if err := tx.Create(&task).Error; err != nil {
					return err
				}
			}
		}
		for _, sourceProduct := range source.Products {
			link := Models.ProtocolProduct{ProtocolID: clone.ID, ProductID: sourceProduct.ProductID, ProductOrder: sourceProduct.ProductOrder}
			if err := tx.Create(&link).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to duplicate protocol"})
	}
	return c.Status(fiber.StatusCreated).JSON(clone)
}

// AssignProtocol links a protocol to a patient from a start date.
func (ctl *ProtocolController) AssignProtocol(c *fiber.Ctx) error {
	var input struct {
		ProtocolID uint   `json:"protocol_id" validate:"required"`
		UserID     uint   `json:"user_id" validate:"required"`
		StartDate  string `json:"start_date"`
	}
	if !parseAndValidate(c, &input) {
		return nil
	}

	startDate := time.Now().UTC()
	if input.StartDate != "" {
		parsed, err := time.Parse("2006-01-02", input.StartDate)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid start date"})
		}
		startDate = parsed
	}

	var protocol Models.Protocol
	if err := ctl.DB.First(&protocol, input.ProtocolID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Protocol not found"})
	}

	assignment := Models.ProtocolAssignment{
		ProtocolID: input.ProtocolID,
		UserID:     input.UserID,
		StartDate:  startDate,
		Status:     Models.AssignmentActive,
	}
	if err := ctl.DB.Create(&assignment).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to assign protocol"})
	}

	var patient Models.User
	if err := ctl.DB.First(&patient, input.UserID).Error; err == nil {
		go Notifications.SendProtocolAssigned(&patient, protocol.Name)
	}

	return c.Status(fiber.StatusCreated).JSON(assignment)
}

// UnassignProtocol deactivates an assignment without deleting its history.
func (ctl *ProtocolController) UnassignProtocol(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid assignment ID"})
	}

	var assignment Models.ProtocolAssignment
	if err := ctl.DB.First(&assignment, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Assignment not found"})
	}
	assignment.Status = Models.AssignmentInactive
	ctl.DB.Save(&assignment)
	return c.JSON(assignment)
}

// GetProtocolPatients lists the assignments for one protocol.
func (ctl *ProtocolController) GetProtocolPatients(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid protocol ID"})
	}

	var assignments []Models.ProtocolAssignment
	if err := ctl.DB.Preload("User").Where("protocol_id = ?", id).Find(&assignments).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve assignments"})
	}
	return c.JSON(assignments)
}

// GetMyProtocols lists the calling patient's assignments with the current day
// resolved, which drives the daily checklist view.
func (ctl *ProtocolController) GetMyProtocols(c *fiber.Ctx) error {
	user := currentUser(c)

	var assignments []Models.ProtocolAssignment
	err := ctl.DB.Preload("Protocol").
		Where("user_id = ? AND status = ?", user.ID, Models.AssignmentActive).
		Find(&assignments).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve protocols"})
	}

	now := time.Now()
	response := make([]fiber.Map, 0, len(assignments))
	for i := range assignments {
		assignment := assignments[i]
		response = append(response, fiber.Map{
			"assignment":  assignment,
			"current_day": assignment.CurrentDay(now),
			"finished":    assignment.CurrentDay(now) > assignment.Protocol.Duration,
		})
	}
	return c.JSON(response)
}
