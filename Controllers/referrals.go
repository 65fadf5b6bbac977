package Controllers

import (
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"Clinia/Models"
	"Clinia/Slack"
)

// ReferralController tracks patient referrals and their rewards.
type ReferralController struct {
	DB *gorm.DB
}

func NewReferralController(db *gorm.DB) *ReferralController {
	return &ReferralController{DB: db}
}

// GetReferrals lists the clinic's referrals, optionally filtered by status.
func (ctl *ReferralController) GetReferrals(c *fiber.Ctx) error {
	user := currentUser(c)
	query := ctl.DB.Preload("Referrer").Where("clinic_id = ?", user.ClinicID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var referrals []Models.Referral
	if err := query.Order("created_at DESC").Find(&referrals).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve referrals"})
	}
	return c.JSON(referrals)
}

// CreateReferral registers a referral made by the calling patient.
func (ctl *ReferralController) CreateReferral(c *fiber.Ctx) error {
	user := currentUser(c)
	var req Models.CreateReferralRequest
	if !parseAndValidate(c, &req) {
		return nil
	}

	doctorID := user.ID
	if user.DoctorID != nil {
		doctorID = *user.DoctorID
	}

	referral := Models.Referral{
		ClinicID:   user.ClinicID,
		DoctorID:   doctorID,
		ReferrerID: &user.ID,
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Notes:      req.Notes,
		Status:     Models.ReferralPending,
	}
	if err := ctl.DB.Create(&referral).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create referral"})
	}

	go func() {
		if err := Slack.NotifyNewReferral(referral.Name, user.Name); err != nil {
			log.Printf("Slack referral notification failed: %v", err)
		}
	}()

	return c.Status(fiber.StatusCreated).JSON(referral)
}

// UpdateReferralStatus moves a referral through the pipeline. Converting a
// referral credits a reward month to the referrer and opens a sales lead.
func (ctl *ReferralController) UpdateReferralStatus(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid referral ID"})
	}

	var input struct {
		Status string `json:"status" validate:"required,oneof=PENDING CONTACTED CONVERTED REJECTED"`
	}
	if !parseAndValidate(c, &input) {
		return nil
	}

	var referral Models.Referral
	if err := ctl.DB.First(&referral, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Referral not found"})
	}
	if referral.ClinicID != currentUser(c).ClinicID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Referral belongs to another clinic"})
	}

	alreadyConverted := referral.Status == Models.ReferralConverted
	referral.Status = input.Status

	err = ctl.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&referral).Error; err != nil {
			return err
		}
		if input.Status != Models.ReferralConverted || alreadyConverted {
			return nil
		}
		if referral.ReferrerID != nil {
			reward := Models.ReferralReward{
				ReferralID: referral.ID,
				UserID:     *referral.ReferrerID,
				Months:     1,
			}
			if err := tx.Create(&reward).Error; err != nil {
				return err
			}
		}
		lead := Models.Lead{
			ClinicID: referral.ClinicID,
			Name:     referral.Name,
			Email:    referral.Email,
			Phone:    referral.Phone,
			Source:   "referral",
			Status:   Models.LeadQualified,
		}
		return tx.Create(&lead).Error
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update referral"})
	}
	return c.JSON(referral)
}

// GetMyReferrals shows the calling patient their referrals and earned rewards.
func (ctl *ReferralController) GetMyReferrals(c *fiber.Ctx) error {
	user := currentUser(c)

	var referrals []Models.Referral
	if err := ctl.DB.Where("referrer_id = ?", user.ID).Order("created_at DESC").Find(&referrals).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve referrals"})
	}

	var months int64
	ctl.DB.Model(&Models.ReferralReward{}).Where("user_id = ?", user.ID).
		Select("COALESCE(SUM(months), 0)").Scan(&months)

	return c.JSON(fiber.Map{
		"referrals":     referrals,
		"reward_months": months,
	})
}

// ShowReferralPage renders the public landing page for a referral code.
func (ctl *ReferralController) ShowReferralPage(c *fiber.Ctx) error {
	var referral Models.Referral
	err := ctl.DB.Where("code = ?", c.Params("code")).First(&referral).Error
	if err != nil {
		return c.Status(fiber.StatusNotFound).SendString("Referral link not found")
	}

	var clinic Models.Clinic
	ctl.DB.First(&clinic, referral.ClinicID)

	return c.Render("referral", fiber.Map{
		"Name":   referral.Name,
		"Clinic": clinic.Name,
	})
}
