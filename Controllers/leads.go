package Controllers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"Clinia/Models"
	"Clinia/Slack"
)

// LeadController handles the sales pipeline: public capture from landing
// pages plus the dashboard endpoints doctors use to work leads.
type LeadController struct {
	DB *gorm.DB
}

func NewLeadController(db *gorm.DB) *LeadController {
	return &LeadController{DB: db}
}

// CaptureLead is the public landing-page endpoint. The clinic is resolved
// from its slug so forms embedded on marketing sites need no credentials.
func (ctl *LeadController) CaptureLead(c *fiber.Ctx) error {
	var clinic Models.Clinic
	if err := ctl.DB.Where("slug = ?", c.Params("slug")).First(&clinic).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Clinic not found"})
	}

	var req Models.CreateLeadRequest
	if !parseAndValidate(c, &req) {
		return nil
	}

	source := req.Source
	if source == "" {
		source = "landing-page"
	}
	lead := Models.Lead{
		ClinicID: clinic.ID,
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Source:   source,
		Status:   Models.LeadNew,
		Value:    req.Value,
		Notes:    req.Notes,
	}
	if err := ctl.DB.Create(&lead).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create lead"})
	}

	go Slack.NotifyNewLead(lead.Name, clinic.Name, lead.Source)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Thanks, we'll be in touch"})
}

// GetLeads lists the clinic's leads, optionally filtered by pipeline stage.
func (ctl *LeadController) GetLeads(c *fiber.Ctx) error {
	user := currentUser(c)
	query := ctl.DB.Where("clinic_id = ?", user.ClinicID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var leads []Models.Lead
	if err := query.Order("created_at DESC").Find(&leads).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve leads"})
	}
	return c.JSON(leads)
}

// CreateLead adds a lead manually from the dashboard.
func (ctl *LeadController) CreateLead(c *fiber.Ctx) error {
	user := currentUser(c)
	var req Models.CreateLeadRequest
	if !parseAndValidate(c, &req) {
		return nil
	}

	source := req.Source
	if source == "" {
		source = "manual"
	}
	lead := Models.Lead{
		ClinicID: user.ClinicID,
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Source:   source,
		Status:   Models.LeadNew,
		Value:    req.Value,
		Notes:    req.Notes,
	}
	if err := ctl.DB.Create(&lead).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create lead"})
	}
	return c.Status(fiber.StatusCreated).JSON(lead)
}

// UpdateLead moves a lead through the pipeline or edits its details.
func (ctl *LeadController) UpdateLead(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid lead ID"})
	}

	var lead Models.Lead
	if err := ctl.DB.First(&lead, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Lead not found"})
	}
	if lead.ClinicID != currentUser(c).ClinicID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Lead belongs to another clinic"})
	}

	var input struct {
		Status string  `json:"status" validate:"omitempty,oneof=NEW CONTACTED QUALIFIED WON LOST"`
		Value  float64 `json:"value"`
		Notes  string  `json:"notes"`
	}
	if !parseAndValidate(c, &input) {
		return nil
	}

	if input.Status != "" {
		lead.Status = input.Status
	}
	if input.Value != 0 {
		lead.Value = input.Value
	}
	if input.Notes != "" {
		lead.Notes = input.Notes
	}
	if err := ctl.DB.Save(&lead).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update lead"})
	}
	return c.JSON(lead)
}

// DeleteLead soft deletes a lead.
func (ctl *LeadController) DeleteLead(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid lead ID"})
	}

	var lead Models.Lead
	if err := ctl.DB.First(&lead, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Lead not found"})
	}
	if lead.ClinicID != currentUser(c).ClinicID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Lead belongs to another clinic"})
	}
	ctl.DB.Delete(&lead)
	return c.JSON(fiber.Map{"message": "Lead deleted successfully"})
}

// PipelineSummary returns overall pipeline counts and value.
func (ctl *LeadController) PipelineSummary(c *fiber.Ctx) error {
	user := currentUser(c)

	type StageSummary struct {
		Status string  `json:"status"`
		Count  int64   `json:"count"`
		Value  float64 `json:"value"`
	}

	var summary struct {
		TotalLeads int64          `json:"total_leads"`
		WonValue   float64        `json:"won_value"`
		OpenValue  float64        `json:"open_value"`
		Stages     []StageSummary `json:"stages"`
	}

	base := ctl.DB.Model(&Models.Lead{}).Where("clinic_id = ?", user.ClinicID)
	base.Session(&gorm.Session{}).Count(&summary.TotalLeads)
	base.Session(&gorm.Session{}).Where("status = ?", Models.LeadWon).
		Select("COALESCE(SUM(value), 0)").Scan(&summary.WonValue)
	base.Session(&gorm.Session{}).Where("status NOT IN ?", []string{Models.LeadWon, Models.LeadLost}).
		Select("COALESCE(SUM(value), 0)").Scan(&summary.OpenValue)

	for _, stage := range []string{Models.LeadNew, Models.LeadContacted, Models.LeadQualified, Models.LeadWon, Models.LeadLost} {
		var row StageSummary
		row.Status = stage
		ctl.DB.Model(&Models.Lead{}).
			Where("clinic_id = ? AND status = ?", user.ClinicID, stage).
			Count(&row.Count)
		ctl.DB.Model(&Models.Lead{}).
			Where("clinic_id = ? AND status = ?", user.ClinicID, stage).
			Select("COALESCE(SUM(value), 0)").Scan(&row.Value)
		summary.Stages = append(summary.Stages, row)
	}

	return c.JSON(summary)
}

// MonthlyLeads returns lead counts per month over the trailing year. Grouping
// is done in Go to avoid dialect-specific date formatting in SQL.
func (ctl *LeadController) MonthlyLeads(c *fiber.Ctx) error {
	user := currentUser(c)

	type MonthlyData struct {
		Month string `json:"month"`
		Count int    `json:"count"`
		Won   int    `json:"won"`
	}

	endDate := time.Now()
	startDate := endDate.AddDate(-1, 0, 0)

	var leads []Models.Lead
	result := ctl.DB.Where("clinic_id = ? AND created_at BETWEEN ? AND ?", user.ClinicID, startDate, endDate).
		Find(&leads)
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve leads"})
	}

	monthlySummary := make(map[string]*MonthlyData)
	for i := 0; i < 12; i++ {
		date := endDate.AddDate(0, -i, 0)
		monthlySummary[date.Format("2006-01")] = &MonthlyData{Month: date.Format("Jan 2006")}
	}

	for _, lead := range leads {
		monthKey := lead.CreatedAt.Format("2006-01")
		if data, exists := monthlySummary[monthKey]; exists {
			data.Count++
			if lead.Status == Models.LeadWon {
				data.Won++
			}
		}
	}

	var response []MonthlyData
	for i := 11; i >= 0; i-- {
		date := endDate.AddDate(0, -i, 0)
		if data, exists := monthlySummary[date.Format("2006-01")]; exists {
			response = append(response, *data)
		}
	}
	return c.JSON(response)
}

// TopSources ranks acquisition channels by lead count and won value.
func (ctl *LeadController) TopSources(c *fiber.Ctx) error {
	user := currentUser(c)

	type SourceSummary struct {
		Source   string  `json:"source"`
		Count    int     `json:"count"`
		WonCount int     `json:"won_count"`
		WonValue float64 `json:"won_value"`
	}

	var results []SourceSummary
	ctl.DB.Raw(`
		SELECT
			source,
			COUNT(id) as count,
			SUM(CASE WHEN status = 'WON' THEN 1 ELSE 0 END) as won_count,
			SUM(CASE WHEN status = 'WON' THEN value ELSE 0 END) as won_value
		FROM leads
		WHERE clinic_id = ?
		AND deleted_at IS NULL
		GROUP BY source
		ORDER BY count DESC
		LIMIT 5
	`, user.ClinicID).Scan(&results)

	return c.JSON(results)
}

// RecentActivity returns the most recently touched leads.
func (ctl *LeadController) RecentActivity(c *fiber.Ctx) error {
	user := currentUser(c)

	var leads []Models.Lead
	err := ctl.DB.Where("clinic_id = ?", user.ClinicID).
		Order("updated_at DESC").
		Limit(10).
		Find(&leads).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve leads"})
	}
	return c.JSON(leads)
}
