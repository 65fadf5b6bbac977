package Controllers

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"Clinia/Models"
)

// ReportController exports adherence data as Excel workbooks.
type ReportController struct {
	DB *gorm.DB
}

func NewReportController(db *gorm.DB) *ReportController {
	return &ReportController{DB: db}
}

// ExportAdherence streams an .xlsx report for one assignment: a row per
// elapsed protocol day with completion counts and percentage.
func (ctl *ReportController) ExportAdherence(c *fiber.Ctx) error {
	assignmentID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid assignment ID"})
	}

	var assignment Models.ProtocolAssignment
	if err := ctl.DB.Preload("Protocol").Preload("User").First(&assignment, assignmentID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Assignment not found"})
	}
	if assignment.Protocol.ClinicID != currentUser(c).ClinicID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Assignment belongs to another clinic"})
	}

	summary, err := BuildAdherenceSummary(ctl.DB, &assignment)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to compute adherence"})
	}

	buf, err := buildAdherenceWorkbook(summary, assignment.User.Name)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate report"})
	}

	filename := fmt.Sprintf("adherence_%d_%s.xlsx", assignment.ID, time.Now().Format("2006-01-02"))
	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Set("Content-Length", fmt.Sprintf("%d", buf.Len()))
	return c.Send(buf.Bytes())
}

// ExportClinicAdherence builds a workbook with one row per active assignment
// in the clinic, summarizing overall completion.
func (ctl *ReportController) ExportClinicAdherence(c *fiber.Ctx) error {
	user := currentUser(c)

	var assignments []Models.ProtocolAssignment
	err := ctl.DB.Preload("Protocol").Preload("User").
		Joins("JOIN protocols ON protocols.id = protocol_assignments.protocol_id").
		Where("protocols.clinic_id = ? AND protocol_assignments.status = ?", user.ClinicID, Models.AssignmentActive).
		Find(&assignments).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve assignments"})
	}

	f := excelize.NewFile()
	sheetName := "Adherence"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate report"})
	}
	f.SetActiveSheet(index)

	headers := []string{"Patient", "Protocol", "Start Date", "Current Day", "Total Tasks", "Completed Tasks", "Adherence %"}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}
	styleHeaderRow(f, sheetName)

	for rowIndex, assignment := range assignments {
		summary, err := BuildAdherenceSummary(ctl.DB, &assignment)
		if err != nil {
			continue
		}
		row := rowIndex + 2
		values := []interface{}{
			assignment.User.Name,
			assignment.Protocol.Name,
			assignment.StartDate.Format("2006-01-02"),
			assignment.CurrentDay(time.Now()),
			summary.TotalTasks,
			summary.CompletedTasks,
			adherencePercent(summary.CompletedTasks, summary.TotalTasks),
		}
		for colIndex, value := range values {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, row)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	for i := 0; i < len(headers); i++ {
		f.SetColWidth(sheetName, string('A'+rune(i)), string('A'+rune(i)), 18)
	}
	if f.GetSheetName(0) != sheetName {
		f.DeleteSheet("Sheet1")
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate report"})
	}

	filename := fmt.Sprintf("clinic_adherence_%s.xlsx", time.Now().Format("2006-01-02"))
	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Set("Content-Length", fmt.Sprintf("%d", buf.Len()))
	return c.Send(buf.Bytes())
}

func buildAdherenceWorkbook(summary *AdherenceSummary, patientName string) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	sheetName := "Adherence"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	f.SetCellValue(sheetName, "A1", "Patient")
	f.SetCellValue(sheetName, "B1", patientName)
	f.SetCellValue(sheetName, "A2", "Protocol")
	f.SetCellValue(sheetName, "B2", summary.ProtocolName)

	headers := []string{"Day", "Date", "Total Tasks", "Completed Tasks", "Adherence %"}
	for i, header := range headers {
		cell := fmt.Sprintf("%c4", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6E6FA"},
			Pattern: 1,
		},
	})
	if err == nil {
		f.SetRowStyle(sheetName, 4, 4, headerStyle)
	}

	for rowIndex, day := range summary.Days {
		row := rowIndex + 5
		values := []interface{}{
			day.DayNumber,
			day.Date.Format("2006-01-02"),
			day.TotalTasks,
			day.CompletedTasks,
			adherencePercent(day.CompletedTasks, day.TotalTasks),
		}
		for colIndex, value := range values {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, row)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	totalRow := len(summary.Days) + 6
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", totalRow), "Total")
	f.SetCellValue(sheetName, fmt.Sprintf("C%d", totalRow), summary.TotalTasks)
	f.SetCellValue(sheetName, fmt.Sprintf("D%d", totalRow), summary.CompletedTasks)
	f.SetCellValue(sheetName, fmt.Sprintf("E%d", totalRow), adherencePercent(summary.CompletedTasks, summary.TotalTasks))

	for i := 0; i < len(headers); i++ {
		f.SetColWidth(sheetName, string('A'+rune(i)), string('A'+rune(i)), 15)
	}
	if f.GetSheetName(0) != sheetName {
		f.DeleteSheet("Sheet1")
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("error writing Excel file to buffer: %v", err)
	}
	return &buf, nil
}

func styleHeaderRow(f *excelize.File, sheetName string) {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6E6FA"},
			Pattern: 1,
		},
	})
	if err == nil {
		f.SetRowStyle(sheetName, 1, 1, headerStyle)
	}
}

func adherencePercent(completed, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(completed) / float64(total) * 100
}
