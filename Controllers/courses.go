package Controllers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"Clinia/Models"
)

// CourseController handles course authoring and patient lesson tracking.
type CourseController struct {
	DB *gorm.DB
}

func NewCourseController(db *gorm.DB) *CourseController {
	return &CourseController{DB: db}
}

type coursePayload struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	CoverImage  string `json:"cover_image"`
	Modules     []struct {
		Name    string `json:"name" validate:"required"`
		Order   int    `json:"order"`
		Lessons []struct {
			Title    string `json:"title" validate:"required"`
			VideoUrl string `json:"video_url"`
			Content  string `json:"content"`
			Duration int    `json:"duration"`
			Order    int    `json:"order"`
		} `json:"lessons" validate:"dive"`
	} `json:"modules" validate:"dive"`
}

// GetCourses lists the clinic's courses.
func (ctl *CourseController) GetCourses(c *fiber.Ctx) error {
	user := currentUser(c)
	var courses []Models.Course
	if err := ctl.DB.Where("clinic_id = ?", user.ClinicID).Find(&courses).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve courses"})
	}
	return c.JSON(courses)
}

// GetCourse returns a course with its ordered modules and lessons, plus the
// calling patient's completed lesson ids.
func (ctl *CourseController) GetCourse(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid course ID"})
	}

	var course Models.Course
	err = ctl.DB.
		Preload("Modules", func(db *gorm.DB) *gorm.DB { return db.Order("module_order") }).
		Preload("Modules.Lessons", func(db *gorm.DB) *gorm.DB { return db.Order("lesson_order") }).
		First(&course, id).Error
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Course not found"})
	}

	user := currentUser(c)
	var completedIDs []uint
	ctl.DB.Model(&Models.LessonCompletion{}).
		Joins("JOIN lessons ON lessons.id = lesson_completions.lesson_id").
		Joins("JOIN course_modules ON course_modules.id = lessons.module_id").
		Where("course_modules.course_id = ? AND lesson_completions.user_id = ?", course.ID, user.ID).
		Pluck("lesson_completions.lesson_id", &completedIDs)

	return c.JSON(fiber.Map{
		"course":            course,
		"completed_lessons": completedIDs,
	})
}

// CreateCourse saves a new course tree.
func (ctl *CourseController) CreateCourse(c *fiber.Ctx) error {
	user := currentUser(c)
	var input coursePayload
	if !parseAndValidate(c, &input) {
		return nil
	}

	course := Models.Course{
		ClinicID:    user.ClinicID,
		DoctorID:    user.ID,
		Name:        input.Name,
		Description: input.Description,
		CoverImage:  input.CoverImage,
	}
	err := ctl.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&course).Error; err != nil {
			return err
		}
		return ctl.saveModules(tx, course.ID, input)
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create course"})
	}
	return c.Status(fiber.StatusCreated).JSON(course)
}

// UpdateCourse replaces a course tree.
func (ctl *CourseController) UpdateCourse(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid course ID"})
	}

	var course Models.Course
	if err := ctl.DB.First(&course, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Course not found"})
	}
	if course.ClinicID != currentUser(c).ClinicID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Course belongs to another clinic"})
	}

	var input coursePayload
	if !parseAndValidate(c, &input) {
		return nil
	}

	err = ctl.DB.Transaction(func(tx *gorm.DB) error {
		course.Name = input.Name
		course.Description = input.Description
		course.CoverImage = input.CoverImage
		if err := tx.Save(&course).Error; err != nil {
			return err
		}

		var moduleIDs []uint
		if err := tx.Model(&Models.CourseModule{}).Where("course_id = ?", course.ID).Pluck("id", &moduleIDs).Error; err != nil {
			return err
		}
		if len(moduleIDs) > 0 {
			if err := tx.Where("module_id IN ?", moduleIDs).Delete(&Models.Lesson{}).Error; err != nil {
				return err
			}
			if err := tx.Where("course_id = ?", course.ID).Delete(&Models.CourseModule{}).Error; err != nil {
				return err
			}
		}
		return ctl.saveModules(tx, course.ID, input)
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update course"})
	}
	return c.JSON(course)
}

func (ctl *CourseController) saveModules(tx *gorm.DB, courseID uint, input coursePayload) error {
	for _, moduleInput := range input.Modules {
		module := Models.CourseModule{
			CourseID:    courseID,
			Name:        moduleInput.Name,
			ModuleOrder: moduleInput.Order,
		}
		if err := tx.Create(&module).Error; err != nil {
			return err
		}
		for _, lessonInput := range moduleInput.Lessons {
			lesson := Models.Lesson{
				ModuleID:    module.ID,
				Title:       lessonInput.Title,
				VideoUrl:    lessonInput.VideoUrl,
				Content:     lessonInput.Content,
				Duration:    lessonInput.Duration,
				LessonOrder: lessonInput.Order,
			}
			if err := tx.Create(&lesson).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// DeleteCourse soft deletes a course.
func (ctl *CourseController) DeleteCourse(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid course ID"})
	}

	var course Models.Course
	if err := ctl.DB.First(&course, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Course not found"})
	}
	if course.ClinicID != currentUser(c).ClinicID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Course belongs to another clinic"})
	}
	ctl.DB.Delete(&course)
	return c.JSON(fiber.Map{"message": "Course deleted successfully"})
}

// ToggleLessonCompletion flips a lesson's completed state for the caller.
func (ctl *CourseController) ToggleLessonCompletion(c *fiber.Ctx) error {
	user := currentUser(c)
	lessonID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid lesson ID"})
	}

	var lesson Models.Lesson
	if err := ctl.DB.First(&lesson, lessonID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Lesson not found"})
	}

	var completion Models.LessonCompletion
	result := ctl.DB.Where("lesson_id = ? AND user_id = ?", lesson.ID, user.ID).First(&completion)
	if result.Error == gorm.ErrRecordNotFound {
		completion = Models.LessonCompletion{
			LessonID:    lesson.ID,
			UserID:      user.ID,
			CompletedAt: time.Now().UTC(),
		}
		if err := ctl.DB.Create(&completion).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to mark lesson"})
		}
		return c.JSON(fiber.Map{"completed": true})
	}
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to mark lesson"})
	}

	ctl.DB.Unscoped().Delete(&completion)
	return c.JSON(fiber.Map{"completed": false})
}
