package Controllers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"Clinia/Models"
)

// UploadController stores uploaded images under uploads/ and generates
// thumbnails for list views.
type UploadController struct {
	DB *gorm.DB
}

func NewUploadController(db *gorm.DB) *UploadController {
	return &UploadController{DB: db}
}

const uploadDir = "uploads"

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// UploadImage accepts a multipart image, saves it and a 320px-wide thumbnail,
// and returns both public paths. The kind form field ("avatar", "logo",
// "cover", "product") picks the subdirectory.
func (ctl *UploadController) UploadImage(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No file provided"})
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedImageExts[ext] {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unsupported image type"})
	}

	kind := c.FormValue("kind", "misc")
	dir := filepath.Join(uploadDir, kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to store file"})
	}

	name := fmt.Sprintf("%d_%d%s", currentUser(c).ID, time.Now().UnixNano(), ext)
	fullPath := filepath.Join(dir, name)
	if err := c.SaveFile(file, fullPath); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to store file"})
	}

	thumbPath, err := writeThumbnail(fullPath)
	if err != nil {
		// Serve the original where the thumbnail could not be generated.
		thumbPath = fullPath
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"path":      "/" + filepath.ToSlash(fullPath),
		"thumbnail": "/" + filepath.ToSlash(thumbPath),
	})
}

// UploadAvatar stores a profile picture and points the calling user at it.
func (ctl *UploadController) UploadAvatar(c *fiber.Ctx) error {
	user := currentUser(c)

	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No file provided"})
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedImageExts[ext] {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unsupported image type"})
	}

	dir := filepath.Join(uploadDir, "avatars")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to store file"})
	}

	fullPath := filepath.Join(dir, fmt.Sprintf("user_%d%s", user.ID, ext))
	if err := c.SaveFile(file, fullPath); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to store file"})
	}

	// Avatars are displayed small, overwrite with a square crop.
	if img, err := imaging.Open(fullPath); err == nil {
		cropped := imaging.Fill(img, 256, 256, imaging.Center, imaging.Lanczos)
		imaging.Save(cropped, fullPath)
	}

	user.Image = "/" + filepath.ToSlash(fullPath)
	if err := ctl.DB.Model(&Models.User{}).Where("id = ?", user.ID).Update("image", user.Image).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update profile"})
	}
	return c.JSON(fiber.Map{"image": user.Image})
}

// UploadClinicLogo stores the clinic logo and updates the clinic record.
func (ctl *UploadController) UploadClinicLogo(c *fiber.Ctx) error {
	user := currentUser(c)

	var clinic Models.Clinic
	if err := ctl.DB.First(&clinic, user.ClinicID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Clinic not found"})
	}

	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No file provided"})
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedImageExts[ext] {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unsupported image type"})
	}

	dir := filepath.Join(uploadDir, "logos")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to store file"})
	}

	fullPath := filepath.Join(dir, fmt.Sprintf("clinic_%d%s", clinic.ID, ext))
	if err := c.SaveFile(file, fullPath); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to store file"})
	}
	writeThumbnail(fullPath)

	clinic.Logo = "/" + filepath.ToSlash(fullPath)
	if err := ctl.DB.Save(&clinic).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update clinic"})
	}
	return c.JSON(fiber.Map{"logo": clinic.Logo})
}

// writeThumbnail writes a 320px-wide copy next to the original, suffixed
// _thumb, preserving aspect ratio.
func writeThumbnail(path string) (string, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return "", err
	}

	resized := imaging.Resize(img, 320, 0, imaging.Lanczos)

	ext := filepath.Ext(path)
	thumbPath := strings.TrimSuffix(path, ext) + "_thumb" + ext
	if err := imaging.Save(resized, thumbPath); err != nil {
		return "", err
	}
	return thumbPath, nil
}
