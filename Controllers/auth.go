package Controllers

import (
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"

	"Clinia/Models"
	"Clinia/email"
	"Clinia/middleware"
)

// RegisterUser creates a doctor, patient or admin account. Patients created by
// a doctor are attached to that doctor and their clinic.
func RegisterUser(c *fiber.Ctx) error {
	var req Models.RegisterUserRequest
	if !parseAndValidate(c, &req) {
		return nil
	}

	password, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to hash password",
		})
	}

	user := Models.User{
		Name:       req.Name,
		Email:      req.Email,
		Password:   password,
		Permission: req.Permission,
		ClinicID:   req.ClinicID,
		DoctorID:   req.DoctorID,
		Phone:      req.Phone,
		IsActive:   true,
	}

	// A doctor registering a patient keeps them inside their own clinic.
	if creator, ok := c.Locals("user").(Models.User); ok && creator.Permission < Models.PermissionAdmin {
		user.ClinicID = creator.ClinicID
		user.Permission = Models.PermissionPatient
		user.DoctorID = &creator.ID
	}

	if err := Models.DB.Create(&user).Error; err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "A user with this email already exists",
		})
	}

	go sendWelcomeEmail(user)

	return c.Status(fiber.StatusCreated).JSON(user)
}

func sendWelcomeEmail(user Models.User) {
	config := Models.EmailConfigFromEnv()
	if config.SMTPServer == "" || user.Email == "" {
		return
	}
	var clinic Models.Clinic
	Models.DB.First(&clinic, user.ClinicID)
	message := email.WelcomeMessage(user.Email, user.Name, clinic.Name)
	if err := email.SendEmail(config, message); err != nil {
		log.Printf("Welcome email failed for user %d: %v", user.ID, err)
	}
}

// Login verifies credentials and sets the jwt session cookie.
func Login(c *fiber.Ctx) error {
	var req Models.LoginRequest
	if !parseAndValidate(c, &req) {
		return nil
	}

	var user Models.User
	if err := Models.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Incorrect email or password",
		})
	}
	if err := bcrypt.CompareHashAndPassword(user.Password, []byte(req.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Incorrect email or password",
		})
	}
	if !user.IsActive {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "Account is deactivated",
		})
	}

	claims := jwt.RegisteredClaims{
		Issuer:    strconv.Itoa(int(user.ID)),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(middleware.JWTSecret())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not login",
		})
	}

	c.Cookie(&fiber.Cookie{
		Name:     "jwt",
		Value:    token,
		Expires:  time.Now().Add(24 * time.Hour),
		HTTPOnly: true,
	})

	return c.JSON(fiber.Map{
		"message":    "success",
		"user_id":    user.ID,
		"permission": user.Permission,
	})
}

// Logout clears the session cookie.
func Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     "jwt",
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
	})
	return c.JSON(fiber.Map{"message": "success"})
}

// User returns the authenticated user.
func User(c *fiber.Ctx) error {
	user, ok := c.Locals("user").(Models.User)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Not Logged In.",
		})
	}
	return c.JSON(user)
}

// ValidateToken answers whether the jwt cookie is still valid.
func ValidateToken(c *fiber.Ctx) error {
	cookie := c.Cookies("jwt")
	if cookie == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"valid": false})
	}
	_, err := jwt.ParseWithClaims(cookie, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		return middleware.JWTSecret(), nil
	})
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"valid": false})
	}
	return c.JSON(fiber.Map{"valid": true})
}

// FetchUsers lists users, optionally filtered by permission level or clinic.
func FetchUsers(c *fiber.Ctx) error {
	query := Models.DB.Model(&Models.User{})
	if permission := c.Query("permission"); permission != "" {
		query = query.Where("permission = ?", permission)
	}
	if clinicID := c.Query("clinic_id"); clinicID != "" {
		query = query.Where("clinic_id = ?", clinicID)
	}

	var users []Models.User
	if err := query.Find(&users).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to retrieve users",
		})
	}
	return c.JSON(users)
}

// UpdateUser patches name, phone, permission and active flag.
func UpdateUser(c *fiber.Ctx) error {
	var input struct {
		ID         uint   `json:"id"`
		Name       string `json:"name"`
		Phone      string `json:"phone"`
		Permission *int   `json:"permission"`
		IsActive   *bool  `json:"is_active"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	var user Models.User
	if err := Models.DB.First(&user, input.ID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}

	if input.Name != "" {
		user.Name = input.Name
	}
	if input.Phone != "" {
		user.Phone = input.Phone
	}
	if input.Permission != nil {
		user.Permission = *input.Permission
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}
	if err := Models.DB.Save(&user).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update user"})
	}
	return c.JSON(user)
}

// DeleteUser soft deletes a user by id.
func DeleteUser(c *fiber.Ctx) error {
	var input struct {
		ID uint `json:"id"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	var user Models.User
	if err := Models.DB.First(&user, input.ID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}
	Models.DB.Delete(&user)
	return c.JSON(fiber.Map{"message": "User deleted successfully"})
}
