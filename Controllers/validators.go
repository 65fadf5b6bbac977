package Controllers

import (
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/gofiber/fiber/v2"
)

var (
	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	validate = validator.New()
	english := en.New()
	uni := ut.New(english, english)
	translator, _ = uni.GetTranslator("en")
	en_translations.RegisterDefaultTranslations(validate, translator)
}

// ValidateStruct runs validator tags on a request struct and returns
// human-readable messages keyed by field.
func ValidateStruct(input interface{}) map[string]string {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	errors := make(map[string]string)
	for _, fieldErr := range err.(validator.ValidationErrors) {
		errors[fieldErr.Field()] = fieldErr.Translate(translator)
	}
	return errors
}

// parseAndValidate binds the JSON body and runs validation, answering the
// request itself when either step fails.
func parseAndValidate(c *fiber.Ctx, input interface{}) bool {
	if err := c.BodyParser(input); err != nil {
		c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		return false
	}
	if errors := ValidateStruct(input); errors != nil {
		c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Validation failed", "fields": errors})
		return false
	}
	return true
}
