package Controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"Clinia/Models"
)

// ProductController manages the clinic's recommended-product catalog.
type ProductController struct {
	DB *gorm.DB
}

func NewProductController(db *gorm.DB) *ProductController {
	return &ProductController{DB: db}
}

type productPayload struct {
	Name          string  `json:"name" validate:"required"`
	Description   string  `json:"description"`
	ImageUrl      string  `json:"image_url"`
	OriginalPrice float64 `json:"original_price"`
	DiscountPrice float64 `json:"discount_price"`
	PurchaseUrl   string  `json:"purchase_url"`
}

func (ctl *ProductController) GetProducts(c *fiber.Ctx) error {
	user := currentUser(c)
	var products []Models.Product
	if err := ctl.DB.Where("clinic_id = ?", user.ClinicID).Order("name").Find(&products).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to retrieve products"})
	}
	return c.JSON(products)
}

func (ctl *ProductController) CreateProduct(c *fiber.Ctx) error {
	user := currentUser(c)
	var input productPayload
	if !parseAndValidate(c, &input) {
		return nil
	}

	product := Models.Product{
		ClinicID:      user.ClinicID,
		Name:          input.Name,
		Description:   input.Description,
		ImageUrl:      input.ImageUrl,
		OriginalPrice: input.OriginalPrice,
		DiscountPrice: input.DiscountPrice,
		PurchaseUrl:   input.PurchaseUrl,
	}
	if err := ctl.DB.Create(&product).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create product"})
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

func (ctl *ProductController) UpdateProduct(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	var product Models.Product
	if err := ctl.DB.First(&product, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Product not found"})
	}
	if product.ClinicID != currentUser(c).ClinicID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Product belongs to another clinic"})
	}

	var input productPayload
	if !parseAndValidate(c, &input) {
		return nil
	}

	product.Name = input.Name
	product.Description = input.Description
	product.ImageUrl = input.ImageUrl
	product.OriginalPrice = input.OriginalPrice
	product.DiscountPrice = input.DiscountPrice
	product.PurchaseUrl = input.PurchaseUrl
	if err := ctl.DB.Save(&product).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update product"})
	}
	return c.JSON(product)
}

func (ctl *ProductController) DeleteProduct(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	var product Models.Product
	if err := ctl.DB.First(&product, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Product not found"})
	}
	if product.ClinicID != currentUser(c).ClinicID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Product belongs to another clinic"})
	}

	ctl.DB.Transaction(func(tx *gorm.DB) error {
		tx.Where("product_id = ?", product.ID).Delete(&Models.ProtocolProduct{})
		return tx.Delete(&product).Error
	})
	return c.JSON(fiber.Map{"message": "Product deleted successfully"})
}
