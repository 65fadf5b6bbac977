package FiberConfig

import (
	"fmt"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/template/html"
	"gorm.io/gorm"

	"Clinia/Controllers"
	"Clinia/Models"
	"Clinia/middleware"
)

func SetupRoutes(app *fiber.App, db *gorm.DB) {
	// Initialize handlers
	protocolController := Controllers.NewProtocolController(db)
	progressController := Controllers.NewProgressController(db)
	referralController := Controllers.NewReferralController(db)
	formController := Controllers.NewFormController(db)
	courseController := Controllers.NewCourseController(db)
	leadController := Controllers.NewLeadController(db)
	productController := Controllers.NewProductController(db)
	reportController := Controllers.NewReportController(db)
	uploadController := Controllers.NewUploadController(db)

	api := app.Group("/api")

	// Progress routes - the checklist client. Registered before the protocol
	// :id routes so /protocols/progress is not captured as an id.
	api.Get("/protocols/progress", middleware.Verify(1), progressController.GetProgress)
	api.Post("/protocols/progress", middleware.Verify(1), progressController.ToggleProgress)

	// Protocol routes
	protocols := api.Group("/protocols", middleware.Verify(3))
	protocols.Get("/", protocolController.GetProtocols)
	protocols.Post("/", protocolController.CreateProtocol)
	protocols.Get("/:id", protocolController.GetProtocol)
	protocols.Put("/:id", protocolController.UpdateProtocol)
	protocols.Delete("/:id", protocolController.DeleteProtocol)
	protocols.Post("/:id/duplicate", protocolController.DuplicateProtocol)
	protocols.Post("/:id/assign", protocolController.AssignProtocol)
	protocols.Post("/:id/unassign", protocolController.UnassignProtocol)
	protocols.Get("/:id/patients", protocolController.GetProtocolPatients)

	// Patient views
	api.Get("/my-protocols", middleware.Verify(1), protocolController.GetMyProtocols)
	api.Get("/assignments/:id/adherence", middleware.Verify(1), progressController.GetAdherence)

	// Product catalog
	products := api.Group("/products", middleware.Verify(3))
	products.Get("/", productController.GetProducts)
	products.Post("/", productController.CreateProduct)
	products.Put("/:id", productController.UpdateProduct)
	products.Delete("/:id", productController.DeleteProduct)

	// Referral routes
	referrals := api.Group("/referrals")
	referrals.Get("/", middleware.Verify(3), referralController.GetReferrals)
	referrals.Post("/", middleware.Verify(1), referralController.CreateReferral)
	referrals.Patch("/:id/status", middleware.Verify(3), referralController.UpdateReferralStatus)
	api.Get("/my-referrals", middleware.Verify(1), referralController.GetMyReferrals)

	// Onboarding forms - fetch and submit are public for prospective patients
	forms := api.Group("/forms")
	forms.Get("/", middleware.Verify(3), formController.GetForms)
	forms.Post("/", middleware.Verify(3), formController.CreateForm)
	forms.Get("/:id", formController.GetForm)
	forms.Put("/:id", middleware.Verify(3), formController.UpdateForm)
	forms.Delete("/:id", middleware.Verify(3), formController.DeleteForm)
	forms.Post("/:id/submit", formController.SubmitForm)
	forms.Get("/:id/responses", middleware.Verify(3), formController.GetFormResponses)

	// Course routes
	courses := api.Group("/courses", middleware.Verify(1))
	courses.Get("/", courseController.GetCourses)
	courses.Post("/", middleware.Verify(3), courseController.CreateCourse)
	courses.Get("/:id", courseController.GetCourse)
	courses.Put("/:id", middleware.Verify(3), courseController.UpdateCourse)
	courses.Delete("/:id", middleware.Verify(3), courseController.DeleteCourse)
	api.Post("/lessons/:id/toggle", middleware.Verify(1), courseController.ToggleLessonCompletion)

	// Sales pipeline - capture is public, the rest is the doctor dashboard
	app.Post("/api/leads/capture/:slug", leadController.CaptureLead)
	leads := api.Group("/leads", middleware.Verify(3))
	leads.Get("/", leadController.GetLeads)
	leads.Post("/", leadController.CreateLead)
	leads.Put("/:id", leadController.UpdateLead)
	leads.Delete("/:id", leadController.DeleteLead)

	// Pipeline analytics
	analytics := api.Group("/analytics", middleware.Verify(3))
	analytics.Get("/summary", leadController.PipelineSummary)
	analytics.Get("/monthly", leadController.MonthlyLeads)
	analytics.Get("/top-sources", leadController.TopSources)
	analytics.Get("/recent-activity", leadController.RecentActivity)

	// Reports
	reports := api.Group("/reports", middleware.Verify(3))
	reports.Get("/assignments/:id/adherence.xlsx", reportController.ExportAdherence)
	reports.Get("/clinic/adherence.xlsx", reportController.ExportClinicAdherence)

	// Uploads
	uploads := api.Group("/uploads", middleware.Verify(1))
	uploads.Post("/image", middleware.Verify(3), uploadController.UploadImage)
	uploads.Post("/avatar", uploadController.UploadAvatar)
	uploads.Post("/clinic-logo", middleware.Verify(3), uploadController.UploadClinicLogo)
}

func FiberConfig() {
	fmt.Println("Server Up...")
	engine := html.New("./Templates", ".html")
	// Html Template engine
	app := fiber.New(fiber.Config{
		Views: engine,
	})
	app.Use(middleware.RequestLogger())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestCompression, // 2
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With",
		AllowCredentials: true, // Important for cookies
		MaxAge:           300,
	}))

	SetupRoutes(app, Models.DB)

	// Auth
	app.Post("/api/RegisterUser", middleware.Verify(3), Controllers.RegisterUser)
	app.Patch("/api/UpdateUser", middleware.Verify(4), Controllers.UpdateUser)
	app.Get("/api/FetchUsers", middleware.Verify(3), Controllers.FetchUsers)
	app.Delete("/api/DeleteUser", middleware.Verify(4), Controllers.DeleteUser)
	app.Post("/api/Login", Controllers.Login)
	app.Get("/api/validate-token", Controllers.ValidateToken)
	app.Use("/api/User", Controllers.User)
	app.Use("/api/Logout", Controllers.Logout)
	app.Post("/api/UpdateToken", middleware.Verify(1), Models.UpdateToken)

	// Public referral landing page
	referralController := Controllers.NewReferralController(Models.DB)
	app.Get("/r/:code", referralController.ShowReferralPage)

	// Serve uploaded images
	app.Static("/uploads", "./uploads", fiber.Static{Compress: true, CacheDuration: time.Second * 10})
	app.Static("/static", "static/")

	listenAddr := os.Getenv("LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = ":3001"
	}
	app.Listen(listenAddr)
}
