package Models

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/yosuke-furukawa/json5/encoding/json5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Connect() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using process environment")
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "database.db"
	}

	connection, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	DB = connection

	// 1. Base models with no dependencies
	DB.AutoMigrate(
		&Clinic{},
		&User{},
		&Product{},
		&DeviceToken{},
	)

	// 2. Doctor-authored content trees
	DB.AutoMigrate(
		&Protocol{},
		&ProtocolDay{},
		&ProtocolSession{},
		&ProtocolTask{},
		&ProtocolProduct{},
		&OnboardingForm{},
		&FormQuestion{},
		&Course{},
		&CourseModule{},
		&Lesson{},
	)

	// 3. Patient-facing records depending on the above
	DB.AutoMigrate(
		&ProtocolAssignment{},
		&ProtocolTaskProgress{},
		&FormResponse{},
		&FormAnswer{},
		&LessonCompletion{},
		&Referral{},
		&ReferralReward{},
		&Lead{},
	)

	seedFromFile()
}

// seedFile describes the optional bootstrap file. JSON5 so the file can carry
// comments alongside the seed entries.
type seedFile struct {
	Clinic struct {
		Name string `json:"name"`
		Slug string `json:"slug"`
	} `json:"clinic"`
	Admin struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	} `json:"admin"`
}

// seedFromFile bootstraps the first clinic and admin user from seed.json5 when
// the database is empty. Missing file means nothing to do.
func seedFromFile() {
	var count int64
	DB.Model(&User{}).Count(&count)
	if count > 0 {
		return
	}

	path := os.Getenv("SEED_PATH")
	if path == "" {
		path = "seed.json5"
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return
	}

	var seed seedFile
	if err := json5.Unmarshal(raw, &seed); err != nil {
		log.Printf("Invalid seed file %s: %v", path, err)
		return
	}
	if seed.Admin.Email == "" || seed.Admin.Password == "" {
		return
	}

	clinic := Clinic{Name: seed.Clinic.Name, Slug: seed.Clinic.Slug}
	if clinic.Name != "" {
		if err := DB.Create(&clinic).Error; err != nil {
			log.Printf("Failed to seed clinic: %v", err)
			return
		}
	}

	password, err := bcrypt.GenerateFromPassword([]byte(seed.Admin.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("Failed to hash seed password: %v", err)
		return
	}
	admin := User{
		Name:       seed.Admin.Name,
		Email:      seed.Admin.Email,
		Password:   password,
		Permission: PermissionAdmin,
		ClinicID:   clinic.ID,
	}
	if err := DB.Create(&admin).Error; err != nil {
		log.Printf("Failed to seed admin user: %v", err)
		return
	}
	log.Printf("Seeded admin user %s", admin.Email)
}
