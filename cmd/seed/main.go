package main

import (
	"log"
	"os"
	"time"

	"notification-hub-be/internal/model"
	"notification-hub-be/pkg/database"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/datatypes"
	"gorm.io/gorm/clause"
)

// Seeds a demo user with a representative inbox and preference record, useful
// for exercising filters, pagination and the dispatch pipeline locally.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	color.Cyan("Seeding demo notification data\n")

	demoUser := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	now := time.Now()

	link := func(s string) *string { return &s }
	notifications := []model.Notification{
		{ID: uuid.New(), UserID: demoUser, Type: "security", Message: "New sign-in from Chrome on Linux", Link: link("/account/security"), Read: false, CreatedAt: now.Add(-15 * time.Minute)},
		{ID: uuid.New(), UserID: demoUser, Type: "billing", Message: "Your invoice for August is ready", Link: link("/billing/invoices"), Read: false, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: uuid.New(), UserID: demoUser, Type: "billing", Message: "Payment method expires soon", Read: true, CreatedAt: now.Add(-26 * time.Hour)},
		{ID: uuid.New(), UserID: demoUser, Type: "info", Message: "Weekly summary is available", Read: true, CreatedAt: now.Add(-3 * 24 * time.Hour)},
		{ID: uuid.New(), UserID: demoUser, Type: "marketing.newsletter", Message: "See what shipped this month", Read: false, CreatedAt: now.Add(-4 * 24 * time.Hour)},
		{ID: uuid.New(), UserID: demoUser, Type: "promo.discount", Message: "20% off the annual plan this week", Read: false, CreatedAt: now.Add(-5 * 24 * time.Hour)},
	}

	color.Yellow("\n1. Notifications")
	for _, n := range notifications {
		if err := db.Create(&n).Error; err != nil {
			color.Red("Failed to create %q: %v", n.Message, err)
			continue
		}
		color.Green("Created [%s] %s", n.Type, n.Message)
	}

	color.Yellow("\n2. Preferences")
	prefs := model.DefaultPreference(demoUser)
	prefs.EmailTypes = datatypes.NewJSONSlice([]string{"billing", "security"})
	prefs.EmailFrequency = model.FrequencyDaily
	prefs.DigestEnabled = true
	prefs.QuietHoursEnabled = true
	prefs.QuietHoursStart = "22:00"
	prefs.QuietHoursEnd = "08:00"
	prefs.MarketingEnabled = false

	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(prefs).Error
	if err != nil {
		color.Red("Failed to save preferences: %v", err)
	} else {
		color.Green("Saved preference record for %s", demoUser)
	}

	color.Cyan("\nSeeding completed")
}
