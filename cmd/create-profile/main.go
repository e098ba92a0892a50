package main

import (
	"bufio"
	"fmt"
	"log"
	"net/mail"
	"os"
	"strings"

	"crm_dashboard_go/config"
	"crm_dashboard_go/db"
	"crm_dashboard_go/models"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	if err := db.Initialize(cfg.DBPath, cfg.Environment); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create New Profile ===")
	fmt.Println()

	fmt.Print("Name: ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)

	fmt.Print("Email: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)

	fmt.Print("Phone (optional): ")
	phone, _ := reader.ReadString('\n')
	phone = strings.TrimSpace(phone)

	// Validate inputs
	if len(name) < models.ClientNameMinLength || len(name) > models.ClientNameMaxLength {
		log.Fatalf("Name must be between %d and %d characters", models.ClientNameMinLength, models.ClientNameMaxLength)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		log.Fatalf("Invalid email address: %s", email)
	}

	// Check if profile already exists
	var existing models.Profile
	if err := db.DB.Where("email = ?", email).First(&existing).Error; err == nil {
		log.Fatalf("Profile with email %s already exists (ID: %s)", email, existing.ID)
	}

	profile := &models.Profile{Name: name, Email: email}
	if phone != "" {
		profile.Phone = &phone
	}

	if err := db.DB.Create(profile).Error; err != nil {
		log.Fatalf("Failed to create profile: %v", err)
	}

	fmt.Println()
	fmt.Println("✓ Profile created successfully!")
	fmt.Printf("  ID: %s\n", profile.ID)
	fmt.Printf("  Name: %s\n", profile.Name)
	fmt.Printf("  Email: %s\n", profile.Email)
	fmt.Println()
	fmt.Println("Send this ID in the X-User-ID header to act as this user.")
}
