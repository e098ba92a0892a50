package services

import (
	"errors"
	"log"
	"os"

	"crm_dashboard_go/models"

	"gorm.io/gorm"
)

// SeedProfileFromEnv creates the first profile from environment variables.
// Only runs if SEED_PROFILE_EMAIL is set and no profile has that email yet.
// SEED_PROFILE_ID pins the id the gateway will send in X-User-ID.
func SeedProfileFromEnv(db *gorm.DB) error {
	email := os.Getenv("SEED_PROFILE_EMAIL")
	if email == "" {
		return nil
	}

	name := os.Getenv("SEED_PROFILE_NAME")
	if name == "" {
		name = "Administrator"
	}

	var existing models.Profile
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		log.Printf("[SEED] Profile %s already exists, skipping seed", email)
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	profile := &models.Profile{
		ID:    os.Getenv("SEED_PROFILE_ID"),
		Name:  name,
		Email: email,
	}
	if err := db.Create(profile).Error; err != nil {
		return err
	}

	log.Printf("[SEED] Created profile %s (ID: %s)", email, profile.ID)
	return nil
}
