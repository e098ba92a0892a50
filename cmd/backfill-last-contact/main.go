package main

import (
	"log"
	"time"

	"crm_dashboard_go/config"
	"crm_dashboard_go/db"
	"crm_dashboard_go/models"

	"gorm.io/gorm"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	if cfg.TursoDatabaseURL != "" {
		if err := db.InitializeRemote(cfg.TursoDatabaseURL, cfg.TursoAuthToken, cfg.Environment); err != nil {
			log.Fatalf("Failed to connect to remote database: %v", err)
		}
	} else if err := db.Initialize(cfg.DBPath, cfg.Environment); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Println("Starting last contact backfill for existing clients...")

	// Fetch all clients without a last contact date
	var clients []models.Client
	if err := db.DB.Where("last_contact IS NULL").Find(&clients).Error; err != nil {
		log.Fatalf("Failed to fetch clients: %v", err)
	}

	if len(clients) == 0 {
		log.Println("No clients need backfilling. All clients have a last contact date.")
		return
	}

	log.Printf("Found %d clients without a last contact date. Backfilling...\n", len(clients))

	for i, client := range clients {
		contact, err := lastContact(db.DB, client)
		if err != nil {
			log.Printf("Failed to find interactions for client %s (ID: %s): %v\n", client.Name, client.ID, err)
			continue
		}

		if err := db.DB.Model(&models.Client{}).Where("id = ?", client.ID).Update("last_contact", contact).Error; err != nil {
			log.Printf("Failed to update client %s (ID: %s): %v\n", client.Name, client.ID, err)
			continue
		}

		log.Printf("[%d/%d] Set last contact %s for client '%s'\n", i+1, len(clients), contact.Format(time.RFC3339), client.Name)
	}

	log.Println("Last contact backfill completed successfully!")
}

// lastContact is the newest interaction with the client, or its creation
// time when there are none
func lastContact(tx *gorm.DB, client models.Client) (time.Time, error) {
	var latest models.Interaction
	err := tx.Where("client_id = ?", client.ID).Order("created_at DESC").Limit(1).Find(&latest).Error
	if err != nil {
		return time.Time{}, err
	}
	if latest.ID == "" {
		return client.CreatedAt, nil
	}
	return latest.CreatedAt, nil
}
