package jobs

import (
	"context"
	"fmt"
	"log"

	"crm_dashboard_go/models"
	"crm_dashboard_go/services"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// SweepReport lists the attachment halves that have lost their counterpart
type SweepReport struct {
	// Metadata rows whose blob is gone
	MissingBlobs []string
	// Blob keys with no metadata row
	OrphanBlobs []string
}

// StartScheduler runs the attachment sweep on the given cron schedule.
// An empty schedule disables it and returns nil.
func StartScheduler(database *gorm.DB, storage services.StorageProvider, schedule string) (*cron.Cron, error) {
	if schedule == "" {
		log.Println("[CRON] Attachment sweep disabled")
		return nil, nil
	}

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		log.Println("[CRON] Running attachment sweep...")
		if _, err := SweepAttachments(context.Background(), database, storage); err != nil {
			log.Printf("[SWEEP] Attachment sweep failed: %v", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule attachment sweep: %w", err)
	}

	c.Start()
	log.Printf("[CRON] Scheduler started (attachment sweep: %s)", schedule)
	return c, nil
}

// SweepAttachments compares metadata rows with stored blobs and reports the
// differences. It never deletes anything.
func SweepAttachments(ctx context.Context, database *gorm.DB, storage services.StorageProvider) (*SweepReport, error) {
	var attachments []models.Attachment
	if err := database.WithContext(ctx).Select("id", "file_path").Find(&attachments).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch attachments: %w", err)
	}

	report := &SweepReport{MissingBlobs: []string{}, OrphanBlobs: []string{}}
	known := make(map[string]bool, len(attachments))

	for _, a := range attachments {
		known[a.FilePath] = true
		exists, err := storage.Exists(ctx, a.FilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to check blob %s: %w", a.FilePath, err)
		}
		if !exists {
			log.Printf("[SWEEP] Attachment %s has no blob at %s", a.ID, a.FilePath)
			report.MissingBlobs = append(report.MissingBlobs, a.ID)
			services.AttachmentOrphans.WithLabelValues("metadata").Inc()
		}
	}

	keys, err := storage.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list blobs: %w", err)
	}
	for _, key := range keys {
		if !known[key] {
			log.Printf("[SWEEP] Blob %s has no attachment row", key)
			report.OrphanBlobs = append(report.OrphanBlobs, key)
			services.AttachmentOrphans.WithLabelValues("blob").Inc()
		}
	}

	log.Printf("[SWEEP] Attachment sweep completed: %d missing blobs, %d orphan blobs",
		len(report.MissingBlobs), len(report.OrphanBlobs))
	return report, nil
}
