package services

import (
	"fmt"
	"log"

	"gorm.io/gorm"
)

// activitySource is a table whose writes are recorded in activity_logs.
// actor is the column holding the user the entry belongs to.
type activitySource struct {
	table  string
	entity string
	actor  string
}

var activitySources = []activitySource{
	{table: "clients", entity: "client", actor: "assigned_user_id"},
	{table: "interactions", entity: "interaction", actor: "user_id"},
	{table: "tasks", entity: "task", actor: "user_id"},
}

// SQLite has no uuid function; this builds a v4-shaped id from random bytes
const sqlRandomUUID = `lower(hex(randomblob(4)) || '-' || hex(randomblob(2)) || '-4' ||
	substr(hex(randomblob(2)), 2) || '-' || substr('89ab', 1 + (abs(random()) % 4), 1) ||
	substr(hex(randomblob(2)), 2) || '-' || hex(randomblob(6)))`

const sqlNow = `strftime('%Y-%m-%d %H:%M:%f+00:00', 'now')`

// InitializeActivityTriggers installs the triggers that write activity_logs
// for every insert, update and delete on the tracked tables. Rows without
// an actor are not recorded.
func InitializeActivityTriggers(db *gorm.DB) error {
	if db.Dialector.Name() != "sqlite" {
		log.Printf("[WARNING] Activity triggers not installed for %s; activity logs must be written by the store", db.Dialector.Name())
		return nil
	}

	log.Println("Initializing activity log triggers...")
	for _, src := range activitySources {
		if err := createActivityTriggers(db, src); err != nil {
			return fmt.Errorf("failed to create %s activity triggers: %w", src.table, err)
		}
	}
	log.Println("Activity log triggers initialized")
	return nil
}

func createActivityTriggers(db *gorm.DB, src activitySource) error {
	events := []struct {
		event  string
		action string
		row    string
	}{
		{event: "INSERT", action: "created", row: "NEW"},
		{event: "UPDATE", action: "updated", row: "NEW"},
		{event: "DELETE", action: "deleted", row: "OLD"},
	}

	for _, ev := range events {
		name := fmt.Sprintf("%s_activity_%s", src.table, ev.action)

		// Drop existing trigger first (in case of schema changes)
		if err := db.Exec(fmt.Sprintf(`DROP TRIGGER IF EXISTS %s`, name)).Error; err != nil {
			return err
		}

		err := db.Exec(fmt.Sprintf(`
			CREATE TRIGGER %[1]s AFTER %[2]s ON %[3]s
			WHEN %[4]s.%[5]s IS NOT NULL AND %[4]s.%[5]s != ''
			BEGIN
				INSERT INTO activity_logs (id, created_at, user_id, action, entity_type)
				VALUES (%[6]s, %[7]s, %[4]s.%[5]s, '%[8]s', '%[9]s');
			END
		`, name, ev.event, src.table, ev.row, src.actor, sqlRandomUUID, sqlNow, ev.action, src.entity)).Error
		if err != nil {
			return err
		}
	}
	return nil
}
