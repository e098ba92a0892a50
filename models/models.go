package models

// AllModels lists every table owned by the data layer, in migration order
func AllModels() []interface{} {
	return []interface{}{
		&Profile{},
		&Client{},
		&Interaction{},
		&Attachment{},
		&Task{},
		&ActivityLog{},
	}
}
