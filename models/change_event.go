package models

// ChangeType is the kind of row change pushed by the store
type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// ChangeEvent is a row change notification for the clients collection.
// New is set for inserts and updates, Old for updates and deletes.
type ChangeEvent struct {
	Type  ChangeType `json:"type"`
	Table string     `json:"table"`
	New   *Client    `json:"new,omitempty"`
	Old   *Client    `json:"old,omitempty"`
}

// Name returns the client name carried by the event
func (e ChangeEvent) Name() string {
	if e.New != nil {
		return e.New.Name
	}
	if e.Old != nil {
		return e.Old.Name
	}
	return ""
}
