package model

import "time"

// AcquisitionRecord is an append-only log entry written after a spin.
type AcquisitionRecord struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ItemID    int64     `json:"item_id"`
	CaseID    int       `json:"case_id"`
	CaseName  string    `json:"case_name"`
	CreatedAt time.Time `json:"created_at"`
	Item      *Item     `json:"item,omitempty"`
}
