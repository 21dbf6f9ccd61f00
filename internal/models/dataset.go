package models

import "time"

// DatasetRecord is one uploaded spreadsheet, stored in PostgreSQL or SQLite.
type DatasetRecord struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	Filename    string    `json:"filename"`
	Columns     []string  `json:"columns"`
	Size        int64     `json:"size"`
	ContentHash string    `json:"content_hash"`
	ObjectKey   string    `json:"object_key"`
	CreatedAt   time.Time `json:"created_at"`
}
