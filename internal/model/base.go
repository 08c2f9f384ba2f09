package model

import (
	"time"
)

type (
	// A Model is a record the store can persist. The store owns the ID and
	// the timestamps, records never set them themselves.
	Model interface {
		// GetID returns the record's ID, empty until the first save.
		GetID() string
		// SetID defines the record's ID.
		SetID(string)
		// SetCreatedAt stamps the record's creation date.
		SetCreatedAt(time.Time)
		// SetUpdatedAt stamps the record's last update date.
		SetUpdatedAt(time.Time)
	}

	// A Base carries the fields shared by every record.
	Base struct {
		ID        string     `json:"uuid"       msgpack:"id"         storm:"id"`
		CreatedAt *time.Time `json:"created_at" msgpack:"created_at" storm:"index"`
		UpdatedAt *time.Time `json:"updated_at" msgpack:"updated_at" storm:"index"`
	}
)

// GetID returns the record's ID, empty until the first save.
func (m *Base) GetID() string {
	return m.ID
}

// SetID defines the record's ID.
func (m *Base) SetID(id string) {
	m.ID = id
}

// SetCreatedAt stamps the record's creation date.
func (m *Base) SetCreatedAt(t time.Time) {
	m.CreatedAt = &t
}

// SetUpdatedAt stamps the record's last update date.
func (m *Base) SetUpdatedAt(t time.Time) {
	m.UpdatedAt = &t
}
