package database

import "time"

type Setting struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `gorm:"not null" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Document is one named JSON document. Body holds the encrypted token.
type Document struct {
	Name      string    `gorm:"primaryKey" json:"name"`
	Body      string    `gorm:"not null" json:"-"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
