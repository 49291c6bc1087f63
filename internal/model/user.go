package model

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID             uuid.UUID   `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Username       string      `gorm:"uniqueIndex;not null"`
	Email          string      `gorm:"uniqueIndex;not null"`
	HashedPassword string      `gorm:"not null"`
	Preferences    Preferences `gorm:"embedded;embeddedPrefix:pref_"`
	CreatedAt      time.Time   `gorm:"autoCreateTime"`
}

// Preferences holds per-user UI settings
type Preferences struct {
	DarkMode bool `gorm:"not null;default:false" json:"darkMode"`
}
