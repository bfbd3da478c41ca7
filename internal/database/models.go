package database

import (
	"time"
)

// UserSettings is the singleton row of per-user playback preferences.
type UserSettings struct {
	ID        uint `gorm:"primaryKey"`
	Volume    float64
	VolumeSet bool
	Muted     bool

	// Still-watching limits; zero disables the corresponding trigger.
	MaxEpisodes   int
	MaxWatchTicks int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PlaybackHistory records one finished playback session.
type PlaybackHistory struct {
	ID            uint   `gorm:"primaryKey"`
	ItemID        string `gorm:"index;not null"`
	PositionTicks int64
	PlayMethod    string
	PlayedAt      time.Time `gorm:"index"`
}
