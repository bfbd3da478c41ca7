package database

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// settingsRowID pins UserSettings to a single row.
const settingsRowID = 1

// SettingsStore persists playback preferences. It satisfies the video
// element's volume store contract.
type SettingsStore struct {
	db *gorm.DB
}

func NewSettingsStore(db *gorm.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) load() (*UserSettings, error) {
	settings := UserSettings{ID: settingsRowID}
	if err := s.db.FirstOrCreate(&settings, UserSettings{ID: settingsRowID}).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}

// SaveVolume records the user's volume so a fresh playback surface can
// restore it.
func (s *SettingsStore) SaveVolume(volume float64) error {
	settings, err := s.load()
	if err != nil {
		return err
	}
	settings.Volume = volume
	settings.VolumeSet = true
	return s.db.Save(settings).Error
}

// LoadVolume returns the persisted volume; ok is false when the user has
// never adjusted it.
func (s *SettingsStore) LoadVolume() (volume float64, ok bool) {
	settings, err := s.load()
	if err != nil || !settings.VolumeSet {
		return 0, false
	}
	return settings.Volume, true
}

// SaveMuted records the mute state alongside the volume.
func (s *SettingsStore) SaveMuted(muted bool) error {
	settings, err := s.load()
	if err != nil {
		return err
	}
	settings.Muted = muted
	return s.db.Save(settings).Error
}

// WatchThresholds returns the configured still-watching limits. Unset
// values come back zero; the watch module applies its own defaults.
func (s *SettingsStore) WatchThresholds() (maxEpisodes int, maxWatchTicks int64, err error) {
	settings, err := s.load()
	if err != nil {
		return 0, 0, err
	}
	return settings.MaxEpisodes, settings.MaxWatchTicks, nil
}

// SetWatchThresholds stores the still-watching limits.
func (s *SettingsStore) SetWatchThresholds(maxEpisodes int, maxWatchTicks int64) error {
	settings, err := s.load()
	if err != nil {
		return err
	}
	settings.MaxEpisodes = maxEpisodes
	settings.MaxWatchTicks = maxWatchTicks
	return s.db.Save(settings).Error
}

// HistoryStore persists finished playback sessions for the playback
// manager.
type HistoryStore struct {
	db *gorm.DB
}

func NewHistoryStore(db *gorm.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// RecordPlayback appends one finished session.
func (h *HistoryStore) RecordPlayback(itemID string, positionTicks int64, playMethod string) error {
	return h.db.Create(&PlaybackHistory{
		ItemID:        itemID,
		PositionTicks: positionTicks,
		PlayMethod:    playMethod,
		PlayedAt:      time.Now(),
	}).Error
}

// Recent returns the most recently finished sessions, newest first.
func (h *HistoryStore) Recent(limit int) ([]PlaybackHistory, error) {
	var rows []PlaybackHistory
	err := h.db.Order("played_at desc, id desc").Limit(limit).Find(&rows).Error
	return rows, err
}

// ResumePosition returns the last recorded position for an item, zero when
// the item was never played.
func (h *HistoryStore) ResumePosition(itemID string) (int64, error) {
	var row PlaybackHistory
	err := h.db.Where("item_id = ?", itemID).
		Order("played_at desc, id desc").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return row.PositionTicks, nil
}
