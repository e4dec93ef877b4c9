package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Entry is one persisted document section.
type Entry struct {
	Key       string    `gorm:"primaryKey;type:text;column:section"`
	Value     []byte    `gorm:"type:blob;not null;column:value"`
	UpdatedAt time.Time `gorm:"not null;column:updated_at"`
}

func (Entry) TableName() string {
	return "launcher_store"
}

// Store is a key-value store backed by a sqlite file.
type Store struct {
	db *gorm.DB
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("error creating store directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("error opening store %s: %w", path, err)
	}

	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("error migrating store: %w", err)
	}

	return &Store{db: db}, nil
}

// Get returns the value stored under key. The boolean is false when the key is absent.
func (s *Store) Get(key string) ([]byte, bool, error) {
	var entry Entry
	err := s.db.Where("section = ?", key).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, err
	}
	return entry.Value, true, nil
}

func (s *Store) Put(key string, value []byte) error {
	return upsert(s.db, key, value, time.Now())
}

// PutAll writes all entries in one transaction.
func (s *Store) PutAll(entries map[string][]byte) error {
	now := time.Now()
	return s.db.Transaction(func(tx *gorm.DB) error {
		for key, value := range entries {
			if err := upsert(tx, key, value, now); err != nil {
				return fmt.Errorf("error writing %s: %w", key, err)
			}
		}
		return nil
	})
}

func upsert(db *gorm.DB, key string, value []byte, now time.Time) error {
	entry := Entry{
		Key:       key,
		Value:     value,
		UpdatedAt: now,
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "section"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
}

func (s *Store) Delete(key string) error {
	return s.db.Where("section = ?", key).Delete(&Entry{}).Error
}

func (s *Store) Keys() ([]string, error) {
	var keys []string
	err := s.db.Model(&Entry{}).Order("section").Pluck("section", &keys).Error
	return keys, err
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
