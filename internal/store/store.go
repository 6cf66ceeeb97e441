// Package store is the client's local persistence: the cart, the photos
// staged for upload and the session's active order, kept in a versioned
// SQLite schema.
package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ErrSchemaTooNew = errors.New("store: schema written by a newer client")

// sessionTTL is how long an abandoned session's active order is kept.
const sessionTTL = 7 * 24 * time.Hour

type Store struct {
	db        *gorm.DB
	sessionID string
}

// Open opens (creating if needed) the store at path for the given session.
// An empty sessionID uses the file's default session, created on first use.
func Open(path, sessionID string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	// one writer, like the single browser tab
	sqlDB.SetMaxOpenConns(1)

	s := &Store{db: db, sessionID: sessionID}
	if err := s.migrate(); err != nil {
		sqlDB.Close()
		return nil, err
	}

	if s.sessionID == "" {
		if s.sessionID, err = s.defaultSession(); err != nil {
			sqlDB.Close()
			return nil, err
		}
	}

	if err := s.purgeSessions(time.Now().Add(-sessionTTL)); err != nil {
		log.WithError(err).Warn("Failed to purge stale sessions")
	}

	return s, nil
}

func (s *Store) migrate() error {
	if err := s.db.AutoMigrate(&SchemaMeta{}); err != nil {
		return fmt.Errorf("migrate schema_meta: %w", err)
	}

	var meta SchemaMeta
	err := s.db.First(&meta).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		meta = SchemaMeta{Version: 0}
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	}

	if meta.Version > SchemaVersion {
		return fmt.Errorf("%w: found v%d, supported v%d", ErrSchemaTooNew, meta.Version, SchemaVersion)
	}

	if err := s.db.AutoMigrate(&CartEntryRecord{}, &PendingPhotoRecord{}, &SessionOrderRecord{}); err != nil {
		return fmt.Errorf("migrate records: %w", err)
	}

	if meta.Version == SchemaVersion {
		return nil
	}

	log.WithFields(log.Fields{
		"from": meta.Version,
		"to":   SchemaVersion,
	}).Info("Migrated local store")

	meta.Version = SchemaVersion
	if meta.ID == 0 {
		return s.db.Create(&meta).Error
	}
	return s.db.Save(&meta).Error
}

// defaultSession returns the session id recorded in schema_meta, minting
// and saving one when the file has none yet.
func (s *Store) defaultSession() (string, error) {
	var meta SchemaMeta
	if err := s.db.First(&meta).Error; err != nil {
		return "", fmt.Errorf("read default session: %w", err)
	}
	if meta.DefaultSession != "" {
		return meta.DefaultSession, nil
	}

	meta.DefaultSession = uuid.NewString()
	if err := s.db.Model(&meta).Update("default_session", meta.DefaultSession).Error; err != nil {
		return "", fmt.Errorf("save default session: %w", err)
	}
	return meta.DefaultSession, nil
}

func (s *Store) purgeSessions(before time.Time) error {
	return s.db.
		Where("session_id <> ? AND updated_at < ?", s.sessionID, before).
		Delete(&SessionOrderRecord{}).Error
}

// SessionID identifies the session whose active order this store tracks.
func (s *Store) SessionID() string {
	return s.sessionID
}

// Version reports the schema version recorded in the file.
func (s *Store) Version() (int, error) {
	var meta SchemaMeta
	if err := s.db.First(&meta).Error; err != nil {
		return 0, err
	}
	return meta.Version, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
