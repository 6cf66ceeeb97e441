package store

import (
	"time"

	"github.com/ashendes/neurophoto-storefront/internal/models"
)

// SchemaVersion is the layout this package reads and writes. Bump it with
// every change to the records below and handle the step in migrate.
//
// v2: schema_meta.default_session, cart_entries.snapshot.
const SchemaVersion = 2

type SchemaMeta struct {
	ID             uint   `gorm:"primaryKey"`
	Version        int    `gorm:"not null"`
	DefaultSession string `gorm:"size:64"` // used when opened without a session id
	UpdatedAt      time.Time
}

func (SchemaMeta) TableName() string { return "schema_meta" }

type CartEntryRecord struct {
	StyleID      int64  `gorm:"primaryKey;autoIncrement:false"`
	Position     int    `gorm:"not null;index"`
	Name         string `gorm:"size:255;not null"`
	Description  string
	CategoryID   int64  `gorm:"index"`
	Price        string `gorm:"size:32;not null"` // decimal text
	PreviewImage string
	// Snapshot is the style as it was added. Rows written before v2 have
	// none and are rebuilt from the columns above.
	Snapshot     models.Style `gorm:"serializer:json;type:text"`
	AddedAt      time.Time
}

func (CartEntryRecord) TableName() string { return "cart_entries" }

type PendingPhotoRecord struct {
	ID        uint   `gorm:"primaryKey"`
	Position  int    `gorm:"not null;index"`
	FileName  string `gorm:"size:255;not null"`
	MimeType  string `gorm:"size:64;not null"`
	DataURL   string `gorm:"not null"`
	CreatedAt time.Time
}

func (PendingPhotoRecord) TableName() string { return "pending_photos" }

// SessionOrderRecord is session-scoped: one row per session id, standing in
// for the browser tab's session storage.
type SessionOrderRecord struct {
	SessionID string `gorm:"primaryKey;size:64"`
	OrderID   int64  `gorm:"not null"`
	QRCodeURL string
	QRID      string `gorm:"size:128"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (SessionOrderRecord) TableName() string { return "session_orders" }
