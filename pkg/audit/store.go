package audit

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Appender persists audit events.
type Appender interface {
	Append(ctx context.Context, event *Event) error
}

// ListFilter narrows an event listing. Empty fields match everything.
type ListFilter struct {
	Actor   string
	Outcome string
}

// Store provides append-only operations for audit events.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates or updates the audit_events table.
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(&Event{})
}

// Append creates a new immutable audit event.
func (s *Store) Append(ctx context.Context, event *Event) error {
	if err := s.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// Get retrieves an event by ID. It returns nil, nil when no event matches.
func (s *Store) Get(ctx context.Context, id string) (*Event, error) {
	var event Event
	if err := s.db.WithContext(ctx).First(&event, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get audit event: %w", err)
	}
	return &event, nil
}

// List returns events newest first, ties broken by descending ID. pageToken
// is the opaque cursor returned with the previous page; pass "" for the first.
func (s *Store) List(ctx context.Context, filter ListFilter, pageSize int, pageToken string) ([]Event, string, int, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	buildQuery := func(base *gorm.DB) *gorm.DB {
		q := base.WithContext(ctx).Model(&Event{})
		if filter.Actor != "" {
			q = q.Where("actor = ?", filter.Actor)
		}
		if filter.Outcome != "" {
			q = q.Where("outcome = ?", filter.Outcome)
		}
		return q
	}

	var totalSize int64
	if err := buildQuery(s.db).Count(&totalSize).Error; err != nil {
		return nil, "", 0, fmt.Errorf("count audit events: %w", err)
	}

	query := buildQuery(s.db).Order("created_at DESC").Order("id DESC").Limit(pageSize + 1)
	if pageToken != "" {
		createdAt, id, err := decodePageToken(pageToken)
		if err != nil {
			return nil, "", 0, err
		}
		query = query.Where("(created_at < ? OR (created_at = ? AND id < ?))", createdAt, createdAt, id)
	}

	var records []Event
	if err := query.Find(&records).Error; err != nil {
		return nil, "", 0, fmt.Errorf("list audit events: %w", err)
	}

	var nextToken string
	if len(records) > pageSize {
		nextToken = encodePageToken(records[pageSize-1])
		records = records[:pageSize]
	}

	return records, nextToken, int(totalSize), nil
}

// encodePageToken builds the cursor for the events following last.
func encodePageToken(last Event) string {
	raw := last.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + last.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodePageToken(token string) (time.Time, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("invalid page token: %w", err)
	}
	ts, id, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return time.Time{}, "", errors.New("invalid page token: missing event id")
	}
	createdAt, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("invalid page token: %w", err)
	}
	return createdAt, id, nil
}

// DeleteOlderThan deletes events created before cutoff and returns how many
// were removed.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&Event{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete old audit events: %w", result.Error)
	}
	return result.RowsAffected, nil
}
