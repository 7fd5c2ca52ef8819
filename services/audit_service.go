package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Audit event types written to the access_code_events table.
const (
	EventCodeGenerated = "code_generated"
	EventCodeClaimed   = "code_claimed"
	EventPathSwitched  = "path_switched"
)

// AuditService appends unlock-code and path events to Postgres for support
// and revenue reporting. It is optional: a nil service is a no-op, and
// failures are logged, never propagated into the user-facing flow.
type AuditService struct {
	db *pgxpool.Pool
}

func NewAuditService(db *pgxpool.Pool) *AuditService {
	return &AuditService{db: db}
}

func (s *AuditService) Record(ctx context.Context, eventType, code, uid, detail string) {
	if s == nil || s.db == nil {
		return
	}

	query := `
	INSERT INTO access_code_events (id, event_type, code, uid, detail, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.db.Exec(ctx, query, uuid.New().String(), eventType, code, uid, detail, time.Now().UTC())
	if err != nil {
		log.Printf("AuditService: failed to record %s event: %v", eventType, err)
	}
}

// RecentEvents backs the backstage event feed.
type AuditEvent struct {
	ID        string    `json:"id"`
	EventType string    `json:"eventType"`
	Code      string    `json:"code,omitempty"`
	UID       string    `json:"uid,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *AuditService) RecentEvents(ctx context.Context, limit int) ([]AuditEvent, error) {
	if s == nil || s.db == nil {
		return []AuditEvent{}, nil
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `
	SELECT id, event_type, code, uid, detail, created_at
	FROM access_code_events
	ORDER BY created_at DESC
	LIMIT $1
	`

	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []AuditEvent
	for rows.Next() {
		var e AuditEvent
		if err := rows.Scan(&e.ID, &e.EventType, &e.Code, &e.UID, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
