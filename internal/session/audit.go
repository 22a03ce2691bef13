package session

import (
	"log/slog"
	"time"
)

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// AuditRecorder is an Observer writing every snapshot to the audit log
type AuditRecorder struct {
	db          DB
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewAuditRecorder creates a new AuditRecorder with default ID generator and time source
func NewAuditRecorder(db DB) *AuditRecorder {
	return NewAuditRecorderWithDeps(db, &uuidGenerator{}, &defaultTimeSource{})
}

// NewAuditRecorderWithDeps creates a new AuditRecorder with custom dependencies for testing
func NewAuditRecorderWithDeps(db DB, idGen IDGenerator, timeSrc TimeSource) *AuditRecorder {
	return &AuditRecorder{
		db:          db,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// Observe saves the snapshot as an Event. Save errors are logged, not returned.
func (a *AuditRecorder) Observe(s Snapshot) {
	event := &Event{
		ID:             a.idGenerator.Generate(),
		SessionID:      s.SessionID,
		Seq:            s.Seq,
		Kind:           s.Event,
		State:          s.State.Name(),
		FailedAttempts: s.FailedAttempts,
		CreatedAt:      a.timeSource.Now(),
	}
	if err := a.db.SaveEvent(event); err != nil {
		slog.Error("Failed to save audit event",
			"kind", s.Event,
			"session_id", s.SessionID,
			"error", err,
		)
	}
}
