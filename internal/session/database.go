package session

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const eventsBucketName = "events"

// Event is one audit record. It never carries payload text or PINs.
type Event struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"session_id"`
	Seq            uint64    `json:"seq"`
	Kind           EventKind `json:"kind"`
	State          string    `json:"state"`
	FailedAttempts int       `json:"failed_attempts"`
	CreatedAt      time.Time `json:"created_at"`
}

// DB defines the interface for audit log operations
type DB interface {
	// SaveEvent appends an event to the log
	SaveEvent(event *Event) error

	// ListEvents returns all events, oldest first
	ListEvents() ([]*Event, error)

	// ListSessionEvents returns the events of one session, oldest first
	ListSessionEvents(sessionID string) ([]*Event, error)

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(eventsBucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveEvent appends an event, keyed by the bucket sequence to keep insertion order
func (b *BoltDB) SaveEvent(event *Event) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(eventsBucketName))
		seq, err := bucket.NextSequence()
		if err != nil {
			return fmt.Errorf("allocating event key: %w", err)
		}
		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("marshaling event: %w", err)
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return bucket.Put(key, data)
	})
}

// ListEvents returns all events, oldest first
func (b *BoltDB) ListEvents() ([]*Event, error) {
	return b.listEvents(func(*Event) bool { return true })
}

// ListSessionEvents returns the events of one session, oldest first
func (b *BoltDB) ListSessionEvents(sessionID string) ([]*Event, error) {
	return b.listEvents(func(e *Event) bool { return e.SessionID == sessionID })
}

func (b *BoltDB) listEvents(keep func(*Event) bool) ([]*Event, error) {
	events := make([]*Event, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(eventsBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var event Event
			if err := json.Unmarshal(v, &event); err != nil {
				return fmt.Errorf("unmarshaling event: %w", err)
			}
			if keep(&event) {
				events = append(events, &event)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
