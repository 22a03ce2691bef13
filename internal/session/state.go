package session

import "github.com/zombor/hospi-scanner/internal/scanning"

// State is the controller's current state. It is exactly one of Scanning,
// PendingVerification, ShowingResult or Idle.
type State interface {
	// Name returns the state name used in logs and the API
	Name() string
	isState()
}

// Scanning accepts payloads from the code reader
type Scanning struct{}

// PendingVerification holds a result until the matching PIN is entered
type PendingVerification struct {
	Pending scanning.Result
}

// ShowingResult holds the result being displayed
type ShowingResult struct {
	Result scanning.Result
}

// Idle is the state of a closed session
type Idle struct{}

func (Scanning) Name() string            { return "scanning" }
func (PendingVerification) Name() string { return "pending_verification" }
func (ShowingResult) Name() string       { return "showing_result" }
func (Idle) Name() string                { return "idle" }

func (Scanning) isState()            {}
func (PendingVerification) isState() {}
func (ShowingResult) isState()       {}
func (Idle) isState()                {}

// EventKind names what caused a snapshot
type EventKind string

const (
	EventStarted              EventKind = "started"
	EventDisplayed            EventKind = "displayed"
	EventVerificationRequired EventKind = "verification_required"
	EventRejected             EventKind = "rejected"
	EventVerified             EventKind = "verified"
	EventPinMismatch          EventKind = "pin_mismatch"
	EventCancelled            EventKind = "cancelled"
	EventReset                EventKind = "reset"
	EventFailed               EventKind = "failed"
	EventErrorCleared         EventKind = "error_cleared"
	EventClosed               EventKind = "closed"
)

// Snapshot is an immutable view of the controller after one command
type Snapshot struct {
	Seq            uint64
	Event          EventKind
	State          State
	LastError      string
	SessionID      string
	FailedAttempts int
}

// Scanning reports whether the code reader may deliver payloads
func (s Snapshot) Scanning() bool {
	_, ok := s.State.(Scanning)
	return ok
}
