package session

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/zombor/hospi-scanner/internal/scanning"
)

// Interpreter turns a raw payload into a scan result
type Interpreter interface {
	Parse(raw string) scanning.Result
}

// InterpreterFunc adapts a function to Interpreter
type InterpreterFunc func(raw string) scanning.Result

func (f InterpreterFunc) Parse(raw string) scanning.Result {
	return f(raw)
}

// Observer receives a snapshot after every state-affecting command.
// Observe runs with the controller locked and must not call back into it.
type Observer interface {
	Observe(snapshot Snapshot)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(snapshot Snapshot)

func (f ObserverFunc) Observe(snapshot Snapshot) {
	f(snapshot)
}

// IDGenerator generates unique IDs for sessions and events
type IDGenerator interface {
	Generate() string
}

// uuidGenerator generates random UUIDs
type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

type subscription struct {
	id       uint64
	observer Observer
}

// Controller owns the state of one scan session
type Controller struct {
	mu             sync.Mutex
	interpreter    Interpreter
	idGenerator    IDGenerator
	state          State
	lastError      string
	lastEvent      EventKind
	sessionID      string
	failedAttempts int
	seq            uint64
	observers      []subscription
	nextObserverID uint64
}

// NewController creates a Controller in the Scanning state
func NewController() *Controller {
	return NewControllerWithDeps(InterpreterFunc(scanning.Parse), &uuidGenerator{})
}

// NewControllerWithDeps creates a Controller with custom dependencies for testing
func NewControllerWithDeps(interpreter Interpreter, idGen IDGenerator) *Controller {
	return &Controller{
		interpreter: interpreter,
		idGenerator: idGen,
		state:       Scanning{},
		lastEvent:   EventStarted,
		sessionID:   idGen.Generate(),
	}
}

// Subscribe registers an observer and returns a function that removes it
func (c *Controller) Subscribe(o Observer) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextObserverID++
	id := c.nextObserverID
	c.observers = append(c.observers, subscription{id: id, observer: o})

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, sub := range c.observers {
			if sub.id == id {
				c.observers = append(c.observers[:i:i], c.observers[i+1:]...)
				return
			}
		}
	}
}

// SubmitScannedText interprets a payload from the code reader. Payloads
// arriving outside the Scanning state are ignored.
func (c *Controller) SubmitScannedText(raw string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.state.(Scanning); !ok {
		return
	}

	result, err := c.interpret(raw)
	if err != nil {
		c.lastError = fmt.Sprintf("Error processing QR code: %v", err)
		c.emit(EventFailed)
		return
	}

	switch {
	case !result.IsStructured:
		c.lastError = result.ErrorMessage
		c.emit(EventRejected)
	case result.RequiresVerification:
		c.state = PendingVerification{Pending: result}
		c.failedAttempts = 0
		c.emit(EventVerificationRequired)
	default:
		c.state = ShowingResult{Result: result}
		c.emit(EventDisplayed)
	}
}

func (c *Controller) interpret(raw string) (result scanning.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return c.interpreter.Parse(raw), nil
}

// VerifyPin unlocks the pending result when code matches the code derived
// from its identifier. It returns false on a mismatch or when nothing is
// pending.
func (c *Controller) VerifyPin(code string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	pending, ok := c.state.(PendingVerification)
	if !ok {
		return false
	}

	// TODO: lock out after repeated mismatches; FailedAttempts is tracked but not enforced.
	expected := scanning.DeriveVerificationCode(pending.Pending.Identifier)
	if !pending.Pending.HasIdentifier || subtle.ConstantTimeCompare([]byte(code), []byte(expected)) != 1 {
		c.failedAttempts++
		c.emit(EventPinMismatch)
		return false
	}

	c.state = ShowingResult{Result: pending.Pending}
	c.emit(EventVerified)
	return true
}

// CancelVerification drops the pending result and resumes scanning
func (c *Controller) CancelVerification() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.state.(PendingVerification); !ok {
		return
	}
	c.startSession()
	c.emit(EventCancelled)
}

// Reset clears any result, pending result and error, and resumes scanning
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.state.(Scanning); !ok {
		c.startSession()
	}
	c.lastError = ""
	c.emit(EventReset)
}

// ClearError clears the last error
func (c *Controller) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lastError == "" {
		return
	}
	c.lastError = ""
	c.emit(EventErrorCleared)
}

// ReportError records a failure raised by a collaborator, such as the code reader
func (c *Controller) ReportError(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastError = message
	c.emit(EventFailed)
}

// Close ends the session. The controller moves to Idle and drops its
// observers; Reset starts a new session.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.state.(Idle); ok {
		return
	}
	c.state = Idle{}
	c.lastError = ""
	c.failedAttempts = 0
	c.emit(EventClosed)
	c.observers = nil
}

// State returns the current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError returns the last error, or an empty string
func (c *Controller) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

// IsScanning reports whether the code reader may deliver payloads
func (c *Controller) IsScanning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.state.(Scanning)
	return ok
}

// Snapshot returns the current snapshot
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) startSession() {
	c.state = Scanning{}
	c.failedAttempts = 0
	c.sessionID = c.idGenerator.Generate()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		Seq:            c.seq,
		Event:          c.lastEvent,
		State:          c.state,
		LastError:      c.lastError,
		SessionID:      c.sessionID,
		FailedAttempts: c.failedAttempts,
	}
}

// emit must be called with c.mu held
func (c *Controller) emit(kind EventKind) {
	c.seq++
	c.lastEvent = kind
	snapshot := c.snapshotLocked()
	for _, sub := range c.observers {
		notify(sub.observer, snapshot)
	}
}

func notify(o Observer, snapshot Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Observer panicked", "event", snapshot.Event, "panic", r)
		}
	}()
	o.Observe(snapshot)
}
