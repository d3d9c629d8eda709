package booking

import (
	"sync"
	"time"

	"barberclub/internal/models"
)

// Session holds the transient selection state of one booking attempt.
// It is owned by the wizard for the duration of the attempt and reset
// on success or abandonment.
type Session struct {
	UserID       int64
	State        State
	ServiceID    int64
	BarberID     int64
	BarbershopID int64
	Date         time.Time
	TimeLabel    string // "11:30" from the availability engine's output

	// StepErrors is the validation error set keyed by wizard step.
	StepErrors map[int]string
	// SubmitError is the guard or backend error of the last submit.
	SubmitError string

	// appointments is the client's last refreshed view of every
	// appointment, shared input of the guard and slot computation.
	appointments []models.Appointment

	inFlight  bool
	StartedAt time.Time
	UpdatedAt time.Time
	mu        sync.Mutex
}

// NewSession creates a fresh wizard session at step one.
func NewSession(userID int64) *Session {
	now := time.Now()
	return &Session{
		UserID:     userID,
		State:      StateSelectingService,
		StepErrors: make(map[int]string),
		StartedAt:  now,
		UpdatedAt:  now,
	}
}

// SetState updates the session state.
func (s *Session) SetState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.State = state
	s.UpdatedAt = time.Now()
}

// GetState returns the current state.
func (s *Session) GetState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.State
}

// SetAppointments replaces the session's view of known appointments.
func (s *Session) SetAppointments(appointments []models.Appointment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appointments = appointments
	s.UpdatedAt = time.Now()
}

// Appointments returns a copy of the known appointments.
func (s *Session) Appointments() []models.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Appointment, len(s.appointments))
	copy(out, s.appointments)
	return out
}

// HasPending reports whether the user already has an appointment in
// status Pending, per the client's last refreshed view.
func (s *Session) HasPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.appointments {
		if s.appointments[i].UserID == s.UserID && s.appointments[i].IsPending() {
			return true
		}
	}
	return false
}

// beginSubmit marks the session in-flight. Returns false when a submit
// is already running, making repeated clicks no-ops.
func (s *Session) beginSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return false
	}
	s.inFlight = true
	return true
}

func (s *Session) endSubmit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
}

// resetSelections clears every selection, returning the session to its
// initial shape while keeping the known appointments.
func (s *Session) resetSelections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ServiceID = 0
	s.BarberID = 0
	s.TimeLabel = ""
	s.Date = time.Time{}
	s.StepErrors = make(map[int]string)
	s.SubmitError = ""
	s.UpdatedAt = time.Now()
}

// IsExpired checks if the session has gone stale.
func (s *Session) IsExpired(timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.UpdatedAt) > timeout
}

// Snapshot is an immutable view of a session for the API surface.
type Snapshot struct {
	UserID       int64          `json:"user_id"`
	State        State          `json:"state"`
	Step         int            `json:"step"`
	ServiceID    int64          `json:"servico_id,omitempty"`
	BarberID     int64          `json:"barbeiro_id,omitempty"`
	BarbershopID int64          `json:"barbearia_id,omitempty"`
	Date         string         `json:"date,omitempty"`
	TimeLabel    string         `json:"time,omitempty"`
	StepErrors   map[int]string `json:"step_errors,omitempty"`
	SubmitError  string         `json:"submit_error,omitempty"`
}

// Snapshot captures the session under lock.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	errs := make(map[int]string, len(s.StepErrors))
	for k, v := range s.StepErrors {
		errs[k] = v
	}
	snap := Snapshot{
		UserID:       s.UserID,
		State:        s.State,
		Step:         s.State.Step(),
		ServiceID:    s.ServiceID,
		BarberID:     s.BarberID,
		BarbershopID: s.BarbershopID,
		TimeLabel:    s.TimeLabel,
		StepErrors:   errs,
		SubmitError:  s.SubmitError,
	}
	if !s.Date.IsZero() {
		snap.Date = s.Date.Format("2006-01-02")
	}
	return snap
}

// SessionStore manages wizard sessions keyed by user.
type SessionStore struct {
	sessions map[int64]*Session
	mu       sync.RWMutex
	timeout  time.Duration
}

// NewSessionStore creates a session store. Sessions untouched for the
// timeout are recreated on next access.
func NewSessionStore(timeout time.Duration) *SessionStore {
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &SessionStore{
		sessions: make(map[int64]*Session),
		timeout:  timeout,
	}
}

// Get returns the session for the user, or nil.
func (ss *SessionStore) Get(userID int64) *Session {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return ss.sessions[userID]
}

// GetOrCreate returns the existing session or starts a fresh one.
func (ss *SessionStore) GetOrCreate(userID int64) *Session {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	session, ok := ss.sessions[userID]
	if ok && !session.IsExpired(ss.timeout) {
		return session
	}
	session = NewSession(userID)
	ss.sessions[userID] = session
	return session
}

// Delete removes a session.
func (ss *SessionStore) Delete(userID int64) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	delete(ss.sessions, userID)
}

// Cleanup removes expired sessions and returns how many were dropped.
func (ss *SessionStore) Cleanup() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	removed := 0
	for userID, session := range ss.sessions {
		if session.IsExpired(ss.timeout) {
			delete(ss.sessions, userID)
			removed++
		}
	}
	return removed
}
