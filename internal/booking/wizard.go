package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"barberclub/internal/availability"
	"barberclub/internal/backend"
	"barberclub/internal/events"
	"barberclub/internal/metrics"
	"barberclub/internal/models"
)

var (
	// ErrPendingExists blocks submission when the user already has a
	// pending appointment. No network call is made.
	ErrPendingExists = errors.New("you already have a pending appointment")

	// ErrSubmitInFlight is returned for repeated submits while the
	// create call is still resolving.
	ErrSubmitInFlight = errors.New("submission already in progress")

	// ErrInvalidTransition is returned when an operation does not fit
	// the wizard's current state.
	ErrInvalidTransition = errors.New("invalid wizard transition")

	// ErrValidation marks a missing required selection at some step.
	ErrValidation = errors.New("validation failed")
)

// AppointmentAPI is the slice of the backend the wizard needs.
type AppointmentAPI interface {
	ListAppointments(ctx context.Context) ([]models.Appointment, error)
	CreateAppointment(ctx context.Context, req backend.CreateAppointmentRequest) (*models.Appointment, error)
}

// Preferences exposes the persisted "selected barbershop" value.
type Preferences interface {
	SelectedBarbershop(ctx context.Context, userID int64) (int64, error)
}

// Wizard drives booking sessions through the FSM, applying per-step
// validation, the pending-appointment guard and the single create call.
type Wizard struct {
	fsm        *FSM
	store      *SessionStore
	api        AppointmentAPI
	prefs      Preferences
	engine     *availability.Engine
	bus        *events.Bus
	logger     *zerolog.Logger
	resetDelay time.Duration
}

// Config tunes the wizard.
type Config struct {
	// SessionTimeout is the idle expiry for wizard sessions.
	SessionTimeout time.Duration
	// SuccessResetDelay is how long the success state is displayed
	// before selections reset. Defaults to 3 seconds.
	SuccessResetDelay time.Duration
}

// NewWizard wires a wizard over the backend client and engine. prefs
// and bus may be nil.
func NewWizard(api AppointmentAPI, prefs Preferences, engine *availability.Engine, bus *events.Bus, cfg Config, logger *zerolog.Logger) *Wizard {
	if cfg.SuccessResetDelay <= 0 {
		cfg.SuccessResetDelay = 3 * time.Second
	}
	return &Wizard{
		fsm:        NewFSM(),
		store:      NewSessionStore(cfg.SessionTimeout),
		api:        api,
		prefs:      prefs,
		engine:     engine,
		bus:        bus,
		logger:     logger,
		resetDelay: cfg.SuccessResetDelay,
	}
}

// Start returns the user's wizard session, creating one when needed,
// and refreshes the appointment view so the guard and slot computation
// see current data.
func (w *Wizard) Start(ctx context.Context, userID int64) (*Session, error) {
	session := w.store.GetOrCreate(userID)

	if session.BarbershopID == 0 && w.prefs != nil {
		shopID, err := w.prefs.SelectedBarbershop(ctx, userID)
		if err != nil {
			w.logger.Warn().Err(err).Int64("user_id", userID).Msg("no selected barbershop in session store")
		} else {
			session.mu.Lock()
			session.BarbershopID = shopID
			session.mu.Unlock()
		}
	}

	if err := w.Refresh(ctx, session); err != nil {
		// A failed initial refresh is a panel error, not a dead wizard.
		w.logger.Error().Err(err).Int64("user_id", userID).Msg("initial appointment refresh failed")
	}
	return session, nil
}

// Snapshot returns the current wizard view for the user, or a zero
// snapshot when no session exists.
func (w *Wizard) Snapshot(userID int64) (Snapshot, bool) {
	session := w.store.Get(userID)
	if session == nil {
		return Snapshot{}, false
	}
	return session.Snapshot(), true
}

// SelectService handles the step-1 selection.
func (w *Wizard) SelectService(userID, serviceID int64) error {
	session := w.store.GetOrCreate(userID)
	if session.GetState() != StateSelectingService {
		return fmt.Errorf("%w: select service in state %s", ErrInvalidTransition, session.GetState())
	}

	session.mu.Lock()
	if serviceID == 0 {
		session.StepErrors[1] = "service required"
		session.mu.Unlock()
		return fmt.Errorf("%w: service required", ErrValidation)
	}
	delete(session.StepErrors, 1)
	session.ServiceID = serviceID
	session.mu.Unlock()

	w.fsm.Transition(session, StateSelectingBarber)
	return nil
}

// SelectBarber handles the step-2 selection.
func (w *Wizard) SelectBarber(userID, barberID int64) error {
	session := w.store.GetOrCreate(userID)
	if session.GetState() != StateSelectingBarber {
		return fmt.Errorf("%w: select barber in state %s", ErrInvalidTransition, session.GetState())
	}

	session.mu.Lock()
	if barberID == 0 {
		session.StepErrors[2] = "barber required"
		session.mu.Unlock()
		return fmt.Errorf("%w: barber required", ErrValidation)
	}
	delete(session.StepErrors, 2)
	session.BarberID = barberID
	session.mu.Unlock()

	w.fsm.Transition(session, StateSelectingDateTime)
	return nil
}

// SelectDateTime records the step-3 selection. The time label must be
// one of the engine's current slots for (date, barber).
func (w *Wizard) SelectDateTime(ctx context.Context, userID int64, date time.Time, timeLabel string) error {
	session := w.store.GetOrCreate(userID)
	if session.GetState() != StateSelectingDateTime {
		return fmt.Errorf("%w: select time in state %s", ErrInvalidTransition, session.GetState())
	}

	if timeLabel == "" {
		session.mu.Lock()
		session.StepErrors[3] = "time required"
		session.mu.Unlock()
		return fmt.Errorf("%w: time required", ErrValidation)
	}

	if err := w.Refresh(ctx, session); err != nil {
		return err
	}

	slots := w.engine.ComputeSlots(date, session.BarberID, session.Appointments())
	metrics.IncSlotsComputed()
	if !availability.SlotAt(slots, timeLabel) {
		session.mu.Lock()
		session.StepErrors[3] = "time no longer available"
		session.mu.Unlock()
		return fmt.Errorf("%w: time %s not available", ErrValidation, timeLabel)
	}

	session.mu.Lock()
	delete(session.StepErrors, 3)
	session.Date = date
	session.TimeLabel = timeLabel
	session.mu.Unlock()
	return nil
}

// Back steps the wizard one step backward, preserving selections.
func (w *Wizard) Back(userID int64) error {
	session := w.store.GetOrCreate(userID)
	switch session.GetState() {
	case StateSelectingBarber:
		w.fsm.Transition(session, StateSelectingService)
	case StateSelectingDateTime:
		w.fsm.Transition(session, StateSelectingBarber)
	default:
		return fmt.Errorf("%w: back from state %s", ErrInvalidTransition, session.GetState())
	}
	return nil
}

// Slots computes bookable marks for the session's barber on a date,
// against a freshly refreshed appointment list.
func (w *Wizard) Slots(ctx context.Context, userID int64, date time.Time) ([]availability.Slot, error) {
	session := w.store.GetOrCreate(userID)
	if err := w.Refresh(ctx, session); err != nil {
		return nil, err
	}
	metrics.IncSlotsComputed()
	return w.engine.ComputeSlots(date, session.BarberID, session.Appointments()), nil
}

// Submit runs the step-3 validation, the pending guard and exactly one
// create call. Repeated calls while in flight are rejected before any
// state change.
func (w *Wizard) Submit(ctx context.Context, userID int64) error {
	session := w.store.GetOrCreate(userID)
	switch session.GetState() {
	case StateSelectingDateTime:
	case StateSubmitting:
		return ErrSubmitInFlight
	default:
		return fmt.Errorf("%w: submit in state %s", ErrInvalidTransition, session.GetState())
	}

	session.mu.Lock()
	if session.TimeLabel == "" || session.Date.IsZero() {
		session.StepErrors[3] = "time required"
		session.mu.Unlock()
		return fmt.Errorf("%w: time required", ErrValidation)
	}
	session.mu.Unlock()

	// Local optimistic guard: refused before any network call. The
	// backend remains the authority and may still reject.
	if session.HasPending() {
		session.mu.Lock()
		session.SubmitError = ErrPendingExists.Error()
		session.mu.Unlock()
		metrics.IncGuardRejected()
		return ErrPendingExists
	}

	if !session.beginSubmit() {
		return ErrSubmitInFlight
	}
	defer session.endSubmit()

	if !w.fsm.Transition(session, StateSubmitting) {
		return fmt.Errorf("%w: submit in state %s", ErrInvalidTransition, session.GetState())
	}

	session.mu.Lock()
	mark, err := availability.ParseSlot(session.Date, session.TimeLabel)
	req := backend.CreateAppointmentRequest{
		UserID:       session.UserID,
		ServiceID:    session.ServiceID,
		BarberID:     session.BarberID,
		BarbershopID: session.BarbershopID,
	}
	session.mu.Unlock()
	if err != nil {
		w.fail(ctx, session, err)
		return err
	}
	req.ScheduledAt = mark.Format("2006-01-02T15:04:05-07:00")

	_, err = w.api.CreateAppointment(ctx, req)
	if err != nil {
		w.fail(ctx, session, err)
		return err
	}

	// Refresh strictly after the create resolved, never concurrently.
	metrics.IncBookingSubmitted("succeeded")
	w.fsm.Transition(session, StateSucceeded)
	if err := w.Refresh(ctx, session); err != nil {
		w.logger.Warn().Err(err).Int64("user_id", userID).Msg("post-booking refresh failed")
	}
	w.publish(events.TypeBookingSucceeded, userID)

	time.AfterFunc(w.resetDelay, func() {
		if session.GetState() != StateSucceeded {
			return
		}
		session.resetSelections()
		w.fsm.Transition(session, StateSelectingService)
	})
	return nil
}

// fail records a backend rejection: the session lands back on the
// date/time step with the server's message, selections preserved.
func (w *Wizard) fail(ctx context.Context, session *Session, cause error) {
	metrics.IncBookingSubmitted("failed")
	w.fsm.Transition(session, StateFailed)

	session.mu.Lock()
	session.SubmitError = cause.Error()
	session.mu.Unlock()

	if err := w.Refresh(ctx, session); err != nil {
		w.logger.Warn().Err(err).Int64("user_id", session.UserID).Msg("post-failure refresh failed")
	}
	w.publish(events.TypeBookingFailed, session.UserID)
	w.fsm.Transition(session, StateSelectingDateTime)
}

// Refresh reloads the appointment list into the session and notifies
// subscribers. On fetch failure the previous view is kept and the error
// surfaces to the caller's panel.
func (w *Wizard) Refresh(ctx context.Context, session *Session) error {
	appointments, err := w.api.ListAppointments(ctx)
	if err != nil {
		return fmt.Errorf("refresh appointments: %w", err)
	}
	session.SetAppointments(appointments)
	w.publish(events.TypeAppointmentsRefreshed, session.UserID)
	return nil
}

// CleanupSessions drops expired sessions; meant to run periodically.
func (w *Wizard) CleanupSessions() int {
	return w.store.Cleanup()
}

func (w *Wizard) publish(eventType string, userID int64) {
	if w.bus == nil {
		return
	}
	w.bus.Publish(events.Event{Type: eventType, UserID: userID})
}
