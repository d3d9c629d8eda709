package models

import "time"

// Appointment statuses as the backend stores them.
const (
	StatusPending   = "Pendente"
	StatusConfirmed = "Confirmado"
	StatusCompleted = "Concluido"
	StatusCancelled = "Cancelado"
)

// Service is a read-only catalog entry fetched from the backend.
type Service struct {
	ID           int64   `json:"id"`
	Name         string  `json:"nome"`
	Duration     int     `json:"duracao"` // minutes
	Price        float64 `json:"preco"`
	Category     string  `json:"categoria,omitempty"`
	BarbershopID *int64  `json:"barbearia_id,omitempty"`
}

// Barber is a read-only catalog entry fetched from the backend.
type Barber struct {
	ID           int64    `json:"id"`
	Name         string   `json:"nome"`
	Specialties  []string `json:"especialidades,omitempty"`
	Rating       float64  `json:"mediaAvaliacao"`
	Available    bool     `json:"disponibilidade"`
	BarbershopID int64    `json:"barbearia_id"`
}

// Barbershop is a partner shop. Latitude/Longitude are pointers because
// the backend allows them to be unset; a shop without both coordinates
// never appears on the map or in distance ranking.
type Barbershop struct {
	ID        int64    `json:"id"`
	Name      string   `json:"nome"`
	Address   string   `json:"endereco"`
	Phone     string   `json:"telefone,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	OpenTime  string   `json:"horarioAbertura,omitempty"`  // "09:00"
	CloseTime string   `json:"horarioFechamento,omitempty"` // "18:00"
	ImageURL  string   `json:"fotoBarbearia,omitempty"`
	Active    bool     `json:"ativo"`
	Partner   bool     `json:"parceira"`
}

// HasCoordinates reports whether the shop can be placed on the map.
func (b *Barbershop) HasCoordinates() bool {
	return b.Latitude != nil && b.Longitude != nil
}

// Appointment represents a booking record owned by the backend.
// The client only creates new ones and reads existing ones to compute
// occupied slots.
type Appointment struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"usuario_id"`
	ServiceID    int64     `json:"servico_id"`
	BarberID     int64     `json:"barbeiro_id"`
	BarbershopID int64     `json:"barbearia_id"`
	ScheduledAt  time.Time `json:"dataAgendamento"`
	Status       string    `json:"statusAgendamento"`
	ServiceName  string    `json:"servicoNome,omitempty"`
	BarberName   string    `json:"barbeiroNome,omitempty"`
}

// IsPending reports whether the appointment still awaits confirmation.
func (a *Appointment) IsPending() bool {
	return a.Status == StatusPending
}

// IsActive reports whether the appointment still occupies its slot.
// Cancelled appointments free the slot; everything else keeps it.
func (a *Appointment) IsActive() bool {
	return a.Status != StatusCancelled
}

// OccupiesSlot reports whether this appointment consumes the exact
// (barber, date-time) mark. Equality is exact, not interval overlap:
// the service's own duration does not reserve following marks.
func (a *Appointment) OccupiesSlot(barberID int64, at time.Time) bool {
	return a.BarberID == barberID && a.ScheduledAt.Equal(at)
}

// User identifies the authenticated client.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"nome"`
	Email string `json:"email,omitempty"`
}
