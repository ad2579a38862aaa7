package flow

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"barberia/internal/availability"
	"barberia/internal/backend"
	"barberia/internal/db"
	"barberia/internal/gate"
	"barberia/internal/metrics"
	"barberia/internal/session"
)

// API is the backend surface the flow depends on.
type API interface {
	CheckClient(ctx context.Context, phone string) (*session.Client, error)
	CreateClient(ctx context.Context, phone, name string) (*session.Client, error)
	ListServices(ctx context.Context) ([]session.Service, error)
	AvailableSlots(ctx context.Context, date time.Time) ([]string, error)
	CreateAppointment(ctx context.Context, req backend.AppointmentRequest) (*backend.Appointment, error)
	AdminLogin(ctx context.Context, username, password string) (string, error)
	ListAppointments(ctx context.Context) ([]backend.Appointment, error)
	CancelAppointment(ctx context.Context, id string) error
	AddService(ctx context.Context, name string, price float64, duration string) (*session.Service, error)
	DeleteService(ctx context.Context, id string) error
}

// AuditLog records created appointments locally. Satisfied by *db.DB.
type AuditLog interface {
	LogAppointment(ctx context.Context, rec db.AppointmentRecord) error
}

// Result is the outcome of a flow transition. Message is user-facing; Err is
// the underlying cause for logging.
type Result struct {
	State   State
	Message string
	Err     error
}

const (
	msgGenericError  = "Ocurrió un error. Por favor intenta de nuevo."
	msgBadPhoneFmt   = "El número debe tener %d dígitos después de %s"
	msgAskName       = "Parece que es tu primera visita. Por favor ingresa tu nombre completo."
	msgNameRequired  = "Por favor ingresa tu nombre completo"
	msgNoServices    = "Por favor selecciona al menos un servicio."
	msgNoDate        = "Por favor selecciona una fecha."
	msgNoTime        = "Por favor selecciona una hora."
	msgSlotGone      = "Ese horario ya no está disponible. Elige otro."
	msgSubmitError   = "Ocurrió un error al agendar tu cita. Por favor intenta de nuevo."
	msgBadCreds      = "Credenciales incorrectas. Por favor intenta de nuevo."
	msgCredsRequired = "Por favor ingresa usuario y contraseña"
)

// visitor ties a booking session to its flow step and slot coordinator.
type visitor struct {
	session      *session.Session
	coord        *availability.Coordinator
	state        State
	pendingPhone string
}

// Controller composes the session state, the access gates and the
// availability coordinator over the backend API.
type Controller struct {
	api      API
	fsm      *FSM
	sessions *session.Store
	admin    *session.Admin
	audit    AuditLog
	logger   zerolog.Logger

	prefix        string
	subscriberLen int

	mu       sync.Mutex
	visitors map[int64]*visitor
}

// NewController creates the flow controller. audit may be nil.
func NewController(
	api API,
	sessions *session.Store,
	admin *session.Admin,
	audit AuditLog,
	prefix string,
	subscriberLen int,
	logger zerolog.Logger,
) *Controller {
	if prefix == "" {
		prefix = "+593"
	}
	if subscriberLen <= 0 {
		subscriberLen = 9
	}
	return &Controller{
		api:           api,
		fsm:           NewFSM(),
		sessions:      sessions,
		admin:         admin,
		audit:         audit,
		logger:        logger,
		prefix:        prefix,
		subscriberLen: subscriberLen,
		visitors:      make(map[int64]*visitor),
	}
}

// visitor returns the flow state for a chat, resetting it to the start when
// the underlying session expired and was recreated.
func (c *Controller) visitor(chatID int64) *visitor {
	s := c.sessions.GetOrCreate(chatID)
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.visitors[chatID]
	if v == nil || v.session != s {
		v = &visitor{session: s, state: StateVerifying}
		c.visitors[chatID] = v
	}
	return v
}

// Step returns the current flow step for a chat.
func (c *Controller) Step(chatID int64) State {
	return c.visitor(chatID).state
}

// Session exposes the booking session for rendering.
func (c *Controller) Session(chatID int64) *session.Session {
	return c.visitor(chatID).session
}

// Availability returns the slot snapshot for rendering, or an idle snapshot
// before the visitor reaches the booking step.
func (c *Controller) Availability(chatID int64) availability.Snapshot {
	v := c.visitor(chatID)
	if v.coord == nil {
		return availability.Snapshot{State: availability.StateIdle}
	}
	return v.coord.Snapshot()
}

// OnSlotsUpdate registers the callback invoked whenever a fresh slot list is
// applied for a chat's current date.
func (c *Controller) OnSlotsUpdate(chatID int64, fn func(availability.Snapshot)) {
	v := c.visitor(chatID)
	if v.coord != nil {
		v.coord.OnUpdate(fn)
	}
}

// Gate evaluates the access gate for a step. The caller performs the
// redirect the decision names; the gate itself has no side effects.
func (c *Controller) Gate(chatID int64, step gate.Step) gate.Decision {
	v := c.visitor(chatID)
	switch step {
	case gate.StepBook:
		return gate.Booking(v.session)
	case gate.StepConfirmation:
		return gate.Confirmation(v.session)
	case gate.StepAdminDashboard:
		return gate.Admin(c.admin)
	default:
		return gate.Decision{Allow: true}
	}
}

// VerifyPhone resolves the visitor by phone. A short or non-numeric
// subscriber part is rejected locally before any network call. A lookup miss
// is not an error: the flow branches to new-client name entry.
func (c *Controller) VerifyPhone(ctx context.Context, chatID int64, subscriber string) Result {
	v := c.visitor(chatID)

	subscriber = strings.TrimSpace(subscriber)
	if !isNumeric(subscriber) || len(subscriber) != c.subscriberLen {
		metrics.IncPhoneVerification("invalid")
		return Result{State: v.state, Message: fmt.Sprintf(msgBadPhoneFmt, c.subscriberLen, c.prefix)}
	}

	phone := c.prefix + subscriber
	client, err := c.api.CheckClient(ctx, phone)
	if err != nil {
		metrics.IncPhoneVerification("error")
		return Result{State: v.state, Message: msgGenericError, Err: err}
	}

	if client == nil {
		metrics.IncPhoneVerification("new")
		c.transition(v, StateNewClient)
		v.pendingPhone = phone
		return Result{State: v.state, Message: msgAskName}
	}

	metrics.IncPhoneVerification("known")
	c.attach(ctx, v, client)
	c.transition(v, StateBooking)
	return Result{State: v.state}
}

// RegisterClient creates a new client from the pending phone and the given
// name, then enters the booking step.
func (c *Controller) RegisterClient(ctx context.Context, chatID int64, name string) Result {
	v := c.visitor(chatID)
	if v.state != StateNewClient || v.pendingPhone == "" {
		return Result{State: v.state, Message: msgGenericError}
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return Result{State: v.state, Message: msgNameRequired}
	}

	client, err := c.api.CreateClient(ctx, v.pendingPhone, name)
	if err != nil {
		return Result{State: v.state, Message: msgGenericError, Err: err}
	}

	v.pendingPhone = ""
	c.attach(ctx, v, client)
	c.transition(v, StateBooking)
	return Result{State: v.state}
}

// attach binds the resolved client to the session and mounts the
// availability coordinator, which immediately fetches slots for the default
// date.
func (c *Controller) attach(ctx context.Context, v *visitor, client *session.Client) {
	v.session.SetClient(client)
	v.coord = availability.New(c.api, c.logger)
	coord := v.coord
	v.session.OnDateChange(func(d time.Time) {
		coord.SetDate(context.WithoutCancel(ctx), d)
	})
	coord.SetDate(context.WithoutCancel(ctx), v.session.Date())
}

// Services returns the catalog for rendering, logging any entry whose
// duration would contribute zero minutes to the total.
func (c *Controller) Services(ctx context.Context) ([]session.Service, error) {
	services, err := c.api.ListServices(ctx)
	if err != nil {
		return nil, err
	}
	for _, svc := range services {
		if _, ok := session.ParseDuration(svc.Duration); !ok {
			c.logger.Warn().
				Str("service_id", svc.ID).
				Str("duration", svc.Duration).
				Msg("catalog entry has malformed duration, counted as 0 minutes")
		}
	}
	return services, nil
}

// ToggleService adds or removes a catalog service from the selection.
func (c *Controller) ToggleService(ctx context.Context, chatID int64, serviceID string) Result {
	v := c.visitor(chatID)
	if d := gate.Booking(v.session); !d.Allow {
		return Result{State: StateVerifying, Message: msgGenericError}
	}

	services, err := c.api.ListServices(ctx)
	if err != nil {
		return Result{State: v.state, Message: msgGenericError, Err: err}
	}
	for _, svc := range services {
		if svc.ID == serviceID {
			v.session.ToggleService(svc)
			return Result{State: v.state}
		}
	}
	return Result{State: v.state, Message: msgGenericError, Err: fmt.Errorf("unknown service %q", serviceID)}
}

// SelectDate replaces the selected date. The session clears the selected
// time and the coordinator refetches slots for the new date.
func (c *Controller) SelectDate(chatID int64, date time.Time) Result {
	v := c.visitor(chatID)
	if d := gate.Booking(v.session); !d.Allow {
		return Result{State: StateVerifying, Message: msgGenericError}
	}
	v.session.SetDate(date)
	return Result{State: v.state}
}

// SelectTime records a slot choice, validated against the slots currently
// held for the current date. A slot from a superseded fetch is rejected.
func (c *Controller) SelectTime(chatID int64, slot string) Result {
	v := c.visitor(chatID)
	if d := gate.Booking(v.session); !d.Allow {
		return Result{State: StateVerifying, Message: msgGenericError}
	}
	if v.coord == nil || !v.coord.CanSelect(slot) {
		return Result{State: v.state, Message: msgSlotGone}
	}
	v.session.SetTime(slot)
	return Result{State: v.state}
}

// ConfirmAppointment submits the booking. Services, date and time are
// re-validated immediately before submission; on backend failure the session
// is left unchanged.
func (c *Controller) ConfirmAppointment(ctx context.Context, chatID int64) Result {
	v := c.visitor(chatID)

	s := v.session
	if s.Client() == nil {
		return Result{State: StateVerifying, Message: msgGenericError}
	}
	if s.ServiceCount() == 0 {
		return Result{State: v.state, Message: msgNoServices}
	}
	if s.Date().IsZero() {
		return Result{State: v.state, Message: msgNoDate}
	}
	if s.Time() == "" {
		return Result{State: v.state, Message: msgNoTime}
	}

	client := s.Client()
	selected := s.Services()
	ids := make([]string, 0, len(selected))
	names := make([]string, 0, len(selected))
	for _, svc := range selected {
		ids = append(ids, svc.ID)
		names = append(names, svc.Name)
	}

	req := backend.AppointmentRequest{
		Phone:    client.Phone,
		Name:     client.Name,
		Services: ids,
		Date:     s.Date().Format("2006-01-02"),
		Time:     s.Time(),
	}

	if _, err := c.api.CreateAppointment(ctx, req); err != nil {
		metrics.IncAppointmentCreated("error")
		return Result{State: v.state, Message: msgSubmitError, Err: err}
	}

	metrics.IncAppointmentCreated("ok")
	if c.audit != nil {
		rec := db.AppointmentRecord{
			ChatID:     chatID,
			Phone:      client.Phone,
			ClientName: client.Name,
			Services:   strings.Join(names, ", "),
			Date:       req.Date,
			Time:       req.Time,
			TotalPrice: s.TotalPrice(),
		}
		if err := c.audit.LogAppointment(ctx, rec); err != nil {
			c.logger.Error().Err(err).Msg("failed to write appointment audit row")
		}
	}

	c.transition(v, StateConfirmed)
	return Result{State: v.state}
}

// ResetBooking clears the booking and returns the visitor to the start. The
// coordinator is unmounted; a fresh one is created on the next verification.
func (c *Controller) ResetBooking(chatID int64) Result {
	v := c.visitor(chatID)
	v.session.OnDateChange(nil)
	v.session.ResetBooking()
	v.coord = nil
	v.pendingPhone = ""
	v.state = StateVerifying
	return Result{State: v.state}
}

// AdminLogin exchanges credentials for a token and persists it. Backend
// rejection maps to an invalid-credentials message.
func (c *Controller) AdminLogin(ctx context.Context, username, password string) Result {
	if strings.TrimSpace(username) == "" || password == "" {
		return Result{Message: msgCredsRequired}
	}

	token, err := c.api.AdminLogin(ctx, username, password)
	if err != nil {
		metrics.IncAdminLogin("denied")
		return Result{Message: msgBadCreds, Err: err}
	}
	if err := c.admin.Login(token); err != nil {
		metrics.IncAdminLogin("error")
		return Result{Message: msgGenericError, Err: err}
	}
	metrics.IncAdminLogin("ok")
	return Result{}
}

// AdminLogout discards the stored token.
func (c *Controller) AdminLogout() Result {
	if err := c.admin.Logout(); err != nil {
		return Result{Message: msgGenericError, Err: err}
	}
	return Result{}
}

// AdminAppointments lists all appointments, gated on the admin session.
func (c *Controller) AdminAppointments(ctx context.Context) ([]backend.Appointment, error) {
	if d := gate.Admin(c.admin); !d.Allow {
		return nil, fmt.Errorf("admin session required")
	}
	return c.api.ListAppointments(ctx)
}

// AdminCancelAppointment deletes an appointment, gated on the admin session.
func (c *Controller) AdminCancelAppointment(ctx context.Context, id string) error {
	if d := gate.Admin(c.admin); !d.Allow {
		return fmt.Errorf("admin session required")
	}
	return c.api.CancelAppointment(ctx, id)
}

// AdminAddService creates a catalog service, gated on the admin session.
func (c *Controller) AdminAddService(ctx context.Context, name string, price float64, duration string) (*session.Service, error) {
	if d := gate.Admin(c.admin); !d.Allow {
		return nil, fmt.Errorf("admin session required")
	}
	if strings.TrimSpace(name) == "" || price < 0 {
		return nil, fmt.Errorf("invalid service: name and non-negative price required")
	}
	if _, ok := session.ParseDuration(duration); !ok {
		return nil, fmt.Errorf("invalid duration %q: expected forms like \"30 m\" or \"1 h\"", duration)
	}
	return c.api.AddService(ctx, name, price, duration)
}

// AdminDeleteService removes a catalog service, gated on the admin session.
func (c *Controller) AdminDeleteService(ctx context.Context, id string) error {
	if d := gate.Admin(c.admin); !d.Allow {
		return fmt.Errorf("admin session required")
	}
	return c.api.DeleteService(ctx, id)
}

// transition applies an FSM transition, logging any attempt the table does
// not allow. State is still forced for the caller's target to keep the
// visitor unstuck; the log is the signal that a handler misfired.
func (c *Controller) transition(v *visitor, to State) {
	if !c.fsm.CanTransition(v.state, to) {
		c.logger.Warn().
			Str("from", string(v.state)).
			Str("to", string(to)).
			Msg("flow transition outside table")
	}
	v.state = to
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
