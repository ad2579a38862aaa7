// Package bot is the Telegram front end of the booking flow.
package bot

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"barberia/internal/availability"
	"barberia/internal/export"
	"barberia/internal/flow"
	"barberia/internal/gate"
)

// Bot wires Telegram updates to the flow controller.
type Bot struct {
	tg      telegramClient
	ctrl    *flow.Controller
	admins  map[int64]struct{}
	limiter *rate.Limiter
	logger  *zerolog.Logger

	mu       sync.Mutex
	inflight map[int64]bool // at-most-one confirm per chat
}

// New creates the bot against the real Telegram API.
func New(token string, ctrl *flow.Controller, admins []int64, logger *zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return newBot(&realTelegramClient{api: api}, ctrl, admins, logger)
}

// NewWithTelegramClient allows injecting a mocked Telegram client for tests.
func NewWithTelegramClient(tg telegramClient, ctrl *flow.Controller, admins []int64, logger *zerolog.Logger) (*Bot, error) {
	return newBot(tg, ctrl, admins, logger)
}

func newBot(tg telegramClient, ctrl *flow.Controller, admins []int64, logger *zerolog.Logger) (*Bot, error) {
	if tg == nil {
		return nil, fmt.Errorf("telegram client is nil")
	}
	adm := make(map[int64]struct{})
	for _, id := range admins {
		adm[id] = struct{}{}
	}
	return &Bot{
		tg:       tg,
		ctrl:     ctrl,
		admins:   adm,
		limiter:  rate.NewLimiter(rate.Limit(20), 30),
		logger:   logger,
		inflight: make(map[int64]bool),
	}, nil
}

// Start begins polling updates and dispatches them.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.tg.GetUpdatesChan(u)
	b.logger.Info().Str("username", b.tg.SelfUser().UserName).Msg("booking bot authorized")

	for {
		select {
		case <-ctx.Done():
			return
		case update := <-updates:
			requestID := uuid.New().String()
			l := b.logger.With().Str("request_id", requestID).Logger()
			updateCtx := l.WithContext(ctx)
			b.handleUpdate(updateCtx, &update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update *tgbotapi.Update) {
	l := zerolog.Ctx(ctx)
	if update.CallbackQuery != nil {
		l.Debug().
			Int64("user_id", update.CallbackQuery.From.ID).
			Str("data", update.CallbackQuery.Data).
			Msg("handling callback query")
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message != nil {
		l.Debug().
			Int64("user_id", update.Message.From.ID).
			Str("text", update.Message.Text).
			Msg("handling message")
		b.handleMessage(ctx, update.Message)
		return
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg == nil {
		return
	}
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	if strings.HasPrefix(text, "/") {
		b.handleCommand(ctx, msg, text)
		return
	}

	switch b.ctrl.Step(chatID) {
	case flow.StateVerifying:
		b.handlePhoneInput(ctx, chatID, text)
	case flow.StateNewClient:
		b.handleNameInput(ctx, chatID, text)
	case flow.StateBooking:
		b.reply(chatID, "Usa los botones para elegir servicios, fecha y hora.")
	case flow.StateConfirmed:
		b.sendMessage(chatID, "Tu cita ya está confirmada.", ResetKeyboard())
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, text string) {
	chatID := msg.Chat.ID
	cmd, args, _ := strings.Cut(text, " ")

	switch {
	case cmd == "/start":
		b.ctrl.ResetBooking(chatID)
		b.sendWelcome(chatID)
	case cmd == "/help":
		b.reply(chatID, "Envía tu número para agendar una cita. /start reinicia el proceso.")
	case cmd == "/admin":
		b.handleAdminPanel(chatID, msg.From.ID)
	case cmd == "/login":
		b.handleAdminLogin(ctx, chatID, msg.From.ID, args)
	case cmd == "/logout":
		b.handleAdminOnly(chatID, msg.From.ID, func() {
			res := b.ctrl.AdminLogout()
			if res.Err != nil {
				zerolog.Ctx(ctx).Error().Err(res.Err).Msg("admin logout failed")
				b.reply(chatID, res.Message)
				return
			}
			b.reply(chatID, "Sesión cerrada.")
		})
	case cmd == "/citas":
		b.handleAdminAppointments(ctx, chatID, msg.From.ID)
	case strings.HasPrefix(cmd, "/cancelar_"):
		b.handleAdminCancel(ctx, chatID, msg.From.ID, strings.TrimPrefix(cmd, "/cancelar_"))
	case cmd == "/cancelar":
		b.handleAdminCancel(ctx, chatID, msg.From.ID, strings.TrimSpace(args))
	case cmd == "/addservicio":
		b.handleAdminAddService(ctx, chatID, msg.From.ID, args)
	case cmd == "/delservicio":
		b.handleAdminDeleteService(ctx, chatID, msg.From.ID, strings.TrimSpace(args))
	case cmd == "/export":
		b.handleAdminExport(ctx, chatID, msg.From.ID)
	default:
		b.reply(chatID, "Comando desconocido. Usa /help.")
	}
}

func (b *Bot) sendWelcome(chatID int64) {
	b.reply(chatID, "Bienvenido a La Barbería 💈\nIngresa tu número de teléfono (9 dígitos después de +593):")
}

func (b *Bot) handlePhoneInput(ctx context.Context, chatID int64, text string) {
	digits := strings.TrimSpace(strings.TrimPrefix(text, "+593"))
	digits = strings.ReplaceAll(digits, " ", "")

	res := b.ctrl.VerifyPhone(ctx, chatID, digits)
	if res.Err != nil {
		zerolog.Ctx(ctx).Error().Err(res.Err).Msg("phone verification failed")
	}
	if res.Message != "" {
		b.reply(chatID, res.Message)
	}
	if res.State == flow.StateBooking {
		b.mountSlotUpdates(chatID)
		b.sendBookingMenu(ctx, chatID)
	}
}

func (b *Bot) handleNameInput(ctx context.Context, chatID int64, text string) {
	res := b.ctrl.RegisterClient(ctx, chatID, text)
	if res.Err != nil {
		zerolog.Ctx(ctx).Error().Err(res.Err).Msg("client registration failed")
	}
	if res.Message != "" {
		b.reply(chatID, res.Message)
	}
	if res.State == flow.StateBooking {
		b.mountSlotUpdates(chatID)
		b.sendBookingMenu(ctx, chatID)
	}
}

// mountSlotUpdates pushes the slot keyboard whenever a fresh list is applied
// for the chat's current date. Stale fetches never reach here.
func (b *Bot) mountSlotUpdates(chatID int64) {
	b.ctrl.OnSlotsUpdate(chatID, func(snap availability.Snapshot) {
		if snap.ErrMsg != "" {
			b.reply(chatID, snap.ErrMsg)
			return
		}
		if len(snap.Slots) == 0 {
			b.reply(chatID, fmt.Sprintf("No hay horarios disponibles para el %s.", snap.Date.Format("02/01/2006")))
			return
		}
		b.sendMessage(chatID,
			fmt.Sprintf("Horarios disponibles para el %s:", snap.Date.Format("02/01/2006")),
			SlotsKeyboard(snap.Slots))
	})
}

func (b *Bot) sendBookingMenu(ctx context.Context, chatID int64) {
	s := b.ctrl.Session(chatID)
	client := s.Client()
	if client != nil {
		b.reply(chatID, fmt.Sprintf("¡Hola %s! ¿Qué servicios te gustaría agendar hoy?", client.Name))
	}

	services, err := b.ctrl.Services(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to load services")
		b.reply(chatID, "No se pudieron cargar los servicios. Por favor intenta de nuevo.")
		return
	}
	b.sendMessage(chatID, "Selecciona los servicios:", ServicesKeyboard(services, s.HasService))
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq == nil || cq.Message == nil {
		return
	}
	data := cq.Data
	_ = b.answerCallback(cq.ID)
	if data == "noop" {
		return
	}

	chatID := cq.Message.Chat.ID

	// Admin pagination is not part of the booking flow.
	if page, ok := strings.CutPrefix(data, "apage:"); ok {
		b.handleAppointmentsPage(ctx, chatID, cq.From.ID, cq.Message.MessageID, page)
		return
	}

	// Booking callbacks pass the booking gate before their handler runs.
	if d := b.ctrl.Gate(chatID, gate.StepBook); !d.Allow {
		b.redirect(chatID, d.RedirectTo)
		return
	}

	switch {
	case strings.HasPrefix(data, "svc:"):
		b.handleServiceToggle(ctx, chatID, strings.TrimPrefix(data, "svc:"))
	case data == "pickdate":
		b.sendMessage(chatID, "Selecciona una fecha:", DatesKeyboard(time.Now(), 7))
	case strings.HasPrefix(data, "date:"):
		b.handleDateSelect(ctx, chatID, strings.TrimPrefix(data, "date:"))
	case strings.HasPrefix(data, "slot:"):
		b.handleSlotSelect(ctx, chatID, strings.TrimPrefix(data, "slot:"))
	case data == "confirm":
		b.handleConfirm(ctx, chatID)
	case data == "reset":
		b.ctrl.ResetBooking(chatID)
		b.sendWelcome(chatID)
	}
}

func (b *Bot) handleServiceToggle(ctx context.Context, chatID int64, serviceID string) {
	res := b.ctrl.ToggleService(ctx, chatID, serviceID)
	if res.Err != nil {
		zerolog.Ctx(ctx).Error().Err(res.Err).Msg("service toggle failed")
	}
	if res.Message != "" {
		b.reply(chatID, res.Message)
		return
	}

	s := b.ctrl.Session(chatID)
	services, err := b.ctrl.Services(ctx)
	if err == nil {
		b.sendMessage(chatID, FormatSummary(s), ServicesKeyboard(services, s.HasService))
	}
}

func (b *Bot) handleDateSelect(ctx context.Context, chatID int64, dateStr string) {
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		b.reply(chatID, "Fecha inválida.")
		return
	}

	res := b.ctrl.SelectDate(chatID, date)
	if res.Message != "" {
		b.reply(chatID, res.Message)
		return
	}
	b.reply(chatID, "Cargando horarios disponibles...")
}

func (b *Bot) handleSlotSelect(ctx context.Context, chatID int64, slot string) {
	res := b.ctrl.SelectTime(chatID, slot)
	if res.Message != "" {
		b.reply(chatID, res.Message)
		return
	}

	s := b.ctrl.Session(chatID)
	b.sendMessage(chatID, FormatSummary(s), ConfirmKeyboard())
}

func (b *Bot) handleConfirm(ctx context.Context, chatID int64) {
	if d := b.ctrl.Gate(chatID, gate.StepConfirmation); !d.Allow {
		b.redirect(chatID, d.RedirectTo)
		return
	}

	// Disable re-submission while a request is outstanding.
	b.mu.Lock()
	if b.inflight[chatID] {
		b.mu.Unlock()
		return
	}
	b.inflight[chatID] = true
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.inflight, chatID)
		b.mu.Unlock()
	}()

	res := b.ctrl.ConfirmAppointment(ctx, chatID)
	if res.Err != nil {
		zerolog.Ctx(ctx).Error().Err(res.Err).Msg("appointment submission failed")
	}
	if res.Message != "" {
		b.reply(chatID, res.Message)
		return
	}

	b.sendMessage(chatID, FormatConfirmation(b.ctrl.Session(chatID)), ResetKeyboard())
}

// redirect routes the visitor to the step a gate decision named.
func (b *Bot) redirect(chatID int64, to gate.Step) {
	switch to {
	case gate.StepVerify:
		b.ctrl.ResetBooking(chatID)
		b.sendWelcome(chatID)
	case gate.StepAdminLogin:
		b.reply(chatID, "Inicia sesión con /login usuario contraseña")
	default:
		b.sendWelcome(chatID)
	}
}

func (b *Bot) isAdminUser(userID int64) bool {
	_, ok := b.admins[userID]
	return ok
}

// handleAdminOnly runs fn only for whitelisted admin users whose admin
// session passes the gate; otherwise it performs the gate's redirect.
func (b *Bot) handleAdminOnly(chatID, userID int64, fn func()) {
	if !b.isAdminUser(userID) {
		b.reply(chatID, "Comando desconocido. Usa /help.")
		return
	}
	if d := b.ctrl.Gate(chatID, gate.StepAdminDashboard); !d.Allow {
		b.redirect(chatID, d.RedirectTo)
		return
	}
	fn()
}

func (b *Bot) handleAdminPanel(chatID, userID int64) {
	b.handleAdminOnly(chatID, userID, func() {
		b.reply(chatID, "Panel de administración:\n"+
			"/citas — ver citas\n"+
			"/cancelar <id> — cancelar cita\n"+
			"/addservicio Nombre | precio | duración\n"+
			"/delservicio <id> — eliminar servicio\n"+
			"/export — exportar citas a Excel\n"+
			"/logout — cerrar sesión")
	})
}

func (b *Bot) handleAdminLogin(ctx context.Context, chatID, userID int64, args string) {
	if !b.isAdminUser(userID) {
		b.reply(chatID, "Comando desconocido. Usa /help.")
		return
	}

	username, password, _ := strings.Cut(strings.TrimSpace(args), " ")
	res := b.ctrl.AdminLogin(ctx, username, password)
	if res.Err != nil {
		zerolog.Ctx(ctx).Warn().Err(res.Err).Int64("user_id", userID).Msg("admin login rejected")
	}
	if res.Message != "" {
		b.reply(chatID, res.Message)
		return
	}
	b.reply(chatID, "Sesión iniciada. Usa /admin para ver el panel.")
}

func (b *Bot) handleAdminAppointments(ctx context.Context, chatID, userID int64) {
	b.handleAdminOnly(chatID, userID, func() {
		appts, err := b.ctrl.AdminAppointments(ctx)
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("failed to list appointments")
			b.reply(chatID, "No se pudieron cargar las citas.")
			return
		}
		text, kb := AppointmentsPage(appts, 0)
		b.sendMessage(chatID, text, kb)
	})
}

// handleAppointmentsPage refetches the list and edits the paged message in
// place. The list may have changed since the page was rendered, so the page
// index is clamped, not trusted.
func (b *Bot) handleAppointmentsPage(ctx context.Context, chatID, userID int64, messageID int, pageStr string) {
	b.handleAdminOnly(chatID, userID, func() {
		page, err := strconv.Atoi(pageStr)
		if err != nil {
			return
		}
		appts, err := b.ctrl.AdminAppointments(ctx)
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("failed to list appointments")
			b.reply(chatID, "No se pudieron cargar las citas.")
			return
		}
		text, kb := AppointmentsPage(appts, page)
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, kb)
		b.send(edit)
	})
}

func (b *Bot) handleAdminCancel(ctx context.Context, chatID, userID int64, id string) {
	b.handleAdminOnly(chatID, userID, func() {
		if id == "" {
			b.reply(chatID, "Uso: /cancelar <id>")
			return
		}
		if err := b.ctrl.AdminCancelAppointment(ctx, id); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("appointment_id", id).Msg("failed to cancel appointment")
			b.reply(chatID, "No se pudo cancelar la cita.")
			return
		}
		b.reply(chatID, "Cita cancelada.")
	})
}

func (b *Bot) handleAdminAddService(ctx context.Context, chatID, userID int64, args string) {
	b.handleAdminOnly(chatID, userID, func() {
		parts := strings.Split(args, "|")
		if len(parts) != 3 {
			b.reply(chatID, "Uso: /addservicio Nombre | precio | duración (ej. 30 m)")
			return
		}
		name := strings.TrimSpace(parts[0])
		price, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			b.reply(chatID, "Precio inválido.")
			return
		}
		duration := strings.TrimSpace(parts[2])

		svc, err := b.ctrl.AdminAddService(ctx, name, price, duration)
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("failed to add service")
			b.reply(chatID, "No se pudo crear el servicio.")
			return
		}
		b.reply(chatID, fmt.Sprintf("Servicio creado: %s — $%.2f (%s)", svc.Name, svc.Price, svc.Duration))
	})
}

func (b *Bot) handleAdminDeleteService(ctx context.Context, chatID, userID int64, id string) {
	b.handleAdminOnly(chatID, userID, func() {
		if id == "" {
			b.reply(chatID, "Uso: /delservicio <id>")
			return
		}
		if err := b.ctrl.AdminDeleteService(ctx, id); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("service_id", id).Msg("failed to delete service")
			b.reply(chatID, "No se pudo eliminar el servicio.")
			return
		}
		b.reply(chatID, "Servicio eliminado.")
	})
}

func (b *Bot) handleAdminExport(ctx context.Context, chatID, userID int64) {
	b.handleAdminOnly(chatID, userID, func() {
		appts, err := b.ctrl.AdminAppointments(ctx)
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("failed to list appointments for export")
			b.reply(chatID, "No se pudieron cargar las citas.")
			return
		}

		var buf bytes.Buffer
		if err := export.WriteAppointments(&buf, appts); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("failed to build export workbook")
			b.reply(chatID, "No se pudo generar el archivo.")
			return
		}

		name := fmt.Sprintf("citas_%s.xlsx", time.Now().Format("20060102_150405"))
		doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: buf.Bytes()})
		b.send(doc)
	})
}

func (b *Bot) reply(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) sendMessage(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	b.send(msg)
}

func (b *Bot) send(msg tgbotapi.Chattable) {
	_ = b.limiter.Wait(context.Background())
	if _, err := b.tg.Send(msg); err != nil {
		b.logger.Error().Err(err).Msg("telegram send failed")
	}
}

func (b *Bot) answerCallback(id string) error {
	_, err := b.tg.Request(tgbotapi.NewCallback(id, ""))
	return err
}
