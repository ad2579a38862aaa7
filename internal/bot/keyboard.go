package bot

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"barberia/internal/session"
)

// ServicesKeyboard builds the service toggle keyboard. Selected services are
// marked; pressing a selected one removes it.
func ServicesKeyboard(services []session.Service, selected func(id string) bool) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(services)+1)
	for _, svc := range services {
		mark := "▫️"
		if selected(svc.ID) {
			mark = "✅"
		}
		label := fmt.Sprintf("%s %s — $%.2f (%s)", mark, svc.Name, svc.Price, svc.Duration)
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(label, "svc:"+svc.ID),
		})
	}
	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("📅 Elegir fecha", "pickdate"),
	})
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// DatesKeyboard offers the next days for selection, starting today.
func DatesKeyboard(from time.Time, days int) tgbotapi.InlineKeyboardMarkup {
	if days <= 0 {
		days = 7
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0)
	var row []tgbotapi.InlineKeyboardButton
	for i := 0; i < days; i++ {
		d := from.AddDate(0, 0, i)
		label := d.Format("02/01")
		if i == 0 {
			label = "Hoy"
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, "date:"+d.Format("2006-01-02")))
		if len(row) == 4 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// SlotsKeyboard lists the available time labels, grouped into rows of 3.
func SlotsKeyboard(slots []string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0)
	var row []tgbotapi.InlineKeyboardButton
	for _, slot := range slots {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(slot, "slot:"+slot))
		if len(row) == 3 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Cambiar fecha", "pickdate"),
	})
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// ConfirmKeyboard offers appointment submission.
func ConfirmKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✔️ Confirmar cita", "confirm"),
			tgbotapi.NewInlineKeyboardButtonData("🗑 Empezar de nuevo", "reset"),
		),
	)
}

// ResetKeyboard offers starting over after a confirmed booking.
func ResetKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📅 Agendar otra cita", "reset"),
		),
	)
}

// FormatSummary renders the per-service lines plus totals.
func FormatSummary(s *session.Session) string {
	services := s.Services()
	if len(services) == 0 {
		return "Aún no has seleccionado servicios."
	}

	var b strings.Builder
	b.WriteString("Resumen de servicios:\n")
	for _, svc := range services {
		fmt.Fprintf(&b, "• %s — $%.2f\n", svc.Name, svc.Price)
	}
	total := s.TotalDuration()
	if total == "" {
		fmt.Fprintf(&b, "\nTotal: $%.2f", s.TotalPrice())
	} else {
		fmt.Fprintf(&b, "\nTotal (%s): $%.2f", total, s.TotalPrice())
	}
	if !s.Date().IsZero() {
		fmt.Fprintf(&b, "\nFecha: %s", s.Date().Format("02/01/2006"))
	}
	if s.Time() != "" {
		fmt.Fprintf(&b, "\nHora: %s", s.Time())
	}
	return b.String()
}

// FormatConfirmation renders the read-only summary after booking.
func FormatConfirmation(s *session.Session) string {
	client := s.Client()
	name := ""
	if client != nil {
		name = client.Name
	}
	var b strings.Builder
	fmt.Fprintf(&b, "✅ ¡Cita confirmada!\n\n👤 %s\n", name)
	for _, svc := range s.Services() {
		fmt.Fprintf(&b, "✂️ %s — $%.2f\n", svc.Name, svc.Price)
	}
	fmt.Fprintf(&b, "📅 %s, %s\n", s.Date().Format("02/01/2006"), s.Time())
	total := s.TotalDuration()
	if total != "" {
		fmt.Fprintf(&b, "⏱ %s\n", total)
	}
	fmt.Fprintf(&b, "💵 $%.2f\n\n¡Te esperamos!", s.TotalPrice())
	return b.String()
}
