package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"barberia/internal/backend"
)

const appointmentsPerPage = 8

// AppointmentsPage renders one page of the admin appointment list with
// navigation buttons. Page is zero-based and clamped to the valid range.
func AppointmentsPage(appts []backend.Appointment, page int) (string, tgbotapi.InlineKeyboardMarkup) {
	if len(appts) == 0 {
		return "No hay citas agendadas.", tgbotapi.NewInlineKeyboardMarkup(
			[]tgbotapi.InlineKeyboardButton{tgbotapi.NewInlineKeyboardButtonData("Actualizar", "apage:0")},
		)
	}

	pages := (len(appts) + appointmentsPerPage - 1) / appointmentsPerPage
	if page < 0 {
		page = 0
	}
	if page >= pages {
		page = pages - 1
	}

	start := page * appointmentsPerPage
	end := start + appointmentsPerPage
	if end > len(appts) {
		end = len(appts)
	}

	var text strings.Builder
	fmt.Fprintf(&text, "Citas agendadas (página %d de %d):\n\n", page+1, pages)
	for i, a := range appts[start:end] {
		fmt.Fprintf(&text, "%d. %s — %s %s\n", start+i+1, a.Name, a.Date, a.Time)
		if len(a.Services) > 0 {
			fmt.Fprintf(&text, "   %s\n", strings.Join(a.Services, ", "))
		}
		fmt.Fprintf(&text, "   Cancelar: /cancelar_%s\n\n", a.ID)
	}

	var nav []tgbotapi.InlineKeyboardButton
	if page > 0 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("⬅️ Anterior", fmt.Sprintf("apage:%d", page-1)))
	}
	if end < len(appts) {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("Siguiente ➡️", fmt.Sprintf("apage:%d", page+1)))
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("Actualizar", fmt.Sprintf("apage:%d", page)),
	})
	return text.String(), tgbotapi.NewInlineKeyboardMarkup(rows...)
}
