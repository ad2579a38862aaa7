package bot

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barberia/internal/backend"
)

func sampleAppointments(n int) []backend.Appointment {
	appts := make([]backend.Appointment, 0, n)
	for i := 0; i < n; i++ {
		appts = append(appts, backend.Appointment{
			ID:       fmt.Sprintf("a%d", i+1),
			Name:     fmt.Sprintf("Cliente %d", i+1),
			Services: []string{"Corte"},
			Date:     "2026-09-01",
			Time:     fmt.Sprintf("%02d:00", 9+i%8),
		})
	}
	return appts
}

func TestAppointmentsPageEmpty(t *testing.T) {
	text, kb := AppointmentsPage(nil, 0)
	assert.Equal(t, "No hay citas agendadas.", text)
	require.Len(t, kb.InlineKeyboard, 1)
}

func TestAppointmentsPageSingle(t *testing.T) {
	text, kb := AppointmentsPage(sampleAppointments(3), 0)
	assert.Contains(t, text, "página 1 de 1")
	assert.Contains(t, text, "Cliente 1")
	assert.Contains(t, text, "/cancelar_a3")

	// No nav row when everything fits on one page.
	require.Len(t, kb.InlineKeyboard, 1)
	assert.Equal(t, "Actualizar", kb.InlineKeyboard[0][0].Text)
}

func TestAppointmentsPageNavigation(t *testing.T) {
	appts := sampleAppointments(20)

	text, kb := AppointmentsPage(appts, 0)
	assert.Contains(t, text, "página 1 de 3")
	assert.Contains(t, text, "Cliente 8")
	assert.NotContains(t, text, "Cliente 9 —")
	require.Len(t, kb.InlineKeyboard, 2)
	require.Len(t, kb.InlineKeyboard[0], 1, "first page has only a forward button")
	assert.Equal(t, "apage:1", *kb.InlineKeyboard[0][0].CallbackData)

	text, kb = AppointmentsPage(appts, 1)
	assert.Contains(t, text, "página 2 de 3")
	require.Len(t, kb.InlineKeyboard[0], 2, "middle page navigates both ways")

	text, kb = AppointmentsPage(appts, 2)
	assert.Contains(t, text, "página 3 de 3")
	assert.Contains(t, text, "Cliente 20")
	require.Len(t, kb.InlineKeyboard[0], 1, "last page has only a back button")
	assert.Equal(t, "apage:1", *kb.InlineKeyboard[0][0].CallbackData)
}

func TestAppointmentsPageClampsOutOfRange(t *testing.T) {
	appts := sampleAppointments(10)

	text, _ := AppointmentsPage(appts, 99)
	assert.Contains(t, text, "página 2 de 2")

	text, _ = AppointmentsPage(appts, -1)
	assert.Contains(t, text, "página 1 de 2")
}

func TestAppointmentsPageNumbersContinueAcrossPages(t *testing.T) {
	text, _ := AppointmentsPage(sampleAppointments(10), 1)
	assert.True(t, strings.Contains(text, "9. Cliente 9"), "numbering keeps the absolute index")
}
