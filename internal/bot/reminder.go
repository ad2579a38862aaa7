package bot

import (
	"context"
	"fmt"
	"time"
)

// StartReminders messages each chat that booked through the bot the day
// before its appointment. Fires once per day at the given local hour, reading
// the local audit log rather than the backend: only bookings made here have a
// chat to notify.
func (b *Bot) StartReminders(ctx context.Context, log AppointmentLister, hour int) {
	if log == nil {
		return
	}

	go func() {
		timer := time.NewTimer(untilNextHour(hour))
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
				b.sendTomorrowReminders(ctx, log)
				timer.Reset(24 * time.Hour)
			}
		}
	}()
}

func (b *Bot) sendTomorrowReminders(ctx context.Context, log AppointmentLister) {
	tomorrow := time.Now().AddDate(0, 0, 1).Format("2006-01-02")

	recs, err := log.AppointmentsOn(ctx, tomorrow)
	if err != nil {
		b.logger.Error().Err(err).Str("date", tomorrow).Msg("failed to load appointments for reminders")
		return
	}

	for _, rec := range recs {
		if rec.ChatID == 0 {
			continue
		}
		text := fmt.Sprintf("Recordatorio 💈: mañana tienes tu cita a las %s.\nServicios: %s",
			rec.Time, rec.Services)
		b.reply(rec.ChatID, text)
	}
	if len(recs) > 0 {
		b.logger.Info().Int("count", len(recs)).Str("date", tomorrow).Msg("reminders sent")
	}
}

func untilNextHour(hour int) time.Duration {
	now := time.Now()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next.Sub(now)
}
