package telegram

import (
	"fmt"
	"html"
	"strings"

	"github.com/queueless/booking/internal/model"
	"github.com/queueless/booking/internal/notify"
)

var statusEmoji = map[model.AppointmentStatus]string{
	model.AppointmentStatusPending:   "⏳",
	model.AppointmentStatusApproved:  "✅",
	model.AppointmentStatusRejected:  "❌",
	model.AppointmentStatusCompleted: "🏁",
}

// formatAppointment форматирует запись для сообщения в HTML режиме
func formatAppointment(appt *model.Appointment) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s <b>%s %s</b>\n", statusEmoji[appt.Status], model.DateKey(appt.Date), html.EscapeString(appt.TimeLabel))
	if appt.User != nil {
		fmt.Fprintf(&sb, "👤 %s &lt;%s&gt;\n", html.EscapeString(appt.User.Name), html.EscapeString(appt.User.Email))
	}
	fmt.Fprintf(&sb, "📝 %s\n", html.EscapeString(appt.Reason))
	fmt.Fprintf(&sb, "📊 Status: %s", appt.Status)

	return sb.String()
}

// formatEvent возвращает текст уведомления и нужна ли клавиатура решения
func formatEvent(event notify.Event) (string, bool) {
	switch event.Kind {
	case notify.KindAppointmentCreated:
		if event.Appointment == nil {
			return "", false
		}
		return "🆕 New appointment request\n\n" + formatAppointment(event.Appointment), true
	case notify.KindAppointmentRescheduled:
		if event.Appointment == nil {
			return "", false
		}
		pending := event.Appointment.Status == model.AppointmentStatusPending
		return "🔁 Appointment rescheduled (" + html.EscapeString(event.Message) + ")\n\n" + formatAppointment(event.Appointment), pending
	case notify.KindCompensationFailed, notify.KindReconcileAlert:
		return "🚨 <b>" + string(event.Kind) + "</b>\n<pre>" + html.EscapeString(event.Message) + "</pre>", false
	default:
		// остальные события админ инициирует сам
		return "", false
	}
}
