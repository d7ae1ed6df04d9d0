package notification

import (
	"strings"
	"time"

	"taskline/event"
)

const DateLayout = "2006-01-02 15:04"

// RenderEvent writes the body shared by every recipient of the event.
func RenderEvent(ev *event.TaskEvent) string {
	var b strings.Builder
	line := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("\n")
	}

	line("Organization", ev.OrganizationName)
	line("Project", ev.ProjectName)
	line("Task", ev.Title)
	line("Owner", ev.OwnerName)
	line("By", ev.ActorName)
	if ev.ToState != "" {
		line("State", ev.FromState+" -> "+ev.ToState)
	} else {
		line("State", ev.FromState)
	}
	line("New title", ev.NewTitle)
	if ev.NewDeadline != nil {
		line("New deadline", formatDate(*ev.NewDeadline))
	}
	if len(ev.NewFileAttach) > 0 {
		line("Attached files", strings.Join(ev.NewFileAttach, ", "))
	}
	if ev.AssigneeEmployeeID != 0 {
		line("Assigned employee", ev.AssigneeEmployeeID.String())
	}
	line("Date", formatDate(ev.CreatedAt))
	return strings.TrimRight(b.String(), "\n")
}

// Render is the text sent to the channel.
func Render(n *Notification) string {
	if n.Message != "" {
		return n.Message
	}
	return strings.TrimSpace(n.Title + "\n" + formatDate(n.ActionDate))
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "Unknown"
	}
	return t.Format(DateLayout)
}
