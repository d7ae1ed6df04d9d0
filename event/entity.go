package event

import (
	"time"

	"github.com/fundwit/go-commons/types"
)

type EventType string

const (
	EventTaskCreated     EventType = "CREATED"
	EventTaskUpdated     EventType = "UPDATED"
	EventTaskDeleted     EventType = "DELETED"
	EventStateChanged    EventType = "STATE_CHANGED"
	EventAssigneeAdded   EventType = "ASSIGNEE_ADDED"
	EventAssigneeRemoved EventType = "ASSIGNEE_REMOVED"
)

// TaskEvent is the notification intent of a committed task mutation.
type TaskEvent struct {
	Type EventType `json:"type"`

	OrganizationName    string     `json:"organizationName"`
	TaskID              types.ID   `json:"taskId"`
	Title               string     `json:"title"`
	OwnerEmployeeID     types.ID   `json:"ownerEmployeeId"`
	OwnerName           string     `json:"ownerName"`
	AssigneeEmployeeIDs []types.ID `json:"assigneeEmployeeIds"`
	ProjectName         string     `json:"projectName"`
	ActorName           string     `json:"actorName"`

	FromState          string     `json:"fromState"`
	ToState            string     `json:"toState,omitempty"`
	NewTitle           string     `json:"newTitle,omitempty"`
	AssigneeEmployeeID types.ID   `json:"assigneeEmployeeId,omitempty"`
	NewFileAttach      []string   `json:"newFileAttach,omitempty"`
	NewDeadline        *time.Time `json:"newDeadline,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// Recipients returns the owner followed by the assignees, without duplicates.
func (e *TaskEvent) Recipients() []types.ID {
	seen := map[types.ID]bool{}
	var r []types.ID
	for _, id := range append([]types.ID{e.OwnerEmployeeID}, e.AssigneeEmployeeIDs...) {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		r = append(r, id)
	}
	return r
}

// Notifiable reports whether recipients should hear about the event. Creation, deletion
// and unassignment are kept for indexing only, as is an update that changed none of
// title, deadline and files.
func (e *TaskEvent) Notifiable() bool {
	switch e.Type {
	case EventStateChanged, EventAssigneeAdded:
		return true
	case EventTaskUpdated:
		return e.NewTitle != "" || e.NewDeadline != nil || len(e.NewFileAttach) > 0
	}
	return false
}
