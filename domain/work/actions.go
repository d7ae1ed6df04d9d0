package work

import (
	"time"

	"taskline/domain"
	"taskline/event"
	"taskline/idgen"
	"taskline/persistence"
	"taskline/session"

	"github.com/fundwit/go-commons/types"
)

var ListActionsFunc = ListActions

func recordAction(tx *persistence.Tx, a *domain.TaskAction, sec *session.Context) error {
	a.ID = idgen.NextID(idWorker)
	a.AuditFields = persistence.NewAuditFields(sec.Identity.ID)
	return tx.Create(a).Error
}

// ListActions returns the audit trail of a task, newest first.
func ListActions(taskID types.ID, sec *session.Context) ([]domain.TaskAction, error) {
	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())
	if _, _, _, err := findOwnTask(db, taskID, sec); err != nil {
		return nil, err
	}
	actions := []domain.TaskAction{}
	if err := db.Where("task_id = ?", taskID).Order("created_at DESC, id DESC").Find(&actions).Error; err != nil {
		return nil, err
	}
	return actions, nil
}

func newTaskEvent(typ event.EventType, d *domain.TaskDetail, ps *participants) *event.TaskEvent {
	return &event.TaskEvent{
		Type:                typ,
		OrganizationName:    ps.organizationName(),
		TaskID:              d.ID,
		Title:               d.Title,
		OwnerEmployeeID:     d.OwnerID,
		OwnerName:           ps.owner.FullName(),
		AssigneeEmployeeIDs: append([]types.ID{}, d.Assignees...),
		ProjectName:         d.ProjectName,
		ActorName:           ps.actorName(),
		FromState:           d.State.Name,
		CreatedAt:           time.Now(),
	}
}
