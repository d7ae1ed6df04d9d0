package work

import (
	"errors"

	"taskline/bizerror"
	"taskline/domain"
	"taskline/event"
	"taskline/idgen"
	"taskline/persistence"
	"taskline/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

var (
	AssignTaskFunc     = AssignTask
	RemoveAssigneeFunc = RemoveAssignee
)

type Assigning struct {
	TaskID     types.ID `json:"taskId" binding:"required"`
	EmployeeID types.ID `json:"employeeId" binding:"required"`
}

// AssignTask adds an active employee of the caller's organization to a task the caller owns.
func AssignTask(c *Assigning, sec *session.Context) (*domain.TaskDetail, error) {
	peek, ps, err := loadParticipants(c.TaskID, sec)
	if err != nil {
		return nil, err
	}
	if peek.OwnerID != sec.EmployeeID {
		return nil, bizerror.ErrForbidden
	}
	assignee, err := LookupEmployeeFunc(sec.Ctx(), c.EmployeeID)
	if err != nil {
		return nil, err
	}
	if assignee.Organization.ID != sec.OrganizationID {
		return nil, bizerror.ErrEmployeeNotInOrganization
	}
	if !assignee.IsActive {
		return nil, bizerror.ErrEmployeeInactive
	}

	var detail *domain.TaskDetail
	err = persistence.ActiveDataSourceManager.Transaction(sec.Ctx(), func(tx *persistence.Tx) error {
		t, b, p, err := lockOwnTask(tx, c.TaskID, sec)
		if err != nil {
			return err
		}
		var existing int
		if err := tx.Model(&domain.TaskAssignee{}).Where("task_id = ? AND employee_id = ?", t.ID, c.EmployeeID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return bizerror.ErrEmployeeAlreadyAssigned
		}

		if err := tx.Create(&domain.TaskAssignee{
			ID: idgen.NextID(idWorker), TaskID: t.ID, EmployeeID: c.EmployeeID,
			AuditFields: persistence.NewAuditFields(sec.Identity.ID),
		}).Error; err != nil {
			return err
		}
		if err := recordAction(tx, &domain.TaskAction{
			TaskID: t.ID, Type: domain.ActionAssigneeAdded, ActorID: sec.EmployeeID, ActorName: ps.actorName(),
			AssigneeID: c.EmployeeID,
		}, sec); err != nil {
			return err
		}

		if detail, err = loadDetail(tx.DB, t, b, p); err != nil {
			return err
		}
		ev := newTaskEvent(event.EventAssigneeAdded, detail, ps)
		ev.AssigneeEmployeeID = c.EmployeeID
		event.Emit(sec.Ctx(), tx, ev)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}

// RemoveAssignee soft deletes the assignment. The employee may be assigned again later.
func RemoveAssignee(c *Assigning, sec *session.Context) (*domain.TaskDetail, error) {
	peek, ps, err := loadParticipants(c.TaskID, sec)
	if err != nil {
		return nil, err
	}
	if peek.OwnerID != sec.EmployeeID {
		return nil, bizerror.ErrForbidden
	}

	var detail *domain.TaskDetail
	err = persistence.ActiveDataSourceManager.Transaction(sec.Ctx(), func(tx *persistence.Tx) error {
		t, b, p, err := lockOwnTask(tx, c.TaskID, sec)
		if err != nil {
			return err
		}
		a := &domain.TaskAssignee{}
		if err := tx.Where("task_id = ? AND employee_id = ?", t.ID, c.EmployeeID).First(a).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return bizerror.ErrAssigneeNotFound
			}
			return err
		}
		if err := tx.Model(a).Update("last_modified_by", sec.Identity.ID).Error; err != nil {
			return err
		}
		if err := tx.Delete(a).Error; err != nil {
			return err
		}

		if detail, err = loadDetail(tx.DB, t, b, p); err != nil {
			return err
		}
		ev := newTaskEvent(event.EventAssigneeRemoved, detail, ps)
		ev.AssigneeEmployeeID = c.EmployeeID
		event.Emit(sec.Ctx(), tx, ev)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}
