package work

import (
	"errors"
	"time"

	"taskline/bizerror"
	"taskline/domain"
	"taskline/domain/state"
	"taskline/event"
	"taskline/persistence"
	"taskline/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

var (
	ChangeStateFunc          = ChangeState
	AvailableTransitionsFunc = AvailableTransitions
)

type StateChanging struct {
	TaskID  types.ID `json:"taskId" binding:"required"`
	StateID types.ID `json:"stateId" binding:"required"`
}

// ChangeState moves a task to another state of its workflow. Checks run in order and
// the first failure wins: task and target state exist, organization, then the authorizer
// (deadline, workflow, authority). All of them run before the directory is asked for names.
func ChangeState(c *StateChanging, sec *session.Context) (*domain.TaskDetail, error) {
	sc, err := checkStateChange(persistence.ActiveDataSourceManager.GormDB(sec.Ctx()), false, c, sec)
	if err != nil {
		return nil, err
	}
	ps, err := resolveParticipants(sec.Ctx(), sc.task, sec)
	if err != nil {
		return nil, err
	}

	var detail *domain.TaskDetail
	err = persistence.ActiveDataSourceManager.Transaction(sec.Ctx(), func(tx *persistence.Tx) error {
		sc, err := checkStateChange(tx.DB, true, c, sec)
		if err != nil {
			return err
		}
		t, b, p, from, to := sc.task, sc.board, sc.project, sc.from, sc.to
		if from.ID == to.ID {
			detail, err = loadDetail(tx.DB, t, b, p)
			return err
		}

		before, err := loadDetail(tx.DB, t, b, p)
		if err != nil {
			return err
		}
		ev := newTaskEvent(event.EventStateChanged, before, ps)
		ev.ToState = to.Name

		if err := tx.Model(t).Updates(map[string]interface{}{
			"state_id": to.ID, "last_modified_by": sec.Identity.ID,
		}).Error; err != nil {
			return err
		}
		t.StateID = to.ID
		t.LastModifiedBy = sec.Identity.ID
		if err := recordAction(tx, &domain.TaskAction{
			TaskID: t.ID, Type: domain.ActionStateChanged, ActorID: sec.EmployeeID, ActorName: ps.actorName(),
			FromState: from.Name, ToState: to.Name,
		}, sec); err != nil {
			return err
		}

		if detail, err = loadDetail(tx.DB, t, b, p); err != nil {
			return err
		}
		event.Emit(sec.Ctx(), tx, ev)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}

type stateChange struct {
	task     *domain.Task
	board    *domain.Board
	project  *domain.Project
	from, to *domain.State
}

// checkStateChange runs every local precondition of a state change. With lock the task row
// stays locked for the rest of the transaction.
func checkStateChange(db *gorm.DB, lock bool, c *StateChanging, sec *session.Context) (*stateChange, error) {
	q := db
	if lock {
		q = persistence.ForUpdate(db)
	}
	t, err := findTask(q, c.TaskID)
	if err != nil {
		return nil, err
	}
	to := &domain.State{}
	if err := db.Where("id = ?", c.StateID).First(to).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bizerror.ErrStateNotFound
		}
		return nil, err
	}
	t, b, p, err := withOwnBoard(db, t, sec)
	if err != nil {
		return nil, err
	}
	from := &domain.State{}
	if err := db.Unscoped().Where("id = ?", t.StateID).First(from).Error; err != nil {
		return nil, err
	}
	actor, err := actorOf(db, t, sec)
	if err != nil {
		return nil, err
	}
	if err := state.Authorize(from.Node(), to.Node(), actor, t.Expired(time.Now())); err != nil {
		return nil, err
	}
	return &stateChange{task: t, board: b, project: p, from: from, to: to}, nil
}

// AvailableTransitions lists the states the caller may move the task to right now.
func AvailableTransitions(taskID types.ID, sec *session.Context) ([]domain.State, error) {
	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())
	t, _, _, err := findOwnTask(db, taskID, sec)
	if err != nil {
		return nil, err
	}
	from := &domain.State{}
	if err := db.Unscoped().Where("id = ?", t.StateID).First(from).Error; err != nil {
		return nil, err
	}
	var states []domain.State
	if err := db.Where("workflow_id = ?", from.WorkflowID).Find(&states).Error; err != nil {
		return nil, err
	}
	actor, err := actorOf(db, t, sec)
	if err != nil {
		return nil, err
	}

	byID := map[types.ID]domain.State{}
	nodes := make([]state.Node, 0, len(states))
	for _, s := range states {
		byID[s.ID] = s
		nodes = append(nodes, s.Node())
	}
	r := []domain.State{}
	for _, n := range state.NewStateMachine(nodes).AvailableTransitions(from.Node(), actor, t.Expired(time.Now())) {
		r = append(r, byID[n.ID])
	}
	return r, nil
}

func actorOf(db *gorm.DB, t *domain.Task, sec *session.Context) (state.Actor, error) {
	var assigned int
	if err := db.Model(&domain.TaskAssignee{}).Where("task_id = ? AND employee_id = ?", t.ID, sec.EmployeeID).
		Count(&assigned).Error; err != nil {
		return state.Actor{}, err
	}
	return state.Actor{IsOwner: t.OwnerID == sec.EmployeeID, IsAssignee: assigned > 0}, nil
}
