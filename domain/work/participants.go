package work

import (
	"context"
	"errors"

	"taskline/bizerror"
	"taskline/client/directory"
	"taskline/domain"
	"taskline/persistence"
	"taskline/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

var (
	// Directory resolves employees for audit names and assignment checks. Set at startup.
	Directory directory.Directory

	LookupEmployeeFunc = LookupEmployee
)

func LookupEmployee(ctx context.Context, employeeID types.ID) (*directory.Employee, error) {
	if Directory == nil {
		return nil, bizerror.ErrUpstreamFailure.WithData("employee directory is not configured")
	}
	return Directory.GetEmployee(ctx, employeeID)
}

type participants struct {
	actor *directory.Employee
	owner *directory.Employee
}

// loadParticipants reads the task outside of any transaction and resolves the caller and
// the task owner, so that no remote call is made while rows are locked.
func loadParticipants(taskID types.ID, sec *session.Context) (*domain.Task, *participants, error) {
	t, _, _, err := findOwnTask(persistence.ActiveDataSourceManager.GormDB(sec.Ctx()), taskID, sec)
	if err != nil {
		return nil, nil, err
	}
	ps, err := resolveParticipants(sec.Ctx(), t, sec)
	if err != nil {
		return nil, nil, err
	}
	return t, ps, nil
}

func resolveParticipants(ctx context.Context, t *domain.Task, sec *session.Context) (*participants, error) {
	actor, err := LookupEmployeeFunc(ctx, sec.EmployeeID)
	if err != nil {
		return nil, err
	}
	ps := &participants{actor: actor, owner: actor}
	if t.OwnerID != sec.EmployeeID {
		if ps.owner, err = LookupEmployeeFunc(ctx, t.OwnerID); err != nil {
			return nil, err
		}
	}
	return ps, nil
}

func (ps *participants) actorName() string {
	return ps.actor.FullName()
}

func (ps *participants) organizationName() string {
	return ps.actor.Organization.Name
}

func findTask(db *gorm.DB, id types.ID) (*domain.Task, error) {
	t := &domain.Task{}
	if err := db.Where("id = ?", id).First(t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bizerror.ErrTaskNotFound
		}
		return nil, err
	}
	return t, nil
}
