package flow

import (
	"errors"

	"taskline/bizerror"
	"taskline/domain"
	"taskline/idgen"
	"taskline/persistence"
	"taskline/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

var (
	CreateStateFunc = CreateState
	UpdateStateFunc = UpdateState
	DeleteStateFunc = DeleteState
	DetailStateFunc = DetailState
	QueryStatesFunc = QueryStates
	SwapStatesFunc  = SwapStates
)

type StateCreation struct {
	WorkflowID  types.ID          `json:"workflowId" binding:"required"`
	Name        string            `json:"name" binding:"required"`
	OrderNumber int               `json:"orderNumber"`
	Permission  domain.Permission `json:"permission" binding:"required"`
}

type StateUpdating struct {
	ID          types.ID           `json:"id" binding:"required"`
	Name        *string            `json:"name"`
	OrderNumber *int               `json:"orderNumber"`
	Permission  *domain.Permission `json:"permission"`
}

// CreateState appends a state to an organization workflow. The order check runs
// while the workflow row is locked so concurrent inserts see each other.
func CreateState(c *StateCreation, sec *session.Context) (*domain.State, error) {
	if !domain.ValidPermission(c.Permission) {
		return nil, bizerror.ErrBadParam.WithData("unknown permission " + string(c.Permission))
	}
	st := &domain.State{
		ID:          idgen.NextID(idWorker),
		Name:        c.Name,
		OrderNumber: c.OrderNumber,
		Permission:  c.Permission,
		WorkflowID:  c.WorkflowID,
		AuditFields: persistence.NewAuditFields(sec.Identity.ID),
	}
	err := persistence.ActiveDataSourceManager.Transaction(sec.Ctx(), func(tx *persistence.Tx) error {
		if _, err := findWritableWorkflow(tx.DB, c.WorkflowID, sec); err != nil {
			return err
		}
		orders, err := stateOrders(tx.DB, c.WorkflowID, 0)
		if err != nil {
			return err
		}
		if err := ValidateOrder(orders, c.OrderNumber); err != nil {
			return err
		}
		return tx.Create(st).Error
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

func UpdateState(c *StateUpdating, sec *session.Context) (*domain.State, error) {
	if c.Permission != nil && !domain.ValidPermission(*c.Permission) {
		return nil, bizerror.ErrBadParam.WithData("unknown permission " + string(*c.Permission))
	}
	st := &domain.State{}
	err := persistence.ActiveDataSourceManager.Transaction(sec.Ctx(), func(tx *persistence.Tx) error {
		if err := tx.Where("id = ?", c.ID).First(st).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return bizerror.ErrStateNotFound
			}
			return err
		}
		if _, err := findWritableWorkflow(tx.DB, st.WorkflowID, sec); err != nil {
			return err
		}

		changes := map[string]interface{}{"last_modified_by": sec.Identity.ID}
		if c.Name != nil {
			st.Name = *c.Name
			changes["name"] = *c.Name
		}
		if c.Permission != nil {
			st.Permission = *c.Permission
			changes["permission"] = *c.Permission
		}
		if c.OrderNumber != nil && *c.OrderNumber != st.OrderNumber {
			others, err := stateOrders(tx.DB, st.WorkflowID, st.ID)
			if err != nil {
				return err
			}
			if err := ValidateOrder(others, *c.OrderNumber); err != nil {
				return err
			}
			st.OrderNumber = *c.OrderNumber
			changes["order_number"] = *c.OrderNumber
		}
		st.LastModifiedBy = sec.Identity.ID
		return tx.Model(st).Updates(changes).Error
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

type StateSwapping struct {
	ID     types.ID `json:"id" binding:"required"`
	WithID types.ID `json:"withId" binding:"required"`
}

// SwapStates exchanges the order numbers of two states of one workflow. This is the only
// way to reorder, since any single order change would duplicate a number or leave a gap.
func SwapStates(c *StateSwapping, sec *session.Context) ([]domain.State, error) {
	if c.ID == c.WithID {
		return nil, bizerror.ErrInvalidOrder.WithData("a state cannot swap with itself")
	}
	var states []domain.State
	err := persistence.ActiveDataSourceManager.Transaction(sec.Ctx(), func(tx *persistence.Tx) error {
		if err := tx.Where("id IN (?)", []types.ID{c.ID, c.WithID}).Find(&states).Error; err != nil {
			return err
		}
		if len(states) != 2 {
			return bizerror.ErrStateNotFound
		}
		a, b := &states[0], &states[1]
		if a.WorkflowID != b.WorkflowID {
			return bizerror.ErrInvalidOrder.WithData("states belong to different workflows")
		}
		if _, err := findWritableWorkflow(tx.DB, a.WorkflowID, sec); err != nil {
			return err
		}

		a.OrderNumber, b.OrderNumber = b.OrderNumber, a.OrderNumber
		for _, st := range []*domain.State{a, b} {
			st.LastModifiedBy = sec.Identity.ID
			if err := tx.Model(st).Updates(map[string]interface{}{
				"order_number": st.OrderNumber, "last_modified_by": sec.Identity.ID,
			}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return states, nil
}

// DeleteState removes a state of a workflow no task uses, then shifts the higher
// order numbers down so the run stays contiguous.
func DeleteState(id types.ID, sec *session.Context) error {
	return persistence.ActiveDataSourceManager.Transaction(sec.Ctx(), func(tx *persistence.Tx) error {
		st := &domain.State{}
		if err := tx.Where("id = ?", id).First(st).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return bizerror.ErrStateNotFound
			}
			return err
		}
		if _, err := findWritableWorkflow(tx.DB, st.WorkflowID, sec); err != nil {
			return err
		}

		inUse, err := IsWorkflowInUse(tx.DB, st.WorkflowID)
		if err != nil {
			return err
		}
		if inUse {
			return bizerror.ErrStateInUse
		}

		if err := tx.Delete(st).Error; err != nil {
			return err
		}
		return tx.Model(&domain.State{}).Where("workflow_id = ? AND order_number > ?", st.WorkflowID, st.OrderNumber).
			Updates(map[string]interface{}{
				"order_number":     gorm.Expr("order_number - 1"),
				"last_modified_by": sec.Identity.ID,
			}).Error
	})
}

func DetailState(id types.ID, sec *session.Context) (*domain.State, error) {
	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())
	st := &domain.State{}
	if err := db.Where("id = ?", id).First(st).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bizerror.ErrStateNotFound
		}
		return nil, err
	}
	wf := &domain.Workflow{}
	if err := db.Where("id = ?", st.WorkflowID).First(wf).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bizerror.ErrWorkflowNotFound
		}
		return nil, err
	}
	if !wf.VisibleTo(sec.OrganizationID) {
		return nil, bizerror.ErrForbidden
	}
	return st, nil
}

func QueryStates(workflowID types.ID, sec *session.Context) ([]domain.State, error) {
	detail, err := DetailWorkflow(workflowID, sec)
	if err != nil {
		return nil, err
	}
	return detail.States, nil
}

// IsWorkflowInUse reports whether any live task sits in a state of the workflow.
func IsWorkflowInUse(db *gorm.DB, workflowID types.ID) (bool, error) {
	var count int
	err := db.Model(&domain.Task{}).Joins("JOIN states ON states.id = tasks.state_id").
		Where("states.workflow_id = ?", workflowID).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func stateOrders(db *gorm.DB, workflowID, excludedStateID types.ID) ([]int, error) {
	var states []domain.State
	q := db.Where("workflow_id = ?", workflowID)
	if excludedStateID != 0 {
		q = q.Where("id <> ?", excludedStateID)
	}
	if err := q.Find(&states).Error; err != nil {
		return nil, err
	}
	orders := make([]int, 0, len(states))
	for _, s := range states {
		orders = append(orders, s.OrderNumber)
	}
	return orders, nil
}
