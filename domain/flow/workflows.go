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
	idWorker = idgen.NewSonyflake()

	QueryWorkflowsFunc = QueryWorkflows
	DetailWorkflowFunc = DetailWorkflow
	CreateWorkflowFunc = CreateWorkflow
	UpdateWorkflowFunc = UpdateWorkflow
	DeleteWorkflowFunc = DeleteWorkflow
)

type WorkflowCreation struct {
	Name string `json:"name" binding:"required"`
}

type WorkflowUpdating struct {
	ID   types.ID `json:"id" binding:"required"`
	Name string   `json:"name" binding:"required"`
}

func CreateWorkflow(c *WorkflowCreation, sec *session.Context) (*domain.Workflow, error) {
	orgID := sec.OrganizationID
	wf := &domain.Workflow{
		ID:             idgen.NextID(idWorker),
		Name:           c.Name,
		OrganizationID: &orgID,
		AuditFields:    persistence.NewAuditFields(sec.Identity.ID),
	}
	if err := persistence.ActiveDataSourceManager.GormDB(sec.Ctx()).Create(wf).Error; err != nil {
		return nil, err
	}
	return wf, nil
}

func UpdateWorkflow(c *WorkflowUpdating, sec *session.Context) (*domain.Workflow, error) {
	wf := &domain.Workflow{}
	err := persistence.ActiveDataSourceManager.Transaction(sec.Ctx(), func(tx *persistence.Tx) error {
		var err error
		if wf, err = findWritableWorkflow(tx.DB, c.ID, sec); err != nil {
			return err
		}
		wf.Name = c.Name
		wf.LastModifiedBy = sec.Identity.ID
		return tx.Model(wf).Updates(map[string]interface{}{"name": c.Name, "last_modified_by": sec.Identity.ID}).Error
	})
	if err != nil {
		return nil, err
	}
	return wf, nil
}

func DeleteWorkflow(id types.ID, sec *session.Context) error {
	return persistence.ActiveDataSourceManager.Transaction(sec.Ctx(), func(tx *persistence.Tx) error {
		wf, err := findWritableWorkflow(tx.DB, id, sec)
		if err != nil {
			return err
		}
		var states int
		if err := tx.Model(&domain.State{}).Where("workflow_id = ?", wf.ID).Count(&states).Error; err != nil {
			return err
		}
		if states > 0 {
			return bizerror.ErrWorkflowNotEmpty
		}
		return tx.Delete(wf).Error
	})
}

// DetailWorkflow returns the workflow with its states ordered by order number.
// Shared system workflows are visible to every organization.
func DetailWorkflow(id types.ID, sec *session.Context) (*domain.WorkflowDetail, error) {
	detail := &domain.WorkflowDetail{}
	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())
	if err := db.Where("id = ?", id).First(&detail.Workflow).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bizerror.ErrWorkflowNotFound
		}
		return nil, err
	}
	if !detail.VisibleTo(sec.OrganizationID) {
		return nil, bizerror.ErrForbidden
	}

	detail.States = []domain.State{}
	if err := db.Where("workflow_id = ?", id).Order("order_number ASC").Find(&detail.States).Error; err != nil {
		return nil, err
	}
	return detail, nil
}

// QueryWorkflows lists the organization's workflows followed by the shared ones.
func QueryWorkflows(sec *session.Context) ([]domain.Workflow, error) {
	var workflows []domain.Workflow
	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())
	if err := db.Where("organization_id = ? OR organization_id IS NULL", sec.OrganizationID).
		Order("organization_id IS NULL ASC, created_at ASC, id ASC").Find(&workflows).Error; err != nil {
		return nil, err
	}
	if workflows == nil {
		workflows = []domain.Workflow{}
	}
	return workflows, nil
}

// findWritableWorkflow loads the workflow under a row lock and checks the caller may change it.
func findWritableWorkflow(tx *gorm.DB, id types.ID, sec *session.Context) (*domain.Workflow, error) {
	wf := &domain.Workflow{}
	if err := persistence.ForUpdate(tx).Where("id = ?", id).First(wf).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bizerror.ErrWorkflowNotFound
		}
		return nil, err
	}
	if wf.IsSystem() {
		return nil, bizerror.ErrSystemWorkflowReadonly
	}
	if *wf.OrganizationID != sec.OrganizationID {
		return nil, bizerror.ErrForbidden
	}
	return wf, nil
}
