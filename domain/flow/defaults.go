package flow

import (
	"context"

	"taskline/domain"
	"taskline/idgen"
	"taskline/persistence"

	"github.com/sirupsen/logrus"
)

const SystemDefaultWorkflowName = "System default"

var SystemDefaultStates = []domain.State{
	{Name: "TODO", OrderNumber: 1, Permission: domain.PermissionOwner},
	{Name: "IN_PROGRESS", OrderNumber: 2, Permission: domain.PermissionAssignee},
	{Name: "REVIEW", OrderNumber: 3, Permission: domain.PermissionAssignee},
	{Name: "COMPLETE", OrderNumber: 4, Permission: domain.PermissionOwner},
}

// LoadSystemDefaultWorkflow creates the shared default workflow when no shared workflow exists yet.
func LoadSystemDefaultWorkflow(ctx context.Context) error {
	return persistence.ActiveDataSourceManager.Transaction(ctx, func(tx *persistence.Tx) error {
		var count int
		if err := tx.Model(&domain.Workflow{}).Where("organization_id IS NULL").Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		wf := &domain.Workflow{ID: idgen.NextID(idWorker), Name: SystemDefaultWorkflowName}
		if err := tx.Create(wf).Error; err != nil {
			return err
		}
		for _, s := range SystemDefaultStates {
			st := s
			st.ID = idgen.NextID(idWorker)
			st.WorkflowID = wf.ID
			if err := tx.Create(&st).Error; err != nil {
				return err
			}
		}
		logrus.WithField("workflowId", wf.ID).Info("system default workflow created")
		return nil
	})
}
