package notification

import (
	"context"
	"fmt"

	"taskline/bizerror"
	"taskline/client/directory"
	"taskline/event"
	"taskline/idgen"
	"taskline/persistence"

	"github.com/fundwit/go-commons/types"
	"github.com/sirupsen/logrus"
)

var (
	idWorker = idgen.NewSonyflake()

	// Directory resolves recipient employees to their users. Set at startup.
	Directory directory.Directory

	LookupEmployeeFunc = LookupEmployee
	IngestFunc         = Ingest

	HandlerIdentifier = "notificationStore"
)

func LookupEmployee(ctx context.Context, employeeID types.ID) (*directory.Employee, error) {
	if Directory == nil {
		return nil, bizerror.ErrUpstreamFailure.WithData("employee directory is not configured")
	}
	return Directory.GetEmployee(ctx, employeeID)
}

// Ingest stores one PENDING notification per distinct recipient of the event. Recipients
// the directory cannot resolve are skipped.
func Ingest(ctx context.Context, ev *event.TaskEvent) ([]Notification, error) {
	message := RenderEvent(ev)
	title := ev.Title
	if ev.NewTitle != "" {
		title = ev.NewTitle
	}

	seen := map[types.ID]bool{}
	records := []Notification{}
	for _, employeeID := range ev.Recipients() {
		e, err := LookupEmployeeFunc(ctx, employeeID)
		if err != nil {
			logrus.WithFields(logrus.Fields{"taskId": ev.TaskID, "employeeId": employeeID}).
				Warn("skip notification recipient: ", err)
			continue
		}
		if e.User.ID == 0 || seen[e.User.ID] {
			continue
		}
		seen[e.User.ID] = true
		records = append(records, Notification{
			ID:               idgen.NextID(idWorker),
			UserID:           e.User.ID,
			TaskID:           ev.TaskID,
			OrganizationName: ev.OrganizationName,
			ProjectName:      ev.ProjectName,
			OwnerName:        ev.OwnerName,
			Title:            title,
			OldState:         ev.FromState,
			NewState:         ev.ToState,
			Message:          message,
			Status:           StatusPending,
			ActionDate:       ev.CreatedAt,
		})
	}
	if len(records) == 0 {
		return records, nil
	}

	err := persistence.ActiveDataSourceManager.Transaction(ctx, func(tx *persistence.Tx) error {
		for i := range records {
			if err := tx.Create(&records[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// HandleEvent is the in-process event.EventHandler storing notifications of an event.
func HandleEvent(ctx context.Context, ev *event.TaskEvent) *event.EventHandleResult {
	if !ev.Notifiable() {
		return nil
	}
	records, err := IngestFunc(ctx, ev)
	if err != nil {
		return &event.EventHandleResult{
			Message:           fmt.Sprintf("store notifications of task %d: %v", ev.TaskID, err),
			HandlerIdentifier: HandlerIdentifier,
		}
	}
	return &event.EventHandleResult{
		Success:           true,
		Message:           fmt.Sprintf("%d notifications stored", len(records)),
		HandlerIdentifier: HandlerIdentifier,
	}
}
