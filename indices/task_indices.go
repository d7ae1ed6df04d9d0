package indices

import (
	"context"
	"fmt"

	"taskline/client/es"
	"taskline/domain"

	"github.com/fundwit/go-commons/types"
	"github.com/sirupsen/logrus"
)

var (
	TaskIndexName = "tasks"
)

type TaskDocument struct {
	domain.TaskDetail
}

type BatchActionError map[types.ID]error

func (e BatchActionError) Error() string {
	return fmt.Sprintf("%v", map[types.ID]error(e))
}

func IndexTasks(ctx context.Context, tasks []domain.TaskDetail) error {
	docs := make([]TaskDocument, 0, len(tasks))
	for _, t := range tasks {
		docs = append(docs, TaskDocument{TaskDetail: t})
	}

	if err := saveTaskDocuments(ctx, docs); err != nil {
		return err
	}
	return nil
}

func saveTaskDocuments(ctx context.Context, docs []TaskDocument) BatchActionError {
	errs := BatchActionError{}

	for _, doc := range docs {
		if err := es.IndexFunc(ctx, TaskIndexName, doc.ID, doc); err != nil {
			errs[doc.ID] = err
			logrus.WithField("taskId", doc.ID).Warn("index task: ", err)
		} else {
			logrus.WithField("taskId", doc.ID).Debug("task indexed")
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
