package indices

import (
	"context"
	"fmt"
	"sync"

	"taskline/bizerror"
	"taskline/client/es"
	"taskline/domain"
	"taskline/domain/work"
	"taskline/event"
	"taskline/session"

	"github.com/sirupsen/logrus"
)

var (
	TaskIndexEventHandlerName = "taskIndexer"

	lock    sync.Mutex
	running bool

	IndicesFullSyncFunc    = IndicesFullSync
	ScheduleNewSyncRunFunc = ScheduleNewSyncRun
)

// ScheduleNewSyncRun starts a full sync in the background. It reports false when a run
// is already in progress.
func ScheduleNewSyncRun(recreate bool, sec *session.Context) (bool, error) {
	if sec.Role != session.RoleAdmin {
		return false, bizerror.ErrForbidden
	}

	lock.Lock()
	if running {
		lock.Unlock()
		return false, nil
	}
	running = true
	lock.Unlock()

	waitRunning := sync.WaitGroup{}
	waitRunning.Add(1)
	go func() {
		waitRunning.Done()
		defer func() {
			lock.Lock()
			running = false
			lock.Unlock()
		}()
		if err := IndicesFullSyncFunc(context.Background(), recreate); err != nil {
			logrus.Error("indices full sync: ", err)
		}
	}()
	waitRunning.Wait()
	return true, nil
}

var (
	SyncBatchSize = 500
)

// IndicesFullSync indexes every live task. With recreate the index is dropped first so
// that documents of tasks deleted while no handler ran disappear too.
func IndicesFullSync(ctx context.Context, recreate bool) (err error) {
	defer func() {
		if ret := recover(); ret != nil {
			e, ok := ret.(error)
			if ok {
				err = e
			} else {
				err = fmt.Errorf("error on indices full sync: %v", ret)
			}
		}
	}()

	if recreate {
		if err := es.DropIndexFunc(ctx, TaskIndexName); err != nil {
			return err
		}
	}

	indexed := 0
	for page := 0; ; page++ {
		tasks, err := work.LoadTasksFunc(page, SyncBatchSize)
		if err != nil {
			return fmt.Errorf("load tasks page %d: %w", page, err)
		}
		if len(tasks) == 0 {
			logrus.Infof("indices full sync: %d tasks indexed", indexed)
			return nil
		}

		if err := IndexTasks(ctx, tasks); err != nil {
			logrus.Warnf("indices full sync: error on index tasks(page = %d, pageSize = %d): %v", page, SyncBatchSize, err)
		}
		indexed += len(tasks)
	}
}

// IndexTaskEventHandle keeps the document of the event's task in step with the database.
func IndexTaskEventHandle(ctx context.Context, e *event.TaskEvent) *event.EventHandleResult {
	if e.Type == event.EventTaskDeleted {
		if err := es.DeleteDocumentByIdFunc(ctx, TaskIndexName, e.TaskID); err != nil {
			return &event.EventHandleResult{
				Message:           fmt.Sprintf("delete task index %d, %v", e.TaskID, err),
				HandlerIdentifier: TaskIndexEventHandlerName,
			}
		}
		return &event.EventHandleResult{Success: true, HandlerIdentifier: TaskIndexEventHandlerName}
	}

	t, err := work.LoadTaskFunc(ctx, e.TaskID)
	if err != nil {
		return &event.EventHandleResult{
			Message:           fmt.Sprintf("detail task when index task %d, %v", e.TaskID, err),
			HandlerIdentifier: TaskIndexEventHandlerName,
		}
	}
	if err := IndexTasks(ctx, []domain.TaskDetail{*t}); err != nil {
		return &event.EventHandleResult{
			Message:           fmt.Sprintf("index task %d, %v", e.TaskID, err),
			HandlerIdentifier: TaskIndexEventHandlerName,
		}
	}
	return &event.EventHandleResult{Success: true, HandlerIdentifier: TaskIndexEventHandlerName}
}
