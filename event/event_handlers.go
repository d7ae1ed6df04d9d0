package event

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// EventHandler consumes a committed task event. A nil result means the handler ignored it.
type EventHandler func(ctx context.Context, e *TaskEvent) *EventHandleResult

type EventHandleResult struct {
	Success           bool
	Message           string
	HandlerIdentifier string
}

var EventHandlers []EventHandler

var InvokeHandlersFunc = invokeHandlers

// invokeHandlers runs every handler in registration order. The transaction has already
// committed, so a failing or panicking handler is logged and the rest still run.
func invokeHandlers(ctx context.Context, ev *TaskEvent) []EventHandleResult {
	results := []EventHandleResult{}
	for idx, handler := range EventHandlers {
		r := safeHandle(ctx, idx, handler, ev)
		if r == nil {
			continue
		}
		results = append(results, *r)

		entry := logrus.WithFields(logrus.Fields{"taskId": ev.TaskID, "type": ev.Type, "handler": r.HandlerIdentifier})
		if r.Success {
			entry.Debug("event handled ", r.Message)
		} else {
			entry.Error("event handling failed: ", r.Message)
		}
	}
	return results
}

func safeHandle(ctx context.Context, idx int, handler EventHandler, ev *TaskEvent) (r *EventHandleResult) {
	defer func() {
		if p := recover(); p != nil {
			r = &EventHandleResult{
				Success:           false,
				Message:           fmt.Sprintf("panic: %v", p),
				HandlerIdentifier: fmt.Sprintf("handler#%d", idx),
			}
		}
	}()
	return handler(ctx, ev)
}
