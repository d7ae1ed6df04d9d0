package event

import (
	"context"

	"taskline/persistence"
)

// Emit delivers ev to the registered handlers once tx commits, or right away when tx is nil.
func Emit(ctx context.Context, tx *persistence.Tx, ev *TaskEvent) {
	if tx == nil {
		InvokeHandlersFunc(ctx, ev)
		return
	}
	tx.AfterCommit(func() {
		InvokeHandlersFunc(ctx, ev)
	})
}
