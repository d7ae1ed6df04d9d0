package persistence

import (
	"context"

	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
)

// Tx is a unit of work: a database transaction plus the hooks to run once it commits.
type Tx struct {
	*gorm.DB

	afterCommit []func()
}

// AfterCommit registers f to run after the transaction commits. It is never run on rollback.
func (tx *Tx) AfterCommit(f func()) {
	tx.afterCommit = append(tx.afterCommit, f)
}

// Transaction runs fn inside a database transaction. Hooks registered on the Tx run in
// registration order after a successful commit.
func (m *DataSourceManager) Transaction(ctx context.Context, fn func(tx *Tx) error) error {
	tx := &Tx{}
	err := m.GormDB(ctx).Transaction(func(db *gorm.DB) error {
		tx.DB = db
		return fn(tx)
	})
	if err != nil {
		return err
	}
	tx.runAfterCommit()
	return nil
}

func (tx *Tx) runAfterCommit() {
	for _, f := range tx.afterCommit {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logrus.Errorf("after commit hook panicked: %v", r)
				}
			}()
			f()
		}()
	}
}

// ForUpdate adds a row lock to the next query where the dialect supports it.
func ForUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialect().GetName() == "mysql" {
		return db.Set("gorm:query_option", "FOR UPDATE")
	}
	return db
}
