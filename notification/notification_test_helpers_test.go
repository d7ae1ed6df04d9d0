package notification_test

import (
	"context"

	"taskline/bizerror"
	"taskline/client/directory"
	"taskline/notification"
	"taskline/persistence"
	"taskline/testinfra"

	"github.com/fundwit/go-commons/types"
	. "github.com/onsi/gomega"
)

var employees = map[types.ID]*directory.Employee{
	10: {ID: 10, User: directory.User{ID: 1, FirstName: "Ann"}},
	20: {ID: 20, User: directory.User{ID: 2, FirstName: "Bob"}},
	// a second employment of user 2
	21: {ID: 21, User: directory.User{ID: 2, FirstName: "Bob"}},
}

func setup(testDatabase **testinfra.TestDatabase) {
	db := testinfra.StartTestDatabase("taskline")
	Expect(db.DS.GormDB(context.Background()).AutoMigrate(notification.Models()...).Error).To(BeNil())
	persistence.ActiveDataSourceManager = db.DS
	*testDatabase = db

	notification.LookupEmployeeFunc = func(ctx context.Context, id types.ID) (*directory.Employee, error) {
		if e, ok := employees[id]; ok {
			return e, nil
		}
		return nil, bizerror.ErrEmployeeNotFound
	}
}

func teardown(testDatabase *testinfra.TestDatabase) {
	notification.LookupEmployeeFunc = notification.LookupEmployee
	if testDatabase != nil {
		testinfra.StopTestDatabase(testDatabase)
	}
}
