package flow_test

import (
	"context"

	"taskline/domain"
	"taskline/persistence"
	"taskline/session"
	"taskline/testinfra"

	"github.com/fundwit/go-commons/types"
	. "github.com/onsi/gomega"
)

var (
	caller      = testinfra.BuildCaller(1, 100, 10, session.RoleManager)
	otherCaller = testinfra.BuildCaller(2, 200, 20, session.RoleManager)
)

func setup(testDatabase **testinfra.TestDatabase) {
	db := testinfra.StartTestDatabase("taskline")
	Expect(db.DS.GormDB(context.Background()).AutoMigrate(domain.Models()...).Error).To(BeNil())
	persistence.ActiveDataSourceManager = db.DS
	*testDatabase = db
}

func teardown(testDatabase *testinfra.TestDatabase) {
	if testDatabase != nil {
		testinfra.StopTestDatabase(testDatabase)
	}
}

func createState(db *testinfra.TestDatabase, id, workflowID types.ID, order int, perm domain.Permission) {
	Expect(db.DS.GormDB(context.Background()).Create(&domain.State{
		ID: id, Name: "S" + id.String(), OrderNumber: order, Permission: perm, WorkflowID: workflowID,
	}).Error).To(BeNil())
}

func stateOrdersOf(db *testinfra.TestDatabase, workflowID types.ID) []int {
	var states []domain.State
	Expect(db.DS.GormDB(context.Background()).Where("workflow_id = ?", workflowID).
		Order("order_number ASC").Find(&states).Error).To(BeNil())
	orders := []int{}
	for _, s := range states {
		orders = append(orders, s.OrderNumber)
	}
	return orders
}
