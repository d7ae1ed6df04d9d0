package work_test

import (
	"context"
	"sync"

	"taskline/bizerror"
	"taskline/client/directory"
	"taskline/domain"
	"taskline/domain/work"
	"taskline/event"
	"taskline/persistence"
	"taskline/session"
	"taskline/testinfra"

	"github.com/fundwit/go-commons/types"
	. "github.com/onsi/gomega"
)

const (
	stateTodo       types.ID = 11
	stateInProgress types.ID = 12
	stateReview     types.ID = 13
	stateDone       types.ID = 14
	foreignState    types.ID = 21
)

var (
	owner    = testinfra.BuildCaller(1, 100, 10, session.RoleEmployee)
	assignee = testinfra.BuildCaller(2, 100, 20, session.RoleEmployee)
	stranger = testinfra.BuildCaller(3, 200, 30, session.RoleManager)

	originalInvokeHandlers = event.InvokeHandlersFunc

	employees = map[types.ID]*directory.Employee{
		10: {ID: 10, User: directory.User{ID: 1, FirstName: "Ann", LastName: "Lee"},
			Organization: directory.Organization{ID: 100, Name: "Acme"}, IsActive: true},
		20: {ID: 20, User: directory.User{ID: 2, FirstName: "Bob", LastName: "Ray"},
			Organization: directory.Organization{ID: 100, Name: "Acme"}, IsActive: true},
		21: {ID: 21, User: directory.User{ID: 4, FirstName: "Cid"},
			Organization: directory.Organization{ID: 100, Name: "Acme"}, IsActive: false},
		30: {ID: 30, User: directory.User{ID: 3, FirstName: "Dan"},
			Organization: directory.Organization{ID: 200, Name: "Other"}, IsActive: true},
	}
)

type eventRecorder struct {
	mu     sync.Mutex
	events []*event.TaskEvent
}

func (r *eventRecorder) all() []*event.TaskEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*event.TaskEvent{}, r.events...)
}

func (r *eventRecorder) last() *event.TaskEvent {
	all := r.all()
	if len(all) == 0 {
		return nil
	}
	return all[len(all)-1]
}

// setup starts a database holding project 1 with active board 1 and inactive board 2 of
// organization 100, a four state workflow of that organization and a foreign workflow.
func setup(testDatabase **testinfra.TestDatabase) *eventRecorder {
	db := testinfra.StartTestDatabase("taskline")
	gdb := db.DS.GormDB(context.Background())
	Expect(gdb.AutoMigrate(domain.Models()...).Error).To(BeNil())
	persistence.ActiveDataSourceManager = db.DS
	*testDatabase = db

	org, otherOrg := types.ID(100), types.ID(200)
	Expect(gdb.Create(&domain.Project{ID: 1, Name: "apollo", OrganizationID: org, Status: domain.StatusActive}).Error).To(BeNil())
	Expect(gdb.Create(&domain.Board{ID: 1, Name: "sprint", ProjectID: 1, Status: domain.StatusActive}).Error).To(BeNil())
	Expect(gdb.Create(&domain.Board{ID: 2, Name: "frozen", ProjectID: 1, Status: domain.StatusInactive}).Error).To(BeNil())
	Expect(gdb.Create(&domain.Workflow{ID: 1, Name: "dev", OrganizationID: &org}).Error).To(BeNil())
	Expect(gdb.Create(&domain.Workflow{ID: 2, Name: "foreign", OrganizationID: &otherOrg}).Error).To(BeNil())
	for _, s := range []domain.State{
		{ID: stateTodo, Name: "TODO", OrderNumber: 1, Permission: domain.PermissionOwner, WorkflowID: 1},
		{ID: stateInProgress, Name: "IN_PROGRESS", OrderNumber: 2, Permission: domain.PermissionAssignee, WorkflowID: 1},
		{ID: stateReview, Name: "REVIEW", OrderNumber: 3, Permission: domain.PermissionAssignee, WorkflowID: 1},
		{ID: stateDone, Name: "DONE", OrderNumber: 4, Permission: domain.PermissionOwner, WorkflowID: 1},
		{ID: foreignState, Name: "OTHER", OrderNumber: 1, Permission: domain.PermissionOwner, WorkflowID: 2},
	} {
		s := s
		Expect(gdb.Create(&s).Error).To(BeNil())
	}

	stubDirectory()

	recorder := &eventRecorder{}
	event.InvokeHandlersFunc = func(ctx context.Context, e *event.TaskEvent) []event.EventHandleResult {
		recorder.mu.Lock()
		defer recorder.mu.Unlock()
		recorder.events = append(recorder.events, e)
		return nil
	}
	return recorder
}

func stubDirectory() {
	work.LookupEmployeeFunc = func(ctx context.Context, id types.ID) (*directory.Employee, error) {
		if e, ok := employees[id]; ok {
			c := *e
			return &c, nil
		}
		return nil, bizerror.ErrEmployeeNotFound
	}
}

func teardown(testDatabase *testinfra.TestDatabase) {
	work.LookupEmployeeFunc = work.LookupEmployee
	event.InvokeHandlersFunc = originalInvokeHandlers
	if testDatabase != nil {
		testinfra.StopTestDatabase(testDatabase)
	}
}

func createTodoTask(title string) *domain.TaskDetail {
	detail, err := work.CreateTask(&work.TaskCreation{BoardID: 1, StateID: stateTodo, Title: title}, owner)
	Expect(err).To(BeNil())
	return detail
}
