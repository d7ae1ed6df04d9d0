package work_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskline/bizerror"
	"taskline/domain"
	"taskline/domain/namespace"
	"taskline/domain/work"
	"taskline/event"
	"taskline/testinfra"

	"github.com/fundwit/go-commons/types"
	. "github.com/onsi/gomega"
)

func TestCreateTask(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should create task with files and an audit only action", func(t *testing.T) {
		defer func() { teardown(testDatabase) }()
		events := setup(&testDatabase)

		deadline := time.Now().Add(48 * time.Hour)
		detail, err := work.CreateTask(&work.TaskCreation{
			BoardID: 1, StateID: stateTodo, Title: " ship it ", Description: "desc",
			Medias: []string{"f1", "f2", "f1"}, Deadline: &deadline,
		}, owner)
		Expect(err).To(BeNil())
		Expect(detail.Title).To(Equal("ship it"))
		Expect(detail.OwnerID).To(Equal(types.ID(10)))
		Expect(detail.State.Name).To(Equal("TODO"))
		Expect(detail.BoardName).To(Equal("sprint"))
		Expect(detail.ProjectName).To(Equal("apollo"))
		Expect(detail.Files).To(Equal([]string{"f1", "f2"}))
		Expect(detail.Assignees).To(BeEmpty())

		actions, err := work.ListActions(detail.ID, owner)
		Expect(err).To(BeNil())
		Expect(len(actions)).To(Equal(1))
		Expect(actions[0].Type).To(Equal(domain.ActionCreated))
		Expect(actions[0].ActorName).To(Equal("Ann Lee"))
		Expect(actions[0].ToState).To(Equal("TODO"))

		Expect(len(events.all())).To(Equal(1))
		ev := events.last()
		Expect(ev.Type).To(Equal(event.EventTaskCreated))
		Expect(ev.Notifiable()).To(BeFalse())
		Expect(ev.OrganizationName).To(Equal("Acme"))
		Expect(ev.OwnerName).To(Equal("Ann Lee"))
	})

	t.Run("should reject invalid creations", func(t *testing.T) {
		defer func() { teardown(testDatabase) }()
		events := setup(&testDatabase)

		past := time.Now().Add(-time.Hour)
		_, err := work.CreateTask(&work.TaskCreation{BoardID: 1, StateID: stateTodo, Title: "t", Deadline: &past}, owner)
		Expect(errors.Is(err, bizerror.ErrDeadlineInPast)).To(BeTrue())

		_, err = work.CreateTask(&work.TaskCreation{BoardID: 2, StateID: stateTodo, Title: "t"}, owner)
		Expect(errors.Is(err, bizerror.ErrBoardInactive)).To(BeTrue())

		_, err = work.CreateTask(&work.TaskCreation{BoardID: 404, StateID: stateTodo, Title: "t"}, owner)
		Expect(errors.Is(err, bizerror.ErrBoardNotFound)).To(BeTrue())

		_, err = work.CreateTask(&work.TaskCreation{BoardID: 1, StateID: 404, Title: "t"}, owner)
		Expect(errors.Is(err, bizerror.ErrStateNotFound)).To(BeTrue())

		_, err = work.CreateTask(&work.TaskCreation{BoardID: 1, StateID: foreignState, Title: "t"}, owner)
		Expect(errors.Is(err, bizerror.ErrForbidden)).To(BeTrue())

		_, err = work.CreateTask(&work.TaskCreation{BoardID: 1, StateID: stateTodo, Title: "t"}, stranger)
		Expect(errors.Is(err, bizerror.ErrForbidden)).To(BeTrue())

		Expect(events.all()).To(BeEmpty())
	})
}

func TestUpdateTask(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should record each change and emit one aggregated event", func(t *testing.T) {
		defer func() { teardown(testDatabase) }()
		events := setup(&testDatabase)
		task := createTodoTask("draft")

		title, desc := "final", "updated"
		deadline := time.Now().Add(72 * time.Hour)
		detail, err := work.UpdateTask(&work.TaskUpdating{
			ID: task.ID, Title: &title, Description: &desc, Deadline: &deadline, Medias: []string{"a", "b"},
		}, owner)
		Expect(err).To(BeNil())
		Expect(detail.Title).To(Equal("final"))
		Expect(detail.Description).To(Equal("updated"))
		Expect(detail.Deadline.Equal(deadline)).To(BeTrue())
		Expect(detail.Files).To(Equal([]string{"a", "b"}))

		actions, err := work.ListActions(task.ID, owner)
		Expect(err).To(BeNil())
		Expect(len(actions)).To(Equal(4))
		Expect(actions[0].Type).To(Equal(domain.ActionFileAttached))
		Expect([]string(actions[0].FileIDs)).To(Equal([]string{"a", "b"}))
		Expect(actions[1].Type).To(Equal(domain.ActionDeadlineChanged))
		Expect(actions[2].Type).To(Equal(domain.ActionTitleChanged))
		Expect(actions[2].OldTitle).To(Equal("draft"))
		Expect(actions[2].NewTitle).To(Equal("final"))
		Expect(actions[3].Type).To(Equal(domain.ActionCreated))

		Expect(len(events.all())).To(Equal(2))
		ev := events.last()
		Expect(ev.Type).To(Equal(event.EventTaskUpdated))
		Expect(ev.Notifiable()).To(BeTrue())
		Expect(ev.NewTitle).To(Equal("final"))
		Expect(ev.NewFileAttach).To(Equal([]string{"a", "b"}))
		Expect(ev.NewDeadline.Equal(deadline)).To(BeTrue())
		Expect(ev.FromState).To(Equal("TODO"))

		// already attached files are not recorded twice
		_, err = work.UpdateTask(&work.TaskUpdating{ID: task.ID, Medias: []string{"a"}}, owner)
		Expect(err).To(BeNil())
		actions, err = work.ListActions(task.ID, owner)
		Expect(err).To(BeNil())
		Expect(len(actions)).To(Equal(4))
		Expect(events.last().Notifiable()).To(BeFalse())
	})

	t.Run("only the owner should update or delete", func(t *testing.T) {
		defer func() { teardown(testDatabase) }()
		setup(&testDatabase)
		task := createTodoTask("draft")

		title := "hijack"
		_, err := work.UpdateTask(&work.TaskUpdating{ID: task.ID, Title: &title}, assignee)
		Expect(errors.Is(err, bizerror.ErrForbidden)).To(BeTrue())
		_, err = work.UpdateTask(&work.TaskUpdating{ID: task.ID, Title: &title}, stranger)
		Expect(errors.Is(err, bizerror.ErrForbidden)).To(BeTrue())
		Expect(errors.Is(work.DeleteTask(task.ID, assignee), bizerror.ErrForbidden)).To(BeTrue())

		past := time.Now().Add(-time.Minute)
		_, err = work.UpdateTask(&work.TaskUpdating{ID: task.ID, Deadline: &past}, owner)
		Expect(errors.Is(err, bizerror.ErrDeadlineInPast)).To(BeTrue())
	})

	t.Run("should soft delete task", func(t *testing.T) {
		defer func() { teardown(testDatabase) }()
		events := setup(&testDatabase)
		task := createTodoTask("draft")

		Expect(work.DeleteTask(task.ID, owner)).To(BeNil())
		_, err := work.DetailTask(task.ID, owner)
		Expect(errors.Is(err, bizerror.ErrTaskNotFound)).To(BeTrue())
		Expect(events.last().Type).To(Equal(event.EventTaskDeleted))

		var count int
		Expect(testDatabase.DS.GormDB(context.Background()).Unscoped().Model(&domain.Task{}).
			Where("id = ?", task.ID).Count(&count).Error).To(BeNil())
		Expect(count).To(Equal(1))
	})
}

func TestQueryTasks(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should page tasks of a board", func(t *testing.T) {
		defer func() { teardown(testDatabase) }()
		setup(&testDatabase)
		createTodoTask("a")
		createTodoTask("b")
		createTodoTask("c")

		tasks, total, err := work.QueryTasks(work.TaskQuery{BoardID: 1, PageQuery: namespace.PageQuery{Size: 2}}, owner)
		Expect(err).To(BeNil())
		Expect(total).To(Equal(3))
		Expect(len(tasks)).To(Equal(2))
		Expect(tasks[0].Title).To(Equal("c"))

		_, _, err = work.QueryTasks(work.TaskQuery{BoardID: 1}, stranger)
		Expect(errors.Is(err, bizerror.ErrForbidden)).To(BeTrue())
	})

	t.Run("should list owned and assigned tasks", func(t *testing.T) {
		defer func() { teardown(testDatabase) }()
		setup(&testDatabase)
		mine := createTodoTask("mine")
		createTodoTask("other")
		_, err := work.AssignTask(&work.Assigning{TaskID: mine.ID, EmployeeID: 20}, owner)
		Expect(err).To(BeNil())

		tasks, total, err := work.MyTasks(namespace.PageQuery{}, owner)
		Expect(err).To(BeNil())
		Expect(total).To(Equal(2))
		Expect(len(tasks)).To(Equal(2))

		tasks, total, err = work.MyTasks(namespace.PageQuery{}, assignee)
		Expect(err).To(BeNil())
		Expect(total).To(Equal(1))
		Expect(tasks[0].ID).To(Equal(mine.ID))

		tasks, total, err = work.MyTasks(namespace.PageQuery{}, stranger)
		Expect(err).To(BeNil())
		Expect(total).To(Equal(0))
		Expect(tasks).To(BeEmpty())
	})

	t.Run("should load tasks of every organization for indexing", func(t *testing.T) {
		defer func() { teardown(testDatabase) }()
		setup(&testDatabase)
		createTodoTask("a")
		createTodoTask("b")

		details, err := work.LoadTasks(0, 1)
		Expect(err).To(BeNil())
		Expect(len(details)).To(Equal(1))
		Expect(details[0].ProjectName).To(Equal("apollo"))
		Expect(details[0].OrganizationID).To(Equal(types.ID(100)))

		details, err = work.LoadTasks(2, 1)
		Expect(err).To(BeNil())
		Expect(details).To(BeEmpty())
	})

	t.Run("should load a single task without caller scope", func(t *testing.T) {
		defer func() { teardown(testDatabase) }()
		setup(&testDatabase)
		created := createTodoTask("a")

		d, err := work.LoadTask(context.Background(), created.ID)
		Expect(err).To(BeNil())
		Expect(d.Title).To(Equal("a"))
		Expect(d.State.Name).To(Equal("TODO"))

		Expect(work.DeleteTask(created.ID, owner)).To(BeNil())
		_, err = work.LoadTask(context.Background(), created.ID)
		Expect(errors.Is(err, bizerror.ErrTaskNotFound)).To(BeTrue())
	})
}
