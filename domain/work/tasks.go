package work

import (
	"context"
	"errors"
	"strings"
	"time"

	"taskline/bizerror"
	"taskline/domain"
	"taskline/domain/namespace"
	"taskline/event"
	"taskline/idgen"
	"taskline/persistence"
	"taskline/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

var (
	idWorker = idgen.NewSonyflake()

	CreateTaskFunc = CreateTask
	UpdateTaskFunc = UpdateTask
	DeleteTaskFunc = DeleteTask
	DetailTaskFunc = DetailTask
	QueryTasksFunc = QueryTasks
	MyTasksFunc    = MyTasks
	LoadTasksFunc  = LoadTasks
	LoadTaskFunc   = LoadTask
)

type TaskCreation struct {
	BoardID     types.ID   `json:"boardId" binding:"required"`
	StateID     types.ID   `json:"stateId" binding:"required"`
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	Medias      []string   `json:"medias"`
	Deadline    *time.Time `json:"deadline"`
}

type TaskUpdating struct {
	ID          types.ID   `json:"id" binding:"required"`
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Deadline    *time.Time `json:"deadline"`
	Medias      []string   `json:"medias"`
}

type TaskQuery struct {
	BoardID types.ID `form:"boardId" binding:"required"`
	namespace.PageQuery
}

// CreateTask places a new task owned by the caller on an active board. The CREATED
// action is audit only, nobody is notified about it.
func CreateTask(c *TaskCreation, sec *session.Context) (*domain.TaskDetail, error) {
	title := strings.TrimSpace(c.Title)
	if title == "" {
		return nil, bizerror.ErrBadParam.WithData("title is blank")
	}
	if c.Deadline != nil && !c.Deadline.After(time.Now()) {
		return nil, bizerror.ErrDeadlineInPast
	}
	actor, err := LookupEmployeeFunc(sec.Ctx(), sec.EmployeeID)
	if err != nil {
		return nil, err
	}
	ps := &participants{actor: actor, owner: actor}

	t := &domain.Task{
		ID:          idgen.NextID(idWorker),
		Title:       title,
		Description: c.Description,
		BoardID:     c.BoardID,
		StateID:     c.StateID,
		OwnerID:     sec.EmployeeID,
		Deadline:    c.Deadline,
		AuditFields: persistence.NewAuditFields(sec.Identity.ID),
	}
	var detail *domain.TaskDetail
	err = persistence.ActiveDataSourceManager.Transaction(sec.Ctx(), func(tx *persistence.Tx) error {
		b, p, err := namespace.FindOwnBoard(tx.DB, c.BoardID, sec)
		if err != nil {
			return err
		}
		if p.Status == domain.StatusInactive {
			return bizerror.ErrProjectInactive
		}
		if b.Status == domain.StatusInactive {
			return bizerror.ErrBoardInactive
		}
		st, err := findVisibleState(tx.DB, c.StateID, sec)
		if err != nil {
			return err
		}

		if err := tx.Create(t).Error; err != nil {
			return err
		}
		if _, err := attachFiles(tx, t.ID, c.Medias, nil, sec); err != nil {
			return err
		}
		if err := recordAction(tx, &domain.TaskAction{
			TaskID: t.ID, Type: domain.ActionCreated, ActorID: sec.EmployeeID, ActorName: ps.actorName(),
			ToState: st.Name, NewTitle: t.Title, NewDeadline: t.Deadline,
		}, sec); err != nil {
			return err
		}

		if detail, err = loadDetail(tx.DB, t, b, p); err != nil {
			return err
		}
		event.Emit(sec.Ctx(), tx, newTaskEvent(event.EventTaskCreated, detail, ps))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}

// UpdateTask edits a task of the caller. Title, deadline and new files are recorded as
// separate actions and announced together in one event.
func UpdateTask(c *TaskUpdating, sec *session.Context) (*domain.TaskDetail, error) {
	if c.Title != nil && strings.TrimSpace(*c.Title) == "" {
		return nil, bizerror.ErrBadParam.WithData("title is blank")
	}
	if c.Deadline != nil && !c.Deadline.After(time.Now()) {
		return nil, bizerror.ErrDeadlineInPast
	}
	peek, ps, err := loadParticipants(c.ID, sec)
	if err != nil {
		return nil, err
	}
	if peek.OwnerID != sec.EmployeeID {
		return nil, bizerror.ErrForbidden
	}

	var detail *domain.TaskDetail
	err = persistence.ActiveDataSourceManager.Transaction(sec.Ctx(), func(tx *persistence.Tx) error {
		t, b, p, err := lockOwnTask(tx, c.ID, sec)
		if err != nil {
			return err
		}
		if t.OwnerID != sec.EmployeeID {
			return bizerror.ErrForbidden
		}

		changes := map[string]interface{}{"last_modified_by": sec.Identity.ID}
		ev := &event.TaskEvent{}
		if c.Title != nil && strings.TrimSpace(*c.Title) != t.Title {
			newTitle := strings.TrimSpace(*c.Title)
			if err := recordAction(tx, &domain.TaskAction{
				TaskID: t.ID, Type: domain.ActionTitleChanged, ActorID: sec.EmployeeID, ActorName: ps.actorName(),
				OldTitle: t.Title, NewTitle: newTitle,
			}, sec); err != nil {
				return err
			}
			t.Title = newTitle
			changes["title"] = newTitle
			ev.NewTitle = newTitle
		}
		if c.Description != nil {
			t.Description = *c.Description
			changes["description"] = *c.Description
		}
		if c.Deadline != nil && (t.Deadline == nil || !t.Deadline.Equal(*c.Deadline)) {
			if err := recordAction(tx, &domain.TaskAction{
				TaskID: t.ID, Type: domain.ActionDeadlineChanged, ActorID: sec.EmployeeID, ActorName: ps.actorName(),
				NewDeadline: c.Deadline,
			}, sec); err != nil {
				return err
			}
			t.Deadline = c.Deadline
			changes["deadline"] = *c.Deadline
			ev.NewDeadline = c.Deadline
		}
		if len(c.Medias) > 0 {
			known, err := existingFiles(tx.DB, t.ID)
			if err != nil {
				return err
			}
			added, err := attachFiles(tx, t.ID, c.Medias, known, sec)
			if err != nil {
				return err
			}
			if len(added) > 0 {
				if err := recordAction(tx, &domain.TaskAction{
					TaskID: t.ID, Type: domain.ActionFileAttached, ActorID: sec.EmployeeID, ActorName: ps.actorName(),
					FileIDs: added,
				}, sec); err != nil {
					return err
				}
				ev.NewFileAttach = added
			}
		}

		t.LastModifiedBy = sec.Identity.ID
		if err := tx.Model(t).Updates(changes).Error; err != nil {
			return err
		}
		if detail, err = loadDetail(tx.DB, t, b, p); err != nil {
			return err
		}

		full := newTaskEvent(event.EventTaskUpdated, detail, ps)
		full.NewTitle, full.NewDeadline, full.NewFileAttach = ev.NewTitle, ev.NewDeadline, ev.NewFileAttach
		event.Emit(sec.Ctx(), tx, full)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}

// DeleteTask soft deletes a task of the caller. Its assignees, files and actions stay.
func DeleteTask(id types.ID, sec *session.Context) error {
	peek, ps, err := loadParticipants(id, sec)
	if err != nil {
		return err
	}
	if peek.OwnerID != sec.EmployeeID {
		return bizerror.ErrForbidden
	}
	return persistence.ActiveDataSourceManager.Transaction(sec.Ctx(), func(tx *persistence.Tx) error {
		t, b, p, err := lockOwnTask(tx, id, sec)
		if err != nil {
			return err
		}
		if t.OwnerID != sec.EmployeeID {
			return bizerror.ErrForbidden
		}
		detail, err := loadDetail(tx.DB, t, b, p)
		if err != nil {
			return err
		}
		if err := tx.Model(t).Update("last_modified_by", sec.Identity.ID).Error; err != nil {
			return err
		}
		if err := tx.Delete(t).Error; err != nil {
			return err
		}
		event.Emit(sec.Ctx(), tx, newTaskEvent(event.EventTaskDeleted, detail, ps))
		return nil
	})
}

func DetailTask(id types.ID, sec *session.Context) (*domain.TaskDetail, error) {
	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())
	t, b, p, err := findOwnTask(db, id, sec)
	if err != nil {
		return nil, err
	}
	return loadDetail(db, t, b, p)
}

func QueryTasks(q TaskQuery, sec *session.Context) ([]domain.Task, int, error) {
	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())
	if _, _, err := namespace.FindOwnBoard(db, q.BoardID, sec); err != nil {
		return nil, 0, err
	}
	offset, limit := q.Bounds()

	var total int
	if err := db.Model(&domain.Task{}).Where("board_id = ?", q.BoardID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	tasks := []domain.Task{}
	if err := db.Where("board_id = ?", q.BoardID).Order("created_at DESC, id DESC").
		Offset(offset).Limit(limit).Find(&tasks).Error; err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// MyTasks lists the tasks of the caller's organization the caller owns or is assigned to.
func MyTasks(q namespace.PageQuery, sec *session.Context) ([]domain.Task, int, error) {
	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())
	offset, limit := q.Bounds()

	scope := db.Model(&domain.Task{}).
		Joins("JOIN boards ON boards.id = tasks.board_id AND boards.deleted_at IS NULL").
		Joins("JOIN projects ON projects.id = boards.project_id AND projects.deleted_at IS NULL").
		Where("projects.organization_id = ?", sec.OrganizationID).
		Where("tasks.owner_id = ? OR tasks.id IN (SELECT ta.task_id FROM task_assignees ta "+
			"WHERE ta.employee_id = ? AND ta.deleted_at IS NULL)", sec.EmployeeID, sec.EmployeeID)

	var total int
	if err := scope.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	tasks := []domain.Task{}
	if err := scope.Select("tasks.*").Order("tasks.created_at DESC, tasks.id DESC").
		Offset(offset).Limit(limit).Find(&tasks).Error; err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// LoadTasks pages over every live task regardless of organization, for index rebuilds.
func LoadTasks(page, size int) ([]domain.TaskDetail, error) {
	db := persistence.ActiveDataSourceManager.GormDB(context.Background())
	tasks := []domain.Task{}
	if err := db.Order("id ASC").Offset(page * size).Limit(size).Find(&tasks).Error; err != nil {
		return nil, err
	}
	details := make([]domain.TaskDetail, 0, len(tasks))
	for i := range tasks {
		d, err := loadSystemDetail(db, &tasks[i])
		if err != nil {
			return nil, err
		}
		details = append(details, *d)
	}
	return details, nil
}

// LoadTask reads one live task outside of any caller scope.
func LoadTask(ctx context.Context, id types.ID) (*domain.TaskDetail, error) {
	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	t, err := findTask(db, id)
	if err != nil {
		return nil, err
	}
	return loadSystemDetail(db, t)
}

func loadSystemDetail(db *gorm.DB, t *domain.Task) (*domain.TaskDetail, error) {
	b := &domain.Board{}
	if err := db.Unscoped().Where("id = ?", t.BoardID).First(b).Error; err != nil {
		return nil, err
	}
	p := &domain.Project{}
	if err := db.Unscoped().Where("id = ?", b.ProjectID).First(p).Error; err != nil {
		return nil, err
	}
	return loadDetail(db, t, b, p)
}

// findOwnTask loads a task with its board and project, checking the project belongs to
// the caller's organization.
func findOwnTask(db *gorm.DB, id types.ID, sec *session.Context) (*domain.Task, *domain.Board, *domain.Project, error) {
	t, err := findTask(db, id)
	if err != nil {
		return nil, nil, nil, err
	}
	return withOwnBoard(db, t, sec)
}

// lockOwnTask is findOwnTask holding a row lock on the task for the rest of the transaction.
func lockOwnTask(tx *persistence.Tx, id types.ID, sec *session.Context) (*domain.Task, *domain.Board, *domain.Project, error) {
	t, err := findTask(persistence.ForUpdate(tx.DB), id)
	if err != nil {
		return nil, nil, nil, err
	}
	return withOwnBoard(tx.DB, t, sec)
}

func withOwnBoard(db *gorm.DB, t *domain.Task, sec *session.Context) (*domain.Task, *domain.Board, *domain.Project, error) {
	b, p, err := namespace.FindOwnBoard(db, t.BoardID, sec)
	if err != nil {
		if errors.Is(err, bizerror.ErrBoardNotFound) {
			return nil, nil, nil, bizerror.ErrTaskNotFound
		}
		return nil, nil, nil, err
	}
	return t, b, p, nil
}

// findVisibleState loads a state whose workflow the caller may use.
func findVisibleState(db *gorm.DB, id types.ID, sec *session.Context) (*domain.State, error) {
	st := &domain.State{}
	if err := db.Where("id = ?", id).First(st).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bizerror.ErrStateNotFound
		}
		return nil, err
	}
	wf := &domain.Workflow{}
	if err := db.Where("id = ?", st.WorkflowID).First(wf).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bizerror.ErrStateNotFound
		}
		return nil, err
	}
	if !wf.VisibleTo(sec.OrganizationID) {
		return nil, bizerror.ErrForbidden
	}
	return st, nil
}

func loadDetail(db *gorm.DB, t *domain.Task, b *domain.Board, p *domain.Project) (*domain.TaskDetail, error) {
	st := domain.State{}
	if err := db.Unscoped().Where("id = ?", t.StateID).First(&st).Error; err != nil {
		return nil, err
	}
	assignees, err := assigneesOf(db, t.ID)
	if err != nil {
		return nil, err
	}
	var medias []domain.TaskMedia
	if err := db.Where("task_id = ?", t.ID).Order("created_at ASC, id ASC").Find(&medias).Error; err != nil {
		return nil, err
	}
	files := make([]string, 0, len(medias))
	for _, m := range medias {
		files = append(files, m.FileID)
	}
	return &domain.TaskDetail{
		Task: *t, State: st,
		BoardName: b.Name, ProjectID: p.ID, ProjectName: p.Name, OrganizationID: p.OrganizationID,
		Assignees: assignees, Files: files,
	}, nil
}

func assigneesOf(db *gorm.DB, taskID types.ID) ([]types.ID, error) {
	var rows []domain.TaskAssignee
	if err := db.Where("task_id = ?", taskID).Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	ids := make([]types.ID, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.EmployeeID)
	}
	return ids, nil
}

func existingFiles(db *gorm.DB, taskID types.ID) (map[string]bool, error) {
	var medias []domain.TaskMedia
	if err := db.Where("task_id = ?", taskID).Find(&medias).Error; err != nil {
		return nil, err
	}
	known := map[string]bool{}
	for _, m := range medias {
		known[m.FileID] = true
	}
	return known, nil
}

// attachFiles stores the file ids not in known and returns them in request order.
func attachFiles(tx *persistence.Tx, taskID types.ID, fileIDs []string, known map[string]bool, sec *session.Context) ([]string, error) {
	if known == nil {
		known = map[string]bool{}
	}
	var added []string
	for _, fileID := range fileIDs {
		fileID = strings.TrimSpace(fileID)
		if fileID == "" || known[fileID] {
			continue
		}
		known[fileID] = true
		m := &domain.TaskMedia{ID: idgen.NextID(idWorker), TaskID: taskID, FileID: fileID,
			AuditFields: persistence.NewAuditFields(sec.Identity.ID)}
		if err := tx.Create(m).Error; err != nil {
			return nil, err
		}
		added = append(added, fileID)
	}
	return added, nil
}
