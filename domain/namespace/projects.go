package namespace

import (
	"errors"
	"strings"

	"taskline/bizerror"
	"taskline/domain"
	"taskline/idgen"
	"taskline/persistence"
	"taskline/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

var (
	idWorker = idgen.NewSonyflake()

	CreateProjectFunc  = CreateProject
	UpdateProjectFunc  = UpdateProject
	DeleteProjectFunc  = DeleteProject
	DetailProjectFunc  = DetailProject
	QueryProjectsFunc  = QueryProjects
	FindOwnProjectFunc = FindOwnProject
)

type ProjectCreation struct {
	Name string `json:"name" binding:"required"`
}

type ProjectUpdating struct {
	ID     types.ID       `json:"id" binding:"required"`
	Name   *string        `json:"name"`
	Status *domain.Status `json:"status"`
}

type PageQuery struct {
	Page int `form:"page"`
	Size int `form:"size"`
}

func (q PageQuery) Bounds() (offset, limit int) {
	size := q.Size
	if size <= 0 || size > 100 {
		size = 20
	}
	page := q.Page
	if page < 0 {
		page = 0
	}
	return page * size, size
}

func CreateProject(c *ProjectCreation, sec *session.Context) (*domain.Project, error) {
	if !sec.HasManagerRole() {
		return nil, bizerror.ErrForbidden
	}
	p := &domain.Project{
		ID:             idgen.NextID(idWorker),
		Name:           strings.TrimSpace(c.Name),
		OrganizationID: sec.OrganizationID,
		Status:         domain.StatusActive,
		AuditFields:    persistence.NewAuditFields(sec.Identity.ID),
	}
	if err := persistence.ActiveDataSourceManager.GormDB(sec.Ctx()).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateProject renames the project or changes its status. A status change requires
// the project to have no live board and no open task.
func UpdateProject(c *ProjectUpdating, sec *session.Context) (*domain.Project, error) {
	if !sec.HasManagerRole() {
		return nil, bizerror.ErrForbidden
	}
	if c.Status != nil && !c.Status.Valid() {
		return nil, bizerror.ErrBadParam.WithData("unknown status " + string(*c.Status))
	}
	var p *domain.Project
	err := persistence.ActiveDataSourceManager.Transaction(sec.Ctx(), func(tx *persistence.Tx) error {
		var err error
		if p, err = FindOwnProject(tx.DB, c.ID, sec); err != nil {
			return err
		}
		changes := map[string]interface{}{"last_modified_by": sec.Identity.ID}
		if c.Name != nil {
			p.Name = strings.TrimSpace(*c.Name)
			changes["name"] = p.Name
		}
		if c.Status != nil {
			if *c.Status == domain.StatusInactive && p.Status != domain.StatusInactive {
				if err := checkProjectEmpty(tx.DB, p.ID); err != nil {
					return err
				}
			}
			p.Status = *c.Status
			changes["status"] = p.Status
		}
		p.LastModifiedBy = sec.Identity.ID
		return tx.Model(p).Updates(changes).Error
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func DeleteProject(id types.ID, sec *session.Context) error {
	if !sec.HasManagerRole() {
		return bizerror.ErrForbidden
	}
	return persistence.ActiveDataSourceManager.Transaction(sec.Ctx(), func(tx *persistence.Tx) error {
		p, err := FindOwnProject(tx.DB, id, sec)
		if err != nil {
			return err
		}
		if err := checkProjectEmpty(tx.DB, p.ID); err != nil {
			return err
		}
		if err := tx.Model(p).Update("last_modified_by", sec.Identity.ID).Error; err != nil {
			return err
		}
		return tx.Delete(p).Error
	})
}

func DetailProject(id types.ID, sec *session.Context) (*domain.Project, error) {
	return FindOwnProject(persistence.ActiveDataSourceManager.GormDB(sec.Ctx()), id, sec)
}

func QueryProjects(q PageQuery, sec *session.Context) ([]domain.Project, int, error) {
	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())
	offset, limit := q.Bounds()

	var total int
	if err := db.Model(&domain.Project{}).Where("organization_id = ?", sec.OrganizationID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	projects := []domain.Project{}
	if err := db.Where("organization_id = ?", sec.OrganizationID).Order("created_at DESC, id DESC").
		Offset(offset).Limit(limit).Find(&projects).Error; err != nil {
		return nil, 0, err
	}
	return projects, total, nil
}

// FindOwnProject loads a project of the caller's organization.
func FindOwnProject(db *gorm.DB, id types.ID, sec *session.Context) (*domain.Project, error) {
	p := &domain.Project{}
	if err := db.Where("id = ?", id).First(p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bizerror.ErrProjectNotFound
		}
		return nil, err
	}
	if p.OrganizationID != sec.OrganizationID {
		return nil, bizerror.ErrForbidden
	}
	return p, nil
}

func checkProjectEmpty(db *gorm.DB, projectID types.ID) error {
	var boards int
	if err := db.Model(&domain.Board{}).Where("project_id = ?", projectID).Count(&boards).Error; err != nil {
		return err
	}
	if boards > 0 {
		return bizerror.ErrProjectNotEmpty
	}
	open, err := CountOpenTasks(db, "boards.project_id = ?", projectID)
	if err != nil {
		return err
	}
	if open > 0 {
		return bizerror.ErrProjectNotEmpty
	}
	return nil
}

// CountOpenTasks counts live tasks matching the board condition whose state is not
// the last state of their workflow.
func CountOpenTasks(db *gorm.DB, boardCondition string, args ...interface{}) (int, error) {
	var count int
	err := db.Model(&domain.Task{}).
		Joins("JOIN boards ON boards.id = tasks.board_id").
		Joins("JOIN states ON states.id = tasks.state_id").
		Where(boardCondition, args...).
		Where("states.order_number < (SELECT MAX(ws.order_number) FROM states ws " +
			"WHERE ws.workflow_id = states.workflow_id AND ws.deleted_at IS NULL)").
		Count(&count).Error
	return count, err
}
