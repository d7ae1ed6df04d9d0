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
	CreateBoardFunc = CreateBoard
	UpdateBoardFunc = UpdateBoard
	DeleteBoardFunc = DeleteBoard
	DetailBoardFunc = DetailBoard
	QueryBoardsFunc = QueryBoards
)

type BoardCreation struct {
	ProjectID types.ID `json:"projectId" binding:"required"`
	Name      string   `json:"name" binding:"required"`
}

type BoardUpdating struct {
	ID     types.ID       `json:"id" binding:"required"`
	Name   *string        `json:"name"`
	Status *domain.Status `json:"status"`
}

type BoardQuery struct {
	ProjectID types.ID `form:"projectId" binding:"required"`
	PageQuery
}

func CreateBoard(c *BoardCreation, sec *session.Context) (*domain.Board, error) {
	if !sec.HasManagerRole() {
		return nil, bizerror.ErrForbidden
	}
	b := &domain.Board{
		ID:          idgen.NextID(idWorker),
		Name:        strings.TrimSpace(c.Name),
		ProjectID:   c.ProjectID,
		Status:      domain.StatusActive,
		AuditFields: persistence.NewAuditFields(sec.Identity.ID),
	}
	err := persistence.ActiveDataSourceManager.Transaction(sec.Ctx(), func(tx *persistence.Tx) error {
		p, err := FindOwnProject(tx.DB, c.ProjectID, sec)
		if err != nil {
			return err
		}
		if p.Status == domain.StatusInactive {
			return bizerror.ErrProjectInactive
		}
		return tx.Create(b).Error
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func UpdateBoard(c *BoardUpdating, sec *session.Context) (*domain.Board, error) {
	if !sec.HasManagerRole() {
		return nil, bizerror.ErrForbidden
	}
	if c.Status != nil && !c.Status.Valid() {
		return nil, bizerror.ErrBadParam.WithData("unknown status " + string(*c.Status))
	}
	var b *domain.Board
	err := persistence.ActiveDataSourceManager.Transaction(sec.Ctx(), func(tx *persistence.Tx) error {
		var err error
		if b, _, err = FindOwnBoard(tx.DB, c.ID, sec); err != nil {
			return err
		}
		changes := map[string]interface{}{"last_modified_by": sec.Identity.ID}
		if c.Name != nil {
			b.Name = strings.TrimSpace(*c.Name)
			changes["name"] = b.Name
		}
		if c.Status != nil {
			if *c.Status == domain.StatusInactive && b.Status != domain.StatusInactive {
				if err := checkBoardEmpty(tx.DB, b.ID); err != nil {
					return err
				}
			}
			b.Status = *c.Status
			changes["status"] = b.Status
		}
		b.LastModifiedBy = sec.Identity.ID
		return tx.Model(b).Updates(changes).Error
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func DeleteBoard(id types.ID, sec *session.Context) error {
	if !sec.HasManagerRole() {
		return bizerror.ErrForbidden
	}
	return persistence.ActiveDataSourceManager.Transaction(sec.Ctx(), func(tx *persistence.Tx) error {
		b, _, err := FindOwnBoard(tx.DB, id, sec)
		if err != nil {
			return err
		}
		if err := checkBoardEmpty(tx.DB, b.ID); err != nil {
			return err
		}
		if err := tx.Model(b).Update("last_modified_by", sec.Identity.ID).Error; err != nil {
			return err
		}
		return tx.Delete(b).Error
	})
}

func DetailBoard(id types.ID, sec *session.Context) (*domain.Board, error) {
	b, _, err := FindOwnBoard(persistence.ActiveDataSourceManager.GormDB(sec.Ctx()), id, sec)
	return b, err
}

func QueryBoards(q BoardQuery, sec *session.Context) ([]domain.Board, int, error) {
	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())
	if _, err := FindOwnProject(db, q.ProjectID, sec); err != nil {
		return nil, 0, err
	}
	offset, limit := q.Bounds()

	var total int
	if err := db.Model(&domain.Board{}).Where("project_id = ?", q.ProjectID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	boards := []domain.Board{}
	if err := db.Where("project_id = ?", q.ProjectID).Order("created_at DESC, id DESC").
		Offset(offset).Limit(limit).Find(&boards).Error; err != nil {
		return nil, 0, err
	}
	return boards, total, nil
}

// FindOwnBoard loads a board and its project, checking the project belongs to the caller's organization.
func FindOwnBoard(db *gorm.DB, id types.ID, sec *session.Context) (*domain.Board, *domain.Project, error) {
	b := &domain.Board{}
	if err := db.Where("id = ?", id).First(b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, bizerror.ErrBoardNotFound
		}
		return nil, nil, err
	}
	p, err := FindOwnProject(db, b.ProjectID, sec)
	if err != nil {
		if errors.Is(err, bizerror.ErrProjectNotFound) {
			return nil, nil, bizerror.ErrBoardNotFound
		}
		return nil, nil, err
	}
	return b, p, nil
}

func checkBoardEmpty(db *gorm.DB, boardID types.ID) error {
	open, err := CountOpenTasks(db, "tasks.board_id = ?", boardID)
	if err != nil {
		return err
	}
	if open > 0 {
		return bizerror.ErrBoardNotEmpty
	}
	return nil
}
