package persistence

import (
	"time"

	"github.com/fundwit/go-commons/types"
)

// AuditFields is embedded by every entity. A non-nil DeletedAt marks a soft deleted row,
// gorm filters those rows out of queries and turns Delete into an update.
type AuditFields struct {
	CreatedBy      types.ID   `json:"createdBy"`
	CreatedAt      time.Time  `json:"createdAt"`
	LastModifiedBy types.ID   `json:"lastModifiedBy"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	DeletedAt      *time.Time `json:"-" sql:"index"`
}

func NewAuditFields(by types.ID) AuditFields {
	return AuditFields{CreatedBy: by, LastModifiedBy: by}
}
