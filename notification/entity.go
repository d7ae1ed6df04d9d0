package notification

import (
	"time"

	"taskline/persistence"

	"github.com/fundwit/go-commons/types"
)

type Status string

const (
	StatusPending Status = "PENDING"
	StatusSent    Status = "SENT"
	StatusFailed  Status = "FAILED"
)

// Notification is one rendered message for one recipient. Only the dispatcher changes
// its status, PENDING moves to SENT or FAILED once and for all.
type Notification struct {
	ID               types.ID   `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	UserID           types.ID   `json:"userId" sql:"type:BIGINT UNSIGNED NOT NULL;index"`
	TaskID           types.ID   `json:"taskId" sql:"type:BIGINT UNSIGNED NOT NULL"`
	OrganizationName string     `json:"organizationName"`
	ProjectName      string     `json:"projectName"`
	OwnerName        string     `json:"ownerName"`
	Title            string     `json:"title" sql:"type:TEXT"`
	OldState         string     `json:"oldState"`
	NewState         string     `json:"newState"`
	Message          string     `json:"message" sql:"type:TEXT"`
	Status           Status     `json:"status" sql:"index"`
	Error            string     `json:"error,omitempty" sql:"type:TEXT"`
	ActionDate       time.Time  `json:"actionDate"`
	ClaimedBy        string     `json:"-"`
	ClaimedAt        *time.Time `json:"-"`

	persistence.AuditFields
}

func Models() []interface{} {
	return []interface{}{&Notification{}}
}
