package domain

import (
	"time"

	"taskline/domain/state"
	"taskline/persistence"

	"github.com/fundwit/go-commons/types"
)

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

type Project struct {
	ID             types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	Name           string   `json:"name"`
	OrganizationID types.ID `json:"organizationId" sql:"type:BIGINT UNSIGNED NOT NULL;index"`
	Status         Status   `json:"status"`

	persistence.AuditFields
}

type Board struct {
	ID        types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	Name      string   `json:"name"`
	ProjectID types.ID `json:"projectId" sql:"type:BIGINT UNSIGNED NOT NULL;index"`
	Status    Status   `json:"status"`

	persistence.AuditFields
}

// Workflow with a nil OrganizationID is a shared system workflow, read-only to every tenant.
type Workflow struct {
	ID             types.ID  `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	Name           string    `json:"name"`
	OrganizationID *types.ID `json:"organizationId" sql:"type:BIGINT UNSIGNED;index"`

	persistence.AuditFields
}

func (w *Workflow) IsSystem() bool {
	return w.OrganizationID == nil
}

// VisibleTo reports whether members of the organization may read the workflow.
func (w *Workflow) VisibleTo(organizationID types.ID) bool {
	return w.IsSystem() || *w.OrganizationID == organizationID
}

type WorkflowDetail struct {
	Workflow
	States []State `json:"states"`
}

type Permission = state.Permission

const (
	PermissionOwner    = state.PermissionOwner
	PermissionAssignee = state.PermissionAssignee
)

func ValidPermission(p Permission) bool {
	return p == PermissionOwner || p == PermissionAssignee
}

type State struct {
	ID          types.ID   `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	Name        string     `json:"name"`
	OrderNumber int        `json:"orderNumber"`
	Permission  Permission `json:"permission"`
	WorkflowID  types.ID   `json:"workflowId" sql:"type:BIGINT UNSIGNED NOT NULL;index"`

	persistence.AuditFields
}

type Task struct {
	ID          types.ID   `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	Title       string     `json:"title"`
	Description string     `json:"description" sql:"type:TEXT"`
	BoardID     types.ID   `json:"boardId" sql:"type:BIGINT UNSIGNED NOT NULL;index"`
	StateID     types.ID   `json:"stateId" sql:"type:BIGINT UNSIGNED NOT NULL;index"`
	OwnerID     types.ID   `json:"ownerId" sql:"type:BIGINT UNSIGNED NOT NULL;index"`
	Deadline    *time.Time `json:"deadline"`

	persistence.AuditFields
}

// Expired reports whether the deadline has passed at now.
func (t *Task) Expired(now time.Time) bool {
	return t.Deadline != nil && now.After(*t.Deadline)
}

type TaskAssignee struct {
	ID         types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	TaskID     types.ID `json:"taskId" sql:"type:BIGINT UNSIGNED NOT NULL;index"`
	EmployeeID types.ID `json:"employeeId" sql:"type:BIGINT UNSIGNED NOT NULL;index"`

	persistence.AuditFields
}

type TaskMedia struct {
	ID     types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	TaskID types.ID `json:"taskId" sql:"type:BIGINT UNSIGNED NOT NULL;index"`
	FileID string   `json:"fileId"`

	persistence.AuditFields
}

// Node is the position of the state in the transition graph.
func (s *State) Node() state.Node {
	return state.Node{ID: s.ID, WorkflowID: s.WorkflowID, OrderNumber: s.OrderNumber, Permission: s.Permission}
}

func (m *TaskMedia) TableName() string {
	return "task_medias"
}

type TaskDetail struct {
	Task

	State          State      `json:"state"`
	BoardName      string     `json:"boardName"`
	ProjectID      types.ID   `json:"projectId"`
	ProjectName    string     `json:"projectName"`
	OrganizationID types.ID   `json:"organizationId"`
	Assignees      []types.ID `json:"assignees"`
	Files          []string   `json:"files"`
}

// Models lists every entity of the schema in creation order.
func Models() []interface{} {
	return []interface{}{&Project{}, &Board{}, &Workflow{}, &State{}, &Task{}, &TaskAssignee{}, &TaskMedia{}, &TaskAction{}}
}
