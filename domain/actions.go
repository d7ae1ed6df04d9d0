package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"taskline/persistence"

	"github.com/fundwit/go-commons/types"
)

type ActionType string

const (
	ActionCreated         ActionType = "CREATED"
	ActionTitleChanged    ActionType = "TITLE_CHANGED"
	ActionStateChanged    ActionType = "STATE_CHANGED"
	ActionDeadlineChanged ActionType = "DEADLINE_CHANGED"
	ActionFileAttached    ActionType = "FILE_ATTACHED"
	ActionAssigneeAdded   ActionType = "ASSIGNEE_ADDED"
)

// TaskAction is an append-only audit record of a task mutation.
type TaskAction struct {
	ID          types.ID   `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	TaskID      types.ID   `json:"taskId" sql:"type:BIGINT UNSIGNED NOT NULL;index"`
	Type        ActionType `json:"type"`
	ActorID     types.ID   `json:"actorId" sql:"type:BIGINT UNSIGNED NOT NULL"`
	ActorName   string     `json:"actorName"`
	FromState   string     `json:"fromState,omitempty"`
	ToState     string     `json:"toState,omitempty"`
	OldTitle    string     `json:"oldTitle,omitempty"`
	NewTitle    string     `json:"newTitle,omitempty"`
	NewDeadline *time.Time `json:"newDeadline,omitempty"`
	FileIDs     FileIDs    `json:"fileIds,omitempty" sql:"type:TEXT"`
	AssigneeID  types.ID   `json:"assigneeId,omitempty" sql:"type:BIGINT UNSIGNED"`

	persistence.AuditFields
}

type FileIDs []string

func (f FileIDs) Value() (driver.Value, error) {
	if f == nil {
		f = FileIDs{}
	}
	jsonBytes, err := json.Marshal([]string(f))
	if err != nil {
		return nil, err
	}
	return string(jsonBytes), nil
}

func (f *FileIDs) Scan(v interface{}) error {
	if v == nil {
		*f = nil
		return nil
	}
	jsonString, ok := v.(string)
	if !ok {
		jsonByte, ok := v.([]byte)
		if !ok {
			return fmt.Errorf("type is neither string nor []byte: %T %v", v, v)
		}
		jsonString = string(jsonByte)
	}
	return json.Unmarshal([]byte(jsonString), f)
}
