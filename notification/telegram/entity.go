package telegram

import (
	"time"

	"taskline/persistence"

	"github.com/fundwit/go-commons/types"
)

// LinkToken is a one-time credential binding a user to the chat that presents it.
type LinkToken struct {
	ID        types.ID  `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	UserID    types.ID  `json:"userId" sql:"type:BIGINT UNSIGNED NOT NULL"`
	HashID    string    `json:"hashId" sql:"type:VARCHAR(128);unique_index"`
	ExpiresAt time.Time `json:"expiresAt"`
	Used      bool      `json:"used"`

	persistence.AuditFields
}

func (t *LinkToken) TableName() string {
	return "telegram_link_tokens"
}

// User binds a platform user to a telegram chat.
type User struct {
	ID        types.ID  `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	UserID    types.ID  `json:"userId" sql:"type:BIGINT UNSIGNED NOT NULL;unique_index"`
	ChatID    int64     `json:"chatId" sql:"index"`
	Active    bool      `json:"active"`
	LinkedAt  time.Time `json:"linkedAt"`
	LastError string    `json:"lastError,omitempty" sql:"type:TEXT"`

	persistence.AuditFields
}

func (u *User) TableName() string {
	return "telegram_users"
}

func Models() []interface{} {
	return []interface{}{&LinkToken{}, &User{}}
}
