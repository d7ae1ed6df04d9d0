package telegram

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"taskline/bizerror"
	"taskline/idgen"
	"taskline/persistence"
	"taskline/session"

	"github.com/jinzhu/gorm"
)

const (
	tokenLength   = 11
	tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

	ReplyLinked  = "You are linked. Task notifications will arrive in this chat."
	ReplyWelcome = "Open the link issued by the task tracker to connect this chat."
)

var (
	idWorker = idgen.NewSonyflake()

	LinkTTL     = 15 * time.Minute
	BotUsername string

	GenerateTokenFunc = GenerateToken
	ConsumeTokenFunc  = ConsumeToken

	randomToken = newRandomToken
)

type Link struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// GenerateToken issues a link token for the caller. The returned deep link opens the
// bot with the token as start parameter.
func GenerateToken(sec *session.Context) (*Link, error) {
	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())
	for attempt := 0; attempt < 5; attempt++ {
		hashID, err := randomToken()
		if err != nil {
			return nil, err
		}
		var taken int
		if err := db.Model(&LinkToken{}).Unscoped().Where("hash_id = ?", hashID).Count(&taken).Error; err != nil {
			return nil, err
		}
		if taken > 0 {
			continue
		}

		t := &LinkToken{
			ID:          idgen.NextID(idWorker),
			UserID:      sec.Identity.ID,
			HashID:      hashID,
			ExpiresAt:   time.Now().Add(LinkTTL),
			AuditFields: persistence.NewAuditFields(sec.Identity.ID),
		}
		if err := db.Create(t).Error; err != nil {
			return nil, err
		}
		return &Link{URL: fmt.Sprintf("t.me/%s?start=%s", BotUsername, hashID), ExpiresAt: t.ExpiresAt}, nil
	}
	return nil, errors.New("no free link token after 5 attempts")
}

// ConsumeToken binds the chat to the owner of the token and returns the reply for the
// chat. A missing, used or expired token yields the invalid token reply, never an error.
func ConsumeToken(ctx context.Context, hashID string, chatID int64) (string, error) {
	linked := false
	err := persistence.ActiveDataSourceManager.Transaction(ctx, func(tx *persistence.Tx) error {
		t := &LinkToken{}
		if err := persistence.ForUpdate(tx.DB).Where("hash_id = ? AND used = ?", hashID, false).First(t).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		now := time.Now()
		if !now.Before(t.ExpiresAt) {
			return nil
		}
		r := tx.Model(&LinkToken{}).Where("id = ? AND used = ?", t.ID, false).Update("used", true)
		if r.Error != nil {
			return r.Error
		}
		if r.RowsAffected != 1 {
			return nil
		}
		if err := bindChat(tx, t, chatID, now); err != nil {
			return err
		}
		linked = true
		return nil
	})
	if err != nil {
		return "", err
	}
	if !linked {
		return bizerror.ErrTokenInvalid.Message, nil
	}
	return ReplyLinked, nil
}

func bindChat(tx *persistence.Tx, t *LinkToken, chatID int64, now time.Time) error {
	u := &User{}
	err := tx.Where("user_id = ?", t.UserID).First(u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tx.Create(&User{
			ID: idgen.NextID(idWorker), UserID: t.UserID, ChatID: chatID, Active: true, LinkedAt: now,
			AuditFields: persistence.NewAuditFields(t.UserID),
		}).Error
	}
	if err != nil {
		return err
	}
	return tx.Model(u).Updates(map[string]interface{}{
		"chat_id": chatID, "active": true, "linked_at": now, "last_error": "", "last_modified_by": t.UserID,
	}).Error
}

func newRandomToken() (string, error) {
	buf := make([]byte, tokenLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = tokenAlphabet[int(b)%len(tokenAlphabet)]
	}
	return string(buf), nil
}
