package telegram_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskline/bizerror"
	"taskline/notification/telegram"
	"taskline/testinfra"

	. "github.com/onsi/gomega"
)

func TestBotHandleUpdate(t *testing.T) {
	RegisterTestingT(t)

	var consumed []string
	telegram.ConsumeTokenFunc = func(ctx context.Context, token string, chatID int64) (string, error) {
		consumed = append(consumed, token)
		if token == "broken" {
			return "", errors.New("db down")
		}
		return telegram.ReplyLinked, nil
	}
	defer func() { telegram.ConsumeTokenFunc = telegram.ConsumeToken }()

	t.Run("should consume the start token and reply", func(t *testing.T) {
		consumed = nil
		api := newFakeAPI()
		bot := telegram.NewBotWithAPI(api, 0)

		bot.HandleUpdate(context.Background(), startCommand(42, "/start Ab3_-xYz012"))
		Expect(consumed).To(Equal([]string{"Ab3_-xYz012"}))
		Expect(api.messages()).To(HaveLen(1))
		Expect(api.messages()[0].ChatID).To(Equal(int64(42)))
		Expect(api.messages()[0].Text).To(Equal(telegram.ReplyLinked))
	})

	t.Run("should hint when start carries no token", func(t *testing.T) {
		consumed = nil
		api := newFakeAPI()
		bot := telegram.NewBotWithAPI(api, 0)

		bot.HandleUpdate(context.Background(), startCommand(42, "/start"))
		Expect(consumed).To(BeEmpty())
		Expect(api.messages()[0].Text).To(Equal(telegram.ReplyWelcome))
	})

	t.Run("should ignore other messages", func(t *testing.T) {
		consumed = nil
		api := newFakeAPI()
		bot := telegram.NewBotWithAPI(api, 0)

		bot.HandleUpdate(context.Background(), startCommand(42, "/help"))
		update := startCommand(42, "hello")
		update.Message.Entities = nil
		bot.HandleUpdate(context.Background(), update)
		Expect(consumed).To(BeEmpty())
		Expect(api.messages()).To(BeEmpty())
	})

	t.Run("should reply with an internal error when consumption fails", func(t *testing.T) {
		api := newFakeAPI()
		bot := telegram.NewBotWithAPI(api, 0)

		bot.HandleUpdate(context.Background(), startCommand(42, "/start broken"))
		Expect(api.messages()[0].Text).To(Equal(bizerror.ErrInternal.Message))
	})

	t.Run("should process polled updates until stopped", func(t *testing.T) {
		consumed = nil
		api := newFakeAPI()
		bot := telegram.NewBotWithAPI(api, 0)
		bot.Start(context.Background())

		api.updates <- startCommand(7, "/start token00001")
		Eventually(func() int { return len(api.messages()) }, time.Second, 10*time.Millisecond).Should(Equal(1))
		bot.Stop()
		Expect(consumed).To(Equal([]string{"token00001"}))
	})
}

func TestBotSendMessage(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should send a text to the chat", func(t *testing.T) {
		api := newFakeAPI()
		bot := telegram.NewBotWithAPI(api, 30)
		Expect(bot.SendMessage(context.Background(), 9, "Task: T1")).To(BeNil())
		Expect(api.messages()[0].ChatID).To(Equal(int64(9)))
		Expect(api.messages()[0].Text).To(Equal("Task: T1"))
	})

	t.Run("should keep the send error on the chat binding", func(t *testing.T) {
		defer func() { teardown(testDatabase) }()
		setup(&testDatabase)
		gdb := testDatabase.DS.GormDB(context.Background())
		Expect(gdb.Create(&telegram.User{ID: 1, UserID: 7, ChatID: 9, Active: true, LinkedAt: time.Now()}).Error).To(BeNil())

		api := newFakeAPI()
		api.sendErr = errors.New("Forbidden: bot was blocked by the user")
		bot := telegram.NewBotWithAPI(api, 0)

		err := bot.SendMessage(context.Background(), 9, "hi")
		Expect(err).To(Equal(api.sendErr))

		u := telegram.User{}
		Expect(gdb.Where("user_id = ?", 7).First(&u).Error).To(BeNil())
		Expect(u.LastError).To(Equal("Forbidden: bot was blocked by the user"))
	})

	t.Run("should give up when the context is done while rate limited", func(t *testing.T) {
		api := newFakeAPI()
		bot := telegram.NewBotWithAPI(api, 1)
		Expect(bot.SendMessage(context.Background(), 9, "first")).To(BeNil())

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		Expect(bot.SendMessage(ctx, 9, "second")).ToNot(BeNil())
		Expect(api.messages()).To(HaveLen(1))
	})
}
