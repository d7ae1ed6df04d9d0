package telegram_test

import (
	"context"
	"errors"
	"sync"

	"taskline/notification/telegram"
	"taskline/persistence"
	"taskline/testinfra"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	. "github.com/onsi/gomega"
)

func setup(testDatabase **testinfra.TestDatabase) {
	db := testinfra.StartTestDatabase("taskline")
	Expect(db.DS.GormDB(context.Background()).AutoMigrate(telegram.Models()...).Error).To(BeNil())
	persistence.ActiveDataSourceManager = db.DS
	*testDatabase = db
	telegram.BotUsername = "taskline_bot"
}

func teardown(testDatabase *testinfra.TestDatabase) {
	telegram.LinkTTL = defaultLinkTTL
	if testDatabase != nil {
		testinfra.StopTestDatabase(testDatabase)
	}
}

var defaultLinkTTL = telegram.LinkTTL

type fakeAPI struct {
	mu      sync.Mutex
	sent    []tgbotapi.MessageConfig
	sendErr error

	updates chan tgbotapi.Update
	stopped bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{updates: make(chan tgbotapi.Update, 10)}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	m, ok := c.(tgbotapi.MessageConfig)
	if !ok {
		return tgbotapi.Message{}, errors.New("unexpected chattable")
	}
	f.sent = append(f.sent, m)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeAPI) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.stopped {
		f.stopped = true
		close(f.updates)
	}
}

func (f *fakeAPI) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.MessageConfig{}, f.sent...)
}

func startCommand(chatID int64, text string) tgbotapi.Update {
	length := len(text)
	for i, r := range text {
		if r == ' ' {
			length = i
			break
		}
	}
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chatID},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}},
	}}
}
