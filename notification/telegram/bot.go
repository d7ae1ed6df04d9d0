package telegram

import (
	"context"
	"math"
	"strings"
	"sync"

	"taskline/bizerror"
	"taskline/persistence"

	"github.com/fundwit/go-commons/types"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// API is the part of tgbotapi.BotAPI the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot answers /start <token> commands and is the outbound channel of notifications.
type Bot struct {
	api     API
	limiter *rate.Limiter

	wg sync.WaitGroup
}

func NewBot(token string, sendRate float64) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	logrus.Infof("telegram bot authorized as %s", api.Self.UserName)
	return NewBotWithAPI(api, sendRate), nil
}

// NewBotWithAPI builds a bot sending at most sendRate messages per second, unlimited when 0.
func NewBotWithAPI(api API, sendRate float64) *Bot {
	limit := rate.Inf
	burst := 1
	if sendRate > 0 {
		limit = rate.Limit(sendRate)
		burst = int(math.Ceil(sendRate))
	}
	return &Bot{api: api, limiter: rate.NewLimiter(limit, burst)}
}

// Start long-polls updates until Stop.
func (b *Bot) Start(ctx context.Context) {
	config := tgbotapi.NewUpdate(0)
	config.Timeout = 30
	updates := b.api.GetUpdatesChan(config)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for update := range updates {
			b.HandleUpdate(ctx, update)
		}
	}()
}

func (b *Bot) Stop() {
	b.api.StopReceivingUpdates()
	b.wg.Wait()
}

func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil || !msg.IsCommand() || msg.Command() != "start" {
		return
	}
	chatID := msg.Chat.ID

	reply := ReplyWelcome
	if token := strings.TrimSpace(msg.CommandArguments()); token != "" {
		var err error
		if reply, err = ConsumeTokenFunc(ctx, token, chatID); err != nil {
			logrus.WithField("chatId", chatID).Error("consume link token: ", err)
			reply = bizerror.ErrInternal.Message
		}
	}
	if err := b.SendMessage(ctx, chatID, reply); err != nil {
		logrus.WithField("chatId", chatID).Warn("reply to start command: ", err)
	}
}

// SendMessage waits for the rate limiter and sends text to the chat. A failure is kept
// as the last error of the chat binding.
func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		recordSendError(ctx, chatID, err)
		return err
	}
	return nil
}

// Chats resolves users to their active telegram chat.
type Chats struct{}

func (Chats) ActiveChatID(ctx context.Context, userID types.ID) (int64, bool, error) {
	var users []User
	if err := persistence.ActiveDataSourceManager.GormDB(ctx).
		Where("user_id = ? AND active = ?", userID, true).Limit(1).Find(&users).Error; err != nil {
		return 0, false, err
	}
	if len(users) == 0 {
		return 0, false, nil
	}
	return users[0].ChatID, true, nil
}

func recordSendError(ctx context.Context, chatID int64, sendErr error) {
	err := persistence.ActiveDataSourceManager.GormDB(ctx).Model(&User{}).Where("chat_id = ?", chatID).
		Update("last_error", sendErr.Error()).Error
	if err != nil {
		logrus.WithField("chatId", chatID).Warn("record send error: ", err)
	}
}
