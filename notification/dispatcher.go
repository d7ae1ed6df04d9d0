package notification

import (
	"context"
	"fmt"
	"os"
	"time"

	"taskline/persistence"

	"github.com/fundwit/go-commons/types"
	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
	cron "github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	MaxBatchSize = 30

	ReasonNotLinked = "recipient not linked"
)

// Channel delivers a text to an external chat.
type Channel interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// ChatResolver finds the active chat bound to a user.
type ChatResolver interface {
	ActiveChatID(ctx context.Context, userID types.ID) (chatID int64, found bool, err error)
}

// Dispatcher delivers PENDING notifications oldest first, in batches of at most
// MaxBatchSize. A row is claimed before it is sent so that a second dispatcher skips it.
type Dispatcher struct {
	Channel   Channel
	Chats     ChatResolver
	BatchSize int
	Instance  string
	// a claim older than the lease is considered abandoned
	ClaimLease time.Duration

	crontab *cron.Cron
}

func NewDispatcher(channel Channel, chats ChatResolver, batchSize int) *Dispatcher {
	if batchSize <= 0 || batchSize > MaxBatchSize {
		batchSize = MaxBatchSize
	}
	host, _ := os.Hostname()
	return &Dispatcher{
		Channel:    channel,
		Chats:      chats,
		BatchSize:  batchSize,
		Instance:   host + "-" + uuid.New().String()[:8],
		ClaimLease: 5 * time.Minute,
	}
}

// Start runs a pass every interval. A tick is skipped while the previous pass still runs.
func (d *Dispatcher) Start(interval time.Duration) error {
	d.crontab = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(logrus.StandardLogger()))))
	if _, err := d.crontab.AddFunc("@every "+interval.String(), func() {
		_, _, _ = d.RunOnce(context.Background())
	}); err != nil {
		return err
	}
	d.crontab.Start()
	logrus.WithField("instance", d.Instance).Infof("notification dispatcher started, interval %s", interval)
	return nil
}

func (d *Dispatcher) Stop() {
	if d.crontab != nil {
		<-d.crontab.Stop().Done()
	}
}

// RunOnce dispatches one batch. Each row outcome is saved on its own, a failing row never
// stops the rest of the batch.
func (d *Dispatcher) RunOnce(ctx context.Context) (sent, failed int, err error) {
	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	batch, err := d.selectPending(db)
	if err != nil {
		logrus.WithField("instance", d.Instance).Error("select pending notifications: ", err)
		return 0, 0, err
	}
	if len(batch) == 0 {
		return 0, 0, nil
	}

	for i := range batch {
		n := &batch[i]
		claimed, err := d.claim(db, n)
		if err != nil {
			logrus.WithField("notificationId", n.ID).Error("claim notification: ", err)
			continue
		}
		if !claimed {
			continue
		}
		if reason := d.deliver(ctx, n); reason == "" {
			err = d.finish(db, n, StatusSent, "")
			sent++
		} else {
			err = d.finish(db, n, StatusFailed, reason)
			failed++
		}
		if err != nil {
			logrus.WithField("notificationId", n.ID).Error("save notification status: ", err)
		}
	}
	logrus.WithFields(logrus.Fields{"instance": d.Instance, "selected": len(batch), "sent": sent, "failed": failed}).
		Info("notification batch dispatched")
	return sent, failed, nil
}

func (d *Dispatcher) selectPending(db *gorm.DB) ([]Notification, error) {
	size := d.BatchSize
	if size <= 0 || size > MaxBatchSize {
		size = MaxBatchSize
	}
	var batch []Notification
	err := db.Where("status = ?", StatusPending).
		Where("claimed_by = '' OR claimed_at < ?", time.Now().Add(-d.ClaimLease)).
		Order("created_at ASC, id ASC").Limit(size).Find(&batch).Error
	return batch, err
}

func (d *Dispatcher) claim(db *gorm.DB, n *Notification) (bool, error) {
	now := time.Now()
	r := db.Model(&Notification{}).
		Where("id = ? AND status = ?", n.ID, StatusPending).
		Where("claimed_by = '' OR claimed_at < ?", now.Add(-d.ClaimLease)).
		Updates(map[string]interface{}{"claimed_by": d.Instance, "claimed_at": now})
	if r.Error != nil {
		return false, r.Error
	}
	return r.RowsAffected == 1, nil
}

// deliver returns the failure reason, or "" once the channel accepted the message.
func (d *Dispatcher) deliver(ctx context.Context, n *Notification) (reason string) {
	defer func() {
		if r := recover(); r != nil {
			reason = fmt.Sprintf("%v", r)
		}
	}()

	chatID, found, err := d.Chats.ActiveChatID(ctx, n.UserID)
	if err != nil {
		return err.Error()
	}
	if !found {
		return ReasonNotLinked
	}
	if err := d.Channel.SendMessage(ctx, chatID, Render(n)); err != nil {
		logrus.WithFields(logrus.Fields{"notificationId": n.ID, "userId": n.UserID}).Warn("send notification: ", err)
		return err.Error()
	}
	return ""
}

func (d *Dispatcher) finish(db *gorm.DB, n *Notification, status Status, reason string) error {
	n.Status, n.Error = status, reason
	return db.Model(&Notification{}).Where("id = ?", n.ID).
		Updates(map[string]interface{}{"status": status, "error": reason}).Error
}
