package indices

import (
	"context"

	cron "github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// StartNightlySync schedules a full sync at 23:00 every day.
func StartNightlySync() (*cron.Cron, error) {
	crontab := cron.New(cron.WithSeconds())
	if _, err := crontab.AddFunc("0 0 23 * * ?", indicesNightlySync); err != nil {
		return nil, err
	}
	crontab.Start()
	return crontab, nil
}

func indicesNightlySync() {
	if err := IndicesFullSyncFunc(context.Background(), false); err != nil {
		logrus.Error("nightly indices sync: ", err)
	}
}
