package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"taskline/app"
	"taskline/client/directory"
	"taskline/config"
	"taskline/domain"
	"taskline/domain/work"
	"taskline/event"
	"taskline/notification"
	"taskline/notification/telegram"
	"taskline/testinfra"

	. "github.com/onsi/gomega"
)

func testConfig() *config.Config {
	return &config.Config{
		HTTP:         config.HTTPConfig{Addr: ":0"},
		Auth:         config.AuthConfig{JWTSecret: "secret"},
		Directory:    config.DirectoryConfig{BaseURL: "http://user", CacheTTL: time.Minute, Timeout: time.Second},
		Notification: config.NotificationConfig{Mode: "local", BaseURL: "http://notification", Timeout: time.Second},
		Dispatcher:   config.DispatcherConfig{Enabled: true, Interval: time.Second, BatchSize: 30},
		Telegram:     config.TelegramConfig{BotUsername: "taskline_bot", LinkTTL: 10 * time.Minute},
	}
}

func TestWireServices(t *testing.T) {
	RegisterTestingT(t)
	backup := event.EventHandlers
	defer func() {
		event.EventHandlers = backup
		work.Directory = nil
		notification.Directory = nil
		telegram.BotUsername = ""
		telegram.LinkTTL = 15 * time.Minute
	}()

	t.Run("local mode stores notifications in process", func(t *testing.T) {
		app.WireServices(testConfig())
		Expect(event.EventHandlers).To(HaveLen(1))
		Expect(work.Directory).To(BeAssignableToTypeOf(&directory.Client{}))
		Expect(notification.Directory).To(BeIdenticalTo(work.Directory))
		Expect(telegram.BotUsername).To(Equal("taskline_bot"))
		Expect(telegram.LinkTTL).To(Equal(10 * time.Minute))
	})

	t.Run("search index adds a handler", func(t *testing.T) {
		c := testConfig()
		c.Notification.Mode = "remote"
		c.Elasticsearch.Addresses = []string{"http://es:9200"}
		c.Elasticsearch.Index = "tasks"
		app.WireServices(c)
		Expect(event.EventHandlers).To(HaveLen(2))
	})
}

func TestBuildEngine(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should require a jwt secret", func(t *testing.T) {
		c := testConfig()
		c.Auth.JWTSecret = ""
		_, err := app.BuildEngine(c, false)
		Expect(err).To(MatchError("auth.jwtSecret is required"))
	})

	t.Run("should guard the apis with the bearer filter", func(t *testing.T) {
		engine, err := app.BuildEngine(testConfig(), true)
		Expect(err).To(BeNil())

		status, body, _ := testinfra.ExecuteRequest(httptest.NewRequest(http.MethodGet, "/", nil), engine)
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(Equal("taskline"))

		for _, path := range []string{"/v1/tasks/my", "/v1/workflows", "/v1/projects", "/v1/notifications", "/v1/search/tasks"} {
			status, _, _ = testinfra.ExecuteRequest(httptest.NewRequest(http.MethodGet, path, nil), engine)
			Expect(status).To(Equal(http.StatusUnauthorized), path)
		}
		status, _, _ = testinfra.ExecuteRequest(httptest.NewRequest(http.MethodPost, "/v1/telegram/token", nil), engine)
		Expect(status).To(Equal(http.StatusUnauthorized))
	})

	t.Run("search apis are absent without an index", func(t *testing.T) {
		engine, err := app.BuildEngine(testConfig(), false)
		Expect(err).To(BeNil())
		status, _, _ := testinfra.ExecuteRequest(httptest.NewRequest(http.MethodGet, "/v1/search/tasks", nil), engine)
		Expect(status).To(Equal(http.StatusNotFound))
	})
}

func TestMigrate(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should create the schema and seed the default workflow once", func(t *testing.T) {
		dir := t.TempDir()
		ds, err := app.OpenDatabase(config.DatabaseConfig{Driver: "sqlite3", DSN: filepath.Join(dir, "taskline.db")})
		Expect(err).To(BeNil())
		defer ds.Stop()

		Expect(app.Migrate(context.Background(), ds)).To(BeNil())
		Expect(app.Migrate(context.Background(), ds)).To(BeNil())

		var workflows int
		Expect(ds.GormDB(context.Background()).Model(&domain.Workflow{}).Count(&workflows).Error).To(BeNil())
		Expect(workflows).To(Equal(1))
		Expect(ds.GormDB(context.Background()).HasTable(&notification.Notification{})).To(BeTrue())
		Expect(ds.GormDB(context.Background()).HasTable(&telegram.User{})).To(BeTrue())
		_, err = os.Stat(filepath.Join(dir, "taskline.db"))
		Expect(err).To(BeNil())
	})

	t.Run("should start delivery as a no-op without a bot token", func(t *testing.T) {
		stop, err := app.StartDelivery(context.Background(), testConfig(), true)
		Expect(err).To(BeNil())
		stop()
	})
}
