// Package app wires configuration into the running components.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"taskline/bizerror"
	"taskline/client/directory"
	"taskline/client/es"
	"taskline/client/notifier"
	"taskline/config"
	"taskline/domain"
	"taskline/domain/flow"
	"taskline/domain/namespace"
	"taskline/domain/work"
	"taskline/domain/work/workrest"
	"taskline/event"
	"taskline/indices"
	"taskline/indices/search"
	"taskline/infra/tracing"
	"taskline/notification"
	"taskline/notification/telegram"
	"taskline/persistence"
	"taskline/session"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// OpenDatabase creates the mysql schema when missing and connects.
func OpenDatabase(c config.DatabaseConfig) (*persistence.DataSourceManager, error) {
	if c.Driver == "mysql" {
		if err := persistence.PrepareMysqlDatabase(c.DSN); err != nil {
			return nil, fmt.Errorf("prepare database: %w", err)
		}
	}
	ds := &persistence.DataSourceManager{DatabaseConfig: &persistence.DatabaseConfig{DriverType: c.Driver, DriverArgs: c.DSN}}
	if err := ds.Start(); err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	persistence.ActiveDataSourceManager = ds
	return ds, nil
}

func Models() []interface{} {
	models := domain.Models()
	models = append(models, notification.Models()...)
	models = append(models, telegram.Models()...)
	return models
}

// Migrate creates or alters every table and seeds the shared default workflow.
func Migrate(ctx context.Context, ds *persistence.DataSourceManager) error {
	if err := ds.GormDB(ctx).AutoMigrate(Models()...).Error; err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	return flow.LoadSystemDefaultWorkflow(ctx)
}

// WireServices points the services at their collaborators and registers the post-commit
// event handlers.
func WireServices(c *config.Config) {
	dir := directory.NewClient(c.Directory.BaseURL, c.Directory.CacheTTL, c.Directory.Timeout)
	work.Directory = dir
	notification.Directory = dir

	telegram.BotUsername = c.Telegram.BotUsername
	telegram.LinkTTL = c.Telegram.LinkTTL

	handlers := []event.EventHandler{}
	if c.Notification.Mode == "remote" {
		handlers = append(handlers, notifier.NewClient(c.Notification.BaseURL, c.Notification.Timeout).HandleEvent)
	} else {
		handlers = append(handlers, notification.HandleEvent)
	}
	if len(c.Elasticsearch.Addresses) > 0 {
		indices.TaskIndexName = c.Elasticsearch.Index
		handlers = append(handlers, indices.IndexTaskEventHandle)
	}
	event.EventHandlers = handlers
}

// ConfigureSearch connects the search index. It reports false when no address is configured.
func ConfigureSearch(c config.ElasticsearchConfig) (bool, error) {
	if len(c.Addresses) == 0 {
		return false, nil
	}
	if _, err := es.Configure(c.Addresses); err != nil {
		return false, fmt.Errorf("configure elasticsearch: %w", err)
	}
	return true, nil
}

// BuildEngine registers every REST API behind the bearer filter.
func BuildEngine(c *config.Config, searchEnabled bool) (*gin.Engine, error) {
	if c.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwtSecret is required")
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), tracing.TracingIngress(), bizerror.ErrorHandling())
	engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "taskline")
	})

	auth := session.JWTAuthFilter([]byte(c.Auth.JWTSecret))
	flow.RegisterWorkflowsRestAPI(engine, auth)
	namespace.RegisterProjectsRestAPI(engine, auth)
	workrest.RegisterTasksRestAPI(engine, auth)
	notification.RegisterNotificationsRestAPI(engine, auth)
	telegram.RegisterTelegramRestAPI(engine, auth)
	if searchEnabled {
		indices.RegisterIndicesRestAPI(engine, auth)
		search.RegisterSearchRestAPI(engine, auth)
	}
	return engine, nil
}

// StartDelivery starts the bot and, when enabled, the dispatcher sending through it. The
// returned function stops both.
func StartDelivery(ctx context.Context, c *config.Config, withDispatcher bool) (func(), error) {
	if c.Telegram.Token == "" {
		logrus.Warn("telegram.token is empty, notifications stay pending")
		return func() {}, nil
	}
	bot, err := telegram.NewBot(c.Telegram.Token, c.Dispatcher.SendRate)
	if err != nil {
		return nil, fmt.Errorf("start telegram bot: %w", err)
	}
	bot.Start(ctx)

	if !withDispatcher {
		return bot.Stop, nil
	}
	dispatcher := notification.NewDispatcher(bot, telegram.Chats{}, c.Dispatcher.BatchSize)
	if err := dispatcher.Start(c.Dispatcher.Interval); err != nil {
		bot.Stop()
		return nil, fmt.Errorf("start dispatcher: %w", err)
	}
	return func() {
		dispatcher.Stop()
		bot.Stop()
	}, nil
}
