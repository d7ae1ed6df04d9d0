package persistence

import (
	"context"
	"fmt"
	"os"

	"github.com/go-sql-driver/mysql"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/mysql"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
	"github.com/sirupsen/logrus"
	otgorm "github.com/smacker/opentracing-gorm"
)

var ActiveDataSourceManager *DataSourceManager

type DatabaseConfig struct {
	DriverType string
	DriverArgs string
}

type DataSourceManager struct {
	gormDB *gorm.DB

	DatabaseConfig *DatabaseConfig
}

func (m *DataSourceManager) Start() error {
	db, err := connect(m.DatabaseConfig)
	if err != nil {
		return err
	}
	otgorm.AddGormCallbacks(db)
	m.gormDB = db
	if os.Getenv("GIN_MODE") != "release" {
		m.gormDB.LogMode(true)
	}
	return nil
}

func (m *DataSourceManager) Stop() {
	if m.gormDB != nil {
		if err := m.gormDB.Close(); err != nil {
			logrus.Errorf("failed to close DB: %v", err)
		}
		m.gormDB = nil
	}
}

// GormDB returns a fresh session bound to the span carried by ctx.
func (m *DataSourceManager) GormDB(ctx context.Context) *gorm.DB {
	if m.gormDB != nil {
		if ctx == nil {
			ctx = context.Background()
		}
		return otgorm.SetSpanToGorm(ctx, m.gormDB.New())
	}
	return nil
}

func (m *DataSourceManager) Dialect() string {
	return m.DatabaseConfig.DriverType
}

func connect(config *DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(config.DriverType, config.DriverArgs)
	if err != nil {
		return nil, err
	}
	if config.DriverType == "sqlite3" {
		// sqlite allows a single writer; one connection avoids "database is locked"
		db.DB().SetMaxOpenConns(1)
	}
	err = db.DB().Ping()
	if err != nil {
		return nil, err
	}
	return db, nil
}

// PrepareMysqlDatabase creates the database named in dsn when it does not exist yet.
func PrepareMysqlDatabase(dsn string) error {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return err
	}
	databaseName := cfg.DBName
	if databaseName == "" {
		return fmt.Errorf("no database name in dsn")
	}
	cfg.DBName = ""

	db, err := gorm.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return err
	}
	defer db.Close()

	return db.Exec("CREATE DATABASE IF NOT EXISTS `" + databaseName + "` DEFAULT CHARACTER SET utf8mb4").Error
}
