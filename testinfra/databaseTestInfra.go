package testinfra

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"taskline/persistence"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type TestDatabase struct {
	TestDatabaseName string
	DS               *persistence.DataSourceManager

	file string
}

// StartTestDatabase creates a throw-away database: a sqlite file by default,
// a MySQL database when TEST_MYSQL_SERVICE=root:root@(127.0.0.1:3306) is set.
func StartTestDatabase(baseName string) *TestDatabase {
	databaseName := baseName + "_test_" + strings.ReplaceAll(uuid.New().String(), "-", "")

	mysqlSvc := os.Getenv("TEST_MYSQL_SERVICE")
	if mysqlSvc == "" {
		return startSqliteTestDatabase(databaseName)
	}

	dbConfig := &persistence.DatabaseConfig{
		DriverType: "mysql", DriverArgs: mysqlSvc + "/" + databaseName + "?charset=utf8mb4&parseTime=True&loc=Local&timeout=5s",
	}

	// create database (no conflict)
	if err := persistence.PrepareMysqlDatabase(dbConfig.DriverArgs); err != nil {
		logrus.Fatalf("failed to prepare database %v\n", err)
	}

	ds := &persistence.DataSourceManager{DatabaseConfig: dbConfig}
	if err := ds.Start(); err != nil {
		defer ds.Stop()
		logrus.Fatalf("database connection failed %v\n", err)
	}

	return &TestDatabase{TestDatabaseName: databaseName, DS: ds}
}

func startSqliteTestDatabase(databaseName string) *TestDatabase {
	file := filepath.Join(os.TempDir(), databaseName+".db")
	dbConfig := &persistence.DatabaseConfig{DriverType: "sqlite3", DriverArgs: file + "?_loc=auto"}

	ds := &persistence.DataSourceManager{DatabaseConfig: dbConfig}
	if err := ds.Start(); err != nil {
		defer ds.Stop()
		logrus.Fatalf("database connection failed %v\n", err)
	}
	return &TestDatabase{TestDatabaseName: databaseName, DS: ds, file: file}
}

func StopTestDatabase(testDatabase *TestDatabase) {
	if testDatabase == nil || testDatabase.DS == nil {
		return
	}
	if testDatabase.file != "" {
		testDatabase.DS.Stop()
		if err := os.Remove(testDatabase.file); err != nil {
			logrus.Warnf("failed to remove test database file %s: %v", testDatabase.file, err)
		}
		return
	}

	if db := testDatabase.DS.GormDB(context.Background()); db != nil {
		if err := db.Exec("DROP DATABASE " + testDatabase.TestDatabaseName).Error; err != nil {
			logrus.Warnf("failed to drop test database: %s", testDatabase.TestDatabaseName)
		} else {
			logrus.Infof("test database %s dropped", testDatabase.TestDatabaseName)
		}
	}
	testDatabase.DS.Stop()
}
