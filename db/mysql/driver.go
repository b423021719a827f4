package mysql

import (
	"errors"
	"fmt"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/kasuganosora/rpgscript/config"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const defaultDialTimeout = 5 * time.Second

// Open creates a GORM *DB backed by MySQL with a connection pool sized from
// cfg. The server is contacted before Open returns.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn, err := parseDSN(cfg.MySQLDSN)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(mysql.New(mysql.Config{DSN: dsn.FormatDSN(), DSNConfig: dsn}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("mysql: open %s@%s: %w", dsn.User, dsn.Addr, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MySQLMaxOpen)
	sqlDB.SetMaxIdleConns(cfg.MySQLMaxIdle)
	sqlDB.SetConnMaxLifetime(cfg.MySQLMaxLife)

	return db, nil
}

// parseDSN validates dsn and turns on what the save tables need: time
// columns scan into time.Time in UTC, and dialing gives up after a bound.
func parseDSN(dsn string) (*gomysql.Config, error) {
	if dsn == "" {
		return nil, errors.New("mysql: empty dsn")
	}
	c, err := gomysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql: %w", err)
	}
	c.ParseTime = true
	c.Loc = time.UTC
	if c.Timeout == 0 {
		c.Timeout = defaultDialTimeout
	}
	return c, nil
}
