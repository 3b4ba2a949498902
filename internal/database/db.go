package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Options carries connection settings for Open.
type Options struct {
	User, Pass, Host, Port, Name string
	// LockWaitSec bounds how long a locking read waits for a row held by
	// another transaction before MySQL returns error 1205.
	LockWaitSec int
}

// DSN builds the go-sql-driver/mysql data source name.
func (o Options) DSN() string {
	auth := o.User
	if o.Pass != "" {
		auth = fmt.Sprintf("%s:%s", o.User, o.Pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC&multiStatements=false",
		auth, o.Host, o.Port, o.Name)
	if o.LockWaitSec > 0 {
		// unknown DSN params are sent as session variables
		dsn += fmt.Sprintf("&innodb_lock_wait_timeout=%d", o.LockWaitSec)
	}
	return dsn
}

// Open connects to MySQL and verifies the connection.
func Open(o Options) (*sql.DB, error) {
	db, err := sql.Open("mysql", o.DSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
