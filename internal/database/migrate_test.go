package database

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
)

func TestMigrations_Idempotent(t *testing.T) {
	for i, stmt := range Migrations() {
		if !strings.HasPrefix(strings.TrimSpace(stmt), "CREATE TABLE IF NOT EXISTS") {
			t.Errorf("migration %d is not idempotent: %.40s", i+1, stmt)
		}
	}
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	for range Migrations() {
		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS")).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestMigrate_StopsOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("access denied"))
	err = Migrate(context.Background(), db)
	if err == nil || !strings.Contains(err.Error(), "migration 2") {
		t.Errorf("Migrate error = %v, want failure at migration 2", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestDSN(t *testing.T) {
	dsn := DSN("app", "s3cret", "db.local", "3306", "classes")
	c, err := mysql.ParseDSN(dsn)
	if err != nil {
		t.Fatalf("ParseDSN(%q): %v", dsn, err)
	}
	if c.User != "app" || c.Passwd != "s3cret" || c.Addr != "db.local:3306" || c.DBName != "classes" {
		t.Errorf("parsed = %+v", c)
	}
	if !c.ParseTime || c.Loc != time.UTC {
		t.Errorf("ParseTime/Loc = %v/%v, want true/UTC", c.ParseTime, c.Loc)
	}
}
