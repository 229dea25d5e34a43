// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestParseBackend(t *testing.T) {
	for in, want := range map[string]Backend{"sqlite": SQLite, "": SQLite, "MySQL": MySQL, "mariadb": MariaDB} {
		got, err := ParseBackend(in)
		if err != nil || got != want {
			t.Errorf("ParseBackend(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseBackend("postgres"); err == nil {
		t.Fatalf("expected postgres to be rejected")
	}
	if !MariaDB.Server() || SQLite.Server() {
		t.Fatalf("only mysql and mariadb run as servers")
	}
}

func TestParseURL_SQLite(t *testing.T) {
	tgt, err := ParseURL("sqlite:////var/lib/marzban/db.sqlite3")
	if err != nil {
		t.Fatal(err)
	}
	if tgt.Backend != SQLite || tgt.SQLitePath != "/var/lib/marzban/db.sqlite3" {
		t.Fatalf("unexpected target %+v", tgt)
	}
	if SQLiteURL("/var/lib/marzban/db.sqlite3") != "sqlite:////var/lib/marzban/db.sqlite3" {
		t.Fatalf("SQLiteURL does not mirror ParseURL")
	}
}

func TestParseURL_MySQLRoundTrip(t *testing.T) {
	raw := MySQLURL("marzban", "p@ss:w/rd", "127.0.0.1", 3306, "marzban")
	tgt, err := ParseURL(raw)
	if err != nil {
		t.Fatalf("ParseURL(%q): %v", raw, err)
	}
	if tgt.Backend != MySQL {
		t.Fatalf("expected mysql backend, got %v", tgt.Backend)
	}
	c := tgt.MySQL
	if c.User != "marzban" || c.Passwd != "p@ss:w/rd" || c.Addr != "127.0.0.1:3306" || c.DBName != "marzban" {
		t.Fatalf("unexpected config %+v", c)
	}
}

func TestParseURL_Defaults(t *testing.T) {
	tgt, err := ParseURL("mariadb+pymysql://root@/panel")
	if err != nil {
		t.Fatal(err)
	}
	if tgt.Backend != MariaDB || tgt.MySQL.Addr != "127.0.0.1:3306" || tgt.MySQL.DBName != "panel" {
		t.Fatalf("unexpected defaults %+v", tgt.MySQL)
	}
	if _, err := ParseURL("postgresql://x@y/z"); err == nil {
		t.Fatalf("expected unsupported scheme error")
	}
}

func TestSnapshotSQLite(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "db.sqlite3")
	db, err := sql.Open("sqlite", src)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("CREATE TABLE users (name TEXT); INSERT INTO users VALUES ('alice'), ('bob');"); err != nil {
		t.Fatal(err)
	}
	db.Close()

	dst := filepath.Join(dir, "copy.sqlite3")
	if err := SnapshotSQLite(context.Background(), src, dst); err != nil {
		t.Fatalf("SnapshotSQLite: %v", err)
	}

	cp, err := sql.Open("sqlite", dst)
	if err != nil {
		t.Fatal(err)
	}
	defer cp.Close()
	var n int
	if err := cp.QueryRow("SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rows in snapshot, got %d", n)
	}

	if err := Ping(context.Background(), Target{Backend: SQLite, SQLitePath: dst}); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestWaitReady_TimesOut(t *testing.T) {
	tgt, err := ParseURL("mysql+pymysql://u:p@127.0.0.1:1/db")
	if err != nil {
		t.Fatal(err)
	}
	start := time.Now()
	ping := func(ctx context.Context) error { return Ping(ctx, tgt) }
	err = WaitReady(context.Background(), 300*time.Millisecond, 100*time.Millisecond, ping)
	if err == nil {
		t.Fatalf("expected unreachable database to time out")
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("WaitReady overran its timeout")
	}
}

func TestWaitReady_RetriesUntilReady(t *testing.T) {
	calls := 0
	ping := func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	}
	if err := WaitReady(context.Background(), 5*time.Second, 10*time.Millisecond, ping); err != nil {
		t.Fatalf("WaitReady: %v", err)
	}
	if calls != 3 {
		t.Fatalf("pinged %d times", calls)
	}
}
