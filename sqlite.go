// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/go-kit/kit/log"
	kitprom "github.com/go-kit/kit/metrics/prometheus"
	stdprom "github.com/prometheus/client_golang/prometheus"
)

var (
	// migrations holds all our SQL migrations to be done (in order)
	migrations = []string{
		// Initial user setup
		`create table if not exists users(user_id primary key, username text not null unique, email text not null, password text not null, date_joined timestamp not null, last_login timestamp);`,
		`create index if not exists users_email on users (email);`,
		`create unique index if not exists users_username_nocase on users (username collate nocase);`,
	}

	// Metrics
	connections = kitprom.NewGaugeFrom(stdprom.GaugeOpts{
		Name: "sqlite_connections",
		Help: "How many sqlite connections and what status they're in.",
	}, []string{"state"})
)

type promMetricCollector struct {
	interval time.Duration
}

// run exports db.Stats() until shutdown is closed.
func (p promMetricCollector) run(db *sql.DB, shutdown <-chan struct{}) {
	if db == nil {
		return
	}
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		stats := db.Stats()
		connections.With("state", "idle").Set(float64(stats.Idle))
		connections.With("state", "inuse").Set(float64(stats.InUse))
		connections.With("state", "open").Set(float64(stats.OpenConnections))

		select {
		case <-ticker.C:
		case <-shutdown:
			return
		}
	}
}

func createConnection(logger log.Logger, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		err = fmt.Errorf("problem opening sqlite3 file: %v", err)
		logger.Log("sqlite", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("problem connecting to sqlite3 file: %v", err)
		logger.Log("sqlite", err)
		return nil, err
	}
	return db, nil
}

// migrate runs our database migrations (defined at the top of this file)
// over a sqlite database.
//
// You use db like any other database/sql driver.
//
// https://github.com/mattn/go-sqlite3/blob/master/_example/simple/simple.go
func migrate(logger log.Logger, db *sql.DB) error {
	logger.Log("sqlite", "starting migrations")
	for i := range migrations {
		row := migrations[i]
		res, err := db.Exec(row)
		if err != nil {
			return fmt.Errorf("migration #%d [%s...] had problem: %v", i, row[:40], err)
		}
		n, err := res.RowsAffected()
		if err == nil {
			logger.Log("sqlite", fmt.Sprintf("migration #%d [%s...] changed %d rows", i, row[:40], n))
		}
	}
	logger.Log("sqlite", "finished migrations")
	return nil
}

type sqliteUserRepository struct {
	db       *sql.DB
	logger   log.Logger
	shutdown chan struct{}
}

// newSqliteUserRepository opens (creating if needed) the sqlite database
// at path and runs our migrations over it.
func newSqliteUserRepository(logger log.Logger, path string) (*sqliteUserRepository, error) {
	db, err := createConnection(logger, path)
	if err != nil {
		return nil, err
	}
	if err := migrate(logger, db); err != nil {
		db.Close()
		return nil, err
	}
	repo := &sqliteUserRepository{
		db:       db,
		logger:   logger,
		shutdown: make(chan struct{}),
	}
	go promMetricCollector{interval: 10 * time.Second}.run(db, repo.shutdown)
	return repo, nil
}

func (s *sqliteUserRepository) ping() error {
	if s == nil || s.db == nil {
		return errors.New("nil sqlite connection")
	}
	return s.db.Ping()
}

func (s *sqliteUserRepository) close() error {
	close(s.shutdown)
	return s.db.Close()
}

const userColumns = `user_id, username, email, password, date_joined, last_login`

func (s *sqliteUserRepository) lookupByID(id string) (*User, error) {
	row := s.db.QueryRow(`select `+userColumns+` from users where user_id = ? limit 1;`, id)
	return scanUser(row)
}

func (s *sqliteUserRepository) lookupByUsername(username string) (*User, error) {
	row := s.db.QueryRow(`select `+userColumns+` from users where username = ? limit 1;`, username)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	var lastLogin sql.NullTime
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.DateJoined, &lastLogin)
	if err == sql.ErrNoRows {
		return nil, errUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("problem reading user: %v", err)
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return &u, nil
}

func (s *sqliteUserRepository) usernameExists(username string) (bool, error) {
	var n int
	err := s.db.QueryRow(`select count(*) from users where username = ? collate nocase;`, username).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("problem checking username: %v", err)
	}
	return n > 0, nil
}

func (s *sqliteUserRepository) create(u *User) error {
	if u == nil {
		return errors.New("nil User")
	}
	if u.ID == "" {
		u.ID = generateID()
	}
	if u.DateJoined.IsZero() {
		u.DateJoined = time.Now().UTC()
	}
	query := `insert into users (user_id, username, email, password, date_joined) values (?, ?, ?, ?, ?);`
	_, err := s.db.Exec(query, u.ID, u.Username, u.Email, u.Password, u.DateJoined)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return errUsernameTaken
		}
		return fmt.Errorf("problem creating user: %v", err)
	}
	return nil
}

func (s *sqliteUserRepository) touchLastLogin(id string, when time.Time) error {
	res, err := s.db.Exec(`update users set last_login = ? where user_id = ?;`, when.UTC(), id)
	if err != nil {
		return fmt.Errorf("problem updating last_login: %v", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errUserNotFound
	}
	return nil
}

func (s *sqliteUserRepository) count() (int, error) {
	var n int
	if err := s.db.QueryRow(`select count(*) from users;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("problem counting users: %v", err)
	}
	return n, nil
}
