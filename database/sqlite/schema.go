package sqlite

import (
	"log"

	"github.com/jmoiron/sqlx"
)

func dbInitSchema(d *sqlx.DB) error {
	schema := []string{
		// This is needed to improve concurrent reads and writes.
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA foreign_keys = ON;`,

		`CREATE TABLE IF NOT EXISTS movies (
id INTEGER PRIMARY KEY AUTOINCREMENT,
title TEXT NOT NULL,
year INTEGER NOT NULL DEFAULT 0,
genre TEXT NOT NULL DEFAULT '',
rating REAL NOT NULL DEFAULT 0,
votes INTEGER NOT NULL DEFAULT 0,
description TEXT NOT NULL DEFAULT '',
imageurl TEXT NOT NULL DEFAULT '',
videourl TEXT NOT NULL DEFAULT '',
hashtags TEXT NOT NULL DEFAULT '',
created DATETIME NOT NULL);`,

		`CREATE INDEX IF NOT EXISTS movies_title_idx ON movies (title);`,

		`CREATE TABLE IF NOT EXISTS users (
id INTEGER PRIMARY KEY AUTOINCREMENT,
username TEXT NOT NULL,
password TEXT NOT NULL,
role TEXT NOT NULL DEFAULT 'user',
created DATETIME NOT NULL,
lastlogin DATETIME);`,

		`CREATE UNIQUE INDEX IF NOT EXISTS users_name_idx ON users (username);`,

		`CREATE TABLE IF NOT EXISTS saved (
userid INTEGER NOT NULL,
movieid INTEGER NOT NULL,
saved BOOLEAN NOT NULL,
timestamp DATETIME NOT NULL,
PRIMARY KEY (userid, movieid));`,

		`CREATE TABLE IF NOT EXISTS accesstokens (
userid INTEGER NOT NULL,
token TEXT NOT NULL,
created DATETIME,
lastused DATETIME);`,

		`CREATE UNIQUE INDEX IF NOT EXISTS accesstokens_idx ON accesstokens (userid, token);`,
	}

	for _, query := range schema {
		if _, err := d.Exec(query); err != nil {
			log.Printf("dbInitSchema error: %s\n", err)
			return err
		}
	}
	return nil
}
