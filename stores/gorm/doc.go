//go:build !wasm
// +build !wasm

// Package gorm provides a GORM-based CredentialStore.
// It supports any database that GORM supports (PostgreSQL, MySQL, SQLite, etc.);
// OpenSQLite opens a local SQLite file, which is the usual choice for a
// single client installation.
//
// # Database Schema
//
// The package auto-migrates one table:
//   - authsession_credentials: (namespace, name) -> value
//
// # Usage
//
//	db, _ := gormstore.OpenSQLite("/home/me/.config/myapp/credentials.db")
//	store, _ := gormstore.NewCredentialStore(db, "default")
//	sessions := authsession.New(provider, store)
package gorm
