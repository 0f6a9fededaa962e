//go:build !wasm
// +build !wasm

package gorm

import (
	"fmt"
	"sync"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/panyam/authsession"
)

// AutoMigrate runs database migrations for the credentials table
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&CredentialModel{})
}

// OpenSQLite opens (creating if needed) a SQLite database at path and migrates it
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate credentials table: %w", err)
	}
	return db, nil
}

// CredentialStore implements authsession.CredentialStore using GORM.
// Set and Remove are buffered; Save applies them in one transaction.
type CredentialStore struct {
	mu        sync.Mutex
	db        *gorm.DB
	namespace string

	// pending changes since the last Save; a nil value means removal
	pending map[string]*string
}

// NewCredentialStore creates a store for namespace (an installation or profile name)
func NewCredentialStore(db *gorm.DB, namespace string) (*CredentialStore, error) {
	if namespace == "" {
		namespace = "default"
	}
	if err := AutoMigrate(db); err != nil {
		return nil, authsession.NewStoreError("load", "", err)
	}
	return &CredentialStore{
		db:        db,
		namespace: namespace,
		pending:   make(map[string]*string),
	}, nil
}

func (s *CredentialStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.pending[key]; ok {
		if v == nil {
			return "", false, nil
		}
		return *v, true, nil
	}

	var models []CredentialModel
	err := s.db.Where("namespace = ? AND name = ?", s.namespace, key).Limit(1).Find(&models).Error
	if err != nil {
		return "", false, authsession.NewStoreError("get", key, err)
	}
	if len(models) == 0 {
		return "", false, nil
	}
	return models[0].Value, true, nil
}

func (s *CredentialStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[key] = &value
	return nil
}

func (s *CredentialStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[key] = nil
	return nil
}

// Save writes pending changes in a single transaction
func (s *CredentialStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return nil
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		for k, v := range s.pending {
			if v == nil {
				if err := tx.Where("namespace = ? AND name = ?", s.namespace, k).Delete(&CredentialModel{}).Error; err != nil {
					return err
				}
				continue
			}
			model := &CredentialModel{Namespace: s.namespace, Name: k, Value: *v}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "namespace"}, {Name: "name"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(model).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return authsession.NewStoreError("save", "", err)
	}

	clear(s.pending)
	return nil
}
