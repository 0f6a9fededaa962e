//go:build !wasm
// +build !wasm

package gorm

import "time"

// CredentialModel is the GORM model for one stored credential value
type CredentialModel struct {
	Namespace string    `gorm:"primaryKey;size:128"`
	Name      string    `gorm:"primaryKey;size:64"`
	Value     string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (CredentialModel) TableName() string {
	return "authsession_credentials"
}
