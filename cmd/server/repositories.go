package main

import (
	"github.com/openctemio/scanledger/internal/infra/postgres"
)

// Repositories holds all repository instances.
type Repositories struct {
	User         *postgres.UserRepository
	Scan         *postgres.ScanRepository
	Finding      *postgres.FindingRepository
	Asset        *postgres.AssetRepository
	Notification *postgres.NotificationRepository
}

// NewRepositories creates all repositories on one connection pool.
func NewRepositories(db *postgres.DB) *Repositories {
	return &Repositories{
		User:         postgres.NewUserRepository(db),
		Scan:         postgres.NewScanRepository(db),
		Finding:      postgres.NewFindingRepository(db),
		Asset:        postgres.NewAssetRepository(db),
		Notification: postgres.NewNotificationRepository(db),
	}
}
