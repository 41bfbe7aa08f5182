// Package migrator applies one-off rewrites of stored keyring records.
package migrator

import (
	"fmt"
	"sync"
	"time"

	sdklogging "github.com/Layr-Labs/eigensdk-go/logging"

	"github.com/AvaProtocol/aa-keyring/core/backup"
	"github.com/AvaProtocol/aa-keyring/pkg/logger"
	"github.com/AvaProtocol/aa-keyring/storage"
	"github.com/AvaProtocol/aa-keyring/storage/schema"
)

// MigrationFunc rewrites records in db and returns how many it changed.
type MigrationFunc func(db storage.Storage) (int, error)

// Migration is applied once per database, tracked by Name. Names start with a
// YYYYMMDD-HHMMSS timestamp so they sort in the order they were written.
type Migration struct {
	Name     string
	Function MigrationFunc
}

type Migrator struct {
	db         storage.Storage
	migrations []Migration
	backup     *backup.Service
	logger     sdklogging.Logger
	mu         sync.Mutex
}

// NewMigrator returns a migrator that takes a backup with b, when b is not
// nil, before applying anything.
func NewMigrator(db storage.Storage, b *backup.Service, migrations []Migration, l sdklogging.Logger) *Migrator {
	return &Migrator{
		db:         db,
		migrations: append([]Migration(nil), migrations...),
		backup:     b,
		logger:     logger.EnsureLogger(l),
	}
}

func (m *Migrator) Register(name string, fn MigrationFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.migrations = append(m.migrations, Migration{Name: name, Function: fn})
}

// Pending lists the migrations not applied yet, in registration order.
func (m *Migrator) Pending() ([]Migration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending()
}

func (m *Migrator) pending() ([]Migration, error) {
	var pending []Migration
	for _, migration := range m.migrations {
		exists, err := m.db.Exist(schema.MigrationStorageKey(migration.Name))
		if err != nil {
			return nil, fmt.Errorf("cannot check migration %s: %w", migration.Name, err)
		}
		if !exists {
			pending = append(pending, migration)
		}
	}
	return pending, nil
}

// Run applies every pending migration and stops at the first failure.
func (m *Migrator) Run() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pending, err := m.pending()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	if m.backup != nil {
		m.logger.Info("pending migrations found, creating database backup", "count", len(pending))
		backupFile, err := m.backup.PerformBackup()
		if err != nil {
			return fmt.Errorf("failed to create backup before migrations: %w", err)
		}
		m.logger.Info("database backup created", "file", backupFile)
	}

	for _, migration := range pending {
		m.logger.Info("running migration", "name", migration.Name)
		recordsUpdated, err := migration.Function(m.db)
		if err != nil {
			return fmt.Errorf("migration %s failed: %w", migration.Name, err)
		}
		m.logger.Info("migration completed", "name", migration.Name, "records", recordsUpdated)

		marker := fmt.Sprintf("records=%d,ts=%d", recordsUpdated, time.Now().UnixMilli())
		if err := m.db.Set(schema.MigrationStorageKey(migration.Name), []byte(marker)); err != nil {
			return fmt.Errorf("failed to mark migration as complete in database: %w", err)
		}
	}

	return nil
}
