package migration

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/Ayash-Bera/mathgate/backend/internal/database"
)

// appliedMigration records one executed SQL file.
type appliedMigration struct {
	Name      string    `gorm:"primaryKey"`
	AppliedAt time.Time `gorm:"not null"`
}

func (appliedMigration) TableName() string { return "schema_migrations" }

type Runner struct {
	dbManager *database.Manager
	logger    *logrus.Logger
}

func NewRunner(dbManager *database.Manager, logger *logrus.Logger) *Runner {
	return &Runner{
		dbManager: dbManager,
		logger:    logger,
	}
}

// RunMigrations runs gorm auto-migrations and then every .sql file in
// migrations that has not been applied yet, in lexical order.
func (r *Runner) RunMigrations(migrations fs.FS) error {
	if !r.dbManager.HasDB() {
		return database.ErrNotConfigured
	}
	r.logger.Info("Starting database migrations...")

	if err := r.dbManager.Migrate(); err != nil {
		return fmt.Errorf("GORM auto-migration failed: %w", err)
	}

	if err := r.dbManager.DB.AutoMigrate(&appliedMigration{}); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	if err := r.runSQLMigrations(migrations); err != nil {
		return fmt.Errorf("SQL migrations failed: %w", err)
	}

	r.logger.Info("Database migrations completed successfully")
	return nil
}

func (r *Runner) runSQLMigrations(migrations fs.FS) error {
	files, err := PendingFiles(migrations)
	if err != nil {
		return err
	}

	for _, fileName := range files {
		var count int64
		if err := r.dbManager.DB.Model(&appliedMigration{}).Where("name = ?", fileName).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check migration %s: %w", fileName, err)
		}
		if count > 0 {
			r.logger.WithField("file", fileName).Debug("Migration already applied")
			continue
		}

		content, err := fs.ReadFile(migrations, fileName)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", fileName, err)
		}

		err = r.dbManager.DB.Transaction(func(tx *gorm.DB) error {
			for i, stmt := range SplitStatements(string(content)) {
				if err := tx.Exec(stmt).Error; err != nil {
					return fmt.Errorf("statement %d: %w", i+1, err)
				}
			}
			return tx.Create(&appliedMigration{Name: fileName, AppliedAt: time.Now()}).Error
		})
		if err != nil {
			return fmt.Errorf("failed to run migration %s: %w", fileName, err)
		}

		r.logger.WithField("file", fileName).Info("Migration executed successfully")
	}

	return nil
}

// PendingFiles lists the .sql files at the root of migrations in order.
func PendingFiles(migrations fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(migrations, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var sqlFiles []string
	for _, entry := range entries {
		if !entry.IsDir() && path.Ext(entry.Name()) == ".sql" {
			sqlFiles = append(sqlFiles, entry.Name())
		}
	}
	sort.Strings(sqlFiles)
	return sqlFiles, nil
}

// SplitStatements drops comment lines and splits on semicolons. Files that
// contain dollar-quoted bodies are returned as a single statement.
func SplitStatements(sql string) []string {
	lines := strings.Split(sql, "\n")
	var kept []string
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		kept = append(kept, line)
	}

	if strings.Contains(sql, "$$") {
		body := strings.TrimSpace(strings.Join(kept, "\n"))
		if body == "" {
			return nil
		}
		return []string{body}
	}

	var result []string
	for _, stmt := range strings.Split(strings.Join(kept, "\n"), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt != "" {
			result = append(result, stmt)
		}
	}
	return result
}
