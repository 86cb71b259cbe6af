package store

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/ptyhub/ptyhub/pkg/hub/models"
)

// migrationStep is one numbered data migration. Schema shape comes from
// AutoMigrate; steps cover data fixes AutoMigrate cannot express. Steps run
// in ID order, each inside its own transaction together with the row that
// records it, so a failed step is retried on the next start.
type migrationStep struct {
	ID   int
	Name string
	Run  func(tx *gorm.DB) error
}

// migrationSteps is append-only. Never renumber or remove an entry.
var migrationSteps = []migrationStep{
	{
		ID:   1,
		Name: "backfill-last-accessed",
		// Rows created before the column existed carry the zero time, which
		// would make the idle reaper see decades of idleness.
		Run: func(tx *gorm.DB) error {
			return tx.Exec(
				"UPDATE sessions SET last_accessed_at = created_at WHERE last_accessed_at < created_at",
			).Error
		},
	},
	{
		ID:   2,
		Name: "orphan-sessions-of-deleted-categories",
		// Early builds deleted categories without clearing category_id.
		Run: func(tx *gorm.DB) error {
			return tx.Exec(
				"UPDATE sessions SET category_id = NULL WHERE category_id IS NOT NULL" +
					" AND category_id NOT IN (SELECT id FROM categories)",
			).Error
		},
	},
}

// Migrate applies every pending data migration. Called from New and from
// the standalone migrate command.
func (s *GORMStore) Migrate() error {
	for _, step := range migrationSteps {
		var count int64
		if err := s.db.Model(&models.Migration{}).
			Where("name = ?", step.Name).
			Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check migration %q: %w", step.Name, err)
		}
		if count > 0 {
			continue
		}

		err := s.db.Transaction(func(tx *gorm.DB) error {
			if err := step.Run(tx); err != nil {
				return err
			}
			return tx.Create(&models.Migration{ID: step.ID, Name: step.Name}).Error
		})
		if err != nil {
			return fmt.Errorf("migration %q failed: %w", step.Name, err)
		}
	}
	return nil
}

// AppliedMigrations returns the recorded migrations in application order.
func (s *GORMStore) AppliedMigrations() ([]*models.Migration, error) {
	applied := make([]*models.Migration, 0)
	if err := s.db.Order("id asc").Find(&applied).Error; err != nil {
		return nil, err
	}
	return applied, nil
}
