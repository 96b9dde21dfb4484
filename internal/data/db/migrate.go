package db

import (
	"fmt"

	"gorm.io/gorm"
)

// progressIndexes back the hot read paths of a recompute. Both SQLite and
// Postgres accept partial indexes, so the statements are shared.
var progressIndexes = []struct {
	name string
	sql  string
}{
	{
		name: "idx_attempt_enrollment_passed",
		sql: `CREATE INDEX IF NOT EXISTS idx_attempt_enrollment_passed
			ON assessment_attempt(enrollment_id, content_item_id)
			WHERE passed;`,
	},
	{
		name: "idx_video_progress_enrollment_completed",
		sql: `CREATE INDEX IF NOT EXISTS idx_video_progress_enrollment_completed
			ON video_progress(enrollment_id, content_item_id)
			WHERE completed;`,
	},
	{
		name: "idx_content_item_module_order",
		sql:  `CREATE INDEX IF NOT EXISTS idx_content_item_module_order ON content_item(module_id, order_index);`,
	},
}

func ensureProgressIndexes(db *gorm.DB) error {
	for _, idx := range progressIndexes {
		if err := db.Exec(idx.sql).Error; err != nil {
			return fmt.Errorf("create %s: %w", idx.name, err)
		}
	}
	return nil
}
