package db

import (
	types "github.com/echodraft/echodraft-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// Identity + voice
		&types.User{},
		&types.StyleProfile{},
		&types.ProfileVersion{},

		// Generated content + recorded edits
		&types.ContentItem{},
		&types.EditMetadata{},

		// Async learning queue
		&types.LearningJob{},
		&types.DeadLetter{},
	)
}
