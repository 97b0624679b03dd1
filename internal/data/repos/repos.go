package repos

import (
	"gorm.io/gorm"

	"github.com/echodraft/echodraft-backend/internal/data/repos/content"
	"github.com/echodraft/echodraft-backend/internal/data/repos/jobs"
	"github.com/echodraft/echodraft-backend/internal/data/repos/learning"
	"github.com/echodraft/echodraft-backend/internal/data/repos/user"
	"github.com/echodraft/echodraft-backend/internal/platform/logger"
)

type UserRepo = user.UserRepo
type StyleProfileRepo = user.StyleProfileRepo

type ContentRepo = content.ContentRepo

type EditMetadataRepo = learning.EditMetadataRepo
type ProfileVersionRepo = learning.ProfileVersionRepo

type LearningJobRepo = jobs.LearningJobRepo
type DeadLetterRepo = jobs.DeadLetterRepo

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return user.NewUserRepo(db, baseLog) }
func NewStyleProfileRepo(db *gorm.DB, baseLog *logger.Logger) StyleProfileRepo {
	return user.NewStyleProfileRepo(db, baseLog)
}

func NewContentRepo(db *gorm.DB, baseLog *logger.Logger) ContentRepo {
	return content.NewContentRepo(db, baseLog)
}

func NewEditMetadataRepo(db *gorm.DB, baseLog *logger.Logger) EditMetadataRepo {
	return learning.NewEditMetadataRepo(db, baseLog)
}
func NewProfileVersionRepo(db *gorm.DB, baseLog *logger.Logger) ProfileVersionRepo {
	return learning.NewProfileVersionRepo(db, baseLog)
}

func NewLearningJobRepo(db *gorm.DB, baseLog *logger.Logger) LearningJobRepo {
	return jobs.NewLearningJobRepo(db, baseLog)
}
func NewDeadLetterRepo(db *gorm.DB, baseLog *logger.Logger) DeadLetterRepo {
	return jobs.NewDeadLetterRepo(db, baseLog)
}
