package style_learning

import (
	"gorm.io/gorm"

	"github.com/echodraft/echodraft-backend/internal/data/repos"
	types "github.com/echodraft/echodraft-backend/internal/domain"
	"github.com/echodraft/echodraft-backend/internal/platform/logger"
	"github.com/echodraft/echodraft-backend/internal/services"
)

// Pipeline runs one style-learning job: resolve the triggering content item,
// then fold the user's recent edit history into their style profile.
type Pipeline struct {
	db       *gorm.DB
	log      *logger.Logger
	contents repos.ContentRepo
	learning services.LearningService
}

func New(
	db *gorm.DB,
	baseLog *logger.Logger,
	contents repos.ContentRepo,
	learning services.LearningService,
) *Pipeline {
	return &Pipeline{
		db:       db,
		log:      baseLog.With("job", types.JobTypeStyleLearning),
		contents: contents,
		learning: learning,
	}
}

func (p *Pipeline) Type() string { return types.JobTypeStyleLearning }
