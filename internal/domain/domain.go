package domain

import (
	"github.com/echodraft/echodraft-backend/internal/domain/content"
	"github.com/echodraft/echodraft-backend/internal/domain/jobs"
	"github.com/echodraft/echodraft-backend/internal/domain/learning"
	"github.com/echodraft/echodraft-backend/internal/domain/user"
)

type User = user.User
type StyleProfile = user.StyleProfile
type ToneSettings = user.ToneSettings
type WritingTraits = user.WritingTraits
type StructurePreferences = user.StructurePreferences

type ContentItem = content.ContentItem
type ContentFormat = content.Format
type TweetEdit = content.TweetEdit

const (
	FormatSingle     = content.FormatSingle
	FormatMiniThread = content.FormatMiniThread
	FormatFullThread = content.FormatFullThread
)

type EditMetadata = learning.EditMetadata
type ProfileVersion = learning.ProfileVersion

type LearningJob = jobs.LearningJob
type DeadLetter = jobs.DeadLetter

const (
	JobStatusPending    = jobs.StatusPending
	JobStatusProcessing = jobs.StatusProcessing
	JobStatusCompleted  = jobs.StatusCompleted
	JobStatusFailed     = jobs.StatusFailed

	JobTypeStyleLearning = jobs.JobTypeStyleLearning
)
