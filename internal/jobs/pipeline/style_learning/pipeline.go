package style_learning

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	types "github.com/echodraft/echodraft-backend/internal/domain"
	jobrt "github.com/echodraft/echodraft-backend/internal/jobs/runtime"
	"github.com/echodraft/echodraft-backend/internal/platform/dbctx"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}

	contentID, ok := jc.PayloadUUID("content_id")
	if !ok || contentID == uuid.Nil {
		contentID = jc.Job.ContentID
	}
	if contentID == uuid.Nil {
		jc.Fail("validate", fmt.Errorf("missing content_id"))
		return nil
	}

	jc.Progress("load", "Loading edited content")
	dbc := dbctx.Context{Ctx: jc.Ctx}
	item, err := p.contents.GetByID(dbc, contentID)
	if err != nil {
		jc.Fail("load", err)
		return nil
	}
	if item == nil {
		jc.Fail("load", fmt.Errorf("content %s not found", contentID))
		return nil
	}
	if item.OwnerUserID != jc.Job.OwnerUserID {
		jc.Fail("load", fmt.Errorf("content %s does not belong to job owner", contentID))
		return nil
	}

	// Snapshot the delta the edit produced so the job row is auditable even
	// after retention prunes the edit metadata.
	if len(item.EditMetadata) > 0 {
		_ = jc.Update(map[string]any{"style_delta": item.EditMetadata})
	}

	jc.Progress("learn", "Updating style profile from recent edits")
	result, err := p.learning.UpdateProfileFromEdits(dbc, jc.Job.OwnerUserID, sampleText(item))
	if err != nil {
		jc.Fail("learn", err)
		return nil
	}

	p.log.Info("Style learning finished",
		"job_id", jc.Job.ID,
		"user_id", jc.Job.OwnerUserID,
		"content_id", contentID,
		"outcome", result.Outcome,
		"changed_fields", result.ChangedFields,
	)
	jc.Succeed("done", result)
	return nil
}

// sampleText picks the text worth keeping as a voice sample: the edited
// whole post, or the edited tweets joined for threads.
func sampleText(item *types.ContentItem) string {
	if item.Format.IsThread() {
		var parts []string
		for _, tw := range item.DecodeTweets() {
			if tw.EditedText != "" {
				parts = append(parts, tw.EditedText)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "\n\n")
		}
	}
	return item.EditedText
}
