package landing

import (
	"strings"
	"time"

	"github.com/pagemill/core/internal/models"
)

// Publish moves a draft page to published. It requires at least one component
// and a non-empty slug. Publishing an already-published page is a no-op that
// returns the current state without bumping the version; archived pages
// cannot come back through this path.
func (s *Service) Publish(id string, expectedVersion int) (*models.LandingPageModel, error) {
	page, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	switch page.Status {
	case models.PageStatusPublished:
		return page, nil
	case models.PageStatusArchived:
		return nil, ErrInvalidTransition
	}

	if len(page.Components) == 0 || strings.TrimSpace(page.Slug) == "" {
		return nil, ErrInvalidTransition
	}

	updates := map[string]interface{}{
		"status":  models.PageStatusPublished,
		"version": expectedVersion + 1,
	}
	// published_at records first publication only; later publish cycles keep it.
	var publishedAt *time.Time
	if page.PublishedAt == nil {
		now := time.Now().UTC()
		publishedAt = &now
		updates["published_at"] = now
	}

	if err := s.transition(id, expectedVersion, updates); err != nil {
		return nil, err
	}

	s.invalidate(page.Slug)

	page.Status = models.PageStatusPublished
	page.Version = expectedVersion + 1
	if publishedAt != nil {
		page.PublishedAt = publishedAt
	}
	return page, nil
}

// Unpublish reverts a published page to draft. The published_at timestamp is
// preserved as first-publication provenance, and analytics are untouched.
// Unpublishing a draft is a no-op; archived pages are terminal.
func (s *Service) Unpublish(id string, expectedVersion int) (*models.LandingPageModel, error) {
	page, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	switch page.Status {
	case models.PageStatusDraft:
		return page, nil
	case models.PageStatusArchived:
		return nil, ErrInvalidTransition
	}

	if err := s.transition(id, expectedVersion, map[string]interface{}{
		"status":  models.PageStatusDraft,
		"version": expectedVersion + 1,
	}); err != nil {
		return nil, err
	}

	s.invalidate(page.Slug)

	page.Status = models.PageStatusDraft
	page.Version = expectedVersion + 1
	return page, nil
}

// Archive retires a page from both draft and published states. Archived pages
// stay addressable by ID for admin tooling but are never publicly resolvable.
// Archiving an archived page is a no-op.
func (s *Service) Archive(id string, expectedVersion int) (*models.LandingPageModel, error) {
	page, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	if page.Status == models.PageStatusArchived {
		return page, nil
	}
	wasPublished := page.Status == models.PageStatusPublished

	if err := s.transition(id, expectedVersion, map[string]interface{}{
		"status":  models.PageStatusArchived,
		"version": expectedVersion + 1,
	}); err != nil {
		return nil, err
	}

	if wasPublished {
		s.invalidate(page.Slug)
	}

	page.Status = models.PageStatusArchived
	page.Version = expectedVersion + 1
	return page, nil
}

// transition applies a status update under the same optimistic-version guard
// as content edits, so a publish cannot clobber a concurrent tree write.
func (s *Service) transition(id string, expectedVersion int, updates map[string]interface{}) error {
	res := s.db.Model(&models.LandingPageModel{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return s.conflictOrGone(nil, id)
	}
	return nil
}
