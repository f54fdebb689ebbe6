package landing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/pagemill/core/internal/models"
	"github.com/pagemill/core/internal/modules/content/registry"
	"github.com/pagemill/core/internal/modules/content/slugs"
	"github.com/pagemill/core/internal/pkg/pagination"
	"github.com/pagemill/core/internal/pkg/response"
	"gorm.io/gorm"
)

// Revalidator is the cache invalidation contract. The core signals on every
// state or content change that affects public visibility; the caching layer
// behind this interface decides what to do with the signal.
type Revalidator interface {
	InvalidateSlug(ctx context.Context, slug string)
}

// Service is the content tree store: it owns landing pages and their
// component trees. A page's full component list lives in one JSON column, so
// replaces are atomic and readers never observe a half-written tree.
type Service struct {
	db          *gorm.DB
	registry    *registry.Registry
	slugs       *slugs.Resolver
	revalidator Revalidator
}

func NewService(db *gorm.DB, reg *registry.Registry, resolver *slugs.Resolver) *Service {
	return &Service{db: db, registry: reg, slugs: resolver}
}

// SetRevalidator wires up cache invalidation signaling (optional).
func (s *Service) SetRevalidator(rv Revalidator) { s.revalidator = rv }

// buildNodes validates every component through the registry and assigns dense
// zero-based positions from input order. All-or-nothing: the first invalid
// component rejects the whole list.
func (s *Service) buildNodes(inputs []ComponentInput) ([]models.ComponentNode, error) {
	nodes := make([]models.ComponentNode, 0, len(inputs))
	for i, in := range inputs {
		config, err := s.registry.Validate(in.Type, in.Config)
		if err != nil {
			return nil, err
		}
		id := in.ID
		if id == "" {
			id = uuid.New().String()
		}
		nodes = append(nodes, models.ComponentNode{
			ID:       id,
			Type:     in.Type,
			Config:   config,
			Position: i,
		})
	}
	return nodes, nil
}

// Create stores a new page in draft status with its slug reserved atomically.
func (s *Service) Create(dto *CreatePageDTO) (*models.LandingPageModel, error) {
	slug, err := slugs.Normalize(dto.Slug)
	if err != nil {
		return nil, err
	}
	nodes, err := s.buildNodes(dto.Components)
	if err != nil {
		return nil, err
	}

	page := models.LandingPageModel{
		Slug:        slug,
		Title:       dto.Title,
		Description: dto.Description,
		Status:      models.PageStatusDraft,
		Components:  nodes,
		Meta:        dto.Meta,
		Campaign:    dto.Campaign,
		Source:      dto.Source,
	}
	page.ID = uuid.New().String()

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.slugs.Reserve(tx, slug, page.ID); err != nil {
			return err
		}
		return tx.Create(&page).Error
	}); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetByID fetches a page regardless of status.
func (s *Service) GetByID(id string) (*models.LandingPageModel, error) {
	var page models.LandingPageModel
	if err := s.db.First(&page, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPageNotFound
		}
		return nil, err
	}
	return &page, nil
}

// GetBySlug fetches a page regardless of status. Callers serving public
// traffic must additionally check Status themselves; preview and editor flows
// rely on this returning drafts.
func (s *Service) GetBySlug(slug string) (*models.LandingPageModel, error) {
	var page models.LandingPageModel
	if err := s.db.First(&page, "slug = ?", slug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPageNotFound
		}
		return nil, err
	}
	return &page, nil
}

// List returns pages for the authoring surface, newest first.
func (s *Service) List(q pagination.Query) ([]models.LandingPageModel, response.Pagination, error) {
	tx := s.db.Model(&models.LandingPageModel{}).Order("created_at DESC")
	var pages []models.LandingPageModel
	pag, err := pagination.Paginate(tx, q, &pages)
	return pages, pag, err
}

// ReplaceComponents swaps the whole component tree in one conditional write.
// The update applies only if the stored version still equals expectedVersion;
// zero rows affected means a concurrent writer won and the caller gets
// ErrVersionConflict.
func (s *Service) ReplaceComponents(id string, expectedVersion int, inputs []ComponentInput) (*models.LandingPageModel, error) {
	nodes, err := s.buildNodes(inputs)
	if err != nil {
		return nil, err
	}

	page, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	res := s.db.Model(&models.LandingPageModel{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Select("Components", "Version", "UpdatedAt").
		Updates(models.LandingPageModel{Components: nodes, Version: expectedVersion + 1})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, s.conflictOrGone(nil, id)
	}

	if page.Status == models.PageStatusPublished {
		s.invalidate(page.Slug)
	}

	page.Components = nodes
	page.Version = expectedVersion + 1
	return page, nil
}

// UpdateMeta edits page-level fields under the same version guard as content
// writes, so a metadata save cannot clobber a concurrent tree edit.
func (s *Service) UpdateMeta(id string, expectedVersion int, dto *UpdateMetaDTO) (*models.LandingPageModel, error) {
	page, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	fields := []string{"Version", "UpdatedAt"}
	var upd models.LandingPageModel
	upd.Version = expectedVersion + 1
	if dto.Title != nil {
		upd.Title = *dto.Title
		fields = append(fields, "Title")
	}
	if dto.Description != nil {
		upd.Description = *dto.Description
		fields = append(fields, "Description")
	}
	if dto.Meta != nil {
		upd.Meta = dto.Meta
		fields = append(fields, "Meta")
	}
	if dto.Campaign != nil {
		upd.Campaign = *dto.Campaign
		fields = append(fields, "Campaign")
	}
	if dto.Source != nil {
		upd.Source = *dto.Source
		fields = append(fields, "Source")
	}

	res := s.db.Model(&models.LandingPageModel{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Select(fields).
		Updates(upd)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, s.conflictOrGone(nil, id)
	}

	if page.Status == models.PageStatusPublished {
		s.invalidate(page.Slug)
	}
	return s.GetByID(id)
}

// RenameSlug moves a page to a new slug: reserve the new slug first, repoint
// the page, then release the old one, so a failure mid-rename leaves the old
// slug resolvable. The retired slug keeps redirecting to the page.
func (s *Service) RenameSlug(id string, expectedVersion int, rawSlug string) (*models.LandingPageModel, error) {
	newSlug, err := slugs.Normalize(rawSlug)
	if err != nil {
		return nil, err
	}

	page, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if page.Slug == newSlug {
		return page, nil
	}
	oldSlug := page.Slug

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.slugs.Reserve(tx, newSlug, id); err != nil {
			return err
		}

		res := tx.Model(&models.LandingPageModel{}).
			Where("id = ? AND version = ?", id, expectedVersion).
			Updates(map[string]interface{}{"slug": newSlug, "version": expectedVersion + 1})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return s.conflictOrGone(tx, id)
		}

		if err := s.slugs.Release(tx, oldSlug); err != nil {
			return err
		}
		if err := s.slugs.TrackRedirect(tx, oldSlug, id); err != nil {
			return err
		}
		// The page may be reclaiming a slug it once redirected away from.
		return s.slugs.DropRedirect(tx, newSlug)
	}); err != nil {
		return nil, err
	}

	if page.Status == models.PageStatusPublished {
		s.invalidate(oldSlug)
		s.invalidate(newSlug)
	}

	page.Slug = newSlug
	page.Version = expectedVersion + 1
	return page, nil
}

// Delete removes a page and everything it owns: component tree (embedded in
// the page row), analytics rows, slug reservation, and redirects.
func (s *Service) Delete(id string) error {
	page, err := s.GetByID(id)
	if err != nil {
		return err
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.AnalyticsRecordModel{}, "page_id = ?", id).Error; err != nil {
			return err
		}
		if err := s.slugs.ReleaseByPage(tx, id); err != nil {
			return err
		}
		if err := s.slugs.DropRedirects(tx, id); err != nil {
			return err
		}
		return tx.Delete(&models.LandingPageModel{}, "id = ?", id).Error
	}); err != nil {
		return err
	}

	if page.Status == models.PageStatusPublished {
		s.invalidate(page.Slug)
	}
	return nil
}

// conflictOrGone disambiguates a zero-rows-affected conditional update.
// Callers inside a transaction pass their handle so the lookup does not wait
// on a connection the transaction itself holds.
func (s *Service) conflictOrGone(tx *gorm.DB, id string) error {
	if tx == nil {
		tx = s.db
	}
	var count int64
	if err := tx.Model(&models.LandingPageModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrPageNotFound
	}
	return ErrVersionConflict
}

func (s *Service) invalidate(slug string) {
	if s.revalidator == nil {
		return
	}
	s.revalidator.InvalidateSlug(context.Background(), slug)
}
