package slugs

import (
	"errors"
	"regexp"
	"strings"

	"github.com/pagemill/core/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrSlugTaken means another live page already owns the slug.
	ErrSlugTaken = errors.New("slug already taken")
	// ErrInvalidSlug means the candidate is empty or not URL-safe.
	ErrInvalidSlug = errors.New("invalid slug")
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Normalize lowercases and trims a candidate slug and rejects anything that
// is not URL-safe.
func Normalize(raw string) (string, error) {
	slug := strings.ToLower(strings.TrimSpace(raw))
	if !slugPattern.MatchString(slug) {
		return "", ErrInvalidSlug
	}
	return slug, nil
}

// Resolver guarantees slug uniqueness across live pages. Reservation is a
// single conditional insert against the primary key of page_slugs; the
// storage engine rejects duplicates at commit time and the resolver surfaces
// that rejection as ErrSlugTaken. There is no read-then-write window.
type Resolver struct {
	db *gorm.DB
}

func NewResolver(db *gorm.DB) *Resolver { return &Resolver{db: db} }

// Reserve claims slug for pageID. Re-reserving a slug the page already owns
// is a no-op, which makes slug-preserving page updates idempotent.
// Callers composing larger writes pass their transaction handle.
func (r *Resolver) Reserve(tx *gorm.DB, slug, pageID string) error {
	if tx == nil {
		tx = r.db
	}
	err := tx.Create(&models.SlugModel{Slug: slug, PageID: pageID}).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}

	var existing models.SlugModel
	if lookupErr := tx.First(&existing, "slug = ?", slug).Error; lookupErr == nil && existing.PageID == pageID {
		return nil
	}
	return ErrSlugTaken
}

// Release frees a slug. Releasing a slug that is not reserved is a no-op.
func (r *Resolver) Release(tx *gorm.DB, slug string) error {
	if tx == nil {
		tx = r.db
	}
	return tx.Delete(&models.SlugModel{}, "slug = ?", slug).Error
}

// ReleaseByPage frees every slug held by a page. Used on page delete.
func (r *Resolver) ReleaseByPage(tx *gorm.DB, pageID string) error {
	if tx == nil {
		tx = r.db
	}
	return tx.Delete(&models.SlugModel{}, "page_id = ?", pageID).Error
}

// TrackRedirect records that oldSlug now points at pageID, so the public read
// path can redirect instead of 404ing after a rename.
func (r *Resolver) TrackRedirect(tx *gorm.DB, oldSlug, pageID string) error {
	if tx == nil {
		tx = r.db
	}
	redirect := models.SlugRedirectModel{Slug: oldSlug, PageID: pageID}
	return tx.Where(models.SlugRedirectModel{Slug: oldSlug}).
		Assign(models.SlugRedirectModel{PageID: pageID}).
		FirstOrCreate(&redirect).Error
}

// FindRedirect returns the page a retired slug points at, or ("", nil).
func (r *Resolver) FindRedirect(slug string) (string, error) {
	var redirect models.SlugRedirectModel
	err := r.db.First(&redirect, "slug = ?", slug).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return redirect.PageID, nil
}

// DropRedirects removes all redirect entries for a page. Used on page delete,
// and on rename when the page reclaims one of its retired slugs.
func (r *Resolver) DropRedirects(tx *gorm.DB, pageID string) error {
	if tx == nil {
		tx = r.db
	}
	return tx.Delete(&models.SlugRedirectModel{}, "page_id = ?", pageID).Error
}

// DropRedirect removes a single redirect entry.
func (r *Resolver) DropRedirect(tx *gorm.DB, slug string) error {
	if tx == nil {
		tx = r.db
	}
	return tx.Delete(&models.SlugRedirectModel{}, "slug = ?", slug).Error
}
