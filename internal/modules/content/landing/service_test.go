package landing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/pagemill/core/internal/models"
	"github.com/pagemill/core/internal/modules/content/registry"
	"github.com/pagemill/core/internal/modules/content/slugs"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// revalidationRecorder captures invalidation signals for assertions.
type revalidationRecorder struct {
	mu    sync.Mutex
	slugs []string
}

func (r *revalidationRecorder) InvalidateSlug(_ context.Context, slug string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slugs = append(r.slugs, slug)
}

func (r *revalidationRecorder) count(slug string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.slugs {
		if s == slug {
			n++
		}
	}
	return n
}

func setupLandingTest(t *testing.T) (*Service, *gorm.DB, *revalidationRecorder, func()) {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := gdb.AutoMigrate(
		&models.LandingPageModel{},
		&models.SlugModel{},
		&models.SlugRedirectModel{},
		&models.AnalyticsRecordModel{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	// SQLite allows one writer; funnel the pool so concurrent test writers
	// queue instead of tripping over table locks.
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("failed to resolve sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	svc := NewService(gdb, registry.New(false), slugs.NewResolver(gdb))
	recorder := &revalidationRecorder{}
	svc.SetRevalidator(recorder)

	return svc, gdb, recorder, func() { sqlDB.Close() }
}

func textInput(content string) ComponentInput {
	return ComponentInput{Type: "text", Config: map[string]interface{}{"content": content}}
}

func heroInput(title string) ComponentInput {
	return ComponentInput{Type: "hero", Config: map[string]interface{}{
		"title": title,
		"image": "/hero.png",
	}}
}

func TestCreateAssignsOrdinalsFromInputOrder(t *testing.T) {
	svc, _, _, cleanup := setupLandingTest(t)
	defer cleanup()

	page, err := svc.Create(&CreatePageDTO{
		Slug:  "promo",
		Title: "Promo",
		Components: []ComponentInput{
			heroInput("First"),
			textInput("Second"),
			textInput("Third"),
		},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	got, err := svc.GetByID(page.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}

	if len(got.Components) != 3 {
		t.Fatalf("expected 3 components, got %d", len(got.Components))
	}
	wantTypes := []string{"hero", "text", "text"}
	for i, node := range got.Components {
		if node.Position != i {
			t.Fatalf("component %d has position %d, want %d", i, node.Position, i)
		}
		if node.Type != wantTypes[i] {
			t.Fatalf("component %d has type %q, want %q", i, node.Type, wantTypes[i])
		}
		if node.ID == "" {
			t.Fatalf("component %d has no id", i)
		}
	}
	if got.Status != models.PageStatusDraft {
		t.Fatalf("new page must start in draft, got %q", got.Status)
	}
	if got.Version != 0 {
		t.Fatalf("new page must start at version 0, got %d", got.Version)
	}
}

func TestCreateRejectsInvalidComponent(t *testing.T) {
	svc, _, _, cleanup := setupLandingTest(t)
	defer cleanup()

	_, err := svc.Create(&CreatePageDTO{
		Slug:  "promo",
		Title: "Promo",
		Components: []ComponentInput{
			{Type: "hologram", Config: map[string]interface{}{}},
		},
	})
	if !errors.Is(err, registry.ErrUnknownComponentType) {
		t.Fatalf("expected ErrUnknownComponentType, got %v", err)
	}

	if _, err := svc.GetBySlug("promo"); !errors.Is(err, ErrPageNotFound) {
		t.Fatal("failed create must not leave a page behind")
	}
}

func TestCreateDuplicateSlug(t *testing.T) {
	svc, _, _, cleanup := setupLandingTest(t)
	defer cleanup()

	if _, err := svc.Create(&CreatePageDTO{Slug: "promo", Title: "A"}); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	if _, err := svc.Create(&CreatePageDTO{Slug: "promo", Title: "B"}); !errors.Is(err, slugs.ErrSlugTaken) {
		t.Fatalf("expected ErrSlugTaken, got %v", err)
	}
}

func TestConcurrentCreateSameSlug(t *testing.T) {
	svc, _, _, cleanup := setupLandingTest(t)
	defer cleanup()

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		title := fmt.Sprintf("Writer %d", i)
		go func() {
			_, err := svc.Create(&CreatePageDTO{Slug: "promo", Title: title})
			errs <- err
		}()
	}

	var taken, succeeded int
	for i := 0; i < 2; i++ {
		switch err := <-errs; {
		case err == nil:
			succeeded++
		case errors.Is(err, slugs.ErrSlugTaken):
			taken++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 || taken != 1 {
		t.Fatalf("expected exactly one winner, got %d successes and %d conflicts", succeeded, taken)
	}
}

func TestReplaceComponentsVersionConflict(t *testing.T) {
	svc, _, _, cleanup := setupLandingTest(t)
	defer cleanup()

	page, err := svc.Create(&CreatePageDTO{Slug: "promo", Title: "Promo", Components: []ComponentInput{textInput("v0")}})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := svc.ReplaceComponents(page.ID, page.Version, []ComponentInput{textInput("first writer")}); err != nil {
		t.Fatalf("first replace failed: %v", err)
	}

	// Second writer still holds the original version.
	if _, err := svc.ReplaceComponents(page.ID, page.Version, []ComponentInput{textInput("second writer")}); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	got, _ := svc.GetByID(page.ID)
	if got.Components[0].Config["content"] != "first writer" {
		t.Fatalf("stored tree must be the successful writer's payload, got %v", got.Components[0].Config)
	}
	if got.Version != page.Version+1 {
		t.Fatalf("expected version %d, got %d", page.Version+1, got.Version)
	}
}

func TestConcurrentReplaceExactlyOneWins(t *testing.T) {
	svc, _, _, cleanup := setupLandingTest(t)
	defer cleanup()

	page, err := svc.Create(&CreatePageDTO{Slug: "promo", Title: "Promo", Components: []ComponentInput{textInput("v0")}})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	type result struct {
		payload string
		err     error
	}
	results := make(chan result, 2)
	for i := 0; i < 2; i++ {
		payload := fmt.Sprintf("writer %d", i)
		go func() {
			_, err := svc.ReplaceComponents(page.ID, page.Version, []ComponentInput{textInput(payload)})
			results <- result{payload: payload, err: err}
		}()
	}

	var winner string
	var conflicts int
	for i := 0; i < 2; i++ {
		r := <-results
		switch {
		case r.err == nil:
			winner = r.payload
		case errors.Is(r.err, ErrVersionConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", r.err)
		}
	}
	if winner == "" || conflicts != 1 {
		t.Fatalf("expected exactly one winner, got winner=%q conflicts=%d", winner, conflicts)
	}

	got, _ := svc.GetByID(page.ID)
	if len(got.Components) != 1 || got.Components[0].Config["content"] != winner {
		t.Fatalf("stored tree must equal the winner's payload %q, got %v", winner, got.Components)
	}
}

func TestReplaceComponentsAllOrNothing(t *testing.T) {
	svc, _, _, cleanup := setupLandingTest(t)
	defer cleanup()

	page, err := svc.Create(&CreatePageDTO{Slug: "promo", Title: "Promo", Components: []ComponentInput{textInput("original")}})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	_, err = svc.ReplaceComponents(page.ID, page.Version, []ComponentInput{
		textInput("valid"),
		{Type: "cta", Config: map[string]interface{}{"label": "Go"}}, // missing href
	})
	var configErr *registry.InvalidConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("expected InvalidConfigError, got %v", err)
	}

	got, _ := svc.GetByID(page.ID)
	if len(got.Components) != 1 || got.Components[0].Config["content"] != "original" {
		t.Fatal("failed replace must leave the stored tree unchanged")
	}
	if got.Version != page.Version {
		t.Fatal("failed replace must not bump the version")
	}
}

func TestReplaceComponentsKeepsStableIDs(t *testing.T) {
	svc, _, _, cleanup := setupLandingTest(t)
	defer cleanup()

	page, err := svc.Create(&CreatePageDTO{Slug: "promo", Title: "Promo", Components: []ComponentInput{textInput("a"), textInput("b")}})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	first := page.Components[0]
	second := page.Components[1]

	// Reorder: keep both nodes, swap positions, via client-supplied IDs.
	updated, err := svc.ReplaceComponents(page.ID, page.Version, []ComponentInput{
		{ID: second.ID, Type: second.Type, Config: second.Config},
		{ID: first.ID, Type: first.Type, Config: first.Config},
	})
	if err != nil {
		t.Fatalf("replace failed: %v", err)
	}

	if updated.Components[0].ID != second.ID || updated.Components[1].ID != first.ID {
		t.Fatal("component ids must be stable across reorders")
	}
	if updated.Components[0].Position != 0 || updated.Components[1].Position != 1 {
		t.Fatal("positions must be renumbered densely after a reorder")
	}
}

func TestUpdateMetaGuardedByVersion(t *testing.T) {
	svc, _, _, cleanup := setupLandingTest(t)
	defer cleanup()

	page, err := svc.Create(&CreatePageDTO{Slug: "promo", Title: "Promo"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	title := "Summer Promo"
	campaign := "summer-2026"
	updated, err := svc.UpdateMeta(page.ID, page.Version, &UpdateMetaDTO{Title: &title, Campaign: &campaign})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Title != title || updated.Campaign != campaign {
		t.Fatalf("meta update not applied: %+v", updated)
	}

	stale := "Stale"
	if _, err := svc.UpdateMeta(page.ID, page.Version, &UpdateMetaDTO{Title: &stale}); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict for stale version, got %v", err)
	}
}

func TestRenameSlugLeavesRedirect(t *testing.T) {
	svc, gdb, _, cleanup := setupLandingTest(t)
	defer cleanup()

	page, err := svc.Create(&CreatePageDTO{Slug: "promo", Title: "Promo"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	renamed, err := svc.RenameSlug(page.ID, page.Version, "mega-promo")
	if err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	if renamed.Slug != "mega-promo" {
		t.Fatalf("expected new slug, got %q", renamed.Slug)
	}

	resolver := slugs.NewResolver(gdb)
	target, err := resolver.FindRedirect("promo")
	if err != nil {
		t.Fatalf("redirect lookup failed: %v", err)
	}
	if target != page.ID {
		t.Fatalf("old slug must redirect to the page, got %q", target)
	}

	// The released slug is free for another page.
	if _, err := svc.Create(&CreatePageDTO{Slug: "promo", Title: "Newcomer"}); err != nil {
		t.Fatalf("released slug must be reusable: %v", err)
	}
}

func TestRenameSlugStaleVersion(t *testing.T) {
	svc, _, _, cleanup := setupLandingTest(t)
	defer cleanup()

	page, err := svc.Create(&CreatePageDTO{Slug: "promo", Title: "Promo"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.ReplaceComponents(page.ID, page.Version, []ComponentInput{textInput("bump")}); err != nil {
		t.Fatalf("replace failed: %v", err)
	}

	if _, err := svc.RenameSlug(page.ID, page.Version, "mega-promo"); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict for stale rename, got %v", err)
	}

	// The rolled-back reservation must not hold the new slug.
	if _, err := svc.Create(&CreatePageDTO{Slug: "mega-promo", Title: "Other"}); err != nil {
		t.Fatalf("failed rename must release the new slug: %v", err)
	}
}

func TestRenameSlugToTakenSlug(t *testing.T) {
	svc, _, _, cleanup := setupLandingTest(t)
	defer cleanup()

	if _, err := svc.Create(&CreatePageDTO{Slug: "promo", Title: "A"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	other, err := svc.Create(&CreatePageDTO{Slug: "other", Title: "B"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := svc.RenameSlug(other.ID, other.Version, "promo"); !errors.Is(err, slugs.ErrSlugTaken) {
		t.Fatalf("expected ErrSlugTaken, got %v", err)
	}

	// Failed rename keeps the old slug resolvable.
	got, err := svc.GetBySlug("other")
	if err != nil || got.ID != other.ID {
		t.Fatalf("old slug must still resolve after failed rename, got %v / %v", got, err)
	}
}

func TestDeleteCascades(t *testing.T) {
	svc, gdb, _, cleanup := setupLandingTest(t)
	defer cleanup()

	page, err := svc.Create(&CreatePageDTO{Slug: "promo", Title: "Promo", Components: []ComponentInput{textInput("x")}})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := gdb.Create(&models.AnalyticsRecordModel{PageID: page.ID, Date: "2026-08-01", Visits: 5}).Error; err != nil {
		t.Fatalf("seed analytics failed: %v", err)
	}

	if err := svc.Delete(page.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, err := svc.GetByID(page.ID); !errors.Is(err, ErrPageNotFound) {
		t.Fatalf("expected ErrPageNotFound after delete, got %v", err)
	}

	var analyticsCount int64
	gdb.Model(&models.AnalyticsRecordModel{}).Where("page_id = ?", page.ID).Count(&analyticsCount)
	if analyticsCount != 0 {
		t.Fatalf("expected analytics rows to cascade, %d remain", analyticsCount)
	}

	// Slug released: a new page can claim it immediately.
	if _, err := svc.Create(&CreatePageDTO{Slug: "promo", Title: "Reuse"}); err != nil {
		t.Fatalf("slug must be released on delete: %v", err)
	}
}
