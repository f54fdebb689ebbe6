package models

import "time"

// PageStatus is the publication state of a landing page.
type PageStatus string

const (
	PageStatusDraft     PageStatus = "draft"
	PageStatusPublished PageStatus = "published"
	PageStatusArchived  PageStatus = "archived"
)

// ComponentNode is one typed, configurable unit of a page's content tree.
// IDs are stable across edits so analytics and render keys survive reorders.
// Position is dense and zero-based; the store renumbers on every write.
type ComponentNode struct {
	ID       string                 `json:"id"`
	Type     string                 `json:"type"`
	Config   map[string]interface{} `json:"config"`
	Position int                    `json:"position"`
}

// LandingPageModel is a landing page with its full component tree stored as
// one JSON document, so readers always observe a complete tree.
type LandingPageModel struct {
	Base
	Slug        string                 `json:"slug"         gorm:"uniqueIndex;size:191;not null"`
	Title       string                 `json:"title"        gorm:"not null"`
	Description string                 `json:"description"`
	Status      PageStatus             `json:"status"       gorm:"size:16;default:draft;index"`
	Components  []ComponentNode        `json:"components"   gorm:"serializer:json;type:longtext"`
	Meta        map[string]interface{} `json:"meta,omitempty" gorm:"serializer:json;type:longtext"`
	Campaign    string                 `json:"campaign"`
	Source      string                 `json:"source"`
	// Version increments on every committed write; writers must present the
	// version they read for the update to apply.
	Version     int        `json:"version"      gorm:"default:0;not null"`
	PublishedAt *time.Time `json:"published_at"`
}

func (LandingPageModel) TableName() string { return "landing_pages" }
