package models

import "time"

// SlugModel is the slug uniqueness registry. The slug being the primary key
// makes reservation a single conditional insert: a second writer's insert is
// rejected by the storage engine, never by a read-then-write check.
type SlugModel struct {
	Slug      string    `json:"slug"    gorm:"primaryKey;size:191"`
	PageID    string    `json:"page_id" gorm:"type:char(36);index;not null"`
	CreatedAt time.Time `json:"-"`
}

func (SlugModel) TableName() string { return "page_slugs" }

// SlugRedirectModel records that an old slug now points at a page, so the
// public read path can answer renames with a redirect instead of a 404.
type SlugRedirectModel struct {
	Slug      string    `json:"slug"    gorm:"primaryKey;size:191"`
	PageID    string    `json:"page_id" gorm:"type:char(36);index;not null"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (SlugRedirectModel) TableName() string { return "slug_redirects" }
