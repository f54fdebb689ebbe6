package models

import "time"

// AnalyticsDayFormat is the storage layout of the Date column. Lexicographic
// order matches chronological order, so BETWEEN works on the raw strings.
const AnalyticsDayFormat = "2006-01-02"

// AnalyticsRecordModel holds one row of visit/conversion counters per
// (page, UTC day). Rows are created lazily on the first event of a day and
// only ever removed when their page is deleted.
type AnalyticsRecordModel struct {
	ID          uint      `json:"-"           gorm:"primaryKey"`
	PageID      string    `json:"page_id"     gorm:"type:char(36);uniqueIndex:idx_page_day;not null"`
	Date        string    `json:"date"        gorm:"size:10;uniqueIndex:idx_page_day;not null"`
	Visits      int64     `json:"visits"      gorm:"default:0;not null"`
	Conversions int64     `json:"conversions" gorm:"default:0;not null"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}

func (AnalyticsRecordModel) TableName() string { return "analytics_records" }
