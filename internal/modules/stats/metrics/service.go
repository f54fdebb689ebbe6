package metrics

import (
	"time"

	"github.com/pagemill/core/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service records visit/conversion events per page and answers day-bucketed
// range queries. Counters are incremented with an atomic upsert so concurrent
// events against the same (page, day) never lose updates.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// Record increments the counter for kind on the page's row for the UTC day
// containing at, creating the row if this is the day's first event.
func (s *Service) Record(pageID string, kind EventKind, at time.Time) error {
	day := at.UTC().Format(models.AnalyticsDayFormat)
	record := models.AnalyticsRecordModel{PageID: pageID, Date: day}

	assignments := map[string]interface{}{}
	switch kind {
	case EventConversion:
		record.Conversions = 1
		assignments["conversions"] = gorm.Expr("conversions + 1")
	default:
		record.Visits = 1
		assignments["visits"] = gorm.Expr("visits + 1")
	}

	// Single statement: insert the first row of the day or bump the counter
	// in place. The increment happens inside the storage engine, so identical
	// concurrent keys serialize there instead of racing a read-modify-write.
	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "page_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(assignments),
	}).Create(&record).Error; err != nil {
		return err
	}

	// Existence is verified after the write. A page deleted mid-flight has
	// already had its counter rows swept by the delete cascade, so the row
	// this call just wrote must go too or it would be orphaned forever.
	var count int64
	if err := s.db.Model(&models.LandingPageModel{}).Where("id = ?", pageID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		if err := s.db.Delete(&models.AnalyticsRecordModel{}, "page_id = ?", pageID).Error; err != nil {
			return err
		}
		return ErrPageNotFound
	}
	return nil
}

// Query sums a page's counters over [startDay, endDay], both inclusive and in
// YYYY-MM-DD form; an empty bound is unbounded on that side. The stored date
// strings order lexicographically, so range comparison works on raw values.
func (s *Service) Query(pageID, startDay, endDay string) (*Summary, error) {
	tx := s.db.Model(&models.AnalyticsRecordModel{}).Where("page_id = ?", pageID)
	if startDay != "" {
		tx = tx.Where("date >= ?", startDay)
	}
	if endDay != "" {
		tx = tx.Where("date <= ?", endDay)
	}

	var rows []models.AnalyticsRecordModel
	if err := tx.Order("date ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	summary := &Summary{Daily: make([]DayStat, 0, len(rows))}
	for _, row := range rows {
		summary.Visits += row.Visits
		summary.Conversions += row.Conversions
		summary.Daily = append(summary.Daily, DayStat{
			Date:        row.Date,
			Visits:      row.Visits,
			Conversions: row.Conversions,
		})
	}
	if summary.Visits > 0 {
		summary.ConversionRate = float64(summary.Conversions) / float64(summary.Visits)
	}
	return summary, nil
}
