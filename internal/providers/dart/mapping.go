package dart

import (
	"strings"
	"time"

	"github.com/seenimoa/kospifeed/pkg/models"
	"github.com/seenimoa/kospifeed/pkg/utils"
)

// Map converts list rows into FILING events stamped in loc. Rows without
// a report name or receipt number are dropped.
func Map(items []ListItem, loc *time.Location) []models.Event {
	if loc == nil {
		loc = utils.KST
	}
	out := make([]models.Event, 0, len(items))
	for _, it := range items {
		title := utils.StripMarkup(it.ReportNm)
		rceptNo := strings.TrimSpace(it.RceptNo)
		if title == "" || rceptNo == "" {
			continue
		}
		out = append(out, models.Event{
			Type:        models.EventFiling,
			Symbol:      models.StringPtr(strings.TrimSpace(it.StockCode)),
			Title:       title,
			URL:         FilingURL(rceptNo),
			PublishedAt: publishedAt(it.RceptDt, loc),
			Tags:        utils.CompactList([]string{it.CorpName, it.CorpClass}, 0),
			Score:       models.FilingScore,
		})
	}
	return out
}

func publishedAt(rceptDt string, loc *time.Location) models.Timestamp {
	t, err := utils.ParseCompactDate(strings.TrimSpace(rceptDt), filingHour, loc)
	if err != nil {
		return models.Timestamp{}
	}
	return models.At(t)
}
