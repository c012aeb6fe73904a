package dto

import (
	"time"

	"angelamos-operations/pkg/studio"
)

type CalendarQuery struct {
	View       string `query:"view" validate:"omitempty,oneof=month week day"`
	Date       string `query:"date" validate:"omitempty,datetime=2006-01-02"`
	Action     string `query:"action" validate:"omitempty,oneof=prev next today"`
	AccountIds string `query:"account_ids"`
	Timezone   string `query:"tz"`
}

type CalendarRangeResponse struct {
	View      string   `json:"view"`
	Timezone  string   `json:"timezone"`
	Reference string   `json:"reference"`
	From      string   `json:"from"`
	To        string   `json:"to"`
	Days      []string `json:"days"`
}

type CalendarPostsResponse struct {
	CalendarRangeResponse
	Posts []studio.ScheduledPost            `json:"posts"`
	ByDay map[string][]studio.ScheduledPost `json:"by_day"`
}

// DateLayout is how calendar dates travel over HTTP.
const DateLayout = "2006-01-02"

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
