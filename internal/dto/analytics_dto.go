package dto

import "angelamos-operations/pkg/studio"

type AnalyticsQuery struct {
	Days     int    `query:"days" validate:"omitempty,min=1,max=365"`
	Platform string `query:"platform" validate:"omitempty,oneof=tiktok youtube instagram reddit linkedin twitter facebook pinterest bluesky threads google_business"`
	Limit    int    `query:"limit" validate:"omitempty,min=1,max=50"`
	Refresh  bool   `query:"refresh"`
}

type TopPostsResponse struct {
	PeriodDays int                    `json:"period_days"`
	Platform   string                 `json:"platform,omitempty"`
	Posts      []studio.PostAnalytics `json:"posts"`
}
