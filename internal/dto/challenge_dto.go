package dto

import "angelamos-operations/pkg/studio"

type ChallengeHistoryQuery struct {
	Page int `query:"page" validate:"omitempty,min=1"`
	Size int `query:"size" validate:"omitempty,min=1,max=50"`
}

type ChallengeStartRequest struct {
	StartDate   string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	ContentGoal int    `json:"content_goal" validate:"omitempty,min=1"`
	JobsGoal    int    `json:"jobs_goal" validate:"omitempty,min=1"`
}

type ChallengeLogRequest struct {
	LogDate          string `json:"log_date" validate:"omitempty,datetime=2006-01-02"`
	Tiktok           int    `json:"tiktok" validate:"min=0"`
	InstagramReels   int    `json:"instagram_reels" validate:"min=0"`
	YoutubeShorts    int    `json:"youtube_shorts" validate:"min=0"`
	Twitter          int    `json:"twitter" validate:"min=0"`
	Reddit           int    `json:"reddit" validate:"min=0"`
	LinkedinPersonal int    `json:"linkedin_personal" validate:"min=0"`
	LinkedinCompany  int    `json:"linkedin_company" validate:"min=0"`
	YoutubeFull      int    `json:"youtube_full" validate:"min=0"`
	Medium           int    `json:"medium" validate:"min=0"`
	JobsApplied      int    `json:"jobs_applied" validate:"min=0"`
}

func (r *ChallengeLogRequest) ToStudio() *studio.ChallengeLogCreate {
	return &studio.ChallengeLogCreate{
		LogDate: r.LogDate,
		ChallengeCounts: studio.ChallengeCounts{
			Tiktok:           r.Tiktok,
			InstagramReels:   r.InstagramReels,
			YoutubeShorts:    r.YoutubeShorts,
			Twitter:          r.Twitter,
			Reddit:           r.Reddit,
			LinkedinPersonal: r.LinkedinPersonal,
			LinkedinCompany:  r.LinkedinCompany,
			YoutubeFull:      r.YoutubeFull,
			Medium:           r.Medium,
			JobsApplied:      r.JobsApplied,
		},
	}
}

// ChallengeLogPatch changes only the counts it carries.
type ChallengeLogPatch struct {
	Tiktok           *int `json:"tiktok" validate:"omitempty,min=0"`
	InstagramReels   *int `json:"instagram_reels" validate:"omitempty,min=0"`
	YoutubeShorts    *int `json:"youtube_shorts" validate:"omitempty,min=0"`
	Twitter          *int `json:"twitter" validate:"omitempty,min=0"`
	Reddit           *int `json:"reddit" validate:"omitempty,min=0"`
	LinkedinPersonal *int `json:"linkedin_personal" validate:"omitempty,min=0"`
	LinkedinCompany  *int `json:"linkedin_company" validate:"omitempty,min=0"`
	YoutubeFull      *int `json:"youtube_full" validate:"omitempty,min=0"`
	Medium           *int `json:"medium" validate:"omitempty,min=0"`
	JobsApplied      *int `json:"jobs_applied" validate:"omitempty,min=0"`
}

func (p *ChallengeLogPatch) ToStudio() *studio.ChallengeLogUpdate {
	return &studio.ChallengeLogUpdate{
		Tiktok:           p.Tiktok,
		InstagramReels:   p.InstagramReels,
		YoutubeShorts:    p.YoutubeShorts,
		Twitter:          p.Twitter,
		Reddit:           p.Reddit,
		LinkedinPersonal: p.LinkedinPersonal,
		LinkedinCompany:  p.LinkedinCompany,
		YoutubeFull:      p.YoutubeFull,
		Medium:           p.Medium,
		JobsApplied:      p.JobsApplied,
	}
}
