package studio

import (
	"time"

	"github.com/google/uuid"
)

// Workflow modes as the content-studio API names them.
const (
	ModeGiveMeIdeas = "give_me_ideas"
	ModeIHaveIdea   = "i_have_idea"
)

// --- Stage 1: Ideas ---

type IdeasRequest struct {
	Mode          string `json:"mode"`
	Count         int    `json:"count"`
	TopicFocus    string `json:"topic_focus,omitempty"`
	RiskTolerance string `json:"risk_tolerance,omitempty"`
	VideoType     string `json:"video_type,omitempty"`
}

type Idea struct {
	Id                  int               `json:"id"`
	Topic               string            `json:"topic"`
	Category            string            `json:"category"`
	RiskLevel           string            `json:"risk_level"`
	Reasoning           map[string]string `json:"reasoning"`
	SuggestedHookStyle  string            `json:"suggested_hook_style"`
	ExampleHooks        []string          `json:"example_hooks"`
	EstimatedEngagement string            `json:"estimated_engagement"`
	VideoLengthTarget   string            `json:"video_length_target"`
	Format              string            `json:"format"`
	Note                string            `json:"note,omitempty"`
}

type IdeasResponse struct {
	SessionId             string              `json:"session_id"`
	Ideas                 []Idea              `json:"ideas"`
	ContentGapAnalysis    map[string][]string `json:"content_gap_analysis"`
	BalanceRecommendation map[string]any      `json:"balance_recommendation"`
}

// --- Stage 2: Hooks ---

// HooksRequest omits SessionId on the first call of an i_have_idea session;
// the API opens the session and returns its id.
type HooksRequest struct {
	SessionId          string `json:"session_id,omitempty"`
	Topic              string `json:"topic"`
	Category           string `json:"category,omitempty"`
	TargetLength       string `json:"target_length,omitempty"`
	Format             string `json:"format,omitempty"`
	CredibilitySignals string `json:"credibility_signals,omitempty"`
	TargetAudience     string `json:"target_audience,omitempty"`
	Count              int    `json:"count"`
}

// Hook is the three-part opening: what the viewer sees, reads and hears.
type Hook struct {
	Id                 int      `json:"id"`
	VisualHook         string   `json:"visual_hook"`
	TextHook           string   `json:"text_hook"`
	VerbalHook         string   `json:"verbal_hook"`
	WordCount          int      `json:"word_count"`
	HookFormulasUsed   []string `json:"hook_formulas_used"`
	CredibilitySignals []string `json:"credibility_signals"`
	FomoElements       []string `json:"fomo_elements"`
	CuriosityDrivers   []string `json:"curiosity_drivers"`
	EstimatedStopRate  string   `json:"estimated_stop_rate"`
	Reasoning          string   `json:"reasoning"`
}

type HooksResponse struct {
	GenerationId string         `json:"generation_id"`
	SessionId    string         `json:"session_id"`
	Hooks        []Hook         `json:"hooks"`
	HookAnalysis map[string]any `json:"hook_analysis"`
}

// --- Stage 3: Hook analysis ---

type HookAnalysisRequest struct {
	SessionId       string `json:"session_id"`
	GenerationId    string `json:"generation_id"`
	SelectedHookIds []int  `json:"selected_hook_ids"`
	Question        string `json:"question,omitempty"`
}

type HookAnalysis struct {
	HookId                int            `json:"hook_id"`
	Credibility           map[string]any `json:"credibility"`
	Curiosity             map[string]any `json:"curiosity"`
	Fomo                  map[string]any `json:"fomo"`
	Length                map[string]any `json:"length"`
	Authenticity          map[string]any `json:"authenticity"`
	Pros                  []string       `json:"pros"`
	Cons                  []string       `json:"cons"`
	RiskFactors           []string       `json:"risk_factors"`
	PerformancePrediction string         `json:"performance_prediction"`
}

type HookAnalysisResponse struct {
	GenerationId    string                  `json:"generation_id"`
	SessionId       string                  `json:"session_id"`
	Analysis        map[string]HookAnalysis `json:"analysis"`
	Recommendation  map[string]any          `json:"recommendation"`
	IfNoneFeelRight map[string]any          `json:"if_none_feel_right"`
}

// --- Stage 4: Script ---

type ScriptRequest struct {
	SessionId              string `json:"session_id"`
	ChosenHookId           int    `json:"chosen_hook_id"`
	VideoLength            int    `json:"video_length"`
	Topic                  string `json:"topic"`
	Format                 string `json:"format,omitempty"`
	CredibilityToEstablish string `json:"credibility_to_establish,omitempty"`
	CarterExpertise        string `json:"carter_expertise,omitempty"`
}

type ScriptSentence struct {
	SentenceNumber int      `json:"sentence_number"`
	Purpose        string   `json:"purpose"`
	Variations     []string `json:"variations"`
	Recommendation string   `json:"recommendation"`
}

type ScriptSection struct {
	Timestamp                  string           `json:"timestamp"`
	EnergyLevel                string           `json:"energy_level"`
	Sentences                  []ScriptSentence `json:"sentences"`
	PatternInterruptSuggestion string           `json:"pattern_interrupt_suggestion,omitempty"`
}

type Script struct {
	Sections          []ScriptSection `json:"sections"`
	TotalSentences    int             `json:"total_sentences,omitempty"`
	EstimatedDuration string          `json:"estimated_duration,omitempty"`
}

// Sentences flattens the sections in reading order.
func (s Script) Sentences() []ScriptSentence {
	out := make([]ScriptSentence, 0)
	for _, section := range s.Sections {
		out = append(out, section.Sentences...)
	}
	return out
}

type ScriptResponse struct {
	GenerationId        string         `json:"generation_id"`
	SessionId           string         `json:"session_id"`
	Script              Script         `json:"script"`
	FullScriptAssembled map[string]any `json:"full_script_assembled"`
	PacingNotes         map[string]any `json:"pacing_notes"`
	AiDetectionCheck    map[string]any `json:"ai_detection_check"`
}

// --- Stage 5: Script analysis ---

type ScriptAnalysisRequest struct {
	SessionId        string      `json:"session_id"`
	ChosenVariations map[int]int `json:"chosen_variations"`
	Questions        []string    `json:"questions,omitempty"`
}

type SentenceFeedback struct {
	YourChoice            string `json:"your_choice"`
	Assessment            string `json:"assessment"`
	WhyItWorks            string `json:"why_it_works"`
	AlternativeSuggestion string `json:"alternative_suggestion,omitempty"`
	KeepOrSwap            string `json:"keep_or_swap"`
}

type ScriptAnalysisResponse struct {
	GenerationId               string                      `json:"generation_id"`
	SessionId                  string                      `json:"session_id"`
	OverallAssessment          map[string]any              `json:"overall_assessment"`
	SentenceBySentenceFeedback map[string]SentenceFeedback `json:"sentence_by_sentence_feedback"`
	FlowAnalysis               map[string]any              `json:"flow_analysis"`
	RetentionPrediction        map[string]any              `json:"retention_prediction"`
	EngagementPrediction       map[string]any              `json:"engagement_prediction"`
	RecommendedChangesSummary  map[string]any              `json:"recommended_changes_summary"`
	FinalRecommendation        map[string]any              `json:"final_recommendation"`
}

// --- Stage 6: Final review ---

type FinalReviewRequest struct {
	SessionId       string            `json:"session_id"`
	FinalizedScript string            `json:"finalized_script"`
	ChosenHook      map[string]string `json:"chosen_hook"`
	TargetLength    int               `json:"target_length"`
	Format          string            `json:"format"`
}

type FinalReviewResponse struct {
	GenerationId           string         `json:"generation_id"`
	SessionId              string         `json:"session_id"`
	FinalChecks            map[string]any `json:"final_checks"`
	RecordingNotes         map[string]any `json:"recording_notes"`
	PerformancePrediction  map[string]any `json:"performance_prediction"`
	ComparisonToPastVideos map[string]any `json:"comparison_to_past_videos"`
	GoNoGoDecision         map[string]any `json:"go_no_go_decision"`
}

// Decision returns the GO / NO-GO verdict, or "" when the API left it out.
func (r FinalReviewResponse) Decision() string {
	if r.GoNoGoDecision == nil {
		return ""
	}
	d, _ := r.GoNoGoDecision["decision"].(string)
	return d
}

// --- Scheduler ---

type ScheduledPostContent struct {
	Id          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	ContentType string    `json:"content_type"`
}

type ScheduledPostAccount struct {
	Id               uuid.UUID `json:"id"`
	Platform         string    `json:"platform"`
	PlatformUsername string    `json:"platform_username"`
}

type ScheduledPost struct {
	Id                   uuid.UUID             `json:"id"`
	ContentLibraryItemId uuid.UUID             `json:"content_library_item_id"`
	ConnectedAccountId   uuid.UUID             `json:"connected_account_id"`
	Platform             string                `json:"platform"`
	ScheduledFor         time.Time             `json:"scheduled_for"`
	Timezone             string                `json:"timezone"`
	Status               string                `json:"status"`
	ScheduleMode         string                `json:"schedule_mode"`
	BatchId              *string               `json:"batch_id"`
	PlatformPostUrl      *string               `json:"platform_post_url"`
	PublishedAt          *time.Time            `json:"published_at"`
	ErrorMessage         *string               `json:"error_message"`
	RetryCount           int                   `json:"retry_count"`
	CreatedAt            time.Time             `json:"created_at"`
	Content              *ScheduledPostContent `json:"content"`
	Account              *ScheduledPostAccount `json:"account"`
}

type ConnectedAccount struct {
	Id                  uuid.UUID  `json:"id"`
	LateAccountId       string     `json:"late_account_id"`
	Platform            string     `json:"platform"`
	PlatformUsername    string     `json:"platform_username"`
	PlatformDisplayName *string    `json:"platform_display_name"`
	ProfileImageUrl     *string    `json:"profile_image_url"`
	FollowersCount      *int       `json:"followers_count"`
	IsActive            bool       `json:"is_active"`
	ConnectedAt         time.Time  `json:"connected_at"`
	LastSyncAt          *time.Time `json:"last_sync_at"`
}

// --- Planner ---

type NoteFolder struct {
	Id        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	ParentId  *uuid.UUID `json:"parent_id"`
	SortOrder int        `json:"sort_order"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

type Note struct {
	Id        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	FolderId  *uuid.UUID `json:"folder_id"`
	SortOrder int        `json:"sort_order"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

type NotesList struct {
	Folders []NoteFolder `json:"folders"`
	Notes   []Note       `json:"notes"`
}

// --- Analytics ---

type AnalyticsOverview struct {
	PeriodDays               int            `json:"period_days"`
	PostMetrics              map[string]any `json:"post_metrics"`
	TotalFollowersByPlatform map[string]int `json:"total_followers_by_platform"`
	PostsByPlatform          map[string]int `json:"posts_by_platform"`
	PostsByStatus            map[string]int `json:"posts_by_status"`
}

type BestTimeSlot struct {
	DayName       string  `json:"day_name"`
	Hour          int     `json:"hour"`
	AvgEngagement float64 `json:"avg_engagement"`
	PostCount     int     `json:"post_count"`
}

type BestTimes struct {
	Heatmap  map[string]any `json:"heatmap"`
	TopTimes []BestTimeSlot `json:"top_times"`
}

type PostAnalytics struct {
	Id                 uuid.UUID `json:"id"`
	ScheduledPostId    uuid.UUID `json:"scheduled_post_id"`
	Platform           string    `json:"platform"`
	Views              int       `json:"views"`
	Likes              int       `json:"likes"`
	Comments           int       `json:"comments"`
	Shares             int       `json:"shares"`
	Saves              int       `json:"saves"`
	Clicks             int       `json:"clicks"`
	Impressions        int       `json:"impressions"`
	Reach              int       `json:"reach"`
	EngagementRate     float64   `json:"engagement_rate"`
	WatchTimeSeconds   *float64  `json:"watch_time_seconds"`
	AvgWatchPercentage *float64  `json:"avg_watch_percentage"`
	SyncedAt           time.Time `json:"synced_at"`
}

// --- Challenge tracker ---

// ChallengeCounts are the per-day tallies a log entry records.
type ChallengeCounts struct {
	Tiktok           int `json:"tiktok"`
	InstagramReels   int `json:"instagram_reels"`
	YoutubeShorts    int `json:"youtube_shorts"`
	Twitter          int `json:"twitter"`
	Reddit           int `json:"reddit"`
	LinkedinPersonal int `json:"linkedin_personal"`
	LinkedinCompany  int `json:"linkedin_company"`
	YoutubeFull      int `json:"youtube_full"`
	Medium           int `json:"medium"`
	JobsApplied      int `json:"jobs_applied"`
}

// Content sums every content platform; job applications are not content.
func (c ChallengeCounts) Content() int {
	return c.Tiktok + c.InstagramReels + c.YoutubeShorts + c.Twitter + c.Reddit +
		c.LinkedinPersonal + c.LinkedinCompany + c.YoutubeFull + c.Medium
}

type ChallengeLog struct {
	ChallengeCounts
	Id           uuid.UUID  `json:"id"`
	ChallengeId  uuid.UUID  `json:"challenge_id"`
	LogDate      string     `json:"log_date"`
	DayNumber    int        `json:"day_number"`
	TotalContent int        `json:"total_content"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at"`
}

type Challenge struct {
	Id          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	StartDate   string     `json:"start_date"`
	EndDate     string     `json:"end_date"`
	IsActive    bool       `json:"is_active"`
	ContentGoal int        `json:"content_goal"`
	JobsGoal    int        `json:"jobs_goal"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

type ChallengeWithStats struct {
	Challenge
	TotalContent      int            `json:"total_content"`
	TotalJobs         int            `json:"total_jobs"`
	CurrentDay        int            `json:"current_day"`
	Logs              []ChallengeLog `json:"logs"`
	ContentPercentage float64        `json:"content_percentage"`
	JobsPercentage    float64        `json:"jobs_percentage"`
}

type ChallengeHistory struct {
	Items []Challenge `json:"items"`
	Total int         `json:"total"`
}

type ChallengeStart struct {
	StartDate   string `json:"start_date,omitempty"`
	ContentGoal int    `json:"content_goal,omitempty"`
	JobsGoal    int    `json:"jobs_goal,omitempty"`
}

type ChallengeLogCreate struct {
	ChallengeCounts
	LogDate string `json:"log_date,omitempty"`
}

// ChallengeLogUpdate leaves nil counts untouched upstream.
type ChallengeLogUpdate struct {
	Tiktok           *int `json:"tiktok,omitempty"`
	InstagramReels   *int `json:"instagram_reels,omitempty"`
	YoutubeShorts    *int `json:"youtube_shorts,omitempty"`
	Twitter          *int `json:"twitter,omitempty"`
	Reddit           *int `json:"reddit,omitempty"`
	LinkedinPersonal *int `json:"linkedin_personal,omitempty"`
	LinkedinCompany  *int `json:"linkedin_company,omitempty"`
	YoutubeFull      *int `json:"youtube_full,omitempty"`
	Medium           *int `json:"medium,omitempty"`
	JobsApplied      *int `json:"jobs_applied,omitempty"`
}
