package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/go-querystring/query"
)

// UserAnalyticsOptions filters GET /api/analytics/user.
type UserAnalyticsOptions struct {
	IncludeDetailed bool `url:"include_detailed,omitempty"`
	Days            int  `url:"days,omitempty"`
}

// UserAnalytics is the account-wide submission summary.
type UserAnalytics struct {
	UserID                string  `json:"user_id"`
	Email                 string  `json:"email"`
	GeneratedAt           string  `json:"generated_at"`
	CampaignsCount        int     `json:"campaigns_count"`
	WebsitesCount         int     `json:"websites_count"`
	ActiveCampaigns       int     `json:"active_campaigns"`
	TotalSubmissions      int     `json:"total_submissions"`
	SuccessfulSubmissions int     `json:"successful_submissions"`
	FailedSubmissions     int     `json:"failed_submissions"`
	CaptchaSubmissions    int     `json:"captcha_submissions"`
	CaptchaSolved         int     `json:"captcha_solved"`
	EmailsExtracted       int     `json:"emails_extracted"`
	AvgRetryCount         float64 `json:"avg_retry_count"`
	SuccessRate           float64 `json:"success_rate"`
	CaptchaEncounterRate  float64 `json:"captcha_encounter_rate"`
	CaptchaSuccessRate    float64 `json:"captcha_success_rate"`
}

// UserAnalytics fetches the account-wide submission summary.
func (c *Client) UserAnalytics(ctx context.Context, opts UserAnalyticsOptions) (*UserAnalytics, error) {
	params, err := query.Values(opts)
	if err != nil {
		return nil, fmt.Errorf("encoding analytics options: %w", err)
	}

	body, err := c.doRequest(ctx, http.MethodGet, "/api/analytics/user", params, nil)
	if err != nil {
		return nil, err
	}

	var analytics UserAnalytics
	if err := json.Unmarshal(body, &analytics); err != nil {
		return nil, fmt.Errorf("parsing user analytics response: %w", err)
	}
	return &analytics, nil
}

// PerformanceOptions filters GET /api/analytics/performance.
type PerformanceOptions struct {
	Limit     int `url:"limit,omitempty"`
	TimeRange int `url:"time_range,omitempty"`
}

// CampaignPerformance is one campaign's row in the performance report.
type CampaignPerformance struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Status         string  `json:"status"`
	TotalURLs      int     `json:"total_urls"`
	TotalWebsites  int     `json:"total_websites"`
	Processed      int     `json:"processed"`
	Successful     int     `json:"successful"`
	Failed         int     `json:"failed"`
	ProcessingRate float64 `json:"processing_rate"`
	SuccessRate    float64 `json:"success_rate"`
	CreatedAt      string  `json:"created_at"`
}

// Performance is the campaign performance report.
type Performance struct {
	TimeRangeDays int                   `json:"time_range_days"`
	Limit         int                   `json:"limit"`
	Campaigns     []CampaignPerformance `json:"campaigns"`
	Summary       struct {
		TotalCampaigns         int     `json:"total_campaigns"`
		ActiveCampaigns        int     `json:"active_campaigns"`
		AvgCampaignSuccessRate float64 `json:"avg_campaign_success_rate"`
	} `json:"summary"`
	GeneratedAt string `json:"generated_at"`
}

// Performance fetches per-campaign performance over a time range.
func (c *Client) Performance(ctx context.Context, opts PerformanceOptions) (*Performance, error) {
	params, err := query.Values(opts)
	if err != nil {
		return nil, fmt.Errorf("encoding performance options: %w", err)
	}

	body, err := c.doRequest(ctx, http.MethodGet, "/api/analytics/performance", params, nil)
	if err != nil {
		return nil, err
	}

	var perf Performance
	if err := json.Unmarshal(body, &perf); err != nil {
		return nil, fmt.Errorf("parsing performance response: %w", err)
	}
	return &perf, nil
}

// DailyStatsOptions filters GET /api/analytics/daily-stats.
type DailyStatsOptions struct {
	Days          int    `url:"days,omitempty"`
	CampaignID    string `url:"campaign_id,omitempty"`
	IncludeTrends bool   `url:"include_trends,omitempty"`
}

// DailyStat is one day's submission counts.
type DailyStat struct {
	Day                string  `json:"day"`
	Total              int     `json:"total"`
	Success            int     `json:"success"`
	Failed             int     `json:"failed"`
	CaptchaEncountered int     `json:"captcha_encountered"`
	CaptchaSolved      int     `json:"captcha_solved"`
	AvgRetries         float64 `json:"avg_retries"`
	SuccessRate        float64 `json:"success_rate"`
}

// DailyStats is the day-by-day submission series.
type DailyStats struct {
	Days           int         `json:"days"`
	CampaignFilter string      `json:"campaign_filter"`
	Series         []DailyStat `json:"series"`
	Summary        struct {
		TotalSubmissions    int     `json:"total_submissions"`
		TotalSuccess        int     `json:"total_success"`
		TotalFailed         int     `json:"total_failed"`
		OverallSuccessRate  float64 `json:"overall_success_rate"`
		AvgDailySubmissions float64 `json:"avg_daily_submissions"`
		ActiveDays          int     `json:"active_days"`
		DataPoints          int     `json:"data_points"`
	} `json:"summary"`
	GeneratedAt string `json:"generated_at"`
}

// DailyStats fetches the day-by-day submission series.
func (c *Client) DailyStats(ctx context.Context, opts DailyStatsOptions) (*DailyStats, error) {
	params, err := query.Values(opts)
	if err != nil {
		return nil, fmt.Errorf("encoding daily stats options: %w", err)
	}

	body, err := c.doRequest(ctx, http.MethodGet, "/api/analytics/daily-stats", params, nil)
	if err != nil {
		return nil, err
	}

	var stats DailyStats
	if err := json.Unmarshal(body, &stats); err != nil {
		return nil, fmt.Errorf("parsing daily stats response: %w", err)
	}
	return &stats, nil
}

// RevenueOptions filters GET /api/analytics/revenue.
type RevenueOptions struct {
	Days int `url:"days,omitempty"`
}

// Revenue is the submission-based revenue summary.
type Revenue struct {
	PricePerSubmission    float64 `json:"price_per_submission"`
	TotalRevenue          float64 `json:"total_revenue"`
	SuccessfulSubmissions int     `json:"successful_submissions"`
}

// Revenue fetches the revenue summary derived from successful submissions.
func (c *Client) Revenue(ctx context.Context, opts RevenueOptions) (*Revenue, error) {
	params, err := query.Values(opts)
	if err != nil {
		return nil, fmt.Errorf("encoding revenue options: %w", err)
	}

	body, err := c.doRequest(ctx, http.MethodGet, "/api/analytics/revenue", params, nil)
	if err != nil {
		return nil, err
	}

	var revenue Revenue
	if err := json.Unmarshal(body, &revenue); err != nil {
		return nil, fmt.Errorf("parsing revenue response: %w", err)
	}
	return &revenue, nil
}

// QuickStats is the lightweight header summary from the dashboard API.
type QuickStats struct {
	ActiveCampaigns    int `json:"active_campaigns"`
	PendingSubmissions int `json:"pending_submissions"`
	TodaysSubmissions  int `json:"todays_submissions"`
}

// QuickStats fetches the lightweight counters shown in the console header.
func (c *Client) QuickStats(ctx context.Context) (*QuickStats, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/api/dashboard/quick-stats", nil, nil)
	if err != nil {
		return nil, err
	}

	var stats QuickStats
	if err := json.Unmarshal(body, &stats); err != nil {
		return nil, fmt.Errorf("parsing quick stats response: %w", err)
	}
	return &stats, nil
}

// RecentCampaigns fetches the most recently created campaigns.
func (c *Client) RecentCampaigns(ctx context.Context, limit int) ([]Campaign, error) {
	params, err := query.Values(struct {
		Limit int `url:"limit,omitempty"`
	}{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("encoding recent campaigns options: %w", err)
	}

	body, err := c.doRequest(ctx, http.MethodGet, "/api/dashboard/recent-campaigns", params, nil)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Campaigns []Campaign `json:"campaigns"`
		Count     int        `json:"count"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("parsing recent campaigns response: %w", err)
	}
	return envelope.Campaigns, nil
}
