package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/go-querystring/query"
)

// Campaigns lists the account's campaigns, newest first. The backend
// returns a bare array, not an envelope.
func (c *Client) Campaigns(ctx context.Context, opts ListOptions) ([]Campaign, error) {
	params, err := query.Values(opts)
	if err != nil {
		return nil, fmt.Errorf("encoding list options: %w", err)
	}

	body, err := c.doRequest(ctx, http.MethodGet, "/api/campaigns", params, nil)
	if err != nil {
		return nil, err
	}

	var campaigns []Campaign
	if err := json.Unmarshal(body, &campaigns); err != nil {
		return nil, fmt.Errorf("parsing campaigns response: %w", err)
	}
	return campaigns, nil
}

// Campaign fetches one campaign by ID.
func (c *Client) Campaign(ctx context.Context, id string) (*Campaign, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/api/campaigns/"+id, nil, nil)
	if err != nil {
		return nil, err
	}

	var campaign Campaign
	if err := json.Unmarshal(body, &campaign); err != nil {
		return nil, fmt.Errorf("parsing campaign response: %w", err)
	}
	return &campaign, nil
}

// CampaignStatus fetches the live progress snapshot for a campaign. The
// polling mode of the live status channel calls this every interval.
func (c *Client) CampaignStatus(ctx context.Context, id string) (*CampaignStatus, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/api/campaigns/"+id+"/status", nil, nil)
	if err != nil {
		return nil, err
	}

	var status CampaignStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("parsing campaign status response: %w", err)
	}
	return &status, nil
}

// StartCampaign uploads a CSV of target sites and launches processing.
// The backend parses the CSV, creates submissions and starts automation
// in one call; the result reports how the CSV parsed and whether the
// processor actually started.
func (c *Client) StartCampaign(ctx context.Context, req StartCampaignRequest) (*StartCampaignResult, error) {
	fields := map[string]string{
		"name":    req.Name,
		"message": req.Message,
	}
	if req.Proxy != "" {
		fields["proxy"] = req.Proxy
	}
	if req.UseCaptcha {
		fields["use_captcha"] = "true"
	}
	if req.Settings != "" {
		fields["settings"] = req.Settings
	}

	body, err := c.doMultipart(ctx, "/api/campaigns/start", fields, "file", req.Filename, req.CSV)
	if err != nil {
		return nil, err
	}

	var result StartCampaignResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parsing start response: %w", err)
	}
	return &result, nil
}

// DeleteCampaign removes a campaign and its submissions. The backend
// refuses to delete a running campaign (400).
func (c *Client) DeleteCampaign(ctx context.Context, id string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, "/api/campaigns/"+id, nil, nil)
	return err
}
