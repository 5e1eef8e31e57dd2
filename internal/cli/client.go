package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"indgames/internal/game"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/api/health", "", nil, &out)
	return out, err
}

func (c *Client) Chapters(ctx context.Context) ([]game.ChapterView, error) {
	var out struct {
		Chapters []game.ChapterView `json:"chapters"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/api/chapters", "", nil, &out)
	return out.Chapters, err
}

func (c *Client) ChapterMembers(ctx context.Context, chapterID int64) ([]game.MemberView, error) {
	var out struct {
		Members []game.MemberView `json:"members"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, fmt.Sprintf("/api/chapters/%d/members", chapterID), "", nil, &out)
	return out.Members, err
}

func (c *Client) Leaderboard(ctx context.Context) (game.Leaderboard, error) {
	var out game.Leaderboard
	err := c.jsonRequest(ctx, http.MethodGet, "/api/scoring/leaderboard", "", nil, &out)
	return out, err
}

func (c *Client) MemberDetail(ctx context.Context, memberID int64) (game.MemberDetail, error) {
	var out game.MemberDetail
	err := c.jsonRequest(ctx, http.MethodGet, fmt.Sprintf("/api/scoring/individual/%d", memberID), "", nil, &out)
	return out, err
}

func (c *Client) SubmitWeekly(ctx context.Context, token string, in game.WeeklySubmission) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/api/scoring/weekly", token, in, &out)
	return out, err
}

func (c *Client) UpdateGameMetrics(ctx context.Context, token string, in game.GameMetricsInput) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/api/metrics/game", token, in, &out)
	return out, err
}

func (c *Client) SheetSync(ctx context.Context, token string) (game.SheetSyncResult, error) {
	var out game.SheetSyncResult
	err := c.jsonRequest(ctx, http.MethodPost, "/api/sheets/sync", token, map[string]any{}, &out)
	return out, err
}

func (c *Client) AuditLogs(ctx context.Context, token string, page, limit int) (game.AuditPage, error) {
	var out game.AuditPage
	path := fmt.Sprintf("/api/audit/logs?page=%d&limit=%d", page, limit)
	err := c.jsonRequest(ctx, http.MethodGet, path, token, nil, &out)
	return out, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path, token string, in any, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
