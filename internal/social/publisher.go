package social

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"stekfinder-autopilot/internal/logger"
	"stekfinder-autopilot/models"
)

const defaultGraphAPI = "https://graph.facebook.com/v19.0"

// Publisher posts content to Facebook pages and Instagram business accounts
// through the Meta Graph API. Each platform's failure is isolated; one
// platform erroring never blocks the attempt on the other.
type Publisher struct {
	httpClient *http.Client
	baseURL    string

	// Instagram media containers are polled until processed instead of
	// relying on a fixed settle delay.
	containerPollInterval time.Duration
	containerPollMax      int

	sleep func(time.Duration)
}

// NewPublisher creates a publisher against the production Graph API.
func NewPublisher() *Publisher {
	return &Publisher{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:               defaultGraphAPI,
		containerPollInterval: 2 * time.Second,
		containerPollMax:      10,
		sleep:                 time.Sleep,
	}
}

// Publish delivers text (+optional image) to the platforms selected by
// platform and configured in cfg. The result always carries both per-platform
// ids (empty if not attempted or failed) and the collected errors.
func (p *Publisher) Publish(ctx context.Context, cfg models.SocialConfig, text, imageURL string, platform models.Platform) models.PublishResult {
	var result models.PublishResult

	if platform.TargetsFacebook() && cfg.FacebookConfigured() {
		id, err := p.postToFacebook(ctx, cfg.FacebookPageID, cfg.FacebookAccessToken, text, imageURL)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Facebook: %v", err))
		} else {
			result.FacebookID = id
		}
	}

	if platform.TargetsInstagram() && cfg.InstagramConfigured() {
		// Instagram reuses the Facebook access token via Meta.
		id, err := p.postToInstagram(ctx, cfg.InstagramAccountID, cfg.FacebookAccessToken, text, imageURL)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Instagram: %v", err))
		} else {
			result.InstagramID = id
		}
	}

	return result
}

// postToFacebook publishes to a page feed, or as a photo when an image is
// available.
func (p *Publisher) postToFacebook(ctx context.Context, pageID, accessToken, text, imageURL string) (string, error) {
	var path string
	var payload map[string]string

	if imageURL != "" {
		path = fmt.Sprintf("/%s/photos", url.PathEscape(pageID))
		payload = map[string]string{
			"url":          imageURL,
			"caption":      text,
			"access_token": accessToken,
		}
	} else {
		path = fmt.Sprintf("/%s/feed", url.PathEscape(pageID))
		payload = map[string]string{
			"message":      text,
			"access_token": accessToken,
		}
	}

	resp, err := p.graphPost(ctx, path, payload)
	if err != nil {
		return "", err
	}

	// Photo posts return post_id alongside the photo id.
	if resp.PostID != "" {
		return resp.PostID, nil
	}
	if resp.ID == "" {
		return "", fmt.Errorf("no post id in response")
	}
	return resp.ID, nil
}

// postToInstagram runs the two-phase container flow: create a media
// container, wait for Meta to process it, then publish. Instagram has no
// text-only posts, so a missing image is a hard error for this platform.
func (p *Publisher) postToInstagram(ctx context.Context, accountID, accessToken, text, imageURL string) (string, error) {
	if imageURL == "" {
		return "", fmt.Errorf("afbeelding vereist")
	}

	container, err := p.graphPost(ctx, fmt.Sprintf("/%s/media", url.PathEscape(accountID)), map[string]string{
		"image_url":    imageURL,
		"caption":      text,
		"access_token": accessToken,
	})
	if err != nil {
		return "", fmt.Errorf("container: %w", err)
	}
	if container.ID == "" {
		return "", fmt.Errorf("container: no id in response")
	}

	if err := p.waitForContainer(ctx, container.ID, accessToken); err != nil {
		return "", err
	}

	published, err := p.graphPost(ctx, fmt.Sprintf("/%s/media_publish", url.PathEscape(accountID)), map[string]string{
		"creation_id":  container.ID,
		"access_token": accessToken,
	})
	if err != nil {
		return "", fmt.Errorf("publish: %w", err)
	}
	if published.ID == "" {
		return "", fmt.Errorf("publish: no id in response")
	}
	return published.ID, nil
}

// waitForContainer polls the container's status_code until FINISHED, with a
// bounded number of attempts. ERROR or exhausting the attempts fails the
// Instagram side of the publish.
func (p *Publisher) waitForContainer(ctx context.Context, containerID, accessToken string) error {
	for attempt := 0; attempt < p.containerPollMax; attempt++ {
		status, err := p.graphGet(ctx, fmt.Sprintf("/%s?fields=status_code&access_token=%s",
			url.PathEscape(containerID), url.QueryEscape(accessToken)))
		if err != nil {
			return fmt.Errorf("container status: %w", err)
		}

		switch status.StatusCode {
		case "FINISHED":
			return nil
		case "ERROR", "EXPIRED":
			return fmt.Errorf("container processing failed: %s", status.StatusCode)
		}

		logger.Debug("instagram container not ready", "container_id", containerID, "status", status.StatusCode, "attempt", attempt+1)

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			p.sleep(p.containerPollInterval)
		}
	}
	return fmt.Errorf("container not ready after %d attempts", p.containerPollMax)
}

type graphResponse struct {
	ID         string      `json:"id"`
	PostID     string      `json:"post_id"`
	StatusCode string      `json:"status_code"`
	Error      *graphError `json:"error"`
}

type graphError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

func (p *Publisher) graphPost(ctx context.Context, path string, payload map[string]string) (*graphResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return p.doGraph(req)
}

func (p *Publisher) graphGet(ctx context.Context, pathAndQuery string) (*graphResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+pathAndQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return p.doGraph(req)
}

func (p *Publisher) doGraph(req *http.Request) (*graphResponse, error) {
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var graph graphResponse
	if err := json.Unmarshal(body, &graph); err != nil {
		return nil, fmt.Errorf("unmarshal response (status %d): %w", resp.StatusCode, err)
	}
	if graph.Error != nil {
		return nil, fmt.Errorf("%s (code %d)", graph.Error.Message, graph.Error.Code)
	}
	return &graph, nil
}
