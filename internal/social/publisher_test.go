package social

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stekfinder-autopilot/models"
)

func testPublisher(baseURL string) *Publisher {
	return &Publisher{
		httpClient:            &http.Client{Timeout: 5 * time.Second},
		baseURL:               baseURL,
		containerPollInterval: time.Millisecond,
		containerPollMax:      3,
		sleep:                 func(time.Duration) {},
	}
}

func fullConfig() models.SocialConfig {
	return models.SocialConfig{
		FacebookPageID:      "page1",
		FacebookAccessToken: "token1",
		InstagramAccountID:  "ig1",
	}
}

// graphStub records requests and serves canned Graph API responses per path.
type graphStub struct {
	t        *testing.T
	requests []string
	handlers map[string]func(body map[string]string) (int, any)
}

func newGraphStub(t *testing.T) *graphStub {
	return &graphStub{t: t, handlers: map[string]func(map[string]string) (int, any){}}
}

func (g *graphStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.requests = append(g.requests, r.Method+" "+r.URL.Path)

	var body map[string]string
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&body)
	}

	handler, ok := g.handlers[r.URL.Path]
	if !ok {
		g.t.Errorf("unexpected graph call: %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "unknown path", "code": 404}})
		return
	}

	status, resp := handler(body)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func TestPublishFacebookFeedWithoutImage(t *testing.T) {
	stub := newGraphStub(t)
	stub.handlers["/page1/feed"] = func(body map[string]string) (int, any) {
		if body["message"] != "hallo stekkies" {
			t.Errorf("feed message = %q", body["message"])
		}
		if body["access_token"] != "token1" {
			t.Errorf("missing access token")
		}
		return http.StatusOK, map[string]string{"id": "page1_111"}
	}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	p := testPublisher(srv.URL)
	result := p.Publish(context.Background(), fullConfig(), "hallo stekkies", "", models.PlatformFacebook)

	if result.FacebookID != "page1_111" {
		t.Errorf("facebook id = %q", result.FacebookID)
	}
	if len(result.Errors) != 0 {
		t.Errorf("unexpected errors: %v", result.Errors)
	}
}

func TestPublishFacebookPhotoWithImage(t *testing.T) {
	stub := newGraphStub(t)
	stub.handlers["/page1/photos"] = func(body map[string]string) (int, any) {
		if body["url"] != "https://img.example/1.jpg" {
			t.Errorf("photo url = %q", body["url"])
		}
		if body["caption"] != "mooie vangst" {
			t.Errorf("caption = %q", body["caption"])
		}
		return http.StatusOK, map[string]string{"id": "photo9", "post_id": "page1_222"}
	}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	p := testPublisher(srv.URL)
	result := p.Publish(context.Background(), fullConfig(), "mooie vangst", "https://img.example/1.jpg", models.PlatformFacebook)

	if result.FacebookID != "page1_222" {
		t.Errorf("facebook id = %q, want the post_id", result.FacebookID)
	}
}

func TestPublishInstagramTwoPhase(t *testing.T) {
	polls := 0
	stub := newGraphStub(t)
	stub.handlers["/ig1/media"] = func(body map[string]string) (int, any) {
		if body["image_url"] == "" || body["caption"] == "" {
			t.Error("container request missing image or caption")
		}
		return http.StatusOK, map[string]string{"id": "container5"}
	}
	stub.handlers["/container5"] = func(map[string]string) (int, any) {
		polls++
		if polls < 2 {
			return http.StatusOK, map[string]string{"status_code": "IN_PROGRESS"}
		}
		return http.StatusOK, map[string]string{"status_code": "FINISHED"}
	}
	stub.handlers["/ig1/media_publish"] = func(body map[string]string) (int, any) {
		if body["creation_id"] != "container5" {
			t.Errorf("creation_id = %q", body["creation_id"])
		}
		return http.StatusOK, map[string]string{"id": "ig_333"}
	}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	p := testPublisher(srv.URL)
	result := p.Publish(context.Background(), fullConfig(), "caption", "https://img.example/2.jpg", models.PlatformInstagram)

	if result.InstagramID != "ig_333" {
		t.Errorf("instagram id = %q, errors = %v", result.InstagramID, result.Errors)
	}
	if polls != 2 {
		t.Errorf("expected container polled until ready, polls = %d", polls)
	}
}

func TestPublishInstagramRequiresImage(t *testing.T) {
	stub := newGraphStub(t)
	srv := httptest.NewServer(stub)
	defer srv.Close()

	p := testPublisher(srv.URL)
	result := p.Publish(context.Background(), fullConfig(), "tekst", "", models.PlatformInstagram)

	if result.InstagramID != "" {
		t.Error("no instagram id expected")
	}
	if len(result.Errors) != 1 || !strings.HasPrefix(result.Errors[0], "Instagram:") {
		t.Errorf("errors = %v", result.Errors)
	}
	if len(stub.requests) != 0 {
		t.Errorf("no graph call expected without image, got %v", stub.requests)
	}
}

func TestPublishInstagramContainerError(t *testing.T) {
	stub := newGraphStub(t)
	stub.handlers["/ig1/media"] = func(map[string]string) (int, any) {
		return http.StatusOK, map[string]string{"id": "container6"}
	}
	stub.handlers["/container6"] = func(map[string]string) (int, any) {
		return http.StatusOK, map[string]string{"status_code": "ERROR"}
	}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	p := testPublisher(srv.URL)
	result := p.Publish(context.Background(), fullConfig(), "caption", "https://img.example/3.jpg", models.PlatformInstagram)

	if result.InstagramID != "" {
		t.Error("failed container should produce no id")
	}
	if len(result.Errors) != 1 {
		t.Fatalf("errors = %v", result.Errors)
	}
	for _, req := range stub.requests {
		if strings.Contains(req, "media_publish") {
			t.Error("publish must not run after container failure")
		}
	}
}

func TestPublishPlatformFailuresAreIsolated(t *testing.T) {
	stub := newGraphStub(t)
	stub.handlers["/page1/feed"] = func(map[string]string) (int, any) {
		return http.StatusBadRequest, map[string]any{"error": map[string]any{"message": "Invalid OAuth access token", "code": 190}}
	}
	stub.handlers["/ig1/media"] = func(map[string]string) (int, any) {
		return http.StatusOK, map[string]string{"id": "container7"}
	}
	stub.handlers["/container7"] = func(map[string]string) (int, any) {
		return http.StatusOK, map[string]string{"status_code": "FINISHED"}
	}
	stub.handlers["/ig1/media_publish"] = func(map[string]string) (int, any) {
		return http.StatusOK, map[string]string{"id": "ig_444"}
	}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	p := testPublisher(srv.URL)
	result := p.Publish(context.Background(), fullConfig(), "caption", "https://img.example/4.jpg", models.PlatformBoth)

	if result.FacebookID != "" {
		t.Error("facebook attempt should have failed")
	}
	if result.InstagramID != "ig_444" {
		t.Errorf("instagram should succeed despite facebook failure, got %q (errors %v)", result.InstagramID, result.Errors)
	}
	if len(result.Errors) != 1 || !strings.HasPrefix(result.Errors[0], "Facebook:") {
		t.Errorf("errors = %v", result.Errors)
	}
	if result.Outcome() != models.StatusPosted {
		t.Error("one platform id must classify as posted")
	}
}

func TestPublishSkipsUnconfiguredPlatforms(t *testing.T) {
	stub := newGraphStub(t)
	srv := httptest.NewServer(stub)
	defer srv.Close()

	p := testPublisher(srv.URL)
	result := p.Publish(context.Background(), models.SocialConfig{}, "tekst", "", models.PlatformBoth)

	if len(stub.requests) != 0 {
		t.Errorf("nothing configured, no calls expected: %v", stub.requests)
	}
	if len(result.Errors) != 0 || result.FacebookID != "" || result.InstagramID != "" {
		t.Errorf("unexpected result: %+v", result)
	}
}
