package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"stekfinder-autopilot/models"
)

// testStore connects to the Mongo instance named by MONGODB_TEST_URI and
// returns a store backed by a throwaway database. Tests skip when the
// variable is unset.
func testStore(t *testing.T) *PostStore {
	t.Helper()

	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set; skipping store integration tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	db := client.Database(fmt.Sprintf("autopilot_test_%d", time.Now().UnixNano()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		db.Drop(ctx)
		client.Disconnect(ctx)
	})

	return NewPostStore(db)
}

func seedPosts(t *testing.T, s *PostStore, status models.PostStatus, scheduled []time.Time) []models.Post {
	t.Helper()

	drafts := make([]models.PostDraft, len(scheduled))
	for i, at := range scheduled {
		drafts[i] = models.PostDraft{
			ContentType:  "vistip",
			Platform:     models.PlatformBoth,
			TextContent:  fmt.Sprintf("post %d", i),
			ScheduledFor: at,
		}
	}
	posts, err := s.Insert(context.Background(), drafts, status)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return posts
}

func TestStoreListDueHonorsScheduleAndCap(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	// Six approved posts in the past plus one in the future and one queued.
	past := make([]time.Time, 6)
	for i := range past {
		past[i] = now.Add(-time.Duration(i+1) * time.Hour)
	}
	seedPosts(t, s, models.StatusApproved, past)
	seedPosts(t, s, models.StatusApproved, []time.Time{now.Add(time.Hour)})
	seedPosts(t, s, models.StatusQueued, []time.Time{now.Add(-time.Hour)})

	due, err := s.ListDue(ctx, now)
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(due) != PublishBatchSize {
		t.Fatalf("got %d due posts, want batch cap %d", len(due), PublishBatchSize)
	}
	for i := 1; i < len(due); i++ {
		if due[i].ScheduledFor.Before(due[i-1].ScheduledFor) {
			t.Error("due posts should come back oldest first")
		}
	}
	for _, p := range due {
		if p.Status != models.StatusApproved {
			t.Errorf("post %s has status %s", p.ID.Hex(), p.Status)
		}
		if p.ScheduledFor.After(now) {
			t.Errorf("post %s is not yet due", p.ID.Hex())
		}
	}
}

func TestStoreApproveIsIdempotent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	posts := seedPosts(t, s, models.StatusQueued, []time.Time{time.Now()})
	id := posts[0].ID

	if err := s.Approve(ctx, id); err != nil {
		t.Fatalf("first approve: %v", err)
	}
	if err := s.Approve(ctx, id); err != nil {
		t.Fatalf("re-approve must be a no-op success: %v", err)
	}

	post, err := s.get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if post.Status != models.StatusApproved {
		t.Errorf("status = %s", post.Status)
	}
}

func TestStoreRejectRequiresApproved(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	posts := seedPosts(t, s, models.StatusQueued, []time.Time{time.Now()})

	err := s.Reject(ctx, posts[0].ID)
	if !errors.Is(err, models.ErrInvalidTransition) {
		t.Fatalf("rejecting a queued post: got %v, want invalid transition", err)
	}

	if err := s.Approve(ctx, posts[0].ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := s.Reject(ctx, posts[0].ID); err != nil {
		t.Fatalf("reject approved: %v", err)
	}

	post, _ := s.get(ctx, posts[0].ID)
	if post.Status != models.StatusQueued {
		t.Errorf("status = %s, want back in queue", post.Status)
	}
}

func TestStoreClaimLease(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	posts := seedPosts(t, s, models.StatusApproved, []time.Time{time.Now()})
	id := posts[0].ID

	claimed, err := s.Claim(ctx, id)
	if err != nil || !claimed {
		t.Fatalf("first claim = %v, %v", claimed, err)
	}

	claimed, err = s.Claim(ctx, id)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if claimed {
		t.Error("live claim must block a second run")
	}

	// An expired lease is claimable again.
	s.now = func() time.Time { return time.Now().Add(claimLease + time.Minute) }
	claimed, err = s.Claim(ctx, id)
	if err != nil || !claimed {
		t.Fatalf("claim after lease expiry = %v, %v", claimed, err)
	}
}

func TestStoreMarkOutcomeSuccessRule(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	posts := seedPosts(t, s, models.StatusApproved, []time.Time{time.Now(), time.Now()})

	partial := models.PublishResult{FacebookID: "fb_1", Errors: []string{"Instagram: afbeelding vereist"}}
	if err := s.MarkOutcome(ctx, posts[0].ID, partial); err != nil {
		t.Fatalf("mark partial success: %v", err)
	}
	post, _ := s.get(ctx, posts[0].ID)
	if post.Status != models.StatusPosted {
		t.Errorf("one platform id must classify as posted, got %s", post.Status)
	}
	if post.MetaPostID != "fb_1" || post.PostedAt == nil {
		t.Errorf("posted fields missing: %+v", post)
	}
	if post.ErrorMessage == "" {
		t.Error("partial failure detail should be kept")
	}

	failure := models.PublishResult{Errors: []string{"Facebook: invalid token"}}
	if err := s.MarkOutcome(ctx, posts[1].ID, failure); err != nil {
		t.Fatalf("mark failure: %v", err)
	}
	post, _ = s.get(ctx, posts[1].ID)
	if post.Status != models.StatusFailed {
		t.Errorf("no id plus errors must classify as failed, got %s", post.Status)
	}
	if post.PostedAt != nil || post.MetaPostID != "" {
		t.Error("failed posts must not carry posted fields")
	}
}

func TestStoreUpdateStatusRejectsIllegalTransition(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	posts := seedPosts(t, s, models.StatusQueued, []time.Time{time.Now()})

	err := s.UpdateStatus(ctx, posts[0].ID, models.StatusPosted, nil, "", "")
	if !errors.Is(err, models.ErrInvalidTransition) {
		t.Fatalf("queued -> posted: got %v, want invalid transition", err)
	}
}

func TestStoreEditOnlyTouchesSuppliedFields(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	posts := seedPosts(t, s, models.StatusQueued, []time.Time{time.Now()})
	id := posts[0].ID

	err := s.Edit(ctx, id, models.PostUpdate{TextContent: "bewerkte tekst"})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}

	post, _ := s.get(ctx, id)
	if post.TextContent != "bewerkte tekst" {
		t.Errorf("text = %q", post.TextContent)
	}
	if post.Platform != models.PlatformBoth {
		t.Errorf("platform should be untouched, got %s", post.Platform)
	}
	if !post.ScheduledFor.Equal(posts[0].ScheduledFor) {
		t.Error("schedule should be untouched")
	}

	if err := s.Edit(ctx, id, models.PostUpdate{Platform: "tiktok"}); err == nil {
		t.Error("unknown platform should be rejected")
	}
}

func TestStoreSocialConfigRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	cfg, err := s.LoadSocialConfig(ctx)
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if cfg.PostingEnabled || cfg.FacebookConfigured() {
		t.Errorf("missing document should read as zero config: %+v", cfg)
	}

	err = s.SaveSocialConfig(ctx, bson.M{"posting_enabled": true, "facebook_page_id": "page1"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	err = s.SaveSocialConfig(ctx, bson.M{"facebook_access_token": "token1"})
	if err != nil {
		t.Fatalf("second save: %v", err)
	}

	cfg, err = s.LoadSocialConfig(ctx)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !cfg.PostingEnabled || !cfg.FacebookConfigured() {
		t.Errorf("partial updates should accumulate: %+v", cfg)
	}
}
