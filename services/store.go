package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"stekfinder-autopilot/models"
)

const (
	// PublishBatchSize caps how many due posts one publish run may touch,
	// bounding external API exposure per run.
	PublishBatchSize = 5

	// claimLease is how long a publish-run claim on a post stays valid.
	// A crashed run's claim expires and the post becomes claimable again.
	claimLease = 5 * time.Minute

	socialConfigID = "default"
)

// PostStore persists autopilot posts and the singleton social configuration.
// It is the only component allowed to change a post's status, and it enforces
// the transition table at this boundary.
type PostStore struct {
	posts  *mongo.Collection
	config *mongo.Collection
	now    func() time.Time
}

func NewPostStore(db *mongo.Database) *PostStore {
	return &PostStore{
		posts:  db.Collection("autopilot_posts"),
		config: db.Collection("social_config"),
		now:    time.Now,
	}
}

// LoadSocialConfig reads the singleton config row. A missing document is not
// an error: it decodes to the zero value, meaning "nothing configured".
func (s *PostStore) LoadSocialConfig(ctx context.Context) (models.SocialConfig, error) {
	var cfg models.SocialConfig
	err := s.config.FindOne(ctx, bson.M{"_id": socialConfigID}).Decode(&cfg)
	if err == mongo.ErrNoDocuments {
		return models.SocialConfig{ID: socialConfigID}, nil
	}
	if err != nil {
		return models.SocialConfig{}, fmt.Errorf("load social config: %w", err)
	}
	return cfg, nil
}

// SaveSocialConfig applies a partial update to the singleton config row,
// creating it if needed. Only keys present in update are written.
func (s *PostStore) SaveSocialConfig(ctx context.Context, update bson.M) error {
	if len(update) == 0 {
		return nil
	}
	update["updated_at"] = s.now()

	_, err := s.config.UpdateOne(ctx,
		bson.M{"_id": socialConfigID},
		bson.M{"$set": update},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("save social config: %w", err)
	}
	return nil
}

// Insert bulk-creates posts from drafts under the given initial status.
// The write is ordered; callers must not assume partial success on error.
func (s *PostStore) Insert(ctx context.Context, drafts []models.PostDraft, status models.PostStatus) ([]models.Post, error) {
	if len(drafts) == 0 {
		return nil, nil
	}
	if status != models.StatusQueued && status != models.StatusApproved {
		return nil, fmt.Errorf("insert: posts start queued or approved, got %q", status)
	}

	now := s.now()
	posts := make([]models.Post, len(drafts))
	docs := make([]interface{}, len(drafts))
	for i, d := range drafts {
		platform := d.Platform
		if platform == "" {
			platform = models.PlatformBoth
		}
		posts[i] = models.Post{
			ID:           primitive.NewObjectID(),
			ContentType:  d.ContentType,
			Platform:     platform,
			TextContent:  d.TextContent,
			Hashtags:     d.Hashtags,
			ImagePrompt:  d.ImagePrompt,
			Hook:         d.Hook,
			Status:       status,
			ScheduledFor: d.ScheduledFor,
			CreatedAt:    now,
		}
		docs[i] = posts[i]
	}

	if _, err := s.posts.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		return nil, fmt.Errorf("insert posts: %w", err)
	}
	return posts, nil
}

// ListDue returns approved posts whose scheduled_for is at or before the
// given time, oldest first, capped at PublishBatchSize.
func (s *PostStore) ListDue(ctx context.Context, before time.Time) ([]models.Post, error) {
	cursor, err := s.posts.Find(ctx,
		bson.M{
			"status":        models.StatusApproved,
			"scheduled_for": bson.M{"$lte": before},
		},
		options.Find().
			SetSort(bson.D{{Key: "scheduled_for", Value: 1}}).
			SetLimit(PublishBatchSize),
	)
	if err != nil {
		return nil, fmt.Errorf("list due posts: %w", err)
	}
	defer cursor.Close(ctx)

	var posts []models.Post
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("decode due posts: %w", err)
	}
	return posts, nil
}

// List returns posts ordered by scheduled_for ascending, for the admin
// surface.
func (s *PostStore) List(ctx context.Context, limit int64) ([]models.Post, error) {
	cursor, err := s.posts.Find(ctx, bson.M{},
		options.Find().
			SetSort(bson.D{{Key: "scheduled_for", Value: 1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer cursor.Close(ctx)

	var posts []models.Post
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}
	return posts, nil
}

// Stats summarizes the pipeline for the admin dashboard.
func (s *PostStore) Stats(ctx context.Context) (models.PostStats, error) {
	var stats models.PostStats

	counts := map[models.PostStatus]*int64{
		models.StatusQueued:   &stats.Queued,
		models.StatusApproved: &stats.Approved,
		models.StatusPosted:   &stats.Posted,
		models.StatusFailed:   &stats.Failed,
	}
	for status, dst := range counts {
		n, err := s.posts.CountDocuments(ctx, bson.M{"status": status})
		if err != nil {
			return models.PostStats{}, fmt.Errorf("count %s posts: %w", status, err)
		}
		*dst = n
	}
	stats.Total = stats.Queued + stats.Approved + stats.Posted + stats.Failed

	weekStart, weekEnd := currentWeek(s.now())
	thisWeek, err := s.posts.CountDocuments(ctx, bson.M{
		"scheduled_for": bson.M{"$gte": weekStart, "$lt": weekEnd},
	})
	if err != nil {
		return models.PostStats{}, fmt.Errorf("count this week: %w", err)
	}
	stats.ThisWeek = thisWeek

	var next models.Post
	err = s.posts.FindOne(ctx,
		bson.M{"status": models.StatusApproved},
		options.FindOne().SetSort(bson.D{{Key: "scheduled_for", Value: 1}}),
	).Decode(&next)
	if err == nil {
		stats.NextScheduled = &next.ScheduledFor
	} else if err != mongo.ErrNoDocuments {
		return models.PostStats{}, fmt.Errorf("find next scheduled: %w", err)
	}

	return stats, nil
}

// currentWeek returns the Monday 00:00 boundaries around now.
func currentWeek(now time.Time) (time.Time, time.Time) {
	weekday := int(now.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday belongs to the week that started last Monday
	}
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).
		AddDate(0, 0, -(weekday - 1))
	return start, start.AddDate(0, 0, 7)
}

// Claim leases an approved post to the calling publish run. It returns false
// when the post is no longer approved or another run holds a live claim, in
// which case the caller must skip the post.
func (s *PostStore) Claim(ctx context.Context, id primitive.ObjectID) (bool, error) {
	now := s.now()
	res, err := s.posts.UpdateOne(ctx,
		bson.M{
			"_id":    id,
			"status": models.StatusApproved,
			"$or": bson.A{
				bson.M{"claimed_at": bson.M{"$exists": false}},
				bson.M{"claimed_at": bson.M{"$lt": now.Add(-claimLease)}},
			},
		},
		bson.M{"$set": bson.M{"claimed_at": now}},
	)
	if err != nil {
		return false, fmt.Errorf("claim post: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

// UpdateStatus moves a post to the given status, recording the publish
// outcome fields. The call is idempotent (same-status updates pass) and
// last-write-wins; illegal transitions are rejected here rather than trusted
// to callers.
func (s *PostStore) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.PostStatus, postedAt *time.Time, metaPostID, errorMessage string) error {
	if !status.Valid() {
		return fmt.Errorf("update status: unknown status %q", status)
	}

	current, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if !current.Status.CanTransition(status) {
		return fmt.Errorf("update status %s -> %s: %w", current.Status, status, models.ErrInvalidTransition)
	}

	set := bson.M{"status": status}
	unset := bson.M{"claimed_at": ""}
	if postedAt != nil {
		set["posted_at"] = *postedAt
	}
	if metaPostID != "" {
		set["meta_post_id"] = metaPostID
	}
	if errorMessage != "" {
		set["error_message"] = errorMessage
	} else {
		unset["error_message"] = ""
	}

	res, err := s.posts.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set, "$unset": unset})
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

// MarkOutcome records a publish attempt on the post, applying the success
// rule: one platform id suffices for posted; only "no id and at least one
// error" is failed. posted_at and meta_post_id are written only on success.
func (s *PostStore) MarkOutcome(ctx context.Context, id primitive.ObjectID, result models.PublishResult) error {
	status := result.Outcome()

	errorMessage := strings.Join(result.Errors, "; ")

	if status == models.StatusPosted {
		now := s.now()
		return s.UpdateStatus(ctx, id, status, &now, result.MetaPostID(), errorMessage)
	}
	return s.UpdateStatus(ctx, id, status, nil, "", errorMessage)
}

// Approve moves a queued post to approved. Re-approving an approved post is
// a no-op success.
func (s *PostStore) Approve(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.posts.UpdateOne(ctx,
		bson.M{"_id": id, "status": bson.M{"$in": bson.A{models.StatusQueued, models.StatusApproved}}},
		bson.M{"$set": bson.M{"status": models.StatusApproved}},
	)
	if err != nil {
		return fmt.Errorf("approve post: %w", err)
	}
	if res.MatchedCount == 0 {
		return s.explainMiss(ctx, id)
	}
	return nil
}

// ApproveAll approves every queued post and returns how many changed.
func (s *PostStore) ApproveAll(ctx context.Context) (int64, error) {
	res, err := s.posts.UpdateMany(ctx,
		bson.M{"status": models.StatusQueued},
		bson.M{"$set": bson.M{"status": models.StatusApproved}},
	)
	if err != nil {
		return 0, fmt.Errorf("approve all: %w", err)
	}
	return res.ModifiedCount, nil
}

// Reject sends an approved post back to the queue and releases any claim.
// Rejecting from any other status is an invalid transition.
func (s *PostStore) Reject(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.posts.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.StatusApproved},
		bson.M{
			"$set":   bson.M{"status": models.StatusQueued},
			"$unset": bson.M{"claimed_at": ""},
		},
	)
	if err != nil {
		return fmt.Errorf("reject post: %w", err)
	}
	if res.MatchedCount == 0 {
		return s.explainMiss(ctx, id)
	}
	return nil
}

// Edit overwrites only the fields supplied and non-empty in update. An edit
// cannot clear a field back to empty; clearing requires delete-and-regenerate.
func (s *PostStore) Edit(ctx context.Context, id primitive.ObjectID, update models.PostUpdate) error {
	set := bson.M{}
	if update.TextContent != "" {
		set["text_content"] = update.TextContent
	}
	if update.Hashtags != nil {
		set["hashtags"] = update.Hashtags
	}
	if update.Platform != "" {
		if !update.Platform.Valid() {
			return fmt.Errorf("edit post: unknown platform %q", update.Platform)
		}
		set["platform"] = update.Platform
	}
	if update.ImageURL != "" {
		set["image_url"] = update.ImageURL
	}
	if !update.ScheduledFor.IsZero() {
		set["scheduled_for"] = update.ScheduledFor
	}
	if len(set) == 0 {
		return nil
	}

	res, err := s.posts.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("edit post: %w", err)
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Reschedule moves a post's publish moment without touching its status.
func (s *PostStore) Reschedule(ctx context.Context, id primitive.ObjectID, scheduledFor time.Time) error {
	res, err := s.posts.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"scheduled_for": scheduledFor}},
	)
	if err != nil {
		return fmt.Errorf("reschedule post: %w", err)
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Delete removes a post entirely.
func (s *PostStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.posts.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if res.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *PostStore) get(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var post models.Post
	err := s.posts.FindOne(ctx, bson.M{"_id": id}).Decode(&post)
	if err == mongo.ErrNoDocuments {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return &post, nil
}

// explainMiss turns a zero-match conditional update into the right sentinel:
// not found, or present but in a status the operation does not allow.
func (s *PostStore) explainMiss(ctx context.Context, id primitive.ObjectID) error {
	post, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("post is %s: %w", post.Status, models.ErrInvalidTransition)
}
