package models

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PostStatus is the lifecycle state of an autopilot post.
type PostStatus string

const (
	StatusQueued   PostStatus = "queued"
	StatusApproved PostStatus = "approved"
	StatusPosted   PostStatus = "posted"
	StatusFailed   PostStatus = "failed"
)

var (
	ErrNotFound          = errors.New("post not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// transitions is the closed set of allowed status changes. posted and failed
// are terminal; failed posts only re-enter the pipeline through an explicit
// operator action, never through the store's transition path.
var transitions = map[PostStatus][]PostStatus{
	StatusQueued:   {StatusApproved},
	StatusApproved: {StatusQueued, StatusPosted, StatusFailed},
}

// Valid reports whether s is a known status.
func (s PostStatus) Valid() bool {
	switch s {
	case StatusQueued, StatusApproved, StatusPosted, StatusFailed:
		return true
	}
	return false
}

// CanTransition reports whether a post may move from s to target. A
// same-status update is always allowed so that UpdateStatus stays idempotent.
func (s PostStatus) CanTransition(target PostStatus) bool {
	if s == target {
		return true
	}
	for _, t := range transitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// Platform selects which social networks a post targets.
type Platform string

const (
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformBoth      Platform = "both"
)

func (p Platform) Valid() bool {
	switch p {
	case PlatformFacebook, PlatformInstagram, PlatformBoth:
		return true
	}
	return false
}

// TargetsFacebook reports whether the platform set includes Facebook.
func (p Platform) TargetsFacebook() bool {
	return p == PlatformFacebook || p == PlatformBoth
}

// TargetsInstagram reports whether the platform set includes Instagram.
func (p Platform) TargetsInstagram() bool {
	return p == PlatformInstagram || p == PlatformBoth
}

// Post is one piece of generated content moving through the approval and
// publishing pipeline.
type Post struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ContentType  string             `bson:"content_type" json:"content_type"`
	Platform     Platform           `bson:"platform" json:"platform"`
	TextContent  string             `bson:"text_content" json:"text_content"`
	Hashtags     []string           `bson:"hashtags" json:"hashtags"`
	ImagePrompt  string             `bson:"image_prompt,omitempty" json:"image_prompt,omitempty"`
	ImageURL     string             `bson:"image_url,omitempty" json:"image_url,omitempty"`
	Hook         string             `bson:"hook,omitempty" json:"hook,omitempty"`
	Status       PostStatus         `bson:"status" json:"status"`
	ScheduledFor time.Time          `bson:"scheduled_for" json:"scheduled_for"`
	PostedAt     *time.Time         `bson:"posted_at,omitempty" json:"posted_at,omitempty"`
	MetaPostID   string             `bson:"meta_post_id,omitempty" json:"meta_post_id,omitempty"`
	ErrorMessage string             `bson:"error_message,omitempty" json:"error_message,omitempty"`
	ClaimedAt    *time.Time         `bson:"claimed_at,omitempty" json:"-"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
}

// PostDraft is generator output that has not been persisted yet.
type PostDraft struct {
	ContentType  string    `json:"content_type"`
	Platform     Platform  `json:"platform"`
	TextContent  string    `json:"text_content"`
	Hashtags     []string  `json:"hashtags"`
	ImagePrompt  string    `json:"image_prompt,omitempty"`
	Hook         string    `json:"hook,omitempty"`
	ScheduledFor time.Time `json:"scheduled_for"`
}

// PostUpdate carries the editable fields of a post. Only non-zero fields are
// applied; an edit cannot clear a field back to empty.
type PostUpdate struct {
	TextContent  string    `json:"text_content,omitempty"`
	Hashtags     []string  `json:"hashtags,omitempty"`
	Platform     Platform  `json:"platform,omitempty"`
	ImageURL     string    `json:"image_url,omitempty"`
	ScheduledFor time.Time `json:"scheduled_for,omitempty"`
}

// PostStats summarizes the pipeline for the admin dashboard.
type PostStats struct {
	Queued        int64      `json:"queued"`
	Approved      int64      `json:"approved"`
	Posted        int64      `json:"posted"`
	Failed        int64      `json:"failed"`
	Total         int64      `json:"total"`
	ThisWeek      int64      `json:"this_week"`
	NextScheduled *time.Time `json:"next_scheduled,omitempty"`
}

// SocialConfig is the singleton platform configuration, stored under the
// fixed id "default". A missing document behaves as "nothing configured".
type SocialConfig struct {
	ID                  string    `bson:"_id" json:"-"`
	FacebookPageID      string    `bson:"facebook_page_id,omitempty" json:"facebook_page_id,omitempty"`
	FacebookAccessToken string    `bson:"facebook_access_token,omitempty" json:"facebook_access_token,omitempty"`
	InstagramAccountID  string    `bson:"instagram_account_id,omitempty" json:"instagram_account_id,omitempty"`
	AutoApprove         bool      `bson:"auto_approve" json:"auto_approve"`
	PostingEnabled      bool      `bson:"posting_enabled" json:"posting_enabled"`
	UpdatedAt           time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// FacebookConfigured reports whether Facebook publishing credentials are set.
func (c SocialConfig) FacebookConfigured() bool {
	return c.FacebookPageID != "" && c.FacebookAccessToken != ""
}

// InstagramConfigured reports whether Instagram publishing credentials are
// set. Instagram reuses the Facebook access token via the Meta Graph API.
func (c SocialConfig) InstagramConfigured() bool {
	return c.InstagramAccountID != "" && c.FacebookAccessToken != ""
}

// PublishResult is the aggregate outcome of a publish attempt across
// platforms. Per-platform failures are collected in Errors and never block
// the other platform.
type PublishResult struct {
	FacebookID  string   `json:"facebook_id,omitempty"`
	InstagramID string   `json:"instagram_id,omitempty"`
	Errors      []string `json:"errors,omitempty"`
}

// MetaPostID returns the platform post id to record, preferring Facebook.
func (r PublishResult) MetaPostID() string {
	if r.FacebookID != "" {
		return r.FacebookID
	}
	return r.InstagramID
}

// Outcome classifies the attempt: one platform id suffices for posted, even
// if the other platform errored. Only "no id at all and at least one error"
// is failed.
func (r PublishResult) Outcome() PostStatus {
	if r.MetaPostID() == "" && len(r.Errors) > 0 {
		return StatusFailed
	}
	return StatusPosted
}
