package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"stekfinder-autopilot/internal/content"
	"stekfinder-autopilot/internal/logger"
	"stekfinder-autopilot/models"
)

// interPostDelay throttles outbound platform calls between posts in one
// publish run.
const interPostDelay = 2 * time.Second

// ContentGenerator produces post drafts.
type ContentGenerator interface {
	Generate(ctx context.Context, typeKey, customPrompt string) (*models.PostDraft, error)
	GenerateWeek(ctx context.Context) []models.PostDraft
}

// SocialPublisher delivers one post to the configured platforms.
type SocialPublisher interface {
	Publish(ctx context.Context, cfg models.SocialConfig, text, imageURL string, platform models.Platform) models.PublishResult
}

// AutopilotStore is the slice of PostStore the jobs need.
type AutopilotStore interface {
	LoadSocialConfig(ctx context.Context) (models.SocialConfig, error)
	Insert(ctx context.Context, drafts []models.PostDraft, status models.PostStatus) ([]models.Post, error)
	ListDue(ctx context.Context, before time.Time) ([]models.Post, error)
	Claim(ctx context.Context, id primitive.ObjectID) (bool, error)
	MarkOutcome(ctx context.Context, id primitive.ObjectID, result models.PublishResult) error
}

// Autopilot runs the two scheduled jobs: weekly content generation and daily
// publishing. Each run is a bounded unit of work ending in exactly one
// notification, success or failure.
type Autopilot struct {
	store     AutopilotStore
	generator ContentGenerator
	publisher SocialPublisher
	notifier  Notifier

	postDelay time.Duration
	now       func() time.Time
	sleep     func(time.Duration)
}

func NewAutopilot(store AutopilotStore, generator ContentGenerator, publisher SocialPublisher, notifier Notifier) *Autopilot {
	return &Autopilot{
		store:     store,
		generator: generator,
		publisher: publisher,
		notifier:  notifier,
		postDelay: interPostDelay,
		now:       time.Now,
		sleep:     time.Sleep,
	}
}

// GenerateReport summarizes one weekly generation run.
type GenerateReport struct {
	Generated    int           `json:"generated"`
	AutoApproved bool          `json:"auto_approved"`
	Posts        []models.Post `json:"posts"`
}

// RunWeeklyGenerate executes the weekly generation job and sends the run's
// single notification.
func (a *Autopilot) RunWeeklyGenerate(ctx context.Context) (*GenerateReport, error) {
	report, err := a.GenerateWeekBatch(ctx)
	if err != nil {
		logger.Error("weekly generate job failed", "error", err)
		a.notifier.Notify(ctx, fmt.Sprintf("❌ <b>Autopilot fout:</b> %s", err))
		return nil, err
	}

	a.notifier.Notify(ctx, formatGenerateSummary(report))
	logger.Info("weekly generate job finished", "generated", report.Generated, "auto_approved", report.AutoApproved)
	return report, nil
}

// GenerateWeekBatch generates a week of drafts and stores them, queued or
// pre-approved depending on configuration. Used by both the cron trigger
// (with notification) and the admin surface (without).
func (a *Autopilot) GenerateWeekBatch(ctx context.Context) (*GenerateReport, error) {
	cfg, err := a.store.LoadSocialConfig(ctx)
	if err != nil {
		return nil, err
	}

	drafts := a.generator.GenerateWeek(ctx)

	status := models.StatusQueued
	if cfg.AutoApprove {
		status = models.StatusApproved
	}

	posts, err := a.store.Insert(ctx, drafts, status)
	if err != nil {
		return nil, err
	}

	return &GenerateReport{
		Generated:    len(posts),
		AutoApproved: cfg.AutoApprove,
		Posts:        posts,
	}, nil
}

// GenerateSingle creates one post on demand, scheduled for tomorrow 09:00.
func (a *Autopilot) GenerateSingle(ctx context.Context, typeKey, customPrompt string) (*models.Post, error) {
	cfg, err := a.store.LoadSocialConfig(ctx)
	if err != nil {
		return nil, err
	}

	draft, err := a.generator.Generate(ctx, typeKey, customPrompt)
	if err != nil {
		return nil, err
	}
	draft.Platform = models.PlatformBoth
	draft.ScheduledFor = content.WeekSlot(a.now(), 1)

	status := models.StatusQueued
	if cfg.AutoApprove {
		status = models.StatusApproved
	}

	posts, err := a.store.Insert(ctx, []models.PostDraft{*draft}, status)
	if err != nil {
		return nil, err
	}
	return &posts[0], nil
}

// PublishOutcome is the per-post result of a publish run.
type PublishOutcome struct {
	Post    models.Post          `json:"post"`
	Result  models.PublishResult `json:"result"`
	Skipped bool                 `json:"skipped,omitempty"`
}

// PublishReport summarizes one daily publish run.
type PublishReport struct {
	Disabled bool             `json:"disabled,omitempty"`
	Due      int              `json:"due"`
	Posted   int              `json:"posted"`
	Outcomes []PublishOutcome `json:"outcomes,omitempty"`
}

// RunDailyPublish executes the daily publish job and sends the run's single
// notification. Individual publish failures are recorded on their posts and
// never abort the batch; only store failures do.
func (a *Autopilot) RunDailyPublish(ctx context.Context) (*PublishReport, error) {
	report, err := a.publishDue(ctx)
	if err != nil {
		logger.Error("daily publish job failed", "error", err)
		a.notifier.Notify(ctx, fmt.Sprintf("❌ <b>Autopilot post fout:</b> %s", err))
		return nil, err
	}

	a.notifier.Notify(ctx, formatPublishSummary(report))
	logger.Info("daily publish job finished", "due", report.Due, "posted", report.Posted, "disabled", report.Disabled)
	return report, nil
}

func (a *Autopilot) publishDue(ctx context.Context) (*PublishReport, error) {
	cfg, err := a.store.LoadSocialConfig(ctx)
	if err != nil {
		return nil, err
	}

	if !cfg.PostingEnabled {
		return &PublishReport{Disabled: true}, nil
	}

	posts, err := a.store.ListDue(ctx, a.now())
	if err != nil {
		return nil, err
	}

	report := &PublishReport{Due: len(posts)}

	for i, post := range posts {
		claimed, err := a.store.Claim(ctx, post.ID)
		if err != nil {
			return nil, err
		}
		if !claimed {
			// A concurrent run owns this post.
			logger.Warn("skipping post claimed elsewhere", "post_id", post.ID.Hex())
			report.Outcomes = append(report.Outcomes, PublishOutcome{Post: post, Skipped: true})
			continue
		}

		result := a.publisher.Publish(ctx, cfg, AssemblePostText(post), post.ImageURL, post.Platform)

		if err := a.store.MarkOutcome(ctx, post.ID, result); err != nil {
			return nil, err
		}

		if result.Outcome() == models.StatusPosted {
			report.Posted++
		} else {
			logger.Error("publish attempt failed", "post_id", post.ID.Hex(), "content_type", post.ContentType, "errors", strings.Join(result.Errors, "; "))
		}
		report.Outcomes = append(report.Outcomes, PublishOutcome{Post: post, Result: result})

		if i < len(posts)-1 {
			a.sleep(a.postDelay)
		}
	}

	return report, nil
}

// AssemblePostText builds the final outgoing text: body plus hashtags as a
// trailing line, when there are any.
func AssemblePostText(post models.Post) string {
	if len(post.Hashtags) == 0 {
		return post.TextContent
	}
	return post.TextContent + "\n\n" + strings.Join(post.Hashtags, " ")
}

func formatGenerateSummary(report *GenerateReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📅 <b>Autopilot: %d posts gegenereerd!</b>\n\n", report.Generated)

	if report.AutoApproved {
		b.WriteString("Status: auto-approved\n")
	} else {
		b.WriteString("Status: wachten op goedkeuring\n")
	}

	for i, post := range report.Posts {
		fmt.Fprintf(&b, "%d. %s — %s\n", i+1, post.ContentType, preview(post.TextContent, 50))
	}
	return b.String()
}

func formatPublishSummary(report *PublishReport) string {
	if report.Disabled {
		return "⏸ <b>Autopilot:</b> posting staat uit, niets geplaatst"
	}
	if report.Due == 0 {
		return "📤 <b>Autopilot:</b> geen posts gepland"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📤 <b>Autopilot: %d/%d posts geplaatst!</b>\n\n", report.Posted, report.Due)
	for _, o := range report.Outcomes {
		switch {
		case o.Skipped:
			fmt.Fprintf(&b, "⏭ %s: al geclaimd door andere run\n", o.Post.ContentType)
		case o.Result.Outcome() == models.StatusPosted:
			fmt.Fprintf(&b, "✅ %s: geplaatst\n", o.Post.ContentType)
		default:
			fmt.Fprintf(&b, "❌ %s: %s\n", o.Post.ContentType, strings.Join(o.Result.Errors, "; "))
		}
	}
	return b.String()
}

func preview(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
