// Package tagging classifies a meeting summary into a type and topic pair.
package tagging

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"minutes/internal/config"
	"minutes/internal/gemini"
	"minutes/internal/logging"
	"minutes/internal/retry"
)

// Meeting type values.
const (
	TypeProject   = "project_meeting"
	TypeRecurring = "recurring_meeting"
)

// Meeting topic values.
const (
	TopicLoyalty    = "loyalty"
	TopicMembership = "membership"
	TopicOperation  = "operation"
	TopicBusiness   = "business"
	TopicData       = "data"
)

var validTypes = map[string]struct{}{
	TypeProject:   {},
	TypeRecurring: {},
}

var validTopics = map[string]struct{}{
	TopicLoyalty:    {},
	TopicMembership: {},
	TopicOperation:  {},
	TopicBusiness:   {},
	TopicData:       {},
}

// Tags is the classification result attached to a run.
type Tags struct {
	MeetingType  string `json:"meeting_type"`
	MeetingTopic string `json:"meeting_topic"`
}

// DefaultTags is used when classification cannot produce a valid result.
var DefaultTags = Tags{MeetingType: TypeRecurring, MeetingTopic: TopicBusiness}

// Generator is the generation surface used for classification requests.
// *gemini.Client satisfies it.
type Generator interface {
	GenerateText(ctx context.Context, model, prompt string) (string, error)
}

// Classifier asks the model to tag a summary, retrying transient failures
// and falling back to defaults rather than failing the run.
type Classifier struct {
	generator Generator
	model     string
	policy    retry.Policy
	logger    *slog.Logger
}

// NewClassifier builds a classifier with the retry budget from config.
func NewClassifier(generator Generator, model string, cfg *config.Config, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	policy := retry.DefaultPolicy()
	if cfg.Pipeline.TagMaxAttempts > 0 {
		policy.MaxAttempts = cfg.Pipeline.TagMaxAttempts
	}
	if cfg.Pipeline.TagRetryDelaySeconds >= 0 {
		policy.Delay = time.Duration(cfg.Pipeline.TagRetryDelaySeconds) * time.Second
	}
	return &Classifier{
		generator: generator,
		model:     model,
		policy:    policy,
		logger:    logger,
	}
}

// Classify tags the supplied summary. Request or parse failures are retried
// within the configured budget; an out-of-enum field is replaced with its
// default. Classify never returns an error: exhausted retries yield
// DefaultTags.
func (c *Classifier) Classify(ctx context.Context, summary string) Tags {
	policy := c.policy
	policy.OnRetry = func(attempt int, err error) {
		c.logger.Warn(
			"tag classification attempt failed",
			logging.Int("attempt", attempt),
			logging.Error(err),
		)
	}

	tags, err := retry.Do(ctx, policy, func(ctx context.Context) (Tags, error) {
		response, err := c.generator.GenerateText(ctx, c.model, gemini.TaggingPrompt+summary)
		if err != nil {
			return Tags{}, err
		}
		var parsed Tags
		if err := gemini.DecodeModelJSON(response, &parsed); err != nil {
			return Tags{}, err
		}
		return parsed, nil
	})
	if err != nil {
		c.logger.Warn("tag classification exhausted retries, using defaults", logging.Error(err))
		return DefaultTags
	}
	return normalize(tags, c.logger)
}

func normalize(tags Tags, logger *slog.Logger) Tags {
	result := Tags{
		MeetingType:  strings.ToLower(strings.TrimSpace(tags.MeetingType)),
		MeetingTopic: strings.ToLower(strings.TrimSpace(tags.MeetingTopic)),
	}
	if _, ok := validTypes[result.MeetingType]; !ok {
		logger.Warn("unknown meeting_type, using default", logging.String("meeting_type", tags.MeetingType))
		result.MeetingType = DefaultTags.MeetingType
	}
	if _, ok := validTopics[result.MeetingTopic]; !ok {
		logger.Warn("unknown meeting_topic, using default", logging.String("meeting_topic", tags.MeetingTopic))
		result.MeetingTopic = DefaultTags.MeetingTopic
	}
	return result
}
