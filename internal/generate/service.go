// Package generate implements the quota-gated generation pipeline: for
// each request it resolves the caller's plan and remaining quota,
// dispatches to the upstream provider, validates the result, and commits
// the usage increment only on confirmed success.
package generate

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/storynest/backend/internal/provider"
	"github.com/storynest/backend/internal/quota"
	"github.com/storynest/backend/internal/store"
)

// Provider is the generation capability the service dispatches to.
// *provider.Client satisfies it; tests substitute mocks.
type Provider interface {
	GenerateStory(ctx context.Context, messages []provider.ChatMessage) (*provider.StoryResult, error)
	GenerateImage(ctx context.Context, prompt string) (*provider.ImageResult, error)
	GenerateSpeech(ctx context.Context, text, voice string) (*provider.SpeechResult, error)
}

// Usage is the accounting snapshot attached to every successful
// generation response.
type Usage struct {
	DayBucket  string     `json:"day_bucket"`
	Plan       quota.Plan `json:"plan"`
	DailyLimit int        `json:"daily_limit"`
	UsedToday  int        `json:"used_today"`

	// Degraded is set when the post-success usage commit failed and the
	// request was served uncounted.
	Degraded bool `json:"-"`
}

// StoryOutput is a generated story plus its usage snapshot
type StoryOutput struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

// ImageOutput is a generated cover illustration reference
type ImageOutput struct {
	URL   string `json:"url"`
	Usage Usage  `json:"usage"`
}

// SpeechOutput is generated narration audio
type SpeechOutput struct {
	Audio       []byte
	ContentType string
	Usage       Usage
}

// Service composes identity, quota policy, account store and provider
// into the gated pipeline. It holds no per-request state; the account
// store is the only shared mutable resource, and no lock is held across
// the provider call.
type Service struct {
	store    store.AccountStore
	provider Provider
	limits   quota.Limits
	now      func() time.Time
}

// NewService creates the orchestrator
func NewService(st store.AccountStore, p Provider, limits quota.Limits) *Service {
	if limits == nil {
		limits = quota.DefaultLimits
	}
	return &Service{
		store:    st,
		provider: p,
		limits:   limits,
		now:      time.Now,
	}
}

// gate is the per-request quota snapshot taken before dispatch
type gate struct {
	userKey   string
	plan      quota.Plan
	limit     int
	used      int
	dayBucket string
}

// checkQuota resolves the plan and today's usage, then applies the
// policy. Two concurrent requests may both pass here before either
// commits; that bounded overshoot is an accepted trade-off against
// holding a reservation across the upstream call.
func (s *Service) checkQuota(ctx context.Context, userKey string) (*gate, error) {
	plan, err := s.store.GetOrCreatePlan(ctx, userKey)
	if err != nil {
		return nil, &StoreError{Op: "resolve plan", Err: err}
	}

	bucket := quota.DayBucket(s.now())
	used, err := s.store.GetUsage(ctx, userKey, bucket)
	if err != nil {
		return nil, &StoreError{Op: "read usage", Err: err}
	}

	limit := s.limits.DailyLimit(plan)
	if !quota.IsAllowed(used, limit) {
		return nil, &QuotaExceededError{
			Plan:       plan,
			DailyLimit: limit,
			UsedToday:  used,
			DayBucket:  bucket,
		}
	}

	return &gate{
		userKey:   userKey,
		plan:      plan,
		limit:     limit,
		used:      used,
		dayBucket: bucket,
	}, nil
}

// commit records the successful generation. A store failure here is
// deliberately not fatal: the user already has a usable result, so the
// request stays a success and the lost increment is logged instead.
func (s *Service) commit(ctx context.Context, g *gate) Usage {
	usage := Usage{
		DayBucket:  g.dayBucket,
		Plan:       g.plan,
		DailyLimit: g.limit,
	}

	newCount, err := s.store.IncrementUsage(ctx, g.userKey, g.dayBucket)
	if err != nil {
		log.Printf("[generate] degraded accounting: usage increment failed for user=%s bucket=%s: %v",
			g.userKey, g.dayBucket, err)
		usage.UsedToday = g.used + 1
		usage.Degraded = true
		return usage
	}

	usage.UsedToday = newCount
	return usage
}

// Story runs the gated pipeline for story text generation.
func (s *Service) Story(ctx context.Context, userKey string, messages []provider.ChatMessage) (*StoryOutput, error) {
	g, err := s.checkQuota(ctx, userKey)
	if err != nil {
		return nil, err
	}

	if len(messages) == 0 {
		return nil, &ValidationError{Reason: "no messages provided"}
	}

	res, err := s.provider.GenerateStory(ctx, messages)
	if err != nil {
		return nil, err
	}

	if err := ValidateStoryResult(res); err != nil {
		return nil, err
	}

	return &StoryOutput{
		Content: res.Content,
		Usage:   s.commit(ctx, g),
	}, nil
}

// Image runs the gated pipeline for cover illustration generation.
func (s *Service) Image(ctx context.Context, userKey, prompt string) (*ImageOutput, error) {
	g, err := s.checkQuota(ctx, userKey)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(prompt) == "" {
		return nil, &ValidationError{Reason: "missing 'prompt' string"}
	}

	res, err := s.provider.GenerateImage(ctx, prompt)
	if err != nil {
		return nil, err
	}

	if err := ValidateImageResult(res); err != nil {
		return nil, err
	}

	return &ImageOutput{
		URL:   res.URL,
		Usage: s.commit(ctx, g),
	}, nil
}

// Speech runs the gated pipeline for narration generation.
func (s *Service) Speech(ctx context.Context, userKey, text, voice string) (*SpeechOutput, error) {
	g, err := s.checkQuota(ctx, userKey)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(text) == "" {
		return nil, &ValidationError{Reason: "missing 'text' field for narration"}
	}

	res, err := s.provider.GenerateSpeech(ctx, text, voice)
	if err != nil {
		return nil, err
	}

	if err := ValidateSpeechResult(res); err != nil {
		return nil, err
	}

	return &SpeechOutput{
		Audio:       res.Audio,
		ContentType: res.ContentType,
		Usage:       s.commit(ctx, g),
	}, nil
}

// UsageSnapshot reports the caller's current plan, limit and usage
// without generating anything.
func (s *Service) UsageSnapshot(ctx context.Context, userKey string) (*Usage, error) {
	plan, err := s.store.GetOrCreatePlan(ctx, userKey)
	if err != nil {
		return nil, &StoreError{Op: "resolve plan", Err: err}
	}

	bucket := quota.DayBucket(s.now())
	used, err := s.store.GetUsage(ctx, userKey, bucket)
	if err != nil {
		return nil, &StoreError{Op: "read usage", Err: err}
	}

	return &Usage{
		DayBucket:  bucket,
		Plan:       plan,
		DailyLimit: s.limits.DailyLimit(plan),
		UsedToday:  used,
	}, nil
}
