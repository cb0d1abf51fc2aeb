package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/case-framework/survey-engine/pkg/survey/types"
	"github.com/redis/go-redis/v9"
)

const (
	DEFAULT_TTL = 10 * time.Minute
	KEY_PREFIX  = "survey-engine"
)

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TTL      string `yaml:"ttl"`
}

// SurveyDefinitionCache stores survey and question documents in Redis as
// JSON. Redis failures are logged and reported as cache misses.
type SurveyDefinitionCache struct {
	client     *redis.Client
	ownsClient bool
	ttl        time.Duration
}

type Option func(*SurveyDefinitionCache)

func WithTTL(ttl time.Duration) Option {
	return func(c *SurveyDefinitionCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func NewSurveyDefinitionCache(cfg RedisConfig, opts ...Option) (*SurveyDefinitionCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	c := NewSurveyDefinitionCacheWithClient(client, opts...)
	c.ownsClient = true
	return c, nil
}

// NewSurveyDefinitionCacheWithClient uses an existing client; the caller keeps
// ownership of it.
func NewSurveyDefinitionCacheWithClient(client *redis.Client, opts ...Option) *SurveyDefinitionCache {
	c := &SurveyDefinitionCache{
		client: client,
		ttl:    DEFAULT_TTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *SurveyDefinitionCache) Close() error {
	if !c.ownsClient {
		return nil
	}
	return c.client.Close()
}

func surveyKey(surveyID string) string {
	return fmt.Sprintf("%s:survey:%s", KEY_PREFIX, surveyID)
}

func questionsKey(surveyID string) string {
	return fmt.Sprintf("%s:survey:%s:questions", KEY_PREFIX, surveyID)
}

func (c *SurveyDefinitionCache) GetSurvey(ctx context.Context, surveyID string) (*types.Survey, bool) {
	var s types.Survey
	if !c.get(ctx, surveyKey(surveyID), &s) {
		return nil, false
	}
	return &s, true
}

func (c *SurveyDefinitionCache) SetSurvey(ctx context.Context, survey types.Survey) {
	c.set(ctx, surveyKey(survey.ID), survey)
}

func (c *SurveyDefinitionCache) GetQuestions(ctx context.Context, surveyID string) ([]types.Question, bool) {
	var qs []types.Question
	if !c.get(ctx, questionsKey(surveyID), &qs) {
		return nil, false
	}
	return qs, true
}

func (c *SurveyDefinitionCache) SetQuestions(ctx context.Context, surveyID string, questions []types.Question) {
	c.set(ctx, questionsKey(surveyID), questions)
}

// Invalidate drops the cached definition of a survey.
func (c *SurveyDefinitionCache) Invalidate(ctx context.Context, surveyID string) error {
	return c.client.Del(ctx, surveyKey(surveyID), questionsKey(surveyID)).Err()
}

func (c *SurveyDefinitionCache) get(ctx context.Context, key string, v interface{}) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		slog.Warn("survey cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		slog.Warn("dropping unreadable survey cache entry", slog.String("key", key), slog.String("error", err.Error()))
		_ = c.client.Del(ctx, key)
		return false
	}
	return true
}

func (c *SurveyDefinitionCache) set(ctx context.Context, key string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("survey cache encode failed", slog.String("key", key), slog.String("error", err.Error()))
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		slog.Warn("survey cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}
