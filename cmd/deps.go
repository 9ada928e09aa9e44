package cmd

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/mentor-matcher/internal/ai"
	"github.com/spigell/mentor-matcher/internal/ai/gemini"
	"github.com/spigell/mentor-matcher/internal/ai/openai"
	"github.com/spigell/mentor-matcher/internal/cohort"
	"github.com/spigell/mentor-matcher/internal/explain"
	"github.com/spigell/mentor-matcher/internal/filtering"
	"github.com/spigell/mentor-matcher/internal/logger"
	"github.com/spigell/mentor-matcher/internal/matching"
	"github.com/spigell/mentor-matcher/internal/participant"
	"github.com/spigell/mentor-matcher/internal/scoring"
	"github.com/spigell/mentor-matcher/internal/secrets"
	"github.com/spigell/mentor-matcher/internal/similarity"
)

const (
	providerGemini = "gemini"
	providerOpenAI = "openai"
	providerNone   = "none"
)

// newCohortClient returns nil when no cohort api is configured.
func newCohortClient(cfg *CohortConfig, log *zap.Logger) (*cohort.Client, error) {
	if strings.TrimSpace(cfg.APIURL) == "" {
		return nil, nil
	}

	token, err := secrets.Load(secrets.Source{
		Name:  "cohort api token",
		Value: cfg.Token,
		File:  cfg.TokenFile,
		Env:   "COHORT_API_TOKEN",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set cohort.token-file or COHORT_API_TOKEN)", err)
	}

	client := cohort.New(cfg.APIURL, token, log)
	if cfg.UserAgent != "" {
		client.UserAgent = cfg.UserAgent
	}
	return client, nil
}

// loadRoster reads participants from the input file or, without one, from the cohort api
// together with the pairs proposed in earlier runs.
func loadRoster(ctx context.Context, config *Config, client *cohort.Client, log *zap.Logger) (*participant.Roster, []filtering.PriorPair, error) {
	if config.Input != "" {
		roster, err := participant.LoadFile(config.Input)
		if err != nil {
			return nil, nil, err
		}
		if config.Cohort.ID != "" {
			roster.CohortID = config.Cohort.ID
		}
		logRoster(log.With(zap.String("input", config.Input)), roster)
		return roster, nil, nil
	}

	if client == nil {
		return nil, nil, fmt.Errorf("either --input or cohort.api-url is required")
	}

	roster, err := client.FetchRoster(ctx, config.Cohort.ID)
	if err != nil {
		return nil, nil, err
	}

	prior, err := client.FetchHistory(ctx, config.Cohort.ID)
	if err != nil {
		log.Warn("matching history unavailable, prior pairs are not excluded", zap.Error(err))
		prior = nil
	}

	logRoster(log.With(zap.String("cohort_api", config.Cohort.APIURL)), roster)
	return roster, prior, nil
}

func logRoster(log *zap.Logger, roster *participant.Roster) {
	log.Info("roster loaded",
		zap.String("cohort_id", roster.CohortID),
		zap.Int("mentees", roster.Mentees.Len()),
		zap.Int("mentors", roster.Mentors.Len()),
		zap.Int("capacity", roster.Mentors.TotalCapacity()),
	)
	log.Debug("roster participants",
		zap.Strings("mentee_ids", roster.Mentees.IDs()),
		zap.Strings("mentor_ids", roster.Mentors.IDs()),
	)
}

// matchInput builds the engine input. With rematch the prior pairs stay eligible.
func matchInput(config *Config, roster *participant.Roster, prior []filtering.PriorPair) matching.Input {
	return matching.Input{
		CohortID:   roster.CohortID,
		Mentees:    roster.Mentees.Items,
		Mentors:    roster.Mentors.Items,
		PriorPairs: prior,
		Rematch:    config.Rematch,
	}
}

func newScorer(cfg *ScoringConfig) (*scoring.Engine, error) {
	var opts []scoring.Option
	if cfg != nil && cfg.Weights != nil {
		opts = append(opts, scoring.WithWeights(*cfg.Weights))
	}
	if cfg != nil && cfg.Thresholds != nil {
		opts = append(opts, scoring.WithThresholds(*cfg.Thresholds))
	}
	return scoring.New(opts...)
}

// newEmbedder returns nil when embeddings are disabled.
func newEmbedder(ctx context.Context, cfg *AIConfig, log *zap.Logger) (ai.Embedder, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Embeddings)) {
	case "", providerNone:
		return nil, nil
	case providerGemini:
		apiKey, err := geminiAPIKey(cfg.Gemini)
		if err != nil {
			return nil, err
		}
		embedder, err := gemini.NewEmbedder(ctx, apiKey, cfg.Gemini.EmbeddingModel,
			logger.WithProvider(log, providerGemini, cfg.Gemini.EmbeddingModel))
		if err != nil {
			return nil, err
		}
		return embedder, nil
	case providerOpenAI:
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "openai api key",
			Value: cfg.OpenAI.APIKey,
			File:  cfg.OpenAI.APIKeyFile,
			Env:   "OPENAI_API_KEY",
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set ai.openai.api-key-file or OPENAI_API_KEY)", err)
		}
		embedder, err := openai.NewEmbedder(apiKey, cfg.OpenAI.Config,
			logger.WithProvider(log, providerOpenAI, cfg.OpenAI.Model))
		if err != nil {
			return nil, err
		}
		return embedder, nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Embeddings)
	}
}

func newSimilarity(ctx context.Context, config *Config, cache similarity.EmbeddingCache, log *zap.Logger) similarity.Provider {
	embedder, err := newEmbedder(ctx, config.AI, log)
	if err != nil {
		log.Warn("embeddings disabled, using keyword similarity", zap.Error(err))
	}

	var primary similarity.Provider
	if embedder != nil {
		primary = similarity.NewEmbedding(embedder, cache, log)
	}
	return similarity.NewResilient(primary, config.Similarity.Timeout, log)
}

func newEngine(ctx context.Context, config *Config, cache similarity.EmbeddingCache, log *zap.Logger) (*matching.Engine, error) {
	scorer, err := newScorer(config.Scoring)
	if err != nil {
		return nil, fmt.Errorf("building scorer: %w", err)
	}

	return matching.New(scorer,
		matching.WithSimilarity(newSimilarity(ctx, config, cache, log)),
		matching.WithLogger(log),
	), nil
}

// newExplainProvider returns the generator backed explainer when ai is enabled and the
// template otherwise.
func newExplainProvider(ctx context.Context, cfg *AIConfig, prompt gemini.PromptOverrides, log *zap.Logger) (explain.Provider, error) {
	if !cfg.Enabled {
		return explain.Template{}, nil
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != providerGemini {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := geminiAPIKey(cfg.Gemini)
	if err != nil {
		return nil, err
	}

	genLogger := logger.WithProvider(log, providerGemini, cfg.Gemini.Model).
		With(zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries))

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, genLogger)
	if err != nil {
		return nil, err
	}

	explainer := gemini.NewExplainer(generator, cfg.Gemini.MaxLogLength, genLogger)
	explainer.SetPromptOverrides(prompt)

	return explainer, nil
}

func newOrchestrator(ctx context.Context, config *Config, cache explain.Cache, log *zap.Logger) (*explain.Orchestrator, error) {
	provider, err := newExplainProvider(ctx, config.AI, config.Explain.Prompt, log)
	if err != nil {
		return nil, fmt.Errorf("building explanation provider: %w", err)
	}

	return explain.New(provider, cache,
		explain.WithWorkers(config.Explain.Workers),
		explain.WithTimeout(config.Explain.Timeout),
		explain.WithLogger(log),
	), nil
}

func geminiAPIKey(cfg *GeminiConfig) (string, error) {
	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.APIKey,
		File:  cfg.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return "", fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY)", err)
	}
	return apiKey, nil
}

// explainRequests builds one request per recommendation whose participants are in the roster.
func explainRequests(out *matching.Output, roster *participant.Roster, log *zap.Logger) []explain.Request {
	var reqs []explain.Request
	for _, r := range out.Results {
		mentee := roster.Mentees.FindByID(r.MenteeID)
		if mentee == nil {
			log.Warn("mentee is missing from the roster", zap.String("mentee_id", r.MenteeID))
			continue
		}
		for _, rec := range r.Recommendations {
			mentor := roster.Mentors.FindByID(rec.MentorID)
			if mentor == nil {
				log.Warn("mentor is missing from the roster", zap.String("mentor_id", rec.MentorID))
				continue
			}
			reqs = append(reqs, explain.Request{Mentee: mentee, Mentor: mentor, Score: rec.Score})
		}
	}
	return reqs
}

func withRun(log *zap.Logger, out *matching.Output) *zap.Logger {
	return logger.WithRun(log, out.CohortID, out.RunID, string(out.Mode))
}
