// Package seo generates search metadata for claims.
package seo

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ekaya-inc/claimcheck/pkg/apperrors"
	"github.com/ekaya-inc/claimcheck/pkg/llm"
	"github.com/ekaya-inc/claimcheck/pkg/logging"
	"github.com/ekaya-inc/claimcheck/pkg/models"
	"github.com/ekaya-inc/claimcheck/pkg/prompts"
	"github.com/ekaya-inc/claimcheck/pkg/retry"
)

const (
	MaxTitleLength       = 60
	MaxDescriptionLength = 160
)

// Input is everything that determines a claim's SEO metadata.
// Regeneration is keyed on these fields.
type Input struct {
	Title       string
	Category    string
	LeadingSide *models.Position
}

// Key identifies an Input for change detection.
func (in Input) Key() string {
	side := ""
	if in.LeadingSide != nil {
		side = string(*in.LeadingSide)
	}
	return in.Title + "\x00" + in.Category + "\x00" + side
}

// Result is the generated metadata.
type Result struct {
	SEOTitle       string `json:"seo_title"`
	SEODescription string `json:"seo_description"`
}

// Generator produces SEO metadata for a claim.
type Generator interface {
	Generate(ctx context.Context, in Input) (*Result, error)
}

// LLMGenerator asks an OpenAI-compatible model for the metadata.
type LLMGenerator struct {
	client   llm.LLMClient
	retryCfg *retry.Config
	logger   *zap.Logger
}

// NewLLMGenerator creates a generator that retries transient LLM failures up to maxRetries times.
func NewLLMGenerator(client llm.LLMClient, maxRetries int, logger *zap.Logger) *LLMGenerator {
	return &LLMGenerator{
		client:   client,
		retryCfg: retry.WithMaxRetries(maxRetries),
		logger:   logger.Named("seo"),
	}
}

func (g *LLMGenerator) Generate(ctx context.Context, in Input) (*Result, error) {
	side := ""
	if in.LeadingSide != nil {
		side = string(*in.LeadingSide)
	}
	prompt := prompts.BuildClaimSEOPrompt(prompts.ClaimSEOContext{
		Title:       in.Title,
		Category:    in.Category,
		LeadingSide: side,
	}, MaxTitleLength, MaxDescriptionLength)

	var result Result
	err := retry.DoIfRetryable(ctx, g.retryCfg, func() error {
		resp, err := g.client.GenerateResponse(ctx, prompt, prompts.ClaimSEOSystemMessage, 0.2)
		if err != nil {
			return err
		}
		parsed, err := llm.ParseJSONResponse[Result](resp.Content)
		if err != nil {
			g.logger.Debug("Unparseable SEO response",
				zap.String("content", logging.SanitizeText(resp.Content)))
			// A malformed answer is worth one more sample.
			return llm.NewError(llm.ErrorTypeEmptyResponse, "unparseable SEO response", true, err)
		}
		result = parsed
		return nil
	})
	if err != nil {
		return nil, &apperrors.DependencyError{Dependency: "seo", Err: err}
	}

	result.SEOTitle = logging.ClampRunes(strings.TrimSpace(result.SEOTitle), MaxTitleLength)
	result.SEODescription = logging.ClampRunes(strings.TrimSpace(result.SEODescription), MaxDescriptionLength)
	if result.SEOTitle == "" {
		return nil, &apperrors.DependencyError{Dependency: "seo", Err: fmt.Errorf("model returned an empty title")}
	}

	g.logger.Debug("Generated SEO metadata",
		zap.String("model", g.client.GetModel()),
		zap.Int("title_len", utf8.RuneCountInString(result.SEOTitle)))

	return &result, nil
}

var _ Generator = (*LLMGenerator)(nil)
