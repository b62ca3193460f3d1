// Package risk scores assets against the RugCheck report API and
// decides whether they are safe to store.
package risk

import (
	"context"
	"errors"

	"dexradar/internal/domain"
)

// ErrUnavailable signals that no usable report exists for the token:
// the provider responded without a score, or the request failed after
// retries. Callers treat the asset as unscoreable, not unsafe.
var ErrUnavailable = errors.New("risk report unavailable")

// Client fetches raw risk reports.
type Client interface {
	Report(ctx context.Context, tokenAddress string) (*domain.RiskReport, error)
}

// DefaultMaxScore is the highest total score still considered safe.
const DefaultMaxScore = 1000

// Assessor judges raw reports against a maximum acceptable score.
type Assessor struct {
	client   Client
	maxScore int
}

// AssessorOptions configures an Assessor.
type AssessorOptions struct {
	Client Client

	// MaxScore above which IsSafe is false. Zero means DefaultMaxScore.
	MaxScore int
}

// NewAssessor creates a new Assessor.
func NewAssessor(opts AssessorOptions) *Assessor {
	maxScore := opts.MaxScore
	if maxScore <= 0 {
		maxScore = DefaultMaxScore
	}
	return &Assessor{
		client:   opts.Client,
		maxScore: maxScore,
	}
}

// Assess fetches the report for the token and judges it.
func (a *Assessor) Assess(ctx context.Context, tokenAddress string) (*domain.RiskAssessment, error) {
	if tokenAddress == "" {
		return nil, errors.New("no token address provided")
	}

	report, err := a.client.Report(ctx, tokenAddress)
	if err != nil {
		return nil, err
	}

	return &domain.RiskAssessment{
		IsSafe:     report.Score <= a.maxScore,
		RiskReport: *report,
	}, nil
}
