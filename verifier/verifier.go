// Package verifier screens item submissions through an external
// text-classification endpoint before intake commits them.
package verifier

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"lostfound/inference"
)

// Verdict is the outcome of a relevance check.
type Verdict string

const (
	// VerdictRelevant means the description plausibly describes the item.
	VerdictRelevant Verdict = "relevant"
	// VerdictIrrelevant means the description does not describe the item;
	// intake rejects the submission.
	VerdictIrrelevant Verdict = "irrelevant"
	// VerdictUnavailable means the classifier could not be reached or never
	// produced a usable answer. Callers must treat this as "proceed", not as
	// a rejection.
	VerdictUnavailable Verdict = "verification_unavailable"
)

// ChatClient abstracts the single-turn LLM call.
type ChatClient interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

const maxAttempts = 3

// Verifier classifies whether a free-text description actually describes the
// claimed item. All failures collapse to VerdictUnavailable after retries.
type Verifier struct {
	chat        ChatClient
	logger      *slog.Logger
	sleep       func(time.Duration)
	rateLimited func(error) bool
}

func New(chat ChatClient, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{
		chat:        chat,
		logger:      logger,
		sleep:       time.Sleep,
		rateLimited: inference.IsRateLimited,
	}
}

// WithSleep overrides the backoff sleeper.
func (v *Verifier) WithSleep(sleep func(time.Duration)) *Verifier {
	v.sleep = sleep
	return v
}

// WithRateLimitCheck overrides rate-limit error classification.
func (v *Verifier) WithRateLimitCheck(check func(error) bool) *Verifier {
	v.rateLimited = check
	return v
}

// Verify asks the classifier whether description describes an item called
// name. It retries up to three attempts: HTTP 429 backs off exponentially
// starting at 2s, any other transient failure (transport error, ambiguous
// response) waits 1-2s. It never returns an error; exhaustion yields
// VerdictUnavailable.
func (v *Verifier) Verify(ctx context.Context, name, description string) Verdict {
	prompt := buildPrompt(name, description)
	rateLimitWait := 2 * time.Second

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		raw, err := v.chat.Ask(ctx, prompt)
		if err == nil {
			switch parseVerdict(raw) {
			case VerdictRelevant:
				return VerdictRelevant
			case VerdictIrrelevant:
				return VerdictIrrelevant
			}
			v.logger.Warn("relevance check returned ambiguous response",
				"attempt", attempt, "response", strings.TrimSpace(raw))
		} else {
			v.logger.Warn("relevance check failed", "attempt", attempt, "error", err)
		}

		if attempt == maxAttempts || ctx.Err() != nil {
			break
		}

		if err != nil && v.rateLimited(err) {
			v.sleep(rateLimitWait)
			rateLimitWait *= 2
		} else {
			v.sleep(time.Duration(1000+rand.Intn(1000)) * time.Millisecond)
		}
	}

	return VerdictUnavailable
}

func buildPrompt(name, description string) string {
	return fmt.Sprintf(
		"You screen reports submitted to a lost-and-found service. "+
			"Does the following description plausibly describe an item called %q? "+
			"Answer with exactly one word: RELEVANT or IRRELEVANT.\n\nDescription: %s",
		name, description)
}

// parseVerdict enforces the single-word response contract. Anything beyond
// one recognized word counts as ambiguous.
func parseVerdict(raw string) Verdict {
	fields := strings.Fields(strings.ToUpper(strings.TrimSpace(raw)))
	if len(fields) != 1 {
		return VerdictUnavailable
	}
	switch strings.Trim(fields[0], ".,!") {
	case "RELEVANT":
		return VerdictRelevant
	case "IRRELEVANT":
		return VerdictIrrelevant
	default:
		return VerdictUnavailable
	}
}
