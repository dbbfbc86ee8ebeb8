// Package intent classifies candidate messages into intentions. All
// classification is deterministic pattern matching with hand-tuned
// confidence values; there is no model anywhere in this path.
package intent

import (
	"fmt"

	"github.com/spigell/hh-screener/internal/conversation"
	"github.com/spigell/hh-screener/internal/textmatch"

	"go.uber.org/zap"
)

// Validity is the context-validity verdict for a detected intention.
type Validity string

const (
	ValidityValid              Validity = "valid"
	ValidityInvalid            Validity = "invalid"
	ValidityNeedsClarification Validity = "requires_clarification"
)

// Result is the outcome of one classification.
type Result struct {
	Intention  conversation.Intention `json:"intention"`
	Confidence float64                `json:"confidence"`
	Validity   Validity               `json:"validity"`
	Metadata   map[string]any         `json:"metadata,omitempty"`
}

// Config tunes the classifier. CustomPatterns are merged additively into the
// built-in pattern sets per intention.
type Config struct {
	// ConfidenceThreshold floors the confidence of any pattern hit at
	// threshold plus a small margin.
	ConfidenceThreshold float64 `mapstructure:"confidence-threshold"`

	CustomPatterns map[conversation.Intention][]string `mapstructure:"custom-patterns"`
}

const (
	defaultConfidenceThreshold = 0.6
	confidenceMargin           = 0.05

	// unknownConfidence is the fixed low confidence for unmatched messages.
	unknownConfidence = 0.3
)

// Classifier maps a cleaned message to one intention with a confidence score
// and a context-validity verdict. Detect is a pure function of the message,
// the context and the static configuration.
type Classifier struct {
	threshold float64
	sets      map[conversation.Intention]*textmatch.Set
	logger    *zap.Logger
}

// NewClassifier compiles the built-in pattern sets plus any custom patterns.
func NewClassifier(cfg Config, logger *zap.Logger) (*Classifier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	threshold := cfg.ConfidenceThreshold
	if threshold <= 0 || threshold >= 1 {
		threshold = defaultConfidenceThreshold
	}

	sets := make(map[conversation.Intention]*textmatch.Set, len(builtinPatterns))
	for in, patterns := range builtinPatterns {
		set, err := textmatch.Compile(patterns)
		if err != nil {
			return nil, fmt.Errorf("compiling %s patterns: %w", in, err)
		}
		sets[in] = set
	}

	for in, patterns := range cfg.CustomPatterns {
		set, ok := sets[in]
		if !ok {
			return nil, fmt.Errorf("custom patterns for unknown intention %q", in)
		}
		if err := set.Append(patterns); err != nil {
			return nil, fmt.Errorf("compiling custom %s patterns: %w", in, err)
		}
	}

	return &Classifier{threshold: threshold, sets: sets, logger: logger}, nil
}

// Detect classifies one message against the conversation context. The hard
// safety pre-filter dominates everything else and is independent of the
// jailbreak pattern set: a configuration defect cannot disable it.
func (c *Classifier) Detect(message string, ctx *conversation.Context) Result {
	cleaned := textmatch.CleanText(message)
	if cleaned == "" {
		return Result{
			Intention:  conversation.IntentionUnknown,
			Confidence: 0,
			Validity:   ValidityNeedsClarification,
			Metadata:   map[string]any{"reason": "empty message"},
		}
	}

	if !textmatch.IsSafe(message) {
		return Result{
			Intention:  conversation.IntentionJailbreakAttempt,
			Confidence: 1.0,
			Validity:   ValidityInvalid,
			Metadata:   map[string]any{"reason": "safety pre-filter"},
		}
	}

	for i, in := range priorityOrder {
		set := c.sets[in]
		if set == nil {
			continue
		}
		matched, ok := set.Match(cleaned)
		if !ok {
			continue
		}

		confidence := textmatch.Confidence(cleaned, matched, c.threshold+confidenceMargin)

		c.logger.Debug("intention detected",
			zap.String("intention", string(in)),
			zap.Float64("confidence", confidence),
			zap.String("matched", matched),
		)

		return Result{
			Intention:  in,
			Confidence: confidence,
			Validity:   validityFor(in, ctx),
			Metadata: map[string]any{
				"matched_pattern": matched,
				"priority_index":  i,
			},
		}
	}

	return Result{
		Intention:  conversation.IntentionUnknown,
		Confidence: unknownConfidence,
		Validity:   ValidityNeedsClarification,
		Metadata:   map[string]any{"reason": "no pattern matched"},
	}
}

// validityFor applies the per-intention context rules.
func validityFor(in conversation.Intention, ctx *conversation.Context) Validity {
	if ctx == nil {
		ctx = conversation.NewContext()
	}

	switch in {
	case conversation.IntentionJailbreakAttempt:
		return ValidityInvalid
	case conversation.IntentionGreeting:
		if ctx.HasIntention(conversation.IntentionGreeting) {
			return ValidityInvalid
		}
		return ValidityValid
	case conversation.IntentionJobInquiry:
		if ctx.Job == nil {
			return ValidityNeedsClarification
		}
		return ValidityValid
	case conversation.IntentionApplicationStatus, conversation.IntentionExperienceValidation:
		if ctx.Profile == nil {
			return ValidityNeedsClarification
		}
		return ValidityValid
	case conversation.IntentionCVUpload:
		if ctx.Profile != nil {
			// A second upload replaces the profile; worth confirming.
			return ValidityNeedsClarification
		}
		return ValidityValid
	default:
		return ValidityValid
	}
}
