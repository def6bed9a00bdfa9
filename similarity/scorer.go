// Package similarity computes the match confidence between a lost item and a
// found item from text and optional image signals.
package similarity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"lostfound/inference"
)

// Subject is the capability view of an item the scorer consumes; both lost
// and found items reduce to it. ImageRef is empty when no image was attached.
type Subject struct {
	Name        string
	Description string
	ImageRef    string
}

// Embedder produces one embedding vector per input text.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Vision exposes the object-detection and captioning operations used to
// sharpen text-only scores when both items carry images.
type Vision interface {
	Detect(ctx context.Context, imageRef string) (label, cropRef string, err error)
	Caption(ctx context.Context, cropRef string) (string, error)
}

// Component weights. The text component mixes the base and enhanced
// similarities as (base + 2*enhanced) / 3 before weighting.
const (
	textWeight    = 0.4
	captionWeight = 0.3
	labelWeight   = 0.3
)

// Scorer produces a confidence in [0, 1] that two items refer to the same
// physical object. Text alone is noisy; when both sides have images, an
// independent object-label vote and caption similarity sharpen the score.
// Missing or failed image signals never penalize a pair below its text score.
type Scorer struct {
	embedder Embedder
	vision   Vision
	logger   *slog.Logger
}

func NewScorer(embedder Embedder, vision Vision, logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{embedder: embedder, vision: vision, logger: logger}
}

// Score computes the match confidence for the pair. It returns an error only
// when the base text embedding is unavailable; every image-path failure
// degrades to the text-only score instead.
func (s *Scorer) Score(ctx context.Context, lost, found Subject) (float64, error) {
	vecs, err := s.embedder.EmbedTexts(ctx, []string{baseText(lost), baseText(found)})
	if err != nil {
		return 0, fmt.Errorf("similarity: embed base text: %w", err)
	}
	if len(vecs) != 2 {
		return 0, fmt.Errorf("similarity: expected 2 base vectors, got %d", len(vecs))
	}
	base := inference.Cosine(vecs[0], vecs[1])

	if s.vision == nil || lost.ImageRef == "" || found.ImageRef == "" {
		return base, nil
	}

	lostSig, ok := s.imageSignals(ctx, lost.ImageRef)
	if !ok {
		return base, nil
	}
	foundSig, ok := s.imageSignals(ctx, found.ImageRef)
	if !ok {
		return base, nil
	}

	labelSim := 0.0
	if lostSig.label != "" && foundSig.label != "" && strings.EqualFold(lostSig.label, foundSig.label) {
		labelSim = 1.0
	}

	enriched, err := s.embedder.EmbedTexts(ctx, []string{
		lostSig.caption,
		foundSig.caption,
		enhancedText(lost, lostSig),
		enhancedText(found, foundSig),
	})
	if err != nil || len(enriched) != 4 {
		s.logger.Warn("enriched embedding unavailable, falling back to text similarity", "error", err)
		return base, nil
	}

	captionSim := inference.Cosine(enriched[0], enriched[1])
	enhancedSim := inference.Cosine(enriched[2], enriched[3])

	textComponent := (base + 2*enhancedSim) / 3
	return textWeight*textComponent + captionWeight*captionSim + labelWeight*labelSim, nil
}

type imageSignals struct {
	label   string
	caption string
}

// imageSignals runs detection and captioning for one image. ok is false when
// either step fails, which callers treat as "score without images".
func (s *Scorer) imageSignals(ctx context.Context, imageRef string) (imageSignals, bool) {
	label, cropRef, err := s.vision.Detect(ctx, imageRef)
	if err != nil {
		s.logger.Warn("object detection failed", "image", imageRef, "error", err)
		return imageSignals{}, false
	}
	if cropRef == "" {
		cropRef = imageRef
	}

	caption, err := s.vision.Caption(ctx, cropRef)
	if err != nil || caption == "" {
		s.logger.Warn("caption generation failed", "image", imageRef, "error", err)
		return imageSignals{}, false
	}

	return imageSignals{label: label, caption: caption}, true
}

func baseText(s Subject) string {
	return s.Name + " " + s.Description
}

func enhancedText(s Subject, sig imageSignals) string {
	return strings.TrimSpace(s.Name + " " + s.Description + " " + sig.label + " " + sig.caption)
}
