// Package rag retrieves course fragments for a question and synthesizes a
// citation-bearing answer with a chat model.
package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"course-rag/internal/models"
	"course-rag/internal/store"
)

// Retriever returns the k nearest fragments for a query
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]store.Hit, error)
}

// Synthesizer turns retrieval hits into answers
type Synthesizer struct {
	retriever Retriever
	chat      llms.Model
}

func NewSynthesizer(retriever Retriever, chat llms.Model) *Synthesizer {
	return &Synthesizer{retriever: retriever, chat: chat}
}

// Search exposes raw retrieval to the exam/knowledge layer
func (s *Synthesizer) Search(ctx context.Context, query string, topK int) ([]models.Source, error) {
	hits, err := s.retriever.Search(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	sources := make([]models.Source, len(hits))
	for i, hit := range hits {
		sources[i] = models.Source{Content: hit.Content, Metadata: hit.Metadata}
	}
	return sources, nil
}

// Answer retrieves the topK nearest fragments, drops those at or below the
// score threshold, refines the survivors through the chat model and composes
// the final answer with per-fragment citations. Finding no relevant material
// is a normal outcome, not an error; chat failures degrade to a textual
// answer instead of raising.
func (s *Synthesizer) Answer(ctx context.Context, question string, topK int, threshold float32) (*models.QAResult, error) {
	hits, err := s.retriever.Search(ctx, question, topK)
	if err != nil {
		return nil, err
	}

	// retrieval order is preserved: ties keep their original rank
	kept := hits[:0:0]
	for _, hit := range hits {
		if hit.Similarity > threshold {
			kept = append(kept, hit)
		}
	}
	log.Debug().Int("retrieved", len(hits)).Int("kept", len(kept)).
		Float32("threshold", threshold).Msg("filtered retrieval hits")

	if len(kept) == 0 {
		return &models.QAResult{
			Answer:  models.NoMaterialAnswer,
			Sources: []models.Source{},
		}, nil
	}

	refined := s.refineFragments(ctx, question, kept)

	sources := make([]models.Source, len(kept))
	for i, hit := range kept {
		sources[i] = models.Source{Content: refined[i], Metadata: hit.Metadata}
	}

	answer, err := s.complete(ctx, fmt.Sprintf(models.AnswerPromptTemplate, numberFragments(refined), question))
	if err != nil {
		log.Error().Err(err).Msg("answer generation failed, returning degraded answer")
		return &models.QAResult{
			Answer:  fmt.Sprintf(models.DegradedAnswerTemplate, err),
			Sources: sources,
		}, nil
	}

	return &models.QAResult{Answer: answer, Sources: sources}, nil
}

// refineFragments asks the chat model to trim each fragment to a complete
// excerpt and merge contiguous ones. Any fragment the response does not cover
// positionally falls back to its untrimmed original, as does the whole batch
// when the call fails.
func (s *Synthesizer) refineFragments(ctx context.Context, question string, hits []store.Hit) []string {
	originals := make([]string, len(hits))
	for i, hit := range hits {
		originals[i] = hit.Content
	}

	prompt := fmt.Sprintf(models.RefinePromptTemplate, len(hits), question, numberFragments(originals))
	response, err := s.complete(ctx, prompt)
	if err != nil {
		log.Warn().Err(err).Msg("fragment refinement failed, keeping originals")
		return originals
	}

	parsed, confident := parseRefined(response, len(hits))
	if !confident {
		log.Warn().Int("expected", len(hits)).Int("parsed", len(parsed)).
			Msg("refinement response parsed partially")
	}

	refined := make([]string, len(originals))
	for i, original := range originals {
		if text, ok := parsed[i+1]; ok && strings.TrimSpace(text) != "" {
			refined[i] = strings.TrimSpace(text)
		} else {
			refined[i] = original
		}
	}
	return refined
}

func (s *Synthesizer) complete(ctx context.Context, prompt string) (string, error) {
	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: prompt}},
		},
	}
	response, err := s.chat.GenerateContent(ctx, messages)
	if err != nil {
		return "", err
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("chat model returned no choices")
	}
	return stripThink(response.Choices[0].Content), nil
}

// numberFragments renders fragments as a numbered list for the prompts
func numberFragments(fragments []string) string {
	var b strings.Builder
	for i, text := range fragments {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%d. %s", i+1, text)
	}
	return b.String()
}
