// Package tokenizer implements the Tokenization Service: accurate
// token counts for context-window validation and chunk-to-document
// packing, backed by a BPE tokenizer for the active embedding family.
package tokenizer

import (
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"

	atlaserrors "github.com/inherent-design/atlas-sub010/internal/errors"
)

// Service wraps a lazily-initialized tiktoken encoding. Construction is
// cheap; the underlying encoding is built on first use and cached.
type Service struct {
	encodingName string
	safeLimit    int

	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error
}

// New builds a Service for encodingName (e.g. "cl100k_base"), with
// safeLimit strictly below the embedding backend's context window to
// absorb tokenizer skew between families.
func New(encodingName string, safeLimit int) *Service {
	return &Service{encodingName: encodingName, safeLimit: safeLimit}
}

func (s *Service) encoding() (*tiktoken.Tiktoken, error) {
	s.once.Do(func() {
		s.enc, s.err = tiktoken.GetEncoding(s.encodingName)
	})
	return s.enc, s.err
}

// CountTokens returns the exact BPE token count of text.
func (s *Service) CountTokens(text string) (int, error) {
	enc, err := s.encoding()
	if err != nil {
		return 0, atlaserrors.Config("tokenizer encoding %q unavailable: %v", s.encodingName, err)
	}
	return len(enc.Encode(text, nil, nil)), nil
}

// CountTotalTokens sums CountTokens over chunks.
func (s *Service) CountTotalTokens(chunks []string) (int, error) {
	total := 0
	for _, c := range chunks {
		n, err := s.CountTokens(c)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// EstimateTokens is the chars/4 fast-path approximation of a token
// count, for callers that can trade accuracy for speed. The ingest
// context-window pre-check uses the exact count instead.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// ExceedsContextWindow reports whether the combined token count of
// chunks exceeds limit.
func (s *Service) ExceedsContextWindow(chunks []string, limit int) (bool, error) {
	total, err := s.CountTotalTokens(chunks)
	if err != nil {
		return false, err
	}
	return total > limit, nil
}

// SplitIntoDocuments greedily packs chunks into documents (slices of
// chunks) such that no document exceeds maxTokens. maxTokens should
// normally be s.safeLimit; it is an explicit parameter so callers can
// use a tighter bound when needed. A single chunk exceeding maxTokens
// on its own still becomes its own one-chunk document: this service
// does not re-split chunk content, only groups whole chunks.
func (s *Service) SplitIntoDocuments(chunks []string, maxTokens int) ([][]string, error) {
	if maxTokens <= 0 {
		maxTokens = s.safeLimit
	}

	var docs [][]string
	var current []string
	currentTokens := 0

	for _, c := range chunks {
		n, err := s.CountTokens(c)
		if err != nil {
			return nil, err
		}
		if len(current) > 0 && currentTokens+n > maxTokens {
			docs = append(docs, current)
			current = nil
			currentTokens = 0
		}
		current = append(current, c)
		currentTokens += n
	}
	if len(current) > 0 {
		docs = append(docs, current)
	}
	return docs, nil
}

// SafeLimit returns the configured safe token limit.
func (s *Service) SafeLimit() int { return s.safeLimit }
