package aisearch

import (
	"docsearch/src/core/chunker"
)

// Supported generation drivers.
const (
	DriverOpenAI = "openai"
	DriverOllama = "ollama"
)

const (
	DefaultCompletionModel = "gpt-4o-mini"
	DefaultRetrievalLimit  = 8
	DefaultLinkPrefix      = "/page/"
	DefaultRecentChunks    = 3
)

// Settings carries the AI configuration resolved at startup.
type Settings struct {
	Driver             string
	CompletionModel    string
	EmbeddingModel     string
	EmbeddingDimension int
	ChunkSize          int
	RetrievalLimit     int
	LinkPrefix         string
}

// WithDefaults fills unset optional fields.
func (s Settings) WithDefaults() Settings {
	if s.CompletionModel == "" {
		s.CompletionModel = DefaultCompletionModel
	}
	if s.ChunkSize <= 0 {
		s.ChunkSize = chunker.DefaultSize
	}
	if s.RetrievalLimit <= 0 {
		s.RetrievalLimit = DefaultRetrievalLimit
	}
	if s.LinkPrefix == "" {
		s.LinkPrefix = DefaultLinkPrefix
	}
	return s
}

// GenerationEnabled reports whether a supported driver is configured.
func (s Settings) GenerationEnabled() bool {
	return s.Driver == DriverOpenAI || s.Driver == DriverOllama
}

// RequireGeneration fails when no generation driver is enabled.
func (s Settings) RequireGeneration() error {
	if !s.GenerationEnabled() {
		return &ConfigurationError{
			Setting: "ai.driver",
			Reason:  "generation driver is not enabled; set AI_DRIVER=openai or AI_DRIVER=ollama",
		}
	}
	return nil
}

// RequireEmbedding fails when the embedding model or dimension is missing.
func (s Settings) RequireEmbedding() error {
	if s.EmbeddingModel == "" {
		return &ConfigurationError{Setting: "ai.embedding_model", Reason: "AI_EMBEDDING_MODEL is required"}
	}
	if s.EmbeddingDimension <= 0 {
		return &ConfigurationError{Setting: "ai.embedding_dimension", Reason: "AI_EMBEDDING_DIMENSION is required"}
	}
	return nil
}

// Link builds the client link for a document, preferring its slug.
func (s Settings) Link(slugID, documentID string) string {
	switch {
	case slugID != "":
		return s.LinkPrefix + slugID
	case documentID != "":
		return s.LinkPrefix + documentID
	default:
		return ""
	}
}
