package rag

import (
	"context"
	"errors"
	"fmt"

	"github.com/nikhilbhutani/ragguard/internal/llm"
	"github.com/nikhilbhutani/ragguard/internal/models"
	"github.com/nikhilbhutani/ragguard/internal/vectorstore"
)

const DefaultLimit = 5

// Retriever finds the chunks of a project most similar to a query.
type Retriever struct {
	embedder llm.Provider
	store    vectorstore.VectorStore
}

func NewRetriever(embedder llm.Provider, store vectorstore.VectorStore) *Retriever {
	return &Retriever{embedder: embedder, store: store}
}

// Retrieve returns at most limit documents in descending score order. A
// project that was never indexed yields an empty result.
func (r *Retriever) Retrieve(ctx context.Context, projectID, query string, limit int) ([]models.RetrievedDocument, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	vec := r.embedder.EmbedText(ctx, query, llm.PurposeQuery)
	if len(vec) == 0 {
		return nil, fmt.Errorf("embed query: %w", ErrEmptyEmbedding)
	}

	docs, err := r.store.SearchByVector(ctx, CollectionName(projectID), vec, limit)
	if errors.Is(err, vectorstore.ErrCollectionNotFound) {
		return []models.RetrievedDocument{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	if docs == nil {
		docs = []models.RetrievedDocument{}
	}
	if len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}
