// Package eval measures how often retrieval surfaces the document a
// question was written against.
package eval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/nikhilbhutani/ragguard/internal/models"
)

// DefaultTopK matches the number of documents the answer route retrieves.
const DefaultTopK = 5

type Question struct {
	Question    string `json:"question"`
	ExpectedDoc string `json:"expected_doc"`
}

// Retriever is satisfied by *rag.Retriever.
type Retriever interface {
	Retrieve(ctx context.Context, projectID, query string, limit int) ([]models.RetrievedDocument, error)
}

type Result struct {
	Question  Question `json:"question"`
	Hit       bool     `json:"hit"`
	Retrieved []string `json:"retrieved"`
	Err       string   `json:"error,omitempty"`
}

type Report struct {
	Results []Result `json:"results"`
	Hits    int      `json:"hits"`
	Total   int      `json:"total"`
}

// HitRate is Hits/Total, or 0 for an empty run.
func (r *Report) HitRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Hits) / float64(r.Total)
}

func LoadQuestions(path string) ([]Question, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open questions: %w", err)
	}
	defer f.Close()
	return ReadQuestions(f)
}

func ReadQuestions(r io.Reader) ([]Question, error) {
	var qs []Question
	if err := json.NewDecoder(r).Decode(&qs); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	for i, q := range qs {
		if q.Question == "" || q.ExpectedDoc == "" {
			return nil, fmt.Errorf("question %d: question and expected_doc are required", i)
		}
	}
	return qs, nil
}

// Run retrieves topK documents per question. A question whose retrieval
// fails counts as a miss; only context cancellation aborts the run.
func Run(ctx context.Context, r Retriever, projectID string, questions []Question, topK int) (*Report, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	report := &Report{Total: len(questions)}
	for _, q := range questions {
		res := Result{Question: q, Retrieved: []string{}}
		docs, err := r.Retrieve(ctx, projectID, q.Question, topK)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			res.Err = err.Error()
		}
		for _, d := range docs {
			res.Retrieved = append(res.Retrieved, d.DocName)
		}
		res.Hit = slices.Contains(res.Retrieved, q.ExpectedDoc)
		if res.Hit {
			report.Hits++
		}
		report.Results = append(report.Results, res)
	}
	return report, nil
}
