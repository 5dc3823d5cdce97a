package search

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode"
)

// Memory implements domain.SearchIndex entirely in memory. Documents are
// scored by term frequency, which is crude next to FTS5's BM25 ranking
// but serves tests and deployments that do not want a second database
// file. FTS5 operators in the expression are not interpreted; every token
// is treated as a plain term.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[int64][]string
}

// NewMemory creates an empty in-memory index.
func NewMemory() *Memory {
	return &Memory{collections: make(map[string]map[int64][]string)}
}

// Upsert stores the document's tokens under id, replacing any previous
// version.
func (m *Memory) Upsert(ctx context.Context, collection string, id int64, fields map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	docs := m.collections[collection]
	if docs == nil {
		docs = make(map[int64][]string)
		m.collections[collection] = docs
	}
	docs[id] = tokenize(foldFields(fields))
	return nil
}

// Delete removes the document under id; unknown ids are a no-op.
func (m *Memory) Delete(ctx context.Context, collection string, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.collections[collection], id)
	return nil
}

// Query scores every document in the collection against the expression's
// terms and returns the requested page, best score first with ties broken
// by ascending id.
func (m *Memory) Query(ctx context.Context, collection, expression string, page, perPage int) ([]int64, int, error) {
	terms := tokenize(expression)
	if len(terms) == 0 {
		return []int64{}, 0, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	type hit struct {
		id    int64
		score int
	}
	hits := []hit{}
	for id, words := range m.collections[collection] {
		score := 0
		for _, term := range terms {
			for _, word := range words {
				if word == term {
					score++
				}
			}
		}
		if score > 0 {
			hits = append(hits, hit{id: id, score: score})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].id < hits[j].id
	})

	total := len(hits)
	if perPage < 0 {
		perPage = 0
	}
	start := queryOffset(page, perPage)
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	ids := make([]int64, 0, end-start)
	for _, h := range hits[start:end] {
		ids = append(ids, h.id)
	}
	return ids, total, nil
}

// Reset drops every document in the collection.
func (m *Memory) Reset(ctx context.Context, collection string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.collections, collection)
	return nil
}

// tokenize lowercases s and splits it on anything that is not a letter or
// digit.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
