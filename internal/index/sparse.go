package index

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
)

// BM25 parameter defaults.
const (
	DefaultK1 = 1.5
	DefaultB  = 0.75
)

// Sparse is a BM25 index over tokenized chunks. Document position i in the
// index is chunk id i.
type Sparse struct {
	k1       float64
	b        float64
	docTerms []map[string]int // per-doc term frequencies
	docLens  []int
	avgdl    float64

	postings map[string][]posting // rebuilt from docTerms, never serialized
}

type posting struct {
	doc int
	tf  int
}

// NewSparse creates an empty index with the given parameters; zero values
// select the defaults.
func NewSparse(k1, b float64) *Sparse {
	if k1 <= 0 {
		k1 = DefaultK1
	}
	if b <= 0 {
		b = DefaultB
	}
	return &Sparse{k1: k1, b: b}
}

// Build indexes the token lists, one per chunk in chunk-id order.
func (s *Sparse) Build(tokenLists [][]string) {
	s.docTerms = make([]map[string]int, len(tokenLists))
	s.docLens = make([]int, len(tokenLists))

	totalLen := 0
	for i, tokens := range tokenLists {
		tf := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		s.docTerms[i] = tf
		s.docLens[i] = len(tokens)
		totalLen += len(tokens)
	}

	s.avgdl = 0
	if len(tokenLists) > 0 {
		s.avgdl = float64(totalLen) / float64(len(tokenLists))
	}

	s.buildPostings()
}

func (s *Sparse) buildPostings() {
	s.postings = make(map[string][]posting)
	for doc, tf := range s.docTerms {
		for term, count := range tf {
			s.postings[term] = append(s.postings[term], posting{doc: doc, tf: count})
		}
	}
}

// NDocs returns the number of indexed documents.
func (s *Sparse) NDocs() int { return len(s.docTerms) }

// Search scores the query tokens against the corpus and returns up to k
// hits in descending score, ties broken by ascending chunk id. Only
// documents containing at least one query term are scored.
func (s *Sparse) Search(queryTokens []string, k int) []Hit {
	n := len(s.docTerms)
	if n == 0 || k <= 0 || len(queryTokens) == 0 {
		return nil
	}

	scores := make(map[int]float64)
	for _, term := range queryTokens {
		plist := s.postings[term]
		if len(plist) == 0 {
			continue
		}

		idf := math.Log((float64(n)-float64(len(plist))+0.5)/(float64(len(plist))+0.5) + 1)
		for _, p := range plist {
			tf := float64(p.tf)
			dl := float64(s.docLens[p.doc])
			scores[p.doc] += idf * (tf * (s.k1 + 1)) / (tf + s.k1*(1-s.b+s.b*dl/s.avgdl))
		}
	}

	hits := make([]Hit, 0, len(scores))
	for doc, score := range scores {
		hits = append(hits, Hit{ID: doc, Score: float32(score)})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// sparseFile is the self-contained JSON form: enough to restore search
// behavior without re-tokenizing the corpus.
type sparseFile struct {
	K1        float64          `json:"k1"`
	B         float64          `json:"b"`
	AvgDocLen float64          `json:"avg_doc_len"`
	DocLens   []int            `json:"doc_lens"`
	DocTerms  []map[string]int `json:"doc_terms"`
	DocFreqs  map[string]int   `json:"doc_freqs"`
}

// Save serializes the index to path as JSON.
func (s *Sparse) Save(path string) error {
	df := make(map[string]int, len(s.postings))
	for term, plist := range s.postings {
		df[term] = len(plist)
	}

	data, err := json.Marshal(sparseFile{
		K1:        s.k1,
		B:         s.b,
		AvgDocLen: s.avgdl,
		DocLens:   s.docLens,
		DocTerms:  s.docTerms,
		DocFreqs:  df,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal sparse index: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadSparse restores an index saved by Save.
func LoadSparse(path string) (*Sparse, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sparse index: %w", err)
	}

	var f sparseFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse sparse index: %w", err)
	}

	s := NewSparse(f.K1, f.B)
	s.docTerms = f.DocTerms
	s.docLens = f.DocLens
	s.avgdl = f.AvgDocLen
	s.buildPostings()
	return s, nil
}
