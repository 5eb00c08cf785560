package storage

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// ftsIndex is a hand-rolled BM25 full-text index, grounded on the
// contributed hybrid-retrieval engine's bm25Index: postings map, a
// document-frequency table, and the standard BM25 scoring formula.
// It stands in for the "create_fts_index" step of a real columnar store,
// which builds its own inverted index over the text column.
type ftsIndex struct {
	mu       sync.RWMutex
	docFreq  map[string]int
	postings map[string]map[string]int // term -> (row id -> term frequency)
	docLen   map[string]int            // row id -> token count
	totalLen int
	docCount int
	k1       float64
	b        float64
	built    bool
}

var ftsTokenPattern = regexp.MustCompile(`\p{L}[\p{L}\p{M}]*|\p{N}+`)

func newFTSIndex() *ftsIndex {
	return &ftsIndex{
		docFreq:  make(map[string]int),
		postings: make(map[string]map[string]int),
		docLen:   make(map[string]int),
		k1:       1.2,
		b:        0.75,
	}
}

func tokenize(s string) []string {
	return ftsTokenPattern.FindAllString(strings.ToLower(s), -1)
}

// Upsert indexes (or re-indexes) the text for a row id. Re-inserting an
// id first removes its prior contribution so re-indexing a row does not
// leak stale term statistics.
func (idx *ftsIndex) Upsert(id string, text string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(id)

	terms := tokenize(text)
	if len(terms) == 0 {
		return
	}
	idx.docCount++
	idx.docLen[id] = len(terms)
	idx.totalLen += len(terms)

	seen := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		if _, ok := idx.postings[term]; !ok {
			idx.postings[term] = make(map[string]int)
		}
		idx.postings[term][id]++
		if _, ok := seen[term]; !ok {
			idx.docFreq[term]++
			seen[term] = struct{}{}
		}
	}
}

func (idx *ftsIndex) removeLocked(id string) {
	length, existed := idx.docLen[id]
	if !existed {
		return
	}
	for term, posting := range idx.postings {
		if _, ok := posting[id]; ok {
			delete(posting, id)
			idx.docFreq[term]--
			if idx.docFreq[term] <= 0 {
				delete(idx.docFreq, term)
			}
		}
	}
	delete(idx.docLen, id)
	idx.totalLen -= length
	idx.docCount--
}

func (idx *ftsIndex) Reset() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.docFreq = make(map[string]int)
	idx.postings = make(map[string]map[string]int)
	idx.docLen = make(map[string]int)
	idx.totalLen = 0
	idx.docCount = 0
	idx.built = false
}

func (idx *ftsIndex) MarkBuilt() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.built = true
}

// Search returns up to k matches for query among allowed ids (nil means
// unrestricted), ranked by descending BM25 score.
func (idx *ftsIndex) Search(query string, k int, allowed map[string]struct{}) []ftsHit {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.docCount == 0 {
		return nil
	}
	terms := uniqueTokens(tokenize(query))
	if len(terms) == 0 {
		return nil
	}

	avgLen := float64(idx.totalLen) / float64(idx.docCount)
	scores := make(map[string]float64)
	for _, term := range terms {
		postings := idx.postings[term]
		if len(postings) == 0 {
			continue
		}
		df := float64(idx.docFreq[term])
		idf := math.Log((float64(idx.docCount)-df+0.5)/(df+0.5) + 1)
		for id, tf := range postings {
			if allowed != nil {
				if _, ok := allowed[id]; !ok {
					continue
				}
			}
			docLen := float64(idx.docLen[id])
			numerator := float64(tf) * (idx.k1 + 1)
			denominator := float64(tf) + idx.k1*(1-idx.b+idx.b*(docLen/avgLen))
			scores[id] += idf * (numerator / denominator)
		}
	}

	out := make([]ftsHit, 0, len(scores))
	for id, score := range scores {
		out = append(out, ftsHit{id: id, score: float32(score)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].score > out[j].score })
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

type ftsHit struct {
	id    string
	score float32
}

func uniqueTokens(tokens []string) []string {
	if len(tokens) == 0 {
		return tokens
	}
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
