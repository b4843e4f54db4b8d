package painpoint

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// Tokenize lower-cases text and returns its maximal runs of letters, digits
// and underscores that are at least two runes long.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= 2 {
			out = append(out, f)
		}
	}
	return out
}

// Analyze turns a document into its unigram and bigram terms.  Stop words are
// removed before bigrams are formed, so "battery is weak" yields the bigram
// "battery weak".
func Analyze(text string) []string {
	var words []string
	for _, tok := range Tokenize(text) {
		if !IsStopWord(tok) {
			words = append(words, tok)
		}
	}
	terms := make([]string, 0, 2*len(words))
	terms = append(terms, words...)
	for i := 0; i+1 < len(words); i++ {
		terms = append(terms, words[i]+" "+words[i+1])
	}
	return terms
}

// Matrix is a dense document-term TF-IDF matrix.  Terms is sorted lexically
// and Rows[i][j] is the weight of Terms[j] in document i.
type Matrix struct {
	Terms []string
	IDF   []float64
	Rows  [][]float64
}

// FitTransform builds a vocabulary of at most maxFeatures terms, chosen by
// total frequency across docs (ties broken lexically), and weights each
// document with raw term counts scaled by the smoothed inverse document
// frequency ln((1+n)/(1+df))+1.  Each row is L2-normalized.
//
// It returns nil when the documents yield no terms at all.
func FitTransform(docs []string, maxFeatures int) *Matrix {
	counts := make([]map[string]int, len(docs))
	total := make(map[string]int)
	df := make(map[string]int)
	for i, d := range docs {
		c := make(map[string]int)
		for _, term := range Analyze(d) {
			c[term]++
		}
		for term, n := range c {
			total[term] += n
			df[term]++
		}
		counts[i] = c
	}
	if len(total) == 0 {
		return nil
	}

	terms := make([]string, 0, len(total))
	for term := range total {
		terms = append(terms, term)
	}
	if maxFeatures > 0 && len(terms) > maxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if total[terms[i]] != total[terms[j]] {
				return total[terms[i]] > total[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:maxFeatures]
	}
	sort.Strings(terms)

	n := float64(len(docs))
	idf := make([]float64, len(terms))
	for j, term := range terms {
		idf[j] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	rows := make([][]float64, len(docs))
	for i, c := range counts {
		row := make([]float64, len(terms))
		var norm float64
		for j, term := range terms {
			w := float64(c[term]) * idf[j]
			row[j] = w
			norm += w * w
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for j := range row {
				row[j] /= norm
			}
		}
		rows[i] = row
	}
	return &Matrix{Terms: terms, IDF: idf, Rows: rows}
}

// TopTerms returns up to k terms of document i with a positive weight,
// heaviest first.  Equal weights are ordered lexically.
func (m *Matrix) TopTerms(i, k int) []string {
	if m == nil || i < 0 || i >= len(m.Rows) || k <= 0 {
		return nil
	}
	row := m.Rows[i]
	idx := make([]int, 0, len(row))
	for j, w := range row {
		if w > 0 {
			idx = append(idx, j)
		}
	}
	sort.Slice(idx, func(a, b int) bool {
		wa, wb := row[idx[a]], row[idx[b]]
		if wa != wb {
			return wa > wb
		}
		return m.Terms[idx[a]] < m.Terms[idx[b]]
	})
	if len(idx) > k {
		idx = idx[:k]
	}
	out := make([]string, len(idx))
	for n, j := range idx {
		out[n] = m.Terms[j]
	}
	return out
}
