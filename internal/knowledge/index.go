// Copyright 2025 Math Mentor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package knowledge

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/fsnotify/fsnotify"

	"github.com/mathmentor/mathmentor/internal/log"
	"github.com/mathmentor/mathmentor/internal/utils"
)

const (
	// Chunking parameters for knowledge base documents.
	chunkSize    = 500
	chunkOverlap = 50
)

// indexFile is the on-disk layout of a built index.
type indexFile struct {
	BuiltAt time.Time `json:"built_at"`
	Chunks  []Snippet `json:"chunks"`
}

var _ Retriever = (*Index)(nil)

// Index is a lexical snippet index over the knowledge base. Ranking is
// term-overlap scoring; semantic similarity is intentionally out of scope.
type Index struct {
	mu     sync.RWMutex
	path   string
	chunks []Snippet
	terms  []map[string]int // per-chunk term frequencies, parallel to chunks
}

// BuildIndex ingests every *.txt document under kbDir, splits it into
// overlapping chunks and persists the result at indexPath.
func BuildIndex(kbDir string, indexPath string) (int, error) {
	entries, err := filepath.Glob(filepath.Join(kbDir, "*.txt"))
	if err != nil {
		return 0, utils.WrapErrorf(err, "scan knowledge base %s", kbDir)
	}
	sort.Strings(entries)

	var chunks []Snippet
	for _, file := range entries {
		data, err := os.ReadFile(file)
		if err != nil {
			return 0, utils.WrapErrorf(err, "read document %s", file)
		}
		for _, c := range splitChunks(string(data), chunkSize, chunkOverlap) {
			chunks = append(chunks, Snippet{Content: c, Source: filepath.Base(file)})
		}
	}
	log.Info("Indexed %d documents into %d chunks", len(entries), len(chunks))

	data, err := utils.MarshalJSONIndent(indexFile{BuiltAt: time.Now(), Chunks: chunks})
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(indexPath), 0755); err != nil {
		return 0, err
	}
	if err := os.WriteFile(indexPath, []byte(data), 0644); err != nil {
		return 0, utils.WrapErrorf(err, "write index %s", indexPath)
	}
	return len(chunks), nil
}

// OpenIndex loads a previously built index. A missing index file yields
// ErrIndexNotBuilt so callers can tell it apart from an empty result set.
func OpenIndex(indexPath string) (*Index, error) {
	idx := &Index{path: indexPath}
	if err := idx.reload(); err != nil {
		return nil, err
	}
	return idx, nil
}

func (i *Index) reload() error {
	data, err := os.ReadFile(i.path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrIndexNotBuilt
		}
		return utils.WrapErrorf(err, "read index %s", i.path)
	}
	var f indexFile
	if err := json.Unmarshal(data, &f); err != nil {
		return utils.WrapErrorf(err, "decode index %s", i.path)
	}
	terms := make([]map[string]int, len(f.Chunks))
	for n, c := range f.Chunks {
		terms[n] = termFreq(c.Content)
	}
	i.mu.Lock()
	i.chunks = f.Chunks
	i.terms = terms
	i.mu.Unlock()
	return nil
}

// Query implements Retriever.
func (i *Index) Query(ctx context.Context, text string, k int) ([]Snippet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	query := termFreq(text)

	i.mu.RLock()
	defer i.mu.RUnlock()

	type scored struct {
		pos   int
		score float64
	}
	var hits []scored
	for n, tf := range i.terms {
		s := overlapScore(query, tf)
		if s > 0 {
			hits = append(hits, scored{pos: n, score: s})
		}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].score > hits[b].score })

	if k > len(hits) {
		k = len(hits)
	}
	out := make([]Snippet, 0, k)
	for _, h := range hits[:k] {
		out = append(out, i.chunks[h.pos])
	}
	return out, nil
}

// Watch rebuilds and reloads the index whenever a knowledge base document is
// written, created or removed.
func (i *Index) Watch(kbDir string) error {
	return utils.WatchDir(kbDir, func(op fsnotify.Op, file string) {
		if !strings.HasSuffix(file, ".txt") {
			return
		}
		if op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove) == 0 {
			return
		}
		if _, err := BuildIndex(kbDir, i.path); err != nil {
			log.Error("Rebuild index after change to %s: %v", file, err)
			return
		}
		if err := i.reload(); err != nil {
			log.Error("Reload index: %v", err)
		}
	})
}

// overlapScore sums, over the shared vocabulary, the chunk's term frequency
// weighted by the query's. Longer overlapping vocabulary ranks higher.
func overlapScore(query, chunk map[string]int) float64 {
	var s float64
	for term, qn := range query {
		if cn, ok := chunk[term]; ok {
			s += float64(qn * cn)
		}
	}
	return s
}

func termFreq(text string) map[string]int {
	tf := make(map[string]int)
	for _, tok := range tokenize(text) {
		tf[tok]++
	}
	return tf
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) > 1 {
			out = append(out, f)
		}
	}
	return out
}

// splitChunks windows text into chunks of at most size runes with the given
// overlap, preferring to break on whitespace.
func splitChunks(text string, size, overlap int) []string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= size {
		return []string{string(runes)}
	}
	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			chunks = append(chunks, strings.TrimSpace(string(runes[start:])))
			break
		}
		cut := end
		for cut > start+overlap && !unicode.IsSpace(runes[cut-1]) {
			cut--
		}
		if cut == start+overlap {
			cut = end // no whitespace found, hard cut
		}
		chunks = append(chunks, strings.TrimSpace(string(runes[start:cut])))
		start = cut - overlap
	}
	return chunks
}
