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

// Package memory persists human-approved question/answer pairs and serves
// the containment-match lookups that short-circuit the pipeline.
package memory

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mathmentor/mathmentor/internal/utils"
)

// Entry is one approved question/answer pair. The log is append-only;
// duplicates and contradictory entries may coexist.
type Entry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Store is the append-only memory log. The whole file is read on every
// operation; entry count stays small because each entry needs an explicit
// human approval. Commits serialize through an exclusive lock file so
// concurrent writers never drop each other's entries, and writes go through
// a rename so readers never observe a partial file.
type Store struct {
	path    string
	matcher Matcher

	mu sync.Mutex // serializes commits within this process
}

type StoreOption func(*Store)

// WithMatcher overrides the default containment heuristic.
func WithMatcher(m Matcher) StoreOption {
	return func(s *Store) { s.matcher = m }
}

func NewStore(path string, opts ...StoreOption) *Store {
	s := &Store{
		path:    path,
		matcher: ContainmentMatcher{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Lookup scans entries in storage order and returns the answer of the first
// entry whose stored question matches the query. ok is false when nothing
// matches. A missing store file is an empty store, not an error.
func (s *Store) Lookup(question string) (answer string, ok bool, err error) {
	entries, err := s.load()
	if err != nil {
		return "", false, err
	}
	for _, e := range entries {
		if s.matcher.Score(question, e.Question) > 0 {
			return e.Answer, true, nil
		}
	}
	return "", false, nil
}

// Commit appends a new entry. The read-modify-write runs under the lock
// file, so two racing commits both land.
func (s *Store) Commit(question, answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.flock()
	if err != nil {
		return err
	}
	defer unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	entries = append(entries, Entry{Question: question, Answer: answer})

	// Questions carry math notation; keep "<" and ">" readable in the file.
	data, err := utils.MarshalJSONIndent(entries)
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return utils.WrapError(err, "create memory dir")
	}
	tmp, err := os.CreateTemp(dir, ".memory-*.json")
	if err != nil {
		return utils.WrapError(err, "write memory store")
	}
	if _, err := tmp.WriteString(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return utils.WrapError(err, "write memory store")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return utils.WrapError(err, "write memory store")
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return utils.WrapError(err, "replace memory store")
	}
	return nil
}

// Entries returns the full log in storage order, for curation tooling.
func (s *Store) Entries() ([]Entry, error) {
	return s.load()
}

func (s *Store) load() ([]Entry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, utils.WrapErrorf(err, "read memory store %s", s.path)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, utils.WrapErrorf(err, "decode memory store %s", s.path)
	}
	return entries, nil
}

// flock takes an exclusive lock file next to the store, waiting out other
// processes. Stale locks older than a minute are broken.
func (s *Store) flock() (func(), error) {
	lock := s.path + ".lock"
	if err := os.MkdirAll(filepath.Dir(lock), 0755); err != nil {
		return nil, utils.WrapError(err, "create memory dir")
	}
	deadline := time.Now().Add(5 * time.Second)
	for {
		f, err := os.OpenFile(lock, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			f.Close()
			return func() { os.Remove(lock) }, nil
		}
		if !os.IsExist(err) {
			return nil, utils.WrapError(err, "acquire memory lock")
		}
		if st, serr := os.Stat(lock); serr == nil && time.Since(st.ModTime()) > time.Minute {
			os.Remove(lock)
			continue
		}
		if time.Now().After(deadline) {
			return nil, utils.WrapErrorf(err, "memory lock %s held too long", lock)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
