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

// Package knowledge indexes the curated knowledge base and serves ranked
// snippet lookups for the solver stage.
package knowledge

import (
	"context"
	"errors"
)

// ErrIndexNotBuilt reports that the index has never been built. It is a
// distinct condition from a query with zero matches.
var ErrIndexNotBuilt = errors.New("knowledge index not built, run the index action first")

// Snippet is one retrieved passage with its source attribution.
type Snippet struct {
	Content string `json:"content"`
	Source  string `json:"source"`
}

// Retriever returns the k most relevant snippets for a query, best first.
// Zero matches yield an empty slice, not an error.
type Retriever interface {
	Query(ctx context.Context, text string, k int) ([]Snippet, error)
}
