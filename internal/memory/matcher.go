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

package memory

import (
	"strings"
)

// Matcher scores how well an incoming question matches a stored one.
// A score of zero means no match; higher is better. The strategy is
// injectable so a vector-similarity matcher can replace the default
// without touching the store contract.
type Matcher interface {
	Score(query, stored string) float64
}

// ContainmentMatcher is the default heuristic: the incoming text must itself
// appear inside the stored question, case-folded and whitespace-trimmed.
// Short or generic queries can therefore match unrelated entries; that
// precision weakness is accepted for a small human-curated store.
type ContainmentMatcher struct{}

// Score implements Matcher.
func (ContainmentMatcher) Score(query, stored string) float64 {
	q := fold(query)
	if q == "" {
		return 0
	}
	if strings.Contains(fold(stored), q) {
		return 1
	}
	return 0
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
