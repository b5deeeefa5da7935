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

package stages

import (
	"context"
	"fmt"
	"strings"

	"github.com/mathmentor/mathmentor/internal/knowledge"
	"github.com/mathmentor/mathmentor/internal/llm"
	"github.com/mathmentor/mathmentor/internal/llm/prompt"
	"github.com/mathmentor/mathmentor/internal/pipeline"
	"github.com/mathmentor/mathmentor/internal/utils"
)

// DefaultTopK is how many snippets the solver requests from the retriever.
const DefaultTopK = 3

// SolveStage retrieves knowledge base context for the problem and drafts a
// step-by-step solution with the completion service. A missing index aborts
// the run; zero matches just mean an empty context.
type SolveStage struct {
	Retriever knowledge.Retriever
	Completer llm.Completer
	TopK      int
	Prompt    prompt.Prompt // overrides the embedded instructions when set
}

// Name implements pipeline.Stage.
func (s *SolveStage) Name() string { return "solver" }

// Run implements pipeline.Stage.
func (s *SolveStage) Run(ctx context.Context, st *pipeline.State) (*pipeline.Delta, error) {
	if st.Parsed == nil {
		return nil, fmt.Errorf("parsed problem missing")
	}
	k := s.TopK
	if k <= 0 {
		k = DefaultTopK
	}

	snippets, err := s.Retriever.Query(ctx, st.Parsed.Problem, k)
	if err != nil {
		return nil, utils.WrapError(err, "retrieve context")
	}
	parts := make([]string, 0, len(snippets))
	for _, sn := range snippets {
		parts = append(parts, sn.Content)
	}
	retrieved := strings.Join(parts, "\n")

	user := fmt.Sprintf("Problem: %s\nContext: %s", st.Parsed.Problem, retrieved)
	// On a revision pass the previous verdict travels with the problem.
	if st.Revisions > 0 && st.Critique != "" {
		user += fmt.Sprintf("\nYour previous solution was rejected with this critique: %s\nRevise the solution accordingly.", st.Critique)
	}

	plan, err := s.Completer.Complete(ctx, s.system(), user)
	if err != nil {
		return nil, err
	}
	return &pipeline.Delta{
		RetrievedContext: &retrieved,
		SolutionPlan:     &plan,
		Note:             fmt.Sprintf("Solver: retrieved %d snippets and drafted solution.", len(snippets)),
	}, nil
}

func (s *SolveStage) system() string {
	if s.Prompt != nil {
		return s.Prompt.String()
	}
	return prompt.PromptSolver
}
