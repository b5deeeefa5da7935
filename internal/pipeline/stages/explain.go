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

	"github.com/mathmentor/mathmentor/internal/llm"
	"github.com/mathmentor/mathmentor/internal/llm/prompt"
	"github.com/mathmentor/mathmentor/internal/pipeline"
)

// ExplainStage reformats the solution plan into a student-friendly answer.
// It reads the plan, not the critique; a rejected verdict flows through
// unchanged under the straight-through policy.
type ExplainStage struct {
	Completer llm.Completer
	Prompt    prompt.Prompt // overrides the embedded instructions when set
}

// Name implements pipeline.Stage.
func (s *ExplainStage) Name() string { return "explainer" }

// Run implements pipeline.Stage.
func (s *ExplainStage) Run(ctx context.Context, st *pipeline.State) (*pipeline.Delta, error) {
	user := fmt.Sprintf("Solution: %s", st.SolutionPlan)
	answer, err := s.Completer.Complete(ctx, s.system(), user)
	if err != nil {
		return nil, err
	}
	return &pipeline.Delta{
		FinalAnswer: &answer,
		Note:        "Explainer: formatted final answer.",
	}, nil
}

func (s *ExplainStage) system() string {
	if s.Prompt != nil {
		return s.Prompt.String()
	}
	return prompt.PromptExplainer
}
