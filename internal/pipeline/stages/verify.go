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

	"github.com/mathmentor/mathmentor/internal/llm"
	"github.com/mathmentor/mathmentor/internal/llm/prompt"
	"github.com/mathmentor/mathmentor/internal/pipeline"
)

// RejectionMarker is the token the verifier prompt asks the model to emit
// for a wrong solution. Its absence means approval: ambiguity passes.
const RejectionMarker = "REJECTED"

// VerifyStage asks the completion service to judge the draft solution and
// records the verdict plus the full critique text verbatim.
type VerifyStage struct {
	Completer llm.Completer
	Prompt    prompt.Prompt // overrides the embedded instructions when set
}

// Name implements pipeline.Stage.
func (s *VerifyStage) Name() string { return "verifier" }

// Run implements pipeline.Stage.
func (s *VerifyStage) Run(ctx context.Context, st *pipeline.State) (*pipeline.Delta, error) {
	if st.Parsed == nil {
		return nil, fmt.Errorf("parsed problem missing")
	}
	user := fmt.Sprintf("Problem: %s\nSolution: %s", st.Parsed.Problem, st.SolutionPlan)
	critique, err := s.Completer.Complete(ctx, s.system(), user)
	if err != nil {
		return nil, err
	}

	status := pipeline.StatusApproved
	if strings.Contains(critique, RejectionMarker) {
		status = pipeline.StatusRejected
	}
	return &pipeline.Delta{
		VerificationStatus: status,
		Critique:           &critique,
		Note:               fmt.Sprintf("Verifier: %s.", status),
	}, nil
}

func (s *VerifyStage) system() string {
	if s.Prompt != nil {
		return s.Prompt.String()
	}
	return prompt.PromptVerifier
}
