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

// Package stages holds the four stage implementations wired into the
// orchestrator: parse, solve, verify, explain.
package stages

import (
	"context"
	"fmt"
	"strings"

	"github.com/mathmentor/mathmentor/internal/pipeline"
)

// ParseStage wraps the raw input into the structured problem record. It does
// structural wrapping only; clarification detection is an extension point,
// so NeedsClarification is always false for now.
type ParseStage struct{}

// Name implements pipeline.Stage.
func (s *ParseStage) Name() string { return "parser" }

// Run implements pipeline.Stage.
func (s *ParseStage) Run(ctx context.Context, st *pipeline.State) (*pipeline.Delta, error) {
	if strings.TrimSpace(st.InputText) == "" {
		return nil, fmt.Errorf("input text is empty")
	}
	return &pipeline.Delta{
		Parsed: &pipeline.ParsedProblem{
			Problem:            st.InputText,
			Topic:              "Math",
			NeedsClarification: false,
		},
		Note: "Parser: processed input.",
	}, nil
}
