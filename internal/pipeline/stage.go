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

package pipeline

import (
	"context"
)

// Stage is one unit of work in the pipeline. A stage reads the current state
// and returns a partial output; it never mutates the state it was given.
// The orchestrator merges the delta and records the trace entry.
type Stage interface {
	Name() string
	Run(ctx context.Context, st *State) (*Delta, error)
}

// Delta is a stage's partial output. Nil pointer fields leave the
// corresponding state field untouched; set fields are merged by the
// orchestrator in stage order.
type Delta struct {
	Parsed             *ParsedProblem
	RetrievedContext   *string
	SolutionPlan       *string
	VerificationStatus Status
	Critique           *string
	FinalAnswer        *string

	// Note is the human-readable stage-completion line for the trace log.
	Note string
}

func merge(st *State, d *Delta) {
	if d == nil {
		return
	}
	if d.Parsed != nil {
		st.Parsed = d.Parsed
	}
	if d.RetrievedContext != nil {
		st.RetrievedContext = *d.RetrievedContext
	}
	if d.SolutionPlan != nil {
		st.SolutionPlan = *d.SolutionPlan
	}
	if d.VerificationStatus != "" {
		st.VerificationStatus = d.VerificationStatus
	}
	if d.Critique != nil {
		st.Critique = *d.Critique
	}
	if d.FinalAnswer != nil {
		st.FinalAnswer = *d.FinalAnswer
	}
}
