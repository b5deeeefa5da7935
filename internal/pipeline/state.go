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
	"time"
)

// Status is the verifier's verdict on a draft solution.
type Status string

const (
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ParsedProblem is the parser stage's structured view of the raw input.
type ParsedProblem struct {
	Problem            string `json:"problem"`
	Topic              string `json:"topic"`
	NeedsClarification bool   `json:"needs_clarification"`
}

// State is the single record threaded through all stages for one question.
// Fields are populated monotonically: a later stage may read anything an
// earlier stage set but never clears or overwrites InputText. The
// orchestrator owns all mutation; stages only return deltas.
type State struct {
	InputText          string         `json:"input_text"`
	Parsed             *ParsedProblem `json:"parsed_data,omitempty"`
	RetrievedContext   string         `json:"retrieved_context"`
	SolutionPlan       string         `json:"solution_plan,omitempty"`
	VerificationStatus Status         `json:"verification_status,omitempty"`
	Critique           string         `json:"critique,omitempty"`
	FinalAnswer        string         `json:"final_answer,omitempty"`

	// Revisions counts how many times the solver was re-entered after a
	// rejection. Stays zero under the default straight-through policy.
	Revisions int `json:"revisions"`

	Trace []TraceRecord `json:"trace_log"`
}

// TraceRecord is an immutable log entry for one completed stage run.
// Records are only ever appended, never removed or reordered.
type TraceRecord struct {
	Stage string    `json:"stage"`
	Note  string    `json:"note"`
	Time  time.Time `json:"time"`
}

// NewState returns the initial state for one incoming question.
func NewState(inputText string) *State {
	return &State{InputText: inputText}
}

// Clone returns a copy of the state with its own trace slice, so a caller's
// snapshot is not aliased by later stage runs.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := *s
	out.Trace = append([]TraceRecord(nil), s.Trace...)
	if s.Parsed != nil {
		p := *s.Parsed
		out.Parsed = &p
	}
	return &out
}
