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
	"errors"
	"fmt"
	"testing"
)

// mockStage returns a fixed delta, counting its runs.
type mockStage struct {
	name  string
	delta func(st *State) *Delta
	err   error
	runs  int
}

func (m *mockStage) Name() string { return m.name }

func (m *mockStage) Run(ctx context.Context, st *State) (*Delta, error) {
	m.runs++
	if m.err != nil {
		return nil, m.err
	}
	if m.delta == nil {
		return &Delta{Note: m.name + ": done."}, nil
	}
	return m.delta(st), nil
}

func strptr(s string) *string { return &s }

func approvingPipeline() (*Orchestrator, *mockStage, *mockStage) {
	solver := &mockStage{name: "solver", delta: func(st *State) *Delta {
		return &Delta{
			RetrievedContext: strptr("power rule"),
			SolutionPlan:     strptr(fmt.Sprintf("plan v%d", st.Revisions+1)),
			Note:             "Solver: drafted solution.",
		}
	}}
	verifier := &mockStage{name: "verifier", delta: func(st *State) *Delta {
		return &Delta{
			VerificationStatus: StatusApproved,
			Critique:           strptr("looks right"),
			Note:               "Verifier: approved.",
		}
	}}
	o := &Orchestrator{
		Parser: &mockStage{name: "parser", delta: func(st *State) *Delta {
			return &Delta{
				Parsed: &ParsedProblem{Problem: st.InputText, Topic: "Math"},
				Note:   "Parser: processed input.",
			}
		}},
		Solver:   solver,
		Verifier: verifier,
		Explainer: &mockStage{name: "explainer", delta: func(st *State) *Delta {
			return &Delta{FinalAnswer: strptr("2x"), Note: "Explainer: formatted final answer."}
		}},
	}
	return o, solver, verifier
}

func TestOrchestrator_Run_Success(t *testing.T) {
	o, _, _ := approvingPipeline()
	st, err := o.Run(context.Background(), NewState("What is the derivative of x^2?"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.FinalAnswer == "" {
		t.Fatal("expected FinalAnswer to be set")
	}
	if st.InputText != "What is the derivative of x^2?" {
		t.Errorf("InputText changed: %q", st.InputText)
	}
	if st.Parsed == nil || st.Parsed.Problem != st.InputText {
		t.Errorf("Parsed: %+v", st.Parsed)
	}
	if st.RetrievedContext != "power rule" {
		t.Errorf("RetrievedContext: %q", st.RetrievedContext)
	}
	if st.VerificationStatus != StatusApproved {
		t.Errorf("VerificationStatus: %q", st.VerificationStatus)
	}
}

func TestOrchestrator_TraceOneRecordPerStage(t *testing.T) {
	o, _, _ := approvingPipeline()
	st, err := o.Run(context.Background(), NewState("q"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(st.Trace) != 4 {
		t.Fatalf("expected 4 trace records, got %d", len(st.Trace))
	}
	order := []string{"parser", "solver", "verifier", "explainer"}
	for i, want := range order {
		if st.Trace[i].Stage != want {
			t.Errorf("trace[%d]: got %q, want %q", i, st.Trace[i].Stage, want)
		}
		if st.Trace[i].Note == "" {
			t.Errorf("trace[%d]: empty note", i)
		}
	}
}

func TestOrchestrator_EmptyInputRejected(t *testing.T) {
	o, _, _ := approvingPipeline()
	for _, input := range []string{"", "   ", "\n\t"} {
		if _, err := o.Run(context.Background(), NewState(input)); !errors.Is(err, ErrEmptyInput) {
			t.Errorf("input %q: got %v, want ErrEmptyInput", input, err)
		}
	}
}

func TestOrchestrator_StraightThroughOnRejection(t *testing.T) {
	o, solver, verifier := approvingPipeline()
	verifier.delta = func(st *State) *Delta {
		return &Delta{
			VerificationStatus: StatusRejected,
			Critique:           strptr("REJECTED: sign error"),
			Note:               "Verifier: rejected.",
		}
	}

	st, err := o.Run(context.Background(), NewState("q"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Default policy: rejection still reaches the explainer, once.
	if solver.runs != 1 {
		t.Errorf("solver runs: got %d, want 1", solver.runs)
	}
	if st.FinalAnswer == "" {
		t.Error("expected FinalAnswer despite rejection")
	}
	if st.VerificationStatus != StatusRejected {
		t.Errorf("VerificationStatus: %q", st.VerificationStatus)
	}
	if st.Critique == "" {
		t.Error("expected critique to be kept verbatim")
	}
	if len(st.Trace) != 4 {
		t.Errorf("trace records: got %d, want 4", len(st.Trace))
	}
}

func TestOrchestrator_RevisionLoop(t *testing.T) {
	o, solver, verifier := approvingPipeline()
	o.MaxRevisions = 2
	// Reject until the second revision.
	verifier.delta = func(st *State) *Delta {
		status := StatusRejected
		if st.Revisions >= 1 {
			status = StatusApproved
		}
		return &Delta{VerificationStatus: status, Critique: strptr("c"), Note: "Verifier: done."}
	}

	st, err := o.Run(context.Background(), NewState("q"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if solver.runs != 2 {
		t.Errorf("solver runs: got %d, want 2", solver.runs)
	}
	if st.Revisions != 1 {
		t.Errorf("Revisions: got %d, want 1", st.Revisions)
	}
	if st.VerificationStatus != StatusApproved {
		t.Errorf("VerificationStatus: %q", st.VerificationStatus)
	}
	if st.SolutionPlan != "plan v2" {
		t.Errorf("SolutionPlan: %q", st.SolutionPlan)
	}
}

func TestOrchestrator_RevisionLoopBounded(t *testing.T) {
	o, solver, verifier := approvingPipeline()
	o.MaxRevisions = 2
	verifier.delta = func(st *State) *Delta {
		return &Delta{VerificationStatus: StatusRejected, Critique: strptr("c"), Note: "n"}
	}

	st, err := o.Run(context.Background(), NewState("q"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Initial attempt plus two bounded revisions, then straight through.
	if solver.runs != 3 {
		t.Errorf("solver runs: got %d, want 3", solver.runs)
	}
	if st.VerificationStatus != StatusRejected {
		t.Errorf("VerificationStatus: %q", st.VerificationStatus)
	}
	if st.FinalAnswer == "" {
		t.Error("expected FinalAnswer after exhausted revisions")
	}
}

func TestOrchestrator_AbortOnStageError(t *testing.T) {
	o, _, _ := approvingPipeline()
	boom := errors.New("retrieval unavailable")
	o.Solver = &mockStage{name: "solver", err: boom}

	st, err := o.Run(context.Background(), NewState("q"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, boom) {
		t.Errorf("error chain lost: %v", err)
	}
	if st != nil {
		t.Error("expected no partial state on abort")
	}
}

func TestOrchestrator_CallerStateNotMutated(t *testing.T) {
	o, _, _ := approvingPipeline()
	initial := NewState("q")
	if _, err := o.Run(context.Background(), initial); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(initial.Trace) != 0 || initial.FinalAnswer != "" {
		t.Error("orchestrator mutated the caller's state")
	}
}

func TestState_Clone(t *testing.T) {
	st := NewState("q")
	st.Parsed = &ParsedProblem{Problem: "q", Topic: "Math"}
	st.Trace = append(st.Trace, TraceRecord{Stage: "parser"})

	c := st.Clone()
	c.Parsed.Topic = "Algebra"
	c.Trace = append(c.Trace, TraceRecord{Stage: "solver"})

	if st.Parsed.Topic != "Math" {
		t.Error("clone shares ParsedProblem")
	}
	if len(st.Trace) != 1 {
		t.Error("clone shares trace slice")
	}
}
