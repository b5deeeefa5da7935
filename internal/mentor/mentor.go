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

// Package mentor is the composition root of the question-answer cycle:
// memory lookup first, the four-stage pipeline on a miss, and the explicit
// human-approval commit back into memory.
package mentor

import (
	"context"
	"errors"
	"fmt"

	"github.com/mathmentor/mathmentor/internal/knowledge"
	"github.com/mathmentor/mathmentor/internal/llm"
	"github.com/mathmentor/mathmentor/internal/llm/prompt"
	"github.com/mathmentor/mathmentor/internal/log"
	"github.com/mathmentor/mathmentor/internal/memory"
	"github.com/mathmentor/mathmentor/internal/pipeline"
	"github.com/mathmentor/mathmentor/internal/pipeline/stages"
)

// ErrMemoryWrite marks a failed approval commit. The answer the user already
// saw stays valid; only the remembering failed.
var ErrMemoryWrite = errors.New("memory write failed")

// Options tune the pipeline without changing its topology.
type Options struct {
	TopK         int         // snippets per retrieval, default 3
	MaxRevisions int         // rejection-loop bound, default 0 (straight-through)
	Prompts      *prompt.Set // stage instructions, default embedded prompts
}

// Mentor wires the memory store, retriever and completion service into one
// question-answering surface. All collaborators are injected.
type Mentor struct {
	store *memory.Store
	orch  *pipeline.Orchestrator
}

// Result is what a caller gets back from Ask.
type Result struct {
	Answer           string
	FromMemory       bool
	RetrievedContext string
	State            *pipeline.State // nil when the answer came from memory
}

func New(store *memory.Store, retriever knowledge.Retriever, completer llm.Completer, opts Options) *Mentor {
	var prompts prompt.Set
	if opts.Prompts != nil {
		prompts = *opts.Prompts
	}
	return &Mentor{
		store: store,
		orch: &pipeline.Orchestrator{
			Parser:       &stages.ParseStage{},
			Solver:       &stages.SolveStage{Retriever: retriever, Completer: completer, TopK: opts.TopK, Prompt: prompts.Solver},
			Verifier:     &stages.VerifyStage{Completer: completer, Prompt: prompts.Verifier},
			Explainer:    &stages.ExplainStage{Completer: completer, Prompt: prompts.Explainer},
			MaxRevisions: opts.MaxRevisions,
		},
	}
}

// Run executes the full pipeline for one question, bypassing memory.
// It either returns a state with a non-empty FinalAnswer or an error.
func (m *Mentor) Run(ctx context.Context, question string) (*pipeline.State, error) {
	return m.orch.Run(ctx, pipeline.NewState(question))
}

// Ask answers a question, trying remembered answers before the pipeline.
func (m *Mentor) Ask(ctx context.Context, question string) (*Result, error) {
	if answer, ok, err := m.store.Lookup(question); err != nil {
		// A broken memory file must not block solving; log and move on.
		log.Error("Memory lookup: %v", err)
	} else if ok {
		log.Info("Memory hit for question")
		return &Result{Answer: answer, FromMemory: true}, nil
	}

	st, err := m.Run(ctx, question)
	if err != nil {
		return nil, err
	}
	return &Result{
		Answer:           st.FinalAnswer,
		RetrievedContext: st.RetrievedContext,
		State:            st,
	}, nil
}

// Lookup checks memory only, without running the pipeline.
func (m *Mentor) Lookup(question string) (answer string, ok bool, err error) {
	return m.store.Lookup(question)
}

// Approve commits a human-confirmed answer to memory. Failures are reported
// under ErrMemoryWrite so callers can distinguish them from pipeline errors.
func (m *Mentor) Approve(question, answer string) error {
	if err := m.store.Commit(question, answer); err != nil {
		return fmt.Errorf("%w: %v", ErrMemoryWrite, err)
	}
	return nil
}
