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

// Package pipeline orchestrates the fixed Parser -> Solver -> Verifier ->
// Explainer sequence over an accumulating State.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mathmentor/mathmentor/internal/log"
)

// ErrEmptyInput reports a blank question, rejected before any stage runs.
var ErrEmptyInput = errors.New("empty problem text")

// Orchestrator owns the fixed stage topology. Every transition is
// unconditional except the single optional edge back from Verifier to
// Solver, taken only while MaxRevisions allows it.
type Orchestrator struct {
	Parser    Stage
	Solver    Stage
	Verifier  Stage
	Explainer Stage

	// MaxRevisions bounds the Verifier -> Solver rejection loop. Zero keeps
	// the straight-through behavior: a rejected solution still flows to the
	// Explainer, with the critique recorded in state.
	MaxRevisions int
}

// Run executes the pipeline for one question and returns the final state.
// On any stage error the run is abandoned: the caller gets the error and no
// partial state. A successful default run appends exactly one trace record
// per stage, in stage order.
func (o *Orchestrator) Run(ctx context.Context, st *State) (*State, error) {
	if st == nil {
		return nil, fmt.Errorf("pipeline: initial state is nil")
	}
	if strings.TrimSpace(st.InputText) == "" {
		return nil, ErrEmptyInput
	}

	cur := st.Clone()
	if err := o.runStage(ctx, o.Parser, cur); err != nil {
		return nil, err
	}

	for {
		if err := o.runStage(ctx, o.Solver, cur); err != nil {
			return nil, err
		}
		if err := o.runStage(ctx, o.Verifier, cur); err != nil {
			return nil, err
		}
		if cur.VerificationStatus != StatusRejected || cur.Revisions >= o.MaxRevisions {
			break
		}
		cur.Revisions++
		log.Info("Solution rejected, revising (%d/%d)", cur.Revisions, o.MaxRevisions)
	}

	if err := o.runStage(ctx, o.Explainer, cur); err != nil {
		return nil, err
	}
	return cur, nil
}

func (o *Orchestrator) runStage(ctx context.Context, stage Stage, st *State) error {
	if stage == nil {
		return fmt.Errorf("pipeline: stage is nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	delta, err := stage.Run(ctx, st)
	if err != nil {
		return fmt.Errorf("pipeline stage %q: %w", stage.Name(), err)
	}
	if delta == nil {
		delta = &Delta{}
	}
	merge(st, delta)
	st.Trace = append(st.Trace, TraceRecord{
		Stage: stage.Name(),
		Note:  delta.Note,
		Time:  time.Now(),
	})
	log.Debug("Stage %q done in %s", stage.Name(), time.Since(start))
	return nil
}
