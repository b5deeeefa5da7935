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

package mcp

import (
	"context"

	"github.com/mathmentor/mathmentor/internal/knowledge"
	"github.com/mathmentor/mathmentor/internal/mentor"
	"github.com/mathmentor/mathmentor/internal/pipeline/stages"
	"github.com/mathmentor/mathmentor/internal/utils"
)

const (
	ToolSolveProblem    = "solve_math_problem"
	DescSolveProblem    = "solve a math problem through the verified pipeline, reusing remembered answers when possible"
	ToolLookupMemory    = "lookup_memory"
	DescLookupMemory    = "look up a previously approved answer for a similar question"
	ToolCommitMemory    = "commit_memory"
	DescCommitMemory    = "save a human-approved question/answer pair to memory"
	ToolSearchKnowledge = "search_knowledge"
	DescSearchKnowledge = "search the curated knowledge base for relevant passages"
)

var (
	SchemaSolveProblem    = utils.GetJSONSchema(SolveReq{})
	SchemaLookupMemory    = utils.GetJSONSchema(LookupReq{})
	SchemaCommitMemory    = utils.GetJSONSchema(CommitReq{})
	SchemaSearchKnowledge = utils.GetJSONSchema(SearchReq{})
)

type SolveReq struct {
	Question string `json:"question" jsonschema:"description=the math problem to solve"`
}

type SolveResp struct {
	Answer             string `json:"answer" jsonschema:"description=the final student-facing answer"`
	FromMemory         bool   `json:"from_memory" jsonschema:"description=whether the answer was reused from memory"`
	RetrievedContext   string `json:"retrieved_context,omitempty" jsonschema:"description=the knowledge base passages the solver used"`
	VerificationStatus string `json:"verification_status,omitempty" jsonschema:"description=the verifier verdict: approved or rejected"`
	Critique           string `json:"critique,omitempty" jsonschema:"description=the verifier's full rationale"`
}

type LookupReq struct {
	Question string `json:"question" jsonschema:"description=the question to look up"`
}

type LookupResp struct {
	Found  bool   `json:"found" jsonschema:"description=whether a remembered answer matched"`
	Answer string `json:"answer,omitempty" jsonschema:"description=the remembered answer"`
}

type CommitReq struct {
	Question string `json:"question" jsonschema:"description=the question text"`
	Answer   string `json:"answer" jsonschema:"description=the approved answer text"`
}

type CommitResp struct {
	Saved bool `json:"saved" jsonschema:"description=whether the entry was persisted"`
}

type SearchReq struct {
	Query string `json:"query" jsonschema:"description=the search text"`
	K     int    `json:"k,omitempty" jsonschema:"description=how many passages to return, default 3"`
}

type SearchResp struct {
	Snippets []knowledge.Snippet `json:"snippets" jsonschema:"description=the matching passages with sources"`
}

func mentorTools(m *mentor.Mentor, r knowledge.Retriever) []Tool {
	solve := func(ctx context.Context, req SolveReq) (*SolveResp, error) {
		res, err := m.Ask(ctx, req.Question)
		if err != nil {
			return nil, err
		}
		resp := &SolveResp{
			Answer:     res.Answer,
			FromMemory: res.FromMemory,
		}
		if res.State != nil {
			resp.RetrievedContext = res.State.RetrievedContext
			resp.VerificationStatus = string(res.State.VerificationStatus)
			resp.Critique = res.State.Critique
		}
		return resp, nil
	}
	lookup := func(ctx context.Context, req LookupReq) (*LookupResp, error) {
		answer, ok, err := m.Lookup(req.Question)
		if err != nil {
			return nil, err
		}
		return &LookupResp{Found: ok, Answer: answer}, nil
	}
	commit := func(ctx context.Context, req CommitReq) (*CommitResp, error) {
		if err := m.Approve(req.Question, req.Answer); err != nil {
			return nil, err
		}
		return &CommitResp{Saved: true}, nil
	}
	search := func(ctx context.Context, req SearchReq) (*SearchResp, error) {
		k := req.K
		if k <= 0 {
			k = stages.DefaultTopK
		}
		snippets, err := r.Query(ctx, req.Query, k)
		if err != nil {
			return nil, err
		}
		return &SearchResp{Snippets: snippets}, nil
	}

	return []Tool{
		NewTool(ToolSolveProblem, DescSolveProblem, SchemaSolveProblem, solve),
		NewTool(ToolLookupMemory, DescLookupMemory, SchemaLookupMemory, lookup),
		NewTool(ToolCommitMemory, DescCommitMemory, SchemaCommitMemory, commit),
		NewTool(ToolSearchKnowledge, DescSearchKnowledge, SchemaSearchKnowledge, search),
	}
}
