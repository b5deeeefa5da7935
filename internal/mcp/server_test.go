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
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathmentor/mathmentor/internal/knowledge"
	"github.com/mathmentor/mathmentor/internal/memory"
	"github.com/mathmentor/mathmentor/internal/mentor"
)

type stubCompleter struct{ reply string }

func (s stubCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	return s.reply, nil
}

type stubRetriever struct{ snippets []knowledge.Snippet }

func (s stubRetriever) Query(ctx context.Context, text string, k int) ([]knowledge.Snippet, error) {
	if k < len(s.snippets) {
		return s.snippets[:k], nil
	}
	return s.snippets, nil
}

func testTools(t *testing.T) map[string]Tool {
	t.Helper()
	store := memory.NewStore(filepath.Join(t.TempDir(), "memory.json"))
	retr := stubRetriever{snippets: []knowledge.Snippet{
		{Content: "power rule", Source: "derivatives.txt"},
		{Content: "chain rule", Source: "derivatives.txt"},
	}}
	m := mentor.New(store, retr, stubCompleter{reply: "APPROVED"}, mentor.Options{})

	tools := map[string]Tool{}
	for _, tool := range mentorTools(m, retr) {
		tools[tool.Tool.Name] = tool
	}
	return tools
}

func callTool(t *testing.T, tool Tool, args map[string]any) (string, bool) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = tool.Tool.Name
	req.Params.Arguments = args

	res, err := tool.Handler(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text, res.IsError
}

func TestTools_Registered(t *testing.T) {
	tools := testTools(t)
	for _, name := range []string{ToolSolveProblem, ToolLookupMemory, ToolCommitMemory, ToolSearchKnowledge} {
		if _, ok := tools[name]; !ok {
			t.Errorf("tool %q not registered", name)
		}
	}
}

func TestTools_SolveProblem(t *testing.T) {
	tools := testTools(t)
	out, isErr := callTool(t, tools[ToolSolveProblem], map[string]any{
		"question": "What is the derivative of x^2?",
	})
	require.False(t, isErr, out)

	var resp SolveResp
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.NotEmpty(t, resp.Answer)
	assert.False(t, resp.FromMemory)
	assert.Equal(t, "approved", resp.VerificationStatus)
	assert.Contains(t, resp.RetrievedContext, "power rule")
}

func TestTools_MemoryRoundtrip(t *testing.T) {
	tools := testTools(t)

	out, isErr := callTool(t, tools[ToolLookupMemory], map[string]any{"question": "integral of 1/x"})
	require.False(t, isErr, out)
	var lookup LookupResp
	require.NoError(t, json.Unmarshal([]byte(out), &lookup))
	assert.False(t, lookup.Found)

	out, isErr = callTool(t, tools[ToolCommitMemory], map[string]any{
		"question": "What is the integral of 1/x?",
		"answer":   "ln|x| + C",
	})
	require.False(t, isErr, out)
	var commit CommitResp
	require.NoError(t, json.Unmarshal([]byte(out), &commit))
	assert.True(t, commit.Saved)

	out, isErr = callTool(t, tools[ToolLookupMemory], map[string]any{"question": "integral of 1/x"})
	require.False(t, isErr, out)
	require.NoError(t, json.Unmarshal([]byte(out), &lookup))
	assert.True(t, lookup.Found)
	assert.Equal(t, "ln|x| + C", lookup.Answer)
}

func TestTools_SearchKnowledge(t *testing.T) {
	tools := testTools(t)
	out, isErr := callTool(t, tools[ToolSearchKnowledge], map[string]any{
		"query": "derivative",
		"k":     1,
	})
	require.False(t, isErr, out)

	var resp SearchResp
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Snippets, 1)
	assert.Equal(t, "power rule", resp.Snippets[0].Content)
}

func TestSchemas_DeclareProperties(t *testing.T) {
	var schema struct {
		Type       string                     `json:"type"`
		Properties map[string]json.RawMessage `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(SchemaSolveProblem, &schema))
	assert.Equal(t, "object", schema.Type)
	assert.Contains(t, schema.Properties, "question")

	require.NoError(t, json.Unmarshal(SchemaCommitMemory, &schema))
	assert.Contains(t, schema.Properties, "question")
	assert.Contains(t, schema.Properties, "answer")
}
