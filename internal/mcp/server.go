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

// Package mcp exposes the mentor as a Model Context Protocol server so other
// agent hosts can solve problems and curate the memory store over stdio.
package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mathmentor/mathmentor/internal/knowledge"
	"github.com/mathmentor/mathmentor/internal/mentor"
	"github.com/mathmentor/mathmentor/internal/utils"
)

// Tool pairs an MCP tool declaration with its handler.
type Tool struct {
	mcp.Tool
	Handler server.ToolHandlerFunc
}

// NewTool adapts a typed request/response handler into an MCP tool. The
// response (or error text) is returned as a single JSON text content part.
func NewTool[R any, T any](name string, desc string, schema json.RawMessage, handler func(ctx context.Context, req R) (*T, error)) Tool {
	return Tool{
		Tool: mcp.NewToolWithRawSchema(name, desc, schema),
		Handler: func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var req R
			if err := request.BindArguments(&req); err != nil {
				return nil, err
			}
			var final string
			var isError bool
			if resp, err := handler(ctx, req); err != nil {
				isError = true
				final = err.Error()
			} else if js, err := utils.MarshalJSONBytes(resp); err != nil {
				isError = true
				final = err.Error()
			} else {
				final = string(js)
			}
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent(final),
				},
				IsError: isError,
			}, nil
		},
	}
}

type ServerOptions struct {
	ServerName    string
	ServerVersion string

	Mentor    *mentor.Mentor
	Retriever knowledge.Retriever
}

type Server struct {
	Server *server.MCPServer
}

func NewServer(opts ServerOptions) *Server {
	s := server.NewMCPServer(
		opts.ServerName,
		opts.ServerVersion,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	for _, t := range mentorTools(opts.Mentor, opts.Retriever) {
		s.AddTool(t.Tool, t.Handler)
	}
	return &Server{Server: s}
}

// ServeStdio blocks serving the MCP protocol on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.Server)
}
