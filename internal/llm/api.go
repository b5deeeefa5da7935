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

package llm

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
)

type ModelConfig struct {
	Name        string    `json:"name"` // alias of the config, not endpoint!
	APIType     ModelType `json:"type"`
	BaseURL     string    `json:"base_url"`
	APIKey      string    `json:"api_key"`
	ModelName   string    `json:"model_name"` // the endpoint of the model, like `gpt-4o`
	Temperature *float32  `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Timeout     time.Duration `json:"timeout"` // HTTP request timeout, default: 120s
	Retries     int           `json:"retries"` // Number of retries on failure, default: 3
}

type ModelType string

func NewModelType(t string) ModelType {
	switch strings.ToLower(t) {
	case "ollama":
		return ModelTypeOllama
	case "ark", "doubao":
		return ModelTypeARK
	case "openai", "gpt":
		return ModelTypeOpenAI
	case "claude", "anthropic":
		return ModelTypeClaude
	case "dashscope", "qwen", "tongyi":
		return ModelTypeDashScope
	case "deepseek":
		return ModelTypeDeepSeek
	}
	return ModelTypeUnknown
}

const (
	ModelTypeUnknown   ModelType = ""
	ModelTypeOllama    ModelType = "ollama"
	ModelTypeARK       ModelType = "ark"
	ModelTypeOpenAI    ModelType = "openai"
	ModelTypeClaude    ModelType = "claude"
	ModelTypeDashScope ModelType = "dashscope"
	ModelTypeDeepSeek  ModelType = "deepseek"
)

// Completer is the single text-generation entry point the pipeline stages use:
// one system instruction, one user message, one completion back.
type Completer interface {
	Complete(ctx context.Context, system string, user string) (string, error)
}

// ChatModel is the interface for the LLM backend.
type ChatModel interface {
	model.BaseChatModel
}
