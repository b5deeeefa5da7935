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

// Package config loads the mentor configuration: model endpoints, knowledge
// base and memory paths, and pipeline tuning. A .env file is honored for
// credentials so configs stay key-free.
package config

import (
	"encoding/json"
	"os"

	"github.com/joho/godotenv"

	"github.com/mathmentor/mathmentor/internal/llm"
	"github.com/mathmentor/mathmentor/internal/log"
	"github.com/mathmentor/mathmentor/internal/utils"
)

const (
	DefaultKnowledgeDir = "knowledge_base"
	DefaultIndexPath    = "mentor_index.json"
	DefaultMemoryPath   = "memory.json"
)

type Transcription struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model"` // e.g. "whisper-1"
}

type Config struct {
	Models       []llm.ModelConfig `json:"models"`
	DefaultModel string            `json:"default_model"`          // alias used by the pipeline stages
	VisionModel  string            `json:"vision_model,omitempty"` // alias used for OCR; falls back to DefaultModel

	Transcription Transcription `json:"transcription"`

	KnowledgeDir string `json:"knowledge_dir"`
	IndexPath    string `json:"index_path"`
	MemoryPath   string `json:"memory_path"`
	PromptDir    string `json:"prompt_dir,omitempty"` // stage prompt overrides, see prompt.NewSet

	TopK         int `json:"top_k"`
	MaxRevisions int `json:"max_revisions"`
}

// Load reads the JSON config at path, or returns defaults when path is
// empty. A .env file in the working directory is loaded first; model
// entries without an api_key pick up OPENAI_API_KEY from the environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Debug("No .env file loaded: %v", err)
	}

	cfg := &Config{
		KnowledgeDir: DefaultKnowledgeDir,
		IndexPath:    DefaultIndexPath,
		MemoryPath:   DefaultMemoryPath,
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, utils.WrapErrorf(err, "read config %s", path)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, utils.WrapErrorf(err, "decode config %s", path)
		}
	}

	if len(cfg.Models) == 0 {
		cfg.Models = []llm.ModelConfig{{
			Name:      "default",
			APIType:   llm.ModelTypeOpenAI,
			ModelName: "gpt-4o",
		}}
	}
	for i := range cfg.Models {
		// Accept provider aliases like "gpt", "qwen" or "anthropic".
		cfg.Models[i].APIType = llm.NewModelType(string(cfg.Models[i].APIType))
		if cfg.Models[i].APIKey == "" {
			cfg.Models[i].APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = cfg.Models[0].Name
	}
	if cfg.Transcription.Model == "" {
		cfg.Transcription.Model = "whisper-1"
	}
	if cfg.Transcription.BaseURL == "" {
		cfg.Transcription.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.KnowledgeDir == "" {
		cfg.KnowledgeDir = DefaultKnowledgeDir
	}
	if cfg.IndexPath == "" {
		cfg.IndexPath = DefaultIndexPath
	}
	if cfg.MemoryPath == "" {
		cfg.MemoryPath = DefaultMemoryPath
	}
	return cfg, nil
}

// Model returns the named model config.
func (c *Config) Model(name string) (llm.ModelConfig, bool) {
	for _, m := range c.Models {
		if m.Name == name {
			return m, true
		}
	}
	return llm.ModelConfig{}, false
}
