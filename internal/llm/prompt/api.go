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

package prompt

import (
	"bytes"
	_ "embed"
	"os"
	"path/filepath"
	"text/template"
)

type Prompt interface {
	String() string
}

type TextPrompt string

func (p TextPrompt) String() string {
	return string(p)
}

func NewTextPrompt(content string) Prompt {
	return TextPrompt(content)
}

// FilePrompt renders a go-template file with Data on every String call, so a
// deployment can override the built-in instructions without recompiling.
type FilePrompt struct {
	Path string `json:"path"`
	Data any    `json:"data"`
	tpl  *template.Template
}

func NewFilePrompt(c *FilePrompt) (Prompt, error) {
	if _, err := os.Stat(c.Path); err != nil {
		return nil, err
	}
	tpl, err := template.ParseFiles(c.Path)
	if err != nil {
		return nil, err
	}
	c.tpl = tpl
	return c, nil
}

func (p *FilePrompt) String() string {
	var buf = bytes.NewBuffer(nil)
	if err := p.tpl.Execute(buf, p.Data); err != nil {
		panic(err)
	}
	return buf.String()
}

//go:embed solver.md
var PromptSolver string

//go:embed verifier.md
var PromptVerifier string

//go:embed explainer.md
var PromptExplainer string

//go:embed ocr.md
var PromptOCR string

// Set carries the resolved instruction prompt for each pipeline stage.
type Set struct {
	Solver    Prompt
	Verifier  Prompt
	Explainer Prompt
}

// NewSet resolves the stage prompts, starting from the embedded defaults.
// When dir is non-empty, a solver.md / verifier.md / explainer.md file in it
// overrides the corresponding stage instruction.
func NewSet(dir string) (*Set, error) {
	s := &Set{
		Solver:    TextPrompt(PromptSolver),
		Verifier:  TextPrompt(PromptVerifier),
		Explainer: TextPrompt(PromptExplainer),
	}
	if dir == "" {
		return s, nil
	}
	for name, dst := range map[string]*Prompt{
		"solver":    &s.Solver,
		"verifier":  &s.Verifier,
		"explainer": &s.Explainer,
	} {
		path := filepath.Join(dir, name+".md")
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		p, err := NewFilePrompt(&FilePrompt{Path: path})
		if err != nil {
			return nil, err
		}
		*dst = p
	}
	return s, nil
}
