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

package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mathmentor/mathmentor/internal/config"
	"github.com/mathmentor/mathmentor/internal/extract"
	"github.com/mathmentor/mathmentor/internal/knowledge"
	"github.com/mathmentor/mathmentor/internal/llm"
	"github.com/mathmentor/mathmentor/internal/llm/prompt"
	"github.com/mathmentor/mathmentor/internal/log"
	"github.com/mathmentor/mathmentor/internal/mcp"
	"github.com/mathmentor/mathmentor/internal/memory"
	"github.com/mathmentor/mathmentor/internal/mentor"
	"github.com/mathmentor/mathmentor/version"
)

const Usage = `mathmentor <Action> [Args] [Flags]
Action:
   solve        answer a math question (text argument, or -image/-audio file)
   index        (re)build the knowledge base index
   memory       list remembered question/answer pairs
   mcp          run as an MCP server over stdio
   version      print the version of mathmentor
`

func main() {
	flags := flag.NewFlagSet("mathmentor", flag.ExitOnError)

	flagHelp := flags.Bool("h", false, "Show help message.")
	flagVerbose := flags.Bool("verbose", false, "Verbose mode.")
	flagConfig := flags.String("config", "", "Config file path (JSON).")
	flagTrace := flags.Bool("trace", false, "Show the agent trace after solving.")
	flagApprove := flags.Bool("approve", false, "Save the displayed answer to memory after solving.")
	flagImage := flags.String("image", "", "Read the question from an image file (OCR).")
	flagAudio := flags.String("audio", "", "Read the question from an audio file (transcription).")
	flagTopK := flags.Int("k", 0, "Snippets to retrieve per question (default 3).")
	flagRevise := flags.Int("max-revisions", 0, "Re-solve after a rejected verification up to N times (default 0: straight through).")

	flags.Usage = func() {
		fmt.Fprint(os.Stderr, Usage)
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flags.PrintDefaults()
	}

	if len(os.Args) < 2 {
		flags.Usage()
		os.Exit(1)
	}
	action := strings.ToLower(os.Args[1])

	if action == "version" {
		fmt.Fprintf(os.Stdout, "%s\n", version.Version)
		return
	}

	_ = flags.Parse(os.Args[2:])
	if *flagHelp {
		flags.Usage()
		os.Exit(0)
	}
	if *flagVerbose {
		log.SetLogLevel(log.DebugLevel)
	}

	cfg, err := config.Load(*flagConfig)
	if err != nil {
		fatal(err)
	}
	if *flagTopK > 0 {
		cfg.TopK = *flagTopK
	}
	if *flagRevise > 0 {
		cfg.MaxRevisions = *flagRevise
	}

	ctx := context.Background()

	switch action {
	case "index":
		n, err := knowledge.BuildIndex(cfg.KnowledgeDir, cfg.IndexPath)
		if err != nil {
			fatal(err)
		}
		fmt.Fprintf(os.Stdout, "indexed %d chunks into %s\n", n, cfg.IndexPath)

	case "memory":
		store := memory.NewStore(cfg.MemoryPath)
		entries, err := store.Entries()
		if err != nil {
			fatal(err)
		}
		for i, e := range entries {
			fmt.Fprintf(os.Stdout, "[%d] Q: %s\n    A: %s\n", i, e.Question, e.Answer)
		}

	case "solve":
		question, err := resolveQuestion(ctx, cfg, flags.Args(), *flagImage, *flagAudio)
		if err != nil {
			fatal(err)
		}
		m, _, err := buildMentor(cfg)
		if err != nil {
			fatal(err)
		}
		res, err := m.Ask(ctx, question)
		if err != nil {
			fatal(err)
		}
		if res.FromMemory {
			fmt.Fprintln(os.Stdout, "[From Memory]")
		}
		fmt.Fprintln(os.Stdout, res.Answer)
		if *flagTrace && res.State != nil {
			fmt.Fprintln(os.Stderr, "--- trace ---")
			for _, r := range res.State.Trace {
				fmt.Fprintf(os.Stderr, "%s  %s\n", r.Stage, r.Note)
			}
			if res.State.RetrievedContext != "" {
				fmt.Fprintf(os.Stderr, "--- retrieved context ---\n%s\n", res.State.RetrievedContext)
			}
		}
		if *flagApprove && !res.FromMemory {
			if err := m.Approve(question, res.Answer); err != nil {
				// The answer above is still valid; only the remembering failed.
				fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			} else {
				fmt.Fprintln(os.Stderr, "saved to memory")
			}
		}

	case "mcp":
		m, idx, err := buildMentor(cfg)
		if err != nil {
			fatal(err)
		}
		svr := mcp.NewServer(mcp.ServerOptions{
			ServerName:    "mathmentor",
			ServerVersion: version.Version,
			Mentor:        m,
			Retriever:     idx,
		})
		if err := svr.ServeStdio(); err != nil {
			fatal(err)
		}

	default:
		flags.Usage()
		os.Exit(1)
	}
}

// buildMentor wires the memory store, knowledge index and completion client
// from config, returning the watched index so callers share one instance.
// The index must have been built; the watcher keeps it fresh.
func buildMentor(cfg *config.Config) (*mentor.Mentor, *knowledge.Index, error) {
	mc, ok := cfg.Model(cfg.DefaultModel)
	if !ok {
		return nil, nil, fmt.Errorf("model %q not found in config", cfg.DefaultModel)
	}
	completer := llm.NewClient(llm.NewChatModel(mc), llm.ClientOptions{
		Retries: mc.Retries,
		Timeout: mc.Timeout,
	})

	idx, err := knowledge.OpenIndex(cfg.IndexPath)
	if err != nil {
		return nil, nil, err
	}
	if err := idx.Watch(cfg.KnowledgeDir); err != nil {
		log.Error("Knowledge base watcher disabled: %v", err)
	}

	prompts, err := prompt.NewSet(cfg.PromptDir)
	if err != nil {
		return nil, nil, err
	}

	store := memory.NewStore(cfg.MemoryPath)
	m := mentor.New(store, idx, completer, mentor.Options{
		TopK:         cfg.TopK,
		MaxRevisions: cfg.MaxRevisions,
		Prompts:      prompts,
	})
	return m, idx, nil
}

// resolveQuestion picks the question source: image OCR, audio transcription,
// positional argument, or stdin, in that priority order.
func resolveQuestion(ctx context.Context, cfg *config.Config, args []string, imagePath, audioPath string) (string, error) {
	switch {
	case imagePath != "":
		data, err := os.ReadFile(imagePath)
		if err != nil {
			return "", err
		}
		name := cfg.VisionModel
		if name == "" {
			name = cfg.DefaultModel
		}
		mc, ok := cfg.Model(name)
		if !ok {
			return "", fmt.Errorf("vision model %q not found in config", name)
		}
		ocr := extract.NewOCR(llm.NewChatModel(mc))
		return ocr.Text(ctx, data, mimeForFile(imagePath))

	case audioPath != "":
		data, err := os.ReadFile(audioPath)
		if err != nil {
			return "", err
		}
		tr := extract.NewTranscriber(cfg.Transcription.BaseURL, os.Getenv("OPENAI_API_KEY"), cfg.Transcription.Model)
		return tr.Text(ctx, data, filepath.Base(audioPath))

	case len(args) > 0:
		return strings.Join(args, " "), nil

	default:
		fmt.Fprint(os.Stderr, "question: ")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return "", errors.New("no question provided")
		}
		return strings.TrimSpace(line), nil
	}
}

func mimeForFile(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "image/jpeg"
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
