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

// Package extract adapts photographed and spoken problems into plain text.
// Both adapters are thin: the model does the reading, we do the plumbing.
package extract

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/mathmentor/mathmentor/internal/llm"
	"github.com/mathmentor/mathmentor/internal/llm/prompt"
)

// ErrExtraction marks any OCR or transcription failure.
var ErrExtraction = errors.New("content extraction failed")

// OCR transcribes a photographed math problem with a vision-capable chat
// model. The prompt asks for a faithful transcription, never a solution.
type OCR struct {
	model llm.ChatModel
}

func NewOCR(model llm.ChatModel) *OCR {
	return &OCR{model: model}
}

// Text extracts the problem statement from image bytes. mime is the image
// media type, e.g. "image/jpeg".
func (o *OCR) Text(ctx context.Context, image []byte, mime string) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("%w: empty image", ErrExtraction)
	}
	if mime == "" {
		mime = "image/jpeg"
	}
	dataURL := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(image)

	msg := &schema.Message{
		Role: schema.User,
		MultiContent: []schema.ChatMessagePart{
			{
				Type: schema.ChatMessagePartTypeText,
				Text: prompt.PromptOCR,
			},
			{
				Type:     schema.ChatMessagePartTypeImageURL,
				ImageURL: &schema.ChatMessageImageURL{URL: dataURL},
			},
		},
	}
	out, err := o.model.Generate(ctx, []*schema.Message{msg})
	if err != nil {
		return "", fmt.Errorf("%w: ocr: %v", ErrExtraction, err)
	}
	text := strings.TrimSpace(out.Content)
	if text == "" {
		return "", fmt.Errorf("%w: ocr returned no text", ErrExtraction)
	}
	return text, nil
}

// Transcriber converts spoken problems to text through an OpenAI-compatible
// /audio/transcriptions endpoint.
type Transcriber struct {
	BaseURL string
	APIKey  string
	Model   string // e.g. "whisper-1"

	HTTPClient *http.Client
}

func NewTranscriber(baseURL, apiKey, model string) *Transcriber {
	return &Transcriber{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		Model:      model,
		HTTPClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// Text transcribes audio bytes. filename carries the format hint the
// endpoint needs, e.g. "question.mp3".
func (t *Transcriber) Text(ctx context.Context, audio []byte, filename string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("%w: empty audio", ErrExtraction)
	}

	var body strings.Builder
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	if err := w.WriteField("model", t.Model); err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		t.BaseURL+"/audio/transcriptions", strings.NewReader(body.String()))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if t.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.APIKey)
	}

	client := t.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: transcription request: %v", ErrExtraction, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: transcription status %d: %s", ErrExtraction, resp.StatusCode, data)
	}
	var out struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("%w: decode transcription: %v", ErrExtraction, err)
	}
	return strings.TrimSpace(out.Text), nil
}
