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
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/mathmentor/mathmentor/internal/log"
	"github.com/mathmentor/mathmentor/internal/utils"
)

// ErrServiceUnavailable marks a completion failure that persisted through all
// retries. Callers can distinguish it from malformed-output conditions.
var ErrServiceUnavailable = errors.New("completion service unavailable")

var _ Completer = (*Client)(nil)

// Client turns a ChatModel into the blocking Complete call the pipeline
// stages use. Each attempt runs under its own timeout; transient transport
// errors are retried with exponential backoff, everything else fails fast.
type Client struct {
	model   ChatModel
	retries int
	timeout time.Duration
}

type ClientOptions struct {
	Retries int           // Number of retries, default: 3
	Timeout time.Duration // Request timeout per attempt, default: 120s
}

func NewClient(model ChatModel, opts ClientOptions) *Client {
	retries := opts.Retries
	if retries == 0 {
		retries = 3
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		model:   model,
		retries: retries,
		timeout: timeout,
	}
}

// Complete implements Completer.
func (c *Client) Complete(ctx context.Context, system string, user string) (string, error) {
	msgs := []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(user),
	}
	log.Debug("[User] %s", user)

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			log.Info("Retrying completion call (attempt %d/%d)...", attempt+1, c.retries+1)
			// Exponential backoff: wait 1s, 2s, 4s...
			waitTime := time.Duration(1<<uint(attempt-1)) * time.Second
			if waitTime > 10*time.Second {
				waitTime = 10 * time.Second
			}
			time.Sleep(waitTime)
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		out, err := c.model.Generate(attemptCtx, msgs)
		cancel()
		if err == nil {
			log.Debug("[Assistant] %s", out.Content)
			return out.Content, nil
		}

		lastErr = err
		if !isRetryable(err) {
			log.Error("Non-retryable completion error: %v", err)
			return "", utils.WrapError(err, "completion call")
		}
		log.Info("Retryable completion error (attempt %d/%d): %v", attempt+1, c.retries+1, err)
	}

	return "", fmt.Errorf("%w: failed after %d attempts: %v", ErrServiceUnavailable, c.retries+1, lastErr)
}

func isRetryable(err error) bool {
	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "operation timed out") ||
		strings.Contains(errStr, "context deadline exceeded") ||
		strings.Contains(errStr, "read tcp") ||
		strings.Contains(errStr, "write tcp")
}
