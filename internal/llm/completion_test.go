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
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChatModel fails the first failures calls, then answers.
type fakeChatModel struct {
	failures int
	failWith error
	reply    string
	calls    int
	lastMsgs []*schema.Message
}

func (f *fakeChatModel) Generate(ctx context.Context, msgs []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.calls++
	f.lastMsgs = msgs
	if f.calls <= f.failures {
		return nil, f.failWith
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, msgs []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

func TestClient_Complete(t *testing.T) {
	fake := &fakeChatModel{reply: "the answer is 2x"}
	c := NewClient(fake, ClientOptions{})

	out, err := c.Complete(context.Background(), "solve it", "derivative of x^2")
	require.NoError(t, err)
	assert.Equal(t, "the answer is 2x", out)

	require.Len(t, fake.lastMsgs, 2)
	assert.Equal(t, schema.System, fake.lastMsgs[0].Role)
	assert.Equal(t, "solve it", fake.lastMsgs[0].Content)
	assert.Equal(t, schema.User, fake.lastMsgs[1].Role)
	assert.Equal(t, "derivative of x^2", fake.lastMsgs[1].Content)
}

func TestClient_RetriesTransientErrors(t *testing.T) {
	fake := &fakeChatModel{
		failures: 1,
		failWith: errors.New("read tcp 10.0.0.1:443: connection reset by peer"),
		reply:    "recovered",
	}
	c := NewClient(fake, ClientOptions{Retries: 2})

	out, err := c.Complete(context.Background(), "s", "u")
	require.NoError(t, err)
	assert.Equal(t, "recovered", out)
	assert.Equal(t, 2, fake.calls)
}

func TestClient_ExhaustedRetries(t *testing.T) {
	fake := &fakeChatModel{
		failures: 10,
		failWith: errors.New("dial: connection refused"),
	}
	c := NewClient(fake, ClientOptions{Retries: 1})

	_, err := c.Complete(context.Background(), "s", "u")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrServiceUnavailable))
	assert.Equal(t, 2, fake.calls, "initial attempt plus one retry")
}

func TestClient_NonRetryableFailsFast(t *testing.T) {
	fake := &fakeChatModel{
		failures: 10,
		failWith: errors.New("invalid api key"),
	}
	c := NewClient(fake, ClientOptions{Retries: 3})

	_, err := c.Complete(context.Background(), "s", "u")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrServiceUnavailable))
	assert.Equal(t, 1, fake.calls)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(errors.New("context deadline exceeded")))
	assert.True(t, isRetryable(errors.New("operation timed out")))
	assert.False(t, isRetryable(errors.New("model not found")))
}
