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

package utils

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalJSONBytes_NoHTMLEscape(t *testing.T) {
	bs, err := MarshalJSONBytes(map[string]string{"q": "is 2<3 && 3>2?"})
	require.NoError(t, err)
	assert.Equal(t, `{"q":"is 2<3 && 3>2?"}`, string(bs))
	assert.NotContains(t, string(bs), "u003c", "no HTML-escaped angle brackets")
	assert.False(t, strings.HasSuffix(string(bs), "\n"))
}

func TestMarshalJSONIndent(t *testing.T) {
	s, err := MarshalJSONIndent([]string{"x<1", "x>1"})
	require.NoError(t, err)
	assert.Equal(t, "[\n  \"x<1\",\n  \"x>1\"\n]", s)

	var back []string
	require.NoError(t, json.Unmarshal([]byte(s), &back))
	assert.Equal(t, []string{"x<1", "x>1"}, back)
}
