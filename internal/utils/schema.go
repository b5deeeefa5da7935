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

	"github.com/invopop/jsonschema"
)

// GetJSONSchema reflects a JSON schema for v. Used to declare tool inputs;
// schemas are generated once at init, so reflection failures panic.
func GetJSONSchema(v interface{}) json.RawMessage {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	schema := r.Reflect(v)
	bs, err := json.Marshal(schema)
	if err != nil {
		panic("reflect json schema: " + err.Error())
	}
	return bs
}
