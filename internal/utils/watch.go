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
	"github.com/fsnotify/fsnotify"

	"github.com/mathmentor/mathmentor/internal/log"
)

// WatchDir invokes cb for every filesystem event under dir until the watcher
// fails. The watcher runs on its own goroutine; errors are logged, not fatal.
func WatchDir(dir string, cb func(op fsnotify.Op, file string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return WrapError(err, "create watcher")
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return WrapErrorf(err, "watch %s", dir)
	}
	go func() {
		defer watcher.Close()
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				cb(ev.Op, ev.Name)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Error("watch %s: %v", dir, err)
			}
		}
	}()
	return nil
}
