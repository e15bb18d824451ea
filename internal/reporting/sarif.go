// Copyright 2026 The Pumlcheck Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package reporting

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/eip-plantuml/pumlcheck/internal/engine"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	sarifVersion = "2.1.0"
	sarifSchema  = "https://json.schemastore.org/sarif-2.1.0.json"
)

var sarifLevels = map[engine.Level]string{
	engine.Notice:  "note",
	engine.Warning: "warning",
	engine.Error:   "error",
}

// SarifReport converts findings into a SARIF 2.1.0 document, written to Out
// when Close() is called.
//
// Each check is a rule of a single "pumlcheck" run. Checks that could not
// complete are reported as error results without a location.
type SarifReport struct {
	Out io.Writer

	mu      sync.Mutex
	results []sarifResult
}

type sarifResult struct {
	check string
	value map[string]any
}

var _ Report = (*SarifReport)(nil)

func (sr *SarifReport) EmitFinding(ctx context.Context, check string, level engine.Level, message, root, file string, s engine.Span) error {
	res := map[string]any{
		"ruleId":  check,
		"level":   sarifLevels[level],
		"message": map[string]any{"text": message},
	}
	if file != "" {
		loc := map[string]any{
			"artifactLocation": map[string]any{"uri": file},
		}
		if r := sarifRegion(s); len(r) != 0 {
			loc["region"] = r
		}
		res["locations"] = []any{map[string]any{"physicalLocation": loc}}
	}
	sr.add(check, res)
	return nil
}

func sarifRegion(s engine.Span) map[string]any {
	r := map[string]any{}
	for k, v := range map[string]int{
		"startLine":   s.Start.Line,
		"startColumn": s.Start.Col,
		"endLine":     s.End.Line,
		"endColumn":   s.End.Col,
	} {
		if v > 0 {
			r[k] = v
		}
	}
	return r
}

func (sr *SarifReport) CheckCompleted(ctx context.Context, check string, start time.Time, d time.Duration, level engine.Level, err error) {
	if err == nil {
		return
	}
	sr.add(check, map[string]any{
		"ruleId":  check,
		"level":   "error",
		"message": map[string]any{"text": err.Error()},
	})
}

func (sr *SarifReport) Print(context.Context, string, string, int, string) {}

func (sr *SarifReport) add(check string, v map[string]any) {
	sr.mu.Lock()
	sr.results = append(sr.results, sarifResult{check: check, value: v})
	sr.mu.Unlock()
}

// Close writes the document.
func (sr *SarifReport) Close() error {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	// Checks run concurrently; sort for determinism while keeping the
	// emission order within a check.
	sort.SliceStable(sr.results, func(i, j int) bool {
		return sr.results[i].check < sr.results[j].check
	})
	var rules, results []any
	seen := map[string]bool{}
	for _, r := range sr.results {
		if !seen[r.check] {
			seen[r.check] = true
			rules = append(rules, map[string]any{"id": r.check})
		}
		results = append(results, r.value)
	}
	if results == nil {
		results = []any{}
	}
	driver := map[string]any{
		"name":           "pumlcheck",
		"version":        engine.Version.String(),
		"informationUri": "https://github.com/eip-plantuml/pumlcheck",
	}
	if rules != nil {
		driver["rules"] = rules
	}
	doc, err := structpb.NewStruct(map[string]any{
		"version": sarifVersion,
		"$schema": sarifSchema,
		"runs": []any{
			map[string]any{
				"tool":    map[string]any{"driver": driver},
				"results": results,
			},
		},
	})
	if err != nil {
		return err
	}
	b, err := protojson.MarshalOptions{Multiline: true}.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = sr.Out.Write(append(b, '\n'))
	return err
}
