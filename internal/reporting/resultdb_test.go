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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/eip-plantuml/pumlcheck/internal/engine"
	"github.com/google/go-cmp/cmp"
	resultpb "go.chromium.org/luci/resultdb/proto/v1"
	sinkpb "go.chromium.org/luci/resultdb/sink/proto/v1"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/testing/protocmp"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

func TestResultDBReporter(t *testing.T) {
	ctx := context.Background()

	var got []*sinkpb.ReportTestResultsRequest
	var auth []string
	var mu sync.Mutex

	handler := http.HandlerFunc(func(resp http.ResponseWriter, req *http.Request) {
		b, err := io.ReadAll(req.Body)
		if err != nil {
			http.Error(resp, err.Error(), http.StatusInternalServerError)
			return
		}
		var res sinkpb.ReportTestResultsRequest
		if err := protojson.Unmarshal(b, &res); err != nil {
			http.Error(resp, err.Error(), http.StatusInternalServerError)
			return
		}
		mu.Lock()
		got = append(got, &res)
		auth = append(auth, req.Header.Get("Authorization"))
		mu.Unlock()
	})
	server := httptest.NewServer(handler)
	defer server.Close()

	luciContextPath := filepath.Join(t.TempDir(), "luci_context.json")
	t.Setenv("LUCI_CONTEXT", luciContextPath)
	writeJSON(t, luciContextPath, luciContext{
		ResultDB: resultDB{
			CurrentInvocation: resultDBInvocation{Name: "foo"},
		},
		ResultSink: resultSinkContext{
			AuthToken:      "s3cr3t",
			ResultSinkAddr: strings.TrimPrefix(server.URL, "http://"),
		},
	})

	r := luci{
		basic: basic{out: io.Discard},
		// Use a very high batch wait duration to ensure we *always* batch small
		// numbers of requests together.
		batchWaitDuration: 24 * time.Hour,
	}
	if err := r.init(ctx); err != nil {
		t.Fatal(err)
	}

	startTime := time.Now().Add(-time.Minute)
	r.CheckCompleted(
		ctx, "sprite_pairs", startTime, time.Second, engine.Nothing, nil)
	if err := r.EmitFinding(ctx, "syntax/sprites/a.puml", engine.Error, "bad <x>", "/repo", "sprites/a.puml", engine.Span{Start: engine.Cursor{Line: 3}}); err != nil {
		t.Fatal(err)
	}
	r.CheckCompleted(
		ctx, "syntax/sprites/a.puml", startTime.Add(5*time.Second), 2*time.Second, engine.Error, nil)
	r.CheckCompleted(
		ctx, "forbidden_tokens", startTime.Add(10*time.Second), 3*time.Second, engine.Nothing, fmt.Errorf("some error"))

	if err := r.Close(); err != nil {
		t.Fatal(err)
	}

	expected := []*sinkpb.ReportTestResultsRequest{
		{
			TestResults: []*sinkpb.TestResult{
				{
					TestId:    "pumlcheck/sprite_pairs",
					Status:    resultpb.TestStatus_PASS,
					Expected:  true,
					StartTime: timestamppb.New(startTime),
					Duration:  durationpb.New(time.Second),
					Tags:      []*resultpb.StringPair{{Key: "group", Value: "sprite_pairs"}},
				},
				{
					TestId:      "pumlcheck/syntax/sprites/a.puml",
					Status:      resultpb.TestStatus_FAIL,
					StartTime:   timestamppb.New(startTime.Add(5 * time.Second)),
					Duration:    durationpb.New(2 * time.Second),
					SummaryHtml: "[syntax/sprites/a.puml/error] sprites/a.puml(3): bad &lt;x&gt;<br>",
					Artifacts: map[string]*sinkpb.Artifact{
						"sprites/a.puml": {
							Body:        &sinkpb.Artifact_FilePath{FilePath: filepath.Join("/repo", "sprites", "a.puml")},
							ContentType: "text/plain",
						},
					},
					Tags: []*resultpb.StringPair{{Key: "group", Value: "syntax"}},
				},
				{
					TestId:        "pumlcheck/forbidden_tokens",
					Status:        resultpb.TestStatus_CRASH,
					StartTime:     timestamppb.New(startTime.Add(10 * time.Second)),
					Duration:      durationpb.New(3 * time.Second),
					FailureReason: &resultpb.FailureReason{PrimaryErrorMessage: "some error"},
					Tags:          []*resultpb.StringPair{{Key: "group", Value: "forbidden_tokens"}},
				},
			},
		},
	}
	if diff := cmp.Diff(expected, got, protocmp.Transform()); diff != "" {
		t.Errorf("Unexpected requests (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"ResultSink s3cr3t"}, auth); diff != "" {
		t.Errorf("Unexpected auth (-want +got):\n%s", diff)
	}
}

func TestResultSinkCtx_NotStreaming(t *testing.T) {
	luciContextPath := filepath.Join(t.TempDir(), "luci_context.json")
	t.Setenv("LUCI_CONTEXT", luciContextPath)
	writeJSON(t, luciContextPath, luciContext{
		ResultDB: resultDB{CurrentInvocation: resultDBInvocation{Name: "inv"}},
	})
	if _, err := resultSinkCtx(); err == nil || !strings.Contains(err.Error(), "rdb stream") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func writeJSON(t *testing.T, path string, obj any) {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatal(err)
	}
	if err = os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
}
