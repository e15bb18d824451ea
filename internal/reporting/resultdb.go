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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/eip-plantuml/pumlcheck/internal/engine"
	resultpb "go.chromium.org/luci/resultdb/proto/v1"
	sinkpb "go.chromium.org/luci/resultdb/sink/proto/v1"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// maxBatch is the largest number of results sent in one ReportTestResults
// request.
const maxBatch = 500

// luci uploads one test result per check to ResultDB through the local
// ResultSink server, and otherwise behaves like basic.
type luci struct {
	basic
	doneChecks chan *sinkpb.TestResult
	// batchWaitDuration is how long to wait for more results after one was
	// enqueued, so they can be uploaded in the same request.
	batchWaitDuration time.Duration

	mu         sync.Mutex
	wg         sync.WaitGroup
	liveChecks map[string]*sinkpb.TestResult
}

func (l *luci) init(ctx context.Context) error {
	l.doneChecks = make(chan *sinkpb.TestResult)
	l.liveChecks = map[string]*sinkpb.TestResult{}
	r, err := resultSinkCtx()
	if err != nil {
		return err
	}
	// Upload in a persistent goroutine so HTTP requests don't block checks.
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		client := &http.Client{}
		for batch := l.nextBatch(); len(batch) != 0; batch = l.nextBatch() {
			b, err := protojson.Marshal(&sinkpb.ReportTestResultsRequest{TestResults: batch})
			if err != nil {
				log.Printf("resultdb: %s", err)
				continue
			}
			if err = r.sendData(ctx, client, "ReportTestResults", b); err != nil {
				log.Printf("resultdb: %s", err)
			}
		}
	}()
	return nil
}

// nextBatch blocks for one result then collects more until batchWaitDuration
// elapses without a new one. It returns nil once the channel is closed and
// drained.
func (l *luci) nextBatch() []*sinkpb.TestResult {
	res, ok := <-l.doneChecks
	if !ok {
		return nil
	}
	batch := []*sinkpb.TestResult{res}
	for len(batch) < maxBatch {
		select {
		case res, ok = <-l.doneChecks:
			if !ok {
				return batch
			}
			batch = append(batch, res)
		case <-time.After(l.batchWaitDuration):
			return batch
		}
	}
	return batch
}

func (l *luci) Close() error {
	close(l.doneChecks)
	// Wait for the upload goroutine to complete before exiting.
	l.wg.Wait()
	return l.basic.Close()
}

func (l *luci) EmitFinding(ctx context.Context, check string, level engine.Level, message, root, file string, s engine.Span) error {
	r := l.getTestResult(check)
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s/%s] ", html.EscapeString(check), html.EscapeString(string(level)))
	if file != "" {
		fmt.Fprintf(&sb, "%s: ", html.EscapeString(location(file, s)))
	}
	sb.WriteString(html.EscapeString(message))
	sb.WriteString("<br>")
	l.mu.Lock()
	r.SummaryHtml += sb.String()
	if file != "" {
		// Attach the offending asset so it can be inspected from the
		// invocation page.
		r.Artifacts[file] = &sinkpb.Artifact{
			Body:        &sinkpb.Artifact_FilePath{FilePath: filepath.Join(root, filepath.FromSlash(file))},
			ContentType: "text/plain",
		}
	}
	l.mu.Unlock()
	return l.basic.EmitFinding(ctx, check, level, message, root, file, s)
}

func (l *luci) CheckCompleted(ctx context.Context, check string, start time.Time, d time.Duration, level engine.Level, err error) {
	r := l.getTestResult(check)
	r.StartTime = timestamppb.New(start)
	r.Duration = durationpb.New(d)
	if err != nil {
		r.Status = resultpb.TestStatus_CRASH
		r.FailureReason = &resultpb.FailureReason{PrimaryErrorMessage: err.Error()}
	} else if level == engine.Error {
		r.Status = resultpb.TestStatus_FAIL
	} else {
		r.Status = resultpb.TestStatus_PASS
		r.Expected = true
	}
	l.mu.Lock()
	delete(l.liveChecks, check)
	l.mu.Unlock()
	l.basic.CheckCompleted(ctx, check, start, d, level, err)
	l.doneChecks <- r
}

func (l *luci) getTestResult(check string) *sinkpb.TestResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	r := l.liveChecks[check]
	if r == nil {
		group, _, _ := strings.Cut(check, "/")
		r = &sinkpb.TestResult{
			TestId:    "pumlcheck/" + check,
			Artifacts: map[string]*sinkpb.Artifact{},
			Tags:      []*resultpb.StringPair{{Key: "group", Value: group}},
		}
		l.liveChecks[check] = r
	}
	return r
}

// Support code.

// luciContext corresponds to the schema of the file identified by the
// LUCI_CONTEXT env var. Only the sections used here are decoded.
type luciContext struct {
	ResultDB   resultDB          `json:"resultdb"`
	ResultSink resultSinkContext `json:"result_sink"`
}

// resultSinkContext holds the result_sink information parsed from LUCI_CONTEXT.
type resultSinkContext struct {
	AuthToken      string `json:"auth_token"`
	ResultSinkAddr string `json:"address"`
}

type resultDB struct {
	CurrentInvocation resultDBInvocation `json:"current_invocation"`
}

type resultDBInvocation struct {
	Name string `json:"name"`
}

func (r *resultSinkContext) sendData(ctx context.Context, client *http.Client, endpoint string, data []byte) error {
	url := fmt.Sprintf("http://%s/prpc/luci.resultsink.v1.Sink/%s", r.ResultSinkAddr, endpoint)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Add("Authorization", "ResultSink "+r.AuthToken)
	req.Header.Add("Accept", "application/json")
	req.Header.Add("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	_, err = io.Copy(io.Discard, resp.Body)
	if err2 := resp.Body.Close(); err == nil {
		err = err2
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ResultDB HTTP Request error: %s (%d)", http.StatusText(resp.StatusCode), resp.StatusCode)
	}
	return err
}

// resultSinkCtx returns the ResultSink address and token from LUCI_CONTEXT.
func resultSinkCtx() (*resultSinkContext, error) {
	b, err := os.ReadFile(os.Getenv("LUCI_CONTEXT"))
	if err != nil {
		return nil, err
	}
	var ctx luciContext
	if err = json.Unmarshal(b, &ctx); err != nil {
		return nil, err
	}
	// ResultDB is enabled but "rdb stream" was not started; results would be
	// silently lost.
	if ctx.ResultDB.CurrentInvocation.Name != "" && (ctx.ResultSink.AuthToken == "" || ctx.ResultSink.ResultSinkAddr == "") {
		return nil, fmt.Errorf("resultdb is enabled but not resultsink for invocation %s. Make sure pumlcheck is run under \"rdb stream\"", ctx.ResultDB.CurrentInvocation.Name)
	}
	return &ctx.ResultSink, nil
}
