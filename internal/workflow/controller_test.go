// Copyright (c) 2026 John Earle
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

package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leasewise/client/internal/api"
	"github.com/leasewise/client/internal/models"
)

// fakeAnalyzer blocks each call until released when a gate channel is set.
type fakeAnalyzer struct {
	healthGate chan struct{}
	online     bool

	uploadGate  chan struct{}
	result      *models.ContractAnalysis
	err         error
	uploadCalls atomic.Int32
	lastPath    atomic.Value
}

func (f *fakeAnalyzer) CheckHealth(ctx context.Context) bool {
	if f.healthGate != nil {
		<-f.healthGate
	}
	return f.online
}

func (f *fakeAnalyzer) UploadAndAnalyze(ctx context.Context, filePath, fileName string) (*models.ContractAnalysis, error) {
	f.uploadCalls.Add(1)
	f.lastPath.Store(filePath)
	if f.uploadGate != nil {
		<-f.uploadGate
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.result == nil {
		return nil, nil
	}
	out := *f.result
	out.FileName = fileName
	return &out, nil
}

type fakePicker struct {
	sel   Selection
	ok    bool
	err   error
	calls atomic.Int32
}

func (p *fakePicker) PickPDF(ctx context.Context) (Selection, bool, error) {
	p.calls.Add(1)
	return p.sel, p.ok, p.err
}

// recordingView captures everything the controller shows.
type recordingView struct {
	mu      sync.Mutex
	renders []Snapshot
	notices []string
	results []models.ContractAnalysis
}

func (v *recordingView) Render(s Snapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.renders = append(v.renders, s)
}

func (v *recordingView) Notify(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.notices = append(v.notices, msg)
}

func (v *recordingView) ShowResult(a models.ContractAnalysis) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.results = append(v.results, a)
}

func (v *recordingView) counts() (renders, notices, results int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.renders), len(v.notices), len(v.results)
}

func newTestController(a *fakeAnalyzer, p *fakePicker) (*Controller, *recordingView) {
	view := &recordingView{}
	return NewController(ControllerConfig{Analyzer: a, Picker: p, View: view}), view
}

func pdfSelection() *fakePicker {
	return &fakePicker{sel: Selection{Path: "/tmp/lease.pdf", Name: "lease.pdf"}, ok: true}
}

func sampleResult() *models.ContractAnalysis {
	return &models.ContractAnalysis{
		ContractID: 5,
		Fairness:   models.FairnessScore{Score: 82, Rating: "Good"},
		SLA:        models.SLAData{RedFlags: []string{}},
	}
}

// TestInit_ProbeDoesNotBlock verifies the screen is interactive before the
// probe resolves and connectivity is applied afterwards.
func TestInit_ProbeDoesNotBlock(t *testing.T) {
	a := &fakeAnalyzer{healthGate: make(chan struct{}), online: true}
	c, view := newTestController(a, pdfSelection())

	c.Init(context.Background())

	snap := c.Snapshot()
	if snap.Connectivity != ConnectivityUnknown {
		t.Errorf("Connectivity = %s before probe, want unknown", snap.Connectivity)
	}
	if !snap.CanUpload() || snap.Busy() {
		t.Error("trigger should be enabled and not busy while probing")
	}

	close(a.healthGate)
	c.Wait()

	if got := c.Snapshot().Connectivity; got != ConnectivityOnline {
		t.Errorf("Connectivity = %s, want online", got)
	}
	if renders, _, _ := view.counts(); renders != 2 {
		t.Errorf("renders = %d, want 2 (initial + probe)", renders)
	}
}

// TestInit_Offline verifies a failed probe only raises the banner.
func TestInit_Offline(t *testing.T) {
	a := &fakeAnalyzer{online: false}
	c, view := newTestController(a, pdfSelection())

	c.Init(context.Background())
	c.Wait()

	snap := c.Snapshot()
	if !snap.Offline() {
		t.Error("expected offline banner")
	}
	if snap.State != StateIdle || !snap.CanUpload() {
		t.Errorf("state = %s, offline must not block uploads", snap.State)
	}
	if _, notices, _ := view.counts(); notices != 0 {
		t.Errorf("notices = %d, connectivity failure should be silent", notices)
	}
}

// TestSelectAndUpload_Cancel verifies a cancelled picker changes nothing.
func TestSelectAndUpload_Cancel(t *testing.T) {
	a := &fakeAnalyzer{result: sampleResult()}
	picker := &fakePicker{ok: false}
	c, view := newTestController(a, picker)

	before := c.Snapshot()
	if c.SelectAndUpload(context.Background()) {
		t.Error("SelectAndUpload should report no upload started")
	}
	c.Wait()

	if c.Snapshot() != before {
		t.Errorf("state changed after cancel: %+v", c.Snapshot())
	}
	if n := a.uploadCalls.Load(); n != 0 {
		t.Errorf("upload calls = %d, want 0", n)
	}
	if renders, notices, results := view.counts(); renders+notices+results != 0 {
		t.Errorf("view should not be touched, got %d/%d/%d", renders, notices, results)
	}
}

// TestSelectAndUpload_Success verifies the handoff to the result view.
func TestSelectAndUpload_Success(t *testing.T) {
	a := &fakeAnalyzer{result: sampleResult(), uploadGate: make(chan struct{})}
	c, view := newTestController(a, pdfSelection())

	if !c.SelectAndUpload(context.Background()) {
		t.Fatal("expected upload to start")
	}

	snap := c.Snapshot()
	if snap.State != StateUploading || !snap.Busy() || snap.CanUpload() {
		t.Errorf("snapshot while uploading = %+v", snap)
	}

	close(a.uploadGate)
	c.Wait()

	snap = c.Snapshot()
	if snap.State != StateSucceeded || snap.Result == nil {
		t.Fatalf("snapshot after success = %+v", snap)
	}
	if !snap.CanUpload() {
		t.Error("trigger should be re-enabled after handoff")
	}
	_, notices, results := view.counts()
	if results != 1 || notices != 0 {
		t.Fatalf("results/notices = %d/%d, want 1/0", results, notices)
	}
	if view.results[0].FileName != "lease.pdf" || view.results[0].ContractID != 5 {
		t.Errorf("handed off %+v", view.results[0])
	}
	if a.lastPath.Load() != "/tmp/lease.pdf" {
		t.Errorf("uploaded path = %v", a.lastPath.Load())
	}
}

// TestSelectAndUpload_Failure verifies a failure returns to idle, shows the
// message and leaves connectivity alone.
func TestSelectAndUpload_Failure(t *testing.T) {
	a := &fakeAnalyzer{
		online: true,
		err:    &api.Error{Kind: api.KindServer, Message: "duplicate upload"},
	}
	c, view := newTestController(a, pdfSelection())

	c.Init(context.Background())
	c.Wait()

	c.SelectAndUpload(context.Background())
	c.Wait()

	snap := c.Snapshot()
	if snap.State != StateIdle || !snap.CanUpload() {
		t.Errorf("state = %s, want idle with trigger enabled", snap.State)
	}
	if snap.Connectivity != ConnectivityOnline {
		t.Errorf("Connectivity = %s, failure must not touch it", snap.Connectivity)
	}
	if len(view.notices) != 1 || view.notices[0] != "duplicate upload" {
		t.Errorf("notices = %v", view.notices)
	}
	if len(view.results) != 0 {
		t.Error("no result should be handed off")
	}
}

// TestSelectAndUpload_TimeoutMessage verifies timeouts surface their own message.
func TestSelectAndUpload_TimeoutMessage(t *testing.T) {
	timeoutErr := &api.Error{Kind: api.KindTimeout, Message: "still processing"}
	a := &fakeAnalyzer{err: timeoutErr}
	c, view := newTestController(a, pdfSelection())

	c.SelectAndUpload(context.Background())
	c.Wait()

	if len(view.notices) != 1 || view.notices[0] != "still processing" {
		t.Errorf("notices = %v", view.notices)
	}
}

// TestSelectAndUpload_SingleFlight verifies the trigger is disabled while
// an upload is in flight.
func TestSelectAndUpload_SingleFlight(t *testing.T) {
	a := &fakeAnalyzer{result: sampleResult(), uploadGate: make(chan struct{})}
	picker := pdfSelection()
	c, _ := newTestController(a, picker)

	if !c.SelectAndUpload(context.Background()) {
		t.Fatal("expected first upload to start")
	}
	if c.SelectAndUpload(context.Background()) {
		t.Error("second upload should be refused while uploading")
	}
	if n := picker.calls.Load(); n != 1 {
		t.Errorf("picker calls = %d, want 1", n)
	}

	close(a.uploadGate)
	c.Wait()

	if n := a.uploadCalls.Load(); n != 1 {
		t.Errorf("upload calls = %d, want 1", n)
	}

	// Trigger is usable again after the first upload resolves.
	a.uploadGate = nil
	if !c.SelectAndUpload(context.Background()) {
		t.Error("upload should be allowed after the previous one resolved")
	}
	c.Wait()
}

// userError carries separate user-facing text, like picker.SelectionError.
type userError struct{ msg string }

func (e userError) Error() string       { return "select lease.txt: not a pdf document" }
func (e userError) UserMessage() string { return e.msg }

// TestSelectAndUpload_PickerError verifies picker failures are notified.
func TestSelectAndUpload_PickerError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"user message", fmt.Errorf("pick: %w", userError{"Only PDF files are supported"}), "Only PDF files are supported"},
		{"plain error", errors.New("read file path: bad descriptor"), "Could not open the selected file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &fakeAnalyzer{result: sampleResult()}
			c, view := newTestController(a, &fakePicker{err: tt.err})

			if c.SelectAndUpload(context.Background()) {
				t.Error("no upload should start")
			}
			if c.Snapshot().State != StateIdle {
				t.Error("state should stay idle")
			}
			if len(view.notices) != 1 || view.notices[0] != tt.want {
				t.Errorf("notices = %v, want [%s]", view.notices, tt.want)
			}
			if a.uploadCalls.Load() != 0 {
				t.Error("upload must not be called")
			}
		})
	}
}

// TestSelectAndUpload_GenericFailureMessage verifies errors without
// user-facing text, and a missing result, fall back to the generic message.
func TestSelectAndUpload_GenericFailureMessage(t *testing.T) {
	for _, a := range []*fakeAnalyzer{
		{err: errors.New("dial tcp: connection refused")},
		{},
	} {
		c, view := newTestController(a, pdfSelection())

		c.SelectAndUpload(context.Background())
		c.Wait()

		if len(view.notices) != 1 || view.notices[0] != "Upload failed" {
			t.Errorf("notices = %v, want [Upload failed]", view.notices)
		}
		if c.Snapshot().State != StateIdle {
			t.Errorf("state = %s, want idle", c.Snapshot().State)
		}
	}
}

// TestSelectAndUpload_OfflineStillUploads verifies the offline banner does
// not gate uploads.
func TestSelectAndUpload_OfflineStillUploads(t *testing.T) {
	a := &fakeAnalyzer{online: false, result: sampleResult()}
	c, view := newTestController(a, pdfSelection())

	c.Init(context.Background())
	c.Wait()

	if !c.SelectAndUpload(context.Background()) {
		t.Fatal("upload should start while offline")
	}
	c.Wait()

	if _, _, results := view.counts(); results != 1 {
		t.Errorf("results = %d, want 1", results)
	}
}

// TestDispose_SuppressesPendingUpload verifies a late completion does not
// reach a disposed screen.
func TestDispose_SuppressesPendingUpload(t *testing.T) {
	for _, tc := range []struct {
		name string
		a    *fakeAnalyzer
	}{
		{"success", &fakeAnalyzer{result: sampleResult(), uploadGate: make(chan struct{})}},
		{"failure", &fakeAnalyzer{err: errors.New("boom"), uploadGate: make(chan struct{})}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c, view := newTestController(tc.a, pdfSelection())

			c.SelectAndUpload(context.Background())
			rendersBefore, _, _ := view.counts()

			c.Dispose()
			close(tc.a.uploadGate)
			c.Wait()

			renders, notices, results := view.counts()
			if renders != rendersBefore || notices != 0 || results != 0 {
				t.Errorf("view touched after dispose: renders %d->%d, notices %d, results %d",
					rendersBefore, renders, notices, results)
			}
			if c.SelectAndUpload(context.Background()) {
				t.Error("disposed controller should refuse new uploads")
			}
		})
	}
}

// TestDispose_SuppressesProbe verifies a late probe does not render.
func TestDispose_SuppressesProbe(t *testing.T) {
	a := &fakeAnalyzer{healthGate: make(chan struct{}), online: true}
	c, view := newTestController(a, pdfSelection())

	c.Init(context.Background())
	c.Dispose()
	close(a.healthGate)
	c.Wait()

	if renders, _, _ := view.counts(); renders != 1 {
		t.Errorf("renders = %d, want only the initial render", renders)
	}
	if c.Snapshot().Connectivity != ConnectivityUnknown {
		t.Error("connectivity should not be written after dispose")
	}
}

// TestProbeAndUploadConcurrently verifies the probe and an upload resolve
// independently.
func TestProbeAndUploadConcurrently(t *testing.T) {
	a := &fakeAnalyzer{healthGate: make(chan struct{}), online: false, result: sampleResult()}
	c, _ := newTestController(a, pdfSelection())

	c.Init(context.Background())
	c.SelectAndUpload(context.Background())

	deadline := time.After(2 * time.Second)
	for c.Snapshot().State != StateSucceeded {
		select {
		case <-deadline:
			t.Fatal("upload did not complete while probe was pending")
		case <-time.After(5 * time.Millisecond):
		}
	}

	close(a.healthGate)
	c.Wait()

	snap := c.Snapshot()
	if snap.State != StateSucceeded || snap.Connectivity != ConnectivityOffline {
		t.Errorf("snapshot = %+v", snap)
	}
}

// TestStateStrings verifies the labels used in logs.
func TestStateStrings(t *testing.T) {
	if StateIdle.String() != "idle" || StateUploading.String() != "uploading" || StateSucceeded.String() != "succeeded" {
		t.Error("unexpected state labels")
	}
	if ConnectivityUnknown.String() != "unknown" || ConnectivityOnline.String() != "online" || ConnectivityOffline.String() != "offline" {
		t.Error("unexpected connectivity labels")
	}
}
