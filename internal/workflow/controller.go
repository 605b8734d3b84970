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

// Package workflow drives the upload screen: a connectivity probe at start,
// file selection, a single in-flight upload, and the handoff of the result to
// the result view.
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/leasewise/client/internal/models"
)

// errNoResult stands in when an Analyzer returns neither a result nor an error.
var errNoResult = errors.New("analyzer returned no result")

// Fallback texts for failures that carry no message of their own.
const (
	msgUploadFailed    = "Upload failed"
	msgSelectionFailed = "Could not open the selected file"
)

// userMessage returns the text shown for err. Errors that have user-facing
// text expose it through a UserMessage method; anything else gets fallback.
func userMessage(err error, fallback string) string {
	var um interface{ UserMessage() string }
	if errors.As(err, &um) && um.UserMessage() != "" {
		return um.UserMessage()
	}
	return fallback
}

// State is the screen's position in the upload workflow.
type State int

const (
	StateIdle State = iota
	StateUploading
	StateSucceeded
)

func (s State) String() string {
	switch s {
	case StateUploading:
		return "uploading"
	case StateSucceeded:
		return "succeeded"
	default:
		return "idle"
	}
}

// Connectivity is the outcome of the health probe.
type Connectivity int

const (
	ConnectivityUnknown Connectivity = iota
	ConnectivityOnline
	ConnectivityOffline
)

func (c Connectivity) String() string {
	switch c {
	case ConnectivityOnline:
		return "online"
	case ConnectivityOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// Snapshot is the observable screen state.
type Snapshot struct {
	State        State
	Connectivity Connectivity
	Result       *models.ContractAnalysis // set in StateSucceeded
}

// Busy reports whether the busy indicator is shown.
func (s Snapshot) Busy() bool {
	return s.State == StateUploading
}

// CanUpload reports whether the upload trigger is enabled. Being offline
// does not disable it; the banner is advisory.
func (s Snapshot) CanUpload() bool {
	return s.State != StateUploading
}

// Offline reports whether the connectivity banner is shown.
func (s Snapshot) Offline() bool {
	return s.Connectivity == ConnectivityOffline
}

// Analyzer is the part of the API client the workflow needs.
// Implemented by api.Client.
type Analyzer interface {
	CheckHealth(ctx context.Context) bool
	UploadAndAnalyze(ctx context.Context, filePath, fileName string) (*models.ContractAnalysis, error)
}

// Selection is a file chosen by the user.
type Selection struct {
	Path string
	Name string
}

// FilePicker asks the user for a PDF. ok is false when the user cancels.
type FilePicker interface {
	PickPDF(ctx context.Context) (sel Selection, ok bool, err error)
}

// View is the presentation layer. Notify shows a transient message;
// ShowResult hands the analysis to the result screen.
//
// Failures reach Notify as user-facing text: the UserMessage of the error
// when it has one, otherwise a generic message.
type View interface {
	Render(Snapshot)
	Notify(message string)
	ShowResult(models.ContractAnalysis)
}

// ControllerConfig holds the collaborators of a Controller.
type ControllerConfig struct {
	Analyzer Analyzer
	Picker   FilePicker
	View     View
}

// Controller is the upload screen's state machine. One Controller serves one
// screen instance; Dispose it when the screen goes away.
//
// Each upload is tagged with a sequence number. A completion is applied only
// if its sequence is still current and the controller is not disposed, so a
// late response can never update a screen that is gone.
type Controller struct {
	analyzer Analyzer
	picker   FilePicker
	view     View

	mu           sync.Mutex
	state        State
	connectivity Connectivity
	result       *models.ContractAnalysis
	picking      bool
	seq          uint64
	disposed     bool

	wg sync.WaitGroup
}

// NewController creates a controller in StateIdle with unknown connectivity.
func NewController(cfg ControllerConfig) *Controller {
	return &Controller{
		analyzer: cfg.Analyzer,
		picker:   cfg.Picker,
		view:     cfg.View,
	}
}

// Init renders the initial state and starts the connectivity probe in the
// background. It returns immediately; the screen is usable before the probe
// resolves.
func (c *Controller) Init(ctx context.Context) {
	c.view.Render(c.Snapshot())

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		online := c.analyzer.CheckHealth(ctx)

		c.mu.Lock()
		if c.disposed {
			c.mu.Unlock()
			return
		}
		if online {
			c.connectivity = ConnectivityOnline
		} else {
			c.connectivity = ConnectivityOffline
		}
		snap := c.snapshotLocked()
		c.mu.Unlock()

		slog.Info("backend connectivity resolved", "connectivity", snap.Connectivity)
		c.view.Render(snap)
	}()
}

// SelectAndUpload asks the picker for a PDF and, if one is chosen, starts
// the upload in the background. It returns true when an upload was started.
// While an upload is in flight the trigger is disabled and this is a no-op.
func (c *Controller) SelectAndUpload(ctx context.Context) bool {
	c.mu.Lock()
	if c.disposed || c.picking || c.state == StateUploading {
		c.mu.Unlock()
		return false
	}
	c.picking = true
	c.mu.Unlock()

	sel, ok, err := c.picker.PickPDF(ctx)

	c.mu.Lock()
	c.picking = false
	if c.disposed {
		c.mu.Unlock()
		return false
	}
	if err != nil {
		c.mu.Unlock()
		slog.Warn("file selection failed", "error", err)
		c.view.Notify(userMessage(err, msgSelectionFailed))
		return false
	}
	if !ok {
		c.mu.Unlock()
		slog.Debug("file selection cancelled")
		return false
	}

	c.seq++
	seq := c.seq
	c.state = StateUploading
	c.result = nil
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.view.Render(snap)

	c.wg.Add(1)
	go c.upload(ctx, seq, sel)
	return true
}

func (c *Controller) upload(ctx context.Context, seq uint64, sel Selection) {
	defer c.wg.Done()

	result, err := c.analyzer.UploadAndAnalyze(ctx, sel.Path, sel.Name)
	if err == nil && result == nil {
		err = errNoResult
	}

	c.mu.Lock()
	if c.disposed || seq != c.seq {
		c.mu.Unlock()
		slog.Debug("discarding stale upload completion", "seq", seq, "file_name", sel.Name)
		return
	}

	if err != nil {
		c.state = StateIdle
		snap := c.snapshotLocked()
		c.mu.Unlock()

		slog.Warn("contract upload failed", "file_name", sel.Name, "error", err)
		c.view.Render(snap)
		c.view.Notify(userMessage(err, msgUploadFailed))
		return
	}

	c.state = StateSucceeded
	c.result = result
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.view.Render(snap)
	c.view.ShowResult(*result)
}

// Dispose marks the screen as gone. Pending probe and upload completions
// are discarded when they arrive.
func (c *Controller) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disposed = true
	c.seq++
}

// Wait blocks until the probe and any upload started so far have finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Snapshot returns the current screen state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:        c.state,
		Connectivity: c.connectivity,
		Result:       c.result,
	}
}
