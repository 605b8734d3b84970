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

// Package picker provides the file chooser for the upload workflow. Both
// pickers only accept PDF documents.
package picker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/leasewise/client/internal/workflow"
)

var (
	// ErrNotPDF is returned when the chosen file is not a PDF document.
	ErrNotPDF = errors.New("not a pdf document")
	// ErrEmpty is returned for a zero-length file.
	ErrEmpty  = errors.New("file is empty")
)

// Messages shown to the user for a rejected selection.
const (
	msgNotPDF     = "Only PDF files are supported"
	msgEmpty      = "The selected file is empty"
	msgUnreadable = "Could not read the selected file"
)

// sniffLen is how much of the file is read for content detection.
const sniffLen = 512

// SelectionError is a rejected file selection.
type SelectionError struct {
	Path    string
	Message string
	Err     error
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("select %s: %v", e.Path, e.Err)
}

func (e *SelectionError) Unwrap() error {
	return e.Err
}

// UserMessage returns the text to show for the rejection.
func (e *SelectionError) UserMessage() string {
	return e.Message
}

// PathPicker returns a path chosen ahead of time, for example a command
// line argument. An empty path is treated as a cancelled selection.
type PathPicker struct {
	Path string
}

// PickPDF validates the preselected path.
func (p PathPicker) PickPDF(ctx context.Context) (workflow.Selection, bool, error) {
	if strings.TrimSpace(p.Path) == "" {
		return workflow.Selection{}, false, nil
	}
	sel, err := Validate(p.Path)
	if err != nil {
		return workflow.Selection{}, false, err
	}
	return sel, true, nil
}

// DefaultPrompt is shown by a PromptPicker.
const DefaultPrompt = "Path to contract PDF (blank to cancel): "

type line struct {
	text string
	err  error
}

// PromptPicker asks for a path on an interactive stream. A blank answer or
// end of input cancels the selection.
//
// One goroutine reads the stream for the picker's lifetime and hands each
// line to the next PickPDF call, so nothing buffered is lost between calls.
// If a call is cancelled while waiting, the goroutine stays blocked on the
// stream until a line arrives or the stream is closed, and that line answers
// the following call.
type PromptPicker struct {
	in     *bufio.Reader
	out    io.Writer
	prompt string

	once  sync.Once
	lines chan line
}

// NewPromptPicker creates a picker reading answers from in and writing the
// prompt to out. out may be nil.
func NewPromptPicker(in io.Reader, out io.Writer) *PromptPicker {
	return &PromptPicker{
		in:     bufio.NewReader(in),
		out:    out,
		prompt: DefaultPrompt,
		lines:  make(chan line),
	}
}

func (p *PromptPicker) readLines() {
	defer close(p.lines)
	for {
		text, err := p.in.ReadString('\n')
		if text != "" || err == nil {
			p.lines <- line{text: text}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				p.lines <- line{err: err}
			}
			return
		}
	}
}

// PickPDF prompts once and validates the answer.
func (p *PromptPicker) PickPDF(ctx context.Context) (workflow.Selection, bool, error) {
	p.once.Do(func() { go p.readLines() })

	if p.out != nil {
		fmt.Fprint(p.out, p.prompt)
	}

	var l line
	var open bool
	select {
	case <-ctx.Done():
		return workflow.Selection{}, false, nil
	case l, open = <-p.lines:
	}
	if !open {
		// End of input.
		return workflow.Selection{}, false, nil
	}
	if l.err != nil {
		return workflow.Selection{}, false, &SelectionError{Message: msgUnreadable, Err: fmt.Errorf("read file path: %w", l.err)}
	}

	path := strings.Trim(strings.TrimSpace(l.text), `"'`)
	if path == "" {
		return workflow.Selection{}, false, nil
	}

	sel, err := Validate(path)
	if err != nil {
		return workflow.Selection{}, false, err
	}
	return sel, true, nil
}

// Validate checks that path names a readable PDF by extension and by its
// leading bytes, and returns the selection to upload. Rejections are
// *SelectionError.
func Validate(path string) (workflow.Selection, error) {
	reject := func(msg string, err error) (workflow.Selection, error) {
		return workflow.Selection{}, &SelectionError{Path: path, Message: msg, Err: err}
	}

	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return reject(msgNotPDF, ErrNotPDF)
	}

	f, err := os.Open(path)
	if err != nil {
		return reject(msgUnreadable, fmt.Errorf("open file: %w", err))
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return reject(msgUnreadable, fmt.Errorf("stat file: %w", err))
	}
	if info.IsDir() {
		return reject(msgNotPDF, ErrNotPDF)
	}

	buf := make([]byte, sniffLen)
	n, err := f.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return reject(msgUnreadable, fmt.Errorf("read file: %w", err))
	}
	if n == 0 {
		return reject(msgEmpty, ErrEmpty)
	}

	detected := http.DetectContentType(buf[:n])
	detected = strings.ToLower(strings.Split(detected, ";")[0])
	if detected != "application/pdf" {
		slog.Warn("file rejected by content detection", "path", path, "detected", detected)
		return reject(msgNotPDF, ErrNotPDF)
	}

	return workflow.Selection{Path: path, Name: filepath.Base(path)}, nil
}
