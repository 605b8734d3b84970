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

package api

import (
	"context"
	"errors"
	"net"
)

// Kind classifies a failed API call.
type Kind int

const (
	// KindTransport means no usable response was obtained.
	KindTransport Kind = iota
	// KindTimeout means the call exceeded its deadline. The server may still
	// be working on the request.
	KindTimeout
	// KindServer means the server answered but reported a failure, either
	// with a non-success status or an explicit error field.
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindServer:
		return "server"
	default:
		return "transport"
	}
}

// Error is returned by every failing Client operation. Error() yields the
// user-facing message.
type Error struct {
	Op         string
	Kind       Kind
	Message    string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage returns the text to show for the failure.
func (e *Error) UserMessage() string {
	return e.Message
}

// KindOf reports the kind of an API error.
func KindOf(err error) (Kind, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind, true
	}
	return 0, false
}

// IsTimeout reports whether err is a timed-out API call.
func IsTimeout(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == KindTimeout
}

// operation carries the user-facing messages for one endpoint.
type operation struct {
	name     string
	failed   string
	timedOut string
}

var (
	opAnalyze = operation{
		name:     "analyze",
		failed:   "Upload failed",
		timedOut: "The analysis is taking longer than expected. The server may still be processing your contract, please try again in a moment.",
	}
	opVehicle = operation{
		name:     "lookup vehicle",
		failed:   "Vehicle lookup failed",
		timedOut: "Vehicle lookup timed out. Please try again.",
	}
	opRecalls = operation{
		name:     "lookup recalls",
		failed:   "Recall lookup failed",
		timedOut: "Recall lookup timed out. Please try again.",
	}
	opContract = operation{
		name:     "get contract",
		failed:   "Could not load the contract analysis",
		timedOut: "Loading the contract analysis timed out. Please try again.",
	}
	opPrice = operation{
		name:     "estimate price",
		failed:   "Price estimation failed",
		timedOut: "Price estimation timed out. Please try again.",
	}
	opNegotiate = operation{
		name:     "negotiate",
		failed:   "Negotiation request failed",
		timedOut: "The negotiation assistant is taking too long. Please try again.",
	}
)

func (op operation) transportError(err error) *Error {
	if isTimeout(err) {
		return &Error{Op: op.name, Kind: KindTimeout, Message: op.timedOut, Err: err}
	}
	return &Error{Op: op.name, Kind: KindTransport, Message: op.failed, Err: err}
}

func (op operation) serverError(status int, message string) *Error {
	if message == "" {
		message = op.failed
	}
	return &Error{Op: op.name, Kind: KindServer, Message: message, StatusCode: status}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
