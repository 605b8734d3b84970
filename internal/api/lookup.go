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
	"fmt"
	"net/url"

	"github.com/leasewise/client/internal/models"
)

// LookupVehicle returns the raw vehicle details for a VIN from GET /vin/{vin}.
// VIN format is validated by the backend.
func (c *Client) LookupVehicle(ctx context.Context, vin string) (models.Payload, error) {
	return c.getPayload(ctx, opVehicle, "/vin/"+url.PathEscape(vin))
}

// LookupRecalls returns the recall campaigns for a VIN.
func (c *Client) LookupRecalls(ctx context.Context, vin string) (models.Payload, error) {
	return c.getPayload(ctx, opRecalls, "/vin/"+url.PathEscape(vin)+"/recalls")
}

// PriceRequest describes a vehicle for market price estimation.
type PriceRequest struct {
	Make      string `json:"make"`
	Model     string `json:"model"`
	Year      int    `json:"year"`
	Mileage   *int   `json:"mileage,omitempty"`
	Condition string `json:"condition,omitempty"`
	BodyClass string `json:"body_class,omitempty"`
}

// EstimatePrice asks the backend for a market price range.
func (c *Client) EstimatePrice(ctx context.Context, req PriceRequest) (models.Payload, error) {
	return c.postPayload(ctx, opPrice, "/price-estimate", req)
}

// EstimatePriceByVIN decodes the VIN server-side and estimates its price.
func (c *Client) EstimatePriceByVIN(ctx context.Context, vin string) (models.Payload, error) {
	return c.getPayload(ctx, opPrice, "/price-estimate/"+url.PathEscape(vin))
}

// NegotiationSession is an open negotiation thread for an analyzed contract.
type NegotiationSession struct {
	ThreadID       int
	ContractID     int
	WelcomeMessage string
	Points         []models.NegotiationPoint
}

// NegotiationMessage is one turn of a negotiation thread.
type NegotiationMessage struct {
	Role      string
	Content   string
	CreatedAt string
}

// NegotiationReply is the assistant's answer to a chat message.
type NegotiationReply struct {
	ThreadID     int
	Response     string
	MessageCount int
}

// StartNegotiation opens a negotiation thread for a contract. An empty title
// lets the backend choose one.
func (c *Client) StartNegotiation(ctx context.Context, contractID int, title string) (*NegotiationSession, error) {
	body := map[string]any{"contract_id": contractID}
	if title != "" {
		body["title"] = title
	}
	p, err := c.postPayload(ctx, opNegotiate, "/negotiate/start", body)
	if err != nil {
		return nil, err
	}

	return &NegotiationSession{
		ThreadID:       intOr(p, "thread_id", 0),
		ContractID:     intOr(p, "contract_id", contractID),
		WelcomeMessage: textOr(p, "welcome_message"),
		Points:         models.DecodeNegotiationPoints(p["negotiation_points"]),
	}, nil
}

// SendNegotiationMessage posts a user message to a thread and returns the
// assistant's reply.
func (c *Client) SendNegotiationMessage(ctx context.Context, threadID int, message string) (*NegotiationReply, error) {
	p, err := c.postPayload(ctx, opNegotiate, "/negotiate/chat", map[string]any{
		"thread_id": threadID,
		"message":   message,
	})
	if err != nil {
		return nil, err
	}
	return &NegotiationReply{
		ThreadID:     intOr(p, "thread_id", threadID),
		Response:     textOr(p, "response"),
		MessageCount: intOr(p, "message_count", 0),
	}, nil
}

// NegotiationHistory returns every message in a thread, oldest first.
func (c *Client) NegotiationHistory(ctx context.Context, threadID int) ([]NegotiationMessage, error) {
	p, err := c.getPayload(ctx, opNegotiate, fmt.Sprintf("/negotiate/history/%d", threadID))
	if err != nil {
		return nil, err
	}

	items, _ := p["messages"].([]any)
	messages := make([]NegotiationMessage, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		mp := models.Payload(m)
		messages = append(messages, NegotiationMessage{
			Role:      textOr(mp, "role"),
			Content:   textOr(mp, "content"),
			CreatedAt: textOr(mp, "created_at"),
		})
	}
	return messages, nil
}

// DraftNegotiationEmail asks the backend to write a negotiation email for a
// contract. tone defaults to "professional" server-side when empty.
func (c *Client) DraftNegotiationEmail(ctx context.Context, contractID int, tone string, requests []string) (string, error) {
	body := map[string]any{"contract_id": contractID}
	if tone != "" {
		body["tone"] = tone
	}
	if len(requests) > 0 {
		body["specific_requests"] = requests
	}
	p, err := c.postPayload(ctx, opNegotiate, "/negotiate/email", body)
	if err != nil {
		return "", err
	}
	return textOr(p, "email"), nil
}

func intOr(p models.Payload, key string, fallback int) int {
	if v := p.Int(key); v != nil {
		return *v
	}
	return fallback
}

func textOr(p models.Payload, key string) string {
	if v := p.Text(key); v != nil {
		return *v
	}
	return ""
}
