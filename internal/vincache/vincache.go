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

// Package vincache caches vehicle lookups by VIN. Decoded VIN data does not
// change, so repeat lookups are served from a local or shared store.
package vincache

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/leasewise/client/internal/models"
)

// DefaultTTL is how long a VIN lookup is remembered.
const DefaultTTL = 24 * time.Hour

// Store holds vehicle payloads keyed by normalized VIN.
type Store interface {
	Get(ctx context.Context, vin string) (models.Payload, bool, error)
	Set(ctx context.Context, vin string, payload models.Payload) error
}

// VehicleClient looks up a vehicle by VIN. Implemented by api.Client.
type VehicleClient interface {
	LookupVehicle(ctx context.Context, vin string) (models.Payload, error)
}

// Lookup is a read-through cache in front of a VehicleClient. Store failures
// are logged and the lookup falls through to the client.
type Lookup struct {
	client VehicleClient
	store  Store
}

// NewLookup wraps client with store.
func NewLookup(client VehicleClient, store Store) *Lookup {
	return &Lookup{client: client, store: store}
}

// LookupVehicle returns the cached payload for vin, or fetches and caches it.
// Failed lookups are not cached.
func (l *Lookup) LookupVehicle(ctx context.Context, vin string) (models.Payload, error) {
	key := Normalize(vin)

	if payload, found, err := l.store.Get(ctx, key); err != nil {
		slog.Warn("vin cache read failed", "vin", key, "error", err)
	} else if found {
		slog.Debug("vin cache hit", "vin", key)
		return payload, nil
	}

	payload, err := l.client.LookupVehicle(ctx, key)
	if err != nil {
		return nil, err
	}

	if err := l.store.Set(ctx, key, payload); err != nil {
		slog.Warn("vin cache write failed", "vin", key, "error", err)
	}
	return payload, nil
}

// Normalize upper-cases and trims a VIN.
func Normalize(vin string) string {
	return strings.ToUpper(strings.TrimSpace(vin))
}
