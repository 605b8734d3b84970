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

package vincache

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/leasewise/client/internal/models"
)

// MemoryStore keeps lookups in process memory.
type MemoryStore struct {
	c *cache.Cache
}

// NewMemoryStore creates an in-process store. A non-positive ttl uses DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{c: cache.New(ttl, 2*ttl)}
}

func (m *MemoryStore) Get(ctx context.Context, vin string) (models.Payload, bool, error) {
	v, found := m.c.Get(vin)
	if !found {
		return nil, false, nil
	}
	payload, ok := v.(models.Payload)
	return payload, ok, nil
}

func (m *MemoryStore) Set(ctx context.Context, vin string, payload models.Payload) error {
	m.c.Set(vin, payload, cache.DefaultExpiration)
	return nil
}
