// Copyright 2025 Kadir Pekel
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

package remote

import (
	"context"
	"fmt"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2aclient"
	"github.com/a2aproject/a2a-go/a2aclient/agentcard"
)

// Conn is a client bound to a resolved agent card.
type Conn struct {
	*a2aclient.Client
	Card *a2a.AgentCard
}

// Dial resolves the agent card served under baseURL and creates a client
// for its preferred transport. Close releases the client.
func Dial(ctx context.Context, baseURL string) (*Conn, error) {
	card, err := agentcard.DefaultResolver.Resolve(ctx, baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch agent card from %s: %w", baseURL, err)
	}

	client, err := a2aclient.NewFromCard(ctx, card)
	if err != nil {
		return nil, fmt.Errorf("client creation failed: %w", err)
	}
	return &Conn{Client: client, Card: card}, nil
}

// Close destroys the underlying client.
func (c *Conn) Close() error {
	return c.Destroy()
}

var _ Client = (*Conn)(nil)
