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

package server

import (
	"fmt"

	"github.com/a2aproject/a2a-go/a2a"

	"github.com/kadirpekel/graphchat/pkg/config"
)

// Agent card values.
const (
	AgentName        = "Calculating_Chatbot"
	AgentDescription = "A chatbot that can answer questions and perform calculations."
	SkillID          = "calculating"
)

var supportedModes = []string{"text", "text/plain"}

// NewAgentCard builds the card served at the well-known path. Streaming is
// advertised only in streaming mode. The first configured transport is the
// preferred one; the rest, and gRPC when enabled, are additional interfaces.
func NewAgentCard(cfg *config.ServerConfig) *a2a.AgentCard {
	card := &a2a.AgentCard{
		Name:               AgentName,
		Description:        AgentDescription,
		URL:                cfg.PublicURL,
		Version:            cfg.Version,
		ProtocolVersion:    "0.3.0",
		DefaultInputModes:  supportedModes,
		DefaultOutputModes: supportedModes,
		Skills: []a2a.AgentSkill{{
			ID:          SkillID,
			Name:        SkillID,
			Description: "Answers questions and performs multiplication and addition.",
			Tags:        []string{"calculator"},
			Examples:    []string{"100掛ける200を計算してください", "1足す2を計算してください"},
		}},
		Capabilities: a2a.AgentCapabilities{
			Streaming: cfg.Streaming(),
		},
	}

	interfaces := make([]a2a.AgentInterface, 0, len(cfg.Transports)+1)
	for _, t := range cfg.Transports {
		switch t {
		case config.TransportJSONRPC:
			interfaces = append(interfaces, a2a.AgentInterface{URL: cfg.PublicURL, Transport: a2a.TransportProtocolJSONRPC})
		case config.TransportHTTPJSON:
			interfaces = append(interfaces, a2a.AgentInterface{URL: cfg.RESTURL(), Transport: a2a.TransportProtocolHTTPJSON})
		}
	}
	if cfg.GRPC.Enabled {
		interfaces = append(interfaces, a2a.AgentInterface{
			URL:       fmt.Sprintf("localhost:%d", cfg.GRPC.Port),
			Transport: a2a.TransportProtocolGRPC,
		})
	}
	if len(interfaces) > 0 {
		card.URL = interfaces[0].URL
		card.PreferredTransport = interfaces[0].Transport
		card.AdditionalInterfaces = interfaces[1:]
	}
	return card
}
