package mcp

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// LanguagesResourceURI is the URI of the language registry resource.
const LanguagesResourceURI = "amanchunk://languages"

// registerResources exposes the language registry as a read-only resource
// for clients that prefer resources over tool calls.
func (s *Server) registerResources() {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "languages",
			URI:         LanguagesResourceURI,
			Description: "Languages understood by chunk_code, with aliases and extensions",
			MIMEType:    "application/json",
		},
		s.handleLanguagesResource,
	)
}

// handleLanguagesResource renders list_languages output as JSON.
func (s *Server) handleLanguagesResource(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	content, err := json.MarshalIndent(s.listLanguages(), "", "  ")
	if err != nil {
		return nil, MapError(err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      LanguagesResourceURI,
				MIMEType: "application/json",
				Text:     string(content),
			},
		},
	}, nil
}
