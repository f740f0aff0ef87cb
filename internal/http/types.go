package http

import (
	"github.com/fyrsmithlabs/foldkit/internal/controller"
	"github.com/fyrsmithlabs/foldkit/internal/folding"
	"github.com/fyrsmithlabs/foldkit/internal/telemetry"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status    string                  `json:"status"`
	Telemetry *telemetry.HealthStatus `json:"telemetry,omitempty"`
}

// StatusResponse is the response body for GET /api/v1/status.
type StatusResponse struct {
	Status   string       `json:"status"`
	Version  string       `json:"version,omitempty"`
	Counts   StatusCounts `json:"counts"`
	Commands []string     `json:"commands"`
}

// StatusCounts summarizes the open documents.
type StatusCounts struct {
	Documents int `json:"documents"`
	Active    int `json:"active"`
	Regions   int `json:"regions"`
	Collapsed int `json:"collapsed"`
	// Limited counts documents whose regions were cut to the limit.
	Limited int `json:"limited"`
}

// OpenRequest is the request body for POST /api/v1/documents.
type OpenRequest struct {
	URI        string `json:"uri"`
	LanguageID string `json:"language_id,omitempty"`
	Text       string `json:"text"`
}

// UpdateRequest is the request body for PUT /api/v1/documents/:id.
type UpdateRequest struct {
	Text string `json:"text"`
}

// DocumentResponse describes an open document.
type DocumentResponse struct {
	ID         string `json:"id"`
	URI        string `json:"uri"`
	LanguageID string `json:"language_id"`
	Version    int    `json:"version"`
	Lines      int    `json:"lines"`
	State      string `json:"state"`
	Provider   string `json:"provider,omitempty"`
}

// RegionsResponse is the response body for GET /api/v1/documents/:id/regions.
type RegionsResponse struct {
	DocumentResponse
	Regions []folding.FoldRange  `json:"regions"`
	Markers []folding.LineMarker `json:"markers"`
	Limit   LimitInfo            `json:"limit"`
}

// LimitInfo reports region truncation of the last computation.
type LimitInfo struct {
	Max      int `json:"max"`
	Computed int `json:"computed"`
	Limited  int `json:"limited"`
}

// HiddenResponse is the response body for GET /api/v1/documents/:id/hidden.
type HiddenResponse struct {
	ID      string              `json:"id"`
	Version int                 `json:"version"`
	Hidden  []folding.LineRange `json:"hidden"`
}

// CommandRequest is the request body for POST /api/v1/documents/:id/commands.
type CommandRequest struct {
	Command string          `json:"command"`
	Args    controller.Args `json:"args"`
}

// CommandResponse is the response body of a fold command.
type CommandResponse struct {
	controller.Result
	Hidden []folding.LineRange `json:"hidden"`
}
