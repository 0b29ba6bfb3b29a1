// Package responses defines API response types used by statekeeper HTTP handlers.
package responses

import "time"

// ServiceResponse represents one tracked service.
type ServiceResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ServiceListResponse represents the full desired state.
type ServiceListResponse struct {
	Status        string            `json:"status"`
	SchemaVersion string            `json:"schema_version"`
	Services      []ServiceResponse `json:"services"`
	Timestamp     time.Time         `json:"timestamp"`
}

// ServiceSetRequest is the request body for creating or updating a service.
type ServiceSetRequest struct {
	Version string `json:"version"`
}

// HealthResponse represents the health check API response.
type HealthResponse struct {
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	Version      string    `json:"version"`
	Uptime       float64   `json:"uptime"`
	ServiceCount int       `json:"service_count"`
	StateFile    string    `json:"state_file"`
}

// TransitionResponse represents one recorded state transition.
type TransitionResponse struct {
	ID            string            `json:"id"`
	SchemaVersion string            `json:"schema_version"`
	Services      []ServiceResponse `json:"services"`
	OccurredAt    time.Time         `json:"occurred_at"`
}

// HistoryResponse represents the transition history API response.
type HistoryResponse struct {
	Status      string               `json:"status"`
	Transitions []TransitionResponse `json:"transitions"`
	Timestamp   time.Time            `json:"timestamp"`
}
