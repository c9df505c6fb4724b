// Package web provides HTTP request and response types for the
// automation API.
package web

// RunWorkflowResponse is the response of a manual workflow trigger.
type RunWorkflowResponse struct {
	Success bool   `json:"success"`
	RunID   string `json:"run_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse reports the persistence layer's health.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
