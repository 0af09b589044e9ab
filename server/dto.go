package server

// ErrorResponse represents API error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// HealthResponse represents the health check reply
type HealthResponse struct {
	Status string `json:"status"`
	Corpus string `json:"corpus"`
}
