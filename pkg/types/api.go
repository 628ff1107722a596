package types

// ModelStatus summarizes one loaded model version for GET /status.
type ModelStatus struct {
	// Model name as registered in the repository.
	// example: resnet50
	Name string `json:"name" example:"resnet50"`
	// Version of this backend instance.
	// example: 3
	Version int64 `json:"version" example:"3"`
	// Lifecycle state of the backend (e.g., ready).
	// example: ready
	State string `json:"state" example:"ready"`
	// Declared maximum batch size; 0 means the model does not batch.
	// example: 8
	MaxBatchSize int `json:"max_batch_size" example:"8"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Server identifier.
	// example: inferd
	ID string `json:"id" example:"inferd"`
	// Server version string.
	// example: 0.1.0
	Version string `json:"version" example:"0.1.0"`
	// Overall server ready state (e.g., initializing, ready, exiting).
	// example: ready
	State string `json:"state" example:"ready"`
	// Loaded model versions.
	Models []ModelStatus `json:"models"`
	// Number of requests currently executing.
	// example: 2
	InflightRequests int64 `json:"inflight_requests" example:"2"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: model 'resnet50' not found
	Error string `json:"error" example:"model 'resnet50' not found"`
	// HTTP status code.
	// example: 404
	Code int `json:"code" example:"404"`
}
