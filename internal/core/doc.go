// Package core implements the request/response core of the serving engine:
// request normalization, tensor bookkeeping and response output allocation.
// It is structured into small files by concern:
//
//   - backend.go: the Backend capability interface the core consumes.
//   - input.go: Input and RequestedOutput tensor entities.
//   - request.go: InferenceRequest, its mutation API and the
//     Stale/Validating/Ready prepare state machine.
//   - normalize.go: steps shared by both protocol variants.
//   - normalize_v1.go: protocol v1 (explicit batch-size field).
//   - normalize_v2.go: protocol v2 (batch size inferred from shapes).
//   - allocator.go: the Allocator capability and Allocation record.
//   - response.go: ResponseFactory, InferenceResponse and Output buffer
//     lifecycle.
//   - logging.go: package logger plumbing.
//
// A request is owned by one caller at a time; nothing in this package locks.
// The only cross-request shared state in the engine is the server's
// in-flight counter, which lives in internal/server.
package core
