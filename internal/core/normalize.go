package core

import (
	"inferd/internal/model"
	"inferd/internal/status"
)

// Steps shared by both protocol variants. Normalization always re-derives
// shape, batch byte size, batch size and priority from scratch; there is no
// incremental patching, which keeps PrepareForInference idempotent and rules
// out stale partial state from a previous failed attempt.

// clampPriority resets an unusable client priority to the model default.
func (r *InferenceRequest) clampPriority() {
	if r.priority == 0 || r.priority > r.backend.MaxPriorityLevel() {
		r.priority = r.backend.DefaultPriorityLevel()
	}
}

// validateRequestedOutputs checks that every requested output name resolves
// in the model configuration. The backend's lookup error (NOT_FOUND)
// surfaces unchanged.
func (r *InferenceRequest) validateRequestedOutputs() error {
	for name := range r.requestedOutputs {
		if _, err := r.backend.GetOutput(name); err != nil {
			return err
		}
	}
	return nil
}

// validateInputCount checks the request carries exactly the inputs the model
// declares.
func (r *InferenceRequest) validateInputCount() error {
	cfg := r.backend.Config()
	if len(r.originalInputs) != len(cfg.Inputs) {
		return status.InvalidArgf("expected %d inputs but got %d inputs for model '%s'",
			len(cfg.Inputs), len(r.originalInputs), r.modelName)
	}
	return nil
}

// validateBatchSize bounds the batch size against the model's declared
// maximum. Models that do not batch (max 0) still require batch size 1.
func (r *InferenceRequest) validateBatchSize() error {
	cfg := r.backend.Config()
	if r.batchSize < 1 {
		return status.InvalidArgf("inference request batch-size must be >= 1 for '%s'", r.modelName)
	}
	if r.batchSize != 1 && r.batchSize > int64(cfg.MaxBatchSize) {
		return status.InvalidArgf("inference request batch-size must be <= %d for '%s'",
			cfg.MaxBatchSize, r.modelName)
	}
	return nil
}

// resolveReshape rewrites shape into the declared reshape. Wildcard
// positions in the reshape take values recorded from the wildcard positions
// of the declared dims, left to right, FIFO.
func resolveReshape(dims []int64, reshape []int64, shape []int64) []int64 {
	var variable []int64
	for i, d := range dims {
		if d == model.WildcardDim {
			variable = append(variable, shape[i])
		}
	}
	out := make([]int64, 0, len(reshape))
	for _, d := range reshape {
		if d == model.WildcardDim {
			out = append(out, variable[0])
			variable = variable[1:]
		} else {
			out = append(out, d)
		}
	}
	return out
}
