package core

import (
	"inferd/internal/memory"
	"inferd/internal/model"
	"inferd/internal/status"
)

// normalizeV2 rewrites the request per the v2 protocol, where batching
// models carry the batch size as the leading dimension of every input shape.
func (r *InferenceRequest) normalizeV2() error {
	cfg := r.backend.Config()

	r.clampPriority()

	if err := r.validateRequestedOutputs(); err != nil {
		return err
	}
	if err := r.validateInputCount(); err != nil {
		return err
	}

	// Determine the batch size and the shape of each input.
	if cfg.MaxBatchSize == 0 {
		// Model does not batch; treat as batch size 1 and leave the tensor
		// shapes as they are.
		r.batchSize = 1
		for _, idx := range r.originalInputs {
			in := r.arena[idx]
			in.setShape(append([]int64(nil), in.OriginalShape()...))
		}
	} else {
		// Every input must carry the same leading batch dimension; strip it
		// from the working shape.
		r.batchSize = 0
		for _, idx := range r.originalInputs {
			in := r.arena[idx]
			if len(in.OriginalShape()) == 0 {
				return status.InvalidArgf(
					"input '%s' has no shape but model requires batch dimension for '%s'",
					in.Name(), r.modelName)
			}
			if r.batchSize == 0 {
				r.batchSize = in.OriginalShape()[0]
			} else if in.OriginalShape()[0] != r.batchSize {
				return status.InvalidArgf(
					"input '%s' batch size does not match other inputs for '%s'",
					in.Name(), r.modelName)
			}
			in.setShape(append([]int64(nil), in.OriginalShape()[1:]...))
		}
	}

	if err := r.validateBatchSize(); err != nil {
		return err
	}

	// Verify each input shape against the model, adjust for reshapes and
	// record the total data size.
	for name, idx := range r.originalInputs {
		inputCfg, err := r.backend.GetInput(name)
		if err != nil {
			return err
		}
		in := r.arena[idx]

		// The v2 endpoints always specify the datatype; the config is
		// authoritative either way.
		in.setDataType(inputCfg.DataType)

		if !model.CompareDimsWithWildcard(inputCfg.Dims, in.Shape()) {
			return status.InvalidArgf(
				"unexpected shape for input '%s' for model '%s'. Expected %s, got %s",
				name, r.modelName, model.DimsToString(inputCfg.Dims), model.DimsToString(in.Shape()))
		}

		if inputCfg.Reshape != nil {
			in.setShape(resolveReshape(inputCfg.Dims, inputCfg.Reshape.Shape, in.Shape()))
		}

		// Inputs without data get an empty memory reference so downstream
		// code can treat every input uniformly.
		if in.Data() == nil {
			if err := in.SetData(memory.NewReference()); err != nil {
				return err
			}
		}

		// The attached reference is authoritative for the data size; v2
		// payloads may use variable-length encodings only the buffer can
		// report.
		in.setBatchByteSize(in.Data().TotalByteSize())
	}

	return nil
}
