package core

import (
	"inferd/internal/model"
	"inferd/internal/status"
)

// normalizeV1 rewrites the request per the v1 protocol, where the client
// supplies an explicit batch-size field and tensor shapes do not carry a
// batch dimension.
func (r *InferenceRequest) normalizeV1() error {
	cfg := r.backend.Config()

	r.clampPriority()

	if err := r.validateBatchSize(); err != nil {
		return err
	}
	if err := r.validateRequestedOutputs(); err != nil {
		return err
	}
	if err := r.validateInputCount(); err != nil {
		return err
	}

	// Update each input to have shape, datatype and batch byte size.
	for name, idx := range r.originalInputs {
		inputCfg, err := r.backend.GetInput(name)
		if err != nil {
			return err
		}
		in := r.arena[idx]

		in.setDataType(inputCfg.DataType)

		shape := append([]int64(nil), in.OriginalShape()...)

		// A client-supplied shape must match what the model expects.
		if len(shape) > 0 {
			if !model.CompareDimsWithWildcard(inputCfg.Dims, shape) {
				return status.InvalidArgf(
					"unexpected shape for input '%s' for model '%s'. Expected %s, got %s",
					name, r.modelName, model.DimsToString(inputCfg.Dims), model.DimsToString(shape))
			}
			if inputCfg.Reshape != nil {
				shape = resolveReshape(inputCfg.Dims, inputCfg.Reshape.Shape, shape)
			}
		}

		// No shape at this point means the request didn't specify one (or
		// the reshape is to scalar); derive it from the model config, which
		// must then be fully specified.
		if len(shape) == 0 {
			dims := inputCfg.Dims
			if inputCfg.Reshape != nil {
				dims = inputCfg.Reshape.Shape
			}
			for _, d := range dims {
				if d < 0 {
					return status.InvalidArgf(
						"model supports variable-size for input '%s', request must specify input shape for model '%s'",
						name, r.modelName)
				}
				shape = append(shape, d)
			}
		}

		var bs uint64
		if inputCfg.DataType.IsFixedSize() {
			bs = uint64(model.ByteSize(inputCfg.DataType, shape))
			multiplier := r.batchSize
			if inputCfg.IsShapeTensor {
				// Shape tensor values are not replicated per batch element.
				multiplier = 1
			}
			if cfg.MaxBatchSize > 0 {
				if len(shape) == 0 {
					bs = uint64(inputCfg.DataType.Size() * multiplier)
				} else {
					bs *= uint64(multiplier)
				}
			}

			// A pre-declared batch byte size must agree with the computed
			// one.
			if in.BatchByteSize() != 0 && in.BatchByteSize() != bs {
				return status.InvalidArgf(
					"specific batch-byte-size for input '%s' does not match expected byte-size calculated from shape and datatype for model '%s'",
					name, r.modelName)
			}
		} else {
			// Variable-size datatype (STRING); trust the full-batch size
			// declared by the request.
			bs = in.BatchByteSize()
		}

		in.setShape(shape)
		in.setBatchByteSize(bs)
	}

	return nil
}
