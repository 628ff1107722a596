package types

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// MemoryType classifies where a buffer physically lives. It is paired with a
// memory type id (device/region id) everywhere it appears and must be carried
// bit-exact end to end; backends and transports branch on it.
type MemoryType int

const (
	MemoryCPU MemoryType = iota
	MemoryCPUPinned
	MemoryGPU
)

func (m MemoryType) String() string {
	switch m {
	case MemoryCPU:
		return "CPU"
	case MemoryCPUPinned:
		return "CPU_PINNED"
	case MemoryGPU:
		return "GPU"
	default:
		return fmt.Sprintf("MemoryType(%d)", int(m))
	}
}

// ParseMemoryType converts the wire spelling of a memory type.
func ParseMemoryType(s string) (MemoryType, error) {
	switch s {
	case "CPU":
		return MemoryCPU, nil
	case "CPU_PINNED":
		return MemoryCPUPinned, nil
	case "GPU":
		return MemoryGPU, nil
	}
	return MemoryCPU, fmt.Errorf("unknown memory type %q", s)
}

// DataType identifies a tensor element type.
type DataType int

const (
	TypeInvalid DataType = iota
	TypeBool
	TypeUint8
	TypeUint16
	TypeUint32
	TypeUint64
	TypeInt8
	TypeInt16
	TypeInt32
	TypeInt64
	TypeFP16
	TypeFP32
	TypeFP64
	TypeString
)

var dataTypeNames = map[DataType]string{
	TypeBool:   "BOOL",
	TypeUint8:  "UINT8",
	TypeUint16: "UINT16",
	TypeUint32: "UINT32",
	TypeUint64: "UINT64",
	TypeInt8:   "INT8",
	TypeInt16:  "INT16",
	TypeInt32:  "INT32",
	TypeInt64:  "INT64",
	TypeFP16:   "FP16",
	TypeFP32:   "FP32",
	TypeFP64:   "FP64",
	TypeString: "STRING",
}

var dataTypeSizes = map[DataType]int64{
	TypeBool:   1,
	TypeUint8:  1,
	TypeUint16: 2,
	TypeUint32: 4,
	TypeUint64: 8,
	TypeInt8:   1,
	TypeInt16:  2,
	TypeInt32:  4,
	TypeInt64:  8,
	TypeFP16:   2,
	TypeFP32:   4,
	TypeFP64:   8,
}

func (d DataType) String() string {
	if s, ok := dataTypeNames[d]; ok {
		return s
	}
	return "INVALID"
}

// Size returns the per-element byte size, or 0 for variable-size types
// (STRING) and invalid types.
func (d DataType) Size() int64 { return dataTypeSizes[d] }

// IsFixedSize reports whether elements of this type have a fixed byte size.
func (d DataType) IsFixedSize() bool {
	_, ok := dataTypeSizes[d]
	return ok
}

// ParseDataType converts the wire spelling of a datatype.
func ParseDataType(s string) (DataType, error) {
	for d, n := range dataTypeNames {
		if n == s {
			return d, nil
		}
	}
	return TypeInvalid, fmt.Errorf("unknown datatype %q", s)
}

// MarshalText / UnmarshalText let DataType round-trip through the yaml, json
// and toml decoders used for model configuration files.

func (d DataType) MarshalText() ([]byte, error) {
	if _, ok := dataTypeNames[d]; !ok {
		return nil, fmt.Errorf("cannot marshal invalid datatype %d", int(d))
	}
	return []byte(d.String()), nil
}

func (d *DataType) UnmarshalText(text []byte) error {
	v, err := ParseDataType(string(text))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// MarshalYAML / UnmarshalYAML cover the yaml.v3 decoder, which does not
// consult encoding.TextMarshaler.

func (d DataType) MarshalYAML() (any, error) {
	if _, ok := dataTypeNames[d]; !ok {
		return nil, fmt.Errorf("cannot marshal invalid datatype %d", int(d))
	}
	return d.String(), nil
}

func (d *DataType) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}
