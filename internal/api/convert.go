package api

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ToStruct converts a JSON-encodable value into a protobuf Struct.
func ToStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode struct: %w", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("convert struct: %w", err)
	}
	return out, nil
}

// FromStruct decodes a protobuf Struct into out using the JSON field names.
func FromStruct(s *structpb.Struct, out any) error {
	if s == nil {
		return fmt.Errorf("request is nil")
	}
	data, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode struct: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode struct: %w", err)
	}
	return nil
}
