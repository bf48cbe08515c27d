package model

import (
	"encoding/json"
	"fmt"
)

// envelope is the on-disk form of a persisted model: the kind plus the
// family-specific parameters.
type envelope struct {
	Kind   Kind            `json:"kind"`
	Params json.RawMessage `json:"params"`
}

// Encode serializes a fitted model for persistence.
func Encode(m Regressor) ([]byte, error) {
	params, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding %s model: %w", m.Kind(), err)
	}
	return json.MarshalIndent(envelope{Kind: m.Kind(), Params: params}, "", "  ")
}

// Decode restores a persisted model.
func Decode(data []byte) (Regressor, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding model: %w", err)
	}

	var m Regressor
	switch env.Kind {
	case KindLinear:
		m = &Linear{}
	case KindDecisionTree:
		m = &Tree{}
	case KindRandomForest:
		m = &Forest{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, env.Kind)
	}

	if err := json.Unmarshal(env.Params, m); err != nil {
		return nil, fmt.Errorf("decoding %s model: %w", env.Kind, err)
	}
	return m, nil
}
