// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Tagged variants are encoded externally tagged: {"Kind": {...payload...}}.

func encodeTagged(kind string, payload interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]json.RawMessage{kind: body})
}

func decodeTagged(raw json.RawMessage) (string, json.RawMessage, error) {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return "", nil, fmt.Errorf("missing variant")
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return "", nil, fmt.Errorf("variant must be an object with a single kind key: %w", err)
	}
	if len(m) != 1 {
		return "", nil, fmt.Errorf("variant must have exactly one kind key, got %d", len(m))
	}
	for kind, payload := range m {
		return kind, payload, nil
	}
	return "", nil, nil
}

func decodeStrict(payload json.RawMessage, into interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	return dec.Decode(into)
}
