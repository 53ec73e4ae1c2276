package models

import "encoding/json"

// envelope is the outer wrapper some server message types arrive in.
// The broker is inconsistent about it: the same logical payload may come
// wrapped as {"content": {...}} or as the bare object. Decode precedence
// is fixed: the envelope's content field wins when present, otherwise the
// raw bytes are treated as the payload itself.
type envelope struct {
	Content json.RawMessage `json:"content"`
}

// unwrapEnvelope returns the inner payload of an enveloped message, or
// the input unchanged when no envelope is present.
func unwrapEnvelope(data []byte) []byte {
	var env envelope
	if err := json.Unmarshal(data, &env); err == nil && len(env.Content) > 0 {
		return env.Content
	}
	return data
}
