package qdrant

import "encoding/json"

type qdrantStatus struct {
	State string
	Error string
}

// The status field is "ok" on success and {"error": "..."} on failure.
func (s *qdrantStatus) UnmarshalJSON(data []byte) error {
	var state string
	if err := json.Unmarshal(data, &state); err == nil {
		s.State = state
		return nil
	}

	var detail struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &detail); err != nil {
		return err
	}

	s.Error = detail.Error
	return nil
}

type qdrantEnvelope[T any] struct {
	Status qdrantStatus `json:"status"`
	Result T            `json:"result"`
}

type qdrantPointResult struct {
	Id      string         `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

type qdrantCountResult struct {
	Count int `json:"count"`
}

func userFilter(userId string) map[string]any {
	return map[string]any{
		"must": []map[string]any{
			{
				"key":   "user_id",
				"match": map[string]any{"value": userId},
			},
		},
	}
}
