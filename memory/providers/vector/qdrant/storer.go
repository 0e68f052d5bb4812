package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/w-h-a/mnemo/memory/providers/vector"
	getsafe "github.com/w-h-a/mnemo/util/get_safe"
)

type qdrantStorer struct {
	options vector.Options
	client  *http.Client
}

func (s *qdrantStorer) Init(ctx context.Context) error {
	exists, err := s.collectionExists(ctx)
	if err != nil {
		return err
	}

	if exists {
		return nil
	}

	return s.createCollection(ctx)
}

func (s *qdrantStorer) Store(ctx context.Context, userId string, text string, embedding []float32, metadata map[string]any) (string, error) {
	id := uuid.New().String()

	payload := map[string]any{
		"user_id":    userId,
		"text":       text,
		"metadata":   metadata,
		"created_at": time.Now().UTC().Format(time.RFC3339Nano),
	}

	req := map[string]any{
		"points": []map[string]any{
			{
				"id":      id,
				"vector":  embedding,
				"payload": payload,
			},
		},
	}

	var rsp qdrantEnvelope[json.RawMessage]

	path := fmt.Sprintf("/collections/%s/points?wait=true", url.PathEscape(s.options.Collection))

	if err := s.do(ctx, http.MethodPut, path, req, &rsp); err != nil {
		return "", err
	}

	if !strings.EqualFold(rsp.Status.State, "ok") && len(rsp.Status.Error) > 0 {
		return "", errors.New(rsp.Status.Error)
	}

	return id, nil
}

func (s *qdrantStorer) Search(ctx context.Context, userId string, embedding []float32, limit int, threshold float64) ([]vector.Entry, error) {
	if limit < 1 {
		return nil, nil
	}

	req := map[string]any{
		"vector":          embedding,
		"limit":           limit,
		"score_threshold": threshold,
		"with_vector":     false,
		"with_payload":    true,
		"filter":          userFilter(userId),
	}

	var rsp qdrantEnvelope[[]qdrantPointResult]

	path := fmt.Sprintf("/collections/%s/points/search", url.PathEscape(s.options.Collection))

	if err := s.do(ctx, http.MethodPost, path, req, &rsp); err != nil {
		return nil, err
	}

	results := make([]vector.Entry, 0, len(rsp.Result))

	for _, point := range rsp.Result {
		payload := point.Payload

		results = append(results, vector.Entry{
			Id:        point.Id,
			UserId:    getsafe.String(payload, "user_id"),
			Text:      getsafe.String(payload, "text"),
			Metadata:  getsafe.Metadata(payload, "metadata"),
			Score:     point.Score,
			CreatedAt: getsafe.Time(payload, "created_at"),
		})
	}

	return results, nil
}

func (s *qdrantStorer) Delete(ctx context.Context, userId string, id string) (bool, error) {
	// scope the delete to the user so one user cannot remove another's entry
	req := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{"has_id": []string{id}},
				{"key": "user_id", "match": map[string]any{"value": userId}},
			},
		},
	}

	count, err := s.count(ctx, req["filter"])
	if err != nil {
		return false, err
	}
	if count == 0 {
		return false, nil
	}

	var rsp qdrantEnvelope[json.RawMessage]

	path := fmt.Sprintf("/collections/%s/points/delete?wait=true", url.PathEscape(s.options.Collection))

	if err := s.do(ctx, http.MethodPost, path, req, &rsp); err != nil {
		return false, err
	}

	if !strings.EqualFold(rsp.Status.State, "ok") && len(rsp.Status.Error) > 0 {
		return false, errors.New(rsp.Status.Error)
	}

	return true, nil
}

func (s *qdrantStorer) DeleteUser(ctx context.Context, userId string) (int, error) {
	filter := userFilter(userId)

	count, err := s.count(ctx, filter)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}

	req := map[string]any{"filter": filter}

	var rsp qdrantEnvelope[json.RawMessage]

	path := fmt.Sprintf("/collections/%s/points/delete?wait=true", url.PathEscape(s.options.Collection))

	if err := s.do(ctx, http.MethodPost, path, req, &rsp); err != nil {
		return 0, err
	}

	if !strings.EqualFold(rsp.Status.State, "ok") && len(rsp.Status.Error) > 0 {
		return 0, errors.New(rsp.Status.Error)
	}

	return count, nil
}

func (s *qdrantStorer) count(ctx context.Context, filter any) (int, error) {
	req := map[string]any{
		"filter": filter,
		"exact":  true,
	}

	var rsp qdrantEnvelope[qdrantCountResult]

	path := fmt.Sprintf("/collections/%s/points/count", url.PathEscape(s.options.Collection))

	if err := s.do(ctx, http.MethodPost, path, req, &rsp); err != nil {
		return 0, err
	}

	return rsp.Result.Count, nil
}

func (s *qdrantStorer) collectionExists(ctx context.Context) (bool, error) {
	path := fmt.Sprintf("/collections/%s", url.PathEscape(s.options.Collection))

	var rsp qdrantEnvelope[json.RawMessage]

	err := s.do(ctx, http.MethodGet, path, nil, &rsp)
	if err != nil {
		if strings.Contains(err.Error(), "404") {
			return false, nil
		}
		return false, err
	}

	return strings.EqualFold(rsp.Status.State, "ok"), nil
}

func (s *qdrantStorer) createCollection(ctx context.Context) error {
	req := map[string]any{
		"vectors": map[string]any{
			"size":     s.options.VectorSize,
			"distance": s.options.Distance,
		},
	}

	path := fmt.Sprintf("/collections/%s", url.PathEscape(s.options.Collection))

	var rsp qdrantEnvelope[json.RawMessage]

	if err := s.do(ctx, http.MethodPut, path, req, &rsp); err != nil {
		return err
	}

	if !strings.EqualFold(rsp.Status.State, "ok") {
		return errors.New(rsp.Status.Error)
	}

	return nil
}

func (s *qdrantStorer) do(ctx context.Context, method string, path string, req any, rsp any) error {
	u := s.options.Location + path

	var buf io.Reader
	if req != nil {
		data, err := json.Marshal(req)
		if err != nil {
			return err
		}
		buf = bytes.NewReader(data)
	}

	request, err := http.NewRequestWithContext(ctx, method, u, buf)
	if err != nil {
		return err
	}

	request.Header.Set("Content-Type", "application/json")

	if len(s.options.ApiKey) > 0 {
		request.Header.Set("api-key", s.options.ApiKey)
		request.Header.Set("Authorization", "Bearer "+s.options.ApiKey)
	}

	response, err := s.client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	payload, err := io.ReadAll(response.Body)
	if err != nil {
		return err
	}

	if response.StatusCode >= 400 {
		return fmt.Errorf("qdrant http %d: %s", response.StatusCode, string(payload))
	}

	if rsp != nil && len(payload) > 0 {
		if err := json.Unmarshal(payload, rsp); err != nil {
			return err
		}
	}

	return nil
}

func NewStorer(opts ...vector.Option) (vector.Storer, error) {
	options := vector.NewOptions(opts...)

	if len(options.Location) == 0 ||
		len(options.Collection) == 0 ||
		options.VectorSize == 0 {
		return nil, errors.New("missing location, collection, or vector size for qdrant storer")
	}

	s := &qdrantStorer{
		options: options,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}

	if err := s.Init(options.Context); err != nil {
		return nil, fmt.Errorf("init qdrant collection: %w", err)
	}

	return s, nil
}
