package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/johnrmarty/chat-prd/internal/types"
)

// Modes a completion can be requested in. They select the prompt the backing
// model is primed with.
const (
	ModeProblemDiscovery = "problem-discovery"
	ModeSolutionWorkshop = "solution-workshop"
)

const defaultRequestTimeout = 60 * time.Second

// Service produces a generated reply for a chat transcript. Implementations
// call out to a language-model backend; the hub never calls this directly,
// results are relayed to rooms as ordinary content-generated events.
type Service interface {
	Complete(ctx context.Context, transcript []types.Message, mode string) (string, error)
}

type completionRequest struct {
	Messages []types.Message `json:"messages"`
	Mode     string          `json:"mode"`
}

type completionResponse struct {
	Content string `json:"content"`
}

// HTTPService calls a completion endpoint over HTTP with a JSON body.
type HTTPService struct {
	endpoint string
	apiKey   string
	client   *http.Client
	log      *log.Logger
}

func NewHTTPService(endpoint, apiKey string, logger *log.Logger) *HTTPService {
	return &HTTPService{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: defaultRequestTimeout},
		log:      logger,
	}
}

func (s *HTTPService) Complete(ctx context.Context, transcript []types.Message, mode string) (string, error) {
	body, err := json.Marshal(completionRequest{
		Messages: transcript,
		Mode:     mode,
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}

	requestId := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", requestId)
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	s.log.Printf("requesting completion %s (mode=%s, transcript=%d messages)", requestId, mode, len(transcript))

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion request %s failed with status %d", requestId, resp.StatusCode)
	}

	var cr completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}

	return cr.Content, nil
}
