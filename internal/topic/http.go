package topic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HTTPSource fetches a JSON topic list ({"topics": [...]}) from a remote
// catalog endpoint.
type HTTPSource struct {
	BaseURL string
	http    *http.Client
}

func NewHTTPSource(baseURL string) *HTTPSource {
	return &HTTPSource{
		BaseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *HTTPSource) Topics(ctx context.Context) ([]string, error) {
	if s.BaseURL == "" {
		return nil, errors.New("missing topic catalog URL")
	}
	req, err := http.NewRequestWithContext(ctx, "GET", s.BaseURL+"/topics", nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("topic catalog status %d", resp.StatusCode)
	}
	var out struct {
		Topics []string `json:"topics"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if len(out.Topics) == 0 {
		return nil, errors.New("empty topic list")
	}
	return out.Topics, nil
}
