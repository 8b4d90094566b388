package kakao

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"heekkr/internal/entity"

	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://dapi.kakao.com"

var ErrNoResult = errors.New("kakao: no search result")

type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	limiter    *rate.Limiter
}

// NewClient returns a Kakao Local API client. rps bounds outgoing requests;
// the free tier allows roughly 10 per second.
func NewClient(apiKey string, rps int) *Client {
	if rps <= 0 {
		rps = 10
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		limiter: rate.NewLimiter(rate.Every(time.Second/time.Duration(rps)), 1),
	}
}

// WithBaseURL points the client at another host, used by tests.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

type keywordResponse struct {
	Documents []struct {
		PlaceName string `json:"place_name"`
		X         string `json:"x"`
		Y         string `json:"y"`
	} `json:"documents"`
}

// SearchKeyword returns the coordinate of the best match for keyword.
func (c *Client) SearchKeyword(ctx context.Context, keyword string) (entity.Coordinate, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return entity.Coordinate{}, err
	}

	q := url.Values{}
	q.Set("query", keyword)
	q.Set("size", "1")
	u := c.baseURL + "/v2/local/search/keyword.json?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return entity.Coordinate{}, err
	}
	req.Header.Set("Authorization", "KakaoAK "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return entity.Coordinate{}, fmt.Errorf("kakao: keyword search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return entity.Coordinate{}, fmt.Errorf("kakao: unexpected status code: %d", resp.StatusCode)
	}

	var res keywordResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return entity.Coordinate{}, fmt.Errorf("kakao: decode response: %w", err)
	}
	if len(res.Documents) == 0 {
		return entity.Coordinate{}, fmt.Errorf("%w for %q", ErrNoResult, keyword)
	}

	doc := res.Documents[0]
	lng, err := strconv.ParseFloat(doc.X, 64)
	if err != nil {
		return entity.Coordinate{}, fmt.Errorf("kakao: parse x %q: %w", doc.X, err)
	}
	lat, err := strconv.ParseFloat(doc.Y, 64)
	if err != nil {
		return entity.Coordinate{}, fmt.Errorf("kakao: parse y %q: %w", doc.Y, err)
	}
	return entity.Coordinate{Latitude: lat, Longitude: lng}, nil
}
