// Package geo wraps the two location collaborators: the route provider
// used for delivery ETA and distance, and the public CEP service used
// to autofill addresses.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pizzaria-checkout/internal/domain"
)

// ErrRouteUnavailable is returned when the provider answers but
// declines to route (status other than OK). Callers fall back to the
// neighborhood fee.
var ErrRouteUnavailable = errors.New("route unavailable")

// RouteClient queries the distance/duration provider.
type RouteClient struct {
	baseURL string
	httpc   *http.Client
}

// NewRouteClient builds a RouteClient with a bounded request timeout.
func NewRouteClient(baseURL string, timeout time.Duration) *RouteClient {
	return &RouteClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
	}
}

type routeResponse struct {
	Status       string `json:"status"`
	DistanceText string `json:"distanceText"`
	DurationText string `json:"durationText"`
}

// Distance resolves the route between origin and destination into the
// provider's human-readable distance and duration.
func (c *RouteClient) Distance(ctx context.Context, origin, destination string) (*domain.DeliveryEta, error) {
	endpoint := fmt.Sprintf("%s/route?origin=%s&destination=%s",
		c.baseURL, url.QueryEscape(origin), url.QueryEscape(destination))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build route request: %w", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("route request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("route request: unexpected status %d", resp.StatusCode)
	}

	var body routeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode route response: %w", err)
	}
	if !strings.EqualFold(body.Status, "ok") {
		return nil, fmt.Errorf("%w: provider status %q", ErrRouteUnavailable, body.Status)
	}
	return &domain.DeliveryEta{
		DistanceText: body.DistanceText,
		DurationText: body.DurationText,
	}, nil
}
