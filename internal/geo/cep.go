package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"pizzaria-checkout/internal/domain"
)

// Address is the result of a CEP lookup.
type Address struct {
	CEP          string `json:"cep"`
	Street       string `json:"street"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
}

// CEPClient queries the public CEP service (ViaCEP response shape).
type CEPClient struct {
	baseURL string
	httpc   *http.Client
}

// NewCEPClient builds a CEPClient with a bounded request timeout.
func NewCEPClient(baseURL string, timeout time.Duration) *CEPClient {
	return &CEPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
	}
}

type cepResponse struct {
	CEP        string      `json:"cep"`
	Logradouro string      `json:"logradouro"`
	Bairro     string      `json:"bairro"`
	Localidade string      `json:"localidade"`
	UF         string      `json:"uf"`
	Erro       interface{} `json:"erro"`
}

// Lookup resolves an 8-digit CEP. A response with a truthy "erro"
// field means the CEP does not exist and maps to domain.ErrNotFound.
func (c *CEPClient) Lookup(ctx context.Context, cep string) (*Address, error) {
	digits := domain.OnlyDigits(cep)
	if len(digits) != 8 {
		return nil, fmt.Errorf("cep must have 8 digits, got %q", cep)
	}

	endpoint := fmt.Sprintf("%s/ws/%s/json/", c.baseURL, digits)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build cep request: %w", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cep request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cep request: unexpected status %d", resp.StatusCode)
	}

	var body cepResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode cep response: %w", err)
	}
	if truthy(body.Erro) {
		return nil, domain.ErrNotFound
	}
	return &Address{
		CEP:          domain.OnlyDigits(body.CEP),
		Street:       body.Logradouro,
		Neighborhood: body.Bairro,
		City:         body.Localidade,
		State:        body.UF,
	}, nil
}

// The service has answered both `"erro": true` and `"erro": "true"`
// over the years.
func truthy(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(t, "true")
	default:
		return false
	}
}
