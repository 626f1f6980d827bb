package shipping

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	domain "github.com/brp-commerce/api/internal/domain"
)

// httpDoer narrows http.Client for testability.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RajaOngkirConfig captures the data required to talk to the rate service.
type RajaOngkirConfig struct {
	APIKey     string
	BaseURL    string
	HTTPClient httpDoer
	Timeout    time.Duration
}

// RajaOngkirProvider implements Provider against the RajaOngkir API.
type RajaOngkirProvider struct {
	apiKey  string
	baseURL string
	client  httpDoer
}

// NewRajaOngkirProvider validates configuration and constructs the adapter.
func NewRajaOngkirProvider(cfg RajaOngkirConfig) (*RajaOngkirProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("shipping: rajaongkir api key is required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("shipping: rajaongkir base url is required")
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &RajaOngkirProvider{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		client:  client,
	}, nil
}

// Rates returns the courier's service options for the route.
func (p *RajaOngkirProvider) Rates(ctx context.Context, query RateQuery) ([]domain.ShippingOption, error) {
	if p == nil || p.client == nil {
		return nil, errors.New("shipping: provider not initialised")
	}
	origin := strings.TrimSpace(query.OriginCity)
	dest := strings.TrimSpace(query.DestinationCity)
	courier := strings.ToLower(strings.TrimSpace(query.CourierCode))
	if origin == "" || dest == "" {
		return nil, errors.New("shipping: origin and destination are required")
	}
	if courier == "" {
		return nil, errors.New("shipping: courier code is required")
	}
	if query.WeightGrams <= 0 {
		return nil, errors.New("shipping: weight must be > 0")
	}

	form := url.Values{}
	form.Set("origin", origin)
	form.Set("destination", dest)
	form.Set("weight", fmt.Sprintf("%d", query.WeightGrams))
	form.Set("courier", courier)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/cost", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("shipping: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("key", p.apiKey)

	var parsed struct {
		Rajaongkir struct {
			Status struct {
				Code        int    `json:"code"`
				Description string `json:"description"`
			} `json:"status"`
			Results []struct {
				Code  string `json:"code"`
				Name  string `json:"name"`
				Costs []struct {
					Service     string `json:"service"`
					Description string `json:"description"`
					Cost        []struct {
						Value int64  `json:"value"`
						Etd   string `json:"etd"`
					} `json:"cost"`
				} `json:"costs"`
			} `json:"results"`
		} `json:"rajaongkir"`
	}
	if err := p.do(req, &parsed); err != nil {
		return nil, err
	}
	if parsed.Rajaongkir.Status.Code != 200 {
		return nil, fmt.Errorf("shipping: rate service responded %d: %s", parsed.Rajaongkir.Status.Code, parsed.Rajaongkir.Status.Description)
	}

	var options []domain.ShippingOption
	for _, result := range parsed.Rajaongkir.Results {
		for _, cost := range result.Costs {
			if len(cost.Cost) == 0 {
				continue
			}
			options = append(options, domain.ShippingOption{
				CourierCode: strings.ToLower(strings.TrimSpace(result.Code)),
				CourierName: strings.TrimSpace(result.Name),
				Service:     strings.TrimSpace(cost.Service),
				Description: strings.TrimSpace(cost.Description),
				Cost:        cost.Cost[0].Value,
				EtaDays:     strings.TrimSpace(cost.Cost[0].Etd),
			})
		}
	}
	if len(options) == 0 {
		return nil, ErrNoRates
	}
	return options, nil
}

// LookupCity resolves a city id to its canonical record.
func (p *RajaOngkirProvider) LookupCity(ctx context.Context, cityID string) (City, error) {
	if p == nil || p.client == nil {
		return City{}, errors.New("shipping: provider not initialised")
	}
	cityID = strings.TrimSpace(cityID)
	if cityID == "" {
		return City{}, errors.New("shipping: city id is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/city?id="+url.QueryEscape(cityID), nil)
	if err != nil {
		return City{}, fmt.Errorf("shipping: build request: %w", err)
	}
	req.Header.Set("key", p.apiKey)

	var parsed struct {
		Rajaongkir struct {
			Status struct {
				Code        int    `json:"code"`
				Description string `json:"description"`
			} `json:"status"`
			Results struct {
				CityID     string `json:"city_id"`
				CityName   string `json:"city_name"`
				Province   string `json:"province"`
				PostalCode string `json:"postal_code"`
			} `json:"results"`
		} `json:"rajaongkir"`
	}
	if err := p.do(req, &parsed); err != nil {
		return City{}, err
	}
	if parsed.Rajaongkir.Status.Code != 200 {
		return City{}, fmt.Errorf("shipping: city lookup responded %d: %s", parsed.Rajaongkir.Status.Code, parsed.Rajaongkir.Status.Description)
	}
	if strings.TrimSpace(parsed.Rajaongkir.Results.CityID) == "" {
		return City{}, fmt.Errorf("%w: %s", ErrCityNotFound, cityID)
	}
	return City{
		ID:         parsed.Rajaongkir.Results.CityID,
		Name:       parsed.Rajaongkir.Results.CityName,
		Province:   parsed.Rajaongkir.Results.Province,
		PostalCode: parsed.Rajaongkir.Results.PostalCode,
	}, nil
}

func (p *RajaOngkirProvider) do(req *http.Request, out any) error {
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("shipping: rate service request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("shipping: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		trimmed := strings.TrimSpace(string(payload))
		if len(trimmed) > 256 {
			trimmed = trimmed[:256]
		}
		return fmt.Errorf("shipping: rate service responded %d: %s", resp.StatusCode, trimmed)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("shipping: decode response: %w", err)
	}
	return nil
}

var _ Provider = (*RajaOngkirProvider)(nil)
