package driverclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/iliyamo/smartpark/internal/spotgrid"
)

// APIError is a non-2xx answer from the HTTP API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// API calls the SmartPark HTTP endpoints used during checkout.
type API struct {
	BaseURL string
	HTTP    *http.Client
}

// NewAPI returns an API client for baseURL, e.g. "http://localhost:8080".
func NewAPI(baseURL string) *API {
	return &API{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: &http.Client{Timeout: 30 * time.Second}}
}

type payRequest struct {
	PaymentMethodID string `json:"paymentMethodId"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	Plates          string `json:"plates"`
	Model           string `json:"model"`
	Plaza           string `json:"plaza"`
	Cajon           string `json:"cajon"`
}

// Pay charges the driver for the order through POST /api/pagos.
func (a *API) Pay(ctx context.Context, o spotgrid.Order) error {
	body, err := json.Marshal(payRequest{
		PaymentMethodID: o.Driver.CardToken,
		Name:            o.Driver.Name,
		Email:           o.Driver.Email,
		Plates:          o.Driver.Plate,
		Model:           o.Driver.Model,
		Plaza:           o.Plaza,
		Cajon:           o.Spot,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+"/api/pagos", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("api: pay: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 == 2 {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	var e struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if json.Unmarshal(raw, &e) != nil || e.Error == "" {
		e.Error = strings.TrimSpace(string(raw))
	}
	return &APIError{Status: resp.StatusCode, Message: e.Error}
}

var (
	_ spotgrid.Payer     = (*API)(nil)
	_ spotgrid.Announcer = (*Client)(nil)
)
