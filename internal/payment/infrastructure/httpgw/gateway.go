// Package httpgw talks to the external payment processor over its JSON API.
// A declined charge is a normal response, not an error: the caller inspects
// ChargeResult.Success. Errors mean the processor could not be reached or
// answered with garbage.
package httpgw

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/felixzhu97/orderflow/internal/money"
	"github.com/felixzhu97/orderflow/internal/order/application"
	"github.com/felixzhu97/orderflow/pkg/apperr"
)

type Gateway struct {
	baseURL string
	client  *http.Client
}

func NewGateway(baseURL string, timeout time.Duration) *Gateway {
	return &Gateway{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type chargeRequest struct {
	OrderID  string `json:"order_id"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
	Method   string `json:"method"`
}

type chargeResponse struct {
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
	Message       string `json:"message"`
}

func (g *Gateway) ProcessPayment(ctx context.Context, req application.ChargeRequest) (application.ChargeResult, error) {
	body := chargeRequest{
		OrderID:  req.OrderID,
		Amount:   req.Amount.Amount().String(),
		Currency: req.Amount.Currency(),
		Method:   req.Method,
	}

	var resp chargeResponse
	if err := g.post(ctx, "/v1/charges", req.IdempotencyKey, body, &resp); err != nil {
		return application.ChargeResult{}, err
	}

	if resp.Status != "approved" {
		return application.ChargeResult{Success: false, ErrorMessage: resp.Message}, nil
	}
	return application.ChargeResult{Success: true, TransactionID: resp.TransactionID}, nil
}

type refundRequest struct {
	TransactionID string `json:"transaction_id"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
}

type refundResponse struct {
	Status   string `json:"status"`
	RefundID string `json:"refund_id"`
}

func (g *Gateway) RefundPayment(ctx context.Context, transactionID string, amount money.Money) (application.RefundResult, error) {
	body := refundRequest{
		TransactionID: transactionID,
		Amount:        amount.Amount().String(),
		Currency:      amount.Currency(),
	}

	var resp refundResponse
	if err := g.post(ctx, "/v1/refunds", "refund-"+transactionID, body, &resp); err != nil {
		return application.RefundResult{}, err
	}
	return application.RefundResult{Success: resp.Status == "approved", RefundID: resp.RefundID}, nil
}

func (g *Gateway) TransactionStatus(ctx context.Context, transactionID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/v1/transactions/"+transactionID, nil)
	if err != nil {
		return "", apperr.Wrap(apperr.CodeInternal, "build transaction status request", err)
	}

	res, err := g.client.Do(req)
	if err != nil {
		return "", apperr.Wrap(apperr.CodeInternal, "payment gateway unreachable", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return "", apperr.Newf(apperr.CodeNotFound, "transaction %s not found", transactionID)
	}
	if res.StatusCode != http.StatusOK {
		return "", apperr.Newf(apperr.CodeInternal, "payment gateway returned %d", res.StatusCode)
	}

	var out struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(io.LimitReader(res.Body, 1<<20)).Decode(&out); err != nil {
		return "", apperr.Wrap(apperr.CodeInternal, "decode transaction status", err)
	}
	return out.Status, nil
}

func (g *Gateway) post(ctx context.Context, path, idempotencyKey string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "encode payment request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "build payment request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey)

	res, err := g.client.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "payment gateway unreachable", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusInternalServerError {
		return apperr.Newf(apperr.CodeInternal, "payment gateway returned %d", res.StatusCode)
	}
	if res.StatusCode >= http.StatusBadRequest && res.StatusCode != http.StatusUnprocessableEntity {
		return apperr.Newf(apperr.CodeInternal, "payment gateway rejected request: %d", res.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(res.Body, 1<<20)).Decode(out); err != nil {
		return apperr.Wrap(apperr.CodeInternal, fmt.Sprintf("decode payment response from %s", path), err)
	}
	return nil
}
