package publisher

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"
)

// HTTPPublisher POSTs each payload to a webhook. Any 2xx response counts as
// accepted.
type HTTPPublisher struct {
	baseURL string
	path    string
	client  *http.Client
}

func NewHTTPPublisher(baseURL, path string, timeoutMs int) *HTTPPublisher {
	if timeoutMs <= 0 {
		timeoutMs = 5000
	}

	return &HTTPPublisher{
		baseURL: baseURL,
		path:    path,
		client:  &http.Client{Timeout: time.Duration(timeoutMs) * time.Millisecond},
	}
}

func (p *HTTPPublisher) Publish(ctx context.Context, msg Message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+p.path, bytes.NewReader(msg.Payload))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Outbox-Topic", msg.Topic)
	req.Header.Set("Idempotency-Key", msg.Key)
	for k, v := range msg.Headers {
		req.Header.Set("X-Outbox-"+k, v)
	}

	res, err := p.client.Do(req)
	if err != nil {
		return err
	}

	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		return fmt.Errorf("publisher=http path=%s status=%d", p.path, res.StatusCode)
	}

	return nil
}

func (p *HTTPPublisher) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
