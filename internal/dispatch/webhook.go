// Package dispatch delivers formatted reports to a Discord-compatible
// webhook. Delivery is best-effort: the caller logs failures and moves
// on, there is no retry.
package dispatch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/valyala/fasthttp"
)

type embed struct {
	Description string      `json:"description"`
	Image       *embedImage `json:"image,omitempty"`
}

type embedImage struct {
	URL string `json:"url"`
}

type webhookPayload struct {
	Content string  `json:"content"`
	Embeds  []embed `json:"embeds"`
}

// Webhook posts report messages to one configured endpoint.
type Webhook struct {
	url     string
	client  *fasthttp.Client
	timeout time.Duration
}

// NewWebhook returns a dispatcher for url, each delivery bounded by
// timeout.
func NewWebhook(url string, timeout time.Duration) *Webhook {
	return &Webhook{url: url, client: &fasthttp.Client{}, timeout: timeout}
}

// Send delivers content, attaching image as chart.png when non-nil, as a
// single message. A transport error or non-2xx response is returned to
// the caller; persisted state is never touched here.
func (w *Webhook) Send(content string, image []byte) error {
	payload := webhookPayload{
		Embeds: []embed{{Description: content}},
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(w.url)
	req.Header.SetMethod(fasthttp.MethodPost)

	if image == nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	} else {
		payload.Embeds[0].Image = &embedImage{URL: "attachment://chart.png"}
		body, contentType, err := multipartBody(payload, image)
		if err != nil {
			return err
		}
		req.Header.SetContentType(contentType)
		req.SetBody(body)
	}

	if err := w.client.DoTimeout(req, resp, w.timeout); err != nil {
		return fmt.Errorf("webhook delivery: %w", err)
	}
	if code := resp.StatusCode(); code < 200 || code >= 300 {
		return fmt.Errorf("webhook returned status %d", code)
	}
	return nil
}

// multipartBody builds the Discord multipart form: a payload_json field
// plus the chart image as a file part.
func multipartBody(payload webhookPayload, image []byte) ([]byte, string, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("payload_json", string(payloadJSON)); err != nil {
		return nil, "", err
	}
	part, err := mw.CreateFormFile("file", "chart.png")
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}
