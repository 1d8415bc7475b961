// Copyright 2026 The Peerwire Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Compile-time interface check.
var _ Signaler = (*HTTPSignaler)(nil)

// HTTPSignaler speaks to a rendezvous service over plain HTTP JSON.
// The service is a dumb mailbox: it holds identity claims and queues of
// signed-off SDP blobs, and each poll drains the caller's queue.
//
// Endpoints, relative to the base URL:
//
//	PUT    /claims/{identity}            claim (409 when taken)
//	DELETE /claims/{identity}            release
//	POST   /offers/{target}              body: signalBody
//	POST   /answers/{offerer}            body: signalBody
//	GET    /offers/{identity}            drain, returns []signalBody
//	GET    /answers/{identity}           drain, returns []signalBody
type HTTPSignaler struct {
	baseURL string
	client  *http.Client
}

// signalBody is the JSON wire form of a SignalMessage.
type signalBody struct {
	From      string `json:"from"`
	SDP       string `json:"sdp"`
	Timestamp string `json:"timestamp"`
}

// NewHTTPSignaler creates a signaler against the rendezvous at baseURL.
// A nil client uses a default with a 10 second timeout.
func NewHTTPSignaler(baseURL string, client *http.Client) *HTTPSignaler {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPSignaler{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (s *HTTPSignaler) Claim(ctx context.Context, identity string) error {
	response, err := s.do(ctx, http.MethodPut, "/claims/"+url.PathEscape(identity), nil)
	if err != nil {
		return fmt.Errorf("transport: claim %q: %w", identity, err)
	}
	defer drainClose(response)
	switch response.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return nil
	case http.StatusConflict:
		return ErrIdentityTaken
	default:
		return fmt.Errorf("transport: claim %q: unexpected status %s", identity, response.Status)
	}
}

func (s *HTTPSignaler) Release(ctx context.Context, identity string) error {
	response, err := s.do(ctx, http.MethodDelete, "/claims/"+url.PathEscape(identity), nil)
	if err != nil {
		return fmt.Errorf("transport: release %q: %w", identity, err)
	}
	defer drainClose(response)
	if response.StatusCode >= 300 {
		return fmt.Errorf("transport: release %q: unexpected status %s", identity, response.Status)
	}
	return nil
}

func (s *HTTPSignaler) PublishOffer(ctx context.Context, from, target, sdp string) error {
	return s.publish(ctx, "/offers/"+url.PathEscape(target), from, sdp)
}

func (s *HTTPSignaler) PublishAnswer(ctx context.Context, offerer, from, sdp string) error {
	return s.publish(ctx, "/answers/"+url.PathEscape(offerer), from, sdp)
}

func (s *HTTPSignaler) publish(ctx context.Context, path, from, sdp string) error {
	body, err := json.Marshal(signalBody{
		From:      from,
		SDP:       sdp,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("transport: encode signal: %w", err)
	}
	response, err := s.do(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("transport: publish signal: %w", err)
	}
	defer drainClose(response)
	if response.StatusCode >= 300 {
		return fmt.Errorf("transport: publish signal: unexpected status %s", response.Status)
	}
	return nil
}

func (s *HTTPSignaler) PollOffers(ctx context.Context, identity string) ([]SignalMessage, error) {
	return s.poll(ctx, "/offers/"+url.PathEscape(identity))
}

func (s *HTTPSignaler) PollAnswers(ctx context.Context, identity string) ([]SignalMessage, error) {
	return s.poll(ctx, "/answers/"+url.PathEscape(identity))
}

func (s *HTTPSignaler) poll(ctx context.Context, path string) ([]SignalMessage, error) {
	response, err := s.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("transport: poll signals: %w", err)
	}
	defer drainClose(response)
	if response.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("transport: poll signals: unexpected status %s", response.Status)
	}
	var bodies []signalBody
	if err := json.NewDecoder(response.Body).Decode(&bodies); err != nil {
		return nil, fmt.Errorf("transport: decode signals: %w", err)
	}
	messages := make([]SignalMessage, 0, len(bodies))
	for _, body := range bodies {
		messages = append(messages, SignalMessage{
			PeerIdentity: body.From,
			SDP:          body.SDP,
			Timestamp:    body.Timestamp,
		})
	}
	return messages, nil
}

func (s *HTTPSignaler) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	request, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	return s.client.Do(request)
}

// drainClose reads the rest of a response body before closing so the
// underlying connection can be reused.
func drainClose(response *http.Response) {
	io.Copy(io.Discard, response.Body)
	response.Body.Close()
}
