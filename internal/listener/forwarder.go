package listener

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
)

// DefaultForwardTimeout bounds one POST to the ingestion endpoint.
const DefaultForwardTimeout = 5 * time.Second

// ErrForwardRejected is returned when the ingestion endpoint answers with a non-2xx status.
var ErrForwardRejected = errors.New("ingestion endpoint rejected batch")

// Forwarder delivers embeds to the ingestion endpoint.
type Forwarder interface {
	Forward(ctx context.Context, messageID string, embeds []*discordgo.MessageEmbed) error
}

type forwardBody struct {
	Embeds []*discordgo.MessageEmbed `json:"embeds"`
}

// HTTPForwarder posts {"embeds": [...]} to an ingestion URL.
type HTTPForwarder struct {
	url    string
	client *http.Client
}

// NewHTTPForwarder returns a forwarder posting to url with the given timeout.
// A non-positive timeout falls back to DefaultForwardTimeout.
func NewHTTPForwarder(url string, timeout time.Duration) *HTTPForwarder {
	if timeout <= 0 {
		timeout = DefaultForwardTimeout
	}
	return &HTTPForwarder{
		url: url,
		client: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{Proxy: http.ProxyFromEnvironment},
		},
	}
}

// Forward posts the embeds and succeeds only on a 2xx acknowledgment.
func (f *HTTPForwarder) Forward(ctx context.Context, messageID string, embeds []*discordgo.MessageEmbed) error {
	body, err := json.Marshal(forwardBody{Embeds: embeds})
	if err != nil {
		return fmt.Errorf("marshal embeds: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	req.Header.Set("X-Message-Id", messageID)

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", f.url, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrForwardRejected, resp.StatusCode)
	}
	return nil
}

// Close releases idle connections.
func (f *HTTPForwarder) Close() {
	f.client.CloseIdleConnections()
}
