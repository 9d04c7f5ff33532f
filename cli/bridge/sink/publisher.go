package sink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/roataway/briya/cli/bridge/config"
	"github.com/roataway/briya/libs/yandex"
)

// Outcome is the collector's answer to one publish.
type Outcome struct {
	StatusCode int
	Accepted   bool
}

// Publisher POSTs tracks documents to the collector. One request per call, no
// retries.
type Publisher struct {
	client      *http.Client
	url         string
	compress    bool
	contentType string
	verbose     bool
}

func NewPublisher(cfg config.Yandex) *Publisher {
	return &Publisher{
		client:      http.DefaultClient,
		url:         cfg.URL,
		compress:    cfg.Compress,
		contentType: yandex.ContentType(cfg.Compress, cfg.ContentType),
		verbose:     cfg.VerboseHTTP,
	}
}

// Publish sends document. Transport failures are returned as errors; any HTTP
// response, including non-2xx, is reported through Outcome.
func (p *Publisher) Publish(ctx context.Context, document []byte) (Outcome, error) {
	body, err := yandex.Body(document, p.compress)
	if err != nil {
		return Outcome{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return Outcome{}, fmt.Errorf("could not build request: %w", err)
	}
	req.Header.Set("Content-Type", p.contentType)

	resp, err := p.client.Do(req)
	if err != nil {
		return Outcome{}, fmt.Errorf("post to %s failed: %w", p.url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		log.WithField("err", err).Warn("Could not read collector response")
	}
	out := Outcome{
		StatusCode: resp.StatusCode,
		Accepted:   resp.StatusCode >= 200 && resp.StatusCode < 300,
	}

	if p.verbose {
		log.WithFields(log.Fields{
			"bytes":  len(body),
			"status": resp.StatusCode,
		}).Debugf("Collector response: %s", respBody)
	}

	if !out.Accepted {
		log.WithFields(log.Fields{
			"status": resp.StatusCode,
			"reason": reason(resp),
		}).Warn("Negative response from the collector")
		if resp.StatusCode == http.StatusBadRequest {
			log.Debugf("Rejected request: %s", body)
			log.Debugf("Rejection details: %s", respBody)
		}
	}
	return out, nil
}

// reason is the reason phrase the collector sent, "400 Bad XML" -> "Bad XML".
func reason(resp *http.Response) string {
	if _, phrase, ok := strings.Cut(resp.Status, " "); ok && phrase != "" {
		return phrase
	}
	return http.StatusText(resp.StatusCode)
}
