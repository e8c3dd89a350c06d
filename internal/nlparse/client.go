// Package nlparse is the client of the external service that turns free
// text ("busy every evening next week, away 3-5 April") into structured
// availability.
package nlparse

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/Kerhoff/FreeSlot/internal/models"
	"github.com/Kerhoff/FreeSlot/internal/timeslot"
)

const maxResponseBytes = 1 << 20

type request struct {
	Text  string        `json:"text"`
	Today timeslot.Date `json:"today"`
}

// Client calls the parser over HTTP.
type Client struct {
	url    string
	client *http.Client
	logger *logrus.Logger
}

// New returns a client posting to url.
func New(url string, timeout time.Duration, logger *logrus.Logger) *Client {
	return &Client{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Parse sends text to the parser. A payload carrying an "error" field is
// returned as models.ErrParserRejected with the parser's message attached.
// Transport failures and 5xx responses are retried a few times.
func (c *Client) Parse(ctx context.Context, text string, today timeslot.Date) (*models.ParsedAvailability, error) {
	payload, err := json.Marshal(request{Text: text, Today: today})
	if err != nil {
		return nil, errors.Wrap(err, "encoding parser request")
	}

	var body []byte
	err = retry.Do(
		func() error {
			var err error
			body, err = c.post(ctx, payload)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.WithError(err).Warnf("Retrying availability parser (attempt %d)", n+2)
		}),
	)
	if err != nil {
		return nil, err
	}

	if !gjson.ValidBytes(body) {
		return nil, errors.New("availability parser returned invalid JSON")
	}
	if msg := gjson.GetBytes(body, "error"); msg.Exists() && msg.Type != gjson.Null {
		return nil, errors.WithDetail(
			errors.Wrap(models.ErrParserRejected, msg.String()),
			text,
		)
	}

	var out models.ParsedAvailability
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decoding parser response"), models.BadParameterError)
	}
	return &out, nil
}

// post returns the response body for 2xx and 4xx answers; the parser reports
// rejections as 4xx with an error payload.
func (c *Client) post(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, retry.Unrecoverable(errors.Wrap(err, "building parser request"))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, retry.Unrecoverable(ctx.Err())
		}
		return nil, errors.Wrap(err, "calling availability parser")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.Wrap(err, "reading parser response")
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, errors.Newf("availability parser returned %s", resp.Status)
	}
	if resp.StatusCode >= http.StatusBadRequest && !gjson.GetBytes(body, "error").Exists() {
		return nil, retry.Unrecoverable(errors.Newf("availability parser returned %s", resp.Status))
	}
	return body, nil
}
