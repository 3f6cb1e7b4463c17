package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/network/standard"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/iksnae/dealerchat/internal"
)

// StreamClient posts queries to the backend and decodes the event stream
// it answers with. It implements internal.Streamer.
type StreamClient struct {
	client   *client.Client
	queryURL string
}

// New creates a client for the given query endpoint
func New(queryURL string, dialTimeout time.Duration) (*StreamClient, error) {
	// The standard dialer is required for response body streaming
	c, err := client.NewClient(
		client.WithDialTimeout(dialTimeout),
		client.WithMaxIdleConnDuration(60*time.Second),
		client.WithResponseBodyStream(true),
		client.WithDialer(standard.NewDialer()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	return &StreamClient{client: c, queryURL: queryURL}, nil
}

// Stream sends one query and hands every decoded frame to onFrame until the
// response ends. Connection failures and non-2xx replies are returned as
// *internal.TransportError without emitting any frame.
func (c *StreamClient) Stream(ctx context.Context, sreq internal.StreamRequest, onFrame func(internal.Frame)) error {
	body, err := sonic.Marshal(sreq)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()
	defer func() {
		_ = resp.CloseBodyStream()
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
	}()

	req.SetMethod(consts.MethodPost)
	req.SetRequestURI(c.queryURL)
	req.Header.SetContentTypeBytes([]byte("application/json"))
	req.Header.Set("Accept", "text/event-stream")
	req.SetBody(body)

	internal.LogDebug("POST %s session=%s", c.queryURL, sreq.SessionID)
	if err := c.client.Do(ctx, req, resp); err != nil {
		return &internal.TransportError{Op: "connect", Err: err}
	}

	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		return &internal.TransportError{
			Op:     "status",
			Status: status,
			Err:    fmt.Errorf("unexpected response status %d", status),
		}
	}

	var stream io.Reader = resp.BodyStream()
	if stream == nil {
		stream = bytes.NewReader(resp.Body())
	}
	return internal.DecodeStream(ctx, stream, onFrame)
}

// Ping checks that the server answers HTTP at all. Any status counts as
// reachable; only connection failures are reported.
func (c *StreamClient) Ping(ctx context.Context, url string) (int, error) {
	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()
	defer func() {
		_ = resp.CloseBodyStream()
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
	}()

	req.SetMethod(consts.MethodGet)
	req.SetRequestURI(url)

	if err := c.client.Do(ctx, req, resp); err != nil {
		return 0, &internal.TransportError{Op: "connect", Err: err}
	}
	return resp.StatusCode(), nil
}
