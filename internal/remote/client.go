// Package remote implements the optional alternate analyzer client. The
// coordinator consults it only between a failed local pipeline and the
// synthetic fallback; the server side is an external collaborator.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/Dextarfinity/alignmate--commission-sub000/internal/types"
)

// DefaultTimeout bounds one full request/response exchange.
const DefaultTimeout = 3 * time.Second

// Config holds the remote analyzer endpoint settings.
type Config struct {
	// Host is the analyzer host:port. Empty disables the client.
	Host string
	// Timeout bounds one exchange; DefaultTimeout when zero.
	Timeout time.Duration
}

// Client talks to a remote posture analyzer over a websocket, sending
// msgpack-encoded frames and receiving msgpack-encoded assessments. The
// connection is dialed lazily and re-dialed after any failure.
type Client struct {
	endpoint string
	timeout  time.Duration

	mu   sync.Mutex
	conn *websocket.Conn
}

// request is the wire payload for one analysis exchange.
type request struct {
	Image      []byte `msgpack:"image"` // JPEG-encoded frame
	Width      int    `msgpack:"width"`
	Height     int    `msgpack:"height"`
	Discipline string `msgpack:"discipline"`
}

// response mirrors the collaborator's assessment payload.
type response struct {
	Success         bool     `msgpack:"success"`
	OverallScore    int      `msgpack:"overall_score"`
	PostureStatus   string   `msgpack:"posture_status"`
	Feedback        string   `msgpack:"feedback"`
	Confidence      float64  `msgpack:"confidence"`
	Recommendations []string `msgpack:"recommendations"`
}

// NewClient creates a client for the configured endpoint.
func NewClient(cfg Config) *Client {
	u := url.URL{Scheme: "ws", Host: cfg.Host, Path: "/analyze"}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{endpoint: u.String(), timeout: timeout}
}

// Analyze submits a frame and returns the collaborator's assessment.
// Identity fields (scan id, timestamp, source) are left for the caller.
func (c *Client) Analyze(ctx context.Context, img image.Image, discipline types.Discipline) (*types.AnalysisResult, error) {
	if img == nil || img.Bounds().Dx() <= 0 || img.Bounds().Dy() <= 0 {
		return nil, fmt.Errorf("%w: remote analyzer needs a non-empty frame", types.ErrInvalidImage)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	payload, err := msgpack.Marshal(request{
		Image:      buf.Bytes(),
		Width:      img.Bounds().Dx(),
		Height:     img.Bounds().Dy(),
		Discipline: string(discipline),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	conn, err := c.connLocked(ctx)
	if err != nil {
		return nil, err
	}

	conn.SetWriteDeadline(deadline)
	if err := conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
		c.resetLocked()
		return nil, fmt.Errorf("send frame: %w", err)
	}

	conn.SetReadDeadline(deadline)
	_, data, err := conn.ReadMessage()
	if err != nil {
		c.resetLocked()
		return nil, fmt.Errorf("read assessment: %w", err)
	}

	var resp response
	if err := msgpack.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal assessment: %w", err)
	}

	return &types.AnalysisResult{
		Discipline:      discipline,
		Success:         resp.Success,
		OverallScore:    resp.OverallScore,
		PostureStatus:   resp.PostureStatus,
		Feedback:        resp.Feedback,
		Confidence:      resp.Confidence,
		Recommendations: resp.Recommendations,
	}, nil
}

// Close tears down the connection if one is open.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) connLocked(ctx context.Context) (*websocket.Conn, error) {
	if c.conn != nil {
		return c.conn, nil
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.endpoint, err)
	}
	c.conn = conn
	return conn, nil
}

func (c *Client) resetLocked() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}
