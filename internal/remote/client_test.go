package remote

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/Dextarfinity/alignmate--commission-sub000/internal/types"
)

var upgrader = websocket.Upgrader{}

type requestLog struct {
	mu   sync.Mutex
	reqs []request
}

func (l *requestLog) add(r request) {
	l.mu.Lock()
	l.reqs = append(l.reqs, r)
	l.mu.Unlock()
}

func (l *requestLog) snapshot() []request {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]request(nil), l.reqs...)
}

// analyzeServer runs a one-exchange-per-message analyzer collaborator that
// records the decoded requests it saw.
func analyzeServer(t *testing.T, reply response) (*httptest.Server, *requestLog) {
	t.Helper()
	seen := &requestLog{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/analyze" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var req request
			if err := msgpack.Unmarshal(data, &req); err != nil {
				t.Errorf("bad request payload: %v", err)
				return
			}
			seen.add(req)
			payload, err := msgpack.Marshal(reply)
			if err != nil {
				t.Errorf("marshal reply: %v", err)
				return
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
				return
			}
		}
	}))
	return srv, seen
}

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 32, 24))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{120, 120, 120, 255}), image.Point{}, draw.Src)
	return img
}

func TestAnalyzeExchange(t *testing.T) {
	srv, seen := analyzeServer(t, response{
		Success:         true,
		OverallScore:    82,
		PostureStatus:   "Excellent",
		Feedback:        "Shoulders level",
		Confidence:      0.88,
		Recommendations: []string{"Maintain your current posture"},
	})
	defer srv.Close()

	client := NewClient(Config{Host: strings.TrimPrefix(srv.URL, "http://")})
	defer client.Close()

	result, err := client.Analyze(context.Background(), testImage(), types.DisciplineSalutation)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	if result.OverallScore != 82 || !result.Success {
		t.Errorf("unexpected result %+v", result)
	}
	if result.Discipline != types.DisciplineSalutation {
		t.Errorf("expected discipline carried through, got %q", result.Discipline)
	}
	if result.ScanID != "" || result.Source != "" {
		t.Errorf("identity fields are the caller's: %+v", result)
	}

	reqs := seen.snapshot()
	if len(reqs) != 1 {
		t.Fatalf("expected one request, got %d", len(reqs))
	}
	req := reqs[0]
	if req.Width != 32 || req.Height != 24 {
		t.Errorf("unexpected dimensions %dx%d", req.Width, req.Height)
	}
	if req.Discipline != "salutation" {
		t.Errorf("unexpected discipline %q", req.Discipline)
	}
	if len(req.Image) == 0 {
		t.Error("expected an encoded frame")
	}
}

func TestAnalyzeReusesConnection(t *testing.T) {
	srv, seen := analyzeServer(t, response{OverallScore: 60, PostureStatus: "Fair"})
	defer srv.Close()

	client := NewClient(Config{Host: strings.TrimPrefix(srv.URL, "http://")})
	defer client.Close()

	for i := 0; i < 3; i++ {
		if _, err := client.Analyze(context.Background(), testImage(), types.DisciplineAttention); err != nil {
			t.Fatalf("analyze %d: %v", i, err)
		}
	}
	if got := len(seen.snapshot()); got != 3 {
		t.Errorf("expected 3 requests over one connection, got %d", got)
	}
}

func TestAnalyzeRejectsBadFrame(t *testing.T) {
	client := NewClient(Config{Host: "localhost:1"})
	defer client.Close()

	if _, err := client.Analyze(context.Background(), nil, types.DisciplineAttention); !errors.Is(err, types.ErrInvalidImage) {
		t.Errorf("nil frame: expected ErrInvalidImage, got %v", err)
	}
	empty := image.NewRGBA(image.Rect(0, 0, 0, 0))
	if _, err := client.Analyze(context.Background(), empty, types.DisciplineAttention); !errors.Is(err, types.ErrInvalidImage) {
		t.Errorf("empty frame: expected ErrInvalidImage, got %v", err)
	}
}

func TestAnalyzeDialFailure(t *testing.T) {
	client := NewClient(Config{Host: "localhost:1", Timeout: 200 * time.Millisecond})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if _, err := client.Analyze(ctx, testImage(), types.DisciplineAttention); err == nil {
		t.Fatal("expected dial error")
	}
}
