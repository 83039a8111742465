// Package control implements the MQTT command plane for the sensor:
// status queries, pause/resume, model preference and discipline changes,
// and remote shutdown.
package control

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/Dextarfinity/alignmate--commission-sub000/internal/config"
)

// Command represents a control plane command.
type Command struct {
	Command string                 `json:"command"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// Response represents a command response.
type Response struct {
	CommandAck string                 `json:"command_ack"`
	Status     string                 `json:"status"`
	Data       map[string]interface{} `json:"data,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Timestamp  string                 `json:"timestamp"`
}

// Callbacks contains the callback functions commands dispatch to.
type Callbacks struct {
	OnGetStatus          func() map[string]interface{}
	OnPause              func() error
	OnResume             func() error
	OnSetModelPreference func(id string) error
	OnSetDiscipline      func(discipline string) error
	OnShutdown           func() error
}

// Handler handles control plane commands.
type Handler struct {
	cfg      *config.Config
	client   mqtt.Client
	commands chan Command

	mu        sync.RWMutex
	isPaused  bool
	callbacks Callbacks
}

// NewHandler creates a control plane handler.
func NewHandler(cfg *config.Config, client mqtt.Client, callbacks Callbacks) *Handler {
	return &Handler{
		cfg:       cfg,
		client:    client,
		commands:  make(chan Command, 10),
		callbacks: callbacks,
	}
}

// Start subscribes to the control topic and begins processing commands.
func (h *Handler) Start(ctx context.Context) error {
	topic := h.cfg.MQTT.Topics.Control
	qos := h.cfg.MQTT.QoS["control"]

	slog.Info("subscribing to control plane", "topic", topic, "qos", qos)

	token := h.client.Subscribe(topic, qos, h.messageHandler)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("control plane subscription timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("control plane subscription failed: %w", err)
	}

	slog.Info("control plane handler started")

	go h.processCommands(ctx)

	return nil
}

// Stop unsubscribes and stops command processing.
func (h *Handler) Stop() error {
	topic := h.cfg.MQTT.Topics.Control

	if h.client != nil && h.client.IsConnected() {
		token := h.client.Unsubscribe(topic)
		token.Wait()
	}

	close(h.commands)

	slog.Info("control plane handler stopped")
	return nil
}

// IsPaused reports whether scanning is currently paused.
func (h *Handler) IsPaused() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.isPaused
}

func (h *Handler) messageHandler(client mqtt.Client, msg mqtt.Message) {
	var cmd Command
	if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
		slog.Error("failed to parse control command", "error", err)
		h.sendResponse(Response{
			CommandAck: "unknown",
			Status:     "error",
			Error:      "invalid JSON",
		})
		return
	}

	slog.Info("control command received", "command", cmd.Command)

	select {
	case h.commands <- cmd:
	default:
		slog.Warn("command queue full, dropping command", "command", cmd.Command)
	}
}

func (h *Handler) processCommands(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-h.commands:
			if !ok {
				return
			}
			h.handleCommand(cmd)
		}
	}
}

func (h *Handler) handleCommand(cmd Command) {
	var resp Response
	resp.CommandAck = cmd.Command

	switch cmd.Command {
	case "get_status":
		if h.callbacks.OnGetStatus != nil {
			resp.Status = "success"
			resp.Data = h.callbacks.OnGetStatus()
		} else {
			resp.Status = "error"
			resp.Error = "get_status not implemented"
		}

	case "pause_scanning":
		if err := h.invoke(h.callbacks.OnPause, "pause"); err != nil {
			resp.Status = "error"
			resp.Error = err.Error()
		} else {
			h.mu.Lock()
			h.isPaused = true
			h.mu.Unlock()
			resp.Status = "success"
			resp.Data = map[string]interface{}{"scanning_active": false}
		}

	case "resume_scanning":
		if err := h.invoke(h.callbacks.OnResume, "resume"); err != nil {
			resp.Status = "error"
			resp.Error = err.Error()
		} else {
			h.mu.Lock()
			h.isPaused = false
			h.mu.Unlock()
			resp.Status = "success"
			resp.Data = map[string]interface{}{"scanning_active": true}
		}

	case "set_model_preference":
		id, _ := cmd.Params["id"].(string)
		if h.callbacks.OnSetModelPreference == nil {
			resp.Status = "error"
			resp.Error = "set_model_preference not implemented"
		} else if err := h.callbacks.OnSetModelPreference(id); err != nil {
			resp.Status = "error"
			resp.Error = err.Error()
		} else {
			resp.Status = "success"
			resp.Data = map[string]interface{}{"preference": id}
		}

	case "set_discipline":
		discipline, _ := cmd.Params["discipline"].(string)
		if h.callbacks.OnSetDiscipline == nil {
			resp.Status = "error"
			resp.Error = "set_discipline not implemented"
		} else if err := h.callbacks.OnSetDiscipline(discipline); err != nil {
			resp.Status = "error"
			resp.Error = err.Error()
		} else {
			resp.Status = "success"
			resp.Data = map[string]interface{}{"discipline": discipline}
		}

	case "shutdown":
		if err := h.invoke(h.callbacks.OnShutdown, "shutdown"); err != nil {
			resp.Status = "error"
			resp.Error = err.Error()
		} else {
			resp.Status = "success"
		}

	default:
		resp.Status = "error"
		resp.Error = fmt.Sprintf("unknown command %q", cmd.Command)
	}

	h.sendResponse(resp)
}

func (h *Handler) invoke(cb func() error, name string) error {
	if cb == nil {
		return fmt.Errorf("%s not implemented", name)
	}
	return cb()
}

// sendResponse publishes a response on the control topic with a /response
// suffix so commanders can correlate acks.
func (h *Handler) sendResponse(resp Response) {
	resp.Timestamp = time.Now().UTC().Format(time.RFC3339)

	payload, err := json.Marshal(resp)
	if err != nil {
		slog.Error("failed to marshal control response", "error", err)
		return
	}

	topic := h.cfg.MQTT.Topics.Control + "/response"
	qos := h.cfg.MQTT.QoS["control"]

	token := h.client.Publish(topic, qos, false, payload)
	if !token.WaitTimeout(2 * time.Second) {
		slog.Warn("control response publish timeout", "topic", topic)
		return
	}
	if err := token.Error(); err != nil {
		slog.Error("control response publish failed", "topic", topic, "error", err)
	}
}
