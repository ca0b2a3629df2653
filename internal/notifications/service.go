package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"carinspect/internal/config"
)

const userAgent = "carinspect/0.1"

// Event names a notification type.
type Event string

const (
	EventInspectionCompleted Event = "inspection_completed"
	EventInspectionFailed    Event = "inspection_failed"
	EventTest                Event = "test"
)

// Payload carries event fields. Known keys: token, vehicleType, severity,
// confidence, confidenceLevel, evidence, tamper, category, error.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy notifier, or a no-op one when no topic is set.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint:     topic,
		client:       &http.Client{Timeout: timeout},
		onlyConcerns: cfg.Notifications.OnlyConcerns,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint     string
	client       *http.Client
	onlyConcerns bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := n.format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) format(event Event, payload Payload) (message, bool) {
	token := payload.text("token")
	switch event {
	case EventInspectionCompleted:
		severity := payload.text("severity")
		tamper := payload.text("tamper")
		concern := severity == "high" || tamper != ""
		if n.onlyConcerns && !concern {
			return message{}, false
		}
		var b strings.Builder
		fmt.Fprintf(&b, "🚗 %s (%s): damage %s", orUnknown(payload.text("vehicleType")), token, orUnknown(severity))
		if level := payload.text("confidenceLevel"); level != "" {
			fmt.Fprintf(&b, ", confidence %.0f (%s)", payload.number("confidence"), level)
		}
		if tamper != "" {
			fmt.Fprintf(&b, "\nRepair signs: %s", tamper)
		}
		if count := payload.number("evidence"); count > 0 {
			fmt.Fprintf(&b, "\n%.0f suspicious frame(s) saved", count)
		}
		msg := message{
			title: "carinspect - Inspection Complete",
			body:  b.String(),
			tags:  []string{"carinspect", "inspection", orUnknown(severity)},
		}
		if concern {
			msg.priority = "high"
		}
		return msg, true
	case EventInspectionFailed:
		var b strings.Builder
		b.WriteString("❌ Inspection ")
		b.WriteString(token)
		b.WriteString(" failed")
		if category := payload.text("category"); category != "" {
			b.WriteString(" (" + category + ")")
		}
		if detail := payload.text("error"); detail != "" {
			b.WriteString(": " + detail)
		}
		return message{
			title:    "carinspect - Inspection Failed",
			body:     b.String(),
			tags:     []string{"carinspect", "inspection", "failed"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "carinspect - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"carinspect", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (p Payload) text(key string) string {
	if v, ok := p[key]; ok && v != nil {
		return strings.TrimSpace(fmt.Sprint(v))
	}
	return ""
}

func (p Payload) number(key string) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

func orUnknown(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
