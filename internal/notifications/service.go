package notifications

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"vidslides/internal/config"
)

const userAgent = "vidslides/0.1.0"

// Event identifies a notification type.
type Event string

const (
	EventJobCompleted Event = "job_completed"
	EventJobFailed    Event = "job_failed"
	EventQueueDrained Event = "queue_drained"
	EventTest         Event = "test"
)

// Payload carries event fields. Known keys: jobID, title, slideCount,
// deckPath, error, url, processed, failed.
type Payload map[string]any

// ErrCircuitOpen is returned while the notification circuit is open.
var ErrCircuitOpen = errors.New("notification circuit open")

// Service publishes job lifecycle notifications.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	endpoint := endpointFor(cfg.Notifications.Server, cfg.Notifications.NtfyTopic)
	if endpoint == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventJobCompleted: cfg.Notifications.JobCompleted,
			EventJobFailed:    cfg.Notifications.JobFailed,
			EventQueueDrained: cfg.Notifications.JobCompleted,
			EventTest:         true,
		},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "ntfy",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
	}
}

// endpointFor joins server and topic. A topic that is already a URL is used
// as is.
func endpointFor(server, topic string) string {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return ""
	}
	if strings.HasPrefix(topic, "http://") || strings.HasPrefix(topic, "https://") {
		return topic
	}
	server = strings.TrimRight(strings.TrimSpace(server), "/")
	if server == "" {
		server = "https://ntfy.sh"
	}
	return server + "/" + strings.TrimLeft(topic, "/")
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
	breaker  *gobreaker.CircuitBreaker
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil || n.client == nil {
		return nil
	}
	if !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	_, err := n.breaker.Execute(func() (any, error) {
		return nil, n.send(ctx, msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	return err
}

func format(event Event, payload Payload) (message, bool) {
	title := payloadString(payload, "title")
	jobID := payloadString(payload, "jobID")
	label := title
	if label == "" {
		label = jobID
	}
	switch event {
	case EventJobCompleted:
		body := fmt.Sprintf("Deck ready: %s", label)
		if count, ok := payload["slideCount"].(int); ok {
			body = fmt.Sprintf("%s (%d slides)", body, count)
		}
		if deckPath := payloadString(payload, "deckPath"); deckPath != "" {
			body = fmt.Sprintf("%s\nFile: %s", body, deckPath)
		}
		return message{
			title: "vidslides - Deck Ready",
			body:  body,
			tags:  []string{"vidslides", "job", "completed"},
		}, true
	case EventJobFailed:
		reason := payloadString(payload, "error")
		if reason == "" {
			reason = "unknown error"
		}
		if label == "" {
			label = payloadString(payload, "url")
		}
		return message{
			title:    "vidslides - Job Failed",
			body:     fmt.Sprintf("Job %s failed: %s", label, reason),
			tags:     []string{"vidslides", "job", "failed"},
			priority: "high",
		}, true
	case EventQueueDrained:
		processed, _ := payload["processed"].(int)
		failed, _ := payload["failed"].(int)
		body := fmt.Sprintf("Queue empty: %d jobs processed", processed)
		if failed > 0 {
			body = fmt.Sprintf("Queue empty: %d succeeded, %d failed", processed-failed, failed)
		}
		return message{
			title: "vidslides - Queue Drained",
			body:  body,
			tags:  []string{"vidslides", "queue", "completed"},
		}, true
	case EventTest:
		return message{
			title:    "vidslides - Test",
			body:     "Notification system test",
			tags:     []string{"vidslides", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func payloadString(payload Payload, key string) string {
	switch v := payload[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return ""
	}
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
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

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
