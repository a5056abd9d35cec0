//go:build integration

package test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/joao-fontenele/orderflow-console/internal/config"
	"github.com/joao-fontenele/orderflow-console/internal/console"
	"github.com/joao-fontenele/orderflow-console/internal/devproxy"
	"github.com/joao-fontenele/orderflow-console/internal/domain"
	"github.com/joao-fontenele/orderflow-console/internal/messaging"
	"github.com/joao-fontenele/orderflow-console/internal/orderapi"
)

// fakeOrderService mimics the order service: users get an id, orders are
// validated and listed newest first.
type fakeOrderService struct {
	mu     sync.Mutex
	orders []map[string]any
}

func (f *fakeOrderService) handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/users":
		var user domain.UserDraft
		_ = json.NewDecoder(r.Body).Decode(&user)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(domain.UserRecord{ID: "665f1c2b9d1e8a0012345678", Name: user.Name, Email: user.Email})

	case r.Method == http.MethodPost && r.URL.Path == "/orders":
		var order map[string]any
		if err := json.NewDecoder(r.Body).Decode(&order); err != nil || order["user_id"] == "" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"detail":"Cannot create order: user not found"}`)
			return
		}
		order["id"] = "order-1"
		f.mu.Lock()
		f.orders = append([]map[string]any{order}, f.orders...)
		f.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(order)

	case r.Method == http.MethodGet && r.URL.Path == "/orders":
		f.mu.Lock()
		defer f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(f.orders)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func settle(t *testing.T, ch <-chan console.Settlement) console.Settlement {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(10 * time.Second):
		t.Fatal("operation did not settle")
		return console.Settlement{}
	}
}

func TestConsoleThroughDevProxy(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	backend := &fakeOrderService{}
	upstream := httptest.NewServer(http.HandlerFunc(backend.handler))
	defer upstream.Close()

	cfg, err := config.FromLookup(func(key string) (string, bool) {
		if key == "API_PROXY_TARGET" {
			return upstream.URL, true
		}
		return "", false
	})
	if err != nil {
		t.Fatalf("failed to build config: %v", err)
	}

	mux := http.NewServeMux()
	proxy := devproxy.NewHandler(devproxy.NewUpstreamProxy(cfg.ProxyTarget, upstream.Client()), logger)
	mux.HandleFunc(devproxy.Prefix+"/", proxy.HandleAPI)
	consoleServer := httptest.NewServer(devproxy.AllowHosts(cfg.HostAllowed, logger, mux))
	defer consoleServer.Close()

	api := orderapi.NewClient(cfg.APIBaseURL, consoleServer.URL, consoleServer.Client())
	if !strings.HasSuffix(api.BaseURL(), "/api") {
		t.Fatalf("expected default /api base, got %s", api.BaseURL())
	}

	c := console.New("integration", api, logger)
	ctx := context.Background()

	created := settle(t, c.CreateUser(ctx, domain.UserDraft{Name: "Ada", Email: "ada@example.com"}))
	if created.Result.Kind != domain.ResultOK {
		t.Fatalf("expected user created, got %+v", created.Result)
	}

	snap := c.Snapshot()
	if snap.Order.UserID != "665f1c2b9d1e8a0012345678" {
		t.Fatalf("expected order user id pre-filled, got %q", snap.Order.UserID)
	}

	order := settle(t, c.CreateOrder(ctx, snap.Order))
	if order.Result.Kind != domain.ResultOK {
		t.Fatalf("expected order created, got %+v", order.Result)
	}

	listed := settle(t, c.ListOrders(ctx))
	if !strings.Contains(listed.Result.Payload, `"id": "order-1"`) {
		t.Errorf("expected created order listed, got %s", listed.Result.Payload)
	}

	rejected := settle(t, c.CreateOrder(ctx, domain.NewOrderDraft()))
	if rejected.Result.Kind != domain.ResultErr || !strings.Contains(rejected.Result.Payload, "user not found") {
		t.Errorf("expected backend rejection shown, got %+v", rejected.Result)
	}
}

func TestActivityEventsRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	brokers, cleanup := SetupKafka(ctx, t)
	defer cleanup()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	topic := "console.activity.test"

	producer := messaging.NewActivityProducer(brokers, topic)
	defer func() { _ = producer.Close() }()

	backend := httptest.NewServer(http.HandlerFunc((&fakeOrderService{}).handler))
	defer backend.Close()

	api := orderapi.NewClient(backend.URL, "", backend.Client())
	c := console.New("session-kafka", api, logger, console.WithPublisher(producer))

	// The first write may race topic auto-creation; retry until it lands.
	var published bool
	for attempt := 0; attempt < 10 && !published; attempt++ {
		if err := producer.PublishActivity(ctx, domain.ActivityEvent{SessionID: "warmup", Operation: domain.OperationListOrders, Outcome: "ok"}); err == nil {
			published = true
		} else {
			time.Sleep(time.Second)
		}
	}
	if !published {
		t.Fatal("failed to publish warmup event")
	}

	settle(t, c.ListOrders(ctx))
	settle(t, c.CreateOrder(ctx, domain.NewOrderDraft()))

	consumer := messaging.NewActivityConsumer(brokers, topic, "integration-test", logger,
		messaging.WithStartOffset(kafka.FirstOffset))
	defer func() { _ = consumer.Close() }()

	consumeCtx, stopConsuming := context.WithTimeout(ctx, time.Minute)
	defer stopConsuming()

	var events []domain.ActivityEvent
	err := consumer.Consume(consumeCtx, func(ctx context.Context, event domain.ActivityEvent) error {
		if event.SessionID == "session-kafka" {
			events = append(events, event)
		}
		if len(events) == 2 {
			stopConsuming()
		}
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("consume failed: %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("expected two session events, got %d", len(events))
	}
	if events[0].Operation != domain.OperationListOrders || events[0].Outcome != "ok" {
		t.Errorf("unexpected first event %+v", events[0])
	}
	if events[1].Operation != domain.OperationCreateOrder || events[1].Outcome != "error" || events[1].StatusCode != http.StatusBadRequest {
		t.Errorf("unexpected second event %+v", events[1])
	}
	if events[1].Token != 2 {
		t.Errorf("expected token 2, got %d", events[1].Token)
	}
}
