package console

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/joao-fontenele/orderflow-console/internal/domain"
	"github.com/joao-fontenele/orderflow-console/internal/orderapi"
)

type OrderService interface {
	CreateUser(ctx context.Context, req domain.CreateUserRequest) (json.RawMessage, error)
	CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (json.RawMessage, error)
	ListOrders(ctx context.Context) (json.RawMessage, error)
}

type Publisher interface {
	PublishActivity(ctx context.Context, event domain.ActivityEvent) error
}

type OperationRecorder interface {
	RecordOperation(ctx context.Context, op domain.Operation, outcome string)
}

type Option func(*Console)

func WithPublisher(p Publisher) Option {
	return func(c *Console) {
		c.publisher = p
	}
}

func WithRecorder(r OperationRecorder) Option {
	return func(c *Console) {
		c.recorder = r
	}
}

// Snapshot is a consistent copy of everything the console page renders.
type Snapshot struct {
	User          domain.UserDraft
	Order         domain.OrderDraft
	CreatedUserID string
	Result        domain.Result
}

// EmptySnapshot is what a session that has not acted yet renders.
func EmptySnapshot() Snapshot {
	return Snapshot{
		Order:  domain.NewOrderDraft(),
		Result: domain.Idle(),
	}
}

// Settlement reports how an operation finished. Stale is set when a newer
// operation started before this one settled; its result was then dropped.
type Settlement struct {
	Token  uint64
	Result domain.Result
	Stale  bool
}

// Console holds one session's form drafts and result panel. Every operation
// clears the panel, performs one call and settles the panel with either the
// response or the error. Only the most recently started operation may settle.
type Console struct {
	sessionID string
	api       OrderService
	publisher Publisher
	recorder  OperationRecorder
	logger    *slog.Logger
	now       func() time.Time

	mu            sync.Mutex
	user          domain.UserDraft
	order         domain.OrderDraft
	createdUserID string
	result        domain.Result
	latest        uint64
}

func New(sessionID string, api OrderService, logger *slog.Logger, opts ...Option) *Console {
	c := &Console{
		sessionID: sessionID,
		api:       api,
		logger:    logger,
		now:       time.Now,
		order:     domain.NewOrderDraft(),
		result:    domain.Idle(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Console) SessionID() string {
	return c.sessionID
}

func (c *Console) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		User:          c.user,
		Order:         c.order,
		CreatedUserID: c.createdUserID,
		Result:        c.result,
	}
}

// CreateUser starts POST /users and returns immediately. The returned channel
// receives exactly one Settlement.
func (c *Console) CreateUser(ctx context.Context, draft domain.UserDraft) <-chan Settlement {
	token := c.begin(func() { c.user = draft })

	return c.run(ctx, token, domain.OperationCreateUser,
		func(ctx context.Context) (json.RawMessage, error) {
			return c.api.CreateUser(ctx, draft)
		},
		func(raw json.RawMessage) {
			var user domain.UserRecord
			if err := json.Unmarshal(raw, &user); err != nil {
				c.logger.Warn("created user response has no id", "session_id", c.sessionID, "error", err)
			}
			c.createdUserID = user.ID
			c.order.UserID = user.ID
		},
	)
}

func (c *Console) CreateOrder(ctx context.Context, draft domain.OrderDraft) <-chan Settlement {
	token := c.begin(func() { c.order = draft })

	req := draft.Request()
	return c.run(ctx, token, domain.OperationCreateOrder,
		func(ctx context.Context) (json.RawMessage, error) {
			return c.api.CreateOrder(ctx, req)
		},
		nil,
	)
}

func (c *Console) ListOrders(ctx context.Context) <-chan Settlement {
	token := c.begin(nil)

	return c.run(ctx, token, domain.OperationListOrders, c.api.ListOrders, nil)
}

func (c *Console) begin(update func()) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if update != nil {
		update()
	}
	c.latest++
	c.result = domain.InFlight()
	return c.latest
}

func (c *Console) run(
	ctx context.Context,
	token uint64,
	op domain.Operation,
	call func(context.Context) (json.RawMessage, error),
	onSuccess func(json.RawMessage),
) <-chan Settlement {
	done := make(chan Settlement, 1)

	go func() {
		raw, err := call(ctx)

		var result domain.Result
		if err != nil {
			result = domain.Err(RenderError(err))
		} else {
			result = domain.OK(RenderOK(raw))
		}

		stale := !c.settle(token, result, func() {
			if err == nil && onSuccess != nil {
				onSuccess(raw)
			}
		})

		c.observe(ctx, token, op, result, err, stale)
		done <- Settlement{Token: token, Result: result, Stale: stale}
	}()

	return done
}

func (c *Console) settle(token uint64, result domain.Result, apply func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if token != c.latest {
		return false
	}
	apply()
	c.result = result
	return true
}

func (c *Console) observe(ctx context.Context, token uint64, op domain.Operation, result domain.Result, err error, stale bool) {
	outcome := result.Kind.String()
	if stale {
		outcome = "stale"
	}

	status := 0
	var apiErr *orderapi.APIError
	if errors.As(err, &apiErr) {
		status = apiErr.StatusCode
	}

	if err != nil {
		c.logger.Warn("console operation failed",
			"session_id", c.sessionID, "operation", op, "outcome", outcome, "status", status, "error", err)
	} else {
		c.logger.Info("console operation settled",
			"session_id", c.sessionID, "operation", op, "outcome", outcome)
	}

	if c.recorder != nil {
		c.recorder.RecordOperation(ctx, op, outcome)
	}

	if c.publisher == nil {
		return
	}
	event := domain.ActivityEvent{
		SessionID:  c.sessionID,
		Operation:  op,
		Outcome:    outcome,
		StatusCode: status,
		Token:      token,
		Timestamp:  c.now().UTC(),
	}
	if err := c.publisher.PublishActivity(ctx, event); err != nil {
		c.logger.Error("failed to publish console activity", "error", err, "session_id", c.sessionID, "operation", op)
	}
}
