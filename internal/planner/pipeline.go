// Package planner holds the customer list editor and the optimization
// request pipeline that mediates between the UI and the remote API.
package planner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/voltroute/voltroute/internal/models"
	"github.com/voltroute/voltroute/internal/state"
	"github.com/voltroute/voltroute/internal/store"
)

// Precondition failures, checked before any network call is made.
var (
	ErrNoSession   = errors.New("please login before requesting a route")
	ErrNoCustomers = errors.New("please add at least one customer")
	ErrInFlight    = errors.New("an optimization request is already in progress")
	ErrRateLimited = errors.New("too many optimization requests, please wait")
)

// ValidationError marks a runtime parameter that failed client-side
// validation; nothing is sent upstream.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Optimizer is the slice of the upstream client the pipeline needs.
type Optimizer interface {
	Optimize(ctx context.Context, req models.OptimizeRequest) (*models.OptimizeResult, error)
}

// Pipeline assembles optimization requests, submits them upstream, and
// persists the raw result as the hand-off artifact for the results view.
// One request per client may be in flight at a time; each is cancelable
// and bounded by the configured timeout.
type Pipeline struct {
	logger   *zap.Logger
	client   Optimizer
	store    store.Store
	machines *state.Manager
	timeout  time.Duration

	limit rate.Limit
	burst int

	mu       sync.Mutex
	inFlight map[string]context.CancelFunc
	limiters map[string]*rate.Limiter
}

// NewPipeline creates the pipeline.
func NewPipeline(
	logger *zap.Logger,
	client Optimizer,
	st store.Store,
	machines *state.Manager,
	timeout time.Duration,
	limit float64,
	burst int,
) *Pipeline {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if burst < 1 {
		burst = 1
	}
	return &Pipeline{
		logger:   logger,
		client:   client,
		store:    st,
		machines: machines,
		timeout:  timeout,
		limit:    rate.Limit(limit),
		burst:    burst,
		inFlight: make(map[string]context.CancelFunc),
		limiters: make(map[string]*rate.Limiter),
	}
}

func (p *Pipeline) limiter(clientID string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	l, ok := p.limiters[clientID]
	if !ok {
		l = rate.NewLimiter(p.limit, p.burst)
		p.limiters[clientID] = l
	}
	return l
}

// validateParams rejects non-finite numbers before a request is built, so
// nothing like NaN ever reaches the wire.
func validateParams(params models.RuntimeParams) error {
	checks := []struct {
		field string
		value float64
	}{
		{"battery_percentage", params.BatteryPercentage},
		{"temperature", params.Temperature},
		{"load_carry", params.LoadCarry},
	}
	for _, c := range checks {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) {
			return &ValidationError{Field: c.field, Reason: "must be a finite number"}
		}
	}
	if params.BatteryPercentage < 0 || params.BatteryPercentage > 100 {
		return &ValidationError{Field: "battery_percentage", Reason: "must be between 0 and 100"}
	}
	if params.LoadCarry < 0 {
		return &ValidationError{Field: "load_carry", Reason: "must not be negative"}
	}
	return nil
}

// Submit runs one optimization round trip for the client. Preconditions
// are checked before any network call; on success the raw result is
// persisted wholesale and archived, on any failure the stored result is
// left untouched. Unknown algorithm codes are passed through verbatim.
func (p *Pipeline) Submit(
	ctx context.Context,
	clientID string,
	algorithm string,
	customers []models.CustomerEntry,
	params models.RuntimeParams,
) (*models.OptimizeResult, error) {
	session, err := p.store.Session(ctx, clientID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	if len(customers) == 0 {
		return nil, ErrNoCustomers
	}
	if err := validateParams(params); err != nil {
		return nil, err
	}
	if !p.limiter(clientID).Allow() {
		return nil, ErrRateLimited
	}

	machine := p.machines.GetOrCreate(clientID)
	if !machine.CanTransition(state.EventSubmit) {
		return nil, ErrInFlight
	}
	if err := machine.Trigger(state.EventSubmit); err != nil {
		return nil, ErrInFlight
	}
	machine.UpdateState(func(s *state.PipelineState) {
		s.Algorithm = algorithm
		s.LastError = ""
	})

	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	p.mu.Lock()
	p.inFlight[clientID] = cancel
	p.mu.Unlock()
	defer func() {
		cancel()
		p.mu.Lock()
		delete(p.inFlight, clientID)
		p.mu.Unlock()
	}()

	req := models.OptimizeRequest{
		VehicleNumber:     session.VehicleNumber,
		Algorithm:         algorithm,
		CustomerData:      customers,
		BatteryPercentage: params.BatteryPercentage,
		Temperature:       params.Temperature,
		LoadCarry:         params.LoadCarry,
		VehicleRange:      session.VehicleRange,
	}

	result, err := p.client.Optimize(reqCtx, req)
	if err != nil {
		p.fail(machine, err)
		return nil, err
	}

	if err := p.store.SetResult(ctx, clientID, result); err != nil {
		p.fail(machine, err)
		return nil, fmt.Errorf("persist result: %w", err)
	}
	if _, err := p.store.SaveRoute(ctx, session.VehicleNumber, result); err != nil {
		// History is best effort; the hand-off artifact is already committed.
		p.logger.Error("Failed to archive route", zap.Error(err), zap.String("client_id", clientID))
	}

	if err := machine.Trigger(state.EventSucceed); err != nil {
		p.logger.Warn("Pipeline state out of sync", zap.Error(err), zap.String("client_id", clientID))
	}

	p.logger.Info("Optimization completed",
		zap.String("client_id", clientID),
		zap.String("algorithm", algorithm),
		zap.Int("customers", len(customers)),
		zap.Float64("total_distance", result.TotalDistance),
	)
	return result, nil
}

func (p *Pipeline) fail(machine *state.Machine, cause error) {
	machine.UpdateState(func(s *state.PipelineState) {
		s.LastError = cause.Error()
	})
	if err := machine.Trigger(state.EventFail); err != nil {
		p.logger.Warn("Pipeline state out of sync", zap.Error(err))
	}
}

// Cancel aborts the client's in-flight request, if any. The abandoned call
// fails like any network error and commits nothing.
func (p *Pipeline) Cancel(clientID string) bool {
	p.mu.Lock()
	cancel, ok := p.inFlight[clientID]
	p.mu.Unlock()

	if ok {
		cancel()
	}
	return ok
}

// State returns the client's pipeline snapshot.
func (p *Pipeline) State(clientID string) *state.PipelineState {
	return p.machines.GetOrCreate(clientID).GetState()
}
