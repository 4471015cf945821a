package advisor

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/luwero-crop-advisor/internal/cache"
	"github.com/ZanzyTHEbar/luwero-crop-advisor/internal/errors"
	"github.com/ZanzyTHEbar/luwero-crop-advisor/internal/monitoring"
	"github.com/ZanzyTHEbar/luwero-crop-advisor/internal/resilience"
)

// Client-facing messages.
const (
	MsgMessageRequired = "Message is required."
	MsgUnavailable     = "The advisor is temporarily unavailable. Please try again shortly."
)

// Chat outcomes reported to Metrics.
const (
	OutcomeAnswered = "answered"
	OutcomeCached   = "cached"
	OutcomeFailed   = "failed"
	OutcomeRejected = "rejected"
)

// Completer produces an answer for one user message.
type Completer interface {
	Complete(ctx context.Context, message string) (string, error)
	Configured() bool
}

// Metrics receives chat and upstream events.
type Metrics interface {
	RecordChat(outcome string)
	RecordExternalAPIRequest(apiName string, success bool)
}

// Answer is one chat reply.
type Answer struct {
	Text   string
	Cached bool
}

// ServiceOptions tune the failure handling around the upstream.
type ServiceOptions struct {
	Breaker resilience.CircuitBreakerConfig
	Retry   resilience.RetryConfig
}

// DefaultServiceOptions opens the breaker after five retryable failures and
// retries each question once.
func DefaultServiceOptions() ServiceOptions {
	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = 2
	return ServiceOptions{
		Breaker: resilience.CircuitBreakerConfig{
			FailureThreshold: 5,
			RecoveryTimeout:  30 * time.Second,
			SuccessThreshold: 1,
		},
		Retry: retry,
	}
}

// Service answers chat messages with a per-client answer cache.
type Service struct {
	completer Completer
	store     cache.Store
	breaker   *resilience.CircuitBreaker
	retry     resilience.RetryConfig
	metrics   Metrics
	logger    *monitoring.Logger
}

// NewService wires the completer behind the cache and a circuit breaker.
// store, metrics and logger may be nil. Only retryable errors count against
// the breaker, so client mistakes never open it.
func NewService(completer Completer, store cache.Store, metrics Metrics, logger *monitoring.Logger, opts ServiceOptions) *Service {
	if opts.Breaker.IsFailure == nil {
		opts.Breaker.IsFailure = errors.IsRetryableError
	}
	if logger != nil {
		next := opts.Breaker.OnStateChange
		opts.Breaker.OnStateChange = func(from, to resilience.CircuitBreakerState) {
			logger.SystemLogger("advisor_circuit_"+to.String(), "from "+from.String())
			if next != nil {
				next(from, to)
			}
		}
	}

	return &Service{
		completer: completer,
		store:     store,
		breaker:   resilience.NewCircuitBreaker(opts.Breaker),
		retry:     opts.Retry,
		metrics:   metrics,
		logger:    logger,
	}
}

// CacheKey scopes cached answers to one client and one normalized question.
func CacheKey(clientIP, message string) string {
	return clientIP + ":" + strings.ToLower(strings.TrimSpace(message))
}

// Ask answers message for clientIP. Answers come from the cache when the
// same client asked the same question within the cache TTL.
func (s *Service) Ask(ctx context.Context, clientIP, message string) (*Answer, error) {
	start := time.Now()

	if strings.TrimSpace(message) == "" {
		s.recordChat(OutcomeRejected)
		return nil, errors.NewValidationError(MsgMessageRequired)
	}
	if !s.completer.Configured() {
		s.recordChat(OutcomeFailed)
		return nil, errors.NewConfigurationError(MsgMissingAPIKey, nil)
	}

	key := CacheKey(clientIP, message)
	if s.store != nil {
		if data, ok := s.store.Get(ctx, key); ok && len(data) > 0 {
			s.recordChat(OutcomeCached)
			s.logChat(message, true, 0, start)
			return &Answer{Text: string(data), Cached: true}, nil
		}
	}

	var text string
	err := s.breaker.Call(func() error {
		return resilience.RetryWithConfig(ctx, s.retry, func() error {
			answer, err := s.completer.Complete(ctx, message)
			if s.metrics != nil {
				s.metrics.RecordExternalAPIRequest(apiName, err == nil)
			}
			if err != nil {
				return err
			}
			text = answer
			return nil
		})
	})
	if err != nil {
		s.recordChat(OutcomeFailed)
		if stderrors.Is(err, resilience.ErrCircuitOpen) {
			return nil, errors.NewServiceUnavailableError(MsgUnavailable, err)
		}
		appErr := errors.ToAppError(err)
		s.logChat(message, false, appErr.HTTPStatus, start)
		return nil, appErr
	}

	if s.store != nil && text != "" {
		s.store.Set(ctx, key, []byte(text))
	}
	s.recordChat(OutcomeAnswered)
	s.logChat(message, false, 200, start)
	return &Answer{Text: text}, nil
}

// Configured reports whether the upstream has credentials.
func (s *Service) Configured() bool {
	return s.completer.Configured()
}

// Info describes the upstream and its circuit for /stats.
func (s *Service) Info() map[string]interface{} {
	info := map[string]interface{}{}
	if d, ok := s.completer.(interface{ Info() map[string]interface{} }); ok {
		info = d.Info()
	}
	info["configured"] = s.completer.Configured()
	info["circuit_breaker"] = s.breaker.Stats()
	return info
}

// BreakerState exposes the upstream circuit state for health output.
func (s *Service) BreakerState() resilience.CircuitBreakerState {
	return s.breaker.State()
}

func (s *Service) recordChat(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordChat(outcome)
	}
}

func (s *Service) logChat(message string, cached bool, status int, start time.Time) {
	if s.logger != nil {
		s.logger.ChatLogger(len(message), cached, status, time.Since(start))
	}
}
