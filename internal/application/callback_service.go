package application

import (
	"context"
	"errors"
	"net/url"

	"adscope-integrations-layer/internal/domain"

	"github.com/rs/zerolog"
)

// CallbackService owns the one-shot logic that runs when the browser
// returns from a provider's authorization page. A re-render of the
// callback route must not re-submit the same code: the pending
// connection's single consumption is what enforces that, so a second
// resolution finds nothing and stays put instead of re-exchanging.
type CallbackService struct {
	connections *ConnectionService
	logger      zerolog.Logger
}

// NewCallbackService creates a new callback service
func NewCallbackService(connections *ConnectionService, logger zerolog.Logger) *CallbackService {
	return &CallbackService{
		connections: connections,
		logger:      logger,
	}
}

// CallbackResult tells the caller what to do after resolution: navigate
// to the integrations surface on success, or stay in place and show the
// failure reason.
type CallbackResult struct {
	Outcome                *domain.ConnectOutcome
	NavigateToIntegrations bool
	FailureMessage         string
}

// Resolve runs the callback exactly once per pending connection.
func (s *CallbackService) Resolve(ctx context.Context, serviceName string, query url.Values) (*CallbackResult, error) {
	outcome, err := s.connections.CompleteFromCallback(ctx, serviceName, query)
	if err != nil {
		if errors.Is(err, domain.ErrNoPendingConnection) || errors.Is(err, domain.ErrStateMismatch) {
			s.logger.Warn().
				Str("service", serviceName).
				Err(err).
				Msg("Stale or unsolicited callback resolved closed")
			return &CallbackResult{
				FailureMessage: "this authorization has already been processed or was not requested",
			}, nil
		}
		return nil, err
	}

	switch outcome.Kind {
	case domain.OutcomeConnected:
		return &CallbackResult{
			Outcome:                outcome,
			NavigateToIntegrations: true,
		}, nil
	case domain.OutcomeTransient:
		return &CallbackResult{
			Outcome:        outcome,
			FailureMessage: "the service is temporarily unreachable, please retry",
		}, nil
	default:
		return &CallbackResult{
			Outcome:        outcome,
			FailureMessage: outcome.Failure.Message(),
		}, nil
	}
}
