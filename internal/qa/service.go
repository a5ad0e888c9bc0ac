package qa

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/aurora-qa/internal/cache"
	"github.com/sells-group/aurora-qa/internal/metrics"
	"github.com/sells-group/aurora-qa/internal/model"
)

// MessageSource yields the full message set, fetching it if needed.
// *cache.Cache satisfies it.
type MessageSource interface {
	GetAll(ctx context.Context) ([]model.Message, error)
}

var _ MessageSource = (*cache.Cache)(nil)

// InputError reports a question that cannot be processed at all.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string {
	return "qa: invalid question: " + e.Reason
}

// Result is the outcome of one Ask call.
type Result struct {
	Question string `json:"question" yaml:"question"`
	Intent   Intent `json:"intent" yaml:"intent"`
	Answer   string `json:"answer" yaml:"answer"`
}

// Service answers questions against a MessageSource.
type Service struct {
	source  MessageSource
	parser  *Parser
	metrics *metrics.Metrics
}

// NewService creates a Service using the default template table.
func NewService(source MessageSource, m *metrics.Metrics) *Service {
	return &Service{source: source, parser: NewParser(), metrics: m}
}

// Ask answers one question. An empty question returns *InputError without
// touching the source; source errors are returned as-is.
func (s *Service) Ask(ctx context.Context, question string) (*Result, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, &InputError{Reason: "question cannot be empty"}
	}

	msgs, err := s.source.GetAll(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "qa: load messages")
	}

	q := s.parser.Parse(question)
	answer := Answer(q, msgs)
	s.metrics.Question(string(q.Intent()))

	zap.L().Debug("qa: answered question",
		zap.String("intent", string(q.Intent())),
		zap.String("user", q.UserName()),
		zap.Int("messages", len(msgs)),
	)

	return &Result{Question: question, Intent: q.Intent(), Answer: answer}, nil
}
