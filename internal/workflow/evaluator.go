package workflow

import (
	"context"
	"time"

	"ideaflow/internal/common/logger"
	"ideaflow/internal/common/metrics"
	"ideaflow/internal/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "ideaflow/internal/workflow"

// CriteriaReport is the outcome of evaluating one edge for one idea.
// An empty report with CanProgress set means no criteria apply to the edge.
type CriteriaReport struct {
	IdeaID        string        `json:"ideaId"`
	From          models.Status `json:"fromStatus"`
	To            models.Status `json:"toStatus"`
	CanProgress   bool          `json:"canProgress"`
	MetCriteria   []string      `json:"metCriteria"`
	UnmetCriteria []string      `json:"unmetCriteria"`
	EvaluatedAt   time.Time     `json:"evaluatedAt"`
}

// Evaluator computes advisory progression reports. It never writes.
type Evaluator struct {
	store   Store
	logger  logger.Logger
	tracer  trace.Tracer
	timeout time.Duration
	now     func() time.Time
}

type EvaluatorOption func(*Evaluator)

// WithEvaluationTimeout bounds the criteria reads; exceeding it counts as a fetch failure.
func WithEvaluationTimeout(d time.Duration) EvaluatorOption {
	return func(e *Evaluator) { e.timeout = d }
}

func WithClock(now func() time.Time) EvaluatorOption {
	return func(e *Evaluator) { e.now = now }
}

func NewEvaluator(store Store, log logger.Logger, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		store:  store,
		logger: log.WithFields(map[string]interface{}{"component": "progression-evaluator"}),
		tracer: otel.Tracer(tracerName),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EvaluateProgression reports which criteria of the from->to edge are met.
// Non-canonical pairs have no criteria and are reported as progressable.
// Read failures are reported as a single unmet entry with CanProgress false.
func (e *Evaluator) EvaluateProgression(ctx context.Context, ideaID string, from, to models.Status) CriteriaReport {
	edge := Edge{From: from, To: to}
	report := CriteriaReport{
		IdeaID:        ideaID,
		From:          from,
		To:            to,
		MetCriteria:   []string{},
		UnmetCriteria: []string{},
		EvaluatedAt:   e.now(),
	}

	if !edge.IsCanonical() {
		e.logger.Warn("no criteria defined for transition", map[string]interface{}{
			"ideaId": ideaID,
			"edge":   edge.String(),
		})
		metrics.ProgressionEvaluations.WithLabelValues("other", metrics.ResultNoCriteria).Inc()
		report.CanProgress = true
		return report
	}

	ctx, span := e.tracer.Start(ctx, "workflow.EvaluateProgression", trace.WithAttributes(
		attribute.String("idea.id", ideaID),
		attribute.String("workflow.edge", edge.String()),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.ProgressionEvaluationDuration.WithLabelValues(edge.String()).Observe(time.Since(start).Seconds())
	}()

	signals, err := e.gather(ctx, ideaID, edge)
	if err != nil {
		e.logger.Error("failed to gather progression criteria", map[string]interface{}{
			"ideaId": ideaID,
			"edge":   edge.String(),
			"error":  err,
		})
		span.RecordError(err)
		span.SetStatus(codes.Error, "criteria fetch failed")
		metrics.ProgressionEvaluations.WithLabelValues(edge.String(), metrics.ResultError).Inc()
		report.UnmetCriteria = []string{CriteriaErrorMessage}
		return report
	}

	v := checkEdge(edge, signals)
	report.MetCriteria = append(report.MetCriteria, v.met...)
	report.UnmetCriteria = append(report.UnmetCriteria, v.unmet...)
	report.CanProgress = len(report.UnmetCriteria) == 0

	result := metrics.ResultMet
	if !report.CanProgress {
		result = metrics.ResultUnmet
	}
	metrics.ProgressionEvaluations.WithLabelValues(edge.String(), result).Inc()
	span.SetAttributes(attribute.Bool("workflow.can_progress", report.CanProgress))

	e.logger.Debug("progression evaluated", map[string]interface{}{
		"ideaId":      ideaID,
		"edge":        edge.String(),
		"canProgress": report.CanProgress,
		"unmet":       len(report.UnmetCriteria),
	})
	return report
}

// EvaluateNext evaluates the canonical forward edge out of current. For the
// terminal stage it returns an empty progressable report with no target.
func (e *Evaluator) EvaluateNext(ctx context.Context, ideaID string, current models.Status) CriteriaReport {
	next, ok := NextStage(current)
	if !ok {
		return CriteriaReport{
			IdeaID:        ideaID,
			From:          current,
			CanProgress:   true,
			MetCriteria:   []string{},
			UnmetCriteria: []string{},
			EvaluatedAt:   e.now(),
		}
	}
	return e.EvaluateProgression(ctx, ideaID, current, next)
}

// gather issues the reads an edge needs concurrently and waits for all of them.
func (e *Evaluator) gather(ctx context.Context, ideaID string, edge Edge) (Signals, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	var s Signals
	g, gctx := errgroup.WithContext(ctx)

	switch edge.To {
	case models.StatusUnderReview:
		g.Go(func() (err error) {
			s.Interactions, err = e.store.CountVotesAndComments(gctx, ideaID)
			return err
		})
		g.Go(func() (err error) {
			s.Evaluations, err = e.store.CountEvaluations(gctx, ideaID)
			return err
		})
	case models.StatusValidated:
		g.Go(func() (err error) {
			s.Evaluations, err = e.store.CountEvaluations(gctx, ideaID)
			return err
		})
		g.Go(func() (err error) {
			s.Scores, err = e.store.FetchEvaluationScores(gctx, ideaID)
			return err
		})
		g.Go(func() (err error) {
			s.Comments, err = e.store.CountComments(gctx, ideaID)
			return err
		})
	case models.StatusInvestmentReady:
		g.Go(func() (err error) {
			s.InvestorInterest, err = e.store.CountInvestorInterest(gctx, ideaID)
			return err
		})
		g.Go(func() (err error) {
			s.Documents, err = e.store.CountDocuments(gctx, ideaID)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return Signals{}, err
	}
	return s, nil
}
