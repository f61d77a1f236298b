package core

import (
	"context"
	"errors"
	"time"

	"github.com/valter-silva-au/ditto/pkg/models"
	"go.uber.org/zap"
)

// ErrSourceClosed is returned by a FragmentSource that will never produce
// another fragment.
var ErrSourceClosed = errors.New("fragment source closed")

// FragmentSource delivers new transcript fragments. Each Poll returns only
// fragments not returned before; deduplication is the source's job.
type FragmentSource interface {
	Poll(ctx context.Context) ([]models.TranscriptFragment, error)
}

// ReplaySource is a FragmentSource whose fragments carry their own
// timeline, such as a finished caption file. While Replaying reports true
// the pipeline takes each fragment's timestamp as the current time instead
// of reading the wall clock.
type ReplaySource interface {
	FragmentSource
	Replaying() bool
}

// PipelineOptions holds the collaborators of a CommandPipeline. Events and
// Logger may be nil.
type PipelineOptions struct {
	Source       FragmentSource
	Gate         *FragmentGate
	Machine      *SessionMachine
	Extractor    *FieldExtractor
	Validator    *FieldValidator
	Dispatcher   *ActionDispatcher
	Events       EventLogger
	Logger       *zap.Logger
	PollInterval time.Duration
}

// CommandPipeline drives fragments through gate, session machine,
// extractor, validator and dispatcher on a single goroutine.
type CommandPipeline struct {
	source     FragmentSource
	gate       *FragmentGate
	machine    *SessionMachine
	extractor  *FieldExtractor
	validator  *FieldValidator
	dispatcher *ActionDispatcher
	events     EventLogger
	logger     *zap.Logger
	interval   time.Duration
	now        func() time.Time
}

// NewCommandPipeline creates a CommandPipeline from opts.
func NewCommandPipeline(opts PipelineOptions) *CommandPipeline {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &CommandPipeline{
		source:     opts.Source,
		gate:       opts.Gate,
		machine:    opts.Machine,
		extractor:  opts.Extractor,
		validator:  opts.Validator,
		dispatcher: opts.Dispatcher,
		events:     opts.Events,
		logger:     logger,
		interval:   interval,
		now:        time.Now,
	}
}

// Run polls the source until ctx is cancelled or the source closes. A
// closed source finalizes any open session before Run returns; Run returns
// nil unless the source closed because of an error. Command failures never
// stop the loop.
func (p *CommandPipeline) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var session *models.CommandSession
	for {
		frags, err := p.source.Poll(ctx)
		switch {
		case errors.Is(err, ErrSourceClosed):
			session = p.advance(ctx, session, frags)
			if session != nil {
				p.finalize(ctx, session)
			}
			if err != ErrSourceClosed { //nolint:errorlint // a wrapped sentinel carries the cause
				p.logger.Warn("fragment source failed", zap.Error(err))
				return err
			}
			p.logger.Info("fragment source closed")
			return nil
		case err != nil && ctx.Err() == nil:
			p.logger.Warn("polling fragment source", zap.Error(err))
		}

		session = p.advance(ctx, session, frags)

		select {
		case <-ctx.Done():
			if session != nil {
				p.logger.Info("discarding open command on shutdown", zap.String("command_id", session.ID))
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// advance feeds one poll's fragments to Step. Live sources are stepped
// once against the wall clock. A replaying source is stepped one fragment
// at a time with the clock set to that fragment's timestamp, so that a
// session expires as soon as the replayed timeline passes its deadline.
func (p *CommandPipeline) advance(ctx context.Context, s *models.CommandSession, frags []models.TranscriptFragment) *models.CommandSession {
	rs, ok := p.source.(ReplaySource)
	if !ok || !rs.Replaying() {
		s, _ = p.Step(ctx, s, p.now(), frags)
		return s
	}
	for _, f := range frags {
		s, _ = p.Step(ctx, s, f.Timestamp, nil)
		s, _ = p.Step(ctx, s, f.Timestamp, []models.TranscriptFragment{f})
	}
	return s
}

// Step advances the pipeline by one poll: each fragment is gated and fed to
// the session machine in order, then the session is finalized if now is
// past its deadline. A fragment stamped after the open session can accept it
// closes that session first. Step returns the session the caller should
// hold next (nil when IDLE) and the outcomes of commands finalized.
func (p *CommandPipeline) Step(ctx context.Context, s *models.CommandSession, now time.Time, frags []models.TranscriptFragment) (*models.CommandSession, []models.CommandOutcome) {
	var outcomes []models.CommandOutcome

	for _, f := range frags {
		if p.gate.PastSession(f, s) {
			outcomes = append(outcomes, p.finalize(ctx, s))
			s = nil
		}

		if s == nil {
			if !p.gate.Admit(f, now) {
				if p.gate.MatchesSpeaker(f.SpeakerID) {
					p.logger.Debug("fragment outside speaker time window",
						zap.Time("fragment_time", f.Timestamp),
						zap.Time("now", now),
					)
				}
				continue
			}
			var opened bool
			s, opened = p.machine.Accept(nil, f)
			if opened {
				p.logger.Info("command opened",
					zap.String("command_id", s.ID),
					zap.String("speaker", f.SpeakerID),
					zap.Time("deadline", s.Deadline),
				)
				p.logEvent(EventCommandOpened, map[string]any{
					"command_id": s.ID,
					"deadline":   s.Deadline.Format(time.RFC3339Nano),
				})
			}
			continue
		}

		if !p.gate.AdmitDuring(f, s) {
			continue
		}
		s, _ = p.machine.Accept(s, f)
	}

	if p.machine.Expired(s, now) {
		outcomes = append(outcomes, p.finalize(ctx, s))
		s = nil
	}
	return s, outcomes
}

func (p *CommandPipeline) finalize(ctx context.Context, s *models.CommandSession) models.CommandOutcome {
	text := p.machine.Finalize(s)
	p.logger.Debug("command finalized",
		zap.String("command_id", s.ID),
		zap.Int("fragments", s.Fragments),
	)
	return p.Process(ctx, s.ID, s.TriggerTimestamp, text)
}

// Process extracts, validates and dispatches one finalized command text.
// It always returns an outcome; the error paths are folded into it.
func (p *CommandPipeline) Process(ctx context.Context, commandID string, triggeredAt time.Time, text string) models.CommandOutcome {
	started := p.now()
	fields := p.extractor.Extract(text)
	if len(fields.Values) == 0 && len(fields.Labels) == 0 {
		outcome := models.CommandOutcome{
			CommandID:   commandID,
			Status:      models.OutcomeEmpty,
			TriggeredAt: triggeredAt,
			CompletedAt: p.now(),
		}
		p.logger.Info("command had no content", zap.String("command_id", commandID))
		p.dispatcher.Notify(ctx, outcome)
		p.recordOutcome(outcome, started)
		return outcome
	}

	validated, err := p.validator.Validate(ctx, fields)
	if err != nil {
		outcome := models.CommandOutcome{
			CommandID:   commandID,
			Status:      models.OutcomeFailed,
			Reason:      err.Error(),
			TriggeredAt: triggeredAt,
			CompletedAt: p.now(),
		}
		var abort *AbortError
		if errors.As(err, &abort) {
			outcome.Status = models.OutcomeAborted
			outcome.Reason = abort.Reason
			outcome.AvailableTeams = abort.AvailableTeams
			p.logger.Error("command aborted",
				zap.String("command_id", commandID),
				zap.String("field", string(abort.Field)),
				zap.String("reason", abort.Reason),
				zap.Strings("available_teams", abort.AvailableTeams),
			)
		} else {
			p.logger.Error("command validation failed",
				zap.String("command_id", commandID),
				zap.Error(err),
			)
		}
		p.dispatcher.Notify(ctx, outcome)
		p.recordOutcome(outcome, started)
		return outcome
	}

	outcome := p.dispatcher.Dispatch(ctx, ValidatedCommand{
		ID:          commandID,
		TriggeredAt: triggeredAt,
		Fields:      validated,
	})
	p.recordOutcome(outcome, started)
	return outcome
}

// recordOutcome writes the outcome to the event log. Only identifiers,
// field names and reasons are recorded, never spoken text. Latency runs
// from the start of processing, so replayed timelines do not skew it.
func (p *CommandPipeline) recordOutcome(o models.CommandOutcome, started time.Time) {
	for _, om := range o.Omissions {
		p.logEvent(EventCommandOmission, map[string]any{
			"command_id": o.CommandID,
			"field":      string(om.Field),
			"reason":     om.Reason,
		})
	}

	data := map[string]any{
		"command_id": o.CommandID,
		"status":     string(o.Status),
		"omissions":  len(o.Omissions),
		"latency_ms": o.CompletedAt.Sub(started).Milliseconds(),
	}
	var eventType string
	switch o.Status {
	case models.OutcomeCreated:
		eventType = EventCommandCreated
		data["issue"] = o.Issue.Identifier
		data["applied"] = len(o.Applied)
	case models.OutcomeAborted:
		eventType = EventCommandAborted
		data["reason"] = o.Reason
	case models.OutcomeFailed:
		eventType = EventCommandFailed
		data["reason"] = o.Reason
	default:
		eventType = EventCommandEmpty
	}
	p.logEvent(eventType, data)
}

// logEvent logs an event if an event logger is configured.
func (p *CommandPipeline) logEvent(eventType string, data map[string]any) {
	if p.events == nil {
		return
	}
	if err := p.events.LogEvent(eventType, data); err != nil {
		p.logger.Warn("writing event log", zap.String("type", eventType), zap.Error(err))
	}
}
