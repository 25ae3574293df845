// Package flow is the interaction layer: it renders the workflow for a
// session and routes step invocations to the executor.
package flow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/lottery-onboarding/internal/application/executor"
	"github.com/garyjia/lottery-onboarding/internal/application/session"
	"github.com/garyjia/lottery-onboarding/internal/domain/signal"
	"github.com/garyjia/lottery-onboarding/internal/domain/step"
	"github.com/garyjia/lottery-onboarding/internal/domain/workflow"
)

// Observer supplies snapshots
type Observer interface {
	Fetch(ctx context.Context, names ...signal.Name) (signal.Snapshot, error)
	Current() signal.Snapshot
}

// Executor runs a step write
type Executor interface {
	Execute(ctx context.Context, sess *session.Session, d step.Descriptor, snap signal.Snapshot) (*executor.Result, error)
}

// StepView is one step as presented to the user
type StepView struct {
	ID         step.ID            `json:"id"`
	Order      int                `json:"order"`
	Prompt     string             `json:"prompt"`
	ButtonText string             `json:"button_text"`
	State      workflow.StepState `json:"state"`
	Repeatable bool               `json:"repeatable"`
	Invocable  bool               `json:"invocable"`
}

// View is the rendered workflow
type View struct {
	Status  workflow.Status              `json:"status"`
	Active  *StepView                    `json:"active,omitempty"`
	Waiting []signal.Name                `json:"waiting,omitempty"`
	Steps   []StepView                   `json:"steps"`
	Session session.View                 `json:"session"`
	Signals map[signal.Name]signal.Value `json:"signals"`
	TakenAt time.Time                    `json:"taken_at"`
}

// Service drives one session through the workflow
type Service struct {
	engine   *workflow.Engine
	observer Observer
	executor Executor
	session  *session.Session
	logger   *zap.Logger

	wg sync.WaitGroup
}

// NewService creates a flow service for a session
func NewService(engine *workflow.Engine, obs Observer, exec Executor, sess *session.Session, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		engine:   engine,
		observer: obs,
		executor: exec,
		session:  sess,
		logger:   logger,
	}
}

// Session returns the session the service drives
func (s *Service) Session() *session.Session {
	return s.session
}

// Refresh re-reads every signal and returns the new view. Read failures are
// returned but the view is still rendered from what was read.
func (s *Service) Refresh(ctx context.Context) (View, error) {
	_, err := s.observer.Fetch(ctx)
	if err != nil {
		s.logger.Warn("Refresh incomplete", zap.Error(err))
	}
	return s.View(), err
}

// View renders the current snapshot
func (s *Service) View() View {
	snap := s.observer.Current()
	sel := s.sync(snap)
	submitting := s.session.IsSubmitting()

	statuses := s.engine.Evaluate(snap)
	steps := make([]StepView, 0, len(statuses))
	var active *StepView

	for _, st := range statuses {
		eligible, _ := s.engine.Eligible(snap, st.Step.ID)
		sv := StepView{
			ID:         st.Step.ID,
			Order:      st.Step.Order,
			Prompt:     st.Step.Prompt,
			ButtonText: st.Step.ButtonText,
			State:      st.State,
			Repeatable: st.Step.Repeatable,
			Invocable:  eligible && !submitting,
		}
		steps = append(steps, sv)
		if sel.Step != nil && sel.Step.ID == sv.ID {
			cp := sv
			active = &cp
		}
	}

	return View{
		Status:  sel.Status,
		Active:  active,
		Waiting: sel.Waiting,
		Steps:   steps,
		Session: s.session.View(),
		Signals: snap.Values(),
		TakenAt: snap.TakenAt(),
	}
}

func (s *Service) sync(snap signal.Snapshot) workflow.Selection {
	sel := s.engine.SelectActive(snap)
	var id step.ID
	if sel.Status == workflow.StatusActive {
		id = sel.Step.ID
	}
	s.session.SetActive(id)
	return sel
}

// prepare checks that id may run on the current snapshot
func (s *Service) prepare(id step.ID) (step.Descriptor, signal.Snapshot, error) {
	snap := s.observer.Current()
	ok, err := s.engine.Eligible(snap, id)
	if err != nil {
		return step.Descriptor{}, snap, err
	}
	if !ok {
		return step.Descriptor{}, snap, fmt.Errorf("%w: %s", workflow.ErrNotEligible, id)
	}
	d, err := s.engine.Registry().Get(id)
	return d, snap, err
}

// Invoke runs step id and waits for it to confirm and refresh
func (s *Service) Invoke(ctx context.Context, id step.ID) (*executor.Result, error) {
	d, snap, err := s.prepare(id)
	if err != nil {
		return nil, err
	}

	res, err := s.executor.Execute(ctx, s.session, d, snap)
	s.sync(s.observer.Current())
	return res, err
}

// InvokeActive runs the active step
func (s *Service) InvokeActive(ctx context.Context) (*executor.Result, error) {
	sel := s.sync(s.observer.Current())
	if sel.Status != workflow.StatusActive {
		return nil, fmt.Errorf("%w: workflow is %s", ErrNoActiveStep, sel.Status)
	}
	return s.Invoke(ctx, sel.Step.ID)
}

// InvokeAsync starts step id in the background. It fails fast when the step
// is not eligible or a write is already in flight.
func (s *Service) InvokeAsync(ctx context.Context, id step.ID) error {
	d, snap, err := s.prepare(id)
	if err != nil {
		return err
	}
	if s.session.IsSubmitting() {
		return executor.ErrBusy
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.executor.Execute(context.WithoutCancel(ctx), s.session, d, snap); err != nil {
			s.logger.Warn("Background step failed", zap.String("step_id", id.String()), zap.Error(err))
		}
		s.sync(s.observer.Current())
	}()
	return nil
}

// Wait blocks until background invocations finish
func (s *Service) Wait() {
	s.wg.Wait()
}
