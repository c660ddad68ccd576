package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"homeworks/internal/activity"
	"homeworks/internal/config"
	"homeworks/internal/domain"
	"homeworks/internal/engine/access"
	"homeworks/internal/metrics"
	"homeworks/internal/notify"
	"homeworks/internal/repo"
)

// Notifier receives events after the transaction that produced them commits.
type Notifier interface {
	Enqueue(evt notify.Event) bool
}

type Engine struct {
	DB       *sql.DB
	Repo     repo.Repo
	Activity activity.Writer
	Access   access.Resolver
	Notifier Notifier
	Metrics  *metrics.Metrics
	Logger   *logrus.Logger
	Config   *config.Config
	Now      func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	r := repo.Repo{DB: db}
	return Engine{
		DB:       db,
		Repo:     r,
		Activity: activity.Writer{Repo: r},
		Access:   access.Resolver{Repo: r},
		Logger:   logrus.StandardLogger(),
		Config:   cfg,
		Now:      time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) stamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

func (e Engine) logger() *logrus.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return logrus.StandardLogger()
}

func (e Engine) activityWriter() activity.Writer {
	w := e.Activity
	if w.Repo.DB == nil {
		w.Repo = e.Repo
	}
	if w.Now == nil {
		w.Now = e.now
	}
	return w
}

func newID() string {
	return uuid.NewString()
}

type transition struct {
	entity, from, to string
}

// txn is one engine transaction plus the side effects to release on commit.
type txn struct {
	*sql.Tx
	events      []notify.Event
	transitions []transition
}

func (t *txn) notify(evt notify.Event) {
	t.events = append(t.events, evt)
}

func (t *txn) transitioned(entity string, from, to any) {
	t.transitions = append(t.transitions, transition{entity: entity, from: fmt.Sprint(from), to: fmt.Sprint(to)})
}

// inTx runs fn in a single BEGIN IMMEDIATE transaction. Nothing fn queued is
// published unless the commit succeeds.
func (e Engine) inTx(ctx context.Context, op string, fn func(t *txn) error) error {
	start := time.Now()
	defer e.Metrics.ObserveSince(op, start)

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return e.opErr(op, err)
	}
	defer tx.Rollback()
	t := &txn{Tx: tx}
	if err := fn(t); err != nil {
		return e.opErr(op, err)
	}
	if err := tx.Commit(); err != nil {
		return e.opErr(op, err)
	}
	for _, tr := range t.transitions {
		e.Metrics.RecordTransition(tr.entity, tr.from, tr.to)
		e.logger().WithFields(logrus.Fields{
			"op":     op,
			"entity": tr.entity,
			"from":   tr.from,
			"to":     tr.to,
		}).Debug("transition committed")
	}
	for _, evt := range t.events {
		e.publish(evt)
	}
	return nil
}

// read runs fn against the database outside any transaction.
func (e Engine) read(ctx context.Context, op string, fn func(q repo.Querier) error) error {
	start := time.Now()
	defer e.Metrics.ObserveSince(op, start)
	if err := fn(e.DB); err != nil {
		return e.opErr(op, err)
	}
	return nil
}

func (e Engine) publish(evt notify.Event) {
	if e.Notifier == nil {
		return
	}
	if evt.TS == "" {
		evt.TS = e.stamp()
	}
	e.Notifier.Enqueue(evt)
}

// opErr normalizes errors leaving the engine into domain kinds.
func (e Engine) opErr(op string, err error) error {
	switch {
	case repo.IsBusy(err):
		e.Metrics.RecordConflict(op)
		return domain.Conflict("%s: database busy, concurrent update in progress", op)
	case errors.Is(err, domain.ErrConflict):
		e.Metrics.RecordConflict(op)
		return err
	case domain.KindOf(err) != nil:
		return err
	case errors.Is(err, repo.ErrConflict):
		e.Metrics.RecordConflict(op)
		return domain.Conflict("%s: concurrent update", op)
	case errors.Is(err, repo.ErrNotFound):
		return domain.NotFound("%s: not found", op)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// lost maps a failed compare-and-swap to a Conflict naming the entity.
func lost(err error, format string, args ...any) error {
	if errors.Is(err, repo.ErrConflict) {
		return domain.Conflict(format+" was modified concurrently", args...)
	}
	return err
}

// missing maps repo.ErrNotFound to a NotFound naming the entity.
func missing(err error, format string, args ...any) error {
	if errors.Is(err, repo.ErrNotFound) {
		return domain.NotFound(format+" not found", args...)
	}
	return err
}

func (e Engine) transitionProject(ctx context.Context, t *txn, p *domain.Project, to domain.ProjectStatus, userID string, designerID *string, extra activity.Detail) error {
	if !domain.CanTransitionProject(p.Status, to) {
		return domain.InvalidState("project %s cannot move from %s to %s", p.ID, p.Status, to)
	}
	now := e.stamp()
	if err := e.Repo.TransitionProject(ctx, t, p.ID, p.Status, to, designerID, now); err != nil {
		return lost(err, "project %s", p.ID)
	}
	from := p.Status
	if err := e.activityWriter().StatusChanged(ctx, t, p.ID, userID, "project", p.ID, from, to, extra); err != nil {
		return err
	}
	t.transitioned("project", from, to)
	p.Status = to
	p.UpdatedAt = now
	if designerID != nil {
		p.DesignerID = designerID
	}
	return nil
}

func (e Engine) transitionRequest(ctx context.Context, t *txn, rq *domain.Request, to domain.RequestStatus, userID string, extra activity.Detail) error {
	if !domain.CanTransitionRequest(rq.Status, to) {
		return domain.InvalidState("request %s cannot move from %s to %s", rq.ID, rq.Status, to)
	}
	now := e.stamp()
	if err := e.Repo.TransitionRequest(ctx, t, rq.ID, rq.Status, to, now); err != nil {
		return lost(err, "request %s", rq.ID)
	}
	from := rq.Status
	if err := e.activityWriter().StatusChanged(ctx, t, rq.ProjectID, userID, "request", rq.ID, from, to, extra); err != nil {
		return err
	}
	t.transitioned("request", from, to)
	rq.Status = to
	rq.UpdatedAt = now
	return nil
}

func (e Engine) transitionProposal(ctx context.Context, t *txn, projectID string, p *domain.Proposal, to domain.ProposalStatus, userID string, extra activity.Detail) error {
	if !domain.CanTransitionProposal(p.Status, to) {
		return domain.InvalidState("proposal %s cannot move from %s to %s", p.ID, p.Status, to)
	}
	now := e.stamp()
	if err := e.Repo.TransitionProposal(ctx, t, p.ID, p.Status, to, now); err != nil {
		return lost(err, "proposal %s", p.ID)
	}
	from := p.Status
	if err := e.activityWriter().StatusChanged(ctx, t, projectID, userID, "proposal", p.ID, from, to, extra); err != nil {
		return err
	}
	t.transitioned("proposal", from, to)
	p.Status = to
	p.UpdatedAt = now
	return nil
}

func (e Engine) appendActivity(ctx context.Context, t *txn, projectID, userID, action string, detail activity.Detail) error {
	_, err := e.activityWriter().Append(ctx, t, projectID, userID, action, detail)
	return err
}

// designerUser returns the user behind a designer profile for notification
// routing. Lookup failures only cost the routing hint.
func (e Engine) designerUser(ctx context.Context, q repo.Querier, designerID string) string {
	d, err := e.Repo.GetDesigner(ctx, q, designerID)
	if err != nil {
		e.logger().WithError(err).WithField("designer_id", designerID).Warn("designer lookup for notification failed")
		return ""
	}
	return d.UserID
}
