package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"homeworks/internal/config"
	"homeworks/internal/db"
	"homeworks/internal/domain"
	"homeworks/internal/engine"
	"homeworks/internal/metrics"
	"homeworks/internal/migrate"
	"homeworks/internal/notify"
)

const (
	owner    = "u-owner"
	stranger = "u-stranger"
)

type recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recorder) Enqueue(evt notify.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return true
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type testEnv struct {
	Engine    engine.Engine
	Ctx       context.Context
	Notified  *recorder
	Designers map[string]domain.Designer
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	return newTestEnvWithConfig(t, config.Default())
}

func newTestEnvWithConfig(t *testing.T, cfg *config.Config) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	ctx := context.Background()
	if err := migrate.Migrate(ctx, conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, cfg)
	eng.Now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	logger, _ := test.NewNullLogger()
	eng.Logger = logger
	eng.Metrics = metrics.New()
	rec := &recorder{}
	eng.Notifier = rec

	if _, err := eng.RegisterHomeowner(ctx, owner, "Hana"); err != nil {
		t.Fatalf("register owner: %v", err)
	}
	if _, err := eng.RegisterHomeowner(ctx, "u-other", "Omar"); err != nil {
		t.Fatalf("register other owner: %v", err)
	}
	designers := map[string]domain.Designer{}
	for _, name := range []string{"d1", "d2", "d3", "unverified"} {
		d, err := eng.RegisterDesigner(ctx, "u-"+name, name, "")
		if err != nil {
			t.Fatalf("register designer %s: %v", name, err)
		}
		if name != "unverified" {
			if d, err = eng.VerifyDesigner(ctx, d.ID, true); err != nil {
				t.Fatalf("verify %s: %v", name, err)
			}
		}
		designers[name] = d
	}
	rec.events = nil
	return testEnv{Engine: eng, Ctx: ctx, Notified: rec, Designers: designers}
}

func (env testEnv) newProject(t *testing.T) domain.Project {
	t.Helper()
	p, err := env.Engine.CreateProject(env.Ctx, owner, engine.ProjectInput{
		Title:     "Kitchen remodel",
		ScopeType: domain.ScopePartial,
		BudgetMin: 10000,
		BudgetMax: 25000,
	})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

func (env testEnv) send(t *testing.T, projectID, designer string) domain.Request {
	t.Helper()
	rq, err := env.Engine.SendRequest(env.Ctx, owner, projectID, env.Designers[designer].ID, "hello")
	if err != nil {
		t.Fatalf("send request to %s: %v", designer, err)
	}
	return rq
}

func (env testEnv) propose(t *testing.T, rq domain.Request, designer string) domain.Proposal {
	t.Helper()
	p, err := env.Engine.SubmitProposal(env.Ctx, "u-"+designer, rq.ID, engine.ProposalTerms{
		Scope:         "cabinets and counters",
		TimelineWeeks: 8,
		CostEstimate:  18000,
		CostBreakdown: []domain.CostItem{{Label: "labor", Amount: 10000}, {Label: "materials", Amount: 8000}},
	})
	if err != nil {
		t.Fatalf("submit proposal as %s: %v", designer, err)
	}
	return p
}

// projectIn drives a fresh project to the requested status.
func (env testEnv) projectIn(t *testing.T, status domain.ProjectStatus) domain.Project {
	t.Helper()
	p := env.newProject(t)
	if status == domain.ProjectDraft {
		return p
	}
	if status == domain.ProjectCancelled {
		p, err := env.Engine.CancelProject(env.Ctx, p.ID, owner, "changed plans")
		if err != nil {
			t.Fatalf("cancel: %v", err)
		}
		return p
	}
	rq := env.send(t, p.ID, "d1")
	if status == domain.ProjectSeekingDesigner {
		p, _ = env.Engine.GetProject(env.Ctx, p.ID, owner)
		return p
	}
	prop := env.propose(t, rq, "d1")
	res, err := env.Engine.AcceptProposal(env.Ctx, owner, prop.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if status == domain.ProjectInProgress {
		return res.Project
	}
	p, err = env.Engine.CompleteProject(env.Ctx, p.ID, owner)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	return p
}

func expectKind(t *testing.T, err, kind error) {
	t.Helper()
	if !errors.Is(err, kind) {
		t.Fatalf("expected %v, got %v", kind, err)
	}
}

func TestCreateProjectStartsInDraft(t *testing.T) {
	env := newTestEnv(t)
	p := env.newProject(t)
	if p.Status != domain.ProjectDraft || p.DesignerID != nil {
		t.Fatalf("unexpected project %+v", p)
	}
	_, err := env.Engine.CreateProject(env.Ctx, stranger, engine.ProjectInput{Title: "x", ScopeType: domain.ScopeFullHome})
	expectKind(t, err, domain.ErrForbidden)
	_, err = env.Engine.CreateProject(env.Ctx, owner, engine.ProjectInput{Title: "x", ScopeType: "garage"})
	expectKind(t, err, domain.ErrValidation)
}

func TestCreateProjectPropertyMustBelongToOwner(t *testing.T) {
	env := newTestEnv(t)
	mine, err := env.Engine.AddProperty(env.Ctx, owner, "1 Main St")
	if err != nil {
		t.Fatalf("add property: %v", err)
	}
	theirs, err := env.Engine.AddProperty(env.Ctx, "u-other", "2 Side St")
	if err != nil {
		t.Fatalf("add other property: %v", err)
	}
	p, err := env.Engine.CreateProject(env.Ctx, owner, engine.ProjectInput{Title: "Deck", ScopeType: domain.ScopePartial, PropertyID: mine.ID})
	if err != nil {
		t.Fatalf("create with own property: %v", err)
	}
	if p.PropertyID == nil || *p.PropertyID != mine.ID {
		t.Fatalf("property not stored: %+v", p)
	}
	for _, id := range []string{theirs.ID, "missing"} {
		_, err = env.Engine.CreateProject(env.Ctx, owner, engine.ProjectInput{Title: "Deck", ScopeType: domain.ScopePartial, PropertyID: id})
		expectKind(t, err, domain.ErrNotFound)
	}
}

func TestSendRequestTwiceConflicts(t *testing.T) {
	env := newTestEnv(t)
	p := env.newProject(t)
	env.send(t, p.ID, "d1")
	_, err := env.Engine.SendRequest(env.Ctx, owner, p.ID, env.Designers["d1"].ID, "again")
	expectKind(t, err, domain.ErrConflict)

	got, err := env.Engine.GetProject(env.Ctx, p.ID, owner)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if got.Status != domain.ProjectSeekingDesigner {
		t.Fatalf("project status = %s, want seeking_designer", got.Status)
	}
}

func TestSendRequestPreconditions(t *testing.T) {
	env := newTestEnv(t)
	p := env.newProject(t)

	_, err := env.Engine.SendRequest(env.Ctx, "u-other", p.ID, env.Designers["d1"].ID, "")
	expectKind(t, err, domain.ErrForbidden)
	_, err = env.Engine.SendRequest(env.Ctx, owner, p.ID, "no-such-designer", "")
	expectKind(t, err, domain.ErrNotFound)
	_, err = env.Engine.SendRequest(env.Ctx, owner, p.ID, env.Designers["unverified"].ID, "")
	expectKind(t, err, domain.ErrNotFound)
	_, err = env.Engine.SendRequest(env.Ctx, owner, "no-such-project", env.Designers["d1"].ID, "")
	expectKind(t, err, domain.ErrNotFound)

	got, _ := env.Engine.GetProject(env.Ctx, p.ID, owner)
	if got.Status != domain.ProjectDraft {
		t.Fatalf("failed sends must not move the project, got %s", got.Status)
	}

	for _, status := range []domain.ProjectStatus{domain.ProjectInProgress, domain.ProjectCompleted, domain.ProjectCancelled} {
		q := env.projectIn(t, status)
		_, err := env.Engine.SendRequest(env.Ctx, owner, q.ID, env.Designers["d2"].ID, "")
		expectKind(t, err, domain.ErrValidation)
	}
}

func TestAcceptProposalCascade(t *testing.T) {
	env := newTestEnv(t)
	p := env.newProject(t)
	r1 := env.send(t, p.ID, "d1")
	r2 := env.send(t, p.ID, "d2")
	r3 := env.send(t, p.ID, "d3")
	p1 := env.propose(t, r1, "d1")
	p2 := env.propose(t, r2, "d2")

	res, err := env.Engine.AcceptProposal(env.Ctx, owner, p1.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if res.Proposal.Status != domain.ProposalAccepted || res.Request.Status != domain.RequestAccepted {
		t.Fatalf("winner not accepted: %+v", res)
	}
	if len(res.RejectedProposals) != 1 || res.RejectedProposals[0] != p2.ID {
		t.Fatalf("rejected proposals = %v", res.RejectedProposals)
	}

	requests, err := env.Engine.ListProjectRequests(env.Ctx, owner, p.ID)
	if err != nil {
		t.Fatalf("list requests: %v", err)
	}
	want := map[string]domain.RequestStatus{
		r1.ID: domain.RequestAccepted,
		r2.ID: domain.RequestRejected,
		r3.ID: domain.RequestPending,
	}
	for _, rq := range requests {
		if rq.Status != want[rq.ID] {
			t.Fatalf("request %s status = %s, want %s", rq.ID, rq.Status, want[rq.ID])
		}
	}
	sibling, err := env.Engine.GetProposal(env.Ctx, owner, p2.ID)
	if err != nil {
		t.Fatalf("get sibling: %v", err)
	}
	if sibling.Status != domain.ProposalRejected {
		t.Fatalf("sibling proposal status = %s", sibling.Status)
	}
	project, _ := env.Engine.GetProject(env.Ctx, p.ID, owner)
	if project.Status != domain.ProjectInProgress || project.DesignerID == nil || *project.DesignerID != env.Designers["d1"].ID {
		t.Fatalf("project not assigned to winner: %+v", project)
	}

	types := env.Notified.types()
	for _, wantType := range []string{notify.TypeProposalAccepted, notify.TypeDesignerAssigned, notify.TypeProposalRejected} {
		found := false
		for _, typ := range types {
			if typ == wantType {
				found = true
			}
		}
		if !found {
			t.Fatalf("missing %s notification in %v", wantType, types)
		}
	}

	page, err := env.Engine.GetProjectActivity(env.Ctx, owner, p.ID, engine.ActivityPage{Action: "proposal_auto_rejected"})
	if err != nil {
		t.Fatalf("activity: %v", err)
	}
	if len(page.Entries) != 1 || page.Entries[0].Detail["proposal_id"] != p2.ID {
		t.Fatalf("expected one auto-rejection entry, got %+v", page.Entries)
	}
}

func TestAcceptProposalAutoRejectPending(t *testing.T) {
	cfg := config.Default()
	cfg.Negotiation.AutoRejectPending = true
	env := newTestEnvWithConfig(t, cfg)
	p := env.newProject(t)
	r1 := env.send(t, p.ID, "d1")
	r3 := env.send(t, p.ID, "d3")
	p1 := env.propose(t, r1, "d1")

	res, err := env.Engine.AcceptProposal(env.Ctx, owner, p1.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if len(res.RejectedRequests) != 1 || res.RejectedRequests[0] != r3.ID {
		t.Fatalf("pending sibling not rejected: %v", res.RejectedRequests)
	}
}

func TestConcurrentAcceptOnlyOneWins(t *testing.T) {
	env := newTestEnv(t)
	p := env.newProject(t)
	proposals := []domain.Proposal{
		env.propose(t, env.send(t, p.ID, "d1"), "d1"),
		env.propose(t, env.send(t, p.ID, "d2"), "d2"),
	}

	var wg sync.WaitGroup
	results := make([]engine.AcceptResult, 2)
	errs := make([]error, 2)
	start := make(chan struct{})
	for i := range proposals {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = env.Engine.AcceptProposal(env.Ctx, owner, proposals[i].ID)
		}(i)
	}
	close(start)
	wg.Wait()

	winner := -1
	for i, err := range errs {
		if err == nil {
			if winner != -1 {
				t.Fatalf("both accepts succeeded")
			}
			winner = i
			continue
		}
		if !errors.Is(err, domain.ErrConflict) && !errors.Is(err, domain.ErrInvalidState) {
			t.Fatalf("loser error = %v, want conflict or invalid state", err)
		}
	}
	if winner == -1 {
		t.Fatalf("no accept succeeded: %v", errs)
	}
	project, _ := env.Engine.GetProject(env.Ctx, p.ID, owner)
	if project.DesignerID == nil || *project.DesignerID != proposals[winner].DesignerID {
		t.Fatalf("project designer does not match winner")
	}
	accepted := 0
	for _, prop := range proposals {
		got, err := env.Engine.GetProposal(env.Ctx, owner, prop.ID)
		if err != nil {
			t.Fatalf("get proposal: %v", err)
		}
		if got.Status == domain.ProposalAccepted {
			accepted++
		}
	}
	if accepted != 1 {
		t.Fatalf("accepted proposals = %d, want 1", accepted)
	}
}

func TestConcurrentSendRequestOnlyOneWins(t *testing.T) {
	env := newTestEnv(t)
	p := env.newProject(t)
	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.Engine.SendRequest(env.Ctx, owner, p.ID, env.Designers["d1"].ID, "")
		}(i)
	}
	wg.Wait()
	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		expectKind(t, err, domain.ErrConflict)
	}
	if ok != 1 {
		t.Fatalf("successful sends = %d, want 1", ok)
	}
}

func TestAcceptRequiresSubmittedProposalAndOwner(t *testing.T) {
	env := newTestEnv(t)
	p := env.newProject(t)
	prop := env.propose(t, env.send(t, p.ID, "d1"), "d1")

	_, err := env.Engine.AcceptProposal(env.Ctx, "u-d1", prop.ID)
	expectKind(t, err, domain.ErrForbidden)
	_, err = env.Engine.AcceptProposal(env.Ctx, owner, "missing")
	expectKind(t, err, domain.ErrNotFound)

	if _, err := env.Engine.AcceptProposal(env.Ctx, owner, prop.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	_, err = env.Engine.AcceptProposal(env.Ctx, owner, prop.ID)
	expectKind(t, err, domain.ErrInvalidState)
}

func TestRejectProposalDoesNotCascade(t *testing.T) {
	env := newTestEnv(t)
	p := env.newProject(t)
	p1 := env.propose(t, env.send(t, p.ID, "d1"), "d1")
	p2 := env.propose(t, env.send(t, p.ID, "d2"), "d2")

	got, err := env.Engine.RejectProposal(env.Ctx, owner, p1.ID, "over budget")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got.Status != domain.ProposalRejected {
		t.Fatalf("status = %s", got.Status)
	}
	other, _ := env.Engine.GetProposal(env.Ctx, owner, p2.ID)
	if other.Status != domain.ProposalSubmitted {
		t.Fatalf("sibling touched: %s", other.Status)
	}
	project, _ := env.Engine.GetProject(env.Ctx, p.ID, owner)
	if project.Status != domain.ProjectSeekingDesigner {
		t.Fatalf("project moved on reject: %s", project.Status)
	}
	_, err = env.Engine.RejectProposal(env.Ctx, owner, p1.ID, "")
	expectKind(t, err, domain.ErrInvalidState)

	page, _ := env.Engine.GetProjectActivity(env.Ctx, owner, p.ID, engine.ActivityPage{Action: "proposal_rejected"})
	if len(page.Entries) != 1 || page.Entries[0].Detail["reason"] != "over budget" {
		t.Fatalf("reason not logged: %+v", page.Entries)
	}
}

func TestDeclineRequest(t *testing.T) {
	env := newTestEnv(t)
	p := env.newProject(t)
	rq := env.send(t, p.ID, "d1")

	_, err := env.Engine.DeclineRequest(env.Ctx, "u-d2", rq.ID)
	expectKind(t, err, domain.ErrForbidden)
	got, err := env.Engine.DeclineRequest(env.Ctx, "u-d1", rq.ID)
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if got.Status != domain.RequestRejected {
		t.Fatalf("status = %s", got.Status)
	}
	_, err = env.Engine.DeclineRequest(env.Ctx, "u-d1", rq.ID)
	expectKind(t, err, domain.ErrInvalidState)

	proposed := env.send(t, p.ID, "d2")
	env.propose(t, proposed, "d2")
	_, err = env.Engine.DeclineRequest(env.Ctx, "u-d2", proposed.ID)
	expectKind(t, err, domain.ErrInvalidState)
}

func TestSubmitProposalRules(t *testing.T) {
	env := newTestEnv(t)
	p := env.newProject(t)
	rq := env.send(t, p.ID, "d1")

	bad := []engine.ProposalTerms{
		{TimelineWeeks: 4, CostEstimate: 100},
		{Scope: "x", CostEstimate: 100},
		{Scope: "x", TimelineWeeks: 4},
		{Scope: "x", TimelineWeeks: 4, CostEstimate: 100, CostBreakdown: []domain.CostItem{{Amount: 5}}},
	}
	for i, terms := range bad {
		_, err := env.Engine.SubmitProposal(env.Ctx, "u-d1", rq.ID, terms)
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
	_, err := env.Engine.SubmitProposal(env.Ctx, "u-d2", rq.ID, engine.ProposalTerms{Scope: "x", TimelineWeeks: 1, CostEstimate: 1})
	expectKind(t, err, domain.ErrForbidden)

	env.propose(t, rq, "d1")
	_, err = env.Engine.SubmitProposal(env.Ctx, "u-d1", rq.ID, engine.ProposalTerms{Scope: "x", TimelineWeeks: 1, CostEstimate: 1})
	expectKind(t, err, domain.ErrInvalidState)
}

func TestUpdateProjectOnlyInDraft(t *testing.T) {
	env := newTestEnv(t)
	title := "New title"
	draft := env.newProject(t)
	got, err := env.Engine.UpdateProject(env.Ctx, draft.ID, owner, engine.ProjectPatch{Title: &title})
	if err != nil {
		t.Fatalf("update draft: %v", err)
	}
	if got.Title != title {
		t.Fatalf("title = %q", got.Title)
	}
	_, err = env.Engine.UpdateProject(env.Ctx, draft.ID, "u-other", engine.ProjectPatch{Title: &title})
	expectKind(t, err, domain.ErrForbidden)

	for _, status := range []domain.ProjectStatus{domain.ProjectSeekingDesigner, domain.ProjectInProgress, domain.ProjectCompleted, domain.ProjectCancelled} {
		p := env.projectIn(t, status)
		if p.Status != status {
			t.Fatalf("setup: project in %s, want %s", p.Status, status)
		}
		_, err := env.Engine.UpdateProject(env.Ctx, p.ID, owner, engine.ProjectPatch{Title: &title})
		expectKind(t, err, domain.ErrInvalidState)
		if err.Error() != "can only update in draft" {
			t.Fatalf("message = %q", err.Error())
		}
	}
}

func TestCompleteAndCancelMatrix(t *testing.T) {
	env := newTestEnv(t)
	for _, status := range domain.ProjectStatuses {
		p := env.projectIn(t, status)
		_, err := env.Engine.CompleteProject(env.Ctx, p.ID, owner)
		if status == domain.ProjectInProgress {
			if err != nil {
				t.Fatalf("complete from in_progress: %v", err)
			}
		} else {
			expectKind(t, err, domain.ErrInvalidState)
		}

		q := env.projectIn(t, status)
		_, err = env.Engine.CancelProject(env.Ctx, q.ID, owner, "budget")
		if status.Terminal() {
			expectKind(t, err, domain.ErrInvalidState)
		} else if err != nil {
			t.Fatalf("cancel from %s: %v", status, err)
		}
	}

	p := env.projectIn(t, domain.ProjectInProgress)
	_, err := env.Engine.CompleteProject(env.Ctx, p.ID, "u-d1")
	expectKind(t, err, domain.ErrForbidden)
	_, err = env.Engine.CancelProject(env.Ctx, p.ID, "u-d1", "")
	expectKind(t, err, domain.ErrForbidden)
}

func TestActivityRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	p := env.projectIn(t, domain.ProjectInProgress)
	if _, err := env.Engine.CompleteProject(env.Ctx, p.ID, owner); err != nil {
		t.Fatalf("complete: %v", err)
	}
	page, err := env.Engine.GetProjectActivity(env.Ctx, owner, p.ID, engine.ActivityPage{Limit: 500})
	if err != nil {
		t.Fatalf("activity: %v", err)
	}
	if len(page.Entries) == 0 {
		t.Fatalf("no activity")
	}
	for i := 1; i < len(page.Entries); i++ {
		if page.Entries[i-1].ID <= page.Entries[i].ID {
			t.Fatalf("entries not newest first at %d", i)
		}
	}
	if page.Entries[0].Action != "project_completed" || page.Entries[0].Detail["to"] != string(domain.ProjectCompleted) {
		t.Fatalf("latest entry = %+v", page.Entries[0])
	}
	projectChanges := map[string]bool{}
	for _, e := range page.Entries {
		if e.Action == "status_changed" && e.Detail["entity"] == "project" {
			projectChanges[e.Detail["from"].(string)+">"+e.Detail["to"].(string)] = true
		}
		if e.UserID == nil || *e.UserID != owner && *e.UserID != "u-d1" {
			t.Fatalf("entry %d has unexpected user %v", e.ID, e.UserID)
		}
	}
	for _, edge := range []string{"draft>seeking_designer", "seeking_designer>in_progress", "in_progress>completed"} {
		if !projectChanges[edge] {
			t.Fatalf("missing status_changed %s in %v", edge, projectChanges)
		}
	}

	_, err = env.Engine.GetProjectActivity(env.Ctx, stranger, p.ID, engine.ActivityPage{})
	expectKind(t, err, domain.ErrForbidden)
	if _, err := env.Engine.GetProjectActivity(env.Ctx, "u-d1", p.ID, engine.ActivityPage{}); err != nil {
		t.Fatalf("assigned designer reads activity: %v", err)
	}
}

func TestActivityPagination(t *testing.T) {
	env := newTestEnv(t)
	p := env.newProject(t)
	env.send(t, p.ID, "d1")
	env.send(t, p.ID, "d2")

	first, err := env.Engine.GetProjectActivity(env.Ctx, owner, p.ID, engine.ActivityPage{Limit: 2})
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if len(first.Entries) != 2 || first.Next == 0 {
		t.Fatalf("page 1 = %+v", first)
	}
	second, err := env.Engine.GetProjectActivity(env.Ctx, owner, p.ID, engine.ActivityPage{Limit: 2, Before: first.Next})
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if len(second.Entries) == 0 || second.Entries[0].ID >= first.Entries[1].ID {
		t.Fatalf("page 2 overlaps page 1: %+v", second.Entries)
	}
}

func TestActivityLimitsFallBackWhenUnset(t *testing.T) {
	env := newTestEnvWithConfig(t, &config.Config{})
	p := env.newProject(t)

	page, err := env.Engine.GetProjectActivity(env.Ctx, owner, p.ID, engine.ActivityPage{})
	if err != nil {
		t.Fatalf("activity: %v", err)
	}
	if len(page.Entries) == 0 || page.Next != 0 {
		t.Fatalf("page = %+v", page)
	}
	env.send(t, p.ID, "d1")
	one, err := env.Engine.GetProjectActivity(env.Ctx, owner, p.ID, engine.ActivityPage{Limit: 1})
	if err != nil {
		t.Fatalf("activity limit 1: %v", err)
	}
	if len(one.Entries) != 1 || one.Next != one.Entries[0].ID {
		t.Fatalf("limit 1 page = %+v", one)
	}
}

func TestFailedOperationWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	p := env.newProject(t)
	before, _ := env.Engine.GetProjectActivity(env.Ctx, owner, p.ID, engine.ActivityPage{})
	env.Notified.events = nil

	_, err := env.Engine.SendRequest(env.Ctx, owner, p.ID, env.Designers["unverified"].ID, "")
	expectKind(t, err, domain.ErrNotFound)

	after, _ := env.Engine.GetProjectActivity(env.Ctx, owner, p.ID, engine.ActivityPage{})
	if len(after.Entries) != len(before.Entries) {
		t.Fatalf("activity written by failed op")
	}
	if len(env.Notified.types()) != 0 {
		t.Fatalf("notification sent by failed op: %v", env.Notified.types())
	}
}

func TestGetProjectVisibility(t *testing.T) {
	env := newTestEnv(t)
	p := env.newProject(t)
	env.send(t, p.ID, "d1")

	if _, err := env.Engine.GetProject(env.Ctx, p.ID, "u-d1"); err != nil {
		t.Fatalf("solicited designer: %v", err)
	}
	_, err := env.Engine.GetProject(env.Ctx, p.ID, "u-d2")
	expectKind(t, err, domain.ErrForbidden)
	_, err = env.Engine.GetProject(env.Ctx, p.ID, stranger)
	expectKind(t, err, domain.ErrForbidden)

	inbox, err := env.Engine.ListDesignerRequests(env.Ctx, "u-d1", domain.RequestPending)
	if err != nil || len(inbox) != 1 {
		t.Fatalf("inbox = %v, %v", inbox, err)
	}
	projects, err := env.Engine.ListOwnerProjects(env.Ctx, owner, "")
	if err != nil || len(projects) != 1 {
		t.Fatalf("owner projects = %v, %v", projects, err)
	}
}

func TestLedgerRules(t *testing.T) {
	env := newTestEnv(t)
	draft := env.newProject(t)
	_, err := env.Engine.CreateTask(env.Ctx, owner, draft.ID, engine.TaskInput{Title: "Measure"})
	expectKind(t, err, domain.ErrInvalidState)

	p := env.projectIn(t, domain.ProjectInProgress)
	task, err := env.Engine.CreateTask(env.Ctx, owner, p.ID, engine.TaskInput{Title: "Measure", DueDate: "2026-02-01"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	inProgress := domain.TaskInProgress
	task, err = env.Engine.UpdateTask(env.Ctx, "u-d1", task.ID, engine.TaskPatch{Status: &inProgress})
	if err != nil || task.Status != domain.TaskInProgress {
		t.Fatalf("designer update task: %v", err)
	}
	_, err = env.Engine.UpdateTask(env.Ctx, "u-d2", task.ID, engine.TaskPatch{Status: &inProgress})
	expectKind(t, err, domain.ErrForbidden)
	_, err = env.Engine.CreateTask(env.Ctx, owner, p.ID, engine.TaskInput{Title: "x", DueDate: "tomorrow"})
	expectKind(t, err, domain.ErrValidation)

	m, err := env.Engine.CreateMilestone(env.Ctx, "u-d1", p.ID, engine.MilestoneInput{Title: "Demo", Amount: 5000})
	if err != nil {
		t.Fatalf("create milestone: %v", err)
	}
	_, err = env.Engine.SetMilestonePayment(env.Ctx, "u-d1", m.ID, domain.PaymentPaid)
	expectKind(t, err, domain.ErrForbidden)
	m, err = env.Engine.SetMilestonePayment(env.Ctx, owner, m.ID, domain.PaymentPaid)
	if err != nil || m.PaymentStatus != domain.PaymentPaid {
		t.Fatalf("owner pays milestone: %v", err)
	}
	_, err = env.Engine.SetMilestonePayment(env.Ctx, owner, m.ID, domain.PaymentPaid)
	expectKind(t, err, domain.ErrInvalidState)

	actual := int64(900)
	c, err := env.Engine.CreateCostEstimate(env.Ctx, owner, p.ID, engine.CostEstimateInput{Category: "tile", EstimatedAmount: 1000})
	if err != nil {
		t.Fatalf("create cost: %v", err)
	}
	c, err = env.Engine.UpdateCostEstimate(env.Ctx, "u-d1", c.ID, engine.CostEstimatePatch{ActualAmount: &actual})
	if err != nil || c.ActualAmount == nil || *c.ActualAmount != 900 {
		t.Fatalf("update cost: %+v %v", c, err)
	}

	if err := env.Engine.DeleteTask(env.Ctx, "u-d1", task.ID); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	tasks, err := env.Engine.ListTasks(env.Ctx, owner, p.ID, "")
	if err != nil || len(tasks) != 0 {
		t.Fatalf("tasks after delete = %v, %v", tasks, err)
	}
	milestones, _ := env.Engine.ListMilestones(env.Ctx, "u-d1", p.ID)
	costs, _ := env.Engine.ListCostEstimates(env.Ctx, owner, p.ID)
	if len(milestones) != 1 || len(costs) != 1 {
		t.Fatalf("milestones=%d costs=%d", len(milestones), len(costs))
	}
	_, err = env.Engine.ListTasks(env.Ctx, stranger, p.ID, "")
	expectKind(t, err, domain.ErrForbidden)

	if _, err := env.Engine.CompleteProject(env.Ctx, p.ID, owner); err != nil {
		t.Fatalf("complete: %v", err)
	}
	err = env.Engine.DeleteMilestone(env.Ctx, owner, m.ID)
	expectKind(t, err, domain.ErrInvalidState)
	if _, err := env.Engine.ListMilestones(env.Ctx, owner, p.ID); err != nil {
		t.Fatalf("reads stay open after completion: %v", err)
	}
}

func TestVerifyDesignerRequestsReindex(t *testing.T) {
	env := newTestEnv(t)
	d := env.Designers["unverified"]
	got, err := env.Engine.VerifyDesigner(env.Ctx, d.ID, true)
	if err != nil || !got.Verified {
		t.Fatalf("verify: %v", err)
	}
	types := env.Notified.types()
	if len(types) != 1 || types[0] != notify.TypeSearchReindex {
		t.Fatalf("notifications = %v", types)
	}
	_, err = env.Engine.VerifyDesigner(env.Ctx, "missing", true)
	expectKind(t, err, domain.ErrNotFound)

	c, err := env.Engine.RegisterContractor(env.Ctx, "u-builder", "Bo", "carpentry")
	if err != nil {
		t.Fatalf("register contractor: %v", err)
	}
	if _, err := env.Engine.VerifyContractor(env.Ctx, c.ID, true); err != nil {
		t.Fatalf("verify contractor: %v", err)
	}
	_, err = env.Engine.RegisterHomeowner(env.Ctx, owner, "Again")
	expectKind(t, err, domain.ErrConflict)
}

func TestAPIKeys(t *testing.T) {
	env := newTestEnv(t)
	key, raw, err := env.Engine.CreateAPIKey(env.Ctx, owner, "laptop")
	if err != nil {
		t.Fatalf("create key: %v", err)
	}
	user, err := env.Engine.AuthenticateAPIKey(env.Ctx, raw)
	if err != nil || user != owner {
		t.Fatalf("authenticate = %q, %v", user, err)
	}
	if err := env.Engine.RevokeAPIKey(env.Ctx, "u-other", key.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("revoke by other user: %v", err)
	}
	if err := env.Engine.RevokeAPIKey(env.Ctx, owner, key.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	_, err = env.Engine.AuthenticateAPIKey(env.Ctx, raw)
	expectKind(t, err, domain.ErrNotFound)
}
