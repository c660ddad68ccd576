package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"homeworks/internal/app"
	"homeworks/internal/domain"
	"homeworks/internal/engine"
)

func projectCmd() *cobra.Command {
	prj := &cobra.Command{Use: "project", Short: "Manage renovation projects"}
	prj.AddCommand(projectCreateCmd())
	prj.AddCommand(projectListCmd())
	prj.AddCommand(projectShowCmd())
	prj.AddCommand(projectUpdateCmd())
	prj.AddCommand(projectSeekCmd())
	prj.AddCommand(projectCompleteCmd())
	prj.AddCommand(projectCancelCmd())
	return prj
}

func printProjects(items []domain.Project) error {
	rows := make([]table.Row, 0, len(items))
	for _, p := range items {
		rows = append(rows, table.Row{p.ID, p.Title, p.Status, p.ScopeType, fmt.Sprintf("%d-%d", p.BudgetMin, p.BudgetMax), deref(p.DesignerID)})
	}
	return printTable(items, table.Row{"ID", "Title", "Status", "Scope", "Budget", "Designer"}, rows)
}

func projectCreateCmd() *cobra.Command {
	var in engine.ProjectInput
	var scope string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a draft project",
		RunE: func(cmd *cobra.Command, args []string) error {
			in.ScopeType = domain.ScopeType(scope)
			return asUser(cmd, func(ctx context.Context, a *app.Context, userID string) error {
				p, err := a.Engine.CreateProject(ctx, userID, in)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&in.Title, "title", "", "project title")
	cmd.Flags().StringVar(&scope, "scope", string(domain.ScopePartial), "scope type (full_home|partial)")
	cmd.Flags().StringVar(&in.ScopeDetails, "details", "", "scope details")
	cmd.Flags().Int64Var(&in.BudgetMin, "budget-min", 0, "minimum budget")
	cmd.Flags().Int64Var(&in.BudgetMax, "budget-max", 0, "maximum budget")
	cmd.Flags().StringVar(&in.Timeline, "timeline", "", "desired timeline")
	cmd.Flags().StringVar(&in.PropertyID, "property", "", "property id")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func projectListCmd() *cobra.Command {
	var status string
	var asDesigner bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the acting user's projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return asUser(cmd, func(ctx context.Context, a *app.Context, userID string) error {
				var items []domain.Project
				var err error
				if asDesigner {
					items, err = a.Engine.ListDesignerProjects(ctx, userID)
				} else {
					items, err = a.Engine.ListOwnerProjects(ctx, userID, domain.ProjectStatus(status))
				}
				if err != nil {
					return err
				}
				return printProjects(items)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	cmd.Flags().BoolVar(&asDesigner, "designer", false, "list projects assigned to the acting designer")
	return cmd
}

func projectShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return asUser(cmd, func(ctx context.Context, a *app.Context, userID string) error {
				p, err := a.Engine.GetProject(ctx, args[0], userID)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
}

func projectUpdateCmd() *cobra.Command {
	var title, scope, details, timeline, property string
	var budgetMin, budgetMax int64
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a draft project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := engine.ProjectPatch{
				Title:        changedString(cmd, "title", title),
				ScopeDetails: changedString(cmd, "details", details),
				Timeline:     changedString(cmd, "timeline", timeline),
				PropertyID:   changedString(cmd, "property", property),
				BudgetMin:    changedInt64(cmd, "budget-min", budgetMin),
				BudgetMax:    changedInt64(cmd, "budget-max", budgetMax),
			}
			if cmd.Flags().Changed("scope") {
				st := domain.ScopeType(scope)
				patch.ScopeType = &st
			}
			return asUser(cmd, func(ctx context.Context, a *app.Context, userID string) error {
				p, err := a.Engine.UpdateProject(ctx, args[0], userID, patch)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "project title")
	cmd.Flags().StringVar(&scope, "scope", "", "scope type (full_home|partial)")
	cmd.Flags().StringVar(&details, "details", "", "scope details")
	cmd.Flags().StringVar(&timeline, "timeline", "", "desired timeline")
	cmd.Flags().StringVar(&property, "property", "", "property id (empty clears)")
	cmd.Flags().Int64Var(&budgetMin, "budget-min", 0, "minimum budget")
	cmd.Flags().Int64Var(&budgetMax, "budget-max", 0, "maximum budget")
	return cmd
}

func projectSeekCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seek <id>",
		Short: "Open a draft project to designers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return asUser(cmd, func(ctx context.Context, a *app.Context, userID string) error {
				p, err := a.Engine.StartSeekingDesigner(ctx, args[0], userID)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
}

func projectCompleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete <id>",
		Short: "Complete an in-progress project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return asUser(cmd, func(ctx context.Context, a *app.Context, userID string) error {
				p, err := a.Engine.CompleteProject(ctx, args[0], userID)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
}

func projectCancelCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return asUser(cmd, func(ctx context.Context, a *app.Context, userID string) error {
				p, err := a.Engine.CancelProject(ctx, args[0], userID, reason)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "cancellation reason")
	return cmd
}

func requestCmd() *cobra.Command {
	rq := &cobra.Command{Use: "request", Short: "Designer requests"}
	var message string
	send := &cobra.Command{
		Use:   "send <project-id> <designer-id>",
		Short: "Invite a designer to bid on a project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return asUser(cmd, func(ctx context.Context, a *app.Context, userID string) error {
				r, err := a.Engine.SendRequest(ctx, userID, args[0], args[1], message)
				if err != nil {
					return err
				}
				return printJSONOrTable(r)
			})
		},
	}
	send.Flags().StringVar(&message, "message", "", "note to the designer")

	var status, projectID string
	list := &cobra.Command{
		Use:   "list",
		Short: "List a project's requests (--project) or the acting designer's inbox",
		RunE: func(cmd *cobra.Command, args []string) error {
			return asUser(cmd, func(ctx context.Context, a *app.Context, userID string) error {
				var items []domain.Request
				var err error
				if projectID != "" {
					items, err = a.Engine.ListProjectRequests(ctx, userID, projectID)
				} else {
					items, err = a.Engine.ListDesignerRequests(ctx, userID, domain.RequestStatus(status))
				}
				if err != nil {
					return err
				}
				rows := make([]table.Row, 0, len(items))
				for _, r := range items {
					rows = append(rows, table.Row{r.ID, r.ProjectID, r.DesignerID, r.Status, r.CreatedAt})
				}
				return printTable(items, table.Row{"ID", "Project", "Designer", "Status", "Created"}, rows)
			})
		},
	}
	list.Flags().StringVar(&projectID, "project", "", "project id (owner view)")
	list.Flags().StringVar(&status, "status", "", "status filter for the inbox")

	decline := &cobra.Command{
		Use:   "decline <request-id>",
		Short: "Decline a pending request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return asUser(cmd, func(ctx context.Context, a *app.Context, userID string) error {
				r, err := a.Engine.DeclineRequest(ctx, userID, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(r)
			})
		},
	}
	rq.AddCommand(send, list, decline)
	return rq
}

func proposalCmd() *cobra.Command {
	p := &cobra.Command{Use: "proposal", Short: "Designer proposals"}

	var terms engine.ProposalTerms
	var items []string
	submit := &cobra.Command{
		Use:   "submit <request-id>",
		Short: "Answer a request with a proposal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			breakdown, err := parseCostItems(items)
			if err != nil {
				return err
			}
			terms.CostBreakdown = breakdown
			return asUser(cmd, func(ctx context.Context, a *app.Context, userID string) error {
				prop, err := a.Engine.SubmitProposal(ctx, userID, args[0], terms)
				if err != nil {
					return err
				}
				return printJSONOrTable(prop)
			})
		},
	}
	submit.Flags().StringVar(&terms.Scope, "scope", "", "proposed scope")
	submit.Flags().StringVar(&terms.Approach, "approach", "", "design approach")
	submit.Flags().IntVar(&terms.TimelineWeeks, "weeks", 0, "timeline in weeks")
	submit.Flags().Int64Var(&terms.CostEstimate, "cost", 0, "total cost estimate")
	submit.Flags().StringArrayVar(&items, "item", nil, "cost breakdown line as label=amount (repeatable)")

	var projectID string
	list := &cobra.Command{
		Use:   "list",
		Short: "List proposals received by a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			if projectID == "" {
				return fmt.Errorf("--project required")
			}
			return asUser(cmd, func(ctx context.Context, a *app.Context, userID string) error {
				items, err := a.Engine.ListProjectProposals(ctx, userID, projectID)
				if err != nil {
					return err
				}
				rows := make([]table.Row, 0, len(items))
				for _, pr := range items {
					rows = append(rows, table.Row{pr.ID, pr.DesignerID, pr.Status, pr.TimelineWeeks, pr.CostEstimate})
				}
				return printTable(items, table.Row{"ID", "Designer", "Status", "Weeks", "Cost"}, rows)
			})
		},
	}
	list.Flags().StringVar(&projectID, "project", "", "project id")

	show := &cobra.Command{
		Use:   "show <proposal-id>",
		Short: "Show a proposal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return asUser(cmd, func(ctx context.Context, a *app.Context, userID string) error {
				prop, err := a.Engine.GetProposal(ctx, userID, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(prop)
			})
		},
	}

	accept := &cobra.Command{
		Use:   "accept <proposal-id>",
		Short: "Accept a proposal; competing proposals are rejected",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return asUser(cmd, func(ctx context.Context, a *app.Context, userID string) error {
				res, err := a.Engine.AcceptProposal(ctx, userID, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(res)
			})
		},
	}

	var reason string
	reject := &cobra.Command{
		Use:   "reject <proposal-id>",
		Short: "Reject a proposal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return asUser(cmd, func(ctx context.Context, a *app.Context, userID string) error {
				prop, err := a.Engine.RejectProposal(ctx, userID, args[0], reason)
				if err != nil {
					return err
				}
				return printJSONOrTable(prop)
			})
		},
	}
	reject.Flags().StringVar(&reason, "reason", "", "reason shown to the designer")

	p.AddCommand(submit, list, show, accept, reject)
	return p
}

func parseCostItems(raw []string) ([]domain.CostItem, error) {
	out := make([]domain.CostItem, 0, len(raw))
	for _, r := range raw {
		label, amount, ok := strings.Cut(r, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --item %q, want label=amount", r)
		}
		n, err := strconv.ParseInt(strings.TrimSpace(amount), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --item %q: %w", r, err)
		}
		out = append(out, domain.CostItem{Label: strings.TrimSpace(label), Amount: n})
	}
	return out, nil
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Project activity log",
		Long:  "Every state change of a project, its requests, proposals and ledger, newest first.",
	}
	var n int
	var before int64
	var action string
	tail := &cobra.Command{
		Use:   "tail <project-id>",
		Short: "Show the latest activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return asUser(cmd, func(ctx context.Context, a *app.Context, userID string) error {
				res, err := a.Engine.GetProjectActivity(ctx, userID, args[0], engine.ActivityPage{Limit: n, Before: before, Action: action})
				if err != nil {
					return err
				}
				rows := make([]table.Row, 0, len(res.Entries))
				for _, e := range res.Entries {
					rows = append(rows, table.Row{e.ID, e.CreatedAt, deref(e.UserID), e.Action, e.Detail["to"]})
				}
				if err := printTable(res, table.Row{"ID", "At", "User", "Action", "To"}, rows); err != nil {
					return err
				}
				if res.Next != 0 && !viper.GetBool("json") {
					fmt.Printf("more: --before %d\n", res.Next)
				}
				return nil
			})
		},
	}
	tail.Flags().IntVar(&n, "n", 20, "number of entries")
	tail.Flags().Int64Var(&before, "before", 0, "only entries older than this id")
	tail.Flags().StringVar(&action, "action", "", "action filter")
	log.AddCommand(tail)
	return log
}
