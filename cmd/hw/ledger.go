package main

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"homeworks/internal/app"
	"homeworks/internal/domain"
	"homeworks/internal/engine"
)

func taskCmd() *cobra.Command {
	t := &cobra.Command{Use: "task", Short: "Project tasks (in-progress projects)"}

	var in engine.TaskInput
	var status string
	add := &cobra.Command{
		Use:   "add <project-id>",
		Short: "Add a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Status = domain.TaskStatus(status)
			return asUser(cmd, func(ctx context.Context, a *app.Context, userID string) error {
				task, err := a.Engine.CreateTask(ctx, userID, args[0], in)
				if err != nil {
					return err
				}
				return printJSONOrTable(task)
			})
		},
	}
	add.Flags().StringVar(&in.Title, "title", "", "task title")
	add.Flags().StringVar(&in.Description, "description", "", "details")
	add.Flags().StringVar(&status, "status", "", "todo|in_progress|completed (default todo)")
	add.Flags().StringVar(&in.DueDate, "due", "", "due date YYYY-MM-DD")
	_ = add.MarkFlagRequired("title")

	var filter string
	list := &cobra.Command{
		Use:   "list <project-id>",
		Short: "List tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return asUser(cmd, func(ctx context.Context, a *app.Context, userID string) error {
				items, err := a.Engine.ListTasks(ctx, userID, args[0], domain.TaskStatus(filter))
				if err != nil {
					return err
				}
				rows := make([]table.Row, 0, len(items))
				for _, it := range items {
					rows = append(rows, table.Row{it.ID, it.Title, it.Status, deref(it.DueDate)})
				}
				return printTable(items, table.Row{"ID", "Title", "Status", "Due"}, rows)
			})
		},
	}
	list.Flags().StringVar(&filter, "status", "", "status filter")

	var title, description, newStatus, due string
	update := &cobra.Command{
		Use:   "update <task-id>",
		Short: "Edit a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := engine.TaskPatch{
				Title:       changedString(cmd, "title", title),
				Description: changedString(cmd, "description", description),
				DueDate:     changedString(cmd, "due", due),
			}
			if cmd.Flags().Changed("status") {
				st := domain.TaskStatus(newStatus)
				patch.Status = &st
			}
			return asUser(cmd, func(ctx context.Context, a *app.Context, userID string) error {
				task, err := a.Engine.UpdateTask(ctx, userID, args[0], patch)
				if err != nil {
					return err
				}
				return printJSONOrTable(task)
			})
		},
	}
	update.Flags().StringVar(&title, "title", "", "task title")
	update.Flags().StringVar(&description, "description", "", "details")
	update.Flags().StringVar(&newStatus, "status", "", "todo|in_progress|completed")
	update.Flags().StringVar(&due, "due", "", "due date YYYY-MM-DD (empty clears)")

	t.AddCommand(add, list, update, deleteCmd("task", func(ctx context.Context, a *app.Context, userID, id string) error {
		return a.Engine.DeleteTask(ctx, userID, id)
	}))
	return t
}

func milestoneCmd() *cobra.Command {
	m := &cobra.Command{Use: "milestone", Short: "Project milestones (in-progress projects)"}

	var in engine.MilestoneInput
	add := &cobra.Command{
		Use:   "add <project-id>",
		Short: "Add a milestone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return asUser(cmd, func(ctx context.Context, a *app.Context, userID string) error {
				ms, err := a.Engine.CreateMilestone(ctx, userID, args[0], in)
				if err != nil {
					return err
				}
				return printJSONOrTable(ms)
			})
		},
	}
	add.Flags().StringVar(&in.Title, "title", "", "milestone title")
	add.Flags().StringVar(&in.DueDate, "due", "", "due date YYYY-MM-DD")
	add.Flags().Int64Var(&in.Amount, "amount", 0, "payment amount")
	_ = add.MarkFlagRequired("title")

	list := &cobra.Command{
		Use:   "list <project-id>",
		Short: "List milestones",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return asUser(cmd, func(ctx context.Context, a *app.Context, userID string) error {
				items, err := a.Engine.ListMilestones(ctx, userID, args[0])
				if err != nil {
					return err
				}
				rows := make([]table.Row, 0, len(items))
				for _, it := range items {
					rows = append(rows, table.Row{it.ID, it.Title, it.Amount, it.Status, it.PaymentStatus, deref(it.DueDate)})
				}
				return printTable(items, table.Row{"ID", "Title", "Amount", "Status", "Payment", "Due"}, rows)
			})
		},
	}

	var title, due, status string
	var amount int64
	update := &cobra.Command{
		Use:   "update <milestone-id>",
		Short: "Edit a milestone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := engine.MilestonePatch{
				Title:   changedString(cmd, "title", title),
				DueDate: changedString(cmd, "due", due),
				Amount:  changedInt64(cmd, "amount", amount),
			}
			if cmd.Flags().Changed("status") {
				st := domain.MilestoneStatus(status)
				patch.Status = &st
			}
			return asUser(cmd, func(ctx context.Context, a *app.Context, userID string) error {
				ms, err := a.Engine.UpdateMilestone(ctx, userID, args[0], patch)
				if err != nil {
					return err
				}
				return printJSONOrTable(ms)
			})
		},
	}
	update.Flags().StringVar(&title, "title", "", "milestone title")
	update.Flags().StringVar(&due, "due", "", "due date YYYY-MM-DD (empty clears)")
	update.Flags().Int64Var(&amount, "amount", 0, "payment amount")
	update.Flags().StringVar(&status, "status", "", "pending|completed")

	var unpaid bool
	pay := &cobra.Command{
		Use:   "pay <milestone-id>",
		Short: "Mark a milestone paid (homeowner only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ps := domain.PaymentPaid
			if unpaid {
				ps = domain.PaymentUnpaid
			}
			return asUser(cmd, func(ctx context.Context, a *app.Context, userID string) error {
				ms, err := a.Engine.SetMilestonePayment(ctx, userID, args[0], ps)
				if err != nil {
					return err
				}
				return printJSONOrTable(ms)
			})
		},
	}
	pay.Flags().BoolVar(&unpaid, "unpaid", false, "mark unpaid instead")

	m.AddCommand(add, list, update, pay, deleteCmd("milestone", func(ctx context.Context, a *app.Context, userID, id string) error {
		return a.Engine.DeleteMilestone(ctx, userID, id)
	}))
	return m
}

func costCmd() *cobra.Command {
	c := &cobra.Command{Use: "cost", Short: "Cost estimates (in-progress projects)"}

	var in engine.CostEstimateInput
	var actual int64
	add := &cobra.Command{
		Use:   "add <project-id>",
		Short: "Add a cost estimate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.ActualAmount = changedInt64(cmd, "actual", actual)
			return asUser(cmd, func(ctx context.Context, a *app.Context, userID string) error {
				ce, err := a.Engine.CreateCostEstimate(ctx, userID, args[0], in)
				if err != nil {
					return err
				}
				return printJSONOrTable(ce)
			})
		},
	}
	add.Flags().StringVar(&in.Category, "category", "", "category, e.g. materials")
	add.Flags().StringVar(&in.Description, "description", "", "details")
	add.Flags().Int64Var(&in.EstimatedAmount, "estimated", 0, "estimated amount")
	add.Flags().Int64Var(&actual, "actual", 0, "actual amount")
	_ = add.MarkFlagRequired("category")

	list := &cobra.Command{
		Use:   "list <project-id>",
		Short: "List cost estimates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return asUser(cmd, func(ctx context.Context, a *app.Context, userID string) error {
				items, err := a.Engine.ListCostEstimates(ctx, userID, args[0])
				if err != nil {
					return err
				}
				rows := make([]table.Row, 0, len(items))
				for _, it := range items {
					act := ""
					if it.ActualAmount != nil {
						act = fmt.Sprint(*it.ActualAmount)
					}
					rows = append(rows, table.Row{it.ID, it.Category, it.EstimatedAmount, act})
				}
				return printTable(items, table.Row{"ID", "Category", "Estimated", "Actual"}, rows)
			})
		},
	}

	var category, description string
	var estimated, newActual int64
	var clearActual bool
	update := &cobra.Command{
		Use:   "update <cost-id>",
		Short: "Edit a cost estimate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := engine.CostEstimatePatch{
				Category:        changedString(cmd, "category", category),
				Description:     changedString(cmd, "description", description),
				EstimatedAmount: changedInt64(cmd, "estimated", estimated),
				ActualAmount:    changedInt64(cmd, "actual", newActual),
				ClearActual:     clearActual,
			}
			return asUser(cmd, func(ctx context.Context, a *app.Context, userID string) error {
				ce, err := a.Engine.UpdateCostEstimate(ctx, userID, args[0], patch)
				if err != nil {
					return err
				}
				return printJSONOrTable(ce)
			})
		},
	}
	update.Flags().StringVar(&category, "category", "", "category")
	update.Flags().StringVar(&description, "description", "", "details")
	update.Flags().Int64Var(&estimated, "estimated", 0, "estimated amount")
	update.Flags().Int64Var(&newActual, "actual", 0, "actual amount")
	update.Flags().BoolVar(&clearActual, "clear-actual", false, "remove the actual amount")

	c.AddCommand(add, list, update, deleteCmd("cost estimate", func(ctx context.Context, a *app.Context, userID, id string) error {
		return a.Engine.DeleteCostEstimate(ctx, userID, id)
	}))
	return c
}

func deleteCmd(noun string, fn func(ctx context.Context, a *app.Context, userID, id string) error) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a " + noun,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return asUser(cmd, func(ctx context.Context, a *app.Context, userID string) error {
				if err := fn(ctx, a, userID, args[0]); err != nil {
					return err
				}
				fmt.Println("deleted", args[0])
				return nil
			})
		},
	}
}
