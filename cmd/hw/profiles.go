package main

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"homeworks/internal/app"
)

func profileCmd() *cobra.Command {
	p := &cobra.Command{Use: "profile", Short: "Homeowner, designer and contractor profiles"}
	p.AddCommand(profileShowCmd())
	p.AddCommand(profileRegisterCmd())
	p.AddCommand(profileVerifyCmd())
	p.AddCommand(designerListCmd())
	return p
}

func profileShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the acting user's profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return asUser(cmd, func(ctx context.Context, a *app.Context, userID string) error {
				me, err := a.Engine.Me(ctx, userID)
				if err != nil {
					return err
				}
				return printJSONOrTable(me)
			})
		},
	}
}

func profileRegisterCmd() *cobra.Command {
	var name, bio, trade string
	cmd := &cobra.Command{
		Use:       "register <homeowner|designer|contractor>",
		Short:     "Register the acting user in a role",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"homeowner", "designer", "contractor"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return asUser(cmd, func(ctx context.Context, a *app.Context, userID string) error {
				switch args[0] {
				case "homeowner":
					h, err := a.Engine.RegisterHomeowner(ctx, userID, name)
					if err != nil {
						return err
					}
					return printJSONOrTable(h)
				case "designer":
					d, err := a.Engine.RegisterDesigner(ctx, userID, name, bio)
					if err != nil {
						return err
					}
					return printJSONOrTable(d)
				default:
					c, err := a.Engine.RegisterContractor(ctx, userID, name, trade)
					if err != nil {
						return err
					}
					return printJSONOrTable(c)
				}
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&bio, "bio", "", "designer bio")
	cmd.Flags().StringVar(&trade, "trade", "", "contractor trade")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

// profileVerifyCmd runs as the local operator; the HTTP equivalent needs the admin role.
func profileVerifyCmd() *cobra.Command {
	var revoke bool
	cmd := &cobra.Command{
		Use:       "verify <designer|contractor> <id>",
		Short:     "Verify a designer or contractor",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"designer", "contractor"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				switch args[0] {
				case "designer":
					d, err := a.Engine.VerifyDesigner(ctx, args[1], !revoke)
					if err != nil {
						return err
					}
					return printJSONOrTable(d)
				case "contractor":
					c, err := a.Engine.VerifyContractor(ctx, args[1], !revoke)
					if err != nil {
						return err
					}
					return printJSONOrTable(c)
				}
				return fmt.Errorf("unknown profile kind %q", args[0])
			})
		},
	}
	cmd.Flags().BoolVar(&revoke, "revoke", false, "clear verification instead")
	return cmd
}

func designerListCmd() *cobra.Command {
	var verifiedOnly bool
	cmd := &cobra.Command{
		Use:   "designers",
		Short: "List designers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				items, err := a.Engine.ListDesigners(ctx, verifiedOnly)
				if err != nil {
					return err
				}
				rows := make([]table.Row, 0, len(items))
				for _, d := range items {
					rows = append(rows, table.Row{d.ID, d.Name, d.UserID, d.Verified})
				}
				return printTable(items, table.Row{"ID", "Name", "User", "Verified"}, rows)
			})
		},
	}
	cmd.Flags().BoolVar(&verifiedOnly, "verified", false, "only verified designers")
	return cmd
}

func propertyCmd() *cobra.Command {
	p := &cobra.Command{Use: "property", Short: "Homeowner properties"}
	var address string
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a property for the acting homeowner",
		RunE: func(cmd *cobra.Command, args []string) error {
			return asUser(cmd, func(ctx context.Context, a *app.Context, userID string) error {
				prop, err := a.Engine.AddProperty(ctx, userID, address)
				if err != nil {
					return err
				}
				return printJSONOrTable(prop)
			})
		},
	}
	add.Flags().StringVar(&address, "address", "", "street address")
	_ = add.MarkFlagRequired("address")
	p.AddCommand(add)
	return p
}

func apiKeyCmd() *cobra.Command {
	k := &cobra.Command{Use: "apikey", Short: "API keys for the HTTP server"}
	var name string
	create := &cobra.Command{
		Use:   "create",
		Short: "Issue a key for the acting user; the secret is printed once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return asUser(cmd, func(ctx context.Context, a *app.Context, userID string) error {
				key, secret, err := a.Engine.CreateAPIKey(ctx, userID, name)
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{"key": key, "secret": secret})
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "label")
	list := &cobra.Command{
		Use:   "list",
		Short: "List the acting user's keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return asUser(cmd, func(ctx context.Context, a *app.Context, userID string) error {
				keys, err := a.Engine.ListAPIKeys(ctx, userID)
				if err != nil {
					return err
				}
				rows := make([]table.Row, 0, len(keys))
				for _, key := range keys {
					rows = append(rows, table.Row{key.ID, key.Name, key.CreatedAt})
				}
				return printTable(keys, table.Row{"ID", "Name", "Created"}, rows)
			})
		},
	}
	revoke := &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return asUser(cmd, func(ctx context.Context, a *app.Context, userID string) error {
				if err := a.Engine.RevokeAPIKey(ctx, userID, args[0]); err != nil {
					return err
				}
				fmt.Println("revoked", args[0])
				return nil
			})
		},
	}
	k.AddCommand(create, list, revoke)
	return k
}
