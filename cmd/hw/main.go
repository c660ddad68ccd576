package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"homeworks/internal/app"
	"homeworks/internal/config"
	"homeworks/internal/db"
	"homeworks/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "hw",
	Short: "Homeworks CLI",
	Long: `Homeworks connects homeowners with interior designers.
- Project: a homeowner's renovation, draft -> seeking_designer -> in_progress -> completed (cancelled is an exit).
- Request: an invitation from a project to one designer; each designer is asked at most once per project.
- Proposal: a designer's bid answering a request. Accepting one assigns its designer and rejects the others.
- Ledger: tasks, milestones and cost estimates tracked while a project is in progress.
- Activity: the per-project audit trail, view with 'hw log tail'.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_, err := db.EnsureWorkspace(viper.GetString("workspace"))
		return err
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	envFile := filepath.Join(viper.GetString("workspace"), ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: load %s: %v\n", envFile, err)
	}
	viper.SetEnvPrefix("HOMEWORKS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().StringP("user", "u", "", "acting user id (env HOMEWORKS_USER)")
	rootCmd.PersistentFlags().String("config", "", "config file (default <workspace>/homeworks.yml)")
	rootCmd.PersistentFlags().String("log-level", "", "override logging.level")
	for _, name := range []string{"workspace", "json", "user", "config", "log-level"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

func registerCommands() {
	rootCmd.AddCommand(profileCmd())
	rootCmd.AddCommand(propertyCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(requestCmd())
	rootCmd.AddCommand(proposalCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(milestoneCmd())
	rootCmd.AddCommand(costCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(apiKeyCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(serveCmd())
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Workspace configuration"}
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default homeworks.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			data, err := config.Default().Marshal()
			if err != nil {
				return err
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig()
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(c)
			}
			data, err := c.Marshal()
			if err != nil {
				return err
			}
			fmt.Print(string(data))
			return nil
		},
	}
	cfg.AddCommand(initCmd, showCmd)
	return cfg
}

func loadConfig() (*config.Config, error) {
	if path := viper.GetString("config"); path != "" {
		return config.FromFile(path)
	}
	return config.LoadOptional(viper.GetString("workspace"))
}

func tokenCmd() *cobra.Command {
	var roles []string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the acting user (needs HOMEWORKS_JWT_SECRET)",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := actingUser()
			if err != nil {
				return err
			}
			token, err := server.SignToken(viper.GetString("jwt-secret"), userID, roles, ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&roles, "role", nil, "role claim (repeatable), e.g. admin")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	var allowUserHeader bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				if cmd.Flags().Changed("addr") {
					a.Config.Server.Addr = addr
				}
				if cmd.Flags().Changed("base-path") {
					a.Config.Server.BasePath = basePath
				}
				authCfg := server.AuthConfig{
					JWTSecret:       viper.GetString("jwt-secret"),
					AllowUserHeader: allowUserHeader,
					Logger:          a.Logger,
				}
				if authCfg.JWTSecret == "" && !allowUserHeader {
					return fmt.Errorf("HOMEWORKS_JWT_SECRET is required for bearer auth")
				}
				handler, err := server.New(server.Config{
					Engine:   a.Engine,
					BasePath: a.Config.Server.BasePath,
					Auth:     authCfg,
					Metrics:  a.Metrics.Handler(),
				})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: a.Config.Server.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				a.Logger.WithField("addr", a.Config.Server.Addr).Info("serving homeworks API")
				fmt.Printf("Serving Homeworks API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs, metrics at /metrics)\n",
					a.Config.Server.Addr, a.Config.Server.BasePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address (overrides server.addr)")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path (overrides server.base_path)")
	cmd.Flags().BoolVar(&allowUserHeader, "allow-user-header", false, "trust X-User-Id without credentials (local use only)")
	return cmd
}

// --- helpers ---

func withApp(ctx context.Context, fn func(context.Context, *app.Context) error) error {
	a, err := app.Open(ctx, app.Options{
		Workspace:  viper.GetString("workspace"),
		ConfigFile: viper.GetString("config"),
		LogLevel:   viper.GetString("log-level"),
	})
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func actingUser() (string, error) {
	userID := strings.TrimSpace(viper.GetString("user"))
	if userID == "" {
		return "", fmt.Errorf("acting user required; pass --user or set HOMEWORKS_USER")
	}
	return userID, nil
}

// asUser runs fn against the engine as the acting user.
func asUser(cmd *cobra.Command, fn func(ctx context.Context, a *app.Context, userID string) error) error {
	userID, err := actingUser()
	if err != nil {
		return err
	}
	return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
		return fn(ctx, a, userID)
	})
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printTable renders rows unless --json is set, in which case v is printed.
func printTable(v any, header table.Row, rows []table.Row) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(header)
	tw.AppendRows(rows)
	tw.Render()
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// changedString returns a pointer to v when the flag was set.
func changedString(cmd *cobra.Command, name, v string) *string {
	if cmd.Flags().Changed(name) {
		return &v
	}
	return nil
}

func changedInt64(cmd *cobra.Command, name string, v int64) *int64 {
	if cmd.Flags().Changed(name) {
		return &v
	}
	return nil
}
