package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"crewcal/internal/app"
	"crewcal/internal/config"
	"crewcal/internal/db"
	"crewcal/internal/engine"
	"crewcal/internal/engine/auth"
	"crewcal/internal/reminder"
	"crewcal/internal/server"
	"crewcal/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "crewcal",
	Short: "Crewcal CLI",
	Long: `Crewcal coordinates community events and their tasks.
Events carry a date range and a list of tasks; tasks belong to an area,
have assignees and move open -> submitted -> approved through completion
and review. A scheduler reminds the crew two weeks before start and due
dates, exactly once per date.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("CREWCAL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().Int64("actor-id", 0, "acting user id")
	rootCmd.PersistentFlags().StringSlice("roles", nil, "acting user role names")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
	_ = viper.BindPFlag("roles", rootCmd.PersistentFlags().Lookup("roles"))
}

func registerCommands() {
	rootCmd.AddCommand(eventCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(remindCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(logCmd())
}

func eventCmd() *cobra.Command {
	evt := &cobra.Command{Use: "event", Short: "Manage events"}
	evt.AddCommand(eventListCmd())
	evt.AddCommand(eventAddCmd())
	evt.AddCommand(eventShowCmd())
	return evt
}

func eventListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				events, err := e.ListEvents(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(events)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"#", "Name", "Start", "End", "Tasks"})
				for i, event := range events {
					tw.AppendRow(table.Row{i + 1, event.Name, event.StartDate.String(), event.EndDate.String(), len(event.Tasks)})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func eventAddCmd() *cobra.Command {
	var name, start, end, acting, partners, notes string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an event (managers only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				event, err := e.AddEvent(ctx, actorFromFlags(), engine.AddEventOptions{
					Name:     name,
					Start:    start,
					End:      end,
					Acting:   acting,
					Partners: partners,
					Notes:    notes,
				})
				if err != nil {
					return err
				}
				return printJSON(event)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "event name")
	cmd.Flags().StringVar(&start, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "end date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&acting, "acting", "", "how the group acts in this event")
	cmd.Flags().StringVar(&partners, "partners", "", "partner organizations")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func eventShowCmd() *cobra.Command {
	var index int
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show one event with its tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				event, err := e.EventDetail(ctx, index)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(event)
				}
				fmt.Printf("%s\n%s - %s\nActing: %s\nPartners: %s\nNotes: %s\n",
					event.Name, event.StartDate, event.EndDate, event.Acting, event.Partners, orDash(event.Notes))
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"#", "State", "Title", "Area", "Due", "Progress", "Assignees"})
				for i, t := range event.Tasks {
					tw.AppendRow(table.Row{i + 1, t.State(), t.Title, t.Area, t.DueDate.String(), fmt.Sprintf("%d%%", t.Progress), formatIDs(t.AssigneeIDs)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&index, "event", 0, "event index (1-based)")
	_ = cmd.MarkFlagRequired("event")
	return cmd
}

func taskCmd() *cobra.Command {
	tsk := &cobra.Command{Use: "task", Short: "Manage tasks"}
	tsk.AddCommand(taskAddCmd())
	tsk.AddCommand(taskPendingCmd())
	tsk.AddCommand(taskProgressCmd())
	tsk.AddCommand(taskCompleteCmd())
	tsk.AddCommand(taskReviewCmd())
	return tsk
}

func taskAddCmd() *cobra.Command {
	var eventIndex int
	var title, area, due, details string
	var tools []string
	var assignees []int64
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a task to an event (managers only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				task, err := e.AddTask(ctx, actorFromFlags(), engine.AddTaskOptions{
					EventIndex:  eventIndex,
					Title:       title,
					Area:        area,
					Due:         due,
					AssigneeIDs: assignees,
					Tools:       tools,
					Details:     details,
				})
				if err != nil {
					return err
				}
				return printJSON(task)
			})
		},
	}
	cmd.Flags().IntVar(&eventIndex, "event", 0, "event index (1-based)")
	cmd.Flags().StringVar(&title, "title", "", "task title")
	cmd.Flags().StringVar(&area, "area", "", "area (marketing, diretoria, rh, financeiro, ensino)")
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&details, "details", "", "details")
	cmd.Flags().StringSliceVar(&tools, "tools", nil, "tool names")
	cmd.Flags().Int64SliceVar(&assignees, "assignees", nil, "assignee user ids")
	_ = cmd.MarkFlagRequired("event")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("area")
	_ = cmd.MarkFlagRequired("due")
	_ = cmd.MarkFlagRequired("assignees")
	return cmd
}

func taskPendingCmd() *cobra.Command {
	var area string
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List pending tasks for an area",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				pending, err := e.PendingByArea(ctx, area)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(pending)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Event", "Task", "Title", "Due", "Progress", "Assignees"})
				for _, p := range pending {
					tw.AppendRow(table.Row{
						fmt.Sprintf("%d %s", p.EventIndex, p.EventName), p.TaskIndex,
						p.Task.Title, p.Task.DueDate.String(), fmt.Sprintf("%d%%", p.Task.Progress),
						formatIDs(p.Task.AssigneeIDs),
					})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&area, "area", "", "area (marketing, diretoria, rh, financeiro, ensino)")
	_ = cmd.MarkFlagRequired("area")
	return cmd
}

func taskProgressCmd() *cobra.Command {
	var eventIndex, taskIndex, percent int
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Update a task's progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				task, err := e.SetProgress(ctx, actorFromFlags(), eventIndex, taskIndex, percent)
				if err != nil {
					return err
				}
				return printJSON(task)
			})
		},
	}
	cmd.Flags().IntVar(&eventIndex, "event", 0, "event index (1-based)")
	cmd.Flags().IntVar(&taskIndex, "task", 0, "task index (1-based)")
	cmd.Flags().IntVar(&percent, "percent", 0, "progress percent (0-100)")
	_ = cmd.MarkFlagRequired("event")
	_ = cmd.MarkFlagRequired("task")
	_ = cmd.MarkFlagRequired("percent")
	return cmd
}

func taskCompleteCmd() *cobra.Command {
	var eventIndex, taskIndex int
	var link string
	var reviewerID int64
	var reviewerRoles []string
	cmd := &cobra.Command{
		Use:   "complete",
		Short: "Submit a task for review with a delivery link",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				reviewer := auth.Actor{ID: reviewerID, Roles: reviewerRoles}
				task, err := e.Complete(ctx, actorFromFlags(), eventIndex, taskIndex, link, reviewer)
				if err != nil {
					return err
				}
				return printJSON(task)
			})
		},
	}
	cmd.Flags().IntVar(&eventIndex, "event", 0, "event index (1-based)")
	cmd.Flags().IntVar(&taskIndex, "task", 0, "task index (1-based)")
	cmd.Flags().StringVar(&link, "link", "", "delivery link")
	cmd.Flags().Int64Var(&reviewerID, "reviewer-id", 0, "nominated reviewer user id")
	cmd.Flags().StringSliceVar(&reviewerRoles, "reviewer-roles", nil, "nominated reviewer role names")
	_ = cmd.MarkFlagRequired("event")
	_ = cmd.MarkFlagRequired("task")
	_ = cmd.MarkFlagRequired("reviewer-id")
	return cmd
}

func taskReviewCmd() *cobra.Command {
	var eventIndex, taskIndex int
	var approve bool
	var comment string
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Approve or reject a submitted task (managers only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				task, err := e.Review(ctx, actorFromFlags(), eventIndex, taskIndex, approve, comment)
				if err != nil {
					return err
				}
				return printJSON(task)
			})
		},
	}
	cmd.Flags().IntVar(&eventIndex, "event", 0, "event index (1-based)")
	cmd.Flags().IntVar(&taskIndex, "task", 0, "task index (1-based)")
	cmd.Flags().BoolVar(&approve, "approve", false, "approve (true) or reject (false)")
	cmd.Flags().StringVar(&comment, "comment", "", "review comment")
	_ = cmd.MarkFlagRequired("event")
	_ = cmd.MarkFlagRequired("task")
	return cmd
}

func remindCmd() *cobra.Command {
	rem := &cobra.Command{Use: "remind", Short: "Reminder scheduler"}
	var once bool
	run := &cobra.Command{
		Use:   "run",
		Short: "Run the reminder loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			settings, err := loadSettings(workspace)
			if err != nil {
				return err
			}
			if !once {
				// Daemon startup fails fast on missing platform credentials.
				if err := settings.Validate(); err != nil {
					return err
				}
			}
			eng, closeFn, err := app.Build(workspace, settings)
			if err != nil {
				return err
			}
			defer closeFn()
			var notifier reminder.Notifier
			if settings.WebhookURL != "" {
				notifier = reminder.NewWebhookNotifier(settings.WebhookURL, settings.ReminderChannel)
			} else {
				notifier = reminder.ConsoleNotifier{}
			}
			if once {
				sent, err := eng.Remind(cmd.Context(), notifier)
				if err != nil {
					return err
				}
				fmt.Printf("delivered %d reminder(s)\n", sent)
				return nil
			}
			runner := reminder.Runner{
				Every: settings.RemindEvery,
				Tick: func(ctx context.Context) (int, error) {
					return eng.Remind(ctx, notifier)
				},
			}
			return runner.Run(cmd.Context())
		},
	}
	run.Flags().BoolVar(&once, "once", false, "run a single tick and exit")
	rem.AddCommand(run)
	return rem
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			settings, err := loadSettings(workspace)
			if err != nil {
				return err
			}
			if err := settings.Validate(); err != nil {
				return err
			}
			eng, closeFn, err := app.Build(workspace, settings)
			if err != nil {
				return err
			}
			defer closeFn()
			secret := os.Getenv("CREWCAL_JWT_SECRET")
			if secret == "" {
				return fmt.Errorf("CREWCAL_JWT_SECRET is required for bearer auth")
			}
			handler, err := server.New(server.Config{
				Engine:   eng,
				BasePath: basePath,
				Auth:     server.AuthConfig{JWTSecret: secret},
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Crewcal API on http://%s%s\n", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Install the default calendar when the store is empty",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			settings, err := loadSettings(workspace)
			if err != nil {
				return err
			}
			eng, closeFn, err := app.Build(workspace, settings)
			if err != nil {
				return err
			}
			defer closeFn()
			seeded, err := eng.Store.SeedIfEmpty()
			if err != nil {
				return err
			}
			if seeded {
				fmt.Printf("seeded %d event(s)\n", len(store.DefaultCalendar()))
			} else {
				fmt.Println("store already has events; nothing to do")
			}
			return nil
		},
	}
}

func logCmd() *cobra.Command {
	lg := &cobra.Command{Use: "log", Short: "Audit log"}
	var n int
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Show the latest audit entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			settings, err := loadSettings(workspace)
			if err != nil {
				return err
			}
			eng, closeFn, err := app.Build(workspace, settings)
			if err != nil {
				return err
			}
			defer closeFn()
			entries, err := eng.Audit.Tail(cmd.Context(), n)
			if err != nil {
				return err
			}
			return printJSON(entries)
		},
	}
	tail.Flags().IntVar(&n, "n", 20, "number of entries")
	lg.AddCommand(tail)
	return lg
}

// --- helpers ---

// loadSettings reads the workspace crewcal.yml and applies CREWCAL_*
// environment overrides.
func loadSettings(workspace string) (*config.Settings, error) {
	settings, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	if v := viper.GetString("token"); v != "" {
		settings.Token = v
	}
	if v := viper.GetInt64("guild-id"); v != 0 {
		settings.GuildID = v
	}
	if v := viper.GetString("manager-roles"); v != "" {
		settings.ManagerRoles = config.ParseRoles(v)
	}
	if v := viper.GetString("reminder-channel"); v != "" {
		settings.ReminderChannel = v
	}
	if v := viper.GetString("timezone"); v != "" {
		settings.Timezone = v
	}
	if v := viper.GetString("data-dir"); v != "" {
		settings.DataDir = v
	}
	if v := viper.GetString("webhook-url"); v != "" {
		settings.WebhookURL = v
	}
	if v := viper.GetDuration("remind-every"); v > 0 {
		settings.RemindEvery = v
	}
	return settings, nil
}

func actorFromFlags() auth.Actor {
	return auth.Actor{
		ID:    viper.GetInt64("actor-id"),
		Roles: viper.GetStringSlice("roles"),
	}
}

func withEngine(ctx context.Context, fn func(context.Context, *engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	settings, err := loadSettings(workspace)
	if err != nil {
		return err
	}
	eng, closeFn, err := app.Build(workspace, settings)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(ctx, eng)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatIDs(ids []int64) string {
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%d", id))
	}
	return strings.Join(parts, ", ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
