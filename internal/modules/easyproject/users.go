package easyproject

import (
	"context"
	"fmt"

	"github.com/sourcegraph/conc/pool"

	"easyproject-mcp/server/internal/modules"
	"easyproject-mcp/server/pkg/easyprojectapi"
)

// Users exposes user lookups and the workload aggregate.
func Users(api API, opts Options) *Module {
	opts = opts.withDefaults()
	return newModule("users", "EasyProject users and workload", []entry{
		bind(
			modules.Tool{
				Name:        "list_users",
				Description: "List users with pagination, status filter and search.",
				InputSchema: schema(map[string]modules.Property{
					"limit":  limitProp(opts.DefaultLimit),
					"offset": offsetProp(),
					"status": {Type: "integer", Description: "1 active, 2 registered, 3 locked", Enum: []any{1, 2, 3}},
					"search": {Type: "string", Description: "Free-text search"},
					"sort":   {Type: "string", Description: "Sort expression, e.g. lastname"},
				}),
				Annotations: modules.AnnotateReadOnly,
			},
			func(args modules.Args) (easyprojectapi.ListUsersParams, error) {
				r := newArgReader(args)
				p := easyprojectapi.ListUsersParams{
					Limit:  r.limit(opts.DefaultLimit),
					Offset: r.int("offset"),
					Status: r.int("status"),
					Search: r.str("search"),
					Sort:   r.str("sort"),
				}
				return p, r.err
			},
			api.ListUsers,
			func(_ easyprojectapi.ListUsersParams, list *easyprojectapi.UserList) string {
				return usersText(list)
			},
		),
		bind(
			modules.Tool{
				Name:        "get_user",
				Description: "Get one user by ID.",
				InputSchema: schema(map[string]modules.Property{
					"id":      idProp("User ID"),
					"include": includeProp("memberships", "groups"),
				}, "id"),
				Annotations: modules.AnnotateReadOnly,
			},
			func(args modules.Args) (getParams, error) {
				r := newArgReader(args)
				p := getParams{id: r.requiredInt("id"), include: r.strs("include")}
				return p, r.err
			},
			func(ctx context.Context, p getParams) (*easyprojectapi.User, error) {
				return api.GetUser(ctx, p.id, p.include)
			},
			func(_ getParams, u *easyprojectapi.User) string {
				return userMarkdown(u)
			},
		),
		bind(
			modules.Tool{
				Name:        "get_current_user",
				Description: "Get the user the API key belongs to.",
				InputSchema: schema(nil),
				Annotations: modules.AnnotateReadOnly,
			},
			noArgs,
			func(ctx context.Context, _ struct{}) (*easyprojectapi.User, error) {
				return api.GetCurrentUser(ctx)
			},
			func(_ struct{}, u *easyprojectapi.User) string {
				return userMarkdown(u)
			},
		),
		bind(
			modules.Tool{
				Name: "get_user_workload",
				Description: "Summarize a user's workload: open issues assigned to them " +
					"and hours logged in an optional date range.",
				InputSchema: schema(map[string]modules.Property{
					"id":        idProp("User ID"),
					"from_date": dateProp("Count time logged on or after"),
					"to_date":   dateProp("Count time logged on or before"),
				}, "id"),
				Annotations: modules.AnnotateReadOnly,
			},
			func(args modules.Args) (workloadParams, error) {
				r := newArgReader(args)
				p := workloadParams{
					id:     r.requiredInt("id"),
					period: Period{From: r.date("from_date"), To: r.date("to_date")},
				}
				return p, r.err
			},
			func(ctx context.Context, p workloadParams) (*Workload, error) {
				return userWorkload(ctx, api, p, opts.today())
			},
			func(_ workloadParams, w *Workload) string {
				return jsonText(fmt.Sprintf("Workload of %s (#%d)", w.User.Name, w.User.ID), w)
			},
		),
	})
}

type workloadParams struct {
	id     int
	period Period
}

// Workload is the get_user_workload aggregate.
type Workload struct {
	User struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
		Mail string `json:"mail,omitempty"`
	} `json:"user"`
	Period    Period          `json:"period"`
	Issues    IssueSummary    `json:"issues"`
	Time      TimeSummary     `json:"time"`
	Assigned  []workloadIssue `json:"assigned_issues"`
	Truncated bool            `json:"truncated,omitempty"`
}

type workloadIssue struct {
	ID        int    `json:"id"`
	Project   string `json:"project"`
	Subject   string `json:"subject"`
	Status    string `json:"status"`
	DoneRatio int    `json:"done_ratio"`
	DueDate   string `json:"due_date,omitempty"`
}

// userWorkload fetches the user, their open issues and their time entries in
// parallel. Any failed fetch fails the whole call.
func userWorkload(ctx context.Context, api API, p workloadParams, today string) (*Workload, error) {
	var (
		user    *easyprojectapi.User
		issues  collected[easyprojectapi.Issue]
		entries collected[easyprojectapi.TimeEntry]
	)

	g := pool.New().WithErrors().WithContext(ctx)
	g.Go(func(ctx context.Context) error {
		var err error
		user, err = api.GetUser(ctx, p.id, nil)
		return err
	})
	g.Go(func(ctx context.Context) error {
		var err error
		issues, err = collect(ctx, issuePages(api, easyprojectapi.ListIssuesParams{
			AssignedToID: &p.id,
			StatusID:     easyprojectapi.Ptr("open"),
		}))
		return err
	})
	g.Go(func(ctx context.Context) error {
		var err error
		entries, err = collect(ctx, timeEntryPages(api, easyprojectapi.ListTimeEntriesParams{
			UserID: &p.id,
			From:   p.period.From,
			To:     p.period.To,
		}))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	w := &Workload{
		Period:    p.period,
		Issues:    summarizeIssues(issues.Items, today),
		Time:      summarizeTime(entries.Items),
		Assigned:  make([]workloadIssue, 0, len(issues.Items)),
		Truncated: issues.Truncated || entries.Truncated,
	}
	w.User.ID = user.ID
	w.User.Name = user.FullName()
	w.User.Mail = user.Mail
	for _, i := range issues.Items {
		w.Assigned = append(w.Assigned, workloadIssue{
			ID:        i.ID,
			Project:   i.Project.Name,
			Subject:   i.Subject,
			Status:    i.Status.Name,
			DoneRatio: i.DoneRatio,
			DueDate:   i.DueDate,
		})
	}
	return w, nil
}
