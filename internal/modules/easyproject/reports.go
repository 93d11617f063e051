package easyproject

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/sourcegraph/conc/pool"

	"easyproject-mcp/server/internal/modules"
	"easyproject-mcp/server/pkg/easyprojectapi"
)

// Reports exposes the aggregate tools. Their sections are fetched in
// parallel, and a section whose fetch failed carries an error field instead
// of failing the call.
func Reports(api API, opts Options) *Module {
	opts = opts.withDefaults()
	return newModule("reports", "EasyProject reports and dashboards", []entry{
		bind(
			modules.Tool{
				Name: "generate_project_report",
				Description: "Build a project report: issue statistics by status and priority, " +
					"hours by user and activity, and the users involved.",
				InputSchema: schema(map[string]modules.Property{
					"project_id":           idProp("Project ID"),
					"from_date":            dateProp("Period start"),
					"to_date":              dateProp("Period end"),
					"include_issues":       {Type: "boolean", Description: "Include issue statistics. Default: true", Default: true},
					"include_time_entries": {Type: "boolean", Description: "Include time statistics. Default: true", Default: true},
					"include_users":        {Type: "boolean", Description: "Include the users involved. Default: true", Default: true},
				}, "project_id"),
				Annotations: modules.AnnotateReadOnly,
			},
			decodeReportParams,
			func(ctx context.Context, p reportParams) (*ProjectReport, error) {
				return projectReport(ctx, api, p, opts)
			},
			func(_ reportParams, r *ProjectReport) string {
				return jsonText(fmt.Sprintf("Project report: %s (#%d)", r.Project.Name, r.Project.ID), r)
			},
		),
		bind(
			modules.Tool{
				Name:        "get_dashboard_data",
				Description: "Overview counts: projects by status, issues by progress (including overdue) and hours logged.",
				InputSchema: schema(map[string]modules.Property{
					"project_ids": {Type: "array", Description: "Limit to these projects", Items: &modules.Property{Type: "integer", Minimum: modules.Bound(1)}},
					"user_id":     idProp("Limit issues and time to this user"),
					"from_date":   dateProp("Period start"),
					"to_date":     dateProp("Period end"),
				}),
				Annotations: modules.AnnotateReadOnly,
			},
			func(args modules.Args) (dashboardParams, error) {
				r := newArgReader(args)
				p := dashboardParams{
					ProjectIDs: r.ints("project_ids"),
					UserID:     r.int("user_id"),
					From:       r.date("from_date"),
					To:         r.date("to_date"),
				}
				return p, r.err
			},
			func(ctx context.Context, p dashboardParams) (*Dashboard, error) {
				return dashboard(ctx, api, p, opts), nil
			},
			func(_ dashboardParams, d *Dashboard) string {
				return jsonText("Dashboard data", d)
			},
		),
	})
}

// =============================================================================
// generate_project_report
// =============================================================================

type reportParams struct {
	projectID   int
	period      Period
	issues      bool
	timeEntries bool
	users       bool
}

func decodeReportParams(args modules.Args) (reportParams, error) {
	r := newArgReader(args)
	p := reportParams{
		projectID: r.requiredInt("project_id"),
		period:    Period{From: r.date("from_date"), To: r.date("to_date")},
	}
	p.issues = orTrue(r.bool("include_issues"))
	p.timeEntries = orTrue(r.bool("include_time_entries"))
	p.users = orTrue(r.bool("include_users"))
	return p, r.err
}

func orTrue(b *bool) bool { return b == nil || *b }

// ProjectReport is the generate_project_report aggregate.
type ProjectReport struct {
	Project struct {
		ID         int    `json:"id"`
		Name       string `json:"name"`
		Identifier string `json:"identifier,omitempty"`
		Status     string `json:"status"`
		CreatedOn  string `json:"created_on,omitempty"`
		UpdatedOn  string `json:"updated_on,omitempty"`
	} `json:"project"`
	GeneratedAt string        `json:"generated_at"`
	Period      Period        `json:"period"`
	Issues      *issueSection `json:"issues,omitempty"`
	TimeEntries *timeSection  `json:"time_entries,omitempty"`
	Users       *usersSection `json:"users,omitempty"`
}

type issueSection struct {
	Summary    *IssueSummary  `json:"summary,omitempty"`
	ByStatus   map[string]int `json:"by_status,omitempty"`
	ByPriority map[string]int `json:"by_priority,omitempty"`
	Truncated  bool           `json:"truncated,omitempty"`
	Error      string         `json:"error,omitempty"`
}

type timeSection struct {
	Summary    *TimeSummary       `json:"summary,omitempty"`
	ByUser     map[string]float64 `json:"by_user,omitempty"`
	ByActivity map[string]float64 `json:"by_activity,omitempty"`
	Truncated  bool               `json:"truncated,omitempty"`
	Error      string             `json:"error,omitempty"`
}

type usersSection struct {
	Total int          `json:"total"`
	Users []reportUser `json:"details,omitempty"`
	Error string       `json:"error,omitempty"`
}

type reportUser struct {
	ID             int     `json:"id"`
	Name           string  `json:"name"`
	AssignedIssues int     `json:"assigned_issues"`
	LoggedHours    float64 `json:"logged_hours"`
}

// projectReport reads the project first; a failure there fails the call.
// Issues and time entries are then fetched in parallel, each only when a
// requested section needs it. The users section is derived from both.
func projectReport(ctx context.Context, api API, p reportParams, opts Options) (*ProjectReport, error) {
	project, err := api.GetProject(ctx, p.projectID, nil)
	if err != nil {
		return nil, err
	}

	r := &ProjectReport{
		GeneratedAt: opts.Now().UTC().Format(time.RFC3339),
		Period:      p.period,
	}
	r.Project.ID = project.ID
	r.Project.Name = project.Name
	r.Project.Identifier = project.Identifier
	r.Project.Status = project.StatusName()
	r.Project.CreatedOn = project.CreatedOn
	r.Project.UpdatedOn = project.UpdatedOn

	var (
		issues                collected[easyprojectapi.Issue]
		entries               collected[easyprojectapi.TimeEntry]
		issuesErr, entriesErr error
	)
	g := pool.New()
	if p.issues || p.users {
		g.Go(func() {
			issues, issuesErr = collect(ctx, issuePages(api, easyprojectapi.ListIssuesParams{
				ProjectID: &p.projectID,
				StatusID:  easyprojectapi.Ptr("*"),
			}))
			issues.Items = filter(issues.Items, func(i easyprojectapi.Issue) bool {
				return inRange(i.CreatedOn, p.period.From, p.period.To)
			})
		})
	}
	if p.timeEntries || p.users {
		g.Go(func() {
			entries, entriesErr = collect(ctx, timeEntryPages(api, easyprojectapi.ListTimeEntriesParams{
				ProjectID: &p.projectID,
				From:      p.period.From,
				To:        p.period.To,
			}))
		})
	}
	g.Wait()

	if p.issues {
		r.Issues = buildIssueSection(issues, issuesErr, opts.today())
	}
	if p.timeEntries {
		r.TimeEntries = buildTimeSection(entries, entriesErr)
	}
	if p.users {
		r.Users = buildUsersSection(issues.Items, entries.Items, issuesErr, entriesErr)
	}
	return r, nil
}

func buildIssueSection(issues collected[easyprojectapi.Issue], err error, today string) *issueSection {
	if err != nil {
		return &issueSection{Error: fmt.Sprintf("failed to fetch issues: %v", err)}
	}
	summary := summarizeIssues(issues.Items, today)
	s := &issueSection{
		Summary:    &summary,
		ByStatus:   map[string]int{},
		ByPriority: map[string]int{},
		Truncated:  issues.Truncated,
	}
	for _, i := range issues.Items {
		s.ByStatus[i.Status.Name]++
		s.ByPriority[i.Priority.Name]++
	}
	return s
}

func buildTimeSection(entries collected[easyprojectapi.TimeEntry], err error) *timeSection {
	if err != nil {
		return &timeSection{Error: fmt.Sprintf("failed to fetch time entries: %v", err)}
	}
	summary := summarizeTime(entries.Items)
	s := &timeSection{
		Summary:    &summary,
		ByUser:     map[string]float64{},
		ByActivity: map[string]float64{},
		Truncated:  entries.Truncated,
	}
	for _, e := range entries.Items {
		s.ByUser[e.User.Name] += e.Hours
		s.ByActivity[e.Activity.Name] += e.Hours
	}
	for k, v := range s.ByUser {
		s.ByUser[k] = round2(v)
	}
	for k, v := range s.ByActivity {
		s.ByActivity[k] = round2(v)
	}
	return s
}

// buildUsersSection lists everyone assigned to an issue or with logged time,
// ordered by ID.
func buildUsersSection(issues []easyprojectapi.Issue, entries []easyprojectapi.TimeEntry, errs ...error) *usersSection {
	for _, err := range errs {
		if err != nil {
			return &usersSection{Error: fmt.Sprintf("failed to collect users: %v", err)}
		}
	}
	seen := map[int]*reportUser{}
	get := func(ref easyprojectapi.Reference) *reportUser {
		u, ok := seen[ref.ID]
		if !ok {
			u = &reportUser{ID: ref.ID, Name: ref.Name}
			seen[ref.ID] = u
		}
		return u
	}
	for _, i := range issues {
		if i.AssignedTo != nil {
			get(*i.AssignedTo).AssignedIssues++
		}
	}
	for _, e := range entries {
		get(e.User).LoggedHours += e.Hours
	}

	s := &usersSection{Total: len(seen)}
	for _, u := range seen {
		u.LoggedHours = round2(u.LoggedHours)
		s.Users = append(s.Users, *u)
	}
	slices.SortFunc(s.Users, func(a, b reportUser) int { return a.ID - b.ID })
	return s
}

// =============================================================================
// get_dashboard_data
// =============================================================================

type dashboardParams struct {
	ProjectIDs []int   `json:"project_ids,omitempty"`
	UserID     *int    `json:"user_id,omitempty"`
	From       *string `json:"from_date,omitempty"`
	To         *string `json:"to_date,omitempty"`
}

// singleProject narrows the upstream query when exactly one project is
// requested. Other filters are applied locally.
func (p dashboardParams) singleProject() *int {
	if len(p.ProjectIDs) == 1 {
		return &p.ProjectIDs[0]
	}
	return nil
}

func (p dashboardParams) wantsProject(id int) bool {
	return len(p.ProjectIDs) == 0 || slices.Contains(p.ProjectIDs, id)
}

// Dashboard is the get_dashboard_data aggregate.
type Dashboard struct {
	GeneratedAt string          `json:"generated_at"`
	Filters     dashboardParams `json:"filters"`
	Projects    projectCounts   `json:"projects"`
	Issues      issueCounts     `json:"issues"`
	TimeEntries timeCounts      `json:"time_entries"`
}

type projectCounts struct {
	Total     int    `json:"total"`
	Active    int    `json:"active"`
	Closed    int    `json:"closed"`
	Archived  int    `json:"archived"`
	Truncated bool   `json:"truncated,omitempty"`
	Error     string `json:"error,omitempty"`
}

type issueCounts struct {
	*IssueSummary
	Truncated bool   `json:"truncated,omitempty"`
	Error     string `json:"error,omitempty"`
}

type timeCounts struct {
	*TimeSummary
	Truncated bool   `json:"truncated,omitempty"`
	Error     string `json:"error,omitempty"`
}

func dashboard(ctx context.Context, api API, p dashboardParams, opts Options) *Dashboard {
	d := &Dashboard{
		GeneratedAt: opts.Now().UTC().Format(time.RFC3339),
		Filters:     p,
	}

	g := pool.New()
	g.Go(func() {
		d.Projects = dashboardProjects(ctx, api, p)
	})
	g.Go(func() {
		d.Issues = dashboardIssues(ctx, api, p, opts.today())
	})
	g.Go(func() {
		d.TimeEntries = dashboardTime(ctx, api, p)
	})
	g.Wait()
	return d
}

func dashboardProjects(ctx context.Context, api API, p dashboardParams) projectCounts {
	projects, err := collect(ctx, projectPages(api, easyprojectapi.ListProjectsParams{
		IncludeArchived: easyprojectapi.Ptr(true),
	}))
	if err != nil {
		return projectCounts{Error: fmt.Sprintf("failed to fetch projects: %v", err)}
	}
	c := projectCounts{Truncated: projects.Truncated}
	for _, project := range projects.Items {
		if !p.wantsProject(project.ID) {
			continue
		}
		c.Total++
		switch project.Status {
		case easyprojectapi.ProjectStatusActive:
			c.Active++
		case easyprojectapi.ProjectStatusClosed:
			c.Closed++
		case easyprojectapi.ProjectStatusArchived:
			c.Archived++
		}
	}
	return c
}

func dashboardIssues(ctx context.Context, api API, p dashboardParams, today string) issueCounts {
	issues, err := collect(ctx, issuePages(api, easyprojectapi.ListIssuesParams{
		ProjectID:    p.singleProject(),
		AssignedToID: p.UserID,
		StatusID:     easyprojectapi.Ptr("*"),
	}))
	if err != nil {
		return issueCounts{Error: fmt.Sprintf("failed to fetch issues: %v", err)}
	}
	kept := filter(issues.Items, func(i easyprojectapi.Issue) bool {
		return p.wantsProject(i.Project.ID) && inRange(i.CreatedOn, p.From, p.To)
	})
	summary := summarizeIssues(kept, today)
	return issueCounts{IssueSummary: &summary, Truncated: issues.Truncated}
}

func dashboardTime(ctx context.Context, api API, p dashboardParams) timeCounts {
	entries, err := collect(ctx, timeEntryPages(api, easyprojectapi.ListTimeEntriesParams{
		ProjectID: p.singleProject(),
		UserID:    p.UserID,
		From:      p.From,
		To:        p.To,
	}))
	if err != nil {
		return timeCounts{Error: fmt.Sprintf("failed to fetch time entries: %v", err)}
	}
	kept := filter(entries.Items, func(e easyprojectapi.TimeEntry) bool {
		return p.wantsProject(e.Project.ID)
	})
	summary := summarizeTime(kept)
	return timeCounts{TimeSummary: &summary, Truncated: entries.Truncated}
}
