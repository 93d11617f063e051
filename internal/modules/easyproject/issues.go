package easyproject

import (
	"context"
	"fmt"
	"strings"

	"easyproject-mcp/server/internal/modules"
	"easyproject-mcp/server/pkg/easyprojectapi"
)

type issueUpdate struct {
	id int
	in easyprojectapi.IssueInput
}

// Issues exposes issue CRUD plus the assign, complete and enumeration tools.
func Issues(api API, opts Options) *Module {
	opts = opts.withDefaults()
	return newModule("issues", "EasyProject issues and tasks", []entry{
		bind(
			modules.Tool{
				Name:        "list_issues",
				Description: "List issues. Filter by project, status, priority, tracker or assignee.",
				InputSchema: schema(map[string]modules.Property{
					"project_id":     idProp("Project ID"),
					"status_id":      {Type: "string", Description: `Status ID, or "open", "closed", "*" for any`},
					"priority_id":    idProp("Priority ID"),
					"tracker_id":     idProp("Tracker ID"),
					"assigned_to_id": idProp("Assignee user ID"),
					"limit":          limitProp(opts.DefaultLimit),
					"offset":         offsetProp(),
					"include":        includeProp(issueIncludes...),
					"sort":           {Type: "string", Description: "Sort expression, e.g. priority:desc,updated_on"},
					"search":         {Type: "string", Description: "Free-text search"},
				}),
				Annotations: modules.AnnotateReadOnly,
			},
			func(args modules.Args) (easyprojectapi.ListIssuesParams, error) {
				r := newArgReader(args)
				p := easyprojectapi.ListIssuesParams{
					ProjectID:    r.int("project_id"),
					StatusID:     r.str("status_id"),
					PriorityID:   r.int("priority_id"),
					TrackerID:    r.int("tracker_id"),
					AssignedToID: r.int("assigned_to_id"),
					Limit:        r.limit(opts.DefaultLimit),
					Offset:       r.int("offset"),
					Include:      r.strs("include"),
					Sort:         r.str("sort"),
					Search:       r.str("search"),
				}
				return p, r.err
			},
			api.ListIssues,
			func(_ easyprojectapi.ListIssuesParams, list *easyprojectapi.IssueList) string {
				return issuesText(list)
			},
		),
		bind(
			modules.Tool{
				Name:        "get_issue",
				Description: "Get one issue by ID.",
				InputSchema: schema(map[string]modules.Property{
					"id":      idProp("Issue ID"),
					"include": includeProp(issueIncludes...),
				}, "id"),
				Annotations: modules.AnnotateReadOnly,
			},
			func(args modules.Args) (getParams, error) {
				r := newArgReader(args)
				p := getParams{id: r.requiredInt("id"), include: r.strs("include")}
				return p, r.err
			},
			func(ctx context.Context, p getParams) (*easyprojectapi.Issue, error) {
				return api.GetIssue(ctx, p.id, p.include)
			},
			func(_ getParams, i *easyprojectapi.Issue) string {
				return issueMarkdown(i)
			},
		),
		bind(
			modules.Tool{
				Name:        "create_issue",
				Description: "Create an issue.",
				InputSchema: schema(issueProps(), "project_id", "subject"),
				Annotations: modules.AnnotateCreate,
			},
			decodeIssueInput,
			api.CreateIssue,
			func(_ easyprojectapi.IssueInput, i *easyprojectapi.Issue) string {
				return confirm(fmt.Sprintf("Created issue #%d.", i.ID), issueMarkdown(i))
			},
		),
		bind(
			modules.Tool{
				Name:        "update_issue",
				Description: "Update an issue. Only the given fields change; notes are added to the history.",
				InputSchema: schema(withID(issueProps(), "Issue ID"), "id"),
				Annotations: modules.AnnotateUpdate,
			},
			func(args modules.Args) (issueUpdate, error) {
				id, err := idArgs(args)
				if err != nil {
					return issueUpdate{}, err
				}
				in, err := decodeIssueInput(args)
				return issueUpdate{id: id, in: in}, err
			},
			updateIssue(api),
			renderIssueUpdate("Updated issue #%d."),
		),
		deleteEntry("delete_issue", "issue", api.DeleteIssue),
		bind(
			modules.Tool{
				Name:        "assign_issue",
				Description: "Assign an issue to a user.",
				InputSchema: schema(map[string]modules.Property{
					"id":             idProp("Issue ID"),
					"assigned_to_id": idProp("Assignee user ID"),
					"notes":          {Type: "string", Description: "Comment added to the history"},
				}, "id", "assigned_to_id"),
				Annotations: modules.AnnotateUpdate,
			},
			func(args modules.Args) (issueUpdate, error) {
				r := newArgReader(args)
				id := r.requiredInt("id")
				assignee := r.requiredInt("assigned_to_id")
				u := issueUpdate{id: id, in: easyprojectapi.IssueInput{
					AssignedToID: &assignee,
					Notes:        r.str("notes"),
				}}
				return u, r.err
			},
			updateIssue(api),
			renderIssueUpdate("Assigned issue #%d."),
		),
		bind(
			modules.Tool{
				Name:        "complete_task",
				Description: "Mark an issue as done: set its done ratio (default 100) and optionally its status.",
				InputSchema: schema(map[string]modules.Property{
					"id":         idProp("Issue ID"),
					"done_ratio": {Type: "integer", Description: "Done ratio in percent. Default: 100", Minimum: modules.Bound(0), Maximum: modules.Bound(100), Default: 100},
					"status_id":  idProp("Status to move the issue to, e.g. a closed status"),
					"notes":      {Type: "string", Description: "Comment added to the history"},
				}, "id"),
				Annotations: modules.AnnotateUpdate,
			},
			func(args modules.Args) (issueUpdate, error) {
				r := newArgReader(args)
				id := r.requiredInt("id")
				ratio := r.int("done_ratio")
				if ratio == nil {
					ratio = easyprojectapi.Ptr(100)
				}
				u := issueUpdate{id: id, in: easyprojectapi.IssueInput{
					DoneRatio: ratio,
					StatusID:  r.int("status_id"),
					Notes:     r.str("notes"),
				}}
				return u, r.err
			},
			updateIssue(api),
			renderIssueUpdate("Completed issue #%d."),
		),
		bind(
			modules.Tool{
				Name: "get_issue_enumerations",
				Description: "List the issue statuses, priorities and trackers in use, " +
					"collected from existing issues. Optionally limited to one project.",
				InputSchema: schema(map[string]modules.Property{
					"project_id": idProp("Project ID"),
				}),
				Annotations: modules.AnnotateReadOnly,
			},
			func(args modules.Args) (*int, error) {
				r := newArgReader(args)
				id := r.int("project_id")
				return id, r.err
			},
			api.GetIssueEnumerations,
			func(_ *int, e *easyprojectapi.IssueEnumerations) string {
				return enumerationsText(e)
			},
		),
	})
}

var issueIncludes = []string{"children", "attachments", "relations", "changesets", "journals", "watchers"}

func issueProps() map[string]modules.Property {
	return map[string]modules.Property{
		"project_id":       idProp("Project ID"),
		"tracker_id":       idProp("Tracker ID"),
		"status_id":        idProp("Status ID"),
		"priority_id":      idProp("Priority ID"),
		"subject":          {Type: "string", Description: "Subject"},
		"description":      {Type: "string", Description: "Description"},
		"category_id":      idProp("Category ID"),
		"fixed_version_id": idProp("Milestone ID"),
		"assigned_to_id":   idProp("Assignee user ID"),
		"parent_issue_id":  idProp("Parent issue ID"),
		"estimated_hours":  {Type: "number", Description: "Estimated hours", Minimum: modules.Bound(0)},
		"done_ratio":       {Type: "integer", Description: "Done ratio in percent", Minimum: modules.Bound(0), Maximum: modules.Bound(100)},
		"start_date":       dateProp("Start date"),
		"due_date":         dateProp("Due date"),
		"notes":            {Type: "string", Description: "Comment added to the history"},
	}
}

func decodeIssueInput(args modules.Args) (easyprojectapi.IssueInput, error) {
	r := newArgReader(args)
	in := easyprojectapi.IssueInput{
		ProjectID:      r.int("project_id"),
		TrackerID:      r.int("tracker_id"),
		StatusID:       r.int("status_id"),
		PriorityID:     r.int("priority_id"),
		Subject:        r.str("subject"),
		Description:    r.str("description"),
		CategoryID:     r.int("category_id"),
		FixedVersionID: r.int("fixed_version_id"),
		AssignedToID:   r.int("assigned_to_id"),
		ParentIssueID:  r.int("parent_issue_id"),
		EstimatedHours: r.float("estimated_hours"),
		DoneRatio:      r.int("done_ratio"),
		StartDate:      r.date("start_date"),
		DueDate:        r.date("due_date"),
		Notes:          r.str("notes"),
	}
	return in, r.err
}

func updateIssue(api API) func(context.Context, issueUpdate) (*easyprojectapi.Issue, error) {
	return func(ctx context.Context, u issueUpdate) (*easyprojectapi.Issue, error) {
		return api.UpdateIssue(ctx, u.id, u.in)
	}
}

func renderIssueUpdate(format string) func(issueUpdate, *easyprojectapi.Issue) string {
	return func(u issueUpdate, i *easyprojectapi.Issue) string {
		return confirm(fmt.Sprintf(format, u.id), issueMarkdown(i))
	}
}

func enumerationsText(e *easyprojectapi.IssueEnumerations) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Issue enumerations (%d pages scanned", e.PagesScanned)
	if e.Truncated {
		sb.WriteString(", truncated")
	}
	sb.WriteString(")\n")
	for _, group := range []struct {
		title string
		refs  []easyprojectapi.Reference
	}{
		{"Statuses", e.Statuses},
		{"Priorities", e.Priorities},
		{"Trackers", e.Trackers},
	} {
		rows := make([][]string, 0, len(group.refs))
		for _, ref := range group.refs {
			rows = append(rows, []string{itoa(ref.ID), ref.Name})
		}
		fmt.Fprintf(&sb, "\n## %s\n", group.title)
		if len(rows) == 0 {
			sb.WriteString("(none found)\n")
			continue
		}
		sb.WriteString(csvBlock([]string{"id", "name"}, rows) + "\n")
	}
	return strings.TrimSuffix(sb.String(), "\n")
}
