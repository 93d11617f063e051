package easyproject

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"easyproject-mcp/server/internal/modules"
	"easyproject-mcp/server/pkg/easyprojectapi"
)

var errNoTimeTarget = errors.New("either issue_id or project_id is required")

type timeEntryUpdate struct {
	id int
	in easyprojectapi.TimeEntryInput
}

// TimeEntries exposes time entry CRUD and log_time.
func TimeEntries(api API, opts Options) *Module {
	opts = opts.withDefaults()
	return newModule("time_entries", "EasyProject time tracking", []entry{
		bind(
			modules.Tool{
				Name:        "list_time_entries",
				Description: "List time entries. Filter by project, issue, user and date range.",
				InputSchema: schema(map[string]modules.Property{
					"project_id": idProp("Project ID"),
					"issue_id":   idProp("Issue ID"),
					"user_id":    idProp("User ID"),
					"from_date":  dateProp("Spent on or after"),
					"to_date":    dateProp("Spent on or before"),
					"limit":      limitProp(opts.DefaultLimit),
					"offset":     offsetProp(),
				}),
				Annotations: modules.AnnotateReadOnly,
			},
			func(args modules.Args) (easyprojectapi.ListTimeEntriesParams, error) {
				r := newArgReader(args)
				p := easyprojectapi.ListTimeEntriesParams{
					ProjectID: r.int("project_id"),
					IssueID:   r.int("issue_id"),
					UserID:    r.int("user_id"),
					From:      r.date("from_date"),
					To:        r.date("to_date"),
					Limit:     r.limit(opts.DefaultLimit),
					Offset:    r.int("offset"),
				}
				return p, r.err
			},
			api.ListTimeEntries,
			func(_ easyprojectapi.ListTimeEntriesParams, list *easyprojectapi.TimeEntryList) string {
				return timeEntriesText(list)
			},
		),
		bind(
			modules.Tool{
				Name:        "get_time_entry",
				Description: "Get one time entry by ID.",
				InputSchema: schema(map[string]modules.Property{"id": idProp("Time entry ID")}, "id"),
				Annotations: modules.AnnotateReadOnly,
			},
			idArgs,
			api.GetTimeEntry,
			func(_ int, e *easyprojectapi.TimeEntry) string {
				return timeEntryMarkdown(e)
			},
		),
		bind(
			modules.Tool{
				Name:        "create_time_entry",
				Description: "Create a time entry on an issue or a project.",
				InputSchema: schema(timeEntryProps(), "hours", "spent_on"),
				Annotations: modules.AnnotateCreate,
			},
			func(args modules.Args) (easyprojectapi.TimeEntryInput, error) {
				in, err := decodeTimeEntryInput(args)
				if err == nil && in.IssueID == nil && in.ProjectID == nil {
					err = errNoTimeTarget
				}
				return in, err
			},
			api.CreateTimeEntry,
			func(_ easyprojectapi.TimeEntryInput, e *easyprojectapi.TimeEntry) string {
				return confirm(fmt.Sprintf("Created time entry #%d.", e.ID), timeEntryMarkdown(e))
			},
		),
		bind(
			modules.Tool{
				Name:        "update_time_entry",
				Description: "Update a time entry. Only the given fields change.",
				InputSchema: schema(withID(timeEntryProps(), "Time entry ID"), "id"),
				Annotations: modules.AnnotateUpdate,
			},
			func(args modules.Args) (timeEntryUpdate, error) {
				id, err := idArgs(args)
				if err != nil {
					return timeEntryUpdate{}, err
				}
				in, err := decodeTimeEntryInput(args)
				return timeEntryUpdate{id: id, in: in}, err
			},
			func(ctx context.Context, u timeEntryUpdate) (*easyprojectapi.TimeEntry, error) {
				return api.UpdateTimeEntry(ctx, u.id, u.in)
			},
			func(u timeEntryUpdate, e *easyprojectapi.TimeEntry) string {
				return confirm(fmt.Sprintf("Updated time entry #%d.", u.id), timeEntryMarkdown(e))
			},
		),
		deleteEntry("delete_time_entry", "time entry", api.DeleteTimeEntry),
		bind(
			modules.Tool{
				Name:        "log_time",
				Description: "Log hours worked on an issue or a project. The date defaults to today.",
				InputSchema: schema(map[string]modules.Property{
					"hours":       hoursProp(),
					"issue_id":    idProp("Issue ID"),
					"project_id":  idProp("Project ID, used when no issue is given"),
					"date":        dateProp("Day the work was done. Default: today"),
					"activity_id": idProp("Activity ID"),
					"comments":    {Type: "string", Description: "What was done"},
				}, "hours"),
				Annotations: modules.AnnotateCreate,
			},
			func(args modules.Args) (easyprojectapi.TimeEntryInput, error) {
				r := newArgReader(args)
				in := easyprojectapi.TimeEntryInput{
					Hours:      r.float("hours"),
					IssueID:    r.int("issue_id"),
					ProjectID:  r.int("project_id"),
					SpentOn:    r.date("date"),
					ActivityID: r.int("activity_id"),
					Comments:   r.str("comments"),
				}
				if r.err != nil {
					return in, r.err
				}
				if in.IssueID == nil && in.ProjectID == nil {
					return in, errNoTimeTarget
				}
				if in.SpentOn == nil {
					in.SpentOn = easyprojectapi.Ptr(opts.today())
				}
				return in, nil
			},
			api.CreateTimeEntry,
			func(in easyprojectapi.TimeEntryInput, e *easyprojectapi.TimeEntry) string {
				return confirm(fmt.Sprintf("Logged %s h on %s (entry #%d).", hours(*in.Hours), *in.SpentOn, e.ID), timeEntryMarkdown(e))
			},
		),
	})
}

func hoursProp() modules.Property {
	return modules.Property{Type: "number", Description: "Hours (0.01-24)", Minimum: modules.Bound(0.01), Maximum: modules.Bound(24)}
}

func timeEntryProps() map[string]modules.Property {
	return map[string]modules.Property{
		"issue_id":    idProp("Issue ID"),
		"project_id":  idProp("Project ID"),
		"user_id":     idProp("User the time is logged for"),
		"spent_on":    dateProp("Day the work was done"),
		"hours":       hoursProp(),
		"activity_id": idProp("Activity ID"),
		"comments":    {Type: "string", Description: "Comments"},
	}
}

func decodeTimeEntryInput(args modules.Args) (easyprojectapi.TimeEntryInput, error) {
	r := newArgReader(args)
	in := easyprojectapi.TimeEntryInput{
		IssueID:    r.int("issue_id"),
		ProjectID:  r.int("project_id"),
		UserID:     r.int("user_id"),
		SpentOn:    r.date("spent_on"),
		Hours:      r.float("hours"),
		ActivityID: r.int("activity_id"),
		Comments:   r.str("comments"),
	}
	return in, r.err
}
