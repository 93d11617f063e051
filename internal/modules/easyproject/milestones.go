package easyproject

import (
	"context"
	"fmt"

	"easyproject-mcp/server/internal/modules"
	"easyproject-mcp/server/pkg/easyprojectapi"
)

type milestoneCreate struct {
	projectID int
	in        easyprojectapi.VersionInput
}

type milestoneUpdate struct {
	id int
	in easyprojectapi.VersionInput
}

var milestoneStatuses = []any{"open", "locked", "closed"}

// Milestones exposes project versions as milestones.
func Milestones(api API, opts Options) *Module {
	opts = opts.withDefaults()
	return newModule("milestones", "EasyProject milestones (project versions)", []entry{
		bind(
			modules.Tool{
				Name:        "list_milestones",
				Description: "List milestones, optionally of one project.",
				InputSchema: schema(map[string]modules.Property{
					"project_id": idProp("Project ID"),
					"status":     {Type: "string", Description: "Milestone status", Enum: milestoneStatuses},
					"limit":      limitProp(opts.DefaultLimit),
					"offset":     offsetProp(),
					"search":     {Type: "string", Description: "Free-text search"},
				}),
				Annotations: modules.AnnotateReadOnly,
			},
			func(args modules.Args) (easyprojectapi.ListVersionsParams, error) {
				r := newArgReader(args)
				p := easyprojectapi.ListVersionsParams{
					ProjectID: r.int("project_id"),
					Status:    r.str("status"),
					Limit:     r.limit(opts.DefaultLimit),
					Offset:    r.int("offset"),
					Search:    r.str("search"),
				}
				return p, r.err
			},
			api.ListVersions,
			func(_ easyprojectapi.ListVersionsParams, list *easyprojectapi.VersionList) string {
				return versionsText(list)
			},
		),
		bind(
			modules.Tool{
				Name:        "get_milestone",
				Description: "Get one milestone by ID.",
				InputSchema: schema(map[string]modules.Property{"id": idProp("Milestone ID")}, "id"),
				Annotations: modules.AnnotateReadOnly,
			},
			idArgs,
			api.GetVersion,
			func(_ int, v *easyprojectapi.Version) string {
				return versionMarkdown(v)
			},
		),
		bind(
			modules.Tool{
				Name:        "create_milestone",
				Description: "Create a milestone in a project.",
				InputSchema: schema(withProjectID(milestoneProps()), "project_id", "name"),
				Annotations: modules.AnnotateCreate,
			},
			func(args modules.Args) (milestoneCreate, error) {
				r := newArgReader(args)
				projectID := r.requiredInt("project_id")
				if r.err != nil {
					return milestoneCreate{}, r.err
				}
				in, err := decodeVersionInput(args)
				return milestoneCreate{projectID: projectID, in: in}, err
			},
			func(ctx context.Context, c milestoneCreate) (*easyprojectapi.Version, error) {
				return api.CreateVersion(ctx, c.projectID, c.in)
			},
			func(_ milestoneCreate, v *easyprojectapi.Version) string {
				return confirm(fmt.Sprintf("Created milestone #%d.", v.ID), versionMarkdown(v))
			},
		),
		bind(
			modules.Tool{
				Name:        "update_milestone",
				Description: "Update a milestone. Only the given fields change.",
				InputSchema: schema(withID(milestoneProps(), "Milestone ID"), "id"),
				Annotations: modules.AnnotateUpdate,
			},
			func(args modules.Args) (milestoneUpdate, error) {
				id, err := idArgs(args)
				if err != nil {
					return milestoneUpdate{}, err
				}
				in, err := decodeVersionInput(args)
				return milestoneUpdate{id: id, in: in}, err
			},
			func(ctx context.Context, u milestoneUpdate) (*easyprojectapi.Version, error) {
				return api.UpdateVersion(ctx, u.id, u.in)
			},
			func(u milestoneUpdate, v *easyprojectapi.Version) string {
				return confirm(fmt.Sprintf("Updated milestone #%d.", u.id), versionMarkdown(v))
			},
		),
		deleteEntry("delete_milestone", "milestone", api.DeleteVersion),
	})
}

func withProjectID(props map[string]modules.Property) map[string]modules.Property {
	props["project_id"] = idProp("Project ID")
	return props
}

func milestoneProps() map[string]modules.Property {
	return map[string]modules.Property{
		"name":                    {Type: "string", Description: "Milestone name"},
		"description":             {Type: "string", Description: "Description"},
		"status":                  {Type: "string", Description: "Milestone status", Enum: milestoneStatuses},
		"sharing":                 {Type: "string", Description: "Sharing scope", Enum: []any{"none", "descendants", "hierarchy", "tree", "system"}},
		"effective_date":          dateProp("Due date"),
		"due_date":                dateProp("Due date (EasyProject alias)"),
		"default_project_version": {Type: "boolean", Description: "Make this the project's default milestone"},
		"easy_external_id":        {Type: "string", Description: "External identifier"},
	}
}

func decodeVersionInput(args modules.Args) (easyprojectapi.VersionInput, error) {
	r := newArgReader(args)
	in := easyprojectapi.VersionInput{
		Name:                  r.str("name"),
		Description:           r.str("description"),
		Status:                r.str("status"),
		Sharing:               r.str("sharing"),
		EffectiveDate:         r.date("effective_date"),
		DueDate:               r.date("due_date"),
		DefaultProjectVersion: r.bool("default_project_version"),
		EasyExternalID:        r.str("easy_external_id"),
	}
	return in, r.err
}
