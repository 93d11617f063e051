package easyproject

import (
	"context"
	"fmt"

	"easyproject-mcp/server/internal/modules"
	"easyproject-mcp/server/pkg/easyprojectapi"
)

type projectUpdate struct {
	id int
	in easyprojectapi.ProjectInput
}

// Projects exposes the project CRUD tools.
func Projects(api API, opts Options) *Module {
	opts = opts.withDefaults()
	return newModule("projects", "EasyProject projects", []entry{
		bind(
			modules.Tool{
				Name:        "list_projects",
				Description: "List projects with pagination, free-text search and sorting.",
				InputSchema: schema(map[string]modules.Property{
					"limit":            limitProp(opts.DefaultLimit),
					"offset":           offsetProp(),
					"include_archived": {Type: "boolean", Description: "Include archived projects"},
					"search":           {Type: "string", Description: "Free-text search"},
					"sort":             {Type: "string", Description: "Sort expression, e.g. name or updated_on:desc"},
				}),
				Annotations: modules.AnnotateReadOnly,
			},
			func(args modules.Args) (easyprojectapi.ListProjectsParams, error) {
				r := newArgReader(args)
				p := easyprojectapi.ListProjectsParams{
					Limit:           r.limit(opts.DefaultLimit),
					Offset:          r.int("offset"),
					IncludeArchived: r.bool("include_archived"),
					Search:          r.str("search"),
					Sort:            r.str("sort"),
				}
				return p, r.err
			},
			api.ListProjects,
			func(_ easyprojectapi.ListProjectsParams, list *easyprojectapi.ProjectList) string {
				return projectsText(list)
			},
		),
		bind(
			modules.Tool{
				Name:        "get_project",
				Description: "Get one project by ID.",
				InputSchema: schema(map[string]modules.Property{
					"id":      idProp("Project ID"),
					"include": includeProp("trackers", "issue_categories", "enabled_modules"),
				}, "id"),
				Annotations: modules.AnnotateReadOnly,
			},
			func(args modules.Args) (getParams, error) {
				r := newArgReader(args)
				p := getParams{id: r.requiredInt("id"), include: r.strs("include")}
				return p, r.err
			},
			func(ctx context.Context, p getParams) (*easyprojectapi.Project, error) {
				return api.GetProject(ctx, p.id, p.include)
			},
			func(_ getParams, p *easyprojectapi.Project) string {
				return projectMarkdown(p)
			},
		),
		bind(
			modules.Tool{
				Name:        "create_project",
				Description: "Create a project.",
				InputSchema: schema(projectProps(), "name", "identifier"),
				Annotations: modules.AnnotateCreate,
			},
			decodeProjectInput,
			api.CreateProject,
			func(_ easyprojectapi.ProjectInput, p *easyprojectapi.Project) string {
				return confirm(fmt.Sprintf("Created project #%d.", p.ID), projectMarkdown(p))
			},
		),
		bind(
			modules.Tool{
				Name:        "update_project",
				Description: "Update a project. Only the given fields change.",
				InputSchema: schema(withID(projectProps(), "Project ID"), "id"),
				Annotations: modules.AnnotateUpdate,
			},
			func(args modules.Args) (projectUpdate, error) {
				id, err := idArgs(args)
				if err != nil {
					return projectUpdate{}, err
				}
				in, err := decodeProjectInput(args)
				return projectUpdate{id: id, in: in}, err
			},
			func(ctx context.Context, u projectUpdate) (*easyprojectapi.Project, error) {
				return api.UpdateProject(ctx, u.id, u.in)
			},
			func(u projectUpdate, p *easyprojectapi.Project) string {
				return confirm(fmt.Sprintf("Updated project #%d.", u.id), projectMarkdown(p))
			},
		),
		deleteEntry("delete_project", "project", api.DeleteProject),
	})
}

func projectProps() map[string]modules.Property {
	return map[string]modules.Property{
		"name":                 {Type: "string", Description: "Project name"},
		"identifier":           {Type: "string", Description: "Unique identifier (lowercase letters, digits, dashes, underscores)", Pattern: `^[a-z][a-z0-9_-]*$`},
		"description":          {Type: "string", Description: "Project description"},
		"homepage":             {Type: "string", Description: "Homepage URL"},
		"is_public":            {Type: "boolean", Description: "Whether the project is public"},
		"parent_id":            idProp("Parent project ID"),
		"inherit_members":      {Type: "boolean", Description: "Inherit members from the parent project"},
		"tracker_ids":          {Type: "array", Description: "Enabled tracker IDs", Items: &modules.Property{Type: "integer"}},
		"enabled_module_names": {Type: "array", Description: "Enabled module names", Items: &modules.Property{Type: "string"}},
	}
}

func decodeProjectInput(args modules.Args) (easyprojectapi.ProjectInput, error) {
	r := newArgReader(args)
	in := easyprojectapi.ProjectInput{
		Name:               r.str("name"),
		Identifier:         r.str("identifier"),
		Description:        r.str("description"),
		Homepage:           r.str("homepage"),
		IsPublic:           r.bool("is_public"),
		ParentID:           r.int("parent_id"),
		InheritMembers:     r.bool("inherit_members"),
		TrackerIDs:         r.ints("tracker_ids"),
		EnabledModuleNames: r.strs("enabled_module_names"),
	}
	return in, r.err
}

// =============================================================================
// Shared by every category
// =============================================================================

type getParams struct {
	id      int
	include []string
}

// withID adds a required "id" property to an input property set.
func withID(props map[string]modules.Property, what string) map[string]modules.Property {
	props["id"] = idProp(what)
	return props
}

func deleteEntry(name, noun string, del func(context.Context, int) error) entry {
	return bind(
		modules.Tool{
			Name:        name,
			Description: fmt.Sprintf("Delete a %s by ID. This cannot be undone.", noun),
			InputSchema: schema(map[string]modules.Property{"id": idProp(noun + " ID")}, "id"),
			Annotations: modules.AnnotateDelete,
		},
		idArgs,
		func(ctx context.Context, id int) (struct{}, error) {
			return struct{}{}, del(ctx, id)
		},
		func(id int, _ struct{}) string {
			return fmt.Sprintf("Deleted %s #%d.", noun, id)
		},
	)
}
