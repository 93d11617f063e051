// Package easyproject exposes the EasyProject API as MCP tools, one module
// per tool category.
package easyproject

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"

	"easyproject-mcp/server/internal/config"
	"easyproject-mcp/server/internal/modules"
	"easyproject-mcp/server/pkg/easyprojectapi"
)

// API is the subset of *easyprojectapi.Client the tools call.
type API interface {
	ListProjects(ctx context.Context, p easyprojectapi.ListProjectsParams) (*easyprojectapi.ProjectList, error)
	GetProject(ctx context.Context, id int, include []string) (*easyprojectapi.Project, error)
	CreateProject(ctx context.Context, in easyprojectapi.ProjectInput) (*easyprojectapi.Project, error)
	UpdateProject(ctx context.Context, id int, in easyprojectapi.ProjectInput) (*easyprojectapi.Project, error)
	DeleteProject(ctx context.Context, id int) error

	ListIssues(ctx context.Context, p easyprojectapi.ListIssuesParams) (*easyprojectapi.IssueList, error)
	GetIssue(ctx context.Context, id int, include []string) (*easyprojectapi.Issue, error)
	CreateIssue(ctx context.Context, in easyprojectapi.IssueInput) (*easyprojectapi.Issue, error)
	UpdateIssue(ctx context.Context, id int, in easyprojectapi.IssueInput) (*easyprojectapi.Issue, error)
	DeleteIssue(ctx context.Context, id int) error
	GetIssueEnumerations(ctx context.Context, projectID *int) (*easyprojectapi.IssueEnumerations, error)

	ListUsers(ctx context.Context, p easyprojectapi.ListUsersParams) (*easyprojectapi.UserList, error)
	GetUser(ctx context.Context, id int, include []string) (*easyprojectapi.User, error)
	GetCurrentUser(ctx context.Context) (*easyprojectapi.User, error)

	ListTimeEntries(ctx context.Context, p easyprojectapi.ListTimeEntriesParams) (*easyprojectapi.TimeEntryList, error)
	GetTimeEntry(ctx context.Context, id int) (*easyprojectapi.TimeEntry, error)
	CreateTimeEntry(ctx context.Context, in easyprojectapi.TimeEntryInput) (*easyprojectapi.TimeEntry, error)
	UpdateTimeEntry(ctx context.Context, id int, in easyprojectapi.TimeEntryInput) (*easyprojectapi.TimeEntry, error)
	DeleteTimeEntry(ctx context.Context, id int) error

	ListVersions(ctx context.Context, p easyprojectapi.ListVersionsParams) (*easyprojectapi.VersionList, error)
	GetVersion(ctx context.Context, id int) (*easyprojectapi.Version, error)
	CreateVersion(ctx context.Context, projectID int, in easyprojectapi.VersionInput) (*easyprojectapi.Version, error)
	UpdateVersion(ctx context.Context, id int, in easyprojectapi.VersionInput) (*easyprojectapi.Version, error)
	DeleteVersion(ctx context.Context, id int) error
}

var _ API = (*easyprojectapi.Client)(nil)

// Options are shared by every category.
type Options struct {
	// DefaultLimit is sent as limit when a list call omits it.
	DefaultLimit int
	// Now supplies "today" for log_time and overdue checks.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.DefaultLimit <= 0 {
		o.DefaultLimit = 25
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

func (o Options) today() string {
	return o.Now().Format(modules.DateLayout)
}

// Module is one tool category. It implements modules.Module.
type Module struct {
	name        string
	description string
	tools       []modules.Tool
	handlers    map[string]handler
}

type handler func(ctx context.Context, args modules.Args) (string, error)

// entry pairs a tool definition with its handler.
type entry struct {
	tool   modules.Tool
	handle handler
}

// bind builds a handler from three steps: decode the arguments into P, call
// the API, render the result.
func bind[P, R any](
	tool modules.Tool,
	decode func(modules.Args) (P, error),
	call func(context.Context, P) (R, error),
	render func(P, R) string,
) entry {
	return entry{
		tool: tool,
		handle: func(ctx context.Context, args modules.Args) (string, error) {
			p, err := decode(args)
			if err != nil {
				return "", err
			}
			r, err := call(ctx, p)
			if err != nil {
				return "", err
			}
			return render(p, r), nil
		},
	}
}

func newModule(name, description string, entries []entry) *Module {
	m := &Module{
		name:        name,
		description: description,
		handlers:    make(map[string]handler, len(entries)),
	}
	for _, e := range entries {
		m.tools = append(m.tools, e.tool)
		m.handlers[e.tool.Name] = e.handle
	}
	return m
}

func (m *Module) Name() string { return m.name }

func (m *Module) Description() string { return m.description }

func (m *Module) Tools() []modules.Tool { return m.tools }

// ExecuteTool executes a tool by name and returns the rendered text
func (m *Module) ExecuteTool(ctx context.Context, name string, params map[string]any) (string, error) {
	h, ok := m.handlers[name]
	if !ok {
		return "", errors.Errorf("unknown tool: %s", name)
	}
	return h(ctx, modules.Args(params))
}

// Enabled returns the modules switched on in cfg, in catalog order.
func Enabled(api API, cfg config.ToolsConfig, opts Options) []*Module {
	if opts.DefaultLimit == 0 {
		opts.DefaultLimit = cfg.DefaultLimit
	}
	opts = opts.withDefaults()

	var out []*Module
	if cfg.Projects {
		out = append(out, Projects(api, opts))
	}
	if cfg.Issues {
		out = append(out, Issues(api, opts))
	}
	if cfg.Users {
		out = append(out, Users(api, opts))
	}
	if cfg.TimeEntries {
		out = append(out, TimeEntries(api, opts))
	}
	if cfg.Milestones {
		out = append(out, Milestones(api, opts))
	}
	if cfg.Reports {
		out = append(out, Reports(api, opts))
	}
	return out
}

// =============================================================================
// Argument decoding
// =============================================================================

// argReader keeps the first decoding error so decoders read as a flat list
// of fields.
type argReader struct {
	args modules.Args
	err  error
}

func newArgReader(args modules.Args) *argReader {
	return &argReader{args: args}
}

func (r *argReader) int(name string) *int {
	if r.err != nil {
		return nil
	}
	v, err := r.args.Int(name)
	r.err = err
	return v
}

func (r *argReader) requiredInt(name string) int {
	v := r.int(name)
	if v == nil {
		if r.err == nil {
			r.err = errors.Errorf("missing required parameter(s): %s", name)
		}
		return 0
	}
	return *v
}

func (r *argReader) float(name string) *float64 {
	if r.err != nil {
		return nil
	}
	v, err := r.args.Float(name)
	r.err = err
	return v
}

func (r *argReader) str(name string) *string {
	if r.err != nil {
		return nil
	}
	v, err := r.args.String(name)
	r.err = err
	return v
}

func (r *argReader) bool(name string) *bool {
	if r.err != nil {
		return nil
	}
	v, err := r.args.Bool(name)
	r.err = err
	return v
}

func (r *argReader) date(name string) *string {
	if r.err != nil {
		return nil
	}
	v, err := r.args.Date(name)
	r.err = err
	return v
}

func (r *argReader) ints(name string) []int {
	if r.err != nil {
		return nil
	}
	v, err := r.args.IntSlice(name)
	r.err = err
	return v
}

func (r *argReader) strs(name string) []string {
	if r.err != nil {
		return nil
	}
	v, err := r.args.StringSlice(name)
	r.err = err
	return v
}

// limit reads "limit", falling back to the configured default.
func (r *argReader) limit(def int) *int {
	if v := r.int("limit"); v != nil {
		return v
	}
	return &def
}

// =============================================================================
// Shared schema fragments
// =============================================================================

const datePattern = `^\d{4}-\d{2}-\d{2}$`

func idProp(what string) modules.Property {
	return modules.Property{Type: "integer", Description: what, Minimum: modules.Bound(1)}
}

func dateProp(what string) modules.Property {
	return modules.Property{Type: "string", Description: what + " (YYYY-MM-DD)", Pattern: datePattern}
}

func limitProp(def int) modules.Property {
	return modules.Property{
		Type:        "integer",
		Description: fmt.Sprintf("Maximum number of results (1-100). Default: %d", def),
		Minimum:     modules.Bound(1),
		Maximum:     modules.Bound(100),
		Default:     def,
	}
}

func offsetProp() modules.Property {
	return modules.Property{Type: "integer", Description: "Number of results to skip", Minimum: modules.Bound(0)}
}

func includeProp(values ...string) modules.Property {
	enum := make([]any, len(values))
	for i, v := range values {
		enum[i] = v
	}
	return modules.Property{
		Type:        "array",
		Description: "Associations to include",
		Items:       &modules.Property{Type: "string", Enum: enum},
	}
}

func schema(props map[string]modules.Property, required ...string) modules.InputSchema {
	if props == nil {
		props = map[string]modules.Property{}
	}
	return modules.InputSchema{Type: "object", Properties: props, Required: required}
}

// noArgs decodes tools that take no parameters.
func noArgs(modules.Args) (struct{}, error) { return struct{}{}, nil }

// idArgs decodes tools whose only parameter is "id".
func idArgs(args modules.Args) (int, error) {
	r := newArgReader(args)
	id := r.requiredInt("id")
	return id, r.err
}
