package easyproject

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"easyproject-mcp/server/internal/modules"
	"easyproject-mcp/server/pkg/easyprojectapi"
)

// =============================================================================
// Lists → header + CSV
// =============================================================================

func listHeader(noun string, shown int, page easyprojectapi.Page) string {
	return fmt.Sprintf("# %d of %d %s (offset %d)", shown, page.TotalCount, noun, page.Offset)
}

func csvBlock(header []string, rows [][]string) string {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(header)
	_ = w.WriteAll(rows)
	return "```csv\n" + buf.String() + "```"
}

func listOutput(noun string, page easyprojectapi.Page, header []string, rows [][]string) string {
	head := listHeader(noun, len(rows), page)
	if len(rows) == 0 {
		return head
	}
	return head + "\n" + csvBlock(header, rows)
}

func projectsText(list *easyprojectapi.ProjectList) string {
	rows := make([][]string, 0, len(list.Projects))
	for _, p := range list.Projects {
		rows = append(rows, []string{itoa(p.ID), p.Identifier, p.Name, p.StatusName(), refName(p.Parent), date(p.UpdatedOn)})
	}
	return listOutput("projects", list.Page, []string{"id", "identifier", "name", "status", "parent", "updated"}, rows)
}

func issuesText(list *easyprojectapi.IssueList) string {
	rows := make([][]string, 0, len(list.Issues))
	for _, i := range list.Issues {
		rows = append(rows, []string{
			itoa(i.ID), i.Project.Name, i.Tracker.Name, i.Status.Name, i.Priority.Name,
			i.Subject, refName(i.AssignedTo), itoa(i.DoneRatio), i.DueDate,
		})
	}
	return listOutput("issues", list.Page,
		[]string{"id", "project", "tracker", "status", "priority", "subject", "assignee", "done", "due"}, rows)
}

func usersText(list *easyprojectapi.UserList) string {
	rows := make([][]string, 0, len(list.Users))
	for _, u := range list.Users {
		rows = append(rows, []string{itoa(u.ID), u.Login, u.FullName(), u.Mail, strconv.FormatBool(u.Admin)})
	}
	return listOutput("users", list.Page, []string{"id", "login", "name", "mail", "admin"}, rows)
}

func timeEntriesText(list *easyprojectapi.TimeEntryList) string {
	rows := make([][]string, 0, len(list.TimeEntries))
	for _, e := range list.TimeEntries {
		issue := ""
		if e.Issue != nil {
			issue = itoa(e.Issue.ID)
		}
		rows = append(rows, []string{itoa(e.ID), e.SpentOn, hours(e.Hours), e.User.Name, e.Project.Name, issue, e.Activity.Name, e.Comments})
	}
	return listOutput("time entries", list.Page,
		[]string{"id", "spent_on", "hours", "user", "project", "issue", "activity", "comments"}, rows)
}

func versionsText(list *easyprojectapi.VersionList) string {
	rows := make([][]string, 0, len(list.Versions))
	for _, v := range list.Versions {
		rows = append(rows, []string{itoa(v.ID), v.Project.Name, v.Name, v.Status, v.EffectiveDate, v.Sharing})
	}
	return listOutput("milestones", list.Page, []string{"id", "project", "name", "status", "due", "sharing"}, rows)
}

// =============================================================================
// Single entities → markdown
// =============================================================================

type mdBuilder struct {
	sb strings.Builder
}

func newMarkdown(title string) *mdBuilder {
	b := &mdBuilder{}
	b.sb.WriteString("# " + title + "\n")
	return b
}

// field writes "- **label**: value", skipping empty values.
func (b *mdBuilder) field(label, value string) *mdBuilder {
	if value != "" {
		fmt.Fprintf(&b.sb, "- **%s**: %s\n", label, value)
	}
	return b
}

func (b *mdBuilder) section(title, body string) *mdBuilder {
	if body != "" {
		fmt.Fprintf(&b.sb, "\n## %s\n%s\n", title, body)
	}
	return b
}

func (b *mdBuilder) String() string {
	return strings.TrimSuffix(b.sb.String(), "\n")
}

func projectMarkdown(p *easyprojectapi.Project) string {
	md := newMarkdown(fmt.Sprintf("%s (#%d)", p.Name, p.ID)).
		field("Identifier", p.Identifier).
		field("Status", p.StatusName()).
		field("Parent", refName(p.Parent)).
		field("Public", optBool(p.IsPublic)).
		field("Homepage", p.Homepage).
		field("Trackers", refNames(p.Trackers)).
		field("Modules", refNames(p.EnabledModules)).
		field("Created", p.CreatedOn).
		field("Updated", p.UpdatedOn)
	return md.section("Description", p.Description).String()
}

func issueMarkdown(i *easyprojectapi.Issue) string {
	md := newMarkdown(fmt.Sprintf("#%d: %s", i.ID, i.Subject)).
		field("Project", i.Project.Name).
		field("Tracker", i.Tracker.Name).
		field("Status", i.Status.Name).
		field("Priority", i.Priority.Name).
		field("Assignee", refName(i.AssignedTo)).
		field("Author", refName(i.Author)).
		field("Milestone", refName(i.FixedVersion)).
		field("Parent", refID(i.Parent)).
		field("Done", itoa(i.DoneRatio)+"%").
		field("Estimated hours", optHours(i.EstimatedHours)).
		field("Spent hours", optHours(i.SpentHours)).
		field("Start", i.StartDate).
		field("Due", i.DueDate).
		field("Created", i.CreatedOn).
		field("Updated", i.UpdatedOn).
		field("Closed", i.ClosedOn)
	return md.section("Description", i.Description).String()
}

func userMarkdown(u *easyprojectapi.User) string {
	return newMarkdown(fmt.Sprintf("%s (#%d)", u.FullName(), u.ID)).
		field("Login", u.Login).
		field("Mail", u.Mail).
		field("Admin", strconv.FormatBool(u.Admin)).
		field("Language", u.Language).
		field("Created", u.CreatedOn).
		field("Last login", u.LastLoginOn).
		String()
}

func timeEntryMarkdown(e *easyprojectapi.TimeEntry) string {
	return newMarkdown(fmt.Sprintf("Time entry #%d", e.ID)).
		field("Hours", hours(e.Hours)).
		field("Spent on", e.SpentOn).
		field("User", e.User.Name).
		field("Project", e.Project.Name).
		field("Issue", refID(e.Issue)).
		field("Activity", e.Activity.Name).
		field("Comments", e.Comments).
		String()
}

func versionMarkdown(v *easyprojectapi.Version) string {
	md := newMarkdown(fmt.Sprintf("%s (#%d)", v.Name, v.ID)).
		field("Project", v.Project.Name).
		field("Status", v.Status).
		field("Sharing", v.Sharing).
		field("Due", v.EffectiveDate).
		field("External ID", v.EasyExternalID).
		field("Created", v.CreatedOn).
		field("Updated", v.UpdatedOn)
	return md.section("Description", v.Description).String()
}

// =============================================================================
// Writes and aggregates
// =============================================================================

// confirm renders a write result: a one-line confirmation and the entity.
func confirm(line, body string) string {
	if body == "" {
		return line
	}
	return line + "\n\n" + body
}

// jsonText renders an aggregate as a title and indented JSON.
func jsonText(title string, v any) string {
	out, err := modules.ToJSON(v)
	if err != nil {
		return fmt.Sprintf("%s\n\n(failed to render: %v)", title, err)
	}
	return title + "\n\n" + out
}

// =============================================================================
// Helpers
// =============================================================================

func itoa(n int) string { return strconv.Itoa(n) }

func hours(h float64) string { return strconv.FormatFloat(h, 'f', -1, 64) }

func optHours(h *float64) string {
	if h == nil {
		return ""
	}
	return hours(*h)
}

func optBool(b *bool) string {
	if b == nil {
		return ""
	}
	return strconv.FormatBool(*b)
}

func refName(r *easyprojectapi.Reference) string {
	if r == nil {
		return ""
	}
	return r.Name
}

func refID(r *easyprojectapi.Reference) string {
	if r == nil {
		return ""
	}
	return "#" + itoa(r.ID)
}

func refNames(refs []easyprojectapi.Reference) string {
	names := make([]string, 0, len(refs))
	for _, r := range refs {
		names = append(names, r.Name)
	}
	return strings.Join(names, ", ")
}

// date trims a timestamp to its YYYY-MM-DD prefix.
func date(ts string) string {
	if len(ts) > 10 {
		return ts[:10]
	}
	return ts
}
