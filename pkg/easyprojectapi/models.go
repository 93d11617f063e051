package easyprojectapi

import "strings"

// Reference is an {id, name} pair embedded in other resources.
type Reference struct {
	ID   int    `json:"id"`
	Name string `json:"name,omitempty"`
}

// Project statuses reported by the API.
const (
	ProjectStatusActive   = 1
	ProjectStatusClosed   = 5
	ProjectStatusArchived = 9
	ProjectStatusPlanned  = 15
	ProjectStatusDeleted  = 19
)

type Project struct {
	ID              int         `json:"id"`
	Name            string      `json:"name"`
	Identifier      string      `json:"identifier,omitempty"`
	Description     string      `json:"description,omitempty"`
	Homepage        string      `json:"homepage,omitempty"`
	Status          int         `json:"status,omitempty"`
	IsPublic        *bool       `json:"is_public,omitempty"`
	InheritMembers  *bool       `json:"inherit_members,omitempty"`
	Parent          *Reference  `json:"parent,omitempty"`
	Trackers        []Reference `json:"trackers,omitempty"`
	IssueCategories []Reference `json:"issue_categories,omitempty"`
	EnabledModules  []Reference `json:"enabled_modules,omitempty"`
	CreatedOn       string      `json:"created_on,omitempty"`
	UpdatedOn       string      `json:"updated_on,omitempty"`
}

// StatusName renders the numeric project status.
func (p Project) StatusName() string {
	switch p.Status {
	case ProjectStatusActive:
		return "active"
	case ProjectStatusClosed:
		return "closed"
	case ProjectStatusArchived:
		return "archived"
	case ProjectStatusPlanned:
		return "planned"
	case ProjectStatusDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

type IssueStatus struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	IsClosed *bool  `json:"is_closed,omitempty"`
}

type Issue struct {
	ID             int         `json:"id"`
	Subject        string      `json:"subject"`
	Description    string      `json:"description,omitempty"`
	Project        Reference   `json:"project"`
	Tracker        Reference   `json:"tracker"`
	Status         IssueStatus `json:"status"`
	Priority       Reference   `json:"priority"`
	Author         *Reference  `json:"author,omitempty"`
	AssignedTo     *Reference  `json:"assigned_to,omitempty"`
	Category       *Reference  `json:"category,omitempty"`
	FixedVersion   *Reference  `json:"fixed_version,omitempty"`
	Parent         *Reference  `json:"parent,omitempty"`
	EstimatedHours *float64    `json:"estimated_hours,omitempty"`
	SpentHours     *float64    `json:"spent_hours,omitempty"`
	DoneRatio      int         `json:"done_ratio"`
	StartDate      string      `json:"start_date,omitempty"`
	DueDate        string      `json:"due_date,omitempty"`
	CreatedOn      string      `json:"created_on,omitempty"`
	UpdatedOn      string      `json:"updated_on,omitempty"`
	ClosedOn       string      `json:"closed_on,omitempty"`
}

type User struct {
	ID          int    `json:"id"`
	Login       string `json:"login,omitempty"`
	Firstname   string `json:"firstname,omitempty"`
	Lastname    string `json:"lastname,omitempty"`
	Mail        string `json:"mail,omitempty"`
	Admin       bool   `json:"admin,omitempty"`
	Status      int    `json:"status,omitempty"`
	Language    string `json:"language,omitempty"`
	CreatedOn   string `json:"created_on,omitempty"`
	LastLoginOn string `json:"last_login_on,omitempty"`
}

// FullName joins first and last name, falling back to the login.
func (u User) FullName() string {
	name := strings.TrimSpace(u.Firstname + " " + u.Lastname)
	if name == "" {
		return u.Login
	}
	return name
}

type TimeEntry struct {
	ID        int        `json:"id"`
	Project   Reference  `json:"project"`
	Issue     *Reference `json:"issue,omitempty"`
	User      Reference  `json:"user"`
	Activity  Reference  `json:"activity"`
	Hours     float64    `json:"hours"`
	Comments  string     `json:"comments,omitempty"`
	SpentOn   string     `json:"spent_on"`
	CreatedOn string     `json:"created_on,omitempty"`
	UpdatedOn string     `json:"updated_on,omitempty"`
}

// Version is a project milestone.
type Version struct {
	ID             int       `json:"id"`
	Project        Reference `json:"project"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	Status         string    `json:"status,omitempty"`
	Sharing        string    `json:"sharing,omitempty"`
	EffectiveDate  string    `json:"effective_date,omitempty"`
	DueDate        string    `json:"due_date,omitempty"`
	EasyExternalID string    `json:"easy_external_id,omitempty"`
	CreatedOn      string    `json:"created_on,omitempty"`
	UpdatedOn      string    `json:"updated_on,omitempty"`
}

// Page carries the pagination fields of a collection response.
type Page struct {
	TotalCount int `json:"total_count"`
	Offset     int `json:"offset"`
	Limit      int `json:"limit"`
}

type ProjectList struct {
	Projects []Project `json:"projects"`
	Page
}

type IssueList struct {
	Issues []Issue `json:"issues"`
	Page
}

type UserList struct {
	Users []User `json:"users"`
	Page
}

type TimeEntryList struct {
	TimeEntries []TimeEntry `json:"time_entries"`
	Page
}

type VersionList struct {
	Versions []Version `json:"versions"`
	Page
}

type projectEnvelope struct {
	Project *Project `json:"project"`
}

type issueEnvelope struct {
	Issue *Issue `json:"issue"`
}

type userEnvelope struct {
	User *User `json:"user"`
}

type timeEntryEnvelope struct {
	TimeEntry *TimeEntry `json:"time_entry"`
}

type versionEnvelope struct {
	Version *Version `json:"version"`
}

// ProjectInput is the writable subset of a project. Nil fields are omitted.
type ProjectInput struct {
	Name               *string  `json:"name,omitempty"`
	Identifier         *string  `json:"identifier,omitempty"`
	Description        *string  `json:"description,omitempty"`
	Homepage           *string  `json:"homepage,omitempty"`
	IsPublic           *bool    `json:"is_public,omitempty"`
	ParentID           *int     `json:"parent_id,omitempty"`
	InheritMembers     *bool    `json:"inherit_members,omitempty"`
	TrackerIDs         []int    `json:"tracker_ids,omitempty"`
	EnabledModuleNames []string `json:"enabled_module_names,omitempty"`
}

// IssueInput is the writable subset of an issue. Nil fields are omitted, so
// an update only touches what is set.
type IssueInput struct {
	ProjectID      *int     `json:"project_id,omitempty"`
	TrackerID      *int     `json:"tracker_id,omitempty"`
	StatusID       *int     `json:"status_id,omitempty"`
	PriorityID     *int     `json:"priority_id,omitempty"`
	Subject        *string  `json:"subject,omitempty"`
	Description    *string  `json:"description,omitempty"`
	CategoryID     *int     `json:"category_id,omitempty"`
	FixedVersionID *int     `json:"fixed_version_id,omitempty"`
	AssignedToID   *int     `json:"assigned_to_id,omitempty"`
	ParentIssueID  *int     `json:"parent_issue_id,omitempty"`
	EstimatedHours *float64 `json:"estimated_hours,omitempty"`
	DoneRatio      *int     `json:"done_ratio,omitempty"`
	StartDate      *string  `json:"start_date,omitempty"`
	DueDate        *string  `json:"due_date,omitempty"`
	Notes          *string  `json:"notes,omitempty"`
}

type TimeEntryInput struct {
	IssueID    *int     `json:"issue_id,omitempty"`
	ProjectID  *int     `json:"project_id,omitempty"`
	UserID     *int     `json:"user_id,omitempty"`
	SpentOn    *string  `json:"spent_on,omitempty"`
	Hours      *float64 `json:"hours,omitempty"`
	ActivityID *int     `json:"activity_id,omitempty"`
	Comments   *string  `json:"comments,omitempty"`
}

type VersionInput struct {
	Name                  *string `json:"name,omitempty"`
	Description           *string `json:"description,omitempty"`
	Status                *string `json:"status,omitempty"`
	Sharing               *string `json:"sharing,omitempty"`
	EffectiveDate         *string `json:"effective_date,omitempty"`
	DueDate               *string `json:"due_date,omitempty"`
	DefaultProjectVersion *bool   `json:"default_project_version,omitempty"`
	EasyExternalID        *string `json:"easy_external_id,omitempty"`
}
