package easyprojectapi

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const issue42 = `{"issue":{"id":42,"subject":"Fix login","project":{"id":1,"name":"Website"},
"tracker":{"id":1,"name":"Bug"},"status":{"id":2,"name":"In Progress"},
"priority":{"id":3,"name":"High"},"assigned_to":{"id":5,"name":"Jana Novak"},"done_ratio":40}}`

func TestUpdateIssue_EmptyResponseRefetches(t *testing.T) {
	u := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		jsonHandler(http.StatusOK, issue42)(w, r)
	})
	client := newTestClient(t, u, newMemoryCache(t))
	ctx := context.Background()

	// Warm the cache so the re-fetch can only be fresh if it was cleared.
	_, err := client.GetIssue(ctx, 42, nil)
	require.NoError(t, err)

	issue, err := client.UpdateIssue(ctx, 42, IssueInput{AssignedToID: Ptr(5)})
	require.NoError(t, err)
	assert.Equal(t, 42, issue.ID)
	require.NotNil(t, issue.AssignedTo)
	assert.Equal(t, 5, issue.AssignedTo.ID)

	requests := u.all()
	require.Len(t, requests, 3)
	assert.Equal(t, http.MethodGet, requests[0].Method)
	assert.Equal(t, http.MethodPut, requests[1].Method)
	assert.Equal(t, "/issues/42.json", requests[1].Path)
	assert.JSONEq(t, `{"issue":{"assigned_to_id":5}}`, requests[1].Body)
	assert.Equal(t, http.MethodGet, requests[2].Method)
	assert.Equal(t, "/issues/42.json", requests[2].Path)
}

func TestUpdateIssue_ResponseWithEntity(t *testing.T) {
	u := newUpstream(t, jsonHandler(http.StatusOK, issue42))
	client := newTestClient(t, u, newMemoryCache(t))

	issue, err := client.UpdateIssue(context.Background(), 42, IssueInput{DoneRatio: Ptr(40)})
	require.NoError(t, err)
	assert.Equal(t, 40, issue.DoneRatio)
	assert.Equal(t, 1, u.count())
}

func TestListIssues_Params(t *testing.T) {
	u := newUpstream(t, jsonHandler(http.StatusOK, `{"issues":[],"total_count":0,"offset":0,"limit":25}`))
	client := newTestClient(t, u, nil)

	_, err := client.ListIssues(context.Background(), ListIssuesParams{
		ProjectID:    Ptr(1),
		StatusID:     Ptr("open"),
		AssignedToID: Ptr(5),
		Limit:        Ptr(25),
		Include:      []string{"relations"},
		Sort:         Ptr("priority:desc"),
		Search:       Ptr("login"),
	})
	require.NoError(t, err)

	q := u.last().Query
	assert.Equal(t, "1", q.Get("project_id"))
	assert.Equal(t, "open", q.Get("status_id"))
	assert.Equal(t, "5", q.Get("assigned_to_id"))
	assert.Equal(t, "25", q.Get("limit"))
	assert.Equal(t, "relations", q.Get("include"))
	assert.Equal(t, "priority:desc", q.Get("sort"))
	assert.Equal(t, "login", q.Get("easy_query_q"))
	assert.Equal(t, "1", q.Get("set_filter"))
	assert.False(t, q.Has("offset"))
	assert.False(t, q.Has("tracker_id"))
}

func TestGetIssue_MissingWrapper(t *testing.T) {
	u := newUpstream(t, jsonHandler(http.StatusOK, `{}`))
	client := newTestClient(t, u, nil)

	_, err := client.GetIssue(context.Background(), 1, nil)

	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
}
