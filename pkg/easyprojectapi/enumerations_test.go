package easyprojectapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// issuePages serves total synthetic issues, paged by limit/offset. Issue n
// has status n%3+1, priority n%2+1 and tracker 1.
func issuePages(t *testing.T, total int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		list := IssueList{Issues: []Issue{}, Page: Page{TotalCount: total, Offset: offset, Limit: limit}}
		for n := offset; n < offset+limit && n < total; n++ {
			status := n%3 + 1
			priority := n%2 + 1
			list.Issues = append(list.Issues, Issue{
				ID:       n + 1,
				Subject:  "issue " + strconv.Itoa(n),
				Status:   IssueStatus{ID: status, Name: "status-" + strconv.Itoa(status)},
				Priority: Reference{ID: priority, Name: "priority-" + strconv.Itoa(priority)},
				Tracker:  Reference{ID: 1, Name: "Task"},
			})
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(list))
	}
}

func TestGetIssueEnumerations_StopsAtTotalCount(t *testing.T) {
	u := newUpstream(t, issuePages(t, 150))
	client := newTestClient(t, u, newMemoryCache(t))

	enums, err := client.GetIssueEnumerations(context.Background(), Ptr(7))
	require.NoError(t, err)

	requests := u.all()
	require.Len(t, requests, 2)
	assert.Equal(t, "0", requests[0].Query.Get("offset"))
	assert.Equal(t, "100", requests[1].Query.Get("offset"))
	for _, req := range requests {
		assert.Equal(t, "100", req.Query.Get("limit"))
		assert.Equal(t, "7", req.Query.Get("project_id"))
		assert.Equal(t, "*", req.Query.Get("status_id"))
	}

	assert.Equal(t, []Reference{{1, "status-1"}, {2, "status-2"}, {3, "status-3"}}, enums.Statuses)
	assert.Equal(t, []Reference{{1, "priority-1"}, {2, "priority-2"}}, enums.Priorities)
	assert.Equal(t, []Reference{{1, "Task"}}, enums.Trackers)
	assert.Equal(t, 2, enums.PagesScanned)
	assert.False(t, enums.Truncated)
}

func TestGetIssueEnumerations_EmptyProject(t *testing.T) {
	u := newUpstream(t, issuePages(t, 0))
	client := newTestClient(t, u, nil)

	enums, err := client.GetIssueEnumerations(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, u.count())
	assert.False(t, u.last().Query.Has("project_id"))
	assert.Empty(t, enums.Statuses)
	assert.Empty(t, enums.Priorities)
	assert.Empty(t, enums.Trackers)
}

func TestGetIssueEnumerations_PageCap(t *testing.T) {
	u := newUpstream(t, issuePages(t, 5000))
	client := newTestClient(t, u, nil)

	enums, err := client.GetIssueEnumerations(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 20, u.count())
	assert.Equal(t, 20, enums.PagesScanned)
	assert.True(t, enums.Truncated)
}

func TestGetIssueEnumerations_ExactlyTwentyPages(t *testing.T) {
	u := newUpstream(t, issuePages(t, 2000))
	client := newTestClient(t, u, nil)

	enums, err := client.GetIssueEnumerations(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 20, u.count())
	assert.False(t, enums.Truncated)
}

func TestGetIssueEnumerations_ScanFailure(t *testing.T) {
	u := newUpstream(t, jsonHandler(http.StatusInternalServerError, "boom"))
	client := newTestClient(t, u, nil)

	_, err := client.GetIssueEnumerations(context.Background(), nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
}
