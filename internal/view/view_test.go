//go:build unit

package view

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-forum-app/web"
)

func TestPageNumbers(t *testing.T) {
	testCases := []struct {
		current, numPages int
		want              []int
	}{
		{1, 1, []int{1}},
		{1, 20, []int{1, 2, 3, 4, 5, 0, 19, 20}},
		{10, 20, []int{1, 2, 0, 6, 7, 8, 9, 10, 11, 12, 13, 14, 0, 19, 20}},
		{20, 20, []int{1, 2, 0, 16, 17, 18, 19, 20}},
		{7, 7, []int{1, 2, 3, 4, 5, 6, 7}},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, PageNumbers(tc.current, tc.numPages), "page %d of %d", tc.current, tc.numPages)
	}
}

func TestGravatar(t *testing.T) {
	want := "https://www.gravatar.com/avatar/c160f8cc69a4f0bf2b0362752353d060?d=identicon&s=48"
	assert.Equal(t, want, Gravatar(" Alice@Example.com ", 48))
}

func TestPageAndOrderURL(t *testing.T) {
	u, err := url.Parse("/t/1?page=3&order=pub_date")
	require.NoError(t, err)

	assert.Equal(t, "/t/1?order=pub_date", PageURL(u, 1))
	assert.Equal(t, "/t/1?order=pub_date&page=4", PageURL(u, 4))
	assert.Equal(t, "/t/1?order=-pub_date", OrderURL(u, "-pub_date"))
	assert.Equal(t, "/t/1?page=3&order=pub_date", u.String(), "the request URL is left alone")

	bare, _ := url.Parse("/")
	assert.Equal(t, "/", PageURL(bare, 1))
}

func TestTimeSince(t *testing.T) {
	now := time.Now()
	assert.Equal(t, "just now", TimeSince(now.Add(-30*time.Second)))
	assert.Equal(t, "1 minute ago", TimeSince(now.Add(-61*time.Second)))
	assert.Equal(t, "3 hours ago", TimeSince(now.Add(-3*time.Hour-time.Minute)))
	old := now.Add(-400 * 24 * time.Hour)
	assert.Equal(t, old.Format("2006-01-02"), TimeSince(old))
}

func TestView_Templates(t *testing.T) {
	v, err := New(web.TemplateFS)
	require.NoError(t, err)

	for _, name := range []string{"index.html", "node.html", "topic.html", "create_topic.html", "edit_topic.html",
		"create_appendix.html", "user_info.html", "user_topics.html", "search.html", "notifications.html", "error.html"} {
		assert.True(t, v.Has(name), name)
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/missing?basic=true", nil)
	req = req.WithContext(WithBasicMode(req.Context(), true))
	err = v.Render(rr, req, "error.html", map[string]interface{}{
		"Title":      "Not Found",
		"StatusCode": 404,
		"StatusText": "Topic not found",
	})
	require.NoError(t, err)
	body := rr.Body.String()
	assert.Contains(t, body, "<h1>404</h1>")
	assert.Contains(t, body, "Topic not found")
	assert.False(t, strings.Contains(body, "forum.css"), "basic mode drops the stylesheet")
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))

	assert.Error(t, v.Render(httptest.NewRecorder(), req, "nope.html", nil))
}
