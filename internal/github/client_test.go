package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"streakd/internal/domain"
	"streakd/internal/logger"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	profile      Profile
	emails       []Email
	emailsStatus int
	userStatus   int
	commits      []map[string]interface{}
	lastQuery    string
	tokens       []string
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		f.tokens = append(f.tokens, r.Header.Get("Authorization"))
		if f.userStatus != 0 {
			w.WriteHeader(f.userStatus)
			_, _ = w.Write([]byte(`{"message":"Bad credentials"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(f.profile)
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		if f.emailsStatus != 0 {
			w.WriteHeader(f.emailsStatus)
			return
		}
		_ = json.NewEncoder(w).Encode(f.emails)
	})
	mux.HandleFunc("/repos/octo/streak/commits", func(w http.ResponseWriter, r *http.Request) {
		f.lastQuery = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode(f.commits)
	})
	return mux
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{APIURL: srv.URL, RequestsPerSecond: 100}, logger.NewNopLogger())
	require.NoError(t, err)
	return client
}

func TestPickIdentityPreferenceOrder(t *testing.T) {
	profile := &Profile{ID: 42, Login: "octo", Name: "Octo Cat", Email: "profile@example.com"}

	tests := []struct {
		name   string
		emails []Email
		want   string
	}{
		{
			name: "primary verified wins",
			emails: []Email{
				{Email: "other@example.com", Verified: true},
				{Email: "primary@example.com", Primary: true, Verified: true},
			},
			want: "primary@example.com",
		},
		{
			name: "unverified primary is skipped",
			emails: []Email{
				{Email: "primary@example.com", Primary: true},
				{Email: "verified@example.com", Verified: true},
			},
			want: "verified@example.com",
		},
		{
			name:   "profile email when nothing verified",
			emails: []Email{{Email: "x@example.com"}},
			want:   "profile@example.com",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := PickIdentity(profile, tt.emails)
			assert.Equal(t, tt.want, id.Email)
			assert.Equal(t, "Octo Cat", id.Name)
		})
	}

	bare := &Profile{ID: 42, Login: "octo"}
	id := PickIdentity(bare, nil)
	assert.Equal(t, "42+octo@users.noreply.github.com", id.Email)
	assert.Equal(t, "octo", id.Name)
}

func TestResolveIdentity(t *testing.T) {
	api := &fakeAPI{
		profile: Profile{ID: 7, Login: "octo"},
		emails:  []Email{{Email: "me@example.com", Primary: true, Verified: true}},
	}
	client := newTestClient(t, api)

	id, err := client.ResolveIdentity(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, Identity{Name: "octo", Email: "me@example.com"}, id)
	assert.Equal(t, "Bearer tok", api.tokens[0])
}

func TestResolveIdentityFallsBackWhenEmailScopeMissing(t *testing.T) {
	api := &fakeAPI{
		profile:      Profile{ID: 7, Login: "octo"},
		emailsStatus: http.StatusNotFound,
	}
	client := newTestClient(t, api)

	id, err := client.ResolveIdentity(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "7+octo@users.noreply.github.com", id.Email)
}

func TestRevokedTokenIsAuthError(t *testing.T) {
	client := newTestClient(t, &fakeAPI{userStatus: http.StatusUnauthorized})

	_, err := client.ResolveIdentity(context.Background(), "stale")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAuth))
	assert.Contains(t, err.Error(), "401")
}

func TestServerErrorIsUpstream(t *testing.T) {
	client := newTestClient(t, &fakeAPI{userStatus: http.StatusBadGateway})

	_, err := client.AuthenticatedUser(context.Background(), "tok")
	assert.True(t, errors.Is(err, domain.ErrUpstream))
}

func TestRecentCommits(t *testing.T) {
	date := time.Date(2023, 5, 1, 9, 30, 0, 0, time.UTC)
	api := &fakeAPI{commits: []map[string]interface{}{
		{
			"sha": "abc123",
			"commit": map[string]interface{}{
				"message": "docs: update",
				"author":  map[string]interface{}{"name": "octo", "email": "me@example.com", "date": date.Format(time.RFC3339)},
			},
		},
	}}
	client := newTestClient(t, api)

	commits, err := client.RecentCommits(context.Background(), "tok", "octo/streak", 10)
	require.NoError(t, err)
	require.Len(t, commits, 1)
	assert.Equal(t, "abc123", commits[0].SHA)
	assert.Equal(t, "docs: update", commits[0].Message)
	assert.Equal(t, "me@example.com", commits[0].AuthorEmail)
	assert.True(t, date.Equal(commits[0].AuthorDate))
	assert.Equal(t, "per_page=10", api.lastQuery)

	_, err = client.RecentCommits(context.Background(), "tok", "not-a-repo", 10)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}
