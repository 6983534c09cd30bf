package console

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	linkDto "tutorhub_backend/internals/features/payments/links/dto"
	remDto "tutorhub_backend/internals/features/payments/reminders/dto"
)

// fakeAPI serves canned envelopes under /api/payments and counts requests.
type fakeAPI struct {
	mu     sync.Mutex
	hits   map[string]int
	auth   []string
	bodies map[string][]byte
	fail   bool
	routes map[string]any
}

func newFakeAPI(t *testing.T) (*fakeAPI, *Client) {
	t.Helper()
	f := &fakeAPI{hits: map[string]int{}, bodies: map[string][]byte{}, routes: map[string]any{}}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL+"/api", func() string { return "tok-123" })
	require.NoError(t, err)
	return f, c
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path
	raw, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.hits[key]++
	f.auth = append(f.auth, r.Header.Get("Authorization"))
	f.bodies[key] = raw
	data, ok := f.routes[key]
	fail := f.fail
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if fail {
		w.WriteHeader(http.StatusInternalServerError)
		out, _ := sonic.Marshal(map[string]any{"success": false, "message": "database unavailable", "error_code": "INTERNAL_ERROR"})
		_, _ = w.Write(out)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		out, _ := sonic.Marshal(map[string]any{"success": false, "message": "route not found", "error_code": "NOT_FOUND"})
		_, _ = w.Write(out)
		return
	}
	out, _ := sonic.Marshal(map[string]any{"success": true, "message": "ok", "data": data})
	_, _ = w.Write(out)
}

func (f *fakeAPI) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[key]
}

func (f *fakeAPI) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, v := range f.hits {
		n += v
	}
	return n
}

func (f *fakeAPI) set(key string, data any) {
	f.mu.Lock()
	f.routes[key] = data
	f.mu.Unlock()
}

func (f *fakeAPI) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func liveLink(title, status string) linkDto.PaymentLink {
	return linkDto.PaymentLink{ID: uuid.New(), Title: title, Status: status, Amount: 25000}
}

func TestFallbackPayloads(t *testing.T) {
	fb, err := LoadFallbacks()
	require.NoError(t, err)
	assert.Len(t, fb.Links, 4)
	assert.Len(t, fb.Transactions, 6)
	assert.Len(t, fb.Partials, 3)
	assert.Len(t, fb.SentReminders, 1)
	assert.Len(t, fb.ScheduledReminders, 1)
	assert.Equal(t, "IDR", fb.Settings.General.Currency)
	require.Len(t, fb.Analytics.Monthly, 6)

	statuses := map[string]int{}
	for _, l := range fb.Links {
		statuses[l.Status]++
	}
	assert.Equal(t, map[string]int{"Active": 2, "Paused": 1, "Expired": 1}, statuses)
}

func TestLinksFailOpen(t *testing.T) {
	f, c := newFakeAPI(t)
	f.setFail(true)
	ctx := context.Background()

	res := c.Links(ctx, LinkQuery{})
	require.NotNil(t, res.Err)
	assert.Equal(t, http.StatusInternalServerError, res.Err.Status)
	assert.Equal(t, "INTERNAL_ERROR", res.Err.Code)
	assert.Equal(t, "database unavailable", res.Err.Message)
	assert.True(t, res.IsFallback())
	assert.Len(t, res.Data, 4)

	// fallback data is not cached
	c.Links(ctx, LinkQuery{})
	assert.Equal(t, 2, f.count("GET /api/payments/links"))

	paused := c.Links(ctx, LinkQuery{Status: "Paused"})
	require.Len(t, paused.Data, 1)
	assert.Equal(t, "Grade 9 Study Tour", paused.Data[0].Title)

	search := c.Links(ctx, LinkQuery{Search: "olympiad"})
	require.Len(t, search.Data, 1)
}

func TestLinksFailClosed(t *testing.T) {
	f, c := newFakeAPI(t)
	f.setFail(true)

	res := c.WithPolicy(FailClosed).Links(context.Background(), LinkQuery{})
	require.NotNil(t, res.Err)
	assert.False(t, res.OK())
	assert.Equal(t, SourceNone, res.Source)
	assert.Nil(t, res.Data)
}

func TestLinksLiveIsCachedAndAuthenticated(t *testing.T) {
	f, c := newFakeAPI(t)
	ctx := context.Background()
	f.set("GET /api/payments/links", []linkDto.PaymentLink{liveLink("Term 1 Tuition Fee", "Active")})

	res := c.Links(ctx, LinkQuery{})
	require.True(t, res.OK())
	assert.Equal(t, SourceLive, res.Source)
	require.Len(t, res.Data, 1)

	c.Links(ctx, LinkQuery{})
	assert.Equal(t, 1, f.count("GET /api/payments/links"))
	assert.Equal(t, []string{"Bearer tok-123"}, f.auth)

	c.Links(ctx, LinkQuery{Status: "Active"})
	assert.Equal(t, 2, f.count("GET /api/payments/links"), "a different query is a different cache key")
}

func TestMutationInvalidatesReads(t *testing.T) {
	f, c := newFakeAPI(t)
	ctx := context.Background()
	created := liveLink("Grade 9 Study Tour", "Active")
	f.set("GET /api/payments/links", []linkDto.PaymentLink{})
	f.set("POST /api/payments/links", created)

	c.Links(ctx, LinkQuery{})
	c.Links(ctx, LinkQuery{})
	require.Equal(t, 1, f.count("GET /api/payments/links"))

	got, err := c.CreateLink(ctx, linkDto.CreatePaymentLinkRequest{Title: "Grade 9 Study Tour", Amount: 4000000})
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	c.Links(ctx, LinkQuery{})
	assert.Equal(t, 2, f.count("GET /api/payments/links"))
}

func TestFailedMutationKeepsCacheAndNeverFallsBack(t *testing.T) {
	f, c := newFakeAPI(t)
	ctx := context.Background()
	f.set("GET /api/payments/links", []linkDto.PaymentLink{})
	c.Links(ctx, LinkQuery{})

	_, err := c.CreateLink(ctx, linkDto.CreatePaymentLinkRequest{Title: "Study Tour", Amount: 4000000})
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusNotFound, fe.Status)

	c.Links(ctx, LinkQuery{})
	assert.Equal(t, 1, f.count("GET /api/payments/links"))
}

func TestClientSideValidationSkipsRequest(t *testing.T) {
	f, c := newFakeAPI(t)
	ctx := context.Background()

	_, err := c.CreateLink(ctx, linkDto.CreatePaymentLinkRequest{Title: "  ", Amount: 0})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "title")
	assert.Contains(t, ve.Fields, "amount")

	_, err = c.SendReminders(ctx, remDto.SendRemindersRequest{Subject: "s", Message: "m", Channels: []string{"Email"}, ScheduleType: "now"})
	assert.ErrorIs(t, err, ErrNoRecipients)

	_, err = c.SaveSettings(ctx, "billing", map[string]any{})
	require.ErrorAs(t, err, &ve)

	assert.Zero(t, f.total())
}

func TestTransportFailure(t *testing.T) {
	c, err := New("http://127.0.0.1:1/api", nil)
	require.NoError(t, err)

	res := c.Partials(context.Background(), "Overdue", "")
	require.NotNil(t, res.Err)
	assert.True(t, res.Err.Transport())
	require.Len(t, res.Data, 1)
	assert.Equal(t, "Eko Prasetyo", res.Data[0].StudentName)
}
