package webui

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lucke/calcutta-web/internal/admin"
	"github.com/lucke/calcutta-web/internal/betting"
	"github.com/lucke/calcutta-web/internal/calcapi"
	"github.com/lucke/calcutta-web/internal/draft"
	"github.com/lucke/calcutta-web/internal/journal"
	"github.com/lucke/calcutta-web/internal/session"
	"github.com/lucke/calcutta-web/internal/util/slogx"
)

type remoteUser struct {
	password string
	user     calcapi.User
}

// fakeRemote is a minimal Calcutta API.
type fakeRemote struct {
	mu       sync.Mutex
	users    map[string]remoteUser
	sessions map[string]string
	events   []calcapi.Event
	bets     []calcapi.BetRequest
	keys     []string
	created  []calcapi.CreateEventRequest
	private  bool
	logins   int
	closeSub func(w http.ResponseWriter)
}

func (f *fakeRemote) loginCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logins
}

func (f *fakeRemote) placedBets() ([]calcapi.BetRequest, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.bets), slices.Clone(f.keys)
}

func (f *fakeRemote) createdEvents() []calcapi.CreateEventRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.created)
}

// setPrivate makes the event list available to logged in users only.
func (f *fakeRemote) setPrivate(private bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.private = private
}

func (f *fakeRemote) setCloseSub(h func(w http.ResponseWriter)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeSub = h
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		users: map[string]remoteUser{
			"ann":  {password: "pw", user: calcapi.User{ID: "1", Username: "ann", Role: "user", Balance: 100}},
			"root": {password: "pw", user: calcapi.User{ID: "9", Username: "root", Role: calcapi.RoleAdmin}},
		},
		sessions: make(map[string]string),
		events: []calcapi.Event{
			{
				ID:     "1",
				Name:   "Cup",
				Status: calcapi.StatusOpen,
				SubEvents: []calcapi.SubEvent{
					{
						ID:          "20",
						Name:        "Round 1",
						Status:      calcapi.StatusOpen,
						GameType:    calcapi.GameFixedPrice,
						Contestants: []calcapi.Contestant{{ID: "21", Name: "Red", Price: 15}},
					},
				},
			},
			{ID: "2", Name: "Old Cup", Status: calcapi.StatusClosed},
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeRemote) user(req *http.Request) (calcapi.User, bool) {
	ck, err := req.Cookie("sid")
	if err != nil {
		return calcapi.User{}, false
	}
	name, ok := f.sessions[ck.Value]
	if !ok {
		return calcapi.User{}, false
	}
	return f.users[name].user, true
}

func (f *fakeRemote) event(id string) (*calcapi.Event, bool) {
	for i := range f.events {
		if f.events[i].ID.String() == id {
			return &f.events[i], true
		}
	}
	return nil, false
}

func (f *fakeRemote) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.logins++
		var body calcapi.LoginRequest
		_ = json.NewDecoder(req.Body).Decode(&body)
		u, ok := f.users[body.Username]
		if !ok || u.password != body.Password {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
			return
		}
		sid := "s-" + body.Username
		f.sessions[sid] = body.Username
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: sid, Path: "/"})
		writeJSON(w, http.StatusOK, calcapi.AuthResponse{User: &u.user})
	})
	mux.HandleFunc("GET /auth/current-user", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		u, ok := f.user(req)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Not logged in"})
			return
		}
		writeJSON(w, http.StatusOK, calcapi.AuthResponse{User: &u})
	})
	mux.HandleFunc("POST /logout", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
	})
	mux.HandleFunc("GET /api/events", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.user(req); f.private && !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Not logged in"})
			return
		}
		writeJSON(w, http.StatusOK, f.events)
	})
	mux.HandleFunc("POST /api/events", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if u, ok := f.user(req); !ok || !u.IsAdmin() {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "Admins only"})
			return
		}
		var body calcapi.CreateEventRequest
		_ = json.NewDecoder(req.Body).Decode(&body)
		f.created = append(f.created, body)
		writeJSON(w, http.StatusCreated, map[string]string{"message": "Event created"})
	})
	mux.HandleFunc("GET /api/events/{id}", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		ev, ok := f.event(req.PathValue("id"))
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Event not found"})
			return
		}
		writeJSON(w, http.StatusOK, ev)
	})
	mux.HandleFunc("POST /api/events/{id}/bets", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.user(req); !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Not logged in"})
			return
		}
		var body calcapi.BetRequest
		_ = json.NewDecoder(req.Body).Decode(&body)
		f.bets = append(f.bets, body)
		f.keys = append(f.keys, req.Header.Get("Idempotency-Key"))
		writeJSON(w, http.StatusOK, map[string]string{"message": "Bet placed"})
	})
	mux.HandleFunc("POST /api/events/{id}/sub-events/{sub}/close", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.closeSub(w)
	})
	return mux
}

// memDB keeps journal entries in memory.
type memDB struct {
	mu      sync.Mutex
	entries map[string]journal.Entry
}

func (m *memDB) CreateEntry(_ context.Context, e journal.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[e.Token]; ok {
		return journal.ErrDuplicate
	}
	m.entries[e.Token] = e
	return nil
}

func (m *memDB) FinishEntry(_ context.Context, token string, outcome journal.Outcome, message string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entries[token]
	e.Outcome = outcome
	e.Message = message
	e.FinishedAt = &at
	m.entries[token] = e
	return nil
}

func (m *memDB) ListEntries(context.Context, int) ([]journal.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []journal.Entry
	for _, e := range m.entries {
		res = append(res, e)
	}
	return res, nil
}

func (m *memDB) entry(token string) journal.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[token]
}

func (m *memDB) PruneEntries(context.Context, time.Time) error { return nil }

type harness struct {
	t      *testing.T
	remote *fakeRemote
	db     *memDB
	srv    *httptest.Server
	client *http.Client
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := slogx.DiscardLogger()
	remote := newFakeRemote()
	apiSrv := httptest.NewServer(remote.handler())
	t.Cleanup(apiSrv.Close)

	api, err := calcapi.NewClient(log, calcapi.ClientOptions{Endpoint: apiSrv.URL}, apiSrv.Client())
	if err != nil {
		t.Fatal(err)
	}
	db := &memDB{entries: make(map[string]journal.Entry)}
	j := journal.New(log, db, journal.Options{})
	t.Cleanup(j.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	mux := http.NewServeMux()
	err = Handle(ctx, log, mux, "", Config{
		Session: session.NewService(log, api),
		Admin:   admin.NewService(log, api),
		Betting: betting.NewService(log, api),
		Events:  api,
		Journal: j,
	}, Options{
		Session: SessionOptions{
			Store:   "cookie",
			AuthKey: []byte(strings.Repeat("a", 32)),
		},
		CSRFKey: []byte(strings.Repeat("c", 32)),
	})
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &harness{
		t:      t,
		remote: remote,
		db:     db,
		srv:    srv,
		client: &http.Client{Jar: jar},
	}
}

type result struct {
	status int
	path   string
	body   string
}

func (h *harness) do(req *http.Request) result {
	h.t.Helper()
	rsp, err := h.client.Do(req)
	if err != nil {
		h.t.Fatal(err)
	}
	defer rsp.Body.Close()
	body, err := io.ReadAll(rsp.Body)
	if err != nil {
		h.t.Fatal(err)
	}
	return result{status: rsp.StatusCode, path: rsp.Request.URL.Path, body: string(body)}
}

func (h *harness) get(path string) result {
	h.t.Helper()
	req, err := http.NewRequest(http.MethodGet, h.srv.URL+path, nil)
	if err != nil {
		h.t.Fatal(err)
	}
	return h.do(req)
}

var (
	csrfRe  = regexp.MustCompile(`name="gorilla.csrf.Token" value="([^"]+)"`)
	tokenRe = regexp.MustCompile(`name="form-token" value="([^"]+)"`)
)

func find(re *regexp.Regexp, body string) string {
	m := re.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	return m[1]
}

// post submits a form as if it was rendered on the page from. The CSRF token and the form token
// are taken from that page unless given in v.
func (h *harness) post(from, path string, v url.Values) result {
	h.t.Helper()
	src := h.get(from)
	if v == nil {
		v = url.Values{}
	}
	if !v.Has("gorilla.csrf.Token") {
		v.Set("gorilla.csrf.Token", find(csrfRe, src.body))
	}
	if !v.Has("form-token") {
		if token := find(tokenRe, src.body); token != "" {
			v.Set("form-token", token)
		}
	}
	req, err := http.NewRequest(http.MethodPost, h.srv.URL+path, strings.NewReader(v.Encode()))
	if err != nil {
		h.t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return h.do(req)
}

func (h *harness) login(username string) result {
	h.t.Helper()
	p := h.post("/login", "/login", url.Values{"username": {username}, "password": {"pw"}})
	if p.status != http.StatusOK {
		h.t.Fatalf("login: status %v", p.status)
	}
	return p
}

func mustContain(t *testing.T, p result, s string) {
	t.Helper()
	if !strings.Contains(p.body, s) {
		t.Errorf("page %v does not contain %q:\n%v", p.path, s, p.body)
	}
}

func mustNotContain(t *testing.T, p result, s string) {
	t.Helper()
	if strings.Contains(p.body, s) {
		t.Errorf("page %v contains %q", p.path, s)
	}
}

func TestGuards(t *testing.T) {
	h := newHarness(t)

	p := h.get("/betting")
	if p.path != "/login" {
		t.Errorf("logged out betting: got %v, want redirect to /login", p.path)
	}
	p = h.get("/deposit")
	if p.path != "/login" {
		t.Errorf("logged out deposit: got %v, want redirect to /login", p.path)
	}

	p = h.get("/admin")
	if p.status != http.StatusForbidden || p.path != "/admin" {
		t.Errorf("logged out admin: got %v %v, want 403 in place", p.status, p.path)
	}
	mustContain(t, p, "Access Denied")

	h.login("ann")
	p = h.get("/admin")
	if p.status != http.StatusForbidden {
		t.Errorf("user admin: got %v, want 403", p.status)
	}
	p = h.get("/deposit")
	if p.status != http.StatusOK {
		t.Fatalf("deposit: got %v", p.status)
	}
	mustContain(t, p, "Deposit is coming soon.")

	p = h.get("/no/such/page")
	if p.status != http.StatusNotFound {
		t.Errorf("unknown page: got %v, want 404", p.status)
	}
}

func TestLogin(t *testing.T) {
	h := newHarness(t)

	p := h.post("/login", "/login", url.Values{"username": {"ann"}})
	mustContain(t, p, "Please fill in all fields")
	if h.remote.loginCount() != 0 {
		t.Errorf("incomplete form reached the server")
	}

	p = h.post("/login", "/login", url.Values{"username": {"ann"}, "password": {"nope"}})
	mustContain(t, p, "Invalid credentials")
	mustContain(t, p, `value="ann"`)

	p = h.login("ann")
	if p.path != "/betting" {
		t.Errorf("got %v, want /betting after login", p.path)
	}
	mustContain(t, p, "Balance: $100.00")
	mustContain(t, p, "Cup")

	p = h.get("/login")
	if p.path != "/betting" {
		t.Errorf("logged in user not redirected from login page")
	}

	p = h.post("/betting", "/logout", nil)
	if p.path != "/" {
		t.Errorf("got %v, want / after logout", p.path)
	}
	mustContain(t, p, "Log In")
	if p = h.get("/betting"); p.path != "/login" {
		t.Errorf("betting after logout: got %v", p.path)
	}
}

func TestSignupValidation(t *testing.T) {
	h := newHarness(t)
	p := h.post("/signup", "/signup", url.Values{
		"username":         {"bob"},
		"email":            {"bob@example.com"},
		"password":         {"a"},
		"confirm-password": {"b"},
	})
	mustContain(t, p, "Passwords don")
	mustContain(t, p, `value="bob@example.com"`)
}

func TestArchive(t *testing.T) {
	h := newHarness(t)
	p := h.get("/archive")
	if p.status != http.StatusOK {
		t.Fatalf("archive: got %v", p.status)
	}
	mustContain(t, p, `<span class="name">Old Cup</span>`)
	mustContain(t, p, "Closed")
	mustNotContain(t, p, `<span class="name">Cup</span>`)

	p = h.get("/")
	mustContain(t, p, "1 open event.")
}

func TestPublicPagesWithPrivateAPI(t *testing.T) {
	h := newHarness(t)
	h.remote.setPrivate(true)

	for _, path := range []string{"/archive", "/"} {
		p := h.get(path)
		if p.status != http.StatusOK || p.path != path {
			t.Fatalf("%v: got %v %v", path, p.status, p.path)
		}
		mustNotContain(t, p, "Your session has expired")
	}
	mustContain(t, h.get("/archive"), "Could not load events.")
}

func TestBuy(t *testing.T) {
	h := newHarness(t)
	h.login("ann")

	p := h.post("/betting", "/betting/select", url.Values{"event": {"1"}, "sub": {"20"}})
	mustContain(t, p, "Round 1")
	mustContain(t, p, "/betting/buy/21")

	confirm := h.get("/betting/buy/21")
	mustContain(t, confirm, "Confirm Purchase")
	mustContain(t, confirm, "$15.00")
	token := find(tokenRe, confirm.body)
	if token == "" {
		t.Fatal("no form token on the confirm page")
	}

	p = h.post("/betting/buy/21", "/betting/buy/21", url.Values{"confirm": {"yes"}, "form-token": {token}})
	if p.path != "/betting" {
		t.Errorf("got %v, want /betting", p.path)
	}
	mustContain(t, p, "Purchased Red for $15")
	mustContain(t, p, "Balance: $85.00")

	bets, keys := h.remote.placedBets()
	if len(bets) != 1 {
		t.Fatalf("got %v bets, want 1", len(bets))
	}
	bet := bets[0]
	want := calcapi.BetRequest{UserID: "1", ContestantID: "21", Amount: 15, SubEventID: "20"}
	if bet != want {
		t.Errorf("got bet %+v, want %+v", bet, want)
	}
	if keys[0] != token {
		t.Errorf("idempotency key %q, want %q", keys[0], token)
	}
	if e := h.db.entry(token); e.Kind != "buy" || e.Outcome != journal.OutcomeDone || e.Username != "ann" {
		t.Errorf("bad journal entry %+v", e)
	}

	// The same form submitted again must not reach the server.
	p = h.post("/betting/buy/21", "/betting/buy/21", url.Values{"confirm": {"yes"}, "form-token": {token}})
	mustContain(t, p, "This form has already been submitted.")
	mustContain(t, p, "Balance: $85.00")
	if bets, _ := h.remote.placedBets(); len(bets) != 1 {
		t.Errorf("duplicate form placed a bet")
	}

	p = h.post("/betting/buy/21", "/betting/buy/21", url.Values{"confirm": {"yes"}, "form-token": {"bad"}})
	if p.status != http.StatusBadRequest {
		t.Errorf("bad token: got %v, want 400", p.status)
	}
}

func TestBidValidation(t *testing.T) {
	h := newHarness(t)
	h.login("ann")
	h.post("/betting", "/betting/select", url.Values{"event": {"1"}, "sub": {"20"}})
	p := h.post("/betting", "/betting/bid/21", url.Values{"amount": {"abc"}, "form-token": {"x"}})
	mustContain(t, p, "Please enter a valid bid amount.")
}

func TestSessionExpired(t *testing.T) {
	h := newHarness(t)
	h.login("ann")
	h.post("/betting", "/betting/select", url.Values{"event": {"1"}, "sub": {"20"}})
	confirm := h.get("/betting/buy/21")

	h.remote.mu.Lock()
	clear(h.remote.sessions)
	h.remote.mu.Unlock()

	p := h.post("/betting/buy/21", "/betting/buy/21", url.Values{
		"confirm":    {"yes"},
		"form-token": {find(tokenRe, confirm.body)},
	})
	if p.path != "/login" {
		t.Errorf("got %v, want /login", p.path)
	}
	mustContain(t, p, "Your session has expired, please log in again.")
}

func TestCloseSubEvent(t *testing.T) {
	h := newHarness(t)
	h.remote.setCloseSub(func(w http.ResponseWriter) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Winner not declared"})
	})
	h.login("root")

	p := h.post("/admin", "/admin/events/1/sub-events/20/close", nil)
	if p.path != "/admin" {
		t.Errorf("got %v, want /admin", p.path)
	}
	mustContain(t, p, "Error: Winner not declared")

	h.remote.setCloseSub(func(w http.ResponseWriter) {
		writeJSON(w, http.StatusOK, map[string]any{
			"message":      "Sub-event closed and payouts distributed",
			"distribution": []map[string]any{{"userId": 1, "username": "ann", "amount": 45.5}},
			"debug":        map[string]any{"netPot": 50, "houseCut": 5},
		})
	})
	p = h.post("/admin", "/admin/events/1/sub-events/20/close", nil)
	mustContain(t, p, "Sub-event closed and payouts distributed")
	mustContain(t, p, "Net pot: $50.00, house cut: $5.00")
	mustContain(t, p, "Payouts: ann: $45.50")
	mustContain(t, p, "close-sub-event")
}

func TestCreateEvent(t *testing.T) {
	h := newHarness(t)
	h.login("root")

	d := draft.New().WithName("Derby").AddSubEvent()
	sub := d.SubEvents[0]
	d, err := d.WithSubEventName(sub.Key, "Heat 1")
	if err != nil {
		t.Fatal(err)
	}
	if d, err = d.WithContestantName(sub.Key, 1, "Blue"); err != nil {
		t.Fatal(err)
	}
	priceField := sub.ContestantField(draft.Contestant{Key: 1}, "price")

	v := d.Values()
	v.Set(priceField, "abc")
	v.Set("action", "submit")
	p := h.post("/admin/events/new", "/admin/events/new", v)
	if p.status != http.StatusOK || p.path != "/admin/events/new" {
		t.Fatalf("bad price: got %v %v", p.status, p.path)
	}
	mustContain(t, p, "Heat 1, contestant #1: invalid price")
	if got := h.remote.createdEvents(); len(got) != 0 {
		t.Fatalf("event with a bad price was submitted: %+v", got)
	}

	v = d.Values()
	v.Set("action", "add-sub")
	p = h.post("/admin/events/new", "/admin/events/new", v)
	mustContain(t, p, `value="remove:2"`)

	v = d.Values()
	v.Set(priceField, "25")
	v.Set("action", "submit")
	p = h.post("/admin/events/new", "/admin/events/new", v)
	if p.path != "/admin" {
		t.Fatalf("got %v, want redirect to /admin", p.path)
	}
	mustContain(t, p, "Event created")
	got := h.remote.createdEvents()
	if len(got) != 1 {
		t.Fatalf("got %v created events, want 1", len(got))
	}
	ev := got[0]
	if ev.Name != "Derby" || len(ev.SubEvents) != 1 || ev.SubEvents[0].Name != "Heat 1" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if cs := ev.SubEvents[0].Contestants; len(cs) != 1 || cs[0].Name != "Blue" || cs[0].Price != 25 {
		t.Errorf("unexpected contestants: %+v", cs)
	}
}

func TestCreateEventAfterCountChange(t *testing.T) {
	h := newHarness(t)
	h.login("root")

	d := draft.New().WithName("Derby").AddSubEvent()
	sub := d.SubEvents[0]
	d, err := d.WithSubEventName(sub.Key, "Heat 1")
	if err != nil {
		t.Fatal(err)
	}
	if d, err = d.WithContestantName(sub.Key, 1, "Blue"); err != nil {
		t.Fatal(err)
	}

	v := d.Values()
	v.Set(sub.Field("count"), "2")
	v.Set("action", "submit")
	p := h.post("/admin/events/new", "/admin/events/new", v)
	if p.status != http.StatusOK || p.path != "/admin/events/new" {
		t.Fatalf("got %v %v, want the builder again", p.status, p.path)
	}
	mustContain(t, p, resizedNotice)
	mustContain(t, p, `name="sub-1-c-2-name"`)
	if got := h.remote.createdEvents(); len(got) != 0 {
		t.Fatalf("resized event was submitted: %+v", got)
	}
}
