package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"propsheet-service/internal/app"
	"propsheet-service/internal/auth"
	"propsheet-service/internal/domain"
	"propsheet-service/internal/infra/memory"
	"propsheet-service/internal/session"
	"propsheet-service/internal/sms"
)

type captureSender struct {
	mu   sync.Mutex
	msgs []sms.Message
	err  error
}

func (s *captureSender) Send(_ context.Context, msg sms.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *captureSender) last(t *testing.T) sms.Message {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.msgs) == 0 {
		t.Fatalf("expected an sms to be sent")
	}
	return s.msgs[len(s.msgs)-1]
}

type testEnv struct {
	server *httptest.Server
	client *http.Client
	sender *captureSender
	sheets *memory.StaticSheetLoader
	users  *memory.UserRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		sender: &captureSender{},
		sheets: memory.NewStaticSheetLoader(map[string]domain.SheetSnapshot{"sheet-1": sampleSheet()}),
		users:  memory.NewUserRepository(),
	}

	codec, err := session.NewCodec("session-secret", 24*time.Hour)
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	store := session.NewCookieStore(codec, session.CookieOptions{})
	identity := app.NewIdentityService(env.users)
	notifier := app.NewLinkNotifier(env.sender, "Prop Sheet")

	magic, err := auth.NewMagicLinkStrategy(store, auth.MagicLinkOptions[domain.User]{
		Secret: "link-secret",
		Send:   notifier.Send,
		Verify: identity.VerifyMagicLink,
	})
	if err != nil {
		t.Fatalf("magic strategy: %v", err)
	}
	phone, err := auth.NewPhoneStrategy(store, auth.PhoneOptions[domain.User]{Verify: identity.VerifyPhone})
	if err != nil {
		t.Fatalf("phone strategy: %v", err)
	}

	ranking := app.NewRankingService(memory.NewSheetRepository(env.sheets, 0))
	env.server = httptest.NewServer(NewRouter(Handlers{
		Auth:    NewAuthHandler(magic, phone, store, AuthRoutes{}),
		Ranking: NewRankingHandler(ranking),
		Stream:  NewLeaderboardStream(ranking, 20*time.Millisecond),
	}))
	t.Cleanup(env.server.Close)

	env.client = &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, form url.Values, cookie string) *http.Response {
	t.Helper()
	target := path
	if !strings.HasPrefix(path, "http") {
		target = e.server.URL + path
	}
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req, err := http.NewRequest(method, target, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func cookieOf(t *testing.T, resp *http.Response) string {
	t.Helper()
	raw := resp.Header.Get("Set-Cookie")
	if raw == "" {
		t.Fatalf("expected Set-Cookie on %s", resp.Request.URL.Path)
	}
	return session.CookieHeader(raw)
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestMagicLinkSignIn(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/auth/magic", url.Values{"phone": {"(416) 555-0100"}, "name": {"Ada"}}, "")
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/login?sent=1" {
		t.Fatalf("expected redirect to sent page, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
	cookie := cookieOf(t, resp)

	msg := env.sender.last(t)
	if msg.To != "+14165550100" {
		t.Fatalf("expected normalized recipient, got %q", msg.To)
	}
	i := strings.Index(msg.Body, "http://")
	if i < 0 {
		t.Fatalf("expected link in body %q", msg.Body)
	}
	link := msg.Body[i:]
	if !strings.HasPrefix(link, env.server.URL+"/magic?token=") {
		t.Fatalf("unexpected link %q", link)
	}
	if env.users.Len() != 0 {
		t.Fatalf("expected no user before the link is followed")
	}

	resp = env.do(t, http.MethodGet, link, nil, cookie)
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/me" {
		t.Fatalf("expected redirect to /me, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
	cookie = cookieOf(t, resp)

	resp = env.do(t, http.MethodGet, "/me", nil, cookie)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from /me, got %d", resp.StatusCode)
	}
	user := decode[domain.User](t, resp)
	if user.Phone != "+14165550100" || user.DisplayName != "Ada" || user.ID == "" {
		t.Fatalf("unexpected user %+v", user)
	}

	resp = env.do(t, http.MethodPost, "/auth/logout", nil, cookie)
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected redirect on logout, got %d", resp.StatusCode)
	}
	resp = env.do(t, http.MethodGet, "/me", nil, cookieOf(t, resp))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", resp.StatusCode)
	}
}

func TestMagicLinkReturningUserGetsPersonalisedText(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.users.FindOrCreateByPhone(context.Background(), "+14165550100", "Ada"); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	env.do(t, http.MethodPost, "/auth/magic", url.Values{"phone": {"416.555.0100"}}, "")
	if body := env.sender.last(t).Body; !strings.HasPrefix(body, "Welcome back Ada!") {
		t.Fatalf("expected personalised body, got %q", body)
	}
}

func TestInvalidPhoneIsFlashedOnce(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/auth/magic", url.Values{"phone": {"123"}}, "")
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/login" {
		t.Fatalf("expected redirect to /login, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	resp = env.do(t, http.MethodGet, "/login", nil, cookieOf(t, resp))
	state := decode[loginState](t, resp)
	if state.Error != auth.Message(auth.ErrInvalidPhoneFormat) {
		t.Fatalf("unexpected flash %q", state.Error)
	}

	resp = env.do(t, http.MethodGet, "/login", nil, cookieOf(t, resp))
	if state := decode[loginState](t, resp); state.Error != "" {
		t.Fatalf("expected flash to be consumed, got %q", state.Error)
	}
}

func TestSendFailureIsBadGateway(t *testing.T) {
	env := newTestEnv(t)
	env.sender.err = errors.New("gateway down")

	resp := env.do(t, http.MethodPost, "/auth/magic", url.Values{"phone": {"4165550100"}}, "")
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
}

func TestPhoneSignIn(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/auth/phone", url.Values{"phone": {"+1 604-555-0199"}}, "")
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/me" {
		t.Fatalf("expected redirect to /me, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
	resp = env.do(t, http.MethodGet, "/me", nil, cookieOf(t, resp))
	if user := decode[domain.User](t, resp); user.Phone != "+16045550199" {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestPlacementAndLeaderboard(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/sheets/sheet-1/submissions/s2/placement", nil, "")
	if got := decode[domain.Placement](t, resp); got != (domain.Placement{CorrectCount: 1, TieCount: 1, Rank: 2}) {
		t.Fatalf("unexpected placement %+v", got)
	}

	resp = env.do(t, http.MethodGet, "/sheets/missing/submissions/s1/placement", nil, "")
	if got := decode[domain.Placement](t, resp); got != (domain.Placement{Rank: 1}) {
		t.Fatalf("expected unknown sheet to rank first, got %+v", got)
	}

	resp = env.do(t, http.MethodGet, "/sheets/sheet-1/leaderboard", nil, "")
	lb := decode[domain.Leaderboard](t, resp)
	if len(lb.Standings) != 3 || lb.Standings[0].SubmissionID != "s1" {
		t.Fatalf("unexpected leaderboard %+v", lb)
	}

	resp = env.do(t, http.MethodGet, "/sheets/missing/leaderboard", nil, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestLeaderboardStreamPushesChanges(t *testing.T) {
	env := newTestEnv(t)

	u := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws/leaderboard?sheetId=sheet-1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	first := readLeaderboard(t, conn)
	if first.Standings[0].SubmissionID != "s1" {
		t.Fatalf("unexpected initial leader %+v", first.Standings[0])
	}

	updated := sampleSheet()
	updated.Submissions[2].Selections = []domain.Selection{
		{PropositionID: "p1", OptionID: "o1"},
		{PropositionID: "p2", OptionID: "o3"},
		{PropositionID: "p3", OptionID: "o5"},
	}
	env.sheets.Put(updated)

	next := readLeaderboard(t, conn)
	if next.Standings[0].SubmissionID != "s3" || next.Standings[0].Rank != 1 {
		t.Fatalf("expected s3 to lead after update, got %+v", next.Standings)
	}
}

func TestLeaderboardStreamRequiresSheet(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/ws/leaderboard", nil, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	resp = env.do(t, http.MethodGet, "/ws/leaderboard?sheetId=missing", nil, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func readLeaderboard(t *testing.T, conn *websocket.Conn) domain.Leaderboard {
	t.Helper()
	var msg outboundMessage[domain.Leaderboard]
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if msg.Type != "leaderboard" {
		t.Fatalf("expected leaderboard message, got %s", msg.Type)
	}
	return msg.Payload
}

// sampleSheet has three graded propositions; s1 has 2 correct, s2 and s3 have 1 each.
func sampleSheet() domain.SheetSnapshot {
	a1, a2, a3 := "o1", "o3", "o5"
	return domain.SheetSnapshot{
		SheetID: "sheet-1",
		Propositions: []domain.Proposition{
			{ID: "p1", AnswerID: &a1},
			{ID: "p2", AnswerID: &a2},
			{ID: "p3", AnswerID: &a3},
		},
		Submissions: []domain.Submission{
			{ID: "s1", Selections: []domain.Selection{{PropositionID: "p1", OptionID: "o1"}, {PropositionID: "p2", OptionID: "o3"}, {PropositionID: "p3", OptionID: "o6"}}},
			{ID: "s2", Selections: []domain.Selection{{PropositionID: "p1", OptionID: "o1"}, {PropositionID: "p2", OptionID: "o4"}}},
			{ID: "s3", Selections: []domain.Selection{{PropositionID: "p1", OptionID: "o2"}, {PropositionID: "p3", OptionID: "o5"}}},
		},
	}
}
