package scholar

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const resultsPage = `<html><body><div id="gs_res_ccl_mid">
<div class="gs_r gs_or gs_scl" data-cid="NOCITE1"><h3 class="gs_rt">Uncitable</h3></div>
<div class="gs_r gs_or gs_scl" data-cid="ABC123" data-rp="0">
  <h3 class="gs_rt"><a href="#">Widgets and gadgets</a></h3>
  <div class="gs_fl"><a class="gs_or_cit gs_or_btn gs_nph" href="javascript:void(0)">Cite</a></div>
</div>
<div class="gs_r gs_or gs_scl" data-cid="DEF456">
  <div class="gs_fl"><a class="gs_or_cit">Cite</a></div>
</div>
</div></body></html>`

const citePage = `<div id="gs_citt"><table>
<tr><th class="gs_cith">MLA</th><td><div class="gs_citr">Doe, John. "Widgets and gadgets." Journal of Things (2019).</div></td></tr>
<tr><th class="gs_cith">APA</th><td><div class="gs_citr">Doe, J. (2019).  Widgets and gadgets.
  <i>Journal of Things</i>.</div></td></tr>
<tr><th class="gs_cith">Chicago</th><td><div class="gs_citr">Doe, John. 2019.</div></td></tr>
</table></div>`

const challengePage = `<html><body><form id="captcha-form" action="/sorry/index">
<p>Our systems have detected unusual traffic from your computer network.</p></form></body></html>`

const emptyPage = `<html><body><div id="gs_res_ccl_mid"></div>
<div class="gs_med">Your search did not match any articles.</div></body></html>`

// scholarServer serves search and cite pages. challenges is the number of
// search requests answered with a challenge before results are served.
func scholarServer(t *testing.T, search string, challenges int32) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var searches atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/scholar" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("output") == "cite" {
			if r.URL.Query().Get("q") != "info:ABC123:scholar.google.com/" {
				t.Errorf("cite query = %q", r.URL.Query().Get("q"))
			}
			w.Write([]byte(citePage))
			return
		}
		if n := searches.Add(1); n <= challenges {
			w.Write([]byte(challengePage))
			return
		}
		w.Write([]byte(search))
	}))
	t.Cleanup(srv.Close)
	return srv, &searches
}

func newTestSession(srv *httptest.Server, opts ...Option) *Session {
	base := []Option{
		WithBaseURL(srv.URL),
		WithMinInterval(0),
		WithPollInterval(time.Millisecond),
		WithChallengeWait(time.Second),
	}
	return NewSession(append(base, opts...)...)
}

func TestCite_ReadsSecondVariant(t *testing.T) {
	srv, searches := scholarServer(t, resultsPage, 0)
	s := newTestSession(srv)
	defer s.Close()

	got, err := s.Cite(context.Background(), "Doe, J. (2019). Widgets and gadgets.")
	if err != nil {
		t.Fatalf("Cite() error = %v", err)
	}
	want := "Doe, J. (2019). Widgets and gadgets. Journal of Things."
	if got != want {
		t.Errorf("Cite() = %q, want %q", got, want)
	}
	if searches.Load() != 1 {
		t.Errorf("searches = %d, want 1", searches.Load())
	}
}

func TestCite_CarriesSessionCookies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("output") == "cite" {
			if c, err := r.Cookie("GSP"); err != nil || c.Value != "session-1" {
				t.Errorf("cite request cookie = %v, %v; want GSP=session-1", c, err)
			}
			w.Write([]byte(citePage))
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "GSP", Value: "session-1", Path: "/"})
		w.Write([]byte(resultsPage))
	}))
	defer srv.Close()

	s := newTestSession(srv)
	defer s.Close()

	if _, err := s.Cite(context.Background(), "q"); err != nil {
		t.Fatalf("Cite() error = %v", err)
	}
}

func TestCite_NoResults(t *testing.T) {
	srv, _ := scholarServer(t, emptyPage, 0)
	s := newTestSession(srv)
	defer s.Close()

	_, err := s.Cite(context.Background(), "nothing at all")
	if !errors.Is(err, ErrNoResults) {
		t.Errorf("Cite() error = %v, want ErrNoResults", err)
	}
}

func TestCite_ChallengeClears(t *testing.T) {
	srv, searches := scholarServer(t, resultsPage, 2)
	s := newTestSession(srv)
	defer s.Close()

	if _, err := s.Cite(context.Background(), "q"); err != nil {
		t.Fatalf("Cite() error = %v", err)
	}
	if searches.Load() != 3 {
		t.Errorf("searches = %d, want 3", searches.Load())
	}
}

func TestCite_ChallengeTimeout(t *testing.T) {
	srv, _ := scholarServer(t, resultsPage, 1<<30)
	s := newTestSession(srv, WithChallengeWait(20*time.Millisecond))
	defer s.Close()

	_, err := s.Cite(context.Background(), "q")
	if !errors.Is(err, ErrChallengeTimeout) {
		t.Errorf("Cite() error = %v, want ErrChallengeTimeout", err)
	}
}

func TestCite_TooManyRequestsIsChallenge(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := newTestSession(srv, WithChallengeWait(10*time.Millisecond))
	defer s.Close()

	_, err := s.Cite(context.Background(), "q")
	if !errors.Is(err, ErrChallengeTimeout) {
		t.Errorf("Cite() error = %v, want ErrChallengeTimeout", err)
	}
	if calls.Load() < 2 {
		t.Errorf("calls = %d, want the page fetched again while waiting", calls.Load())
	}
}

func TestCite_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	s := newTestSession(srv)
	defer s.Close()

	_, err := s.Cite(context.Background(), "q")
	if !errors.Is(err, ErrTransport) {
		t.Errorf("Cite() error = %v, want ErrTransport", err)
	}
}

func TestCite_AfterClose(t *testing.T) {
	srv, searches := scholarServer(t, resultsPage, 0)
	s := newTestSession(srv)
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if _, err := s.Cite(context.Background(), "q"); !errors.Is(err, ErrClosed) {
		t.Errorf("Cite() error = %v, want ErrClosed", err)
	}
	if searches.Load() != 0 {
		t.Error("closed session should not issue requests")
	}
}

func TestCite_CanceledWhileWaiting(t *testing.T) {
	srv, _ := scholarServer(t, resultsPage, 1<<30)
	s := newTestSession(srv, WithPollInterval(time.Hour), WithChallengeWait(time.Hour))
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := s.Cite(ctx, "q")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Cite() error = %v, want deadline exceeded", err)
	}
}

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestIsChallenge(t *testing.T) {
	tests := []struct {
		name   string
		html   string
		status int
		want   bool
	}{
		{name: "captcha form", html: challengePage, status: 200, want: true},
		{name: "recaptcha div", html: `<div id="recaptcha"></div>`, status: 200, want: true},
		{name: "sorry form", html: `<form action="https://www.google.com/sorry/index"></form>`, status: 200, want: true},
		{name: "unusual traffic text", html: `<p>Unusual traffic detected</p>`, status: 200, want: true},
		{name: "status 429", html: ``, status: 429, want: true},
		{name: "results", html: resultsPage, status: 200, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isChallenge(mustDoc(t, tt.html), tt.status); got != tt.want {
				t.Errorf("isChallenge() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFirstCitableResult(t *testing.T) {
	cid, ok := firstCitableResult(mustDoc(t, resultsPage))
	if !ok || cid != "ABC123" {
		t.Errorf("firstCitableResult() = %q, %v; want ABC123", cid, ok)
	}
	if _, ok := firstCitableResult(mustDoc(t, emptyPage)); ok {
		t.Error("empty page should have no result")
	}
}

func TestCitationVariant(t *testing.T) {
	doc := mustDoc(t, citePage)
	if got, _ := citationVariant(doc, 0); !strings.HasPrefix(got, "Doe, John.") {
		t.Errorf("variant 0 = %q", got)
	}
	if _, ok := citationVariant(doc, 5); ok {
		t.Error("out of range variant should report false")
	}
}
