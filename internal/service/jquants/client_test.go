package jquants

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"KabuFeed/pkg/config"
	applogger "KabuFeed/pkg/logger"
)

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func testCreds() config.Credentials {
	return config.Credentials{MailAddress: "user@example.com", Password: "secret"}
}

// authStub wires the two token endpoints into a mux and counts calls.
type authStub struct {
	authUser    atomic.Int64
	authRefresh atomic.Int64
	rejectFirst bool
	rejectToken string
}

func (a *authStub) install(mux *http.ServeMux) {
	mux.HandleFunc("/token/auth_user", func(w http.ResponseWriter, r *http.Request) {
		a.authUser.Add(1)
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["mailaddress"] == "" || body["password"] == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		fmt.Fprintf(w, `{"refreshToken":"rt-%d"}`, a.authUser.Load())
	})
	mux.HandleFunc("/token/auth_refresh", func(w http.ResponseWriter, r *http.Request) {
		n := a.authRefresh.Add(1)
		if a.rejectFirst && n == 1 {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"message":"refreshtoken expired"}`)
			return
		}
		if a.rejectToken != "" && r.URL.Query().Get("refreshtoken") == a.rejectToken {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"message":"refreshtoken expired"}`)
			return
		}
		if r.URL.Query().Get("refreshtoken") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		fmt.Fprintf(w, `{"idToken":"id-%d"}`, n)
	})
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	return NewClient(testLogger(t),
		WithBaseURL(srv.URL),
		WithCredentials(testCreds()),
		WithRateLimit(1000, 1000),
	)
}

func TestTokenLifecycle(t *testing.T) {
	stub := &authStub{}
	mux := http.NewServeMux()
	stub.install(mux)
	mux.HandleFunc("/listed/sections", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer id-1" {
			t.Errorf("Authorization = %q, want Bearer id-1", got)
		}
		fmt.Fprint(w, `{"sections":[{"SectorCode":"0050","SectorName":"水産・農林業"}]}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		sections, err := c.ListedSections(ctx)
		if err != nil {
			t.Fatalf("ListedSections: %v", err)
		}
		if len(sections) != 1 || sections[0].SectorCode != "0050" {
			t.Fatalf("unexpected sections: %+v", sections)
		}
	}

	// Tokens are cached across calls.
	if got := stub.authUser.Load(); got != 1 {
		t.Errorf("auth_user calls = %d, want 1", got)
	}
	if got := stub.authRefresh.Load(); got != 1 {
		t.Errorf("auth_refresh calls = %d, want 1", got)
	}
}

func TestStaleRefreshTokenRetried(t *testing.T) {
	stub := &authStub{rejectFirst: true}
	mux := http.NewServeMux()
	stub.install(mux)
	mux.HandleFunc("/listed/sections", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"sections":[]}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv)
	if _, err := c.ListedSections(context.Background()); err != nil {
		t.Fatalf("ListedSections after stale token: %v", err)
	}

	// First refresh is rejected, a fresh login is performed, second works.
	if got := stub.authRefresh.Load(); got != 2 {
		t.Errorf("auth_refresh calls = %d, want 2", got)
	}
	if got := stub.authUser.Load(); got != 2 {
		t.Errorf("auth_user calls = %d, want 2", got)
	}
}

func TestNoCredentials(t *testing.T) {
	srv := httptest.NewServer(http.NewServeMux())
	defer srv.Close()

	c := NewClient(testLogger(t), WithBaseURL(srv.URL), WithRateLimit(1000, 1000))
	if _, err := c.ListedSections(context.Background()); err == nil {
		t.Fatal("expected error without credentials")
	}
}

func TestDailyQuotesPagination(t *testing.T) {
	stub := &authStub{}
	mux := http.NewServeMux()
	stub.install(mux)
	mux.HandleFunc("/prices/daily_quotes", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("code"); got != "7203" {
			t.Errorf("code = %q, want 7203", got)
		}
		switch r.URL.Query().Get("pagination_key") {
		case "":
			fmt.Fprint(w, `{"daily_quotes":[{"Code":"7203","Date":"2024-01-04","Close":2500,"Volume":1000,"AdjustmentFactor":1}],"pagination_key":"p2"}`)
		case "p2":
			fmt.Fprint(w, `{"daily_quotes":[{"Code":"7203","Date":"2024-01-05","Close":2520,"Volume":1100,"AdjustmentFactor":1}]}`)
		default:
			t.Errorf("unexpected pagination_key %q", r.URL.Query().Get("pagination_key"))
			w.WriteHeader(http.StatusBadRequest)
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv)
	quotes, err := c.DailyQuotes(context.Background(), "7203", "", "", "")
	if err != nil {
		t.Fatalf("DailyQuotes: %v", err)
	}
	if len(quotes) != 2 {
		t.Fatalf("len = %d, want 2", len(quotes))
	}
	if quotes[1].Date != "2024-01-05" || quotes[1].CloseValue() != 2520 {
		t.Errorf("unexpected second quote: %+v", quotes[1])
	}
}

func TestTradesSpecParams(t *testing.T) {
	stub := &authStub{}
	mux := http.NewServeMux()
	stub.install(mux)
	mux.HandleFunc("/markets/trades_spec", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("section") != SectionTSEPrime {
			t.Errorf("section = %q, want %s", q.Get("section"), SectionTSEPrime)
		}
		if q.Get("from") != "20240101" || q.Get("to") != "20240131" {
			t.Errorf("range = %q..%q", q.Get("from"), q.Get("to"))
		}
		fmt.Fprint(w, `{"trades_spec":[{"PublishedDate":"2024-01-12","StartDate":"2024-01-04","EndDate":"2024-01-05","Section":"TSEPrime","TotalTotal":123.0}]}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv)
	specs, err := c.TradesSpec(context.Background(), SectionTSEPrime, "20240101", "20240131")
	if err != nil {
		t.Fatalf("TradesSpec: %v", err)
	}
	if len(specs) != 1 || specs[0].Section != "TSEPrime" {
		t.Fatalf("unexpected specs: %+v", specs)
	}
	if specs[0].TotalTotal == nil || *specs[0].TotalTotal != 123 {
		t.Errorf("TotalTotal = %v, want 123", specs[0].TotalTotal)
	}
}

func TestListedInfoEnrichment(t *testing.T) {
	stub := &authStub{}
	mux := http.NewServeMux()
	stub.install(mux)
	mux.HandleFunc("/listed/info", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"info":[{"Code":"7203","CompanyName":"トヨタ自動車","Sector17Code":"6","Sector33Code":"3700","MarketCode":"111"}]}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv)
	info, err := c.ListedInfo(context.Background(), "7203")
	if err != nil {
		t.Fatalf("ListedInfo: %v", err)
	}
	if len(info) != 1 {
		t.Fatalf("len = %d, want 1", len(info))
	}
	got := info[0]
	if got.Sector17CodeName != "自動車・輸送機" {
		t.Errorf("Sector17CodeName = %q", got.Sector17CodeName)
	}
	if got.Sector33CodeName != "輸送用機器" {
		t.Errorf("Sector33CodeName = %q", got.Sector33CodeName)
	}
	if got.MarketCodeName != "プライム" {
		t.Errorf("MarketCodeName = %q", got.MarketCodeName)
	}
}

func TestDailyQuotesRange(t *testing.T) {
	stub := &authStub{}
	mux := http.NewServeMux()
	stub.install(mux)
	var days atomic.Int64
	mux.HandleFunc("/prices/daily_quotes", func(w http.ResponseWriter, r *http.Request) {
		days.Add(1)
		date := r.URL.Query().Get("date")
		switch date {
		case "2020-02-28", "2020-03-02":
			fmt.Fprintf(w, `{"daily_quotes":[{"Code":"7203","Date":"%s","Close":2500,"AdjustmentFactor":1}]}`, date)
		default:
			// weekend or leap day holiday
			fmt.Fprint(w, `{"daily_quotes":[]}`)
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv)
	quotes, err := c.DailyQuotesRange(context.Background(), "20200227", "20200302")
	if err != nil {
		t.Fatalf("DailyQuotesRange: %v", err)
	}

	// 2020-02-27..2020-03-02 spans the leap day: five calendar days.
	if got := days.Load(); got != 5 {
		t.Errorf("fetched days = %d, want 5", got)
	}
	if len(quotes) != 2 {
		t.Fatalf("len = %d, want 2", len(quotes))
	}
	if quotes[0].Date != "2020-02-28" || quotes[1].Date != "2020-03-02" {
		t.Errorf("dates = %s, %s", quotes[0].Date, quotes[1].Date)
	}
}

func TestDailyQuotesRangeInvalid(t *testing.T) {
	c := NewClient(testLogger(t), WithCredentials(testCreds()))
	if _, err := c.DailyQuotesRange(context.Background(), "20240110", "20240101"); err == nil {
		t.Fatal("expected error for reversed range")
	}
}

func TestStaleConfiguredRefreshTokenReplaced(t *testing.T) {
	stub := &authStub{rejectToken: "stale-from-config"}
	mux := http.NewServeMux()
	stub.install(mux)
	mux.HandleFunc("/listed/sections", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"sections":[]}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	creds := testCreds()
	creds.RefreshToken = "stale-from-config"
	c := NewClient(testLogger(t),
		WithBaseURL(srv.URL),
		WithCredentials(creds),
		WithRateLimit(1000, 1000),
	)

	// The configured token is rejected; login credentials take over.
	if _, err := c.ListedSections(context.Background()); err != nil {
		t.Fatalf("ListedSections with stale configured token: %v", err)
	}
	if got := stub.authUser.Load(); got != 1 {
		t.Errorf("auth_user calls = %d, want 1", got)
	}
	if got := stub.authRefresh.Load(); got != 2 {
		t.Errorf("auth_refresh calls = %d, want 2", got)
	}
}

func TestDailyQuotesSortedAcrossPages(t *testing.T) {
	stub := &authStub{}
	mux := http.NewServeMux()
	stub.install(mux)
	mux.HandleFunc("/prices/daily_quotes", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("pagination_key") {
		case "":
			fmt.Fprint(w, `{"daily_quotes":[{"Code":"9984","Date":"2024-01-05","Close":6800,"AdjustmentFactor":1}],"pagination_key":"p2"}`)
		case "p2":
			fmt.Fprint(w, `{"daily_quotes":[{"Code":"7203","Date":"2024-01-05","Close":2520,"AdjustmentFactor":1},{"Code":"7203","Date":"2024-01-04","Close":2500,"AdjustmentFactor":1}]}`)
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv)
	quotes, err := c.DailyQuotes(context.Background(), "", "2024-01-05", "", "")
	if err != nil {
		t.Fatalf("DailyQuotes: %v", err)
	}

	want := [][2]string{
		{"7203", "2024-01-04"},
		{"7203", "2024-01-05"},
		{"9984", "2024-01-05"},
	}
	if len(quotes) != len(want) {
		t.Fatalf("len = %d, want %d", len(quotes), len(want))
	}
	for i, w := range want {
		if quotes[i].Code != w[0] || quotes[i].Date != w[1] {
			t.Errorf("quote %d = %s/%s, want %s/%s", i, quotes[i].Code, quotes[i].Date, w[0], w[1])
		}
	}
}

func TestRetryOnThrottle(t *testing.T) {
	stub := &authStub{}
	mux := http.NewServeMux()
	stub.install(mux)
	var calls atomic.Int64
	mux.HandleFunc("/prices/daily_quotes", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"daily_quotes":[{"Code":"7203","Date":"2024-01-04","Close":2500,"AdjustmentFactor":1}]}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv)
	c.retryWait = time.Millisecond

	quotes, err := c.DailyQuotes(context.Background(), "7203", "", "", "")
	if err != nil {
		t.Fatalf("DailyQuotes after 429: %v", err)
	}
	if len(quotes) != 1 {
		t.Fatalf("len = %d, want 1", len(quotes))
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("upstream calls = %d, want 2", got)
	}
}

func TestRetriesExhausted(t *testing.T) {
	stub := &authStub{}
	mux := http.NewServeMux()
	stub.install(mux)
	var calls atomic.Int64
	mux.HandleFunc("/prices/daily_quotes", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv)
	c.retryWait = time.Millisecond

	if _, err := c.DailyQuotes(context.Background(), "7203", "", "", ""); err == nil {
		t.Fatal("expected error after persistent 503")
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("upstream calls = %d, want 3", got)
	}
}

func TestTopixSortedByDate(t *testing.T) {
	stub := &authStub{}
	mux := http.NewServeMux()
	stub.install(mux)
	mux.HandleFunc("/indices/topix", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("from") != "20240104" || q.Get("to") != "20240105" {
			t.Errorf("range = %q..%q", q.Get("from"), q.Get("to"))
		}
		fmt.Fprint(w, `{"topix":[{"Date":"2024-01-05","Open":2370.5,"High":2385,"Low":2365.2,"Close":2380.1},{"Date":"2024-01-04","Open":2360,"High":2375,"Low":2355,"Close":2370.5}]}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv)
	bars, err := c.Topix(context.Background(), "20240104", "20240105")
	if err != nil {
		t.Fatalf("Topix: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("len = %d, want 2", len(bars))
	}
	if bars[0].Date != "2024-01-04" || bars[1].Date != "2024-01-05" {
		t.Errorf("dates = %s, %s", bars[0].Date, bars[1].Date)
	}
	if bars[0].Close != 2370.5 {
		t.Errorf("Close = %v, want 2370.5", bars[0].Close)
	}
}

func TestStatementsSortedByDisclosure(t *testing.T) {
	stub := &authStub{}
	mux := http.NewServeMux()
	stub.install(mux)
	mux.HandleFunc("/fins/statements", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("code"); got != "7203" {
			t.Errorf("code = %q, want 7203", got)
		}
		fmt.Fprint(w, `{"statements":[`+
			`{"DisclosedDate":"2024-02-06","DisclosedUnixTime":"1707195600","LocalCode":"72030","DisclosureNumber":"20240206533210","NetSales":"45095325000000"},`+
			`{"DisclosedDate":"2023-11-01","DisclosedUnixTime":"1698822000","LocalCode":"72030","DisclosureNumber":"20231101522915","NetSales":"21981616000000"}]}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv)
	stmts, err := c.Statements(context.Background(), "7203", "")
	if err != nil {
		t.Fatalf("Statements: %v", err)
	}
	if len(stmts) != 2 {
		t.Fatalf("len = %d, want 2", len(stmts))
	}
	if stmts[0].DisclosedUnixTime != "1698822000" || stmts[1].DisclosedUnixTime != "1707195600" {
		t.Errorf("order = %s, %s", stmts[0].DisclosedUnixTime, stmts[1].DisclosedUnixTime)
	}
	if stmts[0].NetSales != "21981616000000" {
		t.Errorf("NetSales = %q", stmts[0].NetSales)
	}
}

func TestAnnouncementSorted(t *testing.T) {
	stub := &authStub{}
	mux := http.NewServeMux()
	stub.install(mux)
	mux.HandleFunc("/fins/announcement", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"announcement":[`+
			`{"Date":"2024-02-09","Code":"9984","CompanyName":"ソフトバンクグループ","FiscalQuarter":"第３四半期"},`+
			`{"Date":"2024-02-09","Code":"7203","CompanyName":"トヨタ自動車","FiscalQuarter":"第３四半期"},`+
			`{"Date":"2024-02-08","Code":"9984","CompanyName":"ソフトバンクグループ","FiscalQuarter":"第３四半期"}]}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv)
	anns, err := c.Announcement(context.Background())
	if err != nil {
		t.Fatalf("Announcement: %v", err)
	}
	want := [][2]string{
		{"2024-02-08", "9984"},
		{"2024-02-09", "7203"},
		{"2024-02-09", "9984"},
	}
	if len(anns) != len(want) {
		t.Fatalf("len = %d, want %d", len(anns), len(want))
	}
	for i, w := range want {
		if anns[i].Date != w[0] || anns[i].Code != w[1] {
			t.Errorf("entry %d = %s/%s, want %s/%s", i, anns[i].Date, anns[i].Code, w[0], w[1])
		}
	}
}

func TestStatementsRangeCache(t *testing.T) {
	stub := &authStub{}
	mux := http.NewServeMux()
	stub.install(mux)
	var calls atomic.Int64
	mux.HandleFunc("/fins/statements", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		date := r.URL.Query().Get("date")
		fmt.Fprintf(w, `{"statements":[{"DisclosedDate":"%s","LocalCode":"72030","DisclosureNumber":"1","TypeOfDocument":"FYFinancialStatements"}]}`, date)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	dir := t.TempDir()
	c := NewClient(testLogger(t),
		WithBaseURL(srv.URL),
		WithCredentials(testCreds()),
		WithRateLimit(1000, 1000),
		WithCacheDir(dir),
	)

	first, err := c.StatementsRange(context.Background(), "20240109", "20240110")
	if err != nil {
		t.Fatalf("StatementsRange: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("len = %d, want 2", len(first))
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("upstream calls = %d, want 2", got)
	}

	// Second run is served from the on-disk cache.
	second, err := c.StatementsRange(context.Background(), "20240109", "20240110")
	if err != nil {
		t.Fatalf("StatementsRange cached: %v", err)
	}
	if len(second) != 2 {
		t.Fatalf("cached len = %d, want 2", len(second))
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("upstream calls after cache = %d, want 2", got)
	}
}
