package naver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"github.com/seenimoa/kospifeed/internal/diag"
	"github.com/seenimoa/kospifeed/pkg/models"
	"github.com/seenimoa/kospifeed/pkg/utils"
)

func itemsJSON(items ...string) string {
	out := `{"lastBuildDate":"Mon, 11 Aug 2025 14:00:00 +0900","total":100,"start":1,"display":50,"items":[`
	for i, it := range items {
		if i > 0 {
			out += ","
		}
		out += it
	}
	return out + "]}"
}

const (
	itemA       = `{"title":"<b>코스피</b> 2,600 회복","originallink":"https://news.example.com/a","link":"https://n.news.naver.com/a","description":"외국인 &quot;순매수&quot;","pubDate":"Mon, 11 Aug 2025 12:34:56 +0900"}`
	itemB       = `{"title":"유가증권 &amp; 공시","originallink":"","link":"https://n.news.naver.com/b","description":"","pubDate":"Mon, 11 Aug 2025 03:00:00 +0000"}`
	itemBadDate = `{"title":"날짜 오류","originallink":"https://news.example.com/c","link":"https://news.example.com/c","description":"","pubDate":"yesterday"}`
	itemNoLink  = `{"title":"링크 없음","originallink":"","link":"","description":"","pubDate":"Mon, 11 Aug 2025 12:00:00 +0900"}`
)

func newFakeNaver(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchKeywordsSkipsWithoutCredentials(t *testing.T) {
	var calls int32
	srv := newFakeNaver(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})
	rec := &diag.Recorder{}
	c := New("", "secret", WithBaseURL(srv.URL), WithSink(rec))

	events := c.FetchKeywords(context.Background(), []string{"삼성전자"})

	assert.Equal(t, 0, len(events))
	assert.NotEqual(t, nil, events)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
	skips := rec.Find("naver.skip")
	assert.Equal(t, 1, len(skips))
	assert.Equal(t, "no-credentials", skips[0].Fields["reason"])
}

func TestFetchKeywordsMapsAndKeepsKeywordOrder(t *testing.T) {
	srv := newFakeNaver(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.Header.Get("X-Naver-Client-Id") != "id" || r.Header.Get("X-Naver-Client-Secret") != "secret" {
			http.Error(w, "bad credentials", http.StatusUnauthorized)
			return
		}
		if q.Get("display") != "50" || q.Get("start") != "1" || q.Get("sort") != "date" {
			http.Error(w, "bad params", http.StatusBadRequest)
			return
		}
		switch r.URL.Query().Get("query") {
		case "first":
			time.Sleep(30 * time.Millisecond)
			fmt.Fprint(w, itemsJSON(itemA, itemNoLink))
		case "second":
			fmt.Fprint(w, itemsJSON(itemB, itemBadDate))
		default:
			http.Error(w, "unexpected", http.StatusBadRequest)
		}
	})
	rec := &diag.Recorder{}
	c := New("id", "secret", WithBaseURL(srv.URL), WithSink(rec), WithRateLimit(0))

	events := c.FetchKeywords(context.Background(), []string{" first ", "", "second"})

	assert.Equal(t, 3, len(events))

	a := events[0]
	assert.Equal(t, models.EventNews, a.Type)
	assert.Equal(t, "코스피 2,600 회복", a.Title)
	assert.Equal(t, "https://news.example.com/a", a.URL)
	assert.Equal(t, "https://n.news.naver.com/a", a.SourceURL)
	assert.Equal(t, "2025-08-11T12:34:56.000+09:00", a.PublishedAt.String())
	assert.Equal(t, "", a.Summary)
	assert.Equal(t, true, a.Symbol == nil)
	assert.Equal(t, 0.5, a.Score)

	b := events[1]
	assert.Equal(t, "유가증권 & 공시", b.Title)
	assert.Equal(t, "https://n.news.naver.com/b", b.URL)
	assert.Equal(t, "", b.SourceURL)
	assert.Equal(t, "2025-08-11T12:00:00.000+09:00", b.PublishedAt.String())

	c3 := events[2]
	assert.Equal(t, true, c3.PublishedAt.IsNull())
	assert.Equal(t, "", c3.SourceURL)

	assert.Equal(t, 2, len(rec.Find("naver.fetch")))
}

func TestFetchKeywordsDefaultsAndCap(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	srv := newFakeNaver(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.URL.Query().Get("query"))
		mu.Unlock()
		fmt.Fprint(w, itemsJSON())
	})
	c := New("id", "secret", WithBaseURL(srv.URL), WithConcurrency(1))

	c.FetchKeywords(context.Background(), nil)
	assert.Equal(t, DefaultKeywords, seen)

	seen = nil
	c.FetchKeywords(context.Background(), []string{"a", "b", "c", "d", "e", "f", "g"})
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, seen)
}

func TestFetchKeywordsDegradesPerKeyword(t *testing.T) {
	srv := newFakeNaver(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("query") {
		case "limited":
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"errorMessage":"Rate limit exceeded","errorCode":"012"}`)
		case "broken":
			fmt.Fprint(w, `{"items":`)
		default:
			fmt.Fprint(w, itemsJSON(itemA))
		}
	})
	rec := &diag.Recorder{}
	c := New("id", "secret", WithBaseURL(srv.URL), WithSink(rec))

	events := c.FetchKeywords(context.Background(), []string{"limited", "ok", "broken"})

	assert.Equal(t, 1, len(events))
	assert.Equal(t, "https://news.example.com/a", events[0].URL)

	recs := rec.Find("naver.fetch")
	assert.Equal(t, 3, len(recs))
	var limited int
	for _, r := range recs {
		if r.Fields["rate_limited"] == true {
			limited++
			assert.Equal(t, http.StatusTooManyRequests, r.Fields["status"])
		}
	}
	assert.Equal(t, 1, limited)
}

func TestFetchKeywordsTimeout(t *testing.T) {
	srv := newFakeNaver(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	c := New("id", "secret", WithBaseURL(srv.URL), WithTimeout(50*time.Millisecond))

	start := time.Now()
	events := c.FetchKeywords(context.Background(), []string{"slow"})
	assert.Equal(t, 0, len(events))
	assert.Equal(t, true, time.Since(start) < time.Second)
}

func TestSearch(t *testing.T) {
	var got url.Values
	srv := newFakeNaver(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		fmt.Fprint(w, itemsJSON(itemA, itemB))
	})
	c := New("id", "secret", WithBaseURL(srv.URL))

	events, err := c.Search(context.Background(), SearchParams{Query: " 삼성전자 ", Limit: 10, Sort: "sim"})

	assert.Equal(t, nil, err)
	assert.Equal(t, "삼성전자", got.Get("query"))
	assert.Equal(t, "10", got.Get("display"))
	assert.Equal(t, "1", got.Get("start"))
	assert.Equal(t, "sim", got.Get("sort"))
	assert.Equal(t, 2, len(events))
	assert.Equal(t, `외국인 "순매수"`, events[0].Summary)
	assert.Equal(t, "https://news.example.com/a", events[0].URL)
	assert.Equal(t, "https://n.news.naver.com/a", events[0].SourceURL)
	assert.Equal(t, "", events[1].Summary)
}

func TestSearchParamsClamp(t *testing.T) {
	tests := []struct {
		in   SearchParams
		want SearchParams
	}{
		{SearchParams{Query: "q"}, SearchParams{Query: "q", Limit: 30, Start: 1, Sort: "date"}},
		{SearchParams{Query: "q", Limit: 500, Start: 5000, Sort: "sim"}, SearchParams{Query: "q", Limit: 100, Start: 1000, Sort: "sim"}},
		{SearchParams{Query: "q", Limit: -1, Start: -1, Sort: "bogus"}, SearchParams{Query: "q", Limit: 30, Start: 1, Sort: "date"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.in.normalized())
	}
}

func TestSearchErrors(t *testing.T) {
	t.Run("missing credentials", func(t *testing.T) {
		_, err := New("id", "").Search(context.Background(), SearchParams{Query: "q"})
		assert.Equal(t, true, errors.Is(err, ErrCredentialsMissing))
	})

	t.Run("rate limited", func(t *testing.T) {
		srv := newFakeNaver(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"errorCode":"012"}`)
		})
		_, err := New("id", "secret", WithBaseURL(srv.URL)).Search(context.Background(), SearchParams{Query: "q"})
		assert.Equal(t, true, errors.Is(err, ErrRateLimited))
		var upErr *UpstreamError
		assert.Equal(t, true, errors.As(err, &upErr))
		assert.Equal(t, `{"errorCode":"012"}`, upErr.Body)
	})

	t.Run("other upstream status", func(t *testing.T) {
		srv := newFakeNaver(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
		_, err := New("id", "secret", WithBaseURL(srv.URL)).Search(context.Background(), SearchParams{Query: "q"})
		var upErr *UpstreamError
		assert.Equal(t, true, errors.As(err, &upErr))
		assert.Equal(t, http.StatusUnauthorized, upErr.StatusCode)
		assert.Equal(t, false, errors.Is(err, ErrRateLimited))
	})

	t.Run("bad timestamp", func(t *testing.T) {
		srv := newFakeNaver(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, itemsJSON(itemA, itemBadDate))
		})
		_, err := New("id", "secret", WithBaseURL(srv.URL)).Search(context.Background(), SearchParams{Query: "q"})
		assert.Equal(t, true, errors.Is(err, ErrBadTimestamp))
	})
}

func TestParsePubDate(t *testing.T) {
	got, err := ParsePubDate("Sun, 10 Aug 2025 23:30:00 +0000", utils.KST)
	assert.Equal(t, nil, err)
	assert.Equal(t, "2025-08-11T08:30:00.000+09:00", utils.FormatISO(got, utils.KST))

	_, err = ParsePubDate("", utils.KST)
	assert.Equal(t, true, errors.Is(err, ErrBadTimestamp))
}

func TestLinks(t *testing.T) {
	tests := []struct {
		it               Item
		canonical, relay string
	}{
		{Item{OriginalLink: "https://o", Link: "https://n"}, "https://o", "https://n"},
		{Item{OriginalLink: "", Link: "https://n"}, "https://n", ""},
		{Item{OriginalLink: "https://o", Link: "https://o"}, "https://o", ""},
		{Item{OriginalLink: "https://o", Link: ""}, "https://o", ""},
	}
	for _, tt := range tests {
		c, r := Links(tt.it)
		assert.Equal(t, tt.canonical, c)
		assert.Equal(t, tt.relay, r)
	}
}

func TestNormalizeKeywords(t *testing.T) {
	assert.Equal(t, DefaultKeywords, NormalizeKeywords([]string{" ", ""}, DefaultKeywords))
	assert.Equal(t, []string{"a", "b"}, NormalizeKeywords([]string{" a", "b "}, DefaultKeywords))
}

func TestMapItemsIdempotent(t *testing.T) {
	items := []Item{{Title: "<b>x</b>", Link: "https://n", PubDate: "Mon, 11 Aug 2025 12:00:00 +0900"}}
	a, _ := mapItems(items, utils.KST, lenient)
	b, _ := mapItems(items, utils.KST, lenient)
	assert.Equal(t, a, b)
}
