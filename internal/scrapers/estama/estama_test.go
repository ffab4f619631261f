package estama

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"portalbot-backend/internal/components/telemetry"
	"portalbot-backend/internal/scrapers/extract"
	"portalbot-backend/internal/scrapers/session"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var testCreds = Credentials{Mail: "owner@example.com", Password: "secret"}

type post struct {
	path    string
	form    url.Values
	ajax    string
	referer string
}

type fakePortal struct {
	mu             sync.Mutex
	csrf           string
	password       string
	sid            string
	logins         int
	posts          []post
	pages          map[string]string
	actionStatus   int
	fallbackStatus int
}

func newFakePortal() *fakePortal {
	return &fakePortal{
		csrf:           "login-token",
		password:       testCreds.Password,
		pages:          map[string]string{},
		actionStatus:   http.StatusOK,
		fallbackStatus: http.StatusNotFound,
	}
}

func (f *fakePortal) with(fn func(f *fakePortal)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakePortal) recordedPosts() []post {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]post(nil), f.posts...)
}

func (f *fakePortal) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Method == http.MethodPost {
		r.ParseForm()
		f.posts = append(f.posts, post{
			path:    r.URL.Path,
			form:    r.PostForm,
			ajax:    r.Header.Get("X-Requested-With"),
			referer: r.Header.Get("Referer"),
		})
	}

	switch {
	case r.URL.Path == "/login/":
		if f.csrf == "" {
			fmt.Fprint(w, `<html><body><form></form></body></html>`)
			return
		}
		fmt.Fprintf(w, `<html><body><form><input type="hidden" id="csrf_footer" value="%s"></form></body></html>`, f.csrf)
		return
	case r.URL.Path == "/post/login_shop":
		f.logins++
		form := r.PostForm
		if form.Get("ctk") != f.csrf ||
			form.Get("str[0][name]") != "mail" ||
			form.Get("str[0][value]") != testCreds.Mail ||
			form.Get("str[1][value]") != f.password {
			fmt.Fprint(w, `["NG","メールアドレスまたはパスワードが違います"]`)
			return
		}
		f.sid = fmt.Sprint(f.logins)
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: f.sid, Path: "/"})
		fmt.Fprint(w, `["REDIRECT_OK","/admin/"]`)
		return
	}

	cookie, err := r.Cookie("sid")
	if err != nil || f.sid == "" || cookie.Value != f.sid {
		http.Redirect(w, r, "/login/", http.StatusFound)
		return
	}

	switch {
	case strings.HasPrefix(r.URL.Path, "/post/"):
		w.WriteHeader(f.actionStatus)
		return
	case r.URL.Path == "/admin/appeal/":
		w.WriteHeader(f.fallbackStatus)
		return
	}

	page, ok := f.pages[r.URL.Path]
	if !ok {
		page = "<html><body></body></html>"
	}
	fmt.Fprint(w, page)
}

func newTestClient(t testing.TB, portal *fakePortal, rec *telemetry.Recorder) *Client {
	srv := httptest.NewServer(portal)
	t.Cleanup(srv.Close)

	client, err := NewClient(Options{
		Credentials:      testCreds,
		ShopNameKeywords: []string{"全力エステ", "仙台"},
	}, session.Options{BaseUrl: srv.URL}, rec)
	require.NoError(t, err)
	return client
}

func TestLogin(t *testing.T) {
	portal := newFakePortal()
	client := newTestClient(t, portal, &telemetry.Recorder{})
	ctx := context.Background()

	require.NoError(t, client.EnsureLogin(ctx))
	require.NoError(t, client.EnsureLogin(ctx))
	require.Equal(t, session.Authenticated, client.State())

	posts := portal.recordedPosts()
	require.Len(t, posts, 1)
	require.Equal(t, "/post/login_shop", posts[0].path)
	require.Equal(t, "XMLHttpRequest", posts[0].ajax)
	require.True(t, strings.HasSuffix(posts[0].referer, "/login/"))
	require.Equal(t, "password", posts[0].form.Get("str[1][name]"))
	require.Equal(t, "r", posts[0].form.Get("str[2][name]"))
	require.Equal(t, "", posts[0].form.Get("str[2][value]"))
}

func TestLoginMissingCSRF(t *testing.T) {
	portal := newFakePortal()
	portal.csrf = ""
	client := newTestClient(t, portal, &telemetry.Recorder{})

	err := client.Login(context.Background())
	require.True(t, session.IsAuthError(err))
	require.Empty(t, portal.recordedPosts())
}

func TestLoginRejected(t *testing.T) {
	portal := newFakePortal()
	portal.password = "other"
	client := newTestClient(t, portal, &telemetry.Recorder{})

	_, err := client.Dashboard(context.Background())
	require.True(t, session.IsAuthError(err))
	require.Equal(t, session.Unauthenticated, client.State())
}

func TestReloginAfterExpiry(t *testing.T) {
	portal := newFakePortal()
	client := newTestClient(t, portal, &telemetry.Recorder{})
	ctx := context.Background()

	require.NoError(t, client.Login(ctx))
	portal.with(func(f *fakePortal) { f.sid = "" })

	_, err := client.GuidanceStatus(ctx)
	require.NoError(t, err)
	portal.with(func(f *fakePortal) { require.Equal(t, 2, f.logins) })
}

func TestDashboard(t *testing.T) {
	portal := newFakePortal()
	portal.pages["/admin/"] = `<html><body>
		<h1>全力エステ 仙台</h1>
		<p>店舗番号: 12345</p>
		<p>ご契約期間: 2024/01/01 〜 2024/12/31</p>
		<p>ゴールドプラン</p>
		<div><span>1200</span><span>保有ポイント</span></div>
		<a href="/admin/reservation/1">新規予約が2件あります</a>
		<a>予約 (no href)</a>
		<a href="/admin/news/">お知らせ</a>
	</body></html>`
	client := newTestClient(t, portal, &telemetry.Recorder{})

	dash, err := client.Dashboard(context.Background())
	require.NoError(t, err)

	diff := cmp.Diff(Dashboard{
		ShopName:       "全力エステ 仙台",
		ShopNumber:     "店舗番号: 12345",
		Plan:           "ゴールドプラン",
		ContractPeriod: "ご契約期間: 2024/01/01 〜 2024/12/31",
		Points:         "1200",
		Notifications:  []string{"新規予約が2件あります"},
	}, dash)
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestDashboardShopNameLabel(t *testing.T) {
	portal := newFakePortal()
	portal.pages["/admin/"] = `<html><body><dl><dt>店舗名</dt><dd>リラク 青葉</dd></dl></body></html>`
	client := newTestClient(t, portal, &telemetry.Recorder{})

	dash, err := client.Dashboard(context.Background())
	require.NoError(t, err)
	require.Equal(t, "リラク 青葉", dash.ShopName)
	require.Equal(t, "", dash.Points)
	require.NotNil(t, dash.Notifications)
}

func TestGuidanceStatus(t *testing.T) {
	cases := []struct {
		page   string
		status string
	}{
		{"<p>今すぐご案内可</p><p>受付中</p>", StatusAvailable},
		{"<p>本日のご案内終了</p>", StatusClosed},
		{"<p>受付中</p>", StatusAccepting},
		{"<p>Closed</p>", StatusUnknown},
	}

	for _, tc := range cases {
		portal := newFakePortal()
		portal.pages["/admin/guidance/"] = "<html><body>" + tc.page + "</body></html>"
		client := newTestClient(t, portal, &telemetry.Recorder{})

		status, err := client.GuidanceStatus(context.Background())
		require.NoError(t, err)
		require.Equal(t, tc.status, status.Status)
	}

	portal := newFakePortal()
	portal.pages["/admin/guidance/"] = `<html><body>
		<p>受付中</p>
		<ul><li>さくら</li><li>ひまわり</li><li>Sakura</li><li>はなこ 20歳</li></ul>
	</body></html>`
	client := newTestClient(t, portal, &telemetry.Recorder{})

	status, err := client.GuidanceStatus(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"受付中", "さくら", "ひまわり"}, status.Therapists)
}

func TestSchedule(t *testing.T) {
	portal := newFakePortal()
	portal.pages["/admin/schedule/"] = `<html><body><table>
		<tr><th>2月24日(火)</th></tr>
		<tr><td>さくら</td><td>13:00-25:00</td></tr>
	</table></body></html>`
	client := newTestClient(t, portal, &telemetry.Recorder{})

	schedule, err := client.Schedule(context.Background())
	require.NoError(t, err)
	require.Equal(t, "\n📅 2月24日(火)\n  ⏰ 13:00-25:00", schedule.ScheduleText)

	portal.with(func(f *fakePortal) {
		f.pages["/admin/schedule/"] = "<html><body><p>" + strings.Repeat("あ", 2000) + "</p></body></html>"
	})
	schedule, err = client.Schedule(context.Background())
	require.NoError(t, err)
	require.Equal(t, strings.Repeat("あ", ScheduleFallbackRunes), schedule.ScheduleText)
}

func TestReservations(t *testing.T) {
	var page strings.Builder
	page.WriteString("<html><body><table>")
	for i := 0; i < 25; i++ {
		fmt.Fprintf(&page, "<tr><td>%d</td><td>予約</td></tr>", i)
	}
	page.WriteString("</table></body></html>")

	portal := newFakePortal()
	portal.pages["/admin/reservation/"] = page.String()
	client := newTestClient(t, portal, &telemetry.Recorder{})

	res, err := client.Reservations(context.Background())
	require.NoError(t, err)
	require.Equal(t, 25, res.Count)
	require.Len(t, res.Reservations, extract.ReservationCap)
}

func TestNewsList(t *testing.T) {
	var page strings.Builder
	page.WriteString("<html><body><table><tr><td>タイトル</td><td>日付</td></tr>")
	for i := 0; i < 12; i++ {
		fmt.Fprintf(&page, "<tr><td>%s%d</td><td>本文</td><td>2024/02/%02d</td></tr>", strings.Repeat("お", 55), i, i+1)
	}
	page.WriteString("<tr><td>single cell</td></tr></table></body></html>")

	portal := newFakePortal()
	portal.pages["/admin/news/"] = page.String()
	client := newTestClient(t, portal, &telemetry.Recorder{})

	news, err := client.NewsList(context.Background())
	require.NoError(t, err)
	require.Len(t, news, NewsCap)
	require.Equal(t, NewsItem{Title: strings.Repeat("お", NewsTitleRunes), Date: "2024/02/01"}, news[0])

	portal.with(func(f *fakePortal) {
		f.pages["/admin/news/"] = `<html><body><ul>
			<li>2024-02-24 メンテナンスのお知らせ</li>
			<li>2024/1/5</li>
			<li>日付のないお知らせ</li>
		</ul></body></html>`
	})
	news, err = client.NewsList(context.Background())
	require.NoError(t, err)
	require.Equal(t, []NewsItem{
		{Title: "メンテナンスのお知らせ", Date: "2024-02-24"},
		{Title: "", Date: "2024/1/5"},
	}, news)
}

const guidancePage = `<html><body>
	<input type="hidden" id="csrf_footer" value="page-token">
	<form id="form-appeal"><input type="hidden" name="shop_id" value="77"><input type="hidden" name="kind" value="one_click"><input type="submit"></form>
	<a class="send-post" data-post="guidance_update" data-form="other">更新</a>
	<a class="send-post" data-post="shop_appeal" data-form="appeal">集客ワンクリックアピール</a>
</body></html>`

func TestClickAppeal(t *testing.T) {
	portal := newFakePortal()
	portal.pages["/admin/guidance/"] = guidancePage
	rec := &telemetry.Recorder{}
	client := newTestClient(t, portal, rec)

	ok, err := client.ClickAppeal(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, rec.HasWarning(report_client_click_appeal))

	posts := portal.recordedPosts()
	require.Len(t, posts, 2)
	appeal := posts[1]
	require.Equal(t, "/post/shop_appeal", appeal.path)
	require.Equal(t, "XMLHttpRequest", appeal.ajax)
	require.True(t, strings.HasSuffix(appeal.referer, "/admin/guidance/"))
	require.Equal(t, url.Values{
		"ctk":           {"page-token"},
		"str[0][name]":  {"shop_id"},
		"str[0][value]": {"77"},
		"str[1][name]":  {"kind"},
		"str[1][value]": {"one_click"},
	}, appeal.form)
}

func TestClickAppealFallback(t *testing.T) {
	portal := newFakePortal()
	portal.pages["/admin/guidance/"] = guidancePage
	portal.actionStatus = http.StatusInternalServerError
	client := newTestClient(t, portal, &telemetry.Recorder{})

	ok, err := client.ClickAppeal(context.Background())
	require.NoError(t, err)
	require.False(t, ok)

	portal.with(func(f *fakePortal) { f.fallbackStatus = http.StatusOK })
	ok, err = client.ClickAppeal(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
}

func TestClickAppealNoTrigger(t *testing.T) {
	portal := newFakePortal()
	portal.pages["/admin/guidance/"] = `<html><body><a class="send-post" data-post="guidance_update">更新</a></body></html>`
	rec := &telemetry.Recorder{}
	client := newTestClient(t, portal, rec)

	ok, err := client.ClickAppeal(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
	require.Len(t, portal.recordedPosts(), 1)
}
