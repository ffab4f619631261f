package caskan

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"portalbot-backend/internal/components/telemetry"
	"portalbot-backend/internal/scrapers/extract"
	"portalbot-backend/internal/scrapers/session"
	"portalbot-backend/internal/shiftcal"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var testCreds = Credentials{
	ShopCode: "shop",
	LoginId:  "owner@example.com",
	Password: "secret",
}

type fakePortal struct {
	mu       sync.Mutex
	shopCode string
	password string
	sid      string
	nextSid  int
	logins   int
	pages    map[string]string
	weeks    map[string]string

	// the session expires right before the n-th weekly table request, 0 never
	expireOnWeek int
	weekRequests int
}

func newFakePortal() *fakePortal {
	return &fakePortal{
		shopCode: testCreds.ShopCode,
		password: testCreds.Password,
		pages:    map[string]string{},
		weeks:    map[string]string{},
	}
}

func (f *fakePortal) setPage(path, page string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[path] = page
}

func (f *fakePortal) setWeek(startDay, page string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.weeks[startDay] = page
}

func (f *fakePortal) setPassword(password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.password = password
}

func (f *fakePortal) setShopCode(shopCode string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shopCode = shopCode
}

func (f *fakePortal) expire() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sid = ""
}

func (f *fakePortal) expireBeforeWeek(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expireOnWeek = n
}

func (f *fakePortal) loginCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logins
}

func (f *fakePortal) authenticated(r *http.Request) bool {
	cookie, err := r.Cookie("sid")
	return err == nil && f.sid != "" && cookie.Value == f.sid
}

func (f *fakePortal) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.URL.Path == "/login" && r.Method == http.MethodPost:
		r.ParseForm()
		if r.Form.Get("mode") != "step1" || r.Form.Get("shop_code") != f.shopCode {
			http.Error(w, "unknown shop", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `<html><body><form action="/login/password"></form></body></html>`)
		return
	case r.URL.Path == "/login/password" && r.Method == http.MethodPost:
		r.ParseForm()
		f.logins++
		if r.Form.Get("mode") != "step2" || r.Form.Get("login_password") != f.password {
			http.Redirect(w, r, "/login/password?error=1", http.StatusFound)
			return
		}
		f.nextSid++
		f.sid = fmt.Sprint(f.nextSid)
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: f.sid, Path: "/"})
		http.Redirect(w, r, "/", http.StatusFound)
		return
	case strings.HasPrefix(r.URL.Path, "/login"):
		fmt.Fprint(w, `<html><body>ログイン</body></html>`)
		return
	}

	if r.URL.Path == "/shift/view" {
		f.weekRequests++
		if f.weekRequests == f.expireOnWeek {
			f.sid = ""
		}
	}

	if !f.authenticated(r) {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	if r.URL.Path == "/shift/view" {
		page, ok := f.weeks[r.URL.Query().Get("start_day")]
		if !ok {
			page = weekPage()
		}
		fmt.Fprint(w, page)
		return
	}

	page, ok := f.pages[r.URL.Path]
	if !ok {
		page = "<html><body></body></html>"
	}
	fmt.Fprint(w, page)
}

func newTestClient(t testing.TB, portal *fakePortal) (*Client, *httptest.Server) {
	srv := httptest.NewServer(portal)
	t.Cleanup(srv.Close)

	client, err := NewClient(testCreds, session.Options{BaseUrl: srv.URL}, &telemetry.Recorder{})
	require.NoError(t, err)
	return client, srv
}

func weekPage(entries ...shiftcal.Entry) string {
	var b strings.Builder
	b.WriteString(`<html><body><table class="parts-cast-table">`)
	b.WriteString(`<tr><th>キャスト</th><th>月</th></tr>`)
	b.WriteString(`<tr><td><div>名無し</div><div>10:00-12:00</div></td></tr>`)
	b.WriteString(`<tr><td><div></div><div>10:00-12:00</div><span data-room-id="1" data-day="2024-02-02"></span></td></tr>`)
	for _, e := range entries {
		fmt.Fprintf(
			&b,
			`<tr><td><div> %s </div><div>%s</div><span class="edit" data-room-id="%s" data-day="%s">編集</span></td><td>other</td></tr>`,
			e.Name, e.Time, e.RoomId, e.Day,
		)
	}
	b.WriteString(`</table></body></html>`)
	return b.String()
}

const roomPage = `<html><body><table>
<tr><td><input type="hidden" name="sort[0]" value="11"></td><td><a href="/room/view/11"><span>しらかば</span> <small>2F</small></a></td></tr>
<tr><td><input type="hidden" name="sort[1]" value="12"></td><td><a href="/room/view/12">あおば 3F</a></td></tr>
<tr><td><input type="hidden" name="sort[2]" value="13"></td><td>no link</td></tr>
</table><input name="sort_order" value="x"></body></html>`

func TestEnsureLoginIdempotent(t *testing.T) {
	portal := newFakePortal()
	client, _ := newTestClient(t, portal)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, client.EnsureLogin(ctx))
	}
	require.Equal(t, 1, portal.loginCount())
	require.Equal(t, session.Authenticated, client.State())
}

func TestLoginRejected(t *testing.T) {
	portal := newFakePortal()
	portal.setPassword("other")
	client, _ := newTestClient(t, portal)

	err := client.Login(context.Background())
	require.True(t, session.IsAuthError(err))
	require.Equal(t, session.Unauthenticated, client.State())

	portal.setShopCode("other")
	err = client.Login(context.Background())
	require.True(t, session.IsAuthError(err))
	require.Equal(t, 1, portal.loginCount())
}

func TestReloginAfterExpiry(t *testing.T) {
	portal := newFakePortal()
	portal.setPage("/", `<html><body><div>本日</div><div>12,000円</div></body></html>`)
	client, _ := newTestClient(t, portal)
	ctx := context.Background()

	require.NoError(t, client.Login(ctx))
	portal.expire()

	info, err := client.HomeInfo(ctx)
	require.NoError(t, err)
	require.Equal(t, "12,000円", info.Sales["today"])
	require.Equal(t, 2, portal.loginCount())
}

func TestFailedRelogin(t *testing.T) {
	portal := newFakePortal()
	client, _ := newTestClient(t, portal)
	ctx := context.Background()

	require.NoError(t, client.Login(ctx))
	portal.expire()
	portal.setPassword("rotated")

	res, err := client.Reservations(ctx)
	require.True(t, session.IsAuthError(err))
	require.Zero(t, res.Count)
	require.Nil(t, res.Reservations)
}

func TestUnreachablePortal(t *testing.T) {
	portal := newFakePortal()
	client, srv := newTestClient(t, portal)
	srv.Close()

	_, err := client.Schedule(context.Background())
	require.True(t, session.IsNetworkError(err))
}

func TestHomeInfo(t *testing.T) {
	portal := newFakePortal()
	portal.setPage("/", `<html><body>
		<div class="sales">
			<div>本日</div><div>12,000円</div>
			<div>昨日</div><div>8,000円</div>
			<div>今月</div><div>340,000円</div>
			<div>昨月</div><div>410,000円</div>
		</div>
		<textarea>
【出勤情報】
さくら 13:00-</textarea>
		<textarea>【案内状況】 ご案内可能</textarea>
		<textarea>メモ</textarea>
	</body></html>`)
	client, _ := newTestClient(t, portal)

	info, err := client.HomeInfo(context.Background())
	require.NoError(t, err)

	diff := cmp.Diff(HomeInfo{
		Sales: map[string]string{
			"today":      "12,000円",
			"yesterday":  "8,000円",
			"this_month": "340,000円",
			"last_month": "410,000円",
		},
		AttendanceText: "【出勤情報】\nさくら 13:00-",
		GuidanceText:   "【案内状況】 ご案内可能",
	}, info)
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestSchedule(t *testing.T) {
	portal := newFakePortal()
	portal.setPage("/schedule/week", `<html><body><table>
		<tr><th>2/24 (火)</th></tr>
		<tr><td>Room1</td><td>13:00〜25:00</td><td>さくら</td></tr>
	</table></body></html>`)
	client, _ := newTestClient(t, portal)

	schedule, err := client.Schedule(context.Background())
	require.NoError(t, err)
	require.Equal(t, "\n📅 2/24 (火)\n  🏠 Room1\n  ⏰ 13:00〜25:00\n  👤 さくら", schedule.ScheduleText)

	portal.setPage("/schedule/week", `<html><body><p>no schedule</p></body></html>`)
	schedule, err = client.Schedule(context.Background())
	require.NoError(t, err)
	require.Equal(t, SchedulePlaceholder, schedule.ScheduleText)

	var long strings.Builder
	long.WriteString("<html><body>")
	for day := 1; day <= 28; day++ {
		fmt.Fprintf(&long, "<p>2/%d (火)</p>", day)
		for i := 0; i < 20; i++ {
			long.WriteString("<p>13:00〜25:00 さくら ひまわり もも</p>")
		}
	}
	long.WriteString("</body></html>")
	portal.setPage("/schedule/week", long.String())

	schedule, err = client.Schedule(context.Background())
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(schedule.ScheduleText, extract.ContinuationMarker))
	require.Equal(t,
		ScheduleTextLimit+len([]rune(extract.ContinuationMarker)),
		len([]rune(schedule.ScheduleText)),
	)
}

func TestReservations(t *testing.T) {
	var page strings.Builder
	page.WriteString("<html><body><table>")
	for i := 0; i < 25; i++ {
		fmt.Fprintf(&page, "<tr><td>2/%d 13:00</td><td>山田様</td></tr>", i+1)
	}
	page.WriteString("</table></body></html>")

	portal := newFakePortal()
	portal.setPage("/reservation", page.String())
	client, _ := newTestClient(t, portal)

	res, err := client.Reservations(context.Background())
	require.NoError(t, err)
	require.Equal(t, 25, res.Count)
	require.Len(t, res.Reservations, 20)
	require.Equal(t, "2/1 13:00 | 山田様", res.Reservations[0])
}

func TestRoomMap(t *testing.T) {
	portal := newFakePortal()
	portal.setPage("/room", roomPage)
	client, _ := newTestClient(t, portal)

	rooms, err := client.RoomMap(context.Background())
	require.NoError(t, err)
	require.Equal(t, map[string]string{"11": "しらかば", "12": "あおば"}, rooms)
}

func TestCastList(t *testing.T) {
	portal := newFakePortal()
	portal.setPage("/cast", `<html><body><table>
		<tr><td><a href="/cast/1">さくら</a></td><td>掲載中</td><td><a href="/cast/1/edit">編集</a></td></tr>
		<tr><td><a href="/cast/2"> もも </a></td><td>非公開</td></tr>
		<tr><td><a href="/cast/1">さくら</a></td><td>掲載中</td></tr>
		<tr><td><a href="/news/1">おしらせ</a></td></tr>
	</table></body></html>`)
	client, _ := newTestClient(t, portal)

	casts, err := client.CastList(context.Background())
	require.NoError(t, err)
	require.Equal(t, []CastRecord{
		{Name: "さくら", Status: CastPublished},
		{Name: "もも", Status: CastUnpublished},
	}, casts)
	require.Equal(t, "さくら [掲載中]", casts[0].String())
}

func TestWeekShifts(t *testing.T) {
	portal := newFakePortal()
	portal.setWeek("2024-02-01", weekPage(
		shiftcal.Entry{Day: "2024-02-01", Name: "さくら", Time: "13:00-25:00", RoomId: "11"},
	))
	client, _ := newTestClient(t, portal)

	entries, err := client.WeekShifts(context.Background(), time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, []shiftcal.Entry{
		{Day: "2024-02-01", Name: "さくら", Time: "13:00-25:00", RoomId: "11"},
	}, entries)

	entries, err = client.WeekShifts(context.Background(), time.Date(2024, 2, 8, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestMonthlyShift(t *testing.T) {
	portal := newFakePortal()
	portal.setPage("/room", roomPage)
	portal.setWeek("2024-02-01", weekPage(
		shiftcal.Entry{Day: "2024-01-31", Name: "もも", Time: "12:00-18:00", RoomId: "11"},
		shiftcal.Entry{Day: "2024-02-01", Name: "さくら", Time: "13:00-25:00", RoomId: "12"},
		shiftcal.Entry{Day: "2024-02-01", Name: "ひまわり", Time: "18:00-24:00", RoomId: "11"},
		shiftcal.Entry{Day: "2024-02-01", Name: "ゆり", Time: "12:00-16:00", RoomId: "12"},
	))
	portal.setWeek("2024-02-29", weekPage(
		shiftcal.Entry{Day: "2024-02-29", Name: "さくら", Time: "13:00-25:00", RoomId: "99"},
		shiftcal.Entry{Day: "2024-03-01", Name: "さくら", Time: "13:00-25:00", RoomId: "11"},
	))
	client, _ := newTestClient(t, portal)

	month, err := client.MonthlyShift(context.Background(), 2024, 2)
	require.NoError(t, err)
	require.Equal(t, 1, portal.loginCount())

	require.Equal(t, map[string]string{"11": "しらかば", "12": "あおば"}, month.RoomMap)
	require.Len(t, month.Days, 29)

	first := month.Days["2024-02-01"]
	require.Equal(t, "木", first.Weekday)
	require.Equal(t, []string{"12", "11"}, first.RoomsUsed)
	require.Equal(t, []shiftcal.Shift{
		{Name: "さくら", Time: "13:00-25:00", RoomId: "12", RoomName: "あおば"},
		{Name: "ひまわり", Time: "18:00-24:00", RoomId: "11", RoomName: "しらかば"},
		{Name: "ゆり", Time: "12:00-16:00", RoomId: "12", RoomName: "あおば"},
	}, first.Shifts)

	last := month.Days["2024-02-29"]
	require.Equal(t, "Room99", last.Shifts[0].RoomName)
	require.Equal(t, []string{"99"}, last.RoomsUsed)
}

func TestMonthlyShiftExpiresBetweenWeeks(t *testing.T) {
	portal := newFakePortal()
	portal.setPage("/room", roomPage)
	portal.setWeek("2024-02-08", weekPage(
		shiftcal.Entry{Day: "2024-02-08", Name: "さくら", Time: "13:00-25:00", RoomId: "12"},
	))
	portal.expireBeforeWeek(2)
	client, _ := newTestClient(t, portal)
	ctx := context.Background()

	month, err := client.MonthlyShift(ctx, 2024, 2)
	require.True(t, session.IsAuthError(err), err)
	require.Nil(t, month.Days)
	require.Equal(t, session.Unauthenticated, client.State())

	month, err = client.MonthlyShift(ctx, 2024, 2)
	require.NoError(t, err)
	require.Equal(t, 2, portal.loginCount())
	require.Len(t, month.Days["2024-02-08"].Shifts, 1)
}

func TestMonthlyShiftEmpty(t *testing.T) {
	portal := newFakePortal()
	client, _ := newTestClient(t, portal)

	month, err := client.MonthlyShift(context.Background(), 2024, 4)
	require.NoError(t, err)
	require.Len(t, month.Days, 30)
	for _, day := range month.Days {
		require.Empty(t, day.Shifts)
		require.Empty(t, day.RoomsUsed)
	}
}

func TestMonthlyShiftLoginFailure(t *testing.T) {
	portal := newFakePortal()
	portal.setPassword("other")
	client, _ := newTestClient(t, portal)

	_, err := client.MonthlyShift(context.Background(), 2024, 2)
	require.True(t, session.IsAuthError(err))

	_, err = client.MonthlyShift(context.Background(), 2024, 13)
	require.Error(t, err)
	require.False(t, session.IsAuthError(err))
}
