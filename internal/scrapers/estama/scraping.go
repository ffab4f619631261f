package estama

import (
	"context"
	"portalbot-backend/internal/scrapers/extract"
	"portalbot-backend/pkg/htmlutil"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_client_dashboard    = "client.dashboard"
	report_client_guidance     = "client.guidance-status"
	report_client_schedule     = "client.schedule"
	report_client_reservations = "client.reservations"
	report_client_news         = "client.news-list"
)

const (
	ScheduleTextLimit     = 3000
	ScheduleFallbackRunes = 1500
	NewsCap               = 10
	NewsTitleRunes        = 50
	therapistMaxRunes     = 20
)

var planGrades = []string{"プラチナ", "ゴールド", "シルバー"}

func containsAll(s string, keywords []string) bool {
	if len(keywords) == 0 {
		return false
	}
	for _, k := range keywords {
		if !strings.Contains(s, k) {
			return false
		}
	}
	return true
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func (c *Client) Dashboard(ctx context.Context) (Dashboard, error) {
	doc, err := c.page(ctx, "/admin/")
	if err != nil {
		return Dashboard{}, err
	}

	dash := Dashboard{Notifications: []string{}}
	lines := extract.Lines(doc)
	for i, line := range lines {
		switch {
		case containsAll(line, c.opts.ShopNameKeywords):
			dash.ShopName = line
		case strings.Contains(line, "店舗番号"):
			dash.ShopNumber = line
		case strings.Contains(line, "ご契約期間"):
			dash.ContractPeriod = line
		case strings.Contains(line, "プラン") && containsAny(line, planGrades):
			dash.Plan = line
		case strings.Contains(line, "ポイント") && i > 0:
			// the figure sits at most two lines before or one line after the label
			for j := max(0, i-2); j < min(len(lines), i+2); j++ {
				if isDigits(lines[j]) {
					dash.Points = lines[j]
					break
				}
			}
		}
	}
	if dash.ShopName == "" {
		dash.ShopName = extract.LabelValues(lines, []extract.LabelRule{
			{Key: "shop_name", Label: "店舗名"},
		})["shop_name"]
	}
	if dash.ShopName == "" && dash.ShopNumber == "" {
		c.tel.ReportWarning(report_client_dashboard, "shop name and number not found")
	}

	doc.Find("a").Each(func(_ int, a *goquery.Selection) {
		text := htmlutil.CompactText(a)
		if a.AttrOr("href", "") != "" && strings.Contains(text, "予約") {
			dash.Notifications = append(dash.Notifications, text)
		}
	})

	return dash, nil
}

func (c *Client) GuidanceStatus(ctx context.Context) (GuidanceStatus, error) {
	doc, err := c.page(ctx, "/admin/guidance/")
	if err != nil {
		return GuidanceStatus{}, err
	}

	lines := extract.Lines(doc)
	text := strings.Join(lines, "\n")

	status := GuidanceStatus{
		Status:     StatusUnknown,
		Therapists: []string{},
	}
	switch {
	case strings.Contains(text, "今すぐご案内可"):
		status.Status = StatusAvailable
	case strings.Contains(text, "ご案内終了"):
		status.Status = StatusClosed
	case strings.Contains(text, "受付中"):
		status.Status = StatusAccepting
	default:
		c.tel.ReportWarning(report_client_guidance, "no guidance status found")
	}

	for _, line := range lines {
		if extract.IsNativeName(line, therapistMaxRunes) {
			status.Therapists = append(status.Therapists, line)
		}
	}
	return status, nil
}

func (c *Client) Schedule(ctx context.Context) (ScheduleText, error) {
	doc, err := c.page(ctx, "/admin/schedule/")
	if err != nil {
		return ScheduleText{}, err
	}

	lines := extract.Lines(doc)
	rendered := extract.GuidanceSchedule.RenderSchedule(lines)

	var text string
	if len(rendered) > 0 {
		text = strings.Join(rendered, "\n")
	} else {
		c.tel.ReportWarning(report_client_schedule, "no schedule lines recognized, falling back to page text")
		text = extract.Head(strings.Join(lines, "\n"), ScheduleFallbackRunes)
	}
	return ScheduleText{
		ScheduleText: extract.Truncate(text, ScheduleTextLimit),
	}, nil
}

func (c *Client) Reservations(ctx context.Context) (extract.Reservations, error) {
	doc, err := c.page(ctx, "/admin/reservation/")
	if err != nil {
		return extract.Reservations{}, err
	}
	res := extract.ReservationsFrom(doc.Selection)
	if res.Count == 0 {
		c.tel.ReportWarning(report_client_reservations, "no reservation rows found")
	}
	return res, nil
}

var newsDate = regexp.MustCompile(`\d{4}[/-]\d{1,2}[/-]\d{1,2}`)

// NewsList reads the news table (skipping each table's header row), if the page has
// no such table it falls back to free text lines that contain a date.
func (c *Client) NewsList(ctx context.Context) ([]NewsItem, error) {
	doc, err := c.page(ctx, "/admin/news/")
	if err != nil {
		return nil, err
	}

	items := []NewsItem{}
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		rows := table.Find("tr")
		if rows.Length() < 2 {
			return
		}
		rows.Slice(1, rows.Length()).Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td")
			if cells.Length() < 2 {
				return
			}
			items = append(items, NewsItem{
				Title: extract.Head(htmlutil.CompactText(cells.First()), NewsTitleRunes),
				Date:  htmlutil.CompactText(cells.Last()),
			})
		})
	})

	if len(items) == 0 {
		for _, line := range extract.Lines(doc) {
			n := utf8.RuneCountInString(line)
			if n <= 5 || n >= 100 {
				continue
			}
			date := newsDate.FindString(line)
			if date == "" {
				continue
			}
			items = append(items, NewsItem{
				Title: strings.TrimSpace(strings.ReplaceAll(line, date, "")),
				Date:  date,
			})
		}
	}
	if len(items) == 0 {
		c.tel.ReportWarning(report_client_news, "no news found")
	}
	return extract.CapList(items, NewsCap), nil
}
