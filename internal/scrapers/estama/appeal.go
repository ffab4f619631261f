package estama

import (
	"context"
	"fmt"
	"net/http"
	"portalbot-backend/internal/scrapers/extract"
	"portalbot-backend/internal/scrapers/session"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const report_client_click_appeal = "client.click-appeal"

func isAppealTrigger(a *goquery.Selection) bool {
	return strings.Contains(strings.ToLower(a.AttrOr("data-post", "")), "appeal") ||
		strings.Contains(a.Text(), "アピール")
}

// ClickAppeal triggers the one-click appeal of the guidance page, it is never retried.
//
// The portal answers the action with an empty 200, so a true result only means the
// request was accepted, it is reported as unconfirmed.
func (c *Client) ClickAppeal(ctx context.Context) (bool, error) {
	doc, err := c.page(ctx, "/admin/guidance/")
	if err != nil {
		return false, err
	}

	token := extract.CSRFToken(doc.Selection)
	if token == "" {
		token = c.session.CSRFToken()
	}
	referer := c.session.Absolute("/admin/guidance/")

	var (
		clicked bool
		postErr error
	)
	doc.Find("a.send-post").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if !isAppealTrigger(a) {
			return true
		}
		action := a.AttrOr("data-post", "")
		if action == "" {
			return true
		}

		var fields []field
		if formId := a.AttrOr("data-form", ""); formId != "" {
			form := doc.Find("form").FilterFunction(func(_ int, f *goquery.Selection) bool {
				return f.AttrOr("id", "") == "form-"+formId
			}).First()
			form.Find("input").Each(func(_ int, input *goquery.Selection) {
				name := input.AttrOr("name", "")
				if name == "" {
					return
				}
				fields = append(fields, field{name: name, value: input.AttrOr("value", "")})
			})
		}
		form := serializedArray(fields)
		form.Set("ctk", token)

		res, err := c.session.Request(
			ctx, http.MethodPost, "/post/"+action, form,
			session.AJAX(referer),
		)
		if err != nil {
			postErr = err
			return false
		}
		if res.StatusCode() != http.StatusOK {
			c.tel.ReportWarning(report_client_click_appeal, fmt.Errorf("POST /post/%s: unexpected status %s", action, res.Status()))
			return true
		}

		c.tel.ReportWarning(report_client_click_appeal, session.ErrActionUnconfirmed, action)
		clicked = true
		return false
	})
	if postErr != nil {
		return false, postErr
	}
	if clicked {
		return true, nil
	}

	res, err := c.session.Request(ctx, http.MethodGet, "/admin/appeal/", nil)
	if err != nil {
		return false, err
	}
	if res.StatusCode() == http.StatusOK {
		c.tel.ReportWarning(report_client_click_appeal, session.ErrActionUnconfirmed, "appeal page")
		return true, nil
	}

	c.tel.ReportWarning(report_client_click_appeal, "appeal action not found")
	return false, nil
}
