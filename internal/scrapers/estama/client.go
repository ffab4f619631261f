// client.go contains the ajax login flow of the guidance portal.

package estama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"portalbot-backend/internal/components/assert"
	"portalbot-backend/internal/components/telemetry"
	"portalbot-backend/internal/scrapers/extract"
	"portalbot-backend/internal/scrapers/session"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

const (
	report_client_login = "client.login"
	report_client_page  = "client.page"
)

const (
	Name           = "estama"
	DefaultBaseUrl = "https://estama.jp"
)

type Options struct {
	Credentials Credentials
	// ShopNameKeywords must all be contained in the dashboard line holding the shop
	// name, when empty (or when no line matches) the line after a "店舗名" label is used.
	ShopNameKeywords []string
}

type Client struct {
	session *session.Session
	opts    Options
	tel     telemetry.API
}

var _ session.Portal = (*Client)(nil)

func NewClient(opts Options, sessionOpts session.Options, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel, "tel")

	sessionOpts.Name = Name
	if sessionOpts.BaseUrl == "" {
		sessionOpts.BaseUrl = DefaultBaseUrl
	}
	sessionOpts.LoginPath = "/login"
	sessionOpts.ProbePath = "/admin/"

	s, err := session.New(sessionOpts, tel)
	if err != nil {
		return nil, err
	}
	return &Client{
		session: s,
		opts:    opts,
		tel:     telemetry.NewScopedAPI("estama_scraper", tel),
	}, nil
}

func (c *Client) State() session.State {
	return c.session.State()
}

type field struct {
	name  string
	value string
}

// serializedArray encodes fields the way jQuery's serializeArray is posted by the
// portal's own scripts: str[i][name] and str[i][value].
func serializedArray(fields []field) url.Values {
	values := url.Values{}
	for i, f := range fields {
		values.Set(fmt.Sprintf("str[%d][name]", i), f.name)
		values.Set(fmt.Sprintf("str[%d][value]", i), f.value)
	}
	return values
}

func (c *Client) authError(reason string, err error) error {
	return &session.AuthError{Portal: Name, Reason: reason, Err: err}
}

func (c *Client) login(ctx context.Context) error {
	res, err := c.session.Request(ctx, http.MethodGet, "/login/", nil)
	if err != nil {
		return err
	}
	doc, err := extract.ParseDocument(res.Body())
	if err != nil {
		return c.authError("parse login page", err)
	}
	token := extract.CSRFToken(doc.Selection)
	if token == "" {
		return c.authError("csrf token missing from login page", nil)
	}
	c.session.SetCSRFToken(token)

	form := serializedArray([]field{
		{name: "mail", value: c.opts.Credentials.Mail},
		{name: "password", value: c.opts.Credentials.Password},
		{name: "r", value: ""},
	})
	form.Set("ctk", token)

	res, err = c.session.Request(
		ctx, http.MethodPost, "/post/login_shop", form,
		session.AJAX(c.session.Absolute("/login/")),
	)
	if err != nil {
		return err
	}
	if res.StatusCode() != http.StatusOK {
		return c.authError(fmt.Sprintf("unexpected status %s", res.Status()), nil)
	}

	var payload []any
	err = json.Unmarshal(res.Body(), &payload)
	if err != nil {
		return c.authError("unexpected login response", err)
	}
	if len(payload) == 0 {
		return c.authError("empty login response", nil)
	}
	switch payload[0] {
	case "OK", "REDIRECT_OK":
		return nil
	}
	return c.authError(fmt.Sprintf("login rejected: %v", payload), nil)
}

func (c *Client) Login(ctx context.Context) error {
	err := c.session.Login(ctx, c.login)
	if err != nil {
		c.tel.ReportBroken(report_client_login, err)
	}
	return err
}

func (c *Client) EnsureLogin(ctx context.Context) error {
	err := c.session.EnsureLogin(ctx, c.login)
	if err != nil {
		c.tel.ReportBroken(report_client_login, err)
	}
	return err
}

func (c *Client) AuthenticatedRequest(ctx context.Context, method, path string, params url.Values, opts ...session.RequestOption) (*resty.Response, error) {
	err := c.EnsureLogin(ctx)
	if err != nil {
		return nil, err
	}
	return c.session.Request(ctx, method, path, params, opts...)
}

func (c *Client) page(ctx context.Context, path string) (*goquery.Document, error) {
	res, err := c.AuthenticatedRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if res.StatusCode() >= 400 {
		err = fmt.Errorf("GET %s: unexpected status %s", path, res.Status())
		c.tel.ReportBroken(report_client_page, err)
		return nil, err
	}
	doc, err := extract.ParseDocument(res.Body())
	if err != nil {
		err = fmt.Errorf("parse %s: %w", path, err)
		c.tel.ReportBroken(report_client_page, err)
		return nil, err
	}
	return doc, nil
}
