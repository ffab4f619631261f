// client.go contains the login flow of the booking/shift portal and the plumbing
// shared by every page scraper.

package caskan

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"portalbot-backend/internal/components/assert"
	"portalbot-backend/internal/components/telemetry"
	"portalbot-backend/internal/scrapers/extract"
	"portalbot-backend/internal/scrapers/session"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

const (
	report_client_login = "client.login"
	report_client_page  = "client.page"
)

const (
	Name           = "caskan"
	DefaultBaseUrl = "https://my.caskan.jp"
)

type Client struct {
	session *session.Session
	creds   Credentials
	tel     telemetry.API
}

var _ session.Portal = (*Client)(nil)

// NewClient creates a client for the booking portal, opts.BaseUrl defaults to the
// production portal.
func NewClient(creds Credentials, opts session.Options, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel, "tel")

	opts.Name = Name
	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	opts.LoginPath = "/login"
	opts.ProbePath = "/"

	s, err := session.New(opts, tel)
	if err != nil {
		return nil, err
	}
	return &Client{
		session: s,
		creds:   creds,
		tel:     telemetry.NewScopedAPI("caskan_scraper", tel),
	}, nil
}

func (c *Client) State() session.State {
	return c.session.State()
}

func (c *Client) authError(reason string) error {
	return &session.AuthError{Portal: Name, Reason: reason}
}

func (c *Client) login(ctx context.Context) error {
	res, err := c.session.Request(ctx, http.MethodPost, "/login", url.Values{
		"mode":      {"step1"},
		"shop_code": {c.creds.ShopCode},
		"code":      {c.creds.LoginId},
	})
	if err != nil {
		return err
	}
	if res.StatusCode() != http.StatusOK {
		return c.authError(fmt.Sprintf("shop code step: unexpected status %s", res.Status()))
	}

	res, err = c.session.Request(ctx, http.MethodPost, "/login/password", url.Values{
		"mode":           {"step2"},
		"login_password": {c.creds.Password},
	})
	if err != nil {
		return err
	}
	if res.StatusCode() != http.StatusOK {
		return c.authError(fmt.Sprintf("password step: unexpected status %s", res.Status()))
	}
	final := session.FinalURL(res)
	if final != nil && strings.Contains(final.Path, "/login") {
		return c.authError("password rejected")
	}
	return nil
}

// Login runs the two step login form once, regardless of the current state.
func (c *Client) Login(ctx context.Context) error {
	err := c.session.Login(ctx, c.login)
	if err != nil {
		c.tel.ReportBroken(report_client_login, err)
	}
	return err
}

// EnsureLogin logs in if the client never logged in or if its session expired.
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

func parsePage(res *resty.Response, path string) (*goquery.Document, error) {
	if res.StatusCode() >= 400 {
		return nil, fmt.Errorf("GET %s: unexpected status %s", path, res.Status())
	}
	doc, err := extract.ParseDocument(res.Body())
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

// page fetches and parses an authenticated page.
func (c *Client) page(ctx context.Context, path string, query url.Values) (*goquery.Document, error) {
	res, err := c.AuthenticatedRequest(ctx, http.MethodGet, path, query)
	if err != nil {
		return nil, err
	}
	doc, err := parsePage(res, path)
	if err != nil {
		c.tel.ReportBroken(report_client_page, err)
		return nil, err
	}
	return doc, nil
}

// rawPage fetches and parses a page without checking the session first, it is only
// used after the caller already made sure the session is alive.
func (c *Client) rawPage(ctx context.Context, path string, query url.Values) (*goquery.Document, error) {
	res, err := c.session.Request(ctx, http.MethodGet, path, query)
	if err != nil {
		return nil, err
	}
	if c.session.IsLoginPage(res) {
		// the session expired since the caller checked it, a login page parses as an
		// empty page and must not pass for one
		c.session.Invalidate()
		err = c.authError(fmt.Sprintf("GET %s: redirected to the login page", path))
		c.tel.ReportBroken(report_client_page, err)
		return nil, err
	}
	doc, err := parsePage(res, path)
	if err != nil {
		c.tel.ReportBroken(report_client_page, err)
		return nil, err
	}
	return doc, nil
}
