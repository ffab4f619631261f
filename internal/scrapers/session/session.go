// session.go contains the cookie-bearing http state shared by every portal client.
// it knows nothing about how a specific portal logs in, that is supplied by the client
// as a LoginFunc.

package session

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"portalbot-backend/internal/components/assert"
	"portalbot-backend/internal/components/telemetry"
	"portalbot-backend/pkg/restyutil"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("internal/scrapers/session")

const (
	report_session_probe = "session.probe"
	report_session_login = "session.login"
)

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type State int

const (
	Unauthenticated State = iota
	Authenticated
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// LoginFunc performs one full login sequence against a portal.
type LoginFunc func(ctx context.Context) error

// Portal is the capability every portal client implements on top of a Session.
type Portal interface {
	Login(ctx context.Context) error
	EnsureLogin(ctx context.Context) error
	AuthenticatedRequest(ctx context.Context, method, path string, params url.Values, opts ...RequestOption) (*resty.Response, error)
}

type Options struct {
	// Name is used in errors and telemetry, ex. "caskan".
	Name    string
	BaseUrl string
	// LoginPath is the substring of a redirect Location that means "the session expired".
	LoginPath string
	// ProbePath is a cheap authenticated page used to detect session expiry.
	ProbePath string

	UserAgent    string
	Timeout      time.Duration
	ProbeTimeout time.Duration
	// RequestsPerSecond limits the request rate of the session, 0 means unlimited.
	RequestsPerSecond float64
	CloudflareBypass  bool

	// Dump receives every page exchange of the session, nil disables dumping.
	Dump restyutil.Output
}

func (o *Options) setDefaults() {
	if o.LoginPath == "" {
		o.LoginPath = "/login"
	}
	if o.ProbePath == "" {
		o.ProbePath = "/"
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	if o.ProbeTimeout <= 0 {
		o.ProbeTimeout = 10 * time.Second
	}
}

// Session is the authenticated connection to one portal.
//
// It is not safe for concurrent use: callers must serialize operations on a
// session (see service.Service), distinct sessions share nothing.
type Session struct {
	BaseUrl *url.URL
	Http    *resty.Client

	// probe shares the cookie jar of Http but never follows redirects.
	probe *resty.Client

	opts      Options
	state     State
	csrfToken string
	tel       telemetry.API
}

func New(opts Options, tel telemetry.API) (*Session, error) {
	assert.NotNil(tel, "tel")
	assert.NotEmptyStr(opts.Name, "name")
	opts.setDefaults()

	tel = telemetry.NewScopedAPI(opts.Name+"_session", tel)

	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	// max burst >= 2 just means that no requests will be dropped
	rateLimiter := rate.NewLimiter(limit, 2)
	waitForLimit := func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	}

	newHttpClient := func(timeout time.Duration, dump restyutil.Output) *resty.Client {
		client := resty.New()
		client.SetBaseURL(strings.TrimSuffix(opts.BaseUrl, "/"))
		client.SetCookieJar(jar)
		client.SetHeader("User-Agent", opts.UserAgent)
		client.SetTimeout(timeout)
		if opts.CloudflareBypass {
			client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
		}
		client.OnBeforeRequest(waitForLimit)
		telemetry.InstrumentResty(client, tel)
		restyutil.InstrumentClient(client, tracer, dump)
		return client
	}

	httpClient := newHttpClient(opts.Timeout, opts.Dump)
	httpClient.SetRedirectPolicy(
		resty.FlexibleRedirectPolicy(10),
		resty.DomainCheckRedirectPolicy(baseUrl.Hostname()),
	)

	probe := newHttpClient(opts.ProbeTimeout, nil)
	probe.SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}))

	return &Session{
		BaseUrl: baseUrl,
		Http:    httpClient,
		probe:   probe,
		opts:    opts,
		tel:     tel,
	}, nil
}

func (s *Session) resetCookies() error {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return err
	}
	s.Http.SetCookieJar(jar)
	s.probe.SetCookieJar(jar)
	return nil
}

// IsLoginPage reports whether res ended up on the login page, which is where the
// portal sends requests of an expired session.
func (s *Session) IsLoginPage(res *resty.Response) bool {
	final := FinalURL(res)
	return final != nil && strings.Contains(final.Path, s.opts.LoginPath)
}

func (s *Session) Name() string {
	return s.opts.Name
}

func (s *Session) State() State {
	return s.state
}

// Invalidate forgets the authenticated state, the next EnsureLogin will log in again.
func (s *Session) Invalidate() {
	s.state = Unauthenticated
}

func (s *Session) CSRFToken() string {
	return s.csrfToken
}

func (s *Session) SetCSRFToken(token string) {
	s.csrfToken = token
}

// Probe issues a GET to the probe path without following redirects, a redirect to
// the login path means the session has expired.
func (s *Session) Probe(ctx context.Context) (expired bool, err error) {
	res, err := s.probe.R().
		SetContext(ctx).
		Get(s.opts.ProbePath)
	if err != nil {
		return false, &NetworkError{Method: http.MethodGet, Path: s.opts.ProbePath, Err: err}
	}

	switch res.StatusCode() {
	case http.StatusMovedPermanently,
		http.StatusFound,
		http.StatusSeeOther,
		http.StatusTemporaryRedirect,
		http.StatusPermanentRedirect:
		location := res.Header().Get("Location")
		return strings.Contains(location, s.opts.LoginPath), nil
	}
	return false, nil
}

// Login runs exactly one login sequence. Any failure is returned as an AuthError
// (wrapping the underlying NetworkError if there was one).
func (s *Session) Login(ctx context.Context, login LoginFunc) error {
	s.state = Unauthenticated
	s.csrfToken = ""

	// cookies of an expired session would be sent along with the new ones
	err := s.resetCookies()
	if err != nil {
		return &AuthError{Portal: s.opts.Name, Reason: "reset cookies", Err: err}
	}

	err = login(ctx)
	if err != nil {
		s.tel.ReportWarning(report_session_login, err)
		if IsAuthError(err) {
			return err
		}
		return &AuthError{Portal: s.opts.Name, Reason: "login sequence failed", Err: err}
	}

	s.state = Authenticated
	s.tel.ReportDebug("logged in")
	return nil
}

// EnsureLogin logs in if the session is not authenticated, or if the probe shows that
// the session silently expired. It never logs in more than once per call.
func (s *Session) EnsureLogin(ctx context.Context, login LoginFunc) error {
	if s.state != Authenticated {
		return s.Login(ctx, login)
	}

	expired, err := s.Probe(ctx)
	if err != nil {
		// the request that follows will surface the network error if it persists
		s.tel.ReportWarning(report_session_probe, err)
		return nil
	}
	if !expired {
		return nil
	}

	s.tel.ReportDebug("session expired, logging in again")
	return s.Login(ctx, login)
}

type requestConfig struct {
	headers map[string]string
}

type RequestOption func(*requestConfig)

// WithHeader sets a header on a single request.
func WithHeader(key, value string) RequestOption {
	return func(c *requestConfig) {
		if c.headers == nil {
			c.headers = map[string]string{}
		}
		c.headers[key] = value
	}
}

// AJAX marks a request the way a jQuery XMLHttpRequest would, with the page it was
// sent from as the referer.
func AJAX(referer string) RequestOption {
	return func(c *requestConfig) {
		WithHeader("X-Requested-With", "XMLHttpRequest")(c)
		WithHeader("Referer", referer)(c)
	}
}

// Request sends one request without checking the session state. For GET requests
// params are sent as the query string, otherwise as an urlencoded form body.
//
// Transport failures and timeouts are returned as a NetworkError, every response
// (whatever its status) is returned as is.
func (s *Session) Request(ctx context.Context, method, path string, params url.Values, opts ...RequestOption) (*resty.Response, error) {
	cfg := requestConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	req := s.Http.R().SetContext(ctx)
	if len(cfg.headers) > 0 {
		req.SetHeaders(cfg.headers)
	}
	if len(params) > 0 {
		if method == http.MethodGet {
			req.SetQueryParamsFromValues(params)
		} else {
			req.SetFormDataFromValues(params)
		}
	}

	res, err := req.Execute(method, path)
	if err != nil {
		return nil, &NetworkError{Method: method, Path: path, Err: err}
	}
	return res, nil
}

// Absolute resolves a portal path against the base url.
func (s *Session) Absolute(path string) string {
	ref, err := url.Parse(path)
	if err != nil {
		return s.BaseUrl.String() + path
	}
	return s.BaseUrl.ResolveReference(ref).String()
}

// FinalURL returns the url of the last request made to produce a response, that is
// the url after all redirects were followed.
func FinalURL(res *resty.Response) *url.URL {
	if res == nil || res.RawResponse == nil || res.RawResponse.Request == nil {
		return nil
	}
	return res.RawResponse.Request.URL
}
