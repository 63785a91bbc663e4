package webclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/EgorLis/webcast/internal/signer"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

const (
	DefaultWebHost     = "www.tiktok.com"
	DefaultWebcastHost = "webcast.tiktok.com"

	// EnvTimeout: таймаут HTTP-запросов в миллисекундах.
	EnvTimeout     = "WEBCAST_CLIENT_TIMEOUT"
	defaultTimeout = 10 * time.Second

	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
)

// DefaultParams: query-параметры веб-клиента, которые ждёт webcast API.
var DefaultParams = map[string]string{
	"aid":                     "1988",
	"app_language":            "en-US",
	"app_name":                "tiktok_web",
	"browser_language":        "en-US",
	"browser_name":            "Mozilla",
	"browser_online":          "true",
	"browser_platform":        "Win32",
	"cookie_enabled":          "true",
	"device_platform":         "web_pc",
	"focus_state":             "true",
	"from_page":               "user",
	"history_len":             "4",
	"is_fullscreen":           "false",
	"is_page_visible":         "true",
	"screen_height":           "1152",
	"screen_width":            "2048",
	"tz_name":                 "Europe/Berlin",
	"channel":                 "tiktok_web",
	"data_collection_enabled": "true",
	"os":                      "windows",
	"priority_region":         "DE",
	"region":                  "DE",
	"user_is_login":           "false",
	"webcast_language":        "en",
}

var DefaultHeaders = map[string]string{
	"User-Agent":      DefaultUserAgent,
	"Accept-Language": "en-US,en;q=0.9",
	"Referer":         "https://www.tiktok.com/",
	"Origin":          "https://www.tiktok.com",
}

// Timeout: таймаут из окружения (WEBCAST_CLIENT_TIMEOUT, мс), иначе 10s.
func Timeout() time.Duration {
	v := strings.TrimSpace(os.Getenv(EnvTimeout))
	if v == "" {
		return defaultTimeout
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms <= 0 {
		return defaultTimeout
	}
	return time.Duration(ms) * time.Millisecond
}

type Config struct {
	WebHost     string
	WebcastHost string
	Headers     map[string]string // поверх DefaultHeaders
	Params      map[string]string // поверх DefaultParams
	SessionID   string
	RegionToken string
	Timeout     time.Duration // 0: Timeout()
	Signer      *signer.Gateway
	// SignWebcast: room/info и gift/list уходят подписанными через Signer.
	SignWebcast bool
	Logger      zerolog.Logger
}

// Client: HTTP-клиент к вебу и webcast API платформы.
type Client struct {
	http        *resty.Client
	webHost     string
	webcastHost string
	params      map[string]string
	userAgent   string
	sessionID   string
	regionToken string
	gateway     *signer.Gateway
	signWebcast bool
	log         zerolog.Logger

	mu        sync.RWMutex
	giftsETag string // для If-None-Match
	gifts     []Gift
}

func New(cfg Config) *Client {
	if cfg.WebHost == "" {
		cfg.WebHost = DefaultWebHost
	}
	if cfg.WebcastHost == "" {
		cfg.WebcastHost = DefaultWebcastHost
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = Timeout()
	}

	headers := merge(DefaultHeaders, cfg.Headers)
	// Cookie из заголовков раскладываем в куки клиента
	cookieHeader := headers["Cookie"]
	delete(headers, "Cookie")

	c := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeaders(headers)

	for _, ck := range parseCookieHeader(cookieHeader) {
		c.SetCookie(ck)
	}
	if cfg.SessionID != "" {
		c.SetCookie(&http.Cookie{Name: "sessionid", Value: cfg.SessionID})
		c.SetCookie(&http.Cookie{Name: "sessionid_ss", Value: cfg.SessionID})
	}
	if cfg.RegionToken != "" {
		c.SetCookie(&http.Cookie{Name: "tt-target-idc", Value: cfg.RegionToken})
	}

	return &Client{
		http:        c,
		webHost:     cfg.WebHost,
		webcastHost: cfg.WebcastHost,
		params:      merge(DefaultParams, cfg.Params),
		userAgent:   headers["User-Agent"],
		sessionID:   cfg.SessionID,
		regionToken: cfg.RegionToken,
		gateway:     cfg.Signer,
		signWebcast: cfg.SignWebcast,
		log:         cfg.Logger,
	}
}

func (c *Client) SessionID() string   { return c.sessionID }
func (c *Client) RegionToken() string { return c.regionToken }
func (c *Client) UserAgent() string   { return c.userAgent }

// Params: параметры сессии для одного запроса. Не меняется после
// создания: каждый вызов получает свою копию.
type Params struct {
	RoomID      string
	Cursor      string
	InternalExt string
}

func (p Params) values() map[string]string {
	out := map[string]string{}
	setIf(out, "room_id", p.RoomID)
	setIf(out, "cursor", p.Cursor)
	setIf(out, "internal_ext", p.InternalExt)
	return out
}

// Request: запрос к одному из хостов платформы.
type Request struct {
	Host    string
	Path    string
	Method  string
	Query   map[string]string
	Headers map[string]string
	Body    any
	// Sign: подписать URL через Gateway перед отправкой.
	Sign        bool
	SignContext signer.Context
}

// URL собирает адрес: http для локальных хостов, https для остальных.
func URL(host, path string, query map[string]string) string {
	q := url.Values{}
	for k, v := range query {
		q.Set(k, v)
	}
	u := scheme(host) + "://" + host + "/" + strings.TrimLeft(path, "/")
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}
	return u
}

func scheme(host string) string {
	for _, p := range []string{"127.0.0.1", "localhost", "::1", "[::1]"} {
		if strings.HasPrefix(host, p) {
			return "http"
		}
	}
	return "https"
}

// Do выполняет запрос; при Sign URL и User-Agent заменяются подписанными.
func (c *Client) Do(ctx context.Context, r Request) (*resty.Response, error) {
	method := strings.ToUpper(r.Method)
	if method == "" {
		method = http.MethodGet
	}
	target := URL(r.Host, r.Path, r.Query)
	headers := merge(nil, r.Headers)

	if r.Sign {
		if c.gateway == nil {
			return nil, fmt.Errorf("sign %s: %w", r.Path, signer.ErrBackendNotConfigured)
		}
		signed, err := c.gateway.Sign(ctx, r.SignContext, signer.Request{
			URL:         target,
			Method:      method,
			UserAgent:   c.userAgent,
			SessionID:   c.sessionID,
			RegionToken: c.regionToken,
		})
		if err != nil {
			return nil, err
		}
		target = signed.URL
		if signed.UserAgent != "" {
			headers["User-Agent"] = signed.UserAgent
		}
	}

	req := c.http.R().SetContext(ctx).SetHeaders(headers)
	if r.Body != nil {
		req.SetBody(r.Body)
	}
	resp, err := req.Execute(method, target)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, r.Path, err)
	}
	c.log.Debug().Str("path", r.Path).Int("status", resp.StatusCode()).Msg("webcast request")
	return resp, nil
}

// webcastQuery: параметры по умолчанию + параметры сессии + extra.
func (c *Client) webcastQuery(p Params, extra map[string]string) map[string]string {
	return merge(merge(c.params, p.values()), extra)
}

func merge(base, over map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

func setIf(m map[string]string, k, v string) {
	if v != "" {
		m[k] = v
	}
}

func parseCookieHeader(h string) []*http.Cookie {
	if h == "" {
		return nil
	}
	var out []*http.Cookie
	for _, part := range strings.Split(h, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || name == "" {
			continue
		}
		out = append(out, &http.Cookie{Name: name, Value: value})
	}
	return out
}

// Cookies: куки сессии для вебсокета: заданные явно плюс всё, что
// сервер выставил в ответах для webcast-хоста.
func (c *Client) Cookies() []*http.Cookie {
	seen := map[string]bool{}
	var out []*http.Cookie
	add := func(cks []*http.Cookie) {
		for _, ck := range cks {
			if ck == nil || seen[ck.Name] {
				continue
			}
			seen[ck.Name] = true
			out = append(out, &http.Cookie{Name: ck.Name, Value: ck.Value})
		}
	}
	add(c.http.Cookies)
	if jar := c.http.GetClient().Jar; jar != nil {
		for _, host := range []string{c.webcastHost, c.webHost} {
			if u, err := url.Parse(scheme(host) + "://" + host + "/"); err == nil {
				add(jar.Cookies(u))
			}
		}
	}
	return out
}
