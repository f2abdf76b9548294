package engine

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	tls "github.com/refraction-networking/utls"
	"golang.org/x/net/html"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// maxBody caps how much of a response is read.
const maxBody = 10 << 20

// HTTPEngine loads pages with a plain HTTP GET and evaluates selectors
// against the parsed HTML. It runs no JavaScript, so it only suits pages
// whose content is server-rendered.
type HTTPEngine struct {
	client *http.Client
}

// chromeH1Spec is a Chrome-like TLS ClientHello with ALPN forced to http/1.1
// only. Computed once at init time and reused for every connection.
var chromeH1Spec tls.ClientHelloSpec

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return
	}
	// http.Transport cannot speak h2 over a utls connection.
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = spec
}

// NewHTTPEngine creates an HTTPEngine with a Chrome-like TLS fingerprint.
// proxy, if set, must be an http or https proxy URL.
func NewHTTPEngine(timeout time.Duration, proxy string) *HTTPEngine {
	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialer := &net.Dialer{Timeout: 10 * time.Second}
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			host, _, _ := net.SplitHostPort(addr)
			tlsConn := tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
			if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
				conn.Close()
				return nil, fmt.Errorf("http_engine: apply tls spec: %w", err)
			}
			if err := tlsConn.HandshakeContext(ctx); err != nil {
				conn.Close()
				return nil, err
			}
			return tlsConn, nil
		},
		ForceAttemptHTTP2: false,
	}
	if proxy != "" {
		if proxyURL, err := url.Parse(proxy); err == nil && (proxyURL.Scheme == "http" || proxyURL.Scheme == "https") {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	return &HTTPEngine{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
	}
}

// NewHTTPLauncher returns a Launcher for the static engine.
func NewHTTPLauncher(timeout time.Duration, proxy string) Launcher {
	return func(context.Context) (Engine, error) {
		return NewHTTPEngine(timeout, proxy), nil
	}
}

func (e *HTTPEngine) Name() string { return "http" }

func (e *HTTPEngine) NewPage(context.Context) (Page, error) {
	return &staticPage{client: e.client}, nil
}

func (e *HTTPEngine) Close() error {
	e.client.CloseIdleConnections()
	return nil
}

// staticPage holds the document of the last successful navigation.
type staticPage struct {
	client *http.Client
	doc    *goquery.Document
}

// Navigate fetches url and parses the body. A complete body stands in for
// network idle.
func (s *staticPage) Navigate(ctx context.Context, rawURL string) error {
	s.doc = nil

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("http_engine: build request: %w", err)
	}
	req.Header.Set("User-Agent", chromeUA)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("http_engine: do request: %w", err)
	}
	defer resp.Body.Close()

	ct := resp.Header.Get("Content-Type")
	if resp.StatusCode >= 400 {
		return fmt.Errorf("http_engine: HTTP %d for %s", resp.StatusCode, rawURL)
	}
	if !isHTMLContentType(ct) {
		return fmt.Errorf("http_engine: non-html content-type %q for %s", ct, rawURL)
	}

	root, err := html.Parse(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("http_engine: parse html: %w", err)
	}
	s.doc = goquery.NewDocumentFromNode(root)
	return nil
}

func (s *staticPage) WaitElement(ctx context.Context, selector string) error {
	_, err := s.find(ctx, selector)
	return err
}

func (s *staticPage) TextContent(ctx context.Context, selector string) (string, error) {
	sel, err := s.find(ctx, selector)
	if err != nil {
		return "", err
	}
	return sel.First().Text(), nil
}

func (s *staticPage) InnerHTML(ctx context.Context, selector string) (string, error) {
	sel, err := s.find(ctx, selector)
	if err != nil {
		return "", err
	}
	return sel.First().Html()
}

func (s *staticPage) InnerTexts(ctx context.Context, selector string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.doc == nil {
		return nil, fmt.Errorf("http_engine: no document loaded")
	}
	m, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("http_engine: selector %q: %w", selector, err)
	}

	matches := s.doc.FindMatcher(m)
	texts := make([]string, 0, matches.Length())
	for _, n := range matches.Nodes {
		texts = append(texts, innerText(n))
	}
	return texts, nil
}

// find returns the non-empty selection for selector. There is nothing to
// wait for on a static document, so a miss fails immediately.
func (s *staticPage) find(ctx context.Context, selector string) (*goquery.Selection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.doc == nil {
		return nil, fmt.Errorf("http_engine: no document loaded")
	}
	m, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("http_engine: selector %q: %w", selector, err)
	}

	sel := s.doc.FindMatcher(m)
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoElement, selector)
	}
	return sel, nil
}

// isHTMLContentType returns true if the content-type header looks like HTML.
func isHTMLContentType(ct string) bool {
	ct = strings.ToLower(ct)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml+xml")
}

// innerText approximates the rendered text of n: text nodes verbatim,
// <br> as a newline, script and style skipped.
func innerText(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			buf.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.Data {
			case "br":
				buf.WriteByte('\n')
				return
			case "script", "style", "template":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return buf.String()
}
