package engine

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/tartampluch/go-remind/internal/config"
)

// VCardFetcher retrieves a vCard stream from a CardDAV/WebDAV address book.
type VCardFetcher interface {
	Fetch(ctx context.Context, url, user, pass string) (io.ReadCloser, error)
}

// HTTPFetcher implements VCardFetcher over HTTP(S) with Basic Auth.
//
// A URL ending in "/" is treated as a CardDAV address book collection and
// queried with REPORT addressbook-query; anything else is a plain GET of a
// .vcf export. Downloads that carried validators are remembered so the
// daily refresh can re-fetch conditionally and reuse the previous body on
// 304 Not Modified.
type HTTPFetcher struct {
	Client *http.Client

	// MaxBytes caps a single download. Zero means config.MaxHTTPResponseSize.
	MaxBytes int64

	mu    sync.Mutex
	cache map[string]download
}

// download is a previously fetched address book and its validators.
type download struct {
	etag         string
	lastModified string
	body         []byte
}

// NewHTTPFetcher creates a new instance of HTTPFetcher with configured timeouts.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		Client: &http.Client{
			Timeout: config.HTTPTimeout,
		},
	}
}

// Fetch retrieves the vCards behind targetURL. Query parameters are never
// logged since they may carry tokens.
func (f *HTTPFetcher) Fetch(ctx context.Context, targetURL, user, pass string) (io.ReadCloser, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrInvalidURL, err)
	}
	if u.Scheme != config.SchemeHTTP && u.Scheme != config.SchemeHTTPS {
		return nil, fmt.Errorf("%s: %s", config.ErrProtocol, u.Scheme)
	}

	collection := strings.HasSuffix(u.Path, "/")
	method, want := http.MethodGet, http.StatusOK
	if collection {
		method, want = config.MethodReport, http.StatusMultiStatus
	}

	log := slog.With(
		slog.String(config.LogKeyComponent, config.CompFetcher),
		slog.String(config.LogKeyURL, u.Scheme+"://"+u.Host+u.Path),
		slog.String(config.LogKeyMethod, method),
	)
	log.Debug(config.MsgFetchStart)

	req, err := f.newRequest(ctx, method, targetURL, collection)
	if err != nil {
		return nil, err
	}
	if user != "" || pass != "" {
		req.SetBasicAuth(user, pass)
	}

	prev, cached := f.lookup(targetURL)
	if cached {
		if prev.etag != "" {
			req.Header.Set(config.HeaderIfNoneMatch, prev.etag)
		}
		if prev.lastModified != "" {
			req.Header.Set(config.HeaderIfModifiedSince, prev.lastModified)
		}
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrFetchNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotModified && cached {
		log.Info(config.MsgFetchUnchanged, slog.String(config.LogKeyETag, prev.etag))
		return io.NopCloser(bytes.NewReader(prev.body)), nil
	}
	if resp.StatusCode != want {
		log.Warn(config.MsgFetchStatus, slog.Int(config.LogKeyStatus, resp.StatusCode))
		return nil, fmt.Errorf("%s: %s", config.ErrFetchStatus, resp.Status)
	}

	body, err := f.readBody(resp.Body)
	if err != nil {
		return nil, err
	}
	if collection {
		if body, err = decodeMultistatus(body); err != nil {
			return nil, err
		}
	}
	log.Info(config.MsgFetchBody, slog.Int(config.LogKeySizeBytes, len(body)))

	f.remember(targetURL, download{
		etag:         resp.Header.Get(config.HeaderETag),
		lastModified: resp.Header.Get(config.HeaderLastModified),
		body:         body,
	})
	return io.NopCloser(bytes.NewReader(body)), nil
}

func (f *HTTPFetcher) newRequest(ctx context.Context, method, target string, collection bool) (*http.Request, error) {
	var body io.Reader
	if collection {
		body = strings.NewReader(config.CardDAVQuery)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrFetchRequest, err)
	}
	req.Header.Set(config.HeaderUserAgent, config.UserAgent)
	if collection {
		req.Header.Set(config.HeaderDepth, config.DepthOne)
		req.Header.Set(config.HeaderContentType, config.MimeXML)
	} else {
		req.Header.Set(config.HeaderAccept, config.MimeVCardAccept)
	}
	return req, nil
}

// readBody reads at most MaxBytes and fails rather than truncating, since a
// cut vCard stream would silently drop contacts.
func (f *HTTPFetcher) readBody(r io.Reader) ([]byte, error) {
	limit := f.MaxBytes
	if limit <= 0 {
		limit = config.MaxHTTPResponseSize
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrFetchRead, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%s: %d bytes", config.ErrFetchTooLarge, limit)
	}
	return data, nil
}

func (f *HTTPFetcher) lookup(target string) (download, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.cache[target]
	return d, ok
}

// remember keeps d only when the server sent a validator to revalidate it.
func (f *HTTPFetcher) remember(target string, d download) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d.etag == "" && d.lastModified == "" {
		delete(f.cache, target)
		return
	}
	if f.cache == nil {
		f.cache = make(map[string]download)
	}
	f.cache[target] = d
}

// multistatus is the subset of a WebDAV multistatus body carrying vCards.
// Element names are matched without namespace.
type multistatus struct {
	Responses []struct {
		Href     string `xml:"href"`
		Propstat []struct {
			Status string `xml:"status"`
			Prop   struct {
				AddressData string `xml:"address-data"`
			} `xml:"prop"`
		} `xml:"propstat"`
	} `xml:"response"`
}

// decodeMultistatus concatenates the address-data of every successful
// propstat into one vCard stream.
func decodeMultistatus(data []byte) ([]byte, error) {
	var ms multistatus
	if err := xml.Unmarshal(data, &ms); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrMultistatus, err)
	}

	var out bytes.Buffer
	for _, r := range ms.Responses {
		for _, ps := range r.Propstat {
			card := strings.TrimSpace(ps.Prop.AddressData)
			if card == "" || (ps.Status != "" && !strings.Contains(ps.Status, config.StatusOKMarker)) {
				continue
			}
			out.WriteString(card)
			out.WriteString("\r\n")
		}
	}
	return out.Bytes(), nil
}
