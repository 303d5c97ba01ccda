package apihttp

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const (
	maxProxiedImageBytes = int64(8 << 20)
	imageCacheControl    = "public, max-age=86400"
	imageSniffLen        = 512
	maxImageRedirects    = 3
)

var (
	errArtworkScheme = errors.New("unsupported url scheme")
	errArtworkHost   = errors.New("url host is not an artwork host")
	errBlockedAddr   = errors.New("blocked url host")
)

// defaultArtworkHosts serve the poster and backdrop URLs that TMDB and OMDb
// records carry.
var defaultArtworkHosts = []string{"image.tmdb.org", "m.media-amazon.com", "ia.media-imdb.com"}

// WithArtworkHosts replaces the hosts /enrich/image may fetch from. An empty
// list keeps the defaults.
func WithArtworkHosts(hosts []string) ServerOption {
	return func(s *Server) {
		if allowed := artworkHostSet(hosts); len(allowed) > 0 {
			s.artworkHosts = allowed
		}
	}
}

func artworkHostSet(hosts []string) map[string]struct{} {
	out := make(map[string]struct{}, len(hosts))
	for _, host := range hosts {
		if host = strings.ToLower(strings.TrimSpace(host)); host != "" {
			out[host] = struct{}{}
		}
	}
	return out
}

// handleImageProxy relays artwork referenced by an enrichment result so the
// front-end can load it from the service origin.
func (s *Server) handleImageProxy(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/enrich/image" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	raw := strings.TrimSpace(r.URL.Query().Get("url"))
	if raw == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "url is required")
		return
	}
	target, err := url.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid url")
		return
	}
	if err := s.validateArtworkURL(target); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target.String(), nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid url")
		return
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "image/avif,image/webp,image/*;q=0.8")

	resp, err := s.imageHTTP.Do(req)
	if err != nil {
		writeError(w, http.StatusBadGateway, "upstream_error", "artwork fetch failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		writeError(w, http.StatusBadGateway, "upstream_error", fmt.Sprintf("artwork host returned HTTP %d", resp.StatusCode))
		return
	}
	if resp.ContentLength > maxProxiedImageBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "invalid_request", "image too large")
		return
	}

	body := bufio.NewReaderSize(io.LimitReader(resp.Body, maxProxiedImageBytes), imageSniffLen)
	sniff, err := body.Peek(imageSniffLen)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadGateway, "upstream_error", "artwork read failed")
		return
	}
	contentType := strings.TrimSpace(resp.Header.Get("Content-Type"))
	if contentType == "" {
		contentType = http.DetectContentType(sniff)
	}
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		writeError(w, http.StatusBadGateway, "upstream_error", "not an image")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", imageCacheControl)
	if resp.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(resp.ContentLength, 10))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, body)
}

// newImageClient refuses to connect to non-public addresses at dial time,
// which also covers hostnames that resolve into a private range and
// redirects to them.
func (s *Server) newImageClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
		Control: func(_, address string, _ syscall.RawConn) error {
			addrPort, err := netip.ParseAddrPort(address)
			if err != nil {
				return errBlockedAddr
			}
			if isBlockedAddr(addrPort.Addr()) {
				return errBlockedAddr
			}
			return nil
		},
	}
	transport.DialContext = dialer.DialContext

	return &http.Client{
		Timeout:   10 * time.Second,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxImageRedirects {
				return fmt.Errorf("stopped after %d redirects", maxImageRedirects)
			}
			return s.validateArtworkURL(req.URL)
		},
	}
}

// validateArtworkURL accepts http(s) URLs on an allow-listed host. A host
// given as a literal address must also be public.
func (s *Server) validateArtworkURL(u *url.URL) error {
	if u == nil {
		return errors.New("invalid url")
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return errArtworkScheme
	}
	host := strings.ToLower(u.Hostname())
	if _, ok := s.artworkHosts[host]; !ok {
		return errArtworkHost
	}
	if s.skipAddressCheck {
		return nil
	}
	if addr, err := netip.ParseAddr(host); err == nil && isBlockedAddr(addr) {
		return errBlockedAddr
	}
	return nil
}

func isBlockedAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	return !addr.IsValid() || addr.IsLoopback() || addr.IsPrivate() ||
		addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() ||
		addr.IsMulticast() || addr.IsUnspecified()
}
