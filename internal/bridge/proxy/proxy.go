// Package proxy serves the hosted dashboard through a local reverse
// proxy, splicing the session-bridge shim into every HTML response and
// binding each page instance to the bridge over a websocket.
package proxy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"

	go_json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/viiraa/healthsync/internal/bridge"
	"github.com/viiraa/healthsync/internal/xslog"
)

// BridgeFactory builds a bridge bound to one surface. The proxy calls
// it once per websocket connection and calls the returned detach func
// (if any) when that connection closes, so callers can drop whatever
// registration they keep for the bridge.
type BridgeFactory func(surface bridge.Surface) (b *bridge.Bridge, detach func())

type Server struct {
	upstream  *url.URL
	sessions  bridge.SessionControl
	newBridge BridgeFactory
	logger    *slog.Logger
	upgrader  websocket.Upgrader
	reverse   *httputil.ReverseProxy
}

func NewServer(upstream *url.URL, sessions bridge.SessionControl, factory BridgeFactory, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		upstream:  upstream,
		sessions:  sessions,
		newBridge: factory,
		logger:    logger,
		upgrader: websocket.Upgrader{
			// The proxy listens on loopback only; the dashboard page it
			// served is the only expected origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	s.reverse = &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(upstream)
			pr.Out.Host = upstream.Host
			// Compressed bodies cannot be spliced.
			pr.Out.Header.Set("Accept-Encoding", "identity")
		},
		ModifyResponse: s.injectShim,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error("upstream proxy error", xslog.URL(r.URL.String()), xslog.Error(err))
			http.Error(w, "dashboard unreachable", http.StatusBadGateway)
		},
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/__bridge/ws", s.handleWebSocket)
	mux.HandleFunc("/__bridge/shim.js", s.handleShim)
	mux.HandleFunc("/", s.handlePage)
	return mux
}

// handlePage proxies the dashboard when a session exists and serves the
// native sign-in affordance otherwise.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if s.sessions.Current() == nil {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, signedOutPage)
		return
	}
	s.reverse.ServeHTTP(w, r)
}

// injectShim splices the bridge shim into text/html responses, before
// </head> when present.
func (s *Server) injectShim(resp *http.Response) error {
	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "text/html") {
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading upstream body: %w", err)
	}
	_ = resp.Body.Close()

	tag := []byte(`<script src="/__bridge/shim.js"></script>`)
	if idx := bytes.Index(body, []byte("</head>")); idx >= 0 {
		spliced := make([]byte, 0, len(body)+len(tag))
		spliced = append(spliced, body[:idx]...)
		spliced = append(spliced, tag...)
		spliced = append(spliced, body[idx:]...)
		body = spliced
	} else {
		body = append(tag, body...)
	}

	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	resp.Header.Set("Content-Length", strconv.Itoa(len(body)))
	return nil
}

// controlFrame is how the shim reports page lifecycle, distinct from
// the bridge's own message envelope.
type controlFrame struct {
	Type string `json:"type"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", xslog.Error(err))
		return
	}

	surface := newWSSurface(conn)
	defer surface.Close()

	b, detach := s.newBridge(surface)
	if detach != nil {
		defer detach()
	}
	ctx := context.Background()
	b.Attach(ctx)

	s.logger.Info("surface attached", xslog.SurfaceID(surface.ID()))

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			s.logger.Info("surface detached",
				xslog.SurfaceID(surface.ID()),
				xslog.Error(err),
			)
			return
		}

		var frame controlFrame
		if go_json.Unmarshal(raw, &frame) == nil {
			switch frame.Type {
			case "__navigationStarted":
				b.NavigationStarted()
				continue
			case "__navigationFinished":
				b.NavigationFinished(r.Context())
				continue
			}
		}
		b.Handle(r.Context(), raw)
	}
}

func (s *Server) handleShim(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = io.WriteString(w, shimScript)
}

// shimScript runs inside the proxied page. It connects back to the
// bridge, evals pushed scripts, reports navigation lifecycle, and
// exposes the inbound message channel the dashboard already uses.
const shimScript = `(function() {
	var ws = new WebSocket('ws://' + window.location.host + '/__bridge/ws');
	var queue = [];

	function send(msg) {
		var raw = JSON.stringify(msg);
		if (ws.readyState === WebSocket.OPEN) {
			ws.send(raw);
		} else {
			queue.push(raw);
		}
	}

	ws.onopen = function() {
		send({ type: '__navigationStarted' });
		while (queue.length) { ws.send(queue.shift()); }
		if (document.readyState === 'complete') {
			send({ type: '__navigationFinished' });
		} else {
			window.addEventListener('load', function() {
				send({ type: '__navigationFinished' });
			});
		}
	};

	ws.onmessage = function(event) {
		var frame = JSON.parse(event.data);
		if (frame.type === 'eval') {
			try {
				(0, eval)(frame.script);
			} catch (e) {
				send({ type: 'error', payload: { message: String(e) } });
			}
		}
	};

	window.webkit = window.webkit || {};
	window.webkit.messageHandlers = window.webkit.messageHandlers || {};
	window.webkit.messageHandlers.native = {
		postMessage: function(msg) { send(msg); }
	};

	document.addEventListener('click', function(e) {
		var anchor = e.target.closest && e.target.closest('a[href]');
		if (anchor) {
			send({ type: 'navigate', payload: { url: anchor.href } });
		}
	}, true);
})();`

// signedOutPage replaces the dashboard until the user authenticates.
const signedOutPage = `<!DOCTYPE html>
<html>
<head><title>healthsync</title></head>
<body style="font-family: sans-serif; margin: 4rem auto; max-width: 28rem; text-align: center;">
<h1>Not signed in</h1>
<p>Run <code>healthsync login</code> and reload this page.</p>
</body>
</html>`
