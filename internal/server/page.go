package server

import (
	"context"
	"io"
	"net/http"

	"github.com/a-h/templ"
)

const pageStyle = `body{margin:0;font-family:system-ui,sans-serif}
.pb-section{position:relative}
.pb-empty{padding:4rem;text-align:center;color:#6b7280}
.pb-section-error{margin:1rem;padding:1rem;border:1px solid #fca5a5;background:#fef2f2;color:#991b1b}
.pb-retry{margin-top:.5rem}
.pb-header,.pb-hero,.pb-content,.pb-footer{padding:2rem}`

// previewScript wires the retry buttons and reloads the page when the
// design changes.
const previewScript = `(function () {
  document.addEventListener("click", function (e) {
    var btn = e.target.closest("[data-retry-section]");
    if (!btn) return;
    var id = btn.getAttribute("data-retry-section");
    fetch("/preview/sections/" + encodeURIComponent(id))
      .then(function (r) { return r.text(); })
      .then(function (html) {
        var el = document.querySelector('[data-section-id="' + CSS.escape(id) + '"]');
        if (el) el.outerHTML = html;
      });
  });
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(proto + location.host + "/ws");
  ws.onmessage = function (msg) {
    var data = JSON.parse(msg.data);
    if (data.type === "scroll") { window.scrollBy(0, data.dy); return; }
    if (data.state || data.type === "catalog_reloaded") location.reload();
  };
})();`

// document wraps body in a complete HTML page.
func document(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if title == "" {
			title = "Preview"
		}
		head := "<!DOCTYPE html><html lang=\"en\"><head><meta charset=\"utf-8\">" +
			"<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">" +
			"<title>" + templ.EscapeString(title) + "</title>" +
			"<style>" + pageStyle + "</style></head><body>"
		if _, err := io.WriteString(w, head); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "<script src=\"/static/preview.js\"></script></body></html>")
		return err
	})
}

func (s *Server) handleScript(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = io.WriteString(w, previewScript)
}
