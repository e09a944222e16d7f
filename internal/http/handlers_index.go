package httpx

import (
	"html/template"
	"io"
	"log/slog"
	"net/http"
)

const healthResponse = `{"status":"ok"}`

// healthHandler returns a simple 200 OK status for readiness/liveness checks.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = io.WriteString(w, healthResponse)
}

var indexTmpl = template.Must(template.New("index").Parse(`<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<p id="greeting">Signed in as <strong>{{.User.DisplayName}}</strong>{{with .User.Email}} ({{.}}){{end}}</p>
{{if .Guest}}<p id="guest-notice">Guest access: some features are unavailable.</p>{{end}}
<form method="post" action="{{.BasePath}}/sso/logout">
<input type="hidden" name="csrf_token" value="{{.CSRFToken}}">
<button type="submit">Sign out</button>
</form>
<script>
var csrfToken = {{.CSRFToken}};
document.addEventListener("visibilitychange", function () {
  if (document.visibilityState !== "visible") { return; }
  fetch({{.BasePath}} + "/sso/visibility", {method: "POST", credentials: "same-origin", headers: {"Accept": "application/json", "X-Csrf-Token": csrfToken}})
    .then(function (res) { return res.json(); })
    .then(function (body) { if (body.redirect_to) { window.location.assign(body.redirect_to); } });
});
</script>
</body>
</html>
`))

type indexData struct {
	Title     string
	BasePath  string
	User      displayUser
	Guest     bool
	CSRFToken string
}

type displayUser struct {
	DisplayName string
	Email       string
}

// IndexHandler renders the signed-in landing page. It expects RequireSession upstream.
// basePath prefixes the page's links to the SSO endpoints.
func IndexHandler(title, basePath string, logger *slog.Logger) http.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		data := indexData{
			Title:     title,
			BasePath:  basePath,
			Guest:     IsGuestUser(ctx),
			CSRFToken: CSRFTokenFromContext(ctx),
		}
		if u := UserFromContext(ctx); u != nil {
			data.User = displayUser{DisplayName: u.DisplayName, Email: u.Email}
			if data.User.DisplayName == "" {
				data.User.DisplayName = u.ID
			}
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		if err := indexTmpl.Execute(w, data); err != nil {
			logger.ErrorContext(ctx, "render index", "error", err, "client_id", ClientIDFromContext(ctx))
			return
		}
		logger.DebugContext(ctx, "rendered index", "client_id", ClientIDFromContext(ctx), "guest", data.Guest)
	}
}
