package handlers

import (
	"html/template"
	"net/http"

	"github.com/magnetacademy/tma-server/internal/auth"
)

// PageHandler serves the admin panel HTML shells. The page guard runs in
// front of every handler here, so by the time a request arrives the
// session has already been verified and authorized for the route.
type PageHandler struct{}

// NewPageHandler creates a new PageHandler.
func NewPageHandler() *PageHandler {
	return &PageHandler{}
}

var loginPage = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html>
<head><title>Admin Login - The Magnet Academy</title></head>
<body>
<h1>Admin Login</h1>
<form id="login-form">
  <input type="text" name="username" placeholder="Username or email" maxlength="100" required>
  <input type="password" name="password" maxlength="200" required>
  <button type="submit">Sign in</button>
</form>
<script>
document.getElementById("login-form").addEventListener("submit", async (e) => {
  e.preventDefault();
  const form = new FormData(e.target);
  const resp = await fetch("/api/auth/login", {
    method: "POST",
    headers: {"Content-Type": "application/json"},
    body: JSON.stringify({username: form.get("username"), password: form.get("password")}),
  });
  if (resp.ok) { window.location.href = "/admin/dashboard"; }
  else { alert((await resp.json()).error); }
});
</script>
</body>
</html>
`))

var adminPage = template.Must(template.New("admin").Parse(`<!DOCTYPE html>
<html>
<head><title>{{.Title}} - The Magnet Academy</title></head>
<body>
<h1>{{.Title}}</h1>
<p>Signed in as {{.FullName}} ({{.Role}})</p>
<form action="/api/auth/logout" method="post"><button type="submit">Sign out</button></form>
</body>
</html>
`))

type adminPageData struct {
	Title    string
	FullName string
	Role     string
}

// LoginPage serves the admin login form. The guard redirects visitors
// who already hold a valid session before this handler runs.
func (h *PageHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = loginPage.Execute(w, nil)
}

// Dashboard serves the admin dashboard shell.
func (h *PageHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	h.renderAdmin(w, r, "Dashboard")
}

// Section serves the remaining admin sections (blog, team, users,
// settings). Authorization for the sensitive sections happened in the
// guard.
func (h *PageHandler) Section(w http.ResponseWriter, r *http.Request) {
	h.renderAdmin(w, r, "Admin")
}

func (h *PageHandler) renderAdmin(w http.ResponseWriter, r *http.Request, title string) {
	session := auth.GetSessionFromContext(r)
	if session == nil {
		// The guard should make this unreachable.
		http.Redirect(w, r, "/admin", http.StatusFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = adminPage.Execute(w, adminPageData{
		Title:    title,
		FullName: session.FullName,
		Role:     session.Role,
	})
}
