package ui

import (
	"html/template"
	"net/http"
)

var indexTmpl = template.Must(template.New("index").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>dsptool</title>
<style>
body { font-family: sans-serif; margin: 2rem auto; max-width: 48rem; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ccc; padding: 0.4rem 0.6rem; text-align: left; }
</style>
</head>
<body>
<h1>Datasphere Toolkit</h1>
<p>Spaces in this tenant. Lineage and object data is served under <code>/api</code>.</p>
{{if .Error}}
<p><em>{{.Error}}</em></p>
{{else}}
<table>
<tr><th>Space</th><th>Business Name</th><th></th></tr>
{{range .Spaces}}
<tr>
<td>{{.ID}}</td>
<td>{{.BusinessName}}</td>
<td><a href="/api/spaces/{{.ID}}/objects">objects</a></td>
</tr>
{{end}}
</table>
{{end}}
</body>
</html>
`))

// IndexPage renders the space overview.
func (s *Server) IndexPage(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Spaces []struct {
			ID           string
			BusinessName string
		}
		Error string
	}{}

	spaces, ok := s.cachedSpaces()
	if !ok {
		var err error
		spaces, err = s.service.Spaces(r.Context())
		if err != nil {
			s.logger.Error("failed to list spaces for index page", "error", err)
			data.Error = "Spaces are unavailable. Check the tenant connection."
		}
	}
	for _, space := range spaces {
		data.Spaces = append(data.Spaces, struct {
			ID           string
			BusinessName string
		}{ID: space.ID, BusinessName: space.BusinessName})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTmpl.Execute(w, data); err != nil {
		s.logger.Error("failed to render index page", "error", err)
	}
}
