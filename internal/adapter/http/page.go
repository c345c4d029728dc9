package http

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/couchcryptid/tribe-origin-map/internal/domain"
)

const pageTitle = "原鄉部落座標與資訊 📍"

// Inline messages shown on the page.
const (
	loadErrorPrefix   = "無法載入部落資料："
	polygonWarnPrefix = "無法過濾 SHP 圖層:"
	lineWarnPrefix    = "無法過濾 GeoJSON 流向線:"
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTmpl = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type pageData struct {
	Title    string
	Error    string
	Warnings []string
	Tribes   []string
	Selected string
	Render   domain.Render
	Map      mapData
}

// mapData is injected into the page script as JSON.
type mapData struct {
	Basemap Basemap       `json:"basemap"`
	Render  domain.Render `json:"render"`
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	data := pageData{Title: pageTitle}

	names, err := s.dash.Tribes()
	if err != nil {
		s.logger.Error("page unavailable", "error", err)
		data.Error = loadErrorPrefix + err.Error()
		s.writePage(w, http.StatusServiceUnavailable, data)
		return
	}

	render, err := s.dash.Render(r.Context(), r.URL.Query().Get("tribe"))
	if err != nil {
		s.logger.Error("page unavailable", "error", err)
		data.Error = loadErrorPrefix + err.Error()
		s.writePage(w, http.StatusServiceUnavailable, data)
		return
	}

	data.Tribes = names
	data.Selected = render.Tribe
	data.Render = render
	data.Warnings = warningMessages(s.dash.Warnings())
	data.Map = mapData{Basemap: s.basemap, Render: render}
	s.writePage(w, http.StatusOK, data)
}

func (s *Server) writePage(w http.ResponseWriter, status int, data pageData) {
	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, data); err != nil {
		s.logger.Error("render page", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes()) //nolint:errcheck // response already committed
}

func warningMessages(warnings []domain.LayerWarning) []string {
	msgs := make([]string, 0, len(warnings))
	for _, w := range warnings {
		prefix := polygonWarnPrefix
		if w.Dataset == domain.DatasetLines {
			prefix = lineWarnPrefix
		}
		msgs = append(msgs, prefix+" "+w.Message)
	}
	return msgs
}
