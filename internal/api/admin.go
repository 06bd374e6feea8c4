package api

import (
	"fmt"
	"net/http"
	"text/tabwriter"

	"tailscale.com/tsweb"

	"github.com/banshee-data/airquality.report/internal/httputil"
	"github.com/banshee-data/airquality.report/internal/pms"
)

// AttachAdminRoutes attaches sensor debugging endpoints to the given HTTP
// mux served at /debug/. These routes are accessible only over
// localhost/via Tailscale and are not publicly accessible.
func (s *Server) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	debug.HandleFunc("pms", "PM sensor link state and frame counters", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		writeDebugTable(w, s.source.Reading())
	})

	debug.HandleSilentFunc("pms.json", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSONOK(w, s.source.Reading())
	})
}

func writeDebugTable(w http.ResponseWriter, r pms.Reading) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	row := func(k string, v any) { fmt.Fprintf(tw, "%s\t%v\n", k, v) }
	row("variant", r.Variant)
	row("time", r.Time.Format("2006-01-02T15:04:05.000Z07:00"))
	row("link failed", r.Link.Failed)
	row("last valid read (ms)", r.Link.LastValidRead)
	row("fail count", r.Link.FailCount)
	row("drains", r.Stats.Drains)
	row("bytes read", r.Stats.BytesRead)
	row("frames valid", r.Stats.FramesValid)
	row("frames invalid", r.Stats.FramesInvalid)
	row("frames skipped", r.Stats.FramesSkipped)
	row("firmware", fmt.Sprintf("0x%02x", r.FirmwareVersion))
	row("error code", fmt.Sprintf("0x%02x", r.ErrorCode))
	row("pm2.5 (cf=1)", r.Raw25)
	row("pm2.5", r.PM25)
	row("aqi", r.AQI)
}
