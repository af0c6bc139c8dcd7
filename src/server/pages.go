package server

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"net/http"

	"AirQuality/src/charts"
	"AirQuality/src/config"
	"AirQuality/src/processor"

	"github.com/gin-gonic/gin"
)

//go:embed about.md
var aboutMarkdown []byte

const htmlType = "text/html; charset=utf-8"

// stationTable resolves ?station= and ?param= against the snapshot.
func (s *Server) stationTable(c *gin.Context) (*processor.StationTable, string, error) {
	param := c.Query("param")
	if _, ok := s.proc.Registry().FamilyOf(param); !ok {
		return nil, "", fmt.Errorf("%w: %q", errUnknownParameter, param)
	}
	fam, err := s.family(c, config.Cont)
	if err != nil {
		return nil, "", err
	}
	long, err := s.data.Snapshot().Frame(fam)
	if err != nil {
		return nil, "", err
	}
	table, err := s.proc.Extract(long, s.stationName(c.Query("station")))
	if err != nil {
		return nil, "", err
	}
	return table, param, nil
}

func (s *Server) render(c *gin.Context, r charts.Renderer) {
	var buf bytes.Buffer
	if err := r.Render(&buf); err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, htmlType, buf.Bytes())
}

// GET /charts/timeseries?station=&param=&family=&freq=
func (s *Server) handleTimeSeriesChart(c *gin.Context) {
	table, param, err := s.stationTable(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	line, err := charts.TimeSeries(table, s.proc.Registry(), param, c.DefaultQuery("freq", s.cfg.DefaultFreq))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.render(c, line)
}

// GET /charts/boxplot?station=&param=&family=
func (s *Server) handleBoxPlotChart(c *gin.Context) {
	table, param, err := s.stationTable(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	box, err := charts.MonthlyBoxPlot(table, s.proc.Registry(), param)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.render(c, box)
}

// GET /charts/missing
func (s *Server) handleMissingChart(c *gin.Context) {
	snap := s.data.Snapshot()
	report, err := s.proc.DiagnoseMissing(snap.Meteo, snap.Cont)
	if err != nil {
		s.fail(c, err)
		return
	}
	meteo, cont, err := charts.MissingValues(report, s.proc.Registry())
	if err != nil {
		s.fail(c, err)
		return
	}
	var buf bytes.Buffer
	if err := charts.RenderPage(&buf, "Missing data", meteo, cont); err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, htmlType, buf.Bytes())
}

// GET /about
func (s *Server) handleAbout(c *gin.Context) {
	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html><html><head><meta charset=\"utf-8\"><title>About</title></head><body>\n")
	if err := s.md.Convert(aboutMarkdown, &buf); err != nil {
		s.fail(c, err)
		return
	}
	buf.WriteString("</body></html>\n")
	c.Data(http.StatusOK, htmlType, buf.Bytes())
}

// GET /logs streams new log entries until the client goes away.
func (s *Server) handleLogs(c *gin.Context) {
	if s.logger == nil {
		c.Status(http.StatusNoContent)
		return
	}
	sub := s.logger.Subscribe()
	defer s.logger.Unsubscribe(sub)

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("Cache-Control", "no-cache")
	c.Stream(func(w io.Writer) bool {
		select {
		case entry, ok := <-sub:
			if !ok {
				return false
			}
			_, err := io.WriteString(w, entry)
			return err == nil
		case <-c.Request.Context().Done():
			return false
		}
	})
}
