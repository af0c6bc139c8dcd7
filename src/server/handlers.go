package server

import (
	"fmt"
	"net/http"
	"strconv"

	"AirQuality/src/charts"
	"AirQuality/src/config"
	"AirQuality/src/processor"

	"github.com/gin-gonic/gin"
)

// GET /api/stations
func (s *Server) handleStations(c *gin.Context) {
	stations := s.proc.Registry().Stations()
	c.JSON(http.StatusOK, gin.H{
		"data": stations,
		"meta": gin.H{"count": len(stations)},
	})
}

// GET /api/parameters?family=
func (s *Server) handleParameters(c *gin.Context) {
	reg := s.proc.Registry()
	families := []config.Family{config.Meteo, config.Cont}
	if raw := c.Query("family"); raw != "" {
		fam, err := config.ParseFamily(raw)
		if err != nil {
			s.fail(c, err)
			return
		}
		families = []config.Family{fam}
	}

	var out []gin.H
	for _, fam := range families {
		params, _ := reg.Params(fam)
		for _, p := range params {
			out = append(out, gin.H{"name": p, "unit": reg.Unit(p), "family": fam})
		}
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

// family reads ?family=, falling back to the family of ?param= and then to
// fallback.
func (s *Server) family(c *gin.Context, fallback config.Family) (config.Family, error) {
	if raw := c.Query("family"); raw != "" {
		return config.ParseFamily(raw)
	}
	if param := c.Query("param"); param != "" {
		if fam, ok := s.proc.Registry().FamilyOf(param); ok {
			return fam, nil
		}
	}
	return fallback, nil
}

// stationName accepts a station code ("SE", "SE_b") in place of a name.
func (s *Server) stationName(key string) string {
	if st, ok := s.proc.Registry().StationByCode(key); ok {
		return st.Name
	}
	return key
}

// GET /api/stations/:name/table?family=&freq=
func (s *Server) handleStationTable(c *gin.Context) {
	fam, err := s.family(c, config.Cont)
	if err != nil {
		s.fail(c, err)
		return
	}
	long, err := s.data.Snapshot().Frame(fam)
	if err != nil {
		s.fail(c, err)
		return
	}
	table, err := s.proc.Extract(long, s.stationName(c.Param("name")))
	if err != nil {
		s.fail(c, err)
		return
	}

	frame := table.Frame
	if freq := c.Query("freq"); freq != "" {
		if frame, err = processor.Resample(frame, freq); err != nil {
			s.fail(c, err)
			return
		}
	}

	body := frameJSON(frame)
	body["station"] = table.Station
	body["code"] = table.Code
	body["coerced"] = table.Coerced
	c.JSON(http.StatusOK, body)
}

// GET /api/metrics?family=&days=
func (s *Server) handleMetrics(c *gin.Context) {
	fam, err := s.family(c, config.Cont)
	if err != nil {
		s.fail(c, err)
		return
	}
	days := s.cfg.DefaultDays
	if raw := c.Query("days"); raw != "" {
		if days, err = strconv.Atoi(raw); err != nil {
			s.fail(c, fmt.Errorf("%w: days=%q", processor.ErrInvalidWindow, raw))
			return
		}
	}

	long, err := s.data.Snapshot().Frame(fam)
	if err != nil {
		s.fail(c, err)
		return
	}
	summary, err := s.proc.Metrics(long, days, fam)
	if err != nil {
		s.fail(c, err)
		return
	}
	cards, err := charts.MetricCards(summary, s.proc.Registry())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"family": fam,
		"days":   days,
		"data":   cards,
	})
}

// GET /api/missing
func (s *Server) handleMissing(c *gin.Context) {
	snap := s.data.Snapshot()
	report, err := s.proc.DiagnoseMissing(snap.Meteo, snap.Cont)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, frameJSON(report))
}
