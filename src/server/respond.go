package server

import (
	"errors"
	"math"
	"net/http"

	"AirQuality/src/processor"

	"github.com/gin-gonic/gin"
	"github.com/go-gota/gota/dataframe"
)

var errUnknownParameter = errors.New("unknown parameter")

// statusOf maps domain errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, processor.ErrStationNotFound), errors.Is(err, processor.ErrMissingColumn):
		return http.StatusNotFound
	case errors.Is(err, processor.ErrInvalidFamily),
		errors.Is(err, processor.ErrInvalidWindow),
		errors.Is(err, processor.ErrInvalidFrequency),
		errors.Is(err, errUnknownParameter):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError && s.logger != nil {
		s.logger.Error(c.Request.URL.Path + ": " + err.Error())
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// frameRows renders df as a list of objects; NaN becomes null.
func frameRows(df dataframe.DataFrame) []map[string]interface{} {
	rows := df.Maps()
	for _, row := range rows {
		for k, v := range row {
			if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
				row[k] = nil
			}
		}
	}
	return rows
}

func frameJSON(df dataframe.DataFrame) gin.H {
	return gin.H{
		"columns": df.Names(),
		"rows":    frameRows(df),
	}
}
