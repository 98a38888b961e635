package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/internal/models"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/analytics"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/logger"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultAnalyticsRange = analytics.Window7d

var errMissingAssistant = errors.New("assistantId is required")

// GetAnalytics returns the snapshot of the requested window for one or more
// assistants. The window is either ?range=1d|7d|30d|90d or ?start=&end=.
func (h *Handlers) GetAnalytics(c *gin.Context) {
	assistantIDs := assistantIDsFromQuery(c)
	if len(assistantIDs) == 0 {
		response.Fail(c, "Invalid request", errMissingAssistant)
		return
	}

	tr, err := h.timeRangeFromQuery(c)
	if err != nil {
		response.Fail(c, "Invalid range", err)
		return
	}

	prev := tr.Previous()
	ctx := c.Request.Context()
	var current, previous []models.CallRecord

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, err = h.calls.ListByAssistants(gctx, assistantIDs, tr.Start, tr.End)
		return err
	})
	g.Go(func() error {
		var err error
		// the previous window is half open, so stop just before the current start
		previous, err = h.calls.ListByAssistants(gctx, assistantIDs, prev.Start, tr.Start.Add(-time.Nanosecond))
		return err
	})
	if err := g.Wait(); err != nil {
		logger.Error("load analytics records failed",
			zap.Strings("assistantIds", assistantIDs),
			zap.Error(err))
		response.AbortWithStatusJSON(c, http.StatusServiceUnavailable, errors.New("call store unavailable"))
		return
	}

	calls := make([]analytics.Call, 0, len(current)+len(previous))
	for i := range previous {
		calls = append(calls, previous[i].AnalyticsCall())
	}
	for i := range current {
		calls = append(calls, current[i].AnalyticsCall())
	}

	response.Success(c, "analytics success", analytics.Aggregate(calls, tr))
}

// assistantIDsFromQuery accepts ?assistantId=a&assistantId=b and ?assistantIds=a,b.
func assistantIDsFromQuery(c *gin.Context) []string {
	seen := make(map[string]struct{})
	var ids []string
	add := func(v string) {
		for _, id := range strings.Split(v, ",") {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	for _, v := range c.QueryArray("assistantId") {
		add(v)
	}
	for _, v := range c.QueryArray("assistantIds") {
		add(v)
	}
	return ids
}

func (h *Handlers) timeRangeFromQuery(c *gin.Context) (analytics.TimeRange, error) {
	start, end := c.Query("start"), c.Query("end")
	if start == "" && end == "" {
		return analytics.ParseRange(c.DefaultQuery("range", defaultAnalyticsRange), h.now())
	}
	if start == "" || end == "" {
		return analytics.TimeRange{}, errors.New("start and end must be given together")
	}
	s, err := h.parseQueryTime(start, false)
	if err != nil {
		return analytics.TimeRange{}, fmt.Errorf("start: %w", err)
	}
	e, err := h.parseQueryTime(end, true)
	if err != nil {
		return analytics.TimeRange{}, fmt.Errorf("end: %w", err)
	}
	return analytics.CustomRange(s, e)
}

// parseQueryTime accepts RFC3339 or a plain date in the business timezone.
// A plain end date covers the whole day.
func (h *Handlers) parseQueryTime(v string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	d, err := time.ParseInLocation("2006-01-02", v, h.loc)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		d = d.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return d, nil
}
