package apiv1

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/yhzhou/smartcal/store"
)

type eventResponse struct {
	ID          int32  `json:"id"`
	UID         string `json:"uid"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	AllDay      bool   `json:"allDay"`
}

type calendarDay struct {
	Day   int `json:"day"`
	Count int `json:"count"`
}

type calendarMonthResponse struct {
	Year   int              `json:"year"`
	Month  int              `json:"month"`
	Days   []*calendarDay   `json:"days"`
	Events []*eventResponse `json:"events"`
}

// GetCalendarMonth returns per-day event counts for a month, one entry per
// calendar day.
func (s *APIV1Service) GetCalendarMonth(c echo.Context) error {
	ctx := c.Request().Context()
	userID := currentUserID(c)

	year, month, err := parseYearMonth(c)
	if err != nil {
		return err
	}

	loc := s.location()
	monthStart := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	monthEnd := monthStart.AddDate(0, 1, 0).Add(-time.Second)

	events, err := s.listEventsBetween(ctx, userID, monthStart, monthEnd)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list events").SetInternal(err)
	}

	daysInMonth := monthStart.AddDate(0, 1, -1).Day()
	days := make([]*calendarDay, daysInMonth)
	for i := range days {
		days[i] = &calendarDay{Day: i + 1}
	}
	for _, event := range events {
		day := event.ParseStartTime().In(loc).Day()
		if day >= 1 && day <= daysInMonth {
			days[day-1].Count++
		}
	}

	return c.JSON(http.StatusOK, &calendarMonthResponse{
		Year:   year,
		Month:  month,
		Days:   days,
		Events: convertEvents(events, loc),
	})
}

// GetDayEvents returns the events of one day, ordered by start time.
func (s *APIV1Service) GetDayEvents(c echo.Context) error {
	ctx := c.Request().Context()
	userID := currentUserID(c)

	year, month, err := parseYearMonth(c)
	if err != nil {
		return err
	}
	day, err := strconv.Atoi(c.Param("day"))
	if err != nil || day < 1 || day > 31 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid day")
	}

	loc := s.location()
	dayStart := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if dayStart.Day() != day {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid day")
	}
	dayEnd := time.Date(year, time.Month(month), day, 23, 59, 59, 0, loc)

	events, err := s.listEventsBetween(ctx, userID, dayStart, dayEnd)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list events").SetInternal(err)
	}

	return c.JSON(http.StatusOK, convertEvents(events, loc))
}

type statsDay struct {
	Date    string  `json:"date"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

type statsResponse struct {
	TotalEvents  int            `json:"totalEvents"`
	CurrentMonth []*calendarDay `json:"currentMonth"`
	Last7Days    []*statsDay    `json:"last7Days"`
}

// GetStats returns the total event count, per-day counts for the current
// month, and a last-7-days activity series. Percent scales each day against
// the busiest day of the window.
func (s *APIV1Service) GetStats(c echo.Context) error {
	ctx := c.Request().Context()
	userID := currentUserID(c)

	events, err := s.Store.ListEvents(ctx, &store.FindEvent{CreatorID: &userID})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list events").SetInternal(err)
	}

	loc := s.location()
	now := time.Now().In(loc)
	windowStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, -6)

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	daysInMonth := monthStart.AddDate(0, 1, -1).Day()
	monthDays := make([]*calendarDay, daysInMonth)
	for i := range monthDays {
		monthDays[i] = &calendarDay{Day: i + 1}
	}

	counts := make(map[string]int, 7)
	for _, event := range events {
		start := event.ParseStartTime().In(loc)
		if start.Year() == now.Year() && start.Month() == now.Month() {
			monthDays[start.Day()-1].Count++
		}
		if start.Before(windowStart) || start.After(now) {
			continue
		}
		counts[start.Format("2006-01-02")]++
	}

	maxCount := 0
	for _, count := range counts {
		if count > maxCount {
			maxCount = count
		}
	}

	days := make([]*statsDay, 0, 7)
	for i := 0; i < 7; i++ {
		date := windowStart.AddDate(0, 0, i).Format("2006-01-02")
		count := counts[date]
		percent := 0.0
		if maxCount > 0 {
			percent = float64(count) / float64(maxCount) * 100
		}
		days = append(days, &statsDay{Date: date, Count: count, Percent: percent})
	}

	return c.JSON(http.StatusOK, &statsResponse{
		TotalEvents:  len(events),
		CurrentMonth: monthDays,
		Last7Days:    days,
	})
}

func (s *APIV1Service) listEventsBetween(ctx context.Context, userID int32, start, end time.Time) ([]*store.Event, error) {
	after := start.Unix()
	before := end.Unix()
	return s.Store.ListEvents(ctx, &store.FindEvent{
		CreatorID:     &userID,
		StartTsAfter:  &after,
		StartTsBefore: &before,
	})
}

func (s *APIV1Service) location() *time.Location {
	if s.Profile != nil && s.Profile.Timezone != "" {
		if loc, err := time.LoadLocation(s.Profile.Timezone); err == nil {
			return loc
		}
	}
	return time.Local
}

func parseYearMonth(c echo.Context) (int, int, error) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil || year < 1970 || year > 9999 {
		return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "invalid year")
	}
	month, err := strconv.Atoi(c.Param("month"))
	if err != nil || month < 1 || month > 12 {
		return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "invalid month")
	}
	return year, month, nil
}

func convertEvents(events []*store.Event, loc *time.Location) []*eventResponse {
	out := make([]*eventResponse, 0, len(events))
	for _, event := range events {
		out = append(out, &eventResponse{
			ID:          event.ID,
			UID:         event.UID,
			Title:       event.Title,
			Description: event.Description,
			Location:    event.Location,
			StartTime:   event.ParseStartTime().In(loc).Format("2006-01-02 15:04:05"),
			EndTime:     event.ParseEndTime().In(loc).Format("2006-01-02 15:04:05"),
			AllDay:      event.AllDay,
		})
	}
	return out
}
