package model

import (
	"fmt"
	"time"
)

// EventType distinguishes the kinds of interaction the frontend reports.
type EventType string

const (
	EventPageView EventType = "page_view"
	EventClick    EventType = "click"
)

// DeviceType is the coarse client form factor.
type DeviceType string

const (
	DeviceDesktop DeviceType = "desktop"
	DeviceMobile  DeviceType = "mobile"
	DeviceTablet  DeviceType = "tablet"
)

// DeviceTypes lists every device type in display order.
var DeviceTypes = []DeviceType{DeviceDesktop, DeviceMobile, DeviceTablet}

// Valid reports whether d is one of the known device types.
func (d DeviceType) Valid() bool {
	switch d {
	case DeviceDesktop, DeviceMobile, DeviceTablet:
		return true
	}
	return false
}

// AnalyticsEvent is one recorded interaction. Events are append-only.
type AnalyticsEvent struct {
	ID         string     `json:"id" db:"id"`
	EventType  EventType  `json:"event_type" db:"event_type"`
	Page       string     `json:"page" db:"page"`
	DeviceType DeviceType `json:"device_type" db:"device_type"`
	IPAddress  string     `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent  string     `json:"user_agent,omitempty" db:"user_agent"`
	Browser    string     `json:"browser,omitempty" db:"browser"`
	OS         string     `json:"os,omitempty" db:"os"`
	Location   string     `json:"location,omitempty" db:"location"`
	Timestamp  time.Time  `json:"timestamp" db:"created_at"`
}

// TrackRequest is the public event ingestion payload.
type TrackRequest struct {
	EventType  EventType  `json:"event_type" validate:"required,oneof=page_view click"`
	Page       string     `json:"page" validate:"required,max=512"`
	DeviceType DeviceType `json:"device_type" validate:"omitempty,oneof=mobile tablet desktop"`
}

// TimeRange selects the window that statistics are computed over.
type TimeRange string

const (
	Range7Days  TimeRange = "7d"
	Range30Days TimeRange = "30d"
	RangeAll    TimeRange = "all"
)

// ParseTimeRange converts a query value into a TimeRange. An empty value
// selects the seven day window.
func ParseTimeRange(s string) (TimeRange, error) {
	switch TimeRange(s) {
	case "":
		return Range7Days, nil
	case Range7Days, Range30Days, RangeAll:
		return TimeRange(s), nil
	}
	return "", fmt.Errorf("unsupported time range %q (use 7d, 30d or all)", s)
}

// Days returns the number of calendar days covered by the range, or 0 for
// the unbounded range.
func (r TimeRange) Days() int {
	switch r {
	case Range7Days:
		return 7
	case Range30Days:
		return 30
	}
	return 0
}

// Start returns the inclusive lower bound of the window ending at now: the
// UTC midnight that begins the oldest day in range. The zero time is
// returned for the unbounded range.
func (r TimeRange) Start(now time.Time) time.Time {
	days := r.Days()
	if days == 0 {
		return time.Time{}
	}
	return StartOfDay(now).AddDate(0, 0, -(days - 1))
}

// StartOfDay truncates t to UTC midnight.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// VisitDataPoint is one day of the visit time series.
type VisitDataPoint struct {
	Date   string `json:"date"`
	Day    string `json:"day"`
	Visits int    `json:"visits"`
	Clicks int    `json:"clicks"`
}

// PageView is the view count of a single page.
type PageView struct {
	Page  string `json:"page"`
	Views int    `json:"views"`
}

// DeviceStat is the share of events coming from one device type. Value is
// a percentage rounded to one decimal.
type DeviceStat struct {
	Name  DeviceType `json:"name"`
	Value float64    `json:"value"`
	Count int        `json:"count"`
}

// RecentVisitor describes one of the most recent events.
type RecentVisitor struct {
	IP        string `json:"ip"`
	Timestamp string `json:"timestamp"`
	Page      string `json:"page"`
	Device    string `json:"device"`
	Browser   string `json:"browser,omitempty"`
	OS        string `json:"os,omitempty"`
	Location  string `json:"location,omitempty"`
}

// AnalyticsStats is the dashboard aggregate. Every number is derived from
// raw events at computation time.
type AnalyticsStats struct {
	TimeRange         TimeRange        `json:"time_range"`
	GeneratedAt       time.Time        `json:"generated_at"`
	TotalVisits       int              `json:"total_visits"`
	TotalClicks       int              `json:"total_clicks"`
	UniqueVisitors    int              `json:"unique_visitors"`
	AvgSessionTime    string           `json:"avg_session_time"`
	AvgSessionSeconds float64          `json:"avg_session_seconds"`
	VisitData         []VisitDataPoint `json:"visit_data"`
	PageViews         []PageView       `json:"page_views"`
	DeviceStats       []DeviceStat     `json:"device_stats"`
	RecentVisitors    []RecentVisitor  `json:"recent_visitors,omitempty"`
}
