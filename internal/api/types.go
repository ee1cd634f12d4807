package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/jonesrussell/gpspull/internal/domain"
)

// Upstream endpoint paths.
const (
	sessionsPath      = "/thirdPartyData/getFullSessionsByDateRange"
	playerDetailsPath = "/thirdPartyData/getPlayerDetails"
)

// sessionsRequest is the payload for the session-listing endpoint.
type sessionsRequest struct {
	ThirdPartyAPIID  string `json:"thirdPartyApiId,omitempty"`
	SessionStartDate string `json:"sessionStartDate"`
	SessionEndDate   string `json:"sessionEndDate"`
}

// playerDetailsRequest is the payload for the player-detail endpoint.
type playerDetailsRequest struct {
	ThirdPartyAPIID string `json:"thirdPartyApiId,omitempty"`
	SessionDate     string `json:"sessionDate"`
}

// sessionRecord is one session as the upstream API returns it.
type sessionRecord struct {
	SessionID      string         `json:"sessionId"`
	CustomPlayerID string         `json:"customPlayerId"`
	SessionDate    string         `json:"sessionDate"`
	SessionType    string         `json:"sessionType"`
	KPI            map[string]any `json:"kpi"`
	CustomMetrics  map[string]any `json:"customMetrics"`
}

// playerRecord is one athlete profile as the upstream API returns it.
type playerRecord struct {
	CustomPlayerID  string `json:"customPlayerId"`
	DisplayName     string `json:"displayName"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	ActiveSquadName string `json:"activeSquadName"`
	Gender          string `json:"gender"`
	DateOfBirth     string `json:"dateOfBirth"`
}

// toDomain converts an upstream session record into a domain session. KPI
// fields become "kpi_" metrics and custom metrics become "custom_" metrics
// with names sanitized for tabular output.
func (r *sessionRecord) toDomain() domain.Session {
	metrics := make(map[string]string, len(r.KPI)+len(r.CustomMetrics))
	for name, value := range r.KPI {
		if v := metricValue(value); v != "" {
			metrics["kpi_"+name] = v
		}
	}
	for name, value := range r.CustomMetrics {
		if v := metricValue(value); v != "" {
			metrics["custom_"+safeMetricName(name)] = v
		}
	}

	ts, err := time.Parse(domain.APITimeFormat, r.SessionDate)
	if err != nil {
		// Some tenants omit fractional seconds.
		ts, _ = time.Parse("2006-01-02T15:04:05Z", r.SessionDate)
	}

	return domain.Session{
		SessionID: r.SessionID,
		AthleteID: r.CustomPlayerID,
		Timestamp: ts.UTC(),
		Type:      r.SessionType,
		Metrics:   metrics,
	}
}

// toDomain converts an upstream player record into a domain player detail.
func (r *playerRecord) toDomain() domain.PlayerDetail {
	return domain.PlayerDetail{
		AthleteID:   r.CustomPlayerID,
		DisplayName: r.DisplayName,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		SquadName:   r.ActiveSquadName,
		Gender:      r.Gender,
		DateOfBirth: r.DateOfBirth,
	}
}

// metricValue renders an upstream metric value as a string without losing
// integer-ness of whole numbers.
func metricValue(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case float64:
		if value == float64(int64(value)) {
			return fmt.Sprintf("%d", int64(value))
		}
		return fmt.Sprintf("%g", value)
	case bool:
		return fmt.Sprintf("%t", value)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", value)
	}
}

// safeMetricName lowercases a custom metric name and strips characters that
// make poor tabular column names.
func safeMetricName(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "(", "")
	name = strings.ReplaceAll(name, ")", "")
	return name
}
