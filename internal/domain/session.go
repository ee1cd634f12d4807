// Package domain provides domain models used across the application.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// DateFormat is the calendar-date layout used in checkpoints, file names and the CLI.
const DateFormat = "2006-01-02"

// APITimeFormat is the timestamp layout the upstream API expects in request payloads.
const APITimeFormat = "2006-01-02T15:04:05.000Z"

// Session represents one recorded athlete-monitoring activity instance.
type Session struct {
	// SessionID is the upstream identifier for the session. May be empty for
	// older records; identity then falls back to timestamp plus content hash.
	SessionID string `json:"session_id"`
	// AthleteID is the upstream identifier for the monitored athlete.
	AthleteID string `json:"athlete_id"`
	// Timestamp is the session start time, the ordering key within a day.
	Timestamp time.Time `json:"timestamp"`
	// Type is the upstream session type (training, match, ...).
	Type string `json:"session_type,omitempty"`
	// Metrics holds the variable per-session metric fields as reported upstream.
	Metrics map[string]string `json:"metrics,omitempty"`
}

// Key returns the deduplication identity of the session: athlete + session ID,
// or athlete + timestamp + content hash when the session ID is absent.
func (s *Session) Key() string {
	if s.SessionID != "" {
		return s.AthleteID + "|" + s.SessionID
	}
	return s.AthleteID + "|" + s.Timestamp.UTC().Format(time.RFC3339) + "|" + s.ContentHash()
}

// ContentHash returns a stable hash of the session's metric fields.
func (s *Session) ContentHash() string {
	return hashMetrics(s.Metrics)
}

// hashMetrics hashes a metric map in sorted key order so equal content
// always produces equal hashes regardless of map iteration order.
func hashMetrics(metrics map[string]string) string {
	keys := make([]string, 0, len(metrics))
	for k := range metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(metrics[k])
		b.WriteByte('\n')
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// DedupSessions removes sessions with duplicate keys, keeping the first
// occurrence. Order is preserved.
func DedupSessions(sessions []Session) []Session {
	if len(sessions) < 2 {
		return sessions
	}

	seen := make(map[string]struct{}, len(sessions))
	out := make([]Session, 0, len(sessions))
	for i := range sessions {
		key := sessions[i].Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, sessions[i])
	}
	return out
}

// PlayerDetail represents profile fields for one athlete as returned by the
// player-detail endpoint.
type PlayerDetail struct {
	AthleteID   string `json:"athlete_id"`
	DisplayName string `json:"display_name,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	SquadName   string `json:"squad_name,omitempty"`
	Gender      string `json:"gender,omitempty"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
}

// MatchesName reports whether any of the athlete's name fields contains the
// given substring, case-insensitively.
func (p *PlayerDetail) MatchesName(name string) bool {
	needle := strings.ToLower(name)
	for _, field := range []string{p.DisplayName, p.FirstName, p.LastName} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}
