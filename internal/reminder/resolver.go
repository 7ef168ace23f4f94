package reminder

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/seahollis/bywater/internal/model"
)

// EventSource is the slice of the event store the resolver needs.
type EventSource interface {
	FindStartingBetween(familyIDs []int64, from, to time.Time) ([]model.CalendarEvent, error)
}

// MemberSource is the member directory used to resolve assignee display names
// to user ids.
type MemberSource interface {
	ListByFamilies(familyIDs []int64) ([]model.FamilyMember, error)
}

// Candidate is an (event, user) pair eligible for a reminder on this tick,
// before dedup filtering.
type Candidate struct {
	Event          model.CalendarEvent
	UserID         int64
	AdvanceMinutes int
	// MinutesUntil is the actual rounded minutes from now until the event
	// start, used for message formatting. It can differ from AdvanceMinutes
	// by up to the window slack.
	MinutesUntil int
}

// Resolver produces the candidate pairs for one lead-time group.
type Resolver struct {
	events  EventSource
	members MemberSource
	slack   time.Duration
}

func NewResolver(events EventSource, members MemberSource) *Resolver {
	return &Resolver{events: events, members: members, slack: DefaultSlack}
}

// WithSlack overrides the window slack. Tests use this to pin the window
// edges; production keeps DefaultSlack.
func (r *Resolver) WithSlack(slack time.Duration) *Resolver {
	r.slack = slack
	return r
}

// ResolveGroup computes the reminder window for one distinct advance-minutes
// value, fetches matching events across the group's families, and fans each
// event out to the group users entitled to it.
//
// Events with assignees are scoped by matching each name against member
// display names (case- and whitespace-insensitive exact match); names that
// match nobody are dropped without error, since display-name drift is
// expected. Events with no assignees go to every group user in the family.
func (r *Resolver) ResolveGroup(now time.Time, advanceMinutes int, prefs []model.EventReminderPreference) ([]Candidate, error) {
	if len(prefs) == 0 {
		return nil, nil
	}

	window := ReminderWindow(now, time.Duration(advanceMinutes)*time.Minute, r.slack)
	familyIDs := distinctFamilyIDs(prefs)

	events, err := r.events.FindStartingBetween(familyIDs, window.From, window.To)
	if err != nil {
		return nil, fmt.Errorf("find events in window: %w", err)
	}
	if len(events) == 0 {
		return nil, nil
	}

	members, err := r.members.ListByFamilies(familyIDs)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	directory := buildNameDirectory(members)

	var candidates []Candidate
	for _, event := range events {
		var groupUsers []int64
		for _, p := range prefs {
			if p.FamilyID == event.FamilyID {
				groupUsers = append(groupUsers, p.UserID)
			}
		}
		if len(groupUsers) == 0 {
			continue
		}

		eligible := groupUsers
		if len(event.Assignees) > 0 {
			assigned := resolveAssignees(directory, event.FamilyID, event.Assignees)
			eligible = intersect(groupUsers, assigned)
		}

		minutes := minutesUntil(now, event.StartTime)
		for _, userID := range eligible {
			candidates = append(candidates, Candidate{
				Event:          event,
				UserID:         userID,
				AdvanceMinutes: advanceMinutes,
				MinutesUntil:   minutes,
			})
		}
	}
	return candidates, nil
}

// GroupByAdvance buckets preferences by their distinct advance-minutes value,
// so users sharing a lead time share one window computation and one store
// query.
func GroupByAdvance(prefs []model.EventReminderPreference) map[int][]model.EventReminderPreference {
	groups := make(map[int][]model.EventReminderPreference)
	for _, p := range prefs {
		minutes := p.AdvanceMinutes
		if minutes < 0 {
			minutes = model.DefaultReminderAdvanceMinutes
		}
		groups[minutes] = append(groups[minutes], p)
	}
	return groups
}

func minutesUntil(now, start time.Time) int {
	return int(math.Round(start.Sub(now).Minutes()))
}

func distinctFamilyIDs(prefs []model.EventReminderPreference) []int64 {
	seen := make(map[int64]struct{}, len(prefs))
	var ids []int64
	for _, p := range prefs {
		if _, ok := seen[p.FamilyID]; !ok {
			seen[p.FamilyID] = struct{}{}
			ids = append(ids, p.FamilyID)
		}
	}
	return ids
}

type nameKey struct {
	familyID int64
	name     string
}

// buildNameDirectory indexes members by normalized display name within each
// family. On duplicate display names the first member wins, matching the
// first-match lookup the name-based scoping has always had.
func buildNameDirectory(members []model.FamilyMember) map[nameKey]int64 {
	dir := make(map[nameKey]int64, len(members))
	for _, m := range members {
		key := nameKey{familyID: m.FamilyID, name: normalizeName(m.DisplayName)}
		if _, ok := dir[key]; !ok {
			dir[key] = m.UserID
		}
	}
	return dir
}

func resolveAssignees(dir map[nameKey]int64, familyID int64, assignees []string) []int64 {
	var userIDs []int64
	for _, name := range assignees {
		if userID, ok := dir[nameKey{familyID: familyID, name: normalizeName(name)}]; ok {
			userIDs = append(userIDs, userID)
		}
	}
	return userIDs
}

// normalizeName collapses internal whitespace and folds case, so "Sam  Cotton"
// and "sam cotton" refer to the same member.
func normalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

func intersect(a, b []int64) []int64 {
	inB := make(map[int64]struct{}, len(b))
	for _, v := range b {
		inB[v] = struct{}{}
	}
	var out []int64
	for _, v := range a {
		if _, ok := inB[v]; ok {
			out = append(out, v)
		}
	}
	return out
}
