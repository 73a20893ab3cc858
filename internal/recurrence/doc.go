// Package recurrence decides whether an agenda entry occurs on a calendar date.
//
// Every entry carries a single anchor date and a Kind. Occurrence is a pure
// function of (Rule, date): nothing is precomputed or stored, and recurring
// rules are unbounded into the future.
//
// Two evaluation paths exist and must agree:
//   - OccursOn answers the question for a single date. Projection and the
//     month calendar use only this path.
//   - Between/Upcoming expand a rule over a range through rrule-go. Export and
//     the "upcoming" listing use this path.
//
// All comparisons are on calendar dates (civil.Date); time-of-day never
// participates.
package recurrence
