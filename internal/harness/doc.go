// Package harness runs scripted agenda scenarios against a real coordinator.
//
// A scenario seeds an in-memory document store, replays a list of steps
// (commands and clock moves) through engine.Coordinator and checks the
// resulting state.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	now: "2024-05-10T12:00:00Z"
//	timezone: UTC
//	seed:
//	  - collection: meta
//	    key: specialDates
//	    data: '{"dates":[{"id":"s1","label":"Trip","date":"2024-05-09"}]}'
//	steps:
//	  - op: add_item
//	    args: { label: Gym, at: "07:00", repeat: weekly }
//	  - op: toggle_item
//	    args: { id: id-1 }
//	  - op: add_item
//	    args: { label: "" }
//	    expect: { error: VALIDATION }
//	assertions:
//	  - type: agenda
//	    date: "2024-05-10"
//	    labels: [Gym]
//	  - type: document
//	    collection: meta
//	    key: specialDates
//	    count: 0
//
// Collections in seeds and assertions are relative to the actor
// (agenda, finances, meta). IDs are generated as id-1, id-2, ... in step
// order, so later steps can refer to earlier results.
//
// # Assertion Types
//
//   - agenda: labels projected on a date, optionally one bucket, and which are done
//   - document: a stored document exists (or not) and how many entries it holds
//   - special_dates: the in-memory special-date labels, in order
//   - totals: income, expenses and balance of the current month
//   - notification: how many notifications with a code were raised
//   - index: number of items in the canonical index
//
// # Deterministic Testing
//
// Every run uses a fixed clock (moved only by advance steps), sequential IDs
// and a fresh in-memory store, so the step trace is identical across runs
// and can be compared against golden files.
package harness
