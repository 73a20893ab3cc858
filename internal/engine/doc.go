// Package engine implements the sync coordinator: the single owner of the
// canonical agenda index, the special-dates list and the current month
// ledger.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// Everything that changes coordinator state runs on the goroutine that
// called Run. Store snapshots, subscription errors, scheduled sweeps and user
// commands are all enqueued onto one FIFO queue and processed in order.
// Store callbacks only enqueue, so they never block the store.
//
// Snapshot Handling:
// Every agenda snapshot is the complete day-document collection. The index
// is rebuilt from scratch (decode, anchor guard, content-key dedup) and
// swapped in atomically. Readers call Index/Agenda/SpecialDates/Ledger from
// any goroutine and always see a complete value.
//
// Optimistic Commands:
// A command validates its input on the caller's goroutine, then on the loop
// mutates local state, swaps it in, reprojects the selected date and hands
// back a persistence task. The task writes the affected document in the
// background. When the write fails the caller receives a WRITE_FAILED error
// and a notification is emitted, but the local change stays in place until
// the next snapshot replaces it.
//
// Write-Back:
// Day documents are replaced wholesale, so the payload for a day is always
// rebuilt from the full index (index.DayPayload) at the moment the command
// is applied.
package engine
