// Package process keeps an in-memory table of operating-system processes in
// sync with a raw data Source.
//
// Each refresh enumerates identifiers (RefreshAll) or takes them from the
// caller (RefreshSome), reads every identifier, and reconciles the reading
// with the stored record:
//
//   - unknown identifier: a new record is built and inserted;
//   - same identity marker (kernel start time): the record is updated in
//     place, reusing its cached handle;
//   - different identity marker: the PID was reused, the old record is
//     closed and replaced by a brand-new one, so no counter crosses the
//     boundary;
//   - read failure: the stored record is kept unchanged if the process is
//     still alive, otherwise it becomes a removal candidate.
//
// Only RefreshAll removes records, and only those left untouched by the
// pass. CPU usage is 0 on the first observation of a process and computed
// from tick deltas afterwards (see package usage).
//
// Records may cache an open handle on their raw stat data. Handles are
// budgeted by a governor.Governor; when the budget is exhausted the source
// falls back to open-read-close for that process.
package process
