// Package tracking implements the per-order delivery state machine.
//
// A Session is an immutable value. Every operation returns a new Session and leaves the
// receiver untouched, so callers follow load, transform, save and the per-order
// serialization lives at the call site.
//
// States:
//
//	assigned → pickup_started → picked_up → in_transit → arrived → delivered
//	    └──────────────┴─────────────┴───────────┴──────────┴──→ failed | returned | cancelled
//
// delivered, failed, returned and cancelled are terminal: transitions, route points and
// issues are rejected with ErrTerminalState. The only change accepted afterwards is
// customer feedback on a delivered session, once.
package tracking
