// Package link keeps the board joined to the best configured WLAN.
//
// Connect scans, picks the strongest configured network in range (ties go
// to the one listed first), applies hostname and static addressing, and
// starts joining. From then on a one-shot poll timer drives everything:
//
//   - a changed station status is published on the link's topic
//   - connecting: poll again after the short interval
//   - dropped or failed: Connect again
//   - connected: advertise the hostname and poll again after the long interval
//
// When no candidate is in range, or the radio refuses, the failure is
// logged as a LinkFailure and the next attempt is scheduled by the
// RetryPolicy. Link failures are never escalated.
package link
