package pipeline

import (
	"fmt"
	"time"

	gmail "google.golang.org/api/gmail/v1"
)

// SelectMessage picks the single message of a thread to process. Without a
// cutoff the newest message wins. With a cutoff, messages older than the
// cutoff are ignored and the newest of the rest wins; a thread whose
// messages all predate the cutoff yields nil, which excludes the thread
// without being an error.
func SelectMessage(thread *gmail.Thread, cutoff *time.Time) (*gmail.Message, error) {
	if thread == nil || len(thread.Messages) == 0 {
		return nil, fmt.Errorf("thread has no messages")
	}

	var selected *gmail.Message
	for _, m := range thread.Messages {
		if m == nil {
			continue
		}
		if cutoff != nil && MessageTime(m).Before(*cutoff) {
			continue
		}
		if selected == nil || m.InternalDate > selected.InternalDate {
			selected = m
		}
	}

	return selected, nil
}

// MessageTime converts a message's internal date (epoch milliseconds) to
// a time.Time.
func MessageTime(m *gmail.Message) time.Time {
	return time.UnixMilli(m.InternalDate)
}

// TimeFilterQuery appends a Gmail date filter to a base query. Gmail's
// after: operator has day granularity; sub-day precision is enforced by
// SelectMessage against the exact cutoff.
func TimeFilterQuery(base string, cutoff *time.Time) string {
	if cutoff == nil {
		return base
	}
	filter := fmt.Sprintf("after:%d/%d/%d", cutoff.Year(), int(cutoff.Month()), cutoff.Day())
	if base == "" {
		return filter
	}
	return base + " " + filter
}

// LookbackQuery appends a newer_than: filter for the given day count.
func LookbackQuery(base string, days int) string {
	if days <= 0 {
		return base
	}
	filter := fmt.Sprintf("newer_than:%dd", days)
	if base == "" {
		return filter
	}
	return base + " " + filter
}
