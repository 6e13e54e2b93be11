package vote

import (
	"strings"
	"time"
)

// failedVote blocks resubmission of a failed (command, parameter) pair until expiry.
type failedVote struct {
	command   string
	parameter string
	expiry    time.Duration
}

// lockoutList is the per-issue list of recent failures.
type lockoutList struct {
	records []*failedVote
}

// add inserts or refreshes the record for (command, parameter).
func (l *lockoutList) add(command, parameter string, expiry time.Duration) {
	for _, rec := range l.records {
		if strings.EqualFold(rec.command, command) && rec.parameter == parameter {
			rec.expiry = expiry
			return
		}
	}
	l.records = append(l.records, &failedVote{command: command, parameter: parameter, expiry: expiry})
}

// active returns the still-running record matching command and parameter.
// A record without a parameter matches every parameter.
func (l *lockoutList) active(command, parameter string, now time.Duration) (*failedVote, bool) {
	for _, rec := range l.records {
		if now >= rec.expiry || !strings.EqualFold(rec.command, command) {
			continue
		}
		if rec.parameter == "" || rec.parameter == parameter {
			return rec, true
		}
	}
	return nil, false
}

// prune drops expired records.
func (l *lockoutList) prune(now time.Duration) {
	kept := l.records[:0]
	for _, rec := range l.records {
		if now < rec.expiry {
			kept = append(kept, rec)
		}
	}
	clear(l.records[len(kept):])
	l.records = kept
}
