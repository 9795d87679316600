package journal

import (
	"sort"

	"mercator-hq/iptvrelay/pkg/session"
)

// FromSummary builds a record from a closed session. status is the status
// sent to the client and err the terminal relay error, if any.
func FromSummary(s session.Summary, method string, status int, err error) *Record {
	r := &Record{
		RequestID:      s.RequestID,
		SessionID:      s.ID,
		Identity:       s.Identity,
		ClientAddress:  s.Client,
		Method:         method,
		Path:           s.Path,
		Video:          s.Video,
		StartTime:      s.StartedAt,
		EndTime:        s.EndedAt,
		Duration:       s.Duration,
		Bytes:          s.Bytes,
		Status:         status,
		UpstreamStatus: s.UpstreamStatus,
		Redirects:      s.Redirects,
		Reconnects:     s.Reconnects,
		Outcome:        string(s.Outcome),
	}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// Matches reports whether r satisfies the filters of q.
func Matches(r *Record, q *Query) bool {
	if q == nil {
		return true
	}
	if q.Identity != "" && r.Identity != q.Identity {
		return false
	}
	if q.Outcome != "" && r.Outcome != q.Outcome {
		return false
	}
	if q.Since != nil && r.StartTime.Before(*q.Since) {
		return false
	}
	if q.Until != nil && r.StartTime.After(*q.Until) {
		return false
	}
	return true
}

// SortAndPage orders records by start time and applies the query's offset
// and limit. Backends without server-side ordering use it.
func SortAndPage(records []*Record, q *Query) []*Record {
	asc := q != nil && q.SortOrder == "asc"
	sort.SliceStable(records, func(i, j int) bool {
		if asc {
			return records[i].StartTime.Before(records[j].StartTime)
		}
		return records[i].StartTime.After(records[j].StartTime)
	})

	offset, limit := 0, DefaultQueryLimit
	if q != nil {
		offset = q.Offset
		if q.Limit > 0 {
			limit = q.Limit
		}
	}
	if offset >= len(records) {
		return []*Record{}
	}
	records = records[offset:]
	if len(records) > limit {
		records = records[:limit]
	}
	return records
}
