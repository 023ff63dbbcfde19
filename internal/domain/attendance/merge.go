package attendance

import "slices"

// Merge combines a local and a cloud ledger.
// Dates only one side knows are copied as they are. Dates both sides know are
// merged per student as the sorted union of missed hours, and the day stays a
// no-class day only when both sides agree it is one.
// PRE: both ledgers satisfy the DailyAttendance invariants
// POST: returns a new ledger; neither input is modified
// INVARIANT: every (date, student, hour) absence present in either input is
// present in the result
func Merge(local, cloud Ledger) Ledger {
	merged := local.Clone()
	for date, cloudDay := range cloud {
		localDay, ok := merged[date]
		if !ok {
			merged[date] = cloudDay.Clone()
			continue
		}
		merged[date] = mergeDay(localDay, cloudDay)
	}
	return merged
}

// mergeDay unions two records of the same date.
func mergeDay(local, cloud DailyAttendance) DailyAttendance {
	out := local.Clone()
	out.IsNoClass = local.IsNoClass && cloud.IsNoClass
	for id, hrs := range cloud.Hours {
		if u := unionHours(out.Hours[id], hrs); len(u) > 0 {
			out.Hours[id] = u
		}
	}
	return out
}

// unionHours returns the ascending, duplicate-free union of a and b.
func unionHours(a, b []int) []int {
	u := make([]int, 0, len(a)+len(b))
	u = append(u, a...)
	u = append(u, b...)
	slices.Sort(u)
	return slices.Compact(u)
}
