package domain

import "sort"

// SortQueue orders summaries for the coach queue: pending before completed,
// each group by ascending submission order.
func SortQueue(items []WeeklySummary) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].TaskCompleted != items[j].TaskCompleted {
			return !items[i].TaskCompleted
		}
		return items[i].SubmissionOrder < items[j].SubmissionOrder
	})
}
