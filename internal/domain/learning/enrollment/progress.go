package enrollment

import "github.com/google/uuid"

// Progress is the aggregate completion state of one user in one course.
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
	Percent   int `json:"percent"`
}

// IsComplete is false for courses without lessons.
func (p Progress) IsComplete() bool {
	return p.Total > 0 && p.Percent == 100
}

// ComputeProgress counts the course lessons that have a completed progress
// record. Lessons without a record count as incomplete, records for lessons
// outside the course are ignored and duplicate lesson ids are counted once.
// Percent is floor(completed/total*100), and 0 when the course has no lessons.
func ComputeProgress(courseLessonIDs []uuid.UUID, records map[uuid.UUID]*LessonProgress) Progress {
	seen := make(map[uuid.UUID]struct{}, len(courseLessonIDs))
	out := Progress{}
	for _, id := range courseLessonIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out.Total++
		if rec, ok := records[id]; ok && rec != nil && rec.IsCompleted {
			out.Completed++
		}
	}
	if out.Total == 0 {
		return out
	}
	out.Percent = out.Completed * 100 / out.Total
	return out
}

// IndexByLesson keys progress rows by lesson id; later rows win.
func IndexByLesson(rows []*LessonProgress) map[uuid.UUID]*LessonProgress {
	out := make(map[uuid.UUID]*LessonProgress, len(rows))
	for _, r := range rows {
		if r == nil {
			continue
		}
		out[r.LessonID] = r
	}
	return out
}
