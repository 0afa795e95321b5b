// Package progression implements sequential lesson unlocking within a course.
//
// Within a module, lessons are taken in order of their explicit order field.
// The first playable (video or youtube) lesson is always open; every later
// playable lesson opens once the playable lesson before it is completed. A
// resource opens once every playable lesson before it is completed.
package progression

import (
	"sort"

	"lms/backend/models"

	"github.com/google/uuid"
)

// CompletionSet is the set of lesson ids a learner has finished.
type CompletionSet map[uuid.UUID]struct{}

func NewCompletionSet(ids ...uuid.UUID) CompletionSet {
	c := make(CompletionSet, len(ids))
	for _, id := range ids {
		c[id] = struct{}{}
	}
	return c
}

func (c CompletionSet) Has(id uuid.UUID) bool {
	_, ok := c[id]
	return ok
}

// Add reports whether id was newly added.
func (c CompletionSet) Add(id uuid.UUID) bool {
	if c.Has(id) {
		return false
	}
	c[id] = struct{}{}
	return true
}

// SortLessons returns a copy ordered by Order. Equal orders keep their input order.
func SortLessons(lessons []models.Lesson) []models.Lesson {
	out := append([]models.Lesson(nil), lessons...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// SortModules returns a copy ordered by Order, with each module's lessons sorted.
func SortModules(modules []models.Module) []models.Module {
	out := append([]models.Module(nil), modules...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	for i := range out {
		out[i].Lessons = SortLessons(out[i].Lessons)
	}
	return out
}

// ComputeUnlocked returns the lock state of every lesson of one module.
func ComputeUnlocked(lessons []models.Lesson, done CompletionSet) map[uuid.UUID]bool {
	unlocked := make(map[uuid.UUID]bool, len(lessons))
	var (
		seenPlayable    bool
		prevCompleted   bool
		allPrevComplete = true
	)
	for _, l := range SortLessons(lessons) {
		if !l.Type.Playable() {
			unlocked[l.ID] = allPrevComplete
			continue
		}
		unlocked[l.ID] = !seenPlayable || prevCompleted
		seenPlayable = true
		prevCompleted = done.Has(l.ID)
		allPrevComplete = allPrevComplete && prevCompleted
	}
	return unlocked
}

// ComputeCourse applies ComputeUnlocked to every module of a course.
func ComputeCourse(course *models.Course, done CompletionSet) map[uuid.UUID]bool {
	unlocked := make(map[uuid.UUID]bool)
	for _, m := range course.Modules {
		for id, open := range ComputeUnlocked(m.Lessons, done) {
			unlocked[id] = open
		}
	}
	return unlocked
}
