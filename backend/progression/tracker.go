package progression

import (
	"context"
	"errors"
	"fmt"

	"lms/backend/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CompletionThreshold is the watched percentage at which a video counts as complete.
const CompletionThreshold = 98

var (
	ErrLocked        = errors.New("lesson is locked")
	ErrUnknownLesson = errors.New("lesson is not part of this course")
	ErrNotPlayable   = errors.New("only video lessons can be completed")
)

// Store persists completion so it survives reloads.
type Store interface {
	MarkCompleted(ctx context.Context, userID, lessonID uuid.UUID) error
	RecordPercentage(ctx context.Context, userID, lessonID uuid.UUID, pct int) error
}

// Resolver turns a lesson content reference into a URL the client can open.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

type position struct {
	module int
	lesson int
}

// Tracker is one learner's view of one course. It is not safe for concurrent use.
type Tracker struct {
	userID   uuid.UUID
	course   *models.Course
	modules  []models.Module
	index    map[uuid.UUID]position
	done     CompletionSet
	unlocked map[uuid.UUID]bool
	selected *models.Lesson

	store   Store
	content Resolver
	log     *zap.Logger
}

// NewTracker builds a tracker over course. store and content may be nil.
func NewTracker(userID uuid.UUID, course *models.Course, done CompletionSet, store Store, content Resolver, log *zap.Logger) *Tracker {
	if done == nil {
		done = NewCompletionSet()
	}
	t := &Tracker{
		userID:  userID,
		course:  course,
		modules: SortModules(course.Modules),
		index:   make(map[uuid.UUID]position),
		done:    done,
		store:   store,
		content: content,
		log:     log.With(zap.String("course_id", course.ID.String()), zap.String("user_id", userID.String())),
	}
	for mi, m := range t.modules {
		for li, l := range m.Lessons {
			t.index[l.ID] = position{module: mi, lesson: li}
		}
	}
	t.recompute()
	return t
}

func (t *Tracker) recompute() {
	t.unlocked = make(map[uuid.UUID]bool, len(t.index))
	for _, m := range t.modules {
		for id, open := range ComputeUnlocked(m.Lessons, t.done) {
			t.unlocked[id] = open
		}
	}
}

func (t *Tracker) lesson(id uuid.UUID) (*models.Lesson, position, bool) {
	pos, ok := t.index[id]
	if !ok {
		return nil, pos, false
	}
	return &t.modules[pos.module].Lessons[pos.lesson], pos, true
}

func (t *Tracker) Course() *models.Course {
	return t.course
}

func (t *Tracker) IsUnlocked(id uuid.UUID) bool {
	return t.unlocked[id]
}

func (t *Tracker) IsCompleted(id uuid.UUID) bool {
	return t.done.Has(id)
}

// Selected returns the lesson in the player, or nil.
func (t *Tracker) Selected() *models.Lesson {
	return t.selected
}

// InitialSelection puts the first lesson of the first module in the player
// when it is a playable lesson.
func (t *Tracker) InitialSelection() *models.Lesson {
	if len(t.modules) == 0 || len(t.modules[0].Lessons) == 0 {
		return nil
	}
	first := &t.modules[0].Lessons[0]
	if first.Type.Playable() && t.unlocked[first.ID] {
		t.selected = first
	}
	return t.selected
}

// Selection is the result of choosing a lesson. OpenURL is set for resources,
// which are opened instead of being played.
type Selection struct {
	Lesson  models.Lesson `json:"lesson"`
	OpenURL string        `json:"open_url,omitempty"`
}

func (t *Tracker) Select(ctx context.Context, id uuid.UUID) (Selection, error) {
	l, _, ok := t.lesson(id)
	if !ok {
		return Selection{}, ErrUnknownLesson
	}
	if !t.unlocked[id] {
		return Selection{}, ErrLocked
	}
	if l.Type.Playable() {
		t.selected = l
		return Selection{Lesson: *l}, nil
	}

	url := l.ContentURL
	if t.content != nil && url != "" {
		resolved, err := t.content.Resolve(ctx, url)
		if err != nil {
			return Selection{}, fmt.Errorf("resolve content: %w", err)
		}
		url = resolved
	}
	return Selection{Lesson: *l, OpenURL: url}, nil
}

// MarkComplete records a playable lesson as finished. When the next lesson of
// the same module is playable and now open, it becomes the selected lesson and
// is returned.
func (t *Tracker) MarkComplete(ctx context.Context, id uuid.UUID) (*models.Lesson, error) {
	l, pos, ok := t.lesson(id)
	if !ok {
		return nil, ErrUnknownLesson
	}
	if !l.Type.Playable() {
		return nil, ErrNotPlayable
	}
	if !t.unlocked[id] {
		return nil, ErrLocked
	}

	if !t.done.Has(id) {
		if t.store != nil {
			if err := t.store.MarkCompleted(ctx, t.userID, id); err != nil {
				return nil, fmt.Errorf("persist completion: %w", err)
			}
		}
		t.done.Add(id)
		t.recompute()
		t.log.Debug("lesson completed", zap.String("lesson_id", id.String()))
	}

	lessons := t.modules[pos.module].Lessons
	if pos.lesson+1 >= len(lessons) {
		return nil, nil
	}
	next := &lessons[pos.lesson+1]
	if !next.Type.Playable() || !t.unlocked[next.ID] {
		return nil, nil
	}
	t.selected = next
	return next, nil
}

type PlaybackResult struct {
	Percent   int            `json:"percent"`
	Completed bool           `json:"completed"`
	Advanced  *models.Lesson `json:"advanced,omitempty"`
}

// ReportPlayback records watch progress and completes the lesson at CompletionThreshold.
func (t *Tracker) ReportPlayback(ctx context.Context, id uuid.UUID, percent int) (PlaybackResult, error) {
	l, _, ok := t.lesson(id)
	if !ok {
		return PlaybackResult{}, ErrUnknownLesson
	}
	if !l.Type.Playable() {
		return PlaybackResult{}, ErrNotPlayable
	}
	if !t.unlocked[id] {
		return PlaybackResult{}, ErrLocked
	}
	percent = min(max(percent, 0), 100)

	if t.store != nil {
		if err := t.store.RecordPercentage(ctx, t.userID, id, percent); err != nil {
			return PlaybackResult{}, fmt.Errorf("persist playback: %w", err)
		}
	}
	res := PlaybackResult{Percent: percent}
	if percent < CompletionThreshold {
		return res, nil
	}
	next, err := t.MarkComplete(ctx, id)
	if err != nil {
		return res, err
	}
	res.Completed = true
	res.Advanced = next
	return res, nil
}

type LessonState struct {
	models.Lesson
	Unlocked  bool `json:"unlocked"`
	Completed bool `json:"completed"`
	Selected  bool `json:"selected"`
}

type ModuleOutline struct {
	ID      uuid.UUID     `json:"id"`
	Title   string        `json:"title"`
	Order   int           `json:"order"`
	Lessons []LessonState `json:"lessons"`
}

// Outline lists modules and lessons in order with their current state.
func (t *Tracker) Outline() []ModuleOutline {
	out := make([]ModuleOutline, 0, len(t.modules))
	for _, m := range t.modules {
		mo := ModuleOutline{ID: m.ID, Title: m.Title, Order: m.Order, Lessons: make([]LessonState, 0, len(m.Lessons))}
		for _, l := range m.Lessons {
			mo.Lessons = append(mo.Lessons, LessonState{
				Lesson:    l,
				Unlocked:  t.unlocked[l.ID],
				Completed: t.done.Has(l.ID),
				Selected:  t.selected != nil && t.selected.ID == l.ID,
			})
		}
		out = append(out, mo)
	}
	return out
}
