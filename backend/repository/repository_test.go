package repository

import (
	"context"
	"testing"

	"lms/backend/models"
	"lms/backend/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryRoles(t *testing.T) {
	db := testutil.DB(t)
	dir := NewDirectory(db, testutil.Logger(t))
	ctx := context.Background()

	u := testutil.SeedUser(t, db, "teacher@example.com", models.RoleInstructor)

	roles, err := dir.Roles(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.NewRoleSet(models.RoleInstructor), roles)

	require.NoError(t, dir.GrantRole(ctx, u.ID, models.RoleAdmin))
	require.NoError(t, dir.GrantRole(ctx, u.ID, models.RoleAdmin))
	roles, err = dir.Roles(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.Role{models.RoleAdmin, models.RoleInstructor}, roles.Slice())

	err = dir.GrantRole(ctx, uuid.New(), models.RoleStudent)
	assert.ErrorIs(t, err, ErrNotFound)

	roles, err = dir.Roles(ctx, uuid.New())
	require.NoError(t, err)
	assert.True(t, roles.Empty())
}

func TestDirectoryProfile(t *testing.T) {
	db := testutil.DB(t)
	dir := NewDirectory(db, testutil.Logger(t))
	ctx := context.Background()

	u := testutil.SeedUser(t, db, "student@example.com", models.RoleStudent)
	name := "Ada Lovelace"
	p, err := dir.UpdateProfile(ctx, u.ID, ProfileUpdate{FullName: &name})
	require.NoError(t, err)
	assert.Equal(t, name, p.FullName)

	_, err = dir.Profile(ctx, uuid.New())
	var fetchErr *DataFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCoursesTreeAndEnrollment(t *testing.T) {
	db := testutil.DB(t)
	repo := NewCourses(db, testutil.Logger(t))
	ctx := context.Background()

	student := testutil.SeedUser(t, db, "student@example.com", models.RoleStudent)
	course := testutil.SeedCourse(t, db, nil,
		[]testutil.LessonSpec{{Title: "A", Type: models.LessonVideo, Order: 1}, {Title: "B", Type: models.LessonResource, Order: 2}},
		[]testutil.LessonSpec{{Title: "C", Type: models.LessonYouTube, Order: 1}},
	)

	tree, err := repo.Tree(ctx, course.ID)
	require.NoError(t, err)
	require.Len(t, tree.Modules, 2)
	lessons := 0
	for _, m := range tree.Modules {
		lessons += len(m.Lessons)
	}
	assert.Equal(t, 3, lessons)

	_, err = repo.Tree(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Enroll(ctx, student.ID, course.ID))
	require.NoError(t, repo.Enroll(ctx, student.ID, course.ID))
	enrolled, err := repo.ListEnrolled(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, enrolled, 1)
	assert.Equal(t, course.ID, enrolled[0].ID)

	ok, err := repo.IsEnrolled(ctx, student.ID, course.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestProgressCompletionAndSummary(t *testing.T) {
	db := testutil.DB(t)
	progress := NewProgress(db, testutil.Logger(t))
	courses := NewCourses(db, testutil.Logger(t))
	ctx := context.Background()

	student := testutil.SeedUser(t, db, "student@example.com", models.RoleStudent)
	course := testutil.SeedCourse(t, db, nil,
		[]testutil.LessonSpec{{Title: "A", Type: models.LessonVideo, Order: 1}, {Title: "B", Type: models.LessonVideo, Order: 2}, {Title: "notes", Type: models.LessonResource, Order: 3}},
	)
	require.NoError(t, courses.Enroll(ctx, student.ID, course.ID))
	a := testutil.LessonID(t, course, "A")
	b := testutil.LessonID(t, course, "B")

	require.NoError(t, progress.RecordPercentage(ctx, student.ID, b, 40))
	require.NoError(t, progress.RecordPercentage(ctx, student.ID, b, 10))
	require.NoError(t, progress.MarkCompleted(ctx, student.ID, a))
	require.NoError(t, progress.MarkCompleted(ctx, student.ID, a))

	var row models.LessonProgress
	require.NoError(t, db.First(&row, "user_id = ? AND lesson_id = ?", student.ID, b).Error)
	assert.Equal(t, 40, row.ProgressPercentage)
	assert.Nil(t, row.CompletedAt)

	done, err := progress.Completed(ctx, student.ID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a}, done)

	summary, err := progress.Summary(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, summary, 1)
	assert.EqualValues(t, 2, summary[0].TotalLessons)
	assert.EqualValues(t, 1, summary[0].LessonsCompleted)
	assert.InDelta(t, 50.0, summary[0].CompletionRate, 0.001)
}

func TestProgressSummaryCountsUntypedLessons(t *testing.T) {
	db := testutil.DB(t)
	progress := NewProgress(db, testutil.Logger(t))
	courses := NewCourses(db, testutil.Logger(t))
	ctx := context.Background()

	student := testutil.SeedUser(t, db, "student@example.com", models.RoleStudent)
	course := testutil.SeedCourse(t, db, nil,
		[]testutil.LessonSpec{{Title: "untyped", Type: models.LessonVideo, Order: 1}, {Title: "quiz", Type: models.LessonVideo, Order: 2}, {Title: "notes", Type: models.LessonResource, Order: 3}},
	)
	require.NoError(t, courses.Enroll(ctx, student.ID, course.ID))
	untyped := testutil.LessonID(t, course, "untyped")
	quiz := testutil.LessonID(t, course, "quiz")
	require.NoError(t, db.Exec("UPDATE lessons SET lesson_type = NULL WHERE id = ?", untyped).Error)
	require.NoError(t, db.Exec("UPDATE lessons SET lesson_type = 'quiz' WHERE id = ?", quiz).Error)

	require.NoError(t, progress.MarkCompleted(ctx, student.ID, untyped))

	summary, err := progress.Summary(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, summary, 1)
	assert.EqualValues(t, 2, summary[0].TotalLessons)
	assert.EqualValues(t, 1, summary[0].LessonsCompleted)
	assert.InDelta(t, 50.0, summary[0].CompletionRate, 0.001)
}

func TestActivityRecent(t *testing.T) {
	db := testutil.DB(t)
	activity := NewActivity(db, testutil.Logger(t))
	ctx := context.Background()

	actor := uuid.New()
	require.NoError(t, activity.Record(ctx, actor, "grant_role", "user", "u1", map[string]any{"role": "admin"}))

	entries, err := activity.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "grant_role", entries[0].Action)
	assert.JSONEq(t, `{"role":"admin"}`, string(entries[0].Details))
}

func TestCoursesSearchAndStats(t *testing.T) {
	db := testutil.DB(t)
	repo := NewCourses(db, testutil.Logger(t))
	progress := NewProgress(db, testutil.Logger(t))
	ctx := context.Background()

	quiet := testutil.SeedCourse(t, db, nil, []testutil.LessonSpec{{Title: "Intro", Type: models.LessonVideo, Order: 1}})
	popular := testutil.SeedCourse(t, db, nil, []testutil.LessonSpec{
		{Title: "Ledgers", Type: models.LessonVideo, Order: 1},
		{Title: "Workbook", Type: models.LessonResource, Order: 2},
	})
	require.NoError(t, db.Model(popular).Update("title", "Business Economics").Error)
	draft := &models.Course{Title: "Business Law", Status: models.CourseDraft}
	require.NoError(t, repo.Create(ctx, draft))

	for _, email := range []string{"a@example.com", "b@example.com"} {
		u := testutil.SeedUser(t, db, email, models.RoleStudent)
		require.NoError(t, repo.Enroll(ctx, u.ID, popular.ID))
		require.NoError(t, progress.MarkCompleted(ctx, u.ID, testutil.LessonID(t, popular, "Ledgers")))
	}

	found, err := repo.Search(ctx, CourseQuery{})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, popular.ID, found[0].ID)
	assert.EqualValues(t, 2, found[0].Enrollments)
	assert.Equal(t, quiet.ID, found[1].ID)

	found, err = repo.Search(ctx, CourseQuery{Search: "BUSINESS"})
	require.NoError(t, err)
	require.Len(t, found, 1, "drafts are not listed")
	assert.Equal(t, "Business Economics", found[0].Title)

	stats, err := repo.Stats(ctx, popular.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.Enrolled)
	require.Len(t, stats.Lessons, 2)
	assert.Equal(t, "Ledgers", stats.Lessons[0].Title)
	assert.EqualValues(t, 2, stats.Lessons[0].Completions)
	assert.Equal(t, models.LessonResource, stats.Lessons[1].Type)
	assert.EqualValues(t, 0, stats.Lessons[1].Completions)
}
