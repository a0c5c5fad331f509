package app_test

import (
	"testing"
	"time"

	"company-quiz-service/internal/app"
	"company-quiz-service/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestAverageScoreIsZeroWithoutAnswers(t *testing.T) {
	f := newFixture(t)
	avg, err := f.analytics.AverageScore(f.ctx, domain.ScopeGlobal())
	require.NoError(t, err)
	require.Zero(t, avg)

	avg, err = f.analytics.CompanyAverage(f.ctx, f.member.ID, f.company.ID, f.member.ID)
	require.NoError(t, err)
	require.Zero(t, avg)
}

func TestAverageCountsEachAnsweredQuestion(t *testing.T) {
	f := newFixture(t)
	quiz := f.quiz(t, "Pair", 2)

	result, err := f.quizzes.SubmitAnswers(f.ctx, f.member.ID, quiz.ID, 0, answers(quiz, 2))
	require.NoError(t, err)
	require.Equal(t, 2, result.Score)

	avg, err := f.analytics.CompanyAverage(f.ctx, f.owner.ID, f.company.ID, f.member.ID)
	require.NoError(t, err)
	require.InDelta(t, 1.0, avg, 1e-9)

	_, err = f.quizzes.SubmitAnswers(f.ctx, f.member.ID, quiz.ID, 0, answers(quiz, 0))
	require.NoError(t, err)

	// 2 of 4 answered questions are correct.
	avg, err = f.analytics.AverageScore(f.ctx, domain.ScopeCompany(f.company.ID).ForUser(f.member.ID))
	require.NoError(t, err)
	require.InDelta(t, 0.5, avg, 1e-9)

	avg, err = f.analytics.QuizUserScore(f.ctx, f.member.ID, quiz.ID)
	require.NoError(t, err)
	require.InDelta(t, 0.5, avg, 1e-9)
}

func TestCompanyAverageRequiresAdministratorForOthers(t *testing.T) {
	f := newFixture(t)
	_, err := f.analytics.CompanyAverage(f.ctx, f.member.ID, f.company.ID, f.owner.ID)
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.analytics.CompanyAverage(f.ctx, f.member.ID, f.company.ID, 0)
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.analytics.MemberResults(f.ctx, f.member.ID, f.company.ID)
	require.ErrorIs(t, err, domain.ErrForbidden)
}

func TestSeriesIsCumulativeByDay(t *testing.T) {
	f := newFixture(t)
	quiz := f.quiz(t, "Pair", 2)

	_, err := f.quizzes.SubmitAnswers(f.ctx, f.member.ID, quiz.ID, 0, answers(quiz, 2))
	require.NoError(t, err)

	f.clock.now = f.clock.now.Add(24 * time.Hour)
	_, err = f.quizzes.SubmitAnswers(f.ctx, f.member.ID, quiz.ID, 0, answers(quiz, 0))
	require.NoError(t, err)

	series, err := f.analytics.UserSeries(f.ctx, f.member.ID)
	require.NoError(t, err)
	require.Equal(t, "member", series.User)
	require.Equal(t, []domain.ScorePoint{
		{Date: "2024-03-01", AverageScore: 1},
		{Date: "2024-03-02", AverageScore: 0.5},
	}, series.ResultsData)

	quizSeries, err := f.analytics.QuizSeries(f.ctx, quiz.ID)
	require.NoError(t, err)
	require.Equal(t, series.ResultsData, quizSeries)

	all, err := f.analytics.AllUsersSeries(f.ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Empty(t, all[0].ResultsData)
}

func TestCumulativeAverages(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	points := app.CumulativeAverages([]domain.DailyTally{
		{Day: day(3), Correct: 0, Total: 2},
		{Day: day(1), Correct: 1, Total: 1},
		{Day: day(2), Correct: 1, Total: 1},
	})
	require.Equal(t, []domain.ScorePoint{
		{Date: "2024-01-01", AverageScore: 1},
		{Date: "2024-01-02", AverageScore: 1},
		{Date: "2024-01-03", AverageScore: 0.5},
	}, points)
	require.Empty(t, app.CumulativeAverages(nil))
}

func TestCompanyReports(t *testing.T) {
	f := newFixture(t)
	quiz := f.quiz(t, "Basics", 1)
	idle := f.user(t, "idle")
	f.join(t, f.company.ID, idle.ID)

	_, err := f.quizzes.SubmitAnswers(f.ctx, f.member.ID, quiz.ID, 0, answers(quiz, 1))
	require.NoError(t, err)

	rows, err := f.analytics.MemberResults(f.ctx, f.owner.ID, f.company.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "member", rows[0].Username)
	require.Equal(t, "Basics", rows[0].QuizTitle)
	require.Equal(t, "Acme", rows[0].CompanyName)

	recent, err := f.analytics.RecentCompletions(f.ctx, f.owner.ID, f.company.ID)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.Equal(t, quiz.ID, recent[0].QuizID)
	require.True(t, recent[0].LastCompletion.Equal(f.clock.now))

	last, err := f.analytics.UsersLastTestTime(f.ctx, f.owner.ID, f.company.ID)
	require.NoError(t, err)
	byUser := map[int64]*time.Time{}
	for _, m := range last {
		byUser[m.UserID] = m.LastTestTime
	}
	require.Len(t, byUser, 3)
	require.NotNil(t, byUser[f.member.ID])
	require.Nil(t, byUser[idle.ID])

	report, err := f.analytics.UserAllCompanies(f.ctx, f.member.ID)
	require.NoError(t, err)
	require.InDelta(t, 1.0, report.AverageScoreAllCompanies, 1e-9)
	require.Len(t, report.QuizResults, 1)
}
