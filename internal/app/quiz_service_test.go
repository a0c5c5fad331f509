package app_test

import (
	"testing"

	"company-quiz-service/internal/app"
	"company-quiz-service/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestSubmitAllCorrectScoresQuestionCount(t *testing.T) {
	f := newFixture(t)
	quiz := f.quiz(t, "Basics", 3)

	result, err := f.quizzes.SubmitAnswers(f.ctx, f.member.ID, quiz.ID, 0, answers(quiz, 3))
	require.NoError(t, err)
	require.Equal(t, 3, result.Score)
	require.Equal(t, f.company.ID, result.CompanyID)
	require.NotZero(t, result.QuizAttemptID)
}

func TestStartAttemptIsIdempotentUntilSubmitted(t *testing.T) {
	f := newFixture(t)
	quiz := f.quiz(t, "Basics", 2)

	first, created, err := f.quizzes.StartAttempt(f.ctx, f.member.ID, quiz.ID)
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := f.quizzes.StartAttempt(f.ctx, f.member.ID, quiz.ID)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, second.ID)

	_, err = f.quizzes.SubmitAnswers(f.ctx, f.member.ID, quiz.ID, first.ID, answers(quiz, 1))
	require.NoError(t, err)

	_, err = f.quizzes.SubmitAnswers(f.ctx, f.member.ID, quiz.ID, first.ID, answers(quiz, 1))
	require.ErrorIs(t, err, domain.ErrAttemptConsumed)

	third, created, err := f.quizzes.StartAttempt(f.ctx, f.member.ID, quiz.ID)
	require.NoError(t, err)
	require.True(t, created)
	require.NotEqual(t, first.ID, third.ID)
}

func TestSubmitRejectsForeignQuestionAndAnswer(t *testing.T) {
	f := newFixture(t)
	quiz := f.quiz(t, "Basics", 1)
	other := f.quiz(t, "Other", 1)

	_, err := f.quizzes.SubmitAnswers(f.ctx, f.member.ID, quiz.ID, 0, answers(other, 1))
	require.ErrorIs(t, err, domain.ErrQuestionNotFound)

	foreignAnswer := []domain.Submission{{QuestionID: quiz.Questions[0].ID, ChosenAnswerID: other.Questions[0].Answers[0].ID}}
	_, err = f.quizzes.SubmitAnswers(f.ctx, f.member.ID, quiz.ID, 0, foreignAnswer)
	require.ErrorIs(t, err, domain.ErrAnswerNotFound)

	_, err = f.quizzes.SubmitAnswers(f.ctx, f.member.ID, quiz.ID, 0, nil)
	require.ErrorIs(t, err, domain.ErrEmptySubmission)

	// Nothing was recorded for the failed submissions.
	results, err := f.quizzes.ListQuizResults(f.ctx, f.owner.ID, quiz.ID)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestNonMemberCannotTakeQuiz(t *testing.T) {
	f := newFixture(t)
	quiz := f.quiz(t, "Basics", 1)
	outsider := f.user(t, "outsider")

	_, _, err := f.quizzes.StartAttempt(f.ctx, outsider.ID, quiz.ID)
	require.ErrorIs(t, err, domain.ErrNotMember)
}

func TestOnlyAdministratorsAuthorQuizzes(t *testing.T) {
	f := newFixture(t)
	_, err := f.quizzes.CreateQuiz(f.ctx, f.member.ID, app.QuizInput{CompanyID: f.company.ID, Title: "x", FrequencyInDays: 1})
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.quizzes.CreateQuiz(f.ctx, f.owner.ID, app.QuizInput{CompanyID: f.company.ID, Title: "x"})
	require.ErrorIs(t, err, domain.ErrInvalidFrequency)

	require.NoError(t, f.companies.AppointAdministrator(f.ctx, f.owner.ID, f.company.ID, f.member.ID))
	_, err = f.quizzes.CreateQuiz(f.ctx, f.member.ID, app.QuizInput{CompanyID: f.company.ID, Title: "x", FrequencyInDays: 1})
	require.NoError(t, err)
}

func TestNewAnswerIsScoredAfterCreation(t *testing.T) {
	f := newFixture(t)
	quiz := f.quiz(t, "Basics", 1)
	// Warm the answer key cache before mutating the quiz.
	_, _, err := f.quizzes.StartAttempt(f.ctx, f.member.ID, quiz.ID)
	require.NoError(t, err)

	question, err := f.quizzes.CreateQuestion(f.ctx, f.owner.ID, quiz.ID, "new question")
	require.NoError(t, err)
	answer, err := f.quizzes.CreateAnswer(f.ctx, f.owner.ID, quiz.ID, app.AnswerCreate{QuestionID: question.ID, Text: "yes", IsCorrect: true})
	require.NoError(t, err)

	subs := append(answers(quiz, 1), domain.Submission{QuestionID: question.ID, ChosenAnswerID: answer.ID})
	result, err := f.quizzes.SubmitAnswers(f.ctx, f.member.ID, quiz.ID, 0, subs)
	require.NoError(t, err)
	require.Equal(t, 2, result.Score)
}

func TestLastAnswersReadsMirror(t *testing.T) {
	f := newFixture(t)
	quiz := f.quiz(t, "Basics", 2)
	_, err := f.quizzes.SubmitAnswers(f.ctx, f.member.ID, quiz.ID, 0, answers(quiz, 1))
	require.NoError(t, err)

	cached, err := f.quizzes.LastAnswers(f.ctx, f.member.ID, quiz.ID)
	require.NoError(t, err)
	require.Len(t, cached, 2)
	byQuestion := map[int64]domain.CachedAnswer{}
	for _, c := range cached {
		byQuestion[c.QuestionID] = c
	}
	require.True(t, byQuestion[quiz.Questions[0].ID].IsCorrect)
	require.False(t, byQuestion[quiz.Questions[1].ID].IsCorrect)
	require.Equal(t, f.company.ID, byQuestion[quiz.Questions[0].ID].CompanyID)
}

func TestListQuizResultsScopesNonAdministrators(t *testing.T) {
	f := newFixture(t)
	quiz := f.quiz(t, "Basics", 1)
	other := f.user(t, "other")
	f.join(t, f.company.ID, other.ID)

	for _, u := range []domain.User{f.member, other} {
		_, err := f.quizzes.SubmitAnswers(f.ctx, u.ID, quiz.ID, 0, answers(quiz, 1))
		require.NoError(t, err)
	}

	all, err := f.quizzes.ListQuizResults(f.ctx, f.owner.ID, quiz.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)

	own, err := f.quizzes.ListQuizResults(f.ctx, f.member.ID, quiz.ID)
	require.NoError(t, err)
	require.Len(t, own, 1)
	require.Equal(t, f.member.ID, own[0].UserID)
}
