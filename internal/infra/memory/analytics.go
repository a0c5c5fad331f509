package memory

import (
	"context"
	"sort"
	"time"

	"company-quiz-service/internal/domain"
)

func (s *Store) DailyTallies(_ context.Context, scope domain.Scope) ([]domain.DailyTally, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byAttempt := make(map[int64][]domain.UserAnswer)
	for _, ua := range s.st.userAnswers {
		byAttempt[ua.QuizAttemptID] = append(byAttempt[ua.QuizAttemptID], ua)
	}

	days := make(map[time.Time]*domain.DailyTally)
	filter := domain.ResultFilter{UserID: scope.UserID, QuizID: scope.QuizID, CompanyID: scope.CompanyID}
	for _, res := range s.st.results {
		if !s.st.matches(res, filter) {
			continue
		}
		answers := byAttempt[res.QuizAttemptID]
		if len(answers) == 0 {
			continue
		}
		ts := res.Timestamp.UTC()
		day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
		tally, ok := days[day]
		if !ok {
			tally = &domain.DailyTally{Day: day}
			days[day] = tally
		}
		for _, ua := range answers {
			tally.Total++
			if s.st.answers[ua.ChosenAnswerID].IsCorrect {
				tally.Correct++
			}
		}
	}

	out := make([]domain.DailyTally, 0, len(days))
	for _, t := range days {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out, nil
}

func (s *Store) ResultRows(_ context.Context, filter domain.ResultFilter) ([]domain.ResultRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	results := byID(s.st.results, func(res domain.QuizResult) bool { return s.st.matches(res, filter) })
	sort.SliceStable(results, func(i, j int) bool { return results[i].Timestamp.Before(results[j].Timestamp) })

	rows := make([]domain.ResultRow, 0, len(results))
	for _, res := range results {
		rows = append(rows, domain.ResultRow{
			ID:          res.ID,
			UserID:      res.UserID,
			Username:    s.st.users[res.UserID].Username,
			QuizID:      res.QuizID,
			QuizTitle:   s.st.quizzes[res.QuizID].Title,
			Score:       res.Score,
			CompanyID:   res.CompanyID,
			CompanyName: s.st.companies[res.CompanyID].Name,
			Timestamp:   res.Timestamp,
		})
	}
	return rows, nil
}

func (s *Store) LastCompletions(_ context.Context, companyID int64) ([]domain.Completion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	type pair struct{ user, quiz int64 }
	last := make(map[pair]time.Time)
	for _, res := range s.st.results {
		if res.CompanyID != companyID {
			continue
		}
		k := pair{res.UserID, res.QuizID}
		if res.Timestamp.After(last[k]) {
			last[k] = res.Timestamp
		}
	}
	out := make([]domain.Completion, 0, len(last))
	for k, at := range last {
		out = append(out, domain.Completion{UserID: k.user, QuizID: k.quiz, At: at})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].QuizID < out[j].QuizID
	})
	return out, nil
}
