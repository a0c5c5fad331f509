package app

import (
	"context"
	"sort"
	"time"

	"company-quiz-service/internal/domain"
)

const dayLayout = "2006-01-02"

// UserAverageReport is a user's average across every company with their results.
type UserAverageReport struct {
	UserID                   int64               `json:"user_id"`
	AverageScoreAllCompanies float64             `json:"average_score_all_companies"`
	QuizResults              []domain.QuizResult `json:"quiz_results"`
}

// QuizCompletion is the last time anyone in the company completed a quiz.
type QuizCompletion struct {
	QuizID         int64     `json:"quiz_id"`
	QuizTitle      string    `json:"quiz_title"`
	LastCompletion time.Time `json:"last_completion"`
}

// MemberLastTest is the last time a member completed any quiz of the company.
type MemberLastTest struct {
	UserID       int64      `json:"user_id"`
	Username     string     `json:"username"`
	LastTestTime *time.Time `json:"last_test_time"`
}

// AnalyticsService answers the score aggregation queries. A score unit is one answered
// question, so averages are correct answers over answered questions.
type AnalyticsService struct {
	store     Store
	analytics AnalyticsRepository
}

func NewAnalyticsService(store Store, analytics AnalyticsRepository) *AnalyticsService {
	return &AnalyticsService{store: store, analytics: analytics}
}

// AverageScore returns correct/total over the answers within scope, or 0 when there are none.
func (s *AnalyticsService) AverageScore(ctx context.Context, scope domain.Scope) (float64, error) {
	tallies, err := s.analytics.DailyTallies(ctx, scope)
	if err != nil {
		return 0, err
	}
	var correct, total int
	for _, t := range tallies {
		correct += t.Correct
		total += t.Total
	}
	return ratio(correct, total), nil
}

// AverageScoresOverTime returns the running average per result date, ascending.
func (s *AnalyticsService) AverageScoresOverTime(ctx context.Context, scope domain.Scope) ([]domain.ScorePoint, error) {
	tallies, err := s.analytics.DailyTallies(ctx, scope)
	if err != nil {
		return nil, err
	}
	return CumulativeAverages(tallies), nil
}

// CumulativeAverages folds per-day tallies into a cumulative series. Each point is the
// average of every answer up to and including that day.
func CumulativeAverages(tallies []domain.DailyTally) []domain.ScorePoint {
	sorted := append([]domain.DailyTally(nil), tallies...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Day.Before(sorted[j].Day) })

	points := make([]domain.ScorePoint, 0, len(sorted))
	var correct, total int
	for _, t := range sorted {
		correct += t.Correct
		total += t.Total
		points = append(points, domain.ScorePoint{
			Date:         t.Day.UTC().Format(dayLayout),
			AverageScore: ratio(correct, total),
		})
	}
	return points
}

// UserSeries is the cumulative series of one user across every company.
func (s *AnalyticsService) UserSeries(ctx context.Context, userID int64) (domain.UserScoreSeries, error) {
	user, err := s.store.Users().Get(ctx, userID)
	if err != nil {
		return domain.UserScoreSeries{}, err
	}
	points, err := s.AverageScoresOverTime(ctx, domain.ScopeUser(userID))
	if err != nil {
		return domain.UserScoreSeries{}, err
	}
	return domain.UserScoreSeries{User: user.Username, ResultsData: points}, nil
}

// AllUsersSeries returns one cumulative series per user, in creation order.
func (s *AnalyticsService) AllUsersSeries(ctx context.Context) ([]domain.UserScoreSeries, error) {
	users, _, err := s.store.Users().List(ctx, domain.Page{})
	if err != nil {
		return nil, err
	}
	out := make([]domain.UserScoreSeries, 0, len(users))
	for _, u := range users {
		points, err := s.AverageScoresOverTime(ctx, domain.ScopeUser(u.ID))
		if err != nil {
			return nil, err
		}
		out = append(out, domain.UserScoreSeries{User: u.Username, ResultsData: points})
	}
	return out, nil
}

func (s *AnalyticsService) UserAllCompanies(ctx context.Context, userID int64) (UserAverageReport, error) {
	if _, err := s.store.Users().Get(ctx, userID); err != nil {
		return UserAverageReport{}, err
	}
	avg, err := s.AverageScore(ctx, domain.ScopeAllCompanies(userID))
	if err != nil {
		return UserAverageReport{}, err
	}
	results, err := s.store.Attempts().ListResults(ctx, domain.ResultFilter{UserID: userID})
	if err != nil {
		return UserAverageReport{}, err
	}
	return UserAverageReport{UserID: userID, AverageScoreAllCompanies: avg, QuizResults: results}, nil
}

// QuizSeries is the cumulative series of every answer given to the quiz.
func (s *AnalyticsService) QuizSeries(ctx context.Context, quizID int64) ([]domain.ScorePoint, error) {
	if _, err := s.store.Quizzes().Get(ctx, quizID); err != nil {
		return nil, err
	}
	return s.AverageScoresOverTime(ctx, domain.ScopeQuiz(quizID))
}

// QuizUserScore is the actor's own average on the quiz.
func (s *AnalyticsService) QuizUserScore(ctx context.Context, actorID, quizID int64) (float64, error) {
	if _, err := s.store.Quizzes().Get(ctx, quizID); err != nil {
		return 0, err
	}
	return s.AverageScore(ctx, domain.ScopeQuiz(quizID).ForUser(actorID))
}

// CompanyAverage returns the company-wide average, or one member's when userID is set.
// Members may read their own average; anything else needs an administrator.
func (s *AnalyticsService) CompanyAverage(ctx context.Context, actorID, companyID, userID int64) (float64, error) {
	company, err := s.store.Companies().Get(ctx, companyID)
	if err != nil {
		return 0, err
	}
	if userID == 0 || userID != actorID {
		if err := requireAdmin(ctx, s.store.Companies(), company, actorID); err != nil {
			return 0, err
		}
	} else if err := requireMember(ctx, s.store.Companies(), companyID, actorID); err != nil {
		return 0, err
	}
	scope := domain.ScopeCompany(companyID)
	if userID != 0 {
		scope = scope.ForUser(userID)
	}
	return s.AverageScore(ctx, scope)
}

func (s *AnalyticsService) CompanyResults(ctx context.Context, actorID, companyID int64) ([]domain.QuizResult, error) {
	if err := s.authorizeCompany(ctx, actorID, companyID); err != nil {
		return nil, err
	}
	return s.store.Attempts().ListResults(ctx, domain.ResultFilter{CompanyID: companyID})
}

// MemberResults lists the results of current members with the names used by exports.
func (s *AnalyticsService) MemberResults(ctx context.Context, actorID, companyID int64) ([]domain.ResultRow, error) {
	if err := s.authorizeCompany(ctx, actorID, companyID); err != nil {
		return nil, err
	}
	return s.analytics.ResultRows(ctx, domain.ResultFilter{CompanyID: companyID, MembersOnly: true})
}

// RecentCompletions returns, per quiz of the company, the latest completion by anyone.
// Quizzes never completed are left out. Newest first.
func (s *AnalyticsService) RecentCompletions(ctx context.Context, actorID, companyID int64) ([]QuizCompletion, error) {
	if err := s.authorizeCompany(ctx, actorID, companyID); err != nil {
		return nil, err
	}
	completions, err := s.analytics.LastCompletions(ctx, companyID)
	if err != nil {
		return nil, err
	}
	latest := make(map[int64]time.Time)
	for _, c := range completions {
		if c.At.After(latest[c.QuizID]) {
			latest[c.QuizID] = c.At
		}
	}
	quizzes, _, err := s.store.Quizzes().List(ctx, companyID, domain.Page{})
	if err != nil {
		return nil, err
	}
	out := make([]QuizCompletion, 0, len(latest))
	for _, q := range quizzes {
		at, ok := latest[q.ID]
		if !ok {
			continue
		}
		out = append(out, QuizCompletion{QuizID: q.ID, QuizTitle: q.Title, LastCompletion: at})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LastCompletion.After(out[j].LastCompletion) })
	return out, nil
}

// UsersLastTestTime returns every member with their latest completion in the company,
// nil for members that never completed a quiz.
func (s *AnalyticsService) UsersLastTestTime(ctx context.Context, actorID, companyID int64) ([]MemberLastTest, error) {
	if err := s.authorizeCompany(ctx, actorID, companyID); err != nil {
		return nil, err
	}
	completions, err := s.analytics.LastCompletions(ctx, companyID)
	if err != nil {
		return nil, err
	}
	latest := make(map[int64]time.Time)
	for _, c := range completions {
		if c.At.After(latest[c.UserID]) {
			latest[c.UserID] = c.At
		}
	}
	members, err := s.store.Companies().Members(ctx, companyID)
	if err != nil {
		return nil, err
	}
	out := make([]MemberLastTest, 0, len(members))
	for _, m := range members {
		row := MemberLastTest{UserID: m.ID, Username: m.Username}
		if at, ok := latest[m.ID]; ok {
			at := at
			row.LastTestTime = &at
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *AnalyticsService) authorizeCompany(ctx context.Context, actorID, companyID int64) error {
	company, err := s.store.Companies().Get(ctx, companyID)
	if err != nil {
		return err
	}
	return requireAdmin(ctx, s.store.Companies(), company, actorID)
}

func ratio(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total)
}
