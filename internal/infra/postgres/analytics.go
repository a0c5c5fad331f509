package postgres

import (
	"context"
	"fmt"
	"time"

	"company-quiz-service/internal/app"
	"company-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Analytics runs the read-side aggregation queries directly on a pgx pool.
type Analytics struct {
	pool *pgxpool.Pool
}

var _ app.AnalyticsRepository = (*Analytics)(nil)

func NewAnalytics(pool *pgxpool.Pool) *Analytics {
	return &Analytics{pool: pool}
}

const dailyTalliesSQL = `
SELECT (r."timestamp" AT TIME ZONE 'UTC')::date AS day,
       COUNT(*) FILTER (WHERE a.is_correct) AS correct,
       COUNT(*) AS total
FROM quiz_results r
JOIN user_answers ua ON ua.quiz_attempt_id = r.quiz_attempt_id
JOIN answers a ON a.id = ua.chosen_answer_id
WHERE ($1::bigint = 0 OR r.user_id = $1)
  AND ($2::bigint = 0 OR r.quiz_id = $2)
  AND ($3::bigint = 0 OR r.company_id = $3)
GROUP BY day
ORDER BY day`

func (a *Analytics) DailyTallies(ctx context.Context, scope domain.Scope) ([]domain.DailyTally, error) {
	rows, err := a.pool.Query(ctx, dailyTalliesSQL, scope.UserID, scope.QuizID, scope.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("daily tallies: %w", err)
	}
	defer rows.Close()

	tallies := make([]domain.DailyTally, 0)
	for rows.Next() {
		var (
			day            time.Time
			correct, total int64
		)
		if err := rows.Scan(&day, &correct, &total); err != nil {
			return nil, fmt.Errorf("scan tally: %w", err)
		}
		tallies = append(tallies, domain.DailyTally{
			Day:     time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC),
			Correct: int(correct),
			Total:   int(total),
		})
	}
	return tallies, rows.Err()
}

const resultRowsSQL = `
SELECT r.id, r.user_id, u.username, r.quiz_id, q.title, r.score, r.company_id, c.name, r."timestamp"
FROM quiz_results r
JOIN users u ON u.id = r.user_id
JOIN quizzes q ON q.id = r.quiz_id
JOIN companies c ON c.id = r.company_id
WHERE ($1::bigint = 0 OR r.user_id = $1)
  AND ($2::bigint = 0 OR r.quiz_id = $2)
  AND ($3::bigint = 0 OR r.company_id = $3)
  AND (NOT $4::boolean OR EXISTS (
        SELECT 1 FROM company_members m WHERE m.company_id = r.company_id AND m.user_id = r.user_id))
ORDER BY r."timestamp", r.id`

func (a *Analytics) ResultRows(ctx context.Context, f domain.ResultFilter) ([]domain.ResultRow, error) {
	rows, err := a.pool.Query(ctx, resultRowsSQL, f.UserID, f.QuizID, f.CompanyID, f.MembersOnly)
	if err != nil {
		return nil, fmt.Errorf("result rows: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ResultRow, 0)
	for rows.Next() {
		var (
			row   domain.ResultRow
			score int32
		)
		if err := rows.Scan(&row.ID, &row.UserID, &row.Username, &row.QuizID, &row.QuizTitle,
			&score, &row.CompanyID, &row.CompanyName, &row.Timestamp); err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}
		row.Score = int(score)
		out = append(out, row)
	}
	return out, rows.Err()
}

const lastCompletionsSQL = `
SELECT user_id, quiz_id, MAX("timestamp")
FROM quiz_results
WHERE company_id = $1
GROUP BY user_id, quiz_id
ORDER BY user_id, quiz_id`

func (a *Analytics) LastCompletions(ctx context.Context, companyID int64) ([]domain.Completion, error) {
	rows, err := a.pool.Query(ctx, lastCompletionsSQL, companyID)
	if err != nil {
		return nil, fmt.Errorf("last completions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Completion, 0)
	for rows.Next() {
		var c domain.Completion
		if err := rows.Scan(&c.UserID, &c.QuizID, &c.At); err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
