package http

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"company-quiz-service/internal/domain"
)

var exportHeader = []string{"id", "username", "quiz_title", "score", "company", "timestamp"}

type averageResponse struct {
	CompanyID    int64   `json:"company_id,omitempty"`
	QuizID       int64   `json:"quiz_id,omitempty"`
	UserID       int64   `json:"user_id,omitempty"`
	AverageScore float64 `json:"average_score"`
}

func (a *api) allUsersSeries(w http.ResponseWriter, r *http.Request) {
	series, err := a.Analytics.AllUsersSeries(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

func (a *api) userSeries(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	series, err := a.Analytics.UserSeries(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, []domain.UserScoreSeries{series})
}

func (a *api) userAllCompanies(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	report, err := a.Analytics.UserAllCompanies(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *api) quizSeries(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	points, err := a.Analytics.QuizSeries(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (a *api) quizUserScore(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	avg, err := a.Analytics.QuizUserScore(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, averageResponse{QuizID: id, UserID: actor(r), AverageScore: avg})
}

// companyAverage accepts ?user_id= to narrow the average to one member.
func (a *api) companyAverage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	userID, err := queryID(r, "user_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	avg, err := a.Analytics.CompanyAverage(r.Context(), actor(r), id, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, averageResponse{CompanyID: id, UserID: userID, AverageScore: avg})
}

func (a *api) companyResults(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	results, err := a.Analytics.CompanyResults(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (a *api) memberResults(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	rows, err := a.Analytics.MemberResults(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

type exportRow struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	QuizTitle string    `json:"quiz_title"`
	Score     int       `json:"score"`
	Company   string    `json:"company"`
	Timestamp time.Time `json:"timestamp"`
}

func toExportRows(rows []domain.ResultRow) []exportRow {
	out := make([]exportRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, exportRow{
			ID:        row.ID,
			Username:  row.Username,
			QuizTitle: row.QuizTitle,
			Score:     row.Score,
			Company:   row.CompanyName,
			Timestamp: row.Timestamp.UTC(),
		})
	}
	return out
}

func (a *api) exportCSV(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	rows, err := a.Analytics.MemberResults(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="member-results-%d.csv"`, id))
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	_ = cw.Write(exportHeader)
	for _, row := range toExportRows(rows) {
		_ = cw.Write([]string{
			strconv.FormatInt(row.ID, 10),
			row.Username,
			row.QuizTitle,
			strconv.Itoa(row.Score),
			row.Company,
			row.Timestamp.Format(time.RFC3339),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		log.Printf("[ERROR] csv export company=%d: %v", id, err)
	}
}

func (a *api) exportJSON(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	rows, err := a.Analytics.MemberResults(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="member-results-%d.json"`, id))
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(toExportRows(rows)); err != nil {
		log.Printf("[ERROR] json export company=%d: %v", id, err)
	}
}

func (a *api) recentCompletions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := a.Analytics.RecentCompletions(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *api) usersLastTestTime(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := a.Analytics.UsersLastTestTime(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}
