package memory

import (
	"context"
	"testing"
	"time"

	"company-quiz-service/internal/domain"
)

func TestAnswerCacheRoundTripAndExpiry(t *testing.T) {
	cache := NewAnswerCache(48 * time.Hour)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.clock = func() time.Time { return now }

	err := cache.Put(context.Background(), []domain.CachedAnswer{
		{UserID: 1, QuizID: 2, QuestionID: 3, ChosenAnswerID: 30, IsCorrect: true, CompanyID: 9},
		{UserID: 1, QuizID: 2, QuestionID: 4, ChosenAnswerID: 40, CompanyID: 9},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	got, _ := cache.Get(context.Background(), 1, 2, []int64{4, 3, 5})
	if len(got) != 2 || got[0].QuestionID != 4 || !got[1].IsCorrect {
		t.Fatalf("unexpected answers %+v", got)
	}

	now = now.Add(49 * time.Hour)
	got, _ = cache.Get(context.Background(), 1, 2, []int64{3, 4})
	if len(got) != 0 {
		t.Fatalf("expected expiry, got %+v", got)
	}
}
