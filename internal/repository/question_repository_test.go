package repository

import (
	"context"
	"fmt"
	"testing"

	"quiz_edu_backend/internal/model"
)

func TestFindActiveForSessionSamplesWholeBank(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewQuestionRepository(db)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 30; i++ {
		q := &model.Question{Text: fmt.Sprintf("q%d", i), Kind: model.KindMCQ, CategoryID: "cat-1", Difficulty: model.DifficultyEasy, Status: model.QuestionActive}
		if err := repo.Create(ctx, q); err != nil {
			t.Fatalf("create: %v", err)
		}
		ids = append(ids, q.ID)
	}
	coding := &model.Question{Text: "code", Kind: model.KindCoding, CategoryID: "cat-1", Difficulty: model.DifficultyEasy, Status: model.QuestionActive}
	if err := repo.Create(ctx, coding); err != nil {
		t.Fatalf("create coding: %v", err)
	}

	oldest := map[string]bool{ids[0]: true, ids[1]: true, ids[2]: true}
	seen := map[string]bool{}
	for round := 0; round < 20; round++ {
		pool, err := repo.FindActiveForSession(ctx, "cat-1", "", 3)
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if len(pool) != 3 {
			t.Fatalf("expected 3 candidates, got %d", len(pool))
		}
		for _, q := range pool {
			if q.Kind == model.KindCoding {
				t.Fatal("coding questions must not enter a session pool")
			}
			seen[q.ID] = true
		}
	}

	newer := 0
	for id := range seen {
		if !oldest[id] {
			newer++
		}
	}
	if newer == 0 {
		t.Fatal("expected questions beyond the oldest three to be sampled")
	}
}
