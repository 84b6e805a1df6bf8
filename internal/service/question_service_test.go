package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"quiz_edu_backend/internal/model"
	"quiz_edu_backend/internal/repository"
	"quiz_edu_backend/internal/util"
)

var adminPrincipal = Principal{UserID: 100, Role: model.Admin}

func mcqInput(categoryID, correct string, options ...model.Option) QuestionInput {
	content, _ := json.Marshal(model.MCQBody{Options: options})
	return QuestionInput{
		Text:          "Pick one",
		Kind:          model.KindMCQ,
		CategoryID:    categoryID,
		Difficulty:    model.DifficultyEasy,
		Content:       content,
		CorrectAnswer: correct,
		Status:        model.QuestionActive,
	}
}

func fieldNames(err error) []string {
	var verr *util.ValidationError
	if !errors.As(err, &verr) {
		return nil
	}
	names := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		names = append(names, f.Field)
	}
	return names
}

func TestCategoryNameIsUnique(t *testing.T) {
	env := newTestEnv(t, nil)
	svc := NewCategoryService(env.categories, env.questions)
	ctx := context.Background()

	created, err := svc.Create(ctx, CategoryInput{Name: "  Algorithms "}, adminPrincipal)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Name != "Algorithms" || !created.IsActive || created.Difficulty != model.DifficultyMedium || created.EstimatedMinutes != 10 {
		t.Fatalf("unexpected defaults %+v", created)
	}

	if _, err := svc.Create(ctx, CategoryInput{Name: "Algorithms"}, adminPrincipal); !errors.Is(err, util.ErrCategoryNameTaken) {
		t.Fatalf("expected name taken, got %v", err)
	}

	other, err := svc.Create(ctx, CategoryInput{Name: "Databases"}, adminPrincipal)
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if _, err := svc.Update(ctx, other.ID, CategoryInput{Name: "Algorithms"}); !errors.Is(err, util.ErrCategoryNameTaken) {
		t.Fatalf("expected rename conflict, got %v", err)
	}
	if _, err := svc.Update(ctx, other.ID, CategoryInput{Name: "Databases", Description: "SQL"}); err != nil {
		t.Fatalf("update keeping name: %v", err)
	}

	found, err := svc.FindByName(ctx, "algorithms")
	if err != nil || found.ID != created.ID {
		t.Fatalf("expected case-insensitive lookup, got %v %v", found, err)
	}
}

func TestCategoryDeleteRejectedWhileInUse(t *testing.T) {
	env := newTestEnv(t, nil)
	svc := NewCategoryService(env.categories, env.questions)
	ctx := context.Background()
	category := env.seedCategory(t, "Networking")
	question := env.seedMCQ(t, category.ID, "TCP?", "yes")

	if err := svc.Delete(ctx, category.ID); !errors.Is(err, util.ErrCategoryInUse) {
		t.Fatalf("expected category in use, got %v", err)
	}
	if err := env.questions.Delete(ctx, question.ID); err != nil {
		t.Fatalf("delete question: %v", err)
	}
	if err := svc.Delete(ctx, category.ID); err != nil {
		t.Fatalf("delete empty category: %v", err)
	}
	if _, err := svc.Get(ctx, category.ID, adminPrincipal); !errors.Is(err, util.ErrCategoryNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestInactiveCategoryHiddenFromStudents(t *testing.T) {
	env := newTestEnv(t, nil)
	svc := NewCategoryService(env.categories, env.questions)
	ctx := context.Background()
	category := env.seedCategory(t, "Security")

	toggled, err := svc.ToggleStatus(ctx, category.ID)
	if err != nil || toggled.IsActive {
		t.Fatalf("expected category to be deactivated, got %+v %v", toggled, err)
	}
	if _, err := svc.Get(ctx, category.ID, Principal{UserID: 1, Role: model.Student}); !errors.Is(err, util.ErrCategoryNotFound) {
		t.Fatalf("students should not see inactive categories, got %v", err)
	}
	if _, err := svc.Get(ctx, category.ID, adminPrincipal); err != nil {
		t.Fatalf("admins should see inactive categories: %v", err)
	}

	active, _, err := svc.List(ctx, repository.CategoryFilter{}, util.Pagination{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("expected inactive category to be filtered, got %d", len(active))
	}
}

func TestQuestionMCQValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	svc := NewQuestionService(env.questions, env.categories)
	ctx := context.Background()
	category := env.seedCategory(t, "Go")

	cases := []struct {
		name  string
		in    QuestionInput
		field string
	}{
		{"single option", mcqInput(category.ID, "", model.Option{Text: "a", IsCorrect: true}), "content.options"},
		{"no correct option", mcqInput(category.ID, "", model.Option{Text: "a"}, model.Option{Text: "b"}), "content.options"},
		{"two correct options", mcqInput(category.ID, "", model.Option{Text: "a", IsCorrect: true}, model.Option{Text: "b", IsCorrect: true}), "content.options"},
		{"answer mismatch", mcqInput(category.ID, "b", model.Option{Text: "a", IsCorrect: true}, model.Option{Text: "b"}), "correctAnswer"},
	}
	for _, tc := range cases {
		_, err := svc.Create(ctx, tc.in, adminPrincipal)
		names := fieldNames(err)
		if len(names) != 1 || names[0] != tc.field {
			t.Fatalf("%s: expected field %s, got %v (%v)", tc.name, tc.field, names, err)
		}
	}

	question, err := svc.Create(ctx, mcqInput(category.ID, "", model.Option{Text: "a", IsCorrect: true}, model.Option{Text: "b"}), adminPrincipal)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if question.CorrectAnswer != "a" || question.Points != 1 {
		t.Fatalf("expected derived correct answer and default points, got %+v", question)
	}

	if _, err := svc.Create(ctx, mcqInput("missing", "", model.Option{Text: "a", IsCorrect: true}, model.Option{Text: "b"}), adminPrincipal); !errors.Is(err, util.ErrCategoryNotFound) {
		t.Fatalf("expected category not found, got %v", err)
	}

	refreshed, err := env.categories.FindByID(ctx, category.ID)
	if err != nil || refreshed.QuestionCount != 1 {
		t.Fatalf("expected cached question count 1, got %+v %v", refreshed, err)
	}
}

func TestQuestionStudentViewHidesAnswer(t *testing.T) {
	env := newTestEnv(t, nil)
	svc := NewQuestionService(env.questions, env.categories)
	ctx := context.Background()
	category := env.seedCategory(t, "Go")
	question := env.seedMCQ(t, category.ID, "Zero value of int?", "0")

	got, err := svc.Get(ctx, question.ID, Principal{UserID: 1, Role: model.Student})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	view, ok := got.(QuestionView)
	if !ok {
		t.Fatalf("expected QuestionView for students, got %T", got)
	}
	data, _ := json.Marshal(view)
	var decoded map[string]interface{}
	_ = json.Unmarshal(data, &decoded)
	if _, leaked := decoded["correctAnswer"]; leaked {
		t.Fatal("student view must not contain correctAnswer")
	}
	content := decoded["content"].(map[string]interface{})
	for _, o := range content["options"].([]interface{}) {
		if _, leaked := o.(map[string]interface{})["isCorrect"]; leaked {
			t.Fatal("student view must not mark the correct option")
		}
	}
}

func TestQuestionBulkCreateIsAllOrNothing(t *testing.T) {
	env := newTestEnv(t, nil)
	svc := NewQuestionService(env.questions, env.categories)
	ctx := context.Background()
	category := env.seedCategory(t, "Go")

	good := mcqInput(category.ID, "", model.Option{Text: "a", IsCorrect: true}, model.Option{Text: "b"})
	bad := mcqInput(category.ID, "", model.Option{Text: "a"})

	_, err := svc.BulkCreate(ctx, []QuestionInput{good, bad}, adminPrincipal)
	names := fieldNames(err)
	if len(names) != 1 || names[0] != "questions[1].content.options" {
		t.Fatalf("expected indexed field error, got %v", names)
	}
	if count, _ := env.categories.CountQuestions(ctx, category.ID); count != 0 {
		t.Fatalf("expected nothing written, got %d questions", count)
	}

	created, err := svc.BulkCreate(ctx, []QuestionInput{good, good}, adminPrincipal)
	if err != nil || len(created) != 2 {
		t.Fatalf("expected 2 questions, got %d %v", len(created), err)
	}
}

func TestQuestionDeleteIsSoftWhenReferenced(t *testing.T) {
	env := newTestEnv(t, nil)
	svc := NewQuestionService(env.questions, env.categories)
	ctx := context.Background()
	category := seedThreeQuestions(t, env)
	unused := env.seedMCQ(t, env.seedCategory(t, "Unused").ID, "unused", "x")

	session := env.startSession(t, 1, category.ID)
	referenced := session.Questions[0].QuestionID

	soft, err := svc.Delete(ctx, referenced)
	if err != nil || !soft {
		t.Fatalf("expected soft delete, got soft=%v err=%v", soft, err)
	}
	stored, err := env.questions.FindByID(ctx, referenced)
	if err != nil || stored.Status != model.QuestionInactive {
		t.Fatalf("expected question to be deactivated, got %+v %v", stored, err)
	}

	soft, err = svc.Delete(ctx, unused.ID)
	if err != nil || soft {
		t.Fatalf("expected hard delete, got soft=%v err=%v", soft, err)
	}
	if _, err := svc.Get(ctx, unused.ID, adminPrincipal); !errors.Is(err, util.ErrQuestionNotFound) {
		t.Fatalf("expected question to be gone, got %v", err)
	}
}

func TestQuestionToggleStatus(t *testing.T) {
	env := newTestEnv(t, nil)
	svc := NewQuestionService(env.questions, env.categories)
	ctx := context.Background()
	category := env.seedCategory(t, "Go")

	in := mcqInput(category.ID, "", model.Option{Text: "a", IsCorrect: true}, model.Option{Text: "b"})
	in.Status = ""
	question, err := svc.Create(ctx, in, adminPrincipal)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if question.Status != model.QuestionDraft {
		t.Fatalf("expected draft by default, got %s", question.Status)
	}

	for _, want := range []model.QuestionStatus{model.QuestionActive, model.QuestionInactive, model.QuestionActive} {
		toggled, err := svc.ToggleStatus(ctx, question.ID)
		if err != nil || toggled.Status != want {
			t.Fatalf("expected %s, got %+v %v", want, toggled, err)
		}
	}
}
