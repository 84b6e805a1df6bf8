package model

import (
	"errors"
	"testing"
)

func newMCQ(t *testing.T, correctAnswer string, options ...Option) *Question {
	t.Helper()
	q := &Question{
		Text:          "Which keyword declares a constant in Go?",
		CategoryID:    "cat-1",
		Difficulty:    DifficultyEasy,
		Points:        1,
		CorrectAnswer: correctAnswer,
	}
	if err := q.SetContent(MCQBody{Options: options}); err != nil {
		t.Fatalf("set content: %v", err)
	}
	return q
}

func TestMCQValidation(t *testing.T) {
	cases := []struct {
		name    string
		q       func(t *testing.T) *Question
		wantErr error
	}{
		{
			name: "single option",
			q: func(t *testing.T) *Question {
				return newMCQ(t, "const", Option{Text: "const", IsCorrect: true})
			},
			wantErr: ErrTooFewOptions,
		},
		{
			name: "two correct options",
			q: func(t *testing.T) *Question {
				return newMCQ(t, "const", Option{Text: "const", IsCorrect: true}, Option{Text: "var", IsCorrect: true})
			},
			wantErr: ErrCorrectOptionCount,
		},
		{
			name: "no correct option",
			q: func(t *testing.T) *Question {
				return newMCQ(t, "const", Option{Text: "const"}, Option{Text: "var"})
			},
			wantErr: ErrCorrectOptionCount,
		},
		{
			name: "answer mismatch",
			q: func(t *testing.T) *Question {
				return newMCQ(t, "let", Option{Text: "const", IsCorrect: true}, Option{Text: "var"})
			},
			wantErr: ErrCorrectAnswerMismatch,
		},
		{
			name: "valid",
			q: func(t *testing.T) *Question {
				return newMCQ(t, "const", Option{Text: "const", IsCorrect: true}, Option{Text: "var"})
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.q(t).Validate()
			if tc.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestMCQFillsCorrectAnswer(t *testing.T) {
	q := newMCQ(t, "", Option{Text: "var"}, Option{Text: "const", IsCorrect: true})
	if err := q.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if q.CorrectAnswer != "const" {
		t.Fatalf("expected correct answer to be filled, got %q", q.CorrectAnswer)
	}
	if len(q.Options()) != 2 {
		t.Fatalf("expected 2 options")
	}
}

func TestProgramTraceAndCodingContent(t *testing.T) {
	trace := &Question{Text: "What does it print?", CategoryID: "c", Difficulty: DifficultyMedium}
	if err := trace.SetContent(ProgramTraceBody{CodeSnippet: "fmt.Println(1+1)", Language: "go", ExpectedOutput: "2"}); err != nil {
		t.Fatalf("set content: %v", err)
	}
	if err := trace.Validate(); err != nil {
		t.Fatalf("validate trace: %v", err)
	}
	if trace.Kind != KindProgramTrace || trace.CorrectAnswer != "2" {
		t.Fatalf("unexpected trace question %+v", trace)
	}

	coding := &Question{Text: "Sum two numbers", CategoryID: "c", Difficulty: DifficultyHard}
	if err := coding.SetContent(CodingBody{Language: "python"}); err != nil {
		t.Fatalf("set content: %v", err)
	}
	if err := coding.Validate(); err == nil {
		t.Fatal("coding question without test cases must be rejected")
	}

	body, err := (&Question{Kind: KindCoding, Body: []byte(`{"language":"go","testCases":[{"input":"1 2","expectedOutput":"3"},{"input":"2 2","expectedOutput":"4","isHidden":true}]}`)}).Content()
	if err != nil {
		t.Fatalf("content: %v", err)
	}
	if visible := body.(CodingBody).VisibleTestCases(); len(visible) != 1 {
		t.Fatalf("expected 1 visible test case, got %d", len(visible))
	}
}

func TestRecordAttemptAverages(t *testing.T) {
	var s QuestionStats
	s.RecordAttempt(true, 10)
	s.RecordAttempt(false, 20)
	if s.Attempts != 2 || s.CorrectCount != 1 || s.AverageTime != 15 {
		t.Fatalf("unexpected stats %+v", s)
	}
}
