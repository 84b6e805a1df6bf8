package service

import (
	"testing"

	"quiz_edu_backend/internal/model"
	"quiz_edu_backend/pkg/logger"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestCopyFieldsLogsFailure(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	prev := logger.Log
	logger.Log = zap.New(core)
	t.Cleanup(func() { logger.Log = prev })

	var view SessionView
	if copyFields(view, &model.QuizSession{SessionID: "qs_1"}) {
		t.Fatal("copying into a non-pointer must fail")
	}
	if logs.Len() != 1 || logs.All()[0].Message != "Failed to copy view fields" {
		t.Fatalf("expected one logged copy failure, got %v", logs.All())
	}

	if !copyFields(&view, &model.QuizSession{SessionID: "qs_1", TimeLimit: 90}) {
		t.Fatal("copying into a pointer should succeed")
	}
	if view.SessionID != "qs_1" || view.TimeLimit != 90 || logs.Len() != 1 {
		t.Fatalf("unexpected view %+v", view)
	}
}
