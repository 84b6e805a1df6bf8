package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"quiz_edu_backend/internal/config"
	"quiz_edu_backend/internal/model"
	"quiz_edu_backend/internal/util"
	"quiz_edu_backend/pkg/monitoring"
)

// Judge 代码执行服务
type Judge interface {
	Run(ctx context.Context, req JudgeRequest) (*JudgeResult, error)
}

type JudgeRequest struct {
	SourceCode     string
	Language       string
	Stdin          string
	ExpectedOutput string
}

type JudgeResult struct {
	Status string
	Passed bool
	Stdout string
	Stderr string
	TimeMs int
}

// Judge0 语言编号
var judge0Languages = map[string]int{
	"c":          50,
	"cpp":        54,
	"c++":        54,
	"go":         60,
	"java":       62,
	"javascript": 63,
	"js":         63,
	"python":     71,
	"python3":    71,
	"rust":       73,
	"typescript": 74,
	"ts":         74,
}

const (
	judge0StatusAccepted    = 3
	judge0StatusWrongAnswer = 4
)

// Judge0Client 调用 Judge0 同步提交接口
type Judge0Client struct {
	config config.Judge0Config
	client *http.Client
}

func NewJudge0Client(cfg config.Judge0Config) *Judge0Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Judge0Client{
		config: cfg,
		client: &http.Client{Timeout: timeout},
	}
}

type judge0Submission struct {
	SourceCode     string `json:"source_code"`
	LanguageID     int    `json:"language_id"`
	Stdin          string `json:"stdin,omitempty"`
	ExpectedOutput string `json:"expected_output,omitempty"`
}

type judge0Response struct {
	Stdout        *string `json:"stdout"`
	Stderr        *string `json:"stderr"`
	CompileOutput *string `json:"compile_output"`
	Message       *string `json:"message"`
	Time          *string `json:"time"`
	Status        struct {
		ID          int    `json:"id"`
		Description string `json:"description"`
	} `json:"status"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (c *Judge0Client) Run(ctx context.Context, req JudgeRequest) (*JudgeResult, error) {
	if c.config.URL == "" {
		return nil, util.ErrJudgeUnavailable
	}
	languageID, ok := judge0Languages[strings.ToLower(req.Language)]
	if !ok {
		return nil, util.Validationf("unsupported language %q", req.Language)
	}

	payload, err := json.Marshal(judge0Submission{
		SourceCode:     req.SourceCode,
		LanguageID:     languageID,
		Stdin:          req.Stdin,
		ExpectedOutput: req.ExpectedOutput,
	})
	if err != nil {
		return nil, err
	}

	url := strings.TrimRight(c.config.URL, "/") + "/submissions?base64_encoded=false&wait=true"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		httpReq.Header.Set("X-RapidAPI-Key", c.config.APIKey)
	}
	if c.config.Host != "" {
		httpReq.Header.Set("X-RapidAPI-Host", c.config.Host)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		monitoring.JudgeRequests.WithLabelValues("transport_error").Inc()
		return nil, fmt.Errorf("judge0 request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		monitoring.JudgeRequests.WithLabelValues("http_error").Inc()
		return nil, fmt.Errorf("judge0 returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out judge0Response
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode judge0 response: %w", err)
	}

	result := &JudgeResult{
		Status: out.Status.Description,
		Passed: out.Status.ID == judge0StatusAccepted,
		Stdout: deref(out.Stdout),
		Stderr: deref(out.Stderr),
	}
	if result.Stderr == "" {
		result.Stderr = deref(out.CompileOutput)
	}
	if seconds, err := strconv.ParseFloat(deref(out.Time), 64); err == nil {
		result.TimeMs = int(seconds * 1000)
	}

	label := "error"
	switch out.Status.ID {
	case judge0StatusAccepted:
		label = "accepted"
	case judge0StatusWrongAnswer:
		label = "wrong_answer"
	}
	monitoring.JudgeRequests.WithLabelValues(label).Inc()
	return result, nil
}

// RunTestCases 逐个用例执行，返回明细与通过数
func RunTestCases(ctx context.Context, judge Judge, code, language string, cases []model.TestCase) ([]model.TestCaseResult, int, error) {
	results := make([]model.TestCaseResult, 0, len(cases))
	passed := 0
	for i, tc := range cases {
		res, err := judge.Run(ctx, JudgeRequest{
			SourceCode:     code,
			Language:       language,
			Stdin:          tc.Input,
			ExpectedOutput: tc.ExpectedOutput,
		})
		if err != nil {
			return nil, 0, err
		}
		if res.Passed {
			passed++
		}
		results = append(results, model.TestCaseResult{
			Index:          i,
			Passed:         res.Passed,
			Status:         res.Status,
			Stdout:         res.Stdout,
			Stderr:         res.Stderr,
			ExpectedOutput: tc.ExpectedOutput,
			TimeMs:         res.TimeMs,
			Hidden:         tc.IsHidden,
		})
	}
	return results, passed, nil
}

// PercentScore 通过比例换算为 0-100 分
func PercentScore(passed, total int) int {
	if total == 0 {
		return 0
	}
	return passed * 100 / total
}
