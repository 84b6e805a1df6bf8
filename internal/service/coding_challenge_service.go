package service

import (
	"context"
	"fmt"
	"strings"

	"quiz_edu_backend/internal/model"
	"quiz_edu_backend/internal/repository"
	"quiz_edu_backend/internal/util"

	"gorm.io/datatypes"
)

type CodingChallengeService struct {
	ChallengeRepo *repository.CodingChallengeRepository
}

func NewCodingChallengeService(challengeRepo *repository.CodingChallengeRepository) *CodingChallengeService {
	return &CodingChallengeService{ChallengeRepo: challengeRepo}
}

type ChallengeInput struct {
	Title             string                   `json:"title" binding:"required,max=200"`
	Description       string                   `json:"description" binding:"required"`
	Difficulty        model.Difficulty         `json:"difficulty" binding:"required"`
	Points            int                      `json:"points" binding:"min=0"`
	TimeLimit         int                      `json:"timeLimit" binding:"min=0"`
	Examples          []model.ChallengeExample `json:"examples"`
	Constraints       []string                 `json:"constraints"`
	Hints             []string                 `json:"hints"`
	Languages         []string                 `json:"languages"`
	Tags              []string                 `json:"tags"`
	ReferenceSolution string                   `json:"referenceSolution"`
	HiddenTests       []model.TestCase         `json:"hiddenTests"`
	IsActive          *bool                    `json:"isActive"`
}

func (in *ChallengeInput) apply(c *model.CodingChallenge) error {
	verr := util.NewValidationError()
	if strings.TrimSpace(in.Title) == "" {
		verr.Add("title", "is required")
	}
	if strings.TrimSpace(in.Description) == "" {
		verr.Add("description", "is required")
	}
	if !in.Difficulty.Valid() {
		verr.Add("difficulty", "must be one of [easy medium hard]")
	}
	for i, tc := range in.HiddenTests {
		if tc.ExpectedOutput == "" {
			verr.Add("hiddenTests", fmt.Sprintf("test case %d needs an expectedOutput", i+1))
		}
	}
	if verr.HasErrors() {
		return verr
	}

	c.Title = strings.TrimSpace(in.Title)
	c.Description = in.Description
	c.Difficulty = in.Difficulty
	c.Points = in.Points
	if c.Points == 0 {
		c.Points = 10
	}
	c.TimeLimit = in.TimeLimit
	if c.TimeLimit == 0 {
		c.TimeLimit = 60
	}
	c.Examples = datatypes.JSONSlice[model.ChallengeExample](in.Examples)
	c.Constraints = datatypes.JSONSlice[string](in.Constraints)
	c.Hints = datatypes.JSONSlice[string](in.Hints)
	c.Languages = datatypes.JSONSlice[string](in.Languages)
	c.Tags = datatypes.JSONSlice[string](in.Tags)
	c.ReferenceSolution = in.ReferenceSolution
	hidden := make([]model.TestCase, 0, len(in.HiddenTests))
	for _, tc := range in.HiddenTests {
		tc.IsHidden = true
		hidden = append(hidden, tc)
	}
	c.HiddenTests = hidden
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	return nil
}

func (s *CodingChallengeService) List(ctx context.Context, filter repository.ChallengeFilter, p util.Pagination, principal Principal) ([]model.CodingChallenge, int64, error) {
	if !principal.IsAdmin() {
		filter.IncludeInactive = false
	}
	challenges, total, err := s.ChallengeRepo.List(ctx, filter, p)
	if err != nil {
		return nil, 0, err
	}
	if !principal.IsAdmin() {
		for i := range challenges {
			challenges[i] = challenges[i].ForStudent()
		}
	}
	return challenges, total, nil
}

// Get 学生视图不含参考答案与隐藏用例
func (s *CodingChallengeService) Get(ctx context.Context, id string, principal Principal) (*model.CodingChallenge, error) {
	challenge, err := s.ChallengeRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, util.ErrChallengeNotFound)
	}
	if principal.IsAdmin() {
		return challenge, nil
	}
	if !challenge.IsActive {
		return nil, util.ErrChallengeNotFound
	}
	view := challenge.ForStudent()
	return &view, nil
}

func (s *CodingChallengeService) Create(ctx context.Context, in ChallengeInput, principal Principal) (*model.CodingChallenge, error) {
	challenge := &model.CodingChallenge{IsActive: true, CreatedBy: principal.UserID}
	if err := in.apply(challenge); err != nil {
		return nil, err
	}
	if err := s.ChallengeRepo.Create(ctx, challenge); err != nil {
		return nil, err
	}
	return challenge, nil
}

func (s *CodingChallengeService) Update(ctx context.Context, id string, in ChallengeInput) (*model.CodingChallenge, error) {
	challenge, err := s.ChallengeRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, util.ErrChallengeNotFound)
	}
	if err := in.apply(challenge); err != nil {
		return nil, err
	}
	if err := s.ChallengeRepo.Update(ctx, challenge); err != nil {
		return nil, err
	}
	return challenge, nil
}

func (s *CodingChallengeService) Delete(ctx context.Context, id string) error {
	if _, err := s.ChallengeRepo.FindByID(ctx, id); err != nil {
		return notFound(err, util.ErrChallengeNotFound)
	}
	return s.ChallengeRepo.Delete(ctx, id)
}

func (s *CodingChallengeService) ToggleStatus(ctx context.Context, id string) (*model.CodingChallenge, error) {
	challenge, err := s.ChallengeRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, util.ErrChallengeNotFound)
	}
	challenge.IsActive = !challenge.IsActive
	if err := s.ChallengeRepo.SetActive(ctx, id, challenge.IsActive); err != nil {
		return nil, err
	}
	return challenge, nil
}
