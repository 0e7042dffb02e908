package app

import (
	"gorm.io/gorm"

	"github.com/OnChainFest/HRkey-App/internal/logger"
	"github.com/OnChainFest/HRkey-App/internal/repos"
)

type Repos struct {
	Observation       repos.ObservationRepo
	CognitiveScore    repos.CognitiveScoreRepo
	ReferenceReview   repos.ReferenceReviewRepo
	Outcome           repos.OutcomeRepo
	Role              repos.RoleRepo
	HRKeyScore        repos.HRKeyScoreRepo
	CorrelationResult repos.CorrelationResultRepo
	ModelResult       repos.ModelResultRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Observation:       repos.NewObservationRepo(db, log),
		CognitiveScore:    repos.NewCognitiveScoreRepo(db, log),
		ReferenceReview:   repos.NewReferenceReviewRepo(db, log),
		Outcome:           repos.NewOutcomeRepo(db, log),
		Role:              repos.NewRoleRepo(db, log),
		HRKeyScore:        repos.NewHRKeyScoreRepo(db, log),
		CorrelationResult: repos.NewCorrelationResultRepo(db, log),
		ModelResult:       repos.NewModelResultRepo(db, log),
	}
}
