package billing

import "github.com/classdesk/classdesk-api/internal/models"

// Unlimited is the sentinel used for tiers without a numeric cap.
const Unlimited = 1_000_000

// PlanLimits fixes the capabilities granted by a plan tier.
type PlanLimits struct {
	MaxClasses          int
	MaxStudentsPerClass int
	Reports             bool
	FileStorage         bool
	LessonPlans         bool
}

var planLimits = map[models.Plan]PlanLimits{
	models.PlanStarter: {
		MaxClasses:          3,
		MaxStudentsPerClass: 30,
		Reports:             false,
		FileStorage:         false,
		LessonPlans:         true,
	},
	models.PlanProfessional: {
		MaxClasses:          20,
		MaxStudentsPerClass: 50,
		Reports:             true,
		FileStorage:         true,
		LessonPlans:         true,
	},
	models.PlanSchool: {
		MaxClasses:          Unlimited,
		MaxStudentsPerClass: Unlimited,
		Reports:             true,
		FileStorage:         true,
		LessonPlans:         true,
	},
}

// LimitsFor returns the capability table for a plan. Unknown plans fall back
// to the starter tier.
func LimitsFor(plan models.Plan) PlanLimits {
	if limits, ok := planLimits[plan]; ok {
		return limits
	}
	return planLimits[models.PlanStarter]
}
