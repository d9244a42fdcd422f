package registry

// Canonical flag identifiers. Modules reference these by id in their
// option definitions; anything else is config drift.
const (
	FlagMobilityLimited   = "mobility_limited"
	FlagFallsMultiple     = "falls_multiple"
	FlagHighSafety        = "high_safety"
	FlagChronicConditions = "chronic_conditions"
	FlagCognitiveDecline  = "cognitive_decline"
	FlagMemoryCareNeeded  = "memory_care_needed"
	FlagMedicationComplex = "medication_complex"
	FlagCaregiverBurnout  = "caregiver_burnout"
	FlagSocialIsolated    = "social_isolated"
	FlagVeteranBenefits   = "veteran_benefits"
	FlagIndependent       = "independent_capable"
	FlagBudgetConstrained = "budget_constrained"
)

var catalogFlags = []FlagDef{
	{
		ID:            FlagMobilityLimited,
		Message:       "Mobility support is needed for daily movement.",
		Priority:      PriorityNormal,
		ExclusiveWith: []string{FlagIndependent},
	},
	{
		ID:       FlagFallsMultiple,
		Message:  "Multiple recent falls indicate an urgent safety risk.",
		Priority: PriorityHigh,
	},
	{
		ID:       FlagHighSafety,
		Message:  "A high-safety living environment is strongly recommended.",
		Priority: PriorityHigh,
	},
	{
		ID:       FlagChronicConditions,
		Message:  "Ongoing chronic conditions require coordinated care.",
		Priority: PriorityNormal,
	},
	{
		ID:            FlagCognitiveDecline,
		Message:       "Signs of cognitive decline call for a specialist evaluation.",
		Priority:      PriorityHigh,
		ExclusiveWith: []string{FlagIndependent},
	},
	{
		ID:       FlagMemoryCareNeeded,
		Message:  "Memory care supervision is recommended.",
		Priority: PriorityHigh,
	},
	{
		ID:       FlagMedicationComplex,
		Message:  "Medication management support is recommended.",
		Priority: PriorityNormal,
	},
	{
		ID:       FlagCaregiverBurnout,
		Message:  "The current caregiver is at risk of burnout.",
		Priority: PriorityNormal,
	},
	{
		ID:       FlagSocialIsolated,
		Message:  "Social engagement opportunities would improve wellbeing.",
		Priority: PriorityNormal,
	},
	{
		ID:       FlagVeteranBenefits,
		Message:  "Veteran benefits may offset a portion of care costs.",
		Priority: PriorityNormal,
	},
	{
		ID:            FlagIndependent,
		Message:       "Currently able to manage daily activities independently.",
		Priority:      PriorityNormal,
		ExclusiveWith: []string{FlagMobilityLimited, FlagCognitiveDecline},
	},
	{
		ID:       FlagBudgetConstrained,
		Message:  "Budget constraints narrow the available care options.",
		Priority: PriorityNormal,
	},
}

// Structured condition codes accepted by condition multi-selects.
var catalogConditions = []ConditionDef{
	{Code: "diabetes", Label: "Diabetes"},
	{Code: "chf", Label: "Congestive heart failure"},
	{Code: "copd", Label: "COPD"},
	{Code: "dementia", Label: "Dementia or Alzheimer's"},
	{Code: "parkinsons", Label: "Parkinson's disease"},
	{Code: "arthritis", Label: "Arthritis"},
	{Code: "hypertension", Label: "High blood pressure"},
	{Code: "stroke", Label: "Stroke history"},
	{Code: "osteoporosis", Label: "Osteoporosis"},
	{Code: "depression", Label: "Depression or anxiety"},
}
