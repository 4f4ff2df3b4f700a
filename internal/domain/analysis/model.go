package analysis

import "strings"

// Level buckets a numeric nutritional indicator.
type Level string

const (
	LevelLow    Level = "LOW"
	LevelMedium Level = "MEDIUM"
	LevelHigh   Level = "HIGH"
)

// Valid reports whether the value is one of the declared buckets.
func (l Level) Valid() bool {
	switch l {
	case LevelLow, LevelMedium, LevelHigh:
		return true
	}
	return false
}

// NoFoodName is the sentinel dish name returned when the image contains no food.
const NoFoodName = "未识别到食物"

// Macros holds per-serving macronutrient gram quantities.
type Macros struct {
	Protein float64 `json:"protein"`
	Carbs   float64 `json:"carbs"`
	Fat     float64 `json:"fat"`
}

// FoodAnalysis is the structured nutritional estimate returned by the model.
type FoodAnalysis struct {
	FoodName      string   `json:"foodName"`
	Calories      float64  `json:"calories"`
	ServingSize   string   `json:"servingSize"`
	GIIndex       float64  `json:"giIndex"`
	GILevel       Level    `json:"giLevel"`
	PurineContent string   `json:"purineContent"`
	PurineLevel   Level    `json:"purineLevel"`
	Macros        Macros   `json:"macros"`
	HealthTips    []string `json:"healthTips"`
	Description   string   `json:"description"`
}

// IsNoFood reports whether the analysis carries the no-food sentinel.
func (a FoodAnalysis) IsNoFood() bool {
	return a.FoodName == NoFoodName
}

// GILevelFor buckets a glycemic index value.
func GILevelFor(gi float64) Level {
	switch {
	case gi < 55:
		return LevelLow
	case gi <= 69:
		return LevelMedium
	default:
		return LevelHigh
	}
}

// PurineLevelFor buckets a purine quantity in mg per 100g.
func PurineLevelFor(mg float64) Level {
	switch {
	case mg < 50:
		return LevelLow
	case mg <= 150:
		return LevelMedium
	default:
		return LevelHigh
	}
}

// Validate checks the structural invariants the client relies on.
func (a FoodAnalysis) Validate() error {
	if strings.TrimSpace(a.FoodName) == "" {
		return errFieldMissing("foodName")
	}
	if a.Calories < 0 {
		return errFieldNegative("calories")
	}
	if a.GIIndex < 0 {
		return errFieldNegative("giIndex")
	}
	if !a.GILevel.Valid() {
		return errFieldInvalid("giLevel")
	}
	if !a.PurineLevel.Valid() {
		return errFieldInvalid("purineLevel")
	}
	if a.Macros.Protein < 0 || a.Macros.Carbs < 0 || a.Macros.Fat < 0 {
		return errFieldNegative("macros")
	}
	return nil
}

type fieldError struct {
	field  string
	reason string
}

func (e fieldError) Error() string {
	return "field " + e.field + " " + e.reason
}

func errFieldMissing(field string) error  { return fieldError{field: field, reason: "is missing"} }
func errFieldNegative(field string) error { return fieldError{field: field, reason: "is negative"} }
func errFieldInvalid(field string) error  { return fieldError{field: field, reason: "is invalid"} }
