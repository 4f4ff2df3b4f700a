package analysis

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGILevelFor(t *testing.T) {
	require.Equal(t, LevelLow, GILevelFor(0))
	require.Equal(t, LevelLow, GILevelFor(54.9))
	require.Equal(t, LevelMedium, GILevelFor(55))
	require.Equal(t, LevelMedium, GILevelFor(69))
	require.Equal(t, LevelHigh, GILevelFor(69.1))
	require.Equal(t, LevelHigh, GILevelFor(100))
}

func TestPurineLevelFor(t *testing.T) {
	require.Equal(t, LevelLow, PurineLevelFor(0))
	require.Equal(t, LevelLow, PurineLevelFor(49.9))
	require.Equal(t, LevelMedium, PurineLevelFor(50))
	require.Equal(t, LevelMedium, PurineLevelFor(150))
	require.Equal(t, LevelHigh, PurineLevelFor(150.1))
}

func TestLevelValid(t *testing.T) {
	require.True(t, LevelLow.Valid())
	require.True(t, LevelMedium.Valid())
	require.True(t, LevelHigh.Valid())
	require.False(t, Level("").Valid())
	require.False(t, Level("low").Valid())
}

func TestValidate(t *testing.T) {
	valid := FoodAnalysis{
		FoodName:    "白米饭",
		Calories:    230,
		GIIndex:     83,
		GILevel:     LevelHigh,
		PurineLevel: LevelLow,
	}
	require.NoError(t, valid.Validate())

	noName := valid
	noName.FoodName = "  "
	require.Error(t, noName.Validate())

	negative := valid
	negative.Calories = -1
	require.Error(t, negative.Validate())

	badLevel := valid
	badLevel.GILevel = "HUGE"
	require.Error(t, badLevel.Validate())

	badMacros := valid
	badMacros.Macros.Fat = -0.5
	require.Error(t, badMacros.Validate())
}

func TestIsNoFood(t *testing.T) {
	require.True(t, FoodAnalysis{FoodName: NoFoodName}.IsNoFood())
	require.False(t, FoodAnalysis{FoodName: "拉面"}.IsNoFood())
}
