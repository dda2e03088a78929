package risk

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"helmsman/internal/config"
)

func levCfg() config.LeverageConfig {
	return config.LeverageConfig{Min: 1, Max: 10, Default: 3, Boosted: 5}
}

func TestDetermineLeverageDecisionTable(t *testing.T) {
	cfg := levCfg()

	// 加速档当且仅当 score≥9 且 ATR%<2
	for score := 0; score <= 10; score++ {
		for _, atrPct := range []float64{0.5, 1.9, 2.0, 2.5, 3.0, 3.1, 8} {
			got := DetermineLeverage(score, atrPct, cfg)
			name := fmt.Sprintf("score=%d atr=%.1f", score, atrPct)

			switch {
			case atrPct > 3:
				// 高波动无条件最低档, 与评分无关
				assert.Equal(t, LeverageModeFloor, got.Mode, name)
				assert.Equal(t, cfg.Min, got.Leverage, name)
			case score >= 9 && atrPct < 2:
				assert.Equal(t, LeverageModeBoosted, got.Mode, name)
				assert.Equal(t, cfg.Boosted, got.Leverage, name)
			default:
				assert.Equal(t, LeverageModeNormal, got.Mode, name)
				assert.Equal(t, cfg.Default, got.Leverage, name)
			}
			assert.GreaterOrEqual(t, got.Leverage, cfg.Min, name)
			assert.LessOrEqual(t, got.Leverage, cfg.Max, name)
		}
	}
}

func TestDetermineLeverageClamp(t *testing.T) {
	cfg := config.LeverageConfig{Min: 2, Max: 4, Default: 3, Boosted: 8}
	got := DetermineLeverage(10, 1, cfg)
	assert.Equal(t, 4.0, got.Leverage) // boosted 超出 max 被夹到 max
}
