package engine

import "helmsman/internal/config"

// symbolParams 是某个币种在本轮生效的策略参数：
// 全局配置打底，profile 覆盖项（非零值）逐字段生效。
type symbolParams struct {
	MinScore            int
	RiskPct             float64
	TrailingActivatePct float64
	TrailingDistancePct float64
	PartialClosePct     float64
	PartialCloseRatio   float64
}

func (e *Engine) paramsFor(symbol string) symbolParams {
	p := defaultParams(e.cfg)
	if e.profiles == nil {
		return p
	}
	ov, ok := e.profiles.Lookup(symbol)
	if !ok {
		return p
	}
	if ov.MinScore > 0 {
		p.MinScore = ov.MinScore
	}
	if ov.RiskPct > 0 {
		p.RiskPct = ov.RiskPct
	}
	if ov.TrailingActivatePct > 0 {
		p.TrailingActivatePct = ov.TrailingActivatePct
	}
	if ov.TrailingDistancePct > 0 {
		p.TrailingDistancePct = ov.TrailingDistancePct
	}
	if ov.PartialClosePct > 0 {
		p.PartialClosePct = ov.PartialClosePct
	}
	if ov.PartialCloseRatio > 0 {
		p.PartialCloseRatio = ov.PartialCloseRatio
	}
	return p
}

func defaultParams(cfg config.Config) symbolParams {
	return symbolParams{
		MinScore:            cfg.Scan.MinScore,
		RiskPct:             cfg.Risk.RiskPct,
		TrailingActivatePct: cfg.Exit.TrailingActivatePct,
		TrailingDistancePct: cfg.Exit.TrailingDistancePct,
		PartialClosePct:     cfg.Exit.PartialClosePct,
		PartialCloseRatio:   cfg.Exit.PartialCloseRatio,
	}
}
