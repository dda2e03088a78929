package scheduler

import (
	"context"
	"strconv"
	"strings"
	"time"

	"helmsman/internal/logger"
)

var intervalUnits = map[byte]time.Duration{
	'm': time.Minute,
	'h': time.Hour,
	'd': 24 * time.Hour,
	'w': 7 * 24 * time.Hour,
}

// ParseIntervalDuration 把K线周期写法（"15m"、"1h"、"4h"、"1d"、"1w"）换算成时长。
// 非法输入返回 (0, false)。
func ParseIntervalDuration(interval string) (time.Duration, bool) {
	s := strings.ToLower(strings.TrimSpace(interval))
	if len(s) < 2 {
		return 0, false
	}
	unit, ok := intervalUnits[s[len(s)-1]]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return time.Duration(n) * unit, true
}

// IntervalRunner 以固定间隔执行任务，任务在调度 goroutine 内同步运行，
// 因此同一任务不会出现重叠执行：若上一轮耗时跨过了一个或多个槽位，
// 被跨过的槽位直接作废，只在下一个未来槽位继续。
type IntervalRunner struct {
	Name     string
	Interval time.Duration

	nowFn func() time.Time
}

func NewIntervalRunner(name string, interval time.Duration) *IntervalRunner {
	return &IntervalRunner{Name: name, Interval: interval, nowFn: time.Now}
}

// Start 阻塞运行调度循环，直到 ctx 取消。task 收到的 ctx 与调度共享取消。
func (r *IntervalRunner) Start(ctx context.Context, task func(context.Context)) {
	if r == nil || task == nil {
		return
	}
	if r.Interval <= 0 {
		logger.Warnf("IntervalRunner[%s]: invalid interval=%s, exit", r.Name, r.Interval)
		return
	}
	if r.nowFn == nil {
		r.nowFn = time.Now
	}
	anchor := r.nowFn()
	logger.Infof("IntervalRunner[%s]: started interval=%s", r.Name, r.Interval)

	nextAt := anchor.Add(r.Interval)
	for {
		wait := nextAt.Sub(r.nowFn())
		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				logger.Infof("IntervalRunner[%s]: ctx done, exit", r.Name)
				return
			case <-timer.C:
			}
		} else if ctx.Err() != nil {
			return
		}

		started := r.nowFn()
		task(ctx)
		elapsed := r.nowFn().Sub(started)
		if elapsed > r.Interval {
			logger.Warnf("IntervalRunner[%s]: tick took %s (> interval %s), skipping missed slots",
				r.Name, elapsed.Truncate(time.Millisecond), r.Interval)
		}
		nextAt = nextSlotAfter(anchor, r.Interval, r.nowFn())
	}
}

// nextSlotAfter 返回 anchor + n*interval 中第一个严格晚于 now 的时间点。
func nextSlotAfter(anchor time.Time, interval time.Duration, now time.Time) time.Time {
	if interval <= 0 {
		return now
	}
	elapsed := now.Sub(anchor)
	n := elapsed/interval + 1
	return anchor.Add(n * interval)
}
