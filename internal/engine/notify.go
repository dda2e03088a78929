package engine

import (
	"fmt"

	"helmsman/internal/logger"
	"helmsman/internal/notifier"
)

// NewNotifierObserver 把生命周期事件渲染成文本推送。
// 发送失败只记日志，绝不回流到状态机。
func NewNotifierObserver(n notifier.TextNotifier) Observer {
	return ObserverFunc(func(evt Event) {
		if n == nil {
			return
		}
		msg := renderEvent(evt)
		if err := n.SendText(msg.RenderMarkdown()); err != nil {
			logger.Warnf("notifier: 推送失败 type=%s symbol=%s: %v", evt.Type, evt.Position.Symbol, err)
		}
	})
}

func renderEvent(evt Event) notifier.StructuredMessage {
	p := evt.Position
	base := []string{
		fmt.Sprintf("方向: %s x%.0f", p.Side, p.Leverage),
		fmt.Sprintf("入场: %.6f", p.EntryPrice),
		fmt.Sprintf("数量: %.6f", p.Quantity),
	}
	switch evt.Type {
	case EventOpened:
		return notifier.StructuredMessage{
			Icon:  "🟢",
			Title: "开仓 " + p.Symbol,
			Sections: []notifier.MessageSection{{Lines: append(base,
				fmt.Sprintf("止损: %.6f", p.StopLoss),
				fmt.Sprintf("止盈: %.6f", p.TakeProfit),
				fmt.Sprintf("评分: %d", p.Score),
			)}},
			Timestamp: evt.At,
		}
	case EventPartialClosed:
		return notifier.StructuredMessage{
			Icon:  "🟡",
			Title: "分批止盈 " + p.Symbol,
			Sections: []notifier.MessageSection{{Lines: append(base,
				fmt.Sprintf("已实现: %.4f", evt.PnL),
				fmt.Sprintf("止损移至保本: %.6f", p.StopLoss),
			)}},
			Timestamp: evt.At,
		}
	case EventTrailingActivated:
		return notifier.StructuredMessage{
			Icon:  "🔵",
			Title: "移动止损激活 " + p.Symbol,
			Sections: []notifier.MessageSection{{Lines: append(base,
				fmt.Sprintf("移动止损: %.6f", p.TrailingStop),
			)}},
			Timestamp: evt.At,
		}
	case EventClosed:
		icon := "🔴"
		if evt.PnL > 0 {
			icon = "💰"
		}
		return notifier.StructuredMessage{
			Icon:  icon,
			Title: "平仓 " + p.Symbol,
			Sections: []notifier.MessageSection{{Lines: append(base,
				fmt.Sprintf("原因: %s", evt.Reason),
				fmt.Sprintf("盈亏: %.4f", evt.PnL),
			)}},
			Timestamp: evt.At,
		}
	default:
		return notifier.StructuredMessage{Title: string(evt.Type) + " " + p.Symbol, Timestamp: evt.At}
	}
}
