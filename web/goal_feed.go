package web

import (
	"encoding/json"

	"chute-service/logger"
	"chute-service/services"
)

// StartGoalFeed 把 Broker 上的进球事件桥接到 WebSocket Hub。
// 每个事件广播一条 type=goal 的消息，客户端可按 match_id 过滤。
func StartGoalFeed(broker services.MessageBroker, hub *Hub) error {
	msgs, err := broker.Consume(services.TopicGoals)
	if err != nil {
		return err
	}

	go func() {
		for msg := range msgs {
			var event services.GoalEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				logger.Errorf("Goal feed: failed to unmarshal event: %v", err)
				continue
			}

			hub.Broadcast(&WSMessage{
				Type:      "goal",
				MatchID:   event.MatchID.String(),
				Timestamp: event.ScoredAt.Unix(),
				Data:      event,
			})
		}
		logger.Println("Goal feed stopped")
	}()

	return nil
}
