package services

import (
	"time"

	"github.com/google/uuid"
)

// TopicGoals 进球事件的 Topic 名称
const TopicGoals = "chute-goals"

// GoalEvent 进球事件，发布给实时信息流和外部消费者
type GoalEvent struct {
	GoalID     uuid.UUID `json:"goal_id"`
	MatchID    uuid.UUID `json:"match_id"`
	UserID     uuid.UUID `json:"user_id"`
	UserName   string    `json:"user_name"`
	TeamID     uuid.UUID `json:"team_id"`
	TeamName   string    `json:"team_name"`
	ScoreTeamA int       `json:"score_team_a"`
	ScoreTeamB int       `json:"score_team_b"`
	ScoredAt   time.Time `json:"scored_at"`
}

// BrokerMessage 定义了在 Broker 中传输的消息结构
type BrokerMessage struct {
	Topic string
	Key   string // MatchID 或其他唯一标识
	Value []byte // JSON 编码的事件体
}

// MessageBroker 定义了消息队列的抽象接口
type MessageBroker interface {
	// Produce 发送消息到指定的 Topic
	Produce(msg BrokerMessage) error
	// Consume 订阅指定的 Topic，返回一个消息通道
	Consume(topic string) (<-chan BrokerMessage, error)
	// Close 关闭 Broker 连接
	Close() error
}
