package services

import (
	"time"

	"github.com/jonboulle/clockwork"

	"chute-service/logger"
)

// RoundSweeper 定时扫描回合时间窗，驱动回合状态推进。
// 读路径的惰性判断以回合时间窗为准，Sweeper 只负责把数据库状态追平。
type RoundSweeper struct {
	rounds   *RoundService
	interval time.Duration
	clock    clockwork.Clock
	stopChan chan struct{}
}

// NewRoundSweeper 创建回合扫描器
func NewRoundSweeper(rounds *RoundService, interval time.Duration, clock clockwork.Clock) *RoundSweeper {
	return &RoundSweeper{
		rounds:   rounds,
		interval: interval,
		clock:    clock,
		stopChan: make(chan struct{}),
	}
}

// Start 启动扫描循环
func (s *RoundSweeper) Start() {
	logger.Printf("Round sweeper started, interval: %s", s.interval)
	go s.run()
}

// Stop 停止扫描
func (s *RoundSweeper) Stop() {
	logger.Println("Stopping round sweeper...")
	close(s.stopChan)
}

func (s *RoundSweeper) run() {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	// 启动时先追一次，避免重启期间积压的回合等满一个周期
	s.Sweep()

	for {
		select {
		case <-ticker.Chan():
			s.Sweep()
		case <-s.stopChan:
			return
		}
	}
}

// Sweep 执行一轮扫描：先结束到期回合，再激活到点回合
func (s *RoundSweeper) Sweep() {
	if err := s.rounds.FinishDueRounds(); err != nil {
		logger.Errorf("Round sweep (finish) failed: %v", err)
	}
	if err := s.rounds.ActivateDueRounds(); err != nil {
		logger.Errorf("Round sweep (activate) failed: %v", err)
	}
}
