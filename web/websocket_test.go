package web

import (
	"fmt"
	"sync"
	"testing"
)

func TestClientMatchFilter(t *testing.T) {
	client := &Client{}

	// 无过滤器时接收所有消息
	if !client.shouldReceive(&WSMessage{Type: "goal", MatchID: "m1"}) {
		t.Error("Expected client without filters to receive everything")
	}

	client.handleMessage([]byte(`{"type":"subscribe","match_ids":["m1","m2"]}`))

	if !client.shouldReceive(&WSMessage{Type: "goal", MatchID: "m1"}) {
		t.Error("Expected subscribed match to pass the filter")
	}
	if client.shouldReceive(&WSMessage{Type: "goal", MatchID: "m3"}) {
		t.Error("Expected unsubscribed match to be filtered out")
	}
	if client.shouldReceive(&WSMessage{Type: "goal"}) {
		t.Error("Expected message without match_id to be filtered when filters are set")
	}

	client.handleMessage([]byte(`{"type":"unsubscribe"}`))

	if !client.shouldReceive(&WSMessage{Type: "goal", MatchID: "m3"}) {
		t.Error("Expected unsubscribe to clear the filter")
	}
}

func TestClientFilterConcurrentAccess(t *testing.T) {
	client := &Client{}
	message := &WSMessage{Type: "goal", MatchID: "m1"}

	var wg sync.WaitGroup
	wg.Add(2)

	// Hub 协程读过滤器的同时 readPump 协程在改写它
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			client.handleMessage([]byte(fmt.Sprintf(`{"type":"subscribe","match_ids":["m%d"]}`, i%3)))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			client.shouldReceive(message)
		}
	}()

	wg.Wait()
}
