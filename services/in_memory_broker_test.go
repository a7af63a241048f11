package services

import (
	"testing"
	"time"
)

func TestInMemoryBrokerFanOut(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	first, err := broker.Consume(TopicGoals)
	if err != nil {
		t.Fatalf("Expected first consumer to subscribe, got %v", err)
	}
	second, err := broker.Consume(TopicGoals)
	if err != nil {
		t.Fatalf("Expected second consumer to subscribe, got %v", err)
	}

	msg := BrokerMessage{Topic: TopicGoals, Key: "match-1", Value: []byte(`{"score_team_a":1}`)}
	if err := broker.Produce(msg); err != nil {
		t.Fatalf("Expected produce to succeed, got %v", err)
	}

	for name, ch := range map[string]<-chan BrokerMessage{"first": first, "second": second} {
		select {
		case got := <-ch:
			if got.Key != "match-1" {
				t.Errorf("Expected %s consumer to receive key match-1, got %s", name, got.Key)
			}
		case <-time.After(time.Second):
			t.Errorf("Expected %s consumer to receive the message", name)
		}
	}
}

func TestInMemoryBrokerTopicIsolation(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	other, err := broker.Consume("other-topic")
	if err != nil {
		t.Fatalf("Expected consumer to subscribe, got %v", err)
	}

	if err := broker.Produce(BrokerMessage{Topic: TopicGoals, Key: "k"}); err != nil {
		t.Fatalf("Expected produce to succeed, got %v", err)
	}

	select {
	case <-other:
		t.Error("Expected consumer on another topic to receive nothing")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestInMemoryBrokerProduceWithoutConsumers(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	if err := broker.Produce(BrokerMessage{Topic: TopicGoals, Key: "k"}); err != nil {
		t.Errorf("Expected produce without consumers to be a no-op, got %v", err)
	}
}

func TestInMemoryBrokerClose(t *testing.T) {
	broker := NewInMemoryBroker()

	ch, err := broker.Consume(TopicGoals)
	if err != nil {
		t.Fatalf("Expected consumer to subscribe, got %v", err)
	}

	if err := broker.Close(); err != nil {
		t.Fatalf("Expected close to succeed, got %v", err)
	}

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("Expected channel to be closed without pending messages")
		}
	case <-time.After(time.Second):
		t.Error("Expected channel to be closed")
	}
}
