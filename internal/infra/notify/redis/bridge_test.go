package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/goleak"

	"aeracore/internal/notify"
)

func TestBridgeForwardPublishesJSON(t *testing.T) {
	db, mock := redismock.NewClientMock()
	hub := notify.NewHub()
	bridge := New(db, hub, WithChannel("test:changes"))

	ev := notify.Event{
		Key:      "aera_backend_db_v1",
		Revision: 4,
		Origin:   hub.Origin(),
		At:       time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	mock.ExpectPublish("test:changes", string(payload)).SetVal(1)

	if err := bridge.Forward(context.Background(), ev); err != nil {
		t.Fatalf("forward: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet redis expectations: %v", err)
	}
}

func TestBridgeForwardSurfacesRedisError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	hub := notify.NewHub()
	bridge := New(db, hub)
	ev := notify.Event{Key: "doc", Origin: hub.Origin(), At: time.Unix(0, 0).UTC()}
	payload, _ := json.Marshal(ev)
	mock.ExpectPublish(DefaultChannel, string(payload)).SetErr(goredis.ErrClosed)
	if err := bridge.Forward(context.Background(), ev); err == nil {
		t.Fatalf("expected publish error")
	}
}

func TestBridgeRelaysOnlyRemoteEvents(t *testing.T) {
	hub := notify.NewHub()
	bridge := New(nil, hub)
	var got []notify.Event
	hub.Subscribe(func(ev notify.Event) { got = append(got, ev) })

	remote, _ := json.Marshal(notify.Event{Key: "doc", Revision: 2, Origin: "other-node"})
	local, _ := json.Marshal(notify.Event{Key: "doc", Revision: 3, Origin: hub.Origin()})
	bridge.handleMessage(string(remote))
	bridge.handleMessage(string(local))
	bridge.handleMessage("not json")
	bridge.handleMessage(`{"key":"doc"}`)

	if len(got) != 1 || got[0].Origin != "other-node" || got[0].Revision != 2 {
		t.Fatalf("expected only the remote event, got %+v", got)
	}
}

func TestBridgeEnqueueSkipsRemoteAndDropsWhenFull(t *testing.T) {
	hub := notify.NewHub()
	bridge := New(nil, hub)
	bridge.queue = make(chan notify.Event, 1)

	bridge.enqueue(notify.Event{Key: "doc", Origin: "other-node"})
	if len(bridge.queue) != 0 {
		t.Fatalf("remote events must not be forwarded")
	}
	bridge.enqueue(notify.Event{Key: "doc", Origin: hub.Origin(), Revision: 1})
	bridge.enqueue(notify.Event{Key: "doc", Origin: hub.Origin(), Revision: 2})
	if len(bridge.queue) != 1 {
		t.Fatalf("expected bounded queue with one event, got %d", len(bridge.queue))
	}
	if ev := <-bridge.queue; ev.Revision != 1 {
		t.Fatalf("expected first event retained, got %+v", ev)
	}
}

func TestBridgeConsumeStopsCleanly(t *testing.T) {
	defer goleak.VerifyNone(t)
	hub := notify.NewHub()
	bridge := New(nil, hub)
	received := make(chan notify.Event, 1)
	hub.Subscribe(func(ev notify.Event) { received <- ev })

	msgs := make(chan *goredis.Message, 1)
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		bridge.consume(stop, msgs)
	}()
	payload, _ := json.Marshal(notify.Event{Key: "doc", Revision: 9, Origin: "other-node"})
	msgs <- &goredis.Message{Channel: DefaultChannel, Payload: string(payload)}
	select {
	case ev := <-received:
		if ev.Revision != 9 {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for relayed event")
	}
	close(stop)
	<-done
}

func TestStopWithoutStartIsNoop(t *testing.T) {
	bridge := New(nil, notify.NewHub())
	bridge.Stop()
	if bridge.Channel() != DefaultChannel {
		t.Fatalf("unexpected channel %s", bridge.Channel())
	}
}
