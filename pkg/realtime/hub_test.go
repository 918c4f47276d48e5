package realtime

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(ch <-chan Event) []Event {
	var out []Event
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestBroadcastReachesEveryConnection(t *testing.T) {
	hub := NewHub()
	a := hub.Register(8)
	b := hub.Register(8)
	defer hub.Unregister(a)
	defer hub.Unregister(b)

	hub.Broadcast(EventRecipeUpdate, "catalog")

	require.Len(t, drain(a.C()), 1)
	require.Len(t, drain(b.C()), 1)
}

func TestRoomScopedEmit(t *testing.T) {
	hub := NewHub()
	inRoom := hub.Register(8)
	outside := hub.Register(8)
	defer hub.Unregister(inRoom)
	defer hub.Unregister(outside)

	hub.JoinRoom("m1", inRoom)
	hub.EmitToRoom("m1", EventMachineInventory, "rows")
	hub.EmitToRoom("m2", EventMachineInventory, "rows")

	got := drain(inRoom.C())
	require.Len(t, got, 1)
	assert.Equal(t, EventMachineInventory, got[0].Type)
	assert.Empty(t, drain(outside.C()))
}

func TestLeaveRoomStopsDelivery(t *testing.T) {
	hub := NewHub()
	sub := hub.Register(8)
	defer hub.Unregister(sub)

	hub.JoinRoom("m1", sub)
	hub.LeaveRoom("m1", sub)
	hub.EmitToRoom("m1", EventMachineStatusUpdate, nil)

	assert.Empty(t, drain(sub.C()))
}

func TestUnregisterClosesChannelAndLeavesRooms(t *testing.T) {
	hub := NewHub()
	sub := hub.Register(8)
	hub.JoinRoom("m1", sub)

	hub.Unregister(sub)

	_, open := <-sub.C()
	assert.False(t, open)
	// Emitting after unregister must not panic or deliver.
	hub.EmitToRoom("m1", EventMachineInventory, nil)
	hub.Broadcast(EventRecipeUpdate, nil)
}

func TestEmitRacingUnregisterDoesNotPanic(t *testing.T) {
	hub := NewHub()

	// A publisher snapshots the room while the client disconnects underneath
	// it. With a tight buffer the send and the close keep colliding; every
	// delivery attempt must either land or be swallowed, never panic.
	for i := 0; i < 200; i++ {
		sub := hub.Register(1)
		hub.JoinRoom("m1", sub)

		done := make(chan struct{})
		go func() {
			defer close(done)
			for j := 0; j < 25; j++ {
				hub.EmitToRoom("m1", EventMachineInventory, j)
				sub.Send(EventRecipeAvailability, j)
			}
		}()

		hub.Unregister(sub)
		<-done
	}
}

func TestSlowConsumerDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub()
	sub := hub.Register(1)
	defer hub.Unregister(sub)
	hub.JoinRoom("m1", sub)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			hub.EmitToRoom("m1", EventMachineTemperature, i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked on slow consumer")
	}
	assert.Len(t, drain(sub.C()), 1)
}

func TestDirectSendTargetsOneConnection(t *testing.T) {
	hub := NewHub()
	a := hub.Register(8)
	b := hub.Register(8)
	defer hub.Unregister(a)
	defer hub.Unregister(b)

	a.Send(EventRecipeAvailability, "snapshot")

	require.Len(t, drain(a.C()), 1)
	assert.Empty(t, drain(b.C()))
}

func TestTemperatureThrottleCoalesces(t *testing.T) {
	var mu sync.Mutex
	var emitted []float64
	throttle := NewTemperatureThrottle(50*time.Millisecond, func(machineID string, temp float64) {
		mu.Lock()
		emitted = append(emitted, temp)
		mu.Unlock()
	})

	// Burst of readings inside one window: first goes out immediately, the
	// rest coalesce into one trailing emission with the latest value.
	for i := 1; i <= 5; i++ {
		throttle.Offer("m1", float64(90+i))
	}

	mu.Lock()
	require.Equal(t, []float64{91}, emitted)
	mu.Unlock()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(emitted) == 2 && emitted[1] == 95
	}, time.Second, 10*time.Millisecond)
}

func TestTemperatureThrottlePerMachine(t *testing.T) {
	var mu sync.Mutex
	emitted := map[string][]float64{}
	throttle := NewTemperatureThrottle(50*time.Millisecond, func(machineID string, temp float64) {
		mu.Lock()
		emitted[machineID] = append(emitted[machineID], temp)
		mu.Unlock()
	})

	throttle.Offer("m1", 90)
	throttle.Offer("m2", 60)

	mu.Lock()
	assert.Equal(t, []float64{90}, emitted["m1"])
	assert.Equal(t, []float64{60}, emitted["m2"])
	mu.Unlock()
}

func TestTemperatureThrottleQuietWindowReopens(t *testing.T) {
	var mu sync.Mutex
	var emitted []float64
	throttle := NewTemperatureThrottle(20*time.Millisecond, func(machineID string, temp float64) {
		mu.Lock()
		emitted = append(emitted, temp)
		mu.Unlock()
	})

	throttle.Offer("m1", 90)
	time.Sleep(60 * time.Millisecond)
	throttle.Offer("m1", 91)

	mu.Lock()
	assert.Equal(t, []float64{90, 91}, emitted, "a reading after a quiet window emits immediately")
	mu.Unlock()
}
