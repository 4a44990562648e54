package streamworker

import (
	"testing"
)

func TestEmitter_RoutesByName(t *testing.T) {
	t.Parallel()

	s := startSession(t, WorkerFunc(func(_ *Inbox, out *Outbox) error {
		out.Send(Message{Name: "temp", Data: "21.5"})
		out.Send(Message{Name: "humidity", Data: "40"})
		out.Send(Message{Name: "temp", Data: "22.0"})
		out.Send(Message{Name: "ignored", Data: "x"})
		return nil
	}))
	e := NewEmitter(s)

	var temps, humidities []string
	e.On("temp", func(m Message) { temps = append(temps, m.Data) })
	e.On("humidity", func(m Message) { humidities = append(humidities, m.Data) })

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Wait(t.Context()); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	if len(temps) != 2 || temps[0] != "21.5" || temps[1] != "22.0" {
		t.Errorf("temp handler got %v, want [21.5 22.0]", temps)
	}
	if len(humidities) != 1 || humidities[0] != "40" {
		t.Errorf("humidity handler got %v, want [40]", humidities)
	}
}

func TestEmitter_EmitReachesWorker(t *testing.T) {
	t.Parallel()

	s := startSession(t, echoWorker)
	e := NewEmitter(s)

	var echoed []string
	e.On("greeting", func(m Message) { echoed = append(echoed, m.Data) })

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := e.Emit("greeting", "hello"); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if err := e.Emit("greeting", "world"); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	e.Session().Close()

	if err := s.Wait(t.Context()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if len(echoed) != 2 || echoed[0] != "hello" || echoed[1] != "world" {
		t.Errorf("echoed %v, want [hello world]", echoed)
	}
}
