package event_test

import (
	"context"
	"fmt"

	"github.com/dshills/pitwall/internal/event"
)

func ExampleBus_Emit() {
	bus := event.NewBus()

	bus.OnFunc("race.finished", func(ctx context.Context, evt event.Event) error {
		fmt.Println("winner:", evt.Payload)
		return nil
	})

	report := bus.Emit(context.Background(), "race.finished", "Leclerc")
	fmt.Println("handlers:", report.Handlers)

	// Output:
	// winner: Leclerc
	// handlers: 1
}
