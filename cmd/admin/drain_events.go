// Drains the order-event queue to stdout. Useful when the external
// notification dispatcher is down and events need manual inspection.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	redisclient "github.com/vietddude/storefront/internal/infra/redis"
)

func main() {
	_ = godotenv.Load()

	url := os.Getenv("REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379/0"
	}

	rc, err := redisclient.NewClient(redisclient.Config{URL: url})
	if err != nil {
		panic(err)
	}
	defer rc.Close()

	ctx := context.Background()
	drained := 0
	for {
		event, err := rc.PopEvent(ctx)
		if err != nil {
			panic(err)
		}
		if event == nil {
			break
		}
		payload, _ := json.Marshal(event)
		fmt.Println(string(payload))
		drained++
	}

	fmt.Fprintf(os.Stderr, "drained %d events\n", drained)
}
