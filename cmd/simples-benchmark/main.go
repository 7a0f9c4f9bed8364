// simples-benchmark is a concurrent throughput benchmark for simplesd:
// each client goroutine appends records to its own topic as fast as it
// can over HTTP.
//
// Usage:
//
//	simples-benchmark [flags]
//
// Flags:
//
//	-addr string     Server address (default "http://127.0.0.1:8080")
//	-clients int     Number of parallel clients (default 50)
//	-requests int    Total number of requests (default 100000)
package main

import (
	"flag"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

func main() {
	addr := flag.String("addr", "http://127.0.0.1:8080", "Server address")
	clients := flag.Int("clients", 50, "Number of parallel clients")
	requests := flag.Int("requests", 100000, "Total number of requests")
	flag.Parse()

	fmt.Println("====== simples-benchmark ======")
	fmt.Printf("Server: %s\n", *addr)
	fmt.Printf("Clients: %d\n", *clients)
	fmt.Printf("Requests: %d\n", *requests)
	fmt.Println()

	var completed int64
	var errors int64
	reqPerClient := *requests / *clients

	httpClient := &http.Client{Timeout: 10 * time.Second}
	start := time.Now()
	var wg sync.WaitGroup

	for i := 0; i < *clients; i++ {
		wg.Add(1)
		go func(clientID int) {
			defer wg.Done()

			topic := fmt.Sprintf("bench_%d", clientID)
			createResp, err := httpClient.Post(fmt.Sprintf("%s/topics/%s", *addr, topic), "", nil)
			if err != nil {
				atomic.AddInt64(&errors, int64(reqPerClient))
				return
			}
			createResp.Body.Close()

			for j := 0; j < reqPerClient; j++ {
				value := fmt.Sprintf("value:%d:%d", clientID, j)

				resp, err := httpClient.Post(
					fmt.Sprintf("%s/topics/%s/records", *addr, topic),
					"application/octet-stream",
					strings.NewReader(value),
				)
				if err != nil {
					atomic.AddInt64(&errors, 1)
					continue
				}
				resp.Body.Close()
				if resp.StatusCode != http.StatusCreated {
					atomic.AddInt64(&errors, 1)
					continue
				}

				atomic.AddInt64(&completed, 1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	fmt.Println("====== Results ======")
	fmt.Printf("Total time: %v\n", elapsed)
	fmt.Printf("Completed: %d\n", completed)
	fmt.Printf("Errors: %d\n", errors)
	fmt.Printf("Requests/sec: %.2f\n", float64(completed)/elapsed.Seconds())
}
