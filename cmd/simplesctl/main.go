// simplesctl is a small manual test client for simplesd: it creates a
// topic, appends a couple of records, and reads them back, printing
// each step's request and response.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

func main() {
	addr := flag.String("addr", "http://127.0.0.1:8080", "simplesd base address")
	topic := flag.String("topic", "smoketest", "topic name to exercise")
	flag.Parse()

	client := &http.Client{Timeout: 5 * time.Second}

	fmt.Printf(">>> POST %s/topics/%s\n", *addr, *topic)
	createResp, err := client.Post(fmt.Sprintf("%s/topics/%s", *addr, *topic), "", nil)
	if err != nil {
		fmt.Printf("Failed to connect: %v\n", err)
		return
	}
	createResp.Body.Close()
	fmt.Printf("<<< %s\n", createResp.Status)

	for _, body := range []string{"hello", "world"} {
		fmt.Printf(">>> POST %s/topics/%s/records %q\n", *addr, *topic, body)
		resp, err := client.Post(fmt.Sprintf("%s/topics/%s/records", *addr, *topic), "application/octet-stream", strings.NewReader(body))
		if err != nil {
			fmt.Printf("Failed to append: %v\n", err)
			return
		}
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		fmt.Printf("<<< %s %s\n", resp.Status, respBody)
	}

	fmt.Printf(">>> GET %s/topics/%s/records?from=0\n", *addr, *topic)
	readResp, err := client.Get(fmt.Sprintf("%s/topics/%s/records?from=0", *addr, *topic))
	if err != nil {
		fmt.Printf("Failed to read: %v\n", err)
		return
	}
	defer readResp.Body.Close()

	var header [12]byte
	for {
		if _, err := io.ReadFull(readResp.Body, header[:]); err != nil {
			break
		}
		pos := binary.LittleEndian.Uint64(header[0:8])
		length := binary.LittleEndian.Uint32(header[8:12])
		payload := make([]byte, length)
		if _, err := io.ReadFull(readResp.Body, payload); err != nil {
			break
		}
		fmt.Printf("<<< position=%d %q\n", pos, payload)
	}

	fmt.Println("\n✓ All requests completed")
}
