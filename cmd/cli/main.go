// Command cli prints the state of a running monitor from its status server.
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

type status struct {
	Target    string `json:"target"`
	State     string `json:"state"`
	Cycles    int64  `json:"cycles"`
	LastCycle string `json:"last_cycle"`
}

func main() {
	api := os.Getenv("STATUS_URL")
	if api == "" {
		api = "http://localhost:9100"
	}
	api = strings.TrimRight(api, "/")

	req, err := http.NewRequest(http.MethodGet, api+"/status", nil)
	if err != nil {
		fmt.Println("Invalid STATUS_URL:", err)
		os.Exit(1)
	}
	if key := os.Getenv("STATUS_API_KEY"); key != "" {
		req.Header.Set("X-API-Key", key)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Println("Error contacting status server:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		fmt.Println("Status server returned:", resp.Status)
		os.Exit(1)
	}

	var st status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		fmt.Println("Unexpected response:", err)
		os.Exit(1)
	}
	last := st.LastCycle
	if last == "" {
		last = "never"
	}
	fmt.Printf("%s  %s  cycles=%d  last=%s\n", st.Target, st.State, st.Cycles, last)
}
