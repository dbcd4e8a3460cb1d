// Minimal end-to-end smoke test for the status API.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/opspulse/background-agents/src/types"
	"github.com/opspulse/background-agents/src/webclient"
)

var baseURL = getenv("STATUS_URL", "http://localhost:8090/v1")

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

var client = webclient.NewDefault(10 * time.Second)

func main() {
	var status map[string]interface{}
	get("/status", &status, 0)
	if _, ok := status["system_running"]; !ok {
		log.Fatal("status: missing system_running")
	}
	fmt.Printf("status: running=%v\n", status["system_running"])

	var health struct {
		Status string       `json:"status"`
		Health types.Health `json:"health"`
	}
	// Both 200 and 503 carry a decodable body here.
	get("/health", &health, 0)
	if health.Status == "" {
		log.Fatal("health: empty status")
	}
	fmt.Printf("health: %s score=%.1f agents=%d/%d\n",
		health.Status, health.Health.OverallScore,
		health.Health.ActiveAgents, health.Health.TotalAgents)

	var agents struct {
		Count  int           `json:"count"`
		Agents []types.Agent `json:"agents"`
	}
	get("/agents", &agents, http.StatusOK)
	for _, a := range agents.Agents {
		fmt.Printf("agent: %s status=%s failures=%d\n", a.ID, a.Status, a.FailureCount)
	}

	var events struct {
		Count  int                 `json:"count"`
		Events []types.SystemEvent `json:"events"`
	}
	get("/events?limit=5", &events, http.StatusOK)
	fmt.Printf("events: %d recent\n", events.Count)

	fmt.Println("✓ all endpoints passed")
}

// get fetches a JSON body, enforcing the status code when want is
// non-zero.
func get(path string, out interface{}, want int) {
	resp, err := client.Get(baseURL + path)
	if err != nil {
		log.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	if want != 0 && resp.StatusCode != want {
		log.Fatalf("GET %s: status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		log.Fatalf("GET %s: decode: %v", path, err)
	}
}
