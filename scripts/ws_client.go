// Package main runs a demo client that streams the events of one solve.
package main

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const demoRequest = `{
  "solveId": %q,
  "locations": [
    {"name": "Depot", "latitude": 52.5200, "longitude": 13.4050, "timeWindowStart": 360, "timeWindowEnd": 1080},
    {"name": "Mitte", "latitude": 52.5310, "longitude": 13.3847},
    {"name": "Kreuzberg", "latitude": 52.4986, "longitude": 13.4030, "timeWindowStart": 540, "timeWindowEnd": 720},
    {"name": "Friedrichshain", "latitude": 52.5155, "longitude": 13.4540},
    {"name": "Prenzlauer Berg", "latitude": 52.5388, "longitude": 13.4244}
  ],
  "vehicles": [{"id": "van-1", "capacity": 20}, {"id": "van-2", "capacity": 20}],
  "demands": [0, 6, 4, 8, 5],
  "useTimeWindows": true,
  "includeGeometry": false,
  "metaheuristic": "alns",
  "timeLimitSeconds": 5
}`

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)
	solveID := uuid.NewString()

	// Subscribe first so no event of the solve is missed
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/solves/" + solveID + "/events"}
	hdr := http.Header{}
	hdr.Set("X-Tenant-Id", "t_demo")
	hdr.Set("X-Role", "dispatcher")
	c, _, err := websocket.DefaultDialer.Dial(u.String(), hdr)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = c.Close() }()

	go func() {
		req, _ := http.NewRequest(http.MethodPost, base+"/v1/optimize", bytes.NewReader([]byte(fmt.Sprintf(demoRequest, solveID))))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-Id", "t_demo")
		req.Header.Set("X-Role", "dispatcher")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			log.Printf("optimize: %v", err)
			return
		}
		defer func() { _ = resp.Body.Close() }()
		b, _ := io.ReadAll(resp.Body)
		log.Printf("optimize %d: %s", resp.StatusCode, b)
	}()

	_ = c.SetReadDeadline(time.Now().Add(2 * time.Minute))
	for {
		var evt struct {
			Type string         `json:"type"`
			Data map[string]any `json:"data"`
		}
		if err := c.ReadJSON(&evt); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				// give the optimize response a moment to print
				time.Sleep(200 * time.Millisecond)
				return
			}
			log.Fatal(err)
		}
		log.Printf("%s %v", evt.Type, evt.Data)
	}
}
