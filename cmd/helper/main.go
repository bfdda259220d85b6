// Driver simulator for local smoke testing: connects to the dispatch
// websocket, streams GPS jitter, auto-accepts the first offer and drives the
// trip through start and completion.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	websocketdto "vtc-platform/internal/dispatch-service/core/domain/websocket_dto"

	"github.com/gorilla/websocket"
)

// ANSI color codes
const (
	Reset = "\033[0m"
	Green = "\033[32m"
	Cyan  = "\033[36m"
	Red   = "\033[31m"
)

const locationInterval = 3 * time.Second

func main() {
	driverID := flag.String("driver_id", "", "driver id to connect with")
	host := flag.String("host", "localhost:3000", "dispatch service host:port")
	lat := flag.Float64("lat", 4.0511, "starting latitude")
	lng := flag.Float64("lng", 9.7679, "starting longitude")
	flag.Parse()

	if *driverID == "" {
		log.Fatal("driver_id is required")
	}

	wsURL := fmt.Sprintf("ws://%s/ws/driver/%s/", *host, *driverID)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()
	logf(Green, "connected as driver %s", *driverID)

	send := func(eventType string, payload any) {
		ev := websocketdto.Marshal(eventType, payload)
		if err := conn.WriteJSON(ev); err != nil {
			logf(Red, "send failed: %v", err)
		} else {
			logf(Cyan, "sent %s", eventType)
		}
	}

	go func() {
		for {
			var ev websocketdto.Event
			if err := conn.ReadJSON(&ev); err != nil {
				logf(Red, "read failed: %v", err)
				return
			}
			logf(Green, "received %s: %s", ev.Type, string(ev.Data))

			switch ev.Type {
			case websocketdto.OutOrderRequest:
				var offer websocketdto.OrderRequest
				if err := json.Unmarshal(ev.Data, &offer); err != nil {
					logf(Red, "bad offer payload: %v", err)
					continue
				}
				send(websocketdto.InAcceptOrder, websocketdto.AcceptOrder{OrderID: offer.OrderID})

				// drive the trip through its lifecycle
				go func(orderID string) {
					time.Sleep(2 * time.Second)
					send(websocketdto.InStartTrip, websocketdto.TripAction{OrderID: orderID})
					time.Sleep(10 * time.Second)
					send(websocketdto.InCompleteTrip, websocketdto.TripAction{OrderID: orderID})
				}(offer.OrderID)
			}
		}
	}()

	ticker := time.NewTicker(locationInterval)
	defer ticker.Stop()
	for range ticker.C {
		*lat += (rand.Float64() - 0.5) / 1000
		*lng += (rand.Float64() - 0.5) / 1000
		send(websocketdto.InLocationUpdate, websocketdto.LocationUpdate{
			Latitude:  *lat,
			Longitude: *lng,
		})
	}
}

func logf(color, format string, args ...any) {
	log.Printf(color+format+Reset, args...)
}
