// credits-sim produces the upstream events the viewing service consumes,
// for local development without the billing and catalog services running.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

func main() {
	var (
		brokers  = flag.String("brokers", getenv("KAFKA_BROKERS", "localhost:9092"), "comma-separated kafka brokers")
		evtType  = flag.String("type", getenv("EVENT_TYPE", "billing.viewing_credits.granted.v1"), "event type (doubles as topic)")
		buyer    = flag.String("buyer-id", getenv("BUYER_ID", ""), "buyer user id (credits grant)")
		amount   = flag.Int("amount", 3, "credits to grant")
		property = flag.String("property-id", getenv("PROPERTY_ID", ""), "property id (catalog upsert)")
		seller   = flag.String("seller-id", getenv("SELLER_ID", ""), "seller user id (catalog upsert)")
		title    = flag.String("title", "Two-bedroom apartment", "property title (catalog upsert)")
		location = flag.String("location", "Cluj-Napoca", "property location (catalog upsert)")
	)
	flag.Parse()

	payload, key, err := buildEventJSON(*evtType, *buyer, *amount, *property, *seller, *title, *location)
	if err != nil {
		fatal(err.Error())
	}

	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  strings.Split(*brokers, ","),
		Topic:    *evtType,
		Balancer: &kafka.Hash{},
	})
	defer writer.Close()

	eventID := uuid.NewString()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(eventID)},
			{Key: "event_type", Value: []byte(*evtType)},
		},
	})
	if err != nil {
		fatal(err.Error())
	}

	fmt.Printf("published event_id=%s type=%s key=%s\n", eventID, *evtType, key)
}

func buildEventJSON(eventType, buyerID string, amount int, propertyID, sellerID, title, location string) ([]byte, string, error) {
	switch eventType {
	case "billing.viewing_credits.granted.v1":
		if strings.TrimSpace(buyerID) == "" {
			return nil, "", fmt.Errorf("BUYER_ID is required for %s", eventType)
		}
		body, err := json.Marshal(map[string]any{
			"buyer_id":   buyerID,
			"amount":     amount,
			"granted_at": time.Now().UTC().Format(time.RFC3339),
		})
		return body, buyerID, err
	case "catalog.property.upserted.v1":
		if strings.TrimSpace(propertyID) == "" || strings.TrimSpace(sellerID) == "" {
			return nil, "", fmt.Errorf("PROPERTY_ID and SELLER_ID are required for %s", eventType)
		}
		body, err := json.Marshal(map[string]any{
			"property_id": propertyID,
			"seller_id":   sellerID,
			"title":       title,
			"location":    location,
		})
		return body, propertyID, err
	default:
		return nil, "", fmt.Errorf("unsupported event type: %s", eventType)
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
