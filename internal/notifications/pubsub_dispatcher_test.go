package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func TestPubSubDispatcherPublishesMailJob(t *testing.T) {
	ctx := context.Background()
	srv := pstest.NewServer()
	defer srv.Close()

	client, err := pubsub.NewClient(ctx, "test-project",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		t.Fatalf("pubsub.NewClient: %v", err)
	}
	defer func() {
		_ = client.Close()
	}()

	topic, err := client.CreateTopic(ctx, "mail-jobs")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}

	dispatcher, err := NewPubSubDispatcher(topic)
	if err != nil {
		t.Fatalf("NewPubSubDispatcher: %v", err)
	}

	queuedAt := time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)
	msg := MailJobMessage{
		Kind:        MailOrderInvoice,
		OrderID:     "ord_01HZX3",
		OrderNumber: "BRP-2026-000042",
		UserID:      "user-1",
		TotalAmount: 220000,
		QueuedAt:    queuedAt,
	}

	if _, err := dispatcher.DispatchMail(ctx, msg); err != nil {
		t.Fatalf("DispatchMail: %v", err)
	}

	messages := srv.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	var payload MailJobMessage
	if err := json.Unmarshal(messages[0].Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Kind != MailOrderInvoice || payload.OrderID != msg.OrderID {
		t.Fatalf("unexpected payload %#v", payload)
	}
	if payload.TotalAmount != 220000 {
		t.Fatalf("total = %d", payload.TotalAmount)
	}
	if attr := messages[0].Attributes["kind"]; attr != string(MailOrderInvoice) {
		t.Fatalf("kind attribute = %q", attr)
	}
	if attr := messages[0].Attributes["orderNumber"]; attr != "BRP-2026-000042" {
		t.Fatalf("orderNumber attribute = %q", attr)
	}
	if _, ok := messages[0].Attributes["recipientEmail"]; ok {
		t.Fatalf("recipientEmail attribute should not be present")
	}
}

func TestPubSubDispatcherRejectsIncompleteMessage(t *testing.T) {
	d := &PubSubDispatcher{}
	if _, err := d.DispatchMail(context.Background(), MailJobMessage{}); err == nil {
		t.Fatal("expected error for uninitialised dispatcher")
	}
}
