package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"firewatch/internal/model"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type fakeSender struct {
	sent []tgbotapi.Chattable
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.err
}

type countingNotifier struct {
	calls int
	err   error
}

func (c *countingNotifier) Notify(ctx context.Context, event *model.Event) error {
	c.calls++
	return c.err
}

func testEvent(imageURL string) *model.Event {
	at := time.Date(2025, 6, 15, 14, 30, 5, 0, time.UTC)
	return model.NewDangerEvent("kitchen-cam", 0.873, "model-based", imageURL, at)
}

func TestFormatAlert(t *testing.T) {
	text := FormatAlert(testEvent("https://storage.googleapis.com/b/fire.jpg"), time.UTC)

	expected := []string{
		"FIRE ALERT: DANGER",
		"Time: 2025-06-15 14:30:05",
		"Camera: kitchen-cam",
		"Confidence: 87.3% (model-based)",
		"Image: https://storage.googleapis.com/b/fire.jpg",
		"IMMEDIATE ACTION REQUIRED!",
	}
	for _, part := range expected {
		if !strings.Contains(text, part) {
			t.Errorf("Expected alert to contain %q, got:\n%s", part, text)
		}
	}
}

func TestFormatAlert_WithoutImage(t *testing.T) {
	text := FormatAlert(testEvent(""), time.UTC)
	if strings.Contains(text, "Image:") {
		t.Errorf("Expected no image line, got:\n%s", text)
	}
}

func TestFormatAlert_SensorEvent(t *testing.T) {
	event := model.NewSensorEvent("gw-1", model.EventTypeDanger, "temperature 57.0°C, smoke 420, flame no, light 0.80",
		time.Date(2025, 6, 15, 14, 30, 5, 0, time.UTC))

	text := FormatAlert(event, time.UTC)

	if !strings.Contains(text, "SENSORS:\n• temperature 57.0°C") {
		t.Errorf("Expected sensor section, got:\n%s", text)
	}
	if strings.Contains(text, "AI FIRE DETECTION") {
		t.Errorf("Expected no AI section for a sensor event, got:\n%s", text)
	}
	if !strings.Contains(text, "Camera: gw-1") {
		t.Errorf("Expected node name, got:\n%s", text)
	}
}

func TestTelegramNotifier_Notify(t *testing.T) {
	fake := &fakeSender{}
	n := &TelegramNotifier{bot: fake, chatID: 42, loc: time.UTC}

	if err := n.Notify(context.Background(), testEvent("")); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if len(fake.sent) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(fake.sent))
	}

	msg, ok := fake.sent[0].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("Expected MessageConfig, got %T", fake.sent[0])
	}
	if msg.ChatID != 42 {
		t.Errorf("Expected chat 42, got %d", msg.ChatID)
	}
	if !strings.Contains(msg.Text, "kitchen-cam") {
		t.Errorf("Expected message to mention the camera, got %q", msg.Text)
	}

	fake.err = errors.New("telegram down")
	if err := n.Notify(context.Background(), testEvent("")); err == nil {
		t.Error("Expected send error to propagate")
	}
}

func TestMulti_CallsAllAndJoinsErrors(t *testing.T) {
	failing := &countingNotifier{err: errors.New("boom")}
	ok := &countingNotifier{}
	m := Multi{failing, ok, Nop{}}

	err := m.Notify(context.Background(), testEvent(""))
	if err == nil {
		t.Error("Expected joined error")
	}
	if failing.calls != 1 || ok.calls != 1 {
		t.Errorf("Expected every notifier to be called once, got %d and %d", failing.calls, ok.calls)
	}
}
