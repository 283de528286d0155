package reminder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultWebhookTimeout = 5 * time.Second

// WebhookNotifier posts reminders as JSON to a chat-platform webhook URL.
type WebhookNotifier struct {
	URL     string
	Channel string
	Client  *http.Client
}

// NewWebhookNotifier builds a notifier with a timeout-bounded client.
func NewWebhookNotifier(url, channel string) *WebhookNotifier {
	return &WebhookNotifier{
		URL:     url,
		Channel: channel,
		Client:  &http.Client{Timeout: defaultWebhookTimeout},
	}
}

type webhookBody struct {
	Channel string `json:"channel,omitempty"`
	Content string `json:"content"`
}

func (n *WebhookNotifier) Send(ctx context.Context, r Reminder) error {
	data, err := json.Marshal(webhookBody{Channel: n.Channel, Content: Format(r)})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Crewcal-Reminder", string(r.Kind))
	res, err := n.Client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("webhook status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// Format renders a reminder as a chat message.
func Format(r Reminder) string {
	when := r.Date.Format("02/01/2006")
	if r.Kind == KindEvent {
		return fmt.Sprintf("⏰ **Lembrete (2 semanas):** `%s` em %s.", r.EventName, when)
	}
	assignees := make([]string, 0, len(r.AssigneeIDs))
	for _, id := range r.AssigneeIDs {
		assignees = append(assignees, fmt.Sprintf("<@%d>", id))
	}
	who := strings.Join(assignees, " ")
	if who == "" {
		who = "(sem responsável)"
	}
	return fmt.Sprintf(
		"📌 **Tarefa vencendo em 2 semanas**\nEvento: `%s`\nÁrea: `%s`\nTarefa: %s\nResponsáveis: %s\nPrazo: %s",
		r.EventName, r.Area, r.TaskTitle, who, when)
}
