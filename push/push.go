// Package push sends web-push notifications to users tagged in posts.
package push

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"threads/models"
	"threads/store"

	"github.com/SherClockHolmes/webpush-go"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Notifier interface {
	NotifyTagged(author *models.User, post *models.Post)
}

// Sender delivers one payload; webpush.SendNotification in production.
type Sender func(message []byte, sub *webpush.Subscription, opts *webpush.Options) (*http.Response, error)

type WebPush struct {
	subs       store.Subscriptions
	publicKey  string
	privateKey string
	subject    string
	send       Sender
	log        *slog.Logger
}

func NewWebPush(subs store.Subscriptions, publicKey, privateKey, subject string, log *slog.Logger) *WebPush {
	return &WebPush{
		subs:       subs,
		publicKey:  publicKey,
		privateKey: privateKey,
		subject:    subject,
		send:       webpush.SendNotification,
		log:        log,
	}
}

func (w *WebPush) WithSender(send Sender) *WebPush {
	w.send = send
	return w
}

func (w *WebPush) PublicKey() string {
	return w.publicKey
}

type payload struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Icon  string         `json:"icon,omitempty"`
	Data  map[string]any `json:"data"`
}

// NotifyTagged fans out asynchronously; delivery errors are logged only.
func (w *WebPush) NotifyTagged(author *models.User, post *models.Post) {
	recipients := make([]primitive.ObjectID, 0, len(post.TaggedUsers))
	for _, id := range post.TaggedUsers {
		if id != author.ID {
			recipients = append(recipients, id)
		}
	}
	if len(recipients) == 0 {
		return
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				w.log.Error("panic in push notification", "recover", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		w.deliver(ctx, author, post, recipients)
	}()
}

const previewRunes = 100

// preview cuts text to previewRunes characters, never inside a rune.
func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewRunes {
		return text
	}
	return string(runes[:previewRunes]) + "..."
}

func (w *WebPush) deliver(ctx context.Context, author *models.User, post *models.Post, recipients []primitive.ObjectID) int {
	subs, err := w.subs.ByUsers(ctx, recipients)
	if err != nil {
		w.log.Error("load push subscriptions", "error", err)
		return 0
	}

	msg, err := json.Marshal(payload{
		Title: "@" + author.Username + " tagged you",
		Body:  preview(post.Text),
		Icon:  author.ProfilePic,
		Data: map[string]any{
			"url":       "/" + author.Username + "/post/" + post.ID.Hex(),
			"timestamp": time.Now().Unix(),
		},
	})
	if err != nil {
		w.log.Error("marshal push payload", "error", err)
		return 0
	}

	sent := 0
	for _, sub := range subs {
		resp, err := w.send(msg, &sub.Sub, &webpush.Options{
			Subscriber:      w.subject,
			VAPIDPublicKey:  w.publicKey,
			VAPIDPrivateKey: w.privateKey,
			TTL:             30,
		})
		if resp != nil {
			resp.Body.Close()
		}
		if err != nil {
			w.log.Warn("push notification failed", "user", sub.UserID.Hex(), "error", err)
			continue
		}
		if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
			w.log.Info("push subscription expired", "user", sub.UserID.Hex())
			if err := w.subs.Delete(ctx, sub.UserID); err != nil {
				w.log.Warn("delete expired subscription", "user", sub.UserID.Hex(), "error", err)
			}
			continue
		}
		sent++
	}
	return sent
}

// Nop is used when VAPID keys are not configured.
type Nop struct{}

func (Nop) NotifyTagged(*models.User, *models.Post) {}
